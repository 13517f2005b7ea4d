package decoder

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

func addr(n byte) common.Address {
	var a common.Address
	a[19] = n
	return a
}

func pack(t *testing.T, types []string, values ...interface{}) []byte {
	t.Helper()
	args := make(abi.Arguments, 0, len(types))
	for _, ty := range types {
		abiType, err := abi.NewType(ty, "", nil)
		if err != nil {
			t.Fatalf("abi.NewType(%s): %v", ty, err)
		}
		args = append(args, abi.Argument{Type: abiType})
	}
	data, err := args.Pack(values...)
	if err != nil {
		t.Fatalf("pack: %v", err)
	}
	return data
}

func TestKindOfRecognizesAllSignatures(t *testing.T) {
	cases := []struct {
		name string
		sig  string
		want Kind
	}{
		{"PairCreated", SigPairCreated, KindPairCreated},
		{"Mint", SigMint, KindMint},
		{"Burn", SigBurn, KindBurn},
		{"Swap", SigSwap, KindSwap},
		{"Sync", SigSync, KindSync},
		{"ProjectCreated", SigProjectCreated, KindProjectCreated},
		{"UserInvestment", SigUserInvestment, KindInvest},
		{"UserClaim", SigUserClaim, KindClaim},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			h, err := Topic0For(c.want)
			if err != nil {
				t.Fatalf("Topic0For: %v", err)
			}
			log := types.Log{Topics: []common.Hash{h}}
			got, err := KindOf(log)
			if err != nil {
				t.Fatalf("KindOf: %v", err)
			}
			if got != c.want {
				t.Fatalf("KindOf = %v, want %v", got, c.want)
			}
		})
	}
}

func TestDecodeSwapReadsSenderAndToFromDistinctTopics(t *testing.T) {
	topic0, _ := Topic0For(KindSwap)
	sender := addr(1)
	to := addr(2)
	log := types.Log{
		Address: addr(9),
		Topics: []common.Hash{
			topic0,
			common.BytesToHash(sender.Bytes()),
			common.BytesToHash(to.Bytes()),
		},
		Data: pack(t, []string{"uint256", "uint256", "uint256", "uint256"},
			big.NewInt(0), big.NewInt(1000000), big.NewInt(500), big.NewInt(0)),
	}

	ev, err := DecodeSwap(log)
	if err != nil {
		t.Fatalf("DecodeSwap: %v", err)
	}
	if ev.Sender != sender {
		t.Fatalf("Sender = %s, want %s", ev.Sender.Hex(), sender.Hex())
	}
	if ev.To != to {
		t.Fatalf("To = %s, want %s (must not collapse to sender)", ev.To.Hex(), to.Hex())
	}
	if ev.Amount1In.Cmp(big.NewInt(1000000)) != 0 {
		t.Fatalf("Amount1In = %s, want 1000000", ev.Amount1In.String())
	}
}

func TestDecodeSync(t *testing.T) {
	topic0, _ := Topic0For(KindSync)
	log := types.Log{
		Address: addr(9),
		Topics:  []common.Hash{topic0},
		Data:    pack(t, []string{"uint112", "uint112"}, big.NewInt(100), big.NewInt(200)),
	}
	ev, err := DecodeSync(log)
	if err != nil {
		t.Fatalf("DecodeSync: %v", err)
	}
	if ev.Reserve0.Cmp(big.NewInt(100)) != 0 || ev.Reserve1.Cmp(big.NewInt(200)) != 0 {
		t.Fatalf("unexpected reserves: %s, %s", ev.Reserve0, ev.Reserve1)
	}
}

func TestDecodeProjectCreatedKeepsNameReadable(t *testing.T) {
	topic0, _ := Topic0For(KindProjectCreated)
	log := types.Log{
		Topics: []common.Hash{topic0},
		Data:   pack(t, []string{"string", "address"}, "MoonCoin", addr(5)),
	}
	ev, err := DecodeProjectCreated(log)
	if err != nil {
		t.Fatalf("DecodeProjectCreated: %v", err)
	}
	if ev.ProjectName != "MoonCoin" {
		t.Fatalf("ProjectName = %q, want MoonCoin", ev.ProjectName)
	}
	if ev.ProjectAddress != addr(5) {
		t.Fatalf("ProjectAddress mismatch")
	}
}

func TestDecodeMintMissingTopicErrors(t *testing.T) {
	topic0, _ := Topic0For(KindMint)
	log := types.Log{Topics: []common.Hash{topic0}}
	if _, err := DecodeMint(log); err == nil {
		t.Fatalf("expected error for missing sender topic")
	}
}
