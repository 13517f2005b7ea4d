package indexer

import (
	"context"
	"math/big"
	"testing"

	"ammindexer/internal/decoder"
	"ammindexer/internal/models"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

func TestProjectPairEventSwapX2YWhenAmount0InNonzero(t *testing.T) {
	pair := common.HexToAddress("0x1111111111111111111111111111111111111111")
	sender := common.HexToAddress("0x2222222222222222222222222222222222222222")
	to := common.HexToAddress("0x3333333333333333333333333333333333333333")

	args := mustPack(t, []string{"uint256", "uint256", "uint256", "uint256"},
		big.NewInt(100), big.NewInt(0), big.NewInt(0), big.NewInt(250))

	l := types.Log{
		Address: pair,
		Topics:  []common.Hash{decoderTopic(t, decoder.SigSwap), common.BytesToHash(sender.Bytes()), common.BytesToHash(to.Bytes())},
		Data:    args,
	}

	s := &Service{}
	ev, deltaType, err := s.projectPairEvent(decoder.KindSwap, l, map[common.Address]struct{ X, Y *big.Int }{})
	if err != nil {
		t.Fatalf("projectPairEvent: %v", err)
	}
	if deltaType != models.EventTypeSwap {
		t.Fatalf("deltaType = %d, want %d", deltaType, models.EventTypeSwap)
	}
	if ev.AmountX != "100" || ev.AmountY != "250" {
		t.Fatalf("amounts = (%s,%s), want (100,250)", ev.AmountX, ev.AmountY)
	}
	if ev.IsSwapX2Y == nil || !*ev.IsSwapX2Y {
		t.Fatalf("IsSwapX2Y = %v, want true", ev.IsSwapX2Y)
	}
}

func TestProjectPairEventSwapY2XWhenAmount0InZero(t *testing.T) {
	pair := common.HexToAddress("0x1111111111111111111111111111111111111111")
	sender := common.HexToAddress("0x2222222222222222222222222222222222222222")
	to := common.HexToAddress("0x3333333333333333333333333333333333333333")

	args := mustPack(t, []string{"uint256", "uint256", "uint256", "uint256"},
		big.NewInt(0), big.NewInt(40), big.NewInt(15), big.NewInt(0))

	l := types.Log{
		Address: pair,
		Topics:  []common.Hash{decoderTopic(t, decoder.SigSwap), common.BytesToHash(sender.Bytes()), common.BytesToHash(to.Bytes())},
		Data:    args,
	}

	s := &Service{}
	ev, _, err := s.projectPairEvent(decoder.KindSwap, l, map[common.Address]struct{ X, Y *big.Int }{})
	if err != nil {
		t.Fatalf("projectPairEvent: %v", err)
	}
	if ev.AmountX != "15" || ev.AmountY != "40" {
		t.Fatalf("amounts = (%s,%s), want (15,40)", ev.AmountX, ev.AmountY)
	}
	if ev.IsSwapX2Y == nil || *ev.IsSwapX2Y {
		t.Fatalf("IsSwapX2Y = %v, want false", ev.IsSwapX2Y)
	}
}

func TestProjectPairEventSyncRecordsReserveUpdateNotCounter(t *testing.T) {
	pair := common.HexToAddress("0x1111111111111111111111111111111111111111")
	args := mustPack(t, []string{"uint112", "uint112"}, big.NewInt(500), big.NewInt(900))
	l := types.Log{Address: pair, Index: 7, Topics: []common.Hash{decoderTopic(t, decoder.SigSync)}, Data: args}

	reserveUpdates := map[common.Address]struct{ X, Y *big.Int }{}
	s := &Service{}
	ev, deltaType, err := s.projectPairEvent(decoder.KindSync, l, reserveUpdates)
	if err != nil {
		t.Fatalf("projectPairEvent: %v", err)
	}
	if deltaType != 0 {
		t.Fatalf("deltaType = %d, want 0 (Sync updates reserves, not a counter)", deltaType)
	}
	if ev.AmountX != "500" || ev.AmountY != "900" {
		t.Fatalf("amounts = (%s,%s), want (500,900)", ev.AmountX, ev.AmountY)
	}
	if ev.LogIndex != 7 {
		t.Fatalf("LogIndex = %d, want 7 (must be threaded from the source log for dedup-key correctness)", ev.LogIndex)
	}
	if reserveUpdates[pair].X.String() != "500" || reserveUpdates[pair].Y.String() != "900" {
		t.Fatalf("reserveUpdates not recorded: %+v", reserveUpdates[pair])
	}
}

func TestSortLogsOrdersByBlockNumberThenIndex(t *testing.T) {
	logs := []types.Log{
		{BlockNumber: 10, Index: 3},
		{BlockNumber: 9, Index: 5},
		{BlockNumber: 10, Index: 1},
	}
	sortLogs(logs)
	want := []struct {
		Block uint64
		Index uint
	}{{9, 5}, {10, 1}, {10, 3}}
	for i, w := range want {
		if logs[i].BlockNumber != w.Block || logs[i].Index != w.Index {
			t.Fatalf("logs[%d] = (block %d, index %d), want (block %d, index %d)", i, logs[i].BlockNumber, logs[i].Index, w.Block, w.Index)
		}
	}
}

func TestFetchLogsSkipsRPCCallWhenAddressSetEmpty(t *testing.T) {
	s := &Service{}
	logs, err := s.fetchLogs(context.Background(), nil, decoder.KindMint, 1, 100)
	if err != nil {
		t.Fatalf("fetchLogs: %v", err)
	}
	if logs != nil {
		t.Fatalf("logs = %v, want nil", logs)
	}
}

func TestAddrSliceReturnsAllSetMembers(t *testing.T) {
	a := common.HexToAddress("0x1111111111111111111111111111111111111111")
	b := common.HexToAddress("0x2222222222222222222222222222222222222222")
	set := map[common.Address]struct{}{a: {}, b: {}}
	out := addrSlice(set)
	if len(out) != 2 {
		t.Fatalf("len(out) = %d, want 2", len(out))
	}
}

func mustPack(t *testing.T, kinds []string, values ...interface{}) []byte {
	t.Helper()
	args := make(abi.Arguments, len(kinds))
	for i, k := range kinds {
		typ, err := abi.NewType(k, "", nil)
		if err != nil {
			t.Fatalf("abi.NewType(%s): %v", k, err)
		}
		args[i] = abi.Argument{Type: typ}
	}
	b, err := args.Pack(values...)
	if err != nil {
		t.Fatalf("pack: %v", err)
	}
	return b
}

func decoderTopic(t *testing.T, sig string) common.Hash {
	t.Helper()
	switch sig {
	case decoder.SigSwap:
		h, err := decoder.Topic0For(decoder.KindSwap)
		if err != nil {
			t.Fatalf("topic0: %v", err)
		}
		return h
	case decoder.SigSync:
		h, err := decoder.Topic0For(decoder.KindSync)
		if err != nil {
			t.Fatalf("topic0: %v", err)
		}
		return h
	default:
		t.Fatalf("unhandled sig %s", sig)
		return common.Hash{}
	}
}
