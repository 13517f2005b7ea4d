// Package decoder maps raw EVM logs into the tagged variant of pair and
// launchpad events the indexer projects into storage. Event shapes are
// ABI-driven; each variant has a fixed set of fields and is recovered
// from a log via a dedicated decode function, mirroring the
// TryFrom<Log>-per-variant shape of the reference implementation.
package decoder

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// Kind tags which variant a decoded event carries.
type Kind int

const (
	KindPairCreated Kind = iota
	KindMint
	KindBurn
	KindSwap
	KindSync
	KindProjectCreated
	KindInvest
	KindClaim
)

// Event signatures, topic0 = keccak256(signature).
const (
	SigPairCreated = "PairCreated(address,address,address,uint256)"
	SigMint        = "Mint(address,uint256,uint256)"
	SigBurn        = "Burn(address,uint256,uint256,address)"
	SigSwap        = "Swap(address,uint256,uint256,uint256,uint256,address)"
	SigSync        = "Sync(uint112,uint112)"
	SigProjectCreated = "ProjectCreated(string,address)"
	SigUserInvestment = "UserInvestment(address,uint256)"
	SigUserClaim      = "UserClaim(address,uint256)"
)

var topic0 = map[common.Hash]Kind{
	crypto.Keccak256Hash([]byte(SigPairCreated)):    KindPairCreated,
	crypto.Keccak256Hash([]byte(SigMint)):           KindMint,
	crypto.Keccak256Hash([]byte(SigBurn)):           KindBurn,
	crypto.Keccak256Hash([]byte(SigSwap)):           KindSwap,
	crypto.Keccak256Hash([]byte(SigSync)):           KindSync,
	crypto.Keccak256Hash([]byte(SigProjectCreated)): KindProjectCreated,
	crypto.Keccak256Hash([]byte(SigUserInvestment)): KindInvest,
	crypto.Keccak256Hash([]byte(SigUserClaim)):      KindClaim,
}

// Topic0For returns the keccak256 topic hash for a known signature,
// used by the RPC layer to build eth_getLogs topic filters.
func Topic0For(kind Kind) (common.Hash, error) {
	for h, k := range topic0 {
		if k == kind {
			return h, nil
		}
	}
	return common.Hash{}, fmt.Errorf("no topic0 for kind %d", kind)
}

// KindOf identifies the variant of a raw log by its topic0, or an error
// if the log's signature is not one this decoder recognizes.
func KindOf(log types.Log) (Kind, error) {
	if len(log.Topics) == 0 {
		return 0, fmt.Errorf("log has no topics")
	}
	k, ok := topic0[log.Topics[0]]
	if !ok {
		return 0, fmt.Errorf("unrecognized topic0 %s", log.Topics[0].Hex())
	}
	return k, nil
}

type PairCreatedEvent struct {
	Token0         common.Address
	Token1         common.Address
	PairAddress    common.Address
	AllPairsLength *big.Int
}

type MintEvent struct {
	PairAddress common.Address
	Sender      common.Address
	Amount0     *big.Int
	Amount1     *big.Int
}

type BurnEvent struct {
	PairAddress common.Address
	Sender      common.Address
	To          common.Address
	Amount0     *big.Int
	Amount1     *big.Int
}

type SwapEvent struct {
	PairAddress common.Address
	Sender      common.Address
	To          common.Address
	Amount0In   *big.Int
	Amount1In   *big.Int
	Amount0Out  *big.Int
	Amount1Out  *big.Int
}

type SyncEvent struct {
	PairAddress common.Address
	Reserve0    *big.Int
	Reserve1    *big.Int
}

type ProjectCreatedEvent struct {
	ProjectName    string
	ProjectAddress common.Address
}

type InvestEvent struct {
	LaunchpadAddress common.Address
	User             common.Address
	Amount           *big.Int
}

type ClaimEvent struct {
	LaunchpadAddress common.Address
	User             common.Address
	Amount           *big.Int
}

var (
	typeAddress, _ = abi.NewType("address", "", nil)
	typeUint256, _ = abi.NewType("uint256", "", nil)
	typeUint112, _ = abi.NewType("uint112", "", nil)
	typeString, _  = abi.NewType("string", "", nil)
)

func unpack(args abi.Arguments, data []byte) ([]interface{}, error) {
	return args.Unpack(data)
}

// DecodePairCreated decodes a PairCreated(token0 indexed, token1 indexed,
// pair, allPairsLength) log. token0/token1 come from topics[1]/topics[2];
// pair address and the length counter are ABI-decoded from data.
func DecodePairCreated(log types.Log) (*PairCreatedEvent, error) {
	if len(log.Topics) < 3 {
		return nil, fmt.Errorf("PairCreated: expected 3 topics, got %d", len(log.Topics))
	}
	args := abi.Arguments{{Type: typeAddress}, {Type: typeUint256}}
	values, err := unpack(args, log.Data)
	if err != nil {
		return nil, fmt.Errorf("PairCreated: decode data: %w", err)
	}
	pair, ok := values[0].(common.Address)
	if !ok {
		return nil, fmt.Errorf("PairCreated: unexpected pair type")
	}
	length, ok := values[1].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("PairCreated: unexpected length type")
	}
	return &PairCreatedEvent{
		Token0:         common.BytesToAddress(log.Topics[1].Bytes()),
		Token1:         common.BytesToAddress(log.Topics[2].Bytes()),
		PairAddress:    pair,
		AllPairsLength: length,
	}, nil
}

// DecodeMint decodes Mint(sender indexed, amount0, amount1).
func DecodeMint(log types.Log) (*MintEvent, error) {
	if len(log.Topics) < 2 {
		return nil, fmt.Errorf("Mint: expected 2 topics, got %d", len(log.Topics))
	}
	args := abi.Arguments{{Type: typeUint256}, {Type: typeUint256}}
	values, err := unpack(args, log.Data)
	if err != nil {
		return nil, fmt.Errorf("Mint: decode data: %w", err)
	}
	amount0, _ := values[0].(*big.Int)
	amount1, _ := values[1].(*big.Int)
	return &MintEvent{
		PairAddress: log.Address,
		Sender:      common.BytesToAddress(log.Topics[1].Bytes()),
		Amount0:     amount0,
		Amount1:     amount1,
	}, nil
}

// DecodeBurn decodes Burn(sender indexed, amount0, amount1, to indexed).
func DecodeBurn(log types.Log) (*BurnEvent, error) {
	if len(log.Topics) < 3 {
		return nil, fmt.Errorf("Burn: expected 3 topics, got %d", len(log.Topics))
	}
	args := abi.Arguments{{Type: typeUint256}, {Type: typeUint256}}
	values, err := unpack(args, log.Data)
	if err != nil {
		return nil, fmt.Errorf("Burn: decode data: %w", err)
	}
	amount0, _ := values[0].(*big.Int)
	amount1, _ := values[1].(*big.Int)
	return &BurnEvent{
		PairAddress: log.Address,
		Sender:      common.BytesToAddress(log.Topics[1].Bytes()),
		To:          common.BytesToAddress(log.Topics[2].Bytes()),
		Amount0:     amount0,
		Amount1:     amount1,
	}, nil
}

// DecodeSwap decodes Swap(sender indexed, amount0In, amount1In, amount0Out,
// amount1Out, to indexed). The reference implementation is known to reuse
// topics[1] for both sender and to; here `to` is correctly read from
// topics[2].
func DecodeSwap(log types.Log) (*SwapEvent, error) {
	if len(log.Topics) < 3 {
		return nil, fmt.Errorf("Swap: expected 3 topics, got %d", len(log.Topics))
	}
	args := abi.Arguments{{Type: typeUint256}, {Type: typeUint256}, {Type: typeUint256}, {Type: typeUint256}}
	values, err := unpack(args, log.Data)
	if err != nil {
		return nil, fmt.Errorf("Swap: decode data: %w", err)
	}
	amount0In, _ := values[0].(*big.Int)
	amount1In, _ := values[1].(*big.Int)
	amount0Out, _ := values[2].(*big.Int)
	amount1Out, _ := values[3].(*big.Int)
	return &SwapEvent{
		PairAddress: log.Address,
		Sender:      common.BytesToAddress(log.Topics[1].Bytes()),
		To:          common.BytesToAddress(log.Topics[2].Bytes()),
		Amount0In:   amount0In,
		Amount1In:   amount1In,
		Amount0Out:  amount0Out,
		Amount1Out:  amount1Out,
	}, nil
}

// DecodeSync decodes Sync(reserve0, reserve1); neither field is indexed.
func DecodeSync(log types.Log) (*SyncEvent, error) {
	args := abi.Arguments{{Type: typeUint112}, {Type: typeUint112}}
	values, err := unpack(args, log.Data)
	if err != nil {
		return nil, fmt.Errorf("Sync: decode data: %w", err)
	}
	reserve0, _ := values[0].(*big.Int)
	reserve1, _ := values[1].(*big.Int)
	return &SyncEvent{
		PairAddress: log.Address,
		Reserve0:    reserve0,
		Reserve1:    reserve1,
	}, nil
}

// DecodeProjectCreated decodes ProjectCreated(name, address); the project
// name is not indexed so it can be matched against projects.project_name.
func DecodeProjectCreated(log types.Log) (*ProjectCreatedEvent, error) {
	args := abi.Arguments{{Type: typeString}, {Type: typeAddress}}
	values, err := unpack(args, log.Data)
	if err != nil {
		return nil, fmt.Errorf("ProjectCreated: decode data: %w", err)
	}
	name, _ := values[0].(string)
	addr, _ := values[1].(common.Address)
	return &ProjectCreatedEvent{
		ProjectName:    strings.TrimSpace(name),
		ProjectAddress: addr,
	}, nil
}

// DecodeInvest decodes UserInvestment(user indexed, amount).
func DecodeInvest(log types.Log) (*InvestEvent, error) {
	if len(log.Topics) < 2 {
		return nil, fmt.Errorf("UserInvestment: expected 2 topics, got %d", len(log.Topics))
	}
	args := abi.Arguments{{Type: typeUint256}}
	values, err := unpack(args, log.Data)
	if err != nil {
		return nil, fmt.Errorf("UserInvestment: decode data: %w", err)
	}
	amount, _ := values[0].(*big.Int)
	return &InvestEvent{
		LaunchpadAddress: log.Address,
		User:             common.BytesToAddress(log.Topics[1].Bytes()),
		Amount:           amount,
	}, nil
}

// DecodeClaim decodes UserClaim(user indexed, amount).
func DecodeClaim(log types.Log) (*ClaimEvent, error) {
	if len(log.Topics) < 2 {
		return nil, fmt.Errorf("UserClaim: expected 2 topics, got %d", len(log.Topics))
	}
	args := abi.Arguments{{Type: typeUint256}}
	values, err := unpack(args, log.Data)
	if err != nil {
		return nil, fmt.Errorf("UserClaim: decode data: %w", err)
	}
	amount, _ := values[0].(*big.Int)
	return &ClaimEvent{
		LaunchpadAddress: log.Address,
		User:             common.BytesToAddress(log.Topics[1].Bytes()),
		Amount:           amount,
	}, nil
}
