package indexer

import (
	"context"
	"strings"

	"ammindexer/internal/models"
	"ammindexer/internal/repository"
	"ammindexer/internal/rpc"

	"github.com/ethereum/go-ethereum/common"
)

// Registry is the token registry (§4.5): a read-through cache over
// tokens, materializing a row from the chain on first miss.
type Registry struct {
	rpc        *rpc.Client
	repo       *repository.Repository
	ethAddress string
}

func NewRegistry(client *rpc.Client, repo *repository.Repository, ethAddress string) *Registry {
	return &Registry{rpc: client, repo: repo, ethAddress: strings.ToLower(ethAddress)}
}

// Resolve returns (symbol, decimals, coingecko_id?, usd_price?) for addr,
// inserting a fresh row on first encounter. On RPC failure it propagates
// the error and inserts no row.
func (r *Registry) Resolve(ctx context.Context, addr common.Address) (*models.Token, error) {
	hexAddr := strings.ToLower(addr.Hex())

	if t, ok, err := r.repo.GetToken(ctx, hexAddr); err != nil {
		return nil, err
	} else if ok {
		return t, nil
	}

	symbol, err := r.rpc.Symbol(ctx, addr)
	if err != nil {
		return nil, err
	}
	decimals, err := r.rpc.Decimals(ctx, addr)
	if err != nil {
		return nil, err
	}

	var coingeckoID *string
	if hexAddr == r.ethAddress {
		id := "weth"
		coingeckoID = &id
	}

	if err := r.repo.InsertToken(ctx, hexAddr, symbol, decimals, coingeckoID); err != nil {
		return nil, err
	}
	return &models.Token{Address: hexAddr, Symbol: symbol, Decimals: decimals, CoingeckoID: coingeckoID}, nil
}
