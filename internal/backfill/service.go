// Package backfill fills in events.event_time (and, for Mint rows,
// from_account) after the fact, since neither is available from the log
// alone — both require a follow-up eth_getTransactionReceipt/
// eth_getBlockByNumber round trip, plus eth_getTransactionByHash for the
// Mint sender recovery (§4.3).
package backfill

import (
	"context"
	"log"
	"time"

	"ammindexer/internal/models"
	"ammindexer/internal/repository"
	"ammindexer/internal/rpc"

	"github.com/ethereum/go-ethereum/common"
)

const batchSize = 100

type Service struct {
	rpc      *rpc.Client
	repo     *repository.Repository
	interval time.Duration
}

func NewService(client *rpc.Client, repo *repository.Repository, interval time.Duration) *Service {
	return &Service{rpc: client, repo: repo, interval: interval}
}

func (s *Service) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		if err := s.Tick(ctx); err != nil {
			log.Printf("[backfill] tick failed: %v", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Tick fills event_time for up to 100 oldest rows still missing it.
// Per-row failures are swallowed so one bad transaction hash never stalls
// the rest of the batch.
func (s *Service) Tick(ctx context.Context) error {
	rows, err := s.repo.EventsMissingTime(ctx, batchSize)
	if err != nil {
		return err
	}

	for _, e := range rows {
		if err := s.fillOne(ctx, e); err != nil {
			log.Printf("[backfill] row %d (%s): %v", e.ID, e.TxHash, err)
		}
	}
	return nil
}

func (s *Service) fillOne(ctx context.Context, e models.Event) error {
	hash := common.HexToHash(e.TxHash)

	receipt, err := s.rpc.TransactionReceipt(ctx, hash)
	if err != nil {
		return err
	}

	block, err := s.rpc.BlockByNumber(ctx, receipt.BlockNumber)
	if err != nil {
		return err
	}

	var fromAccount string
	if e.EventType == models.EventTypeMint {
		tx, _, err := s.rpc.TransactionByHash(ctx, hash)
		if err != nil {
			return err
		}
		from, err := s.rpc.TransactionSender(ctx, tx, receipt.BlockHash, receipt.TransactionIndex)
		if err != nil {
			return err
		}
		fromAccount = from.Hex()
	}

	eventTime := time.Unix(int64(block.Time()), 0).UTC()
	return s.repo.FillEventTime(ctx, e.ID, eventTime, fromAccount)
}
