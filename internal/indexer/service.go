// Package indexer implements the chain-scanning core: the windowed block
// range scan, the event-to-entity projection, and the once-per-tick
// cumulative-price snapshot (§4.1, §4.2, §4.4).
package indexer

import (
	"context"
	"fmt"
	"log"
	"math/big"
	"sort"
	"time"

	"ammindexer/internal/decoder"
	"ammindexer/internal/models"
	"ammindexer/internal/repository"
	"ammindexer/internal/rpc"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/jackc/pgx/v5"
)

// Config holds the chain-side parameters the indexer needs, sourced from
// the environment at startup.
type Config struct {
	FactoryAddress   common.Address
	LaunchpadAddress common.Address
	WindowSize       uint64
	WatchInterval    time.Duration
	StartBlock       uint64
}

// Service owns the in-memory pair and project sets (§5: "owned by the
// indexer task") and drives the windowed scan.
type Service struct {
	rpc      *rpc.Client
	repo     *repository.Repository
	registry *Registry
	cfg      Config

	pairs    map[common.Address]struct{}
	projects map[common.Address]struct{}
}

func NewService(ctx context.Context, client *rpc.Client, repo *repository.Repository, registry *Registry, cfg Config) (*Service, error) {
	if cfg.WindowSize == 0 {
		cfg.WindowSize = 1000
	}

	s := &Service{
		rpc:      client,
		repo:     repo,
		registry: registry,
		cfg:      cfg,
		pairs:    make(map[common.Address]struct{}),
		projects: make(map[common.Address]struct{}),
	}

	pools, err := repo.ListPools(ctx)
	if err != nil {
		return nil, fmt.Errorf("indexer: bootstrap pair set: %w", err)
	}
	for _, p := range pools {
		s.pairs[common.HexToAddress(p.PairAddress)] = struct{}{}
	}

	projectAddrs, err := repo.ListProjectAddresses(ctx)
	if err != nil {
		return nil, fmt.Errorf("indexer: bootstrap project set: %w", err)
	}
	for _, a := range projectAddrs {
		s.projects[common.HexToAddress(a)] = struct{}{}
	}

	return s, nil
}

// Run drives the tick loop until ctx is canceled, sleeping WatchInterval
// between ticks and logging (without terminating) on a failed tick so the
// next tick retries the un-advanced window.
func (s *Service) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.WatchInterval)
	defer ticker.Stop()

	for {
		if err := s.Tick(ctx); err != nil {
			log.Printf("[indexer] tick failed: %v", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Tick advances the cursor from last_synced+1 to the current chain head in
// fixed windows, then takes one cumulative-price snapshot regardless of
// whether any window was processed (§4.1 Snapshot step).
func (s *Service) Tick(ctx context.Context) error {
	lastSynced, err := s.repo.GetLastSyncBlock(ctx)
	if err != nil {
		return fmt.Errorf("get last sync block: %w", err)
	}

	start := lastSynced + 1
	if lastSynced == 0 && s.cfg.StartBlock > start {
		start = s.cfg.StartBlock
	}

	head, err := s.rpc.BlockNumber(ctx)
	if err != nil {
		return fmt.Errorf("get chain head: %w", err)
	}

	for start <= head {
		end := start + s.cfg.WindowSize - 1
		if end > head {
			end = head
		}
		if err := s.processWindow(ctx, start, end); err != nil {
			return fmt.Errorf("process window [%d,%d]: %w", start, end, err)
		}
		start = end + 1
	}

	if err := s.sampleCumulativePrices(ctx); err != nil {
		log.Printf("[indexer] cumulative price snapshot failed: %v", err)
	}
	return nil
}

type poolSeed struct {
	Pair         common.Address
	TokenX       common.Address
	TokenXSymbol string
	TokenY       common.Address
	TokenYSymbol string
}

// processWindow runs the full per-window state machine: Fetch(pair_created)
// → Fetch(pair_events ×4) → Fetch(project_created) → Fetch(project_events
// ×2) → Commit(cursor), all event writes and the cursor advance landing in
// one transaction (§4.1, §4.2).
func (s *Service) processWindow(ctx context.Context, from, to uint64) error {
	pairCreatedLogs, err := s.fetchLogs(ctx, []common.Address{s.cfg.FactoryAddress}, decoder.KindPairCreated, from, to)
	if err != nil {
		return fmt.Errorf("fetch PairCreated: %w", err)
	}

	var newPools []poolSeed
	newPairSet := make(map[common.Address]struct{}, len(s.pairs))
	for p := range s.pairs {
		newPairSet[p] = struct{}{}
	}
	for _, l := range pairCreatedLogs {
		ev, err := decoder.DecodePairCreated(l)
		if err != nil {
			return fmt.Errorf("decode PairCreated: %w", err)
		}
		tokenX, err := s.registry.Resolve(ctx, ev.Token0)
		if err != nil {
			return fmt.Errorf("resolve token0 %s: %w", ev.Token0.Hex(), err)
		}
		tokenY, err := s.registry.Resolve(ctx, ev.Token1)
		if err != nil {
			return fmt.Errorf("resolve token1 %s: %w", ev.Token1.Hex(), err)
		}
		newPools = append(newPools, poolSeed{
			Pair: ev.PairAddress, TokenX: ev.Token0, TokenXSymbol: tokenX.Symbol,
			TokenY: ev.Token1, TokenYSymbol: tokenY.Symbol,
		})
		newPairSet[ev.PairAddress] = struct{}{}
	}
	pairAddrs := addrSlice(newPairSet)

	var batchEvents []models.Event
	countDeltas := make(map[common.Address]map[int16]int64)
	reserveUpdates := make(map[common.Address]struct{ X, Y *big.Int })

	for _, kind := range []decoder.Kind{decoder.KindMint, decoder.KindBurn, decoder.KindSwap, decoder.KindSync} {
		logs, err := s.fetchLogs(ctx, pairAddrs, kind, from, to)
		if err != nil {
			return fmt.Errorf("fetch pair events kind %d: %w", kind, err)
		}
		for _, l := range logs {
			ev, deltaType, err := s.projectPairEvent(kind, l, reserveUpdates)
			if err != nil {
				return fmt.Errorf("decode pair event kind %d: %w", kind, err)
			}
			batchEvents = append(batchEvents, *ev)
			if deltaType != 0 {
				pair := l.Address
				if countDeltas[pair] == nil {
					countDeltas[pair] = make(map[int16]int64)
				}
				countDeltas[pair][deltaType]++
			}
		}
	}

	projectCreatedLogs, err := s.fetchLogs(ctx, []common.Address{s.cfg.LaunchpadAddress}, decoder.KindProjectCreated, from, to)
	if err != nil {
		return fmt.Errorf("fetch ProjectCreated: %w", err)
	}
	var newProjects []*decoder.ProjectCreatedEvent
	newProjectSet := make(map[common.Address]struct{}, len(s.projects))
	for p := range s.projects {
		newProjectSet[p] = struct{}{}
	}
	for _, l := range projectCreatedLogs {
		ev, err := decoder.DecodeProjectCreated(l)
		if err != nil {
			return fmt.Errorf("decode ProjectCreated: %w", err)
		}
		newProjects = append(newProjects, ev)
		newProjectSet[ev.ProjectAddress] = struct{}{}
	}
	projectAddrs := addrSlice(newProjectSet)

	var projectEvents []models.ProjectEvent
	for _, kind := range []decoder.Kind{decoder.KindInvest, decoder.KindClaim} {
		logs, err := s.fetchLogs(ctx, projectAddrs, kind, from, to)
		if err != nil {
			return fmt.Errorf("fetch project events kind %d: %w", kind, err)
		}
		for _, l := range logs {
			pe, err := projectEventFromLog(kind, l)
			if err != nil {
				return fmt.Errorf("decode project event kind %d: %w", kind, err)
			}
			projectEvents = append(projectEvents, *pe)
		}
	}

	err = s.repo.WithTx(ctx, func(tx pgx.Tx) error {
		for _, p := range newPools {
			if err := s.repo.InsertPoolTx(ctx, tx, p.Pair.Hex(), p.TokenX.Hex(), p.TokenXSymbol, p.TokenY.Hex(), p.TokenYSymbol); err != nil {
				return err
			}
		}
		if err := s.repo.InsertEventsTx(ctx, tx, batchEvents); err != nil {
			return err
		}
		for pair, deltas := range countDeltas {
			for eventType, count := range deltas {
				if err := s.repo.IncrementPoolCountTx(ctx, tx, pair.Hex(), eventType, count); err != nil {
					return err
				}
			}
		}
		for pair, reserves := range reserveUpdates {
			if err := s.repo.UpdatePoolReservesTx(ctx, tx, pair.Hex(), reserves.X.String(), reserves.Y.String()); err != nil {
				return err
			}
		}
		for _, np := range newProjects {
			if err := s.repo.SetProjectAddressTx(ctx, tx, np.ProjectName, np.ProjectAddress.Hex()); err != nil {
				return err
			}
		}
		if err := s.repo.InsertProjectEventsTx(ctx, tx, projectEvents); err != nil {
			return err
		}
		return s.repo.CommitCursorTx(ctx, tx, to)
	})
	if err != nil {
		return err
	}

	for _, p := range newPools {
		s.pairs[p.Pair] = struct{}{}
	}
	for _, np := range newProjects {
		s.projects[np.ProjectAddress] = struct{}{}
	}
	return nil
}

// projectPairEvent applies the per-variant projection rule (§4.2) and
// records the variant's reserve snapshot if it is a Sync. deltaType is the
// event_type to increment pool_info's counters by, or 0 for Sync (which
// updates reserves instead of a counter).
func (s *Service) projectPairEvent(kind decoder.Kind, l types.Log, reserveUpdates map[common.Address]struct{ X, Y *big.Int }) (*models.Event, int16, error) {
	base := models.Event{TxHash: l.TxHash.Hex(), LogIndex: l.Index, PairAddress: l.Address.Hex()}

	switch kind {
	case decoder.KindMint:
		ev, err := decoder.DecodeMint(l)
		if err != nil {
			return nil, 0, err
		}
		base.EventType = models.EventTypeMint
		base.From = ev.Sender.Hex()
		base.AmountX = ev.Amount0.String()
		base.AmountY = ev.Amount1.String()
		return &base, models.EventTypeMint, nil

	case decoder.KindBurn:
		ev, err := decoder.DecodeBurn(l)
		if err != nil {
			return nil, 0, err
		}
		base.EventType = models.EventTypeBurn
		base.From = ev.Sender.Hex()
		base.To = ev.To.Hex()
		base.AmountX = ev.Amount0.String()
		base.AmountY = ev.Amount1.String()
		return &base, models.EventTypeBurn, nil

	case decoder.KindSwap:
		ev, err := decoder.DecodeSwap(l)
		if err != nil {
			return nil, 0, err
		}
		base.EventType = models.EventTypeSwap
		base.From = ev.Sender.Hex()
		base.To = ev.To.Hex()
		x2y := ev.Amount0In.Sign() != 0
		base.IsSwapX2Y = &x2y
		if !x2y {
			base.AmountX = ev.Amount0Out.String()
			base.AmountY = ev.Amount1In.String()
		} else {
			base.AmountX = ev.Amount0In.String()
			base.AmountY = ev.Amount1Out.String()
		}
		return &base, models.EventTypeSwap, nil

	case decoder.KindSync:
		ev, err := decoder.DecodeSync(l)
		if err != nil {
			return nil, 0, err
		}
		base.EventType = models.EventTypeSync
		base.AmountX = ev.Reserve0.String()
		base.AmountY = ev.Reserve1.String()
		reserveUpdates[l.Address] = struct{ X, Y *big.Int }{ev.Reserve0, ev.Reserve1}
		return &base, 0, nil

	default:
		return nil, 0, fmt.Errorf("projectPairEvent: unexpected kind %d", kind)
	}
}

func projectEventFromLog(kind decoder.Kind, l types.Log) (*models.ProjectEvent, error) {
	switch kind {
	case decoder.KindInvest:
		ev, err := decoder.DecodeInvest(l)
		if err != nil {
			return nil, err
		}
		return &models.ProjectEvent{
			TxHash: l.TxHash.Hex(), ProjectAddress: ev.LaunchpadAddress.Hex(),
			OpType: models.OpTypeInvest, OpUser: ev.User.Hex(), OpAmount: ev.Amount.String(),
		}, nil
	case decoder.KindClaim:
		ev, err := decoder.DecodeClaim(l)
		if err != nil {
			return nil, err
		}
		return &models.ProjectEvent{
			TxHash: l.TxHash.Hex(), ProjectAddress: ev.LaunchpadAddress.Hex(),
			OpType: models.OpTypeClaim, OpUser: ev.User.Hex(), OpAmount: ev.Amount.String(),
		}, nil
	default:
		return nil, fmt.Errorf("projectEventFromLog: unexpected kind %d", kind)
	}
}

// sampleCumulativePrices takes one price0/price1 cumulative snapshot per
// known pair, once per tick (§4.4). A failure on one pair is logged and
// does not abort the others.
func (s *Service) sampleCumulativePrices(ctx context.Context) error {
	var lastErr error
	for pair := range s.pairs {
		p0, p1, ts, err := s.rpc.PriceCumulativeLast(ctx, pair)
		if err != nil {
			log.Printf("[indexer] price sample failed for %s: %v", pair.Hex(), err)
			lastErr = err
			continue
		}
		if err := s.repo.InsertPriceSample(ctx, pair.Hex(), p0.String(), p1.String(), ts); err != nil {
			log.Printf("[indexer] store price sample failed for %s: %v", pair.Hex(), err)
			lastErr = err
		}
	}
	return lastErr
}

// fetchLogs performs eth_getLogs scoped to addresses and a single topic0,
// skipping the call entirely when addresses is empty — the indexer must
// never broaden a query to "all contracts" for want of a known pair/project.
// Results are sorted by (block number, log index) before returning, since
// §4.1 requires explicit ordering rather than relying on the node's
// eth_getLogs response order.
func (s *Service) fetchLogs(ctx context.Context, addresses []common.Address, kind decoder.Kind, from, to uint64) ([]types.Log, error) {
	if len(addresses) == 0 {
		return nil, nil
	}
	topic, err := decoder.Topic0For(kind)
	if err != nil {
		return nil, err
	}
	q := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(from),
		ToBlock:   new(big.Int).SetUint64(to),
		Addresses: addresses,
		Topics:    [][]common.Hash{{topic}},
	}
	logs, err := s.rpc.FilterLogs(ctx, q)
	if err != nil {
		return nil, err
	}
	sortLogs(logs)
	return logs, nil
}

// sortLogs orders logs ascending by (block number, log index), the
// ordering store_pair_events requires for "last Sync wins" reserve
// overwrites to be well-defined across a whole window.
func sortLogs(logs []types.Log) {
	sort.Slice(logs, func(i, j int) bool {
		if logs[i].BlockNumber != logs[j].BlockNumber {
			return logs[i].BlockNumber < logs[j].BlockNumber
		}
		return logs[i].Index < logs[j].Index
	})
}

func addrSlice(set map[common.Address]struct{}) []common.Address {
	out := make([]common.Address, 0, len(set))
	for a := range set {
		out = append(out, a)
	}
	return out
}
