// Package stats implements the daily-statistics aggregator and the
// out-of-band launchpad rollup (§4.8): the service-level orchestration
// over the query primitives in internal/repository/stats.go.
package stats

import (
	"context"
	"log"
	"time"

	"ammindexer/internal/repository"

	"github.com/shopspring/decimal"
)

type Service struct {
	repo      *repository.Repository
	startDate time.Time
	interval  time.Duration
}

// NewService parses statStartDate ("Y-M-D") as the fallback start date
// used when neither tvl_stats nor volume_stats has a row yet.
func NewService(repo *repository.Repository, statStartDate string, interval time.Duration) (*Service, error) {
	d, err := time.Parse("2006-01-02", statStartDate)
	if err != nil {
		return nil, err
	}
	return &Service{repo: repo, startDate: d.UTC(), interval: interval}, nil
}

func (s *Service) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		if err := s.Tick(ctx); err != nil {
			log.Printf("[stats] tick failed: %v", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Tick runs the daily-statistics aggregator for every unstated day, then
// the launchpad rollup (§4.8).
func (s *Service) Tick(ctx context.Context) error {
	today := time.Now().UTC().Truncate(24 * time.Hour)

	start, err := s.resolveStartDate(ctx)
	if err != nil {
		return err
	}

	for _, d := range unstatedDays(start, today) {
		if err := s.rollupDay(ctx, d); err != nil {
			return err
		}
	}

	return s.launchpadRollup(ctx)
}

// resolveStartDate implements §4.8 step 1.
func (s *Service) resolveStartDate(ctx context.Context) (time.Time, error) {
	dMaxTVL, tvlOK, err := s.repo.MaxStatDate(ctx, "tvl_stats")
	if err != nil {
		return time.Time{}, err
	}
	dMaxVol, volOK, err := s.repo.MaxStatDate(ctx, "volume_stats")
	if err != nil {
		return time.Time{}, err
	}
	if tvlOK && volOK {
		if dMaxTVL.Before(dMaxVol) {
			return dMaxTVL, nil
		}
		return dMaxVol, nil
	}
	return s.startDate, nil
}

// unstatedDays builds the inclusive [start, today] day list, empty if
// today < start (open-question resolution (c): a prior revision
// unconditionally seeded "today" even in that case).
func unstatedDays(start, today time.Time) []time.Time {
	if today.Before(start) {
		return nil
	}
	var days []time.Time
	for d := start; !d.After(today); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

// rollupDay computes TVL and volume for one day across every pair that
// had activity, then folds the day into the global history_stats row
// (§4.8 steps 3-4).
func (s *Service) rollupDay(ctx context.Context, day time.Time) error {
	syncs, err := s.repo.SyncsOnDate(ctx, day)
	if err != nil {
		return err
	}
	volumes, err := s.repo.SwapVolumeOnDate(ctx, day)
	if err != nil {
		return err
	}

	totalTVL := decimal.Zero
	tvlByPair := make(map[string]decimal.Decimal, len(syncs))

	for _, row := range syncs {
		usd, err := s.convertToUSD(ctx, row.PairAddress, row.AmountX, row.AmountY)
		if err != nil {
			return err
		}
		tvlByPair[row.PairAddress] = usd
		if err := s.repo.UpsertTVLStat(ctx, row.PairAddress, day, row.AmountX, row.AmountY, usd); err != nil {
			return err
		}
	}

	totalVolume := decimal.Zero
	for _, row := range volumes {
		usd, err := s.convertToUSD(ctx, row.PairAddress, row.XVolume, row.YVolume)
		if err != nil {
			return err
		}
		totalVolume = totalVolume.Add(usd)
		if err := s.repo.UpsertVolumeStat(ctx, row.PairAddress, day, row.XVolume, row.YVolume, usd); err != nil {
			return err
		}
	}

	// Every pair touched today contributes its TVL; pairs with no Sync
	// today carry forward their most recent tvl_stats row strictly before
	// today, per the history_stats carry-forward rule.
	pools, err := s.repo.ListPools(ctx)
	if err != nil {
		return err
	}
	for _, pool := range pools {
		if usd, ok := tvlByPair[pool.PairAddress]; ok {
			totalTVL = totalTVL.Add(usd)
			continue
		}
		carried, ok, err := s.repo.LatestTVLBefore(ctx, pool.PairAddress, day)
		if err != nil {
			return err
		}
		if ok {
			totalTVL = totalTVL.Add(carried)
		}
	}

	return s.repo.UpsertHistoryStat(ctx, day, totalTVL, totalVolume)
}

// convertToUSD prefers token_x's usd_price, falling back to token_y's,
// per §4.8's USD-conversion rule.
func (s *Service) convertToUSD(ctx context.Context, pairAddress, amountX, amountY string) (decimal.Decimal, error) {
	pool, ok, err := s.repo.GetPool(ctx, pairAddress)
	if err != nil {
		return decimal.Zero, err
	}
	if !ok {
		return decimal.Zero, nil
	}

	tokenX, ok, err := s.repo.GetToken(ctx, pool.TokenXAddress)
	if err != nil {
		return decimal.Zero, err
	}
	if ok && tokenX.USDPrice != nil {
		return scaleAndMultiply(amountX, tokenX.Decimals, *tokenX.USDPrice), nil
	}

	tokenY, ok, err := s.repo.GetToken(ctx, pool.TokenYAddress)
	if err != nil {
		return decimal.Zero, err
	}
	if ok && tokenY.USDPrice != nil {
		return scaleAndMultiply(amountY, tokenY.Decimals, *tokenY.USDPrice), nil
	}

	return decimal.Zero, nil
}

func scaleAndMultiply(rawAmount string, decimals uint8, usdPrice decimal.Decimal) decimal.Decimal {
	raw, err := decimal.NewFromString(rawAmount)
	if err != nil {
		return decimal.Zero
	}
	scale := decimal.New(1, int32(decimals))
	return raw.Div(scale).Mul(usdPrice)
}

// launchpadRollup implements the out-of-band launchpad snapshot appended
// after every daily-stats tick.
func (s *Service) launchpadRollup(ctx context.Context) error {
	totalProjects, err := s.repo.CountProjects(ctx)
	if err != nil {
		return err
	}
	totalAddresses, err := s.repo.CountDistinctInvestors(ctx)
	if err != nil {
		return err
	}
	totals, err := s.repo.ReceiveTokenTotals(ctx)
	if err != nil {
		return err
	}

	totalRaised := decimal.Zero
	for tokenAddr, sumRaw := range totals {
		token, ok, err := s.repo.GetToken(ctx, tokenAddr)
		if err != nil {
			return err
		}
		if !ok || token.USDPrice == nil {
			continue
		}
		totalRaised = totalRaised.Add(scaleAndMultiply(sumRaw, token.Decimals, *token.USDPrice))
	}

	return s.repo.InsertLaunchpadStat(ctx, time.Now().UTC(), totalProjects, totalAddresses, totalRaised)
}
