package repository

import (
	"context"
	"fmt"
	"time"

	"ammindexer/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// MaxStatDate returns the max stat_date of tvl_stats or volume_stats, and
// whether any row exists. table must be one of those two names.
func (r *Repository) MaxStatDate(ctx context.Context, table string) (time.Time, bool, error) {
	var query string
	switch table {
	case "tvl_stats":
		query = "SELECT max(stat_date) FROM tvl_stats"
	case "volume_stats":
		query = "SELECT max(stat_date) FROM volume_stats"
	default:
		return time.Time{}, false, fmt.Errorf("MaxStatDate: unknown table %q", table)
	}
	var d *time.Time
	if err := r.db.QueryRow(ctx, query).Scan(&d); err != nil {
		return time.Time{}, false, err
	}
	if d == nil {
		return time.Time{}, false, nil
	}
	return *d, true, nil
}

// SyncReserveRow is one pair's TVL-defining Sync on a given day.
type SyncReserveRow struct {
	PairAddress string
	AmountX     string
	AmountY     string
}

// SyncsOnDate returns, per pair, the Sync event with the maximum id
// among Syncs whose event_time falls on date — the TVL source per §4.8.
func (r *Repository) SyncsOnDate(ctx context.Context, date time.Time) ([]SyncReserveRow, error) {
	rows, err := r.db.Query(ctx, `
		SELECT DISTINCT ON (pair_address) pair_address, amount_x, amount_y
		FROM events
		WHERE event_type = $1 AND event_time::date = $2::date
		ORDER BY pair_address, id DESC`,
		models.EventTypeSync, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SyncReserveRow
	for rows.Next() {
		var row SyncReserveRow
		var pairBytes []byte
		if err := rows.Scan(&pairBytes, &row.AmountX, &row.AmountY); err != nil {
			return nil, err
		}
		row.PairAddress = bytesToHex(pairBytes)
		out = append(out, row)
	}
	return out, rows.Err()
}

// VolumeRow is one pair's summed Swap volume on a given day.
type VolumeRow struct {
	PairAddress string
	XVolume     string
	YVolume     string
}

// SwapVolumeOnDate sums amount_x/amount_y over all Swap events on date,
// per pair.
func (r *Repository) SwapVolumeOnDate(ctx context.Context, date time.Time) ([]VolumeRow, error) {
	rows, err := r.db.Query(ctx, `
		SELECT pair_address, COALESCE(SUM(amount_x), 0), COALESCE(SUM(amount_y), 0)
		FROM events
		WHERE event_type = $1 AND event_time::date = $2::date
		GROUP BY pair_address`,
		models.EventTypeSwap, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []VolumeRow
	for rows.Next() {
		var row VolumeRow
		var pairBytes []byte
		if err := rows.Scan(&pairBytes, &row.XVolume, &row.YVolume); err != nil {
			return nil, err
		}
		row.PairAddress = bytesToHex(pairBytes)
		out = append(out, row)
	}
	return out, rows.Err()
}

// LatestTVLBefore carries forward a pair's most recent tvl_stats row
// strictly before date, for the history_stats carry-forward rule.
func (r *Repository) LatestTVLBefore(ctx context.Context, pairAddress string, date time.Time) (decimal.Decimal, bool, error) {
	var usd string
	err := r.db.QueryRow(ctx, `
		SELECT usd_tvl FROM tvl_stats
		WHERE pair_address = $1 AND stat_date < $2::date
		ORDER BY stat_date DESC LIMIT 1`, hexToBytes(pairAddress), date).Scan(&usd)
	if err == pgx.ErrNoRows {
		return decimal.Zero, false, nil
	}
	if err != nil {
		return decimal.Zero, false, err
	}
	d, err := decimal.NewFromString(usd)
	if err != nil {
		return decimal.Zero, false, err
	}
	return d, true, nil
}

// UpsertTVLStat upserts one (pair, date) TVL row.
func (r *Repository) UpsertTVLStat(ctx context.Context, pairAddress string, date time.Time, xReserves, yReserves string, usdTVL decimal.Decimal) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO tvl_stats (pair_address, stat_date, x_reserves, y_reserves, usd_tvl)
		VALUES ($1, $2::date, $3, $4, $5)
		ON CONFLICT (pair_address, stat_date) DO UPDATE SET
			x_reserves = EXCLUDED.x_reserves, y_reserves = EXCLUDED.y_reserves, usd_tvl = EXCLUDED.usd_tvl`,
		hexToBytes(pairAddress), date, xReserves, yReserves, usdTVL.Round(18).String())
	return err
}

// UpsertVolumeStat upserts one (pair, date) volume row.
func (r *Repository) UpsertVolumeStat(ctx context.Context, pairAddress string, date time.Time, xVolume, yVolume string, usdVolume decimal.Decimal) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO volume_stats (pair_address, stat_date, x_volume, y_volume, usd_volume)
		VALUES ($1, $2::date, $3, $4, $5)
		ON CONFLICT (pair_address, stat_date) DO UPDATE SET
			x_volume = EXCLUDED.x_volume, y_volume = EXCLUDED.y_volume, usd_volume = EXCLUDED.usd_volume`,
		hexToBytes(pairAddress), date, xVolume, yVolume, usdVolume.Round(18).String())
	return err
}

// UpsertHistoryStat upserts the global daily rollup row.
func (r *Repository) UpsertHistoryStat(ctx context.Context, date time.Time, usdTVL, usdVolume decimal.Decimal) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO history_stats (stat_date, usd_tvl, usd_volume)
		VALUES ($1::date, $2, $3)
		ON CONFLICT (stat_date) DO UPDATE SET usd_tvl = EXCLUDED.usd_tvl, usd_volume = EXCLUDED.usd_volume`,
		date, usdTVL.Round(18).String(), usdVolume.Round(18).String())
	return err
}

// ListHistoryStats returns every day's global rollup, oldest first, for
// the get_total_tvl_by_day / get_total_volume_by_day projections.
func (r *Repository) ListHistoryStats(ctx context.Context) ([]models.HistoryStat, error) {
	rows, err := r.db.Query(ctx, `SELECT stat_date, usd_tvl, usd_volume FROM history_stats ORDER BY stat_date ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.HistoryStat
	for rows.Next() {
		var h models.HistoryStat
		var tvl, vol string
		if err := rows.Scan(&h.StatDate, &tvl, &vol); err != nil {
			return nil, err
		}
		if h.USDTVL, err = decimal.NewFromString(tvl); err != nil {
			return nil, err
		}
		if h.USDVolume, err = decimal.NewFromString(vol); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// PairUSDVolumeSince sums usd_volume for a pair from since (inclusive)
// onward, used for both the all-time and trailing-week rollups served by
// get_pair_statistic_info.
func (r *Repository) PairUSDVolumeSince(ctx context.Context, pairAddress string, since time.Time) (decimal.Decimal, error) {
	var sum string
	err := r.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(usd_volume), 0) FROM volume_stats
		WHERE pair_address = $1 AND stat_date >= $2::date`,
		hexToBytes(pairAddress), since).Scan(&sum)
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromString(sum)
}

// LatestTVLForPair returns a pair's most recent tvl_stats row, for the
// APY denominator and the pools/pair-stat projections.
func (r *Repository) LatestTVLForPair(ctx context.Context, pairAddress string) (decimal.Decimal, bool, error) {
	var usd string
	err := r.db.QueryRow(ctx, `
		SELECT usd_tvl FROM tvl_stats WHERE pair_address = $1 ORDER BY stat_date DESC LIMIT 1`,
		hexToBytes(pairAddress)).Scan(&usd)
	if err == pgx.ErrNoRows {
		return decimal.Zero, false, nil
	}
	if err != nil {
		return decimal.Zero, false, err
	}
	d, err := decimal.NewFromString(usd)
	if err != nil {
		return decimal.Zero, false, err
	}
	return d, true, nil
}

// CountProjects returns count(projects), for the launchpad rollup.
func (r *Repository) CountProjects(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.QueryRow(ctx, `SELECT count(*) FROM projects`).Scan(&n)
	return n, err
}

// CountDistinctInvestors returns count(distinct op_user) over invest
// events, for the launchpad rollup.
func (r *Repository) CountDistinctInvestors(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.QueryRow(ctx, `SELECT count(DISTINCT op_user) FROM project_events WHERE op_type = $1`, models.OpTypeInvest).Scan(&n)
	return n, err
}

// ReceiveTokenTotals sums invested op_amount grouped by the owning
// project's receive_token, for the launchpad rollup's USD conversion.
func (r *Repository) ReceiveTokenTotals(ctx context.Context) (map[string]string, error) {
	rows, err := r.db.Query(ctx, `
		SELECT p.receive_token, SUM(pe.op_amount)
		FROM project_events pe
		JOIN projects p ON p.address = pe.project_address
		WHERE pe.op_type = $1
		GROUP BY p.receive_token`, models.OpTypeInvest)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var token, sum string
		if err := rows.Scan(&token, &sum); err != nil {
			return nil, err
		}
		out[token] = sum
	}
	return out, rows.Err()
}

// InsertLaunchpadStat appends one launchpad_stat_info snapshot.
func (r *Repository) InsertLaunchpadStat(ctx context.Context, statTime time.Time, totalProjects, totalAddresses int64, totalRaised decimal.Decimal) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO launchpad_stat_info (stat_time, total_projects, total_addresses, total_raised)
		VALUES ($1, $2, $3, $4)`,
		statTime, totalProjects, totalAddresses, totalRaised.Round(18).String())
	return err
}
