package repository

import (
	"context"

	"ammindexer/internal/models"

	"github.com/jackc/pgx/v5"
)

// InsertPriceSample appends one cumulative-price sample, per the
// price-cumulative sampler's once-per-tick contract (§4.4). Samples are
// append-only and never garbage-collected.
func (r *Repository) InsertPriceSample(ctx context.Context, pairAddress, price0Cum, price1Cum string, blockTimestampLast uint32) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO price_cumulative_last (pair_address, price0_cum, price1_cum, block_timestamp_last)
		VALUES ($1, $2, $3, $4)`,
		hexToBytes(pairAddress), price0Cum, price1Cum, blockTimestampLast,
	)
	return err
}

func scanPriceSample(row pgx.Row) (*models.PriceCumulativeLast, error) {
	var s models.PriceCumulativeLast
	var pairBytes []byte
	if err := row.Scan(&s.ID, &pairBytes, &s.Price0Cumulative, &s.Price1Cumulative, &s.BlockTimestampLast); err != nil {
		return nil, err
	}
	s.PairAddress = bytesToHex(pairBytes)
	return &s, nil
}

// LatestPriceSample returns sample L: the newest sample by id for a pair.
func (r *Repository) LatestPriceSample(ctx context.Context, pairAddress string) (*models.PriceCumulativeLast, bool, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, pair_address, price0_cum, price1_cum, block_timestamp_last
		FROM price_cumulative_last WHERE pair_address = $1 ORDER BY id DESC LIMIT 1`,
		hexToBytes(pairAddress))
	s, err := scanPriceSample(row)
	if err == pgx.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return s, true, nil
}

// OldestPriceSampleAtLeast returns sample B: the oldest sample by id
// whose block_timestamp_last is more than minGapSeconds behind
// latestTimestamp. Returns ok=false if no such sample exists (callers
// then use B := L per §4.7 step 2).
func (r *Repository) OldestPriceSampleAtLeast(ctx context.Context, pairAddress string, latestTimestamp uint32, minGapSeconds uint32) (*models.PriceCumulativeLast, bool, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, pair_address, price0_cum, price1_cum, block_timestamp_last
		FROM price_cumulative_last
		WHERE pair_address = $1 AND $2::bigint - block_timestamp_last > $3
		ORDER BY id ASC LIMIT 1`,
		hexToBytes(pairAddress), latestTimestamp, minGapSeconds)
	s, err := scanPriceSample(row)
	if err == pgx.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return s, true, nil
}
