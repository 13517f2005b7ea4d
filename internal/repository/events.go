package repository

import (
	"context"
	"time"

	"ammindexer/internal/models"

	"github.com/jackc/pgx/v5"
)

// InsertEventsTx bulk-inserts a decoded batch via CopyFrom, mirroring the
// teacher's raw.events COPY fast path in postgres_ingest.go. Rows that
// collide on the recommended uniqueness constraint are silently skipped
// by falling back to a row-by-row upsert-or-skip pass, keeping
// re-ingestion of an un-advanced window safe.
func (r *Repository) InsertEventsTx(ctx context.Context, tx pgx.Tx, events []models.Event) error {
	if len(events) == 0 {
		return nil
	}

	// The COPY runs inside a savepoint so that a failure rolls back only
	// the COPY and leaves the caller's transaction usable for the fallback.
	sp, err := tx.Begin(ctx)
	if err != nil {
		return err
	}
	_, err = sp.CopyFrom(ctx,
		pgx.Identifier{"events"},
		[]string{"tx_hash", "log_index", "event_type", "pair_address", "from_account", "to_account", "amount_x", "amount_y", "is_swap_x2y"},
		pgx.CopyFromSlice(len(events), func(i int) ([]any, error) {
			e := events[i]
			return []any{
				hexToBytes(e.TxHash), e.LogIndex, e.EventType, hexToBytes(e.PairAddress),
				hexToBytesOrNull(e.From), hexToBytesOrNull(e.To),
				e.AmountX, e.AmountY, e.IsSwapX2Y,
			}, nil
		}),
	)
	if err == nil {
		return sp.Commit(ctx)
	}
	if rbErr := sp.Rollback(ctx); rbErr != nil {
		return rbErr
	}

	// CopyFrom aborts the whole statement on the first constraint
	// violation; fall back to per-row inserts that simply skip
	// duplicates, which is always safe because events are append-only.
	for _, e := range events {
		_, err := tx.Exec(ctx, `
			INSERT INTO events (tx_hash, log_index, event_type, pair_address, from_account, to_account, amount_x, amount_y, is_swap_x2y)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (tx_hash, log_index, event_type, pair_address) DO NOTHING`,
			hexToBytes(e.TxHash), e.LogIndex, e.EventType, hexToBytes(e.PairAddress),
			hexToBytesOrNull(e.From), hexToBytesOrNull(e.To), e.AmountX, e.AmountY, e.IsSwapX2Y,
		)
		if err != nil {
			return err
		}
	}
	return nil
}

// ListEventsPage returns one page of events (newest first) plus the
// total event count, for the get_all_transactions projection. Page size
// is fixed at 10 by the served HTTP surface.
func (r *Repository) ListEventsPage(ctx context.Context, pageNo int) ([]models.Event, int64, error) {
	const pageSize = 10
	offset := 0
	if pageNo > 0 {
		offset = pageNo * pageSize
	}

	var total int64
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM events`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.db.Query(ctx, `
		SELECT id, tx_hash, log_index, event_type, pair_address, from_account, to_account, amount_x, amount_y, event_time, is_swap_x2y
		FROM events ORDER BY id DESC LIMIT $1 OFFSET $2`, pageSize, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []models.Event
	for rows.Next() {
		var e models.Event
		var txHash, pairAddress, fromAccount, toAccount []byte
		if err := rows.Scan(&e.ID, &txHash, &e.LogIndex, &e.EventType, &pairAddress, &fromAccount, &toAccount, &e.AmountX, &e.AmountY, &e.EventTime, &e.IsSwapX2Y); err != nil {
			return nil, 0, err
		}
		e.TxHash = bytesToHex(txHash)
		e.PairAddress = bytesToHex(pairAddress)
		if len(fromAccount) > 0 {
			e.From = bytesToHex(fromAccount)
		}
		if len(toAccount) > 0 {
			e.To = bytesToHex(toAccount)
		}
		out = append(out, e)
	}
	return out, total, rows.Err()
}

// EventsMissingTime selects up to limit oldest rows with event_time IS
// NULL, per the time-backfill loop's contract (§4.3).
func (r *Repository) EventsMissingTime(ctx context.Context, limit int) ([]models.Event, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, tx_hash, event_type, pair_address
		FROM events
		WHERE event_time IS NULL
		ORDER BY id ASC
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Event
	for rows.Next() {
		var e models.Event
		var txHash, pairAddress []byte
		if err := rows.Scan(&e.ID, &txHash, &e.EventType, &pairAddress); err != nil {
			return nil, err
		}
		e.TxHash = bytesToHex(txHash)
		e.PairAddress = bytesToHex(pairAddress)
		out = append(out, e)
	}
	return out, rows.Err()
}

// FillEventTime writes the block timestamp discovered by the backfill
// loop. fromAccount is non-empty only for Mint rows.
func (r *Repository) FillEventTime(ctx context.Context, id int64, eventTime time.Time, fromAccount string) error {
	if fromAccount != "" {
		_, err := r.db.Exec(ctx, `UPDATE events SET event_time = $1, from_account = $2 WHERE id = $3`,
			eventTime, hexToBytes(fromAccount), id)
		return err
	}
	_, err := r.db.Exec(ctx, `UPDATE events SET event_time = $1 WHERE id = $2`, eventTime, id)
	return err
}
