package repository

import (
	"context"
	"database/sql"
	"fmt"

	"ammindexer/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

func scanToken(row pgx.Row) (*models.Token, error) {
	var t models.Token
	var addrBytes []byte
	var coingeckoID sql.NullString
	var usdPrice sql.NullString
	if err := row.Scan(&addrBytes, &t.Symbol, &t.Decimals, &coingeckoID, &usdPrice); err != nil {
		return nil, err
	}
	t.Address = bytesToHex(addrBytes)
	if coingeckoID.Valid {
		t.CoingeckoID = &coingeckoID.String
	}
	if usdPrice.Valid {
		d, err := decimal.NewFromString(usdPrice.String)
		if err != nil {
			return nil, fmt.Errorf("parse usd_price: %w", err)
		}
		t.USDPrice = &d
	}
	return &t, nil
}

// GetToken implements the token registry's "if present in tokens, return
// it" branch.
func (r *Repository) GetToken(ctx context.Context, address string) (*models.Token, bool, error) {
	row := r.db.QueryRow(ctx, `
		SELECT address, symbol, decimals, coingecko_id, usd_price
		FROM tokens WHERE address = $1`, hexToBytes(address))
	t, err := scanToken(row)
	if err == pgx.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return t, true, nil
}

// ListTokens returns every known token, used by the token-price loop.
func (r *Repository) ListTokens(ctx context.Context) ([]models.Token, error) {
	rows, err := r.db.Query(ctx, `SELECT address, symbol, decimals, coingecko_id, usd_price FROM tokens`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Token
	for rows.Next() {
		t, err := scanToken(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

// InsertToken implements the registry's on-miss fallback: insert the row
// discovered via symbol()/decimals() on the chain. coingeckoID is set to
// "weth" by callers iff the address is the configured ETH address, nil
// otherwise.
func (r *Repository) InsertToken(ctx context.Context, address, symbol string, decimals uint8, coingeckoID *string) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO tokens (address, symbol, decimals, coingecko_id, usd_price)
		VALUES ($1, $2, $3, $4, NULL)
		ON CONFLICT (address) DO NOTHING`,
		hexToBytes(address), symbol, int16(decimals), coingeckoID,
	)
	return err
}

// UpdateTokenPrice writes the token-price loop's resolved usd_price.
func (r *Repository) UpdateTokenPrice(ctx context.Context, address string, price decimal.Decimal) error {
	_, err := r.db.Exec(ctx, `UPDATE tokens SET usd_price = $1 WHERE address = $2`,
		price.Round(18).String(), hexToBytes(address))
	return err
}

func scanPool(row pgx.Row) (*models.PoolInfo, error) {
	var p models.PoolInfo
	var pairBytes, tokenXBytes, tokenYBytes []byte
	if err := row.Scan(
		&pairBytes, &tokenXBytes, &p.TokenXSymbol, &tokenYBytes, &p.TokenYSymbol,
		&p.TokenXReserves, &p.TokenYReserves,
		&p.TotalAddLiqCount, &p.TotalRmLiqCount, &p.TotalSwapCount, &p.CreatedAt,
	); err != nil {
		return nil, err
	}
	p.PairAddress = bytesToHex(pairBytes)
	p.TokenXAddress = bytesToHex(tokenXBytes)
	p.TokenYAddress = bytesToHex(tokenYBytes)
	return &p, nil
}

const poolColumns = `pair_address, token_x_address, token_x_symbol, token_y_address, token_y_symbol,
		token_x_reserves, token_y_reserves, total_add_liq_count, total_rm_liq_count, total_swap_count, created_at`

// GetPool looks up one pair by address.
func (r *Repository) GetPool(ctx context.Context, pairAddress string) (*models.PoolInfo, bool, error) {
	row := r.db.QueryRow(ctx, `SELECT `+poolColumns+` FROM pool_info WHERE pair_address = $1`, hexToBytes(pairAddress))
	p, err := scanPool(row)
	if err == pgx.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return p, true, nil
}

// ListPools returns every known pair. Per §5, tasks other than the
// indexer re-read the pair set from here each cycle rather than sharing
// the indexer's in-memory set.
func (r *Repository) ListPools(ctx context.Context) ([]models.PoolInfo, error) {
	rows, err := r.db.Query(ctx, `SELECT `+poolColumns+` FROM pool_info ORDER BY pair_address`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.PoolInfo
	for rows.Next() {
		p, err := scanPool(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// ListPoolsPage returns one page of pools plus the total pool count, for
// the get_all_pools / get_pair_statistic_info projections. Page size is
// fixed at 10 by the served HTTP surface.
func (r *Repository) ListPoolsPage(ctx context.Context, pageNo int) ([]models.PoolInfo, int64, error) {
	const pageSize = 10
	offset := 0
	if pageNo > 0 {
		offset = pageNo * pageSize
	}

	var total int64
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM pool_info`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.db.Query(ctx, `SELECT `+poolColumns+` FROM pool_info ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		pageSize, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []models.PoolInfo
	for rows.Next() {
		p, err := scanPool(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *p)
	}
	return out, total, rows.Err()
}

// InsertPoolTx creates a new pool_info row with zero reserves and zero
// counts, as required on PairCreated (§4.1 step 1).
func (r *Repository) InsertPoolTx(ctx context.Context, tx pgx.Tx, pairAddress, tokenX, tokenXSymbol, tokenY, tokenYSymbol string) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO pool_info (pair_address, token_x_address, token_x_symbol, token_y_address, token_y_symbol,
			token_x_reserves, token_y_reserves, total_add_liq_count, total_rm_liq_count, total_swap_count)
		VALUES ($1, $2, $3, $4, $5, 0, 0, 0, 0, 0)
		ON CONFLICT (pair_address) DO NOTHING`,
		hexToBytes(pairAddress), hexToBytes(tokenX), tokenXSymbol, hexToBytes(tokenY), tokenYSymbol,
	)
	return err
}

// IncrementPoolCountTx implements the post-batch side effect of
// store_pair_events: increment the matching total_*_count column by the
// number of non-Sync events of that type seen in the batch.
func (r *Repository) IncrementPoolCountTx(ctx context.Context, tx pgx.Tx, pairAddress string, eventType int16, count int64) error {
	var column string
	switch eventType {
	case models.EventTypeMint:
		column = "total_add_liq_count"
	case models.EventTypeBurn:
		column = "total_rm_liq_count"
	case models.EventTypeSwap:
		column = "total_swap_count"
	default:
		return fmt.Errorf("IncrementPoolCountTx: unexpected event type %d", eventType)
	}
	_, err := tx.Exec(ctx, `UPDATE pool_info SET `+column+` = `+column+` + $1 WHERE pair_address = $2`,
		count, hexToBytes(pairAddress))
	return err
}

// UpdatePoolReservesTx overwrites reserves with the last Sync seen for
// this pair in the batch.
func (r *Repository) UpdatePoolReservesTx(ctx context.Context, tx pgx.Tx, pairAddress, reserveX, reserveY string) error {
	_, err := tx.Exec(ctx, `UPDATE pool_info SET token_x_reserves = $1, token_y_reserves = $2 WHERE pair_address = $3`,
		reserveX, reserveY, hexToBytes(pairAddress))
	return err
}
