package repository

import (
	"context"

	"ammindexer/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// CreateProject implements the launchpad's create_project collaborator
// endpoint: a row with no on-chain address yet.
func (r *Repository) CreateProject(ctx context.Context, p models.Project) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO projects (project_name, description, links, title, pic, owner, receive_token,
			token_symbol, token_address, token_price_usd, presale_start, presale_end,
			pubsale_start, pubsale_end, min_invest, max_invest)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		p.ProjectName, p.Description, p.Links, p.Title, p.Pic, p.Owner, p.ReceiveToken,
		p.TokenSymbol, p.TokenAddress, p.TokenPriceUSD.Round(18).String(),
		p.PresaleStart, p.PresaleEnd, p.PublicSaleStart, p.PublicSaleEnd,
		p.MinInvest, p.MaxInvest,
	)
	return err
}

// UpdateProject implements the launchpad's update_project collaborator
// endpoint.
func (r *Repository) UpdateProject(ctx context.Context, p models.Project) error {
	_, err := r.db.Exec(ctx, `
		UPDATE projects SET description = $2, links = $3, title = $4, pic = $5, owner = $6,
			receive_token = $7, token_symbol = $8, token_address = $9, token_price_usd = $10,
			presale_start = $11, presale_end = $12, pubsale_start = $13, pubsale_end = $14,
			min_invest = $15, max_invest = $16, paused = $17, updated_at = now()
		WHERE project_name = $1`,
		p.ProjectName, p.Description, p.Links, p.Title, p.Pic, p.Owner, p.ReceiveToken,
		p.TokenSymbol, p.TokenAddress, p.TokenPriceUSD.Round(18).String(),
		p.PresaleStart, p.PresaleEnd, p.PublicSaleStart, p.PublicSaleEnd,
		p.MinInvest, p.MaxInvest, p.Paused,
	)
	return err
}

// SetProjectAddressTx fills in the on-chain address discovered by the
// indexer's ProjectCreated handling, run within an already-open
// transaction, for the indexer's per-window commit.
func (r *Repository) SetProjectAddressTx(ctx context.Context, tx pgx.Tx, projectName, address string) error {
	_, err := tx.Exec(ctx, `UPDATE projects SET address = $1, updated_at = now() WHERE project_name = $2`,
		hexToBytes(address), projectName)
	return err
}

// ListProjectAddresses returns every project address discovered so far,
// used to bootstrap the indexer's in-memory project set on startup.
func (r *Repository) ListProjectAddresses(ctx context.Context) ([]string, error) {
	rows, err := r.db.Query(ctx, `SELECT address FROM projects WHERE address IS NOT NULL`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var addrBytes []byte
		if err := rows.Scan(&addrBytes); err != nil {
			return nil, err
		}
		out = append(out, bytesToHex(addrBytes))
	}
	return out, rows.Err()
}

func scanProject(row pgx.Row) (*models.Project, error) {
	var p models.Project
	var addrBytes []byte
	var priceStr string
	if err := row.Scan(
		&p.ProjectName, &p.Description, &p.Links, &p.Title, &p.Pic, &addrBytes, &p.Owner,
		&p.ReceiveToken, &p.TokenSymbol, &p.TokenAddress, &priceStr,
		&p.PresaleStart, &p.PresaleEnd, &p.PublicSaleStart, &p.PublicSaleEnd,
		&p.MinInvest, &p.MaxInvest, &p.CreatedAt, &p.UpdatedAt, &p.Paused,
	); err != nil {
		return nil, err
	}
	if len(addrBytes) > 0 {
		a := bytesToHex(addrBytes)
		p.Address = &a
	}
	price, err := decimal.NewFromString(priceStr)
	if err != nil {
		return nil, err
	}
	p.TokenPriceUSD = price
	return &p, nil
}

const projectColumns = `project_name, description, links, title, pic, address, owner, receive_token,
		token_symbol, token_address, token_price_usd, presale_start, presale_end, pubsale_start,
		pubsale_end, min_invest, max_invest, created_at, updated_at, paused`

// ListProjects returns one page of projects ordered by creation time,
// page size fixed per the served HTTP surface (§6).
func (r *Repository) ListProjects(ctx context.Context, pageNo, pageSize int) ([]models.Project, error) {
	offset := 0
	if pageNo > 1 {
		offset = (pageNo - 1) * pageSize
	}
	rows, err := r.db.Query(ctx, `SELECT `+projectColumns+` FROM projects ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		pageSize, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// InsertProjectEventsTx bulk-inserts invest/claim events, append-only.
func (r *Repository) InsertProjectEventsTx(ctx context.Context, tx pgx.Tx, events []models.ProjectEvent) error {
	if len(events) == 0 {
		return nil
	}
	for _, e := range events {
		_, err := tx.Exec(ctx, `
			INSERT INTO project_events (tx_hash, project_address, op_type, op_user, op_amount, op_time)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			hexToBytes(e.TxHash), hexToBytes(e.ProjectAddress), e.OpType, hexToBytes(e.OpUser), e.OpAmount, e.OpTime,
		)
		if err != nil {
			return err
		}
	}
	return nil
}
