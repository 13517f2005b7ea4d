// Package models holds the relational entities the indexer writes and the
// statistics pipeline reads, per the pool/token/event/stats data model.
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Event type codes stored on the events table. Fixed by the decoder's
// tagged variant over {Mint, Burn, Swap, Sync}.
const (
	EventTypeMint = 1
	EventTypeBurn = 2
	EventTypeSwap = 3
	EventTypeSync = 4
)

// Project event op codes stored on project_events.
const (
	OpTypeInvest = 1
	OpTypeClaim  = 2
)

// PoolInfo represents the 'pool_info' table: one row per Uniswap-V2 style
// pair, created on PairCreated and updated by every indexer window that
// touches it.
type PoolInfo struct {
	PairAddress      string `json:"pair_address"`
	TokenXAddress    string `json:"token_x_address"`
	TokenXSymbol     string `json:"token_x_symbol"`
	TokenYAddress    string `json:"token_y_address"`
	TokenYSymbol     string `json:"token_y_symbol"`
	TokenXReserves   string `json:"token_x_reserves"` // raw U256, decimal string
	TokenYReserves   string `json:"token_y_reserves"` // raw U256, decimal string
	TotalAddLiqCount int64  `json:"total_add_liq_count"`
	TotalRmLiqCount  int64  `json:"total_rm_liq_count"`
	TotalSwapCount   int64  `json:"total_swap_count"`
	CreatedAt        time.Time `json:"created_at"`
}

// Token represents the 'tokens' table: the read-through registry row.
type Token struct {
	Address     string           `json:"address"`
	Symbol      string           `json:"symbol"`
	Decimals    uint8            `json:"decimals"`
	CoingeckoID *string          `json:"coingecko_id,omitempty"`
	USDPrice    *decimal.Decimal `json:"usd_price,omitempty"`
}

// Event represents a row of the 'events' table: one per decoded pair log.
type Event struct {
	ID          int64     `json:"id"`
	TxHash      string    `json:"tx_hash"`
	LogIndex    uint      `json:"log_index"`
	EventType   int16     `json:"event_type"`
	PairAddress string    `json:"pair_address"`
	From        string    `json:"from_account"`
	To          string    `json:"to_account"`
	AmountX     string    `json:"amount_x"` // raw U256, decimal string
	AmountY     string    `json:"amount_y"` // raw U256, decimal string
	EventTime   *time.Time `json:"event_time,omitempty"`
	IsSwapX2Y   *bool     `json:"is_swap_x2y,omitempty"`
}

// PriceCumulativeLast is one append-only sample of a pair's cumulative
// price accumulators, taken once per indexer tick.
type PriceCumulativeLast struct {
	ID                int64  `json:"id"`
	PairAddress       string `json:"pair_address"`
	Price0Cumulative  string `json:"price0_cum"` // raw U256
	Price1Cumulative  string `json:"price1_cum"` // raw U256
	BlockTimestampLast uint32 `json:"block_timestamp_last"`
	SampledAt         time.Time `json:"sampled_at"`
}

// TVLStat is one (pair, day) TVL row.
type TVLStat struct {
	PairAddress string          `json:"pair_address"`
	StatDate    time.Time       `json:"stat_date"`
	XReserves   string          `json:"x_reserves"`
	YReserves   string          `json:"y_reserves"`
	USDTVL      decimal.Decimal `json:"usd_tvl"`
}

// VolumeStat is one (pair, day) volume row.
type VolumeStat struct {
	PairAddress string          `json:"pair_address"`
	StatDate    time.Time       `json:"stat_date"`
	XVolume     string          `json:"x_volume"`
	YVolume     string          `json:"y_volume"`
	USDVolume   decimal.Decimal `json:"usd_volume"`
}

// HistoryStat is the global daily rollup.
type HistoryStat struct {
	StatDate  time.Time       `json:"stat_date"`
	USDTVL    decimal.Decimal `json:"usd_tvl"`
	USDVolume decimal.Decimal `json:"usd_volume"`
}

// Project represents a 'projects' row. Rows are created by the launchpad
// CRUD surface and later filled in with an on-chain address by the
// indexer's ProjectCreated handling.
type Project struct {
	ProjectName    string          `json:"project_name"`
	Description    string          `json:"description"`
	Links          []byte          `json:"links"` // JSON array
	Title          string          `json:"title"`
	Pic            string          `json:"pic"`
	Address        *string         `json:"address,omitempty"`
	Owner          string          `json:"owner"`
	ReceiveToken   string          `json:"receive_token"`
	TokenSymbol    string          `json:"token_symbol"`
	TokenAddress   string          `json:"token_address"`
	TokenPriceUSD  decimal.Decimal `json:"token_price_usd"`
	PresaleStart   time.Time       `json:"presale_start"`
	PresaleEnd     time.Time       `json:"presale_end"`
	PublicSaleStart time.Time      `json:"pubsale_start"`
	PublicSaleEnd  time.Time       `json:"pubsale_end"`
	MinInvest      string          `json:"min_invest"`
	MaxInvest      string          `json:"max_invest"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
	Paused         bool            `json:"paused"`
}

// ProjectEvent represents a 'project_events' row (invest/claim).
type ProjectEvent struct {
	ID             int64      `json:"id"`
	TxHash         string     `json:"tx_hash"`
	ProjectAddress string     `json:"project_address"`
	OpType         int16      `json:"op_type"`
	OpUser         string     `json:"op_user"`
	OpAmount       string     `json:"op_amount"` // raw U256
	OpTime         *time.Time `json:"op_time,omitempty"`
}

// LaunchpadStatInfo is a snapshot row written by the stats loop's
// out-of-band launchpad rollup.
type LaunchpadStatInfo struct {
	StatTime       time.Time       `json:"stat_time"`
	TotalProjects  int64           `json:"total_projects"`
	TotalAddresses int64           `json:"total_addresses"`
	TotalRaised    decimal.Decimal `json:"total_raised"`
}
