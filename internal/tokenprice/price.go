// Package tokenprice resolves each token's USD spot price (§4.6, §4.7):
// directly from CoinGecko when a coingecko id is known, otherwise derived
// from the cumulative-price samples of a pool pairing the token against
// USDC or ETH. The CoinGecko call is adapted from the teacher's
// market.FetchFlowPrice, generalized from a single hardcoded asset id to
// the per-token id stored in the tokens table.
package tokenprice

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"ammindexer/internal/repository"

	"github.com/shopspring/decimal"
)

const coingeckoTimeout = 120 * time.Second

type Config struct {
	CoingeckoURL string
	USDCAddress  string
	ETHAddress   string
	Interval     time.Duration
}

type Service struct {
	cfg        Config
	repo       *repository.Repository
	httpClient *http.Client
}

func NewService(repo *repository.Repository, cfg Config) *Service {
	return &Service{cfg: cfg, repo: repo, httpClient: &http.Client{Timeout: coingeckoTimeout}}
}

// Run drives the tick loop until ctx is canceled.
func (s *Service) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		s.Tick(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Tick resolves a fresh usd_price for every known token, one token's
// failure never blocking another's (§4.6).
func (s *Service) Tick(ctx context.Context) {
	tokens, err := s.repo.ListTokens(ctx)
	if err != nil {
		log.Printf("[tokenprice] list tokens: %v", err)
		return
	}

	pools, err := s.repo.ListPools(ctx)
	if err != nil {
		log.Printf("[tokenprice] list pools: %v", err)
		return
	}

	for _, tok := range tokens {
		if tok.CoingeckoID != nil {
			price, err := s.fetchCoingeckoPrice(ctx, *tok.CoingeckoID)
			if err != nil {
				log.Printf("[tokenprice] coingecko fetch for %s (%s): %v", tok.Symbol, *tok.CoingeckoID, err)
				continue
			}
			if err := s.repo.UpdateTokenPrice(ctx, tok.Address, price.Round(18)); err != nil {
				log.Printf("[tokenprice] write usd_price for %s: %v", tok.Symbol, err)
			}
			continue
		}

		price, ok, err := s.deriveFromPools(ctx, tok.Address, tok.Decimals, pools)
		if err != nil {
			log.Printf("[tokenprice] derive price for %s: %v", tok.Symbol, err)
			continue
		}
		if !ok {
			log.Printf("[tokenprice] maybe unimportant token: %s (%s)", tok.Symbol, tok.Address)
			continue
		}
		if err := s.repo.UpdateTokenPrice(ctx, tok.Address, price.Round(18)); err != nil {
			log.Printf("[tokenprice] write usd_price for %s: %v", tok.Symbol, err)
		}
	}
}

// fetchCoingeckoPrice implements branch A: GET the simple-price endpoint
// and read response[id]["usd"].
func (s *Service) fetchCoingeckoPrice(ctx context.Context, id string) (decimal.Decimal, error) {
	endpoint := strings.TrimRight(s.cfg.CoingeckoURL, "/") + "/api/v3/simple/price"
	q := url.Values{}
	q.Set("vs_currencies", "usd")
	q.Set("ids", id)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return decimal.Zero, err
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return decimal.Zero, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decimal.Zero, fmt.Errorf("coingecko status: %s", resp.Status)
	}

	var body map[string]struct {
		USD float64 `json:"usd"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return decimal.Zero, err
	}

	entry, ok := body[id]
	if !ok {
		return decimal.Zero, fmt.Errorf("coingecko response missing id %q", id)
	}
	return decimal.NewFromFloat(entry.USD), nil
}
