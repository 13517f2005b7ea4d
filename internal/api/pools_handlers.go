package api

import (
	"context"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
)

type respPoolInfo struct {
	PairName      string `json:"pair_name"`
	PairAddress   string `json:"pair_address"`
	TokenXAddress string `json:"token_x_address"`
	TokenYAddress string `json:"token_y_address"`
	XReserves     string `json:"x_reserves"`
	YReserves     string `json:"y_reserves"`
	APY           string `json:"apy"`
}

// handleGetAllPools implements GET /get_all_pools?pg_no=, a page of pools
// annotated with the serving-side APY (§4.9).
func (s *Server) handleGetAllPools(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	pools, total, err := s.repo.ListPoolsPage(ctx, pageNoFromQuery(r))
	if err != nil {
		writeDBErr(w, "get pools failed")
		return
	}

	out := make([]respPoolInfo, 0, len(pools))
	for _, p := range pools {
		apy, err := s.pairAPY(ctx, p.PairAddress)
		if err != nil {
			writeDBErr(w, "get pools apy failed")
			return
		}
		out = append(out, respPoolInfo{
			PairName:      p.TokenXSymbol + "-" + p.TokenYSymbol,
			PairAddress:   p.PairAddress,
			TokenXAddress: p.TokenXAddress,
			TokenYAddress: p.TokenYAddress,
			XReserves:     p.TokenXReserves,
			YReserves:     p.TokenYReserves,
			APY:           apy.StringFixed(2),
		})
	}
	writeOK(w, map[string]interface{}{"total": total, "pools": out})
}

type respPairStatInfo struct {
	PairName      string `json:"pair_name"`
	PairAddress   string `json:"pair_address"`
	USDVolume     string `json:"usd_volume"`
	USDVolumeWeek string `json:"usd_volume_week"`
	USDTVL        string `json:"usd_tvl"`
	APY           string `json:"apy"`
}

// handleGetPairStatisticInfo implements GET /get_pair_statistic_info?pg_no=.
func (s *Server) handleGetPairStatisticInfo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	pools, total, err := s.repo.ListPoolsPage(ctx, pageNoFromQuery(r))
	if err != nil {
		writeDBErr(w, "get pools stat info failed")
		return
	}

	weekAgo := time.Now().UTC().AddDate(0, 0, -7)
	out := make([]respPairStatInfo, 0, len(pools))
	for _, p := range pools {
		volumeAllTime, err := s.repo.PairUSDVolumeSince(ctx, p.PairAddress, time.Time{})
		if err != nil {
			writeDBErr(w, "get pools stat info failed")
			return
		}
		volumeWeek, err := s.repo.PairUSDVolumeSince(ctx, p.PairAddress, weekAgo)
		if err != nil {
			writeDBErr(w, "get pools stat info failed")
			return
		}
		tvl, _, err := s.repo.LatestTVLForPair(ctx, p.PairAddress)
		if err != nil {
			writeDBErr(w, "get pools stat info failed")
			return
		}
		apy, err := s.pairAPY(ctx, p.PairAddress)
		if err != nil {
			writeDBErr(w, "get pools stat info failed")
			return
		}
		out = append(out, respPairStatInfo{
			PairName:      p.TokenXSymbol + "-" + p.TokenYSymbol,
			PairAddress:   p.PairAddress,
			USDVolume:     volumeAllTime.StringFixed(2),
			USDVolumeWeek: volumeWeek.StringFixed(2),
			USDTVL:        tvl.StringFixed(2),
			APY:           apy.StringFixed(2),
		})
	}
	writeOK(w, map[string]interface{}{"total": total, "stats": out})
}

// pairAPY implements §4.9: apy = (all-time usd volume / latest usd tvl) *
// 36500, annualized percent, 0 when TVL is zero or unknown.
func (s *Server) pairAPY(ctx context.Context, pairAddress string) (decimal.Decimal, error) {
	volume, err := s.repo.PairUSDVolumeSince(ctx, pairAddress, time.Time{})
	if err != nil {
		return decimal.Zero, err
	}
	tvl, ok, err := s.repo.LatestTVLForPair(ctx, pairAddress)
	if err != nil {
		return decimal.Zero, err
	}
	if !ok || tvl.IsZero() {
		return decimal.Zero, nil
	}
	return volume.Div(tvl).Mul(decimal.NewFromInt(36500)), nil
}
