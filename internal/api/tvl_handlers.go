package api

import "net/http"

type respHistoryPoint struct {
	StatDate string `json:"stat_date"`
	Value    string `json:"value"`
}

// handleGetTotalTVLByDay implements GET /get_total_tvl_by_day, the global
// daily TVL rollup written by the stats loop's history_stats upsert.
func (s *Server) handleGetTotalTVLByDay(w http.ResponseWriter, r *http.Request) {
	stats, err := s.repo.ListHistoryStats(r.Context())
	if err != nil {
		writeDBErr(w, "get total tvl by day failed")
		return
	}

	out := make([]respHistoryPoint, 0, len(stats))
	for _, st := range stats {
		out = append(out, respHistoryPoint{
			StatDate: st.StatDate.Format("2006-01-02"),
			Value:    st.USDTVL.StringFixed(2),
		})
	}
	writeOK(w, out)
}

// handleGetTotalVolumeByDay implements GET /get_total_volume_by_day.
func (s *Server) handleGetTotalVolumeByDay(w http.ResponseWriter, r *http.Request) {
	stats, err := s.repo.ListHistoryStats(r.Context())
	if err != nil {
		writeDBErr(w, "get total volume by day failed")
		return
	}

	out := make([]respHistoryPoint, 0, len(stats))
	for _, st := range stats {
		out = append(out, respHistoryPoint{
			StatDate: st.StatDate.Format("2006-01-02"),
			Value:    st.USDVolume.StringFixed(2),
		})
	}
	writeOK(w, out)
}
