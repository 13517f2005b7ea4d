package api

import "net/http"

type respEvent struct {
	ID          int64  `json:"id"`
	TxHash      string `json:"tx_hash"`
	EventType   int16  `json:"event_type"`
	PairAddress string `json:"pair_address"`
	From        string `json:"from_account,omitempty"`
	To          string `json:"to_account,omitempty"`
	AmountX     string `json:"amount_x"`
	AmountY     string `json:"amount_y"`
}

// handleGetAllTransactions implements GET /get_all_transactions?pg_no=.
func (s *Server) handleGetAllTransactions(w http.ResponseWriter, r *http.Request) {
	events, total, err := s.repo.ListEventsPage(r.Context(), pageNoFromQuery(r))
	if err != nil {
		writeDBErr(w, "get all transactions failed")
		return
	}

	out := make([]respEvent, 0, len(events))
	for _, e := range events {
		out = append(out, respEvent{
			ID: e.ID, TxHash: e.TxHash, EventType: e.EventType, PairAddress: e.PairAddress,
			From: e.From, To: e.To, AmountX: e.AmountX, AmountY: e.AmountY,
		})
	}
	writeOK(w, map[string]interface{}{"total": total, "transactions": out})
}
