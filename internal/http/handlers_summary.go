package http

import "net/http"

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.profits.Summary(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newSummaryResponse(summary))
}

// handleRecalculate forces a full rescan of the active entries.
func (s *Server) handleRecalculate(w http.ResponseWriter, r *http.Request) {
	summary, err := s.profits.Recalculate(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newSummaryResponse(summary))
}

type verifyResponse struct {
	Stored  summaryResponse `json:"stored"`
	Actual  summaryResponse `json:"actual"`
	Drifted bool            `json:"drifted"`
}

// handleVerify compares the stored summary with a rescan without repairing it.
func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	drift, err := s.profits.Verify(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, verifyResponse{
		Stored:  newSummaryResponse(drift.Stored),
		Actual:  newSummaryResponse(drift.Actual),
		Drifted: drift.Drifted(),
	})
}
