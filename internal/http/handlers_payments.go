package http

import "net/http"

func (s *Server) handleCreatePayment(w http.ResponseWriter, r *http.Request) {
	var req paymentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	p, err := req.toPayment()
	if err != nil {
		writeError(w, r, err)
		return
	}

	res, err := s.payments.Create(r.Context(), p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newCascadeResponse(res))
}

func (s *Server) handleListPayments(w http.ResponseWriter, r *http.Request) {
	filter, err := ParsePaymentFilter(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}
	payments, err := s.payments.List(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newListResponse(payments, newPaymentResponse))
}

func (s *Server) handleGetPayment(w http.ResponseWriter, r *http.Request) {
	res, err := s.payments.FindByID(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newCascadeResponse(res))
}

func (s *Server) handleUpdatePayment(w http.ResponseWriter, r *http.Request) {
	var req paymentPatchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	patch, err := req.toPatch()
	if err != nil {
		writeError(w, r, err)
		return
	}

	res, err := s.payments.Update(r.Context(), r.PathValue("id"), patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newCascadeResponse(res))
}

func (s *Server) handleCompletePayment(w http.ResponseWriter, r *http.Request) {
	res, err := s.payments.Complete(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newCascadeResponse(res))
}

func (s *Server) handleSoftDeletePayment(w http.ResponseWriter, r *http.Request) {
	p, err := s.payments.SoftDelete(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newPaymentResponse(p))
}

func (s *Server) handleRestorePayment(w http.ResponseWriter, r *http.Request) {
	p, err := s.payments.Restore(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newPaymentResponse(p))
}
