package http

import (
	"net/http"

	"finanzas/internal/core"
)

func (s *Server) handleCreateEntry(kind core.EntryKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req entryRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		e, err := req.toEntry(kind, s.now())
		if err != nil {
			writeError(w, r, err)
			return
		}

		created, err := s.ledger.Create(r.Context(), e)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, newEntryResponse(created))
	}
}

func (s *Server) handleListEntries(kind core.EntryKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter, err := ParseEntryFilter(r.URL.Query())
		if err != nil {
			writeError(w, r, err)
			return
		}
		entries, err := s.ledger.List(r.Context(), kind, filter)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, newListResponse(entries, newEntryResponse))
	}
}

func (s *Server) handleGetEntry(kind core.EntryKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		includeDeleted, err := parseBool(r.URL.Query(), "include_deleted")
		if err != nil {
			writeError(w, r, err)
			return
		}

		id := r.PathValue("id")
		var e core.Entry
		if includeDeleted {
			e, err = s.ledger.FindByIDIncludingDeleted(r.Context(), kind, id)
		} else {
			e, err = s.ledger.FindByID(r.Context(), kind, id)
		}
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, newEntryResponse(e))
	}
}

func (s *Server) handleUpdateEntry(kind core.EntryKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req entryPatchRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		patch, err := req.toPatch()
		if err != nil {
			writeError(w, r, err)
			return
		}

		updated, err := s.ledger.Update(r.Context(), kind, r.PathValue("id"), patch)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, newEntryResponse(updated))
	}
}

func (s *Server) handleSoftDeleteEntry(kind core.EntryKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		deleted, err := s.ledger.SoftDelete(r.Context(), kind, r.PathValue("id"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, newEntryResponse(deleted))
	}
}

func (s *Server) handleRestoreEntry(kind core.EntryKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		restored, err := s.ledger.Restore(r.Context(), kind, r.PathValue("id"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, newEntryResponse(restored))
	}
}

func (s *Server) handleHardDeleteEntry(kind core.EntryKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		if err := s.ledger.HardDelete(r.Context(), kind, id); err != nil {
			writeError(w, r, err)
			return
		}
		NewJSONResponse().Status(http.StatusNoContent).Write(w)
	}
}
