package server

import (
	"net/http"

	"github.com/jonathan/portreviewer/internal/types"
)

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var criteria types.SearchCriteria
	if err := s.decode(w, r, &criteria); err != nil {
		s.writeError(w, err)
		return
	}
	resp, err := s.search.Search(r.Context(), criteria)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, resp)
}

func (s *Server) handleSaveSearch(w http.ResponseWriter, r *http.Request) {
	userID, err := caller(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	var req types.SaveSearchRequest
	if err := s.decode(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	saved, err := s.search.SaveSearch(r.Context(), userID, req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusCreated, saved)
}

func (s *Server) handleListSavedSearches(w http.ResponseWriter, r *http.Request) {
	userID, err := caller(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	list, err := s.search.ListSavedSearches(r.Context(), userID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if list == nil {
		list = []types.SavedSearch{}
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"saved_searches": list, "count": len(list)})
}

func (s *Server) handleDeleteSavedSearch(w http.ResponseWriter, r *http.Request) {
	userID, err := caller(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.search.DeleteSavedSearch(r.Context(), userID, id); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRunSavedSearch(w http.ResponseWriter, r *http.Request) {
	userID, err := caller(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	resp, err := s.search.RunSavedSearch(r.Context(), userID, id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, resp)
}

func (s *Server) handleCreateAlert(w http.ResponseWriter, r *http.Request) {
	userID, err := caller(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	var req types.CreateAlertRequest
	if err := s.decode(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	alert, err := s.search.CreateAlert(r.Context(), userID, id, req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusCreated, alert)
}

// handleBatchAnalyze always answers 200; per-item failures are in the body.
func (s *Server) handleBatchAnalyze(w http.ResponseWriter, r *http.Request) {
	var req types.BatchAnalyzeRequest
	if err := s.decode(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, s.portfolios.BatchAnalyze(r.Context(), req))
}
