package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Meet0004/email-sync-system-intern/internal/database"
	"github.com/Meet0004/email-sync-system-intern/pkg/models"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := database.SearchFilter{
		Query:     q.Get("q"),
		Folder:    q.Get("folder"),
		AccountID: q.Get("accountId"),
	}
	if raw := q.Get("category"); raw != "" {
		category, err := models.ParseCategory(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		filter.Category = category
	}
	filter.Offset, _ = strconv.Atoi(q.Get("offset"))
	filter.Limit, _ = strconv.Atoi(q.Get("limit"))

	messages, err := s.store.SearchMessages(r.Context(), filter)
	if err != nil {
		s.logger.Error("search failed", "error", err)
		writeError(w, http.StatusInternalServerError, "search failed")
		return
	}
	if messages == nil {
		messages = []*models.Message{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"total":    len(messages),
		"messages": messages,
	})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	msg, err := s.store.GetMessage(r.Context(), id)
	if errors.Is(err, database.ErrNotFound) {
		writeError(w, http.StatusNotFound, "message not found")
		return
	}
	if err != nil {
		s.logger.Error("get message failed", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get message")
		return
	}
	writeJSON(w, http.StatusOK, msg)
}

func (s *Server) handleReply(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	msg, err := s.store.GetMessage(r.Context(), id)
	if errors.Is(err, database.ErrNotFound) {
		writeError(w, http.StatusNotFound, "message not found")
		return
	}
	if err != nil {
		s.logger.Error("get message failed", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get message")
		return
	}

	suggestion := s.replier.Suggest(r.Context(), msg)
	writeJSON(w, http.StatusOK, suggestion)
}

func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var body struct {
		Category string `json:"category"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	// Reject unknown categories before they reach the store.
	category, err := models.ParseCategory(body.Category)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	err = s.store.UpdateMessageCategory(r.Context(), id, category)
	if errors.Is(err, database.ErrNotFound) {
		writeError(w, http.StatusNotFound, "message not found")
		return
	}
	if err != nil {
		s.logger.Error("update category failed", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update category")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": id, "category": string(category)})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.GetCategoryStats(r.Context())
	if err != nil {
		s.logger.Error("stats failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get stats")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleAccounts(w http.ResponseWriter, r *http.Request) {
	statuses := map[string]string{}
	if s.statuses != nil {
		statuses = s.statuses.Statuses()
	}
	writeJSON(w, http.StatusOK, statuses)
}

func (s *Server) handleListSnippets(w http.ResponseWriter, r *http.Request) {
	snippets, err := s.store.ListSnippets(r.Context())
	if err != nil {
		s.logger.Error("list snippets failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list snippets")
		return
	}
	if snippets == nil {
		snippets = []models.Snippet{}
	}
	writeJSON(w, http.StatusOK, snippets)
}

func (s *Server) handleAddSnippet(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(body.Content) == "" {
		writeError(w, http.StatusBadRequest, "content is required")
		return
	}

	snippet, err := s.store.AddSnippet(r.Context(), body.Content)
	if err != nil {
		s.logger.Error("add snippet failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to add snippet")
		return
	}
	writeJSON(w, http.StatusCreated, snippet)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
