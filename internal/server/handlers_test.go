package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Meet0004/email-sync-system-intern/internal/database"
	"github.com/Meet0004/email-sync-system-intern/internal/reply"
	"github.com/Meet0004/email-sync-system-intern/pkg/models"
)

type fakeStore struct {
	messages   map[string]*models.Message
	snippets   []models.Snippet
	lastFilter database.SearchFilter
	categories map[string]models.Category
	failSearch bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		messages:   make(map[string]*models.Message),
		categories: make(map[string]models.Category),
	}
}

func (s *fakeStore) GetMessage(ctx context.Context, id string) (*models.Message, error) {
	msg, ok := s.messages[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	return msg, nil
}

func (s *fakeStore) SearchMessages(ctx context.Context, filter database.SearchFilter) ([]*models.Message, error) {
	if s.failSearch {
		return nil, errors.New("search broken")
	}
	s.lastFilter = filter
	var out []*models.Message
	for _, msg := range s.messages {
		out = append(out, msg)
	}
	return out, nil
}

func (s *fakeStore) UpdateMessageCategory(ctx context.Context, id string, category models.Category) error {
	if _, ok := s.messages[id]; !ok {
		return database.ErrNotFound
	}
	s.categories[id] = category
	return nil
}

func (s *fakeStore) GetCategoryStats(ctx context.Context) (*database.CategoryStats, error) {
	return &database.CategoryStats{
		Total:      len(s.messages),
		Categories: map[models.Category]int{models.CategoryInterested: len(s.messages)},
	}, nil
}

func (s *fakeStore) AddSnippet(ctx context.Context, content string) (*models.Snippet, error) {
	snippet := models.Snippet{ID: int64(len(s.snippets) + 1), Content: content}
	s.snippets = append(s.snippets, snippet)
	return &snippet, nil
}

func (s *fakeStore) ListSnippets(ctx context.Context) ([]models.Snippet, error) {
	return s.snippets, nil
}

type fakeReplier struct {
	suggestion reply.Suggestion
}

func (r *fakeReplier) Suggest(ctx context.Context, msg *models.Message) reply.Suggestion {
	return r.suggestion
}

type fakeStatuses map[string]string

func (f fakeStatuses) Statuses() map[string]string { return f }

func newTestServer(store Store) *Server {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	replier := &fakeReplier{suggestion: reply.Suggestion{Reply: "sounds good"}}
	return New(":0", store, replier, fakeStatuses{"acct1": "watching"}, logger)
}

func doRequest(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	s := newTestServer(newFakeStore())
	rec := doRequest(t, s, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ok")
}

func TestSearchEmails(t *testing.T) {
	store := newFakeStore()
	store.messages["m1"] = &models.Message{ID: "m1", Subject: "hi", Date: time.Now()}
	s := newTestServer(store)

	rec := doRequest(t, s, http.MethodGet, "/api/emails?q=hi&accountId=acct1&category=Interested&limit=10&offset=5", "")
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, "hi", store.lastFilter.Query)
	assert.Equal(t, "acct1", store.lastFilter.AccountID)
	assert.Equal(t, models.CategoryInterested, store.lastFilter.Category)
	assert.Equal(t, 10, store.lastFilter.Limit)
	assert.Equal(t, 5, store.lastFilter.Offset)

	var resp struct {
		Total    int               `json:"total"`
		Messages []*models.Message `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Total)
}

func TestSearchEmailsRejectsUnknownCategory(t *testing.T) {
	s := newTestServer(newFakeStore())
	rec := doRequest(t, s, http.MethodGet, "/api/emails?category=Whatever", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSearchEmailsEmptyResultIsArray(t *testing.T) {
	s := newTestServer(newFakeStore())
	rec := doRequest(t, s, http.MethodGet, "/api/emails", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"messages":[]`)
}

func TestGetEmail(t *testing.T) {
	store := newFakeStore()
	store.messages["m1"] = &models.Message{ID: "m1", Subject: "hello"}
	s := newTestServer(store)

	rec := doRequest(t, s, http.MethodGet, "/api/emails/m1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "hello")

	rec = doRequest(t, s, http.MethodGet, "/api/emails/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSuggestReply(t *testing.T) {
	store := newFakeStore()
	store.messages["m1"] = &models.Message{ID: "m1", Subject: "interview"}
	s := newTestServer(store)

	rec := doRequest(t, s, http.MethodPost, "/api/emails/m1/reply", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var suggestion reply.Suggestion
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &suggestion))
	assert.Equal(t, "sounds good", suggestion.Reply)

	rec = doRequest(t, s, http.MethodPost, "/api/emails/nope/reply", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateCategory(t *testing.T) {
	store := newFakeStore()
	store.messages["m1"] = &models.Message{ID: "m1"}
	s := newTestServer(store)

	t.Run("valid category", func(t *testing.T) {
		rec := doRequest(t, s, http.MethodPatch, "/api/emails/m1/category", `{"category":"Spam"}`)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, models.CategorySpam, store.categories["m1"])
	})

	t.Run("unknown category rejected before the store", func(t *testing.T) {
		rec := doRequest(t, s, http.MethodPatch, "/api/emails/m1/category", `{"category":"SuperSpam"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, models.CategorySpam, store.categories["m1"])
	})

	t.Run("invalid body", func(t *testing.T) {
		rec := doRequest(t, s, http.MethodPatch, "/api/emails/m1/category", `{`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown id", func(t *testing.T) {
		rec := doRequest(t, s, http.MethodPatch, "/api/emails/nope/category", `{"category":"Spam"}`)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestStats(t *testing.T) {
	store := newFakeStore()
	store.messages["m1"] = &models.Message{ID: "m1"}
	s := newTestServer(store)

	rec := doRequest(t, s, http.MethodGet, "/api/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"total":1`)
}

func TestAccountStatuses(t *testing.T) {
	s := newTestServer(newFakeStore())
	rec := doRequest(t, s, http.MethodGet, "/api/accounts", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"acct1":"watching"`)
}

func TestSnippets(t *testing.T) {
	store := newFakeStore()
	s := newTestServer(store)

	rec := doRequest(t, s, http.MethodPost, "/api/snippets", `{"content":"new context"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doRequest(t, s, http.MethodPost, "/api/snippets", `{"content":"  "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, s, http.MethodGet, "/api/snippets", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "new context")
}

func TestSearchFailureReturns500(t *testing.T) {
	store := newFakeStore()
	store.failSearch = true
	s := newTestServer(store)

	rec := doRequest(t, s, http.MethodGet, "/api/emails", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
