package reply

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Meet0004/email-sync-system-intern/pkg/models"
)

type staticSnippets struct {
	snippets []models.Snippet
	err      error
}

func (s *staticSnippets) ListSnippets(ctx context.Context) ([]models.Snippet, error) {
	return s.snippets, s.err
}

type stubCompleter struct {
	text    string
	err     error
	enabled bool
	calls   int
}

func (c *stubCompleter) Complete(ctx context.Context, prompt string, contextSnippets []string) (string, error) {
	c.calls++
	return c.text, c.err
}

func (c *stubCompleter) Enabled() bool { return c.enabled }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestTopSnippets(t *testing.T) {
	snippets := []models.Snippet{
		{ID: 1, Content: "go imap pipeline"},
		{ID: 2, Content: "completely unrelated gardening tips"},
		{ID: 3, Content: "imap pipeline details"},
		{ID: 4, Content: "go pipeline"},
	}

	top := TopSnippets("go imap pipeline", snippets, 3)

	require.Len(t, top, 3)
	// Perfect overlap first, gardening last (excluded)
	assert.Equal(t, int64(1), top[0].ID)
	assert.NotContains(t, []int64{top[0].ID, top[1].ID, top[2].ID}, int64(2))
}

func TestTopSnippetsTieBreakByInsertionOrder(t *testing.T) {
	snippets := []models.Snippet{
		{ID: 10, Content: "alpha beta"},
		{ID: 11, Content: "alpha beta"},
		{ID: 12, Content: "alpha beta"},
		{ID: 13, Content: "alpha beta"},
	}

	top := TopSnippets("alpha beta", snippets, 3)

	require.Len(t, top, 3)
	assert.Equal(t, []int64{10, 11, 12}, []int64{top[0].ID, top[1].ID, top[2].ID})
}

func TestTopSnippetsDeterministic(t *testing.T) {
	snippets := []models.Snippet{
		{ID: 1, Content: "interview scheduling and calls"},
		{ID: 2, Content: "technical screening with go"},
		{ID: 3, Content: "salary discussion"},
		{ID: 4, Content: "interview next steps"},
	}

	first := TopSnippets("interview call next steps", snippets, 3)
	for i := 0; i < 10; i++ {
		again := TopSnippets("interview call next steps", snippets, 3)
		assert.Equal(t, first, again)
	}
}

func TestOverlapScore(t *testing.T) {
	assert.Equal(t, 0.0, overlapScore(tokens(""), tokens("anything")))
	assert.Equal(t, 1.0, overlapScore(tokens("a b c"), tokens("c b a")))
	// |{a,b} ∩ {b,c,d}| / max(2,3) = 1/3
	assert.InDelta(t, 1.0/3.0, overlapScore(tokens("a b"), tokens("b c d")), 0.001)
	// Duplicate words collapse into a set
	assert.Equal(t, 1.0, overlapScore(tokens("go go go"), tokens("go")))
}

func TestSuggestUsesCompleter(t *testing.T) {
	source := &staticSnippets{snippets: []models.Snippet{{ID: 1, Content: "interview availability"}}}
	completer := &stubCompleter{text: "Generated reply.", enabled: true}
	engine := NewEngine(source, completer, testLogger())

	got := engine.Suggest(context.Background(), &models.Message{Subject: "interview", Body: "availability?"})

	assert.Equal(t, "Generated reply.", got.Reply)
	assert.Equal(t, 1, completer.calls)
	require.Len(t, got.Context, 1)
}

func TestSuggestFallsBackOnCompleterFailure(t *testing.T) {
	source := &staticSnippets{snippets: []models.Snippet{{ID: 1, Content: "interview availability"}}}
	completer := &stubCompleter{err: errors.New("model unavailable"), enabled: true}
	engine := NewEngine(source, completer, testLogger())

	got := engine.Suggest(context.Background(), &models.Message{Subject: "Interview invite", Body: "when are you free?"})

	assert.NotEmpty(t, got.Reply)
	assert.Contains(t, got.Reply, "interview")
}

func TestSuggestWithoutCompleter(t *testing.T) {
	source := &staticSnippets{snippets: []models.Snippet{{ID: 1, Content: "anything"}}}
	engine := NewEngine(source, nil, testLogger())

	tests := []struct {
		name    string
		subject string
		want    string
	}{
		{"interview template", "Interview for backend role", "interview"},
		{"shortlisted template", "You have been shortlisted", "shortlisted"},
		{"generic template", "Quarterly newsletter", "Thank you for your email"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := engine.Suggest(context.Background(), &models.Message{Subject: tt.subject})
			assert.NotEmpty(t, got.Reply)
			assert.Contains(t, strings.ToLower(got.Reply), strings.ToLower(tt.want))
		})
	}
}

func TestSuggestSurvivesSnippetSourceFailure(t *testing.T) {
	source := &staticSnippets{err: errors.New("store down")}
	engine := NewEngine(source, nil, testLogger())

	got := engine.Suggest(context.Background(), &models.Message{Subject: "hello"})

	assert.NotEmpty(t, got.Reply)
	assert.Empty(t, got.Context)
}
