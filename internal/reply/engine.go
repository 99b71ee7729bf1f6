package reply

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/Meet0004/email-sync-system-intern/pkg/models"
)

// SnippetSource yields the stored reply-context snippets in insertion order.
type SnippetSource interface {
	ListSnippets(ctx context.Context) ([]models.Snippet, error)
}

// Completer is the optional structured-generation collaborator.
type Completer interface {
	Complete(ctx context.Context, prompt string, contextSnippets []string) (string, error)
	Enabled() bool
}

// Suggestion is a reply suggestion plus the context it was grounded on.
type Suggestion struct {
	Reply   string           `json:"reply"`
	Context []models.Snippet `json:"context"`
}

// Engine scores stored snippets against a message and composes a reply.
// Suggest always returns a non-empty reply: any failure along the way
// degrades to the deterministic template path.
type Engine struct {
	snippets  SnippetSource
	completer Completer
	logger    *slog.Logger
}

// NewEngine creates a reply engine. completer may be nil.
func NewEngine(snippets SnippetSource, completer Completer, logger *slog.Logger) *Engine {
	return &Engine{
		snippets:  snippets,
		completer: completer,
		logger:    logger.With("component", "reply_engine"),
	}
}

// Suggest produces a reply for a persisted message.
func (e *Engine) Suggest(ctx context.Context, msg *models.Message) Suggestion {
	text := msg.Subject + " " + msg.Body

	var top []models.Snippet
	stored, err := e.snippets.ListSnippets(ctx)
	if err != nil {
		e.logger.Warn("failed to load snippets", "error", err)
	} else {
		top = TopSnippets(text, stored, 3)
	}

	if e.completer != nil && e.completer.Enabled() {
		contents := make([]string, len(top))
		for i, s := range top {
			contents[i] = s.Content
		}
		generated, err := e.completer.Complete(ctx, buildPrompt(msg), contents)
		if err != nil {
			e.logger.Warn("generation failed, using template fallback", "error", err)
		} else if generated != "" {
			return Suggestion{Reply: generated, Context: top}
		}
	}

	return Suggestion{Reply: selectTemplate(text), Context: top}
}

// TopSnippets returns the n best-scoring snippets by token overlap, ties
// broken by insertion order (stable).
func TopSnippets(text string, snippets []models.Snippet, n int) []models.Snippet {
	query := tokens(text)

	scored := make([]models.Snippet, len(snippets))
	copy(scored, snippets)
	scores := make(map[int64]float64, len(snippets))
	for _, s := range snippets {
		scores[s.ID] = overlapScore(query, tokens(s.Content))
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scores[scored[i].ID] > scores[scored[j].ID]
	})

	if len(scored) > n {
		scored = scored[:n]
	}
	return scored
}

// overlapScore is |a ∩ b| / max(|a|, |b|).
func overlapScore(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	shared := 0
	for token := range a {
		if _, ok := b[token]; ok {
			shared++
		}
	}
	denom := len(a)
	if len(b) > denom {
		denom = len(b)
	}
	return float64(shared) / float64(denom)
}

// tokens is the lowercased set of whitespace-delimited words.
func tokens(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, word := range strings.Fields(strings.ToLower(text)) {
		set[word] = struct{}{}
	}
	return set
}

func buildPrompt(msg *models.Message) string {
	return fmt.Sprintf(`Write a short, professional reply to this email. Use the context above when relevant. Return only the reply text.

From: %s
Subject: %s

%s`, msg.From, msg.Subject, msg.Body)
}
