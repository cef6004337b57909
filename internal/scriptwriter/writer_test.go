package scriptwriter

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kingjinsight/Lets-break-the-information-gap/internal/models"
)

type stubProvider struct {
	text string
	err  error
}

func (s *stubProvider) GenerateText(ctx context.Context, prompt string) (string, error) {
	return s.text, s.err
}

func (s *stubProvider) Name() string { return "stub" }

func testArticles() []models.Article {
	return []models.Article{
		{ID: 1, Title: "Go 1.24 Released", Author: "Ann Author", Content: "Release notes.", ArticleURL: "https://example.com/go"},
		{ID: 2, Title: "Redis Patterns", Content: "Queueing."},
	}
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func TestGenerateReturnsProviderScript(t *testing.T) {
	w := NewWriter(&stubProvider{text: "  Joe: Welcome back!\nJane: Glad to be here.\n"})

	script := w.Generate(context.Background(), testArticles())
	assert.Equal(t, "Joe: Welcome back!\nJane: Glad to be here.", script)
}

func TestGenerateRepairsMalformedOpening(t *testing.T) {
	w := NewWriter(&stubProvider{text: "Here is your script:\nJoe: Welcome!"})

	script := w.Generate(context.Background(), testArticles())
	require.True(t, strings.HasPrefix(script, "Joe:"), "script must open with the host: %q", firstLine(script))
	assert.Contains(t, script, "Here is your script:")
	assert.Contains(t, script, "Joe: Welcome!")
}

func TestGenerateFallsBackOnProviderError(t *testing.T) {
	w := NewWriter(&stubProvider{err: errors.New("model unavailable")})

	script := w.Generate(context.Background(), testArticles())
	require.NotEmpty(t, script)
	assert.True(t, strings.HasPrefix(script, "Joe:"))
	assert.Contains(t, script, "Go 1.24 Released")
	assert.Contains(t, script, "Redis Patterns")
	assert.Contains(t, script, "Ann Author")
	assert.Contains(t, script, "an unknown author")
	assert.Contains(t, script, "https://example.com/go")
}

func TestGenerateFallbackWithNoArticles(t *testing.T) {
	w := NewWriter(&stubProvider{err: errors.New("model unavailable")})

	script := w.Generate(context.Background(), nil)
	require.NotEmpty(t, script)
	assert.True(t, strings.HasPrefix(script, "Joe:"))
	assert.Contains(t, script, "Jane:")
}

func TestFallbackEveryLineIsASpeakerTurn(t *testing.T) {
	w := NewWriter(&stubProvider{err: errors.New("down")})

	script := w.Generate(context.Background(), testArticles())
	for _, line := range strings.Split(script, "\n") {
		if line == "" {
			continue
		}
		assert.True(t,
			strings.HasPrefix(line, "Joe:") || strings.HasPrefix(line, "Jane:"),
			"fallback line without speaker tag: %q", line)
	}
}

func TestGreetingFollowsTimeOfDay(t *testing.T) {
	tests := []struct {
		hour int
		want string
	}{
		{8, "morning"},
		{13, "afternoon"},
		{21, "evening"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			w := NewWriter(&stubProvider{err: errors.New("down")})
			w.now = func() time.Time {
				return time.Date(2026, 3, 1, tt.hour, 0, 0, 0, time.UTC)
			}

			script := w.Generate(context.Background(), nil)
			assert.Contains(t, firstLine(script), "Good "+tt.want)
		})
	}
}

func TestBuildPromptMentionsEveryArticle(t *testing.T) {
	prompt := buildPrompt(testArticles())
	assert.Contains(t, prompt, "Go 1.24 Released")
	assert.Contains(t, prompt, "Redis Patterns")
	assert.Contains(t, prompt, "Ann Author")
	assert.Contains(t, prompt, HostSpeaker)
	assert.Contains(t, prompt, GuestSpeaker)
}
