// Package scriptwriter turns a set of selected articles into a
// two-speaker dialogue script via a hosted text model. Generation is
// fallback-over-failure: when the model call fails, a deterministic
// templated script is built from the article metadata instead, so the
// writer never returns an error. That design is intentional — a podcast
// job must always have a script to fall back on.
package scriptwriter

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Kingjinsight/Lets-break-the-information-gap/internal/models"
)

// The two fixed dialogue roles. The host opens every script; the
// role-to-voice binding lives in the speech package.
const (
	HostSpeaker  = "Joe"
	GuestSpeaker = "Jane"
)

// SpeakerTags returns the line prefixes that open a dialogue turn.
func SpeakerTags() []string {
	return []string{HostSpeaker + ":", GuestSpeaker + ":"}
}

type Writer struct {
	provider Provider
	now      func() time.Time
}

func NewWriter(provider Provider) *Writer {
	return &Writer{provider: provider, now: time.Now}
}

// Generate produces a dialogue script from the given articles. It always
// returns a non-empty script beginning with a recognized speaker tag: a
// failed model call falls back to a deterministic template, and a script
// with a malformed opening is repaired by prepending a greeting turn.
func (w *Writer) Generate(ctx context.Context, articles []models.Article) string {
	prompt := buildPrompt(articles)

	text, err := w.provider.GenerateText(ctx, prompt)
	if err != nil {
		slog.Warn("script generation failed, using templated fallback",
			"provider", w.provider.Name(), "error", err)
		return w.fallbackScript(articles)
	}

	return w.repairLeadingTurn(strings.TrimSpace(text))
}

// repairLeadingTurn force-prepends a host greeting when the first line
// does not start with a recognized speaker tag.
func (w *Writer) repairLeadingTurn(script string) string {
	firstLine := script
	if i := strings.IndexByte(script, '\n'); i >= 0 {
		firstLine = script[:i]
	}
	trimmed := strings.TrimLeft(firstLine, " \t")
	for _, tag := range SpeakerTags() {
		if strings.HasPrefix(trimmed, tag) {
			return script
		}
	}
	return w.greetingLine() + "\n" + script
}

func (w *Writer) greetingLine() string {
	return fmt.Sprintf("%s: Good %s, and welcome to your personal briefing! I'm %s, here as always with %s.",
		HostSpeaker, timeOfDay(w.now()), HostSpeaker, GuestSpeaker)
}

func timeOfDay(t time.Time) string {
	switch h := t.Hour(); {
	case h < 12:
		return "morning"
	case h < 18:
		return "afternoon"
	default:
		return "evening"
	}
}

// fallbackScript builds a dialogue purely from article metadata, with no
// external dependency.
func (w *Writer) fallbackScript(articles []models.Article) string {
	var sb strings.Builder
	sb.WriteString(w.greetingLine())
	sb.WriteString("\n")

	if len(articles) == 0 {
		sb.WriteString(fmt.Sprintf("%s: Thanks, %s. We have a quiet day today with no new articles, so let's take a moment to catch our breath.\n", GuestSpeaker, HostSpeaker))
		sb.WriteString(fmt.Sprintf("%s: That's all for now. See you next time!", HostSpeaker))
		return sb.String()
	}

	sb.WriteString(fmt.Sprintf("%s: Thanks, %s. We have %d stories lined up today.\n", GuestSpeaker, HostSpeaker, len(articles)))
	for i, a := range articles {
		author := a.Author
		if author == "" {
			author = "an unknown author"
		}
		speaker := HostSpeaker
		if i%2 == 1 {
			speaker = GuestSpeaker
		}
		sb.WriteString(fmt.Sprintf("%s: Story %d is %q by %s.", speaker, i+1, a.Title, author))
		if a.ArticleURL != "" {
			sb.WriteString(fmt.Sprintf(" You can read the full piece at %s.", a.ArticleURL))
		}
		sb.WriteString("\n")
	}
	sb.WriteString(fmt.Sprintf("%s: That's everything we have for you. Until next time!", HostSpeaker))
	return sb.String()
}

func buildPrompt(articles []models.Article) string {
	var content strings.Builder
	for i, a := range articles {
		content.WriteString(fmt.Sprintf("Article %d Title: %s\n", i+1, a.Title))
		content.WriteString(fmt.Sprintf("Article %d Author: %s\n", i+1, a.Author))
		content.WriteString(fmt.Sprintf("Article %d Source: %s\n", i+1, a.ArticleURL))
		content.WriteString(fmt.Sprintf("Article %d Content: %s\n\n", i+1, a.Content))
	}

	return fmt.Sprintf(`You are an expert podcast scriptwriter. Your task is to transform the following articles into a natural and engaging two-person dialogue script between a host, %q, and an expert guest, %q.

- The script must be a concise summary of the articles' key points, roughly 5 minutes of spoken dialogue.
- Start with a brief introduction from %s.
- Mention each article's source and author when discussing it.
- The entire output must be only the script itself, following this format exactly:
  %s: [%s's dialogue]
  %s: [%s's dialogue]

Here are the articles to transform:
---
%s---
Script:
`, HostSpeaker, GuestSpeaker, HostSpeaker,
		HostSpeaker, HostSpeaker, GuestSpeaker, GuestSpeaker,
		content.String())
}
