// Package speech calls the hosted multi-speaker TTS model, one chunk of
// dialogue per call, with bounded retry and exponential backoff. Each
// successful call yields one raw PCM buffer (24kHz mono 16-bit); wrapping
// it into a playable container is the caller's job.
package speech

import (
	"context"
	"fmt"
	"sort"
	"time"

	"google.golang.org/genai"
)

// DefaultVoices is the static role-to-voice binding for the two hosts.
var DefaultVoices = map[string]string{
	"Joe":  "aoede",
	"Jane": "charon",
}

const defaultMaxRetries = 3

type Config struct {
	APIKey     string
	Model      string            // e.g. "gemini-2.5-flash-preview-tts"
	Voices     map[string]string // speaker name -> prebuilt voice
	MaxRetries int
}

// generateFunc is the raw model call. It exists so the retry and error
// classification logic is testable without network access.
type generateFunc func(ctx context.Context, text string) ([]byte, error)

// Client synthesizes speech for script chunks. Instances are constructed
// per credential; there is no process-wide client state.
type Client struct {
	generate   generateFunc
	maxRetries int
	sleep      func(ctx context.Context, d time.Duration) error
}

// NewClient builds a client bound to the given credential.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("speech client: model is required")
	}
	voices := cfg.Voices
	if len(voices) == 0 {
		voices = DefaultVoices
	}

	gc, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: cfg.APIKey})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	speechCfg := &genai.GenerateContentConfig{
		ResponseModalities: []string{"AUDIO"},
		SpeechConfig: &genai.SpeechConfig{
			MultiSpeakerVoiceConfig: &genai.MultiSpeakerVoiceConfig{
				SpeakerVoiceConfigs: speakerConfigs(voices),
			},
		},
	}

	generate := func(ctx context.Context, text string) ([]byte, error) {
		resp, err := gc.Models.GenerateContent(ctx, cfg.Model, genai.Text(text), speechCfg)
		if err != nil {
			return nil, err
		}
		return extractAudio(resp)
	}

	return newClient(generate, cfg.MaxRetries), nil
}

func newClient(generate generateFunc, maxRetries int) *Client {
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	return &Client{
		generate:   generate,
		maxRetries: maxRetries,
		sleep:      sleepCtx,
	}
}

// Synthesize converts one chunk of dialogue into a raw PCM buffer. It
// attempts the call up to MaxRetries times with 2^attempt seconds of
// backoff between attempts. Quota exhaustion is returned immediately as
// *QuotaError; exhausted retries return *FatalError.
func (c *Client) Synthesize(ctx context.Context, chunkText string) ([]byte, error) {
	var lastErr error

	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			// 2^n seconds after the nth failure
			backoff := time.Duration(1<<(attempt-1)) * time.Second
			if err := c.sleep(ctx, backoff); err != nil {
				return nil, err
			}
		}

		data, err := c.generate(ctx, chunkText)
		if err == nil && len(data) == 0 {
			err = errNoAudio
		}
		if err == nil {
			return data, nil
		}
		if isQuotaExhausted(err) {
			return nil, &QuotaError{Err: err}
		}
		lastErr = err
	}

	return nil, &FatalError{Attempts: c.maxRetries, Err: lastErr}
}

func speakerConfigs(voices map[string]string) []*genai.SpeakerVoiceConfig {
	speakers := make([]string, 0, len(voices))
	for s := range voices {
		speakers = append(speakers, s)
	}
	sort.Strings(speakers)

	cfgs := make([]*genai.SpeakerVoiceConfig, 0, len(speakers))
	for _, s := range speakers {
		cfgs = append(cfgs, &genai.SpeakerVoiceConfig{
			Speaker: s,
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: voices[s]},
			},
		})
	}
	return cfgs
}

func extractAudio(resp *genai.GenerateContentResponse) ([]byte, error) {
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, errNoAudio
	}
	for _, part := range resp.Candidates[0].Content.Parts {
		if part.InlineData != nil && len(part.InlineData.Data) > 0 {
			return part.InlineData.Data, nil
		}
	}
	return nil, errNoAudio
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
