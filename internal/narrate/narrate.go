// Package narrate turns numeric recommendation evidence into short prose
// using an OpenAI-compatible chat API. Callers treat it as best effort:
// every method can fail and every caller has a templated fallback.
package narrate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/sync/errgroup"

	"github.com/justestif/go-gem-curator/internal/curation"
)

const defaultModel = openai.GPT4oMini

// Config holds narrator settings. BaseURL overrides the API endpoint,
// which is also how tests point the client at a local server.
type Config struct {
	APIKey  string
	Model   string
	BaseURL string
}

// Narrator implements curation.Narrator over the chat completions API.
type Narrator struct {
	client *openai.Client
	model  string
}

// New creates a Narrator from the given configuration.
func New(cfg Config) *Narrator {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	return &Narrator{
		client: openai.NewClientWithConfig(clientCfg),
		model:  model,
	}
}

// Pitches implements curation.Narrator. All tracks go out in one request;
// the response is JSON keyed by track ID. A track missing from the
// response simply gets no pitch, the caller falls back per track.
func (n *Narrator) Pitches(ctx context.Context, profile *curation.Profile, reqs []curation.PitchRequest) (map[int64]string, error) {
	if len(reqs) == 0 {
		return map[int64]string{}, nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "You are pitching hidden-gem tracks to a music lover.\n")
	if profile != nil && profile.Description != "" {
		fmt.Fprintf(&sb, "Their playlist: %s\n", profile.Description)
	}
	sb.WriteString("\nFor each track below, write ONE sentence (under 25 words) that cites its evidence. Do not invent qualities.\n\n")
	for _, r := range reqs {
		fmt.Fprintf(&sb, "ID %d: %q by %s. Evidence: %s\n", r.ID, r.Title, r.Artist, r.Evidence)
	}
	sb.WriteString("\nRespond with JSON only: {\"pitches\": [{\"id\": <id>, \"pitch\": \"<sentence>\"}]}")

	content, err := n.complete(ctx, sb.String())
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Pitches []struct {
			ID    int64  `json:"id"`
			Pitch string `json:"pitch"`
		} `json:"pitches"`
	}
	if err := json.Unmarshal([]byte(stripFences(content)), &parsed); err != nil {
		return nil, fmt.Errorf("parsing pitches response: %w", err)
	}

	out := make(map[int64]string, len(parsed.Pitches))
	for _, p := range parsed.Pitches {
		if p.Pitch != "" {
			out[p.ID] = p.Pitch
		}
	}
	return out, nil
}

// Justification implements curation.Narrator. The two parts are
// independent, so they run as parallel requests; the first error wins.
func (n *Narrator) Justification(ctx context.Context, profile *curation.Profile, cards []curation.TrackCard, allKnown bool) (string, string, error) {
	var understanding, selection string

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		understanding, err = n.understanding(ctx, profile)
		return err
	})
	g.Go(func() error {
		var err error
		selection, err = n.selection(ctx, cards, allKnown)
		return err
	})
	if err := g.Wait(); err != nil {
		return "", "", err
	}
	return understanding, selection, nil
}

func (n *Narrator) understanding(ctx context.Context, profile *curation.Profile) (string, error) {
	var sb strings.Builder
	sb.WriteString("In 2-3 sentences, describe what you understood about this listener's taste. Be specific, warm, no lists.\n\n")
	if profile != nil {
		if profile.AvgBPM != nil {
			fmt.Fprintf(&sb, "Average BPM: %.0f\n", *profile.AvgBPM)
		}
		if profile.AvgEnergy != nil {
			fmt.Fprintf(&sb, "Average energy: %.2f\n", *profile.AvgEnergy)
		}
		if len(profile.TopGenres) > 0 {
			fmt.Fprintf(&sb, "Top genres: %s\n", strings.Join(profile.TopGenres, ", "))
		}
		if profile.Mood != "" {
			fmt.Fprintf(&sb, "Dominant mood: %s\n", profile.Mood)
		}
	}
	return n.complete(ctx, sb.String())
}

func (n *Narrator) selection(ctx context.Context, cards []curation.TrackCard, allKnown bool) (string, error) {
	var sb strings.Builder
	sb.WriteString("In 2-3 sentences, explain why these tracks were selected as a set. No lists.\n\n")
	for _, c := range cards {
		fmt.Fprintf(&sb, "%q by %s: %s\n", c.Title, c.Artist, c.Reason)
	}
	if allKnown {
		sb.WriteString("\nNote: the listener already knew every artist found, so these are the best matches from familiar names. Acknowledge that.\n")
	}
	return n.complete(ctx, sb.String())
}

func (n *Narrator) complete(ctx context.Context, prompt string) (string, error) {
	resp, err := n.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: n.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: 0.7,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// stripFences removes a surrounding markdown code fence, which some models
// wrap JSON in despite instructions.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

var _ curation.Narrator = (*Narrator)(nil)
