package narrate

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/justestif/go-gem-curator/internal/curation"
)

// chatServer returns a test server that answers every chat completion
// with the content produced by reply, given the prompt it received.
func chatServer(t *testing.T, reply func(prompt string) string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Messages []struct {
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		var prompt string
		if len(req.Messages) > 0 {
			prompt = req.Messages[0].Content
		}

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"choices":[{"message":{"role":"assistant","content":%s}}]}`,
			mustJSON(reply(prompt)))
	}))
}

func mustJSON(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func testNarrator(server *httptest.Server) *Narrator {
	return New(Config{
		APIKey:  "test-key",
		Model:   "test-model",
		BaseURL: server.URL + "/v1",
	})
}

func TestPitches(t *testing.T) {
	server := chatServer(t, func(prompt string) string {
		if !strings.Contains(prompt, `"Heartbeats" by The Knife`) {
			t.Errorf("prompt missing track: %q", prompt)
		}
		if !strings.Contains(prompt, "120 BPM") {
			t.Errorf("prompt missing evidence: %q", prompt)
		}
		return `{"pitches": [{"id": 7, "pitch": "Its 120 BPM matches your tempo."}]}`
	})
	defer server.Close()

	got, err := testNarrator(server).Pitches(context.Background(), nil, []curation.PitchRequest{
		{ID: 7, Title: "Heartbeats", Artist: "The Knife", Evidence: "its 120 BPM matches your playlist's 120 BPM tempo"},
	})
	if err != nil {
		t.Fatalf("Pitches: %v", err)
	}
	if got[7] != "Its 120 BPM matches your tempo." {
		t.Errorf("pitch = %q", got[7])
	}
}

func TestPitchesStripsCodeFence(t *testing.T) {
	server := chatServer(t, func(string) string {
		return "```json\n{\"pitches\": [{\"id\": 1, \"pitch\": \"Fenced.\"}]}\n```"
	})
	defer server.Close()

	got, err := testNarrator(server).Pitches(context.Background(), nil, []curation.PitchRequest{
		{ID: 1, Title: "A", Artist: "B"},
	})
	if err != nil {
		t.Fatalf("Pitches: %v", err)
	}
	if got[1] != "Fenced." {
		t.Errorf("pitch = %q", got[1])
	}
}

func TestPitchesMalformedResponse(t *testing.T) {
	server := chatServer(t, func(string) string { return "sorry, I can't do JSON" })
	defer server.Close()

	_, err := testNarrator(server).Pitches(context.Background(), nil, []curation.PitchRequest{
		{ID: 1, Title: "A", Artist: "B"},
	})
	if err == nil {
		t.Fatal("expected error for malformed response")
	}
}

func TestPitchesEmpty(t *testing.T) {
	got, err := New(Config{APIKey: "k"}).Pitches(context.Background(), nil, nil)
	if err != nil || len(got) != 0 {
		t.Errorf("empty request: got %v, err %v", got, err)
	}
}

func TestJustificationRunsBothParts(t *testing.T) {
	var calls atomic.Int32
	server := chatServer(t, func(prompt string) string {
		calls.Add(1)
		if strings.Contains(prompt, "listener's taste") {
			return "You love mellow indie."
		}
		return "These tracks share that softness."
	})
	defer server.Close()

	bpm := 95.0
	understanding, selection, err := testNarrator(server).Justification(
		context.Background(),
		&curation.Profile{AvgBPM: &bpm, TopGenres: []string{"indie"}},
		[]curation.TrackCard{{ID: 1, Title: "A", Artist: "B", Reason: "soft"}},
		false,
	)
	if err != nil {
		t.Fatalf("Justification: %v", err)
	}
	if understanding != "You love mellow indie." {
		t.Errorf("understanding = %q", understanding)
	}
	if selection != "These tracks share that softness." {
		t.Errorf("selection = %q", selection)
	}
	if calls.Load() != 2 {
		t.Errorf("API calls = %d, want 2", calls.Load())
	}
}

func TestJustificationAllKnownHint(t *testing.T) {
	server := chatServer(t, func(prompt string) string {
		if strings.Contains(prompt, "why these tracks were selected") && !strings.Contains(prompt, "familiar names") {
			t.Errorf("selection prompt missing all-known acknowledgement: %q", prompt)
		}
		return "ok"
	})
	defer server.Close()

	if _, _, err := testNarrator(server).Justification(
		context.Background(), nil,
		[]curation.TrackCard{{ID: 1, Title: "A", Artist: "B"}},
		true,
	); err != nil {
		t.Fatalf("Justification: %v", err)
	}
}

func TestJustificationPropagatesFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	if _, _, err := testNarrator(server).Justification(context.Background(), nil, nil, false); err == nil {
		t.Fatal("expected error from failing server")
	}
}

func TestStripFences(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`{"a":1}`, `{"a":1}`},
		{"```json\n{\"a\":1}\n```", `{"a":1}`},
		{"```\n{\"a\":1}\n```", `{"a":1}`},
		{"  {\"a\":1}  ", `{"a":1}`},
	}
	for _, tt := range tests {
		if got := stripFences(tt.in); got != tt.want {
			t.Errorf("stripFences(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
