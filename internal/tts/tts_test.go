package tts

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mohammad-safakhou/arxiv-digest/internal/digest"
)

var (
	paper   = digest.Paper{ArxivID: "2401.00001v1", Title: "Talking Papers"}
	summary = digest.Summary{Summary: "It talks.", Conclusion: "Loudly."}
)

func TestSynthesizeUnconfigured(t *testing.T) {
	audio, err := NewClient("", "", "", "", 0).Synthesize(context.Background(), paper, summary)
	if err != nil || audio != nil {
		t.Fatalf("expected nil audio and nil error, got %v %v", audio, err)
	}
	var nilClient *Client
	if nilClient.Configured() {
		t.Fatalf("nil client must not be configured")
	}
}

func TestSynthesizeRawAudio(t *testing.T) {
	var seen request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer k" {
			t.Errorf("missing auth header")
		}
		_ = json.NewDecoder(r.Body).Decode(&seen)
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write([]byte("ID3-bytes"))
	}))
	defer srv.Close()

	audio, err := NewClient(srv.URL, "k", "", "", 0).Synthesize(context.Background(), paper, summary)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if string(audio.Data) != "ID3-bytes" || audio.Ext != "mp3" {
		t.Fatalf("unexpected audio %+v", audio)
	}
	if seen.Text != "Talking Papers. It talks. Loudly." || seen.Voice != "neutral" || seen.Format != "mp3" {
		t.Fatalf("unexpected request %+v", seen)
	}
}

func TestSynthesizeJSONEnvelope(t *testing.T) {
	for _, field := range []string{"audioBase64", "audio", "data"} {
		encoded := base64.StdEncoding.EncodeToString([]byte("pcm-" + field))
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]string{field: encoded})
		}))
		audio, err := NewClient(srv.URL, "k", "alloy", "", 0).Synthesize(context.Background(), paper, summary)
		srv.Close()
		if err != nil {
			t.Fatalf("%s: Synthesize: %v", field, err)
		}
		if string(audio.Data) != "pcm-"+field {
			t.Fatalf("%s: unexpected audio %q", field, audio.Data)
		}
	}
}

func TestSynthesizeFailures(t *testing.T) {
	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota", http.StatusTooManyRequests)
	}))
	defer failing.Close()
	_, err := NewClient(failing.URL, "k", "", "", 0).Synthesize(context.Background(), paper, summary)
	if !errors.Is(err, digest.ErrAudioBackendFailure) {
		t.Fatalf("expected backend failure, got %v", err)
	}

	empty := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}))
	defer empty.Close()
	_, err = NewClient(empty.URL, "k", "", "", 0).Synthesize(context.Background(), paper, summary)
	if !errors.Is(err, digest.ErrAudioResponseMalformed) {
		t.Fatalf("expected malformed response, got %v", err)
	}
}
