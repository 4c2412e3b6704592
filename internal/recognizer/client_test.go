package recognizer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func transcriptionHandler(t *testing.T, text string, capture *map[string]string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/audio/transcriptions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test" {
			t.Errorf("unexpected authorization header %q", got)
		}
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		if capture != nil {
			fields := make(map[string]string)
			for key, values := range r.MultipartForm.Value {
				if len(values) > 0 {
					fields[key] = values[0]
				}
			}
			*capture = fields
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("form file: %v", err)
		} else {
			file.Close()
			if header.Filename == "" {
				t.Error("file part missing filename")
			}
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"text": text})
	}
}

func TestClientTranscribe(t *testing.T) {
	var fields map[string]string
	server := httptest.NewServer(transcriptionHandler(t, "  hello world ", &fields))
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL, Model: "whisper-1"})
	result, err := client.Transcribe(context.Background(), Request{
		Audio:    []byte("RIFFxxxx"),
		Hint:     "This is an excerpt of: hello world.",
		Language: "en",
	})
	if err != nil {
		t.Fatalf("Transcribe returned error: %v", err)
	}
	if result.Text != "hello world" {
		t.Fatalf("expected trimmed text, got %q", result.Text)
	}
	if fields["model"] != "whisper-1" {
		t.Errorf("model field = %q", fields["model"])
	}
	if fields["prompt"] != "This is an excerpt of: hello world." {
		t.Errorf("prompt field = %q", fields["prompt"])
	}
	if fields["language"] != "en" {
		t.Errorf("language field = %q", fields["language"])
	}
	if fields["response_format"] != "json" {
		t.Errorf("response_format field = %q", fields["response_format"])
	}
}

func TestClientTranscribeOmitsEmptyOptionalFields(t *testing.T) {
	var fields map[string]string
	server := httptest.NewServer(transcriptionHandler(t, "ok", &fields))
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL, Model: "whisper-1"})
	if _, err := client.Transcribe(context.Background(), Request{Audio: []byte("x")}); err != nil {
		t.Fatalf("Transcribe returned error: %v", err)
	}
	if _, ok := fields["prompt"]; ok {
		t.Error("prompt field should be absent without a hint")
	}
	if _, ok := fields["language"]; ok {
		t.Error("language field should be absent without a language")
	}
}

func TestClientTranscribeEmptyTextIsValid(t *testing.T) {
	server := httptest.NewServer(transcriptionHandler(t, "", nil))
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL, Model: "whisper-1"})
	result, err := client.Transcribe(context.Background(), Request{Audio: []byte("x")})
	if err != nil {
		t.Fatalf("empty transcription must not error: %v", err)
	}
	if result.Text != "" {
		t.Fatalf("expected empty text, got %q", result.Text)
	}
}

func TestClientTranscribeRequiresAudio(t *testing.T) {
	client := NewClient(Config{APIKey: "test", BaseURL: "http://localhost:1", Model: "whisper-1"})
	if _, err := client.Transcribe(context.Background(), Request{}); err == nil {
		t.Fatal("expected error for empty audio")
	}
}

func TestClientRetriesOnHTTP429(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "rate limited"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"text": "second try"})
	}))
	defer server.Close()

	var slept []time.Duration
	client := NewClient(
		Config{APIKey: "test", BaseURL: server.URL, Model: "whisper-1"},
		WithSleeper(func(d time.Duration) { slept = append(slept, d) }),
		WithRetryBackoff(0, 10*time.Second),
	)
	result, err := client.Transcribe(context.Background(), Request{Audio: []byte("x")})
	if err != nil {
		t.Fatalf("Transcribe returned error: %v", err)
	}
	if result.Text != "second try" {
		t.Fatalf("unexpected text %q", result.Text)
	}
	if calls != 2 {
		t.Fatalf("expected 2 calls, got %d", calls)
	}
	if len(slept) != 1 || slept[0] != time.Second {
		t.Fatalf("expected single sleep of 1s from Retry-After, got %v", slept)
	}
}

func TestClientAttemptsAreBounded(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(
		Config{APIKey: "test", BaseURL: server.URL, Model: "whisper-1"},
		WithRetryMaxAttempts(10),
		WithRetryBackoff(0, 0),
		WithSleeper(func(time.Duration) {}),
	)
	if _, err := client.Transcribe(context.Background(), Request{Audio: []byte("x")}); err == nil {
		t.Fatal("expected failure")
	}
	if calls != 2 {
		t.Fatalf("attempts must clamp to 2, server saw %d calls", calls)
	}
}

func TestClientDoesNotRetryClientErrors(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "bad key"})
	}))
	defer server.Close()

	client := NewClient(
		Config{APIKey: "test", BaseURL: server.URL, Model: "whisper-1"},
		WithSleeper(func(time.Duration) {}),
	)
	_, err := client.Transcribe(context.Background(), Request{Audio: []byte("x")})
	if err == nil {
		t.Fatal("expected failure")
	}
	if !strings.Contains(err.Error(), "http 401") {
		t.Fatalf("expected status in error, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("401 must not retry, server saw %d calls", calls)
	}
}

func TestClientTranscribeAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]string{"message": "model overloaded"},
		})
	}))
	defer server.Close()

	client := NewClient(
		Config{APIKey: "test", BaseURL: server.URL, Model: "whisper-1"},
		WithSleeper(func(time.Duration) {}),
	)
	_, err := client.Transcribe(context.Background(), Request{Audio: []byte("x")})
	if err == nil || !strings.Contains(err.Error(), "model overloaded") {
		t.Fatalf("expected api error message, got %v", err)
	}
}

func TestClientHealthCheck(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"data": []any{}})
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL, Model: "whisper-1"})
	if err := client.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck returned error: %v", err)
	}
}

func TestClientHealthCheckFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "bad", BaseURL: server.URL, Model: "whisper-1"})
	if err := client.HealthCheck(context.Background()); err == nil {
		t.Fatal("expected health check to fail")
	}
}

func TestClientBaseURLTrailingSlash(t *testing.T) {
	server := httptest.NewServer(transcriptionHandler(t, "ok", nil))
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL + "/", Model: "whisper-1"})
	if _, err := client.Transcribe(context.Background(), Request{Audio: []byte("x")}); err != nil {
		t.Fatalf("Transcribe returned error: %v", err)
	}
}
