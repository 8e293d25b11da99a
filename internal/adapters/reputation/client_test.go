package reputation

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mikey/content-safety/internal/core"
	"go.uber.org/zap/zaptest"
)

// fakeProvider serves /urls and /analyses/<id> with a scripted status sequence
type fakeProvider struct {
	statuses   []string
	malicious  int
	suspicious int
	submitCode int
	polls      int32
	lastAPIKey atomic.Value
	lastForm   atomic.Value
}

func (f *fakeProvider) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/urls", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		f.lastAPIKey.Store(r.Header.Get("x-apikey"))
		_ = r.ParseForm()
		f.lastForm.Store(r.PostForm.Get("url"))
		if f.submitCode != 0 {
			w.WriteHeader(f.submitCode)
			return
		}
		fmt.Fprint(w, `{"data":{"type":"analysis","id":"u-abc-123"}}`)
	})
	mux.HandleFunc("/analyses/u-abc-123", func(w http.ResponseWriter, r *http.Request) {
		n := int(atomic.AddInt32(&f.polls, 1))
		status := f.statuses[len(f.statuses)-1]
		if n <= len(f.statuses) {
			status = f.statuses[n-1]
		}
		fmt.Fprintf(w, `{"data":{"attributes":{"status":%q,"stats":{"malicious":%d,"suspicious":%d,"harmless":70}}}}`,
			status, f.malicious, f.suspicious)
	})
	return mux
}

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	client, err := NewClient(Config{
		BaseURL:     baseURL,
		APIKey:      "test-key",
		PollDelay:   time.Millisecond,
		MaxAttempts: 5,
	}, nil, zaptest.NewLogger(t), nil)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	return client
}

func TestNewClientRequiresAPIKey(t *testing.T) {
	_, err := NewClient(Config{}, nil, nil, nil)
	if !errors.Is(err, core.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestCheck(t *testing.T) {
	tests := []struct {
		name      string
		provider  *fakeProvider
		wantErr   bool
		wantPolls int32
		validate  func(t *testing.T, rep *core.Reputation)
	}{
		{
			name:      "completed clean after queue",
			provider:  &fakeProvider{statuses: []string{"queued", "queued", "completed"}},
			wantPolls: 3,
			validate: func(t *testing.T, rep *core.Reputation) {
				if !rep.Clean() {
					t.Errorf("expected clean verdict, got %+v", rep)
				}
			},
		},
		{
			name:      "completed malicious",
			provider:  &fakeProvider{statuses: []string{"completed"}, malicious: 1, suspicious: 2},
			wantPolls: 1,
			validate: func(t *testing.T, rep *core.Reputation) {
				if rep.Malicious != 1 || rep.Suspicious != 2 {
					t.Errorf("unexpected stats %+v", rep)
				}
				if rep.Clean() {
					t.Error("malicious verdict must not be clean")
				}
			},
		},
		{
			name:      "queued forever exhausts attempts",
			provider:  &fakeProvider{statuses: []string{"queued"}},
			wantErr:   true,
			wantPolls: 5,
		},
		{
			name:      "unknown terminal status fails",
			provider:  &fakeProvider{statuses: []string{"queued", "failed"}},
			wantErr:   true,
			wantPolls: 2,
		},
		{
			name:      "submit error fails without polling",
			provider:  &fakeProvider{statuses: []string{"completed"}, submitCode: http.StatusUnauthorized},
			wantErr:   true,
			wantPolls: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.provider.handler())
			defer server.Close()

			client := newTestClient(t, server.URL)
			rep, err := client.Check(context.Background(), "https://example.com/")

			if tt.wantErr {
				if !errors.Is(err, core.ErrReputationFailed) {
					t.Fatalf("expected ErrReputationFailed, got %v", err)
				}
			} else if err != nil {
				t.Fatalf("Check() error = %v", err)
			}
			if got := atomic.LoadInt32(&tt.provider.polls); got != tt.wantPolls {
				t.Errorf("polls = %d, want %d", got, tt.wantPolls)
			}
			if tt.validate != nil {
				tt.validate(t, rep)
			}
			if key, _ := tt.provider.lastAPIKey.Load().(string); key != "test-key" {
				t.Errorf("api key header = %q", key)
			}
			if form, _ := tt.provider.lastForm.Load().(string); form != "https://example.com/" {
				t.Errorf("submitted url = %q", form)
			}
		})
	}
}

func TestCheckMalformedJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":`)
	}))
	defer server.Close()

	_, err := newTestClient(t, server.URL).Check(context.Background(), "https://example.com/")
	if !errors.Is(err, core.ErrReputationFailed) {
		t.Fatalf("expected ErrReputationFailed, got %v", err)
	}
}

func TestCheckRejectsOversizedResponse(t *testing.T) {
	// Valid JSON padded past the limit with trailing whitespace
	padding := strings.Repeat(" ", maxResponseBytes)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			fmt.Fprint(w, `{"data":{"id":"u-abc-123"}}`+padding)
			return
		}
		fmt.Fprint(w, `{"data":{"attributes":{"status":"completed","stats":{"malicious":0,"suspicious":0}}}}`+padding)
	}))
	defer server.Close()

	_, err := newTestClient(t, server.URL).Check(context.Background(), "https://example.com/")
	if !errors.Is(err, core.ErrReputationFailed) {
		t.Fatalf("expected ErrReputationFailed, got %v", err)
	}
}

func TestCheckHonoursCancellation(t *testing.T) {
	provider := &fakeProvider{statuses: []string{"queued"}}
	server := httptest.NewServer(provider.handler())
	defer server.Close()

	client, err := NewClient(Config{
		BaseURL:   server.URL,
		APIKey:    "test-key",
		PollDelay: time.Hour,
	}, nil, zaptest.NewLogger(t), nil)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err = client.Check(ctx, "https://example.com/")
	if !errors.Is(err, core.ErrReputationFailed) {
		t.Fatalf("expected ErrReputationFailed, got %v", err)
	}
	if time.Since(start) > 5*time.Second {
		t.Error("cancellation did not interrupt the poll delay")
	}
	if atomic.LoadInt32(&provider.polls) != 0 {
		t.Error("expected no polls after cancellation")
	}
}
