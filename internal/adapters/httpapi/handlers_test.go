package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mikey/content-safety/internal/core"
	"github.com/mikey/content-safety/internal/jobs"
	"github.com/mikey/content-safety/internal/lexicon"
	"github.com/mikey/content-safety/internal/metrics"
	"github.com/mikey/content-safety/internal/sender"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap/zaptest"
)

type secureTransport struct{}

func (secureTransport) Validate(ctx context.Context, url string) bool {
	return strings.HasPrefix(url, "https://")
}

type cleanReputation struct{}

func (cleanReputation) Check(ctx context.Context, url string) (*core.Reputation, error) {
	return &core.Reputation{Status: core.StatusCompleted}, nil
}

type staticFetcher struct{}

func (staticFetcher) Fetch(ctx context.Context, url string) (*core.PageContent, error) {
	return &core.PageContent{
		Title:      "Example Domain",
		Heading:    "Example Domain",
		Paragraphs: []string{"This domain is for use in illustrative examples in documents."},
	}, nil
}

func newTestServer(t *testing.T) (*httptest.Server, *jobs.Registry) {
	t.Helper()
	logger := zaptest.NewLogger(t)
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	lex := lexicon.Default(logger)
	urls := core.NewURLAnalyzer(secureTransport{}, cleanReputation{}, staticFetcher{},
		core.NewContentClassifier(lex), nil, logger, m)
	emails := core.NewEmailAnalyzer(lex, sender.NewChecker(sender.DefaultTrustedDomains, logger),
		urls, core.DefaultSpamPolicy(), logger, m)
	service := core.NewSafetyService(urls, emails, nil, lex, logger)
	registry := jobs.NewRegistry(urls, jobs.Options{}, logger, m)
	t.Cleanup(func() { registry.Shutdown(context.Background()) })

	srv := httptest.NewServer(NewServer(service, registry, m, reg, "", logger).Handler())
	t.Cleanup(srv.Close)
	return srv, registry
}

func do(t *testing.T, method, url, body string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	if err != nil {
		t.Fatalf("NewRequest() error = %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s error = %v", method, url, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("reading body: %v", err)
	}
	return resp, data
}

func TestCheckWebsite(t *testing.T) {
	srv, _ := newTestServer(t)

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantSafe   bool
	}{
		{"safe https", `{"url":"https://example.com"}`, http.StatusOK, true},
		{"plain http is a verdict", `{"url":"http://example.com"}`, http.StatusOK, false},
		{"blank url", `{"url":"  "}`, http.StatusBadRequest, false},
		{"bad json", `{"url":`, http.StatusBadRequest, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, data := do(t, http.MethodPost, srv.URL+"/api/check-website", tt.body)
			if resp.StatusCode != tt.wantStatus {
				t.Fatalf("status = %d, want %d: %s", resp.StatusCode, tt.wantStatus, data)
			}
			if tt.wantStatus != http.StatusOK {
				var e errorResponse
				if err := json.Unmarshal(data, &e); err != nil || e.Code == "" {
					t.Errorf("expected error body, got %s", data)
				}
				return
			}
			var result core.UrlAnalysis
			if err := json.Unmarshal(data, &result); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if result.OverallSafe() != tt.wantSafe {
				t.Errorf("OverallSafe() = %v, want %v (%+v)", result.OverallSafe(), tt.wantSafe, result)
			}
			if result.Rationale == "" {
				t.Error("expected a rationale")
			}
		})
	}
}

func TestAsyncCheckLifecycle(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, data := do(t, http.MethodPost, srv.URL+"/api/check-website/async", `{"url":"https://Example.com#top"}`)
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("submit status = %d: %s", resp.StatusCode, data)
	}
	var accepted asyncCheckResponse
	if err := json.Unmarshal(data, &accepted); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !strings.HasPrefix(accepted.TrackingID, jobs.TrackingPrefix) || accepted.URL != "https://example.com/" {
		t.Fatalf("unexpected response %+v", accepted)
	}

	statusURL := srv.URL + "/api/check-website/async/" + accepted.TrackingID
	deadline := time.Now().Add(2 * time.Second)
	for {
		resp, data = do(t, http.MethodGet, statusURL, "")
		if resp.StatusCode == http.StatusOK {
			break
		}
		if resp.StatusCode != http.StatusAccepted {
			t.Fatalf("poll status = %d: %s", resp.StatusCode, data)
		}
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for the result")
		}
		time.Sleep(10 * time.Millisecond)
	}

	var result core.UrlAnalysis
	if err := json.Unmarshal(data, &result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.URL != accepted.URL || !result.OverallSafe() {
		t.Errorf("unexpected result %+v", result)
	}

	if resp, _ := do(t, http.MethodGet, statusURL, ""); resp.StatusCode != http.StatusNotFound {
		t.Errorf("second poll status = %d, want 404", resp.StatusCode)
	}
}

func TestAsyncCancelUnknown(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, _ := do(t, http.MethodDelete, srv.URL+"/api/check-website/async/track_missing", "")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
	if resp, _ := do(t, http.MethodPost, srv.URL+"/api/check-website/async", `{}`); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("empty submit status = %d, want 400", resp.StatusCode)
	}
}

func TestCheckSpam(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, data := do(t, http.MethodPost, srv.URL+"/api/v1/email/check-spam", `{
		"subject": "Congratulations! You've won $1,000,000!",
		"content": "Click here to claim your prize now! Limited time offer!",
		"sender": "winner@spam.tk"
	}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d: %s", resp.StatusCode, data)
	}
	var result core.SpamAnalysis
	if err := json.Unmarshal(data, &result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !result.IsSpam || len(result.DetectedSpamKeywords) == 0 {
		t.Errorf("expected spam verdict, got %+v", result)
	}

	resp, _ = do(t, http.MethodPost, srv.URL+"/api/v1/email/check-spam", `{"subject":"hi","content":"there"}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("missing sender status = %d, want 400", resp.StatusCode)
	}
}

func TestBulkCheck(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, data := do(t, http.MethodPost, srv.URL+"/api/v1/email/bulk-check", `{"emails":[
		{"subject":"Hello","content":"Lunch tomorrow?","sender":"friend@gmail.com"},
		{"subject":"Congratulations! You've won $1,000,000!","content":"Click here to claim your prize now! Limited time offer!","sender":"winner@spam.tk"}
	]}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d: %s", resp.StatusCode, data)
	}
	var bulk core.BulkSpamAnalysis
	if err := json.Unmarshal(data, &bulk); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if bulk.Total != 2 || bulk.SpamCount != 1 || len(bulk.Results) != 2 {
		t.Errorf("unexpected aggregates %+v", bulk)
	}

	if resp, _ := do(t, http.MethodPost, srv.URL+"/api/v1/email/bulk-check", `{"emails":[]}`); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("empty bulk status = %d, want 400", resp.StatusCode)
	}

	var b strings.Builder
	b.WriteString(`{"emails":[`)
	for i := 0; i < 101; i++ {
		if i > 0 {
			b.WriteString(",")
		}
		fmt.Fprintf(&b, `{"subject":"s%d","content":"c","sender":"a@b.com"}`, i)
	}
	b.WriteString("]}")
	resp, data = do(t, http.MethodPost, srv.URL+"/api/v1/email/bulk-check", b.String())
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("oversized bulk status = %d, want 400", resp.StatusCode)
	}
	var e errorResponse
	if err := json.Unmarshal(data, &e); err != nil || e.Code != "BULK_LIMIT_EXCEEDED" {
		t.Errorf("unexpected error body %s", data)
	}
}

func TestQuickCheckAndKeywords(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, data := do(t, http.MethodPost, srv.URL+"/api/v1/email/quick-check", `{
		"subject": "URGENT: Your account has been suspended",
		"content": "Click here to verify your account immediately. Your account will be deleted within 24 hours if you don't act now!",
		"sender": "security@bank.xyz"
	}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d: %s", resp.StatusCode, data)
	}
	var quick quickCheckResponse
	if err := json.Unmarshal(data, &quick); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !quick.IsHighPrioritySpam {
		t.Error("expected high priority spam")
	}

	resp, data = do(t, http.MethodGet, srv.URL+"/api/v1/email/spam-keywords", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("keywords status = %d", resp.StatusCode)
	}
	var keywords []string
	if err := json.Unmarshal(data, &keywords); err != nil || len(keywords) == 0 {
		t.Errorf("unexpected keywords %s", data)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, data := do(t, http.MethodGet, srv.URL+"/api/health", "")
	var health healthResponse
	if resp.StatusCode != http.StatusOK || json.Unmarshal(data, &health) != nil || !health.Healthy {
		t.Fatalf("health = %d %s", resp.StatusCode, data)
	}

	resp, data = do(t, http.MethodGet, srv.URL+"/metrics", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("metrics status = %d", resp.StatusCode)
	}
	if !strings.Contains(string(data), `content_safety_http_requests_total{method="GET",route="/api/health",status="200"} 1`) {
		t.Errorf("health request not recorded:\n%s", data)
	}
}
