package factory

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/mikey/content-safety/internal/adapters/cache"
	"github.com/mikey/content-safety/internal/adapters/fetcher"
	"github.com/mikey/content-safety/internal/config"
	"go.uber.org/zap/zaptest"
)

func newTestConfig(t *testing.T, overrides map[string]interface{}) *config.Config {
	t.Helper()
	cfg := config.NewFromViper(config.NewEmptyViper())
	for k, v := range overrides {
		cfg.Set(k, v)
	}
	return cfg
}

func TestCreateLLMClient(t *testing.T) {
	tests := []struct {
		name     string
		settings map[string]interface{}
		wantNil  bool
		wantErr  bool
	}{
		{"none", map[string]interface{}{"llm.provider": "none"}, true, false},
		{"openai without key", map[string]interface{}{"llm.provider": "openai"}, true, true},
		{"gemini without key", map[string]interface{}{"llm.provider": "gemini"}, true, true},
		{"openai", map[string]interface{}{"llm.provider": "openai", "openai.api_key": "sk-test", "openai.base_url": "http://127.0.0.1:1/v1"}, false, false},
		{"unknown", map[string]interface{}{"llm.provider": "clippy"}, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := newTestConfig(t, tt.settings)
			client, err := NewLLMFactory(cfg, zaptest.NewLogger(t), nil).CreateLLMClient(context.Background())
			if (err != nil) != tt.wantErr {
				t.Fatalf("CreateLLMClient() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && (client == nil) != tt.wantNil {
				t.Errorf("CreateLLMClient() client = %v, wantNil %v", client, tt.wantNil)
			}
		})
	}
}

func TestCreateCache(t *testing.T) {
	logger := zaptest.NewLogger(t)

	disabled, err := NewCacheFactory(newTestConfig(t, map[string]interface{}{"cache.enabled": false}), logger).CreateCache(context.Background())
	if err != nil || disabled != nil {
		t.Fatalf("disabled cache = %v, %v", disabled, err)
	}

	memory, err := NewCacheFactory(newTestConfig(t, nil), logger).CreateCache(context.Background())
	if err != nil {
		t.Fatalf("CreateCache() error = %v", err)
	}
	defer memory.Stop()
	if _, ok := memory.(*cache.MemoryCache); !ok {
		t.Errorf("default cache is %T, want *cache.MemoryCache", memory)
	}

	if _, err := NewCacheFactory(newTestConfig(t, map[string]interface{}{"cache.type": "floppy"}), logger).CreateCache(context.Background()); err == nil {
		t.Error("expected an error for an unknown cache type")
	}
	if _, err := NewCacheFactory(newTestConfig(t, map[string]interface{}{"cache.ttl": "forever"}), logger).CreateCache(context.Background()); err == nil {
		t.Error("expected an error for an invalid ttl")
	}
}

func TestCreateSQLiteCache(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "cache.db")
	store, err := NewCacheFactory(newTestConfig(t, map[string]interface{}{
		"cache.type":        "sqlite",
		"cache.sqlite_path": path,
	}), zaptest.NewLogger(t)).CreateCache(context.Background())
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	store.Stop()
}

func TestCreateProvider(t *testing.T) {
	logger := zaptest.NewLogger(t)

	if _, err := NewReputationFactory(newTestConfig(t, nil), logger, nil).CreateProvider(nil); err == nil {
		t.Error("expected an error without an API key")
	}

	cfg := newTestConfig(t, map[string]interface{}{"reputation.api_key": "key"})
	provider, err := NewReputationFactory(cfg, logger, nil).CreateProvider(nil)
	if err != nil || provider == nil {
		t.Fatalf("CreateProvider() = %v, %v", provider, err)
	}

	mem := cache.NewMemoryCache(logger, 0)
	defer mem.Stop()
	cached, err := NewReputationFactory(cfg, logger, nil).CreateProvider(mem)
	if err != nil {
		t.Fatalf("CreateProvider() error = %v", err)
	}
	if cached == provider {
		t.Error("expected the cache to wrap the client")
	}
}

func TestCreateFetcher(t *testing.T) {
	logger := zaptest.NewLogger(t)

	f, stop, err := NewFetcherFactory(newTestConfig(t, nil), logger).CreateFetcher()
	if err != nil {
		t.Fatalf("CreateFetcher() error = %v", err)
	}
	defer stop()
	if _, ok := f.(*fetcher.HTTPFetcher); !ok {
		t.Errorf("default fetcher is %T", f)
	}

	if _, _, err := NewFetcherFactory(newTestConfig(t, map[string]interface{}{"fetch.mode": "carrier-pigeon"}), logger).CreateFetcher(); err == nil {
		t.Error("expected an error for an unknown fetch mode")
	}
	if _, err := NewFetcherFactory(newTestConfig(t, nil), logger).CreateValidator(); err != nil {
		t.Errorf("CreateValidator() error = %v", err)
	}
}

func TestCreateSMTPFilter(t *testing.T) {
	logger := zaptest.NewLogger(t)

	if f := NewFilterFactory(newTestConfig(t, nil), logger).CreateSMTPFilter(nil); f != nil {
		t.Error("filter should be nil when smtp is disabled")
	}
	if f := NewFilterFactory(newTestConfig(t, map[string]interface{}{"smtp.enabled": true}), logger).CreateSMTPFilter(nil); f == nil {
		t.Error("expected a filter when smtp is enabled")
	}
}
