package ratelimit

import (
	"testing"
	"time"
)

func testConfig() *Config {
	return &Config{
		Enabled:       true,
		DefaultLimit:  100,
		DefaultWindow: time.Minute,
		Whitelist:     make(map[string]bool),
		Blacklist:     make(map[string]bool),
		EndpointConfigs: []EndpointConfig{
			{Path: "/chat", Method: "POST", Limit: 30, Window: time.Minute, Burst: 2},
		},
	}
}

func TestAllow_BurstThenLimited(t *testing.T) {
	l := NewLimiter(testConfig())
	defer l.Stop()

	for i := 0; i < 2; i++ {
		allowed, _ := l.Allow("1.2.3.4", "/chat", "POST")
		if !allowed {
			t.Fatalf("request %d within burst should be allowed", i+1)
		}
	}

	allowed, info := l.Allow("1.2.3.4", "/chat", "POST")
	if allowed {
		t.Fatal("request beyond burst should be limited")
	}
	if info.Limit != 30 {
		t.Errorf("Limit = %d, expected 30", info.Limit)
	}
	if info.RetryAfter <= 0 {
		t.Error("RetryAfter should be positive when limited")
	}
}

func TestAllow_ClientsAreIndependent(t *testing.T) {
	l := NewLimiter(testConfig())
	defer l.Stop()

	l.Allow("1.1.1.1", "/chat", "POST")
	l.Allow("1.1.1.1", "/chat", "POST")
	if allowed, _ := l.Allow("1.1.1.1", "/chat", "POST"); allowed {
		t.Fatal("first client should be exhausted")
	}

	if allowed, _ := l.Allow("2.2.2.2", "/chat", "POST"); !allowed {
		t.Fatal("second client should have its own bucket")
	}
}

func TestAllow_DisabledAndLists(t *testing.T) {
	disabled := NewLimiter(&Config{Enabled: false})
	defer disabled.Stop()
	if allowed, _ := disabled.Allow("1.2.3.4", "/chat", "POST"); !allowed {
		t.Error("disabled limiter should allow everything")
	}

	cfg := testConfig()
	cfg.Whitelist["9.9.9.9"] = true
	cfg.Blacklist["6.6.6.6"] = true
	l := NewLimiter(cfg)
	defer l.Stop()

	for i := 0; i < 10; i++ {
		if allowed, _ := l.Allow("9.9.9.9", "/chat", "POST"); !allowed {
			t.Fatal("whitelisted client should never be limited")
		}
	}
	if allowed, _ := l.Allow("6.6.6.6", "/health", "GET"); allowed {
		t.Error("blacklisted client should always be rejected")
	}
}

func TestAllow_HealthIsUnlimited(t *testing.T) {
	l := NewLimiter(testConfig())
	defer l.Stop()

	for i := 0; i < 500; i++ {
		if allowed, _ := l.Allow("1.2.3.4", "/health", "GET"); !allowed {
			t.Fatal("health check should never be limited")
		}
	}
}

func TestAllow_UnknownEndpointUsesDefault(t *testing.T) {
	cfg := testConfig()
	cfg.DefaultLimit = 1
	l := NewLimiter(cfg)
	defer l.Stop()

	if allowed, _ := l.Allow("1.2.3.4", "/videos", "GET"); !allowed {
		t.Fatal("first request should pass")
	}
	if allowed, info := l.Allow("1.2.3.4", "/videos", "GET"); allowed {
		t.Fatal("second request should hit the default limit")
	} else if info.Limit != 1 {
		t.Errorf("Limit = %d, expected 1", info.Limit)
	}
}

func TestMatchEndpoint(t *testing.T) {
	configs := []EndpointConfig{
		{Path: "/chat", Method: "POST", Limit: 30},
		{Path: "/videos/", Method: "DELETE", Limit: 10},
	}

	if m := MatchEndpoint("/chat", "POST", configs); m == nil || m.Limit != 30 {
		t.Error("exact match failed")
	}
	if m := MatchEndpoint("/videos/abc", "DELETE", configs); m == nil || m.Limit != 10 {
		t.Error("prefix match failed")
	}
	if m := MatchEndpoint("/chat", "GET", configs); m != nil {
		t.Error("method mismatch should not match")
	}
	if m := MatchEndpoint("/health", "GET", configs); m == nil || m.Limit != 0 {
		t.Error("health should return the unlimited config")
	}
}

func TestTokenBucket_Refills(t *testing.T) {
	tb := newTokenBucket(1, 1000) // refills in ~1ms

	if allowed, _, _ := tb.take(); !allowed {
		t.Fatal("first take should succeed")
	}
	if allowed, _, _ := tb.take(); allowed {
		t.Fatal("bucket should be empty")
	}

	time.Sleep(5 * time.Millisecond)
	if allowed, _, _ := tb.take(); !allowed {
		t.Fatal("bucket should have refilled")
	}
}
