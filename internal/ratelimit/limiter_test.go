package ratelimit

import (
	"net/http/httptest"
	"testing"
	"time"
)

type fakeClock struct {
	now time.Time
}

func (f *fakeClock) Now() time.Time { return f.now }

func (f *fakeClock) advance(d time.Duration) { f.now = f.now.Add(d) }

func newTestLimiter(max int) (*Limiter, *fakeClock) {
	clock := &fakeClock{now: time.Date(2026, 3, 14, 19, 0, 0, 0, time.UTC)}
	limiter := New(&Config{WriteMaxPerMinute: max, Clock: clock})
	return limiter, clock
}

func TestCheckWriteUnderLimit(t *testing.T) {
	limiter, _ := newTestLimiter(3)
	defer limiter.Close()

	for i := 0; i < 3; i++ {
		result := limiter.CheckWrite("1.2.3.4")
		if !result.Allowed {
			t.Fatalf("request %d denied under limit", i+1)
		}
		limiter.RecordWrite("1.2.3.4")
	}
}

func TestCheckWriteOverLimit(t *testing.T) {
	limiter, clock := newTestLimiter(2)
	defer limiter.Close()

	limiter.RecordWrite("1.2.3.4")
	limiter.RecordWrite("1.2.3.4")

	result := limiter.CheckWrite("1.2.3.4")
	if result.Allowed {
		t.Fatal("third write within the minute should be denied")
	}
	if result.RetryAfter <= 0 || result.RetryAfter > time.Minute {
		t.Errorf("RetryAfter = %v", result.RetryAfter)
	}

	// Another IP is unaffected.
	if !limiter.CheckWrite("5.6.7.8").Allowed {
		t.Error("unrelated IP throttled")
	}

	// The window rolls over.
	clock.advance(time.Minute)
	if !limiter.CheckWrite("1.2.3.4").Allowed {
		t.Error("write denied after the window expired")
	}
}

func TestCleanupDropsStaleEntries(t *testing.T) {
	limiter, clock := newTestLimiter(10)
	defer limiter.Close()

	limiter.RecordWrite("1.2.3.4")
	clock.advance(2 * time.Hour)
	limiter.cleanup()

	limiter.mu.RLock()
	defer limiter.mu.RUnlock()
	if len(limiter.writeByIP) != 0 {
		t.Errorf("stale entries remain: %d", len(limiter.writeByIP))
	}
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		xff        string
		trustProxy bool
		want       string
	}{
		{"direct", "203.0.113.7:54321", "", false, "203.0.113.7"},
		{"spoofed xff ignored", "203.0.113.7:54321", "8.8.8.8", false, "203.0.113.7"},
		{"trusted proxy", "10.0.0.1:80", "198.51.100.2, 10.0.0.1", true, "198.51.100.2"},
		{"all private uses last", "10.0.0.1:80", "192.168.1.5, 10.0.0.2", true, "10.0.0.2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("POST", "/", nil)
			r.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			if got := GetClientIP(r, tt.trustProxy); got != tt.want {
				t.Errorf("GetClientIP = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIsPrivateIP(t *testing.T) {
	tests := []struct {
		ip   string
		want bool
	}{
		{"192.168.1.1", true},
		{"10.255.0.1", true},
		{"127.0.0.1", true},
		{"::ffff:192.168.1.1", true},
		{"8.8.8.8", false},
		{"not-an-ip", false},
	}
	for _, tt := range tests {
		if got := isPrivateIP(tt.ip); got != tt.want {
			t.Errorf("isPrivateIP(%q) = %v, want %v", tt.ip, got, tt.want)
		}
	}
}
