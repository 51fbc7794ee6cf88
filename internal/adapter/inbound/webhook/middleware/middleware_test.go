package middleware

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"
)

const testSecret = "8f742231b10e8888abcd99yyyzzz85a5"

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func signedRequest(t *testing.T, body, secret string, ts time.Time) *http.Request {
	t.Helper()
	stamp := strconv.FormatInt(ts.Unix(), 10)
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "v0:%s:%s", stamp, body)

	req := httptest.NewRequest(http.MethodPost, "/slack/commands", strings.NewReader(body))
	req.Header.Set("X-Slack-Request-Timestamp", stamp)
	req.Header.Set("X-Slack-Signature", "v0="+hex.EncodeToString(mac.Sum(nil)))
	return req
}

func TestSlackSignature(t *testing.T) {
	h := BodyReader(SlackSignature(testSecret)(okHandler()))
	body := "command=%2Finsight&text=help"

	tests := []struct {
		name string
		req  func() *http.Request
		want int
	}{
		{"valid", func() *http.Request { return signedRequest(t, body, testSecret, time.Now()) }, http.StatusOK},
		{"wrong secret", func() *http.Request { return signedRequest(t, body, "other", time.Now()) }, http.StatusUnauthorized},
		{"stale timestamp", func() *http.Request {
			return signedRequest(t, body, testSecret, time.Now().Add(-10*time.Minute))
		}, http.StatusUnauthorized},
		{"missing headers", func() *http.Request {
			return httptest.NewRequest(http.MethodPost, "/slack/commands", strings.NewReader(body))
		}, http.StatusUnauthorized},
		{"tampered body", func() *http.Request {
			req := signedRequest(t, body, testSecret, time.Now())
			req.Body = io.NopCloser(strings.NewReader(body + "&x=1"))
			return req
		}, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, tt.req())
			if rec.Code != tt.want {
				t.Errorf("expected %d, got %d", tt.want, rec.Code)
			}
		})
	}
}

func TestSlackSignature_WithoutBodyReader(t *testing.T) {
	rec := httptest.NewRecorder()
	SlackSignature(testSecret)(okHandler()).ServeHTTP(rec, signedRequest(t, "x", testSecret, time.Now()))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500 without buffered body, got %d", rec.Code)
	}
}

func TestBodyReader_RestoresBody(t *testing.T) {
	var seen, raw string
	h := BodyReader(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		seen = string(b)
		rb, _ := RawBody(r.Context())
		raw = string(rb)
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/", strings.NewReader("payload")))

	if seen != "payload" || raw != "payload" {
		t.Errorf("expected body readable twice, got %q and %q", seen, raw)
	}
}

func TestBodyReader_TooLarge(t *testing.T) {
	rec := httptest.NewRecorder()
	big := bytes.Repeat([]byte("a"), maxBodyBytes+1)
	BodyReader(okHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(big)))

	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("expected 413, got %d", rec.Code)
	}
}

func TestRateLimiter_PerIP(t *testing.T) {
	rl := NewRateLimiter(60, 2)
	now := time.Unix(1700000000, 0)
	rl.now = func() time.Time { return now }
	h := rl.Middleware(okHandler())

	do := func(addr string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	if do("10.0.0.1:1234") != http.StatusOK || do("10.0.0.1:1235") != http.StatusOK {
		t.Fatal("expected burst of 2 to pass")
	}
	if code := do("10.0.0.1:1236"); code != http.StatusTooManyRequests {
		t.Errorf("expected 429 after burst, got %d", code)
	}
	if code := do("10.0.0.2:1234"); code != http.StatusOK {
		t.Errorf("expected other IP unaffected, got %d", code)
	}

	now = now.Add(time.Second)
	if code := do("10.0.0.1:1237"); code != http.StatusOK {
		t.Errorf("expected token refilled after 1s, got %d", code)
	}
}

func TestRateLimiter_EvictsStaleVisitors(t *testing.T) {
	rl := NewRateLimiter(60, 1)
	now := time.Unix(1700000000, 0)
	rl.now = func() time.Time { return now }

	rl.getVisitor("10.0.0.1")
	now = now.Add(visitorMaxAge + time.Minute)
	rl.getVisitor("10.0.0.2")

	rl.mu.Lock()
	defer rl.mu.Unlock()
	if _, ok := rl.visitors["10.0.0.1"]; ok {
		t.Error("expected stale visitor evicted")
	}
	if len(rl.visitors) != 1 {
		t.Errorf("expected 1 visitor, got %d", len(rl.visitors))
	}
}

func TestRemoteIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "[::1]:8080"
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")

	if got := remoteIP(req, false); got != "::1" {
		t.Errorf("expected ::1, got %q", got)
	}
	if got := remoteIP(req, true); got != "203.0.113.9" {
		t.Errorf("expected forwarded client IP, got %q", got)
	}
}

func TestSecurityHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	SecurityHeaders(okHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("expected nosniff header")
	}
	if rec.Header().Get("X-Frame-Options") != "DENY" {
		t.Error("expected DENY frame options")
	}
}

func TestLoggingMiddleware_CapturesStatus(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	h := NewLoggingMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/slack/events", nil))

	out := buf.String()
	if !strings.Contains(out, "status=418") || !strings.Contains(out, "path=/slack/events") {
		t.Errorf("unexpected log line: %s", out)
	}
}
