package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/NICValidator/internal/config"
)

func echoRemoteAddr(w http.ResponseWriter, r *http.Request) {
	_, _ = w.Write([]byte(r.RemoteAddr))
}

func TestTrustedRealIP(t *testing.T) {
	handler := TrustedRealIP([]string{"10.0.0.0/8", "192.168.1.5", "not-a-cidr", " "})(http.HandlerFunc(echoRemoteAddr))

	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		want       string
	}{
		{"untrusted ignores header", "203.0.113.9:5000", map[string]string{"X-Real-IP": "1.2.3.4"}, "203.0.113.9:5000"},
		{"trusted cidr real ip", "10.1.2.3:5000", map[string]string{"X-Real-IP": "1.2.3.4"}, "1.2.3.4"},
		{"trusted single address", "192.168.1.5:80", map[string]string{"X-Real-IP": "1.2.3.4"}, "1.2.3.4"},
		{"neighbour of single address", "192.168.1.6:80", map[string]string{"X-Real-IP": "1.2.3.4"}, "192.168.1.6:80"},
		{"forwarded for skips trusted hops", "10.0.0.1:1", map[string]string{"X-Forwarded-For": "5.6.7.8, 10.0.0.2"}, "5.6.7.8"},
		{"spoofed forwarded for ignored", "10.0.0.1:1", map[string]string{"X-Forwarded-For": "1.1.1.1, 5.6.7.8"}, "5.6.7.8"},
		{"spoofed behind two proxies", "10.0.0.1:1", map[string]string{"X-Forwarded-For": "1.1.1.1, 5.6.7.8, 10.9.9.9"}, "5.6.7.8"},
		{"only proxies forwarded", "10.0.0.1:1", map[string]string{"X-Forwarded-For": "10.0.0.3, 10.0.0.2"}, "10.0.0.3"},
		{"garbage hop stops walk", "10.0.0.1:1", map[string]string{"X-Forwarded-For": "5.6.7.8, junk"}, "10.0.0.1:1"},
		{"real ip wins", "10.0.0.1:1", map[string]string{"X-Real-IP": "1.1.1.1", "X-Forwarded-For": "5.6.7.8"}, "1.1.1.1"},
		{"invalid header ignored", "10.0.0.1:1", map[string]string{"X-Real-IP": "garbage"}, "10.0.0.1:1"},
		{"no header", "10.0.0.1:1", nil, "10.0.0.1:1"},
		{"mapped ipv4 remote", "[::ffff:10.0.0.1]:1", map[string]string{"X-Real-IP": "1.2.3.4"}, "1.2.3.4"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if got := rec.Body.String(); got != tt.want {
				t.Errorf("RemoteAddr = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAPIKeyAuth(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })

	tests := []struct {
		name string
		cfg  config.SecurityConfig
		key  string
		want int
		code string
	}{
		{"disabled", config.SecurityConfig{}, "", http.StatusNoContent, ""},
		{"missing", config.SecurityConfig{RequireAPIKey: true, APIKeys: []string{"a"}}, "", http.StatusUnauthorized, "AUTH_MISSING_KEY"},
		{"wrong", config.SecurityConfig{RequireAPIKey: true, APIKeys: []string{"a"}}, "b", http.StatusForbidden, "AUTH_INVALID_KEY"},
		{"second key", config.SecurityConfig{RequireAPIKey: true, APIKeys: []string{"a", "b"}}, "b", http.StatusNoContent, ""},
		{"no keys configured", config.SecurityConfig{RequireAPIKey: true}, "a", http.StatusForbidden, "AUTH_INVALID_KEY"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/nic-validation", nil)
			if tt.key != "" {
				req.Header.Set("X-API-Key", tt.key)
			}
			rec := httptest.NewRecorder()
			APIKeyAuth(&tt.cfg)(ok).ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}
			if tt.code != "" && !strings.Contains(rec.Body.String(), `"code":"`+tt.code+`"`) {
				t.Errorf("body %s missing code %s", rec.Body.String(), tt.code)
			}
		})
	}
}

func TestResponseWriter(t *testing.T) {
	rec := httptest.NewRecorder()
	w := wrapResponseWriter(rec)

	w.WriteHeader(http.StatusCreated)
	w.WriteHeader(http.StatusInternalServerError) // ignored
	_, _ = w.Write([]byte("hello"))
	_, _ = w.Write([]byte(" world"))

	if w.status != http.StatusCreated || rec.Code != http.StatusCreated {
		t.Errorf("status = %d / %d, want 201", w.status, rec.Code)
	}
	if w.bytes != 11 {
		t.Errorf("bytes = %d, want 11", w.bytes)
	}
	if w.Unwrap() != rec {
		t.Error("Unwrap did not return the wrapped writer")
	}
}

func TestResponseWriter_ImplicitOK(t *testing.T) {
	w := wrapResponseWriter(httptest.NewRecorder())
	_, _ = w.Write([]byte("x"))
	if w.status != http.StatusOK {
		t.Errorf("status = %d, want 200", w.status)
	}
}

type observedRequest struct {
	method, route string
	status        int
}

type recordingObserver struct {
	requests []observedRequest
}

func (o *recordingObserver) ObserveRequest(method, route string, status int, _ time.Duration) {
	o.requests = append(o.requests, observedRequest{method, route, status})
}

func TestMetrics_UsesRoutePattern(t *testing.T) {
	obs := &recordingObserver{}
	r := chi.NewRouter()
	r.Use(Metrics(obs))
	r.Get("/uploads/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})

	for _, path := range []string{"/uploads/1", "/uploads/2", "/missing"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	want := []observedRequest{
		{"GET", "/uploads/{id}", http.StatusAccepted},
		{"GET", "/uploads/{id}", http.StatusAccepted},
		{"GET", unmatchedRoute, http.StatusNotFound},
	}
	if len(obs.requests) != len(want) {
		t.Fatalf("observed %d requests, want %d", len(obs.requests), len(want))
	}
	for i := range want {
		if obs.requests[i] != want[i] {
			t.Errorf("request %d = %+v, want %+v", i, obs.requests[i], want[i])
		}
	}
}

func TestLogger_PassesThrough(t *testing.T) {
	h := Logger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusTeapot {
		t.Errorf("status = %d, want 418", rec.Code)
	}
}
