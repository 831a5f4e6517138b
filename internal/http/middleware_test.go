package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

func TestCorrelationIDMiddleware_GeneratesID(t *testing.T) {
	var seenID string
	handler := CorrelationIDMiddleware(zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenID, _ = r.Context().Value("correlation_id").(string)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/extremes", nil))

	if seenID == "" {
		t.Error("correlation ID missing from request context")
	}
	if got := rec.Header().Get("X-Correlation-ID"); got != seenID {
		t.Errorf("response header %q does not match context value %q", got, seenID)
	}
}

func TestCorrelationIDMiddleware_PropagatesIncomingID(t *testing.T) {
	var seenID string
	handler := CorrelationIDMiddleware(zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenID, _ = r.Context().Value("correlation_id").(string)
	}))

	req := httptest.NewRequest("GET", "/extremes", nil)
	req.Header.Set("X-Correlation-ID", "caller-supplied-id")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if seenID != "caller-supplied-id" {
		t.Errorf("context ID = %q, want caller-supplied-id", seenID)
	}
	if got := rec.Header().Get("X-Correlation-ID"); got != "caller-supplied-id" {
		t.Errorf("response header = %q, want caller-supplied-id", got)
	}
}

func TestCorrelationIDMiddleware_AttachesLogger(t *testing.T) {
	var gotLogger *zap.Logger
	handler := CorrelationIDMiddleware(zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotLogger, _ = r.Context().Value("logger").(*zap.Logger)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/health", nil))

	if gotLogger == nil {
		t.Error("request-scoped logger missing from context")
	}
}

func TestGetRoute(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/health", "/health"},
		{"/metrics", "/metrics"},
		{"/extremes", "/extremes"},
		{"/extremes/2024-03-05", "/extremes/{date}"},
		{"/archive/2024-03-05", "/archive/{date}"},
		{"/unknown", "/unknown"},
	}
	for _, tt := range tests {
		req := httptest.NewRequest("GET", tt.path, nil)
		if got := getRoute(req); got != tt.want {
			t.Errorf("getRoute(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	limiter := rate.NewLimiter(rate.Limit(1), 2)
	mw := RateLimitMiddleware(limiter)
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	statuses := make([]int, 0, 4)
	for i := 0; i < 4; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest("GET", "/extremes", nil))
		statuses = append(statuses, rec.Code)
	}

	// burst of 2 allowed, rest denied
	if statuses[0] != http.StatusOK || statuses[1] != http.StatusOK {
		t.Errorf("first two requests = %v, want both 200", statuses[:2])
	}
	if statuses[2] != http.StatusTooManyRequests || statuses[3] != http.StatusTooManyRequests {
		t.Errorf("remaining requests = %v, want both 429", statuses[2:])
	}
}

func TestRateLimitMiddleware_NilLimiterDisables(t *testing.T) {
	handler := RateLimitMiddleware(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 50; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest("GET", "/extremes", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d = %d, want 200", i, rec.Code)
		}
	}
}

func TestTimeoutMiddleware(t *testing.T) {
	var deadlineSet bool
	handler := TimeoutMiddleware(5 * time.Second)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, deadlineSet = r.Context().Deadline()
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/extremes", nil))

	if !deadlineSet {
		t.Error("request context has no deadline")
	}
}

func TestMetricsMiddleware_PassesThrough(t *testing.T) {
	router := mux.NewRouter()
	router.Use(MetricsMiddleware)
	router.HandleFunc("/extremes/{date}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/extremes/2024-03-05", nil))

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want recorded 404 to pass through", rec.Code)
	}
}
