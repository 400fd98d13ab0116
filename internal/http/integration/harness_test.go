package integration_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/geocoder89/hirebase/internal/account"
	"github.com/geocoder89/hirebase/internal/auth"
	apphttp "github.com/geocoder89/hirebase/internal/http"
	"github.com/geocoder89/hirebase/internal/http/handlers"
	"github.com/geocoder89/hirebase/internal/observability"
	"github.com/geocoder89/hirebase/internal/security"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/crypto/bcrypt"
)

const (
	testSecret = "integration-secret"
	apiPrefix  = "/api/v1"
	accessTTL  = 30 * time.Minute
	refreshTTL = 7 * 24 * time.Hour
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type harness struct {
	router *gin.Engine
	clock  *testClock
	reg    *prometheus.Registry
}

// newHarness wires the real service and router over the given stores.
// Token issuing, sessions and the service share one clock.
func newHarness(t *testing.T, users account.UserStore, sessions account.SessionStore, clock *testClock, checks ...handlers.HealthCheck) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))
	reg := prometheus.NewRegistry()
	prom := observability.NewProm(reg)

	svc := account.NewService(account.Deps{
		Users:    users,
		Sessions: sessions,
		Hasher:   security.NewHasher(bcrypt.MinCost),
		Tokens:   auth.NewCodec(testSecret, accessTTL, refreshTTL, auth.WithClock(clock.Now)),
		Log:      log,
	}, account.WithClock(clock.Now))

	router := apphttp.NewRouter(apphttp.Deps{
		Log:            log,
		Env:            "test",
		AppName:        "Hirebase API",
		AppVersion:     "test",
		APIPrefix:      apiPrefix,
		AllowedOrigins: []string{"http://localhost:3000"},
		MaxBodyBytes:   1 << 20,
		Accounts:       svc,
		Checks:         checks,
		Prom:           prom,
		Gatherer:       reg,
	})

	return &harness{router: router, clock: clock, reg: reg}
}

func (h *harness) do(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()

	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		rdr = bytes.NewReader(b)
	}

	req := httptest.NewRequest(method, path, rdr)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()

	var out T
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v body=%s", err, w.Body.String())
	}
	return out
}

type errorEnvelope struct {
	Error struct {
		Code      string `json:"code"`
		Message   string `json:"message"`
		RequestID string `json:"requestId"`
	} `json:"error"`
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[errorEnvelope](t, w).Error.Code
}

func registerBody(email string) map[string]any {
	return map[string]any{
		"email":      email,
		"password":   "correct-horse-battery",
		"first_name": "Grace",
		"last_name":  "Hopper",
	}
}

func expectStatus(t *testing.T, w *httptest.ResponseRecorder, want int) {
	t.Helper()
	if w.Code != want {
		t.Fatalf("status = %d, want %d, body=%s", w.Code, want, w.Body.String())
	}
}
