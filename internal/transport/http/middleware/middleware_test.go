package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/time/rate"

	"skilllink-client/internal/apiclient"
	"skilllink-client/internal/core/auth"
	"skilllink-client/internal/domain"
	"skilllink-client/internal/theme"
	resp "skilllink-client/internal/transport/http/response"
)

func engine(mw ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(mw...)
	r.GET("/ping", func(c *gin.Context) { c.JSON(http.StatusOK, resp.OK(gin.H{"pong": true})) })
	return r
}

func serve(r http.Handler, method, path string, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func codeOf(t *testing.T, w *httptest.ResponseRecorder) int {
	t.Helper()
	var env resp.Resp
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env.Code
}

func TestRequestID_GeneratesAndPropagates(t *testing.T) {
	var seen string
	r := engine(RequestID())
	r.GET("/rid", func(c *gin.Context) {
		seen = c.GetString(KeyRequestID)
		c.Status(http.StatusNoContent)
	})

	w := serve(r, http.MethodGet, "/rid", "")
	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, w.Header().Get(KeyRequestID))
	assert.Equal(t, apiclient.HeaderRequestID, KeyRequestID)
}

func TestReadyGate(t *testing.T) {
	ready := make(chan struct{})
	r := engine(ReadyGate(ready, "/health"))
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, resp.OK(nil)) })

	assert.Equal(t, resp.CodeLoading, codeOf(t, serve(r, http.MethodGet, "/ping", "")))
	assert.Equal(t, resp.CodeOK, codeOf(t, serve(r, http.MethodGet, "/health", "")))

	close(ready)
	assert.Equal(t, resp.CodeOK, codeOf(t, serve(r, http.MethodGet, "/ping", "")))
}

func TestRateLimit(t *testing.T) {
	r := engine(RateLimit(rate.Every(time.Hour), 1))
	assert.Equal(t, resp.CodeOK, codeOf(t, serve(r, http.MethodGet, "/ping", "")))
	assert.Equal(t, resp.CodeTooManyRequests, codeOf(t, serve(r, http.MethodGet, "/ping", "")))

	unlimited := engine(RateLimit(0, 0))
	for range 5 {
		assert.Equal(t, resp.CodeOK, codeOf(t, serve(unlimited, http.MethodGet, "/ping", "")))
	}
}

func TestConcurrencyLimit_RejectsWhenBusy(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	r := engine(ConcurrencyLimit(1))
	r.GET("/slow", func(c *gin.Context) {
		close(entered)
		<-release
		c.JSON(http.StatusOK, resp.OK(nil))
	})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		serve(r, http.MethodGet, "/slow", "")
	}()
	<-entered
	w := serve(r, http.MethodGet, "/ping", "")
	assert.Equal(t, resp.CodeTooManyRequests, codeOf(t, w))
	close(release)
	wg.Wait()

	assert.Equal(t, resp.CodeOK, codeOf(t, serve(r, http.MethodGet, "/ping", "")))
}

func TestRecovery(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	r := engine(Recovery(zap.New(core)))
	r.GET("/boom", func(c *gin.Context) { panic("boom") })

	w := serve(r, http.MethodGet, "/boom", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, resp.CodeServerError, codeOf(t, w))
	assert.Equal(t, 1, logs.FilterMessage("panic recovered").Len())
}

func TestTimeout(t *testing.T) {
	r := engine(Timeout(20 * time.Millisecond))
	r.GET("/wait", func(c *gin.Context) { <-c.Request.Context().Done() })
	assert.Equal(t, resp.CodeTimeout, codeOf(t, serve(r, http.MethodGet, "/wait", "")))
	assert.Equal(t, resp.CodeOK, codeOf(t, serve(r, http.MethodGet, "/ping", "")))
}

func TestThemeMirror(t *testing.T) {
	m := NewThemeMirror()
	r := engine(m.Handler())
	assert.Equal(t, "light", serve(r, http.MethodGet, "/ping", "").Header().Get(HeaderTheme))

	m.ApplyTheme(theme.Dark)
	assert.Equal(t, theme.Dark, m.Mode())
	assert.Equal(t, "dark", serve(r, http.MethodGet, "/ping", "").Header().Get(HeaderTheme))
}

type fakeIdentity struct {
	u     *domain.User
	token string
}

func (f fakeIdentity) User() *domain.User { return f.u }
func (f fakeIdentity) Token() string      { return f.token }

func TestSessionIdentity(t *testing.T) {
	signer := &auth.Signer{Secret: []byte("k"), Issuer: "skilllink", TTL: time.Hour}
	token, err := signer.Issue("ravi@example.com", "FREELANCER")
	require.NoError(t, err)

	var (
		uid  int64
		caps domain.Capabilities
	)
	handler := func(c *gin.Context) {
		uid = c.GetInt64(KeyUserID)
		v, _ := c.Get(KeyCaps)
		caps, _ = v.(domain.Capabilities)
		c.Status(http.StatusNoContent)
	}

	u := &domain.User{ID: 7, Name: "Ravi", Role: domain.RoleFreelancer}
	r := engine(SessionIdentity(fakeIdentity{u: u, token: token}))
	r.GET("/me", handler)
	w := serve(r, http.MethodGet, "/me", "")
	assert.Equal(t, int64(7), uid)
	assert.True(t, caps.CanApply)
	assert.NotEmpty(t, w.Header().Get(HeaderExpiry))

	uid = -1
	anon := engine(SessionIdentity(fakeIdentity{}))
	anon.GET("/me", handler)
	serve(anon, http.MethodGet, "/me", "")
	assert.Equal(t, int64(0), uid)
}

func TestAccessLog_MasksSecrets(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	r := engine(RequestID(), AccessLog(zap.New(core)))

	serve(r, http.MethodGet, "/ping?token=abc&q=go", "")
	entries := logs.FilterMessage("console").All()
	require.Len(t, entries, 1)
	f := entries[0].ContextMap()
	assert.Equal(t, "/ping", f["path"])
	assert.EqualValues(t, 200, f["status"])
	q := f["query"].(map[string][]string)
	assert.Equal(t, []string{"****"}, q["token"])
	assert.Equal(t, []string{"go"}, q["q"])
}

func TestMetrics_CountsByEnvelopeCode(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := engine(Metrics(reg))
	r.GET("/denied", func(c *gin.Context) {
		c.Set(KeyCode, resp.CodeForbidden)
		c.JSON(http.StatusOK, resp.Error(resp.CodeForbidden, ""))
	})
	serve(r, http.MethodGet, "/denied", "")
	serve(r, http.MethodGet, "/denied", "")

	n, err := testutil.GatherAndCount(reg, "skilllink_console_requests_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	mfs, err := reg.Gather()
	require.NoError(t, err)
	var got float64
	for _, mf := range mfs {
		if mf.GetName() != "skilllink_console_requests_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if lp.GetName() == "code" && lp.GetValue() == "403" {
					got = m.GetCounter().GetValue()
				}
			}
		}
	}
	assert.Equal(t, float64(2), got)
}
