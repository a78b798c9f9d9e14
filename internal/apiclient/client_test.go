package apiclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skilllink-client/internal/core/config"
	"skilllink-client/internal/core/events"
	"skilllink-client/internal/core/store"
)

func init() { gin.SetMode(gin.TestMode) }

type fixture struct {
	client *Client
	store  *store.Memory
	bus    *events.Bus
	reg    *prometheus.Registry
}

func newFixture(t *testing.T, r *gin.Engine) *fixture {
	t.Helper()
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	f := &fixture{store: store.NewMemory(), bus: events.NewBus(), reg: prometheus.NewRegistry()}
	f.client = New(config.API{BaseURL: srv.URL + "/api/", TimeoutSec: 5}, f.store, f.bus, WithRegisterer(f.reg))
	return f
}

func TestDo_AttachesBearerFromStore(t *testing.T) {
	var gotAuth, gotRID string
	r := gin.New()
	r.GET("/api/users/me", func(c *gin.Context) {
		gotAuth = c.GetHeader("Authorization")
		gotRID = c.GetHeader(HeaderRequestID)
		c.JSON(http.StatusOK, gin.H{"id": 1, "name": "Asha"})
	})
	f := newFixture(t, r)
	require.NoError(t, f.store.Set(context.Background(), store.KeyToken, "tok-1"))

	var out struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	}
	require.NoError(t, f.client.Get(context.Background(), "/users/me", &out))
	assert.Equal(t, "Bearer tok-1", gotAuth)
	assert.NotEmpty(t, gotRID)
	assert.Equal(t, "Asha", out.Name)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.client.m.requests.WithLabelValues("GET", "/users/me", "200")))
}

func TestDo_PropagatesRequestID(t *testing.T) {
	var gotRID string
	r := gin.New()
	r.GET("/api/jobs", func(c *gin.Context) {
		gotRID = c.GetHeader(HeaderRequestID)
		c.JSON(http.StatusOK, []gin.H{})
	})
	f := newFixture(t, r)
	ctx := ContextWithRequestID(context.Background(), "rid-from-console")
	require.NoError(t, f.client.Get(ctx, "/jobs", nil))
	assert.Equal(t, "rid-from-console", gotRID)
}

func TestDo_NoTokenNoHeader(t *testing.T) {
	var had bool
	r := gin.New()
	r.GET("/api/jobs", func(c *gin.Context) {
		_, had = c.Request.Header["Authorization"]
		c.JSON(http.StatusOK, []gin.H{})
	})
	f := newFixture(t, r)
	require.NoError(t, f.client.Get(context.Background(), "/jobs", nil))
	assert.False(t, had)
}

func TestDo_TokenOverride(t *testing.T) {
	var gotAuth string
	r := gin.New()
	r.GET("/api/users/me", func(c *gin.Context) {
		gotAuth = c.GetHeader("Authorization")
		c.JSON(http.StatusOK, gin.H{})
	})
	f := newFixture(t, r)
	require.NoError(t, f.store.Set(context.Background(), store.KeyToken, "stored"))
	require.NoError(t, f.client.Get(context.Background(), "/users/me", nil, WithToken("explicit")))
	assert.Equal(t, "Bearer explicit", gotAuth)
}

func TestDo_ForcedLogoutOn401And403(t *testing.T) {
	for _, status := range []int{http.StatusUnauthorized, http.StatusForbidden} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			r := gin.New()
			r.PUT("/api/applications/:id/status", func(c *gin.Context) {
				c.JSON(status, gin.H{"timestamp": "2024-01-01T00:00:00", "status": status, "message": "nope"})
			})
			f := newFixture(t, r)
			ctx := context.Background()
			require.NoError(t, f.store.Set(ctx, store.KeyToken, "stale"))

			var seen []events.Event
			f.bus.Subscribe(events.ForcedLogout, func(e events.Event) {
				// 广播时 token 已被清掉
				_, ok, _ := f.store.Get(ctx, store.KeyToken)
				assert.False(t, ok)
				seen = append(seen, e)
			})

			err := f.client.Put(ctx, "/applications/:id/status", gin.H{"status": "ACCEPTED"}, nil, WithParams(9))
			var ae *APIError
			require.True(t, errors.As(err, &ae))
			assert.Equal(t, status, ae.Status)
			assert.Equal(t, "nope", ae.Message)
			assert.Equal(t, "/applications/:id/status", ae.Route)
			require.Len(t, seen, 1)
			assert.Equal(t, status, seen[0].Status)
			assert.Equal(t, 1.0, testutil.ToFloat64(f.client.m.logouts))
		})
	}
}

func TestDo_ServerErrorKeepsToken(t *testing.T) {
	r := gin.New()
	r.POST("/api/jobs", func(c *gin.Context) {
		c.JSON(http.StatusBadRequest, gin.H{"status": 400, "message": "Budget must be positive"})
	})
	r.GET("/api/courses", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })
	f := newFixture(t, r)
	ctx := context.Background()
	require.NoError(t, f.store.Set(ctx, store.KeyToken, "tok"))
	f.bus.Subscribe(events.ForcedLogout, func(events.Event) { t.Fatal("unexpected logout") })

	err := f.client.Post(ctx, "/jobs", gin.H{"title": "x"}, nil)
	assert.Equal(t, "Budget must be positive", Message(err, "Failed to create job."))
	assert.Equal(t, http.StatusBadRequest, StatusOf(err))

	err = f.client.Get(ctx, "/courses", nil)
	assert.Equal(t, "Unable to load courses right now.", Message(err, "Unable to load courses right now."))
	assert.False(t, IsUnauthenticated(err))

	_, ok, _ := f.store.Get(ctx, store.KeyToken)
	assert.True(t, ok)
}

func TestDo_NetworkError(t *testing.T) {
	f := &fixture{store: store.NewMemory(), bus: events.NewBus()}
	c := New(config.API{BaseURL: "http://127.0.0.1:1", TimeoutSec: 1}, f.store, f.bus)
	err := c.Get(context.Background(), "/jobs", nil)
	require.Error(t, err)
	assert.Zero(t, StatusOf(err))
	assert.Equal(t, "fallback", Message(err, "fallback"))
}

func TestExpand(t *testing.T) {
	p, err := Expand("/jobs/:id/details", 42)
	require.NoError(t, err)
	assert.Equal(t, "/jobs/42/details", p)

	p, err = Expand("/jobs")
	require.NoError(t, err)
	assert.Equal(t, "/jobs", p)

	_, err = Expand("/users/:id")
	assert.Error(t, err)
	_, err = Expand("/jobs", 1)
	assert.Error(t, err)
}

func TestAPIError_Error(t *testing.T) {
	e := &APIError{Status: 404, Method: "GET", Route: "/users/:id"}
	assert.Equal(t, "GET /users/:id: 404 Not Found", e.Error())
	e.Message = "User not found"
	assert.Equal(t, "GET /users/:id: 404 User not found", e.Error())
}
