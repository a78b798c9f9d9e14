package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"skilllink-client/internal/core/config"
	"skilllink-client/internal/core/events"
	"skilllink-client/internal/core/store"
)

const HeaderRequestID = "X-Request-ID"

type ridKey struct{}

// ContextWithRequestID 上游（console）的请求 id 透传给后端
func ContextWithRequestID(ctx context.Context, rid string) context.Context {
	return context.WithValue(ctx, ridKey{}, rid)
}

func requestID(ctx context.Context) string {
	if rid, _ := ctx.Value(ridKey{}).(string); rid != "" {
		return rid
	}
	return uuid.NewString()
}

// Client 所有远端调用的唯一出口：带 token、401/403 强制登出，单次尝试不重试
type Client struct {
	baseURL string
	hc      *http.Client
	store   store.Store
	bus     *events.Bus
	log     *zap.Logger
	tracer  trace.Tracer
	limiter *rate.Limiter
	m       *metrics
}

type Option func(*Client)

func WithLogger(l *zap.Logger) Option       { return func(c *Client) { c.log = l } }
func WithTracer(t trace.Tracer) Option      { return func(c *Client) { c.tracer = t } }
func WithHTTPClient(hc *http.Client) Option { return func(c *Client) { c.hc = hc } }
func WithRegisterer(r prometheus.Registerer) Option {
	return func(c *Client) { c.m = newMetrics(r) }
}

func New(cfg config.API, st store.Store, bus *events.Bus, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		hc:      &http.Client{Timeout: cfg.Timeout()},
		store:   st,
		bus:     bus,
		log:     zap.NewNop(),
		tracer:  noop.NewTracerProvider().Tracer(""),
	}
	if cfg.RateLimit > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), max(1, cfg.Burst))
	}
	for _, o := range opts {
		o(c)
	}
	if c.m == nil {
		c.m = newMetrics(prometheus.NewRegistry())
	}
	return c
}

type callOpts struct {
	token    string
	override bool
	params   []int64
}

type CallOption func(*callOpts)

// WithToken 用指定 token 代替存储里的（启动时校验已保存的 token）
func WithToken(token string) CallOption {
	return func(o *callOpts) { o.token, o.override = token, true }
}

// WithParams 依次替换路由模板里的 :xxx 段
func WithParams(ids ...int64) CallOption {
	return func(o *callOpts) { o.params = append(o.params, ids...) }
}

// Expand 把 /jobs/:id/details 展开成 /jobs/7/details
func Expand(route string, ids ...int64) (string, error) {
	segs := strings.Split(route, "/")
	n := 0
	for i, s := range segs {
		if !strings.HasPrefix(s, ":") {
			continue
		}
		if n >= len(ids) {
			return "", fmt.Errorf("route %s: missing value for %s", route, s)
		}
		segs[i] = strconv.FormatInt(ids[n], 10)
		n++
	}
	if n != len(ids) {
		return "", fmt.Errorf("route %s: %d params given, %d used", route, len(ids), n)
	}
	return strings.Join(segs, "/"), nil
}

type errorBody struct {
	Message string `json:"message"`
}

// Do 发送一次请求。in 为 nil 时不带 body；out 为 nil 时丢弃响应体。
func (c *Client) Do(ctx context.Context, method, route string, in, out any, opts ...CallOption) (err error) {
	var co callOpts
	for _, o := range opts {
		o(&co)
	}
	path, err := Expand(route, co.params...)
	if err != nil {
		return err
	}

	ctx, span := c.tracer.Start(ctx, method+" "+route, trace.WithSpanKind(trace.SpanKindClient))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("%s %s: %w", method, route, err)
		}
	}

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, route, err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rid := requestID(ctx)
	req.Header.Set(HeaderRequestID, rid)

	token := co.token
	if !co.override {
		if token, _, err = c.store.Get(ctx, store.KeyToken); err != nil {
			return fmt.Errorf("read token: %w", err)
		}
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	span.SetAttributes(
		attribute.String("http.method", method),
		attribute.String("http.route", route),
		attribute.String("request.id", rid),
	)

	start := time.Now()
	resp, err := c.hc.Do(req)
	elapsed := time.Since(start)
	c.m.latency.WithLabelValues(method, route).Observe(elapsed.Seconds())
	if err != nil {
		c.m.requests.WithLabelValues(method, route, "error").Inc()
		c.log.Debug("api call failed", zap.String("method", method), zap.String("route", route),
			zap.String("rid", rid), zap.Duration("latency", elapsed), zap.Error(err))
		return fmt.Errorf("%s %s: %w", method, route, err)
	}
	defer resp.Body.Close()

	c.m.requests.WithLabelValues(method, route, strconv.Itoa(resp.StatusCode)).Inc()
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	c.log.Debug("api call", zap.String("method", method), zap.String("route", route),
		zap.String("path", path), zap.Int("status", resp.StatusCode),
		zap.String("rid", rid), zap.Duration("latency", elapsed))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		ae := &APIError{Status: resp.StatusCode, Method: method, Route: route}
		var eb errorBody
		if b, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10)); len(b) > 0 && json.Unmarshal(b, &eb) == nil {
			ae.Message = eb.Message
		}
		if ae.Unauthenticated() {
			c.forceLogout(ctx, ae)
		}
		return ae
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode %s %s: %w", method, route, err)
	}
	return nil
}

// forceLogout 先删持久化 token，再广播；之后才把错误交还调用方
func (c *Client) forceLogout(ctx context.Context, ae *APIError) {
	c.m.logouts.Inc()
	if err := c.store.Delete(context.WithoutCancel(ctx), store.KeyToken); err != nil {
		c.log.Warn("clear token failed", zap.Error(err))
	}
	c.log.Info("forced logout", zap.Int("status", ae.Status), zap.String("route", ae.Route))
	if c.bus != nil {
		c.bus.Publish(events.Event{Topic: events.ForcedLogout, Status: ae.Status, Reason: ae.Message})
	}
}

func (c *Client) Get(ctx context.Context, route string, out any, opts ...CallOption) error {
	return c.Do(ctx, http.MethodGet, route, nil, out, opts...)
}

func (c *Client) Post(ctx context.Context, route string, in, out any, opts ...CallOption) error {
	return c.Do(ctx, http.MethodPost, route, in, out, opts...)
}

func (c *Client) Put(ctx context.Context, route string, in, out any, opts ...CallOption) error {
	return c.Do(ctx, http.MethodPut, route, in, out, opts...)
}
