// Package session 当前登录态（token + user）。一个进程一个 Session，通过构造注入给各功能模块。
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"skilllink-client/internal/core/auth"
	"skilllink-client/internal/core/events"
	"skilllink-client/internal/core/store"
	"skilllink-client/internal/domain"
	"skilllink-client/pkg/validation"
)

var (
	ErrNotAuthenticated = errors.New("not signed in")
	ErrInvalidInput     = errors.New("invalid input")
)

// AuthAPI 由 *service.AuthService 实现
type AuthAPI interface {
	Register(ctx context.Context, in domain.RegisterRequest) (*domain.AuthResponse, error)
	Login(ctx context.Context, in domain.Credentials) (*domain.AuthResponse, error)
	Profile(ctx context.Context, token string) (*domain.User, error)
}

type Listener = func(u *domain.User)

type Session struct {
	api      AuthAPI
	store    store.Store
	log      *zap.Logger
	validate *validator.Validate

	mu        sync.RWMutex
	token     string
	user      *domain.User
	listeners map[int]Listener
	nextID    int

	ready     chan struct{}
	readyOnce sync.Once
	unsub     func()
}

func New(api AuthAPI, st store.Store, bus *events.Bus, validate *validator.Validate, l *zap.Logger) *Session {
	s := &Session{
		api:       api,
		store:     st,
		log:       l,
		validate:  validate,
		listeners: map[int]Listener{},
		ready:     make(chan struct{}),
	}
	if bus != nil {
		s.unsub = bus.Subscribe(events.ForcedLogout, func(e events.Event) {
			s.log.Info("session dropped by server", zap.Int("status", e.Status))
			_ = s.Logout(context.Background())
		})
	}
	return s
}

// Bootstrap 有已保存的 token 就去 /users/me 换用户；失败静默清掉。完成后 Ready 关闭。
func (s *Session) Bootstrap(ctx context.Context) error {
	defer s.markReady()

	token, ok, err := s.store.Get(ctx, store.KeyToken)
	if err != nil {
		return fmt.Errorf("read persisted token: %w", err)
	}
	if !ok || token == "" {
		return nil
	}

	u, err := s.api.Profile(ctx, token)
	if err != nil {
		s.log.Warn("failed to bootstrap user", zap.Error(err))
		if derr := s.store.Delete(ctx, store.KeyToken); derr != nil {
			s.log.Warn("clear token failed", zap.Error(derr))
		}
		s.clear()
		return nil
	}

	s.mu.Lock()
	s.token, s.user = token, u
	s.mu.Unlock()
	s.notify(u)
	return nil
}

func (s *Session) markReady() { s.readyOnce.Do(func() { close(s.ready) }) }

// Ready 启动校验结束后关闭
func (s *Session) Ready() <-chan struct{} { return s.ready }

func (s *Session) Loading() bool {
	select {
	case <-s.ready:
		return false
	default:
		return true
	}
}

// User 返回副本；未登录为 nil
func (s *Session) User() *domain.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *Session) Authenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user != nil && s.token != ""
}

func (s *Session) Capabilities() domain.Capabilities {
	return domain.CapabilitiesFor(s.User())
}

// Login 成功后先持久化 token，再一次性写入 token + user
func (s *Session) Login(ctx context.Context, in domain.Credentials) (*domain.User, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidInput, validation.Message(err))
	}
	res, err := s.api.Login(ctx, in)
	if err != nil {
		return nil, err
	}
	if err := s.store.Set(ctx, store.KeyToken, res.Token); err != nil {
		return nil, fmt.Errorf("persist token: %w", err)
	}
	u := res.User
	s.mu.Lock()
	s.token, s.user = res.Token, &u
	s.mu.Unlock()
	s.log.Info("signed in", zap.Int64("user_id", u.ID), zap.String("role", string(u.Role)))
	s.notify(&u)
	return &u, nil
}

// Register 只注册，不建立会话；调用方随后自行登录
func (s *Session) Register(ctx context.Context, in domain.RegisterRequest) (*domain.User, error) {
	if r, ok := domain.ParseRole(string(in.Role)); ok {
		in.Role = r
	}
	if err := s.validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidInput, validation.Message(err))
	}
	res, err := s.api.Register(ctx, in)
	if err != nil {
		return nil, err
	}
	return &res.User, nil
}

// Logout 无条件清理，可重复调用
func (s *Session) Logout(ctx context.Context) error {
	err := s.store.Delete(ctx, store.KeyToken)
	if s.clear() {
		s.log.Info("signed out")
	}
	if err != nil {
		return fmt.Errorf("clear persisted token: %w", err)
	}
	return nil
}

// clear 返回之前是否有用户
func (s *Session) clear() bool {
	s.mu.Lock()
	had := s.user != nil || s.token != ""
	s.token, s.user = "", nil
	s.mu.Unlock()
	if had {
		s.notify(nil)
	}
	return had
}

// SetUser 资料更新后回写；id 不一致时忽略
func (s *Session) SetUser(u domain.User) {
	s.mu.Lock()
	if s.user == nil || s.user.ID != u.ID {
		s.mu.Unlock()
		return
	}
	s.user = &u
	s.mu.Unlock()
	s.notify(&u)
}

// Claims 解码当前 token（不验签）
func (s *Session) Claims() (*auth.Claims, error) {
	tok := s.Token()
	if tok == "" {
		return nil, ErrNotAuthenticated
	}
	return auth.Inspect(tok)
}

// Subscribe 用户/角色变化时回调，登出时参数为 nil
func (s *Session) Subscribe(fn Listener) (cancel func()) {
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.listeners[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

func (s *Session) notify(u *domain.User) {
	s.mu.RLock()
	fns := make([]Listener, 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.RUnlock()
	for _, fn := range fns {
		if u == nil {
			fn(nil)
			continue
		}
		cp := *u
		fn(&cp)
	}
}

func (s *Session) Close() {
	if s.unsub != nil {
		s.unsub()
	}
}
