// Package applications freelancer 的投递记录：状态筛选与汇总。
package applications

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"

	"go.uber.org/zap"

	"skilllink-client/internal/core/lifecycle"
	"skilllink-client/internal/domain"
	"skilllink-client/internal/feature/notice"
)

const (
	FreelancersOnly = "Applications are available for freelancers only"
	loadError       = "Unable to load applications right now."
)

var ErrNotAllowed = errors.New(strings.ToLower(FreelancersOnly))

type API interface {
	ListForFreelancer(ctx context.Context, freelancerID int64) ([]domain.Application, error)
}

type UserSource interface {
	User() *domain.User
	Subscribe(fn func(*domain.User)) (cancel func())
}

// Status 筛选值：all | applied | accepted | rejected
type Status string

const (
	StatusAll      Status = "all"
	StatusApplied  Status = "applied"
	StatusAccepted Status = "accepted"
	StatusRejected Status = "rejected"
)

func ParseStatus(s string) (Status, bool) {
	switch v := Status(strings.ToLower(strings.TrimSpace(s))); v {
	case "":
		return StatusAll, true
	case StatusAll, StatusApplied, StatusAccepted, StatusRejected:
		return v, true
	}
	return "", false
}

func statusOf(a domain.Application) Status {
	return Status(strings.ToLower(string(a.Status.Normalize())))
}

func FilterByStatus(apps []domain.Application, s Status) []domain.Application {
	if s == "" || s == StatusAll {
		return slices.Clone(apps)
	}
	out := make([]domain.Application, 0, len(apps))
	for _, a := range apps {
		if statusOf(a) == s {
			out = append(out, a)
		}
	}
	return out
}

type Summary struct {
	All      int `json:"all"`
	Applied  int `json:"applied"`
	Accepted int `json:"accepted"`
	Rejected int `json:"rejected"`
}

func Summarize(apps []domain.Application) Summary {
	s := Summary{All: len(apps)}
	for _, a := range apps {
		switch statusOf(a) {
		case StatusApplied:
			s.Applied++
		case StatusAccepted:
			s.Accepted++
		case StatusRejected:
			s.Rejected++
		}
	}
	return s
}

type State struct {
	Applications []domain.Application `json:"applications"`
	Loading      bool                 `json:"loading"`
	Error        string               `json:"error,omitempty"`
	Loaded       bool                 `json:"loaded"`
}

type Tracker struct {
	api API
	log *zap.Logger

	guard lifecycle.Guard

	mu    sync.RWMutex
	tk    lifecycle.Ticket
	user  *domain.User
	state State
	unsub func()
}

func New(api API, l *zap.Logger) *Tracker {
	t := &Tracker{api: api, log: l}
	t.SetUser(nil)
	return t
}

func (t *Tracker) Watch(src UserSource) {
	t.SetUser(src.User())
	t.unsub = src.Subscribe(t.SetUser)
}

func (t *Tracker) Close() {
	t.guard.Close()
	if t.unsub != nil {
		t.unsub()
	}
}

func (t *Tracker) SetUser(u *domain.User) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.tk = t.guard.Begin()
	if u != nil {
		cp := *u
		u = &cp
	}
	t.user = u
	t.state = State{}
}

func (t *Tracker) Available() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return domain.CapabilitiesFor(t.user).CanTrackApplications
}

func (t *Tracker) Load(ctx context.Context) (State, error) {
	t.mu.Lock()
	if !domain.CapabilitiesFor(t.user).CanTrackApplications {
		t.mu.Unlock()
		return State{Error: FreelancersOnly}, ErrNotAllowed
	}
	tk, uid := t.tk, t.user.ID
	t.state.Loading, t.state.Error = true, ""
	t.mu.Unlock()

	apps, err := t.api.ListForFreelancer(ctx, uid)

	t.mu.Lock()
	defer t.mu.Unlock()
	if !tk.Current() {
		if err != nil {
			return State{Error: notice.Text(err, loadError)}, err
		}
		return State{Applications: apps, Loaded: true}, nil
	}
	t.state.Loading = false
	if err != nil {
		t.state.Error = notice.Text(err, loadError)
		t.log.Warn("load applications failed", zap.Int64("user_id", uid), zap.Error(err))
		return t.snapshotLocked(), err
	}
	t.state.Applications, t.state.Loaded = apps, true
	return t.snapshotLocked(), nil
}

func (t *Tracker) snapshotLocked() State {
	s := t.state
	s.Applications = slices.Clone(s.Applications)
	return s
}

func (t *Tracker) State() State {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.snapshotLocked()
}

func (t *Tracker) List(s Status) []domain.Application {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return FilterByStatus(t.state.Applications, s)
}

func (t *Tracker) Summary() Summary {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return Summarize(t.state.Applications)
}
