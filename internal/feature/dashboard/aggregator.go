package dashboard

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"skilllink-client/internal/apiclient"
	"skilllink-client/internal/core/config"
	"skilllink-client/internal/core/lifecycle"
	"skilllink-client/internal/domain"
	"skilllink-client/pkg/gather"
)

type JobsAPI interface {
	ListMine(ctx context.Context) ([]domain.Job, error)
	ListAssigned(ctx context.Context) ([]domain.Job, error)
}

type ApplicationsAPI interface {
	ListForJob(ctx context.Context, jobID int64) ([]domain.Application, error)
	ListForFreelancer(ctx context.Context, freelancerID int64) ([]domain.Application, error)
}

type CoursesAPI interface {
	List(ctx context.Context) ([]domain.Course, error)
}

// UserSource 由 *session.Session 实现
type UserSource interface {
	User() *domain.User
	Subscribe(fn func(*domain.User)) (cancel func())
}

type Aggregator struct {
	jobs    JobsAPI
	apps    ApplicationsAPI
	courses CoursesAPI
	cfg     config.Dashboard
	log     *zap.Logger
	now     func() time.Time

	guard lifecycle.Guard
	mu    sync.RWMutex
	state State
	unsub func()
}

func New(jobs JobsAPI, apps ApplicationsAPI, courses CoursesAPI, cfg config.Dashboard, l *zap.Logger) *Aggregator {
	if cfg.FreshN <= 0 {
		cfg.FreshN = 3
	}
	if cfg.RecentN <= 0 {
		cfg.RecentN = 3
	}
	return &Aggregator{jobs: jobs, apps: apps, courses: courses, cfg: cfg, log: l, now: time.Now}
}

func (a *Aggregator) State() State {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.state
}

// Watch 用户/角色变化时后台重载
func (a *Aggregator) Watch(src UserSource) {
	a.unsub = src.Subscribe(func(u *domain.User) {
		go a.Load(context.Background(), u)
	})
}

// Close 之后到达的结果全部丢弃
func (a *Aggregator) Close() {
	a.guard.Close()
	if a.unsub != nil {
		a.unsub()
	}
}

// Load 按角色拉取并计算；被新一轮 Load 取代或已 Close 时结果不落地
func (a *Aggregator) Load(ctx context.Context, u *domain.User) State {
	tk := a.guard.Begin()
	if u == nil {
		a.apply(tk, State{})
		return a.State()
	}
	a.apply(tk, State{Loading: true, Data: a.State().Data})

	d, err := a.build(ctx, u)
	if err != nil {
		msg := apiclient.Message(err, FallbackError)
		a.log.Warn("dashboard load failed", zap.Int64("user_id", u.ID), zap.Error(err))
		if !a.apply(tk, State{Error: msg}) {
			return State{Error: msg}
		}
		return a.State()
	}
	if !a.apply(tk, State{Data: d}) {
		a.log.Debug("stale dashboard result discarded", zap.Int64("user_id", u.ID))
		return State{Data: d}
	}
	return a.State()
}

func (a *Aggregator) apply(tk lifecycle.Ticket, s State) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !tk.Current() {
		return false
	}
	a.state = s
	return true
}

func (a *Aggregator) build(ctx context.Context, u *domain.User) (*Dashboard, error) {
	caps := domain.CapabilitiesFor(u)
	d := &Dashboard{
		UserID:       u.ID,
		Greeting:     Greeting(a.now()),
		FirstName:    u.FirstName(),
		Capabilities: caps,
	}
	if caps.Has(domain.SectionClient) {
		p, err := a.clientPanel(ctx)
		if err != nil {
			return nil, err
		}
		d.Client = p
	}
	if caps.Has(domain.SectionFreelancer) {
		p, err := a.freelancerPanel(ctx, u.ID)
		if err != nil {
			return nil, err
		}
		d.Freelancer = p
	}
	if caps.Has(domain.SectionCatalog) {
		p, err := a.catalogPanel(ctx)
		if err != nil {
			return nil, err
		}
		d.Catalog = p
	}
	return d, nil
}

// clientPanel 每个 job 一个提案请求，单个失败退化为空列表
func (a *Aggregator) clientPanel(ctx context.Context) (*ClientPanel, error) {
	jobs, err := a.jobs.ListMine(ctx)
	if err != nil {
		return nil, err
	}
	results := gather.Tolerant(ctx, jobs, a.cfg.MaxFanout, func(ctx context.Context, j domain.Job) ([]domain.Application, error) {
		return a.apps.ListForJob(ctx, j.ID)
	})
	apps := make(map[int64][]domain.Application, len(jobs))
	for i, j := range jobs {
		if results[i].Err != nil {
			a.log.Debug("job applications unavailable", zap.Int64("job_id", j.ID), zap.Error(results[i].Err))
		}
		if results[i].Value == nil {
			apps[j.ID] = []domain.Application{}
			continue
		}
		apps[j.ID] = results[i].Value
	}
	return &ClientPanel{
		Jobs:         jobs,
		Applications: apps,
		Metrics:      clientMetrics(jobs, apps),
		RecentJobs:   recent(jobs, func(j domain.Job) time.Time { return j.CreatedAt.Time }, a.cfg.RecentN),
	}, nil
}

// freelancerPanel 两个请求并发，任一失败整体失败
func (a *Aggregator) freelancerPanel(ctx context.Context, userID int64) (*FreelancerPanel, error) {
	jobs, apps, err := gather.Both(ctx,
		a.jobs.ListAssigned,
		func(ctx context.Context) ([]domain.Application, error) { return a.apps.ListForFreelancer(ctx, userID) },
	)
	if err != nil {
		return nil, err
	}
	return &FreelancerPanel{
		AssignedJobs:       jobs,
		Applications:       apps,
		Metrics:            freelancerMetrics(jobs, apps),
		RecentApplications: recent(apps, func(x domain.Application) time.Time { return x.AppliedAt.Time }, a.cfg.RecentN),
	}, nil
}

func (a *Aggregator) catalogPanel(ctx context.Context) (*CatalogPanel, error) {
	courses, err := a.courses.List(ctx)
	if err != nil {
		return nil, err
	}
	return &CatalogPanel{
		Courses:       courses,
		Metrics:       catalogMetrics(courses, a.cfg.FreshN),
		Featured:      head(courses, a.cfg.FreshN),
		RecentCourses: recent(courses, func(c domain.Course) time.Time { return c.CreatedAt.Time }, a.cfg.RecentN),
	}, nil
}
