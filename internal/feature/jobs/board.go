// Package jobs 工作列表与提案管理。所有一致性都靠重新拉取，从不在本地修补缓存。
package jobs

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"skilllink-client/internal/core/lifecycle"
	"skilllink-client/internal/domain"
	"skilllink-client/internal/feature/notice"
)

var (
	ErrNotAllowed    = errors.New("action not available for this role")
	ErrNotActionable = errors.New("proposal is not awaiting a decision")
	ErrBadDecision   = errors.New("decision must be ACCEPTED or REJECTED")
	ErrNoProposals   = errors.New("no proposals opened")

	ErrAlreadyApplied = errors.New("already applied to this job")
	ErrJobClosed      = errors.New("job is not accepting proposals")
)

// ApplyText 本地拦下的投递给出具体原因，其余按服务端 message
func ApplyText(err error) string {
	switch {
	case errors.Is(err, ErrAlreadyApplied):
		return "You have already applied to this job"
	case errors.Is(err, ErrJobClosed):
		return "This job is no longer accepting proposals."
	}
	return notice.Text(err, "Failed to submit proposal.")
}

type JobsAPI interface {
	List(ctx context.Context) ([]domain.Job, error)
	ListMine(ctx context.Context) ([]domain.Job, error)
	ListAssigned(ctx context.Context) ([]domain.Job, error)
	Details(ctx context.Context, jobID int64) (*domain.JobDetail, error)
	Create(ctx context.Context, in domain.JobRequest) (*domain.Job, error)
}

type ApplicationsAPI interface {
	Apply(ctx context.Context, jobID int64) (*domain.Application, error)
	ListForFreelancer(ctx context.Context, freelancerID int64) ([]domain.Application, error)
	UpdateStatus(ctx context.Context, applicationID int64, status domain.ApplicationStatus) (*domain.Application, error)
}

type UserSource interface {
	User() *domain.User
	Subscribe(fn func(*domain.User)) (cancel func())
}

type Board struct {
	jobs     JobsAPI
	apps     ApplicationsAPI
	validate *validator.Validate
	log      *zap.Logger

	sf    singleflight.Group
	guard lifecycle.Guard

	mu           sync.RWMutex
	tk           lifecycle.Ticket
	user         *domain.User
	caps         domain.Capabilities
	view         View
	views        map[View]*ViewState
	applications []domain.Application
	proposals    *Proposals
	notice       notice.Notice
	unsub        func()
}

func New(jobs JobsAPI, apps ApplicationsAPI, validate *validator.Validate, l *zap.Logger) *Board {
	b := &Board{jobs: jobs, apps: apps, validate: validate, log: l}
	b.SetUser(nil)
	return b
}

// Watch 跟随会话用户变化
func (b *Board) Watch(src UserSource) {
	b.SetUser(src.User())
	b.unsub = src.Subscribe(b.SetUser)
}

func (b *Board) Close() {
	b.guard.Close()
	if b.unsub != nil {
		b.unsub()
	}
}

// SetUser 用户或角色变化：回到 all 视图，丢弃 posted/assigned 缓存和申请列表，在途结果作废
func (b *Board) SetUser(u *domain.User) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tk = b.guard.Begin()
	if u != nil {
		cp := *u
		u = &cp
	}
	b.user = u
	b.caps = domain.CapabilitiesFor(u)
	b.view = ViewAll
	all := ViewState{}
	if prev := b.views[ViewAll]; prev != nil {
		all = prev.clone()
		all.Loading = false
	}
	b.views = map[View]*ViewState{ViewAll: &all, ViewPosted: {}, ViewAssigned: {}}
	b.applications = nil
	b.proposals = nil
	b.notice = notice.Notice{}
}

func (b *Board) allowedLocked(v View) bool {
	switch v {
	case ViewAll:
		return true
	case ViewPosted:
		return b.caps.CanCreateJob
	case ViewAssigned:
		return b.caps.CanApply
	}
	return false
}

func (b *Board) userIDLocked() int64 {
	if b.user == nil {
		return 0
	}
	return b.user.ID
}

func (b *Board) fetch(ctx context.Context, v View) ([]domain.Job, error) {
	switch v {
	case ViewPosted:
		return b.jobs.ListMine(ctx)
	case ViewAssigned:
		return b.jobs.ListAssigned(ctx)
	}
	return b.jobs.List(ctx)
}

// Load 强制拉取一个视图；同一视图的并发加载合并为一次请求
func (b *Board) Load(ctx context.Context, v View) (ViewState, error) {
	b.mu.Lock()
	if !b.allowedLocked(v) {
		b.mu.Unlock()
		return ViewState{}, fmt.Errorf("%w: view %s", ErrNotAllowed, v)
	}
	tk := b.tk
	key := fmt.Sprintf("%s:%d", v, b.userIDLocked())
	vs := b.views[v]
	vs.Loading, vs.Error = true, ""
	b.mu.Unlock()

	res, err, _ := b.sf.Do(key, func() (any, error) { return b.fetch(ctx, v) })

	b.mu.Lock()
	defer b.mu.Unlock()
	if !tk.Current() {
		// 已换用户或已关闭
		if err != nil {
			return ViewState{Error: notice.Text(err, loadErrors[v])}, err
		}
		return ViewState{Jobs: res.([]domain.Job), Loaded: true}, nil
	}
	vs = b.views[v]
	vs.Loading = false
	if err != nil {
		vs.Error = notice.Text(err, loadErrors[v])
		b.log.Warn("load jobs failed", zap.String("view", string(v)), zap.Error(err))
		return vs.clone(), err
	}
	vs.Jobs, vs.Loaded = res.([]domain.Job), true
	return vs.clone(), nil
}

// Switch 切换视图；已加载或正在加载的视图不重复拉取
func (b *Board) Switch(ctx context.Context, v View) (ViewState, error) {
	b.mu.Lock()
	if !b.allowedLocked(v) {
		b.mu.Unlock()
		return ViewState{}, fmt.Errorf("%w: view %s", ErrNotAllowed, v)
	}
	b.view = v
	vs := b.views[v]
	if vs.Loaded || vs.Loading {
		out := vs.clone()
		b.mu.Unlock()
		return out, nil
	}
	b.mu.Unlock()
	return b.Load(ctx, v)
}

func (b *Board) View() View {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.view
}

func (b *Board) State(v View) ViewState {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if vs := b.views[v]; vs != nil {
		return vs.clone()
	}
	return ViewState{}
}

func (b *Board) Capabilities() domain.Capabilities {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.caps
}

// Cards 指定视图过滤后的卡片，附带投递资格和已投递状态
func (b *Board) Cards(v View, f Filter) []Card {
	b.mu.RLock()
	defer b.mu.RUnlock()
	vs := b.views[v]
	if vs == nil {
		return []Card{}
	}
	applied := b.appliedLocked()
	jobs := FilterJobs(vs.Jobs, f)
	out := make([]Card, 0, len(jobs))
	for _, j := range jobs {
		c := Card{Job: j, CanApply: Eligible(b.caps, j)}
		if st, ok := applied[j.ID]; ok {
			c.Applied, c.ApplicationStatus = true, st
		}
		out = append(out, c)
	}
	return out
}

func (b *Board) SkillOptions(v View) []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if vs := b.views[v]; vs != nil {
		return SkillOptions(vs.Jobs)
	}
	return SkillOptions(nil)
}

// appliedLocked jobId -> 我的申请状态，来自我的申请列表
func (b *Board) appliedLocked() map[int64]domain.ApplicationStatus {
	m := make(map[int64]domain.ApplicationStatus, len(b.applications))
	for _, a := range b.applications {
		if a.JobID != 0 {
			m[a.JobID] = a.Status.Normalize()
		}
	}
	return m
}

func (b *Board) AppliedStatus(jobID int64) (domain.ApplicationStatus, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	st, ok := b.appliedLocked()[jobID]
	return st, ok
}

func (b *Board) CanApplyTo(j domain.Job) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return Eligible(b.caps, j)
}

// LoadApplications 只对 freelancer 有意义；失败只记日志，保留旧数据
func (b *Board) LoadApplications(ctx context.Context) error {
	b.mu.RLock()
	tk, caps, uid := b.tk, b.caps, b.userIDLocked()
	b.mu.RUnlock()
	if !caps.CanApply {
		return nil
	}
	apps, err := b.apps.ListForFreelancer(ctx, uid)
	if err != nil {
		b.log.Warn("load applications failed", zap.Int64("user_id", uid), zap.Error(err))
		return err
	}
	b.mu.Lock()
	if tk.Current() {
		b.applications = apps
	}
	b.mu.Unlock()
	return nil
}

func (b *Board) Notice() notice.Notice {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.notice
}

func (b *Board) setNotice(n notice.Notice) notice.Notice {
	b.mu.Lock()
	b.notice = n
	b.mu.Unlock()
	return n
}

func (b *Board) fail(err error, fallback string) error {
	b.setNotice(notice.Failure(err, fallback))
	return err
}

// Apply 先按已加载的视图和我的申请检查资格，投递后刷新 all 视图和我的申请
func (b *Board) Apply(ctx context.Context, jobID int64) (*domain.Application, error) {
	if !b.Capabilities().CanApply {
		return nil, b.fail(ErrNotAllowed, "Failed to submit proposal.")
	}
	if err := b.checkApply(ctx, jobID); err != nil {
		b.log.Info("proposal refused locally", zap.Int64("job_id", jobID), zap.Error(err))
		return nil, b.fail(err, ApplyText(err))
	}
	a, err := b.apps.Apply(ctx, jobID)
	if err != nil {
		return nil, b.fail(err, ApplyText(err))
	}
	_, _ = b.Load(ctx, ViewAll)
	_ = b.LoadApplications(ctx)
	b.setNotice(notice.Success("Proposal submitted."))
	b.log.Info("proposal submitted", zap.Int64("job_id", jobID), zap.Int64("application_id", a.ID))
	return a, nil
}

// checkApply all 视图或申请列表还没加载时先拉一次；拉取失败不拦截，交给服务端判断。
// 不在任何已加载视图里的工作同样交给服务端
func (b *Board) checkApply(ctx context.Context, jobID int64) error {
	if !b.State(ViewAll).Loaded {
		_, _ = b.Load(ctx, ViewAll)
	}
	_ = b.EnsureApplications(ctx)

	b.mu.RLock()
	defer b.mu.RUnlock()
	if st, ok := b.appliedLocked()[jobID]; ok {
		return fmt.Errorf("%w: job %d (%s)", ErrAlreadyApplied, jobID, st)
	}
	for _, vs := range b.views {
		for _, j := range vs.Jobs {
			if j.ID == jobID && !Eligible(b.caps, j) {
				return fmt.Errorf("%w: job %d is %s", ErrJobClosed, jobID, j.Status.Normalize())
			}
		}
	}
	return nil
}

// CreateJob 校验、创建，然后刷新 all 和 posted
func (b *Board) CreateJob(ctx context.Context, f JobForm) (*domain.Job, error) {
	if !b.Capabilities().CanCreateJob {
		return nil, b.fail(ErrNotAllowed, "Failed to create job.")
	}
	if err := b.validate.Struct(f); err != nil {
		return nil, b.fail(err, "Failed to create job.")
	}
	j, err := b.jobs.Create(ctx, f.Request())
	if err != nil {
		return nil, b.fail(err, "Failed to create job.")
	}
	_, _ = b.Load(ctx, ViewAll)
	_, _ = b.Load(ctx, ViewPosted)
	b.setNotice(notice.Success("Job posted successfully."))
	b.log.Info("job posted", zap.Int64("job_id", j.ID))
	return j, nil
}

// OpenProposals 不读列表缓存，直接拉详情
func (b *Board) OpenProposals(ctx context.Context, jobID int64) (*Proposals, error) {
	b.mu.RLock()
	tk := b.tk
	b.mu.RUnlock()

	d, err := b.jobs.Details(ctx, jobID)
	var p *Proposals
	if err != nil {
		p = &Proposals{Job: domain.Job{ID: jobID}, Items: []domain.Application{}, Error: notice.Text(err, "Unable to load proposals right now.")}
	} else {
		p = newProposals(d)
	}
	b.mu.Lock()
	if tk.Current() {
		b.proposals = p
	}
	b.mu.Unlock()
	return p, err
}

func (b *Board) Proposals() *Proposals {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.proposals
}

// Decide 接受或拒绝当前弹窗里的一个 APPLIED 提案，之后重拉详情和各列表
func (b *Board) Decide(ctx context.Context, applicationID int64, status domain.ApplicationStatus) (*Proposals, error) {
	status = status.Normalize()
	if status != domain.ApplicationAccepted && status != domain.ApplicationRejected {
		return nil, ErrBadDecision
	}
	b.mu.RLock()
	p, caps := b.proposals, b.caps
	b.mu.RUnlock()
	if p == nil {
		return nil, ErrNoProposals
	}
	if !p.Actionable(applicationID) {
		return nil, fmt.Errorf("%w: application %d", ErrNotActionable, applicationID)
	}

	if _, err := b.apps.UpdateStatus(ctx, applicationID, status); err != nil {
		b.mu.Lock()
		if b.proposals == p {
			cp := *p
			cp.Error = notice.Text(err, "Failed to update proposal status.")
			b.proposals = &cp
		}
		b.mu.Unlock()
		return nil, b.fail(err, "Failed to update proposal status.")
	}

	next, err := b.OpenProposals(ctx, p.Job.ID)
	if err != nil {
		b.log.Warn("reload proposals failed", zap.Int64("job_id", p.Job.ID), zap.Error(err))
	}
	_, _ = b.Load(ctx, ViewAll)
	if caps.CanCreateJob {
		_, _ = b.Load(ctx, ViewPosted)
	}
	if caps.CanApply {
		_, _ = b.Load(ctx, ViewAssigned)
	}
	b.setNotice(notice.Success(fmt.Sprintf("Proposal %s successfully.", strings.ToLower(string(status)))))
	b.log.Info("proposal decided", zap.Int64("application_id", applicationID), zap.String("status", string(status)))
	return next, nil
}

// Applications 我的申请列表副本
func (b *Board) Applications() []domain.Application {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return slices.Clone(b.applications)
}

// EnsureApplications 还没加载过我的申请时才去拉
func (b *Board) EnsureApplications(ctx context.Context) error {
	b.mu.RLock()
	loaded := b.applications != nil
	b.mu.RUnlock()
	if loaded {
		return nil
	}
	return b.LoadApplications(ctx)
}
