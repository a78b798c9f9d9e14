package router

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"skilllink-client/internal/domain"
	"skilllink-client/internal/feature/jobs"
	"skilllink-client/internal/feature/notice"
)

type jobsModule struct{ b *jobs.Board }

type jobsQuery struct {
	jobs.Filter
	View    string `form:"view"`
	Refresh bool   `form:"refresh"`
}

type jobsPage struct {
	View         jobs.View     `json:"view"`
	Loading      bool          `json:"loading"`
	Loaded       bool          `json:"loaded"`
	Error        string        `json:"error,omitempty"`
	Cards        []jobs.Card   `json:"cards"`
	Total        int           `json:"total"`
	SkillOptions []string      `json:"skillOptions"`
	Notice       notice.Notice `json:"notice"`
}

type jobOut struct {
	Job    *domain.Job   `json:"job"`
	Notice notice.Notice `json:"notice"`
}

type applyOut struct {
	Application *domain.Application `json:"application"`
	Notice      notice.Notice       `json:"notice"`
}

type decisionIn struct {
	JobID  int64                    `json:"jobId"  binding:"required"`
	Status domain.ApplicationStatus `json:"status" binding:"required"`
}

type decisionOut struct {
	Proposals *jobs.Proposals `json:"proposals"`
	Notice    notice.Notice   `json:"notice"`
}

func canCreateJob(c domain.Capabilities) bool { return c.CanCreateJob }
func canApply(c domain.Capabilities) bool     { return c.CanApply }

func (m jobsModule) MountAPI(g *gin.RouterGroup) {
	e := New(g)

	// 列表错误是视图级横幅，不走错误 envelope
	RegisterAction(e, Action[jobsQuery, jobsPage]{
		Method: http.MethodGet,
		Path:   "/jobs",
		Binder: BindQuery,
		Auth:   true,
		Handler: func(c *gin.Context, in *jobsQuery) (jobsPage, error) {
			ctx := c.Request.Context()
			v, ok := jobs.ParseView(in.View)
			if !ok {
				return jobsPage{}, BadRequest("view must be all, posted or assigned")
			}
			var (
				st  jobs.ViewState
				err error
			)
			if in.Refresh {
				st, err = m.b.Load(ctx, v)
			} else {
				st, err = m.b.Switch(ctx, v)
			}
			if err != nil && st.Error == "" {
				return jobsPage{}, Fail(err, "not available for your role")
			}
			_ = m.b.EnsureApplications(ctx)
			cards := m.b.Cards(v, in.Filter)
			return jobsPage{
				View:         v,
				Loading:      st.Loading,
				Loaded:       st.Loaded,
				Error:        st.Error,
				Cards:        cards,
				Total:        len(st.Jobs),
				SkillOptions: m.b.SkillOptions(v),
				Notice:       m.b.Notice(),
			}, nil
		},
	})

	RegisterAction(e, Action[jobs.JobForm, jobOut]{
		Method:  http.MethodPost,
		Path:    "/jobs",
		Binder:  BindJSON,
		Require: canCreateJob,
		Handler: func(c *gin.Context, in *jobs.JobForm) (jobOut, error) {
			j, err := m.b.CreateJob(c.Request.Context(), *in)
			if err != nil {
				return jobOut{}, Fail(err, notice.Text(err, "Failed to create job."))
			}
			return jobOut{Job: j, Notice: m.b.Notice()}, nil
		},
	})

	RegisterAction(e, Action[struct{}, applyOut]{
		Method:  http.MethodPost,
		Path:    "/jobs/:id/apply",
		Binder:  BindNone,
		Require: canApply,
		Handler: func(c *gin.Context, _ *struct{}) (applyOut, error) {
			id, err := ParamID(c, "id")
			if err != nil {
				return applyOut{}, err
			}
			a, err := m.b.Apply(c.Request.Context(), id)
			if err != nil {
				return applyOut{}, Fail(err, jobs.ApplyText(err))
			}
			return applyOut{Application: a, Notice: m.b.Notice()}, nil
		},
	})

	RegisterAction(e, Action[struct{}, *jobs.Proposals]{
		Method:  http.MethodGet,
		Path:    "/jobs/:id/proposals",
		Binder:  BindNone,
		Require: canCreateJob,
		Handler: func(c *gin.Context, _ *struct{}) (*jobs.Proposals, error) {
			id, err := ParamID(c, "id")
			if err != nil {
				return nil, err
			}
			p, err := m.b.OpenProposals(c.Request.Context(), id)
			if err != nil {
				return nil, Fail(err, p.Error)
			}
			return p, nil
		},
	})

	RegisterAction(e, Action[decisionIn, decisionOut]{
		Method:  http.MethodPost,
		Path:    "/proposals/:id/decision",
		Binder:  BindJSON,
		Require: canCreateJob,
		Handler: func(c *gin.Context, in *decisionIn) (decisionOut, error) {
			ctx := c.Request.Context()
			id, err := ParamID(c, "id")
			if err != nil {
				return decisionOut{}, err
			}
			// 没打开过或打开的是别的 job，先拉一次详情
			if p := m.b.Proposals(); p == nil || p.Job.ID != in.JobID {
				if p, err := m.b.OpenProposals(ctx, in.JobID); err != nil {
					return decisionOut{}, Fail(err, p.Error)
				}
			}
			next, err := m.b.Decide(ctx, id, in.Status)
			if err != nil {
				if errors.Is(err, jobs.ErrBadDecision) || errors.Is(err, jobs.ErrNotActionable) {
					return decisionOut{}, Fail(err, err.Error())
				}
				return decisionOut{}, Fail(err, notice.Text(err, "Failed to update proposal status."))
			}
			return decisionOut{Proposals: next, Notice: m.b.Notice()}, nil
		},
	})
}
