package dashboard

import (
	"cmp"
	"math"
	"slices"
	"time"

	"skilllink-client/internal/domain"
)

const FallbackError = "Failed to load dashboard data"

type ClientMetrics struct {
	TotalJobs         int `json:"totalJobs"`
	OpenJobs          int `json:"openJobs"`
	InProgressJobs    int `json:"inProgressJobs"`
	CompletedJobs     int `json:"completedJobs"`
	ProposalsReceived int `json:"proposalsReceived"`
}

type ClientPanel struct {
	Jobs         []domain.Job                   `json:"jobs"`
	Applications map[int64][]domain.Application `json:"applications"` // jobId -> 提案，单个失败为空列表
	Metrics      ClientMetrics                  `json:"metrics"`
	RecentJobs   []domain.Job                   `json:"recentJobs"`
}

type FreelancerMetrics struct {
	ActiveEngagements int `json:"activeEngagements"`
	Completed         int `json:"completed"`
	Pipeline          int `json:"pipeline"`
	WinRate           int `json:"winRate"` // 百分比，四舍五入
}

type FreelancerPanel struct {
	AssignedJobs       []domain.Job         `json:"assignedJobs"`
	Applications       []domain.Application `json:"applications"`
	Metrics            FreelancerMetrics    `json:"metrics"`
	RecentApplications []domain.Application `json:"recentApplications"`
}

type CatalogMetrics struct {
	CatalogSize int `json:"catalogSize"`
	Mentors     int `json:"mentors"`
	Fresh       int `json:"fresh"`
}

type CatalogPanel struct {
	Courses       []domain.Course `json:"courses"`
	Metrics       CatalogMetrics  `json:"metrics"`
	Featured      []domain.Course `json:"featured"`
	RecentCourses []domain.Course `json:"recentCourses"`
}

type Dashboard struct {
	UserID       int64               `json:"userId"`
	Greeting     string              `json:"greeting"`
	FirstName    string              `json:"firstName"`
	Capabilities domain.Capabilities `json:"capabilities"`
	Client       *ClientPanel        `json:"client,omitempty"`
	Freelancer   *FreelancerPanel    `json:"freelancer,omitempty"`
	Catalog      *CatalogPanel       `json:"catalog,omitempty"`
}

// State 整个仪表盘只有一个错误
type State struct {
	Loading bool       `json:"loading"`
	Error   string     `json:"error,omitempty"`
	Data    *Dashboard `json:"data,omitempty"`
}

func Greeting(now time.Time) string {
	switch h := now.Hour(); {
	case h < 12:
		return "Good morning"
	case h < 18:
		return "Good afternoon"
	}
	return "Good evening"
}

func clientMetrics(jobs []domain.Job, apps map[int64][]domain.Application) ClientMetrics {
	m := ClientMetrics{TotalJobs: len(jobs)}
	for _, j := range jobs {
		switch j.Status.Normalize() {
		case domain.JobOpen:
			m.OpenJobs++
		case domain.JobInProgress:
			m.InProgressJobs++
		case domain.JobCompleted:
			m.CompletedJobs++
		}
	}
	for _, as := range apps {
		m.ProposalsReceived += len(as)
	}
	return m
}

// WinRate accepted/total，没有申请时为 0
func WinRate(apps []domain.Application) int {
	if len(apps) == 0 {
		return 0
	}
	accepted := 0
	for _, a := range apps {
		if a.Status.Normalize() == domain.ApplicationAccepted {
			accepted++
		}
	}
	return int(math.Round(100 * float64(accepted) / float64(len(apps))))
}

func freelancerMetrics(jobs []domain.Job, apps []domain.Application) FreelancerMetrics {
	m := FreelancerMetrics{WinRate: WinRate(apps)}
	for _, j := range jobs {
		switch j.Status.Normalize() {
		case domain.JobInProgress:
			m.ActiveEngagements++
		case domain.JobCompleted:
			m.Completed++
		}
	}
	for _, a := range apps {
		if a.Status.Normalize() == domain.ApplicationApplied {
			m.Pipeline++
		}
	}
	return m
}

// catalogMetrics fresh 取到达顺序的前 freshN 个
func catalogMetrics(courses []domain.Course, freshN int) CatalogMetrics {
	mentors := map[int64]struct{}{}
	for _, c := range courses {
		mentors[c.MentorID] = struct{}{}
	}
	return CatalogMetrics{
		CatalogSize: len(courses),
		Mentors:     len(mentors),
		Fresh:       min(freshN, len(courses)),
	}
}

// recent 按时间倒序，相同时间保持原顺序
func recent[T any](items []T, at func(T) time.Time, n int) []T {
	out := slices.Clone(items)
	slices.SortStableFunc(out, func(a, b T) int { return cmp.Compare(at(b).UnixNano(), at(a).UnixNano()) })
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

func head[T any](items []T, n int) []T {
	if len(items) > n {
		return slices.Clone(items[:n])
	}
	return slices.Clone(items)
}
