package jobs

import (
	"slices"
	"strings"

	"skilllink-client/internal/domain"
)

// View 三个互斥的列表视图
type View string

const (
	ViewAll      View = "all"
	ViewPosted   View = "posted"   // 我发布的（client）
	ViewAssigned View = "assigned" // 分配给我的（freelancer）
)

func ParseView(s string) (View, bool) {
	switch v := View(strings.ToLower(strings.TrimSpace(s))); v {
	case "":
		return ViewAll, true
	case ViewAll, ViewPosted, ViewAssigned:
		return v, true
	}
	return "", false
}

var loadErrors = map[View]string{
	ViewAll:      "Unable to load jobs right now.",
	ViewPosted:   "Unable to load your posted jobs right now.",
	ViewAssigned: "Unable to load your assigned jobs right now.",
}

// ViewState 每个视图独立的加载状态
type ViewState struct {
	Jobs    []domain.Job `json:"jobs"`
	Loading bool         `json:"loading"`
	Error   string       `json:"error,omitempty"`
	Loaded  bool         `json:"loaded"`
}

func (s ViewState) clone() ViewState {
	s.Jobs = slices.Clone(s.Jobs)
	return s
}

// Filter 各条件之间是 AND；空值表示不过滤
type Filter struct {
	Query  string `form:"q"      json:"q"`
	Skill  string `form:"skill"  json:"skill"`
	Status string `form:"status" json:"status"` // all | open | in_progress | completed
}

func (f Filter) Match(j domain.Job) bool {
	if q := strings.ToLower(strings.TrimSpace(f.Query)); q != "" {
		if !strings.Contains(strings.ToLower(j.Title), q) && !strings.Contains(strings.ToLower(j.Description), q) {
			return false
		}
	}
	if sq := strings.ToLower(strings.TrimSpace(f.Skill)); sq != "" {
		if !slices.ContainsFunc(j.RequiredSkills, func(s string) bool { return strings.Contains(strings.ToLower(s), sq) }) {
			return false
		}
	}
	if st := strings.ToLower(strings.TrimSpace(f.Status)); st != "" && st != "all" {
		if strings.ToLower(string(j.Status.Normalize())) != st {
			return false
		}
	}
	return true
}

func FilterJobs(jobs []domain.Job, f Filter) []domain.Job {
	out := make([]domain.Job, 0, len(jobs))
	for _, j := range jobs {
		if f.Match(j) {
			out = append(out, j)
		}
	}
	return out
}

// SkillOptions 去空白、去重、排序
func SkillOptions(jobs []domain.Job) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, j := range jobs {
		for _, s := range j.RequiredSkills {
			s = strings.TrimSpace(s)
			if s == "" {
				continue
			}
			if _, ok := seen[s]; ok {
				continue
			}
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	slices.Sort(out)
	return out
}

// Card 列表里一张 job 卡片
type Card struct {
	domain.Job
	CanApply          bool                     `json:"canApply"`
	Applied           bool                     `json:"applied"`
	ApplicationStatus domain.ApplicationStatus `json:"applicationStatus,omitempty"`
}

// Eligible 可投递：角色允许、job 为 OPEN 且尚未分配
func Eligible(caps domain.Capabilities, j domain.Job) bool {
	return caps.CanApply && j.Status.Normalize() == domain.JobOpen && !j.Assigned()
}

type ProposalStats struct {
	Total  int            `json:"total"`
	Counts map[string]int `json:"counts"` // applied / accepted / rejected
}

func Stats(items []domain.Application) ProposalStats {
	s := ProposalStats{Total: len(items), Counts: map[string]int{}}
	for _, a := range items {
		s.Counts[strings.ToLower(string(a.Status.Normalize()))]++
	}
	return s
}

// Proposals 提案弹窗：每次打开都重新拉 /jobs/:id/details
type Proposals struct {
	Job   domain.Job           `json:"job"`
	Items []domain.Application `json:"items"`
	Stats ProposalStats        `json:"stats"`
	Error string               `json:"error,omitempty"`
}

func newProposals(d *domain.JobDetail) *Proposals {
	items := d.Applications
	if items == nil {
		items = []domain.Application{}
	}
	return &Proposals{Job: d.Job, Items: items, Stats: Stats(items)}
}

// Actionable 只有 APPLIED 的提案可以接受或拒绝
func (p *Proposals) Actionable(applicationID int64) bool {
	if p == nil {
		return false
	}
	for _, a := range p.Items {
		if a.ID == applicationID {
			return a.Status.Normalize() == domain.ApplicationApplied
		}
	}
	return false
}

type JobForm struct {
	Title       string  `json:"title"       validate:"notblank"`
	Description string  `json:"description" validate:"notblank"`
	Budget      float64 `json:"budget"      validate:"gt=0"`
	Skills      string  `json:"skills"` // 逗号分隔
}

func (f JobForm) Request() domain.JobRequest {
	skills := []string{}
	for _, s := range strings.Split(f.Skills, ",") {
		if s = strings.TrimSpace(s); s != "" {
			skills = append(skills, s)
		}
	}
	return domain.JobRequest{
		Title:       strings.TrimSpace(f.Title),
		Description: strings.TrimSpace(f.Description),
		Budget:      f.Budget,
		Skills:      skills,
	}
}
