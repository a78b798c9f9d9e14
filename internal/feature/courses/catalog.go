// Package courses 课程列表、搜索排序、发布与报名。每次变更后整表重拉。
package courses

import (
	"bytes"
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"skilllink-client/internal/core/lifecycle"
	"skilllink-client/internal/domain"
	"skilllink-client/internal/feature/notice"
)

var ErrNotAllowed = errors.New("action not available for this role")

const loadError = "Unable to load courses right now."

type API interface {
	List(ctx context.Context) ([]domain.Course, error)
	Create(ctx context.Context, in domain.CourseRequest) (*domain.Course, error)
	Enroll(ctx context.Context, courseID int64) (*domain.Enrollment, error)
}

type UserSource interface {
	User() *domain.User
	Subscribe(fn func(*domain.User)) (cancel func())
}

type Sort string

const (
	SortPopular   Sort = "popular" // 服务端顺序
	SortPriceAsc  Sort = "price_asc"
	SortPriceDesc Sort = "price_desc"
)

func ParseSort(s string) (Sort, bool) {
	switch v := Sort(strings.ToLower(strings.TrimSpace(s))); v {
	case "":
		return SortPopular, true
	case SortPopular, SortPriceAsc, SortPriceDesc:
		return v, true
	}
	return "", false
}

type Query struct {
	Q    string `form:"q"    json:"q"`
	Sort Sort   `form:"sort" json:"sort"`
}

// Search 标题、描述、导师名，大小写不敏感
func Search(courses []domain.Course, q string) []domain.Course {
	q = strings.ToLower(q)
	out := make([]domain.Course, 0, len(courses))
	for _, c := range courses {
		if q == "" ||
			strings.Contains(strings.ToLower(c.Title), q) ||
			strings.Contains(strings.ToLower(c.Description), q) ||
			strings.Contains(strings.ToLower(c.MentorName), q) {
			out = append(out, c)
		}
	}
	return out
}

func SortCourses(courses []domain.Course, s Sort) []domain.Course {
	out := slices.Clone(courses)
	switch s {
	case SortPriceAsc:
		slices.SortStableFunc(out, func(a, b domain.Course) int { return cmp.Compare(a.Price, b.Price) })
	case SortPriceDesc:
		slices.SortStableFunc(out, func(a, b domain.Course) int { return cmp.Compare(b.Price, a.Price) })
	}
	return out
}

// Price 表单里的价格，接受 JSON 数字或字符串
type Price string

func (p *Price) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*p = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*p = Price(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*p = Price(n.String())
	return nil
}

// Value 空串为 0
func (p Price) Value() float64 {
	v, _ := strconv.ParseFloat(strings.TrimSpace(string(p)), 64)
	return v
}

type CourseForm struct {
	Title       string `json:"title"       validate:"notblank"`
	Description string `json:"description" validate:"notblank"`
	VideoURL    string `json:"videoUrl"    validate:"omitempty,url"`
	Price       Price  `json:"price"       validate:"nonnegnum"`
}

func (f CourseForm) Request() domain.CourseRequest {
	return domain.CourseRequest{
		Title:       strings.TrimSpace(f.Title),
		Description: strings.TrimSpace(f.Description),
		VideoURL:    strings.TrimSpace(f.VideoURL),
		Price:       f.Price.Value(),
	}
}

type State struct {
	Courses []domain.Course `json:"courses"`
	Loading bool            `json:"loading"`
	Error   string          `json:"error,omitempty"`
	Loaded  bool            `json:"loaded"`
}

type Catalog struct {
	api      API
	validate *validator.Validate
	log      *zap.Logger

	guard lifecycle.Guard

	mu     sync.RWMutex
	tk     lifecycle.Ticket
	caps   domain.Capabilities
	state  State
	notice notice.Notice
	unsub  func()
}

func New(api API, validate *validator.Validate, l *zap.Logger) *Catalog {
	c := &Catalog{api: api, validate: validate, log: l}
	c.SetUser(nil)
	return c
}

func (c *Catalog) Watch(src UserSource) {
	c.SetUser(src.User())
	c.unsub = src.Subscribe(c.SetUser)
}

func (c *Catalog) Close() {
	c.guard.Close()
	if c.unsub != nil {
		c.unsub()
	}
}

// SetUser 只更新权限；课程列表与用户无关，保留
func (c *Catalog) SetUser(u *domain.User) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tk = c.guard.Begin()
	c.caps = domain.CapabilitiesFor(u)
	c.state.Loading = false
	c.notice = notice.Notice{}
}

func (c *Catalog) Capabilities() domain.Capabilities {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.caps
}

func (c *Catalog) Load(ctx context.Context) (State, error) {
	c.mu.Lock()
	tk := c.tk
	c.state.Loading, c.state.Error = true, ""
	c.mu.Unlock()

	list, err := c.api.List(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if !tk.Current() {
		if err != nil {
			return State{Error: notice.Text(err, loadError)}, err
		}
		return State{Courses: list, Loaded: true}, nil
	}
	c.state.Loading = false
	if err != nil {
		c.state.Error = notice.Text(err, loadError)
		c.log.Warn("load courses failed", zap.Error(err))
		return c.snapshotLocked(), err
	}
	c.state.Courses, c.state.Loaded = list, true
	return c.snapshotLocked(), nil
}

func (c *Catalog) snapshotLocked() State {
	s := c.state
	s.Courses = slices.Clone(s.Courses)
	return s
}

func (c *Catalog) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshotLocked()
}

// List 当前数据按 q 过滤再排序
func (c *Catalog) List(q Query) []domain.Course {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return SortCourses(Search(c.state.Courses, q.Q), q.Sort)
}

func (c *Catalog) Notice() notice.Notice {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.notice
}

func (c *Catalog) setNotice(n notice.Notice) {
	c.mu.Lock()
	c.notice = n
	c.mu.Unlock()
}

func (c *Catalog) fail(err error, fallback string) error {
	c.setNotice(notice.Failure(err, fallback))
	return err
}

// Create freelancer 或 mentor 可发布
func (c *Catalog) Create(ctx context.Context, f CourseForm) (*domain.Course, error) {
	if !c.Capabilities().CanCreateCourse {
		return nil, c.fail(ErrNotAllowed, "Failed to create course.")
	}
	if err := c.validate.Struct(f); err != nil {
		return nil, c.fail(err, "Failed to create course.")
	}
	course, err := c.api.Create(ctx, f.Request())
	if err != nil {
		return nil, c.fail(err, "Failed to create course.")
	}
	_, _ = c.Load(ctx)
	c.setNotice(notice.Success("Course published successfully."))
	c.log.Info("course published", zap.Int64("course_id", course.ID))
	return course, nil
}

// Enroll 仅 learner
func (c *Catalog) Enroll(ctx context.Context, courseID int64) (*domain.Enrollment, error) {
	if !c.Capabilities().CanEnroll {
		return nil, c.fail(ErrNotAllowed, "Unable to enroll right now.")
	}
	e, err := c.api.Enroll(ctx, courseID)
	if err != nil {
		return nil, c.fail(err, "Unable to enroll right now.")
	}
	c.setNotice(notice.Success("Enrollment confirmed. See you in class!"))
	_, _ = c.Load(ctx)
	c.log.Info("enrolled", zap.Int64("course_id", courseID))
	return e, nil
}
