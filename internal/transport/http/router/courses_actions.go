package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"skilllink-client/internal/domain"
	"skilllink-client/internal/feature/courses"
	"skilllink-client/internal/feature/notice"
)

type coursesModule struct{ c *courses.Catalog }

type coursesQuery struct {
	Q       string `form:"q"`
	Sort    string `form:"sort"`
	Refresh bool   `form:"refresh"`
}

type coursesPage struct {
	Courses      []domain.Course     `json:"courses"`
	Total        int                 `json:"total"`
	Loading      bool                `json:"loading"`
	Error        string              `json:"error,omitempty"`
	Sort         courses.Sort        `json:"sort"`
	Capabilities domain.Capabilities `json:"capabilities"`
	Notice       notice.Notice       `json:"notice"`
}

type courseOut struct {
	Course *domain.Course `json:"course"`
	Notice notice.Notice  `json:"notice"`
}

type enrollOut struct {
	Enrollment *domain.Enrollment `json:"enrollment"`
	Notice     notice.Notice      `json:"notice"`
}

func (m coursesModule) MountAPI(g *gin.RouterGroup) {
	e := New(g)

	RegisterAction(e, Action[coursesQuery, coursesPage]{
		Method: http.MethodGet,
		Path:   "/courses",
		Binder: BindQuery,
		Auth:   true,
		Handler: func(c *gin.Context, in *coursesQuery) (coursesPage, error) {
			sort, ok := courses.ParseSort(in.Sort)
			if !ok {
				return coursesPage{}, BadRequest("sort must be popular, price_asc or price_desc")
			}
			st := m.c.State()
			if in.Refresh || !st.Loaded {
				st, _ = m.c.Load(c.Request.Context())
			}
			return coursesPage{
				Courses:      m.c.List(courses.Query{Q: in.Q, Sort: sort}),
				Total:        len(st.Courses),
				Loading:      st.Loading,
				Error:        st.Error,
				Sort:         sort,
				Capabilities: m.c.Capabilities(),
				Notice:       m.c.Notice(),
			}, nil
		},
	})

	RegisterAction(e, Action[courses.CourseForm, courseOut]{
		Method:  http.MethodPost,
		Path:    "/courses",
		Binder:  BindJSON,
		Require: func(c domain.Capabilities) bool { return c.CanCreateCourse },
		Handler: func(c *gin.Context, in *courses.CourseForm) (courseOut, error) {
			course, err := m.c.Create(c.Request.Context(), *in)
			if err != nil {
				return courseOut{}, Fail(err, notice.Text(err, "Failed to create course."))
			}
			return courseOut{Course: course, Notice: m.c.Notice()}, nil
		},
	})

	RegisterAction(e, Action[struct{}, enrollOut]{
		Method:  http.MethodPost,
		Path:    "/courses/:id/enroll",
		Binder:  BindNone,
		Require: func(c domain.Capabilities) bool { return c.CanEnroll },
		Handler: func(c *gin.Context, _ *struct{}) (enrollOut, error) {
			id, err := ParamID(c, "id")
			if err != nil {
				return enrollOut{}, err
			}
			en, err := m.c.Enroll(c.Request.Context(), id)
			if err != nil {
				return enrollOut{}, Fail(err, notice.Text(err, "Unable to enroll right now."))
			}
			return enrollOut{Enrollment: en, Notice: m.c.Notice()}, nil
		},
	})
}
