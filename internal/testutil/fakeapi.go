// Package testutil 内存版 SkillLink 后端，给各层测试用。
package testutil

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/gin-gonic/gin"

	"skilllink-client/internal/core/auth"
	"skilllink-client/internal/domain"
)

type fakeUser struct {
	domain.User
	password string
}

type failure struct {
	status  int
	message string
}

// FakeAPI 行为对齐真实后端的校验与错误体 {timestamp,status,message}
type FakeAPI struct {
	Server *httptest.Server
	Faker  *gofakeit.Faker

	mu          sync.Mutex
	signer      *auth.Signer
	nextID      int64
	epoch       time.Time
	users       map[int64]*fakeUser
	jobs        []*domain.Job
	apps        []*domain.Application
	courses     []*domain.Course
	enrollments []domain.Enrollment
	failures    map[string]failure
	gates       map[string]chan struct{}
	calls       map[string]int
}

func NewFakeAPI(t testing.TB) *FakeAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)
	f := &FakeAPI{
		Faker:    gofakeit.New(42),
		signer:   &auth.Signer{Secret: []byte("fake-secret"), Issuer: "skilllink", TTL: time.Hour},
		epoch:    time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC),
		users:    map[int64]*fakeUser{},
		failures: map[string]failure{},
		gates:    map[string]chan struct{}{},
		calls:    map[string]int{},
	}
	f.Server = httptest.NewServer(f.engine())
	t.Cleanup(f.Server.Close)
	return f
}

func (f *FakeAPI) BaseURL() string { return f.Server.URL + "/api" }

func (f *FakeAPI) id() int64 {
	f.nextID++
	return f.nextID
}

// now 每次调用前进一分钟，createdAt 天然递增
func (f *FakeAPI) now() domain.Timestamp {
	return domain.Timestamp{Time: f.epoch.Add(time.Duration(f.nextID) * time.Minute)}
}

/* ---------- 测试控制 ---------- */

// Fail 让 method + key 返回指定错误；key 可以是路由模板或具体路径
func (f *FakeAPI) Fail(method, key string, status int, message string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[method+" "+key] = failure{status: status, message: message}
}

func (f *FakeAPI) ClearFailures() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures = map[string]failure{}
}

// Block 让 method + key 的请求挂起直到 release 被调用
func (f *FakeAPI) Block(method, key string) (release func()) {
	ch := make(chan struct{})
	f.mu.Lock()
	f.gates[method+" "+key] = ch
	f.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.gates, method+" "+key)
			f.mu.Unlock()
			close(ch)
		})
	}
}

// Calls 按路由模板计数
func (f *FakeAPI) Calls(method, route string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method+" "+route]
}

/* ---------- 数据构造 ---------- */

func (f *FakeAPI) AddUser(name, email, password string, role domain.Role, mentor bool) domain.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.addUserLocked(name, email, password, role, mentor, "", "")
}

func (f *FakeAPI) addUserLocked(name, email, password string, role domain.Role, mentor bool, skills, bio string) domain.User {
	u := &fakeUser{
		User:     domain.User{ID: f.id(), Name: name, Email: email, Role: role, IsMentor: mentor, Skills: skills, Bio: bio},
		password: password,
	}
	f.users[u.ID] = u
	return u.User
}

func (f *FakeAPI) TokenFor(userID int64) string {
	f.mu.Lock()
	u := f.users[userID]
	f.mu.Unlock()
	if u == nil {
		return ""
	}
	tok, _ := f.signer.Issue(u.Email, string(u.Role))
	return tok
}

func (f *FakeAPI) AddJob(clientID int64, title, description string, budget domain.Budget, skills ...string) domain.Job {
	f.mu.Lock()
	defer f.mu.Unlock()
	j := &domain.Job{
		ID: f.id(), Title: title, Description: description, Budget: budget,
		Status: domain.JobOpen, RequiredSkills: skills, ClientID: clientID,
	}
	j.CreatedAt = f.now()
	if c := f.users[clientID]; c != nil {
		j.ClientName = c.Name
	}
	f.jobs = append(f.jobs, j)
	return *j
}

// AssignJob 直接改状态，跳过提案流程
func (f *FakeAPI) AssignJob(jobID, freelancerID int64, status domain.JobStatus) {
	f.mu.Lock()
	defer f.mu.Unlock()
	j := f.jobLocked(jobID)
	if j == nil {
		return
	}
	id := freelancerID
	j.FreelancerID = &id
	if u := f.users[freelancerID]; u != nil {
		name := u.Name
		j.FreelancerName = &name
	}
	j.Status = status
}

func (f *FakeAPI) AddApplication(jobID, freelancerID int64, status domain.ApplicationStatus) domain.Application {
	f.mu.Lock()
	defer f.mu.Unlock()
	a := f.newApplicationLocked(f.jobLocked(jobID), f.users[freelancerID])
	a.Status = status
	return *a
}

func (f *FakeAPI) AddCourse(mentorID int64, title string, price float64) domain.Course {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := &domain.Course{ID: f.id(), Title: title, Description: title + " in depth", Price: price, MentorID: mentorID}
	c.CreatedAt = f.now()
	if m := f.users[mentorID]; m != nil {
		c.MentorName = m.Name
	}
	f.courses = append(f.courses, c)
	return *c
}

// Seed 用 gofakeit 造一批数据：每个 client 若干 job，每个 freelancer 对部分 job 投递
func (f *FakeAPI) Seed(clients, freelancers, jobsPerClient, courses int) {
	var cids, fids []int64
	for i := 0; i < clients; i++ {
		cids = append(cids, f.AddUser(f.Faker.Name(), f.Faker.Email(), "secret1", domain.RoleClient, false).ID)
	}
	for i := 0; i < freelancers; i++ {
		fids = append(fids, f.AddUser(f.Faker.Name(), f.Faker.Email(), "secret1", domain.RoleFreelancer, i%2 == 0).ID)
	}
	for _, cid := range cids {
		for i := 0; i < jobsPerClient; i++ {
			j := f.AddJob(cid, f.Faker.JobTitle(), f.Faker.Sentence(12),
				domain.Budget(strconv.Itoa(f.Faker.Number(5, 200)*100)),
				f.Faker.ProgrammingLanguage(), f.Faker.ProgrammingLanguage())
			for k, fid := range fids {
				if (k+i)%2 == 0 {
					f.AddApplication(j.ID, fid, domain.ApplicationApplied)
				}
			}
		}
	}
	for i := 0; i < courses && len(fids) > 0; i++ {
		f.AddCourse(fids[i%len(fids)], f.Faker.Sentence(4), f.Faker.Price(0, 5000))
	}
}

/* ---------- HTTP ---------- */

func (f *FakeAPI) engine() *gin.Engine {
	r := gin.New()
	api := r.Group("/api")
	api.Use(f.control())

	api.POST("/auth/register", f.register)
	api.POST("/auth/login", f.login)

	authed := api.Group("")
	authed.Use(f.authenticate())
	authed.GET("/users/me", f.me)
	authed.GET("/users/:id", f.getUser)
	authed.PUT("/users/:id", f.updateUser)
	authed.GET("/jobs", f.listJobs)
	authed.GET("/jobs/client", f.listClientJobs)
	authed.GET("/jobs/freelancer", f.listFreelancerJobs)
	authed.GET("/jobs/:id/details", f.jobDetails)
	authed.POST("/jobs", f.createJob)
	authed.POST("/applications", f.apply)
	authed.GET("/applications/freelancer/:id", f.freelancerApplications)
	authed.GET("/applications/job/:id", f.jobApplications)
	authed.PUT("/applications/:id/status", f.updateStatus)
	authed.GET("/courses", f.listCourses)
	authed.POST("/courses", f.createCourse)
	authed.POST("/courses/:id/enroll", f.enroll)
	return r
}

func errorBody(c *gin.Context, status int, message string) {
	body := gin.H{"timestamp": time.Now().Format("2006-01-02T15:04:05.000"), "status": status}
	if message != "" {
		body["message"] = message
	}
	c.AbortWithStatusJSON(status, body)
}

// control 计数、注入失败、挂起
func (f *FakeAPI) control() gin.HandlerFunc {
	return func(c *gin.Context) {
		route := strings.TrimPrefix(c.FullPath(), "/api")
		path := strings.TrimPrefix(c.Request.URL.Path, "/api")
		m := c.Request.Method

		f.mu.Lock()
		f.calls[m+" "+route]++
		fail, failed := f.failures[m+" "+path]
		if !failed {
			fail, failed = f.failures[m+" "+route]
		}
		gate := f.gates[m+" "+path]
		if gate == nil {
			gate = f.gates[m+" "+route]
		}
		f.mu.Unlock()

		if gate != nil {
			select {
			case <-gate:
			case <-c.Request.Context().Done():
				return
			}
		}
		if failed {
			errorBody(c, fail.status, fail.message)
			return
		}
		c.Next()
	}
}

func (f *FakeAPI) authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		ah := c.GetHeader("Authorization")
		if !strings.HasPrefix(ah, "Bearer ") {
			errorBody(c, http.StatusUnauthorized, "")
			return
		}
		claims, err := f.signer.Verify(strings.TrimPrefix(ah, "Bearer "))
		if err != nil {
			errorBody(c, http.StatusUnauthorized, "Invalid or expired token")
			return
		}
		f.mu.Lock()
		var me *fakeUser
		for _, u := range f.users {
			if strings.EqualFold(u.Email, claims.Subject) {
				me = u
				break
			}
		}
		f.mu.Unlock()
		if me == nil {
			errorBody(c, http.StatusUnauthorized, "User not found")
			return
		}
		c.Set("me", me.User)
		c.Next()
	}
}

func current(c *gin.Context) domain.User { return c.MustGet("me").(domain.User) }

func paramID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		errorBody(c, http.StatusBadRequest, "Invalid id")
		return 0, false
	}
	return id, true
}

func (f *FakeAPI) register(c *gin.Context) {
	var in domain.RegisterRequest
	if err := c.ShouldBindJSON(&in); err != nil {
		errorBody(c, http.StatusBadRequest, "Validation failed")
		return
	}
	role, ok := domain.ParseRole(string(in.Role))
	if !ok || strings.TrimSpace(in.Email) == "" || len(in.Password) < 6 {
		errorBody(c, http.StatusBadRequest, "Validation failed")
		return
	}
	f.mu.Lock()
	for _, u := range f.users {
		if strings.EqualFold(u.Email, in.Email) {
			f.mu.Unlock()
			errorBody(c, http.StatusBadRequest, "Email already registered")
			return
		}
	}
	mentor := in.IsMentor != nil && *in.IsMentor
	u := f.addUserLocked(in.Name, in.Email, in.Password, role, mentor, in.Skills, in.Bio)
	f.mu.Unlock()
	tok, _ := f.signer.Issue(u.Email, string(u.Role))
	c.JSON(http.StatusOK, domain.AuthResponse{Token: tok, User: u})
}

func (f *FakeAPI) login(c *gin.Context) {
	var in domain.Credentials
	if err := c.ShouldBindJSON(&in); err != nil {
		errorBody(c, http.StatusBadRequest, "Validation failed")
		return
	}
	f.mu.Lock()
	var found *fakeUser
	for _, u := range f.users {
		if strings.EqualFold(u.Email, in.Email) && u.password == in.Password {
			found = u
		}
	}
	f.mu.Unlock()
	if found == nil {
		errorBody(c, http.StatusUnauthorized, "Invalid email or password")
		return
	}
	tok, _ := f.signer.Issue(found.Email, string(found.Role))
	c.JSON(http.StatusOK, domain.AuthResponse{Token: tok, User: found.User})
}

func (f *FakeAPI) me(c *gin.Context) {
	me := current(c)
	f.mu.Lock()
	defer f.mu.Unlock()
	c.JSON(http.StatusOK, f.users[me.ID].User)
}

func (f *FakeAPI) getUser(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	u := f.users[id]
	if u == nil {
		errorBody(c, http.StatusNotFound, "User not found")
		return
	}
	c.JSON(http.StatusOK, u.User)
}

func (f *FakeAPI) updateUser(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	if current(c).ID != id {
		errorBody(c, http.StatusForbidden, "Cannot update another user's profile")
		return
	}
	var in domain.ProfileUpdate
	if err := c.ShouldBindJSON(&in); err != nil {
		errorBody(c, http.StatusBadRequest, "Validation failed")
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	u := f.users[id]
	u.Name, u.Bio, u.Skills, u.IsMentor = in.Name, in.Bio, in.Skills, in.IsMentor
	c.JSON(http.StatusOK, u.User)
}

func (f *FakeAPI) jobLocked(id int64) *domain.Job {
	for _, j := range f.jobs {
		if j.ID == id {
			return j
		}
	}
	return nil
}

func (f *FakeAPI) snapshotJobs(keep func(*domain.Job) bool) []domain.Job {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []domain.Job{}
	for _, j := range f.jobs {
		if keep(j) {
			out = append(out, *j)
		}
	}
	return out
}

func (f *FakeAPI) listJobs(c *gin.Context) {
	c.JSON(http.StatusOK, f.snapshotJobs(func(*domain.Job) bool { return true }))
}

func (f *FakeAPI) listClientJobs(c *gin.Context) {
	me := current(c)
	if me.Role != domain.RoleClient {
		errorBody(c, http.StatusForbidden, "Only clients can view posted jobs")
		return
	}
	c.JSON(http.StatusOK, f.snapshotJobs(func(j *domain.Job) bool { return j.ClientID == me.ID }))
}

func (f *FakeAPI) listFreelancerJobs(c *gin.Context) {
	me := current(c)
	c.JSON(http.StatusOK, f.snapshotJobs(func(j *domain.Job) bool { return j.AssignedTo(me.ID) }))
}

func (f *FakeAPI) appsForJobLocked(jobID int64) []domain.Application {
	out := []domain.Application{}
	for _, a := range f.apps {
		if a.JobID == jobID {
			out = append(out, *a)
		}
	}
	sort.SliceStable(out, func(i, k int) bool { return out[i].AppliedAt.Before(out[k].AppliedAt.Time) })
	return out
}

func (f *FakeAPI) jobDetails(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	me := current(c)
	f.mu.Lock()
	defer f.mu.Unlock()
	j := f.jobLocked(id)
	if j == nil {
		errorBody(c, http.StatusNotFound, "Job not found")
		return
	}
	if j.ClientID != me.ID && !j.AssignedTo(me.ID) {
		errorBody(c, http.StatusForbidden, "Cannot view details for this job")
		return
	}
	c.JSON(http.StatusOK, domain.JobDetail{Job: *j, Applications: f.appsForJobLocked(id)})
}

func (f *FakeAPI) createJob(c *gin.Context) {
	me := current(c)
	if me.Role != domain.RoleClient {
		errorBody(c, http.StatusForbidden, "Only clients can post jobs")
		return
	}
	var in domain.JobRequest
	if err := c.ShouldBindJSON(&in); err != nil || strings.TrimSpace(in.Title) == "" ||
		strings.TrimSpace(in.Description) == "" || in.Budget <= 0 {
		errorBody(c, http.StatusBadRequest, "Validation failed")
		return
	}
	j := f.AddJob(me.ID, in.Title, in.Description,
		domain.Budget(strconv.FormatFloat(in.Budget, 'f', -1, 64)), in.Skills...)
	c.JSON(http.StatusOK, j)
}

func (f *FakeAPI) newApplicationLocked(j *domain.Job, u *fakeUser) *domain.Application {
	a := &domain.Application{ID: f.id(), Status: domain.ApplicationApplied}
	a.AppliedAt = f.now()
	if j != nil {
		a.JobID, a.JobTitle, a.ClientID, a.ClientName = j.ID, j.Title, j.ClientID, j.ClientName
	}
	if u != nil {
		a.FreelancerID, a.FreelancerName = u.ID, u.Name
	}
	f.apps = append(f.apps, a)
	return a
}

func (f *FakeAPI) apply(c *gin.Context) {
	me := current(c)
	if me.Role != domain.RoleFreelancer {
		errorBody(c, http.StatusForbidden, "Only freelancers can apply to jobs")
		return
	}
	var in domain.ApplyRequest
	if err := c.ShouldBindJSON(&in); err != nil {
		errorBody(c, http.StatusBadRequest, "Validation failed")
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	j := f.jobLocked(in.JobID)
	if j == nil {
		errorBody(c, http.StatusNotFound, "Job not found")
		return
	}
	if j.Status.Normalize() != domain.JobOpen {
		errorBody(c, http.StatusBadRequest, "Cannot apply to closed job")
		return
	}
	for _, a := range f.apps {
		if a.JobID == j.ID && a.FreelancerID == me.ID {
			errorBody(c, http.StatusBadRequest, "You have already applied to this job")
			return
		}
	}
	a := f.newApplicationLocked(j, f.users[me.ID])
	c.JSON(http.StatusOK, *a)
}

func (f *FakeAPI) freelancerApplications(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []domain.Application{}
	for _, a := range f.apps {
		if a.FreelancerID == id {
			out = append(out, *a)
		}
	}
	c.JSON(http.StatusOK, out)
}

func (f *FakeAPI) jobApplications(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	me := current(c)
	f.mu.Lock()
	defer f.mu.Unlock()
	j := f.jobLocked(id)
	if j == nil {
		errorBody(c, http.StatusNotFound, "Job not found")
		return
	}
	if j.ClientID != me.ID {
		errorBody(c, http.StatusForbidden, "Cannot view applications for this job")
		return
	}
	c.JSON(http.StatusOK, f.appsForJobLocked(id))
}

func (f *FakeAPI) updateStatus(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var in domain.StatusUpdate
	if err := c.ShouldBindJSON(&in); err != nil || in.Status == "" {
		errorBody(c, http.StatusBadRequest, "Status is required")
		return
	}
	me := current(c)
	f.mu.Lock()
	defer f.mu.Unlock()
	var a *domain.Application
	for _, x := range f.apps {
		if x.ID == id {
			a = x
		}
	}
	if a == nil {
		errorBody(c, http.StatusNotFound, "Application not found")
		return
	}
	j := f.jobLocked(a.JobID)
	if j == nil || j.ClientID != me.ID {
		errorBody(c, http.StatusForbidden, "Cannot modify applications for this job")
		return
	}
	next := in.Status.Normalize()
	if a.Status == next {
		c.JSON(http.StatusOK, *a)
		return
	}
	if a.Status != domain.ApplicationApplied {
		errorBody(c, http.StatusBadRequest, "Application has already been processed")
		return
	}
	switch next {
	case domain.ApplicationAccepted:
		if j.Status != domain.JobOpen {
			errorBody(c, http.StatusBadRequest, "Job is not open for assignment")
			return
		}
		fid, name := a.FreelancerID, a.FreelancerName
		j.FreelancerID, j.FreelancerName, j.Status = &fid, &name, domain.JobInProgress
		a.Status = domain.ApplicationAccepted
		for _, o := range f.apps {
			if o.JobID == j.ID && o.ID != a.ID && o.Status == domain.ApplicationApplied {
				o.Status = domain.ApplicationRejected
			}
		}
	case domain.ApplicationRejected:
		a.Status = domain.ApplicationRejected
	default:
		errorBody(c, http.StatusBadRequest, fmt.Sprintf("Unsupported status: %s", next))
		return
	}
	c.JSON(http.StatusOK, *a)
}

func (f *FakeAPI) listCourses(c *gin.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Course, 0, len(f.courses))
	for _, x := range f.courses {
		out = append(out, *x)
	}
	c.JSON(http.StatusOK, out)
}

func (f *FakeAPI) createCourse(c *gin.Context) {
	me := current(c)
	if me.Role != domain.RoleFreelancer && !me.IsMentor {
		errorBody(c, http.StatusForbidden, "Only mentors/freelancers can create courses")
		return
	}
	var in domain.CourseRequest
	if err := c.ShouldBindJSON(&in); err != nil || strings.TrimSpace(in.Title) == "" ||
		strings.TrimSpace(in.Description) == "" || in.Price < 0 {
		errorBody(c, http.StatusBadRequest, "Validation failed")
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	x := &domain.Course{ID: f.id(), Title: in.Title, Description: in.Description, VideoURL: in.VideoURL,
		Price: in.Price, MentorID: me.ID, MentorName: me.Name}
	x.CreatedAt = f.now()
	f.courses = append(f.courses, x)
	c.JSON(http.StatusOK, *x)
}

func (f *FakeAPI) enroll(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	me := current(c)
	if me.Role != domain.RoleLearner {
		errorBody(c, http.StatusForbidden, "Only learners can enroll in courses")
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	found := false
	for _, x := range f.courses {
		found = found || x.ID == id
	}
	if !found {
		errorBody(c, http.StatusNotFound, "Course not found")
		return
	}
	for _, e := range f.enrollments {
		if e.CourseID == id && e.LearnerID == me.ID {
			errorBody(c, http.StatusBadRequest, "Already enrolled")
			return
		}
	}
	e := domain.Enrollment{ID: f.id(), CourseID: id, LearnerID: me.ID}
	e.EnrolledAt = f.now()
	f.enrollments = append(f.enrollments, e)
	c.JSON(http.StatusOK, e)
}

// Enrollments 测试断言用
func (f *FakeAPI) Enrollments() []domain.Enrollment {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.Enrollment(nil), f.enrollments...)
}
