// Package service 每个远端操作一个方法：入参是 id/请求体，出参是解码后的原始响应，错误原样上抛。
package service

import (
	"context"

	"skilllink-client/internal/apiclient"
	"skilllink-client/internal/domain"
)

// Caller 由 *apiclient.Client 实现，测试可替换
type Caller interface {
	Get(ctx context.Context, route string, out any, opts ...apiclient.CallOption) error
	Post(ctx context.Context, route string, in, out any, opts ...apiclient.CallOption) error
	Put(ctx context.Context, route string, in, out any, opts ...apiclient.CallOption) error
}

type AuthService struct{ api Caller }

func NewAuthService(api Caller) *AuthService { return &AuthService{api: api} }

func (s *AuthService) Register(ctx context.Context, in domain.RegisterRequest) (*domain.AuthResponse, error) {
	var out domain.AuthResponse
	if err := s.api.Post(ctx, RouteRegister, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *AuthService) Login(ctx context.Context, in domain.Credentials) (*domain.AuthResponse, error) {
	var out domain.AuthResponse
	if err := s.api.Post(ctx, RouteLogin, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Profile 显式带 token，用于启动时校验已保存的 token
func (s *AuthService) Profile(ctx context.Context, token string) (*domain.User, error) {
	var out domain.User
	if err := s.api.Get(ctx, RouteMe, &out, apiclient.WithToken(token)); err != nil {
		return nil, err
	}
	return &out, nil
}

type JobService struct{ api Caller }

func NewJobService(api Caller) *JobService { return &JobService{api: api} }

func (s *JobService) list(ctx context.Context, route string) ([]domain.Job, error) {
	var out []domain.Job
	if err := s.api.Get(ctx, route, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *JobService) List(ctx context.Context) ([]domain.Job, error) {
	return s.list(ctx, RouteJobs)
}

// ListMine 当前 client 发布的
func (s *JobService) ListMine(ctx context.Context) ([]domain.Job, error) {
	return s.list(ctx, RouteJobsClient)
}

// ListAssigned 指派给当前 freelancer 的
func (s *JobService) ListAssigned(ctx context.Context) ([]domain.Job, error) {
	return s.list(ctx, RouteJobsFreelancer)
}

func (s *JobService) Details(ctx context.Context, jobID int64) (*domain.JobDetail, error) {
	var out domain.JobDetail
	if err := s.api.Get(ctx, RouteJobDetails, &out, apiclient.WithParams(jobID)); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *JobService) Create(ctx context.Context, in domain.JobRequest) (*domain.Job, error) {
	var out domain.Job
	if err := s.api.Post(ctx, RouteJobs, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

type ApplicationService struct{ api Caller }

func NewApplicationService(api Caller) *ApplicationService { return &ApplicationService{api: api} }

func (s *ApplicationService) Apply(ctx context.Context, jobID int64) (*domain.Application, error) {
	var out domain.Application
	if err := s.api.Post(ctx, RouteApplications, domain.ApplyRequest{JobID: jobID}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *ApplicationService) ListForFreelancer(ctx context.Context, freelancerID int64) ([]domain.Application, error) {
	var out []domain.Application
	if err := s.api.Get(ctx, RouteApplicationsFreelancer, &out, apiclient.WithParams(freelancerID)); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *ApplicationService) ListForJob(ctx context.Context, jobID int64) ([]domain.Application, error) {
	var out []domain.Application
	if err := s.api.Get(ctx, RouteApplicationsJob, &out, apiclient.WithParams(jobID)); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *ApplicationService) UpdateStatus(ctx context.Context, applicationID int64, status domain.ApplicationStatus) (*domain.Application, error) {
	var out domain.Application
	err := s.api.Put(ctx, RouteApplicationStatus, domain.StatusUpdate{Status: status}, &out, apiclient.WithParams(applicationID))
	if err != nil {
		return nil, err
	}
	return &out, nil
}

type CourseService struct{ api Caller }

func NewCourseService(api Caller) *CourseService { return &CourseService{api: api} }

func (s *CourseService) List(ctx context.Context) ([]domain.Course, error) {
	var out []domain.Course
	if err := s.api.Get(ctx, RouteCourses, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *CourseService) Create(ctx context.Context, in domain.CourseRequest) (*domain.Course, error) {
	var out domain.Course
	if err := s.api.Post(ctx, RouteCourses, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *CourseService) Enroll(ctx context.Context, courseID int64) (*domain.Enrollment, error) {
	var out domain.Enrollment
	if err := s.api.Post(ctx, RouteCourseEnroll, nil, &out, apiclient.WithParams(courseID)); err != nil {
		return nil, err
	}
	return &out, nil
}

type UserService struct{ api Caller }

func NewUserService(api Caller) *UserService { return &UserService{api: api} }

func (s *UserService) Get(ctx context.Context, userID int64) (*domain.User, error) {
	var out domain.User
	if err := s.api.Get(ctx, RouteUser, &out, apiclient.WithParams(userID)); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *UserService) Update(ctx context.Context, userID int64, in domain.ProfileUpdate) (*domain.User, error) {
	var out domain.User
	if err := s.api.Put(ctx, RouteUser, in, &out, apiclient.WithParams(userID)); err != nil {
		return nil, err
	}
	return &out, nil
}

// Services 聚合，方便注入
type Services struct {
	Auth         *AuthService
	Jobs         *JobService
	Applications *ApplicationService
	Courses      *CourseService
	Users        *UserService
}

func New(api Caller) *Services {
	return &Services{
		Auth:         NewAuthService(api),
		Jobs:         NewJobService(api),
		Applications: NewApplicationService(api),
		Courses:      NewCourseService(api),
		Users:        NewUserService(api),
	}
}
