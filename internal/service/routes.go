package service

// 远端路由模板，同时作为指标/trace 的 route label
const (
	RouteRegister = "/auth/register"
	RouteLogin    = "/auth/login"
	RouteMe       = "/users/me"
	RouteUser     = "/users/:id"

	RouteJobs           = "/jobs"
	RouteJobsClient     = "/jobs/client"
	RouteJobsFreelancer = "/jobs/freelancer"
	RouteJobDetails     = "/jobs/:id/details"

	RouteApplications           = "/applications"
	RouteApplicationsFreelancer = "/applications/freelancer/:id"
	RouteApplicationsJob        = "/applications/job/:id"
	RouteApplicationStatus      = "/applications/:id/status"

	RouteCourses      = "/courses"
	RouteCourseEnroll = "/courses/:id/enroll"
)
