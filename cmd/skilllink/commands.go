package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"skilllink-client/internal/app"
	"skilllink-client/internal/domain"
	"skilllink-client/internal/feature/applications"
	"skilllink-client/internal/feature/courses"
	"skilllink-client/internal/feature/jobs"
	"skilllink-client/internal/feature/notice"
	"skilllink-client/internal/theme"
	"skilllink-client/pkg/currency"
)

var (
	errUsage     = errors.New("usage")
	errSignedOut = errors.New("not signed in; run `skilllink login` first")
)

// userError 只给用户看页面上的那句话，原始错误保留给 errors.Is
type userError struct {
	msg string
	err error
}

func (e *userError) Error() string { return e.msg }
func (e *userError) Unwrap() error { return e.err }

func fail(err error, fallback string) error {
	return &userError{msg: notice.Text(err, fallback), err: err}
}

type cli struct {
	a   *app.App
	out printer
}

func newCLI(a *app.App, w io.Writer, pal *palette) *cli {
	return &cli{a: a, out: printer{w: w, pal: pal}}
}

func (c *cli) dispatch(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "login":
		return c.login(ctx, rest)
	case "register":
		return c.register(ctx, rest)
	case "logout":
		return c.logout(ctx)
	case "whoami":
		return c.whoami()
	case "theme":
		return c.theme(ctx, rest)
	case "dashboard":
		return c.dashboard(ctx)
	case "jobs":
		return c.jobs(ctx, rest)
	case "proposals":
		return c.proposals(ctx, rest)
	case "courses":
		return c.courses(ctx, rest)
	case "applications":
		return c.applications(ctx, rest)
	case "profile":
		return c.profile(ctx, rest)
	}
	return errUsage
}

func flags(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func parse(fs *pflag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%s: %w", fs.Name(), err)
	}
	return nil
}

func argID(args []string, i int, what string) (int64, error) {
	if len(args) <= i {
		return 0, fmt.Errorf("missing %s", what)
	}
	n, err := strconv.ParseInt(args[i], 10, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s %q", what, args[i])
	}
	return n, nil
}

func (c *cli) user() (*domain.User, error) {
	u := c.a.Session.User()
	if u == nil {
		return nil, errSignedOut
	}
	return u, nil
}

/* ---------- 会话 ---------- */

func (c *cli) login(ctx context.Context, args []string) error {
	fs := flags("login")
	email := fs.String("email", "", "account email")
	password := fs.String("password", os.Getenv("SKILLLINK_PASSWORD"), "password (or SKILLLINK_PASSWORD)")
	if err := parse(fs, args); err != nil {
		return err
	}
	u, err := c.a.Session.Login(ctx, domain.Credentials{Email: strings.TrimSpace(*email), Password: *password})
	if err != nil {
		return fail(err, "Login failed")
	}
	c.out.line("Signed in as %s (%s)", u.Name, u.NormalizedRole())
	return nil
}

func (c *cli) register(ctx context.Context, args []string) error {
	fs := flags("register")
	in := domain.RegisterRequest{}
	var role string
	var mentor bool
	fs.StringVar(&in.Name, "name", "", "full name")
	fs.StringVar(&in.Email, "email", "", "email")
	fs.StringVar(&in.Password, "password", os.Getenv("SKILLLINK_PASSWORD"), "password, at least 6 characters")
	fs.StringVar(&role, "role", "", "CLIENT, FREELANCER or LEARNER")
	fs.StringVar(&in.Skills, "skills", "", "comma separated skills")
	fs.StringVar(&in.Bio, "bio", "", "short bio")
	fs.BoolVar(&mentor, "mentor", false, "offer mentoring")
	if err := parse(fs, args); err != nil {
		return err
	}
	in.Role = domain.Role(role)
	if fs.Changed("mentor") {
		in.IsMentor = &mentor
	}
	if _, err := c.a.Session.Register(ctx, in); err != nil {
		return fail(err, "Registration failed")
	}
	c.out.line("Registration successful. Please sign in.")
	return nil
}

func (c *cli) logout(ctx context.Context) error {
	if err := c.a.Session.Logout(ctx); err != nil {
		return err
	}
	c.out.line("Signed out.")
	return nil
}

func (c *cli) whoami() error {
	u := c.a.Session.User()
	if u == nil {
		c.out.line("Not signed in.")
		return nil
	}
	c.out.heading(u.Name)
	c.out.line("email:  %s", u.Email)
	c.out.line("role:   %s", u.NormalizedRole())
	if u.IsMentor {
		c.out.line("mentor: yes")
	}
	if u.Skills != "" {
		c.out.line("skills: %s", u.Skills)
	}
	if cl, err := c.a.Session.Claims(); err == nil {
		if d, ok := cl.ExpiresIn(time.Now()); ok {
			c.out.line("token expires in %s", d.Round(time.Minute))
		}
	}
	return nil
}

func (c *cli) theme(ctx context.Context, args []string) error {
	if len(args) == 0 {
		c.out.line("%s", c.a.Theme.Mode())
		return nil
	}
	if args[0] == "toggle" {
		m, err := c.a.Theme.Toggle(ctx)
		if err != nil {
			return err
		}
		c.out.line("theme: %s", m)
		return nil
	}
	m, ok := theme.Parse(args[0])
	if !ok {
		return fmt.Errorf("unknown theme %q", args[0])
	}
	if err := c.a.Theme.Set(ctx, m); err != nil {
		return err
	}
	c.out.line("theme: %s", m)
	return nil
}

/* ---------- 仪表盘 ---------- */

func (c *cli) dashboard(ctx context.Context) error {
	u, err := c.user()
	if err != nil {
		return err
	}
	st := c.a.Dashboard.Load(ctx, u)
	if st.Error != "" {
		return errors.New(st.Error)
	}
	d := st.Data
	if d == nil {
		return nil
	}
	c.out.heading(fmt.Sprintf("%s, %s", d.Greeting, d.FirstName))
	if p := d.Client; p != nil {
		m := p.Metrics
		c.out.line("jobs %d  open %d  in progress %d  completed %d  proposals %d",
			m.TotalJobs, m.OpenJobs, m.InProgressJobs, m.CompletedJobs, m.ProposalsReceived)
		c.out.heading("Recent jobs")
		rows := make([][]string, 0, len(p.RecentJobs))
		for _, j := range p.RecentJobs {
			rows = append(rows, []string{id(j.ID), j.Title, string(j.Status.Normalize()), fmt.Sprint(len(p.Applications[j.ID]))})
		}
		c.out.table([]string{"ID", "TITLE", "STATUS", "PROPOSALS"}, rows)
	}
	if p := d.Freelancer; p != nil {
		m := p.Metrics
		c.out.line("active %d  completed %d  pipeline %d  win rate %d%%", m.ActiveEngagements, m.Completed, m.Pipeline, m.WinRate)
		c.out.heading("Recent applications")
		c.out.table(appHeader, rowsOf(p.RecentApplications, appRow))
	}
	if p := d.Catalog; p != nil {
		m := p.Metrics
		c.out.line("courses %d  mentors %d  fresh %d", m.CatalogSize, m.Mentors, m.Fresh)
		c.out.heading("Recent courses")
		c.out.table(courseHeader, rowsOf(p.RecentCourses, courseRow))
	}
	if len(d.Capabilities.QuickActions) > 0 {
		labels := make([]string, 0, len(d.Capabilities.QuickActions))
		for _, qa := range d.Capabilities.QuickActions {
			labels = append(labels, qa.Label)
		}
		c.out.line("%s", c.out.pal.muted("quick actions: "+strings.Join(labels, " · ")))
	}
	return nil
}

func rowsOf[T any](items []T, row func(T) []string) [][]string {
	out := make([][]string, 0, len(items))
	for _, it := range items {
		out = append(out, row(it))
	}
	return out
}

/* ---------- 工作与提案 ---------- */

func (c *cli) jobs(ctx context.Context, args []string) error {
	if _, err := c.user(); err != nil {
		return err
	}
	if len(args) > 0 {
		switch args[0] {
		case "create":
			return c.createJob(ctx, args[1:])
		case "apply":
			return c.apply(ctx, args[1:])
		}
	}
	fs := flags("jobs")
	var f jobs.Filter
	view := fs.String("view", "all", "all, posted or assigned")
	fs.StringVar(&f.Query, "q", "", "search title and description")
	fs.StringVar(&f.Skill, "skill", "", "skill contains")
	fs.StringVar(&f.Status, "status", "all", "all, open, in_progress or completed")
	if err := parse(fs, args); err != nil {
		return err
	}
	v, ok := jobs.ParseView(*view)
	if !ok {
		return fmt.Errorf("unknown view %q", *view)
	}
	st, err := c.a.Jobs.Switch(ctx, v)
	if err != nil {
		return fail(err, "Unable to load jobs right now.")
	}
	_ = c.a.Jobs.EnsureApplications(ctx)

	cards := c.a.Jobs.Cards(v, f)
	rows := make([][]string, 0, len(cards))
	for _, card := range cards {
		mark := ""
		switch {
		case card.Applied:
			mark = "applied (" + strings.ToLower(string(card.ApplicationStatus)) + ")"
		case card.CanApply:
			mark = "can apply"
		}
		rows = append(rows, append(jobRow(card.Job), mark))
	}
	c.out.heading(fmt.Sprintf("Jobs: %s (%d of %d)", v, len(cards), len(st.Jobs)))
	c.out.table(append(jobHeader, ""), rows)
	if opts := c.a.Jobs.SkillOptions(v); len(opts) > 0 {
		c.out.line("%s", c.out.pal.muted("skills: "+strings.Join(opts, ", ")))
	}
	return nil
}

func (c *cli) createJob(ctx context.Context, args []string) error {
	fs := flags("jobs create")
	var f jobs.JobForm
	fs.StringVar(&f.Title, "title", "", "job title")
	fs.StringVar(&f.Description, "description", "", "what needs doing")
	fs.Float64Var(&f.Budget, "budget", 0, "budget in rupees")
	fs.StringVar(&f.Skills, "skills", "", "comma separated skills")
	if err := parse(fs, args); err != nil {
		return err
	}
	j, err := c.a.Jobs.CreateJob(ctx, f)
	if err != nil {
		return fail(err, "Failed to create job.")
	}
	c.out.notice(c.a.Jobs.Notice())
	c.out.line("job #%d %s %s", j.ID, j.Title, budget(j.Budget))
	return nil
}

func (c *cli) apply(ctx context.Context, args []string) error {
	jobID, err := argID(args, 0, "job id")
	if err != nil {
		return err
	}
	if _, err := c.a.Jobs.Apply(ctx, jobID); err != nil {
		return fail(err, jobs.ApplyText(err))
	}
	c.out.notice(c.a.Jobs.Notice())
	return nil
}

func (c *cli) proposals(ctx context.Context, args []string) error {
	if _, err := c.user(); err != nil {
		return err
	}
	if !c.a.Session.Capabilities().CanCreateJob {
		return fail(jobs.ErrNotAllowed, "Only clients can review proposals.")
	}
	if len(args) > 0 && (args[0] == "accept" || args[0] == "reject") {
		return c.decide(ctx, args)
	}
	jobID, err := argID(args, 0, "job id")
	if err != nil {
		return err
	}
	p, err := c.a.Jobs.OpenProposals(ctx, jobID)
	if err != nil {
		return errors.New(p.Error)
	}
	c.printProposals(p)
	return nil
}

func (c *cli) printProposals(p *jobs.Proposals) {
	c.out.heading(fmt.Sprintf("Proposals for #%d %s", p.Job.ID, p.Job.Title))
	c.out.line("total %d  applied %d  accepted %d  rejected %d",
		p.Stats.Total, p.Stats.Counts["applied"], p.Stats.Counts["accepted"], p.Stats.Counts["rejected"])
	c.out.table(appHeader, rowsOf(p.Items, appRow))
}

func (c *cli) decide(ctx context.Context, args []string) error {
	fs := flags("proposals " + args[0])
	jobID := fs.Int64("job", 0, "job the proposal belongs to")
	if err := parse(fs, args[1:]); err != nil {
		return err
	}
	appID, err := argID(fs.Args(), 0, "application id")
	if err != nil {
		return err
	}
	if *jobID <= 0 {
		return errors.New("--job is required")
	}
	if p, err := c.a.Jobs.OpenProposals(ctx, *jobID); err != nil {
		return errors.New(p.Error)
	}
	status := domain.ApplicationAccepted
	if args[0] == "reject" {
		status = domain.ApplicationRejected
	}
	next, err := c.a.Jobs.Decide(ctx, appID, status)
	if err != nil {
		if errors.Is(err, jobs.ErrNotActionable) {
			return err
		}
		return fail(err, "Failed to update proposal status.")
	}
	c.out.notice(c.a.Jobs.Notice())
	if next != nil {
		c.printProposals(next)
	}
	return nil
}

/* ---------- 课程 ---------- */

func (c *cli) courses(ctx context.Context, args []string) error {
	if _, err := c.user(); err != nil {
		return err
	}
	if len(args) > 0 {
		switch args[0] {
		case "create":
			return c.createCourse(ctx, args[1:])
		case "enroll":
			return c.enroll(ctx, args[1:])
		}
	}
	fs := flags("courses")
	q := fs.String("q", "", "search title, description and mentor")
	sort := fs.String("sort", string(courses.SortPopular), "popular, price_asc or price_desc")
	if err := parse(fs, args); err != nil {
		return err
	}
	s, ok := courses.ParseSort(*sort)
	if !ok {
		return fmt.Errorf("unknown sort %q", *sort)
	}
	st, err := c.a.Courses.Load(ctx)
	if err != nil {
		return errors.New(st.Error)
	}
	list := c.a.Courses.List(courses.Query{Q: *q, Sort: s})
	c.out.heading(fmt.Sprintf("Courses (%d of %d)", len(list), len(st.Courses)))
	c.out.table(courseHeader, rowsOf(list, courseRow))
	return nil
}

func (c *cli) createCourse(ctx context.Context, args []string) error {
	fs := flags("courses create")
	var f courses.CourseForm
	var p string
	fs.StringVar(&f.Title, "title", "", "course title")
	fs.StringVar(&f.Description, "description", "", "what learners get")
	fs.StringVar(&f.VideoURL, "video", "", "video url")
	fs.StringVar(&p, "price", "", "price in rupees, empty for free")
	if err := parse(fs, args); err != nil {
		return err
	}
	f.Price = courses.Price(p)
	course, err := c.a.Courses.Create(ctx, f)
	if err != nil {
		return fail(err, "Failed to create course.")
	}
	c.out.notice(c.a.Courses.Notice())
	c.out.line("course #%d %s %s", course.ID, course.Title, currency.FormatINR(course.Price))
	return nil
}

func (c *cli) enroll(ctx context.Context, args []string) error {
	courseID, err := argID(args, 0, "course id")
	if err != nil {
		return err
	}
	if _, err := c.a.Courses.Enroll(ctx, courseID); err != nil {
		return fail(err, "Unable to enroll right now.")
	}
	c.out.notice(c.a.Courses.Notice())
	return nil
}

/* ---------- 我的申请、资料 ---------- */

func (c *cli) applications(ctx context.Context, args []string) error {
	if _, err := c.user(); err != nil {
		return err
	}
	fs := flags("applications")
	status := fs.String("status", "all", "all, applied, accepted or rejected")
	if err := parse(fs, args); err != nil {
		return err
	}
	s, ok := applications.ParseStatus(*status)
	if !ok {
		return fmt.Errorf("unknown status %q", *status)
	}
	st, err := c.a.Applications.Load(ctx)
	if err != nil {
		return fail(err, st.Error)
	}
	sum := c.a.Applications.Summary()
	c.out.heading("My applications")
	c.out.line("all %d  applied %d  accepted %d  rejected %d", sum.All, sum.Applied, sum.Accepted, sum.Rejected)
	c.out.table(appHeader, rowsOf(c.a.Applications.List(s), appRow))
	return nil
}

func (c *cli) profile(ctx context.Context, args []string) error {
	if _, err := c.user(); err != nil {
		return err
	}
	form := c.a.Profile.Form()
	fs := flags("profile")
	fs.StringVar(&form.Name, "name", form.Name, "display name")
	fs.StringVar(&form.Bio, "bio", form.Bio, "short bio")
	fs.StringVar(&form.Skills, "skills", form.Skills, "comma separated skills")
	fs.BoolVar(&form.IsMentor, "mentor", form.IsMentor, "offer mentoring")
	if err := parse(fs, args); err != nil {
		return err
	}
	if fs.NFlag() > 0 {
		u, n, err := c.a.Profile.Save(ctx, form)
		if err != nil {
			return &userError{msg: n.Message, err: err}
		}
		c.out.notice(n)
		form = domain.ProfileUpdate{Name: u.Name, Bio: u.Bio, Skills: u.Skills, IsMentor: u.IsMentor}
	}
	c.out.heading(form.Name)
	c.out.line("bio:    %s", form.Bio)
	c.out.line("skills: %s", form.Skills)
	c.out.line("mentor: %t", form.IsMentor)
	return nil
}
