package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync/atomic"
	"text/tabwriter"

	"github.com/mattn/go-isatty"

	"skilllink-client/internal/domain"
	"skilllink-client/internal/feature/notice"
	"skilllink-client/internal/theme"
	"skilllink-client/pkg/currency"
)

// palette 是终端上的“根节点”：主题切换后输出配色跟着变
type palette struct {
	mode    atomic.Value // theme.Mode
	enabled bool
}

// newPalette 只有 w 是终端且没设置 NO_COLOR 时才上色，重定向和管道输出纯文本
func newPalette(w io.Writer) *palette {
	p := &palette{enabled: os.Getenv("NO_COLOR") == "" && isTerminal(w)}
	p.mode.Store(theme.Light)
	return p
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(interface{ Fd() uintptr })
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func (p *palette) ApplyTheme(m theme.Mode) { p.mode.Store(m) }

func (p *palette) Mode() theme.Mode { return p.mode.Load().(theme.Mode) }

func (p *palette) paint(s, light, dark string) string {
	if p == nil || !p.enabled {
		return s
	}
	code := light
	if p.Mode() == theme.Dark {
		code = dark
	}
	return "\x1b[" + code + "m" + s + "\x1b[0m"
}

func (p *palette) title(s string) string { return p.paint(s, "1;34", "1;96") }
func (p *palette) ok(s string) string    { return p.paint(s, "32", "92") }
func (p *palette) bad(s string) string   { return p.paint(s, "31", "91") }
func (p *palette) muted(s string) string { return p.paint(s, "90", "37") }

type printer struct {
	w   io.Writer
	pal *palette
}

func (p printer) heading(s string) { fmt.Fprintln(p.w, p.pal.title(s)) }

func (p printer) line(format string, args ...any) { fmt.Fprintf(p.w, format+"\n", args...) }

func (p printer) notice(n notice.Notice) {
	if n.Empty() {
		return
	}
	if n.Kind == notice.KindError {
		fmt.Fprintln(p.w, p.pal.bad(n.Message))
		return
	}
	fmt.Fprintln(p.w, p.pal.ok(n.Message))
}

// table 首行为表头
func (p printer) table(header []string, rows [][]string) {
	if len(rows) == 0 {
		fmt.Fprintln(p.w, p.pal.muted("(none)"))
		return
	}
	tw := tabwriter.NewWriter(p.w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	for _, r := range rows {
		fmt.Fprintln(tw, strings.Join(r, "\t"))
	}
	_ = tw.Flush()
}

func id(n int64) string { return fmt.Sprint(n) }

func day(t domain.Timestamp) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("2006-01-02")
}

func budget(b domain.Budget) string { return currency.FormatRangeINR(string(b)) }

func price(f float64) string { return currency.FormatINR(f) }

func skills(s []string) string {
	if len(s) == 0 {
		return "-"
	}
	return strings.Join(s, ", ")
}

func jobRow(j domain.Job) []string {
	assignee := "-"
	if j.FreelancerName != nil && *j.FreelancerName != "" {
		assignee = *j.FreelancerName
	}
	return []string{id(j.ID), j.Title, budget(j.Budget), string(j.Status.Normalize()), skills(j.RequiredSkills), j.ClientName, assignee, day(j.CreatedAt)}
}

var jobHeader = []string{"ID", "TITLE", "BUDGET", "STATUS", "SKILLS", "CLIENT", "FREELANCER", "POSTED"}

func appRow(a domain.Application) []string {
	return []string{id(a.ID), id(a.JobID), a.JobTitle, string(a.Status.Normalize()), a.FreelancerName, day(a.AppliedAt)}
}

var appHeader = []string{"ID", "JOB", "TITLE", "STATUS", "FREELANCER", "APPLIED"}

func courseRow(c domain.Course) []string {
	return []string{id(c.ID), c.Title, price(c.Price), c.MentorName, day(c.CreatedAt)}
}

var courseHeader = []string{"ID", "TITLE", "PRICE", "MENTOR", "ADDED"}
