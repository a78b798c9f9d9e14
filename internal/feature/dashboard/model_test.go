package dashboard

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"skilllink-client/internal/domain"
)

func TestWinRate(t *testing.T) {
	apps := func(statuses ...domain.ApplicationStatus) []domain.Application {
		out := make([]domain.Application, len(statuses))
		for i, s := range statuses {
			out[i].Status = s
		}
		return out
	}
	assert.Equal(t, 0, WinRate(nil))
	assert.Equal(t, 25, WinRate(apps(domain.ApplicationAccepted, domain.ApplicationApplied, domain.ApplicationRejected, domain.ApplicationApplied)))
	assert.Equal(t, 67, WinRate(apps(domain.ApplicationAccepted, "accepted", domain.ApplicationRejected)))
	assert.Equal(t, 100, WinRate(apps(domain.ApplicationAccepted)))
}

func TestRecent_StableOnTies(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	jobs := []domain.Job{
		{ID: 1, CreatedAt: domain.Timestamp{Time: t0}},
		{ID: 2, CreatedAt: domain.Timestamp{Time: t0.Add(time.Hour)}},
		{ID: 3, CreatedAt: domain.Timestamp{Time: t0}},
		{ID: 4, CreatedAt: domain.Timestamp{Time: t0.Add(time.Hour)}},
	}
	got := recent(jobs, func(j domain.Job) time.Time { return j.CreatedAt.Time }, 10)
	assert.Equal(t, []int64{2, 4, 1, 3}, jobIDs(got))
	assert.Len(t, recent(jobs, func(j domain.Job) time.Time { return j.CreatedAt.Time }, 3), 3)
	assert.Equal(t, int64(1), jobs[0].ID)
}

func TestCatalogMetrics(t *testing.T) {
	courses := []domain.Course{{MentorID: 1}, {MentorID: 1}}
	assert.Equal(t, CatalogMetrics{CatalogSize: 2, Mentors: 1, Fresh: 2}, catalogMetrics(courses, 3))
	assert.Equal(t, CatalogMetrics{}, catalogMetrics(nil, 3))
}

func TestGreeting(t *testing.T) {
	day := func(h int) time.Time { return time.Date(2024, 1, 1, h, 0, 0, 0, time.Local) }
	assert.Equal(t, "Good morning", Greeting(day(9)))
	assert.Equal(t, "Good afternoon", Greeting(day(13)))
	assert.Equal(t, "Good evening", Greeting(day(20)))
}
