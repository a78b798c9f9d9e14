package jobs

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skilllink-client/internal/core/store"
	"skilllink-client/internal/domain"
	"skilllink-client/internal/feature/notice"
	"skilllink-client/internal/testutil"
	"skilllink-client/pkg/validation"
)

func newBoard(t *testing.T) (*Board, *testutil.Stack) {
	t.Helper()
	st := testutil.NewStack(t)
	b := New(st.Services.Jobs, st.Services.Applications, validation.New(), st.Log)
	t.Cleanup(b.Close)
	return b, st
}

func as(t *testing.T, b *Board, st *testutil.Stack, u domain.User) {
	t.Helper()
	require.NoError(t, st.Store.Set(context.Background(), store.KeyToken, st.API.TokenFor(u.ID)))
	b.SetUser(&u)
}

func TestSwitch_LoadedViewIsNotRefetched(t *testing.T) {
	b, st := newBoard(t)
	client := st.API.AddUser("Asha", "asha@example.com", "secret1", domain.RoleClient, false)
	st.API.AddJob(client.ID, "Landing page", "React site", "2500", "React")
	as(t, b, st, client)

	vs, err := b.Switch(context.Background(), ViewPosted)
	require.NoError(t, err)
	assert.True(t, vs.Loaded)
	assert.Len(t, vs.Jobs, 1)

	_, err = b.Switch(context.Background(), ViewAll)
	require.NoError(t, err)
	_, err = b.Switch(context.Background(), ViewPosted)
	require.NoError(t, err)

	assert.Equal(t, 1, st.API.Calls(http.MethodGet, "/jobs/client"))
	assert.Equal(t, 1, st.API.Calls(http.MethodGet, "/jobs"))
	assert.Equal(t, ViewPosted, b.View())
}

func TestLoad_ConcurrentCallsAreMerged(t *testing.T) {
	b, st := newBoard(t)
	client := st.API.AddUser("Asha", "asha@example.com", "secret1", domain.RoleClient, false)
	as(t, b, st, client)

	release := st.API.Block(http.MethodGet, "/jobs")
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = b.Load(context.Background(), ViewAll)
		}()
	}
	require.Eventually(t, func() bool { return st.API.Calls(http.MethodGet, "/jobs") == 1 }, 2*time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	release()
	wg.Wait()

	assert.Equal(t, 1, st.API.Calls(http.MethodGet, "/jobs"))
	assert.True(t, b.State(ViewAll).Loaded)
}

func TestViews_RoleGated(t *testing.T) {
	b, st := newBoard(t)
	learner := st.API.AddUser("Lee", "lee@example.com", "secret1", domain.RoleLearner, false)
	as(t, b, st, learner)

	_, err := b.Switch(context.Background(), ViewPosted)
	assert.ErrorIs(t, err, ErrNotAllowed)
	_, err = b.Switch(context.Background(), ViewAssigned)
	assert.ErrorIs(t, err, ErrNotAllowed)
	assert.Equal(t, ViewAll, b.View())
	assert.Zero(t, st.API.Calls(http.MethodGet, "/jobs/client"))
}

func TestLoad_ErrorPerView(t *testing.T) {
	b, st := newBoard(t)
	client := st.API.AddUser("Asha", "asha@example.com", "secret1", domain.RoleClient, false)
	as(t, b, st, client)
	st.API.Fail(http.MethodGet, "/jobs/client", http.StatusInternalServerError, "")

	_, err := b.Switch(context.Background(), ViewPosted)
	require.Error(t, err)
	assert.Equal(t, "Unable to load your posted jobs right now.", b.State(ViewPosted).Error)
	assert.False(t, b.State(ViewPosted).Loaded)
	assert.Empty(t, b.State(ViewAll).Error)

	st.API.Fail(http.MethodGet, "/jobs", http.StatusServiceUnavailable, "Maintenance window")
	_, err = b.Load(context.Background(), ViewAll)
	require.Error(t, err)
	assert.Equal(t, "Maintenance window", b.State(ViewAll).Error)
}

func TestApply(t *testing.T) {
	b, st := newBoard(t)
	client := st.API.AddUser("Asha", "asha@example.com", "secret1", domain.RoleClient, false)
	me := st.API.AddUser("Maya", "maya@example.com", "secret1", domain.RoleFreelancer, false)
	open := st.API.AddJob(client.ID, "API", "Billing API", "1000-2000", "Go")
	taken := st.API.AddJob(client.ID, "Audit", "Security audit", "5000")
	other := st.API.AddUser("Ravi", "ravi@example.com", "secret1", domain.RoleFreelancer, false)
	st.API.AssignJob(taken.ID, other.ID, domain.JobInProgress)
	as(t, b, st, me)

	_, err := b.Load(context.Background(), ViewAll)
	require.NoError(t, err)
	cards := b.Cards(ViewAll, Filter{})
	require.Len(t, cards, 2)
	assert.True(t, cards[0].CanApply)
	assert.False(t, cards[1].CanApply)

	a, err := b.Apply(context.Background(), open.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ApplicationApplied, a.Status)
	assert.Equal(t, notice.Success("Proposal submitted."), b.Notice())

	st2, ok := b.AppliedStatus(open.ID)
	assert.True(t, ok)
	assert.Equal(t, domain.ApplicationApplied, st2)
	assert.True(t, b.Cards(ViewAll, Filter{})[0].Applied)

	_, err = b.Apply(context.Background(), open.ID)
	assert.ErrorIs(t, err, ErrAlreadyApplied)
	assert.Equal(t, notice.Notice{Kind: notice.KindError, Message: "You have already applied to this job"}, b.Notice())
	assert.Equal(t, 1, st.API.Calls(http.MethodPost, "/applications"))
}

func TestApply_RefusesIneligibleJobs(t *testing.T) {
	b, st := newBoard(t)
	client := st.API.AddUser("Asha", "asha@example.com", "secret1", domain.RoleClient, false)
	me := st.API.AddUser("Maya", "maya@example.com", "secret1", domain.RoleFreelancer, false)
	other := st.API.AddUser("Ravi", "ravi@example.com", "secret1", domain.RoleFreelancer, false)
	taken := st.API.AddJob(client.ID, "Audit", "Security audit", "5000")
	st.API.AssignJob(taken.ID, other.ID, domain.JobInProgress)
	applied := st.API.AddJob(client.ID, "API", "Billing API", "1000")
	st.API.AddApplication(applied.ID, me.ID, domain.ApplicationRejected)
	as(t, b, st, me)

	// 视图和申请列表都没加载过，Apply 自己去拉
	_, err := b.Apply(context.Background(), taken.ID)
	assert.ErrorIs(t, err, ErrJobClosed)
	assert.Equal(t, "This job is no longer accepting proposals.", b.Notice().Message)
	assert.True(t, b.State(ViewAll).Loaded)

	_, err = b.Apply(context.Background(), applied.ID)
	assert.ErrorIs(t, err, ErrAlreadyApplied)
	assert.Equal(t, "You have already applied to this job", b.Notice().Message)

	assert.Zero(t, st.API.Calls(http.MethodPost, "/applications"))
	assert.Equal(t, 1, st.API.Calls(http.MethodGet, "/jobs"))
}

func TestCards_ExplicitView(t *testing.T) {
	b, st := newBoard(t)
	c1 := st.API.AddUser("Asha", "asha@example.com", "secret1", domain.RoleClient, false)
	c2 := st.API.AddUser("Bo", "bo@example.com", "secret1", domain.RoleClient, false)
	st.API.AddJob(c1.ID, "Mine", "Mine", "1000", "Go")
	st.API.AddJob(c2.ID, "Theirs", "Theirs", "2000", "Rust")
	as(t, b, st, c1)

	_, err := b.Switch(context.Background(), ViewAll)
	require.NoError(t, err)
	_, err = b.Load(context.Background(), ViewPosted)
	require.NoError(t, err)
	assert.Equal(t, ViewAll, b.View())

	posted := b.Cards(ViewPosted, Filter{})
	require.Len(t, posted, 1)
	assert.Equal(t, "Mine", posted[0].Job.Title)
	assert.Equal(t, []string{"Go"}, b.SkillOptions(ViewPosted))
	assert.Len(t, b.Cards(ViewAll, Filter{}), 2)
	assert.Empty(t, b.Cards(ViewAssigned, Filter{}))
}

func TestApply_ClientNotAllowed(t *testing.T) {
	b, st := newBoard(t)
	client := st.API.AddUser("Asha", "asha@example.com", "secret1", domain.RoleClient, false)
	j := st.API.AddJob(client.ID, "API", "Billing API", "1000")
	as(t, b, st, client)

	_, err := b.Apply(context.Background(), j.ID)
	assert.ErrorIs(t, err, ErrNotAllowed)
	assert.Equal(t, "Failed to submit proposal.", b.Notice().Message)
	assert.Zero(t, st.API.Calls(http.MethodPost, "/applications"))
}

func TestCreateJob(t *testing.T) {
	b, st := newBoard(t)
	client := st.API.AddUser("Asha", "asha@example.com", "secret1", domain.RoleClient, false)
	as(t, b, st, client)

	_, err := b.CreateJob(context.Background(), JobForm{Title: "  ", Description: "x", Budget: 10})
	require.Error(t, err)
	assert.Equal(t, "title is required", b.Notice().Message)
	_, err = b.CreateJob(context.Background(), JobForm{Title: "API", Description: "x", Budget: 0})
	require.Error(t, err)
	assert.Equal(t, "budget must be greater than 0", b.Notice().Message)
	assert.Zero(t, st.API.Calls(http.MethodPost, "/jobs"))

	j, err := b.CreateJob(context.Background(), JobForm{Title: "API", Description: "Billing API", Budget: 1500, Skills: " Go, ,Postgres "})
	require.NoError(t, err)
	assert.Equal(t, []string{"Go", "Postgres"}, j.RequiredSkills)
	assert.Equal(t, "Job posted successfully.", b.Notice().Message)
	assert.Len(t, b.State(ViewPosted).Jobs, 1)
	assert.Len(t, b.State(ViewAll).Jobs, 1)
}

func TestProposals_DecideFlow(t *testing.T) {
	b, st := newBoard(t)
	client := st.API.AddUser("Asha", "asha@example.com", "secret1", domain.RoleClient, false)
	f1 := st.API.AddUser("Maya", "maya@example.com", "secret1", domain.RoleFreelancer, false)
	f2 := st.API.AddUser("Ravi", "ravi@example.com", "secret1", domain.RoleFreelancer, false)
	j := st.API.AddJob(client.ID, "API", "Billing API", "1000")
	a1 := st.API.AddApplication(j.ID, f1.ID, domain.ApplicationApplied)
	a2 := st.API.AddApplication(j.ID, f2.ID, domain.ApplicationApplied)
	as(t, b, st, client)

	_, err := b.Decide(context.Background(), a1.ID, domain.ApplicationAccepted)
	assert.ErrorIs(t, err, ErrNoProposals)

	p, err := b.OpenProposals(context.Background(), j.ID)
	require.NoError(t, err)
	assert.Equal(t, ProposalStats{Total: 2, Counts: map[string]int{"applied": 2}}, p.Stats)

	_, err = b.Decide(context.Background(), a1.ID, "WITHDRAWN")
	assert.ErrorIs(t, err, ErrBadDecision)

	next, err := b.Decide(context.Background(), a1.ID, domain.ApplicationAccepted)
	require.NoError(t, err)
	assert.Equal(t, "Proposal accepted successfully.", b.Notice().Message)
	assert.Equal(t, domain.JobInProgress, next.Job.Status)
	assert.Equal(t, ProposalStats{Total: 2, Counts: map[string]int{"accepted": 1, "rejected": 1}}, next.Stats)
	assert.Equal(t, 2, st.API.Calls(http.MethodGet, "/jobs/:id/details"))
	assert.Equal(t, 1, st.API.Calls(http.MethodGet, "/jobs/client"))
	assert.Equal(t, domain.JobInProgress, b.State(ViewAll).Jobs[0].Status)

	_, err = b.Decide(context.Background(), a2.ID, domain.ApplicationRejected)
	assert.ErrorIs(t, err, ErrNotActionable)
	assert.Equal(t, 1, st.API.Calls(http.MethodPut, "/applications/:id/status"))
}

func TestProposals_Reject(t *testing.T) {
	b, st := newBoard(t)
	client := st.API.AddUser("Asha", "asha@example.com", "secret1", domain.RoleClient, false)
	f1 := st.API.AddUser("Maya", "maya@example.com", "secret1", domain.RoleFreelancer, false)
	j := st.API.AddJob(client.ID, "API", "Billing API", "1000")
	a1 := st.API.AddApplication(j.ID, f1.ID, domain.ApplicationApplied)
	as(t, b, st, client)

	_, err := b.OpenProposals(context.Background(), j.ID)
	require.NoError(t, err)
	next, err := b.Decide(context.Background(), a1.ID, "rejected")
	require.NoError(t, err)
	assert.Equal(t, "Proposal rejected successfully.", b.Notice().Message)
	assert.Equal(t, domain.JobOpen, next.Job.Status)
	assert.False(t, next.Actionable(a1.ID))
}

func TestProposals_LoadError(t *testing.T) {
	b, st := newBoard(t)
	client := st.API.AddUser("Asha", "asha@example.com", "secret1", domain.RoleClient, false)
	as(t, b, st, client)
	st.API.Fail(http.MethodGet, "/jobs/:id/details", http.StatusInternalServerError, "")

	p, err := b.OpenProposals(context.Background(), 99)
	require.Error(t, err)
	assert.Equal(t, "Unable to load proposals right now.", p.Error)
	assert.Empty(t, p.Items)
}

func TestSetUser_ResetsViews(t *testing.T) {
	b, st := newBoard(t)
	c1 := st.API.AddUser("Asha", "asha@example.com", "secret1", domain.RoleClient, false)
	c2 := st.API.AddUser("Bo", "bo@example.com", "secret1", domain.RoleClient, false)
	st.API.AddJob(c1.ID, "API", "Billing API", "1000")
	as(t, b, st, c1)
	_, err := b.Switch(context.Background(), ViewPosted)
	require.NoError(t, err)

	as(t, b, st, c2)
	assert.Equal(t, ViewAll, b.View())
	assert.False(t, b.State(ViewPosted).Loaded)

	vs, err := b.Switch(context.Background(), ViewPosted)
	require.NoError(t, err)
	assert.Empty(t, vs.Jobs)
}

func TestSetUser_DiscardsInFlightLoad(t *testing.T) {
	b, st := newBoard(t)
	c1 := st.API.AddUser("Asha", "asha@example.com", "secret1", domain.RoleClient, false)
	c2 := st.API.AddUser("Bo", "bo@example.com", "secret1", domain.RoleClient, false)
	st.API.AddJob(c1.ID, "API", "Billing API", "1000")
	as(t, b, st, c1)

	release := st.API.Block(http.MethodGet, "/jobs/client")
	done := make(chan ViewState, 1)
	go func() {
		vs, _ := b.Load(context.Background(), ViewPosted)
		done <- vs
	}()
	require.Eventually(t, func() bool { return st.API.Calls(http.MethodGet, "/jobs/client") == 1 }, 2*time.Second, 5*time.Millisecond)

	as(t, b, st, c2)
	release()
	stale := <-done
	assert.Len(t, stale.Jobs, 1)
	assert.False(t, b.State(ViewPosted).Loaded)
	assert.Empty(t, b.State(ViewPosted).Jobs)
}

func TestLoadApplications_OnlyFreelancers(t *testing.T) {
	b, st := newBoard(t)
	learner := st.API.AddUser("Lee", "lee@example.com", "secret1", domain.RoleLearner, false)
	as(t, b, st, learner)
	require.NoError(t, b.LoadApplications(context.Background()))
	assert.Zero(t, st.API.Calls(http.MethodGet, "/applications/freelancer/:id"))
	assert.Empty(t, b.Applications())
}
