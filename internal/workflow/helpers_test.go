package workflow_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/hiring-pipeline/internal/memstore"
	"github.com/jonathan/hiring-pipeline/internal/oracle"
	"github.com/jonathan/hiring-pipeline/internal/questions"
	"github.com/jonathan/hiring-pipeline/internal/types"
	"github.com/jonathan/hiring-pipeline/internal/workflow"
	"github.com/stretchr/testify/require"
)

// fakeOracle implements oracle.Oracle with overridable behavior.
type fakeOracle struct {
	GenerateFunc func(ctx context.Context, req oracle.QuestionRequest) ([]types.Question, error)
	EvaluateFunc func(ctx context.Context, req oracle.AnswerRequest) (*oracle.Score, error)

	mu    sync.Mutex
	calls int
}

func (f *fakeOracle) GenerateQuestions(ctx context.Context, req oracle.QuestionRequest) ([]types.Question, error) {
	if f.GenerateFunc != nil {
		return f.GenerateFunc(ctx, req)
	}
	out := make([]types.Question, req.Count)
	for i := range out {
		out[i] = types.Question{ID: fmt.Sprintf("q%d", i+1), Text: fmt.Sprintf("Generated question %d?", i+1), Category: "Technical", Difficulty: "Medium"}
	}
	return out, nil
}

func (f *fakeOracle) EvaluateAnswer(ctx context.Context, req oracle.AnswerRequest) (*oracle.Score, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.EvaluateFunc != nil {
		return f.EvaluateFunc(ctx, req)
	}
	return &oracle.Score{Score: 3.5, Feedback: "Reasonable answer"}, nil
}

func (f *fakeOracle) evaluateCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// failingOracle is unavailable for every call.
func failingOracle() *fakeOracle {
	return &fakeOracle{
		GenerateFunc: func(context.Context, oracle.QuestionRequest) ([]types.Question, error) {
			return nil, &oracle.UnavailableError{Op: "generate_questions", Cause: context.DeadlineExceeded}
		},
		EvaluateFunc: func(context.Context, oracle.AnswerRequest) (*oracle.Score, error) {
			return nil, &oracle.UnavailableError{Op: "evaluate_answer", Cause: context.DeadlineExceeded}
		},
	}
}

type fixture struct {
	t      *testing.T
	ctx    context.Context
	store  *memstore.Store
	oracle *fakeOracle
	svc    *workflow.Service
}

// steppingClock returns strictly increasing timestamps so creation order is observable.
func steppingClock() func() time.Time {
	var mu sync.Mutex
	now := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(time.Second)
		return now
	}
}

func newFixture(t *testing.T) *fixture {
	return newFixtureWith(t, &fakeOracle{}, nil)
}

func newFixtureWith(t *testing.T, o *fakeOracle, notifier workflow.Notifier) *fixture {
	t.Helper()
	store := memstore.New()
	svc, err := workflow.New(workflow.Config{
		Store:     store,
		Oracle:    o,
		Questions: questions.Default(),
		Notifier:  notifier,
		Clock:     steppingClock(),
	})
	require.NoError(t, err)
	return &fixture{t: t, ctx: context.Background(), store: store, oracle: o, svc: svc}
}

func (f *fixture) register(role types.Role, name string) *types.Actor {
	f.t.Helper()
	a, err := f.svc.Register(f.ctx, workflow.Registration{
		Role:  role,
		Name:  name,
		Email: fmt.Sprintf("%s-%s@example.com", name, uuid.NewString()[:8]),
	})
	require.NoError(f.t, err)
	return a
}

func (f *fixture) admin(name string) *types.Actor {
	return f.register(types.RoleAdmin, name)
}

// readyHR registers an HR with a complete profile.
func (f *fixture) readyHR(name string) *types.Actor {
	f.t.Helper()
	hr := f.register(types.RoleHR, name)
	resume := "Technical recruiter with 6 years of experience hiring Go and Python engineers."
	hr, err := f.svc.CompleteHRProfile(f.ctx, hr.ID, 6, &resume)
	require.NoError(f.t, err)
	require.Equal(f.t, types.HRProfileComplete, hr.Status)
	return hr
}

// mappedHR registers an HR and maps it to admin.
func (f *fixture) mappedHR(name string, admin *types.Actor) *types.Actor {
	f.t.Helper()
	hr := f.readyHR(name)
	req, err := f.svc.ApplyToAdmin(f.ctx, hr.ID, admin.ID, "")
	require.NoError(f.t, err)
	_, err = f.svc.AcceptRequest(f.ctx, req.ID, admin.ID)
	require.NoError(f.t, err)
	return f.actor(hr.ID)
}

// readyCandidate registers a candidate that has submitted a resume.
func (f *fixture) readyCandidate(name string) *types.Actor {
	f.t.Helper()
	c := f.register(types.RoleCandidate, name)
	c, err := f.svc.SubmitResume(f.ctx, c.ID, "Backend engineer, 2019 - present, building Go services on PostgreSQL.")
	require.NoError(f.t, err)
	require.Equal(f.t, types.CandidatePendingAssignment, c.Status)
	return c
}

func (f *fixture) assignedCandidate(name string, hr, admin *types.Actor) *types.Actor {
	f.t.Helper()
	c := f.readyCandidate(name)
	c, err := f.svc.Assign(f.ctx, c.ID, hr.ID, admin.ID)
	require.NoError(f.t, err)
	return c
}

func (f *fixture) actor(id uuid.UUID) *types.Actor {
	f.t.Helper()
	a, err := f.store.GetActor(f.ctx, id)
	require.NoError(f.t, err)
	require.NotNil(f.t, a)
	return a
}

func (f *fixture) interview(id uuid.UUID) *types.Interview {
	f.t.Helper()
	iv, err := f.store.GetInterview(f.ctx, id)
	require.NoError(f.t, err)
	require.NotNil(f.t, iv)
	return iv
}

// scheduled sets up a mapped HR, an assigned candidate and an interview with n questions.
func (f *fixture) scheduled(n int) (*types.Interview, *types.Actor, *types.Actor, *types.Actor) {
	f.t.Helper()
	admin := f.admin("admin")
	hr := f.mappedHR("hr", admin)
	cand := f.assignedCandidate("cand", hr, admin)
	iv, err := f.svc.ScheduleInterview(f.ctx, hr.ID, workflow.ScheduleInput{
		CandidateID:    cand.ID,
		JobTitle:       "Backend Engineer",
		JobDescription: "Build and operate Go services.",
		TechStack:      []string{"Go", "PostgreSQL"},
		QuestionCount:  n,
	})
	require.NoError(f.t, err)
	require.Len(f.t, iv.Questions, n)
	return iv, cand, hr, admin
}

func (f *fixture) inbox(id uuid.UUID) []*types.Message {
	f.t.Helper()
	msgs, err := f.svc.ListMessages(f.ctx, id, false)
	require.NoError(f.t, err)
	return msgs
}

func hasKind(msgs []*types.Message, kind types.MessageKind) bool {
	for _, m := range msgs {
		if m.Kind == kind {
			return true
		}
	}
	return false
}

func ptr[T any](v T) *T { return &v }
