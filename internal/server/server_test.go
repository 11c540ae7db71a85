package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/hiring-pipeline/internal/config"
	"github.com/jonathan/hiring-pipeline/internal/memstore"
	"github.com/jonathan/hiring-pipeline/internal/oracle"
	"github.com/jonathan/hiring-pipeline/internal/questions"
	"github.com/jonathan/hiring-pipeline/internal/server/ratelimit"
	"github.com/jonathan/hiring-pipeline/internal/types"
	"github.com/jonathan/hiring-pipeline/internal/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// stubOracle generates numbered questions and scores every answer 4.
// With down set every call fails.
type stubOracle struct {
	down bool
}

func (o *stubOracle) GenerateQuestions(_ context.Context, req oracle.QuestionRequest) ([]types.Question, error) {
	if o.down {
		return nil, &oracle.UnavailableError{Op: "generate_questions", Cause: context.DeadlineExceeded}
	}
	out := make([]types.Question, req.Count)
	for i := range out {
		out[i] = types.Question{ID: fmt.Sprintf("q%d", i+1), Text: fmt.Sprintf("How would you use %s? (%d)", req.JobTitle, i+1), Category: "Technical", Difficulty: "Medium"}
	}
	return out, nil
}

func (o *stubOracle) EvaluateAnswer(context.Context, oracle.AnswerRequest) (*oracle.Score, error) {
	if o.down {
		return nil, &oracle.UnavailableError{Op: "evaluate_answer", Cause: context.DeadlineExceeded}
	}
	return &oracle.Score{Score: 4, Feedback: "Clear and specific"}, nil
}

type apiFixture struct {
	t        *testing.T
	handler  http.Handler
	accounts *AccountService
	jwt      *JWTService
	health   error
}

type fixtureOption func(*Options, *Config)

func withLimiter(l *ratelimit.Limiter) fixtureOption {
	return func(o *Options, _ *Config) { o.Limiter = l }
}

func withCORS(origins ...string) fixtureOption {
	return func(_ *Options, c *Config) { c.CORSOrigins = origins }
}

func newAPI(t *testing.T, o oracle.Oracle, opts ...fixtureOption) *apiFixture {
	t.Helper()
	store := memstore.New()
	wf, err := workflow.New(workflow.Config{
		Store:     store,
		Oracle:    o,
		Questions: questions.Default(),
	})
	require.NoError(t, err)

	f := &apiFixture{t: t}
	f.accounts = NewAccountService(wf, store, &config.PasswordConfig{BcryptCost: bcrypt.MinCost, MinLength: 8})
	f.jwt = setupTestJWTService(t, 60)

	cfg := Config{Port: 0, MaxUploadBytes: 1 << 20}
	options := Options{
		Workflow: wf,
		Accounts: f.accounts,
		JWT:      f.jwt,
		Health:   func(context.Context) error { return f.health },
	}
	for _, opt := range opts {
		opt(&options, &cfg)
	}
	srv, err := New(cfg, options)
	require.NoError(t, err)
	f.handler = srv.Handler()
	return f
}

func (f *apiFixture) do(method, path, token string, body any) *httptest.ResponseRecorder {
	f.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(f.t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, req)
	return w
}

// expect asserts the status and decodes the body into T.
func expect[T any](t *testing.T, w *httptest.ResponseRecorder, status int) T {
	t.Helper()
	require.Equal(t, status, w.Code, "body: %s", w.Body.String())
	var out T
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	}
	return out
}

// register creates an account over HTTP and returns it with its token.
func (f *apiFixture) register(role types.Role, name string) (*types.Actor, string) {
	f.t.Helper()
	resp := expect[types.LoginResponse](f.t, f.do(http.MethodPost, "/auth/register", "", types.RegisterRequest{
		Name:     name,
		Email:    fmt.Sprintf("%s-%s@example.com", name, uuid.NewString()[:8]),
		Password: "correct horse battery",
		Role:     role,
	}), http.StatusCreated)
	require.NotEmpty(f.t, resp.Token)
	return resp.Actor, resp.Token
}

func (f *apiFixture) admin(name string) (*types.Actor, string) {
	f.t.Helper()
	a, err := f.accounts.CreateAdmin(context.Background(), name, name+"@example.com", "admin-password")
	require.NoError(f.t, err)
	token, err := f.jwt.GenerateToken(a)
	require.NoError(f.t, err)
	return a, token
}

// mappedHR registers an HR, completes its profile and maps it to the admin.
func (f *apiFixture) mappedHR(name string, adminID uuid.UUID, adminToken string) (*types.Actor, string) {
	f.t.Helper()
	hr, token := f.register(types.RoleHR, name)
	years := 6
	resume := "Technical recruiter with 6 years of experience hiring Go engineers."
	expect[types.Actor](f.t, f.do(http.MethodPut, "/hr/profile", token, types.HRProfileRequest{YearsOfExperience: &years, ResumeText: &resume}), http.StatusOK)

	mr := expect[types.MappingRequest](f.t, f.do(http.MethodPost, "/hr/applications", token, types.ApplyRequest{AdminID: adminID}), http.StatusCreated)
	expect[types.MappingRequest](f.t, f.do(http.MethodPost, "/requests/"+mr.ID.String()+"/accept", adminToken, nil), http.StatusOK)
	return hr, token
}

func (f *apiFixture) assignedCandidate(name string, hrID uuid.UUID, adminToken string) (*types.Actor, string) {
	f.t.Helper()
	cand, token := f.register(types.RoleCandidate, name)
	expect[types.Actor](f.t, f.do(http.MethodPost, "/resume", token, types.ResumeTextRequest{ResumeText: "Backend engineer, 5 years of Go, PostgreSQL and Kubernetes."}), http.StatusOK)
	expect[types.Actor](f.t, f.do(http.MethodPost, "/admin/assignments", adminToken, types.AssignRequest{CandidateID: cand.ID, HRID: hrID}), http.StatusOK)
	return cand, token
}

func TestHealth(t *testing.T) {
	f := newAPI(t, &stubOracle{})

	body := expect[map[string]string](t, f.do(http.MethodGet, "/health", "", nil), http.StatusOK)
	assert.Equal(t, "ok", body["status"])

	f.health = errors.New("db down")
	body = expect[map[string]string](t, f.do(http.MethodGet, "/health", "", nil), http.StatusServiceUnavailable)
	assert.Equal(t, "unavailable", body["status"])
}

func TestRegisterAndLogin(t *testing.T) {
	f := newAPI(t, &stubOracle{})

	req := types.RegisterRequest{Name: "Ann", Email: "Ann@Example.com", Password: "long-enough-pw", Role: types.RoleCandidate}
	resp := expect[types.LoginResponse](t, f.do(http.MethodPost, "/auth/register", "", req), http.StatusCreated)
	assert.Equal(t, "ann@example.com", resp.Actor.Email)
	assert.Equal(t, types.CandidatePendingResume, resp.Actor.Status)

	errBody := expect[ErrorResponse](t, f.do(http.MethodPost, "/auth/register", "", req), http.StatusConflict)
	assert.Equal(t, "email_exists", errBody.Code)

	login := expect[types.LoginResponse](t, f.do(http.MethodPost, "/auth/login", "", types.LoginRequest{Email: "ann@example.com", Password: "long-enough-pw"}), http.StatusOK)
	assert.Equal(t, resp.Actor.ID, login.Actor.ID)

	me := expect[types.Actor](t, f.do(http.MethodGet, "/auth/me", login.Token, nil), http.StatusOK)
	assert.Equal(t, resp.Actor.ID, me.ID)

	errBody = expect[ErrorResponse](t, f.do(http.MethodPost, "/auth/login", "", types.LoginRequest{Email: "ann@example.com", Password: "wrong-password"}), http.StatusUnauthorized)
	assert.Equal(t, "invalid_credentials", errBody.Code)
	expect[ErrorResponse](t, f.do(http.MethodPost, "/auth/login", "", types.LoginRequest{Email: "nobody@example.com", Password: "whatever-pw"}), http.StatusUnauthorized)
}

func TestRegister_Validation(t *testing.T) {
	f := newAPI(t, &stubOracle{})

	tests := []struct {
		name  string
		req   types.RegisterRequest
		field string
	}{
		{"admin role", types.RegisterRequest{Name: "A", Email: "a@example.com", Password: "long-enough-pw", Role: types.RoleAdmin}, "Role"},
		{"bad email", types.RegisterRequest{Name: "A", Email: "not-an-email", Password: "long-enough-pw", Role: types.RoleHR}, "Email"},
		{"short password", types.RegisterRequest{Name: "A", Email: "a@example.com", Password: "short", Role: types.RoleHR}, "Password"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := expect[ErrorResponse](t, f.do(http.MethodPost, "/auth/register", "", tt.req), http.StatusBadRequest)
			assert.Equal(t, "validation_error", body.Code)
			assert.Equal(t, tt.field, body.Details["field"])
		})
	}

	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/auth/register", bytes.NewBufferString("{not json")))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuthorization(t *testing.T) {
	f := newAPI(t, &stubOracle{})
	_, candToken := f.register(types.RoleCandidate, "cand")

	expect[map[string]string](t, f.do(http.MethodGet, "/messages", "", nil), http.StatusUnauthorized)
	expect[map[string]string](t, f.do(http.MethodGet, "/messages", "garbage", nil), http.StatusUnauthorized)

	body := expect[map[string]string](t, f.do(http.MethodGet, "/admin/actors", candToken, nil), http.StatusForbidden)
	assert.Equal(t, "forbidden", body["code"])
	expect[map[string]string](t, f.do(http.MethodPost, "/interviews", candToken, types.ScheduleRequest{}), http.StatusForbidden)
}

func TestHiringFlow(t *testing.T) {
	f := newAPI(t, &stubOracle{})
	admin, adminToken := f.admin("root")

	hr, hrToken := f.register(types.RoleHR, "hr")
	assert.Equal(t, types.HRPendingProfile, hr.Status)

	years := 4
	resume := "Recruiter placing platform engineers, 4 years."
	got := expect[types.Actor](t, f.do(http.MethodPut, "/hr/profile", hrToken, types.HRProfileRequest{YearsOfExperience: &years, ResumeText: &resume}), http.StatusOK)
	assert.Equal(t, types.HRProfileComplete, got.Status)

	mr := expect[types.MappingRequest](t, f.do(http.MethodPost, "/hr/applications", hrToken, types.ApplyRequest{AdminID: admin.ID, Message: "Let me join"}), http.StatusCreated)
	assert.Equal(t, types.RequestPending, mr.Status)

	listed := expect[struct {
		Requests []types.MappingRequest `json:"requests"`
		Count    int                    `json:"count"`
	}](t, f.do(http.MethodGet, "/requests?status=pending", adminToken, nil), http.StatusOK)
	require.Equal(t, 1, listed.Count)
	assert.Equal(t, mr.ID, listed.Requests[0].ID)

	accepted := expect[types.MappingRequest](t, f.do(http.MethodPost, "/requests/"+mr.ID.String()+"/accept", adminToken, nil), http.StatusOK)
	assert.Equal(t, types.RequestAccepted, accepted.Status)

	me := expect[types.Actor](t, f.do(http.MethodGet, "/auth/me", hrToken, nil), http.StatusOK)
	assert.Equal(t, types.HRMapped, me.Status)
	require.NotNil(t, me.SupervisorID)
	assert.Equal(t, admin.ID, *me.SupervisorID)

	team := expect[struct {
		Count int `json:"count"`
	}](t, f.do(http.MethodGet, "/admin/hr", adminToken, nil), http.StatusOK)
	assert.Equal(t, 1, team.Count)

	cand, candToken := f.register(types.RoleCandidate, "cand")
	got = expect[types.Actor](t, f.do(http.MethodPost, "/resume", candToken, types.ResumeTextRequest{ResumeText: "<p>Go developer</p><ul><li>PostgreSQL</li><li>Docker</li></ul>"}), http.StatusOK)
	assert.Equal(t, types.CandidatePendingAssignment, got.Status)
	assert.True(t, got.HasResume)

	assignable := expect[workflow.Assignable](t, f.do(http.MethodGet, "/admin/assignable", adminToken, nil), http.StatusOK)
	assert.Len(t, assignable.Candidates, 1)
	assert.Len(t, assignable.HR, 1)

	got = expect[types.Actor](t, f.do(http.MethodPost, "/admin/assignments", adminToken, types.AssignRequest{CandidateID: cand.ID, HRID: hr.ID}), http.StatusOK)
	assert.Equal(t, types.CandidateAssigned, got.Status)

	mine := expect[struct {
		Candidates []types.Actor `json:"candidates"`
	}](t, f.do(http.MethodGet, "/hr/candidates", hrToken, nil), http.StatusOK)
	require.Len(t, mine.Candidates, 1)
	assert.Equal(t, cand.ID, mine.Candidates[0].ID)

	invite := expect[types.Message](t, f.do(http.MethodPost, "/hr/candidates/"+cand.ID.String()+"/invite", hrToken, types.InviteCandidateRequest{Message: "Looking forward to talking"}), http.StatusCreated)
	assert.Equal(t, cand.ID, invite.RecipientID)

	iv := expect[types.Interview](t, f.do(http.MethodPost, "/interviews", hrToken, types.ScheduleRequest{
		CandidateID:    cand.ID,
		JobTitle:       "Backend Engineer",
		JobDescription: "Build services in Go",
		TechStack:      []string{"Go", "PostgreSQL"},
		QuestionCount:  3,
	}), http.StatusCreated)
	assert.Equal(t, types.InterviewQuestionsGenerated, iv.Status)
	assert.Equal(t, types.SourceOracle, iv.QuestionSource)
	require.Len(t, iv.Questions, 3)

	ivPath := "/interviews/" + iv.ID.String()
	started := expect[types.Interview](t, f.do(http.MethodPost, ivPath+"/start", candToken, nil), http.StatusOK)
	assert.Equal(t, types.InterviewInProgress, started.Status)

	answers := make([]types.AnswerInput, 0, len(iv.Questions))
	for _, q := range iv.Questions {
		answers = append(answers, types.AnswerInput{QuestionID: q.ID, AnswerText: "A detailed answer about " + q.ID + " and tradeoffs."})
	}
	done := expect[types.Interview](t, f.do(http.MethodPost, ivPath+"/answers", candToken, types.SubmitAnswersRequest{Answers: answers[:1]}), http.StatusOK)
	assert.Equal(t, types.InterviewInProgress, done.Status)

	errBody := expect[ErrorResponse](t, f.do(http.MethodPost, ivPath+"/answers", candToken, types.SubmitAnswersRequest{Answers: answers[:1]}), http.StatusConflict)
	assert.Equal(t, "already_answered", errBody.Code)

	done = expect[types.Interview](t, f.do(http.MethodPost, ivPath+"/answers", candToken, types.SubmitAnswersRequest{Answers: answers[1:]}), http.StatusOK)
	assert.Equal(t, types.InterviewCompleted, done.Status)

	report := expect[workflow.EvaluationReport](t, f.do(http.MethodPost, ivPath+"/ai-evaluation", hrToken, nil), http.StatusOK)
	assert.Equal(t, 3, report.Evaluated)
	assert.Zero(t, report.Failed)

	scored := expect[types.Interview](t, f.do(http.MethodPut, ivPath+"/responses/"+iv.Questions[0].ID+"/score", hrToken, types.ManualScoreRequest{Score: ptr(2.0), Feedback: "too vague"}), http.StatusOK)
	resp := scored.Responses[iv.Questions[0].ID]
	require.NotNil(t, resp)
	assert.Equal(t, 2.0, *resp.ManualScore)
	assert.Equal(t, 4.0, *resp.AIScore, "manual scoring leaves the AI score in place")

	evaluated := expect[types.Interview](t, f.do(http.MethodPost, ivPath+"/evaluation", hrToken, types.EvaluationRequest{OverallFeedback: "Solid"}), http.StatusOK)
	assert.Equal(t, types.InterviewEvaluated, evaluated.Status)
	require.NotNil(t, evaluated.Evaluation)
	assert.InDelta(t, (2.0+4.0+4.0)/3, evaluated.Evaluation.OverallScore, 1e-9)

	fetched := expect[types.Interview](t, f.do(http.MethodGet, ivPath, candToken, nil), http.StatusOK)
	assert.Equal(t, types.InterviewEvaluated, fetched.Status)
	expect[types.Interview](t, f.do(http.MethodGet, ivPath, adminToken, nil), http.StatusOK)

	inbox := expect[struct {
		Messages []types.Message `json:"messages"`
	}](t, f.do(http.MethodGet, "/messages?unread=true", candToken, nil), http.StatusOK)
	kinds := make([]types.MessageKind, 0, len(inbox.Messages))
	ids := make([]uuid.UUID, 0, len(inbox.Messages))
	for _, m := range inbox.Messages {
		kinds = append(kinds, m.Kind)
		ids = append(ids, m.ID)
	}
	assert.Contains(t, kinds, types.MessageCandidateAssigned)
	assert.Contains(t, kinds, types.MessageInterviewScheduled)
	assert.Contains(t, kinds, types.MessageInterviewEvaluated)

	marked := expect[map[string]int](t, f.do(http.MethodPost, "/messages/read", candToken, types.MarkReadRequest{MessageIDs: ids}), http.StatusOK)
	assert.Equal(t, len(ids), marked["marked"])
	inbox = expect[struct {
		Messages []types.Message `json:"messages"`
	}](t, f.do(http.MethodGet, "/messages?unread=true", candToken, nil), http.StatusOK)
	assert.Empty(t, inbox.Messages)

	stats := expect[types.Stats](t, f.do(http.MethodGet, "/admin/stats", adminToken, nil), http.StatusOK)
	assert.Equal(t, 1, stats.ActorsByRole[types.RoleAdmin])
	assert.Equal(t, 1, stats.InterviewsByStatus[types.InterviewEvaluated])
	assert.Zero(t, stats.PendingRequests)
}

func TestRequestErrors(t *testing.T) {
	f := newAPI(t, &stubOracle{})
	admin, adminToken := f.admin("root")
	hr, hrToken := f.register(types.RoleHR, "hr")

	// profile incomplete
	body := expect[ErrorResponse](t, f.do(http.MethodPost, "/hr/applications", hrToken, types.ApplyRequest{AdminID: admin.ID}), http.StatusConflict)
	assert.Equal(t, "invalid_state", body.Code)
	assert.Equal(t, "actor", body.Details["entity"])

	years := 3
	resume := "Recruiter."
	expect[types.Actor](t, f.do(http.MethodPut, "/hr/profile", hrToken, types.HRProfileRequest{YearsOfExperience: &years, ResumeText: &resume}), http.StatusOK)
	mr := expect[types.MappingRequest](t, f.do(http.MethodPost, "/hr/applications", hrToken, types.ApplyRequest{AdminID: admin.ID}), http.StatusCreated)

	// only the target may accept
	expect[ErrorResponse](t, f.do(http.MethodPost, "/requests/"+mr.ID.String()+"/accept", hrToken, nil), http.StatusForbidden)

	expect[types.MappingRequest](t, f.do(http.MethodPost, "/requests/"+mr.ID.String()+"/reject", adminToken, nil), http.StatusOK)
	body = expect[ErrorResponse](t, f.do(http.MethodPost, "/requests/"+mr.ID.String()+"/accept", adminToken, nil), http.StatusConflict)
	assert.Equal(t, "invalid_state", body.Code)
	assert.Equal(t, "pending", body.Details["expected"])
	assert.Equal(t, "rejected", body.Details["actual"])

	body = expect[ErrorResponse](t, f.do(http.MethodPost, "/requests/"+uuid.NewString()+"/accept", adminToken, nil), http.StatusNotFound)
	assert.Equal(t, "not_found", body.Code)

	body = expect[ErrorResponse](t, f.do(http.MethodPost, "/requests/not-a-uuid/accept", adminToken, nil), http.StatusBadRequest)
	assert.Equal(t, "id", body.Details["field"])

	// a new request is allowed once the old one resolved
	mr = expect[types.MappingRequest](t, f.do(http.MethodPost, "/hr/applications", hrToken, types.ApplyRequest{AdminID: admin.ID}), http.StatusCreated)
	expect[types.MappingRequest](t, f.do(http.MethodPost, "/requests/"+mr.ID.String()+"/cancel", hrToken, nil), http.StatusOK)

	me := expect[types.Actor](t, f.do(http.MethodGet, "/auth/me", hrToken, nil), http.StatusOK)
	assert.Equal(t, hr.ID, me.ID)
	assert.Equal(t, types.HRProfileComplete, me.Status)
}

func TestListAdmins_ForHR(t *testing.T) {
	f := newAPI(t, &stubOracle{})
	admin, adminToken := f.admin("root")
	_, hrToken := f.register(types.RoleHR, "hr")
	_, candToken := f.register(types.RoleCandidate, "cand")

	w := f.do(http.MethodGet, "/hr/admins", hrToken, nil)
	list := expect[struct {
		Admins []map[string]any `json:"admins"`
		Count  int              `json:"count"`
	}](t, w, http.StatusOK)
	require.Equal(t, 1, list.Count)
	require.Len(t, list.Admins, 1)
	assert.Equal(t, admin.ID.String(), list.Admins[0]["id"])
	assert.Equal(t, admin.Name, list.Admins[0]["name"])
	assert.Equal(t, admin.Email, list.Admins[0]["email"])
	assert.Len(t, list.Admins[0], 3)

	// the listed id is what an application needs
	years := 4
	resume := "Recruiter for platform teams."
	expect[types.Actor](t, f.do(http.MethodPut, "/hr/profile", hrToken, types.HRProfileRequest{YearsOfExperience: &years, ResumeText: &resume}), http.StatusOK)
	adminID, err := uuid.Parse(list.Admins[0]["id"].(string))
	require.NoError(t, err)
	expect[types.MappingRequest](t, f.do(http.MethodPost, "/hr/applications", hrToken, types.ApplyRequest{AdminID: adminID}), http.StatusCreated)

	expect[ErrorResponse](t, f.do(http.MethodGet, "/hr/admins", candToken, nil), http.StatusForbidden)
	expect[ErrorResponse](t, f.do(http.MethodGet, "/hr/admins", adminToken, nil), http.StatusForbidden)
	expect[ErrorResponse](t, f.do(http.MethodGet, "/hr/admins", "", nil), http.StatusUnauthorized)
}

func TestUnmapReleasesCandidates(t *testing.T) {
	f := newAPI(t, &stubOracle{})
	admin, adminToken := f.admin("root")
	hr, hrToken := f.mappedHR("hr", admin.ID, adminToken)
	cand, candToken := f.assignedCandidate("cand", hr.ID, adminToken)

	res := expect[workflow.UnmapResult](t, f.do(http.MethodPost, "/hr/"+hr.ID.String()+"/unmap", hrToken, nil), http.StatusOK)
	require.Len(t, res.Released, 1)
	assert.Equal(t, cand.ID, res.Released[0].ID)

	me := expect[types.Actor](t, f.do(http.MethodGet, "/auth/me", candToken, nil), http.StatusOK)
	assert.Equal(t, types.CandidatePendingAssignment, me.Status)
	assert.Nil(t, me.AssignedHRID)
}

func TestRemoveActor(t *testing.T) {
	f := newAPI(t, &stubOracle{})
	_, adminToken := f.admin("root")
	cand, candToken := f.register(types.RoleCandidate, "cand")

	w := f.do(http.MethodDelete, "/admin/actors/"+cand.ID.String(), adminToken, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	expect[ErrorResponse](t, f.do(http.MethodGet, "/admin/actors/"+cand.ID.String(), adminToken, nil), http.StatusNotFound)
	expect[ErrorResponse](t, f.do(http.MethodGet, "/auth/me", candToken, nil), http.StatusNotFound)

	actors := expect[struct {
		Count int `json:"count"`
	}](t, f.do(http.MethodGet, "/admin/actors?role=candidate", adminToken, nil), http.StatusOK)
	assert.Zero(t, actors.Count)

	expect[ErrorResponse](t, f.do(http.MethodGet, "/admin/actors?role=wizard", adminToken, nil), http.StatusBadRequest)
}

func TestOracleUnavailable(t *testing.T) {
	f := newAPI(t, &stubOracle{down: true})
	admin, adminToken := f.admin("root")
	hr, hrToken := f.mappedHR("hr", admin.ID, adminToken)
	cand, candToken := f.assignedCandidate("cand", hr.ID, adminToken)

	iv := expect[types.Interview](t, f.do(http.MethodPost, "/interviews", hrToken, types.ScheduleRequest{
		CandidateID: cand.ID, JobTitle: "Backend Engineer", JobDescription: "Go services", TechStack: []string{"Go"}, QuestionCount: 2,
	}), http.StatusCreated)
	assert.Equal(t, types.SourceFallback, iv.QuestionSource)
	require.Len(t, iv.Questions, 2)

	ivPath := "/interviews/" + iv.ID.String()
	expect[types.Interview](t, f.do(http.MethodPost, ivPath+"/answers", candToken, types.SubmitAnswersRequest{Answers: []types.AnswerInput{
		{QuestionID: iv.Questions[0].ID, AnswerText: "A thorough answer with concrete examples."},
	}}), http.StatusOK)

	report := expect[workflow.EvaluationReport](t, f.do(http.MethodPost, ivPath+"/ai-evaluation", adminToken, types.AIEvaluationRequest{}), http.StatusOK)
	assert.Zero(t, report.Evaluated)
	assert.Equal(t, 1, report.Failed)
	require.Len(t, report.Items, 1)
	assert.NotEmpty(t, report.Items[0].Error)

	fetched := expect[types.Interview](t, f.do(http.MethodGet, ivPath, hrToken, nil), http.StatusOK)
	assert.Nil(t, fetched.Responses[iv.Questions[0].ID].AIScore)
}

func TestResumeUpload(t *testing.T) {
	f := newAPI(t, &stubOracle{})
	_, candToken := f.register(types.RoleCandidate, "cand")

	upload := func(filename string, content []byte) *httptest.ResponseRecorder {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		part, err := mw.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
		require.NoError(t, mw.Close())

		req := httptest.NewRequest(http.MethodPost, "/resume", &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		req.Header.Set("Authorization", "Bearer "+candToken)
		w := httptest.NewRecorder()
		f.handler.ServeHTTP(w, req)
		return w
	}

	body := expect[ErrorResponse](t, upload("resume.exe", []byte("MZ")), http.StatusUnsupportedMediaType)
	assert.Equal(t, "unsupported_file", body.Code)

	expect[ErrorResponse](t, upload("resume.txt", bytes.Repeat([]byte("a"), 2<<20)), http.StatusRequestEntityTooLarge)

	got := expect[types.Actor](t, upload("resume.txt", []byte("Senior Go engineer.\r\nSkills: Go, Kubernetes, PostgreSQL\r\n")), http.StatusOK)
	assert.Equal(t, types.CandidatePendingAssignment, got.Status)
	assert.True(t, got.HasResume)
}

func TestRateLimit(t *testing.T) {
	limiter := ratelimit.NewLimiter(&ratelimit.Config{Enabled: true, DefaultLimit: 2, DefaultWindow: time.Minute})
	t.Cleanup(limiter.Stop)
	f := newAPI(t, &stubOracle{}, withLimiter(limiter))

	for i := 0; i < 2; i++ {
		w := f.do(http.MethodGet, "/messages", "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))
	}

	w := f.do(http.MethodGet, "/requests", "", nil)
	body := expect[ErrorResponse](t, w, http.StatusTooManyRequests)
	assert.Equal(t, "rate_limited", body.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	expect[map[string]string](t, f.do(http.MethodGet, "/health", "", nil), http.StatusOK)
}

func TestCORS(t *testing.T) {
	f := newAPI(t, &stubOracle{}, withCORS("https://app.example.com"))

	req := httptest.NewRequest(http.MethodOptions, "/interviews", nil)
	req.Header.Set("Origin", "https://app.example.com")
	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "Authorization")

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w = httptest.NewRecorder()
	f.handler.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func ptr[T any](v T) *T { return &v }
