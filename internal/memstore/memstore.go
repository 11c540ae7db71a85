// Package memstore is an in-process workflow.Store. All data lives in maps
// guarded by one mutex; a transaction holds the mutex for its whole duration
// and restores a snapshot when it fails. It backs tests and single-node demos.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/hiring-pipeline/internal/types"
	"github.com/jonathan/hiring-pipeline/internal/workflow"
)

type actorRow struct {
	actor *types.Actor
	hash  string
}

type requestRow struct {
	req *types.MappingRequest
	seq int64
}

type messageRow struct {
	msg *types.Message
	seq int64
}

type state struct {
	actors     map[uuid.UUID]*actorRow
	emails     map[string]uuid.UUID
	requests   map[uuid.UUID]*requestRow
	interviews map[uuid.UUID]*types.Interview
	messages   map[uuid.UUID]*messageRow
	seq        int64
}

func newState() *state {
	return &state{
		actors:     make(map[uuid.UUID]*actorRow),
		emails:     make(map[string]uuid.UUID),
		requests:   make(map[uuid.UUID]*requestRow),
		interviews: make(map[uuid.UUID]*types.Interview),
		messages:   make(map[uuid.UUID]*messageRow),
	}
}

func (st *state) snapshot() *state {
	c := newState()
	c.seq = st.seq
	for id, row := range st.actors {
		c.actors[id] = &actorRow{actor: row.actor.Clone(), hash: row.hash}
	}
	for e, id := range st.emails {
		c.emails[e] = id
	}
	for id, row := range st.requests {
		c.requests[id] = &requestRow{req: row.req.Clone(), seq: row.seq}
	}
	for id, iv := range st.interviews {
		c.interviews[id] = iv.Clone()
	}
	for id, row := range st.messages {
		m := *row.msg
		c.messages[id] = &messageRow{msg: &m, seq: row.seq}
	}
	return c
}

func (st *state) next() int64 {
	st.seq++
	return st.seq
}

// Store is a goroutine-safe in-memory workflow.Store.
type Store struct {
	*repo
	mu sync.Mutex
	st *state
}

var _ workflow.Store = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	s := &Store{st: newState()}
	s.repo = &repo{store: s}
	return s
}

// Atomic runs fn while holding the store lock. If fn fails every change it
// made is discarded.
func (s *Store) Atomic(ctx context.Context, fn func(r workflow.Repository) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	before := s.st.snapshot()
	if err := fn(&repo{store: s, inTx: true}); err != nil {
		s.st = before
		return err
	}
	return nil
}

// repo implements workflow.Repository. Outside a transaction every call takes
// the store lock itself; inside one the lock is already held.
type repo struct {
	store *Store
	inTx  bool
}

func (r *repo) guard() func() {
	if r.inTx {
		return func() {}
	}
	r.store.mu.Lock()
	return r.store.mu.Unlock
}

func (r *repo) GetActor(_ context.Context, id uuid.UUID) (*types.Actor, error) {
	defer r.guard()()
	if row, ok := r.store.st.actors[id]; ok {
		return row.actor.Clone(), nil
	}
	return nil, nil
}

// LockActor is GetActor; the store lock already serializes transactions.
func (r *repo) LockActor(ctx context.Context, id uuid.UUID) (*types.Actor, error) {
	return r.GetActor(ctx, id)
}

func (r *repo) GetActorByEmail(_ context.Context, email string) (*types.Actor, error) {
	defer r.guard()()
	id, ok := r.store.st.emails[normalizeEmail(email)]
	if !ok {
		return nil, nil
	}
	return r.store.st.actors[id].actor.Clone(), nil
}

// GetCredentials returns the actor registered under email and its password hash.
func (r *repo) GetCredentials(_ context.Context, email string) (*types.Actor, string, error) {
	defer r.guard()()
	id, ok := r.store.st.emails[normalizeEmail(email)]
	if !ok {
		return nil, "", nil
	}
	row := r.store.st.actors[id]
	return row.actor.Clone(), row.hash, nil
}

func (r *repo) ListActors(_ context.Context, filter types.ActorFilter) ([]*types.Actor, error) {
	defer r.guard()()
	var out []*types.Actor
	for _, row := range r.store.st.actors {
		if filter.Matches(row.actor) {
			out = append(out, row.actor.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

func (r *repo) CreateActor(_ context.Context, actor *types.Actor, passwordHash string) error {
	defer r.guard()()
	email := normalizeEmail(actor.Email)
	if _, taken := r.store.st.emails[email]; taken {
		return &workflow.DuplicateEmailError{Email: email}
	}
	a := actor.Clone()
	a.Email = email
	r.store.st.actors[a.ID] = &actorRow{actor: a, hash: passwordHash}
	r.store.st.emails[email] = a.ID
	return nil
}

func (r *repo) SwapActorState(_ context.Context, id uuid.UUID, expected types.Status, next types.ActorState, at time.Time) (bool, error) {
	defer r.guard()()
	row, ok := r.store.st.actors[id]
	if !ok || row.actor.Status != expected {
		return false, nil
	}
	row.actor.Apply(types.ActorState{
		Status:       next.Status,
		SupervisorID: copyID(next.SupervisorID),
		AssignedHRID: copyID(next.AssignedHRID),
	})
	row.actor.UpdatedAt = at
	return true, nil
}

func (r *repo) UpdateActorProfile(_ context.Context, id uuid.UUID, u types.ProfileUpdate, at time.Time) error {
	defer r.guard()()
	row, ok := r.store.st.actors[id]
	if !ok {
		return &workflow.NotFoundError{Entity: workflow.EntityActor, ID: id.String()}
	}
	a := row.actor
	if u.Name != nil {
		a.Name = *u.Name
	}
	if u.ResumeText != nil {
		a.ResumeText = *u.ResumeText
		a.HasResume = a.ResumeText != ""
	}
	if u.Skills != nil {
		a.Skills = append([]string(nil), u.Skills...)
	}
	if u.EstimatedYOE != nil {
		v := *u.EstimatedYOE
		a.EstimatedYOE = &v
	}
	if u.YearsOfExperience != nil {
		v := *u.YearsOfExperience
		a.YearsOfExperience = &v
	}
	a.UpdatedAt = at
	return nil
}

func (r *repo) DeleteActor(_ context.Context, id uuid.UUID) error {
	defer r.guard()()
	row, ok := r.store.st.actors[id]
	if !ok {
		return &workflow.NotFoundError{Entity: workflow.EntityActor, ID: id.String()}
	}
	delete(r.store.st.emails, row.actor.Email)
	delete(r.store.st.actors, id)
	return nil
}

func (r *repo) CreateRequest(_ context.Context, req *types.MappingRequest) error {
	defer r.guard()()
	if req.Status == types.RequestPending {
		for _, row := range r.store.st.requests {
			if row.req.HRID == req.HRID && row.req.Status == types.RequestPending {
				return &workflow.ConflictError{
					Entity: workflow.EntityRequest, ID: row.req.ID.String(),
					Expected: "no pending request", Actual: string(row.req.Status),
				}
			}
		}
	}
	r.store.st.requests[req.ID] = &requestRow{req: req.Clone(), seq: r.store.st.next()}
	return nil
}

func (r *repo) GetRequest(_ context.Context, id uuid.UUID) (*types.MappingRequest, error) {
	defer r.guard()()
	if row, ok := r.store.st.requests[id]; ok {
		return row.req.Clone(), nil
	}
	return nil, nil
}

func (r *repo) ListRequests(_ context.Context, filter types.RequestFilter) ([]*types.MappingRequest, error) {
	defer r.guard()()
	var rows []*requestRow
	for _, row := range r.store.st.requests {
		if filter.Matches(row.req) {
			rows = append(rows, row)
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].req.CreatedAt.Equal(rows[j].req.CreatedAt) {
			return rows[i].req.CreatedAt.Before(rows[j].req.CreatedAt)
		}
		return rows[i].seq < rows[j].seq
	})
	out := make([]*types.MappingRequest, len(rows))
	for i, row := range rows {
		out[i] = row.req.Clone()
	}
	return out, nil
}

func (r *repo) SwapRequestStatus(_ context.Context, id uuid.UUID, expected, next types.RequestStatus, at time.Time) (bool, error) {
	defer r.guard()()
	row, ok := r.store.st.requests[id]
	if !ok || row.req.Status != expected {
		return false, nil
	}
	row.req.Status = next
	row.req.UpdatedAt = at
	if next != types.RequestPending {
		row.req.ResolvedAt = &at
	}
	return true, nil
}

func (r *repo) CreateInterview(_ context.Context, iv *types.Interview) error {
	defer r.guard()()
	c := iv.Clone()
	if c.Responses == nil {
		c.Responses = map[string]*types.Response{}
	}
	r.store.st.interviews[iv.ID] = c
	return nil
}

func (r *repo) GetInterview(_ context.Context, id uuid.UUID) (*types.Interview, error) {
	defer r.guard()()
	if iv, ok := r.store.st.interviews[id]; ok {
		return iv.Clone(), nil
	}
	return nil, nil
}

func (r *repo) LockInterview(ctx context.Context, id uuid.UUID) (*types.Interview, error) {
	return r.GetInterview(ctx, id)
}

func (r *repo) ListInterviews(_ context.Context, filter types.InterviewFilter) ([]*types.Interview, error) {
	defer r.guard()()
	var out []*types.Interview
	for _, iv := range r.store.st.interviews {
		if filter.Matches(iv) {
			out = append(out, iv.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

func (r *repo) SwapInterviewStatus(_ context.Context, id uuid.UUID, expected, next types.InterviewStatus, at time.Time) (bool, error) {
	defer r.guard()()
	iv, ok := r.store.st.interviews[id]
	if !ok || iv.Status != expected {
		return false, nil
	}
	iv.Status = next
	iv.UpdatedAt = at
	switch next {
	case types.InterviewInProgress:
		iv.StartedAt = &at
	case types.InterviewCompleted:
		iv.CompletedAt = &at
	}
	return true, nil
}

func (r *repo) InsertResponse(_ context.Context, interviewID uuid.UUID, resp *types.Response) (bool, error) {
	defer r.guard()()
	iv, ok := r.store.st.interviews[interviewID]
	if !ok {
		return false, &workflow.NotFoundError{Entity: workflow.EntityInterview, ID: interviewID.String()}
	}
	if _, exists := iv.Responses[resp.QuestionID]; exists {
		return false, nil
	}
	c := *resp
	iv.Responses[resp.QuestionID] = &c
	return true, nil
}

func (r *repo) response(interviewID uuid.UUID, questionID string) *types.Response {
	iv, ok := r.store.st.interviews[interviewID]
	if !ok {
		return nil
	}
	return iv.Responses[questionID]
}

func (r *repo) SetAIScore(_ context.Context, interviewID uuid.UUID, questionID string, score float64, feedback string, at time.Time) (bool, error) {
	defer r.guard()()
	resp := r.response(interviewID, questionID)
	if resp == nil {
		return false, nil
	}
	resp.AIScore, resp.AIFeedback, resp.AIEvaluatedAt = &score, feedback, &at
	return true, nil
}

func (r *repo) SetManualScore(_ context.Context, interviewID uuid.UUID, questionID string, score float64, feedback string, by uuid.UUID, at time.Time) (bool, error) {
	defer r.guard()()
	resp := r.response(interviewID, questionID)
	if resp == nil {
		return false, nil
	}
	resp.ManualScore, resp.ManualFeedback, resp.ScoredBy, resp.ScoredAt = &score, feedback, &by, &at
	return true, nil
}

func (r *repo) SetEvaluation(_ context.Context, interviewID uuid.UUID, eval *types.Evaluation) error {
	defer r.guard()()
	iv, ok := r.store.st.interviews[interviewID]
	if !ok {
		return &workflow.NotFoundError{Entity: workflow.EntityInterview, ID: interviewID.String()}
	}
	e := *eval
	iv.Evaluation = &e
	iv.UpdatedAt = eval.EvaluatedAt
	return nil
}

func (r *repo) CreateMessage(_ context.Context, msg *types.Message) error {
	defer r.guard()()
	m := *msg
	r.store.st.messages[m.ID] = &messageRow{msg: &m, seq: r.store.st.next()}
	return nil
}

func (r *repo) ListMessages(_ context.Context, recipientID uuid.UUID, unreadOnly bool) ([]*types.Message, error) {
	defer r.guard()()
	var rows []*messageRow
	for _, row := range r.store.st.messages {
		if row.msg.RecipientID != recipientID || (unreadOnly && row.msg.ReadAt != nil) {
			continue
		}
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].msg.CreatedAt.Equal(rows[j].msg.CreatedAt) {
			return rows[i].msg.CreatedAt.After(rows[j].msg.CreatedAt)
		}
		return rows[i].seq > rows[j].seq
	})
	out := make([]*types.Message, len(rows))
	for i, row := range rows {
		m := *row.msg
		out[i] = &m
	}
	return out, nil
}

func (r *repo) MarkMessagesRead(_ context.Context, recipientID uuid.UUID, ids []uuid.UUID, at time.Time) (int, error) {
	defer r.guard()()
	n := 0
	for _, id := range ids {
		row, ok := r.store.st.messages[id]
		if !ok || row.msg.RecipientID != recipientID || row.msg.ReadAt != nil {
			continue
		}
		t := at
		row.msg.ReadAt = &t
		n++
	}
	return n, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func copyID(id *uuid.UUID) *uuid.UUID {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}
