// Package workflow implements the hiring workflow core: the actor directory,
// HR to admin mapping, candidate assignment and the interview lifecycle.
// Every operation authorizes the acting actor, runs as one transaction
// against the Store and only then emits inbox notifications.
package workflow

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/hiring-pipeline/internal/enrich"
	"github.com/jonathan/hiring-pipeline/internal/logging"
	"github.com/jonathan/hiring-pipeline/internal/oracle"
	"github.com/jonathan/hiring-pipeline/internal/types"
)

const (
	defaultQuestionCount   = 5
	defaultEvalConcurrency = 4
	// minAnswerLength is the shortest answer worth sending to the oracle.
	minAnswerLength = 10
)

// QuestionSource supplies fallback questions when the oracle fails.
type QuestionSource interface {
	Select(jobTitle string, techStack []string, n int) []types.Question
}

// ProfileAnalyzer derives skills and experience from resume text.
type ProfileAnalyzer interface {
	Analyze(text string) enrich.Profile
}

// Notifier delivers inbox messages. Delivery is best effort.
type Notifier interface {
	Notify(ctx context.Context, msg *types.Message) error
}

// Config wires a Service.
type Config struct {
	Store     Store
	Oracle    oracle.Oracle
	Questions QuestionSource
	Analyzer  ProfileAnalyzer
	// Notifier defaults to writing messages into Store.
	Notifier Notifier
	Logger   *logging.Logger
	// QuestionCount is used when a schedule request does not ask for a count.
	QuestionCount int
	// EvalConcurrency caps parallel oracle calls during bulk evaluation.
	EvalConcurrency int
	Clock           func() time.Time
}

// Service runs workflow operations. It holds no mutable state of its own and
// is safe for concurrent use.
type Service struct {
	store           Store
	oracle          oracle.Oracle
	questions       QuestionSource
	analyzer        ProfileAnalyzer
	notifier        Notifier
	logger          *logging.Logger
	questionCount   int
	evalConcurrency int
	now             func() time.Time
}

// New validates cfg and returns a Service.
func New(cfg Config) (*Service, error) {
	if cfg.Store == nil {
		return nil, errors.New("workflow: store is required")
	}
	if cfg.Questions == nil {
		return nil, errors.New("workflow: fallback question source is required")
	}

	s := &Service{
		store:           cfg.Store,
		oracle:          cfg.Oracle,
		questions:       cfg.Questions,
		analyzer:        cfg.Analyzer,
		notifier:        cfg.Notifier,
		logger:          cfg.Logger,
		questionCount:   cfg.QuestionCount,
		evalConcurrency: cfg.EvalConcurrency,
		now:             cfg.Clock,
	}
	if s.oracle == nil {
		s.oracle = oracle.Disabled{}
	}
	if s.analyzer == nil {
		s.analyzer = enrich.NewAnalyzer(nil)
	}
	if s.notifier == nil {
		s.notifier = &InboxNotifier{repo: cfg.Store}
	}
	if s.logger == nil {
		s.logger = logging.NewNop()
	}
	s.logger = s.logger.With("component", "workflow")
	if s.questionCount <= 0 {
		s.questionCount = defaultQuestionCount
	}
	if s.evalConcurrency <= 0 {
		s.evalConcurrency = defaultEvalConcurrency
	}
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC() }
	}
	return s, nil
}

// Directory returns an actor directory over the store, outside any transaction.
func (s *Service) Directory() *Directory {
	return NewDirectory(s.store, s.now)
}

// atomic runs fn in a transaction and delivers the messages it queued once
// the transaction has committed.
func (s *Service) atomic(ctx context.Context, fn func(r Repository, dir *Directory, out *outbox) error) error {
	out := &outbox{}
	err := s.store.Atomic(ctx, func(r Repository) error {
		out.reset()
		return fn(r, NewDirectory(r, s.now), out)
	})
	if err != nil {
		return err
	}
	s.deliver(ctx, out.msgs)
	return nil
}

func (s *Service) deliver(ctx context.Context, msgs []*types.Message) {
	for _, m := range msgs {
		m.ID = uuid.New()
		m.CreatedAt = s.now()
		if err := s.notifier.Notify(ctx, m); err != nil {
			s.logger.Warn("notification dropped", "recipient", m.RecipientID, "kind", string(m.Kind), "error", err)
		}
	}
}

// requireActor loads the acting actor and checks its role.
func requireActor(ctx context.Context, dir *Directory, id uuid.UUID, action string, roles ...types.Role) (*types.Actor, error) {
	a, err := dir.repo.GetActor(ctx, id)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, &ForbiddenError{ActorID: id.String(), Action: action, Reason: "unknown actor"}
	}
	for _, r := range roles {
		if a.Role == r {
			return a, nil
		}
	}
	return nil, &ForbiddenError{ActorID: id.String(), Action: action, Reason: "role " + string(a.Role) + " is not allowed"}
}
