package workflow

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/hiring-pipeline/internal/types"
)

// Repository is the persistence contract of the workflow core. Getters return
// (nil, nil) when the row does not exist. Swap* methods are compare-and-swap
// writes: they apply only when the stored status equals expected and report
// whether a row was changed.
type Repository interface {
	GetActor(ctx context.Context, id uuid.UUID) (*types.Actor, error)
	// LockActor reads an actor and holds it against concurrent writers until
	// the surrounding transaction ends.
	LockActor(ctx context.Context, id uuid.UUID) (*types.Actor, error)
	GetActorByEmail(ctx context.Context, email string) (*types.Actor, error)
	ListActors(ctx context.Context, filter types.ActorFilter) ([]*types.Actor, error)
	// CreateActor inserts an actor; a taken email yields a DuplicateEmailError.
	CreateActor(ctx context.Context, actor *types.Actor, passwordHash string) error
	SwapActorState(ctx context.Context, id uuid.UUID, expected types.Status, next types.ActorState, at time.Time) (bool, error)
	UpdateActorProfile(ctx context.Context, id uuid.UUID, update types.ProfileUpdate, at time.Time) error
	DeleteActor(ctx context.Context, id uuid.UUID) error

	CreateRequest(ctx context.Context, req *types.MappingRequest) error
	GetRequest(ctx context.Context, id uuid.UUID) (*types.MappingRequest, error)
	// ListRequests returns matching requests ordered by creation time, oldest first.
	ListRequests(ctx context.Context, filter types.RequestFilter) ([]*types.MappingRequest, error)
	SwapRequestStatus(ctx context.Context, id uuid.UUID, expected, next types.RequestStatus, at time.Time) (bool, error)

	CreateInterview(ctx context.Context, iv *types.Interview) error
	GetInterview(ctx context.Context, id uuid.UUID) (*types.Interview, error)
	LockInterview(ctx context.Context, id uuid.UUID) (*types.Interview, error)
	ListInterviews(ctx context.Context, filter types.InterviewFilter) ([]*types.Interview, error)
	SwapInterviewStatus(ctx context.Context, id uuid.UUID, expected, next types.InterviewStatus, at time.Time) (bool, error)
	// InsertResponse adds a response unless one already exists for the
	// question, in which case it reports false and leaves the stored one intact.
	InsertResponse(ctx context.Context, interviewID uuid.UUID, resp *types.Response) (bool, error)
	// SetAIScore writes only the ai_* fields of a response.
	SetAIScore(ctx context.Context, interviewID uuid.UUID, questionID string, score float64, feedback string, at time.Time) (bool, error)
	// SetManualScore writes only the manual_* fields of a response.
	SetManualScore(ctx context.Context, interviewID uuid.UUID, questionID string, score float64, feedback string, by uuid.UUID, at time.Time) (bool, error)
	SetEvaluation(ctx context.Context, interviewID uuid.UUID, eval *types.Evaluation) error

	CreateMessage(ctx context.Context, msg *types.Message) error
	ListMessages(ctx context.Context, recipientID uuid.UUID, unreadOnly bool) ([]*types.Message, error)
	MarkMessagesRead(ctx context.Context, recipientID uuid.UUID, ids []uuid.UUID, at time.Time) (int, error)
}

// Store is a Repository that can run a group of operations atomically.
type Store interface {
	Repository
	// Atomic runs fn in a single transaction. Any error returned by fn rolls
	// back every write fn made through the Repository it was given.
	Atomic(ctx context.Context, fn func(r Repository) error) error
}
