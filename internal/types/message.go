package types

import (
	"time"

	"github.com/google/uuid"
)

// MessageKind tags an inbox message with the event that produced it.
type MessageKind string

const (
	MessageApplicationReceived MessageKind = "application_received"
	MessageInvitationReceived  MessageKind = "invitation_received"
	MessageRequestAccepted     MessageKind = "request_accepted"
	MessageRequestRejected     MessageKind = "request_rejected"
	MessageRequestCancelled    MessageKind = "request_cancelled"
	MessageUnmapped            MessageKind = "unmapped"
	MessageUnassigned          MessageKind = "unassigned"
	MessageCandidateAssigned   MessageKind = "candidate_assigned"
	MessageCandidateInvited    MessageKind = "candidate_invited"
	MessageInterviewScheduled  MessageKind = "interview_scheduled"
	MessageInterviewEvaluated  MessageKind = "interview_evaluated"
)

// Message is one entry in an actor's inbox. SenderID is nil for system messages.
type Message struct {
	ID          uuid.UUID   `json:"id"`
	SenderID    *uuid.UUID  `json:"sender_id,omitempty"`
	RecipientID uuid.UUID   `json:"recipient_id"`
	Kind        MessageKind `json:"kind"`
	Subject     string      `json:"subject"`
	Body        string      `json:"body"`
	CreatedAt   time.Time   `json:"created_at"`
	ReadAt      *time.Time  `json:"read_at,omitempty"`
}

// Stats summarizes directory and interview counts for the admin dashboard.
type Stats struct {
	ActorsByRole       map[Role]int            `json:"actors_by_role"`
	HRByStatus         map[Status]int          `json:"hr_by_status"`
	CandidatesByStatus map[Status]int          `json:"candidates_by_status"`
	InterviewsByStatus map[InterviewStatus]int `json:"interviews_by_status"`
	PendingRequests    int                     `json:"pending_requests"`
}
