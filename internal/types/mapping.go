package types

import (
	"time"

	"github.com/google/uuid"
)

// RequestKind distinguishes who opened a mapping negotiation.
type RequestKind string

const (
	// KindApplication is opened by an HR actor towards an admin.
	KindApplication RequestKind = "application"
	// KindInvitation is opened by an admin towards an HR actor.
	KindInvitation RequestKind = "invitation"
)

// RequestStatus is the lifecycle status of a mapping request.
type RequestStatus string

const (
	RequestPending   RequestStatus = "pending"
	RequestAccepted  RequestStatus = "accepted"
	RequestRejected  RequestStatus = "rejected"
	RequestCancelled RequestStatus = "cancelled"
)

// MappingRequest is one negotiation to create an HR to admin supervision edge.
// Requests are never deleted.
type MappingRequest struct {
	ID          uuid.UUID     `json:"id"`
	Kind        RequestKind   `json:"kind"`
	RequesterID uuid.UUID     `json:"requester_id"`
	TargetID    uuid.UUID     `json:"target_id"`
	HRID        uuid.UUID     `json:"hr_id"`
	AdminID     uuid.UUID     `json:"admin_id"`
	Status      RequestStatus `json:"status"`
	// HRStatusAtCreation is the status the HR was moved to when the request
	// was opened; accept compares against it before mapping the HR.
	HRStatusAtCreation Status     `json:"hr_status_at_creation"`
	Message            string     `json:"message,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
	ResolvedAt         *time.Time `json:"resolved_at,omitempty"`
}

// Clone returns a copy of the request.
func (r *MappingRequest) Clone() *MappingRequest {
	if r == nil {
		return nil
	}
	c := *r
	if r.ResolvedAt != nil {
		t := *r.ResolvedAt
		c.ResolvedAt = &t
	}
	return &c
}

// PendingStatusFor returns the HR status that marks a pending request of kind k.
func PendingStatusFor(k RequestKind) Status {
	if k == KindInvitation {
		return HRAdminRequestPending
	}
	return HRApplicationPending
}

// RequestFilter narrows request listings. Zero values match everything.
type RequestFilter struct {
	RequesterID *uuid.UUID
	TargetID    *uuid.UUID
	HRID        *uuid.UUID
	// PartyID matches requests where the actor is requester or target.
	PartyID *uuid.UUID
	Kind    RequestKind
	Status  RequestStatus
}

// Matches reports whether r satisfies the filter.
func (f RequestFilter) Matches(r *MappingRequest) bool {
	if f.RequesterID != nil && r.RequesterID != *f.RequesterID {
		return false
	}
	if f.TargetID != nil && r.TargetID != *f.TargetID {
		return false
	}
	if f.HRID != nil && r.HRID != *f.HRID {
		return false
	}
	if f.PartyID != nil && r.RequesterID != *f.PartyID && r.TargetID != *f.PartyID {
		return false
	}
	if f.Kind != "" && r.Kind != f.Kind {
		return false
	}
	if f.Status != "" && r.Status != f.Status {
		return false
	}
	return true
}
