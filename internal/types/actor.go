// Package types holds the records and status enums shared by the workflow core,
// the storage backends, and the HTTP layer.
package types

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Role identifies which kind of actor a record describes.
type Role string

const (
	RoleCandidate Role = "candidate"
	RoleHR        Role = "hr"
	RoleAdmin     Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleCandidate, RoleHR, RoleAdmin:
		return true
	}
	return false
}

// Status is the role-specific workflow status of an actor. HR actors carry
// an hr_status value, candidates a mapping_status value, admins none.
type Status string

// HR statuses.
const (
	HRPendingProfile      Status = "pending_profile"
	HRProfileComplete     Status = "profile_complete"
	HRApplicationPending  Status = "application_pending"
	HRAdminRequestPending Status = "admin_request_pending"
	HRMapped              Status = "mapped"
)

// Candidate statuses.
const (
	CandidatePendingResume     Status = "pending_resume"
	CandidatePendingAssignment Status = "pending_assignment"
	CandidateAssigned          Status = "assigned"
)

// StatusNone is the status of every admin.
const StatusNone Status = ""

var roleStatuses = map[Role][]Status{
	RoleHR: {
		HRPendingProfile, HRProfileComplete, HRApplicationPending,
		HRAdminRequestPending, HRMapped,
	},
	RoleCandidate: {
		CandidatePendingResume, CandidatePendingAssignment, CandidateAssigned,
	},
	RoleAdmin: {StatusNone},
}

// InitialStatus returns the status a freshly registered actor of role r starts in.
func InitialStatus(r Role) Status {
	switch r {
	case RoleHR:
		return HRPendingProfile
	case RoleCandidate:
		return CandidatePendingResume
	}
	return StatusNone
}

// StatusValidFor reports whether s is meaningful for role r.
func StatusValidFor(r Role, s Status) bool {
	for _, allowed := range roleStatuses[r] {
		if allowed == s {
			return true
		}
	}
	return false
}

// Actor is the identity-independent workflow record of a candidate, HR or admin.
// SupervisorID is only set on mapped HR actors; AssignedHRID only on assigned
// candidates. Both are weak references resolved by lookup.
type Actor struct {
	ID                uuid.UUID  `json:"id"`
	Role              Role       `json:"role"`
	Name              string     `json:"name"`
	Email             string     `json:"email"`
	Status            Status     `json:"status,omitempty"`
	SupervisorID      *uuid.UUID `json:"supervisor_id,omitempty"`
	AssignedHRID      *uuid.UUID `json:"assigned_hr_id,omitempty"`
	Skills            []string   `json:"skills,omitempty"`
	EstimatedYOE      *float64   `json:"estimated_yoe,omitempty"`
	YearsOfExperience *int       `json:"years_of_experience,omitempty"`
	ResumeText        string     `json:"-"`
	HasResume         bool       `json:"has_resume"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// AdminInfo is the public view of an admin that HR actors may apply to.
type AdminInfo struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
}

// ActorState captures the CAS-protected portion of an actor: its status and both edges.
type ActorState struct {
	Status       Status
	SupervisorID *uuid.UUID
	AssignedHRID *uuid.UUID
}

// State returns the current CAS-protected state of the actor.
func (a *Actor) State() ActorState {
	return ActorState{
		Status:       a.Status,
		SupervisorID: a.SupervisorID,
		AssignedHRID: a.AssignedHRID,
	}
}

// Apply copies s onto the actor.
func (a *Actor) Apply(s ActorState) {
	a.Status = s.Status
	a.SupervisorID = s.SupervisorID
	a.AssignedHRID = s.AssignedHRID
}

// Clone returns a deep copy of the actor.
func (a *Actor) Clone() *Actor {
	if a == nil {
		return nil
	}
	c := *a
	c.SupervisorID = cloneID(a.SupervisorID)
	c.AssignedHRID = cloneID(a.AssignedHRID)
	if a.Skills != nil {
		c.Skills = append([]string(nil), a.Skills...)
	}
	if a.EstimatedYOE != nil {
		v := *a.EstimatedYOE
		c.EstimatedYOE = &v
	}
	if a.YearsOfExperience != nil {
		v := *a.YearsOfExperience
		c.YearsOfExperience = &v
	}
	return &c
}

func (a *Actor) String() string {
	return fmt.Sprintf("%s %s (%s)", a.Role, a.ID, a.Status)
}

// ProfileUpdate carries the non-status profile fields an actor may change.
// Nil fields are left untouched.
type ProfileUpdate struct {
	Name              *string
	ResumeText        *string
	Skills            []string
	EstimatedYOE      *float64
	YearsOfExperience *int
}

// ActorFilter narrows actor listings. Zero values match everything.
type ActorFilter struct {
	Role         Role
	Status       Status
	SupervisorID *uuid.UUID
	AssignedHRID *uuid.UUID
}

// Matches reports whether a satisfies the filter.
func (f ActorFilter) Matches(a *Actor) bool {
	if f.Role != "" && a.Role != f.Role {
		return false
	}
	if f.Status != "" && a.Status != f.Status {
		return false
	}
	if f.SupervisorID != nil && (a.SupervisorID == nil || *a.SupervisorID != *f.SupervisorID) {
		return false
	}
	if f.AssignedHRID != nil && (a.AssignedHRID == nil || *a.AssignedHRID != *f.AssignedHRID) {
		return false
	}
	return true
}

func cloneID(id *uuid.UUID) *uuid.UUID {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}

// IDPtr returns a pointer to a copy of id.
func IDPtr(id uuid.UUID) *uuid.UUID {
	return &id
}

// SameID reports whether two optional ids refer to the same actor.
func SameID(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
