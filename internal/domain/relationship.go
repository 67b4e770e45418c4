package domain

import "time"

// Estados del vinculo miembro-acompanante.
const (
	RelationshipPending = "pending"
	RelationshipActive  = "active"
	RelationshipRevoked = "revoked"
)

// SupporterRelationship es la arista dirigida miembro -> acompanante.
type SupporterRelationship struct {
	ID          string     `json:"id"`
	OwnerID     string     `json:"owner_id"`
	Contact     string     `json:"contact"`
	SupporterID string     `json:"supporter_id,omitempty"`
	State       string     `json:"state"`
	CreatedAt   time.Time  `json:"created_at"`
	AcceptedAt  *time.Time `json:"accepted_at,omitempty"`
	RevokedAt   *time.Time `json:"revoked_at,omitempty"`
}
