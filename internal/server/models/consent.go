package models

import "time"

const (
	SignerRoleDirector = "director"
	SignerRoleFounder  = "founder"
)

// Signer is one entry of a board consent document. The token hash stays
// server-side and is never serialized.
type Signer struct {
	ID             string            `json:"id"`
	Role           string            `json:"role"`
	FounderIndex   *int              `json:"founder_index,omitempty"`
	FullName       string            `json:"full_name"`
	Email          string            `json:"email"`
	Signatory      *SignaturePayload `json:"signatory"`
	SignedAt       *time.Time        `json:"signed_at"`
	TokenUsed      bool              `json:"token_used"`
	TokenExpiresAt *time.Time        `json:"token_expires_at,omitempty"`
	InvitedAt      *time.Time        `json:"invited_at,omitempty"`
	TokenHash      string            `json:"-"`
}

// Status is the signer's position in the invite/sign lifecycle at now.
func (s *Signer) Status(now time.Time) string {
	switch {
	case s.Signatory != nil:
		return "signed"
	case s.TokenHash == "":
		return "invited"
	case s.TokenExpiresAt != nil && !now.Before(*s.TokenExpiresAt):
		return "token_expired"
	default:
		return "token_issued"
	}
}

// ConsentDocument is the board consent of one founder for one workflow.
type ConsentDocument struct {
	OwnerUID  string   `json:"uid"`
	Workflow  string   `json:"workflow"`
	Locked    bool     `json:"locked"`
	Directors []Signer `json:"directors"`
}

// SignerView is what an external signer sees before signing.
type SignerView struct {
	OwnerUID  string    `json:"uid"`
	Workflow  string    `json:"workflow"`
	SignerID  string    `json:"signer_id"`
	Role      string    `json:"role"`
	FullName  string    `json:"full_name"`
	Email     string    `json:"email"`
	Locked    bool      `json:"locked"`
	Signed    bool      `json:"signed"`
	ExpiresAt time.Time `json:"expires_at"`
}
