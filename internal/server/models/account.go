package models

import "time"

const (
	RoleFounder  = "founder"
	RoleInvestor = "investor"
)

// Account is a registered platform user. Founders own startups and their
// documents; investors open deals with startups.
type Account struct {
	ID           string    `json:"uid"`
	Email        string    `json:"email"`
	PasswordHash []byte    `json:"-"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}
