package models

import "time"

type RefreshToken struct {
	AccountID string
	Token     string
	Expires   time.Time
}
