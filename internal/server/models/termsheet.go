package models

import "time"

type TermSheetKind string

const (
	KindSAFE TermSheetKind = "safe"
	KindNote TermSheetKind = "note"
)

func (k TermSheetKind) Valid() bool {
	return k == KindSAFE || k == KindNote
}

// TermSheet is one immutable version of the terms offered on a deal. Only
// Locked ever changes after insert.
type TermSheet struct {
	DealID    string         `json:"deal_id"`
	Kind      TermSheetKind  `json:"kind"`
	Version   int            `json:"version"`
	Terms     map[string]any `json:"terms"`
	Locked    bool           `json:"lock_termsheet"`
	OfferedBy string         `json:"offered_by"`
	CreatedAt time.Time      `json:"created_at"`
}
