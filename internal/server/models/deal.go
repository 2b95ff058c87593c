package models

import "time"

type DealStatus string

const (
	DealPending  DealStatus = "pending"
	DealActive   DealStatus = "active"
	DealAccepted DealStatus = "accepted"
	DealClosed   DealStatus = "closed"
	DealCanceled DealStatus = "canceled"
)

var dealRank = map[DealStatus]int{
	DealPending:  0,
	DealActive:   1,
	DealAccepted: 2,
	DealClosed:   3,
}

// Terminal reports whether no further transition is possible.
func (s DealStatus) Terminal() bool {
	return s == DealClosed || s == DealCanceled
}

// CanTransition reports whether a deal may move from s to next. Statuses only
// move forward; cancel is allowed from any non-terminal status.
func (s DealStatus) CanTransition(next DealStatus) bool {
	if s.Terminal() {
		return false
	}
	if next == DealCanceled {
		return true
	}
	from, ok1 := dealRank[s]
	to, ok2 := dealRank[next]
	return ok1 && ok2 && to > from
}

// Deal links one investor with one startup.
type Deal struct {
	ID          string     `json:"id"`
	InvestorUID string     `json:"investor_uid"`
	StartupUID  string     `json:"startup_uid"`
	Status      DealStatus `json:"status"`
	DealNo      *string    `json:"deal_no"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// HasParticipant reports whether uid is the investor or the startup.
func (d *Deal) HasParticipant(uid string) bool {
	return uid != "" && (d.InvestorUID == uid || d.StartupUID == uid)
}

// Counterparty returns the other participant of the deal.
func (d *Deal) Counterparty(uid string) string {
	if d.InvestorUID == uid {
		return d.StartupUID
	}
	return d.InvestorUID
}
