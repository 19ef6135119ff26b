package models

import "time"

// Usage is the state of one user's counter for one billing period.
type Usage struct {
	UserID    string
	Tier      Tier
	Period    string
	Used      int
	Limit     int
	Remaining int
	ResetsAt  time.Time
}

type EntitlementStatus string

const (
	EntitlementPaid     EntitlementStatus = "paid"
	EntitlementFailed   EntitlementStatus = "failed"
	EntitlementRefunded EntitlementStatus = "refunded"
)

// EntitlementEvent is a payment outcome reported by the external gateway.
type EntitlementEvent struct {
	Reference  string
	UserID     string
	Tier       Tier
	Status     EntitlementStatus
	Amount     int64
	Currency   string
	ReceivedAt time.Time
}

type AuthEvent string

const (
	EventLoginSuccess      AuthEvent = "login_success"
	EventLoginFailure      AuthEvent = "login_failure"
	EventAdminLoginSuccess AuthEvent = "admin_login_success"
	EventAdminLoginFailure AuthEvent = "admin_login_failure"
	EventRegister          AuthEvent = "register"
	EventRefresh           AuthEvent = "refresh"
	EventQuotaExceeded     AuthEvent = "quota_exceeded"
	EventPasswordReset     AuthEvent = "password_reset"
)

var AuthEvents = []AuthEvent{
	EventLoginSuccess,
	EventLoginFailure,
	EventAdminLoginSuccess,
	EventAdminLoginFailure,
	EventRegister,
	EventRefresh,
	EventQuotaExceeded,
	EventPasswordReset,
}
