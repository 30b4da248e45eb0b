package model

import "time"

// AlertRule is a per-(user, category) spending ceiling. At most one rule
// exists per pair; the storage layer enforces this with a unique index
// rather than a read-then-write check.
type AlertRule struct {
	CreatedAt time.Time
	UpdatedAt time.Time
	UserID    string
	Category  string
	Threshold float64
	ID        int64
	IsActive  bool
}

// AlertRulePatch describes a partial rule update. Nil fields are left
// untouched.
type AlertRulePatch struct {
	Threshold *float64
	IsActive  *bool
}
