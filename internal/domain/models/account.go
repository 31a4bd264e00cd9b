package models

import (
	"time"
)

type PlanTier string

const (
	PlanFree    PlanTier = "free"
	PlanPremium PlanTier = "premium"
	PlanPro     PlanTier = "pro"
)

// AllPlanTiers must list every PlanTier constant; the plan feature
// matrix is validated against it in tests.
var AllPlanTiers = []PlanTier{PlanFree, PlanPremium, PlanPro}

var planRank = map[PlanTier]int{
	PlanFree:    0,
	PlanPremium: 1,
	PlanPro:     2,
}

// AtLeast reports whether p is the same tier as other or a higher one.
// Unknown tiers rank below free.
func (p PlanTier) AtLeast(other PlanTier) bool {
	pr, ok := planRank[p]
	if !ok {
		pr = -1
	}
	return pr >= planRank[other]
}

// PlanLimits is the per-tier resource cap row. Every tier in
// AllPlanTiers has exactly one entry in the plan matrix.
type PlanLimits struct {
	CreditLimit  int64
	MaxAgents    int
	MaxStorageMB int64
}

type Account struct {
	ID             int64     `json:"id" db:"id"`
	Email          string    `json:"email" db:"email"`
	Name           string    `json:"name" db:"name"`
	Plan           PlanTier  `json:"plan" db:"plan"`
	CreditsUsed    int64     `json:"credits_used" db:"credits_used"`
	CreditLimit    int64     `json:"credit_limit" db:"credit_limit"`
	CreditsResetAt time.Time `json:"credits_reset_at" db:"credits_reset_at"`
	MaxAgents      int       `json:"max_agents" db:"max_agents"`
	MaxStorageMB   int64     `json:"max_storage_mb" db:"max_storage_mb"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

func (a *Account) CreditsRemaining() int64 {
	return a.CreditLimit - a.CreditsUsed
}
