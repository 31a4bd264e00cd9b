package services

import (
	"chatforge/internal/domain/models"
	"chatforge/internal/domain/repositories"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// planMatrix is the authoritative per-tier limit table. Every member
// of models.AllPlanTiers has exactly one entry; the invariant is
// asserted in tests.
var planMatrix = map[models.PlanTier]models.PlanLimits{
	models.PlanFree: {
		CreditLimit:  100,
		MaxAgents:    1,
		MaxStorageMB: 50,
	},
	models.PlanPremium: {
		CreditLimit:  2000,
		MaxAgents:    5,
		MaxStorageMB: 500,
	},
	models.PlanPro: {
		CreditLimit:  10000,
		MaxAgents:    25,
		MaxStorageMB: 5000,
	},
}

// defaultCreditCost applies to model ids missing from the cost table.
// Unknown models are charged rather than rejected; a misconfigured
// agent keeps working at the base rate.
const defaultCreditCost int64 = 1

// modelCreditCosts is keyed by lowercase model id.
var modelCreditCosts = map[string]int64{
	"gpt-3.5-turbo": 1,
	"gpt-4o-mini":   1,
	"gpt-4o":        2,
	"gpt-4-turbo":   3,
	"gpt-4":         5,
}

// Capability names an account action a quota check can block.
type Capability string

const (
	CapabilityCredits       Capability = "credits"
	CapabilityAgents        Capability = "agents"
	CapabilityStorage       Capability = "storage"
	CapabilityPremiumModels Capability = "premium_models"
)

// capabilityUpgrades maps a blocked capability to the tier that
// unblocks it.
var capabilityUpgrades = map[Capability]models.PlanTier{
	CapabilityCredits:       models.PlanPremium,
	CapabilityAgents:        models.PlanPremium,
	CapabilityStorage:       models.PlanPro,
	CapabilityPremiumModels: models.PlanPremium,
}

type QuotaService interface {
	CheckAllowance(ctx context.Context, account *models.Account, unitsNeeded int64) (bool, string)
	CommitConsumption(ctx context.Context, account *models.Account, units int64) bool
	CostForResource(modelID string) int64
	UpgradeSuggestion(account *models.Account, blocked Capability) *models.PlanTier
	LimitsFor(plan models.PlanTier) models.PlanLimits
}

type quotaService struct {
	accountRepo repositories.AccountRepository
	logger      *slog.Logger
}

func NewQuotaService(accountRepo repositories.AccountRepository, logger *slog.Logger) QuotaService {
	return &quotaService{
		accountRepo: accountRepo,
		logger:      logger,
	}
}

// CheckAllowance reports whether the account may spend unitsNeeded
// credits. It fails closed: an exhausted balance denies regardless of
// the requested amount. The check is advisory only; the balance is
// re-validated atomically at commit time.
func (s *quotaService) CheckAllowance(ctx context.Context, account *models.Account, unitsNeeded int64) (bool, string) {
	s.maybeResetCredits(ctx, account)

	remaining := account.CreditsRemaining()
	if remaining <= 0 {
		return false, fmt.Sprintf("credit limit reached (%d/%d). Upgrade your plan or wait for the next billing cycle", account.CreditsUsed, account.CreditLimit)
	}

	if account.CreditsUsed+unitsNeeded > account.CreditLimit {
		return false, fmt.Sprintf("insufficient credits: need %d, have %d", unitsNeeded, remaining)
	}

	return true, ""
}

// CommitConsumption charges units against the account. The repository
// performs a single conditional increment, so a concurrent spender
// exhausting the balance between check and commit results in a false
// return here, never in an overdraft.
func (s *quotaService) CommitConsumption(ctx context.Context, account *models.Account, units int64) bool {
	ok, err := s.accountRepo.ConsumeCredits(ctx, account.ID, units)
	if err != nil {
		s.logError("failed to consume credits", err, "account_id", account.ID, "units", units)
		return false
	}

	if ok {
		account.CreditsUsed += units
	}
	return ok
}

func (s *quotaService) CostForResource(modelID string) int64 {
	if cost, ok := modelCreditCosts[strings.ToLower(strings.TrimSpace(modelID))]; ok {
		return cost
	}
	return defaultCreditCost
}

func (s *quotaService) UpgradeSuggestion(account *models.Account, blocked Capability) *models.PlanTier {
	suggested, ok := capabilityUpgrades[blocked]
	if !ok {
		return nil
	}
	if account.Plan.AtLeast(suggested) {
		return nil
	}
	return &suggested
}

// LimitsFor returns the limit row for the plan. Unknown tiers get the
// free limits so enforcement fails safe.
func (s *quotaService) LimitsFor(plan models.PlanTier) models.PlanLimits {
	if limits, ok := planMatrix[plan]; ok {
		return limits
	}
	return planMatrix[models.PlanFree]
}

// maybeResetCredits applies the billing-cycle rollover when the reset
// date has passed. Failures are logged and the stale balance is used
// for this request.
func (s *quotaService) maybeResetCredits(ctx context.Context, account *models.Account) {
	now := time.Now()
	if account.CreditsResetAt.IsZero() || account.CreditsResetAt.After(now) {
		return
	}

	nextReset := now.AddDate(0, 1, 0)
	if err := s.accountRepo.ResetCredits(ctx, account.ID, nextReset); err != nil {
		s.logError("failed to reset account credits", err, "account_id", account.ID)
		return
	}

	account.CreditsUsed = 0
	account.CreditsResetAt = nextReset
}

func (s *quotaService) logError(msg string, err error, args ...interface{}) {
	if s.logger != nil {
		allArgs := append([]interface{}{"error", err}, args...)
		s.logger.Error(msg, allArgs...)
	}
}
