package services

import (
	"chatforge/internal/domain/models"
	"chatforge/internal/domain/repositories"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/checkout/session"
	"github.com/stripe/stripe-go/v79/customer"
	"github.com/stripe/stripe-go/v79/subscription"
)

var PlanToPriceID = map[models.PlanTier]string{
	models.PlanPremium: "price_premium_monthly",
	models.PlanPro:     "price_pro_monthly",
}

type PaymentService interface {
	CreateCheckoutSession(ctx context.Context, accountID int64, plan models.PlanTier, successURL, cancelURL string) (string, string, error)
	GetSubscription(ctx context.Context, accountID int64) (*models.Subscription, error)
	CancelSubscription(ctx context.Context, accountID int64, cancelAtPeriodEnd bool) error
	SyncSubscription(ctx context.Context, accountID int64) error
	HandleWebhook(ctx context.Context, payload []byte) error
}

type StripeService struct {
	repo        repositories.SubscriptionRepository
	accountRepo repositories.AccountRepository
	eventRepo   repositories.BillingEventRepository
	quota       QuotaService
	logger      *slog.Logger
}

func NewStripeService(repo repositories.SubscriptionRepository, accountRepo repositories.AccountRepository, eventRepo repositories.BillingEventRepository, quota QuotaService, logger *slog.Logger) *StripeService {
	return &StripeService{
		repo:        repo,
		accountRepo: accountRepo,
		eventRepo:   eventRepo,
		quota:       quota,
		logger:      logger,
	}
}

func (s *StripeService) CreateCheckoutSession(ctx context.Context, accountID int64, plan models.PlanTier, successURL, cancelURL string) (string, string, error) {
	priceID, exists := PlanToPriceID[plan]
	if !exists {
		return "", "", fmt.Errorf("invalid plan: %s", plan)
	}

	customerID, err := s.getOrCreateCustomer(ctx, accountID)
	if err != nil {
		return "", "", fmt.Errorf("failed to get customer: %w", err)
	}

	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		Customer:   stripe.String(customerID),
		SuccessURL: stripe.String(successURL + "?session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:  stripe.String(cancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(priceID),
				Quantity: stripe.Int64(1),
			},
		},
		Metadata: map[string]string{
			"account_id": strconv.FormatInt(accountID, 10),
			"plan":       string(plan),
		},
	}

	sess, err := session.New(params)
	if err != nil {
		return "", "", fmt.Errorf("failed to create checkout session: %w", err)
	}

	return sess.URL, sess.ID, nil
}

func (s *StripeService) GetSubscription(ctx context.Context, accountID int64) (*models.Subscription, error) {
	sub, err := s.repo.GetByAccountID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("subscription not found: %w", err)
	}

	if sub.StripeSubscriptionID != nil {
		if err := s.syncSubscriptionFromStripe(ctx, sub); err != nil {
			s.logError("failed to sync subscription", err, "account_id", accountID)
		}
	}

	return sub, nil
}

func (s *StripeService) CancelSubscription(ctx context.Context, accountID int64, cancelAtPeriodEnd bool) error {
	sub, err := s.repo.GetByAccountID(ctx, accountID)
	if err != nil {
		return fmt.Errorf("subscription not found: %w", err)
	}

	if sub.StripeSubscriptionID == nil {
		return fmt.Errorf("no active Stripe subscription found")
	}

	var stripeSub *stripe.Subscription
	if cancelAtPeriodEnd {
		stripeSub, err = subscription.Update(*sub.StripeSubscriptionID, &stripe.SubscriptionParams{
			CancelAtPeriodEnd: stripe.Bool(true),
		})
	} else {
		stripeSub, err = subscription.Cancel(*sub.StripeSubscriptionID, nil)
	}

	if err != nil {
		return fmt.Errorf("failed to cancel subscription in Stripe: %w", err)
	}

	sub.Status = models.SubscriptionStatus(stripeSub.Status)
	sub.CancelAtPeriodEnd = stripeSub.CancelAtPeriodEnd
	if stripeSub.CurrentPeriodEnd > 0 {
		end := time.Unix(stripeSub.CurrentPeriodEnd, 0)
		sub.CurrentPeriodEnd = &end
	}

	if err := s.repo.Update(ctx, sub); err != nil {
		s.logError("failed to update subscription after cancellation", err)
	}

	if !cancelAtPeriodEnd {
		if err := s.updateAccountPlan(ctx, accountID, models.PlanFree); err != nil {
			s.logError("failed to downgrade account plan", err, "account_id", accountID)
		}
	}

	return nil
}

func (s *StripeService) SyncSubscription(ctx context.Context, accountID int64) error {
	sub, err := s.repo.GetByAccountID(ctx, accountID)
	if err != nil {
		return fmt.Errorf("subscription not found: %w", err)
	}

	return s.syncSubscriptionFromStripe(ctx, sub)
}

// HandleWebhook ingests one raw payment-processor event: store the
// raw event, branch on its type, update the local mirror state.
// Redelivered events are detected by id and skipped.
func (s *StripeService) HandleWebhook(ctx context.Context, payload []byte) error {
	var event stripe.Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return fmt.Errorf("failed to parse webhook payload: %w", err)
	}
	if event.ID == "" {
		return fmt.Errorf("webhook event missing id")
	}

	stored, err := s.eventRepo.Store(ctx, &models.BillingEvent{
		ID:      event.ID,
		Type:    string(event.Type),
		Payload: payload,
	})
	if err != nil {
		return fmt.Errorf("failed to store billing event: %w", err)
	}
	if !stored {
		return nil
	}

	switch string(event.Type) {
	case "checkout.session.completed":
		err = s.applyCheckoutCompleted(ctx, &event)
	case "customer.subscription.updated", "customer.subscription.deleted":
		err = s.applySubscriptionChanged(ctx, &event)
	case "invoice.payment_succeeded":
		err = s.applyInvoicePaid(ctx, &event)
	default:
		// Unhandled event types are stored but not applied.
	}
	if err != nil {
		return fmt.Errorf("failed to apply event %s (%s): %w", event.ID, event.Type, err)
	}

	if err := s.eventRepo.MarkProcessed(ctx, event.ID, time.Now()); err != nil {
		s.logError("failed to mark billing event processed", err, "event_id", event.ID)
	}
	return nil
}

func (s *StripeService) applyCheckoutCompleted(ctx context.Context, event *stripe.Event) error {
	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return fmt.Errorf("failed to parse checkout session: %w", err)
	}

	accountID, err := strconv.ParseInt(sess.Metadata["account_id"], 10, 64)
	if err != nil {
		return fmt.Errorf("checkout session missing account_id metadata: %w", err)
	}
	plan := models.PlanTier(sess.Metadata["plan"])
	if _, ok := PlanToPriceID[plan]; !ok {
		return fmt.Errorf("checkout session has unknown plan %q", sess.Metadata["plan"])
	}

	var customerID, subscriptionID *string
	if sess.Customer != nil {
		customerID = stripe.String(sess.Customer.ID)
	}
	if sess.Subscription != nil {
		subscriptionID = stripe.String(sess.Subscription.ID)
	}

	sub, err := s.repo.GetByAccountID(ctx, accountID)
	if err != nil {
		sub = &models.Subscription{
			AccountID:            accountID,
			StripeCustomerID:     customerID,
			StripeSubscriptionID: subscriptionID,
			Plan:                 plan,
			Status:               models.StatusActive,
		}
		if err := s.repo.Create(ctx, sub); err != nil {
			return fmt.Errorf("failed to create subscription record: %w", err)
		}
	} else {
		sub.StripeCustomerID = customerID
		sub.StripeSubscriptionID = subscriptionID
		sub.Plan = plan
		sub.Status = models.StatusActive
		if err := s.repo.Update(ctx, sub); err != nil {
			return fmt.Errorf("failed to update subscription record: %w", err)
		}
	}

	return s.updateAccountPlan(ctx, accountID, plan)
}

func (s *StripeService) applySubscriptionChanged(ctx context.Context, event *stripe.Event) error {
	var stripeSub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &stripeSub); err != nil {
		return fmt.Errorf("failed to parse subscription: %w", err)
	}

	sub, err := s.repo.GetByStripeSubscriptionID(ctx, stripeSub.ID)
	if err != nil {
		return fmt.Errorf("no local subscription for %s: %w", stripeSub.ID, err)
	}

	s.applyStripeState(sub, &stripeSub)
	if err := s.repo.Update(ctx, sub); err != nil {
		return fmt.Errorf("failed to update subscription: %w", err)
	}

	s.mirrorPlanFromStatus(ctx, sub, stripeSub.Status)
	return nil
}

// applyInvoicePaid resets the account's credit balance at the billing
// cycle boundary.
func (s *StripeService) applyInvoicePaid(ctx context.Context, event *stripe.Event) error {
	var invoice stripe.Invoice
	if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
		return fmt.Errorf("failed to parse invoice: %w", err)
	}
	if invoice.Subscription == nil {
		return nil
	}

	sub, err := s.repo.GetByStripeSubscriptionID(ctx, invoice.Subscription.ID)
	if err != nil {
		return fmt.Errorf("no local subscription for %s: %w", invoice.Subscription.ID, err)
	}

	resetAt := time.Now().AddDate(0, 1, 0)
	if invoice.PeriodEnd > 0 {
		resetAt = time.Unix(invoice.PeriodEnd, 0)
	}

	if err := s.accountRepo.ResetCredits(ctx, sub.AccountID, resetAt); err != nil {
		return fmt.Errorf("failed to reset credits: %w", err)
	}
	return nil
}

func (s *StripeService) syncSubscriptionFromStripe(ctx context.Context, sub *models.Subscription) error {
	if sub.StripeSubscriptionID == nil {
		return nil
	}

	stripeSub, err := subscription.Get(*sub.StripeSubscriptionID, nil)
	if err != nil {
		return fmt.Errorf("failed to get subscription from Stripe: %w", err)
	}

	s.applyStripeState(sub, stripeSub)

	if err := s.repo.Update(ctx, sub); err != nil {
		return fmt.Errorf("failed to update subscription: %w", err)
	}

	s.mirrorPlanFromStatus(ctx, sub, stripeSub.Status)
	return nil
}

func (s *StripeService) applyStripeState(sub *models.Subscription, stripeSub *stripe.Subscription) {
	sub.Status = models.SubscriptionStatus(stripeSub.Status)
	sub.CancelAtPeriodEnd = stripeSub.CancelAtPeriodEnd

	if stripeSub.CurrentPeriodEnd > 0 {
		end := time.Unix(stripeSub.CurrentPeriodEnd, 0)
		sub.CurrentPeriodEnd = &end
	}

	if stripeSub.Items != nil && len(stripeSub.Items.Data) > 0 {
		priceID := stripeSub.Items.Data[0].Price.ID
		for plan, pID := range PlanToPriceID {
			if pID == priceID {
				sub.Plan = plan
				break
			}
		}
	}
}

func (s *StripeService) mirrorPlanFromStatus(ctx context.Context, sub *models.Subscription, status stripe.SubscriptionStatus) {
	switch status {
	case stripe.SubscriptionStatusActive, stripe.SubscriptionStatusTrialing:
		if err := s.updateAccountPlan(ctx, sub.AccountID, sub.Plan); err != nil {
			s.logError("failed to update account plan", err, "account_id", sub.AccountID)
		}
	case stripe.SubscriptionStatusCanceled, stripe.SubscriptionStatusUnpaid:
		if err := s.updateAccountPlan(ctx, sub.AccountID, models.PlanFree); err != nil {
			s.logError("failed to downgrade account plan", err, "account_id", sub.AccountID)
		}
	}
}

// updateAccountPlan mirrors a plan change onto the account, moving the
// credit limit to the new tier's allowance.
func (s *StripeService) updateAccountPlan(ctx context.Context, accountID int64, plan models.PlanTier) error {
	limits := s.quota.LimitsFor(plan)
	if err := s.accountRepo.UpdateAccountPlan(ctx, accountID, plan, limits.CreditLimit); err != nil {
		return fmt.Errorf("failed to update account plan: %w", err)
	}
	return nil
}

func (s *StripeService) getOrCreateCustomer(ctx context.Context, accountID int64) (string, error) {
	if sub, err := s.repo.GetByAccountID(ctx, accountID); err == nil && sub.StripeCustomerID != nil {
		return *sub.StripeCustomerID, nil
	}

	account, err := s.accountRepo.GetAccountByID(ctx, accountID)
	if err != nil {
		return "", fmt.Errorf("failed to get account: %w", err)
	}

	params := &stripe.CustomerParams{
		Email: stripe.String(account.Email),
		Name:  stripe.String(account.Name),
		Metadata: map[string]string{
			"account_id": strconv.FormatInt(accountID, 10),
		},
	}

	cust, err := customer.New(params)
	if err != nil {
		return "", fmt.Errorf("failed to create Stripe customer: %w", err)
	}

	return cust.ID, nil
}

func (s *StripeService) logError(msg string, err error, args ...interface{}) {
	if s.logger != nil {
		allArgs := append([]interface{}{"error", err}, args...)
		s.logger.Error(msg, allArgs...)
	}
}
