package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"chatforge/internal/domain/models"
	"chatforge/internal/domain/repositories"
	"chatforge/internal/infrastructure/ai"

	"github.com/google/uuid"
)

type fakeAccountRepo struct {
	mu                 sync.Mutex
	accounts           map[int64]*models.Account
	forceConsumeDenied bool
	resetCalls         int
}

func newFakeAccountRepo(accounts ...*models.Account) *fakeAccountRepo {
	repo := &fakeAccountRepo{accounts: make(map[int64]*models.Account)}
	for _, a := range accounts {
		repo.accounts[a.ID] = a
	}
	return repo
}

func (r *fakeAccountRepo) CreateAccount(_ context.Context, account *models.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.accounts[account.ID] = account
	return nil
}

func (r *fakeAccountRepo) GetAccountByID(_ context.Context, id int64) (*models.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	account, ok := r.accounts[id]
	if !ok {
		return nil, fmt.Errorf("account %d: %w", id, repositories.ErrAccountNotFound)
	}
	copied := *account
	return &copied, nil
}

func (r *fakeAccountRepo) GetAccountByEmail(_ context.Context, email string) (*models.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, account := range r.accounts {
		if account.Email == email {
			copied := *account
			return &copied, nil
		}
	}
	return nil, repositories.ErrAccountNotFound
}

func (r *fakeAccountRepo) UpdateAccount(_ context.Context, account *models.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *account
	r.accounts[account.ID] = &copied
	return nil
}

func (r *fakeAccountRepo) UpdateAccountPlan(_ context.Context, id int64, plan models.PlanTier, creditLimit int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	account, ok := r.accounts[id]
	if !ok {
		return repositories.ErrAccountNotFound
	}
	account.Plan = plan
	account.CreditLimit = creditLimit
	return nil
}

func (r *fakeAccountRepo) ConsumeCredits(_ context.Context, id int64, units int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.forceConsumeDenied {
		return false, nil
	}
	account, ok := r.accounts[id]
	if !ok {
		return false, repositories.ErrAccountNotFound
	}
	if account.CreditsUsed+units > account.CreditLimit {
		return false, nil
	}
	account.CreditsUsed += units
	return true, nil
}

func (r *fakeAccountRepo) ResetCredits(_ context.Context, id int64, resetAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	account, ok := r.accounts[id]
	if !ok {
		return repositories.ErrAccountNotFound
	}
	account.CreditsUsed = 0
	account.CreditsResetAt = resetAt
	r.resetCalls++
	return nil
}

func (r *fakeAccountRepo) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.accounts, id)
	return nil
}

func (r *fakeAccountRepo) creditsUsed(id int64) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.accounts[id].CreditsUsed
}

type fakeAgentRepo struct {
	mu     sync.Mutex
	agents map[uuid.UUID]*models.Agent
}

func newFakeAgentRepo(agents ...*models.Agent) *fakeAgentRepo {
	repo := &fakeAgentRepo{agents: make(map[uuid.UUID]*models.Agent)}
	for _, a := range agents {
		repo.agents[a.ID] = a
	}
	return repo
}

func (r *fakeAgentRepo) CreateAgent(_ context.Context, agent *models.Agent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.agents[agent.ID] = agent
	return nil
}

func (r *fakeAgentRepo) GetAgent(_ context.Context, id uuid.UUID) (*models.Agent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	agent, ok := r.agents[id]
	if !ok {
		return nil, fmt.Errorf("agent %s: %w", id, repositories.ErrAgentNotFound)
	}
	copied := *agent
	return &copied, nil
}

func (r *fakeAgentRepo) GetAgentsByAccount(_ context.Context, accountID int64) ([]*models.Agent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var agents []*models.Agent
	for _, a := range r.agents {
		if a.AccountID == accountID {
			agents = append(agents, a)
		}
	}
	return agents, nil
}

func (r *fakeAgentRepo) UpdateAgent(_ context.Context, agent *models.Agent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.agents[agent.ID] = agent
	return nil
}

func (r *fakeAgentRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.agents, id)
	return nil
}

func (r *fakeAgentRepo) CountByAccount(_ context.Context, accountID int64) (int, error) {
	agents, _ := r.GetAgentsByAccount(context.Background(), accountID)
	return len(agents), nil
}

type fakeConversationRepo struct {
	mu            sync.Mutex
	conversations map[uuid.UUID]*models.Conversation
	turns         map[uuid.UUID][]*models.Turn
	appendErr     error
}

func newFakeConversationRepo() *fakeConversationRepo {
	return &fakeConversationRepo{
		conversations: make(map[uuid.UUID]*models.Conversation),
		turns:         make(map[uuid.UUID][]*models.Turn),
	}
}

func (r *fakeConversationRepo) Create(_ context.Context, conv *models.Conversation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if conv.ID == uuid.Nil {
		conv.ID = uuid.New()
	}
	conv.CreatedAt = time.Now()
	r.conversations[conv.ID] = conv
	return nil
}

func (r *fakeConversationRepo) GetOwned(_ context.Context, id, agentID uuid.UUID, accountID int64) (*models.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	conv, ok := r.conversations[id]
	if !ok || conv.AgentID != agentID || conv.AccountID != accountID {
		return nil, fmt.Errorf("conversation %s: %w", id, repositories.ErrConversationNotFound)
	}
	return conv, nil
}

func (r *fakeConversationRepo) AppendTurn(_ context.Context, conversationID uuid.UUID, role models.TurnRole, content string) (*models.Turn, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.appendErr != nil {
		return nil, r.appendErr
	}
	turn := &models.Turn{
		ID:             uuid.New(),
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
		SequenceNumber: len(r.turns[conversationID]) + 1,
		CreatedAt:      time.Now(),
	}
	r.turns[conversationID] = append(r.turns[conversationID], turn)
	return turn, nil
}

func (r *fakeConversationRepo) RecentTurns(_ context.Context, conversationID uuid.UUID, maxTurns int) ([]*models.Turn, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	turns := r.turns[conversationID]
	if len(turns) > maxTurns {
		turns = turns[len(turns)-maxTurns:]
	}
	out := make([]*models.Turn, len(turns))
	copy(out, turns)
	return out, nil
}

func (r *fakeConversationRepo) CountTurns(_ context.Context, conversationID uuid.UUID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.turns[conversationID]), nil
}

func (r *fakeConversationRepo) totalConversations() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conversations)
}

type fakeUsageRepo struct {
	mu      sync.Mutex
	records map[string]*models.UsageRecord
	incErr  error
}

func newFakeUsageRepo() *fakeUsageRepo {
	return &fakeUsageRepo{records: make(map[string]*models.UsageRecord)}
}

func usageKey(accountID int64, day time.Time) string {
	return fmt.Sprintf("%d|%s", accountID, day.Format("2006-01-02"))
}

func (r *fakeUsageRepo) IncrementDaily(_ context.Context, accountID int64, day time.Time, delta repositories.UsageDelta) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.incErr != nil {
		return r.incErr
	}
	key := usageKey(accountID, day)
	record, ok := r.records[key]
	if !ok {
		record = &models.UsageRecord{AccountID: accountID, UsageDate: day}
		r.records[key] = record
	}
	record.CreditsUsed += delta.Credits
	record.MessagesSent += delta.Messages
	record.TokensUsed += delta.Tokens
	record.AIActionsUsed += delta.AIActions
	return nil
}

func (r *fakeUsageRepo) GetDaily(_ context.Context, accountID int64, day time.Time) (*models.UsageRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if record, ok := r.records[usageKey(accountID, day)]; ok {
		copied := *record
		return &copied, nil
	}
	return &models.UsageRecord{AccountID: accountID, UsageDate: day}, nil
}

func (r *fakeUsageRepo) GetRange(_ context.Context, accountID int64, from, to time.Time) (*models.UsageSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var summary models.UsageSummary
	for _, record := range r.records {
		if record.AccountID != accountID {
			continue
		}
		if record.UsageDate.Before(from) || record.UsageDate.After(to) {
			continue
		}
		summary.CreditsUsed += record.CreditsUsed
		summary.MessagesSent += record.MessagesSent
		summary.TokensUsed += record.TokensUsed
		summary.AIActionsUsed += record.AIActionsUsed
	}
	return &summary, nil
}

type fakeCompletionClient struct {
	mu          sync.Mutex
	result      *models.CompletionResult
	lastRequest *ai.GenerateRequest
	calls       int
}

func (c *fakeCompletionClient) Generate(_ context.Context, req ai.GenerateRequest) *models.CompletionResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	copied := req
	c.lastRequest = &copied
	if c.result != nil {
		return c.result
	}
	return &models.CompletionResult{
		Content:      "Hello! How can I help you today?",
		InputTokens:  100,
		OutputTokens: 50,
		TotalTokens:  150,
		Duration:     20 * time.Millisecond,
		Success:      true,
	}
}

type fakeSubscriptionRepo struct {
	mu   sync.Mutex
	subs map[uuid.UUID]*models.Subscription
}

func newFakeSubscriptionRepo(subs ...*models.Subscription) *fakeSubscriptionRepo {
	repo := &fakeSubscriptionRepo{subs: make(map[uuid.UUID]*models.Subscription)}
	for _, s := range subs {
		if s.ID == uuid.Nil {
			s.ID = uuid.New()
		}
		repo.subs[s.ID] = s
	}
	return repo
}

func (r *fakeSubscriptionRepo) GetByAccountID(_ context.Context, accountID int64) (*models.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.subs {
		if s.AccountID == accountID {
			return s, nil
		}
	}
	return nil, fmt.Errorf("account %d: %w", accountID, repositories.ErrSubscriptionNotFound)
}

func (r *fakeSubscriptionRepo) GetByStripeSubscriptionID(_ context.Context, stripeSubID string) (*models.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.subs {
		if s.StripeSubscriptionID != nil && *s.StripeSubscriptionID == stripeSubID {
			return s, nil
		}
	}
	return nil, fmt.Errorf("stripe subscription %s: %w", stripeSubID, repositories.ErrSubscriptionNotFound)
}

func (r *fakeSubscriptionRepo) Create(_ context.Context, sub *models.Subscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if sub.ID == uuid.Nil {
		sub.ID = uuid.New()
	}
	r.subs[sub.ID] = sub
	return nil
}

func (r *fakeSubscriptionRepo) Update(_ context.Context, sub *models.Subscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subs[sub.ID] = sub
	return nil
}

type fakeBillingEventRepo struct {
	mu     sync.Mutex
	events map[string]*models.BillingEvent
}

func newFakeBillingEventRepo() *fakeBillingEventRepo {
	return &fakeBillingEventRepo{events: make(map[string]*models.BillingEvent)}
}

func (r *fakeBillingEventRepo) Store(_ context.Context, event *models.BillingEvent) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.events[event.ID]; ok {
		return false, nil
	}
	r.events[event.ID] = event
	return true, nil
}

func (r *fakeBillingEventRepo) MarkProcessed(_ context.Context, eventID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if event, ok := r.events[eventID]; ok {
		event.ProcessedAt = &at
	}
	return nil
}
