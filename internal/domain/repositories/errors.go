package repositories

import "errors"

var (
	ErrAccountNotFound      = errors.New("account not found")
	ErrAgentNotFound        = errors.New("agent not found")
	ErrConversationNotFound = errors.New("conversation not found")
	ErrSubscriptionNotFound = errors.New("subscription not found")
)
