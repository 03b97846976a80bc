package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"

	"github.com/healingbudsglobal/walletgate/ports"
)

const (
	// TopicLogin carries established-session announcements
	TopicLogin = "walletgate.login"

	// TopicLogout carries refresh token invalidations
	TopicLogout = "walletgate.logout"

	// TopicHoldingsLost carries gating-asset loss revocations
	TopicHoldingsLost = "walletgate.holdings_lost"
)

// LoginEvent represents an established session
type LoginEvent struct {
	Address    string `json:"address"`
	IdentityID string `json:"identity_id"`
}

// LogoutEvent represents an invalidated refresh token
type LogoutEvent struct {
	Address string `json:"address"`
	TokenID string `json:"token_id"`
}

// HoldingsLostEvent represents an address that lost the gating asset
type HoldingsLostEvent struct {
	Address string `json:"address"`
}

// WatermillPublisher implements the EventPublisher interface using Watermill
type WatermillPublisher struct {
	publisher message.Publisher
}

// NewWatermillPublisher creates a new Watermill publisher
func NewWatermillPublisher(publisher message.Publisher) ports.EventPublisher {
	return &WatermillPublisher{publisher: publisher}
}

// PublishLogin publishes a login event
func (p *WatermillPublisher) PublishLogin(ctx context.Context, address, identityID string) error {
	return p.publish(TopicLogin, LoginEvent{Address: address, IdentityID: identityID})
}

// PublishLogout publishes a logout event
func (p *WatermillPublisher) PublishLogout(ctx context.Context, address, tokenID string) error {
	return p.publish(TopicLogout, LogoutEvent{Address: address, TokenID: tokenID})
}

// PublishHoldingsLost publishes a holdings-lost event
func (p *WatermillPublisher) PublishHoldingsLost(ctx context.Context, address string) error {
	return p.publish(TopicHoldingsLost, HoldingsLostEvent{Address: address})
}

func (p *WatermillPublisher) publish(topic string, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(uuid.New().String(), payload)

	if err := p.publisher.Publish(topic, msg); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}
