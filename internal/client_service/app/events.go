package app

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/aradsms/client_directory/internal/client_service/domain"
)

// NATS subjects for client change events.
const (
	SubjectClientCreated      = "clients.created"
	SubjectClientUpdated      = "clients.updated"
	SubjectClientDeleted      = "clients.deleted"
	SubjectClientPhoneAdded   = "clients.phone_added"
	SubjectClientPhoneRemoved = "clients.phone_removed"
)

// EventPublisher is satisfied by *messagebroker.NatsClient.
type EventPublisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
}

// ClientEvent is the JSON payload published after a successful write.
// Client is the state after the write and is omitted for deletions.
type ClientEvent struct {
	EventID    uuid.UUID      `json:"event_id"`
	Type       string         `json:"type"`
	ClientID   int64          `json:"client_id"`
	OccurredAt time.Time      `json:"occurred_at"`
	Client     *domain.Client `json:"client,omitempty"`
}

func newClientEvent(subject string, clientID int64, client *domain.Client) ClientEvent {
	return ClientEvent{
		EventID:    uuid.New(),
		Type:       subject,
		ClientID:   clientID,
		OccurredAt: time.Now().UTC(),
		Client:     client,
	}
}
