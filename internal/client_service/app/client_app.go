package app

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/aradsms/client_directory/internal/client_service/domain"
)

// Application exposes client directory operations on top of a ClientRepository
// and announces successful writes through an optional EventPublisher.
type Application struct {
	clientRepo domain.ClientRepository
	publisher  EventPublisher
	logger     *slog.Logger
}

// NewApplication creates a new Application instance. A nil publisher disables events.
func NewApplication(repo domain.ClientRepository, publisher EventPublisher, logger *slog.Logger) *Application {
	return &Application{
		clientRepo: repo,
		publisher:  publisher,
		logger:     logger,
	}
}

// AddClient stores a new client and returns it with its assigned ID.
func (a *Application) AddClient(ctx context.Context, fields domain.ContactFields) (*domain.Client, error) {
	client, err := a.clientRepo.Add(ctx, fields)
	if err != nil {
		a.record("add", outcomeError)
		return nil, err
	}
	a.record("add", outcomeSuccess)
	a.publish(ctx, SubjectClientCreated, client.ID, client)
	return client, nil
}

// GetClient reports false when the client does not exist.
func (a *Application) GetClient(ctx context.Context, id int64) (*domain.Client, bool, error) {
	client, found, err := a.clientRepo.Load(ctx, id)
	switch {
	case err != nil:
		a.record("load", outcomeError)
	case !found:
		a.record("load", outcomeNotFound)
	default:
		a.record("load", outcomeSuccess)
	}
	return client, found, err
}

func (a *Application) GetClients(ctx context.Context, ids []int64) (map[int64]*domain.Client, error) {
	clients, err := a.clientRepo.LoadMany(ctx, ids)
	if err != nil {
		a.record("load_many", outcomeError)
		return nil, err
	}
	a.record("load_many", outcomeSuccess)
	return clients, nil
}

// UpdateClient replaces the client's fields and phone numbers.
// Returns domain.ErrNotFound when no client has client.ID.
func (a *Application) UpdateClient(ctx context.Context, client *domain.Client) (*domain.Client, error) {
	updated, err := a.clientRepo.Update(ctx, client)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.record("update", outcomeNotFound)
		} else {
			a.record("update", outcomeError)
		}
		return nil, err
	}
	a.record("update", outcomeSuccess)
	a.publish(ctx, SubjectClientUpdated, updated.ID, updated)
	return updated, nil
}

// DeleteClient is idempotent; deleting a missing client still succeeds.
func (a *Application) DeleteClient(ctx context.Context, id int64) error {
	if err := a.clientRepo.Delete(ctx, id); err != nil {
		a.record("delete", outcomeError)
		return err
	}
	a.record("delete", outcomeSuccess)
	a.publish(ctx, SubjectClientDeleted, id, nil)
	return nil
}

func (a *Application) AddPhoneNumber(ctx context.Context, id int64, number string) (*domain.Client, bool, error) {
	return a.changePhoneNumber(ctx, "add_phone_number", SubjectClientPhoneAdded, id, number, a.clientRepo.AddPhoneNumber)
}

func (a *Application) DeletePhoneNumber(ctx context.Context, id int64, number string) (*domain.Client, bool, error) {
	return a.changePhoneNumber(ctx, "delete_phone_number", SubjectClientPhoneRemoved, id, number, a.clientRepo.DeletePhoneNumber)
}

// SearchClients reports false when the filter is empty and no search ran.
func (a *Application) SearchClients(ctx context.Context, filter domain.SearchFilter) (map[int64]*domain.Client, bool, error) {
	clients, performed, err := a.clientRepo.Search(ctx, filter)
	switch {
	case err != nil:
		a.record("search", outcomeError)
	case !performed:
		a.record("search", outcomeNotPerformed)
	default:
		a.record("search", outcomeSuccess)
	}
	return clients, performed, err
}

func (a *Application) changePhoneNumber(
	ctx context.Context,
	operation, subject string,
	id int64,
	number string,
	change func(ctx context.Context, id int64, number string) (*domain.Client, bool, error),
) (*domain.Client, bool, error) {
	client, found, err := change(ctx, id, number)
	if err != nil {
		a.record(operation, outcomeError)
		return nil, false, err
	}
	if !found {
		a.record(operation, outcomeNotFound)
		return nil, false, nil
	}
	a.record(operation, outcomeSuccess)
	a.publish(ctx, subject, id, client)
	return client, true, nil
}

func (a *Application) record(operation, outcome string) {
	operationsTotal.WithLabelValues(operation, outcome).Inc()
}

// publish never fails the caller: the write has already been committed.
func (a *Application) publish(ctx context.Context, subject string, clientID int64, client *domain.Client) {
	if a.publisher == nil {
		return
	}
	payload, err := json.Marshal(newClientEvent(subject, clientID, client))
	if err != nil {
		a.logger.ErrorContext(ctx, "Failed to marshal client event", "error", err, "subject", subject, "client_id", clientID)
		eventsPublishedTotal.WithLabelValues(subject, "error").Inc()
		return
	}
	if err := a.publisher.Publish(ctx, subject, payload); err != nil {
		a.logger.ErrorContext(ctx, "Failed to publish client event", "error", err, "subject", subject, "client_id", clientID)
		eventsPublishedTotal.WithLabelValues(subject, "error").Inc()
		return
	}
	eventsPublishedTotal.WithLabelValues(subject, "success").Inc()
	a.logger.DebugContext(ctx, "Client event published", "subject", subject, "client_id", clientID)
}
