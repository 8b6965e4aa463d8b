package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/pliiiz/pliiiz/internal/config"
	"github.com/pliiiz/pliiiz/internal/domain"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

var _ domain.ContactRepository = (*ContactStore)(nil)

// ContactStore implements domain.ContactRepository over the contact_request
// and contact tables.
type ContactStore struct {
	requests Client[domain.ContactRequest]
	contacts Client[domain.Contact]
}

// NewContactStore creates a contact repository.
func NewContactStore(conn DBConnection, cfg config.Provider) (*ContactStore, error) {
	requests, err := NewClient[domain.ContactRequest](conn, cfg)
	if err != nil {
		return nil, err
	}
	contacts, err := NewClient[domain.Contact](conn, cfg)
	if err != nil {
		return nil, err
	}
	return &ContactStore{requests: requests, contacts: contacts}, nil
}

func (s *ContactStore) CreateRequest(ctx context.Context, r *domain.ContactRequest) (*domain.ContactRequest, error) {
	if err := domain.Validate(r); err != nil {
		return nil, err
	}
	created, err := s.requests.Create(ctx, domain.TableContactRequest, map[string]any{
		"sender":      r.Sender,
		"receiver":    r.Receiver,
		"status":      string(domain.RequestPending),
		"message":     r.Message,
		"pending_key": pendingKey(r.Sender, r.Receiver),
		"created_at":  now(),
	})
	if err != nil {
		if isDuplicateError(err) {
			return nil, domain.ErrRequestPending
		}
		return nil, fmt.Errorf("failed to create contact request: %w", err)
	}
	return created, nil
}

// pendingKey names the user pair regardless of direction.
func pendingKey(a, b *surrealmodels.RecordID) string {
	ka, kb := recordKey(a), recordKey(b)
	if kb < ka {
		ka, kb = kb, ka
	}
	return ka + ":" + kb
}

func (s *ContactStore) FindRequest(ctx context.Context, id *surrealmodels.RecordID) (*domain.ContactRequest, error) {
	r, err := s.requests.QueryOne(ctx, "SELECT * FROM $id", map[string]any{"id": id})
	if err != nil {
		return nil, toDomainErr(err)
	}
	return notFoundIfNil(r, "contact request")
}

func (s *ContactStore) FindPending(ctx context.Context, sender, receiver *surrealmodels.RecordID) (*domain.ContactRequest, error) {
	r, err := s.requests.QueryOne(ctx,
		"SELECT * FROM contact_request WHERE sender = $sender AND receiver = $receiver AND status = 'pending'",
		map[string]any{"sender": sender, "receiver": receiver})
	if err != nil {
		return nil, toDomainErr(err)
	}
	return notFoundIfNil(r, "pending contact request")
}

func (s *ContactStore) ListIncoming(ctx context.Context, user *surrealmodels.RecordID, status domain.RequestStatus) ([]*domain.ContactRequest, error) {
	return s.listRequests(ctx,
		"SELECT * FROM contact_request WHERE receiver = $user AND status = $status ORDER BY created_at DESC",
		map[string]any{"user": user, "status": string(status)})
}

func (s *ContactStore) ListOutgoing(ctx context.Context, user *surrealmodels.RecordID, status domain.RequestStatus) ([]*domain.ContactRequest, error) {
	return s.listRequests(ctx,
		"SELECT * FROM contact_request WHERE sender = $user AND status = $status ORDER BY created_at DESC",
		map[string]any{"user": user, "status": string(status)})
}

func (s *ContactStore) ListAccepted(ctx context.Context) ([]*domain.ContactRequest, error) {
	return s.listRequests(ctx, "SELECT * FROM contact_request WHERE status = 'accepted'", nil)
}

func (s *ContactStore) listRequests(ctx context.Context, query string, params map[string]any) ([]*domain.ContactRequest, error) {
	rows, err := s.requests.Query(ctx, query, params)
	if err != nil {
		return nil, toDomainErr(err)
	}
	out := make([]*domain.ContactRequest, 0, len(rows))
	for i := range rows {
		out = append(out, &rows[i])
	}
	return out, nil
}

// SetStatus only transitions requests that are still pending, so two
// concurrent responses cannot both succeed.
func (s *ContactStore) SetStatus(ctx context.Context, id *surrealmodels.RecordID, status domain.RequestStatus) (*domain.ContactRequest, error) {
	r, err := s.requests.QueryOne(ctx,
		"UPDATE $id SET status = $status, pending_key = <string> id, responded_at = time::now() WHERE status = 'pending' RETURN AFTER",
		map[string]any{"id": id, "status": string(status)})
	if err != nil {
		return nil, toDomainErr(err)
	}
	if r != nil {
		return r, nil
	}
	if _, err := s.FindRequest(ctx, id); err != nil {
		return nil, err
	}
	return nil, domain.ErrRequestClosed
}

func (s *ContactStore) CancelAccepted(ctx context.Context, a, b *surrealmodels.RecordID) (int, error) {
	rows, err := s.requests.Query(ctx,
		`UPDATE contact_request SET status = 'cancelled', responded_at = time::now()
		 WHERE status = 'accepted' AND ((sender = $a AND receiver = $b) OR (sender = $b AND receiver = $a))
		 RETURN AFTER`,
		map[string]any{"a": a, "b": b})
	if err != nil {
		return 0, toDomainErr(err)
	}
	return len(rows), nil
}

func (s *ContactStore) AddContact(ctx context.Context, owner, contact *surrealmodels.RecordID) (bool, error) {
	exists, err := s.IsContact(ctx, owner, contact)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}
	_, err = s.contacts.Create(ctx, domain.TableContact, map[string]any{
		"owner":      owner,
		"contact":    contact,
		"created_at": now(),
	})
	if err != nil {
		if errors.Is(err, ErrAlreadyExists) {
			return false, nil
		}
		return false, fmt.Errorf("failed to add contact: %w", err)
	}
	return true, nil
}

func (s *ContactStore) RemoveContact(ctx context.Context, owner, contact *surrealmodels.RecordID) (bool, error) {
	rows, err := s.contacts.Query(ctx,
		"DELETE contact WHERE owner = $owner AND contact = $contact RETURN BEFORE",
		map[string]any{"owner": owner, "contact": contact})
	if err != nil {
		return false, toDomainErr(err)
	}
	return len(rows) > 0, nil
}

func (s *ContactStore) IsContact(ctx context.Context, owner, contact *surrealmodels.RecordID) (bool, error) {
	c, err := s.contacts.QueryOne(ctx,
		"SELECT id FROM contact WHERE owner = $owner AND contact = $contact",
		map[string]any{"owner": owner, "contact": contact})
	if err != nil {
		return false, toDomainErr(err)
	}
	return c != nil, nil
}

func (s *ContactStore) ListContacts(ctx context.Context, owner *surrealmodels.RecordID) ([]*domain.Contact, error) {
	return s.listContacts(ctx, "SELECT * FROM contact WHERE owner = $owner ORDER BY created_at DESC", map[string]any{"owner": owner})
}

func (s *ContactStore) ListAllContacts(ctx context.Context) ([]*domain.Contact, error) {
	return s.listContacts(ctx, "SELECT * FROM contact", nil)
}

func (s *ContactStore) listContacts(ctx context.Context, query string, params map[string]any) ([]*domain.Contact, error) {
	rows, err := s.contacts.Query(ctx, query, params)
	if err != nil {
		return nil, toDomainErr(err)
	}
	out := make([]*domain.Contact, 0, len(rows))
	for i := range rows {
		out = append(out, &rows[i])
	}
	return out, nil
}
