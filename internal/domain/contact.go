package domain

import (
	"context"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// RequestStatus tracks the lifecycle of a contact request.
type RequestStatus string

const (
	RequestPending   RequestStatus = "pending"
	RequestAccepted  RequestStatus = "accepted"
	RequestDeclined  RequestStatus = "declined"
	RequestCancelled RequestStatus = "cancelled"
)

// ContactRequest is an invitation from one user to another to become contacts.
type ContactRequest struct {
	ID          *surrealmodels.RecordID       `json:"id,omitempty"`
	Sender      *surrealmodels.RecordID       `json:"sender"`
	Receiver    *surrealmodels.RecordID       `json:"receiver"`
	Status      RequestStatus                 `json:"status"`
	Message     string                        `json:"message" validate:"max=280"`
	CreatedAt   *surrealmodels.CustomDateTime `json:"created_at,omitempty"`
	RespondedAt *surrealmodels.CustomDateTime `json:"responded_at,omitempty"`
}

// Contact is one direction of an accepted contact relationship. An accepted
// request materialises as two rows, one per owner.
type Contact struct {
	ID        *surrealmodels.RecordID       `json:"id,omitempty"`
	Owner     *surrealmodels.RecordID       `json:"owner"`
	Contact   *surrealmodels.RecordID       `json:"contact"`
	CreatedAt *surrealmodels.CustomDateTime `json:"created_at,omitempty"`
}

// ContactRepository defines storage operations for requests and contacts.
type ContactRepository interface {
	// CreateRequest fails with ErrRequestPending while another request
	// between the same two users, in either direction, is pending.
	CreateRequest(ctx context.Context, r *ContactRequest) (*ContactRequest, error)
	FindRequest(ctx context.Context, id *surrealmodels.RecordID) (*ContactRequest, error)
	// FindPending returns the pending request sender -> receiver, or ErrNotFound.
	FindPending(ctx context.Context, sender, receiver *surrealmodels.RecordID) (*ContactRequest, error)
	ListIncoming(ctx context.Context, user *surrealmodels.RecordID, status RequestStatus) ([]*ContactRequest, error)
	ListOutgoing(ctx context.Context, user *surrealmodels.RecordID, status RequestStatus) ([]*ContactRequest, error)
	ListAccepted(ctx context.Context) ([]*ContactRequest, error)
	// SetStatus moves a pending request to status. Returns ErrRequestClosed
	// when the request is no longer pending.
	SetStatus(ctx context.Context, id *surrealmodels.RecordID, status RequestStatus) (*ContactRequest, error)
	// CancelAccepted cancels the accepted requests between a and b in either
	// direction, so a removed contact is not rebuilt by a resync.
	CancelAccepted(ctx context.Context, a, b *surrealmodels.RecordID) (int, error)

	// AddContact creates the owner -> contact row unless it already exists.
	AddContact(ctx context.Context, owner, contact *surrealmodels.RecordID) (bool, error)
	RemoveContact(ctx context.Context, owner, contact *surrealmodels.RecordID) (bool, error)
	IsContact(ctx context.Context, owner, contact *surrealmodels.RecordID) (bool, error)
	ListContacts(ctx context.Context, owner *surrealmodels.RecordID) ([]*Contact, error)
	ListAllContacts(ctx context.Context) ([]*Contact, error)
}
