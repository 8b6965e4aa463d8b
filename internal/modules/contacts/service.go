// Package contacts manages contact requests and the contact graph that
// decides who sees what on a profile.
package contacts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/pliiiz/pliiiz/internal/domain"
	"github.com/pliiiz/pliiiz/internal/email"
	"github.com/pliiiz/pliiiz/internal/events"
	"github.com/pliiiz/pliiiz/internal/pubsub"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// Direction selects which side of a request a listing is for.
type Direction string

const (
	Incoming Direction = "incoming"
	Outgoing Direction = "outgoing"
)

// RequestInput is the body of POST /app/contacts/requests. Exactly one of
// Slug and Email names the target.
type RequestInput struct {
	Slug    string `json:"slug" validate:"omitempty,slug"`
	Email   string `json:"email" validate:"omitempty,email,max=254"`
	Message string `json:"message" validate:"max=280"`
}

// Outcome tells the caller what SendRequest did.
type Outcome string

const (
	OutcomeCreated  Outcome = "created"
	OutcomeExisting Outcome = "existing"
	OutcomeAccepted Outcome = "accepted"
	OutcomeInvited  Outcome = "invited"
)

// SendResult is returned by SendRequest. Request is nil when an invite
// email was sent instead.
type SendResult struct {
	Outcome Outcome                `json:"outcome"`
	Request *domain.ContactRequest `json:"request,omitempty"`
}

// ContactPreview is the card shown in contact lists.
type ContactPreview struct {
	UserID      string     `json:"user_id"`
	DisplayName string     `json:"display_name"`
	Slug        string     `json:"slug"`
	AvatarURL   string     `json:"avatar_url"`
	Since       *time.Time `json:"since,omitempty"`
}

// RequestView is a request plus the card of the other party.
type RequestView struct {
	*domain.ContactRequest
	User ContactPreview `json:"user"`
}

// ResyncResult reports the rows touched by Resync.
type ResyncResult struct {
	Created int `json:"created"`
	Removed int `json:"removed"`
}

// Deps are the collaborators of a Service.
type Deps struct {
	Users      domain.UserRepository
	Profiles   domain.ProfileRepository
	Contacts   domain.ContactRepository
	Publisher  pubsub.Publisher
	Email      domain.EmailSender
	AppBaseURL string
}

// Service implements contact operations.
type Service struct {
	users      domain.UserRepository
	profiles   domain.ProfileRepository
	contacts   domain.ContactRepository
	publisher  pubsub.Publisher
	email      domain.EmailSender
	appBaseURL string
}

// NewService creates a Service.
func NewService(d Deps) *Service {
	return &Service{
		users:      d.Users,
		profiles:   d.Profiles,
		contacts:   d.Contacts,
		publisher:  d.Publisher,
		email:      d.Email,
		appBaseURL: strings.TrimRight(d.AppBaseURL, "/"),
	}
}

// SendRequest asks the target to become a contact of sender. A pending
// request in the other direction is accepted instead, and a pending request
// in the same direction is returned unchanged. An email without an account
// gets an invitation.
func (s *Service) SendRequest(ctx context.Context, sender *domain.User, in RequestInput) (*SendResult, error) {
	in.Slug = strings.ToLower(strings.TrimSpace(in.Slug))
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if (in.Slug == "") == (in.Email == "") {
		return nil, fmt.Errorf("%w: give either a slug or an email", domain.ErrInvalidInput)
	}
	if err := domain.Validate(&in); err != nil {
		return nil, err
	}

	target, err := s.resolveTarget(ctx, in)
	if errors.Is(err, domain.ErrNotFound) && in.Email != "" {
		if err := s.invite(ctx, sender, in); err != nil {
			return nil, err
		}
		return &SendResult{Outcome: OutcomeInvited}, nil
	}
	if err != nil {
		return nil, err
	}

	if domain.SameID(target, sender.ID) {
		return nil, domain.ErrSelfRequest
	}
	already, err := s.contacts.IsContact(ctx, sender.ID, target)
	if err != nil {
		return nil, err
	}
	if already {
		return nil, domain.ErrAlreadyContacts
	}

	if res, err := s.resolvePending(ctx, sender, target); res != nil || err != nil {
		return res, err
	}

	req, err := s.contacts.CreateRequest(ctx, &domain.ContactRequest{
		Sender:   sender.ID,
		Receiver: target,
		Status:   domain.RequestPending,
		Message:  strings.TrimSpace(in.Message),
	})
	if errors.Is(err, domain.ErrRequestPending) {
		// A concurrent request for the same pair got in first.
		if res, err := s.resolvePending(ctx, sender, target); res != nil || err != nil {
			return res, err
		}
	}
	if err != nil {
		return nil, err
	}
	s.publish(ctx, func() error {
		return pubsub.Publish(ctx, s.publisher, events.ContactRequestCreated, domain.IDString(sender.ID), events.ContactRequest{
			RequestID: domain.IDString(req.ID),
			From:      domain.IDString(req.Sender),
			To:        domain.IDString(req.Receiver),
			Message:   req.Message,
		})
	})
	return &SendResult{Outcome: OutcomeCreated, Request: req}, nil
}

// resolvePending accepts a pending request from target or returns the
// caller's own pending one. Both nil means nothing is pending.
func (s *Service) resolvePending(ctx context.Context, sender *domain.User, target *surrealmodels.RecordID) (*SendResult, error) {
	if reverse, err := s.contacts.FindPending(ctx, target, sender.ID); err == nil {
		accepted, err := s.accept(ctx, reverse)
		if err != nil {
			return nil, err
		}
		return &SendResult{Outcome: OutcomeAccepted, Request: accepted}, nil
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	if existing, err := s.contacts.FindPending(ctx, sender.ID, target); err == nil {
		return &SendResult{Outcome: OutcomeExisting, Request: existing}, nil
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	return nil, nil
}

func (s *Service) resolveTarget(ctx context.Context, in RequestInput) (*surrealmodels.RecordID, error) {
	if in.Slug != "" {
		p, err := s.profiles.FindBySlug(ctx, in.Slug)
		if err != nil {
			return nil, err
		}
		return p.Owner, nil
	}
	u, err := s.users.FindByEmail(ctx, in.Email)
	if err != nil {
		return nil, err
	}
	return u.ID, nil
}

func (s *Service) invite(ctx context.Context, sender *domain.User, in RequestInput) error {
	name := sender.Email
	if p, err := s.profiles.FindByUser(ctx, sender.ID); err == nil {
		name = p.DisplayName
	}
	signup := s.appBaseURL + "/signup?email=" + url.QueryEscape(in.Email)
	subject, html, err := email.Invite(name, strings.TrimSpace(in.Message), signup)
	if err != nil {
		return fmt.Errorf("render invite: %w", err)
	}
	if err := s.email.Send(in.Email, subject, html); err != nil {
		return fmt.Errorf("%w: invite email: %v", domain.ErrProviderUnavailable, err)
	}
	return nil
}

// Accept accepts a pending request addressed to user.
func (s *Service) Accept(ctx context.Context, user *domain.User, rawID string) (*domain.ContactRequest, error) {
	req, err := s.pendingFor(ctx, rawID, func(r *domain.ContactRequest) bool { return domain.SameID(r.Receiver, user.ID) })
	if err != nil {
		return nil, err
	}
	return s.accept(ctx, req)
}

// Decline declines a pending request addressed to user.
func (s *Service) Decline(ctx context.Context, user *domain.User, rawID string) (*domain.ContactRequest, error) {
	req, err := s.pendingFor(ctx, rawID, func(r *domain.ContactRequest) bool { return domain.SameID(r.Receiver, user.ID) })
	if err != nil {
		return nil, err
	}
	return s.contacts.SetStatus(ctx, req.ID, domain.RequestDeclined)
}

// Cancel withdraws a pending request sent by user.
func (s *Service) Cancel(ctx context.Context, user *domain.User, rawID string) (*domain.ContactRequest, error) {
	req, err := s.pendingFor(ctx, rawID, func(r *domain.ContactRequest) bool { return domain.SameID(r.Sender, user.ID) })
	if err != nil {
		return nil, err
	}
	return s.contacts.SetStatus(ctx, req.ID, domain.RequestCancelled)
}

func (s *Service) pendingFor(ctx context.Context, rawID string, allowed func(*domain.ContactRequest) bool) (*domain.ContactRequest, error) {
	id, err := domain.ParseID(domain.TableContactRequest, rawID)
	if err != nil {
		return nil, err
	}
	req, err := s.contacts.FindRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if !allowed(req) {
		return nil, fmt.Errorf("%w: not your contact request", domain.ErrForbidden)
	}
	if req.Status != domain.RequestPending {
		return nil, domain.ErrRequestClosed
	}
	return req, nil
}

// accept flips the request and materialises both contact rows.
func (s *Service) accept(ctx context.Context, req *domain.ContactRequest) (*domain.ContactRequest, error) {
	accepted, err := s.contacts.SetStatus(ctx, req.ID, domain.RequestAccepted)
	if err != nil {
		return nil, err
	}
	if _, err := s.contacts.AddContact(ctx, req.Sender, req.Receiver); err != nil {
		return nil, err
	}
	if _, err := s.contacts.AddContact(ctx, req.Receiver, req.Sender); err != nil {
		return nil, err
	}
	s.publish(ctx, func() error {
		return pubsub.Publish(ctx, s.publisher, events.ContactRequestAccepted, domain.IDString(req.Receiver), events.ContactAccepted{
			RequestID: domain.IDString(req.ID),
			From:      domain.IDString(req.Sender),
			To:        domain.IDString(req.Receiver),
		})
	})
	return accepted, nil
}

// publish logs event failures; the state change already happened.
func (s *Service) publish(ctx context.Context, fn func() error) {
	if err := fn(); err != nil {
		slog.WarnContext(ctx, "Failed to publish contact event", "error", err)
	}
}

// ListRequests returns the pending requests of user in one direction.
func (s *Service) ListRequests(ctx context.Context, user *domain.User, dir Direction) ([]RequestView, error) {
	var (
		reqs []*domain.ContactRequest
		err  error
	)
	switch dir {
	case Incoming, "":
		reqs, err = s.contacts.ListIncoming(ctx, user.ID, domain.RequestPending)
	case Outgoing:
		reqs, err = s.contacts.ListOutgoing(ctx, user.ID, domain.RequestPending)
	default:
		return nil, fmt.Errorf("%w: direction must be incoming or outgoing", domain.ErrInvalidInput)
	}
	if err != nil {
		return nil, err
	}

	others := make([]*surrealmodels.RecordID, 0, len(reqs))
	for _, r := range reqs {
		if dir == Outgoing {
			others = append(others, r.Receiver)
		} else {
			others = append(others, r.Sender)
		}
	}
	cards, err := s.previews(ctx, others)
	if err != nil {
		return nil, err
	}

	out := make([]RequestView, 0, len(reqs))
	for i, r := range reqs {
		out = append(out, RequestView{ContactRequest: r, User: cards[domain.IDString(others[i])]})
	}
	return out, nil
}

// List returns the contacts of user, most recent first.
func (s *Service) List(ctx context.Context, user *domain.User) ([]ContactPreview, error) {
	rows, err := s.contacts.ListContacts(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	ids := make([]*surrealmodels.RecordID, 0, len(rows))
	for _, c := range rows {
		ids = append(ids, c.Contact)
	}
	cards, err := s.previews(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]ContactPreview, 0, len(rows))
	for _, c := range rows {
		card := cards[domain.IDString(c.Contact)]
		if c.CreatedAt != nil {
			since := c.CreatedAt.Time
			card.Since = &since
		}
		out = append(out, card)
	}
	return out, nil
}

func (s *Service) previews(ctx context.Context, users []*surrealmodels.RecordID) (map[string]ContactPreview, error) {
	out := make(map[string]ContactPreview, len(users))
	for _, u := range users {
		out[domain.IDString(u)] = ContactPreview{UserID: domain.IDString(u)}
	}
	if len(users) == 0 {
		return out, nil
	}
	profiles, err := s.profiles.FindByUsers(ctx, users)
	if err != nil {
		return nil, err
	}
	for _, p := range profiles {
		id := domain.IDString(p.Owner)
		out[id] = ContactPreview{UserID: id, DisplayName: p.DisplayName, Slug: p.Slug, AvatarURL: p.AvatarURL}
	}
	return out, nil
}

// Remove ends the relationship between user and the other user in both
// directions.
func (s *Service) Remove(ctx context.Context, user *domain.User, rawUserID string) error {
	other, err := domain.ParseID(domain.TableUser, rawUserID)
	if err != nil {
		return err
	}
	a, err := s.contacts.RemoveContact(ctx, user.ID, other)
	if err != nil {
		return err
	}
	b, err := s.contacts.RemoveContact(ctx, other, user.ID)
	if err != nil {
		return err
	}
	if !a && !b {
		return fmt.Errorf("%w: not a contact", domain.ErrNotFound)
	}
	if _, err := s.contacts.CancelAccepted(ctx, user.ID, other); err != nil {
		return err
	}
	return nil
}

// Resync rebuilds the contact rows from accepted requests: missing
// directions are created and rows without an accepted request are removed.
// Running it twice changes nothing the second time.
func (s *Service) Resync(ctx context.Context) (*ResyncResult, error) {
	accepted, err := s.contacts.ListAccepted(ctx)
	if err != nil {
		return nil, err
	}

	type pair struct{ owner, contact *surrealmodels.RecordID }
	want := make(map[string]pair, len(accepted)*2)
	for _, r := range accepted {
		want[pairKey(r.Sender, r.Receiver)] = pair{r.Sender, r.Receiver}
		want[pairKey(r.Receiver, r.Sender)] = pair{r.Receiver, r.Sender}
	}

	var res ResyncResult
	for _, p := range want {
		created, err := s.contacts.AddContact(ctx, p.owner, p.contact)
		if err != nil {
			return nil, err
		}
		if created {
			res.Created++
		}
	}

	rows, err := s.contacts.ListAllContacts(ctx)
	if err != nil {
		return nil, err
	}
	for _, c := range rows {
		if _, ok := want[pairKey(c.Owner, c.Contact)]; ok {
			continue
		}
		removed, err := s.contacts.RemoveContact(ctx, c.Owner, c.Contact)
		if err != nil {
			return nil, err
		}
		if removed {
			res.Removed++
		}
	}

	slog.InfoContext(ctx, "Contacts resynced", "event", "contacts_resync", "created", res.Created, "removed", res.Removed)
	return &res, nil
}

func pairKey(owner, contact *surrealmodels.RecordID) string {
	return domain.IDString(owner) + ">" + domain.IDString(contact)
}
