package notifications

import (
	"context"
	"fmt"
	"strings"

	"github.com/pliiiz/pliiiz/internal/domain"
	"github.com/pliiiz/pliiiz/internal/events"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// Notifier writes the notifications triggered by contact, gift and image
// events.
type Notifier struct {
	service  *Service
	profiles domain.ProfileRepository
	contacts domain.ContactRepository
}

// NewNotifier creates a Notifier.
func NewNotifier(s *Service, profiles domain.ProfileRepository, contacts domain.ContactRepository) *Notifier {
	return &Notifier{service: s, profiles: profiles, contacts: contacts}
}

// name returns the display name of a user, falling back to a neutral word.
func (n *Notifier) name(ctx context.Context, user *surrealmodels.RecordID) string {
	if p, err := n.profiles.FindByUser(ctx, user); err == nil && p.DisplayName != "" {
		return p.DisplayName
	}
	return "Quelqu'un"
}

func parseUser(raw string) (*surrealmodels.RecordID, error) {
	id, err := domain.ParseID(domain.TableUser, raw)
	if err != nil {
		return nil, fmt.Errorf("event user id %q: %w", raw, err)
	}
	return id, nil
}

func (n *Notifier) OnContactRequest(ctx context.Context, e events.ContactRequest) error {
	from, err := parseUser(e.From)
	if err != nil {
		return err
	}
	to, err := parseUser(e.To)
	if err != nil {
		return err
	}
	_, err = n.service.Notify(ctx, &domain.Notification{
		Recipient: to,
		Type:      domain.NotificationContactRequest,
		Title:     "Nouvelle demande de contact",
		Body:      fmt.Sprintf("%s souhaite vous ajouter à ses contacts.", n.name(ctx, from)),
		Data:      map[string]string{"request_id": e.RequestID, "user_id": e.From},
	})
	return err
}

func (n *Notifier) OnContactAccepted(ctx context.Context, e events.ContactAccepted) error {
	from, err := parseUser(e.From)
	if err != nil {
		return err
	}
	to, err := parseUser(e.To)
	if err != nil {
		return err
	}
	_, err = n.service.Notify(ctx, &domain.Notification{
		Recipient: from,
		Type:      domain.NotificationContactAccepted,
		Title:     "Demande acceptée",
		Body:      fmt.Sprintf("%s a accepté votre demande de contact.", n.name(ctx, to)),
		Data:      map[string]string{"request_id": e.RequestID, "user_id": e.To},
	})
	return err
}

// OnGiftOffered tells the owner's other contacts that the idea is taken so
// nobody buys it twice. The owner is never told.
func (n *Notifier) OnGiftOffered(ctx context.Context, e events.GiftOffered) error {
	owner, err := parseUser(e.Owner)
	if err != nil {
		return err
	}
	giver, err := parseUser(e.Giver)
	if err != nil {
		return err
	}
	contacts, err := n.contacts.ListContacts(ctx, owner)
	if err != nil {
		return err
	}
	ownerName, giverName := n.name(ctx, owner), n.name(ctx, giver)
	var errs []string
	for _, c := range contacts {
		if domain.SameID(c.Contact, giver) {
			continue
		}
		_, err := n.service.Notify(ctx, &domain.Notification{
			Recipient: c.Contact,
			Type:      domain.NotificationGiftOffered,
			Title:     "Cadeau réservé",
			Body:      fmt.Sprintf("%s offre « %s » à %s.", giverName, e.Label, ownerName),
			Data:      map[string]string{"idea_id": e.IdeaID, "owner": e.Owner, "giver": e.Giver},
		})
		if err != nil {
			errs = append(errs, err.Error())
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("gift offered notifications: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (n *Notifier) OnImageReady(ctx context.Context, e events.ImageReady) error {
	owner, err := parseUser(e.Owner)
	if err != nil {
		return err
	}
	_, err = n.service.Notify(ctx, &domain.Notification{
		Recipient: owner,
		Type:      domain.NotificationImageReady,
		Title:     "Image prête",
		Body:      fmt.Sprintf("L'image de « %s » est prête.", e.Label),
		Data: map[string]string{
			"hash":     e.Hash,
			"url":      e.URL,
			"idea_ids": strings.Join(e.IdeaIDs, ","),
		},
	})
	return err
}
