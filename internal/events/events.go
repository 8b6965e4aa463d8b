// Package events declares the typed events exchanged between modules.
package events

import (
	"time"

	"github.com/pliiiz/pliiiz/internal/pubsub"
)

// ContactRequest is published when a user asks another to become contacts.
type ContactRequest struct {
	RequestID string `json:"request_id"`
	From      string `json:"from"`
	To        string `json:"to"`
	Message   string `json:"message,omitempty"`
}

// ContactAccepted is published when a request is accepted. From is the
// original sender, To the user who accepted.
type ContactAccepted struct {
	RequestID string `json:"request_id"`
	From      string `json:"from"`
	To        string `json:"to"`
}

// GiftOffered is published when a contact reserves a gift idea.
type GiftOffered struct {
	IdeaID string `json:"idea_id"`
	Label  string `json:"label"`
	Owner  string `json:"owner"`
	Giver  string `json:"giver"`
}

// ImageReady is published once per owner when regenerated images land on
// their gift ideas.
type ImageReady struct {
	Owner   string   `json:"owner"`
	Hash    string   `json:"hash"`
	URL     string   `json:"url"`
	Label   string   `json:"label"`
	IdeaIDs []string `json:"idea_ids"`
}

// NotificationCreated carries a stored notification to push and realtime
// delivery.
type NotificationCreated struct {
	ID        string            `json:"id"`
	Recipient string            `json:"recipient"`
	Type      string            `json:"type"`
	Title     string            `json:"title"`
	Body      string            `json:"body"`
	Data      map[string]string `json:"data,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

var (
	ContactRequestCreated  = pubsub.NewEvent[ContactRequest]("contacts.request.created")
	ContactRequestAccepted = pubsub.NewEvent[ContactAccepted]("contacts.request.accepted")
	GiftOfferMade          = pubsub.NewEvent[GiftOffered]("gifts.offered")
	GiftImageReady         = pubsub.NewEvent[ImageReady]("giftimage.ready")
	NotificationPublished  = pubsub.NewEvent[NotificationCreated]("notifications.created")
)
