package testutils

import (
	"errors"
	"sync"

	"github.com/pliiiz/pliiiz/internal/domain"
)

// Mail is one message captured by an Outbox.
type Mail struct {
	To, Subject, HTML string
}

// Outbox is a domain.EmailSender that keeps messages in memory.
type Outbox struct {
	mu      sync.Mutex
	sent    []Mail
	Failing bool
}

func (o *Outbox) Send(to, subject, htmlBody string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.Failing {
		return errors.New("smtp down")
	}
	o.sent = append(o.sent, Mail{To: to, Subject: subject, HTML: htmlBody})
	return nil
}

// Sent returns a copy of the captured messages.
func (o *Outbox) Sent() []Mail {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]Mail(nil), o.sent...)
}

var _ domain.EmailSender = (*Outbox)(nil)
