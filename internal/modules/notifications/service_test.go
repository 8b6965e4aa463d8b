package notifications

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pliiiz/pliiiz/internal/domain"
	"github.com/pliiiz/pliiiz/internal/events"
	"github.com/pliiiz/pliiiz/internal/push"
	"github.com/pliiiz/pliiiz/internal/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePush struct {
	mu      sync.Mutex
	sends   [][]string
	invalid []string
	err     error
}

func (p *fakePush) Send(ctx context.Context, tokens []string, msg push.Message) (*push.Result, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return nil, p.err
	}
	p.sends = append(p.sends, tokens)
	return &push.Result{ID: "n-1", InvalidTokens: p.invalid}, nil
}

type fixture struct {
	svc      *Service
	notifier *Notifier
	repos    *testutils.Repos
	pub      *testutils.RecordingPublisher
	push     *fakePush
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{repos: testutils.NewRepos(), pub: &testutils.RecordingPublisher{}, push: &fakePush{}}
	f.svc = NewService(f.repos.Notifications, f.repos.Devices, f.push, f.pub)
	f.notifier = NewNotifier(f.svc, f.repos.Profiles, f.repos.Contacts)
	return f
}

func (f *fixture) user(t *testing.T, name string) *domain.User {
	t.Helper()
	ctx := context.Background()
	u, err := f.repos.Users.Create(ctx, name+"@example.com", "password123")
	require.NoError(t, err)
	_, err = f.repos.Profiles.Create(ctx, &domain.Profile{Owner: u.ID, DisplayName: name, Slug: strings.ToLower(name), Visibility: domain.VisibilityContacts})
	require.NoError(t, err)
	return u
}

func (f *fixture) notify(t *testing.T, to *domain.User, title string) *domain.Notification {
	t.Helper()
	n, err := f.svc.Notify(context.Background(), &domain.Notification{
		Recipient: to.ID, Type: domain.NotificationContactRequest, Title: title,
	})
	require.NoError(t, err)
	return n
}

func TestNotifyPublishes(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "Alice")

	n := f.notify(t, alice, "Bonjour")

	published := testutils.Decode(t, f.pub, events.NotificationPublished)
	require.Len(t, published, 1)
	assert.Equal(t, domain.IDString(n.ID), published[0].ID)
	assert.Equal(t, domain.IDString(alice.ID), published[0].Recipient)
	assert.Equal(t, "Bonjour", published[0].Title)
	assert.False(t, published[0].CreatedAt.IsZero())
}

func TestListReadAndDelete(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice, bruno := f.user(t, "Alice"), f.user(t, "Bruno")

	first := f.notify(t, alice, "un")
	f.notify(t, alice, "deux")
	third := f.notify(t, alice, "trois")
	f.notify(t, bruno, "autre")

	page, err := f.svc.List(ctx, alice.ID, Page{Limit: 2})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "trois", page[0].Title)

	page, err = f.svc.List(ctx, alice.ID, Page{Limit: 2, Page: 2})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "un", page[0].Title)

	assert.ErrorIs(t, f.svc.MarkRead(ctx, bruno.ID, domain.IDString(first.ID)), domain.ErrNotFound)
	require.NoError(t, f.svc.MarkRead(ctx, alice.ID, domain.IDString(first.ID)))

	count, err := f.svc.UnreadCount(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	unread, err := f.svc.List(ctx, alice.ID, Page{UnreadOnly: true})
	require.NoError(t, err)
	assert.Len(t, unread, 2)

	marked, err := f.svc.MarkAllRead(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, marked)

	assert.ErrorIs(t, f.svc.Delete(ctx, bruno.ID, domain.IDString(third.ID)), domain.ErrNotFound)
	require.NoError(t, f.svc.Delete(ctx, alice.ID, domain.IDString(third.ID)))

	all, err := f.svc.List(ctx, alice.ID, Page{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	empty, err := f.svc.List(ctx, alice.ID, Page{Page: 9})
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestPruneKeepsUnreadAndRecent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice := f.user(t, "Alice")

	read := f.notify(t, alice, "lue")
	f.notify(t, alice, "non lue")
	require.NoError(t, f.svc.MarkRead(ctx, alice.ID, domain.IDString(read.ID)))

	n, err := f.svc.Prune(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	f.svc.now = func() time.Time { return time.Now().Add(Retention + time.Hour) }
	n, err = f.svc.Prune(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	left := f.repos.Notifications.All()
	require.Len(t, left, 1)
	assert.Equal(t, "non lue", left[0].Title)
}

func TestDispatchDropsInvalidTokens(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice := f.user(t, "Alice")

	_, err := f.svc.RegisterDevice(ctx, alice.ID, DeviceInput{Token: "token-phone", Platform: "ios"})
	require.NoError(t, err)
	_, err = f.svc.RegisterDevice(ctx, alice.ID, DeviceInput{Token: "token-stale", Platform: "android"})
	require.NoError(t, err)
	f.push.invalid = []string{"token-stale"}

	res, err := f.svc.Dispatch(ctx, alice.ID, push.Message{Title: "Coucou"})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Devices)
	assert.Equal(t, 1, res.Removed)
	assert.Equal(t, "n-1", res.ID)

	devices, err := f.repos.Devices.ListByUser(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, devices, 1)
	assert.Equal(t, "token-phone", devices[0].Token)

	f.push.err = errors.New("boom")
	_, err = f.svc.Dispatch(ctx, alice.ID, push.Message{Title: "Coucou"})
	assert.Error(t, err)

	none, err := f.svc.Dispatch(ctx, testutils.NewTestRecordID(domain.TableUser), push.Message{Title: "x"})
	require.NoError(t, err)
	assert.Zero(t, none.Devices)

	_, err = f.svc.DispatchTo(ctx, DispatchInput{UserID: "profile:abc", Title: "x"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestNotifierContactEvents(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice, bruno := f.user(t, "Alice"), f.user(t, "Bruno")

	require.NoError(t, f.notifier.OnContactRequest(ctx, events.ContactRequest{
		RequestID: "contact_request:r1", From: domain.IDString(alice.ID), To: domain.IDString(bruno.ID),
	}))
	require.NoError(t, f.notifier.OnContactAccepted(ctx, events.ContactAccepted{
		RequestID: "contact_request:r1", From: domain.IDString(alice.ID), To: domain.IDString(bruno.ID),
	}))

	all := f.repos.Notifications.All()
	require.Len(t, all, 2)
	assert.True(t, domain.SameID(bruno.ID, all[0].Recipient))
	assert.Equal(t, domain.NotificationContactRequest, all[0].Type)
	assert.Equal(t, "Alice souhaite vous ajouter à ses contacts.", all[0].Body)
	assert.True(t, domain.SameID(alice.ID, all[1].Recipient))
	assert.Equal(t, "Bruno a accepté votre demande de contact.", all[1].Body)

	assert.Error(t, f.notifier.OnContactRequest(ctx, events.ContactRequest{From: "profile:nope", To: domain.IDString(bruno.ID)}))
}

func TestNotifierGiftOfferedSkipsOwnerAndGiver(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	owner, giver, friend := f.user(t, "Owner"), f.user(t, "Giver"), f.user(t, "Friend")
	for _, c := range []*domain.User{giver, friend} {
		_, err := f.repos.Contacts.AddContact(ctx, owner.ID, c.ID)
		require.NoError(t, err)
	}

	require.NoError(t, f.notifier.OnGiftOffered(ctx, events.GiftOffered{
		IdeaID: "gift_idea:g1", Label: "Théière", Owner: domain.IDString(owner.ID), Giver: domain.IDString(giver.ID),
	}))

	all := f.repos.Notifications.All()
	require.Len(t, all, 1)
	assert.True(t, domain.SameID(friend.ID, all[0].Recipient))
	assert.Equal(t, "Giver offre « Théière » à Owner.", all[0].Body)
	assert.Equal(t, "gift_idea:g1", all[0].Data["idea_id"])
}

func TestNotifierImageReady(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	owner := f.user(t, "Owner")

	require.NoError(t, f.notifier.OnImageReady(ctx, events.ImageReady{
		Owner: domain.IDString(owner.ID), Hash: "abc", URL: "/media/gifts/ai/abc.png", Label: "Vélo",
		IdeaIDs: []string{"gift_idea:a", "gift_idea:b"},
	}))
	all := f.repos.Notifications.All()
	require.Len(t, all, 1)
	assert.Equal(t, domain.NotificationImageReady, all[0].Type)
	assert.Equal(t, "gift_idea:a,gift_idea:b", all[0].Data["idea_ids"])
}
