package testutils

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pliiiz/pliiiz/internal/domain"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// The repositories below are in-memory stand-ins for the SurrealDB stores.
// They follow the same contracts, including the sentinel errors, so services
// can be tested without a database.

// Repos bundles one of each fake.
type Repos struct {
	Users         *UserRepo
	Profiles      *ProfileRepo
	Preferences   *PreferenceRepo
	Contacts      *ContactRepo
	Notifications *NotificationRepo
	Devices       *PushDeviceRepo
	Gifts         *GiftRepo
	Images        *ImageLibrary
	Jobs          *RegenJobRepo
	Files         *FileRepo
}

// NewRepos returns empty fakes.
func NewRepos() *Repos {
	return &Repos{
		Users:         NewUserRepo(),
		Profiles:      NewProfileRepo(),
		Preferences:   NewPreferenceRepo(),
		Contacts:      NewContactRepo(),
		Notifications: NewNotificationRepo(),
		Devices:       NewPushDeviceRepo(),
		Gifts:         NewGiftRepo(),
		Images:        NewImageLibrary(),
		Jobs:          NewRegenJobRepo(),
		Files:         NewFileRepo(),
	}
}

func notFound(what string) error {
	return fmt.Errorf("%w: %s", domain.ErrNotFound, what)
}

// UserRepo is an in-memory domain.UserRepository.
type UserRepo struct {
	mu        sync.Mutex
	users     map[string]*domain.User
	passwords map[string]string
}

func NewUserRepo() *UserRepo {
	return &UserRepo{users: map[string]*domain.User{}, passwords: map[string]string{}}
}

func (r *UserRepo) Create(ctx context.Context, email, password string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range r.users {
		if u.Email == email {
			return nil, domain.ErrUserAlreadyExists
		}
	}
	u := &domain.User{ID: NewTestRecordID(domain.TableUser), Email: email, Role: domain.RoleUser, CreatedAt: stamp()}
	r.users[key(u.ID)] = u
	r.passwords[key(u.ID)] = password
	cp := *u
	return &cp, nil
}

// MakeAdmin promotes a user.
func (r *UserRepo) MakeAdmin(id *surrealmodels.RecordID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[key(id)]; ok {
		u.Role = domain.RoleAdmin
	}
}

func (r *UserRepo) VerifyCredentials(ctx context.Context, email, password string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	email = strings.ToLower(strings.TrimSpace(email))
	for k, u := range r.users {
		if u.Email == email && r.passwords[k] == password {
			cp := *u
			return &cp, nil
		}
	}
	return nil, domain.ErrInvalidCredentials
}

func (r *UserRepo) FindByID(ctx context.Context, id *surrealmodels.RecordID) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[key(id)]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, notFound("user")
}

func (r *UserRepo) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range r.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, notFound("user")
}

// ProfileRepo is an in-memory domain.ProfileRepository.
type ProfileRepo struct {
	mu       sync.Mutex
	profiles map[string]*domain.Profile // by owner
}

func NewProfileRepo() *ProfileRepo {
	return &ProfileRepo{profiles: map[string]*domain.Profile{}}
}

func (r *ProfileRepo) Create(ctx context.Context, p *domain.Profile) (*domain.Profile, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.profiles {
		if existing.Slug == p.Slug {
			return nil, domain.ErrSlugTaken
		}
	}
	if _, ok := r.profiles[key(p.Owner)]; ok {
		return nil, fmt.Errorf("%w: profile exists", domain.ErrConflict)
	}
	cp := *p
	cp.ID = NewTestRecordID(domain.TableProfile)
	cp.CreatedAt, cp.UpdatedAt = stamp(), stamp()
	r.profiles[key(p.Owner)] = &cp
	out := cp
	return &out, nil
}

func (r *ProfileRepo) FindByUser(ctx context.Context, user *surrealmodels.RecordID) (*domain.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.profiles[key(user)]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, notFound("profile")
}

func (r *ProfileRepo) FindBySlug(ctx context.Context, slug string) (*domain.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.profiles {
		if p.Slug == slug {
			cp := *p
			return &cp, nil
		}
	}
	return nil, notFound("profile")
}

func (r *ProfileRepo) FindByUsers(ctx context.Context, users []*surrealmodels.RecordID) ([]*domain.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Profile
	for _, u := range users {
		if p, ok := r.profiles[key(u)]; ok {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *ProfileRepo) Update(ctx context.Context, user *surrealmodels.RecordID, fields map[string]any) (*domain.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.profiles[key(user)]
	if !ok {
		return nil, notFound("profile")
	}
	if slug, ok := fields["slug"].(string); ok {
		for owner, other := range r.profiles {
			if owner != key(user) && other.Slug == slug {
				return nil, domain.ErrSlugTaken
			}
		}
	}
	for k, v := range fields {
		s, _ := v.(string)
		switch k {
		case "display_name":
			p.DisplayName = s
		case "slug":
			p.Slug = s
		case "bio":
			p.Bio = s
		case "birthday":
			p.Birthday = s
		case "city":
			p.City = s
		case "visibility":
			p.Visibility = domain.Visibility(s)
		case "avatar_url":
			p.AvatarURL = s
		case "avatar_path":
			p.AvatarPath = s
		}
	}
	p.UpdatedAt = stamp()
	cp := *p
	return &cp, nil
}

func (r *ProfileRepo) SlugExists(ctx context.Context, slug string) (bool, error) {
	_, err := r.FindBySlug(ctx, slug)
	return err == nil, nil
}

// PreferenceRepo is an in-memory domain.PreferenceRepository.
type PreferenceRepo struct {
	mu    sync.Mutex
	items map[string]*domain.PreferenceItem
}

func NewPreferenceRepo() *PreferenceRepo {
	return &PreferenceRepo{items: map[string]*domain.PreferenceItem{}}
}

func (r *PreferenceRepo) Create(ctx context.Context, item *domain.PreferenceItem) (*domain.PreferenceItem, error) {
	if err := item.Validate(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *item
	cp.ID = NewTestRecordID(domain.TablePreference)
	cp.CreatedAt, cp.UpdatedAt = stamp(), stamp()
	r.items[key(cp.ID)] = &cp
	out := cp
	return &out, nil
}

func (r *PreferenceRepo) FindByID(ctx context.Context, id *surrealmodels.RecordID) (*domain.PreferenceItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if it, ok := r.items[key(id)]; ok {
		cp := *it
		return &cp, nil
	}
	return nil, notFound("preference")
}

func (r *PreferenceRepo) ListByOwner(ctx context.Context, owner *surrealmodels.RecordID) ([]*domain.PreferenceItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.PreferenceItem
	for _, it := range r.items {
		if same(it.Owner, owner) {
			cp := *it
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Section != out[j].Section {
			return out[i].Section < out[j].Section
		}
		if out[i].Position != out[j].Position {
			return out[i].Position < out[j].Position
		}
		return out[i].CreatedAt.Time.Before(out[j].CreatedAt.Time)
	})
	return out, nil
}

func (r *PreferenceRepo) Update(ctx context.Context, id *surrealmodels.RecordID, fields map[string]any) (*domain.PreferenceItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	it, ok := r.items[key(id)]
	if !ok {
		return nil, notFound("preference")
	}
	for k, v := range fields {
		switch k {
		case "label":
			it.Label = v.(string)
		case "value":
			it.Value = v.(string)
		case "visibility":
			it.Visibility = domain.Visibility(v.(string))
		case "section":
			it.Section = domain.Section(v.(string))
		case "position":
			it.Position = v.(int)
		}
	}
	it.UpdatedAt = stamp()
	cp := *it
	return &cp, nil
}

func (r *PreferenceRepo) Delete(ctx context.Context, id *surrealmodels.RecordID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.items, key(id))
	return nil
}

func (r *PreferenceRepo) SetPosition(ctx context.Context, id *surrealmodels.RecordID, position int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if it, ok := r.items[key(id)]; ok {
		it.Position = position
	}
	return nil
}

// ContactRepo is an in-memory domain.ContactRepository.
type ContactRepo struct {
	mu       sync.Mutex
	requests map[string]*domain.ContactRequest
	contacts []*domain.Contact
}

func NewContactRepo() *ContactRepo {
	return &ContactRepo{requests: map[string]*domain.ContactRequest{}}
}

func (r *ContactRepo) CreateRequest(ctx context.Context, req *domain.ContactRequest) (*domain.ContactRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, other := range r.requests {
		if other.Status != domain.RequestPending {
			continue
		}
		if (same(other.Sender, req.Sender) && same(other.Receiver, req.Receiver)) ||
			(same(other.Sender, req.Receiver) && same(other.Receiver, req.Sender)) {
			return nil, domain.ErrRequestPending
		}
	}
	cp := *req
	cp.ID = NewTestRecordID(domain.TableContactRequest)
	if cp.Status == "" {
		cp.Status = domain.RequestPending
	}
	cp.CreatedAt = stamp()
	r.requests[key(cp.ID)] = &cp
	out := cp
	return &out, nil
}

func (r *ContactRepo) FindRequest(ctx context.Context, id *surrealmodels.RecordID) (*domain.ContactRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if req, ok := r.requests[key(id)]; ok {
		cp := *req
		return &cp, nil
	}
	return nil, notFound("contact request")
}

func (r *ContactRepo) FindPending(ctx context.Context, sender, receiver *surrealmodels.RecordID) (*domain.ContactRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, req := range r.requests {
		if same(req.Sender, sender) && same(req.Receiver, receiver) && req.Status == domain.RequestPending {
			cp := *req
			return &cp, nil
		}
	}
	return nil, notFound("pending contact request")
}

func (r *ContactRepo) filter(match func(*domain.ContactRequest) bool) []*domain.ContactRequest {
	var out []*domain.ContactRequest
	for _, req := range r.requests {
		if match(req) {
			cp := *req
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Time.After(out[j].CreatedAt.Time) })
	return out
}

func (r *ContactRepo) ListIncoming(ctx context.Context, user *surrealmodels.RecordID, status domain.RequestStatus) ([]*domain.ContactRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.filter(func(req *domain.ContactRequest) bool { return same(req.Receiver, user) && req.Status == status }), nil
}

func (r *ContactRepo) ListOutgoing(ctx context.Context, user *surrealmodels.RecordID, status domain.RequestStatus) ([]*domain.ContactRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.filter(func(req *domain.ContactRequest) bool { return same(req.Sender, user) && req.Status == status }), nil
}

func (r *ContactRepo) ListAccepted(ctx context.Context) ([]*domain.ContactRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.filter(func(req *domain.ContactRequest) bool { return req.Status == domain.RequestAccepted }), nil
}

func (r *ContactRepo) SetStatus(ctx context.Context, id *surrealmodels.RecordID, status domain.RequestStatus) (*domain.ContactRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.requests[key(id)]
	if !ok {
		return nil, notFound("contact request")
	}
	if req.Status != domain.RequestPending {
		return nil, domain.ErrRequestClosed
	}
	req.Status = status
	req.RespondedAt = stamp()
	cp := *req
	return &cp, nil
}

func (r *ContactRepo) CancelAccepted(ctx context.Context, a, b *surrealmodels.RecordID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, req := range r.requests {
		pair := (same(req.Sender, a) && same(req.Receiver, b)) || (same(req.Sender, b) && same(req.Receiver, a))
		if pair && req.Status == domain.RequestAccepted {
			req.Status = domain.RequestCancelled
			req.RespondedAt = stamp()
			n++
		}
	}
	return n, nil
}

func (r *ContactRepo) AddContact(ctx context.Context, owner, contact *surrealmodels.RecordID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.contacts {
		if same(c.Owner, owner) && same(c.Contact, contact) {
			return false, nil
		}
	}
	r.contacts = append(r.contacts, &domain.Contact{
		ID: NewTestRecordID(domain.TableContact), Owner: owner, Contact: contact, CreatedAt: stamp(),
	})
	return true, nil
}

func (r *ContactRepo) RemoveContact(ctx context.Context, owner, contact *surrealmodels.RecordID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, c := range r.contacts {
		if same(c.Owner, owner) && same(c.Contact, contact) {
			r.contacts = append(r.contacts[:i], r.contacts[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (r *ContactRepo) IsContact(ctx context.Context, owner, contact *surrealmodels.RecordID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.contacts {
		if same(c.Owner, owner) && same(c.Contact, contact) {
			return true, nil
		}
	}
	return false, nil
}

func (r *ContactRepo) ListContacts(ctx context.Context, owner *surrealmodels.RecordID) ([]*domain.Contact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Contact
	for _, c := range r.contacts {
		if same(c.Owner, owner) {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *ContactRepo) ListAllContacts(ctx context.Context) ([]*domain.Contact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.Contact, 0, len(r.contacts))
	for _, c := range r.contacts {
		cp := *c
		out = append(out, &cp)
	}
	return out, nil
}

// NotificationRepo is an in-memory domain.NotificationRepository.
type NotificationRepo struct {
	mu    sync.Mutex
	items []*domain.Notification
}

func NewNotificationRepo() *NotificationRepo {
	return &NotificationRepo{}
}

func (r *NotificationRepo) Create(ctx context.Context, n *domain.Notification) (*domain.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *n
	cp.ID = NewTestRecordID(domain.TableNotification)
	cp.ReadAt = nil
	cp.CreatedAt = stamp()
	r.items = append(r.items, &cp)
	out := cp
	return &out, nil
}

// All returns every stored notification in creation order.
func (r *NotificationRepo) All() []*domain.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.Notification, 0, len(r.items))
	for _, n := range r.items {
		cp := *n
		out = append(out, &cp)
	}
	return out
}

func (r *NotificationRepo) FindByID(ctx context.Context, id *surrealmodels.RecordID) (*domain.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, n := range r.items {
		if same(n.ID, id) {
			cp := *n
			return &cp, nil
		}
	}
	return nil, notFound("notification")
}

func (r *NotificationRepo) ListByRecipient(ctx context.Context, recipient *surrealmodels.RecordID, unreadOnly bool, limit, offset int) ([]*domain.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Notification
	for i := len(r.items) - 1; i >= 0; i-- {
		n := r.items[i]
		if !same(n.Recipient, recipient) || (unreadOnly && n.IsRead()) {
			continue
		}
		cp := *n
		out = append(out, &cp)
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (r *NotificationRepo) CountUnread(ctx context.Context, recipient *surrealmodels.RecordID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, it := range r.items {
		if same(it.Recipient, recipient) && !it.IsRead() {
			n++
		}
	}
	return n, nil
}

func (r *NotificationRepo) MarkRead(ctx context.Context, id *surrealmodels.RecordID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, n := range r.items {
		if same(n.ID, id) {
			if !n.IsRead() {
				n.ReadAt = stamp()
			}
			return nil
		}
	}
	return notFound("notification")
}

func (r *NotificationRepo) MarkAllRead(ctx context.Context, recipient *surrealmodels.RecordID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, n := range r.items {
		if same(n.Recipient, recipient) && !n.IsRead() {
			n.ReadAt = stamp()
			count++
		}
	}
	return count, nil
}

func (r *NotificationRepo) Delete(ctx context.Context, id *surrealmodels.RecordID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, n := range r.items {
		if same(n.ID, id) {
			r.items = append(r.items[:i], r.items[i+1:]...)
			return nil
		}
	}
	return nil
}

func (r *NotificationRepo) PruneRead(ctx context.Context, before time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.items[:0]
	pruned := 0
	for _, n := range r.items {
		if n.IsRead() && n.CreatedAt.Time.Before(before) {
			pruned++
			continue
		}
		kept = append(kept, n)
	}
	r.items = kept
	return pruned, nil
}

// PushDeviceRepo is an in-memory domain.PushDeviceRepository.
type PushDeviceRepo struct {
	mu      sync.Mutex
	devices map[string]*domain.PushDevice // by token
}

func NewPushDeviceRepo() *PushDeviceRepo {
	return &PushDeviceRepo{devices: map[string]*domain.PushDevice{}}
}

func (r *PushDeviceRepo) Upsert(ctx context.Context, d *domain.PushDevice) (*domain.PushDevice, error) {
	if err := domain.Validate(d); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.devices[d.Token]; ok {
		existing.Owner = d.Owner
		existing.Platform = d.Platform
		cp := *existing
		return &cp, nil
	}
	cp := *d
	cp.ID = NewTestRecordID(domain.TablePushDevice)
	cp.CreatedAt = stamp()
	r.devices[d.Token] = &cp
	out := cp
	return &out, nil
}

func (r *PushDeviceRepo) ListByUser(ctx context.Context, user *surrealmodels.RecordID) ([]*domain.PushDevice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.PushDevice
	for _, d := range r.devices {
		if same(d.Owner, user) {
			cp := *d
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *PushDeviceRepo) Delete(ctx context.Context, user *surrealmodels.RecordID, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if d, ok := r.devices[token]; ok && same(d.Owner, user) {
		delete(r.devices, token)
	}
	return nil
}

// GiftRepo is an in-memory domain.GiftRepository.
type GiftRepo struct {
	mu     sync.Mutex
	ideas  map[string]*domain.GiftIdea
	offers map[string]*domain.GiftOffer // by idea
}

func NewGiftRepo() *GiftRepo {
	return &GiftRepo{ideas: map[string]*domain.GiftIdea{}, offers: map[string]*domain.GiftOffer{}}
}

func cloneIdea(g *domain.GiftIdea) *domain.GiftIdea {
	cp := *g
	if g.Attributes != nil {
		cp.Attributes = make(map[string]string, len(g.Attributes))
		for k, v := range g.Attributes {
			cp.Attributes[k] = v
		}
	}
	return &cp
}

func (r *GiftRepo) Create(ctx context.Context, g *domain.GiftIdea) (*domain.GiftIdea, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := cloneIdea(g)
	cp.ID = NewTestRecordID(domain.TableGiftIdea)
	cp.CreatedAt, cp.UpdatedAt = stamp(), stamp()
	r.ideas[key(cp.ID)] = cp
	return cloneIdea(cp), nil
}

func (r *GiftRepo) FindByID(ctx context.Context, id *surrealmodels.RecordID) (*domain.GiftIdea, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if g, ok := r.ideas[key(id)]; ok {
		return cloneIdea(g), nil
	}
	return nil, notFound("gift idea")
}

func (r *GiftRepo) list(match func(*domain.GiftIdea) bool) []*domain.GiftIdea {
	var out []*domain.GiftIdea
	for _, g := range r.ideas {
		if match(g) {
			out = append(out, cloneIdea(g))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Time.After(out[j].CreatedAt.Time) })
	return out
}

func (r *GiftRepo) ListByOwner(ctx context.Context, owner *surrealmodels.RecordID) ([]*domain.GiftIdea, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.list(func(g *domain.GiftIdea) bool { return same(g.Owner, owner) }), nil
}

func (r *GiftRepo) ListByImageSource(ctx context.Context, source domain.ImageSource) ([]*domain.GiftIdea, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.list(func(g *domain.GiftIdea) bool { return g.ImageSource == source }), nil
}

func (r *GiftRepo) Update(ctx context.Context, id *surrealmodels.RecordID, fields map[string]any) (*domain.GiftIdea, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.ideas[key(id)]
	if !ok {
		return nil, notFound("gift idea")
	}
	for k, v := range fields {
		switch k {
		case "label":
			g.Label = v.(string)
		case "category":
			g.Category = v.(string)
		case "attributes":
			g.Attributes, _ = v.(map[string]string)
		case "link":
			g.Link = v.(string)
		case "price_cents":
			g.PriceCents = v.(int)
		case "notes":
			g.Notes = v.(string)
		case "visibility":
			g.Visibility = domain.Visibility(v.(string))
		case "regift":
			g.Regift = v.(bool)
		case "image_url":
			g.ImageURL = v.(string)
		case "image_source":
			g.ImageSource = domain.ImageSource(v.(string))
		case "idea_hash":
			g.IdeaHash = v.(string)
		}
	}
	g.UpdatedAt = stamp()
	return cloneIdea(g), nil
}

func (r *GiftRepo) Delete(ctx context.Context, id *surrealmodels.RecordID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.ideas, key(id))
	delete(r.offers, key(id))
	return nil
}

func (r *GiftRepo) SetImageByHash(ctx context.Context, hash, url string, source domain.ImageSource) ([]*domain.GiftIdea, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.GiftIdea
	for _, g := range r.ideas {
		if g.IdeaHash == hash && g.ImageSource != domain.ImageSourceExisting && g.ImageSource != domain.ImageSourceUnsplash {
			g.ImageURL = url
			g.ImageSource = source
			g.UpdatedAt = stamp()
			out = append(out, cloneIdea(g))
		}
	}
	return out, nil
}

func (r *GiftRepo) FindOffer(ctx context.Context, idea *surrealmodels.RecordID) (*domain.GiftOffer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if o, ok := r.offers[key(idea)]; ok {
		cp := *o
		return &cp, nil
	}
	return nil, notFound("gift offer")
}

func (r *GiftRepo) CreateOffer(ctx context.Context, o *domain.GiftOffer) (*domain.GiftOffer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.offers[key(o.Idea)]; ok {
		return nil, domain.ErrOfferTaken
	}
	cp := *o
	cp.ID = NewTestRecordID(domain.TableGiftOffer)
	cp.CreatedAt = stamp()
	r.offers[key(o.Idea)] = &cp
	out := cp
	return &out, nil
}

func (r *GiftRepo) DeleteOffer(ctx context.Context, idea *surrealmodels.RecordID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.offers, key(idea))
	return nil
}

func (r *GiftRepo) ListOffers(ctx context.Context, ideas []*surrealmodels.RecordID) ([]*domain.GiftOffer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.GiftOffer
	for _, id := range ideas {
		if o, ok := r.offers[key(id)]; ok {
			cp := *o
			out = append(out, &cp)
		}
	}
	return out, nil
}

// ImageLibrary is an in-memory domain.ImageLibrary.
type ImageLibrary struct {
	mu     sync.Mutex
	images map[string]*domain.LibraryImage // by hash
}

func NewImageLibrary() *ImageLibrary {
	return &ImageLibrary{images: map[string]*domain.LibraryImage{}}
}

func (r *ImageLibrary) FindByNormalizedLabel(ctx context.Context, normalized string) (*domain.LibraryImage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, img := range r.images {
		if img.NormalizedLabel == normalized {
			cp := *img
			return &cp, nil
		}
	}
	return nil, notFound("library image")
}

func (r *ImageLibrary) ListByCategory(ctx context.Context, category string, limit int) ([]*domain.LibraryImage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.LibraryImage
	for _, img := range r.images {
		if img.Category == category {
			cp := *img
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Hash < out[j].Hash })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *ImageLibrary) Upsert(ctx context.Context, img *domain.LibraryImage) (*domain.LibraryImage, error) {
	if img.Hash == "" || img.URL == "" {
		return nil, fmt.Errorf("%w: library image needs a hash and a url", domain.ErrInvalidInput)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *img
	cp.ID = NewTestRecordID(domain.TableImageLibrary)
	cp.CreatedAt = stamp()
	r.images[img.Hash] = &cp
	out := cp
	return &out, nil
}

// RegenJobRepo is an in-memory domain.RegenJobRepository.
type RegenJobRepo struct {
	mu   sync.Mutex
	jobs map[string]*domain.RegenJob // by id
}

func NewRegenJobRepo() *RegenJobRepo {
	return &RegenJobRepo{jobs: map[string]*domain.RegenJob{}}
}

func (r *RegenJobRepo) FindByHash(ctx context.Context, hash string) (*domain.RegenJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, j := range r.jobs {
		if j.Hash == hash {
			cp := *j
			return &cp, nil
		}
	}
	return nil, notFound("regeneration job")
}

func (r *RegenJobRepo) Create(ctx context.Context, job *domain.RegenJob) (*domain.RegenJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, j := range r.jobs {
		if j.Hash == job.Hash {
			return nil, fmt.Errorf("%w: job for %s already exists", domain.ErrConflict, job.Hash)
		}
	}
	cp := *job
	cp.ID = NewTestRecordID(domain.TableImageJob)
	cp.Status = domain.JobQueued
	cp.Attempts = 0
	cp.CreatedAt, cp.UpdatedAt = stamp(), stamp()
	r.jobs[key(cp.ID)] = &cp
	out := cp
	return &out, nil
}

func (r *RegenJobRepo) Requeue(ctx context.Context, id *surrealmodels.RecordID) (*domain.RegenJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[key(id)]
	if !ok {
		return nil, notFound("regeneration job")
	}
	if !j.Status.Active() {
		j.Status = domain.JobQueued
		j.Attempts = 0
		j.LastError = ""
		j.UpdatedAt = stamp()
	}
	cp := *j
	return &cp, nil
}

func (r *RegenJobRepo) ListByStatus(ctx context.Context, status domain.JobStatus, limit int) ([]*domain.RegenJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.RegenJob
	for _, j := range r.jobs {
		if j.Status == status {
			cp := *j
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, k int) bool { return out[i].CreatedAt.Time.Before(out[k].CreatedAt.Time) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *RegenJobRepo) Claim(ctx context.Context, id *surrealmodels.RecordID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[key(id)]
	if !ok || j.Status != domain.JobQueued {
		return false, nil
	}
	j.Status = domain.JobRunning
	j.Attempts++
	j.UpdatedAt = stamp()
	return true, nil
}

func (r *RegenJobRepo) Complete(ctx context.Context, id *surrealmodels.RecordID, resultURL string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[key(id)]
	if !ok {
		return notFound("regeneration job")
	}
	j.Status = domain.JobDone
	j.ResultURL = resultURL
	j.LastError = ""
	j.UpdatedAt = stamp()
	return nil
}

func (r *RegenJobRepo) Fail(ctx context.Context, id *surrealmodels.RecordID, msg string, requeue bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[key(id)]
	if !ok {
		return notFound("regeneration job")
	}
	j.Status = domain.JobFailed
	if requeue {
		j.Status = domain.JobQueued
	}
	j.LastError = msg
	j.UpdatedAt = stamp()
	return nil
}

// FileRepo is an in-memory domain.FileRepository.
type FileRepo struct {
	mu    sync.Mutex
	files map[string]*domain.File // by storage path
}

func NewFileRepo() *FileRepo {
	return &FileRepo{files: map[string]*domain.File{}}
}

func (r *FileRepo) Create(ctx context.Context, file *domain.File) (*domain.File, error) {
	if err := file.Validate(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.files[file.StoragePath]; ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrConflict, file.StoragePath)
	}
	cp := *file
	cp.ID = NewTestRecordID(domain.TableFile)
	cp.CreatedAt = stamp()
	r.files[file.StoragePath] = &cp
	out := cp
	return &out, nil
}

func (r *FileRepo) FindByStoragePath(ctx context.Context, storagePath string) (*domain.File, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if f, ok := r.files[storagePath]; ok {
		cp := *f
		return &cp, nil
	}
	return nil, notFound("file")
}

func (r *FileRepo) DeleteByStoragePath(ctx context.Context, storagePath string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.files, storagePath)
	return nil
}

func (r *FileRepo) ListByOwner(ctx context.Context, owner *surrealmodels.RecordID, kind domain.FileKind) ([]*domain.File, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.File
	for _, f := range r.files {
		if same(f.Owner, owner) && f.Kind == kind {
			cp := *f
			out = append(out, &cp)
		}
	}
	return out, nil
}

var (
	_ domain.UserRepository         = (*UserRepo)(nil)
	_ domain.ProfileRepository      = (*ProfileRepo)(nil)
	_ domain.PreferenceRepository   = (*PreferenceRepo)(nil)
	_ domain.ContactRepository      = (*ContactRepo)(nil)
	_ domain.NotificationRepository = (*NotificationRepo)(nil)
	_ domain.PushDeviceRepository   = (*PushDeviceRepo)(nil)
	_ domain.GiftRepository         = (*GiftRepo)(nil)
	_ domain.ImageLibrary           = (*ImageLibrary)(nil)
	_ domain.RegenJobRepository     = (*RegenJobRepo)(nil)
	_ domain.FileRepository         = (*FileRepo)(nil)
)
