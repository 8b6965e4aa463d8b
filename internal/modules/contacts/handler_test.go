package contacts_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/pliiiz/pliiiz/internal/domain"
	"github.com/pliiiz/pliiiz/internal/modules/contacts"
	"github.com/pliiiz/pliiiz/internal/testutils"
	"github.com/pliiiz/pliiiz/internal/testutils/apitest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withProfile(t *testing.T, repos *testutils.Repos, slug string) *domain.User {
	t.Helper()
	u := apitest.NewUser(t, repos.Users, slug+"@example.com")
	_, err := repos.Profiles.Create(context.Background(), &domain.Profile{
		Owner: u.ID, DisplayName: slug, Slug: slug, Visibility: domain.VisibilityContacts,
	})
	require.NoError(t, err)
	return u
}

func TestContactEndpoints(t *testing.T) {
	repos := testutils.NewRepos()
	outbox := &testutils.Outbox{}
	srv := apitest.Boot(t, repos.Users, contacts.New(contacts.Deps{
		Users:     repos.Users,
		Profiles:  repos.Profiles,
		Contacts:  repos.Contacts,
		Publisher: &testutils.RecordingPublisher{},
		Email:     outbox,
	}))
	alice, bruno := withProfile(t, repos, "alice"), withProfile(t, repos, "bruno")

	rec := srv.Do(t, http.MethodPost, "/app/contacts/requests", map[string]any{"slug": "alice"}, alice)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = srv.Do(t, http.MethodPost, "/app/contacts/requests", map[string]any{"email": "new@example.com"}, alice)
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Len(t, outbox.Sent(), 1)

	rec = srv.Do(t, http.MethodPost, "/app/contacts/requests", map[string]any{"slug": "bruno", "message": "Salut"}, alice)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	sent := apitest.Decode[contacts.SendResult](t, rec)

	rec = srv.Do(t, http.MethodGet, "/app/contacts/requests?direction=incoming", nil, bruno)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, apitest.Decode[[]map[string]any](t, rec), 1)

	path := "/app/contacts/requests/" + domain.IDString(sent.Request.ID)
	assert.Equal(t, http.StatusForbidden, srv.Do(t, http.MethodPost, path+"/accept", nil, alice).Code)
	assert.Equal(t, http.StatusOK, srv.Do(t, http.MethodPost, path+"/accept", nil, bruno).Code)
	assert.Equal(t, http.StatusConflict, srv.Do(t, http.MethodPost, path+"/cancel", nil, alice).Code)

	rec = srv.Do(t, http.MethodPost, "/app/contacts/requests", map[string]any{"slug": "alice"}, bruno)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = srv.Do(t, http.MethodGet, "/app/contacts", nil, bruno)
	require.Equal(t, http.StatusOK, rec.Code)
	list := apitest.Decode[[]contacts.ContactPreview](t, rec)
	require.Len(t, list, 1)
	assert.Equal(t, domain.IDString(alice.ID), list[0].UserID)

	rec = srv.Do(t, http.MethodPost, "/rpc/resync_all_contacts", nil, alice)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	repos.Users.MakeAdmin(alice.ID)
	rec = srv.Do(t, http.MethodPost, "/rpc/resync_all_contacts", nil, alice)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, contacts.ResyncResult{}, apitest.Decode[contacts.ResyncResult](t, rec))

	assert.Equal(t, http.StatusNoContent, srv.Do(t, http.MethodDelete, "/app/contacts/"+domain.IDString(alice.ID), nil, bruno).Code)
	assert.Equal(t, http.StatusNotFound, srv.Do(t, http.MethodDelete, "/app/contacts/"+domain.IDString(alice.ID), nil, bruno).Code)
}
