package preferences

import (
	"context"
	"testing"

	"github.com/pliiiz/pliiiz/internal/domain"
	"github.com/pliiiz/pliiiz/internal/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestCreateAppendsToSection(t *testing.T) {
	ctx := context.Background()
	s := NewService(testutils.NewPreferenceRepo())
	owner := testutils.NewTestRecordID(domain.TableUser)

	a, err := s.Create(ctx, owner, CreateInput{Section: domain.SectionSizes, Label: "Chaussures", Value: "39"})
	require.NoError(t, err)
	b, err := s.Create(ctx, owner, CreateInput{Section: domain.SectionSizes, Label: "Haut", Value: "M"})
	require.NoError(t, err)
	c, err := s.Create(ctx, owner, CreateInput{Section: domain.SectionLikes, Label: "Thé vert"})
	require.NoError(t, err)

	assert.Equal(t, 0, a.Position)
	assert.Equal(t, 1, b.Position)
	assert.Equal(t, 0, c.Position)
	assert.Equal(t, domain.VisibilityContacts, a.Visibility)

	_, err = s.Create(ctx, owner, CreateInput{Section: "hobbies", Label: "x"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestUpdateChecksOwner(t *testing.T) {
	ctx := context.Background()
	s := NewService(testutils.NewPreferenceRepo())
	owner := testutils.NewTestRecordID(domain.TableUser)
	other := testutils.NewTestRecordID(domain.TableUser)

	item, err := s.Create(ctx, owner, CreateInput{Section: domain.SectionLikes, Label: "Fleurs"})
	require.NoError(t, err)
	id := domain.IDString(item.ID)

	_, err = s.Update(ctx, other, id, UpdateInput{Label: ptr("Volé")})
	assert.ErrorIs(t, err, domain.ErrForbidden)
	assert.ErrorIs(t, s.Delete(ctx, other, id), domain.ErrForbidden)

	updated, err := s.Update(ctx, owner, id, UpdateInput{Label: ptr("Pivoines"), Visibility: ptr(domain.VisibilityPublic)})
	require.NoError(t, err)
	assert.Equal(t, "Pivoines", updated.Label)
	assert.Equal(t, domain.VisibilityPublic, updated.Visibility)

	_, err = s.Update(ctx, owner, id, UpdateInput{Visibility: ptr(domain.Visibility("friends"))})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestUpdateMovesToEndOfNewSection(t *testing.T) {
	ctx := context.Background()
	s := NewService(testutils.NewPreferenceRepo())
	owner := testutils.NewTestRecordID(domain.TableUser)

	_, err := s.Create(ctx, owner, CreateInput{Section: domain.SectionDislikes, Label: "Parfum"})
	require.NoError(t, err)
	moved, err := s.Create(ctx, owner, CreateInput{Section: domain.SectionLikes, Label: "Bougies"})
	require.NoError(t, err)

	out, err := s.Update(ctx, owner, domain.IDString(moved.ID), UpdateInput{Section: ptr(domain.SectionDislikes)})
	require.NoError(t, err)
	assert.Equal(t, domain.SectionDislikes, out.Section)
	assert.Equal(t, 1, out.Position)
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	s := NewService(testutils.NewPreferenceRepo())
	owner := testutils.NewTestRecordID(domain.TableUser)

	item, err := s.Create(ctx, owner, CreateInput{Section: domain.SectionAllergies, Label: "Arachides"})
	require.NoError(t, err)
	require.NoError(t, s.Delete(ctx, owner, domain.IDString(item.ID)))

	items, err := s.List(ctx, owner)
	require.NoError(t, err)
	assert.Empty(t, items)

	err = s.Delete(ctx, owner, domain.IDString(item.ID))
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestReorder(t *testing.T) {
	ctx := context.Background()
	s := NewService(testutils.NewPreferenceRepo())
	owner := testutils.NewTestRecordID(domain.TableUser)

	var ids []string
	for _, label := range []string{"Un", "Deux", "Trois"} {
		it, err := s.Create(ctx, owner, CreateInput{Section: domain.SectionBrands, Label: label})
		require.NoError(t, err)
		ids = append(ids, domain.IDString(it.ID))
	}
	other, err := s.Create(ctx, owner, CreateInput{Section: domain.SectionStyles, Label: "Bohème"})
	require.NoError(t, err)

	out, err := s.Reorder(ctx, owner, ReorderInput{Section: domain.SectionBrands, IDs: []string{ids[2], ids[0], ids[1]}})
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, []string{"Trois", "Un", "Deux"}, []string{out[0].Label, out[1].Label, out[2].Label})

	_, err = s.Reorder(ctx, owner, ReorderInput{Section: domain.SectionBrands, IDs: []string{ids[0], domain.IDString(other.ID)}})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = s.Reorder(ctx, owner, ReorderInput{Section: domain.SectionBrands, IDs: []string{ids[0], ids[0]}})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	// A partial list would leave two items sharing a position.
	_, err = s.Reorder(ctx, owner, ReorderInput{Section: domain.SectionBrands, IDs: []string{ids[1]}})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	items, err := s.List(ctx, owner)
	require.NoError(t, err)
	positions := map[string]int{}
	for _, it := range items {
		if it.Section == domain.SectionBrands {
			positions[it.Label] = it.Position
		}
	}
	assert.Equal(t, map[string]int{"Trois": 0, "Un": 1, "Deux": 2}, positions)

	stranger := testutils.NewTestRecordID(domain.TableUser)
	_, err = s.Reorder(ctx, stranger, ReorderInput{Section: domain.SectionBrands, IDs: ids})
	assert.ErrorIs(t, err, domain.ErrForbidden)
}
