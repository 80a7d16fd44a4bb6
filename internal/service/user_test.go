package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forkful/forkful-backend/internal/apperr"
	"github.com/forkful/forkful-backend/internal/models"
	"github.com/forkful/forkful-backend/internal/testdb"
)

func TestSubscribeToSelfIsValidation(t *testing.T) {
	db := testdb.Open(t)
	svc := NewUserService(db, nil, 6)

	alice := newUser(t, db, "alice")
	_, err := svc.Subscribe(context.Background(), alice.ID, alice.ID, 0)
	assert.True(t, apperr.IsKind(err, apperr.KindValidation), "got %v", err)
}

func TestSubscribeDuplicateIsConflict(t *testing.T) {
	db := testdb.Open(t)
	svc := NewUserService(db, nil, 6)

	alice := newUser(t, db, "alice")
	bob := newUser(t, db, "bob")

	preview, err := svc.Subscribe(context.Background(), alice.ID, bob.ID, 0)
	require.NoError(t, err)
	assert.True(t, preview.IsSubscribed)
	assert.Equal(t, "bob", preview.Username)

	_, err = svc.Subscribe(context.Background(), alice.ID, bob.ID, 0)
	assert.True(t, apperr.IsKind(err, apperr.KindConflict), "got %v", err)
}

func TestSubscribeUnknownAuthorIsNotFound(t *testing.T) {
	db := testdb.Open(t)
	svc := NewUserService(db, nil, 6)

	alice := newUser(t, db, "alice")
	_, err := svc.Subscribe(context.Background(), alice.ID, uuid.New(), 0)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound), "got %v", err)
}

func TestUnsubscribeMissingIsRelationNotFound(t *testing.T) {
	db := testdb.Open(t)
	svc := NewUserService(db, nil, 6)

	alice := newUser(t, db, "alice")
	bob := newUser(t, db, "bob")

	err := svc.Unsubscribe(context.Background(), alice.ID, bob.ID)
	assert.True(t, apperr.IsKind(err, apperr.KindRelationNotFound), "got %v", err)

	_, err = svc.Subscribe(context.Background(), alice.ID, bob.ID, 0)
	require.NoError(t, err)
	require.NoError(t, svc.Unsubscribe(context.Background(), alice.ID, bob.ID))

	var count int64
	require.NoError(t, db.Model(&models.Follow{}).
		Where("follower_id = ? AND author_id = ?", alice.ID, bob.ID).Count(&count).Error)
	assert.EqualValues(t, 0, count)
}

func TestSubscriptionsPreviews(t *testing.T) {
	db := testdb.Open(t)
	svc := NewUserService(db, nil, 6)

	alice := newUser(t, db, "alice")
	bob := newUser(t, db, "bob")
	carol := newUser(t, db, "carol")

	newRecipe(t, db, bob, "Borscht")
	newRecipe(t, db, bob, "Omelette")
	newRecipe(t, db, bob, "Pancakes")
	newRecipe(t, db, carol, "Salad")

	_, err := svc.Subscribe(context.Background(), alice.ID, carol.ID, 0)
	require.NoError(t, err)
	_, err = svc.Subscribe(context.Background(), alice.ID, bob.ID, 0)
	require.NoError(t, err)

	previews, total, err := svc.Subscriptions(context.Background(), alice.ID, 1, 10, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	require.Len(t, previews, 2)

	// Ordered by username ascending.
	assert.Equal(t, "bob", previews[0].Username)
	assert.Equal(t, "carol", previews[1].Username)

	assert.True(t, previews[0].IsSubscribed)
	assert.EqualValues(t, 3, previews[0].RecipesCount)
	assert.Len(t, previews[0].Recipes, 2, "recipes_limit caps the preview")
	assert.EqualValues(t, 1, previews[1].RecipesCount)
	assert.Len(t, previews[1].Recipes, 1)
}

func TestSubscriptionsPreviewCapKeepsNewest(t *testing.T) {
	db := testdb.Open(t)
	svc := NewUserService(db, nil, 6)

	alice := newUser(t, db, "alice")
	bob := newUser(t, db, "bob")

	newRecipe(t, db, bob, "Old")
	newRecipe(t, db, bob, "Mid")
	newRecipe(t, db, bob, "New")

	_, err := svc.Subscribe(context.Background(), alice.ID, bob.ID, 0)
	require.NoError(t, err)

	previews, _, err := svc.Subscriptions(context.Background(), alice.ID, 1, 10, 2)
	require.NoError(t, err)
	require.Len(t, previews, 1)
	assert.EqualValues(t, 3, previews[0].RecipesCount)
	require.Len(t, previews[0].Recipes, 2)
	assert.Equal(t, "New", previews[0].Recipes[0].Name)
	assert.Equal(t, "Mid", previews[0].Recipes[1].Name)
}

func TestListUsersSubscribedFlag(t *testing.T) {
	db := testdb.Open(t)
	svc := NewUserService(db, nil, 6)

	alice := newUser(t, db, "alice")
	bob := newUser(t, db, "bob")
	newUser(t, db, "carol")

	_, err := svc.Subscribe(context.Background(), alice.ID, bob.ID, 0)
	require.NoError(t, err)

	users, total, err := svc.List(context.Background(), 1, 10, &alice.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	require.Len(t, users, 3)

	flags := map[string]bool{}
	for _, u := range users {
		flags[u.Username] = u.IsSubscribed
	}
	assert.True(t, flags["bob"])
	assert.False(t, flags["carol"])
	assert.False(t, flags["alice"])
}

func TestGetUser(t *testing.T) {
	db := testdb.Open(t)
	svc := NewUserService(db, nil, 6)

	alice := newUser(t, db, "alice")
	bob := newUser(t, db, "bob")

	_, err := svc.Subscribe(context.Background(), alice.ID, bob.ID, 0)
	require.NoError(t, err)

	got, err := svc.Get(context.Background(), bob.ID, &alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "bob", got.Username)
	assert.True(t, got.IsSubscribed)

	anon, err := svc.Get(context.Background(), bob.ID, nil)
	require.NoError(t, err)
	assert.False(t, anon.IsSubscribed)

	_, err = svc.Get(context.Background(), uuid.New(), nil)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound), "got %v", err)
}
