package repository

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenda-distribuida/events-service/internal/database"
	"github.com/agenda-distribuida/events-service/internal/models"
)

func newTestRepo(t *testing.T) EventRepository {
	t.Helper()
	db, err := database.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewEventRepository(db.DB(), zerolog.Nop())
}

func concert() models.Record {
	return models.Record{
		Title:       "Concert",
		Description: "Open air",
		Date:        "2024-06-15",
		Location:    "Hall",
		Organizer:   "City",
	}
}

func TestCreateAssignsID(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	event := &models.Event{Record: concert()}
	require.NoError(t, repo.Create(ctx, event))
	assert.NotZero(t, event.ID)

	got, err := repo.GetByID(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, event.Record, got.Record)
}

func TestCreateDuplicateBusinessKey(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &models.Event{Record: concert()}))

	// same business key, different description; still a duplicate
	dup := concert()
	dup.Description = "different"
	err := repo.Create(ctx, &models.Event{Record: dup})
	assert.ErrorIs(t, err, ErrDuplicateEvent)
}

func TestFindDuplicate(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	existing, err := repo.FindDuplicate(ctx, concert())
	require.NoError(t, err)
	assert.Nil(t, existing)

	require.NoError(t, repo.Create(ctx, &models.Event{Record: concert()}))

	// description is excluded from the business key
	probe := concert()
	probe.Description = "something else"
	existing, err = repo.FindDuplicate(ctx, probe)
	require.NoError(t, err)
	require.NotNil(t, existing)
	assert.Equal(t, "Concert", existing.Title)

	// changing any key field is no longer a duplicate
	probe = concert()
	probe.Date = "2024-06-16"
	existing, err = repo.FindDuplicate(ctx, probe)
	require.NoError(t, err)
	assert.Nil(t, existing)
}

func TestGetByIDNotFound(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.GetByID(context.Background(), 999)
	assert.ErrorIs(t, err, ErrEventNotFound)
}

func TestList(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	events, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, events)

	first := concert()
	second := concert()
	second.Title = "Fair"
	require.NoError(t, repo.Create(ctx, &models.Event{Record: first}))
	require.NoError(t, repo.Create(ctx, &models.Event{Record: second}))

	events, err = repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "Concert", events[0].Title)
	assert.Equal(t, "Fair", events[1].Title)
}

func TestSearch(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	records := []models.Record{
		{Title: "Jazz Night", Date: "2024-06-15", Location: "Blue Hall", Organizer: "City"},
		{Title: "Book Fair", Date: "2024-07-01", Location: "Library", Organizer: "Jazz Club"},
		{Title: "Marathon", Date: "2024-08-01", Location: "Stadium", Organizer: "Sports Dept"},
	}
	for _, rec := range records {
		require.NoError(t, repo.Create(ctx, &models.Event{Record: rec}))
	}

	// matches title of the first and organizer of the second
	found, err := repo.Search(ctx, "jazz")
	require.NoError(t, err)
	assert.Len(t, found, 2)

	// matches location only
	found, err = repo.Search(ctx, "LIBRARY")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Book Fair", found[0].Title)

	found, err = repo.Search(ctx, "nothing here")
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestSearchTreatsWildcardsAsLiterals(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	records := []models.Record{
		{Title: "Jazz Night", Date: "2024-06-15", Location: "Blue Hall", Organizer: "City"},
		{Title: "50% Discount Fair", Date: "2024-07-01", Location: "Market", Organizer: "Guild"},
		{Title: "Hack Night", Date: "2024-08-01", Location: "Main_Hall", Organizer: "Club"},
	}
	for _, rec := range records {
		require.NoError(t, repo.Create(ctx, &models.Event{Record: rec}))
	}

	// a lone % is a literal character, not match-everything
	found, err := repo.Search(ctx, "%")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "50% Discount Fair", found[0].Title)

	// _ matches only a literal underscore, not any single character
	found, err = repo.Search(ctx, "_")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Hack Night", found[0].Title)

	found, err = repo.Search(ctx, "50%")
	require.NoError(t, err)
	require.Len(t, found, 1)

	found, err = repo.Search(ctx, `\`)
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestUpdate(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	event := &models.Event{Record: concert()}
	require.NoError(t, repo.Create(ctx, event))

	updated := concert()
	updated.Title = "Concert (moved)"
	updated.Date = "2024-06-20"
	require.NoError(t, repo.Update(ctx, event.ID, updated))

	got, err := repo.GetByID(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, updated, got.Record)
}

func TestUpdateNotFound(t *testing.T) {
	repo := newTestRepo(t)

	err := repo.Update(context.Background(), 999, concert())
	assert.ErrorIs(t, err, ErrEventNotFound)
}

func TestDelete(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	event := &models.Event{Record: concert()}
	require.NoError(t, repo.Create(ctx, event))

	require.NoError(t, repo.Delete(ctx, event.ID))

	_, err := repo.GetByID(ctx, event.ID)
	assert.ErrorIs(t, err, ErrEventNotFound)

	assert.ErrorIs(t, repo.Delete(ctx, event.ID), ErrEventNotFound)
}
