package database_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thereayou/voxus-chat/internal/apperr"
	"github.com/thereayou/voxus-chat/internal/database"
	"github.com/thereayou/voxus-chat/internal/database/dbtest"
	"github.com/thereayou/voxus-chat/internal/models"
)

func TestSearch(t *testing.T) {
	ctx := context.Background()
	db := dbtest.Open(t)
	users := dbtest.Users(t, db, "alice", "bob", "carol", "dave")
	a, b, c, d := users[0].ID, users[1].ID, users[2].ID, users[3].ID

	g, err := db.CreateGroup(ctx, "g", c, []uint64{a})
	require.NoError(t, err)
	gid := g.ID
	hidden, err := db.CreateGroup(ctx, "hidden", d, nil)
	require.NoError(t, err)
	hid := hidden.ID

	require.NoError(t, db.SaveMessage(ctx, direct(a, b, "Lunch at noon?")))
	require.NoError(t, db.SaveMessage(ctx, direct(b, a, "lunch sounds good")))
	require.NoError(t, db.SaveMessage(ctx, direct(c, a, "lunch tomorrow instead")))
	require.NoError(t, db.SaveMessage(ctx, direct(b, d, "lunch without alice")))
	require.NoError(t, db.SaveMessage(ctx, &models.Message{SenderID: c, GroupID: &gid, Body: "group lunch", Kind: models.KindGroup}))
	require.NoError(t, db.SaveMessage(ctx, &models.Message{SenderID: d, GroupID: &hid, Body: "secret lunch", Kind: models.KindGroup}))
	require.NoError(t, db.SaveMessage(ctx, direct(a, b, "100% sure")))

	t.Run("term is case insensitive and scoped to owner", func(t *testing.T) {
		res, err := db.Search(ctx, a, database.SearchQuery{Term: "LUNCH"})
		require.NoError(t, err)
		assert.Equal(t, int64(4), res.Total)
		assert.False(t, res.HasMore)
		for _, m := range res.Messages {
			assert.NotContains(t, []string{"lunch without alice", "secret lunch"}, m.Body)
		}
	})

	t.Run("partner filter", func(t *testing.T) {
		res, err := db.Search(ctx, a, database.SearchQuery{Term: "lunch", PartnerID: b})
		require.NoError(t, err)
		assert.Equal(t, int64(2), res.Total)
	})

	t.Run("sender filter alone", func(t *testing.T) {
		res, err := db.Search(ctx, a, database.SearchQuery{SenderID: c})
		require.NoError(t, err)
		assert.Equal(t, int64(2), res.Total)
	})

	t.Run("like wildcards are literal", func(t *testing.T) {
		res, err := db.Search(ctx, a, database.SearchQuery{Term: "%"})
		require.NoError(t, err)
		require.Equal(t, int64(1), res.Total)
		assert.Equal(t, "100% sure", res.Messages[0].Body)
	})

	t.Run("pagination", func(t *testing.T) {
		res, err := db.Search(ctx, a, database.SearchQuery{Term: "lunch", Limit: 3})
		require.NoError(t, err)
		assert.Len(t, res.Messages, 3)
		assert.True(t, res.HasMore)

		res, err = db.Search(ctx, a, database.SearchQuery{Term: "lunch", Limit: 3, Offset: 3})
		require.NoError(t, err)
		assert.Len(t, res.Messages, 1)
		assert.False(t, res.HasMore)
	})

	t.Run("date range", func(t *testing.T) {
		now := time.Now().UTC()
		res, err := db.Search(ctx, a, database.SearchQuery{From: now.Add(-time.Hour), To: now.Add(time.Hour)})
		require.NoError(t, err)
		assert.Equal(t, int64(5), res.Total)

		res, err = db.Search(ctx, a, database.SearchQuery{Term: "lunch", To: now.Add(-time.Hour)})
		require.NoError(t, err)
		assert.Zero(t, res.Total)
		assert.Empty(t, res.Messages)
	})
}

func TestSearchRejectsUnboundedQuery(t *testing.T) {
	db := dbtest.Open(t)
	users := dbtest.Users(t, db, "alice")
	now := time.Now()

	for name, q := range map[string]database.SearchQuery{
		"empty":           {},
		"blank term":      {Term: "   "},
		"negative offset": {Term: "x", Offset: -1},
		"inverted range":  {From: now, To: now.Add(-time.Minute)},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := db.Search(context.Background(), users[0].ID, q)
			assert.ErrorIs(t, err, apperr.ErrValidation)
		})
	}
}
