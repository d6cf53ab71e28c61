package saved

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketplace/internal/domain/listings"
	"marketplace/internal/repository/inmemory"
)

func TestUsecase(t *testing.T) {
	trip := listings.Listing{ID: uuid.New(), Kind: listings.KindTrip, Name: "Amboseli Safari"}
	hotel := listings.Listing{ID: uuid.New(), Kind: listings.KindHotel, Name: "Coast Inn"}
	hidden := listings.Listing{ID: uuid.New(), Kind: listings.KindEvent, Name: "Closed Gig", IsHidden: true}

	ls := inmemory.NewListings(trip, hotel, hidden)
	uc := NewUsecase(ls, inmemory.NewSavedItems(ls))
	ctx := context.Background()
	userID := uuid.New()

	require.NoError(t, uc.Save(ctx, userID, trip.ID, "trip"))
	require.NoError(t, uc.Save(ctx, userID, trip.ID, "trip"))
	require.NoError(t, uc.Save(ctx, userID, hotel.ID, ""))
	require.NoError(t, uc.Save(ctx, userID, hidden.ID, "event"))

	t.Run("type must match the listing", func(t *testing.T) {
		err := uc.Save(ctx, userID, hotel.ID, "trip")
		assert.ErrorIs(t, err, listings.ErrUnknownKind)
	})

	t.Run("unknown listing", func(t *testing.T) {
		err := uc.Save(ctx, userID, uuid.New(), "")
		assert.ErrorIs(t, err, listings.ErrListingNotFound)
	})

	entries, err := uc.List(ctx, userID, 0, 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, hotel.ID, entries[0].Item.ItemID)
	assert.Equal(t, trip.ID, entries[1].Item.ItemID)

	page, err := uc.List(ctx, userID, 1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, trip.ID, page[0].Item.ItemID)

	require.NoError(t, uc.Remove(ctx, userID, trip.ID))
	entries, err = uc.List(ctx, userID, 0, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	others, err := uc.List(ctx, uuid.New(), 10, 0)
	require.NoError(t, err)
	assert.Empty(t, others)
}
