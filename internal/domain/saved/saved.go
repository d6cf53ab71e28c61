package saved

import (
	"time"

	"github.com/google/uuid"

	"marketplace/internal/domain/listings"
)

type Item struct {
	UserID    uuid.UUID     `json:"user_id"`
	ItemID    uuid.UUID     `json:"item_id"`
	ItemType  listings.Kind `json:"item_type"`
	CreatedAt time.Time     `json:"created_at"`
}

// Entry is a saved item joined with its listing.
type Entry struct {
	Item    Item             `json:"item"`
	Listing listings.Listing `json:"listing"`
}

// Visible drops entries whose listing has been hidden since it was saved.
func Visible(entries []Entry) []Entry {
	visible := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if e.Listing.IsHidden {
			continue
		}
		visible = append(visible, e)
	}

	return visible
}
