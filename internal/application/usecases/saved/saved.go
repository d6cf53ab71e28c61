package saved

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"marketplace/internal/domain/listings"
	"marketplace/internal/domain/saved"
)

type ListingsRepo interface {
	GetListing(ctx context.Context, id uuid.UUID) (listings.Listing, error)
}

type SavedItemsRepo interface {
	Save(ctx context.Context, item saved.Item) error
	Remove(ctx context.Context, userID, itemID uuid.UUID) error
	List(ctx context.Context, userID uuid.UUID) ([]saved.Entry, error)
}

type Usecase struct {
	listings ListingsRepo
	items    SavedItemsRepo
}

func NewUsecase(listingsRepo ListingsRepo, items SavedItemsRepo) *Usecase {
	return &Usecase{listings: listingsRepo, items: items}
}

// Save bookmarks a listing. The stored type always comes from the listing itself.
func (u *Usecase) Save(ctx context.Context, userID, itemID uuid.UUID, itemType string) error {
	l, err := u.listings.GetListing(ctx, itemID)
	if err != nil {
		return err
	}

	if itemType != "" {
		kind, err := listings.ParseKind(itemType)
		if err != nil {
			return err
		}
		if kind != l.Kind {
			return fmt.Errorf("listing %s is a %s, not a %s: %w", itemID, l.Kind, kind, listings.ErrUnknownKind)
		}
	}

	return u.items.Save(ctx, saved.Item{UserID: userID, ItemID: itemID, ItemType: l.Kind})
}

func (u *Usecase) Remove(ctx context.Context, userID, itemID uuid.UUID) error {
	return u.items.Remove(ctx, userID, itemID)
}

// List returns a page of the user's saved listings that are still visible, newest first.
func (u *Usecase) List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]saved.Entry, error) {
	entries, err := u.items.List(ctx, userID)
	if err != nil {
		return nil, err
	}

	visible := saved.Visible(entries)
	if offset >= len(visible) {
		return []saved.Entry{}, nil
	}
	visible = visible[offset:]
	if limit > 0 && limit < len(visible) {
		visible = visible[:limit]
	}

	return visible, nil
}
