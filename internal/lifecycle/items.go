package lifecycle

import (
	"context"
	"strings"

	"github.com/angelmondragon/plexo-core/internal/store"
	"github.com/angelmondragon/plexo-core/pkg/db/models"
	"github.com/angelmondragon/plexo-core/pkg/enums"
	pkgerrors "github.com/angelmondragon/plexo-core/pkg/errors"
)

// SaveItem stores a new unlisted item for ownerID.
func (s *Service) SaveItem(ctx context.Context, ownerID string, draft ItemDraft) (models.Item, error) {
	if strings.TrimSpace(ownerID) == "" {
		return models.Item{}, pkgerrors.New(pkgerrors.CodeValidation, "owner is required")
	}
	item := draft.Item(s.newID(), ownerID)
	if err := s.engine.Put(ctx, item); err != nil {
		return models.Item{}, err
	}
	s.logg.Info(s.logg.WithItemID(s.logg.WithUserID(ctx, ownerID), item.ID), "item saved")
	return *item, nil
}

// UpdateItem merges update into an item that is still in its owner's inventory.
func (s *Service) UpdateItem(ctx context.Context, itemID string, update ItemUpdate) (models.Item, error) {
	var item models.Item
	err := s.engine.Update(ctx, "update_item", func(tx *store.Tx) error {
		if err := tx.Get(ctx, enums.CollectionItems, itemID, &item); err != nil {
			return err
		}
		if item.Listed {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "listed items cannot be edited").
				WithDetails(map[string]any{"item_id": itemID})
		}
		update.Apply(&item)
		return tx.Put(ctx, &item)
	})
	if err != nil {
		return models.Item{}, err
	}
	return item, nil
}

// ListItemOnMarket moves an unlisted item to the market and records the
// seller snapshot. Listing an already listed item is a STATE_CONFLICT, so a
// blind retry never lists twice.
func (s *Service) ListItemOnMarket(ctx context.Context, itemID string, seller models.SellerSnapshot) (models.Item, error) {
	var item models.Item
	err := s.engine.Update(ctx, "list_item", func(tx *store.Tx) error {
		if err := tx.Get(ctx, enums.CollectionItems, itemID, &item); err != nil {
			return err
		}
		if item.Listed {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "item is already listed").
				WithDetails(map[string]any{"item_id": itemID})
		}
		listedAt := s.now()
		item.Listed = true
		item.ListedAt = &listedAt
		item.Seller = seller
		return tx.Put(ctx, &item)
	})
	if err != nil {
		return models.Item{}, err
	}
	s.logg.Info(s.logg.WithItemID(ctx, itemID), "item listed")
	return item, nil
}

// BuyItem removes a listed item and returns it. The removal is terminal.
func (s *Service) BuyItem(ctx context.Context, itemID string) (models.Item, error) {
	var item models.Item
	err := s.engine.Update(ctx, "buy_item", func(tx *store.Tx) error {
		if err := tx.Get(ctx, enums.CollectionItems, itemID, &item); err != nil {
			return err
		}
		if !item.Listed {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "item is not on the market").
				WithDetails(map[string]any{"item_id": itemID})
		}
		return tx.Delete(ctx, enums.CollectionItems, itemID)
	})
	if err != nil {
		return models.Item{}, err
	}
	s.logg.Info(s.logg.WithItemID(ctx, itemID), "item bought")
	return item, nil
}

// DeleteItem removes the item whatever its state. Missing items are ignored.
func (s *Service) DeleteItem(ctx context.Context, itemID string) error {
	return s.engine.Delete(ctx, enums.CollectionItems, itemID)
}
