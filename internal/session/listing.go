package session

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/angelmondragon/plexo-core/internal/views"
	"github.com/angelmondragon/plexo-core/pkg/db/models"
	"github.com/angelmondragon/plexo-core/pkg/enums"
	pkgerrors "github.com/angelmondragon/plexo-core/pkg/errors"
	"go.uber.org/multierr"
)

// DefaultSellerName is shown on listings of users without a display name.
const DefaultSellerName = "You"

// Synthesizer builds the in-memory market entry used when the store cannot
// record a listing.
type Synthesizer func(item models.Item, seller models.SellerSnapshot, at time.Time) (models.Item, error)

// SynthesizeListing marks a copy of item as listed at the given time. The
// copy keeps the item ID and is flagged Ephemeral.
func SynthesizeListing(item models.Item, seller models.SellerSnapshot, at time.Time) (models.Item, error) {
	if item.ID == "" {
		return models.Item{}, errors.New("item has no id")
	}
	listedAt := at
	item.Listed = true
	item.ListedAt = &listedAt
	item.Seller = seller
	item.UpdatedAt = at
	item.Ephemeral = true
	return item, nil
}

// ListItem moves an inventory item to the market.
//
// The store is tried first, then an in-memory listing. The item leaves the
// inventory in the same state swap that puts it in the market, and only once
// one of the two succeeded. When both fail the item stays in the inventory
// and the error is returned.
func (s *Session) ListItem(ctx context.Context, itemID string) (models.Item, error) {
	// Writes commit even when the caller gives up.
	ctx = context.WithoutCancel(ctx)
	s.mu.Lock()
	st := s.state
	item, err := s.ownedItem(st, itemID)
	if err != nil {
		s.mu.Unlock()
		return models.Item{}, err
	}
	marked := st.clone()
	marked.InFlight[itemID] = true
	s.state = marked
	s.mu.Unlock()
	defer s.clearInFlight(itemID)

	ctx = s.logg.WithItemID(ctx, itemID)
	seller := s.sellerSnapshot(*st.User, item)

	listed, outcome, err := s.listPersisted(ctx, itemID, seller)
	if err != nil {
		if s.svc != nil {
			s.logg.Error(ctx, "persisted listing failed, listing in memory", err)
		}
		synthesized, synthErr := s.synthesize(item, seller, s.now())
		if synthErr != nil {
			s.metrics.IncListing(enums.ListingOutcomeAborted.String())
			cause := multierr.Append(err, synthErr)
			s.logg.Error(ctx, "listing aborted", cause)
			return models.Item{}, pkgerrors.Wrap(pkgerrors.CodeTransactionFailure, cause, "item could not be listed").
				WithDetails(map[string]any{"item_id": itemID})
		}
		listed, outcome = synthesized, enums.ListingOutcomeEphemeral
	}
	s.metrics.IncListing(outcome.String())

	committed := s.commit(st.Generation, "listing", func(next *State) {
		next.Inventory = removeItem(next.Inventory, itemID)
		next.Market = append([]models.Item{listed}, removeItem(next.Market, itemID)...)
		views.SortMarket(next.Market)
	})
	if committed {
		s.logg.Info(ctx, "item moved to market ("+outcome.String()+")")
	}
	return listed, nil
}

// listPersisted lists through the store. An item the store already shows as
// listed counts as success, so a retry after a lost reply has no double effect.
func (s *Session) listPersisted(ctx context.Context, itemID string, seller models.SellerSnapshot) (models.Item, enums.ListingOutcome, error) {
	if s.svc == nil {
		return models.Item{}, "", pkgerrors.New(pkgerrors.CodeStorageUnavailable, "storage is unavailable")
	}
	listed, err := s.svc.ListItemOnMarket(ctx, itemID, seller)
	if err == nil {
		return listed, enums.ListingOutcomePersisted, nil
	}
	if pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) {
		current, getErr := s.svc.Views().GetItem(ctx, itemID)
		if getErr == nil && current.Listed {
			return current, enums.ListingOutcomePersisted, nil
		}
	}
	return models.Item{}, "", err
}

func (s *Session) clearInFlight(itemID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.state.InFlight[itemID] {
		return
	}
	next := s.state.clone()
	delete(next.InFlight, itemID)
	s.state = next
}

func (s *Session) sellerSnapshot(user models.User, item models.Item) models.SellerSnapshot {
	seller := models.SellerSnapshot{
		ID:     user.ID,
		Name:   strings.TrimSpace(user.Name),
		Avatar: cloneString(user.Avatar),
		Rating: user.Rating,
	}
	if seller.Name == "" {
		seller.Name = DefaultSellerName
	}
	if seller.Avatar == nil || *seller.Avatar == "" {
		image := item.Image
		seller.Avatar = &image
	}
	if seller.Rating <= 0 {
		seller.Rating = s.cfg.DefaultRating
	}
	return seller
}
