package session

import (
	"slices"
	"time"

	"github.com/angelmondragon/plexo-core/internal/views"
	"github.com/angelmondragon/plexo-core/pkg/db/models"
	"github.com/angelmondragon/plexo-core/pkg/enums"
)

// Thread is the conversation currently open in the session. Transient
// threads exist only in memory.
type Thread struct {
	ChatID      string           `json:"id"`
	ContactName string           `json:"contact"`
	Avatar      *string          `json:"avatar,omitempty"`
	ItemID      *string          `json:"itemId,omitempty"`
	ItemTitle   *string          `json:"itemTitle,omitempty"`
	Messages    []models.Message `json:"messages"`
	Transient   bool             `json:"transient"`
}

// SavedItem is a market item the user bought. Saved items live only in the
// session.
type SavedItem struct {
	models.Item
	SavedFrom models.SellerSnapshot `json:"savedFrom"`
	SavedAt   time.Time             `json:"savedAt"`
}

// State is an immutable snapshot of the session mirror. Every change
// produces a new State; slices held by a published State are never written.
type State struct {
	Mode       enums.SessionMode   `json:"mode"`
	User       *models.User        `json:"user"`
	Inventory  []models.Item       `json:"inventory"`
	Market     []models.Item       `json:"market"`
	Saved      []SavedItem         `json:"saved"`
	Chats      []views.ChatSummary `json:"chats"`
	Active     *Thread             `json:"activeThread"`
	InFlight   map[string]bool     `json:"listingInFlight,omitempty"`
	Generation uint64              `json:"generation"`
}

// InInventory reports whether itemID is in the owner's inventory.
func (s State) InInventory(itemID string) bool {
	_, ok := findItem(s.Inventory, itemID)
	return ok
}

// InMarket reports whether itemID is in the market snapshot.
func (s State) InMarket(itemID string) bool {
	_, ok := findItem(s.Market, itemID)
	return ok
}

// Listing reports whether a listing for itemID is in flight.
func (s State) Listing(itemID string) bool {
	return s.InFlight[itemID]
}

func (s State) clone() State {
	next := s
	next.Inventory = slices.Clone(s.Inventory)
	next.Market = slices.Clone(s.Market)
	next.Saved = slices.Clone(s.Saved)
	next.Chats = slices.Clone(s.Chats)
	if s.Active != nil {
		active := *s.Active
		active.Messages = slices.Clone(s.Active.Messages)
		next.Active = &active
	}
	next.InFlight = make(map[string]bool, len(s.InFlight))
	for id := range s.InFlight {
		next.InFlight[id] = true
	}
	return next
}

func (s State) withEmptyDefaults() State {
	if s.Inventory == nil {
		s.Inventory = []models.Item{}
	}
	if s.Market == nil {
		s.Market = []models.Item{}
	}
	if s.Saved == nil {
		s.Saved = []SavedItem{}
	}
	if s.Chats == nil {
		s.Chats = []views.ChatSummary{}
	}
	return s
}

func findItem(items []models.Item, id string) (models.Item, bool) {
	for _, it := range items {
		if it.ID == id {
			return it, true
		}
	}
	return models.Item{}, false
}

func removeItem(items []models.Item, id string) []models.Item {
	out := items[:0]
	for _, it := range items {
		if it.ID != id {
			out = append(out, it)
		}
	}
	return out
}

func replaceItem(items []models.Item, item models.Item) bool {
	for i := range items {
		if items[i].ID == item.ID {
			items[i] = item
			return true
		}
	}
	return false
}

func threadFromSummary(summary views.ChatSummary) *Thread {
	return &Thread{
		ChatID:      summary.ID,
		ContactName: summary.ContactName,
		Avatar:      summary.Avatar,
		ItemID:      summary.ItemID,
		ItemTitle:   summary.ItemTitle,
		Messages:    slices.Clone(summary.Messages),
	}
}
