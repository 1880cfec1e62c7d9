// Package views derives read models (inventory, market, chat summaries) from
// persisted state on every call. Nothing here is cached.
package views

import (
	"context"
	"sort"

	"github.com/angelmondragon/plexo-core/internal/store"
	"github.com/angelmondragon/plexo-core/pkg/db/models"
	"github.com/angelmondragon/plexo-core/pkg/enums"
)

// Reader is the read surface of the storage engine. Both *store.Engine and
// *store.Tx satisfy it, so views can be computed inside a transaction.
type Reader interface {
	Get(ctx context.Context, c enums.Collection, key string, dest any) error
	GetByIndex(ctx context.Context, c enums.Collection, index string, value any, dest any) error
	GetByUniqueIndex(ctx context.Context, c enums.Collection, index string, value any, dest any) error
	GetAll(ctx context.Context, c enums.Collection, dest any) error
}

// ChatSummary is a chat with its ordered messages and the latest one.
type ChatSummary struct {
	models.Chat
	Messages    []models.Message `json:"messages"`
	LastMessage *models.Message  `json:"lastMessage,omitempty"`
}

type Views struct {
	r Reader
}

func New(r Reader) *Views {
	return &Views{r: r}
}

// GetUserItems returns every item owned by userID, listed or not.
func (v *Views) GetUserItems(ctx context.Context, userID string) ([]models.Item, error) {
	var items []models.Item
	if err := v.r.GetByIndex(ctx, enums.CollectionItems, store.IndexOwnerUserID, userID, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// GetUserInventory returns the unlisted items of userID, newest first.
func (v *Views) GetUserInventory(ctx context.Context, userID string) ([]models.Item, error) {
	items, err := v.GetUserItems(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]models.Item, 0, len(items))
	for _, item := range items {
		if !item.Listed {
			out = append(out, item)
		}
	}
	SortInventory(out)
	return out, nil
}

// GetMarketItems returns listed items, most recently listed first.
func (v *Views) GetMarketItems(ctx context.Context) ([]models.Item, error) {
	var all []models.Item
	if err := v.r.GetAll(ctx, enums.CollectionItems, &all); err != nil {
		return nil, err
	}
	out := make([]models.Item, 0, len(all))
	for _, item := range all {
		if item.Listed {
			out = append(out, item)
		}
	}
	SortMarket(out)
	return out, nil
}

// GetUserChats returns a summary for every chat of userID, most recently
// updated first.
func (v *Views) GetUserChats(ctx context.Context, userID string) ([]ChatSummary, error) {
	var chats []models.Chat
	if err := v.r.GetByIndex(ctx, enums.CollectionChats, store.IndexUserID, userID, &chats); err != nil {
		return nil, err
	}
	out := make([]ChatSummary, 0, len(chats))
	for _, chat := range chats {
		summary, err := v.summarize(ctx, chat)
		if err != nil {
			return nil, err
		}
		out = append(out, summary)
	}
	SortChats(out)
	return out, nil
}

// GetChatSummary returns the summary for one chat.
func (v *Views) GetChatSummary(ctx context.Context, chatID string) (ChatSummary, error) {
	chat, err := v.GetChat(ctx, chatID)
	if err != nil {
		return ChatSummary{}, err
	}
	return v.summarize(ctx, chat)
}

// GetChatMessages returns the messages of chatID in conversation order.
func (v *Views) GetChatMessages(ctx context.Context, chatID string) ([]models.Message, error) {
	var msgs []models.Message
	if err := v.r.GetByIndex(ctx, enums.CollectionMessages, store.IndexChatID, chatID, &msgs); err != nil {
		return nil, err
	}
	SortMessages(msgs)
	return msgs, nil
}

func (v *Views) GetUser(ctx context.Context, userID string) (models.User, error) {
	var user models.User
	err := v.r.Get(ctx, enums.CollectionUsers, userID, &user)
	return user, err
}

func (v *Views) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	var user models.User
	err := v.r.GetByUniqueIndex(ctx, enums.CollectionUsers, store.IndexEmail, email, &user)
	return user, err
}

func (v *Views) GetAllUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := v.r.GetAll(ctx, enums.CollectionUsers, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (v *Views) GetItem(ctx context.Context, itemID string) (models.Item, error) {
	var item models.Item
	err := v.r.Get(ctx, enums.CollectionItems, itemID, &item)
	return item, err
}

func (v *Views) GetChat(ctx context.Context, chatID string) (models.Chat, error) {
	var chat models.Chat
	err := v.r.Get(ctx, enums.CollectionChats, chatID, &chat)
	return chat, err
}

func (v *Views) summarize(ctx context.Context, chat models.Chat) (ChatSummary, error) {
	msgs, err := v.GetChatMessages(ctx, chat.ID)
	if err != nil {
		return ChatSummary{}, err
	}
	return Summarize(chat, msgs), nil
}

// Summarize builds a summary from a chat and its messages. msgs must already
// be in conversation order.
func Summarize(chat models.Chat, msgs []models.Message) ChatSummary {
	if msgs == nil {
		msgs = []models.Message{}
	}
	summary := ChatSummary{Chat: chat, Messages: msgs}
	if len(msgs) > 0 {
		last := msgs[len(msgs)-1]
		summary.LastMessage = &last
	}
	return summary
}

// SortMarket orders by ListedAt descending; ties and missing times fall back to ID.
func SortMarket(items []models.Item) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i].ListedAt, items[j].ListedAt
		switch {
		case a != nil && b != nil && !a.Equal(*b):
			return a.After(*b)
		case a != nil && b == nil:
			return true
		case a == nil && b != nil:
			return false
		}
		return items[i].ID < items[j].ID
	})
}

// SortInventory orders by CreatedAt descending, then ID.
func SortInventory(items []models.Item) {
	sort.SliceStable(items, func(i, j int) bool {
		if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].CreatedAt.After(items[j].CreatedAt)
		}
		return items[i].ID < items[j].ID
	})
}

// SortChats orders by UpdatedAt descending, then ID.
func SortChats(chats []ChatSummary) {
	sort.SliceStable(chats, func(i, j int) bool {
		if !chats[i].UpdatedAt.Equal(chats[j].UpdatedAt) {
			return chats[i].UpdatedAt.After(chats[j].UpdatedAt)
		}
		return chats[i].ID < chats[j].ID
	})
}

// SortMessages orders by Timestamp ascending; equal timestamps keep insertion order.
func SortMessages(msgs []models.Message) {
	sort.SliceStable(msgs, func(i, j int) bool {
		if !msgs[i].Timestamp.Equal(msgs[j].Timestamp) {
			return msgs[i].Timestamp.Before(msgs[j].Timestamp)
		}
		return msgs[i].Seq < msgs[j].Seq
	})
}
