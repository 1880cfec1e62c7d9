package session

import (
	"context"
	"slices"
	"strings"

	"github.com/angelmondragon/plexo-core/internal/lifecycle"
	"github.com/angelmondragon/plexo-core/internal/views"
	"github.com/angelmondragon/plexo-core/pkg/db/models"
	"github.com/angelmondragon/plexo-core/pkg/enums"
	pkgerrors "github.com/angelmondragon/plexo-core/pkg/errors"
	"github.com/oklog/ulid/v2"
)

// TransientThreadPrefix prefixes the ids of threads that are never persisted.
const TransientThreadPrefix = "chat-"

// ContactSeller opens the thread with the seller of a market item. Listings
// with a known seller get a persisted chat seeded with a greeting; anything
// else, or any store failure, opens a transient thread for this session.
func (s *Session) ContactSeller(ctx context.Context, itemID string) (Thread, error) {
	ctx = context.WithoutCancel(ctx)
	st := s.Snapshot()
	if st.User == nil {
		return Thread{}, errSignedOut()
	}
	target, ok := findItem(st.Market, itemID)
	if !ok {
		return Thread{}, pkgerrors.New(pkgerrors.CodeNotFound, "item is not on the market").
			WithDetails(map[string]any{"item_id": itemID})
	}
	if target.Seller.ID != "" && target.Seller.ID == st.User.ID {
		return Thread{}, pkgerrors.New(pkgerrors.CodeValidation, "cannot contact yourself")
	}
	ctx = s.logg.WithItemID(ctx, itemID)

	if s.svc != nil && target.Seller.ID != "" && !target.Ephemeral {
		thread, err := s.openPersistedThread(ctx, *st.User, target)
		if err == nil {
			s.RefreshChats(ctx)
			s.commit(st.Generation, "contact", func(next *State) {
				next.Active = thread
			})
			return *thread, nil
		}
		s.logg.Error(ctx, "open persisted chat failed, using transient thread", err)
	}

	thread := s.transientThread(st, target)
	s.metrics.IncTransientThread()
	s.commit(st.Generation, "contact", func(next *State) {
		next.Active = thread
	})
	return *thread, nil
}

func (s *Session) openPersistedThread(ctx context.Context, user models.User, target models.Item) (*Thread, error) {
	chat, created, err := s.svc.GetOrCreateChat(ctx, user.ID, target.Seller.ID,
		lifecycle.ContactInfo{Name: target.Seller.Name, Avatar: target.Seller.Avatar},
		&lifecycle.LinkedItem{ID: target.ID, Title: target.Title},
	)
	if err != nil {
		return nil, err
	}
	ctx = s.logg.WithChatID(ctx, chat.ID)

	// Re-read after creation: another caller may have greeted already.
	summary, err := s.svc.Views().GetChatSummary(ctx, chat.ID)
	if err != nil {
		return nil, err
	}
	if summary.LastMessage == nil && s.cfg.Greeting != "" {
		if _, err := s.svc.SaveMessage(ctx, chat.ID, lifecycle.MessageInput{
			Sender: enums.SenderRoleLocal,
			Text:   s.cfg.Greeting,
		}); err != nil {
			return nil, err
		}
		if summary, err = s.svc.Views().GetChatSummary(ctx, chat.ID); err != nil {
			return nil, err
		}
	}
	if created {
		s.logg.Info(ctx, "chat opened with seller")
	}
	return threadFromSummary(summary), nil
}

// transientThread reuses the current transient thread for the item so its
// messages survive repeated contact.
func (s *Session) transientThread(st State, target models.Item) *Thread {
	id := TransientThreadPrefix + target.ID
	if st.Active != nil && st.Active.Transient && st.Active.ChatID == id {
		return st.Active
	}
	itemID, title := target.ID, target.Title
	return &Thread{
		ChatID:      id,
		ContactName: target.Seller.Name,
		Avatar:      cloneString(target.Seller.Avatar),
		ItemID:      &itemID,
		ItemTitle:   &title,
		Messages:    []models.Message{},
		Transient:   true,
	}
}

// SendMessage appends text to the active thread.
func (s *Session) SendMessage(ctx context.Context, text string) (models.Message, error) {
	ctx = context.WithoutCancel(ctx)
	st := s.Snapshot()
	if st.User == nil {
		return models.Message{}, errSignedOut()
	}
	if st.Active == nil {
		return models.Message{}, pkgerrors.New(pkgerrors.CodeStateConflict, "no chat is open")
	}
	if strings.TrimSpace(text) == "" {
		return models.Message{}, pkgerrors.New(pkgerrors.CodeValidation, "message text is required")
	}
	chatID := st.Active.ChatID
	ctx = s.logg.WithChatID(ctx, chatID)

	if st.Active.Transient || s.svc == nil {
		now := s.now()
		msg := models.Message{
			ID:     ulid.Make().String(),
			ChatID: chatID,
			Sender: enums.SenderRoleLocal,
			Text:   text,
			Seq:    int64(len(st.Active.Messages) + 1),
		}
		msg.Stamp(now)
		s.commit(st.Generation, "message", func(next *State) {
			if next.Active != nil && next.Active.ChatID == chatID {
				next.Active.Messages = append(next.Active.Messages, msg)
			}
			for i := range next.Chats {
				if next.Chats[i].ID == chatID {
					chat := next.Chats[i].Chat
					chat.UpdatedAt = msg.Timestamp
					next.Chats[i] = views.Summarize(chat, append(slices.Clone(next.Chats[i].Messages), msg))
				}
			}
			views.SortChats(next.Chats)
		})
		return msg, nil
	}

	msg, err := s.svc.SaveMessage(ctx, chatID, lifecycle.MessageInput{Sender: enums.SenderRoleLocal, Text: text})
	if err != nil {
		return models.Message{}, err
	}
	summary, err := s.svc.Views().GetChatSummary(ctx, chatID)
	if err != nil {
		s.logg.Error(ctx, "reload thread after send", err)
	} else {
		thread := threadFromSummary(summary)
		s.commit(st.Generation, "message", func(next *State) {
			if next.Active != nil && next.Active.ChatID == chatID {
				next.Active = thread
			}
		})
	}
	s.RefreshChats(ctx)
	return msg, nil
}

// SelectChat makes chatID the active thread, reloading its messages when the
// store is reachable.
func (s *Session) SelectChat(ctx context.Context, chatID string) (Thread, error) {
	st := s.Snapshot()
	if st.User == nil {
		return Thread{}, errSignedOut()
	}
	var cached *views.ChatSummary
	for i := range st.Chats {
		if st.Chats[i].ID == chatID {
			cached = &st.Chats[i]
			break
		}
	}
	if cached == nil {
		if st.Active != nil && st.Active.ChatID == chatID {
			return *st.Active, nil
		}
		return Thread{}, pkgerrors.New(pkgerrors.CodeNotFound, "chat not found").
			WithDetails(map[string]any{"chat_id": chatID})
	}

	thread := threadFromSummary(*cached)
	if s.svc != nil {
		fresh, err := s.svc.Views().GetChatSummary(ctx, chatID)
		if err != nil {
			s.logg.Error(s.logg.WithChatID(ctx, chatID), "reload chat", err)
		} else {
			thread = threadFromSummary(fresh)
		}
	}
	s.commit(st.Generation, "select_chat", func(next *State) {
		next.Active = thread
	})
	return *thread, nil
}

// RefreshChats reloads the chat list. Failures are logged and the previous
// list is kept. Only the newest refresh may publish its result.
func (s *Session) RefreshChats(ctx context.Context) {
	st := s.Snapshot()
	if s.svc == nil || st.User == nil {
		return
	}
	ticket := s.chatGen.Add(1)
	chats, err := s.svc.Views().GetUserChats(ctx, st.User.ID)
	if err != nil {
		s.logg.Error(s.logg.WithUserID(ctx, st.User.ID), "refresh chats", err)
		return
	}
	stale := false
	s.commit(st.Generation, "chats", func(next *State) {
		if s.chatGen.Load() != ticket {
			stale = true
			return
		}
		next.Chats = chats
	})
	if stale {
		s.metrics.IncDiscarded("chats")
	}
}
