package lifecycle

import (
	"context"
	"fmt"
	"strings"

	"github.com/angelmondragon/plexo-core/internal/store"
	"github.com/angelmondragon/plexo-core/pkg/db/models"
	"github.com/angelmondragon/plexo-core/pkg/enums"
	pkgerrors "github.com/angelmondragon/plexo-core/pkg/errors"
)

// GetOrCreateChat returns the chat between userID and contactID, creating it
// on first contact. An existing chat is returned unchanged; contact and item
// details of later calls are ignored. created reports whether this call made it.
func (s *Service) GetOrCreateChat(ctx context.Context, userID, contactID string, contact ContactInfo, linked *LinkedItem) (chat models.Chat, created bool, err error) {
	if strings.TrimSpace(userID) == "" || strings.TrimSpace(contactID) == "" {
		return models.Chat{}, false, pkgerrors.New(pkgerrors.CodeValidation, "user and contact are required")
	}
	key := store.Composite{userID, contactID}

	err = s.engine.Update(ctx, "get_or_create_chat", func(tx *store.Tx) error {
		lookupErr := tx.GetByUniqueIndex(ctx, enums.CollectionChats, store.IndexUserContactID, key, &chat)
		if lookupErr == nil {
			return nil
		}
		if !pkgerrors.IsCode(lookupErr, pkgerrors.CodeNotFound) {
			return lookupErr
		}
		chat = models.Chat{
			ID:          s.newID(),
			UserID:      userID,
			ContactID:   contactID,
			ContactName: contact.Name,
			Avatar:      contact.Avatar,
		}
		if linked != nil {
			itemID, title := linked.ID, linked.Title
			chat.ItemID = &itemID
			chat.ItemTitle = &title
		}
		created = true
		return tx.Put(ctx, &chat)
	})

	if pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
		// Another writer created the pair between our read and insert.
		var winner models.Chat
		if rerr := s.engine.GetByUniqueIndex(ctx, enums.CollectionChats, store.IndexUserContactID, key, &winner); rerr != nil {
			return models.Chat{}, false, rerr
		}
		return winner, false, nil
	}
	if err != nil {
		return models.Chat{}, false, err
	}
	if created {
		s.logg.Info(s.logg.WithChatID(s.logg.WithUserID(ctx, userID), chat.ID), "chat created")
	}
	return chat, created, nil
}

// SaveMessage appends a message to chatID and bumps the chat's UpdatedAt in
// the same transaction.
func (s *Service) SaveMessage(ctx context.Context, chatID string, in MessageInput) (models.Message, error) {
	if strings.TrimSpace(in.Text) == "" {
		return models.Message{}, pkgerrors.New(pkgerrors.CodeValidation, "message text is required")
	}
	sender := in.Sender
	if sender == "" {
		sender = enums.SenderRoleLocal
	}
	if !sender.IsValid() {
		return models.Message{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid sender")
	}

	ts := in.Timestamp
	if ts.IsZero() {
		ts = s.now()
	}
	msg := models.Message{
		ID:        in.ID,
		ChatID:    chatID,
		Sender:    sender,
		Text:      in.Text,
		Timestamp: ts,
	}
	if msg.ID == "" {
		msg.ID = s.messageID(ts)
	}

	replay := false

	err := s.engine.Update(ctx, "save_message", func(tx *store.Tx) error {
		var chat models.Chat
		if err := tx.Get(ctx, enums.CollectionChats, chatID, &chat); err != nil {
			return err
		}
		var stored models.Message
		lookupErr := tx.Get(ctx, enums.CollectionMessages, msg.ID, &stored)
		switch {
		case lookupErr == nil:
			// Stored messages never change. A matching replay returns the stored copy.
			if !sameMessage(stored, msg, !in.Timestamp.IsZero()) {
				return pkgerrors.New(pkgerrors.CodeConflict, fmt.Sprintf("message %q already exists", msg.ID))
			}
			msg = stored
			replay = true
			return nil
		case !pkgerrors.IsCode(lookupErr, pkgerrors.CodeNotFound):
			return lookupErr
		}
		if err := tx.Put(ctx, &msg); err != nil {
			return err
		}
		return tx.Put(ctx, &chat)
	})
	if err != nil {
		return models.Message{}, err
	}
	if replay {
		s.logg.Debug(s.logg.WithChatID(ctx, chatID), "message replay ignored")
	}
	return msg, nil
}

func sameMessage(stored, in models.Message, checkTime bool) bool {
	if stored.ChatID != in.ChatID || stored.Sender != in.Sender || stored.Text != in.Text {
		return false
	}
	return !checkTime || stored.Timestamp.Equal(in.Timestamp)
}
