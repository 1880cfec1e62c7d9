package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/plexo-core/api/responses"
	"github.com/angelmondragon/plexo-core/api/validators"
	"github.com/angelmondragon/plexo-core/pkg/logger"
)

type sendMessageRequest struct {
	Text string `json:"text" validate:"required,max=4000"`
}

func ChatsList(sess Session) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeState(w, sess, http.StatusOK, sess.Snapshot().Chats)
	}
}

// ChatsRefresh reloads the chat list. Failures are logged by the session and
// the previous list is returned.
func ChatsRefresh(sess Session) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess.RefreshChats(r.Context())
		writeState(w, sess, http.StatusOK, sess.Snapshot().Chats)
	}
}

// MarketContact opens (or reuses) a thread with the seller of a listing.
func MarketContact(sess Session, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := logg.WithItemID(r.Context(), chi.URLParam(r, "itemId"))
		thread, err := sess.ContactSeller(ctx, chi.URLParam(r, "itemId"))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		writeState(w, sess, http.StatusOK, thread)
	}
}

func ChatSelect(sess Session, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := logg.WithChatID(r.Context(), chi.URLParam(r, "chatId"))
		thread, err := sess.SelectChat(ctx, chi.URLParam(r, "chatId"))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		writeState(w, sess, http.StatusOK, thread)
	}
}

func ActiveThread(sess Session) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeState(w, sess, http.StatusOK, sess.Snapshot().Active)
	}
}

// ActiveThreadSend appends a message to the open thread.
func ActiveThreadSend(sess Session, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req sendMessageRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		msg, err := sess.SendMessage(r.Context(), req.Text)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeState(w, sess, http.StatusCreated, msg)
	}
}
