package controllers

import (
	"context"
	"net/http"

	"github.com/angelmondragon/plexo-core/api/responses"
	"github.com/angelmondragon/plexo-core/internal/lifecycle"
	"github.com/angelmondragon/plexo-core/internal/session"
	"github.com/angelmondragon/plexo-core/pkg/db/models"
	"github.com/angelmondragon/plexo-core/pkg/enums"
	"github.com/angelmondragon/plexo-core/pkg/types"
)

// ModeHeader carries the session mode on every bridge response.
const ModeHeader = "X-Plexo-Mode"

// Session is the reconciliation surface the bridge drives.
type Session interface {
	Mode() enums.SessionMode
	Snapshot() session.State
	Start(ctx context.Context) error

	Register(ctx context.Context, in lifecycle.RegisterInput) (models.User, error)
	Login(ctx context.Context, email, password string) (models.User, error)
	Logout(ctx context.Context)
	UpdateProfile(ctx context.Context, update lifecycle.ProfileUpdate) (models.User, error)

	SaveItem(ctx context.Context, draft lifecycle.ItemDraft) (models.Item, error)
	UpdateItem(ctx context.Context, itemID string, update lifecycle.ItemUpdate) (models.Item, error)
	DeleteItem(ctx context.Context, itemID string) error
	ListItem(ctx context.Context, itemID string) (models.Item, error)
	BuyItem(ctx context.Context, itemID string) (session.SavedItem, error)
	RemoveSaved(ctx context.Context, savedID string) error

	ContactSeller(ctx context.Context, itemID string) (session.Thread, error)
	SendMessage(ctx context.Context, text string) (models.Message, error)
	SelectChat(ctx context.Context, chatID string) (session.Thread, error)
	RefreshChats(ctx context.Context)
}

// writeState responds with data and the meta block of the session state the
// call left behind.
func writeState(w http.ResponseWriter, sess Session, status int, data any) {
	st := sess.Snapshot()
	w.Header().Set(ModeHeader, st.Mode.String())
	responses.WriteSuccessMeta(w, status, data, types.ResponseMeta{
		Mode:       st.Mode.String(),
		Generation: st.Generation,
	})
}
