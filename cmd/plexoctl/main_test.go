package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/plexo-core/internal/lifecycle"
	"github.com/angelmondragon/plexo-core/pkg/db/models"
	"github.com/angelmondragon/plexo-core/pkg/enums"
)

func runCtl(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func seed(t *testing.T, dbPath string) (models.User, models.Chat) {
	t.Helper()
	t.Setenv("PLEXO_ARGON_MEMORY_KB", "64")
	t.Setenv("PLEXO_ARGON_TIME", "1")
	t.Setenv("PLEXO_ARGON_PARALLELISM", "1")

	opts := &rootOptions{dbPath: dbPath, driver: "sqlite", logLevel: "error"}
	var (
		user models.User
		chat models.Chat
	)
	err := opts.withService(newRootCmd(), func(ctx context.Context, svc *lifecycle.Service) error {
		var err error
		user, err = svc.RegisterUser(ctx, lifecycle.RegisterInput{Name: "Анна", Email: "anna@plexo.ai", Password: "pw"})
		if err != nil {
			return err
		}
		item, err := svc.SaveItem(ctx, user.ID, lifecycle.ItemDraft{Title: "Vintage Lamp", Category: "Home"})
		if err != nil {
			return err
		}
		if _, err := svc.SaveItem(ctx, user.ID, lifecycle.ItemDraft{Title: "Camera", Category: "Photo"}); err != nil {
			return err
		}
		if _, err := svc.ListItemOnMarket(ctx, item.ID, models.SellerSnapshot{ID: user.ID, Name: user.Name, Rating: user.Rating}); err != nil {
			return err
		}
		chat, _, err = svc.GetOrCreateChat(ctx, user.ID, "contact-1", lifecycle.ContactInfo{Name: "Никита"}, nil)
		if err != nil {
			return err
		}
		_, err = svc.SaveMessage(ctx, chat.ID, lifecycle.MessageInput{Text: "hello there", Sender: enums.SenderRoleLocal})
		return err
	})
	require.NoError(t, err)
	return user, chat
}

func TestPlexoctlInspectsStore(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "plexo.db")
	user, chat := seed(t, dbPath)
	base := []string{"--db-path", dbPath, "--driver", "sqlite", "--log-level", "error"}

	out, err := runCtl(t, append(base, "users")...)
	require.NoError(t, err)
	require.Contains(t, out, "anna@plexo.ai")

	out, err = runCtl(t, append(base, "inventory", user.ID)...)
	require.NoError(t, err)
	require.Contains(t, out, "Camera")
	require.NotContains(t, out, "Vintage Lamp")

	out, err = runCtl(t, append(base, "inventory", user.ID, "--all")...)
	require.NoError(t, err)
	require.Contains(t, out, "Vintage Lamp")

	out, err = runCtl(t, append(base, "market", "--json")...)
	require.NoError(t, err)
	require.Contains(t, out, `"title": "Vintage Lamp"`)

	out, err = runCtl(t, append(base, "chats", user.ID)...)
	require.NoError(t, err)
	require.Contains(t, out, "Никита")

	out, err = runCtl(t, append(base, "messages", chat.ID)...)
	require.NoError(t, err)
	require.Contains(t, out, "hello there")
}

func TestPlexoctlResetNeedsConfirmation(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "plexo.db")
	seed(t, dbPath)
	base := []string{"--db-path", dbPath, "--driver", "sqlite", "--log-level", "error"}

	_, err := runCtl(t, append(base, "reset")...)
	require.Error(t, err)
	require.Contains(t, err.Error(), "--yes")

	out, err := runCtl(t, append(base, "reset", "--yes")...)
	require.NoError(t, err)
	require.Equal(t, "store cleared", strings.TrimSpace(out))

	out, err = runCtl(t, append(base, "users", "--json")...)
	require.NoError(t, err)
	require.Equal(t, "[]", strings.TrimSpace(out))
}
