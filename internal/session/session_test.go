package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/angelmondragon/plexo-core/internal/lifecycle"
	"github.com/angelmondragon/plexo-core/internal/store/storetest"
	"github.com/angelmondragon/plexo-core/pkg/config"
	"github.com/angelmondragon/plexo-core/pkg/db/models"
	"github.com/angelmondragon/plexo-core/pkg/enums"
	pkgerrors "github.com/angelmondragon/plexo-core/pkg/errors"
	"github.com/angelmondragon/plexo-core/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var fastArgon = config.PasswordConfig{
	ArgonMemoryKB:    64,
	ArgonTime:        1,
	ArgonParallelism: 1,
	ArgonSaltLen:     16,
	ArgonKeyLen:      32,
}

var testSessionConfig = config.SessionConfig{
	DefaultRating:   4.8,
	Greeting:        "Hi! Is this still available?",
	FallbackEnabled: true,
}

func newService(t *testing.T) *lifecycle.Service {
	t.Helper()
	svc, err := lifecycle.New(lifecycle.Params{Engine: storetest.NewEngine(t), Password: fastArgon})
	require.NoError(t, err)
	return svc
}

func newSession(t *testing.T, p Params) *Session {
	t.Helper()
	if p.Config == (config.SessionConfig{}) {
		p.Config = testSessionConfig
	}
	if p.Metrics == nil {
		p.Metrics = metrics.NewSessionMetrics(prometheus.NewRegistry())
	}
	s, err := New(p)
	require.NoError(t, err)
	return s
}

func register(t *testing.T, s *Session, email string) models.User {
	t.Helper()
	user, err := s.Register(context.Background(), lifecycle.RegisterInput{
		Name:     "Анна",
		Email:    email,
		Password: "correct horse",
	})
	require.NoError(t, err)
	return user
}

func sneaker() lifecycle.ItemDraft {
	return lifecycle.ItemDraft{
		Title:        "Minimal Sneaker",
		Category:     "Shoes",
		Authenticity: 90,
		Price:        decimal.NewNullDecimal(decimal.NewFromInt(240)),
		Image:        "https://img.example/sneaker.jpg",
	}
}

func requireCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	require.Truef(t, pkgerrors.HasCode(err, code), "expected %s, got %v", code, err)
}

func requireExclusive(t *testing.T, st State, itemID string) {
	t.Helper()
	require.NotEqualf(t, st.InInventory(itemID), st.InMarket(itemID),
		"item %s must be in exactly one of inventory and market", itemID)
}

func TestAnonymousDefault(t *testing.T) {
	s := newSession(t, Params{})
	st := s.Snapshot()

	require.Equal(t, enums.SessionModeEphemeral, st.Mode)
	require.Nil(t, st.User)
	require.Empty(t, st.Inventory)
	require.Empty(t, st.Saved)
	require.Empty(t, st.Chats)
	require.Nil(t, st.Active)
	require.Len(t, st.Market, 2)
	require.Equal(t, "market-1", st.Market[0].ID)
}

func TestFallbackDisabledShowsEmptyMarket(t *testing.T) {
	s := newSession(t, Params{Config: config.SessionConfig{DefaultRating: 4.8}})
	require.Empty(t, s.Snapshot().Market)

	_, err := s.Login(context.Background(), "m.volkova@plexo.ai", "x")
	requireCode(t, err, pkgerrors.CodeStorageUnavailable)
}

func TestEphemeralLoginUsesDemoContent(t *testing.T) {
	s := newSession(t, Params{})
	user, err := s.Login(context.Background(), "anyone@example.com", "whatever")
	require.NoError(t, err)
	require.Equal(t, "demo-user", user.ID)

	st := s.Snapshot()
	require.Equal(t, uint64(1), st.Generation)
	require.Len(t, st.Inventory, 2)
	require.Len(t, st.Market, 2)
	require.Len(t, st.Chats, 1)
	require.Len(t, st.Chats[0].Messages, 3)
	require.Equal(t, "Кожа мягкая, см. фото.", st.Chats[0].LastMessage.Text)
}

func TestEphemeralRegisterAndItems(t *testing.T) {
	ctx := context.Background()
	s := newSession(t, Params{})

	_, err := s.SaveItem(ctx, sneaker())
	requireCode(t, err, pkgerrors.CodeUnauthorized)

	_, err = s.Register(ctx, lifecycle.RegisterInput{Name: "A", Email: "not-an-email", Password: "pw"})
	requireCode(t, err, pkgerrors.CodeValidation)

	user := register(t, s, "A@X.com")
	require.Equal(t, "a@x.com", user.Email)
	require.Equal(t, 4.8, user.Rating)

	item, err := s.SaveItem(ctx, sneaker())
	require.NoError(t, err)
	require.Equal(t, user.ID, item.OwnerUserID)
	require.True(t, s.Snapshot().InInventory(item.ID))

	title := "Sneaker v2"
	updated, err := s.UpdateItem(ctx, item.ID, lifecycle.ItemUpdate{Title: &title})
	require.NoError(t, err)
	require.Equal(t, title, updated.Title)
	require.Equal(t, title, s.Snapshot().Inventory[0].Title)

	require.NoError(t, s.DeleteItem(ctx, item.ID))
	require.NoError(t, s.DeleteItem(ctx, item.ID))
	require.False(t, s.Snapshot().InInventory(item.ID))

	_, err = s.UpdateItem(ctx, item.ID, lifecycle.ItemUpdate{Title: &title})
	requireCode(t, err, pkgerrors.CodeNotFound)

	bio := "Vintage only"
	profile, err := s.UpdateProfile(ctx, lifecycle.ProfileUpdate{Bio: &bio})
	require.NoError(t, err)
	require.Equal(t, bio, profile.Bio)
	require.Equal(t, bio, s.Snapshot().User.Bio)

	empty := " "
	_, err = s.UpdateProfile(ctx, lifecycle.ProfileUpdate{Name: &empty})
	requireCode(t, err, pkgerrors.CodeValidation)
}

func TestSnapshotsAreNotMutated(t *testing.T) {
	ctx := context.Background()
	s := newSession(t, Params{})
	_, err := s.Login(ctx, "demo@plexo.ai", "")
	require.NoError(t, err)

	before := s.Snapshot()
	firstID := before.Inventory[0].ID
	require.NoError(t, s.DeleteItem(ctx, firstID))

	require.Equal(t, firstID, before.Inventory[0].ID)
	require.Len(t, before.Inventory, 2)
	require.Len(t, s.Snapshot().Inventory, 1)
}

func TestPersistentRegisterLoginAndStart(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	identity := NewMemoryIdentity()
	s := newSession(t, Params{Service: svc, Identity: identity})
	require.Equal(t, enums.SessionModePersistent, s.Mode())
	require.NoError(t, s.Start(ctx))
	require.Nil(t, s.Snapshot().User)

	user := register(t, s, "a@x.com")
	remembered, _ := identity.CurrentUser(ctx)
	require.Equal(t, user.ID, remembered)

	st := s.Snapshot()
	require.Len(t, st.Market, 2, "empty persisted market shows the demo market")
	item, err := s.SaveItem(ctx, sneaker())
	require.NoError(t, err)

	_, err = s.Register(ctx, lifecycle.RegisterInput{Name: "B", Email: "a@x.com", Password: "pw"})
	requireCode(t, err, pkgerrors.CodeConflict)

	restarted := newSession(t, Params{Service: svc, Identity: identity})
	require.NoError(t, restarted.Start(ctx))
	st = restarted.Snapshot()
	require.NotNil(t, st.User)
	require.Equal(t, user.ID, st.User.ID)
	require.True(t, st.InInventory(item.ID))

	restarted.Logout(ctx)
	remembered, _ = identity.CurrentUser(ctx)
	require.Empty(t, remembered)

	_, err = restarted.Login(ctx, "a@x.com", "wrong")
	requireCode(t, err, pkgerrors.CodeUnauthorized)
	_, err = restarted.Login(ctx, "nobody@x.com", "wrong")
	requireCode(t, err, pkgerrors.CodeNotFound)

	_, err = restarted.Login(ctx, " A@x.com ", "correct horse")
	require.NoError(t, err)
	require.True(t, restarted.Snapshot().InInventory(item.ID))
}

func TestStartForgetsMissingUser(t *testing.T) {
	ctx := context.Background()
	identity := NewMemoryIdentity()
	require.NoError(t, identity.SetCurrentUser(ctx, "gone"))

	s := newSession(t, Params{Service: newService(t), Identity: identity})
	require.NoError(t, s.Start(ctx))
	require.Nil(t, s.Snapshot().User)
	remembered, _ := identity.CurrentUser(ctx)
	require.Empty(t, remembered)
}

func TestLogoutResetsToAnonymous(t *testing.T) {
	ctx := context.Background()
	s := newSession(t, Params{Service: newService(t)})
	register(t, s, "a@x.com")
	_, err := s.SaveItem(ctx, sneaker())
	require.NoError(t, err)
	_, err = s.ContactSeller(ctx, "market-1")
	require.NoError(t, err)
	gen := s.Snapshot().Generation

	s.Logout(ctx)
	st := s.Snapshot()
	require.Nil(t, st.User)
	require.Empty(t, st.Inventory)
	require.Empty(t, st.Saved)
	require.Empty(t, st.Chats)
	require.Nil(t, st.Active)
	require.Len(t, st.Market, 2)
	require.Equal(t, gen+1, st.Generation)
}

type limitedIdentity struct {
	*MemoryIdentity
	calls int64
}

func (l *limitedIdentity) FixedWindowAllow(_ context.Context, _ string, limit int64, _ time.Duration) (bool, int64, error) {
	l.calls++
	return l.calls <= limit, l.calls, nil
}

func TestLoginIsRateLimited(t *testing.T) {
	ctx := context.Background()
	identity := &limitedIdentity{MemoryIdentity: NewMemoryIdentity()}
	s := newSession(t, Params{
		Identity:  identity,
		RateLimit: config.AuthRateLimitConfig{LoginEmailLimit: 1, LoginWindow: time.Minute},
	})

	_, err := s.Login(ctx, "a@x.com", "pw")
	require.NoError(t, err)
	_, err = s.Login(ctx, "a@x.com", "pw")
	requireCode(t, err, pkgerrors.CodeRateLimit)
	require.Equal(t, int64(2), identity.calls)
}

func TestBuyItem(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	seller, err := svc.RegisterUser(ctx, lifecycle.RegisterInput{Name: "Никита", Email: "n@x.com", Password: "pw"})
	require.NoError(t, err)
	item, err := svc.SaveItem(ctx, seller.ID, sneaker())
	require.NoError(t, err)
	_, err = svc.ListItemOnMarket(ctx, item.ID, models.SellerSnapshot{ID: seller.ID, Name: seller.Name, Rating: 4.7})
	require.NoError(t, err)

	s := newSession(t, Params{Service: svc})
	_, err = s.BuyItem(ctx, item.ID)
	requireCode(t, err, pkgerrors.CodeUnauthorized)

	buyer := register(t, s, "b@x.com")
	require.True(t, s.Snapshot().InMarket(item.ID))

	saved, err := s.BuyItem(ctx, item.ID)
	require.NoError(t, err)
	require.NotEqual(t, item.ID, saved.ID)
	require.Equal(t, buyer.ID, saved.OwnerUserID)
	require.False(t, saved.Listed)
	require.Equal(t, "Никита", saved.SavedFrom.Name)

	st := s.Snapshot()
	require.False(t, st.InMarket(item.ID))
	require.Len(t, st.Saved, 1)
	_, err = svc.Views().GetItem(ctx, item.ID)
	requireCode(t, err, pkgerrors.CodeNotFound)

	require.NoError(t, s.RemoveSaved(ctx, saved.ID))
	require.Empty(t, s.Snapshot().Saved)
	requireCode(t, s.RemoveSaved(ctx, saved.ID), pkgerrors.CodeNotFound)
}

func TestBuyDemoListingInMemory(t *testing.T) {
	ctx := context.Background()
	s := newSession(t, Params{})
	_, err := s.Login(ctx, "demo@plexo.ai", "")
	require.NoError(t, err)

	saved, err := s.BuyItem(ctx, "market-2")
	require.NoError(t, err)
	require.Equal(t, "Alina", saved.SavedFrom.Name)
	require.Equal(t, "Oversized Sweater", saved.Title)

	st := s.Snapshot()
	require.False(t, st.InMarket("market-2"))
	require.Len(t, st.Saved, 1)

	_, err = s.BuyItem(ctx, "market-2")
	requireCode(t, err, pkgerrors.CodeNotFound)
}

func TestCannotBuyOwnListing(t *testing.T) {
	ctx := context.Background()
	s := newSession(t, Params{})
	_, err := s.Login(ctx, "demo@plexo.ai", "")
	require.NoError(t, err)
	_, err = s.ListItem(ctx, "demo-1")
	require.NoError(t, err)

	_, err = s.BuyItem(ctx, "demo-1")
	requireCode(t, err, pkgerrors.CodeValidation)
	require.True(t, s.Snapshot().InMarket("demo-1"))
}

type failingIdentity struct {
	*MemoryIdentity
	closed int
}

func (f *failingIdentity) Close() error {
	f.closed++
	return errors.New("identity close failed")
}

func TestCloseCombinesErrorsOnce(t *testing.T) {
	identity := &failingIdentity{MemoryIdentity: NewMemoryIdentity()}
	s := newSession(t, Params{Service: newService(t), Identity: identity})

	err := s.Close()
	require.ErrorContains(t, err, "identity close failed")
	require.Equal(t, err, s.Close())
	require.Equal(t, 1, identity.closed)
}
