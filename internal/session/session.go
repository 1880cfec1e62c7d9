// Package session keeps the in-memory mirror that the rendering layer reads.
// It reconciles user commands against the store and falls back to ephemeral
// operation when the store is unreachable.
package session

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/angelmondragon/plexo-core/internal/lifecycle"
	"github.com/angelmondragon/plexo-core/internal/views"
	"github.com/angelmondragon/plexo-core/pkg/config"
	"github.com/angelmondragon/plexo-core/pkg/db/models"
	"github.com/angelmondragon/plexo-core/pkg/enums"
	pkgerrors "github.com/angelmondragon/plexo-core/pkg/errors"
	"github.com/angelmondragon/plexo-core/pkg/logger"
	"github.com/angelmondragon/plexo-core/pkg/metrics"
	"github.com/google/uuid"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

// Params packages the dependencies of a Session. A nil Service runs the
// session in ephemeral mode.
type Params struct {
	Service    *lifecycle.Service
	Identity   IdentityStore
	Fallback   *Fallback
	Config     config.SessionConfig
	RateLimit  config.AuthRateLimitConfig
	Metrics    *metrics.SessionMetrics
	Logger     *logger.Logger
	Synthesize Synthesizer
	Now        func() time.Time
}

type Session struct {
	svc        *lifecycle.Service
	identity   IdentityStore
	limiter    LoginLimiter
	fallback   *Fallback
	cfg        config.SessionConfig
	rateLimit  config.AuthRateLimitConfig
	metrics    *metrics.SessionMetrics
	logg       *logger.Logger
	synthesize Synthesizer
	now        func() time.Time

	mu      sync.Mutex
	state   State
	chatGen atomic.Uint64

	closeOnce sync.Once
	closeErr  error
}

func New(p Params) (*Session, error) {
	fb := p.Fallback
	if fb == nil {
		loaded, err := LoadFallback(p.Config.FallbackFile)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load fallback content")
		}
		fb = loaded
	}
	identity := p.Identity
	if identity == nil {
		identity = NewMemoryIdentity()
	}
	limiter, _ := identity.(LoginLimiter)
	logg := p.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	synth := p.Synthesize
	if synth == nil {
		synth = SynthesizeListing
	}
	now := p.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	cfg := p.Config
	if cfg.DefaultRating <= 0 {
		cfg.DefaultRating = lifecycle.DefaultRating
	}

	s := &Session{
		svc:        p.Service,
		identity:   identity,
		limiter:    limiter,
		fallback:   fb,
		cfg:        cfg,
		rateLimit:  p.RateLimit,
		metrics:    p.Metrics,
		logg:       logg,
		synthesize: synth,
		now:        now,
	}
	s.state = s.anonymous()
	return s, nil
}

// Mode reports whether the session is backed by the store.
func (s *Session) Mode() enums.SessionMode {
	if s.svc == nil {
		return enums.SessionModeEphemeral
	}
	return enums.SessionModePersistent
}

// Snapshot returns the current state. The returned value must not be modified.
func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Start restores the remembered user, if any, and hydrates the mirror from
// the store. A missing or stale identity leaves the session anonymous.
func (s *Session) Start(ctx context.Context) error {
	if s.svc == nil {
		s.logg.Warn(ctx, "storage unavailable, session running in ephemeral mode")
		return nil
	}
	gen := s.Snapshot().Generation

	userID, err := s.identity.CurrentUser(ctx)
	if err != nil {
		s.logg.Error(ctx, "read session identity", err)
		return nil
	}
	if userID == "" {
		return nil
	}

	user, err := s.svc.Views().GetUser(ctx, userID)
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			s.logg.Warn(s.logg.WithUserID(ctx, userID), "remembered user no longer exists")
			s.clearIdentity(ctx)
			return nil
		}
		return err
	}
	next, err := s.hydrate(ctx, user)
	if err != nil {
		return err
	}
	if s.swapIdentity(gen, "start", next) {
		s.logg.Info(s.logg.WithUserID(ctx, user.ID), "session restored")
	}
	return nil
}

// Register creates an account and signs it in. In ephemeral mode the account
// exists only in memory.
func (s *Session) Register(ctx context.Context, in lifecycle.RegisterInput) (models.User, error) {
	gen := s.Snapshot().Generation

	var user models.User
	if s.svc == nil {
		prepared, interest, err := in.Prepare()
		if err != nil {
			return models.User{}, err
		}
		now := s.now()
		user = models.User{
			ID:        uuid.NewString(),
			Email:     prepared.Email,
			Name:      prepared.Name,
			Bio:       prepared.Bio,
			Interest:  interest,
			Avatar:    prepared.Avatar,
			Rating:    s.cfg.DefaultRating,
			CreatedAt: now,
			UpdatedAt: now,
		}
	} else {
		created, err := s.svc.RegisterUser(ctx, in)
		if err != nil {
			return models.User{}, err
		}
		user = created
	}

	market := s.demoMarket()
	if s.svc != nil {
		loaded, err := s.loadMarket(ctx)
		if err != nil {
			s.logg.Error(ctx, "load market after register", err)
		} else {
			market = loaded
		}
	}

	u := user
	next := State{User: &u, Market: market}
	if s.swapIdentity(gen, "register", next) {
		s.rememberIdentity(ctx, user.ID)
	}
	return user, nil
}

// Login signs in by email and password. In ephemeral mode it signs in the
// demo account with demo content.
func (s *Session) Login(ctx context.Context, email, password string) (models.User, error) {
	email = lifecycle.NormalizeEmail(email)
	if email == "" {
		return models.User{}, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	if err := s.allowLogin(ctx, email); err != nil {
		return models.User{}, err
	}
	gen := s.Snapshot().Generation

	if s.svc == nil {
		if !s.cfg.FallbackEnabled {
			return models.User{}, pkgerrors.New(pkgerrors.CodeStorageUnavailable, "storage is unavailable")
		}
		now := s.now()
		demo := s.fallback.DemoUser(now)
		next := State{
			User:      &demo,
			Inventory: s.fallback.DemoInventory(demo.ID, now),
			Market:    s.fallback.DemoMarket(now),
			Chats:     s.fallback.DemoChats(demo.ID, now),
		}
		s.swapIdentity(gen, "login", next)
		s.logg.Info(s.logg.WithUserID(ctx, demo.ID), "demo user signed in")
		return demo, nil
	}

	user, err := s.svc.Authenticate(ctx, email, password)
	if err != nil {
		return models.User{}, err
	}
	next, err := s.hydrate(ctx, user)
	if err != nil {
		return models.User{}, err
	}
	if s.swapIdentity(gen, "login", next) {
		s.rememberIdentity(ctx, user.ID)
		s.logg.Info(s.logg.WithUserID(ctx, user.ID), "user signed in")
	}
	return user, nil
}

// Logout forgets the identity and resets the mirror to the anonymous default.
func (s *Session) Logout(ctx context.Context) {
	s.mu.Lock()
	next := s.anonymous()
	next.Generation = s.state.Generation + 1
	s.state = next
	s.mu.Unlock()
	s.clearIdentity(ctx)
}

// SaveItem adds a captured item to the user's inventory.
func (s *Session) SaveItem(ctx context.Context, draft lifecycle.ItemDraft) (models.Item, error) {
	ctx = context.WithoutCancel(ctx)
	st := s.Snapshot()
	if st.User == nil {
		return models.Item{}, errSignedOut()
	}

	var item models.Item
	if s.svc == nil {
		item = *draft.Item(uuid.NewString(), st.User.ID)
		item.Stamp(s.now())
	} else {
		saved, err := s.svc.SaveItem(ctx, st.User.ID, draft)
		if err != nil {
			return models.Item{}, err
		}
		item = saved
	}

	s.commit(st.Generation, "save_item", func(next *State) {
		next.Inventory = append([]models.Item{item}, next.Inventory...)
	})
	return item, nil
}

// UpdateItem edits an item in the inventory.
func (s *Session) UpdateItem(ctx context.Context, itemID string, update lifecycle.ItemUpdate) (models.Item, error) {
	ctx = context.WithoutCancel(ctx)
	st := s.Snapshot()
	current, err := s.ownedItem(st, itemID)
	if err != nil {
		return models.Item{}, err
	}

	item := current
	if s.svc == nil {
		update.Apply(&item)
		item.UpdatedAt = s.now()
	} else {
		updated, err := s.svc.UpdateItem(ctx, itemID, update)
		if err != nil {
			return models.Item{}, err
		}
		item = updated
	}

	s.commit(st.Generation, "update_item", func(next *State) {
		replaceItem(next.Inventory, item)
	})
	return item, nil
}

// DeleteItem removes an item from the inventory. Deleting an unknown item is
// not an error.
func (s *Session) DeleteItem(ctx context.Context, itemID string) error {
	ctx = context.WithoutCancel(ctx)
	st := s.Snapshot()
	if st.User == nil {
		return errSignedOut()
	}
	if st.Listing(itemID) {
		return errListingInFlight(itemID)
	}
	if s.svc != nil {
		if err := s.svc.DeleteItem(ctx, itemID); err != nil {
			return err
		}
	}
	s.commit(st.Generation, "delete_item", func(next *State) {
		next.Inventory = removeItem(next.Inventory, itemID)
	})
	return nil
}

// BuyItem removes a market item and keeps a copy in the user's saved items.
// Listings the store does not know about (demo or ephemeral) are bought in
// memory only.
func (s *Session) BuyItem(ctx context.Context, itemID string) (SavedItem, error) {
	ctx = context.WithoutCancel(ctx)
	st := s.Snapshot()
	if st.User == nil {
		return SavedItem{}, errSignedOut()
	}
	target, ok := findItem(st.Market, itemID)
	if !ok {
		return SavedItem{}, pkgerrors.New(pkgerrors.CodeNotFound, "item is not on the market").
			WithDetails(map[string]any{"item_id": itemID})
	}
	if target.Seller.ID != "" && target.Seller.ID == st.User.ID {
		return SavedItem{}, pkgerrors.New(pkgerrors.CodeValidation, "cannot buy your own listing")
	}

	if s.svc != nil && !target.Ephemeral {
		bought, err := s.svc.BuyItem(ctx, itemID)
		switch {
		case err == nil:
			target = bought
		case pkgerrors.IsCode(err, pkgerrors.CodeNotFound):
			s.logg.Debug(s.logg.WithItemID(ctx, itemID), "listing not persisted, buying in memory")
		default:
			return SavedItem{}, err
		}
	}

	now := s.now()
	saved := SavedItem{
		Item:      target,
		SavedFrom: target.Seller,
		SavedAt:   now,
	}
	saved.ID = uuid.NewString()
	saved.OwnerUserID = st.User.ID
	saved.Listed = false
	saved.ListedAt = nil
	saved.Seller = models.SellerSnapshot{}
	saved.Ephemeral = false
	saved.CreatedAt = now
	saved.UpdatedAt = now

	s.commit(st.Generation, "buy_item", func(next *State) {
		next.Market = removeItem(next.Market, itemID)
		next.Saved = append([]SavedItem{saved}, next.Saved...)
	})
	s.logg.Info(s.logg.WithItemID(ctx, itemID), "market item bought")
	return saved, nil
}

// RemoveSaved drops a saved item.
func (s *Session) RemoveSaved(ctx context.Context, savedID string) error {
	st := s.Snapshot()
	found := false
	for _, it := range st.Saved {
		if it.ID == savedID {
			found = true
			break
		}
	}
	if !found {
		return pkgerrors.New(pkgerrors.CodeNotFound, "saved item not found").
			WithDetails(map[string]any{"item_id": savedID})
	}
	s.commit(st.Generation, "remove_saved", func(next *State) {
		kept := next.Saved[:0]
		for _, it := range next.Saved {
			if it.ID != savedID {
				kept = append(kept, it)
			}
		}
		next.Saved = kept
	})
	return nil
}

// UpdateProfile changes the signed in user's profile.
func (s *Session) UpdateProfile(ctx context.Context, update lifecycle.ProfileUpdate) (models.User, error) {
	ctx = context.WithoutCancel(ctx)
	st := s.Snapshot()
	if st.User == nil {
		return models.User{}, errSignedOut()
	}

	user := *st.User
	if s.svc == nil {
		if err := update.Validate(); err != nil {
			return models.User{}, err
		}
		update.Apply(&user)
		user.UpdatedAt = s.now()
	} else {
		updated, err := s.svc.UpdateProfile(ctx, user.ID, update)
		if err != nil {
			return models.User{}, err
		}
		user = updated
	}

	s.commit(st.Generation, "update_profile", func(next *State) {
		u := user
		next.User = &u
	})
	return user, nil
}

// Close releases the identity store and the storage engine.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = multierr.Append(s.closeErr, s.identity.Close())
		if s.svc != nil {
			s.closeErr = multierr.Append(s.closeErr, s.svc.Close())
		}
	})
	return s.closeErr
}

// commit applies fn to a copy of the state when gen is still current. Stale
// results are dropped; their store side effects have already committed.
func (s *Session) commit(gen uint64, kind string, fn func(next *State)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Generation != gen {
		s.metrics.IncDiscarded(kind)
		s.logg.Debug(context.Background(), "discarded stale "+kind+" result")
		return false
	}
	next := s.state.clone()
	fn(&next)
	s.state = next
	return true
}

// swapIdentity installs a new signed in state and starts a new generation.
func (s *Session) swapIdentity(gen uint64, kind string, next State) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Generation != gen {
		s.metrics.IncDiscarded(kind)
		return false
	}
	next.Mode = s.Mode()
	next.Generation = gen + 1
	next.InFlight = map[string]bool{}
	s.state = next.withEmptyDefaults()
	return true
}

func (s *Session) anonymous() State {
	return State{
		Mode:      s.Mode(),
		Inventory: []models.Item{},
		Market:    s.demoMarket(),
		Saved:     []SavedItem{},
		Chats:     []views.ChatSummary{},
		InFlight:  map[string]bool{},
	}
}

func (s *Session) hydrate(ctx context.Context, user models.User) (State, error) {
	var (
		inventory []models.Item
		market    []models.Item
		chats     []views.ChatSummary
	)
	v := s.svc.Views()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		inventory, err = v.GetUserInventory(gctx, user.ID)
		return err
	})
	g.Go(func() error {
		var err error
		market, err = s.loadMarket(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		chats, err = v.GetUserChats(gctx, user.ID)
		return err
	})
	if err := g.Wait(); err != nil {
		return State{}, err
	}
	u := user
	return State{User: &u, Inventory: inventory, Market: market, Chats: chats}, nil
}

// loadMarket reads the persisted market, showing the demo market while it is empty.
func (s *Session) loadMarket(ctx context.Context) ([]models.Item, error) {
	market, err := s.svc.Views().GetMarketItems(ctx)
	if err != nil {
		return nil, err
	}
	if len(market) == 0 {
		return s.demoMarket(), nil
	}
	return market, nil
}

func (s *Session) demoMarket() []models.Item {
	if !s.cfg.FallbackEnabled {
		return []models.Item{}
	}
	return s.fallback.DemoMarket(s.now())
}

func (s *Session) allowLogin(ctx context.Context, email string) error {
	if s.limiter == nil || s.rateLimit.LoginEmailLimit <= 0 {
		return nil
	}
	allowed, _, err := s.limiter.FixedWindowAllow(ctx, "login:"+email, int64(s.rateLimit.LoginEmailLimit), s.rateLimit.LoginWindow)
	if err != nil {
		s.logg.Error(ctx, "login rate limit check", err)
		return nil
	}
	if !allowed {
		return pkgerrors.New(pkgerrors.CodeRateLimit, "too many login attempts")
	}
	return nil
}

func (s *Session) rememberIdentity(ctx context.Context, userID string) {
	if err := s.identity.SetCurrentUser(ctx, userID); err != nil {
		s.logg.Error(s.logg.WithUserID(ctx, userID), "remember session identity", err)
	}
}

func (s *Session) clearIdentity(ctx context.Context) {
	if err := s.identity.ClearCurrentUser(ctx); err != nil {
		s.logg.Error(ctx, "clear session identity", err)
	}
}

func (s *Session) ownedItem(st State, itemID string) (models.Item, error) {
	if st.User == nil {
		return models.Item{}, errSignedOut()
	}
	if st.Listing(itemID) {
		return models.Item{}, errListingInFlight(itemID)
	}
	item, ok := findItem(st.Inventory, itemID)
	if !ok {
		return models.Item{}, pkgerrors.New(pkgerrors.CodeNotFound, "item is not in the inventory").
			WithDetails(map[string]any{"item_id": itemID})
	}
	return item, nil
}

func errSignedOut() error {
	return pkgerrors.New(pkgerrors.CodeUnauthorized, "sign in first")
}

func errListingInFlight(itemID string) error {
	return pkgerrors.New(pkgerrors.CodeStateConflict, "item is being listed").
		WithDetails(map[string]any{"item_id": itemID})
}
