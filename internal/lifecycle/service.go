// Package lifecycle owns every state transition of persisted records. Each
// operation runs inside one storage transaction.
package lifecycle

import (
	"context"
	"crypto/rand"
	"sync"
	"time"

	"github.com/angelmondragon/plexo-core/internal/store"
	"github.com/angelmondragon/plexo-core/internal/views"
	"github.com/angelmondragon/plexo-core/pkg/config"
	pkgerrors "github.com/angelmondragon/plexo-core/pkg/errors"
	"github.com/angelmondragon/plexo-core/pkg/logger"
	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// DefaultRating is assigned to newly registered users.
const DefaultRating = 4.8

// Params packages the dependencies of the lifecycle service.
type Params struct {
	Engine        *store.Engine
	Password      config.PasswordConfig
	DefaultRating float64
	Logger        *logger.Logger
}

type Service struct {
	engine        *store.Engine
	views         *views.Views
	password      config.PasswordConfig
	defaultRating float64
	logg          *logger.Logger

	newID     func() string
	entropyMu sync.Mutex
	entropy   *ulid.MonotonicEntropy
}

func New(params Params) (*Service, error) {
	if params.Engine == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "storage engine required")
	}
	rating := params.DefaultRating
	if rating <= 0 {
		rating = DefaultRating
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &Service{
		engine:        params.Engine,
		views:         views.New(params.Engine),
		password:      params.Password,
		defaultRating: rating,
		logg:          logg,
		newID:         func() string { return uuid.NewString() },
		entropy:       ulid.Monotonic(rand.Reader, 0),
	}, nil
}

// Views exposes the read layer over the same engine.
func (s *Service) Views() *views.Views {
	return s.views
}

// Ping reports whether the storage engine is reachable.
func (s *Service) Ping(ctx context.Context) error {
	return s.engine.Ping(ctx)
}

// ClearAll empties every collection.
func (s *Service) ClearAll(ctx context.Context) error {
	if err := s.engine.ClearAll(ctx); err != nil {
		return err
	}
	s.logg.Warn(ctx, "all collections cleared")
	return nil
}

func (s *Service) messageID(at time.Time) string {
	s.entropyMu.Lock()
	defer s.entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(at), s.entropy).String()
}

func (s *Service) now() time.Time {
	return s.engine.Now()
}

// Close releases the storage engine.
func (s *Service) Close() error {
	return s.engine.Close()
}
