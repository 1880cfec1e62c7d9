// Package storetest opens throwaway in-memory engines for package tests.
package storetest

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/angelmondragon/plexo-core/internal/store"
	"github.com/angelmondragon/plexo-core/pkg/config"
)

var seq atomic.Int64

// Config returns a sqlite config pointing at a private in-memory database.
func Config(t testing.TB) config.DBConfig {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	return config.DBConfig{
		Driver:       config.DBDriverSQLite,
		DSN:          fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, seq.Add(1)),
		OpenAttempts: 1,
		OpenBackoff:  time.Millisecond,
		AutoMigrate:  true,
	}
}

// NewEngine returns a migrated engine that is closed when the test ends.
func NewEngine(t testing.TB) *store.Engine {
	t.Helper()
	engine, err := store.Init(context.Background(), Config(t), nil, nil)
	if err != nil {
		t.Fatalf("init store: %v", err)
	}
	t.Cleanup(func() { _ = engine.Close() })
	return engine
}
