// Package testrig contains shared fixtures for package tests.
package testrig

import (
	"context"
	"sync"
	"testing"

	"github.com/voicewarden/voicewarden/setup/config"
	"github.com/voicewarden/voicewarden/statestore/storage"
	"github.com/voicewarden/voicewarden/statestore/types"
)

// CreateConfig returns a usable configuration with throwaway storage paths.
func CreateConfig(t *testing.T) *config.Warden {
	t.Helper()
	var cfg config.Warden
	cfg.Defaults(true)
	cfg.Global.AccessToken = "test-token"
	cfg.Global.JetStream.InMemory = true
	cfg.Global.JetStream.StoragePath = config.Path(t.TempDir())
	cfg.Global.DatabaseOptions.ConnectionString = config.DataSource("file:" + t.TempDir() + "/test.db")
	return &cfg
}

// InMemoryDB is a storage.Database that lives entirely in memory, for tests
// that need a working state store without sqlite.
type InMemoryDB struct {
	mu         sync.Mutex
	ownerships map[string]*types.RoomOwnership
	members    map[string]*types.MemberModerationConfig

	// SaveCalls counts document writes across both documents.
	SaveCalls int
}

func NewInMemoryDB() *InMemoryDB {
	return &InMemoryDB{
		ownerships: map[string]*types.RoomOwnership{},
		members:    map[string]*types.MemberModerationConfig{},
	}
}

var _ storage.Database = &InMemoryDB{}

func (d *InMemoryDB) LoadOwnerships(_ context.Context) (map[string]*types.RoomOwnership, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make(map[string]*types.RoomOwnership, len(d.ownerships))
	for k, v := range d.ownerships {
		copied := *v
		out[k] = &copied
	}
	return out, nil
}

func (d *InMemoryDB) LoadMemberConfigs(_ context.Context) (map[string]*types.MemberModerationConfig, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make(map[string]*types.MemberModerationConfig, len(d.members))
	for k, v := range d.members {
		out[k] = v.Copy()
	}
	return out, nil
}

func (d *InMemoryDB) SaveOwnerships(_ context.Context, ownerships map[string]*types.RoomOwnership) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ownerships = ownerships
	d.SaveCalls++
	return nil
}

func (d *InMemoryDB) SaveMemberConfigs(_ context.Context, configs map[string]*types.MemberModerationConfig) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.members = configs
	d.SaveCalls++
	return nil
}

// Saves returns the number of document writes so far.
func (d *InMemoryDB) Saves() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.SaveCalls
}
