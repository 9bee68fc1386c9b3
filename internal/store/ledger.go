package store

import (
	"context"
	"encoding/json"
	"fmt"

	"soulcast/internal/quota"
)

// LedgerKey is the kv key holding the quota ledger record.
const LedgerKey = "quota.ledger"

// LedgerStore adapts Store to quota.Persister.
type LedgerStore struct {
	store *Store
}

// NewLedgerStore wraps s for ledger persistence.
func NewLedgerStore(s *Store) *LedgerStore {
	return &LedgerStore{store: s}
}

// LoadLedger reads and decodes the ledger record. An undecodable record is an error
// so the caller falls back to defaults.
func (l *LedgerStore) LoadLedger(ctx context.Context) (quota.State, bool, error) {
	raw, ok, err := l.store.Get(ctx, LedgerKey)
	if err != nil || !ok {
		return quota.State{}, false, err
	}
	var state quota.State
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		return quota.State{}, false, fmt.Errorf("decode ledger record: %w", err)
	}
	return state, true, nil
}

// SaveLedger encodes and writes the ledger record.
func (l *LedgerStore) SaveLedger(ctx context.Context, state quota.State) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode ledger record: %w", err)
	}
	return l.store.Put(ctx, LedgerKey, string(data))
}
