package main

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/maidsafe-archive/MaidSafe-Drive-sub001/internal/identity"
)

// state holds the identities and keys a dittovfsd process needs to
// re-Attach to an already-bootstrapped store on restart, instead of
// running Bootstrap again and orphaning the previous zone layout.
//
// This is process bookkeeping, not core vfscore state: the Directory
// Handler itself has no notion of "where was I last run", only of the
// rootParentID it's given.
type state struct {
	RootParentID identity.Identity `json:"root_parent_id"`
	OwnerKey     []byte            `json:"owner_key"`
	GroupKey     []byte            `json:"group_key"`
	SigningSeed  []byte            `json:"signing_seed"`
}

func statePath(configDir string) string {
	return filepath.Join(configDir, "state.json")
}

func loadState(path string) (*state, bool, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read state file: %w", err)
	}
	var st state
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, false, fmt.Errorf("parse state file: %w", err)
	}
	return &st, true, nil
}

func saveState(path string, st *state) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}

// newState generates a fresh signing key and the two zone symmetric
// keys for a first run. RootParentID is filled in by the caller once
// Bootstrap returns it.
func newState() (*state, ed25519.PrivateKey, error) {
	_, signingKey, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, nil, fmt.Errorf("generate signing key: %w", err)
	}
	ownerKey := make([]byte, 32)
	if _, err := rand.Read(ownerKey); err != nil {
		return nil, nil, fmt.Errorf("generate owner key: %w", err)
	}
	groupKey := make([]byte, 32)
	if _, err := rand.Read(groupKey); err != nil {
		return nil, nil, fmt.Errorf("generate group key: %w", err)
	}
	return &state{
		OwnerKey:    ownerKey,
		GroupKey:    groupKey,
		SigningSeed: []byte(signingKey.Seed()),
	}, signingKey, nil
}

func (st *state) signingKey() ed25519.PrivateKey {
	return ed25519.NewKeyFromSeed(st.SigningSeed)
}
