package main

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/libp2p/go-libp2p/core/crypto"

	"github.com/duskchat/dusk-node/internal/config"
	"github.com/duskchat/dusk-node/internal/crdt"
	"github.com/duskchat/dusk-node/internal/identity"
	"github.com/duskchat/dusk-node/internal/storage"
)

// loadConfig resolves, reads, and path-normalizes the config file named by
// configFlag (or the default search locations if empty).
func loadConfig(configFlag string) (*config.NodeConfig, string, error) {
	cfgFile, err := config.FindConfigFile(configFlag)
	if err != nil {
		return nil, "", fmt.Errorf("config error: %w", err)
	}
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, "", fmt.Errorf("config error: %w", err)
	}
	config.ResolveConfigPaths(cfg, filepath.Dir(cfgFile))
	return cfg, cfgFile, nil
}

// openStoreAt opens the database at path with no legacy-import step, for
// callers (like init) that only need identity bootstrap.
func openStoreAt(path string) (*storage.Store, error) {
	return storage.Open(path)
}

// openStore opens cfg's database, running the one-shot legacy filesystem
// import first if cfg.Storage.LegacyDataDir is set.
func openStore(cfg *config.NodeConfig) (*storage.Store, error) {
	store, err := storage.Open(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	if cfg.Storage.LegacyDataDir != "" {
		if err := store.MigrateLegacy(cfg.Storage.LegacyDataDir); err != nil {
			store.Close()
			return nil, fmt.Errorf("migrate legacy data: %w", err)
		}
	}
	return store, nil
}

// loadOrCreateIdentity returns the durable identity for store, generating a
// fresh Ed25519 keypair on first run. The keypair and its derived peer ID
// never change after creation; only reset_identity wipes it.
func loadOrCreateIdentity(store *storage.Store) (*identity.Identity, bool, error) {
	data, err := store.LoadKeypair()
	switch {
	case errors.Is(err, storage.ErrNotFound):
		priv, _, genErr := crypto.GenerateKeyPair(crypto.Ed25519, -1)
		if genErr != nil {
			return nil, false, fmt.Errorf("generate keypair: %w", genErr)
		}
		marshaled, marshalErr := crypto.MarshalPrivateKey(priv)
		if marshalErr != nil {
			return nil, false, fmt.Errorf("marshal keypair: %w", marshalErr)
		}
		if saveErr := store.SaveKeypair(marshaled); saveErr != nil {
			return nil, false, fmt.Errorf("save keypair: %w", saveErr)
		}
		id, idErr := identity.New(priv)
		if idErr != nil {
			return nil, false, fmt.Errorf("derive peer id: %w", idErr)
		}
		return id, true, nil
	case err != nil:
		return nil, false, fmt.Errorf("load keypair: %w", err)
	}

	priv, err := crypto.UnmarshalPrivateKey(data)
	if err != nil {
		return nil, false, fmt.Errorf("unmarshal keypair: %w", err)
	}
	id, err := identity.New(priv)
	if err != nil {
		return nil, false, fmt.Errorf("derive peer id: %w", err)
	}
	if profile, err := store.LoadProfile(); err == nil {
		id.SetProfile(profile)
	}
	return id, false, nil
}

// loadEngine rebuilds the in-memory CRDT registry from every community
// document persisted in store.
func loadEngine(store *storage.Store) (*crdt.Engine, error) {
	engine := crdt.NewEngine(store)
	ids, err := store.ListCommunityIDs()
	if err != nil {
		return nil, fmt.Errorf("list community ids: %w", err)
	}
	for _, cid := range ids {
		data, err := store.LoadCommunityDocument(cid)
		if err != nil {
			return nil, fmt.Errorf("load community document %s: %w", cid, err)
		}
		if err := engine.InsertDoc(cid, data); err != nil {
			return nil, fmt.Errorf("insert community document %s: %w", cid, err)
		}
	}
	return engine, nil
}
