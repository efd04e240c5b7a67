package storage

import (
	"path/filepath"
	"testing"

	"github.com/duskchat/dusk-node/internal/identity"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dusk.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestHasIdentityFalseInitially(t *testing.T) {
	s := openTestStore(t)
	has, err := s.HasIdentity()
	if err != nil {
		t.Fatalf("has identity: %v", err)
	}
	if has {
		t.Fatal("expected no identity in a fresh store")
	}
	if _, err := s.LoadKeypair(); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSaveLoadKeypair(t *testing.T) {
	s := openTestStore(t)
	if err := s.SaveKeypair([]byte("fake-key-bytes")); err != nil {
		t.Fatalf("save keypair: %v", err)
	}
	has, err := s.HasIdentity()
	if err != nil || !has {
		t.Fatalf("expected identity present, has=%v err=%v", has, err)
	}
	data, err := s.LoadKeypair()
	if err != nil {
		t.Fatalf("load keypair: %v", err)
	}
	if string(data) != "fake-key-bytes" {
		t.Fatalf("unexpected keypair bytes: %q", data)
	}

	// Saving again replaces rather than erroring.
	if err := s.SaveKeypair([]byte("rotated")); err != nil {
		t.Fatalf("re-save keypair: %v", err)
	}
	data, _ = s.LoadKeypair()
	if string(data) != "rotated" {
		t.Fatalf("expected rotated keypair, got %q", data)
	}
}

func TestSaveLoadProfile(t *testing.T) {
	s := openTestStore(t)
	p := identity.Profile{DisplayName: "Ada", Bio: "hacker"}
	if err := s.SaveProfile(p); err != nil {
		t.Fatalf("save profile: %v", err)
	}
	got, err := s.LoadProfile()
	if err != nil {
		t.Fatalf("load profile: %v", err)
	}
	if got != p {
		t.Fatalf("unexpected profile: %+v", got)
	}
}

func TestLoadSettingsDefaultsWhenAbsent(t *testing.T) {
	s := openTestStore(t)
	settings, err := s.LoadSettings()
	if err != nil {
		t.Fatalf("load settings: %v", err)
	}
	if settings.Status != "online" || settings.FontSize == 0 {
		t.Fatalf("expected defaults, got %+v", settings)
	}
}

func TestSaveLoadSettingsRoundTrip(t *testing.T) {
	s := openTestStore(t)
	settings, _ := s.LoadSettings()
	settings.DisplayName = "Ada"
	settings.Status = "dnd"
	if err := s.SaveSettings(settings); err != nil {
		t.Fatalf("save settings: %v", err)
	}
	got, err := s.LoadSettings()
	if err != nil {
		t.Fatalf("load settings: %v", err)
	}
	if got.DisplayName != "Ada" || got.Status != "dnd" {
		t.Fatalf("unexpected settings: %+v", got)
	}
}

func TestWipePreservesLegacyMigratedMarker(t *testing.T) {
	s := openTestStore(t)
	if err := s.setLegacyMigrated(); err != nil {
		t.Fatalf("set legacy migrated: %v", err)
	}
	if err := s.SaveKeypair([]byte("k")); err != nil {
		t.Fatalf("save keypair: %v", err)
	}
	if err := s.Wipe(); err != nil {
		t.Fatalf("wipe: %v", err)
	}
	has, err := s.HasIdentity()
	if err != nil || has {
		t.Fatalf("expected no identity after wipe, has=%v err=%v", has, err)
	}
	migrated, err := s.IsLegacyMigrated()
	if err != nil {
		t.Fatalf("is legacy migrated: %v", err)
	}
	if !migrated {
		t.Fatal("expected legacy_migrated marker to survive wipe")
	}
}
