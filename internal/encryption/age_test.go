package encryption_test

import (
	"path/filepath"
	"testing"

	"netback/internal/config"
	"netback/internal/encryption"
)

func newSealer(t *testing.T) *encryption.AgeSealer {
	t.Helper()
	dir := t.TempDir()
	return encryption.NewAgeSealer(config.EncryptionConfig{
		RecipientPath: filepath.Join(dir, "netback.pub"),
		IdentityPath:  filepath.Join(dir, "netback.key"),
	})
}

func TestAgeSealer(t *testing.T) {
	t.Run("setup then seal and open roundtrip", func(t *testing.T) {
		t.Parallel()
		s := newSealer(t)

		if s.IsConfigured() {
			t.Fatal("sealer should not be configured before setup")
		}
		if err := s.Setup(); err != nil {
			t.Fatalf("setup: %v", err)
		}
		if !s.IsConfigured() {
			t.Fatal("sealer should be configured after setup")
		}

		sealed, err := s.Seal("hunter2")
		if err != nil {
			t.Fatalf("seal: %v", err)
		}
		if string(sealed) == "hunter2" {
			t.Fatal("sealed credential should not be plaintext")
		}

		plaintext, err := s.Open(sealed)
		if err != nil {
			t.Fatalf("open: %v", err)
		}
		if plaintext != "hunter2" {
			t.Errorf("roundtrip mismatch: %q", plaintext)
		}
	})

	t.Run("setup refuses to overwrite existing keys", func(t *testing.T) {
		t.Parallel()
		s := newSealer(t)

		if err := s.Setup(); err != nil {
			t.Fatalf("setup: %v", err)
		}
		if err := s.Setup(); err == nil {
			t.Fatal("expected error on second setup")
		}
	})

	t.Run("open rejects garbage", func(t *testing.T) {
		t.Parallel()
		s := newSealer(t)
		if err := s.Setup(); err != nil {
			t.Fatalf("setup: %v", err)
		}

		if _, err := s.Open([]byte("not a sealed credential")); err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("seal without keys fails", func(t *testing.T) {
		t.Parallel()
		s := newSealer(t)
		if _, err := s.Seal("x"); err == nil {
			t.Fatal("expected error")
		}
	})
}
