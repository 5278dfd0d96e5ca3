package encryption

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"filippo.io/age"

	"netback/internal/config"
	"netback/internal/netback"
)

// AgeSealer implements netback.Sealer using filippo.io/age with X25519 keys.
// The recipient (public key) is stored in plaintext; the identity (private
// key) is kept on disk with owner-only permissions so unattended backups can
// unseal device credentials without a passphrase prompt.
type AgeSealer struct {
	recipientPath string
	identityPath  string
}

var _ netback.Sealer = (*AgeSealer)(nil)

// NewAgeSealer creates a new AgeSealer from configuration.
func NewAgeSealer(cfg config.EncryptionConfig) *AgeSealer {
	return &AgeSealer{
		recipientPath: cfg.RecipientPath,
		identityPath:  cfg.IdentityPath,
	}
}

// Setup generates a new X25519 key pair and writes both halves to disk.
// Fails if a key pair already exists; regenerating would orphan every
// sealed credential.
func (s *AgeSealer) Setup() error {
	if s.IsConfigured() {
		return fmt.Errorf("encryption keys already exist at %s", s.identityPath)
	}

	identity, err := age.GenerateX25519Identity()
	if err != nil {
		return fmt.Errorf("generating key pair: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.recipientPath), 0700); err != nil {
		return fmt.Errorf("creating recipient key directory: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.identityPath), 0700); err != nil {
		return fmt.Errorf("creating identity key directory: %w", err)
	}

	if err := os.WriteFile(s.recipientPath, []byte(identity.Recipient().String()+"\n"), 0644); err != nil {
		return fmt.Errorf("writing recipient key: %w", err)
	}
	if err := os.WriteFile(s.identityPath, []byte(identity.String()+"\n"), 0600); err != nil {
		return fmt.Errorf("writing identity key: %w", err)
	}
	return nil
}

// IsConfigured returns true if both key files exist.
func (s *AgeSealer) IsConfigured() bool {
	if _, err := os.Stat(s.recipientPath); err != nil {
		return false
	}
	if _, err := os.Stat(s.identityPath); err != nil {
		return false
	}
	return true
}

// Seal encrypts a credential to the stored recipient.
func (s *AgeSealer) Seal(plaintext string) ([]byte, error) {
	recipient, err := s.loadRecipient()
	if err != nil {
		return nil, fmt.Errorf("loading recipient key: %w", err)
	}

	var buf bytes.Buffer
	w, err := age.Encrypt(&buf, recipient)
	if err != nil {
		return nil, fmt.Errorf("creating encrypted writer: %w", err)
	}
	if _, err := io.WriteString(w, plaintext); err != nil {
		return nil, fmt.Errorf("sealing credential: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("finalizing sealed credential: %w", err)
	}
	return buf.Bytes(), nil
}

// Open decrypts a sealed credential using the stored identity.
func (s *AgeSealer) Open(sealed []byte) (string, error) {
	identity, err := s.loadIdentity()
	if err != nil {
		return "", fmt.Errorf("loading identity key: %w", err)
	}

	r, err := age.Decrypt(bytes.NewReader(sealed), identity)
	if err != nil {
		return "", fmt.Errorf("opening sealed credential: %w", err)
	}

	plaintext, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("reading unsealed credential: %w", err)
	}
	return string(plaintext), nil
}

// loadRecipient reads the recipient key from disk and parses it.
func (s *AgeSealer) loadRecipient() (age.Recipient, error) {
	data, err := os.ReadFile(s.recipientPath)
	if err != nil {
		return nil, fmt.Errorf("reading recipient key: %w", err)
	}

	recipients, err := age.ParseRecipients(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parsing recipient key: %w", err)
	}
	if len(recipients) == 0 {
		return nil, fmt.Errorf("no recipients found in key file")
	}
	return recipients[0], nil
}

// loadIdentity reads the identity key from disk and parses it.
func (s *AgeSealer) loadIdentity() (age.Identity, error) {
	data, err := os.ReadFile(s.identityPath)
	if err != nil {
		return nil, fmt.Errorf("reading identity key: %w", err)
	}

	identities, err := age.ParseIdentities(strings.NewReader(string(data)))
	if err != nil {
		return nil, fmt.Errorf("parsing identity key: %w", err)
	}
	if len(identities) == 0 {
		return nil, fmt.Errorf("no identities found in key file")
	}
	return identities[0], nil
}
