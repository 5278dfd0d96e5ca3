package netback

// Sealer encrypts device credentials at rest and decrypts them for use
// during a capture. Sealing must not require user interaction: backups run
// unattended.
type Sealer interface {
	// Seal encrypts a plaintext credential.
	Seal(plaintext string) ([]byte, error)

	// Open decrypts a sealed credential.
	Open(sealed []byte) (string, error)
}

// NopSealer passes credentials through unchanged. Use in tests.
type NopSealer struct{}

func (NopSealer) Seal(plaintext string) ([]byte, error) { return []byte(plaintext), nil }
func (NopSealer) Open(sealed []byte) (string, error)    { return string(sealed), nil }
