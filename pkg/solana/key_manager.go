package solana

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/blocto/solana-go-sdk/types"
	solanago "github.com/gagliardetto/solana-go"

	"launchcontrol/internal/launcherr"
)

// EscrowWallet is the public half of a freshly generated escrow keypair plus
// the encrypted secret destined for the launch row. The plaintext secret is
// never part of this struct.
type EscrowWallet struct {
	PublicAddress   string
	EncryptedSecret string
	KeyVersion      int
}

// EscrowKeyManager generates launch escrow keypairs and guards their secrets.
// Secrets are AES-256-GCM encrypted under a server-held key before any
// persistence, and decrypted in memory only for the duration of a signing call.
type EscrowKeyManager struct {
	encryptionKey string
}

// NewEscrowKeyManager fails closed when ESCROW_ENCRYPTION_KEY is not set:
// without it no wallet may be created and no launch persisted.
func NewEscrowKeyManager() (*EscrowKeyManager, error) {
	key := os.Getenv("ESCROW_ENCRYPTION_KEY")
	if key == "" {
		return nil, launcherr.ErrEncryptionKeyMissing
	}
	return &EscrowKeyManager{encryptionKey: key}, nil
}

// CreateEscrowWallet generates a new keypair and returns its public address
// together with the encrypted secret. The secret never leaves this function
// unencrypted.
func (km *EscrowKeyManager) CreateEscrowWallet() (*EscrowWallet, error) {
	account := types.NewAccount()

	encrypted, err := km.encryptSecret(account.PrivateKey)
	zero(account.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt escrow secret: %w", err)
	}

	return &EscrowWallet{
		PublicAddress:   account.PublicKey.ToBase58(),
		EncryptedSecret: encrypted,
		KeyVersion:      1,
	}, nil
}

// WithSigner decrypts the escrow secret, hands the private key to fn, and
// wipes the plaintext before returning. The key must not escape fn.
func (km *EscrowKeyManager) WithSigner(encryptedSecret string, fn func(priv solanago.PrivateKey) error) error {
	raw, err := km.decryptSecret(encryptedSecret)
	if err != nil {
		return fmt.Errorf("%w: %v", launcherr.ErrSigningFailed, err)
	}
	defer zero(raw)

	return fn(solanago.PrivateKey(raw))
}

// encryptSecret encrypts a private key using AES-256-GCM
func (km *EscrowKeyManager) encryptSecret(privateKey []byte) (string, error) {
	key := deriveKey(km.encryptionKey) // 32-byte key for AES-256
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("failed to create GCM: %w", err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	// Combine nonce and ciphertext for storage
	ciphertext := gcm.Seal(nonce, nonce, privateKey, nil)
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// decryptSecret decrypts a private key using AES-256-GCM
func (km *EscrowKeyManager) decryptSecret(encryptedKey string) ([]byte, error) {
	ciphertext, err := base64.StdEncoding.DecodeString(encryptedKey)
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64: %w", err)
	}

	key := deriveKey(km.encryptionKey)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	if len(ciphertext) < gcm.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}

	nonce := ciphertext[:gcm.NonceSize()]
	ciphertext = ciphertext[gcm.NonceSize():]

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt: %w", err)
	}

	return plaintext, nil
}

// deriveKey creates a 32-byte key from a password using SHA-256
func deriveKey(password string) []byte {
	hash := sha256.Sum256([]byte(password))
	return hash[:]
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
