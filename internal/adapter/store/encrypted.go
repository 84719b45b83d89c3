package store

import (
	"bytes"
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/argon2"

	"docaccess/internal/domain"
)

// saltKey holds the Argon2id salt next to the encrypted values.
const saltKey = "docaccess_salt"

const encPrefix = "enc:"

type saltRecord struct {
	Salt string `json:"salt"`
}

// EncryptedStore wraps a KVStore and seals every value with AES-256-GCM.
// Sealed values are stored as the JSON string "enc:<base64>". Any other value
// is returned as-is, so state written before encryption was enabled still loads.
type EncryptedStore struct {
	inner domain.KVStore
	gcm   cipher.AEAD
}

// NewEncryptedStore derives the key from passphrase and the salt stored in
// inner, creating the salt on first use.
func NewEncryptedStore(ctx context.Context, inner domain.KVStore, passphrase string) (*EncryptedStore, error) {
	if passphrase == "" {
		return nil, fmt.Errorf("%w: storage passphrase must not be empty", domain.ErrInvalidInput)
	}
	salt, err := loadSalt(ctx, inner)
	if err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(argon2.IDKey([]byte(passphrase), salt, 1, 64*1024, 4, 32))
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create gcm: %w", err)
	}
	return &EncryptedStore{inner: inner, gcm: gcm}, nil
}

func loadSalt(ctx context.Context, kv domain.KVStore) ([]byte, error) {
	raw, err := kv.Get(ctx, saltKey)
	switch {
	case err == nil:
		var rec saltRecord
		if jsonErr := json.Unmarshal(raw, &rec); jsonErr != nil {
			return nil, fmt.Errorf("%w: corrupt storage salt", domain.ErrDecryption)
		}
		salt, decErr := hex.DecodeString(rec.Salt)
		if decErr != nil || len(salt) != 16 {
			return nil, fmt.Errorf("%w: corrupt storage salt", domain.ErrDecryption)
		}
		return salt, nil
	case errors.Is(err, domain.ErrNotFound):
		salt := make([]byte, 16)
		if _, err := io.ReadFull(rand.Reader, salt); err != nil {
			return nil, fmt.Errorf("generate salt: %w", err)
		}
		rec, _ := json.Marshal(saltRecord{Salt: hex.EncodeToString(salt)})
		if err := kv.Put(ctx, saltKey, rec); err != nil {
			return nil, fmt.Errorf("store salt: %w", err)
		}
		return salt, nil
	default:
		return nil, fmt.Errorf("read storage salt: %w", err)
	}
}

func (s *EncryptedStore) Get(ctx context.Context, key string) ([]byte, error) {
	raw, err := s.inner.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	var sealed string
	if !bytes.HasPrefix(raw, []byte(`"`+encPrefix)) || json.Unmarshal(raw, &sealed) != nil {
		return raw, nil
	}

	data, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(sealed, encPrefix))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrDecryption, key, err)
	}
	n := s.gcm.NonceSize()
	if len(data) < n {
		return nil, fmt.Errorf("%w: %s: ciphertext too short", domain.ErrDecryption, key)
	}
	plain, err := s.gcm.Open(nil, data[:n], data[n:], []byte(key))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrDecryption, key, err)
	}
	return plain, nil
}

// Put seals value with the key name as additional data, so a ciphertext
// copied to another key fails to open.
func (s *EncryptedStore) Put(ctx context.Context, key string, value []byte) error {
	nonce := make([]byte, s.gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return fmt.Errorf("generate nonce: %w", err)
	}
	sealed := s.gcm.Seal(nonce, nonce, value, []byte(key))
	out, err := json.Marshal(encPrefix + base64.StdEncoding.EncodeToString(sealed))
	if err != nil {
		return err
	}
	return s.inner.Put(ctx, key, out)
}

func (s *EncryptedStore) Delete(ctx context.Context, key string) error {
	return s.inner.Delete(ctx, key)
}

// Close closes the wrapped store when it holds resources.
func (s *EncryptedStore) Close() error {
	if c, ok := s.inner.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

var _ domain.KVStore = (*EncryptedStore)(nil)
