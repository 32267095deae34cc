package redis

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"time"
)

// TokenData holds a cached bearer token for a client identity
type TokenData struct {
	AccessToken string    `json:"accessToken"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// TokenStore shares bearer tokens between simulator processes via Redis,
// encrypted at rest
type TokenStore struct {
	encryptionKey []byte
}

var (
	setTokenValue = Set
	getTokenValue = Get
	delTokenValue = Del
)

// NewTokenStore creates a new token store
func NewTokenStore(encryptionKeyHex string) (*TokenStore, error) {
	key, err := hex.DecodeString(encryptionKeyHex)
	if err != nil {
		return nil, errors.New("invalid encryption key hex")
	}
	if len(key) != 32 {
		return nil, errors.New("encryption key must be 32 bytes (64 hex chars)")
	}
	return &TokenStore{encryptionKey: key}, nil
}

// PutToken stores an encrypted token for a client identity; the entry expires
// with the token itself
func (s *TokenStore) PutToken(ctx context.Context, clientID string, data *TokenData) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}

	encryptedData, err := s.encrypt(jsonData)
	if err != nil {
		return err
	}

	ttl := time.Until(data.ExpiresAt)
	if ttl <= 0 {
		return errors.New("token already expired")
	}

	return setTokenValue(ctx, "token:"+clientID, encryptedData, ttl)
}

// GetToken retrieves and decrypts a cached token for a client identity
func (s *TokenStore) GetToken(ctx context.Context, clientID string) (*TokenData, error) {
	encryptedDataStr, err := getTokenValue(ctx, "token:"+clientID)
	if err != nil {
		return nil, err
	}

	decryptedData, err := s.decrypt(encryptedDataStr)
	if err != nil {
		return nil, err
	}

	var data TokenData
	if err := json.Unmarshal(decryptedData, &data); err != nil {
		return nil, err
	}

	return &data, nil
}

// DeleteToken removes a cached token
func (s *TokenStore) DeleteToken(ctx context.Context, clientID string) error {
	return delTokenValue(ctx, "token:"+clientID)
}

func (s *TokenStore) encrypt(plaintext []byte) (string, error) {
	block, err := aes.NewCipher(s.encryptionKey)
	if err != nil {
		return "", err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	ciphertext := gcm.Seal(nonce, nonce, plaintext, nil)
	return hex.EncodeToString(ciphertext), nil
}

func (s *TokenStore) decrypt(ciphertextHex string) ([]byte, error) {
	ciphertext, err := hex.DecodeString(ciphertextHex)
	if err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(s.encryptionKey)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	if len(ciphertext) < gcm.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}

	nonce, ciphertext := ciphertext[:gcm.NonceSize()], ciphertext[gcm.NonceSize():]
	return gcm.Open(nil, nonce, ciphertext, nil)
}
