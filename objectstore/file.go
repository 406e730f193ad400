package objectstore

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
)

// FileStore keeps objects on the local filesystem. Its signed URLs point at
// BaseURL and carry an HMAC that Verify checks.
type FileStore struct {
	baseDir string
	baseURL string
	secret  []byte
	now     func() time.Time
	mu      sync.RWMutex
}

// NewFileStore creates the directory if needed. An empty secret is replaced by
// a random one, so URLs do not survive a restart.
func NewFileStore(baseDir, baseURL, secret string) (*FileStore, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to ensure storage dir: %w", err)
	}
	if secret == "" {
		secret = uuid.NewString()
	}
	if baseURL == "" {
		baseURL = "/files"
	}
	return &FileStore{baseDir: baseDir, baseURL: baseURL, secret: []byte(secret), now: time.Now}, nil
}

func (s *FileStore) path(key string) (string, error) {
	key, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.baseDir, filepath.FromSlash(key)), nil
}

func (s *FileStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create object dir: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write object: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("commit object: %w", err)
	}
	return nil
}

func (s *FileStore) Get(ctx context.Context, key string) ([]byte, error) {
	path, err := s.path(key)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("read object: %w", err)
	}
	return data, nil
}

func (s *FileStore) SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	key, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	expires := strconv.FormatInt(s.now().Add(ttl).Unix(), 10)
	q := url.Values{}
	q.Set("expires", expires)
	q.Set("signature", s.sign(key, expires))
	return s.baseURL + "/" + key + "?" + q.Encode(), nil
}

// Verify checks a signature produced by SignedURL.
func (s *FileStore) Verify(key, expires, signature string) bool {
	key, err := cleanKey(key)
	if err != nil {
		return false
	}
	unix, err := strconv.ParseInt(expires, 10, 64)
	if err != nil || s.now().Unix() > unix {
		return false
	}
	return hmac.Equal([]byte(signature), []byte(s.sign(key, expires)))
}

func (s *FileStore) sign(key, expires string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(key + "\n" + expires))
	return hex.EncodeToString(mac.Sum(nil))
}
