package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"
)

var (
	bucketSession = []byte("session")
	currentKey    = []byte("current")
)

var ErrNoSession = errors.New("no cached session")

// Token is the cached credential pair issued at login.
type Token struct {
	Email        string    `json:"email"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	TokenType    string    `json:"token_type"`
	ExpiresAt    time.Time `json:"expires_at"`
}

func (t *Token) Expired(now time.Time) bool {
	return !t.ExpiresAt.IsZero() && !now.Before(t.ExpiresAt)
}

// Store caches the session token between CLI invocations.
type Store interface {
	Save(ctx context.Context, tok *Token) error
	Load(ctx context.Context) (*Token, error)
	Clear(ctx context.Context) error
}

type BoltStore struct {
	db *bbolt.DB
}

// DefaultPath is ~/.fittrack/session.db, or the working directory when the
// home directory is unknown.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "fittrack-session.db"
	}
	return filepath.Join(home, ".fittrack", "session.db")
}

func Open(path string) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create session dir: %w", err)
	}
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open session db: %w", err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketSession)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init session bucket: %w", err)
	}
	return &BoltStore{db: db}, nil
}

func (s *BoltStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *BoltStore) Save(_ context.Context, tok *Token) error {
	data, err := json.Marshal(tok)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketSession).Put(currentKey, data)
	})
}

func (s *BoltStore) Load(_ context.Context) (*Token, error) {
	var tok *Token
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketSession).Get(currentKey)
		if data == nil {
			return ErrNoSession
		}
		tok = &Token{}
		if err := json.Unmarshal(data, tok); err != nil {
			return fmt.Errorf("unmarshal session: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tok, nil
}

// Clear removes the cached token. Clearing an empty store is not an error.
func (s *BoltStore) Clear(_ context.Context) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketSession).Delete(currentKey)
	})
}
