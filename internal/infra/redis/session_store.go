package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"trivia-quiz-service/internal/app"
	"trivia-quiz-service/internal/domain"
)

// SessionStore keeps session snapshots in Redis so any instance can serve a
// session. Each write refreshes the key's TTL, which bounds idle sessions.
type SessionStore struct {
	client redis.UniversalClient
	ttl    time.Duration
}

func NewSessionStore(client redis.UniversalClient, ttl time.Duration) *SessionStore {
	return &SessionStore{client: client, ttl: ttl}
}

func (s *SessionStore) Create(ctx context.Context, session *app.Session) error {
	raw, err := encodeSession(session)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key(session.ID()), raw, s.ttl).Err()
}

func (s *SessionStore) Get(ctx context.Context, id string) (*app.Session, error) {
	return s.read(ctx, s.client, id)
}

// Update watches the session key while fn runs. If another writer touches the
// key before EXEC, the transaction is discarded and the caller gets
// domain.ErrInvalidTransition. Update never resurrects an expired session.
func (s *SessionStore) Update(ctx context.Context, id string, fn func(*app.Session) error) (*app.Session, error) {
	key := s.key(id)
	var updated *app.Session
	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		session, err := s.read(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := fn(session); err != nil {
			return err
		}
		raw, err := encodeSession(session)
		if err != nil {
			return err
		}
		if _, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, raw, s.ttl)
			return nil
		}); err != nil {
			return err
		}
		updated = session
		return nil
	}, key)
	if errors.Is(err, redis.TxFailedErr) {
		return nil, fmt.Errorf("session %s changed concurrently: %w", id, domain.ErrInvalidTransition)
	}
	if err != nil {
		return nil, err
	}
	return updated, nil
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (s *SessionStore) read(ctx context.Context, c getter, id string) (*app.Session, error) {
	raw, err := c.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session %s: %w", id, err)
	}

	var snap app.SessionSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", id, err)
	}
	return app.RestoreSession(snap)
}

func (s *SessionStore) Delete(ctx context.Context, id string) error {
	return s.client.Del(ctx, s.key(id)).Err()
}

func (s *SessionStore) key(id string) string {
	return "quiz:session:" + id
}

func encodeSession(session *app.Session) ([]byte, error) {
	raw, err := json.Marshal(session.Snapshot())
	if err != nil {
		return nil, fmt.Errorf("encode session %s: %w", session.ID(), err)
	}
	return raw, nil
}
