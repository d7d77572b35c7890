package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/claude/liftlog/internal/models"
)

// DefaultKey is the slot key. The suffix is the record version: an
// incompatible change to ActiveSession gets a new key and old records are
// left behind untouched.
const DefaultKey = "liftlog.activeWorkout.v1"

// ErrInvalidSession marks a stored record that cannot be resumed.
var ErrInvalidSession = errors.New("invalid session record")

// Storage is the only path between the in-memory session and the KV medium.
type Storage struct {
	kv  KV
	key string
	log *slog.Logger
}

// NewStorage creates a Storage over kv. An empty key selects DefaultKey.
func NewStorage(kv KV, key string, log *slog.Logger) *Storage {
	if key == "" {
		key = DefaultKey
	}
	return &Storage{kv: kv, key: key, log: log}
}

// Key returns the slot key.
func (s *Storage) Key() string {
	return s.key
}

// Load returns the stored session, or nil when there is nothing to resume.
// Records that fail to parse or validate are deleted before returning nil.
// Only failures of the medium itself are returned as errors.
func (s *Storage) Load(ctx context.Context) (*models.ActiveSession, error) {
	raw, ok, err := s.kv.Get(ctx, s.key)
	if err != nil {
		return nil, fmt.Errorf("reading session: %w", err)
	}
	if !ok {
		return nil, nil
	}

	session, err := Validate([]byte(raw))
	if err != nil {
		s.log.Warn("discarding stored session", "key", s.key, "reason", err)
		if err := s.kv.Delete(ctx, s.key); err != nil {
			s.log.Error("failed to remove invalid session", "key", s.key, "error", err)
		}
		return nil, nil
	}
	return session, nil
}

// Raw returns the stored record as-is, without validating or healing it.
func (s *Storage) Raw(ctx context.Context) (string, bool, error) {
	raw, ok, err := s.kv.Get(ctx, s.key)
	if err != nil {
		return "", false, fmt.Errorf("reading session: %w", err)
	}
	return raw, ok, nil
}

// Save overwrites the slot with session, or clears it when session is nil.
func (s *Storage) Save(ctx context.Context, session *models.ActiveSession) error {
	if session == nil {
		if err := s.kv.Delete(ctx, s.key); err != nil {
			return fmt.Errorf("clearing session: %w", err)
		}
		return nil
	}

	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encoding session: %w", err)
	}
	if err := s.kv.Set(ctx, s.key, string(data)); err != nil {
		return fmt.Errorf("writing session: %w", err)
	}
	return nil
}

// Validate decodes a stored record. It checks only the top level: the value
// must be an object whose status, workoutName and startedAt are strings and
// whose exercises is a non-empty array. Any failure wraps ErrInvalidSession.
// Nested values are not checked; ones of the wrong type are dropped.
func Validate(data []byte) (*models.ActiveSession, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}
	if fields == nil {
		return nil, fmt.Errorf("%w: not an object", ErrInvalidSession)
	}

	for _, name := range []string{"status", "workoutName", "startedAt"} {
		if kind(fields[name]) != '"' {
			return nil, fmt.Errorf("%w: %s is not a string", ErrInvalidSession, name)
		}
	}

	if kind(fields["exercises"]) != '[' {
		return nil, fmt.Errorf("%w: exercises is not an array", ErrInvalidSession)
	}
	var exercises []json.RawMessage
	if err := json.Unmarshal(fields["exercises"], &exercises); err != nil {
		return nil, fmt.Errorf("%w: exercises: %v", ErrInvalidSession, err)
	}
	if len(exercises) == 0 {
		return nil, fmt.Errorf("%w: no exercises", ErrInvalidSession)
	}

	return decodeSession(fields, exercises), nil
}

// kind returns the first significant byte of a JSON value, or 0 when absent.
func kind(raw json.RawMessage) byte {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return 0
	}
	return raw[0]
}
