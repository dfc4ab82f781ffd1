package verify

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrTooManyAttempts is returned once a code has been guessed wrong too often.
var ErrTooManyAttempts = errors.New("verify: too many attempts")

const maxAttempts = 5

// Store issues and checks short-lived verification codes, used when a subject
// links a new device or channel to their coaching account. Codes are single
// use and expire on their own.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

func NewStore(client *redis.Client, ttl time.Duration) *Store {
	if client == nil {
		panic("verify: redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Store{client: client, ttl: ttl}
}

// Issue creates a fresh six-digit code for the subject, replacing any
// outstanding one.
func (s *Store) Issue(ctx context.Context, subjectID string) (string, error) {
	code, err := sixDigitCode()
	if err != nil {
		return "", fmt.Errorf("verify: generate code: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, codeKey(subjectID), code, s.ttl)
	pipe.Set(ctx, attemptsKey(subjectID), 0, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return "", fmt.Errorf("verify: store code: %w", err)
	}
	return code, nil
}

// Check consumes the code on success. A wrong guess counts toward the attempt
// limit; once exceeded the code is revoked.
func (s *Store) Check(ctx context.Context, subjectID, code string) (bool, error) {
	stored, err := s.client.Get(ctx, codeKey(subjectID)).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("verify: load code: %w", err)
	}

	if stored != code {
		attempts, err := s.client.Incr(ctx, attemptsKey(subjectID)).Result()
		if err != nil {
			return false, fmt.Errorf("verify: count attempt: %w", err)
		}
		if attempts >= maxAttempts {
			s.revoke(ctx, subjectID)
			return false, ErrTooManyAttempts
		}
		return false, nil
	}

	s.revoke(ctx, subjectID)
	return true, nil
}

func (s *Store) revoke(ctx context.Context, subjectID string) {
	s.client.Del(ctx, codeKey(subjectID), attemptsKey(subjectID))
}

func codeKey(subjectID string) string     { return "verify:code:" + subjectID }
func attemptsKey(subjectID string) string { return "verify:attempts:" + subjectID }

func sixDigitCode() (string, error) {
	var buf [4]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", err
	}
	n := uint32(buf[0])<<24 | uint32(buf[1])<<16 | uint32(buf[2])<<8 | uint32(buf[3])
	return fmt.Sprintf("%06d", n%1_000_000), nil
}
