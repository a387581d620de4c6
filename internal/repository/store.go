package repository

import (
	"context"
	"errors"
	"time"

	"oficina/internal/apierror"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// RetryPolicy bounds the retryable transaction combinator.
// Attempt n (0-based) waits roughly BaseDelay × 2^n, jittered, capped at MaxDelay.
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

// DefaultRetryPolicy is used for item mutations unless config overrides it.
var DefaultRetryPolicy = RetryPolicy{
	MaxRetries: 3,
	BaseDelay:  100 * time.Millisecond,
	MaxDelay:   2 * time.Second,
}

// Store is the explicitly injected handle every service runs its
// transactions through. Its lifetime is owned by the caller (main or a test).
type Store struct {
	db     *gorm.DB
	policy RetryPolicy
}

func NewStore(db *gorm.DB, policy RetryPolicy) *Store {
	if policy.MaxRetries < 0 {
		policy.MaxRetries = 0
	}
	if policy.BaseDelay <= 0 {
		policy.BaseDelay = DefaultRetryPolicy.BaseDelay
	}
	if policy.MaxDelay < policy.BaseDelay {
		policy.MaxDelay = policy.BaseDelay * 8
	}
	return &Store{db: db, policy: policy}
}

// DB exposes the handle for non-transactional reads.
func (s *Store) DB() *gorm.DB { return s.db }

func (s *Store) Policy() RetryPolicy { return s.policy }

// Transaction runs fn in one database transaction. fn must only use tx.
// Lock conflicts and timeouts come back as apierror.ErrConcurrency wrapping
// the driver error; nothing is retried here.
func (s *Store) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return Classify(s.db.WithContext(ctx).Transaction(fn))
}

// RetryTransaction runs fn in a fresh transaction per attempt and retries the
// whole unit when the database reports a deadlock, a serialization failure or
// a lock timeout. Exhausted retries surface as apierror.ErrConcurrency.
func (s *Store) RetryTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return Retry(ctx, s.policy, func() error {
		return s.Transaction(ctx, fn)
	})
}

// Retry is the combinator behind RetryTransaction; op is one full attempt.
func Retry(ctx context.Context, policy RetryPolicy, op func() error) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = policy.BaseDelay
	bo.Multiplier = 2
	bo.RandomizationFactor = 0.5
	bo.MaxInterval = policy.MaxDelay

	attempt := 0
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attempt++
		err := op()
		if err == nil {
			return struct{}{}, nil
		}
		if !IsRetryable(err) {
			return struct{}{}, backoff.Permanent(err)
		}
		log.Warn().Err(err).Int("attempt", attempt).Msg("retryable transaction conflict")
		return struct{}{}, err
	}, backoff.WithBackOff(bo), backoff.WithMaxTries(uint(policy.MaxRetries+1)))
	if err == nil {
		return nil
	}
	if IsRetryable(err) {
		log.Error().Err(err).Int("attempts", attempt).Msg("retries exhausted")
		if apierror.IsConcurrency(err) {
			return err
		}
		return apierror.ErrConcurrency.Wrap(err)
	}
	var perm *backoff.PermanentError
	if errors.As(err, &perm) {
		return perm.Unwrap()
	}
	return err
}
