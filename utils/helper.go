package utils

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bsm/redislock"
	"github.com/shopspring/decimal"
)

// returns slice removing duplicate elements
func UniqueSlice[T comparable](slice []T) []T {
	inResult := make(map[T]bool)
	var result []T
	for _, elm := range slice {
		if _, ok := inResult[elm]; !ok {
			// if not exists in map, append it, otherwise do nothing
			inResult[elm] = true
			result = append(result, elm)
		}
	}
	return result
}

func NilIfEmpty[T comparable](ptr T) *T {
	var defaultZero T
	if ptr == defaultZero {
		return nil
	}
	return &ptr
}

// DefaultIfBlank returns def when s is empty after trimming.
func DefaultIfBlank(s string, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

// PercentComplete returns done/total as a percentage rounded to two places; zero total is 0.
func PercentComplete(done int64, total int64) float64 {
	if total <= 0 {
		return 0
	}
	pct := decimal.NewFromInt(done).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(total)).
		Round(2)
	return pct.InexactFloat64()
}

// ObtainLock takes a short Redis lock for key. A nil locker yields a no-op release,
// so callers keep working when Redis is not configured.
func ObtainLock(ctx context.Context, locker *redislock.Client, key string, ttl time.Duration) (func(), error) {
	noop := func() {}
	if locker == nil {
		return noop, nil
	}
	lock, err := locker.Obtain(ctx, key, ttl, &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(50*time.Millisecond), 20),
	})
	if errors.Is(err, redislock.ErrNotObtained) {
		return noop, fmt.Errorf("could not obtain lock %s: %w", key, err)
	} else if err != nil {
		return noop, err
	}
	return func() {
		_ = lock.Release(context.WithoutCancel(ctx))
	}, nil
}
