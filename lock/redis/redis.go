//
// Copyright 2023 Bytedance Ltd. and/or its affiliates
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"

	ddd "github.com/bytedance/dddsale"
)

const (
	defaultBackoff  = 100 * time.Millisecond
	defaultAttempts = 30
)

type RedisLock struct {
	ttl      time.Duration
	cli      *redislock.Client
	backoff  time.Duration
	attempts int
}

type Option func(l *RedisLock)

// WithRetry 固定间隔重试 attempts 次
func WithRetry(backoff time.Duration, attempts int) Option {
	return func(l *RedisLock) {
		l.backoff = backoff
		l.attempts = attempts
	}
}

func NewRedisLock(cli redis.UniversalClient, ttl time.Duration, opts ...Option) *RedisLock {
	l := &RedisLock{
		cli:      redislock.New(cli),
		ttl:      ttl,
		backoff:  defaultBackoff,
		attempts: defaultAttempts,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (r *RedisLock) Lock(ctx context.Context, key string) (keyLock interface{}, err error) {
	l, err := r.cli.Obtain(ctx, key, r.ttl, &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(r.backoff), r.attempts),
	})
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, ddd.ErrEntityLocked
	}
	if err != nil {
		return nil, fmt.Errorf("obtain redis lock %s failed: %w", key, err)
	}
	return l, nil
}

func (r *RedisLock) UnLock(ctx context.Context, keyLock interface{}) error {
	l, ok := keyLock.(*redislock.Lock)
	if !ok {
		return fmt.Errorf("invalid lock %T", keyLock)
	}
	if err := l.Release(ctx); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
		return err
	}
	return nil
}
