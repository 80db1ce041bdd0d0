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

package db

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/avast/retry-go"
	"github.com/go-logr/logr"
	"github.com/rs/xid"
	"gorm.io/gorm"

	ddd "github.com/bytedance/dddsale"
	"github.com/bytedance/dddsale/logger"
	"github.com/bytedance/dddsale/logger/stdr"
)

var defaultLogger = stdr.NewStdr("sale_lock")

const (
	// 续期间隔必须小于 ttl
	renewInterval = 1 * time.Second

	defaultAttempts = 5
	defaultDelay    = 100 * time.Millisecond
)

type Options struct {
	RenewInterval time.Duration
	Retry         bool
	Attempts      uint
	Delay         time.Duration
	Owner         string
	Logger        logr.Logger
}

type Option func(opt *Options)

func WithoutRetry() Option {
	return func(opt *Options) {
		opt.Retry = false
	}
}

func WithRetry(attempts uint, delay time.Duration) Option {
	return func(opt *Options) {
		opt.Retry = true
		opt.Attempts = attempts
		opt.Delay = delay
	}
}

func WithRenewInterval(d time.Duration) Option {
	return func(opt *Options) {
		opt.RenewInterval = d
	}
}

func WithLogger(l logr.Logger) Option {
	return func(opt *Options) {
		opt.Logger = l
	}
}

// DBLock 基于数据库唯一索引的互斥锁，库存扣减前按商品加锁
type DBLock struct {
	ttl    time.Duration
	db     *gorm.DB
	logger logr.Logger
	opt    Options
}

func NewDBLock(db *gorm.DB, ttl time.Duration, options ...Option) *DBLock {
	host, _ := os.Hostname()
	opt := Options{
		RenewInterval: renewInterval,
		Retry:         true,
		Attempts:      defaultAttempts,
		Delay:         defaultDelay,
		Owner:         host,
		Logger:        defaultLogger,
	}
	for _, o := range options {
		o(&opt)
	}
	if ttl < opt.RenewInterval {
		panic(fmt.Sprintf("ttl can not less than %f seconds", opt.RenewInterval.Seconds()))
	}
	return &DBLock{db: db, ttl: ttl, logger: opt.Logger, opt: opt}
}

// Migrate 建锁表
func (r *DBLock) Migrate() error {
	return r.db.AutoMigrate(&SaleLock{})
}

func (r *DBLock) Lock(ctx context.Context, key string) (keyLock interface{}, err error) {
	if !r.opt.Retry {
		return r.lock(ctx, key)
	}
	err = retry.Do(
		func() error {
			keyLock, err = r.lock(ctx, key)
			return err
		},
		retry.Context(ctx),
		retry.RetryIf(func(err error) bool { // 只有锁被占用时重试
			return errors.Is(err, ddd.ErrEntityLocked)
		}),
		retry.DelayType(retry.FixedDelay),
		retry.Delay(r.opt.Delay),
		retry.Attempts(r.opt.Attempts),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			r.logger.V(logger.LevelDebug).Info("lock busy, retry", "key", key, "attempt", n+1)
		}),
	)
	return
}

func (r *DBLock) lock(ctx context.Context, key string) (*SaleLock, error) {
	lockerID := xid.New().String()
	var lock SaleLock
	err := r.db.WithContext(ctx).Model(&SaleLock{}).
		Where("resource = ?", key).Take(&lock).
		Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("failed to get resource %s lock, err: %w", key, err)
		}
		l := &SaleLock{Resource: key, LockerID: lockerID, Owner: r.opt.Owner}
		if err = r.db.WithContext(ctx).Create(l).Error; err != nil {
			// 并发插入时唯一索引冲突，sqlite 不会翻译成 ErrDuplicatedKey，这里再查一次确认
			if errors.Is(err, gorm.ErrDuplicatedKey) || r.exists(ctx, key) {
				return nil, ddd.ErrEntityLocked
			}
			return nil, fmt.Errorf("failed to create resource %s lock, err: %w", key, err)
		}
		return l, nil
	}
	if time.Since(lock.UpdatedAt) < r.ttl {
		return nil, ddd.ErrEntityLocked
	}
	// 锁已过期，按旧的持有者 ID 抢占
	res := r.db.WithContext(ctx).Model(&SaleLock{}).
		Where("resource = ? AND locker_id = ?", key, lock.LockerID).
		UpdateColumns(SaleLock{UpdatedAt: time.Now(), LockerID: lockerID, Owner: r.opt.Owner})
	if res.Error != nil {
		return nil, fmt.Errorf("failed to update resource %s lock: %w", key, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ddd.ErrEntityLocked
	}
	r.logger.Info("expired lock taken over", "key", key, "previous_owner", lock.Owner)
	lock.LockerID = lockerID
	lock.Owner = r.opt.Owner
	return &lock, nil
}

func (r *DBLock) exists(ctx context.Context, key string) bool {
	var count int64
	if err := r.db.WithContext(ctx).Model(&SaleLock{}).Where("resource = ?", key).Count(&count).Error; err != nil {
		return false
	}
	return count > 0
}

func (r *DBLock) UnLock(ctx context.Context, keyLock interface{}) error {
	l, ok := keyLock.(*SaleLock)
	if !ok {
		return fmt.Errorf("invalid lock %T", keyLock)
	}
	res := r.db.WithContext(ctx).Where("locker_id = ? AND resource = ?", l.LockerID, l.Resource).Delete(&SaleLock{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected <= 0 {
		return fmt.Errorf("lock record not found (id=%s resource=%s)", l.LockerID, l.Resource)
	}
	return nil
}

func (r *DBLock) renew(ctx context.Context, l *SaleLock) error {
	res := r.db.WithContext(ctx).
		Model(&SaleLock{}).
		Where("resource = ? AND locker_id = ?", l.Resource, l.LockerID).
		UpdateColumns(SaleLock{UpdatedAt: time.Now(), LockerID: l.LockerID})
	if res.Error != nil {
		return fmt.Errorf("failed to update resource %s lock: %w", l.Resource, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("resource %s updated by others", l.Resource)
	}
	return nil
}

// Run 持锁执行 fn，期间后台续期；续期失败时取消 fn 的 ctx
func (r *DBLock) Run(ctx context.Context, key string, fn func(ctx context.Context)) error {
	keyLock, err := r.Lock(ctx, key)
	if err != nil {
		return err
	}
	l := keyLock.(*SaleLock)
	defer func() {
		if err := r.UnLock(ctx, l); err != nil {
			r.logger.Error(err, "failed to unlock", "key", key)
		}
	}()

	ticker := time.NewTicker(r.opt.RenewInterval)
	defer ticker.Stop()
	subCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		for {
			select {
			case <-subCtx.Done():
				return
			case <-ticker.C:
				if err := r.renew(ctx, l); err != nil {
					r.logger.Info("failed to renew lock", "key", key, "err", err.Error())
					cancel()
					return
				}
			}
		}
	}()

	fn(subCtx)
	return nil
}
