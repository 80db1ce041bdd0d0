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
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	ddd "github.com/bytedance/dddsale"
	"github.com/bytedance/dddsale/testsuit"
)

func initDB(t *testing.T) *gorm.DB {
	db := testsuit.InitSqlite(testsuit.MySQLOption{NoLog: true})
	require.NoError(t, db.AutoMigrate(&SaleLock{}))
	return db
}

func TestLock(t *testing.T) {
	ctx := context.Background()
	lock := NewDBLock(initDB(t), 1*time.Second)
	l, err := lock.Lock(ctx, "product_1")
	require.NoError(t, err)
	r := l.(*SaleLock)
	assert.True(t, len(r.LockerID) > 0)

	// 锁过期后可以被重新获取
	time.Sleep(1 * time.Second)
	previousID := r.LockerID
	l, err = lock.Lock(ctx, "product_1")
	require.NoError(t, err)
	assert.NotEqual(t, previousID, l.(*SaleLock).LockerID)
	assert.NoError(t, lock.UnLock(ctx, l))

	// 过期的旧持有者不能再解锁
	assert.Error(t, lock.UnLock(ctx, r))
}

func TestLockBusy(t *testing.T) {
	ctx := context.Background()
	lock := NewDBLock(initDB(t), 5*time.Second, WithRetry(2, 10*time.Millisecond))
	_, err := lock.Lock(ctx, "product_2")
	require.NoError(t, err)

	_, err = lock.Lock(ctx, "product_2")
	assert.ErrorIs(t, err, ddd.ErrEntityLocked)

	// 不同 key 互不影响
	_, err = lock.Lock(ctx, "product_3")
	assert.NoError(t, err)
}

func TestUnLock(t *testing.T) {
	ctx := context.Background()
	lock := NewDBLock(initDB(t), 1*time.Second)
	l, err := lock.Lock(ctx, "product_1")
	require.NoError(t, err)
	require.NoError(t, lock.UnLock(ctx, l))
	_, err = lock.Lock(ctx, "product_1")
	assert.NoError(t, err)

	assert.Error(t, lock.UnLock(ctx, "product_1"))
}

func TestRun(t *testing.T) {
	lock := NewDBLock(initDB(t), 5*time.Second, WithoutRetry())
	var wg sync.WaitGroup
	wg.Add(1)
	started := make(chan struct{})
	go func() {
		_ = lock.Run(context.Background(), "sale_1", func(ctx context.Context) {
			defer wg.Done()
			close(started)
			time.Sleep(1500 * time.Millisecond)
		})
	}()
	<-started
	_, err := lock.Lock(context.Background(), "sale_1")
	assert.ErrorIs(t, err, ddd.ErrEntityLocked)
	wg.Wait()
}
