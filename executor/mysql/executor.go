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

package mysql

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
)

var ErrInvalidDB = fmt.Errorf("invalid db")
var ErrNoTransaction = fmt.Errorf("no transaction")

// 确保外面拿不到内部的 key
type contextKey string

// Executor 基于 gorm 的事务执行器，MySQL 与 SQLite 通用
// 仓储通过 DB(ctx) 获取句柄，引擎开启事务时拿到的就是事务句柄
type Executor struct {
	db    *gorm.DB
	txKey contextKey
}

func NewExecutor(db *gorm.DB) *Executor {
	return &Executor{
		db:    db,
		txKey: contextKey(fmt.Sprintf("executor_tx_%d", time.Now().UnixNano())),
	}
}

func (e *Executor) Begin(ctx context.Context) (context.Context, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if e.db == nil {
		return ctx, ErrInvalidDB
	}
	// 嵌套调用时复用外层事务，提交和回滚交给外层
	if h := e.holder(ctx); h != nil {
		return context.WithValue(ctx, e.txKey, &txHolder{tx: h.tx, nested: true}), nil
	}

	tx := e.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return ctx, fmt.Errorf("start transation failed, err=%w", tx.Error)
	}
	return context.WithValue(ctx, e.txKey, &txHolder{tx: tx}), nil
}

func (e *Executor) Commit(ctx context.Context) error {
	if e.db == nil {
		return ErrInvalidDB
	}
	h := e.holder(ctx)
	if h == nil {
		return ErrNoTransaction
	}
	if h.nested {
		return nil
	}
	return h.tx.Commit().Error
}

func (e *Executor) RollBack(ctx context.Context) error {
	if e.db == nil {
		return ErrInvalidDB
	}
	h := e.holder(ctx)
	if h == nil {
		return ErrNoTransaction
	}
	if h.nested {
		return nil
	}
	return h.tx.Rollback().Error
}

type txHolder struct {
	tx     *gorm.DB
	nested bool
}

func (e *Executor) holder(ctx context.Context) *txHolder {
	if ctx == nil {
		return nil
	}
	if val, ok := ctx.Value(e.txKey).(*txHolder); ok {
		return val
	}
	return nil
}

// DB 返回 ctx 对应的 gorm 句柄：事务内返回事务句柄，否则返回绑定 ctx 的普通句柄
func (e *Executor) DB(ctx context.Context) *gorm.DB {
	if h := e.holder(ctx); h != nil {
		return h.tx
	}
	return e.db.WithContext(ctx)
}

// inTransaction 判断 ctx 是否处于本执行器开启的事务中
func (e *Executor) inTransaction(ctx context.Context) bool {
	return e.holder(ctx) != nil
}
