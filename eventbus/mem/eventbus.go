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

package mem

import (
	"context"
	"sync"

	"github.com/go-logr/logr"

	ddd "github.com/bytedance/dddsale"
	"github.com/bytedance/dddsale/logger/stdr"
)

// MemoryEventBus 进程内事件总线，事件在提交后异步消费，不做持久化
type MemoryEventBus struct {
	ch     chan *ddd.DomainEvent
	cb     ddd.DomainEventHandler
	logger logr.Logger

	once sync.Once
	wg   sync.WaitGroup
}

func NewEventBus(capacity int) *MemoryEventBus {
	return &MemoryEventBus{
		ch:     make(chan *ddd.DomainEvent, capacity),
		logger: stdr.NewStdr("mem_eventbus"),
	}
}

func (e *MemoryEventBus) Dispatch(ctx context.Context, evts ...*ddd.DomainEvent) error {
	for _, evt := range evts {
		select {
		case e.ch <- evt:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// DispatchAfterCommit 内存总线不参与事务，由引擎在提交后投递
func (e *MemoryEventBus) DispatchAfterCommit() {}

func (e *MemoryEventBus) RegisterEventHandler(cb ddd.DomainEventHandler) {
	e.cb = cb
}

// Start 启动消费协程，ctx 结束后退出
func (e *MemoryEventBus) Start(ctx context.Context) {
	run := func() {
		defer e.wg.Done()
		for {
			select {
			case evt := <-e.ch:
				if e.cb == nil {
					continue
				}
				if err := e.cb(ctx, evt); err != nil {
					e.logger.Error(err, "handle event failed", "id", evt.ID, "type", evt.Type)
				}
			case <-ctx.Done():
				return
			}
		}
	}
	e.once.Do(func() {
		e.wg.Add(1)
		go run()
	})
}

// Wait 等待消费协程退出
func (e *MemoryEventBus) Wait() {
	e.wg.Wait()
}
