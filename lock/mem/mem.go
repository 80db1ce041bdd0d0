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
)

// MemLock 进程内锁，同一个 key 同时只能被一个调用方持有，适用于单实例部署
type MemLock struct {
	mu   sync.Mutex
	held map[string]chan struct{}
}

func NewMemLock() *MemLock {
	return &MemLock{held: map[string]chan struct{}{}}
}

func (l *MemLock) Lock(ctx context.Context, key string) (keyLock interface{}, err error) {
	for {
		l.mu.Lock()
		ch, ok := l.held[key]
		if !ok {
			l.held[key] = make(chan struct{})
			l.mu.Unlock()
			return key, nil
		}
		l.mu.Unlock()

		select {
		case <-ch:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (l *MemLock) UnLock(ctx context.Context, keyLock interface{}) error {
	key, _ := keyLock.(string)
	l.mu.Lock()
	defer l.mu.Unlock()
	if ch, ok := l.held[key]; ok {
		delete(l.held, key)
		close(ch)
	}
	return nil
}
