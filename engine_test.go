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

package dddsale

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bytedance/dddsale/testsuit"
)

type cartEvent struct {
	CartID string
	Action string
}

func (e *cartEvent) GetType() EventType {
	return "engine_test_cart"
}

func (e *cartEvent) GetSender() string {
	return e.CartID
}

type cart struct {
	BaseEntity

	ID      string
	Items   int
	created int
	updated int
}

func (c *cart) AfterCreate(ctx context.Context) error {
	c.created++
	c.AddEvent(&cartEvent{CartID: c.ID, Action: "created"})
	return nil
}

func (c *cart) AfterUpdate(ctx context.Context) error {
	c.updated++
	c.AddEvent(&cartEvent{CartID: c.ID, Action: "updated"})
	return nil
}

type recordingLock struct {
	*testsuit.MemLock

	mu       sync.Mutex
	locked   []string
	unlocked int
	err      error
}

func newRecordingLock() *recordingLock {
	return &recordingLock{MemLock: testsuit.NewMemLock()}
}

func (l *recordingLock) Lock(ctx context.Context, key string) (interface{}, error) {
	if l.err != nil {
		return nil, l.err
	}
	l.mu.Lock()
	l.locked = append(l.locked, key)
	l.mu.Unlock()
	return l.MemLock.Lock(ctx, key)
}

func (l *recordingLock) UnLock(ctx context.Context, keyLock interface{}) error {
	l.mu.Lock()
	l.unlocked++
	l.mu.Unlock()
	return l.MemLock.UnLock(ctx, keyLock)
}

type txKey struct{}

type recordingExecutor struct {
	begin, commit, rollback int
	commitErr               error
}

func (e *recordingExecutor) Begin(ctx context.Context) (context.Context, error) {
	e.begin++
	return context.WithValue(ctx, txKey{}, true), nil
}

func (e *recordingExecutor) Commit(ctx context.Context) error {
	e.commit++
	return e.commitErr
}

func (e *recordingExecutor) RollBack(ctx context.Context) error {
	e.rollback++
	return nil
}

type recordingBus struct {
	mu     sync.Mutex
	events []*DomainEvent
	// 事务内被调用
	inTx bool
}

func (b *recordingBus) Dispatch(ctx context.Context, evts ...*DomainEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.inTx, _ = ctx.Value(txKey{}).(bool)
	b.events = append(b.events, evts...)
	return nil
}

func (b *recordingBus) RegisterEventHandler(cb DomainEventHandler) {
}

type createCartCommand struct {
	ids    []string
	main   func(ctx context.Context) error
	saved  bool
	result []*cart
}

func (c *createCartCommand) Init(ctx context.Context) (lockKeys []string, err error) {
	return c.ids, nil
}

func (c *createCartCommand) Main(ctx context.Context, repo *Repository) error {
	if c.main != nil {
		if err := c.main(ctx); err != nil {
			return err
		}
	}
	for _, id := range c.ids {
		item := &cart{ID: id}
		repo.Add(item)
		c.result = append(c.result, item)
	}
	repo.Output(len(c.result))
	return nil
}

func (c *createCartCommand) PostSave(ctx context.Context, res *Result) {
	c.saved = true
}

func TestEngineRun(t *testing.T) {
	ctx := context.Background()
	locker, executor, bus := newRecordingLock(), &recordingExecutor{}, &recordingBus{}
	engine := NewEngine(locker, executor, WithEventBus(bus))

	cmd := &createCartCommand{ids: []string{"b", "a"}}
	res := engine.Run(ctx, cmd)
	require.NoError(t, res.Error)
	assert.Equal(t, 2, res.Output)
	assert.True(t, cmd.saved)

	// 锁按 key 排序后依次获取，结束后全部释放
	assert.Equal(t, []string{"sale_engine_a", "sale_engine_b"}, locker.locked)
	assert.Equal(t, 2, locker.unlocked)
	assert.Equal(t, 1, executor.begin)
	assert.Equal(t, 1, executor.commit)
	assert.Equal(t, 0, executor.rollback)

	require.Len(t, bus.events, 2)
	assert.True(t, bus.inTx)
	for _, c := range cmd.result {
		assert.Equal(t, 1, c.created)
		assert.Empty(t, c.GetEvents())
	}
}

func TestEngineRepeatedLockKey(t *testing.T) {
	locker, executor := newRecordingLock(), &recordingExecutor{}
	called := false
	res := NewEngine(locker, executor).Run(context.Background(), &createCartCommand{
		ids:  []string{"a", "a"},
		main: func(ctx context.Context) error { called = true; return nil },
	})
	assert.ErrorContains(t, res.Error, "repeated")
	assert.False(t, called)
	assert.Empty(t, locker.locked)
	assert.Equal(t, 0, executor.begin)
}

func TestEngineLockFailed(t *testing.T) {
	locker, executor := newRecordingLock(), &recordingExecutor{}
	locker.err = ErrEntityLocked
	res := NewEngine(locker, executor).Run(context.Background(), &createCartCommand{ids: []string{"a"}})
	assert.ErrorIs(t, res.Error, ErrEntityLocked)
	assert.Equal(t, 0, executor.begin)
}

func TestEngineMainError(t *testing.T) {
	executor, bus := &recordingExecutor{}, &recordingBus{}
	cmd := &createCartCommand{
		ids:  []string{"a"},
		main: func(ctx context.Context) error { return fmt.Errorf("out of stock") },
	}
	res := NewEngine(newRecordingLock(), executor, WithEventBus(bus)).Run(context.Background(), cmd)
	assert.EqualError(t, res.Error, "out of stock")
	assert.False(t, cmd.saved)
	assert.Equal(t, 1, executor.rollback)
	assert.Equal(t, 0, executor.commit)
	assert.Empty(t, bus.events)
}

func TestEngineBreak(t *testing.T) {
	executor := &recordingExecutor{}
	res := NewEngine(nil, executor).Run(context.Background(), func(ctx context.Context, repo *Repository) error {
		return ErrBreak
	})
	assert.NoError(t, res.Error)
	assert.True(t, res.Break)
	assert.Equal(t, 1, executor.rollback)
}

func TestEngineCommitFailed(t *testing.T) {
	executor := &recordingExecutor{commitErr: fmt.Errorf("connection reset")}
	cmd := &createCartCommand{ids: []string{"a"}}
	res := NewEngine(nil, executor).Run(context.Background(), cmd)
	assert.EqualError(t, res.Error, "connection reset")
	assert.False(t, cmd.saved)
}

type postCommitBus struct {
	recordingBus
}

func (b *postCommitBus) DispatchAfterCommit() {}

func TestEnginePostCommitDispatch(t *testing.T) {
	t.Run("commit failed", func(t *testing.T) {
		executor, bus := &recordingExecutor{commitErr: fmt.Errorf("connection reset")}, &postCommitBus{}
		res := NewEngine(nil, executor, WithEventBus(bus)).Run(context.Background(), &createCartCommand{ids: []string{"a"}})
		assert.EqualError(t, res.Error, "connection reset")
		assert.Equal(t, 1, executor.commit)
		assert.Empty(t, bus.events)
	})

	t.Run("main failed", func(t *testing.T) {
		executor, bus := &recordingExecutor{}, &postCommitBus{}
		res := NewEngine(nil, executor, WithEventBus(bus)).Run(context.Background(), &createCartCommand{
			ids:  []string{"a"},
			main: func(ctx context.Context) error { return fmt.Errorf("out of stock") },
		})
		assert.Error(t, res.Error)
		assert.Equal(t, 1, executor.rollback)
		assert.Empty(t, bus.events)
	})

	t.Run("committed", func(t *testing.T) {
		executor, bus := &recordingExecutor{}, &postCommitBus{}
		res := NewEngine(nil, executor, WithEventBus(bus)).Run(context.Background(), &createCartCommand{ids: []string{"a"}})
		require.NoError(t, res.Error)
		assert.Equal(t, 1, executor.commit)
		require.Len(t, bus.events, 1)
		assert.Equal(t, EventType("engine_test_cart"), bus.events[0].Type)
		assert.False(t, bus.inTx)
	})

	t.Run("dry run", func(t *testing.T) {
		bus := &postCommitBus{}
		res := NewEngine(nil, &recordingExecutor{}, WithEventBus(bus), WithDryRun).Run(context.Background(), &createCartCommand{ids: []string{"a"}})
		require.NoError(t, res.Error)
		assert.Empty(t, bus.events)
	})
}

func TestEngineTrack(t *testing.T) {
	ctx := context.Background()
	bus := &recordingBus{}
	engine := NewEngine(nil, nil, WithEventBus(bus))
	clean, dirty := &cart{ID: "clean"}, &cart{ID: "dirty"}

	res := engine.Run(ctx, MainFunc(func(ctx context.Context, repo *Repository) error {
		repo.Track(clean, dirty)
		dirty.Items++
		dirty.Dirty()
		return nil
	}))
	require.NoError(t, res.Error)
	assert.Equal(t, 0, clean.updated)
	assert.Equal(t, 1, dirty.updated)
	assert.False(t, dirty.IsDirty())
	require.Len(t, bus.events, 1)
	assert.Equal(t, "dirty", bus.events[0].Sender)

	res = engine.Run(ctx, MainFunc(func(ctx context.Context, repo *Repository) error {
		repo.Track(clean)
		repo.Add(clean)
		return nil
	}))
	assert.ErrorIs(t, res.Error, ErrEntityRepeated)
}

func TestEngineDryRun(t *testing.T) {
	bus := &recordingBus{}
	res := NewEngine(nil, nil, WithEventBus(bus), WithDryRun).Run(context.Background(), &createCartCommand{ids: []string{"a"}})
	require.NoError(t, res.Error)
	assert.Empty(t, bus.events)
}

func TestEngineWithoutTransaction(t *testing.T) {
	executor := &recordingExecutor{}
	res := NewEngine(nil, executor, WithoutTransaction).Run(context.Background(), &createCartCommand{ids: []string{"a"}})
	require.NoError(t, res.Error)
	assert.Equal(t, 0, executor.begin)
}

func TestEngineEventOrder(t *testing.T) {
	bus := &recordingBus{}
	res := NewEngine(nil, nil, WithEventBus(bus)).Run(context.Background(), func(ctx context.Context, repo *Repository) error {
		c := &cart{ID: "c1"}
		for i := 0; i < 5; i++ {
			c.AddEvent(&cartEvent{CartID: c.ID, Action: fmt.Sprintf("step_%d", i)})
		}
		repo.Add(c)
		return nil
	})
	require.NoError(t, res.Error)
	require.Len(t, bus.events, 6)
	for i := 1; i < len(bus.events); i++ {
		prev, cur := bus.events[i-1], bus.events[i]
		assert.False(t, cur.CreatedAt.Before(prev.CreatedAt))
	}
	assert.Contains(t, string(bus.events[0].Payload), "step_0")
	assert.Contains(t, string(bus.events[5].Payload), "created")
}

func TestEngineStage(t *testing.T) {
	ctx := context.Background()
	locker := newRecordingLock()
	hooked := false
	res := NewEngine(locker, nil).NewStage().
		WithOption(WithPostSave(func(ctx context.Context, res *Result) { hooked = true })).
		Lock("x").
		Main(func(ctx context.Context, repo *Repository) error {
			repo.Output("done")
			return nil
		}).Save(ctx)
	require.NoError(t, res.Error)
	assert.Equal(t, "done", res.Output)
	assert.True(t, hooked)
	assert.Equal(t, []string{"sale_engine_x"}, locker.locked)
}

func TestEngineLockSerializes(t *testing.T) {
	engine := NewEngine(testsuit.NewMemLock(), nil)
	var mu sync.Mutex
	running, maxRunning := 0, 0
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res := engine.NewStage().Lock("shared").Main(func(ctx context.Context, repo *Repository) error {
				mu.Lock()
				running++
				if running > maxRunning {
					maxRunning = running
				}
				mu.Unlock()
				time.Sleep(5 * time.Millisecond)
				mu.Lock()
				running--
				mu.Unlock()
				return nil
			}).Save(context.Background())
			assert.NoError(t, res.Error)
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, maxRunning)
}

type checkoutEvent struct {
	CartID string
}

func (e *checkoutEvent) GetType() EventType {
	return "engine_test_checkout"
}

func (e *checkoutEvent) GetSender() string {
	return e.CartID
}

func TestEngineRegisterEventHandler(t *testing.T) {
	ctx := context.Background()
	bus := &recordingBus{}
	engine := NewEngine(nil, nil, WithEventBus(bus))

	engine.RegisterEventHandler("engine_test_checkout", func(evt *checkoutEvent) MainFunc {
		return func(ctx context.Context, repo *Repository) error {
			c := &cart{ID: evt.CartID}
			repo.Add(c)
			return nil
		}
	})

	require.NoError(t, onEvent(ctx, NewDomainEvent(&checkoutEvent{CartID: "from_event"})))
	require.Len(t, bus.events, 1)
	assert.Equal(t, "from_event", bus.events[0].Sender)

	assert.Panics(t, func() {
		engine.RegisterEventHandler("engine_test_checkout", func(evt checkoutEvent) MainFunc { return nil })
	})
}
