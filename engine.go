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
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-logr/logr"

	"github.com/bytedance/dddsale/logger"
	"github.com/bytedance/dddsale/logger/stdr"
)

var ErrBreak = fmt.Errorf("break process") // 中断流程，不返回错误
var ErrEntityNotFound = fmt.Errorf("entity not found")
var ErrEntityLocked = fmt.Errorf("entity locked")
var ErrEntityRepeated = fmt.Errorf("entity already added")

var defaultLogger = stdr.NewStdr("ddd_engine")

type ILock interface {
	Lock(ctx context.Context, key string) (keyLock interface{}, err error)
	UnLock(ctx context.Context, keyLock interface{}) error
}

// noLock 未指定 ILock 时使用，仅适用于单实例
type noLock struct {
}

func (l *noLock) Lock(ctx context.Context, key string) (interface{}, error) {
	return key, nil
}

func (l *noLock) UnLock(ctx context.Context, keyLock interface{}) error {
	return nil
}

type ErrList []error

func (e ErrList) Error() string {
	errs := make([]string, 0)
	for _, err := range e {
		errs = append(errs, err.Error())
	}
	return strings.Join(errs, ", ")
}

// Unwrap 支持 errors.Is / errors.As 穿透
func (e ErrList) Unwrap() []error {
	return e
}

type Result struct {
	Error  error
	Break  bool
	Output interface{}
}

func ResultErrors(err ...error) *Result {
	return &Result{Error: ErrList(err)}
}

func ResultError(err error) *Result {
	return &Result{Error: err}
}

func ResultErrOrBreak(err error) *Result {
	if errors.Is(err, ErrBreak) {
		return &Result{Break: true}
	}
	return ResultError(err)
}

// Repository 单次运行内的聚合根登记处
// 持久化由业务仓储在事务 context 内完成，Repository 只负责登记实体以便执行 hook 和收集领域事件
type Repository struct {
	stage *Stage
	errs  []error
}

func (r *Repository) appendError(e error) {
	r.errs = append(r.errs, e)
}

func (r *Repository) getError() error {
	return errors.Join(r.errs...)
}

// Add 登记新建的聚合根，Main 成功后会调用 IAfterCreate
func (r *Repository) Add(roots ...IEntity) {
	for _, root := range roots {
		if r.stage.has(root) {
			r.appendError(ErrEntityRepeated)
			return
		}
		r.stage.created = append(r.stage.created, root)
	}
}

// Track 登记已存在的聚合根，Main 成功后对 Dirty 的实体调用 IAfterUpdate
func (r *Repository) Track(roots ...IEntity) {
	for _, root := range roots {
		if r.stage.has(root) {
			r.appendError(ErrEntityRepeated)
			return
		}
		r.stage.tracked = append(r.stage.tracked, root)
	}
}

// Output 设定命令的返回值，data 会被赋值到 Result.Output
func (r *Repository) Output(data interface{}) {
	r.stage.result.Output = data
}

type MainFunc func(ctx context.Context, repo *Repository) error
type PostSaveFunc func(ctx context.Context, res *Result)

// EventHandlerConstruct EventHandler 的构造函数，带一个入参和一个返回值，入参是与事件类型匹配的事件数据指针类型，
// 返回值支持两种:
// - ICommandMain interface
// - MainFunc type
// 示例 func(evt *SaleCreatedEvent) *OnSaleCreatedHandler
type EventHandlerConstruct interface{}

type Options struct {
	WithTransaction bool
	DryRun          bool // dryrun 模式，不发送事件
	Locker          ILock
	Executor        IExecutor
	Logger          logr.Logger
	EventBus        IEventBus
	PostSaveHooks   []PostSaveFunc
}

type Option interface {
	ApplyToOptions(*Options)
}
type TransactionOption bool

func (t TransactionOption) ApplyToOptions(opts *Options) {
	opts.WithTransaction = bool(t)
}

const WithTransaction = TransactionOption(true)
const WithoutTransaction = TransactionOption(false)

type DryRunOption bool

func (t DryRunOption) ApplyToOptions(opts *Options) {
	opts.DryRun = bool(t)
}

const WithDryRun = DryRunOption(true)

type LoggerOption struct {
	logger logr.Logger
}

func (t LoggerOption) ApplyToOptions(opts *Options) {
	opts.Logger = t.logger
}

func WithLogger(logger logr.Logger) LoggerOption {
	return LoggerOption{logger: logger}
}

type LockOption struct {
	lock ILock
}

func (t LockOption) ApplyToOptions(opts *Options) {
	opts.Locker = t.lock
}

func WithLock(lock ILock) LockOption {
	return LockOption{lock: lock}
}

type ExecutorOption struct {
	executor IExecutor
}

func (t ExecutorOption) ApplyToOptions(opts *Options) {
	opts.Executor = t.executor
}

func WithExecutor(executor IExecutor) ExecutorOption {
	return ExecutorOption{executor: executor}
}

type EventBusOption struct {
	eventBus IEventBus
}

func (t EventBusOption) ApplyToOptions(opts *Options) {
	opts.EventBus = t.eventBus
}

func WithEventBus(eventBus IEventBus) EventBusOption {
	return EventBusOption{eventBus: eventBus}
}

type PostSaveOption PostSaveFunc

func (t PostSaveOption) ApplyToOptions(opts *Options) {
	opts.PostSaveHooks = append(opts.PostSaveHooks, PostSaveFunc(t))
}

func WithPostSave(f PostSaveFunc) PostSaveOption {
	return PostSaveOption(f)
}

type Engine struct {
	options Options
	logger  logr.Logger
}

// NewEngine l 为空时不做分布式加锁，e 为空时不开启事务
func NewEngine(l ILock, e IExecutor, opts ...Option) *Engine {
	options := Options{
		Locker:   l,
		Executor: e,

		// 默认开启事务
		WithTransaction: true,
		Logger:          defaultLogger,
		EventBus:        &noEventBus{},
	}
	for _, opt := range opts {
		opt.ApplyToOptions(&options)
	}
	if options.Locker == nil {
		options.Locker = &noLock{}
	}
	options.EventBus.RegisterEventHandler(onEvent)
	return &Engine{
		options: options,
		logger:  options.Logger,
	}
}

func (e *Engine) NewStage() *Stage {
	options := e.options
	// PostSaveHooks 在 stage 上可能被追加，需要拷贝一份
	options.PostSaveHooks = append([]PostSaveFunc(nil), e.options.PostSaveHooks...)
	return &Stage{
		options: options,
		logger:  e.logger,
		result:  &Result{},
	}
}

// Run 运行命令，支持以下格式：
// 实现 ICommandMain 接口的对象，可选实现 ICommandInit、ICommandPostSave
// 类型为 func(ctx context.Context, repo *Repository) error 的函数
func (e *Engine) Run(ctx context.Context, c interface{}, opts ...Option) *Result {
	return e.NewStage().WithOption(opts...).Run(ctx, c)
}

// RegisterEventHandler 注册事件处理命令，事件到达时构造命令并通过引擎运行
func (e *Engine) RegisterEventHandler(eventType EventType, construct EventHandlerConstruct) {
	handlerType := reflect.TypeOf(construct)
	if handlerType == nil || handlerType.Kind() != reflect.Func {
		panic("construct must type of reflect.Func")
	}
	if handlerType.NumIn() != 1 || handlerType.NumOut() != 1 {
		panic("construct num of arg or output must 1")
	}

	evtType := handlerType.In(0)
	if evtType.Kind() != reflect.Ptr {
		panic("event type must be pointer")
	}
	evtType = evtType.Elem() // event type 引用实际类型
	constructFunc := reflect.ValueOf(construct)

	RegisterEventHandler(eventType, func(ctx context.Context, evt *DomainEvent) error {
		var bizEvt reflect.Value
		if evtType == domainEventType {
			bizEvt = reflect.ValueOf(evt)
		} else {
			bizEvt = reflect.New(evtType)
			if err := json.Unmarshal(evt.Payload, bizEvt.Interface()); err != nil {
				e.logger.Error(err, "unmarshal event failed")
				return err
			}
		}

		outputs := constructFunc.Call([]reflect.Value{bizEvt})

		if res := e.Run(ctx, outputs[0].Interface()); res.Error != nil {
			e.logger.Error(res.Error, "event handler exec failed", "type", eventType)
			return res.Error
		}
		return nil
	})
}

// Stage 取舞台的意思，表示单次运行
type Stage struct {
	lockKeys []string
	main     MainFunc

	logger  logr.Logger
	options Options

	created []IEntity
	tracked []IEntity
	result  *Result

	// 等待事务提交后投递的事件
	pending []*DomainEvent
}

func (e *Stage) WithOption(opts ...Option) *Stage {
	for _, opt := range opts {
		opt.ApplyToOptions(&e.options)
	}
	if e.options.Locker == nil {
		e.options.Locker = &noLock{}
	}
	e.logger = e.options.Logger
	return e
}

func (e *Stage) Lock(keys ...string) *Stage {
	e.lockKeys = keys
	return e
}

func (e *Stage) Main(f MainFunc) *Stage {
	e.main = f
	return e
}

// Run 运行命令，见 Engine.Run
func (e *Stage) Run(ctx context.Context, cmd interface{}) *Result {
	switch c := cmd.(type) {
	case ICommandMain:
		var keys []string
		var options []Option
		if cmdInit, ok := cmd.(ICommandInit); ok {
			initKeys, err := cmdInit.Init(ctx)
			if err != nil {
				return ResultErrOrBreak(err)
			}
			keys = initKeys
		}
		if cmdPostSave, ok := cmd.(ICommandPostSave); ok {
			options = append(options, PostSaveOption(cmdPostSave.PostSave))
		}
		return e.WithOption(options...).Lock(keys...).Main(c.Main).Save(ctx)
	case func(ctx context.Context, repo *Repository) error:
		return e.Main(c).Save(ctx)
	case MainFunc:
		return e.Main(c).Save(ctx)
	default:
		panic(fmt.Sprintf("cmd type %T is invalid", c))
	}
}

func (e *Stage) has(target IEntity) bool {
	for _, r := range e.created {
		if r == target {
			return true
		}
	}
	for _, r := range e.tracked {
		if r == target {
			return true
		}
	}
	return false
}

func (e *Stage) execHooks(ctx context.Context) error {
	for _, entity := range e.created {
		if h, ok := entity.(IAfterCreate); ok {
			if err := h.AfterCreate(ctx); err != nil {
				return err
			}
		}
	}
	for _, entity := range e.tracked {
		if !entity.IsDirty() {
			continue
		}
		if h, ok := entity.(IAfterUpdate); ok {
			if err := h.AfterUpdate(ctx); err != nil {
				return err
			}
		}
	}
	return nil
}

func (e *Stage) collectEvents() []*DomainEvent {
	eventMap := make(map[string]*DomainEvent, 0)
	for _, entities := range [][]IEntity{e.created, e.tracked} {
		for _, entity := range entities {
			for _, evt := range entity.GetEvents() {
				eventMap[evt.ID] = evt
			}
		}
	}
	events := make([]*DomainEvent, 0, len(eventMap))
	for _, evt := range eventMap {
		events = append(events, evt)
	}
	// 事件根据发送时间 + id 的顺序排序，id 由 xid 保证单节点严格自增
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].CreatedAt.Before(events[j].CreatedAt) ||
			(events[i].CreatedAt.Equal(events[j].CreatedAt) && events[i].ID < events[j].ID)
	})
	return events
}

// unDirty 对所有实体取消 Dirty 标记并清空已发送的事件
func (e *Stage) unDirty() {
	for _, entities := range [][]IEntity{e.created, e.tracked} {
		for _, entity := range entities {
			entity.UnDirty()
			entity.ClearEvents()
		}
	}
}

func (e *Stage) do(ctx context.Context) *Result {
	if e.main != nil {
		repo := &Repository{stage: e}
		if err := e.main(ctx, repo); err != nil {
			return ResultErrOrBreak(err)
		}
		if err := repo.getError(); err != nil {
			return ResultError(err)
		}
	}

	if err := e.execHooks(ctx); err != nil {
		return ResultErrors(err)
	}

	// 发送领域事件
	events := e.collectEvents()
	if len(events) > 0 && !e.options.DryRun {
		if e.dispatchAfterCommit() {
			e.pending = events
		} else {
			if err := e.options.EventBus.Dispatch(ctx, events...); err != nil {
				return ResultErrors(err)
			}
			e.logger.V(logger.LevelDebug).Info("events dispatched", "count", len(events))
		}
	}
	e.unDirty()
	return e.result
}

type doSave func(ctx context.Context) *Result

func (e *Stage) dispatchAfterCommit() bool {
	_, ok := e.options.EventBus.(IPostCommitEventBus)
	return ok
}

// runAfterCommit 在事务提交成功后投递暂存的事件，仍处于锁保护内
func (e *Stage) runAfterCommit(f doSave) doSave {
	return func(ctx context.Context) *Result {
		e.pending = nil
		result := f(ctx)
		events := e.pending
		e.pending = nil
		if result.Error != nil || result.Break || len(events) == 0 {
			return result
		}
		// 数据已提交，投递失败只记录日志
		if err := e.options.EventBus.Dispatch(ctx, events...); err != nil {
			e.logger.Error(err, "dispatch events after commit failed", "count", len(events))
			return result
		}
		e.logger.V(logger.LevelDebug).Info("events dispatched", "count", len(events))
		return result
	}
}

func (e *Stage) runOnLock(f doSave, lockKeys ...string) doSave {
	return func(ctx context.Context) *Result {
		sort.Strings(lockKeys)
		for i := 1; i < len(lockKeys); i++ {
			if lockKeys[i] == lockKeys[i-1] {
				return ResultErrors(fmt.Errorf("lockKey(%s) repeated", lockKeys[i]))
			}
		}

		var lockErr error
		ls := make([]interface{}, 0)
		for _, id := range lockKeys {
			l, err := e.options.Locker.Lock(ctx, fmt.Sprintf("sale_engine_%s", id))
			if err != nil {
				lockErr = fmt.Errorf("acquiring locker of %s failed: %w", id, err)
				break
			}
			ls = append(ls, l)
		}
		defer func() {
			for _, l := range ls {
				if err := e.options.Locker.UnLock(ctx, l); err != nil {
					e.logger.Error(err, "unlock failed")
				}
			}
		}()

		if lockErr != nil {
			return ResultErrors(lockErr)
		}
		return f(ctx)
	}
}

func (e *Stage) runWithTransaction(f doSave) doSave {
	return func(ctx context.Context) *Result {
		executor := e.options.Executor
		ctx, err := executor.Begin(ctx)
		if err != nil {
			return ResultErrors(err)
		}
		defer func() {
			if r := recover(); r != nil {
				if err := executor.RollBack(ctx); err != nil {
					e.logger.Error(err, "rollback failed")
				}
				panic(r)
			}
		}()
		result := f(ctx)
		if result.Error != nil || result.Break {
			if err := executor.RollBack(ctx); err != nil {
				e.logger.Error(err, "rollback failed")
			}
			return result
		}
		if err := executor.Commit(ctx); err != nil {
			result.Error = err
			e.logger.Error(err, "commit failed")
		}
		return result
	}
}

func (e *Stage) Save(ctx context.Context) *Result {
	do := e.do
	if e.options.WithTransaction && e.options.Executor != nil {
		do = e.runWithTransaction(do)
	}
	if e.dispatchAfterCommit() {
		do = e.runAfterCommit(do)
	}

	if len(e.lockKeys) > 0 {
		do = e.runOnLock(do, e.lockKeys...)
	}

	res := do(ctx)
	if res.Error == nil && len(e.options.PostSaveHooks) > 0 {
		for _, h := range e.options.PostSaveHooks {
			h(ctx, res)
		}
	}
	return res
}
