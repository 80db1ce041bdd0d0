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
	"errors"
	"fmt"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/go-logr/logr"
	"github.com/robfig/cron"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	ddd "github.com/bytedance/dddsale"
	"github.com/bytedance/dddsale/logger"
	"github.com/bytedance/dddsale/logger/stdr"
)

const retryInterval = time.Second * 3
const retryLimit = 5
const runInterval = time.Millisecond * 100

// 每天凌晨两点清理
const cleanCron = "0 0 2 * * *"

// 消费完成的事件保留一段时间以便追查
const retentionTime = 48 * time.Hour
const consumeConcurrent = 1
const limitPerRun = 100
const cleanBatch = 10

var ErrServiceNotCreate = fmt.Errorf("service not create")

var defaultLogger = stdr.NewStdr("mysql_eventbus")

type IRetryStrategy interface {
	// Next 返回下一次重试信息，nil 表示不再重试
	Next(info *RetryInfo) *RetryInfo
}

// IntervalRetry 固定间隔重试
type IntervalRetry struct {
	Interval time.Duration
	Limit    int
}

func (c *IntervalRetry) Next(info *RetryInfo) *RetryInfo {
	if info.RetryCount >= c.Limit {
		return nil
	}
	lastTime := info.RetryTime
	if info.RetryCount == 0 {
		lastTime = time.Now()
	}
	return &RetryInfo{
		ID:         info.ID,
		RetryCount: info.RetryCount + 1,
		RetryTime:  lastTime.Add(c.Interval),
	}
}

// CustomRetry 自定义每次重试的间隔
type CustomRetry struct {
	Intervals []time.Duration
}

func (c *CustomRetry) Next(info *RetryInfo) *RetryInfo {
	if info.RetryCount >= len(c.Intervals) {
		return nil
	}
	lastTime := info.RetryTime
	if info.RetryCount == 0 {
		lastTime = time.Now()
	}
	return &RetryInfo{
		ID:         info.ID,
		RetryCount: info.RetryCount + 1,
		RetryTime:  lastTime.Add(c.Intervals[info.RetryCount]),
	}
}

type Options struct {
	RetryLimit    int
	RetryInterval time.Duration
	CustomRetry   []time.Duration
	RetryStrategy IRetryStrategy

	DefaultOffset     *int64        // 默认起始 offset，不指定时从最新事件开始
	RunInterval       time.Duration // 轮询间隔
	CleanCron         string        // 清理周期
	RetentionTime     time.Duration // 已消费事件的保留时间
	LimitPerRun       int           // 每次轮询最大处理条数
	ConsumeConcurrent int
	Logger            logr.Logger
}

type Option func(opt *Options)

// DBProvider 返回 ctx 对应的 gorm 句柄，事务内应返回事务句柄
type DBProvider interface {
	DB(ctx context.Context) *gorm.DB
}

// EventBus 事件与业务数据同库同事务落表，后台轮询推送，保证至少一次投递
type EventBus struct {
	serviceName   string
	db            *gorm.DB
	provider      DBProvider
	logger        logr.Logger
	opt           Options
	retryStrategy IRetryStrategy

	cb        ddd.DomainEventHandler
	cleanCron *cron.Cron
	mu        sync.Mutex
	once      sync.Once
}

// NewEventBus serviceName 为消费方名称，同名服务之间只有一个实例在消费
// provider 一般传入 executor，使事件写入和业务写入处于同一事务
func NewEventBus(serviceName string, db *gorm.DB, provider DBProvider, options ...Option) *EventBus {
	if utf8.RuneCountInString(serviceName) > 30 {
		panic("serviceName must less than 30 chars")
	}

	opt := Options{
		RunInterval:       runInterval,
		CleanCron:         cleanCron,
		RetentionTime:     retentionTime,
		ConsumeConcurrent: consumeConcurrent,
		LimitPerRun:       limitPerRun,
		Logger:            defaultLogger,
	}
	for _, o := range options {
		o(&opt)
	}
	if _, err := cron.Parse(opt.CleanCron); err != nil {
		panic(fmt.Sprintf("cron expression %s is invalid", opt.CleanCron))
	}
	if opt.RetentionTime < 0 {
		panic(fmt.Sprintf("retentionTime %v can not be negative", opt.RetentionTime))
	}
	var strategy IRetryStrategy
	if opt.RetryStrategy != nil {
		strategy = opt.RetryStrategy
	} else if opt.RetryInterval > 0 {
		strategy = &IntervalRetry{Interval: opt.RetryInterval, Limit: opt.RetryLimit}
	} else if len(opt.CustomRetry) > 0 {
		strategy = &CustomRetry{Intervals: opt.CustomRetry}
	} else {
		strategy = &IntervalRetry{Interval: retryInterval, Limit: retryLimit}
	}

	return &EventBus{
		serviceName:   serviceName,
		db:            db,
		provider:      provider,
		logger:        opt.Logger,
		retryStrategy: strategy,
		opt:           opt,
		cleanCron:     cron.New(),
	}
}

// Migrate 建表并登记消费方
func (e *EventBus) Migrate() error {
	if err := e.db.AutoMigrate(&EventPO{}, &ServicePO{}); err != nil {
		return err
	}
	return e.db.Where(ServicePO{Name: e.serviceName}).FirstOrCreate(&ServicePO{}).Error
}

// Options 引擎使用该事件总线需要的选项，提交成功后立刻触发一次消费
func (e *EventBus) Options() []ddd.Option {
	return []ddd.Option{
		ddd.WithEventBus(e),
		ddd.WithPostSave(e.onPostSave),
	}
}

func (e *EventBus) getDB(ctx context.Context) *gorm.DB {
	if e.provider != nil {
		return e.provider.DB(ctx)
	}
	return e.db.WithContext(ctx)
}

func (e *EventBus) Dispatch(ctx context.Context, events ...*ddd.DomainEvent) error {
	if len(events) == 0 {
		return nil
	}
	pos := make([]*EventPO, len(events))
	for i, evt := range events {
		pos[i] = eventPersist(evt)
	}
	return e.getDB(ctx).Create(pos).Error
}

func (e *EventBus) RegisterEventHandler(cb ddd.DomainEventHandler) {
	e.cb = cb
}

func (e *EventBus) onPostSave(ctx context.Context, res *ddd.Result) {
	go func() {
		if err := e.handleEvents(context.Background()); err != nil {
			e.logger.Error(err, "handle events after save failed")
		}
	}()
}

func (e *EventBus) lockService(tx *gorm.DB) (*ServicePO, error) {
	service := &ServicePO{}
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("name = ?", e.serviceName).
		Take(service).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrServiceNotCreate
		}
		return nil, err
	}
	return service, nil
}

func (e *EventBus) getScanEvents(db *gorm.DB, service *ServicePO) ([]*EventPO, error) {
	if service.Offset == 0 {
		if e.opt.DefaultOffset != nil {
			service.Offset = *e.opt.DefaultOffset
		} else {
			lastEvent := &EventPO{}
			if err := db.Order("id desc").Take(lastEvent).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return nil, nil
				}
				return nil, err
			}
			// 从最新的一条开始，且包含该条
			service.Offset = lastEvent.ID - 1
		}
	}
	eventPOs := make([]*EventPO, 0)
	if err := db.Where("id > ?", service.Offset).Order("id").Limit(e.opt.LimitPerRun).Find(&eventPOs).Error; err != nil {
		return nil, err
	}
	return eventPOs, nil
}

func (e *EventBus) getRetryEvents(db *gorm.DB, service *ServicePO) ([]*EventPO, error) {
	now := time.Now()
	retryIDs := make([]int64, 0)
	for _, info := range service.Retry {
		if info.RetryTime.Before(now) {
			retryIDs = append(retryIDs, info.ID)
		}
	}
	if len(retryIDs) == 0 {
		return nil, nil
	}

	eventPOs := make([]*EventPO, 0)
	if err := db.Where("id in ?", retryIDs).Find(&eventPOs).Error; err != nil {
		return nil, err
	}
	return eventPOs, nil
}

// doRetryStrategy 计算新的重试列表：本轮失败的按策略重试，未到期的保留，成功的移除
func (e *EventBus) doRetryStrategy(service *ServicePO, attempted map[int64]bool, failedIDs []int64) (retry, failed []*RetryInfo) {
	retryInfos := make(map[int64]*RetryInfo)
	for _, info := range service.Retry {
		retryInfos[info.ID] = info
		if !attempted[info.ID] {
			retry = append(retry, info)
		}
	}

	for _, id := range failedIDs {
		info := retryInfos[id]
		if info == nil {
			info = &RetryInfo{ID: id}
		}
		if newInfo := e.retryStrategy.Next(info); newInfo != nil {
			retry = append(retry, newInfo)
		} else {
			failed = append(failed, info)
		}
	}
	return
}

func (e *EventBus) dispatchEvents(ctx context.Context, eventPOs []*EventPO) (success, failed []int64) {
	events := make(chan *EventPO, len(eventPOs))
	for _, po := range eventPOs {
		events <- po
	}
	close(events)

	mu := sync.Mutex{}
	wg := sync.WaitGroup{}
	for i := 0; i < e.opt.ConsumeConcurrent; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for po := range events {
				var err error
				if e.cb != nil {
					err = e.cb(ctx, po.Event)
				}
				mu.Lock()
				if err != nil {
					e.logger.Error(err, "consume event failed", "id", po.ID, "type", po.EventType)
					failed = append(failed, po.ID)
				} else {
					success = append(success, po.ID)
				}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	return
}

func (e *EventBus) handleEvents(ctx context.Context) error {
	// 同一进程内串行，跨实例依赖 service 行锁
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		service, err := e.lockService(tx)
		if err != nil {
			return err
		}
		scanEvents, err := e.getScanEvents(tx, service)
		if err != nil {
			return err
		}
		retryEvents, err := e.getRetryEvents(tx, service)
		if err != nil {
			return err
		}
		events := make([]*EventPO, 0, len(scanEvents)+len(retryEvents))
		events = append(events, scanEvents...)
		events = append(events, retryEvents...)
		if len(events) == 0 {
			return nil
		}

		attempted := make(map[int64]bool, len(retryEvents))
		for _, po := range retryEvents {
			attempted[po.ID] = true
		}
		_, failedIDs := e.dispatchEvents(ctx, events)
		retry, failed := e.doRetryStrategy(service, attempted, failedIDs)
		service.Retry = retry
		service.Failed = append(service.Failed, failed...)
		if len(scanEvents) > 0 {
			service.Offset = scanEvents[len(scanEvents)-1].ID
		}
		e.logger.V(logger.LevelDebug).Info("events handled", "count", len(events), "failed", len(failedIDs))
		return tx.Save(service).Error
	})
}

// cleanEvents 删除所有消费方都已消费且超过保留期的事件，重试中和失败的事件保留
func (e *EventBus) cleanEvents(ctx context.Context) error {
	db := e.db.WithContext(ctx)
	var services []*ServicePO
	if err := db.Find(&services).Error; err != nil {
		return err
	}
	if len(services) == 0 {
		return nil
	}
	keep := map[int64]bool{}
	slowest := services[0].Offset
	for _, service := range services {
		for _, si := range service.Retry {
			keep[si.ID] = true
		}
		for _, si := range service.Failed {
			keep[si.ID] = true
		}
		if service.Offset < slowest {
			slowest = service.Offset
		}
	}
	if slowest == 0 {
		return nil
	}

	ids := make([]int64, 0)
	if err := db.Model(&EventPO{}).
		Where("id <= ? AND created_at < ?", slowest, time.Now().Add(-e.opt.RetentionTime)).
		Pluck("id", &ids).Error; err != nil {
		return err
	}

	batch := make([]int64, 0, cleanBatch)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		err := db.Where("id in ?", batch).Delete(&EventPO{}).Error
		batch = batch[:0]
		return err
	}
	for _, id := range ids {
		if keep[id] {
			continue
		}
		batch = append(batch, id)
		if len(batch) >= cleanBatch {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	return flush()
}

// Start 启动轮询和定时清理，ctx 结束后退出
func (e *EventBus) Start(ctx context.Context) {
	run := func() {
		ticker := time.NewTicker(e.opt.RunInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				e.cleanCron.Stop()
				return
			case <-ticker.C:
				if err := e.handleEvents(ctx); err != nil && !errors.Is(err, context.Canceled) {
					e.logger.Error(err, "handle events failed")
				}
			}
		}
	}

	e.once.Do(func() {
		if err := e.cleanCron.AddFunc(e.opt.CleanCron, func() {
			if err := e.cleanEvents(ctx); err != nil {
				e.logger.Error(err, "clean events failed")
			}
		}); err != nil {
			e.logger.Error(err, "register clean cron failed")
		}
		e.cleanCron.Start()
		go run()
	})
}
