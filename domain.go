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
)

// IEntity 聚合根实体，引擎负责收集并发送实体上挂载的领域事件
type IEntity interface {
	IDirty

	GetEvents() []*DomainEvent
	ClearEvents()
}

// IAfterCreate 新建实体持久化之后的 hook，由引擎在 Main 成功后调用，此时实体已有 ID
type IAfterCreate interface {
	AfterCreate(ctx context.Context) error
}

// IAfterUpdate 已有实体变更持久化之后的 hook，仅对 IsDirty 的实体调用
type IAfterUpdate interface {
	AfterUpdate(ctx context.Context) error
}

type IDirty interface {
	// Dirty 标记实体对象是否需要更新
	Dirty()
	// UnDirty 取消实体的更新标记
	UnDirty()
	// IsDirty 判断实体是否需要更新
	IsDirty() bool
}

type BaseEntity struct {
	isDirty bool
	events  []*DomainEvent
}

func (e *BaseEntity) Dirty() {
	e.isDirty = true
}

func (e *BaseEntity) UnDirty() {
	e.isDirty = false
}

func (e *BaseEntity) IsDirty() bool {
	return e.isDirty
}

// AddEvent 实体发送事件，调用方需要保证事件是可序列化的，否则会导致 panic
func (e *BaseEntity) AddEvent(evt IEvent, opts ...EventOpt) {
	e.events = append(e.events, NewDomainEvent(evt, opts...))
}

func (e *BaseEntity) GetEvents() []*DomainEvent {
	return e.events
}

// ClearEvents 事件发送后清空，避免同一实体在下一次 Run 中重复发送
func (e *BaseEntity) ClearEvents() {
	e.events = nil
}
