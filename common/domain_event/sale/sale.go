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

package sale

import (
	"strconv"

	ddd "github.com/bytedance/dddsale"
)

const EventSaleCreated ddd.EventType = "sale_created"
const EventSaleStatusChanged ddd.EventType = "sale_status_changed"
const EventSaleDeleted ddd.EventType = "sale_deleted"

// SaleCreatedEvent 事件定义，以Event结尾，过去式命名
type SaleCreatedEvent struct {
	SaleID     int64
	CustomerID string
	Total      string
	LineCount  int
}

func NewSaleCreatedEvent(saleID int64, customerID, total string, lineCount int) *SaleCreatedEvent {
	return &SaleCreatedEvent{
		SaleID:     saleID,
		CustomerID: customerID,
		Total:      total,
		LineCount:  lineCount,
	}
}

func (e SaleCreatedEvent) GetType() ddd.EventType {
	return EventSaleCreated
}

func (e SaleCreatedEvent) GetSender() string {
	return strconv.FormatInt(e.SaleID, 10)
}

type SaleStatusChangedEvent struct {
	SaleID int64
	From   string
	To     string
}

func NewSaleStatusChangedEvent(saleID int64, from, to string) *SaleStatusChangedEvent {
	return &SaleStatusChangedEvent{SaleID: saleID, From: from, To: to}
}

func (e SaleStatusChangedEvent) GetType() ddd.EventType {
	return EventSaleStatusChanged
}

func (e SaleStatusChangedEvent) GetSender() string {
	return strconv.FormatInt(e.SaleID, 10)
}

type SaleDeletedEvent struct {
	SaleID int64
}

func NewSaleDeletedEvent(saleID int64) *SaleDeletedEvent {
	return &SaleDeletedEvent{SaleID: saleID}
}

func (e SaleDeletedEvent) GetType() ddd.EventType {
	return EventSaleDeleted
}

func (e SaleDeletedEvent) GetSender() string {
	return strconv.FormatInt(e.SaleID, 10)
}
