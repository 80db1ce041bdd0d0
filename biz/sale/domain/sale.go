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

package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	ddd "github.com/bytedance/dddsale"
	sale_event "github.com/bytedance/dddsale/common/domain_event/sale"
)

var nowFunc = time.Now

// Address 下单时的收货地址快照
type Address struct {
	StreetNumber string
	StreetName   string
	City         string
	State        string
	Country      string
	ZipCode      string
}

// SaleLine 销售明细，创建后价格字段冻结
type SaleLine struct {
	ProductID           int64
	ProductName         string // 展示用，不持久化
	Quantity            int64
	UnitPrice           decimal.Decimal
	DiscountedUnitPrice decimal.Decimal
	GrossPrice          decimal.Decimal
	FinalPrice          decimal.Decimal
}

func newSaleLine(p *Product, quantity int64) *SaleLine {
	qty := decimal.NewFromInt(quantity)
	discounted := p.Discount.Apply(p.UnitPrice)
	return &SaleLine{
		ProductID:           p.ID,
		ProductName:         p.Name,
		Quantity:            quantity,
		UnitPrice:           p.UnitPrice,
		DiscountedUnitPrice: discounted,
		GrossPrice:          qty.Mul(p.UnitPrice),
		FinalPrice:          qty.Mul(discounted),
	}
}

type Sale struct {
	ddd.BaseEntity

	ID         int64
	CreatedAt  time.Time
	UpdatedAt  *time.Time
	CustomerID string
	TotalPrice decimal.Decimal
	Status     SaleStatus
	Notes      string
	IsDeleted  bool
	Address    Address
	Lines      []*SaleLine
}

func (s *Sale) AfterCreate(ctx context.Context) error {
	s.AddEvent(sale_event.NewSaleCreatedEvent(s.ID, s.CustomerID, s.TotalPrice.String(), len(s.Lines)))
	return nil
}

func (s *Sale) touch() {
	now := nowFunc()
	s.UpdatedAt = &now
	// dirty 在实体行为内部标记，应用层不需要感知
	s.Dirty()
}

func (s *Sale) setStatus(status SaleStatus) {
	from := s.Status
	s.Status = status
	s.touch()
	s.AddEvent(sale_event.NewSaleStatusChangedEvent(s.ID, from.String(), status.String()))
}

// UpdateStatus 管理端直接设置状态，不做流转校验
func (s *Sale) UpdateStatus(status SaleStatus) error {
	if !status.IsValid() {
		return NewInvalidInputError("Invalid sale status: %d", status)
	}
	s.setStatus(status)
	return nil
}

func (s *Sale) Cancel() error {
	return s.transit(transitionCancel)
}

func (s *Sale) Refund() error {
	return s.transit(transitionRefund)
}

func (s *Sale) transit(t transition) error {
	if !t.allowedFrom(s.Status) {
		return newInvalidTransitionError(t, s.Status)
	}
	s.setStatus(transitionTargets[t])
	return nil
}

// MarkDeleted 软删除，删除后对所有查询不可见
func (s *Sale) MarkDeleted() {
	if s.IsDeleted {
		return
	}
	s.IsDeleted = true
	s.touch()
	s.AddEvent(sale_event.NewSaleDeletedEvent(s.ID))
}

// LinesTotal 明细最终价之和
func (s *Sale) LinesTotal() decimal.Decimal {
	total := decimal.Zero
	for _, line := range s.Lines {
		total = total.Add(line.FinalPrice)
	}
	return total
}
