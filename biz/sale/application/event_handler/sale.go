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

package event_handler

import (
	"context"
	"sync"

	ddd "github.com/bytedance/dddsale"
	"github.com/bytedance/dddsale/common/domain_event/sale"
	"github.com/bytedance/dddsale/logger/stdr"
	"github.com/bytedance/dddsale/metrics"
)

var logger = stdr.NewStdr("sale_event_handler")

var registerOnce sync.Once

// SaleEventHandler 消费销售单事件，只记录日志和指标，不修改聚合
type SaleEventHandler struct {
	metrics *metrics.SaleMetrics
}

func NewSaleEventHandler(m *metrics.SaleMetrics) *SaleEventHandler {
	return &SaleEventHandler{metrics: m}
}

func (h *SaleEventHandler) OnSaleCreated(ctx context.Context, evt *sale.SaleCreatedEvent) error {
	logger.Info("sale created", "sale_id", evt.SaleID, "customer_id", evt.CustomerID, "total", evt.Total)
	h.metrics.SalesCreated.Inc()
	h.metrics.ItemsSold.Add(float64(evt.LineCount))
	return nil
}

func (h *SaleEventHandler) OnSaleStatusChanged(ctx context.Context, evt *sale.SaleStatusChangedEvent) error {
	logger.Info("sale status changed", "sale_id", evt.SaleID, "from", evt.From, "to", evt.To)
	h.metrics.StatusChanges.WithLabelValues(evt.From, evt.To).Inc()
	return nil
}

func (h *SaleEventHandler) OnSaleDeleted(ctx context.Context, evt *sale.SaleDeletedEvent) error {
	logger.Info("sale deleted", "sale_id", evt.SaleID)
	h.metrics.SalesDeleted.Inc()
	return nil
}

// Register 注册到全局事件路由，进程内只注册一次
func Register(h *SaleEventHandler) {
	registerOnce.Do(func() {
		ddd.RegisterEventHandler(sale.EventSaleCreated, h.OnSaleCreated)
		ddd.RegisterEventHandler(sale.EventSaleStatusChanged, h.OnSaleStatusChanged)
		ddd.RegisterEventHandler(sale.EventSaleDeleted, h.OnSaleDeleted)
	})
}
