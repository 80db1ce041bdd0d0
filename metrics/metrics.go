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

package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "dddsale"

type SaleMetrics struct {
	Requests      *prometheus.CounterVec
	LatencyMS     *prometheus.HistogramVec
	SalesCreated  prometheus.Counter
	ItemsSold     prometheus.Counter
	StatusChanges *prometheus.CounterVec
	SalesDeleted  prometheus.Counter
}

// NewSaleMetrics reg 为空时注册到默认 registry
func NewSaleMetrics(reg prometheus.Registerer) *SaleMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &SaleMetrics{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Total number of sale service calls.",
		}, []string{"action", "kind"}),
		LatencyMS: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_ms",
			Help:      "Sale service call latency in milliseconds.",
			Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}, []string{"action"}),
		SalesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sales_created_total",
			Help:      "Number of sales created.",
		}),
		ItemsSold: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sale_lines_total",
			Help:      "Number of sale lines created.",
		}),
		StatusChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sale_status_changes_total",
			Help:      "Sale status transitions.",
		}, []string{"from", "to"}),
		SalesDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sales_deleted_total",
			Help:      "Number of sales soft deleted.",
		}),
	}
	reg.MustRegister(m.Requests, m.LatencyMS, m.SalesCreated, m.ItemsSold, m.StatusChanges, m.SalesDeleted)
	return m
}

// HandlerFor 暴露指定 registry 的指标
func HandlerFor(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
