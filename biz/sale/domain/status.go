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
	"strings"
)

type SaleStatus int8

const (
	SaleStatusPending SaleStatus = iota
	SaleStatusProcessing
	SaleStatusCompleted
	SaleStatusCanceled
	SaleStatusRefunded
)

var saleStatusLabels = map[SaleStatus]string{
	SaleStatusPending:    "Pending",
	SaleStatusProcessing: "Processing",
	SaleStatusCompleted:  "Completed",
	SaleStatusCanceled:   "Canceled",
	SaleStatusRefunded:   "Refunded",
}

func (s SaleStatus) IsValid() bool {
	_, ok := saleStatusLabels[s]
	return ok
}

// String 展示名，用于响应和提示信息
func (s SaleStatus) String() string {
	if label, ok := saleStatusLabels[s]; ok {
		return label
	}
	return "Unknown"
}

// ParseSaleStatus 按展示名解析，忽略大小写
func ParseSaleStatus(label string) (SaleStatus, bool) {
	label = strings.TrimSpace(label)
	for status, l := range saleStatusLabels {
		if strings.EqualFold(l, label) {
			return status, true
		}
	}
	return 0, false
}

type transition int8

const (
	transitionCancel transition = iota + 1
	transitionRefund
)

var transitionNames = map[transition]string{
	transitionCancel: "cancel",
	transitionRefund: "refund",
}

// 受保护的状态流转：每种流转允许的起始状态
var transitionGuards = map[transition]map[SaleStatus]bool{
	transitionCancel: {
		SaleStatusPending:    true,
		SaleStatusProcessing: true,
	},
	transitionRefund: {
		SaleStatusCompleted: true,
	},
}

var transitionTargets = map[transition]SaleStatus{
	transitionCancel: SaleStatusCanceled,
	transitionRefund: SaleStatusRefunded,
}

func (t transition) allowedFrom(s SaleStatus) bool {
	return transitionGuards[t][s]
}
