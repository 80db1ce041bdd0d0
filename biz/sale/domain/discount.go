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
	"github.com/shopspring/decimal"
)

// DiscountTier 商品折扣档位，取值即折扣百分比
type DiscountTier int

const (
	DiscountNone              DiscountTier = 0
	DiscountFivePercent       DiscountTier = 5
	DiscountTenPercent        DiscountTier = 10
	DiscountFifteenPercent    DiscountTier = 15
	DiscountTwentyPercent     DiscountTier = 20
	DiscountTwentyFivePercent DiscountTier = 25
	DiscountThirtyPercent     DiscountTier = 30
	DiscountThirtyFivePercent DiscountTier = 35
	DiscountFortyPercent      DiscountTier = 40
	DiscountFortyFivePercent  DiscountTier = 45
	DiscountFiftyPercent      DiscountTier = 50
)

var hundred = decimal.NewFromInt(100)

func (d DiscountTier) IsValid() bool {
	return d >= DiscountNone && d <= DiscountFiftyPercent && d%5 == 0
}

func (d DiscountTier) Percent() int {
	return int(d)
}

// Apply 计算折后单价：unit - pct/100 * unit，不做舍入
// 调用方需先用 IsValid 校验档位
func (d DiscountTier) Apply(unitPrice decimal.Decimal) decimal.Decimal {
	off := unitPrice.Mul(decimal.NewFromInt(int64(d.Percent()))).Div(hundred)
	return unitPrice.Sub(off)
}
