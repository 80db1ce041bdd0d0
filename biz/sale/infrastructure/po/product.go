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

package po

import (
	"time"

	"github.com/shopspring/decimal"
)

type ProductPO struct {
	ID            int64           `gorm:"primaryKey;autoIncrement"`
	Name          string          `gorm:"type:varchar(255)"`
	UnitPrice     decimal.Decimal `gorm:"type:decimal(18,4)"`
	Discount      int             // 折扣百分比
	StockQuantity int64           // 库存
	IsDeleted     bool            `gorm:"index"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (p *ProductPO) TableName() string {
	return "product"
}
