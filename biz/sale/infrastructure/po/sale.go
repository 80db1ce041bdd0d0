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

type SalePO struct {
	ID           int64           `gorm:"primaryKey;autoIncrement"`
	CustomerID   string          `gorm:"type:varchar(64);index"`
	TotalPrice   decimal.Decimal `gorm:"type:decimal(18,4)"`
	Status       int8
	Notes        string     `gorm:"type:varchar(1024)"`
	IsDeleted    bool       `gorm:"index"`
	StreetNumber string     `gorm:"type:varchar(32)"`
	StreetName   string     `gorm:"type:varchar(255)"`
	City         string     `gorm:"type:varchar(128)"`
	State        string     `gorm:"type:varchar(128)"`
	Country      string     `gorm:"type:varchar(128)"`
	ZipCode      string     `gorm:"type:varchar(32)"`
	CreatedAt    time.Time  `gorm:"index"`
	UpdatedAt    *time.Time `gorm:"autoUpdateTime:false"` // 首次变更前为空
}

func (s *SalePO) TableName() string {
	return "sale"
}

// SaleLinePO 主键为 (sale_id, product_id)
type SaleLinePO struct {
	SaleID              int64 `gorm:"primaryKey;autoIncrement:false"`
	ProductID           int64 `gorm:"primaryKey;autoIncrement:false"`
	Position            int   // 购物车中的顺序
	Quantity            int64
	UnitPrice           decimal.Decimal `gorm:"type:decimal(18,4)"`
	DiscountedUnitPrice decimal.Decimal `gorm:"type:decimal(18,4)"`
	GrossPrice          decimal.Decimal `gorm:"type:decimal(18,4)"`
	FinalPrice          decimal.Decimal `gorm:"type:decimal(18,4)"`

	// 关联查询商品名，只读
	ProductName string `gorm:"->;-:migration"`
}

func (s *SaleLinePO) TableName() string {
	return "sale_line"
}
