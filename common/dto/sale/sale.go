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
	"time"

	"github.com/shopspring/decimal"
)

type CartItem struct {
	ProductID int64 `json:"ProductID"`
	Quantity  int64 `json:"Quantity"`
}

type Address struct {
	StreetNumber string `json:"StreetNumber,omitempty"`
	StreetName   string `json:"StreetName,omitempty"`
	City         string `json:"City,omitempty"`
	State        string `json:"State,omitempty"`
	Country      string `json:"Country,omitempty"`
	ZipCode      string `json:"ZipCode,omitempty"`
}

type SaleLine struct {
	ProductID           int64           `json:"ProductID"`
	ProductName         string          `json:"ProductName"`
	Quantity            int64           `json:"Quantity"`
	UnitPrice           decimal.Decimal `json:"UnitPrice"`
	DiscountedUnitPrice decimal.Decimal `json:"DiscountedUnitPrice"`
	GrossPrice          decimal.Decimal `json:"GrossPrice"`
	FinalPrice          decimal.Decimal `json:"FinalPrice"`
}

// Sale 销售单对外视图，金额保留两位小数
type Sale struct {
	ID         int64           `json:"ID"`
	CreatedAt  time.Time       `json:"CreatedAt"`
	UpdatedAt  *time.Time      `json:"UpdatedAt,omitempty"`
	CustomerID string          `json:"CustomerID"`
	TotalPrice decimal.Decimal `json:"TotalPrice"`
	Status     string          `json:"Status"`
	Notes      string          `json:"Notes,omitempty"`
	Address    *Address        `json:"Address,omitempty"`
	Lines      []*SaleLine     `json:"Lines"`
}

type SimpleSale struct {
	ID         int64           `json:"ID"`
	CreatedAt  time.Time       `json:"CreatedAt"`
	TotalPrice decimal.Decimal `json:"TotalPrice"`
	Status     string          `json:"Status"`
	LineCount  int             `json:"LineCount"`
}
