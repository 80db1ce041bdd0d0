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
	"math"
	"strings"
)

type CartItem struct {
	ProductID int64
	Quantity  int64
}

type CheckoutRequest struct {
	CustomerID string
	Items      []CartItem
	Notes      string
	Address    Address
}

// Normalize 校验购物车并合并重复商品，顺序按首次出现
func (r *CheckoutRequest) Normalize() error {
	if strings.TrimSpace(r.CustomerID) == "" {
		return NewInvalidInputError("Customer id is required")
	}
	if len(r.Items) == 0 {
		return NewInvalidInputError("Sale must contain at least one item")
	}
	merged := make([]CartItem, 0, len(r.Items))
	index := make(map[int64]int, len(r.Items))
	for _, item := range r.Items {
		if item.Quantity <= 0 {
			return NewInvalidInputError("Quantity for product with Id %d must be greater than zero", item.ProductID)
		}
		if i, ok := index[item.ProductID]; ok {
			if merged[i].Quantity > math.MaxInt64-item.Quantity {
				return NewInvalidInputError("Quantity for product with Id %d is too large", item.ProductID)
			}
			merged[i].Quantity += item.Quantity
			continue
		}
		index[item.ProductID] = len(merged)
		merged = append(merged, item)
	}
	for _, item := range merged {
		if item.Quantity <= 0 {
			return NewInvalidInputError("Quantity for product with Id %d must be greater than zero", item.ProductID)
		}
	}
	r.Items = merged
	return nil
}

// ProductIDs 购物车中去重后的商品 id
func (r *CheckoutRequest) ProductIDs() []int64 {
	seen := make(map[int64]bool, len(r.Items))
	ids := make([]int64, 0, len(r.Items))
	for _, item := range r.Items {
		if seen[item.ProductID] {
			continue
		}
		seen[item.ProductID] = true
		ids = append(ids, item.ProductID)
	}
	return ids
}

// NewSale 结算购物车：先全部校验，通过后再生成明细并扣减内存中的库存
// 任一行校验失败时不修改任何商品
func NewSale(req *CheckoutRequest, products []*Product) (*Sale, error) {
	if err := req.Normalize(); err != nil {
		return nil, err
	}
	byID := make(map[int64]*Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	for _, item := range req.Items {
		p, ok := byID[item.ProductID]
		if !ok {
			return nil, NewProductNotFoundError(item.ProductID)
		}
		if !p.Discount.IsValid() {
			return nil, NewInvalidDiscountError(p.ID, p.Discount)
		}
	}
	for _, item := range req.Items {
		p := byID[item.ProductID]
		if p.StockQuantity < item.Quantity {
			return nil, NewInsufficientStockError(p.Name, p.StockQuantity, item.Quantity)
		}
	}

	sale := &Sale{
		CreatedAt:  nowFunc(),
		CustomerID: req.CustomerID,
		Status:     SaleStatusPending,
		Notes:      req.Notes,
		Address:    req.Address,
		Lines:      make([]*SaleLine, 0, len(req.Items)),
	}
	for _, item := range req.Items {
		p := byID[item.ProductID]
		sale.Lines = append(sale.Lines, newSaleLine(p, item.Quantity))
		p.StockQuantity -= item.Quantity
	}
	sale.TotalPrice = sale.LinesTotal()
	return sale, nil
}
