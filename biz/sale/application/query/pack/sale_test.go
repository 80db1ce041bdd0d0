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

package pack

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bytedance/dddsale/biz/sale/domain"
	"github.com/bytedance/dddsale/biz/sale/infrastructure/po"
)

func TestMakeSale(t *testing.T) {
	products := []*domain.Product{
		{ID: 1, Name: "Dog Food", UnitPrice: decimal.RequireFromString("44.37"), Discount: domain.DiscountFivePercent, StockQuantity: 300},
		{ID: 2, Name: "Cat Tree", UnitPrice: decimal.RequireFromString("66.99"), Discount: domain.DiscountFifteenPercent, StockQuantity: 600},
	}
	s, err := domain.NewSale(&domain.CheckoutRequest{
		CustomerID: "customer-a",
		Items:      []domain.CartItem{{ProductID: 1, Quantity: 10}, {ProductID: 2, Quantity: 20}},
	}, products)
	require.NoError(t, err)
	s.ID = 5

	resp := MakeSale(s)
	assert.Equal(t, int64(5), resp.ID)
	assert.Equal(t, "Pending", resp.Status)
	assert.Nil(t, resp.Address)
	assert.Nil(t, resp.UpdatedAt)
	assert.Equal(t, "1560.35", resp.TotalPrice.StringFixed(2))
	require.Len(t, resp.Lines, 2)
	assert.Equal(t, "421.52", resp.Lines[0].FinalPrice.StringFixed(2))
	assert.Equal(t, "42.15", resp.Lines[0].DiscountedUnitPrice.StringFixed(2))
	assert.Equal(t, "1138.83", resp.Lines[1].FinalPrice.StringFixed(2))
	assert.Equal(t, "1339.8", resp.Lines[1].GrossPrice.String())
	assert.Equal(t, "Cat Tree", resp.Lines[1].ProductName)

	// 投影不修改领域对象
	assert.Equal(t, "1560.345", s.TotalPrice.String())
}

func TestMakeSaleFromPOMissingName(t *testing.T) {
	now := time.Now()
	resp := MakeSaleFromPO(&po.SalePO{
		ID:         9,
		CustomerID: "customer-a",
		TotalPrice: decimal.RequireFromString("10"),
		Status:     int8(domain.SaleStatusCompleted),
		City:       "Lima",
		CreatedAt:  now,
	}, []*po.SaleLinePO{{SaleID: 9, ProductID: 4, Quantity: 1, FinalPrice: decimal.RequireFromString("10")}})

	assert.Equal(t, "Completed", resp.Status)
	require.NotNil(t, resp.Address)
	assert.Equal(t, "Lima", resp.Address.City)
	require.Len(t, resp.Lines, 1)
	assert.Equal(t, "", resp.Lines[0].ProductName)
}

func TestMakeSimpleSaleList(t *testing.T) {
	list := MakeSimpleSaleList([]*po.SalePO{
		{ID: 1, TotalPrice: decimal.RequireFromString("1.005"), Status: int8(domain.SaleStatusCanceled)},
		{ID: 2, TotalPrice: decimal.RequireFromString("3")},
	}, map[int64]int{1: 3})
	require.Len(t, list, 2)
	assert.Equal(t, "1.01", list[0].TotalPrice.StringFixed(2))
	assert.Equal(t, "Canceled", list[0].Status)
	assert.Equal(t, 3, list[0].LineCount)
	assert.Equal(t, 0, list[1].LineCount)
}
