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
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func catalog() []*Product {
	return []*Product{
		{ID: 1, Name: "Dog Food", UnitPrice: decimal.RequireFromString("44.37"), Discount: DiscountFivePercent, StockQuantity: 300},
		{ID: 2, Name: "Cat Tree", UnitPrice: decimal.RequireFromString("66.99"), Discount: DiscountFifteenPercent, StockQuantity: 600},
		{ID: 3, Name: "Leash", UnitPrice: decimal.RequireFromString("12.50"), Discount: DiscountNone, StockQuantity: 10},
	}
}

func TestNewSalePricing(t *testing.T) {
	products := catalog()
	sale, err := NewSale(&CheckoutRequest{
		CustomerID: "customer-a",
		Items:      []CartItem{{ProductID: 1, Quantity: 10}, {ProductID: 2, Quantity: 20}},
		Notes:      "leave at door",
	}, products)
	require.NoError(t, err)

	require.Len(t, sale.Lines, 2)
	assert.Equal(t, SaleStatusPending, sale.Status)
	assert.Nil(t, sale.UpdatedAt)
	assert.False(t, sale.CreatedAt.IsZero())
	assert.Equal(t, "leave at door", sale.Notes)

	l1, l2 := sale.Lines[0], sale.Lines[1]
	assert.Equal(t, "42.1515", l1.DiscountedUnitPrice.String())
	assert.Equal(t, "421.515", l1.FinalPrice.String())
	assert.Equal(t, "443.7", l1.GrossPrice.String())
	assert.Equal(t, "421.52", l1.FinalPrice.Round(2).StringFixed(2))
	assert.Equal(t, "1138.83", l2.FinalPrice.Round(2).StringFixed(2))
	assert.Equal(t, "1560.35", sale.TotalPrice.Round(2).StringFixed(2))

	assert.True(t, sale.TotalPrice.Equal(l1.FinalPrice.Add(l2.FinalPrice)))
	for _, l := range sale.Lines {
		assert.True(t, l.FinalPrice.Equal(decimal.NewFromInt(l.Quantity).Mul(l.DiscountedUnitPrice)))
		assert.True(t, l.DiscountedUnitPrice.LessThanOrEqual(l.UnitPrice))
	}

	assert.Equal(t, int64(290), products[0].StockQuantity)
	assert.Equal(t, int64(580), products[1].StockQuantity)
	assert.Equal(t, int64(10), products[2].StockQuantity)
}

func TestNewSaleProductNotFound(t *testing.T) {
	products := catalog()
	_, err := NewSale(&CheckoutRequest{
		CustomerID: "customer-a",
		Items:      []CartItem{{ProductID: 1, Quantity: 1}, {ProductID: 99, Quantity: 1}},
	}, products)
	require.Error(t, err)
	assert.Equal(t, KindNotFound, KindOf(err))
	assert.Equal(t, "Product with Id 99 not found", err.Error())
	assert.Equal(t, int64(300), products[0].StockQuantity)
}

func TestNewSaleInsufficientStock(t *testing.T) {
	products := catalog()
	_, err := NewSale(&CheckoutRequest{
		CustomerID: "customer-a",
		Items:      []CartItem{{ProductID: 1, Quantity: 5}, {ProductID: 3, Quantity: 30}},
	}, products)
	require.Error(t, err)
	assert.Equal(t, KindInsufficientStock, KindOf(err))
	assert.Equal(t, "Insufficient stock for product Leash. Available: 10, Requested: 30", err.Error())
	// 全部校验通过前不扣减任何库存
	assert.Equal(t, int64(300), products[0].StockQuantity)
	assert.Equal(t, int64(10), products[2].StockQuantity)
}

func TestNewSaleMergeDuplicates(t *testing.T) {
	products := catalog()
	sale, err := NewSale(&CheckoutRequest{
		CustomerID: "customer-a",
		Items: []CartItem{
			{ProductID: 3, Quantity: 4},
			{ProductID: 1, Quantity: 1},
			{ProductID: 3, Quantity: 6},
		},
	}, products)
	require.NoError(t, err)
	require.Len(t, sale.Lines, 2)
	assert.Equal(t, int64(3), sale.Lines[0].ProductID)
	assert.Equal(t, int64(10), sale.Lines[0].Quantity)
	assert.Equal(t, int64(0), products[2].StockQuantity)

	// 合并后超出库存
	_, err = NewSale(&CheckoutRequest{
		CustomerID: "customer-a",
		Items:      []CartItem{{ProductID: 1, Quantity: 200}, {ProductID: 1, Quantity: 200}},
	}, catalog())
	assert.Equal(t, KindInsufficientStock, KindOf(err))
}

func TestNewSaleInvalidInput(t *testing.T) {
	cases := []struct {
		name string
		req  *CheckoutRequest
		msg  string
	}{
		{"empty cart", &CheckoutRequest{CustomerID: "c"}, "Sale must contain at least one item"},
		{"zero quantity", &CheckoutRequest{CustomerID: "c", Items: []CartItem{{ProductID: 1, Quantity: 0}}}, "Quantity for product with Id 1 must be greater than zero"},
		{"negative quantity", &CheckoutRequest{CustomerID: "c", Items: []CartItem{{ProductID: 2, Quantity: -3}}}, "Quantity for product with Id 2 must be greater than zero"},
		{"no customer", &CheckoutRequest{Items: []CartItem{{ProductID: 1, Quantity: 1}}}, "Customer id is required"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			products := catalog()
			_, err := NewSale(c.req, products)
			require.Error(t, err)
			assert.Equal(t, KindInvalidInput, KindOf(err))
			assert.Equal(t, c.msg, err.Error())
			assert.Equal(t, int64(300), products[0].StockQuantity)
		})
	}
}

func TestNewSaleQuantityOverflow(t *testing.T) {
	products := catalog()
	_, err := NewSale(&CheckoutRequest{
		CustomerID: "customer-a",
		Items:      []CartItem{{ProductID: 3, Quantity: math.MaxInt64}, {ProductID: 3, Quantity: 2}},
	}, products)
	require.Error(t, err)
	assert.Equal(t, KindInvalidInput, KindOf(err))
	assert.Equal(t, "Quantity for product with Id 3 is too large", err.Error())
	assert.Equal(t, int64(10), products[2].StockQuantity)

	// 合并结果恰好为上限时交给库存校验
	_, err = NewSale(&CheckoutRequest{
		CustomerID: "customer-a",
		Items:      []CartItem{{ProductID: 3, Quantity: math.MaxInt64 - 1}, {ProductID: 3, Quantity: 1}},
	}, products)
	assert.Equal(t, KindInsufficientStock, KindOf(err))
	assert.Equal(t, int64(10), products[2].StockQuantity)
}

func TestNewSaleInvalidDiscount(t *testing.T) {
	for _, tier := range []DiscountTier{-20, 7, 120} {
		products := []*Product{{ID: 9, Name: "Bone", UnitPrice: decimal.NewFromInt(10), Discount: tier, StockQuantity: 5}}
		sale, err := NewSale(&CheckoutRequest{
			CustomerID: "customer-a",
			Items:      []CartItem{{ProductID: 9, Quantity: 1}},
		}, products)
		assert.Nil(t, sale)
		assert.Equal(t, KindInvalidInput, KindOf(err))
		assert.Contains(t, err.Error(), "invalid discount tier")
		assert.Equal(t, int64(5), products[0].StockQuantity)
	}

	// 合法档位的折后价不高于原价
	for tier := DiscountNone; tier <= DiscountFiftyPercent; tier += 5 {
		require.True(t, tier.IsValid())
		price := decimal.RequireFromString("44.37")
		discounted := tier.Apply(price)
		assert.True(t, discounted.LessThanOrEqual(price))
		assert.True(t, discounted.IsPositive())
	}
}

func TestProductIDs(t *testing.T) {
	req := &CheckoutRequest{Items: []CartItem{{ProductID: 5}, {ProductID: 2}, {ProductID: 5}}}
	assert.Equal(t, []int64{5, 2}, req.ProductIDs())
}

func TestDiscountTier(t *testing.T) {
	price := decimal.RequireFromString("100")
	assert.Equal(t, "100", DiscountNone.Apply(price).String())
	assert.Equal(t, "50", DiscountFiftyPercent.Apply(price).String())
	assert.Equal(t, "9.5", DiscountFivePercent.Apply(decimal.NewFromInt(10)).String())

	assert.True(t, DiscountThirtyFivePercent.IsValid())
	assert.False(t, DiscountTier(7).IsValid())
	assert.False(t, DiscountTier(55).IsValid())
	assert.False(t, DiscountTier(-5).IsValid())
}
