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

package command

import (
	"context"
	"errors"

	ddd "github.com/bytedance/dddsale"
	"github.com/bytedance/dddsale/biz/sale/domain"
)

type CreateSaleCommand struct {
	catalog domain.ProductCatalog
	store   domain.SaleStore
	req     *domain.CheckoutRequest

	Result *domain.Sale
}

func NewCreateSaleCommand(catalog domain.ProductCatalog, store domain.SaleStore, req *domain.CheckoutRequest) *CreateSaleCommand {
	return &CreateSaleCommand{
		catalog: catalog,
		store:   store,
		req:     req,
	}
}

// Init 入参校验失败时不加锁直接返回；按商品加锁，同一商品的结算串行执行
func (c *CreateSaleCommand) Init(ctx context.Context) (lockKeys []string, err error) {
	if err := c.req.Normalize(); err != nil {
		return nil, err
	}
	for _, id := range c.req.ProductIDs() {
		lockKeys = append(lockKeys, productLockKey(id))
	}
	return lockKeys, nil
}

func (c *CreateSaleCommand) Main(ctx context.Context, repo *ddd.Repository) error {
	products, err := c.catalog.FetchProductsByIDs(ctx, c.req.ProductIDs())
	if err != nil {
		return err
	}
	sale, err := domain.NewSale(c.req, products)
	if err != nil {
		return err
	}

	// 库存扣减与销售单写入在同一事务内，任一失败整体回滚
	for _, line := range sale.Lines {
		if err := c.catalog.DecrementStock(ctx, line.ProductID, line.Quantity); err != nil {
			if errors.Is(err, domain.ErrStockConflict) {
				return c.stockConflict(ctx, line)
			}
			return err
		}
	}
	if err := c.store.Insert(ctx, sale); err != nil {
		return err
	}

	repo.Add(sale)
	repo.Output(sale)
	c.Result = sale
	return nil
}

// stockConflict 条件扣减失败时按最新库存给出提示
func (c *CreateSaleCommand) stockConflict(ctx context.Context, line *domain.SaleLine) error {
	products, err := c.catalog.FetchProductsByIDs(ctx, []int64{line.ProductID})
	if err != nil {
		return err
	}
	if len(products) == 0 {
		return domain.NewProductNotFoundError(line.ProductID)
	}
	return domain.NewInsufficientStockError(line.ProductName, products[0].StockQuantity, line.Quantity)
}
