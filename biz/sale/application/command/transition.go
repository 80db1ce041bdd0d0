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
	"fmt"

	ddd "github.com/bytedance/dddsale"
	"github.com/bytedance/dddsale/biz/sale/domain"
)

// CancelSaleCommand customerID 为空时是管理端取消，否则只能取消本人的销售单
type CancelSaleCommand struct {
	store      domain.SaleStore
	saleID     int64
	customerID *string

	Result string
}

func NewCancelSaleCommand(store domain.SaleStore, saleID int64) *CancelSaleCommand {
	return &CancelSaleCommand{store: store, saleID: saleID}
}

func NewUserCancelSaleCommand(store domain.SaleStore, customerID string, saleID int64) *CancelSaleCommand {
	return &CancelSaleCommand{store: store, saleID: saleID, customerID: &customerID}
}

func (c *CancelSaleCommand) Init(ctx context.Context) (lockKeys []string, err error) {
	return []string{saleLockKey(c.saleID)}, nil
}

func (c *CancelSaleCommand) Main(ctx context.Context, repo *ddd.Repository) error {
	sale, err := loadSale(ctx, c.store, c.saleID, c.customerID)
	if err != nil {
		return err
	}
	repo.Track(sale)
	if err := sale.Cancel(); err != nil {
		return err
	}
	if err := c.store.Update(ctx, sale); err != nil {
		return err
	}
	c.Result = fmt.Sprintf("Sale with Id %d canceled successfully", sale.ID)
	repo.Output(c.Result)
	return nil
}

type RefundSaleCommand struct {
	store  domain.SaleStore
	saleID int64

	Result string
}

func NewRefundSaleCommand(store domain.SaleStore, saleID int64) *RefundSaleCommand {
	return &RefundSaleCommand{store: store, saleID: saleID}
}

func (c *RefundSaleCommand) Init(ctx context.Context) (lockKeys []string, err error) {
	return []string{saleLockKey(c.saleID)}, nil
}

func (c *RefundSaleCommand) Main(ctx context.Context, repo *ddd.Repository) error {
	sale, err := loadSale(ctx, c.store, c.saleID, nil)
	if err != nil {
		return err
	}
	repo.Track(sale)
	if err := sale.Refund(); err != nil {
		return err
	}
	if err := c.store.Update(ctx, sale); err != nil {
		return err
	}
	c.Result = fmt.Sprintf("Sale with Id %d refunded successfully", sale.ID)
	repo.Output(c.Result)
	return nil
}
