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

type DeleteSaleCommand struct {
	store  domain.SaleStore
	saleID int64

	Result string
}

func NewDeleteSaleCommand(store domain.SaleStore, saleID int64) *DeleteSaleCommand {
	return &DeleteSaleCommand{store: store, saleID: saleID}
}

func (c *DeleteSaleCommand) Init(ctx context.Context) (lockKeys []string, err error) {
	return []string{saleLockKey(c.saleID)}, nil
}

func (c *DeleteSaleCommand) Main(ctx context.Context, repo *ddd.Repository) error {
	sale, err := loadSale(ctx, c.store, c.saleID, nil)
	if err != nil {
		return err
	}
	repo.Track(sale)
	sale.MarkDeleted()
	if err := c.store.Update(ctx, sale); err != nil {
		return err
	}
	c.Result = fmt.Sprintf("Sale with Id %d deleted successfully", sale.ID)
	repo.Output(c.Result)
	return nil
}
