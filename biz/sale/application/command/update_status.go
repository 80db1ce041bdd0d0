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

// UpdateStatusCommand 管理端设置任意状态
type UpdateStatusCommand struct {
	store  domain.SaleStore
	saleID int64
	status domain.SaleStatus

	Result string
}

func NewUpdateStatusCommand(store domain.SaleStore, saleID int64, status domain.SaleStatus) *UpdateStatusCommand {
	return &UpdateStatusCommand{store: store, saleID: saleID, status: status}
}

func (c *UpdateStatusCommand) Init(ctx context.Context) (lockKeys []string, err error) {
	if !c.status.IsValid() {
		return nil, domain.NewInvalidInputError("Invalid sale status: %d", c.status)
	}
	return []string{saleLockKey(c.saleID)}, nil
}

func (c *UpdateStatusCommand) Main(ctx context.Context, repo *ddd.Repository) error {
	sale, err := loadSale(ctx, c.store, c.saleID, nil)
	if err != nil {
		return err
	}
	repo.Track(sale)
	if err := sale.UpdateStatus(c.status); err != nil {
		return err
	}
	if err := c.store.Update(ctx, sale); err != nil {
		return err
	}
	c.Result = fmt.Sprintf("Sale with Id %d status updated to %s", sale.ID, sale.Status)
	repo.Output(c.Result)
	return nil
}
