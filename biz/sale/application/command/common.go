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
	"fmt"

	ddd "github.com/bytedance/dddsale"
	"github.com/bytedance/dddsale/biz/sale/domain"
)

func productLockKey(id int64) string {
	return fmt.Sprintf("product_%d", id)
}

func saleLockKey(id int64) string {
	return fmt.Sprintf("sale_%d", id)
}

// loadSale customerID 非空时按客户范围查询，非本人的销售单视为不存在
func loadSale(ctx context.Context, store domain.SaleStore, id int64, customerID *string) (*domain.Sale, error) {
	var sale *domain.Sale
	var err error
	if customerID != nil {
		sale, err = store.FindByIDForCustomer(ctx, *customerID, id)
	} else {
		sale, err = store.FindByID(ctx, id)
	}
	if errors.Is(err, ddd.ErrEntityNotFound) {
		return nil, domain.NewSaleNotFoundError(id)
	}
	if err != nil {
		return nil, err
	}
	return sale, nil
}
