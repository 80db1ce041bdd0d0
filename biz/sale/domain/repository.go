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
	"context"
)

// ProductCatalog 商品目录，FetchProductsByIDs 只返回存在的商品
type ProductCatalog interface {
	FetchProductsByIDs(ctx context.Context, ids []int64) ([]*Product, error)
	// DecrementStock 条件扣减，库存不足时返回 ErrStockConflict
	DecrementStock(ctx context.Context, productID int64, quantity int64) error
}

// SaleStore 销售单存储，查不到或已删除时返回 ddd.ErrEntityNotFound
type SaleStore interface {
	Insert(ctx context.Context, sale *Sale) error
	Update(ctx context.Context, sale *Sale) error
	FindByID(ctx context.Context, id int64) (*Sale, error)
	FindByIDForCustomer(ctx context.Context, customerID string, id int64) (*Sale, error)
}
