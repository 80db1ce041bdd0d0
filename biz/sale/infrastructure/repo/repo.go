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

package repo

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	ddd "github.com/bytedance/dddsale"
	"github.com/bytedance/dddsale/biz/sale/domain"
	"github.com/bytedance/dddsale/biz/sale/infrastructure/dal"
	"github.com/bytedance/dddsale/biz/sale/infrastructure/po"
)

// DBProvider 返回 ctx 对应的 gorm 句柄，引擎事务内返回事务句柄
type DBProvider interface {
	DB(ctx context.Context) *gorm.DB
}

type ProductRepo struct {
	provider DBProvider
}

func NewProductRepo(provider DBProvider) *ProductRepo {
	return &ProductRepo{provider: provider}
}

func (r *ProductRepo) FetchProductsByIDs(ctx context.Context, ids []int64) ([]*domain.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	pos := make([]*po.ProductPO, 0, len(ids))
	if err := r.provider.DB(ctx).Where("id IN ? AND is_deleted = ?", ids, false).Find(&pos).Error; err != nil {
		return nil, errors.Wrapf(err, "fetch products %v", ids)
	}
	products := make([]*domain.Product, 0, len(pos))
	for _, p := range pos {
		products = append(products, productFromPO(p))
	}
	return products, nil
}

// DecrementStock 条件扣减，并发下库存已不足时不更新任何行
func (r *ProductRepo) DecrementStock(ctx context.Context, productID int64, quantity int64) error {
	if quantity <= 0 {
		return errors.Errorf("decrement stock of product %d: invalid quantity %d", productID, quantity)
	}
	res := r.provider.DB(ctx).Model(&po.ProductPO{}).
		Where("id = ? AND stock_quantity >= ?", productID, quantity).
		UpdateColumn("stock_quantity", gorm.Expr("stock_quantity - ?", quantity))
	if res.Error != nil {
		return errors.Wrapf(res.Error, "decrement stock of product %d", productID)
	}
	if res.RowsAffected == 0 {
		return domain.ErrStockConflict
	}
	return nil
}

type SaleRepo struct {
	provider DBProvider
}

func NewSaleRepo(provider DBProvider) *SaleRepo {
	return &SaleRepo{provider: provider}
}

func (r *SaleRepo) Insert(ctx context.Context, sale *domain.Sale) error {
	db := r.provider.DB(ctx)
	salePO := saleToPO(sale)
	if err := db.Create(salePO).Error; err != nil {
		return errors.Wrap(err, "insert sale")
	}
	lines := make([]*po.SaleLinePO, 0, len(sale.Lines))
	for i, l := range sale.Lines {
		lines = append(lines, lineToPO(salePO.ID, i, l))
	}
	if len(lines) > 0 {
		if err := db.Create(lines).Error; err != nil {
			return errors.Wrapf(err, "insert lines of sale %d", salePO.ID)
		}
	}
	sale.ID = salePO.ID
	return nil
}

// Update 明细和金额创建后不变，只更新状态相关的列
func (r *SaleRepo) Update(ctx context.Context, sale *domain.Sale) error {
	res := r.provider.DB(ctx).Model(&po.SalePO{ID: sale.ID}).
		Select("status", "is_deleted", "updated_at").
		Updates(saleToPO(sale))
	if res.Error != nil {
		return errors.Wrapf(res.Error, "update sale %d", sale.ID)
	}
	return nil
}

func (r *SaleRepo) FindByID(ctx context.Context, id int64) (*domain.Sale, error) {
	return r.find(ctx, r.provider.DB(ctx).Where("id = ?", id))
}

func (r *SaleRepo) FindByIDForCustomer(ctx context.Context, customerID string, id int64) (*domain.Sale, error) {
	return r.find(ctx, r.provider.DB(ctx).Where("id = ? AND customer_id = ?", id, customerID))
}

func (r *SaleRepo) find(ctx context.Context, query *gorm.DB) (*domain.Sale, error) {
	salePO := &po.SalePO{}
	if err := query.Where("is_deleted = ?", false).Take(salePO).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ddd.ErrEntityNotFound
		}
		return nil, errors.Wrap(err, "find sale")
	}
	lines, err := dal.FindSaleLines(r.provider.DB(ctx), salePO.ID)
	if err != nil {
		return nil, err
	}
	return saleFromPO(salePO, lines), nil
}
