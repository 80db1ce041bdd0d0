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

package dal

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	ddd "github.com/bytedance/dddsale"
	"github.com/bytedance/dddsale/biz/sale/infrastructure/po"
)

type DAL struct {
	db *gorm.DB
}

func NewDAL(db *gorm.DB) *DAL {
	return &DAL{db: db}
}

// GetSaleByID customerID 非空时只查该客户的销售单，已删除的视为不存在
func (d DAL) GetSaleByID(ctx context.Context, id int64, customerID *string) (*po.SalePO, error) {
	db := d.db.WithContext(ctx).Where("id = ? AND is_deleted = ?", id, false)
	if customerID != nil {
		db = db.Where("customer_id = ?", *customerID)
	}
	sale := &po.SalePO{}
	if err := db.Take(sale).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ddd.ErrEntityNotFound
		}
		return nil, errors.Wrapf(err, "get sale %d", id)
	}
	return sale, nil
}

func (d DAL) GetSaleLines(ctx context.Context, saleID int64) ([]*po.SaleLinePO, error) {
	return FindSaleLines(d.db.WithContext(ctx), saleID)
}

type SearchSaleOpt struct {
	CustomerID   *string
	CreateTimeGT *time.Time
	CreateTimeLT *time.Time
	Offset       *int32
	Limit        *int32
}

func (d DAL) GetSaleList(ctx context.Context, opt SearchSaleOpt) ([]*po.SalePO, error) {
	db := d.db.WithContext(ctx).Where("is_deleted = ?", false)
	if opt.CustomerID != nil {
		db = db.Where("customer_id = ?", *opt.CustomerID)
	}
	if opt.CreateTimeGT != nil {
		db = db.Where("created_at > ?", *opt.CreateTimeGT)
	}
	if opt.CreateTimeLT != nil {
		db = db.Where("created_at < ?", *opt.CreateTimeLT)
	}
	if opt.Offset != nil {
		db = db.Offset(int(*opt.Offset))
	}
	if opt.Limit != nil {
		db = db.Limit(int(*opt.Limit))
	}
	result := make([]*po.SalePO, 0)
	if err := db.Order("created_at desc, id desc").Find(&result).Error; err != nil {
		return nil, errors.Wrap(err, "list sales")
	}
	return result, nil
}

type lineCount struct {
	SaleID int64
	Count  int
}

// CountSaleLines 按销售单统计明细行数
func (d DAL) CountSaleLines(ctx context.Context, saleIDs []int64) (map[int64]int, error) {
	result := make(map[int64]int, len(saleIDs))
	if len(saleIDs) == 0 {
		return result, nil
	}
	rows := make([]*lineCount, 0)
	if err := d.db.WithContext(ctx).Model(&po.SaleLinePO{}).
		Select("sale_id, COUNT(*) AS count").
		Where("sale_id IN ?", saleIDs).
		Group("sale_id").
		Scan(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "count sale lines")
	}
	for _, r := range rows {
		result[r.SaleID] = r.Count
	}
	return result, nil
}

// FindSaleLines 查询明细并带出商品名，商品缺失时名称为空
func FindSaleLines(db *gorm.DB, saleIDs ...int64) ([]*po.SaleLinePO, error) {
	lines := make([]*po.SaleLinePO, 0)
	err := db.Model(&po.SaleLinePO{}).
		Select("sale_line.*, COALESCE(product.name, '') AS product_name").
		Joins("LEFT JOIN product ON product.id = sale_line.product_id").
		Where("sale_line.sale_id IN ?", saleIDs).
		Order("sale_line.sale_id, sale_line.position").
		Find(&lines).Error
	if err != nil {
		return nil, errors.Wrapf(err, "find lines of sales %v", saleIDs)
	}
	return lines, nil
}
