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

package query

import (
	"context"
	"errors"
	"time"

	ddd "github.com/bytedance/dddsale"
	"github.com/bytedance/dddsale/biz/sale/application/query/pack"
	"github.com/bytedance/dddsale/biz/sale/domain"
	"github.com/bytedance/dddsale/biz/sale/infrastructure/dal"
	"github.com/bytedance/dddsale/common/dto/sale"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// SaleQuery 读侧查询，直接读库不经过引擎
type SaleQuery struct {
	dal *dal.DAL
}

func NewSaleQuery(d *dal.DAL) *SaleQuery {
	return &SaleQuery{dal: d}
}

func (q *SaleQuery) getSale(ctx context.Context, id int64, customerID *string) (*sale.Sale, error) {
	salePO, err := q.dal.GetSaleByID(ctx, id, customerID)
	if errors.Is(err, ddd.ErrEntityNotFound) {
		return nil, domain.NewSaleNotFoundError(id)
	}
	if err != nil {
		return nil, err
	}
	lines, err := q.dal.GetSaleLines(ctx, id)
	if err != nil {
		return nil, err
	}
	return pack.MakeSaleFromPO(salePO, lines), nil
}

func (q *SaleQuery) GetSale(ctx context.Context, id int64) (*sale.Sale, error) {
	return q.getSale(ctx, id, nil)
}

func (q *SaleQuery) GetCustomerSale(ctx context.Context, customerID string, id int64) (*sale.Sale, error) {
	return q.getSale(ctx, id, &customerID)
}

type ListOpt struct {
	CustomerID    string
	Offset        int32
	Limit         int32
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}

func (q *SaleQuery) ListCustomerSales(ctx context.Context, opt ListOpt) ([]*sale.SimpleSale, error) {
	if opt.CustomerID == "" {
		return nil, domain.NewInvalidInputError("Customer id is required")
	}
	if opt.Offset < 0 {
		opt.Offset = 0
	}
	if opt.Limit <= 0 {
		opt.Limit = defaultListLimit
	}
	if opt.Limit > maxListLimit {
		opt.Limit = maxListLimit
	}
	sales, err := q.dal.GetSaleList(ctx, dal.SearchSaleOpt{
		CustomerID:   &opt.CustomerID,
		CreateTimeGT: opt.CreatedAfter,
		CreateTimeLT: opt.CreatedBefore,
		Offset:       &opt.Offset,
		Limit:        &opt.Limit,
	})
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(sales))
	for _, s := range sales {
		ids = append(ids, s.ID)
	}
	counts, err := q.dal.CountSaleLines(ctx, ids)
	if err != nil {
		return nil, err
	}
	return pack.MakeSimpleSaleList(sales, counts), nil
}
