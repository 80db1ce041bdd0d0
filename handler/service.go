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

package handler

import (
	"context"
	"errors"
	"time"

	ddd "github.com/bytedance/dddsale"
	"github.com/bytedance/dddsale/biz/sale/application/command"
	"github.com/bytedance/dddsale/biz/sale/application/query"
	"github.com/bytedance/dddsale/biz/sale/domain"
	"github.com/bytedance/dddsale/common/dto/sale"
	"github.com/bytedance/dddsale/logger/stdr"
	"github.com/bytedance/dddsale/metrics"
)

var logger = stdr.NewStdr("sale_service")

// SaleServiceImpl 销售单对外服务，所有返回的错误都是 *domain.SaleError
type SaleServiceImpl struct {
	engine  *ddd.Engine
	catalog domain.ProductCatalog
	store   domain.SaleStore
	query   *query.SaleQuery
	metrics *metrics.SaleMetrics
}

func NewSaleService(engine *ddd.Engine, catalog domain.ProductCatalog, store domain.SaleStore, q *query.SaleQuery, m *metrics.SaleMetrics) *SaleServiceImpl {
	return &SaleServiceImpl{
		engine:  engine,
		catalog: catalog,
		store:   store,
		query:   q,
		metrics: m,
	}
}

// observe 在出口处统一转换错误并记录指标
func (s *SaleServiceImpl) observe(action, op string, start time.Time, errp *error) {
	kind := "OK"
	if *errp != nil {
		*errp = translate(action, op, *errp)
		kind = domain.KindOf(*errp).String()
	}
	if s.metrics != nil {
		s.metrics.Requests.WithLabelValues(action, kind).Inc()
		s.metrics.LatencyMS.WithLabelValues(action).Observe(float64(time.Since(start).Milliseconds()))
	}
}

// translate 业务错误剥掉引擎的包装后原样返回，其余一律视为存储故障
func translate(action, op string, err error) error {
	var se *domain.SaleError
	if errors.As(err, &se) {
		if se.IsBusiness() {
			logger.Info("request rejected", "action", action, "kind", se.Kind.String(), "reason", se.Message)
			return se
		}
		if se.Kind == domain.KindStorageFailure {
			logger.Error(err, "request failed", "action", action, "severity", "critical")
			return se
		}
	}
	logger.Error(err, "request failed", "action", action, "severity", "critical")
	return domain.NewStorageFailure(op, err)
}

func toCheckoutRequest(req *CreateSaleRequest) *domain.CheckoutRequest {
	r := &domain.CheckoutRequest{
		CustomerID: req.CustomerID,
		Notes:      req.Notes,
	}
	for _, item := range req.Items {
		if item == nil {
			continue
		}
		r.Items = append(r.Items, domain.CartItem{ProductID: item.ProductID, Quantity: item.Quantity})
	}
	if req.Address != nil {
		r.Address = domain.Address{
			StreetNumber: req.Address.StreetNumber,
			StreetName:   req.Address.StreetName,
			City:         req.Address.City,
			State:        req.Address.State,
			Country:      req.Address.Country,
			ZipCode:      req.Address.ZipCode,
		}
	}
	return r
}

// CreateSale 结算购物车，成功后重新读取销售单返回
func (s *SaleServiceImpl) CreateSale(ctx context.Context, req *CreateSaleRequest) (resp *CreateSaleResponse, err error) {
	defer s.observe("CreateSale", "create sale", time.Now(), &err)

	cmd := command.NewCreateSaleCommand(s.catalog, s.store, toCheckoutRequest(req))
	if err := s.engine.Run(ctx, cmd).Error; err != nil {
		return nil, err
	}
	created, err := s.query.GetSale(ctx, cmd.Result.ID)
	if err != nil {
		return nil, err
	}
	return &CreateSaleResponse{Sale: created}, nil
}

func (s *SaleServiceImpl) UpdateSaleStatus(ctx context.Context, req *UpdateSaleStatusRequest) (resp *UpdateSaleStatusResponse, err error) {
	defer s.observe("UpdateSaleStatus", "update sale status", time.Now(), &err)

	status, ok := domain.ParseSaleStatus(req.Status)
	if !ok {
		return nil, domain.NewInvalidInputError("Invalid sale status: %s", req.Status)
	}
	cmd := command.NewUpdateStatusCommand(s.store, req.ID, status)
	if err := s.engine.Run(ctx, cmd).Error; err != nil {
		return nil, err
	}
	return &UpdateSaleStatusResponse{Message: cmd.Result}, nil
}

func (s *SaleServiceImpl) CancelSale(ctx context.Context, req *CancelSaleRequest) (resp *CancelSaleResponse, err error) {
	defer s.observe("CancelSale", "cancel sale", time.Now(), &err)

	cmd := command.NewCancelSaleCommand(s.store, req.ID)
	if err := s.engine.Run(ctx, cmd).Error; err != nil {
		return nil, err
	}
	return &CancelSaleResponse{Message: cmd.Result}, nil
}

// UserCancelSale 顾客取消自己的销售单，非本人的销售单视为不存在
func (s *SaleServiceImpl) UserCancelSale(ctx context.Context, req *UserCancelSaleRequest) (resp *UserCancelSaleResponse, err error) {
	defer s.observe("UserCancelSale", "cancel sale", time.Now(), &err)

	cmd := command.NewUserCancelSaleCommand(s.store, req.CustomerID, req.ID)
	if err := s.engine.Run(ctx, cmd).Error; err != nil {
		return nil, err
	}
	return &UserCancelSaleResponse{Message: cmd.Result}, nil
}

func (s *SaleServiceImpl) RefundSale(ctx context.Context, req *RefundSaleRequest) (resp *RefundSaleResponse, err error) {
	defer s.observe("RefundSale", "refund sale", time.Now(), &err)

	cmd := command.NewRefundSaleCommand(s.store, req.ID)
	if err := s.engine.Run(ctx, cmd).Error; err != nil {
		return nil, err
	}
	return &RefundSaleResponse{Message: cmd.Result}, nil
}

func (s *SaleServiceImpl) DeleteSale(ctx context.Context, req *DeleteSaleRequest) (resp *DeleteSaleResponse, err error) {
	defer s.observe("DeleteSale", "delete sale", time.Now(), &err)

	cmd := command.NewDeleteSaleCommand(s.store, req.ID)
	if err := s.engine.Run(ctx, cmd).Error; err != nil {
		return nil, err
	}
	return &DeleteSaleResponse{Message: cmd.Result}, nil
}

func (s *SaleServiceImpl) GetSale(ctx context.Context, req *GetSaleRequest) (resp *GetSaleResponse, err error) {
	defer s.observe("GetSale", "get sale", time.Now(), &err)

	got, err := s.query.GetSale(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	return &GetSaleResponse{Sale: got}, nil
}

func (s *SaleServiceImpl) GetCustomerSale(ctx context.Context, req *GetCustomerSaleRequest) (resp *GetCustomerSaleResponse, err error) {
	defer s.observe("GetCustomerSale", "get sale", time.Now(), &err)

	got, err := s.query.GetCustomerSale(ctx, req.CustomerID, req.ID)
	if err != nil {
		return nil, err
	}
	return &GetCustomerSaleResponse{Sale: got}, nil
}

func (s *SaleServiceImpl) ListCustomerSales(ctx context.Context, req *ListCustomerSalesRequest) (resp *ListCustomerSalesResponse, err error) {
	defer s.observe("ListCustomerSales", "list sales", time.Now(), &err)

	opt := query.ListOpt{CustomerID: req.CustomerID}
	if req.Offset != nil {
		opt.Offset = *req.Offset
	}
	if req.Limit != nil {
		opt.Limit = *req.Limit
	}
	if req.CreateTimeBegin != nil {
		t := time.Unix(*req.CreateTimeBegin, 0)
		opt.CreatedAfter = &t
	}
	if req.CreateTimeEnd != nil {
		t := time.Unix(*req.CreateTimeEnd, 0)
		opt.CreatedBefore = &t
	}
	items, err := s.query.ListCustomerSales(ctx, opt)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []*sale.SimpleSale{}
	}
	return &ListCustomerSalesResponse{Items: items}, nil
}
