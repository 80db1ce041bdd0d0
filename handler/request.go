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
	"github.com/bytedance/dddsale/common/dto/sale"
)

type CreateSaleRequest struct {
	CustomerID string           `json:"CustomerID"`
	Items      []*sale.CartItem `json:"Items"`
	Notes      string           `json:"Notes,omitempty"`
	Address    *sale.Address    `json:"Address,omitempty"`
}

type CreateSaleResponse struct {
	Sale *sale.Sale `json:"Sale"`
}

type UpdateSaleStatusRequest struct {
	ID     int64  `json:"ID"`
	Status string `json:"Status"`
}

type UpdateSaleStatusResponse struct {
	Message string `json:"Message"`
}

type CancelSaleRequest struct {
	ID int64 `json:"ID"`
}

type CancelSaleResponse struct {
	Message string `json:"Message"`
}

type UserCancelSaleRequest struct {
	CustomerID string `json:"CustomerID"`
	ID         int64  `json:"ID"`
}

type UserCancelSaleResponse struct {
	Message string `json:"Message"`
}

type RefundSaleRequest struct {
	ID int64 `json:"ID"`
}

type RefundSaleResponse struct {
	Message string `json:"Message"`
}

type DeleteSaleRequest struct {
	ID int64 `json:"ID"`
}

type DeleteSaleResponse struct {
	Message string `json:"Message"`
}

type GetSaleRequest struct {
	ID int64 `json:"ID"`
}

type GetSaleResponse struct {
	Sale *sale.Sale `json:"Sale"`
}

type GetCustomerSaleRequest struct {
	CustomerID string `json:"CustomerID"`
	ID         int64  `json:"ID"`
}

type GetCustomerSaleResponse struct {
	Sale *sale.Sale `json:"Sale"`
}

type ListCustomerSalesRequest struct {
	CustomerID      string `json:"CustomerID"`
	CreateTimeBegin *int64 `json:"CreateTimeBegin,omitempty"`
	CreateTimeEnd   *int64 `json:"CreateTimeEnd,omitempty"`
	Offset          *int32 `json:"Offset,omitempty"`
	Limit           *int32 `json:"Limit,omitempty"`
}

type ListCustomerSalesResponse struct {
	Items []*sale.SimpleSale `json:"Items"`
}
