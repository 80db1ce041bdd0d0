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
	"errors"
	"fmt"

	ddd "github.com/bytedance/dddsale"
)

type ErrorKind int8

const (
	KindUnknown ErrorKind = iota
	KindNotFound
	KindInvalidInput
	KindInsufficientStock
	KindInvalidTransition
	KindStorageFailure
)

func (k ErrorKind) String() string {
	switch k {
	case KindNotFound:
		return "NotFound"
	case KindInvalidInput:
		return "InvalidInput"
	case KindInsufficientStock:
		return "InsufficientStock"
	case KindInvalidTransition:
		return "InvalidTransition"
	case KindStorageFailure:
		return "StorageFailure"
	}
	return "Unknown"
}

// ErrStockConflict 条件扣减未命中，说明库存已被并发消耗
var ErrStockConflict = fmt.Errorf("stock conflict")

// SaleError 业务错误，Message 直接展示给调用方
type SaleError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *SaleError) Error() string {
	return e.Message
}

func (e *SaleError) Unwrap() error {
	return e.Err
}

// IsBusiness 业务结果而非系统故障
func (e *SaleError) IsBusiness() bool {
	return e.Kind != KindStorageFailure && e.Kind != KindUnknown
}

func KindOf(err error) ErrorKind {
	var se *SaleError
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindUnknown
}

func NewSaleNotFoundError(id int64) *SaleError {
	return &SaleError{
		Kind:    KindNotFound,
		Message: fmt.Sprintf("Sale with Id %d not found", id),
		Err:     ddd.ErrEntityNotFound,
	}
}

func NewProductNotFoundError(id int64) *SaleError {
	return &SaleError{
		Kind:    KindNotFound,
		Message: fmt.Sprintf("Product with Id %d not found", id),
	}
}

// NewInvalidDiscountError 商品目录中的折扣档位不合法，拒绝结算
func NewInvalidDiscountError(productID int64, tier DiscountTier) *SaleError {
	return &SaleError{
		Kind:    KindInvalidInput,
		Message: fmt.Sprintf("Product with Id %d has an invalid discount tier: %d", productID, tier),
	}
}

func NewInsufficientStockError(name string, available, requested int64) *SaleError {
	return &SaleError{
		Kind:    KindInsufficientStock,
		Message: fmt.Sprintf("Insufficient stock for product %s. Available: %d, Requested: %d", name, available, requested),
	}
}

func NewInvalidInputError(format string, args ...interface{}) *SaleError {
	return &SaleError{
		Kind:    KindInvalidInput,
		Message: fmt.Sprintf(format, args...),
	}
}

func newInvalidTransitionError(t transition, current SaleStatus) *SaleError {
	return &SaleError{
		Kind:    KindInvalidTransition,
		Message: fmt.Sprintf("Unable to %s a Sale with status: %s", transitionNames[t], current),
	}
}

// NewStorageFailure 非业务错误统一转换为存储故障
func NewStorageFailure(op string, err error) *SaleError {
	return &SaleError{
		Kind:    KindStorageFailure,
		Message: fmt.Sprintf("Failed to %s: %v", op, err),
		Err:     err,
	}
}
