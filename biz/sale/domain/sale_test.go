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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sale_event "github.com/bytedance/dddsale/common/domain_event/sale"
)

func newTestSale(status SaleStatus) *Sale {
	return &Sale{ID: 7, CustomerID: "customer-a", Status: status, CreatedAt: time.Now()}
}

var allStatuses = []SaleStatus{
	SaleStatusPending, SaleStatusProcessing, SaleStatusCompleted, SaleStatusCanceled, SaleStatusRefunded,
}

func TestCancel(t *testing.T) {
	for _, status := range allStatuses {
		sale := newTestSale(status)
		err := sale.Cancel()
		if status == SaleStatusPending || status == SaleStatusProcessing {
			require.NoError(t, err, status.String())
			assert.Equal(t, SaleStatusCanceled, sale.Status)
			assert.NotNil(t, sale.UpdatedAt)
			assert.True(t, sale.IsDirty())
			continue
		}
		require.Error(t, err, status.String())
		assert.Equal(t, KindInvalidTransition, KindOf(err))
		assert.Equal(t, "Unable to cancel a Sale with status: "+status.String(), err.Error())
		assert.Equal(t, status, sale.Status)
		assert.Nil(t, sale.UpdatedAt)
		assert.Empty(t, sale.GetEvents())
	}
}

func TestRefund(t *testing.T) {
	for _, status := range allStatuses {
		sale := newTestSale(status)
		err := sale.Refund()
		if status == SaleStatusCompleted {
			require.NoError(t, err)
			assert.Equal(t, SaleStatusRefunded, sale.Status)
			continue
		}
		require.Error(t, err)
		assert.Equal(t, "Unable to refund a Sale with status: "+status.String(), err.Error())
		assert.Equal(t, status, sale.Status)
	}
}

func TestCancelRefunded(t *testing.T) {
	err := newTestSale(SaleStatusRefunded).Cancel()
	assert.EqualError(t, err, "Unable to cancel a Sale with status: Refunded")
}

func TestGuardedTransitionsNeverReturnToPending(t *testing.T) {
	for _, status := range allStatuses {
		for _, op := range []func(*Sale) error{(*Sale).Cancel, (*Sale).Refund} {
			sale := newTestSale(status)
			_ = op(sale)
			if status != SaleStatusPending {
				assert.NotEqual(t, SaleStatusPending, sale.Status)
			}
		}
	}
}

func TestUpdateStatusUnguarded(t *testing.T) {
	sale := newTestSale(SaleStatusRefunded)
	require.NoError(t, sale.UpdateStatus(SaleStatusPending))
	assert.Equal(t, SaleStatusPending, sale.Status)

	// 设置为当前状态依然更新时间
	sale = newTestSale(SaleStatusCompleted)
	require.NoError(t, sale.UpdateStatus(SaleStatusCompleted))
	assert.Equal(t, SaleStatusCompleted, sale.Status)
	assert.NotNil(t, sale.UpdatedAt)

	err := sale.UpdateStatus(SaleStatus(42))
	assert.Equal(t, KindInvalidInput, KindOf(err))
}

func TestSaleEvents(t *testing.T) {
	sale := newTestSale(SaleStatusPending)
	require.NoError(t, sale.AfterCreate(context.Background()))
	require.NoError(t, sale.Cancel())
	sale.MarkDeleted()
	sale.MarkDeleted()

	events := sale.GetEvents()
	require.Len(t, events, 3)
	assert.Equal(t, sale_event.EventSaleCreated, events[0].Type)
	assert.Equal(t, sale_event.EventSaleStatusChanged, events[1].Type)
	assert.JSONEq(t, `{"SaleID":7,"From":"Pending","To":"Canceled"}`, string(events[1].Payload))
	assert.Equal(t, sale_event.EventSaleDeleted, events[2].Type)
	assert.True(t, sale.IsDeleted)
}

func TestParseSaleStatus(t *testing.T) {
	for _, status := range allStatuses {
		parsed, ok := ParseSaleStatus(status.String())
		require.True(t, ok)
		assert.Equal(t, status, parsed)
	}
	s, ok := ParseSaleStatus(" completed ")
	assert.True(t, ok)
	assert.Equal(t, SaleStatusCompleted, s)

	_, ok = ParseSaleStatus("Shipped")
	assert.False(t, ok)
	assert.Equal(t, "Unknown", SaleStatus(9).String())
}
