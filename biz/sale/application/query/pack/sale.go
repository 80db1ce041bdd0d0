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

package pack

import (
	"github.com/shopspring/decimal"

	"github.com/bytedance/dddsale/biz/sale/domain"
	"github.com/bytedance/dddsale/biz/sale/infrastructure/po"
	"github.com/bytedance/dddsale/common/dto/sale"
)

// 对外金额保留两位小数，四舍五入
const moneyPlaces = 2

func money(d decimal.Decimal) decimal.Decimal {
	return d.Round(moneyPlaces)
}

func MakeSaleLine(l *domain.SaleLine) *sale.SaleLine {
	return &sale.SaleLine{
		ProductID:           l.ProductID,
		ProductName:         l.ProductName,
		Quantity:            l.Quantity,
		UnitPrice:           money(l.UnitPrice),
		DiscountedUnitPrice: money(l.DiscountedUnitPrice),
		GrossPrice:          money(l.GrossPrice),
		FinalPrice:          money(l.FinalPrice),
	}
}

func makeAddress(a domain.Address) *sale.Address {
	if a == (domain.Address{}) {
		return nil
	}
	return &sale.Address{
		StreetNumber: a.StreetNumber,
		StreetName:   a.StreetName,
		City:         a.City,
		State:        a.State,
		Country:      a.Country,
		ZipCode:      a.ZipCode,
	}
}

// MakeSale 销售单响应投影，不做任何 I/O
func MakeSale(s *domain.Sale) *sale.Sale {
	lines := make([]*sale.SaleLine, 0, len(s.Lines))
	for _, l := range s.Lines {
		lines = append(lines, MakeSaleLine(l))
	}
	return &sale.Sale{
		ID:         s.ID,
		CreatedAt:  s.CreatedAt,
		UpdatedAt:  s.UpdatedAt,
		CustomerID: s.CustomerID,
		TotalPrice: money(s.TotalPrice),
		Status:     s.Status.String(),
		Notes:      s.Notes,
		Address:    makeAddress(s.Address),
		Lines:      lines,
	}
}

func MakeSaleFromPO(s *po.SalePO, lines []*po.SaleLinePO) *sale.Sale {
	do := &domain.Sale{
		ID:         s.ID,
		CreatedAt:  s.CreatedAt,
		UpdatedAt:  s.UpdatedAt,
		CustomerID: s.CustomerID,
		TotalPrice: s.TotalPrice,
		Status:     domain.SaleStatus(s.Status),
		Notes:      s.Notes,
		Address: domain.Address{
			StreetNumber: s.StreetNumber,
			StreetName:   s.StreetName,
			City:         s.City,
			State:        s.State,
			Country:      s.Country,
			ZipCode:      s.ZipCode,
		},
	}
	for _, l := range lines {
		do.Lines = append(do.Lines, &domain.SaleLine{
			ProductID:           l.ProductID,
			ProductName:         l.ProductName,
			Quantity:            l.Quantity,
			UnitPrice:           l.UnitPrice,
			DiscountedUnitPrice: l.DiscountedUnitPrice,
			GrossPrice:          l.GrossPrice,
			FinalPrice:          l.FinalPrice,
		})
	}
	return MakeSale(do)
}

func MakeSimpleSale(s *po.SalePO, lineCount int) *sale.SimpleSale {
	return &sale.SimpleSale{
		ID:         s.ID,
		CreatedAt:  s.CreatedAt,
		TotalPrice: money(s.TotalPrice),
		Status:     domain.SaleStatus(s.Status).String(),
		LineCount:  lineCount,
	}
}

func MakeSimpleSaleList(pos []*po.SalePO, lineCounts map[int64]int) []*sale.SimpleSale {
	result := make([]*sale.SimpleSale, 0, len(pos))
	for _, s := range pos {
		result = append(result, MakeSimpleSale(s, lineCounts[s.ID]))
	}
	return result
}
