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
	"github.com/bytedance/dddsale/biz/sale/domain"
	"github.com/bytedance/dddsale/biz/sale/infrastructure/po"
)

func productFromPO(p *po.ProductPO) *domain.Product {
	return &domain.Product{
		ID:            p.ID,
		Name:          p.Name,
		UnitPrice:     p.UnitPrice,
		Discount:      domain.DiscountTier(p.Discount),
		StockQuantity: p.StockQuantity,
	}
}

func saleToPO(s *domain.Sale) *po.SalePO {
	return &po.SalePO{
		ID:           s.ID,
		CustomerID:   s.CustomerID,
		TotalPrice:   s.TotalPrice,
		Status:       int8(s.Status),
		Notes:        s.Notes,
		IsDeleted:    s.IsDeleted,
		StreetNumber: s.Address.StreetNumber,
		StreetName:   s.Address.StreetName,
		City:         s.Address.City,
		State:        s.Address.State,
		Country:      s.Address.Country,
		ZipCode:      s.Address.ZipCode,
		CreatedAt:    s.CreatedAt,
		UpdatedAt:    s.UpdatedAt,
	}
}

func lineToPO(saleID int64, position int, l *domain.SaleLine) *po.SaleLinePO {
	return &po.SaleLinePO{
		SaleID:              saleID,
		ProductID:           l.ProductID,
		Position:            position,
		Quantity:            l.Quantity,
		UnitPrice:           l.UnitPrice,
		DiscountedUnitPrice: l.DiscountedUnitPrice,
		GrossPrice:          l.GrossPrice,
		FinalPrice:          l.FinalPrice,
	}
}

func saleFromPO(s *po.SalePO, lines []*po.SaleLinePO) *domain.Sale {
	sale := &domain.Sale{
		ID:         s.ID,
		CreatedAt:  s.CreatedAt,
		UpdatedAt:  s.UpdatedAt,
		CustomerID: s.CustomerID,
		TotalPrice: s.TotalPrice,
		Status:     domain.SaleStatus(s.Status),
		Notes:      s.Notes,
		IsDeleted:  s.IsDeleted,
		Address: domain.Address{
			StreetNumber: s.StreetNumber,
			StreetName:   s.StreetName,
			City:         s.City,
			State:        s.State,
			Country:      s.Country,
			ZipCode:      s.ZipCode,
		},
		Lines: make([]*domain.SaleLine, 0, len(lines)),
	}
	for _, l := range lines {
		sale.Lines = append(sale.Lines, &domain.SaleLine{
			ProductID:           l.ProductID,
			ProductName:         l.ProductName,
			Quantity:            l.Quantity,
			UnitPrice:           l.UnitPrice,
			DiscountedUnitPrice: l.DiscountedUnitPrice,
			GrossPrice:          l.GrossPrice,
			FinalPrice:          l.FinalPrice,
		})
	}
	return sale
}
