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

package infrastructure

import (
	"gorm.io/gorm"

	"github.com/bytedance/dddsale/biz/sale/infrastructure/po"
)

// Migrate 建业务表
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&po.ProductPO{}, &po.SalePO{}, &po.SaleLinePO{})
}
