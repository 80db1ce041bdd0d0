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

package db

import (
	"time"
)

// SaleLock 锁记录，一个 resource 同一时间最多一行
type SaleLock struct {
	ID       uint   `gorm:"primarykey;AUTO_INCREMENT"`
	Resource string `gorm:"type:varchar(255);unique"`
	// 持有者 ID，解锁和续期都要匹配，避免锁过期后误删别人新拿到的锁
	LockerID  string `gorm:"type:varchar(255);index:idx_locker_id"`
	Owner     string `gorm:"type:varchar(128)"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (SaleLock) TableName() string {
	return "sale_lock"
}
