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

package testsuit

import (
	"fmt"
	"os"

	"github.com/rs/xid"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type MySQLOption struct {
	NoLog bool
}

func gormConfig(opts []MySQLOption) *gorm.Config {
	cfg := &gorm.Config{}
	for _, opt := range opts {
		if opt.NoLog {
			cfg.Logger = logger.Default.LogMode(logger.Silent)
		}
	}
	return cfg
}

// InitMysql 启动测试数据库
// 前提: 在根目录执行 docker-compose up 命令
func InitMysql(opts ...MySQLOption) *gorm.DB {
	dsn := "root:@tcp(mysql:3306)/sale_db?parseTime=true&loc=Local"
	if os.Getenv("LOCAL_TEST") == "true" {
		dsn = "root:@tcp(localhost:3308)/sale_db?parseTime=true&loc=Local"
	}
	db, err := gorm.Open(mysql.Open(dsn), gormConfig(opts))
	if err != nil {
		panic(err)
	}

	return db
}

func InitMysqlWithDatabase(db *gorm.DB, database string) *gorm.DB {
	err := db.Exec("CREATE DATABASE IF NOT EXISTS " + database + ";").Error // ignore_security_alert
	if err != nil {
		panic(err)
	}
	dsn := fmt.Sprintf("root:@tcp(mysql:3306)/%s?parseTime=true&loc=Local", database)
	if os.Getenv("LOCAL_TEST") == "true" {
		dsn = fmt.Sprintf("root:@tcp(localhost:3308)/%s?parseTime=true&loc=Local", database)
	}
	ndb, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		panic(err)
	}
	return ndb
}

// InitSqlite 每次返回一个独立的内存库，单测不依赖外部 MySQL
// 单连接保证事务内外看到的是同一个库，也避免 sqlite 写锁冲突
func InitSqlite(opts ...MySQLOption) *gorm.DB {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", xid.New().String())
	db, err := gorm.Open(sqlite.Open(dsn), gormConfig(opts))
	if err != nil {
		panic(err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		panic(err)
	}
	sqlDB.SetMaxOpenConns(1)
	return db
}
