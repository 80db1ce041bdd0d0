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

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	ddd "github.com/bytedance/dddsale"
	"github.com/bytedance/dddsale/biz/sale/application/event_handler"
	"github.com/bytedance/dddsale/biz/sale/application/query"
	"github.com/bytedance/dddsale/biz/sale/infrastructure"
	"github.com/bytedance/dddsale/biz/sale/infrastructure/dal"
	"github.com/bytedance/dddsale/biz/sale/infrastructure/repo"
	"github.com/bytedance/dddsale/config"
	mem_eventbus "github.com/bytedance/dddsale/eventbus/mem"
	db_eventbus "github.com/bytedance/dddsale/eventbus/mysql"
	db_executor "github.com/bytedance/dddsale/executor/mysql"
	"github.com/bytedance/dddsale/handler"
	"github.com/bytedance/dddsale/handler/util"
	db_lock "github.com/bytedance/dddsale/lock/db"
	mem_lock "github.com/bytedance/dddsale/lock/mem"
	redis_lock "github.com/bytedance/dddsale/lock/redis"
	"github.com/bytedance/dddsale/logger/stdr"
	"github.com/bytedance/dddsale/metrics"
)

var logger = stdr.NewStdr("sale_server")

func openDB(cfg config.DatabaseConfig) (*gorm.DB, error) {
	if cfg.Driver == "mysql" {
		return gorm.Open(mysql.Open(cfg.DSN), &gorm.Config{})
	}
	db, err := gorm.Open(sqlite.Open(cfg.DSN), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	// sqlite 单写，多连接并发写会返回 database is locked
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	return db, nil
}

func newLock(ctx context.Context, cfg config.LockConfig, db *gorm.DB) (ddd.ILock, error) {
	switch cfg.Backend {
	case "redis":
		cli := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := cli.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("connect redis %s failed: %w", cfg.RedisAddr, err)
		}
		return redis_lock.NewRedisLock(cli, cfg.TTL), nil
	case "mem":
		// 只适用于单实例部署
		return mem_lock.NewMemLock(), nil
	default:
		l := db_lock.NewDBLock(db, cfg.TTL)
		if err := l.Migrate(); err != nil {
			return nil, err
		}
		return l, nil
	}
}

func newEventBus(ctx context.Context, cfg config.EventBusConfig, db *gorm.DB, executor *db_executor.Executor) ([]ddd.Option, error) {
	if cfg.Backend == "mysql" {
		bus := db_eventbus.NewEventBus(cfg.ServiceName, db, executor, func(opt *db_eventbus.Options) {
			opt.RunInterval = cfg.RunInterval
			opt.RetentionTime = cfg.Retention
		})
		if err := bus.Migrate(); err != nil {
			return nil, err
		}
		bus.Start(ctx)
		return bus.Options(), nil
	}
	bus := mem_eventbus.NewEventBus(cfg.Capacity)
	bus.Start(ctx)
	return []ddd.Option{ddd.WithEventBus(bus)}, nil
}

func run(ctx context.Context, cfg *config.Config) error {
	db, err := openDB(cfg.Database)
	if err != nil {
		return fmt.Errorf("open database failed: %w", err)
	}
	if err := infrastructure.Migrate(db); err != nil {
		return fmt.Errorf("migrate failed: %w", err)
	}

	lock, err := newLock(ctx, cfg.Lock, db)
	if err != nil {
		return err
	}
	executor := db_executor.NewExecutor(db)
	busOptions, err := newEventBus(ctx, cfg.EventBus, db, executor)
	if err != nil {
		return err
	}
	engine := ddd.NewEngine(lock, executor, append(busOptions, ddd.WithLogger(stdr.NewStdr("sale_engine")))...)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewSaleMetrics(reg)
	event_handler.Register(event_handler.NewSaleEventHandler(m))
	service := handler.NewSaleService(
		engine,
		repo.NewProductRepo(executor),
		repo.NewSaleRepo(executor),
		query.NewSaleQuery(dal.NewDAL(db)),
		m,
	)

	mux := http.NewServeMux()
	mux.HandleFunc("/api", util.Handler(service))
	mux.Handle("/metrics", metrics.HandlerFor(reg))
	srv := &http.Server{Addr: cfg.Server.Addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server started", "addr", cfg.Server.Addr, "db", cfg.Database.Driver, "lock", cfg.Lock.Backend, "eventbus", cfg.EventBus.Backend)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	logger.Info("server shutting down")
	return srv.Shutdown(shutdownCtx)
}

func main() {
	configPath := flag.String("config", os.Getenv("SALE_CONFIG"), "path of the YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error(err, "load config failed")
		os.Exit(1)
	}
	stdr.SetVerbosity(cfg.Log.Verbosity)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, cfg); err != nil {
		logger.Error(err, "server exited")
		os.Exit(1)
	}
}
