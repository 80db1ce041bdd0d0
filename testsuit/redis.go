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
	"context"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
)

// InitRedis 连接测试用 redis，不可用时返回 nil，调用方自行跳过
// 前提: 在根目录执行 docker-compose up 命令
func InitRedis() *redis.Client {
	addr := "redis:6379"
	if os.Getenv("LOCAL_TEST") == "true" {
		addr = "localhost:6379"
	}
	cli := redis.NewClient(&redis.Options{Addr: addr})
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := cli.Ping(ctx).Err(); err != nil {
		_ = cli.Close()
		return nil
	}
	return cli
}
