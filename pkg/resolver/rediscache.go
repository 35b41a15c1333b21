/*
 * stream-panel is an IPTV subscription and playlist emulation service.
 * Copyright (C) 2025  Lucas Duport
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License
 * along with this program.  If not, see <https://www.gnu.org/licenses/>.
 */

package resolver

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/lucasduport/stream-panel/pkg/utils"
)

const redisKeyPrefix = "streampanel:resolved:"

// RedisCache shares resolved snapshots between panel instances. Misses and
// Redis errors look the same to the resolver, which then recomputes.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache connects to the Redis URL (redis://host:port/db) and
// verifies the connection.
func NewRedisCache(redisURL string) (*RedisCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, utils.PrintErrorAndReturn(err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, utils.PrintErrorAndReturn(err)
	}

	utils.InfoLog("Resolver cache backed by Redis at %s", opts.Addr)
	return &RedisCache{client: client}, nil
}

func (c *RedisCache) Get(username string) (*ResolvedContent, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	data, err := c.client.Get(ctx, redisKeyPrefix+username).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		utils.WarnLog("Redis GET failed for %s: %v", username, err)
		return nil, false
	}

	var content ResolvedContent
	if err := json.Unmarshal(data, &content); err != nil {
		utils.WarnLog("Discarding corrupt cached snapshot for %s: %v", username, err)
		return nil, false
	}
	return &content, true
}

func (c *RedisCache) Set(username string, content *ResolvedContent, ttl time.Duration) {
	data, err := json.Marshal(content)
	if err != nil {
		utils.WarnLog("Marshaling snapshot for %s failed: %v", username, err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := c.client.Set(ctx, redisKeyPrefix+username, data, ttl).Err(); err != nil {
		utils.WarnLog("Redis SET failed for %s: %v", username, err)
	}
}

func (c *RedisCache) Delete(username string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := c.client.Del(ctx, redisKeyPrefix+username).Err(); err != nil {
		utils.WarnLog("Redis DEL failed for %s: %v", username, err)
	}
}

// Close releases the Redis connection.
func (c *RedisCache) Close() error {
	return c.client.Close()
}
