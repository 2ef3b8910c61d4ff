package main

import (
	"fmt"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// openRedis connects to addr, or to an in-process miniredis when addr is empty.
func openRedis(addr string, logger zerolog.Logger) (redis.UniversalClient, func(), error) {
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			return nil, nil, fmt.Errorf("start miniredis: %w", err)
		}
		client := redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{mr.Addr()},
		})
		logger.Info().Str("addr", mr.Addr()).Msg("using miniredis")
		return client, func() {
			_ = client.Close()
			mr.Close()
		}, nil
	}

	client := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs: []string{addr},
	})
	logger.Info().Str("addr", addr).Msg("using redis")
	return client, func() { _ = client.Close() }, nil
}
