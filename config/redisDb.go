package config

import (
	"context"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const redisConnectAttempts = 3

// ConnectRedis returns the Redis client and lock client, or nils when Redis is not
// configured or not reachable. Redis only backs rate limiting and best-effort locks,
// so the service keeps running without it.
func ConnectRedis(ctx context.Context, redisAddr string, logg *logrus.Logger) (*redis.Client, *redislock.Client) {
	if redisAddr == "" {
		logg.WithFields(logrus.Fields{"field": "redis"}).Info("REDIS_ADDRESS not set; running without redis")
		return nil, nil
	}

	for attempt := 1; attempt <= redisConnectAttempts; attempt++ {
		rdb := redis.NewClient(&redis.Options{
			Addr:     redisAddr,
			Password: "",
			DB:       0, // use default DB
			PoolSize: 100,
		})
		err := rdb.Ping(ctx).Err()
		if err == nil {
			logg.WithFields(logrus.Fields{
				"field":   "redis",
				"addr":    redisAddr,
				"attempt": attempt,
			}).Info("connected to redis")
			return rdb, redislock.New(rdb)
		}
		_ = rdb.Close()

		sleep := time.Second * time.Duration(1<<attempt)
		logg.WithFields(logrus.Fields{
			"field":   "redis",
			"addr":    redisAddr,
			"attempt": attempt,
		}).Warn("failed to connect redis: " + err.Error())
		if attempt == redisConnectAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, nil
		case <-time.After(sleep):
		}
	}
	logg.WithFields(logrus.Fields{"field": "redis"}).Warn("redis unavailable; rate limiting and locks disabled")
	return nil, nil
}
