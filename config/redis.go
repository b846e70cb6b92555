package config

import (
	"sync"
)

var (
	redisOnce   sync.Once
	redisConfig *RedisConfig
)

// RedisConfig backs both the asynq task queue and run-status tracking.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

func GetRedisConfig() *RedisConfig {
	redisOnce.Do(func() {
		loadEnv()

		redisConfig = &RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		}
	})
	return redisConfig
}
