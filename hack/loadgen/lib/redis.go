package lib

import (
	"strconv"

	"github.com/go-redis/redis"
)

const UserCountKey = "trendscaler_loadgen_user_count"

func NewRedisClient(addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: "", // no password set
		DB:       0,  // use default DB
	})
	if err := client.Ping().Err(); err != nil {
		return nil, err
	}
	return client, nil
}

func GetCount(client *redis.Client, key string, defaultValue int) (int, error) {
	dbValue, err := client.Get(key).Result()
	if err == redis.Nil {
		return defaultValue, nil
	} else if err != nil {
		return 0, err
	}
	return strconv.Atoi(dbValue)
}

func SetCount(client *redis.Client, key string, value int) error {
	return client.Set(key, strconv.Itoa(value), 0).Err()
}
