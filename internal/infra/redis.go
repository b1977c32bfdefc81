package infra

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// NewRedis abre el cliente compartido del almacén. Redis cumple dos roles:
// cola de jobs de alertas de reposición (LPUSH/BRPOP + DLQ) y cache del
// resumen del dashboard. El ping con límite de tiempo corta el arranque rápido
// cuando la URL apunta a un servidor inalcanzable.
func NewRedis(redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis: URL invalida: %w", err)
	}

	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis: ping a %s: %w", opts.Addr, err)
	}

	return rdb, nil
}
