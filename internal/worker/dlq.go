package worker

// dlq.go — cola muerta de alertas.
// Un job de alerta que agota sus reintentos no se descarta: queda en una lista
// Redis aparte (dlq:{cola origen}) para inspección manual. La entrada lleva el
// producto a la vista para que revisar la cola no exija decodificar el payload.

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const DLQPrefix = "dlq:"

// DLQEntry es el job fallido más el contexto necesario para diagnosticarlo:
// qué producto disparó la alerta, por qué falló y cuántas veces se intentó.
type DLQEntry struct {
	OriginalQueue  string          `json:"original_queue"`
	JobType        string          `json:"job_type"`
	ProductoID     string          `json:"producto_id,omitempty"`
	ProductoCodigo string          `json:"producto_codigo,omitempty"`
	Payload        json.RawMessage `json:"payload"`
	Reason         string          `json:"reason"`
	FailedAt       time.Time       `json:"failed_at"`
	Attempts       int             `json:"attempts"`
}

func newDLQEntry(queue string, job Job, productoID, productoCodigo, reason string) DLQEntry {
	return DLQEntry{
		OriginalQueue:  queue,
		JobType:        job.Type,
		ProductoID:     productoID,
		ProductoCodigo: productoCodigo,
		Payload:        job.Payload,
		Reason:         reason,
		FailedAt:       time.Now().UTC(),
		Attempts:       job.Attempts,
	}
}

// SendToDLQ mueve un job agotado a la cola muerta de su cola de origen.
func SendToDLQ(ctx context.Context, rdb *redis.Client, queue string, job Job, productoID, productoCodigo, reason string) {
	entry := newDLQEntry(queue, job, productoID, productoCodigo, reason)

	data, err := json.Marshal(entry)
	if err != nil {
		log.Error().Err(err).Str("queue", queue).Msg("dlq: no se pudo serializar la entrada")
		return
	}
	if err := rdb.LPush(ctx, DLQPrefix+queue, data).Err(); err != nil {
		log.Error().Err(err).Str("queue", queue).Msg("dlq: no se pudo encolar la entrada")
		return
	}

	log.Warn().
		Str("queue", queue).
		Str("producto_id", productoID).
		Str("producto_codigo", productoCodigo).
		Str("reason", reason).
		Int("attempts", entry.Attempts).
		Msg("dlq: alerta agotada movida a la cola muerta")
}

// DLQLength reporta cuántas entradas acumula la cola muerta de una cola.
func DLQLength(ctx context.Context, rdb *redis.Client, queue string) (int64, error) {
	return rdb.LLen(ctx, DLQPrefix+queue).Result()
}
