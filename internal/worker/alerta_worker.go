package worker

// alerta_worker.go
// Processes low-stock alert jobs from QueueAlertas: arma el correo de
// reposición y lo envía por SMTP a través del circuit breaker. Los fallos se
// reencolan con backoff implícito (vuelven al final de la lista) hasta
// maxAlertaAttempts y después van a la DLQ.

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cris-98/aplicativo-nippon/internal/infra"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const maxAlertaAttempts = 3

// AlertaStockPayload is the job envelope sent to QueueAlertas.
type AlertaStockPayload struct {
	ProductoID     string `json:"producto_id"`
	ProductoNombre string `json:"producto_nombre"`
	ProductoCodigo string `json:"producto_codigo"`
	StockActual    int    `json:"stock_actual"`
	StockMinimo    int    `json:"stock_minimo"`
}

// AlertaWorker sends low-stock notification emails.
type AlertaWorker struct {
	mailer      *infra.Mailer
	cb          *infra.CircuitBreaker
	rdb         *redis.Client
	alertaEmail string
}

func NewAlertaWorker(mailer *infra.Mailer, cb *infra.CircuitBreaker, rdb *redis.Client, alertaEmail string) *AlertaWorker {
	return &AlertaWorker{mailer: mailer, cb: cb, rdb: rdb, alertaEmail: alertaEmail}
}

// Process sends the alert email, requeueing on failure.
func (w *AlertaWorker) Process(ctx context.Context, job Job) {
	var payload AlertaStockPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		log.Error().Err(err).Msg("alerta_worker: invalid payload")
		return
	}
	if w.alertaEmail == "" {
		log.Warn().Msg("alerta_worker: ALERTA_EMAIL no configurado — alerta descartada")
		return
	}

	subject := fmt.Sprintf("Stock bajo: %s (%s)", payload.ProductoNombre, payload.ProductoCodigo)
	body := fmt.Sprintf(
		"El producto %s (%s) quedó en %d unidades, en o por debajo del mínimo de %d.\nRegistrar una entrada de reposición.",
		payload.ProductoNombre, payload.ProductoCodigo, payload.StockActual, payload.StockMinimo,
	)

	err := w.cb.Execute(func() error {
		return w.mailer.SendAlerta(w.alertaEmail, subject, body)
	})
	if err == nil {
		log.Info().Str("producto_id", payload.ProductoID).Msg("alerta_worker: alerta enviada")
		return
	}

	job.Attempts++
	if job.Attempts >= maxAlertaAttempts {
		SendToDLQ(ctx, w.rdb, QueueAlertas, job, payload.ProductoID, payload.ProductoCodigo, err.Error())
		return
	}

	encoded, marshalErr := json.Marshal(job)
	if marshalErr != nil {
		log.Error().Err(marshalErr).Msg("alerta_worker: requeue marshal failed")
		return
	}
	if pushErr := w.rdb.LPush(ctx, QueueAlertas, encoded).Err(); pushErr != nil {
		log.Error().Err(pushErr).Msg("alerta_worker: requeue failed")
		return
	}
	log.Warn().Err(err).Int("attempts", job.Attempts).
		Str("producto_id", payload.ProductoID).
		Msg("alerta_worker: envio fallido — job reencolado")
}
