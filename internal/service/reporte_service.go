package service

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/cris-98/aplicativo-nippon/internal/dto"
	"github.com/cris-98/aplicativo-nippon/internal/eventbus"
	"github.com/cris-98/aplicativo-nippon/internal/model"
	"github.com/cris-98/aplicativo-nippon/internal/repository"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	resumenCacheKey = "reportes:resumen"
	resumenCacheTTL = 6 * time.Hour
)

// ReporteService construye proyecciones de solo lectura sobre el ledger.
// Nunca muta stock; la única operación destructiva es LimpiarHistorial.
type ReporteService interface {
	ExportarCSV(ctx context.Context, filter dto.ReporteFilter) (string, error)
	Resumen(ctx context.Context) (*dto.ResumenResponse, error)
	// LimpiarHistorial vacía el ledger sin ajustar cantidades de producto:
	// un "archive reset" documentado, no un bug a corregir en silencio.
	LimpiarHistorial(ctx context.Context) error
	Movimientos(ctx context.Context, filter dto.ReporteFilter) ([]model.Movimiento, error)
	// TotalesProducto agrega los movimientos de un producto por tipo, leyendo
	// solo el ledger: sirve para auditar el contador de stock contra la historia.
	TotalesProducto(ctx context.Context, productoID uuid.UUID) (*dto.TotalesProductoResponse, error)
}

type reporteService struct {
	movimientoRepo repository.MovimientoRepository
	productoRepo   repository.ProductoRepository
	bus            *eventbus.Bus
	rdb            *redis.Client // nil en unit tests — resumen sin cache
}

func NewReporteService(
	movimientoRepo repository.MovimientoRepository,
	productoRepo repository.ProductoRepository,
	bus *eventbus.Bus,
	rdb *redis.Client,
) ReporteService {
	return &reporteService{
		movimientoRepo: movimientoRepo,
		productoRepo:   productoRepo,
		bus:            bus,
		rdb:            rdb,
	}
}

func (s *reporteService) Movimientos(ctx context.Context, filter dto.ReporteFilter) ([]model.Movimiento, error) {
	if filter.Desde != "" || filter.Hasta != "" {
		desde, hasta, err := parseRangoFechas(filter.Desde, filter.Hasta)
		if err != nil {
			return nil, err
		}
		return s.movimientoRepo.ListByRangoFechas(ctx, desde, hasta)
	}
	return s.movimientoRepo.ListAll(ctx)
}

func (s *reporteService) ExportarCSV(ctx context.Context, filter dto.ReporteFilter) (string, error) {
	movimientos, err := s.Movimientos(ctx, filter)
	if err != nil {
		return "", err
	}
	return GenerarCSV(movimientos), nil
}

// GenerarCSV serializa movimientos al contrato de exportación: una línea de
// encabezado, una por movimiento en el orden recibido, cada campo entre
// comillas dobles con las comillas embebidas duplicadas. El tipo se exporta
// como IN/OUT y la fecha en formato legible, no como timestamp crudo.
//
// encoding/csv no sirve acá: solo entrecomilla campos que lo necesitan, y el
// contrato exige todos los campos entrecomillados siempre.
func GenerarCSV(movimientos []model.Movimiento) string {
	var sb strings.Builder
	sb.WriteString("id,date,type,product,quantity,reason,notes\n")

	for i := range movimientos {
		m := &movimientos[i]
		tipo := "OUT"
		if m.EsEntrada() {
			tipo = "IN"
		}
		campos := []string{
			strconv.FormatInt(m.ID, 10),
			m.FechaFormateada(),
			tipo,
			m.ProductoNombre,
			strconv.Itoa(m.Cantidad),
			m.Motivo,
			m.Observaciones,
		}
		for j, campo := range campos {
			if j > 0 {
				sb.WriteByte(',')
			}
			sb.WriteByte('"')
			sb.WriteString(strings.ReplaceAll(campo, `"`, `""`))
			sb.WriteByte('"')
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

func (s *reporteService) Resumen(ctx context.Context) (*dto.ResumenResponse, error) {
	// 1. Try Redis cache — invalidated by the eventbus watcher on every change
	if s.rdb != nil {
		if cached, err := s.rdb.Get(ctx, resumenCacheKey).Bytes(); err == nil {
			var resp dto.ResumenResponse
			if jsonErr := json.Unmarshal(cached, &resp); jsonErr == nil {
				return &resp, nil
			}
		}
	}

	total, err := s.movimientoRepo.Count(ctx)
	if err != nil {
		return nil, err
	}
	entradas, err := s.movimientoRepo.CountByTipo(ctx, model.TipoEntrada)
	if err != nil {
		return nil, err
	}
	salidas, err := s.movimientoRepo.CountByTipo(ctx, model.TipoSalida)
	if err != nil {
		return nil, err
	}
	activos, err := s.productoRepo.CountActivos(ctx)
	if err != nil {
		return nil, err
	}

	resp := &dto.ResumenResponse{
		TotalMovimientos: total,
		TotalEntradas:    entradas,
		TotalSalidas:     salidas,
		ProductosActivos: activos,
	}

	// Populate cache — best effort, ignore errors
	if s.rdb != nil {
		if b, jsonErr := json.Marshal(resp); jsonErr == nil {
			_ = s.rdb.Set(ctx, resumenCacheKey, b, resumenCacheTTL).Err()
		}
	}
	return resp, nil
}

func (s *reporteService) TotalesProducto(ctx context.Context, productoID uuid.UUID) (*dto.TotalesProductoResponse, error) {
	if _, err := s.productoRepo.FindByID(ctx, productoID); err != nil {
		return nil, ErrProductoNoEncontrado
	}
	entradas, err := s.movimientoRepo.SumCantidad(ctx, productoID, model.TipoEntrada)
	if err != nil {
		return nil, err
	}
	salidas, err := s.movimientoRepo.SumCantidad(ctx, productoID, model.TipoSalida)
	if err != nil {
		return nil, err
	}
	return &dto.TotalesProductoResponse{
		ProductoID:    productoID.String(),
		TotalEntradas: entradas,
		TotalSalidas:  salidas,
		Neto:          entradas - salidas,
	}, nil
}

func (s *reporteService) LimpiarHistorial(ctx context.Context) error {
	if err := s.movimientoRepo.EraseAll(ctx); err != nil {
		return err
	}
	log.Warn().Msg("ledger vaciado; las cantidades de producto conservan su último valor")
	s.bus.NotifyChanged()
	return nil
}

// StartResumenInvalidator suscribe un watcher que borra la cache del resumen
// ante cada notificación de cambio, hasta que ctx se cancela.
func StartResumenInvalidator(ctx context.Context, bus *eventbus.Bus, rdb *redis.Client) {
	if rdb == nil {
		return
	}
	sub := bus.Subscribe()
	go func() {
		defer sub.Unsubscribe()
		for {
			select {
			case <-ctx.Done():
				return
			case <-sub.C:
				if err := rdb.Del(context.Background(), resumenCacheKey).Err(); err != nil {
					log.Error().Err(err).Msg("no se pudo invalidar la cache del resumen")
				}
			}
		}
	}()
}
