package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/cris-98/aplicativo-nippon/internal/dto"
	"github.com/cris-98/aplicativo-nippon/internal/eventbus"
	"github.com/cris-98/aplicativo-nippon/internal/model"
	"github.com/cris-98/aplicativo-nippon/internal/repository"
	"github.com/cris-98/aplicativo-nippon/internal/worker"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// MovimientoService es el motor de reconciliación: acopla el registro en el
// ledger con la mutación del stock del producto como una sola unidad atómica.
// Es el único punto de entrada que abre ese alcance transaccional.
type MovimientoService interface {
	RegistrarEntrada(ctx context.Context, req dto.RegistrarMovimientoRequest) (*dto.RegistroResponse, error)
	RegistrarSalida(ctx context.Context, req dto.RegistrarMovimientoRequest) (*dto.RegistroResponse, error)
	Listar(ctx context.Context, filter dto.MovimientoFilter) (*dto.MovimientoListResponse, error)
	Ultimos(ctx context.Context, limite int) ([]dto.MovimientoResponse, error)
	Eliminar(ctx context.Context, id int64) error
	// Watch emite el historial completo reordenado cada vez que el estado
	// cambia, hasta que ctx se cancela.
	Watch(ctx context.Context, filter dto.MovimientoFilter) <-chan []dto.MovimientoResponse
}

type movimientoService struct {
	movimientoRepo repository.MovimientoRepository
	productoRepo   repository.ProductoRepository
	bus            *eventbus.Bus
	dispatcher     *worker.Dispatcher // nil en unit tests — alertas deshabilitadas
	locks          *stockLocks
}

func NewMovimientoService(
	movimientoRepo repository.MovimientoRepository,
	productoRepo repository.ProductoRepository,
	bus *eventbus.Bus,
	dispatcher *worker.Dispatcher,
) MovimientoService {
	return &movimientoService{
		movimientoRepo: movimientoRepo,
		productoRepo:   productoRepo,
		bus:            bus,
		dispatcher:     dispatcher,
		locks:          newStockLocks(),
	}
}

// ─── Per-product serialization ───────────────────────────────────────────────

// stockLocks serializa el read-modify-write de stock por producto. Dos salidas
// casi simultáneas sobre el mismo producto nunca leen el mismo stock obsoleto.
// Cada entrada cuenta sus tenedores y desaparece del mapa cuando el último
// suelta el lock: el mapa no crece con cada producto que alguna vez se movió.
type stockLocks struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*stockLock
}

type stockLock struct {
	mu   sync.Mutex
	refs int
}

func newStockLocks() *stockLocks {
	return &stockLocks{locks: make(map[uuid.UUID]*stockLock)}
}

func (s *stockLocks) lock(id uuid.UUID) func() {
	s.mu.Lock()
	l, ok := s.locks[id]
	if !ok {
		l = &stockLock{}
		s.locks[id] = l
	}
	l.refs++
	s.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, id)
		}
		s.mu.Unlock()
	}
}

// runTx executes fn inside a GORM transaction when db is available,
// or calls fn(nil) directly when db is nil (unit test mode).
func runTx(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	if db == nil {
		return fn(nil)
	}
	return db.WithContext(ctx).Transaction(fn)
}

// ─── Validation ──────────────────────────────────────────────────────────────

// validarMovimiento es la validación consolidada de la entidad: corre completa
// antes de cualquier mutación, también para requests ya validados aguas arriba.
func validarMovimiento(req dto.RegistrarMovimientoRequest, esperado model.TipoMovimiento) error {
	if _, err := uuid.Parse(req.ProductoID); err != nil {
		return &ErrValidacion{Campo: "producto_id", Razon: "debe ser un UUID valido"}
	}
	tipo := model.TipoMovimiento(req.Tipo)
	if !tipo.EsValido() {
		return ErrTipoMovimientoInvalido
	}
	if tipo != esperado {
		return ErrTipoMovimientoInvalido
	}
	if req.Cantidad <= 0 {
		return &ErrValidacion{Campo: "cantidad", Razon: "debe ser mayor a cero"}
	}
	if esperado == model.TipoSalida && strings.TrimSpace(req.Motivo) == "" {
		return &ErrValidacion{Campo: "motivo", Razon: "requerido para salidas"}
	}
	return nil
}

// ─── RegistrarEntrada ────────────────────────────────────────────────────────
// Unidad atómica: append al ledger + aumento de stock en una transacción.
// Si cualquiera de las dos escrituras falla, ninguna queda visible.

func (s *movimientoService) RegistrarEntrada(ctx context.Context, req dto.RegistrarMovimientoRequest) (*dto.RegistroResponse, error) {
	if err := validarMovimiento(req, model.TipoEntrada); err != nil {
		return nil, err
	}
	productoID := uuid.MustParse(req.ProductoID)

	unlock := s.locks.lock(productoID)
	defer unlock()

	var resp dto.RegistroResponse
	err := runTx(ctx, s.productoRepo.DB(), func(tx *gorm.DB) error {
		producto, err := s.productoRepo.FindByIDTx(tx, productoID)
		if err != nil {
			return ErrProductoNoEncontrado
		}

		m := model.Movimiento{
			ProductoID:     producto.ID,
			ProductoNombre: producto.Nombre, // snapshot congelado para auditoría
			ProductoCodigo: producto.Codigo,
			Tipo:           model.TipoEntrada,
			Cantidad:       req.Cantidad,
			FechaRegistro:  time.Now(),
			Motivo:         req.Motivo,
			Observaciones:  req.Observaciones,
		}
		if err := s.movimientoRepo.CreateTx(tx, &m); err != nil {
			return err
		}
		if err := s.productoRepo.AumentarStockTx(tx, producto.ID, req.Cantidad); err != nil {
			return err
		}

		resp = dto.RegistroResponse{
			MovimientoID: m.ID,
			StockActual:  producto.Cantidad + req.Cantidad,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.bus.NotifyChanged()
	log.Info().Int64("movimiento_id", resp.MovimientoID).
		Str("producto_id", req.ProductoID).
		Int("cantidad", req.Cantidad).
		Msg("entrada registrada")
	return &resp, nil
}

// ─── RegistrarSalida ─────────────────────────────────────────────────────────
// Guarda crítica: si el stock disponible es menor al solicitado, falla sin
// mutación alguna (ni append, ni cambio de stock). El descuento en storage es
// condicional (cantidad >= solicitado) como segunda barrera además del lock.

func (s *movimientoService) RegistrarSalida(ctx context.Context, req dto.RegistrarMovimientoRequest) (*dto.RegistroResponse, error) {
	if err := validarMovimiento(req, model.TipoSalida); err != nil {
		return nil, err
	}
	productoID := uuid.MustParse(req.ProductoID)

	unlock := s.locks.lock(productoID)
	defer unlock()

	var resp dto.RegistroResponse
	err := runTx(ctx, s.productoRepo.DB(), func(tx *gorm.DB) error {
		producto, err := s.productoRepo.FindByIDTx(tx, productoID)
		if err != nil {
			return ErrProductoNoEncontrado
		}
		if producto.Cantidad < req.Cantidad {
			return &ErrStockInsuficiente{Disponible: producto.Cantidad, Solicitado: req.Cantidad}
		}

		m := model.Movimiento{
			ProductoID:     producto.ID,
			ProductoNombre: producto.Nombre,
			ProductoCodigo: producto.Codigo,
			Tipo:           model.TipoSalida,
			Cantidad:       req.Cantidad,
			FechaRegistro:  time.Now(),
			Motivo:         req.Motivo,
			Observaciones:  req.Observaciones,
		}
		if err := s.movimientoRepo.CreateTx(tx, &m); err != nil {
			return err
		}
		if err := s.productoRepo.DescontarStockTx(tx, producto.ID, req.Cantidad); err != nil {
			if errors.Is(err, repository.ErrStockInsuficiente) {
				// el stock cambió por debajo del lock — la tx revierte el append
				return &ErrStockInsuficiente{Disponible: producto.Cantidad, Solicitado: req.Cantidad}
			}
			return err
		}

		nuevoStock := producto.Cantidad - req.Cantidad
		resp = dto.RegistroResponse{
			MovimientoID: m.ID,
			StockActual:  nuevoStock,
			AlertaStock:  nuevoStock <= producto.CantidadMinima,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.bus.NotifyChanged()
	log.Info().Int64("movimiento_id", resp.MovimientoID).
		Str("producto_id", req.ProductoID).
		Int("cantidad", req.Cantidad).
		Int("stock_actual", resp.StockActual).
		Msg("salida registrada")

	if resp.AlertaStock {
		s.encolarAlertaStock(ctx, productoID, resp.StockActual)
	}
	return &resp, nil
}

// encolarAlertaStock despacha el aviso de reposición de forma asíncrona.
// Best effort: un fallo de encolado no revierte la salida ya confirmada.
func (s *movimientoService) encolarAlertaStock(ctx context.Context, productoID uuid.UUID, stock int) {
	if s.dispatcher == nil {
		return
	}
	producto, err := s.productoRepo.FindByID(ctx, productoID)
	if err != nil {
		return
	}
	payload := worker.AlertaStockPayload{
		ProductoID:     producto.ID.String(),
		ProductoNombre: producto.Nombre,
		ProductoCodigo: producto.Codigo,
		StockActual:    stock,
		StockMinimo:    producto.CantidadMinima,
	}
	if err := s.dispatcher.EnqueueAlertaStock(ctx, payload); err != nil {
		log.Error().Err(err).Str("producto_id", payload.ProductoID).
			Msg("no se pudo encolar la alerta de stock")
	}
}

// ─── Queries ─────────────────────────────────────────────────────────────────

func (s *movimientoService) Listar(ctx context.Context, filter dto.MovimientoFilter) (*dto.MovimientoListResponse, error) {
	movimientos, err := s.listar(ctx, filter)
	if err != nil {
		return nil, err
	}
	data := make([]dto.MovimientoResponse, 0, len(movimientos))
	for i := range movimientos {
		data = append(data, movimientoToResponse(&movimientos[i]))
	}
	return &dto.MovimientoListResponse{Data: data, Total: len(data)}, nil
}

func (s *movimientoService) listar(ctx context.Context, filter dto.MovimientoFilter) ([]model.Movimiento, error) {
	switch {
	case filter.Buscar != "":
		return s.movimientoRepo.Search(ctx, filter.Buscar)
	case filter.ProductoID != "":
		id, err := uuid.Parse(filter.ProductoID)
		if err != nil {
			return nil, &ErrValidacion{Campo: "producto_id", Razon: "debe ser un UUID valido"}
		}
		return s.movimientoRepo.ListByProducto(ctx, id)
	case filter.Tipo != "":
		tipo := model.TipoMovimiento(filter.Tipo)
		if !tipo.EsValido() {
			return nil, ErrTipoMovimientoInvalido
		}
		return s.movimientoRepo.ListByTipo(ctx, tipo)
	case filter.Desde != "" || filter.Hasta != "":
		desde, hasta, err := parseRangoFechas(filter.Desde, filter.Hasta)
		if err != nil {
			return nil, err
		}
		return s.movimientoRepo.ListByRangoFechas(ctx, desde, hasta)
	default:
		return s.movimientoRepo.ListAll(ctx)
	}
}

func (s *movimientoService) Ultimos(ctx context.Context, limite int) ([]dto.MovimientoResponse, error) {
	movimientos, err := s.movimientoRepo.Ultimos(ctx, limite)
	if err != nil {
		return nil, err
	}
	data := make([]dto.MovimientoResponse, 0, len(movimientos))
	for i := range movimientos {
		data = append(data, movimientoToResponse(&movimientos[i]))
	}
	return data, nil
}

// Eliminar borra el registro del ledger SIN revertir el efecto sobre el stock.
// Asimetría heredada y deliberada: la corrección correcta es un movimiento
// compensatorio, no borrar historia.
func (s *movimientoService) Eliminar(ctx context.Context, id int64) error {
	m, err := s.movimientoRepo.FindByID(ctx, id)
	if err != nil {
		return ErrMovimientoNoEncontrado
	}
	if err := s.movimientoRepo.Delete(ctx, id); err != nil {
		return err
	}
	log.Warn().Int64("movimiento_id", id).
		Str("tipo", string(m.Tipo)).
		Int("cantidad", m.Cantidad).
		Msg("movimiento eliminado sin ajuste compensatorio de stock")
	s.bus.NotifyChanged()
	return nil
}

// Watch entrega un snapshot inicial y luego uno nuevo por cada notificación
// del bus, hasta que ctx se cancela. La desuscripción es explícita al salir.
func (s *movimientoService) Watch(ctx context.Context, filter dto.MovimientoFilter) <-chan []dto.MovimientoResponse {
	out := make(chan []dto.MovimientoResponse)
	sub := s.bus.Subscribe()

	go func() {
		defer close(out)
		defer sub.Unsubscribe()

		emitir := func() bool {
			resp, err := s.Listar(ctx, filter)
			if err != nil {
				log.Error().Err(err).Msg("watch movimientos: snapshot fallido")
				return true
			}
			select {
			case out <- resp.Data:
				return true
			case <-ctx.Done():
				return false
			}
		}

		if !emitir() {
			return
		}
		for {
			select {
			case <-ctx.Done():
				return
			case <-sub.C:
				if !emitir() {
					return
				}
			}
		}
	}()
	return out
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

func movimientoToResponse(m *model.Movimiento) dto.MovimientoResponse {
	return dto.MovimientoResponse{
		ID:             m.ID,
		ProductoID:     m.ProductoID.String(),
		ProductoNombre: m.ProductoNombre,
		ProductoCodigo: m.ProductoCodigo,
		Tipo:           string(m.Tipo),
		Cantidad:       m.Cantidad,
		FechaRegistro:  m.FechaFormateada(),
		Motivo:         m.Motivo,
		Observaciones:  m.Observaciones,
	}
}

// parseRangoFechas acepta RFC 3339 o fecha sola (2006-01-02); el límite
// superior de una fecha sola se extiende al fin del día para mantener el rango
// inclusivo.
func parseRangoFechas(desdeStr, hastaStr string) (time.Time, time.Time, error) {
	desde := time.Time{}
	hasta := time.Now()

	if desdeStr != "" {
		d, _, err := parseFecha(desdeStr)
		if err != nil {
			return desde, hasta, &ErrValidacion{Campo: "desde", Razon: "fecha invalida"}
		}
		desde = d
	}
	if hastaStr != "" {
		h, soloFecha, err := parseFecha(hastaStr)
		if err != nil {
			return desde, hasta, &ErrValidacion{Campo: "hasta", Razon: "fecha invalida"}
		}
		if soloFecha {
			h = h.Add(24*time.Hour - time.Nanosecond)
		}
		hasta = h
	}
	return desde, hasta, nil
}

func parseFecha(s string) (time.Time, bool, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, false, nil
	}
	t, err := time.Parse("2006-01-02", s)
	return t, true, err
}
