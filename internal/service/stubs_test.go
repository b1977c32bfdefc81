package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cris-98/aplicativo-nippon/internal/dto"
	"github.com/cris-98/aplicativo-nippon/internal/model"
	"github.com/cris-98/aplicativo-nippon/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ── In-memory ProductoRepository stub ────────────────────────────────────────

type stubProductoRepo struct {
	mu        sync.Mutex
	productos map[uuid.UUID]*model.Producto
}

func newStubProductoRepo() *stubProductoRepo {
	return &stubProductoRepo{productos: make(map[uuid.UUID]*model.Producto)}
}

func (r *stubProductoRepo) Create(_ context.Context, p *model.Producto) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existente := range r.productos {
		if existente.Codigo == p.Codigo {
			return errors.New("UNIQUE constraint failed: productos.codigo")
		}
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	copia := *p
	r.productos[p.ID] = &copia
	return nil
}

func (r *stubProductoRepo) Update(_ context.Context, p *model.Producto) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copia := *p
	r.productos[p.ID] = &copia
	return nil
}

func (r *stubProductoRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.productos, id)
	return nil
}

func (r *stubProductoRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Producto, error) {
	return r.find(id)
}

func (r *stubProductoRepo) FindByIDTx(_ *gorm.DB, id uuid.UUID) (*model.Producto, error) {
	return r.find(id)
}

func (r *stubProductoRepo) find(id uuid.UUID) (*model.Producto, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.productos[id]
	if !ok {
		return nil, errors.New("record not found")
	}
	copia := *p
	return &copia, nil
}

func (r *stubProductoRepo) FindByCodigo(_ context.Context, codigo string) (*model.Producto, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.productos {
		if p.Codigo == codigo {
			copia := *p
			return &copia, nil
		}
	}
	return nil, errors.New("record not found")
}

func (r *stubProductoRepo) List(_ context.Context, filter dto.ProductoFilter) ([]model.Producto, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []model.Producto
	for _, p := range r.productos {
		switch filter.Estado {
		case "all":
		case "inactivos":
			if p.Estado != model.EstadoInactivo {
				continue
			}
		default:
			if p.Estado != model.EstadoActivo {
				continue
			}
		}
		if filter.Categoria != "" && p.Categoria != filter.Categoria {
			continue
		}
		if filter.StockBajo && !(p.EsBajoStock() && p.EstaActivo()) {
			continue
		}
		if filter.Buscar != "" {
			q := strings.ToLower(filter.Buscar)
			if !strings.Contains(strings.ToLower(p.Nombre), q) &&
				!strings.Contains(strings.ToLower(p.Codigo), q) {
				continue
			}
		}
		result = append(result, *p)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Nombre < result[j].Nombre })
	return result, nil
}

func (r *stubProductoRepo) Search(ctx context.Context, q string) ([]model.Producto, error) {
	return r.List(ctx, dto.ProductoFilter{Estado: "all", Buscar: q})
}

func (r *stubProductoRepo) CountActivos(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var total int64
	for _, p := range r.productos {
		if p.EstaActivo() {
			total++
		}
	}
	return total, nil
}

func (r *stubProductoRepo) AumentarStockTx(_ *gorm.DB, id uuid.UUID, cantidad int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.productos[id]
	if !ok {
		return errors.New("record not found")
	}
	p.Cantidad += cantidad
	return nil
}

func (r *stubProductoRepo) DescontarStockTx(_ *gorm.DB, id uuid.UUID, cantidad int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.productos[id]
	if !ok {
		return errors.New("record not found")
	}
	if p.Cantidad < cantidad {
		return repository.ErrStockInsuficiente
	}
	p.Cantidad -= cantidad
	return nil
}

func (r *stubProductoRepo) DB() *gorm.DB { return nil }

// ── In-memory MovimientoRepository stub ──────────────────────────────────────

type stubMovimientoRepo struct {
	mu          sync.Mutex
	movimientos []model.Movimiento
	nextID      int64
}

func newStubMovimientoRepo() *stubMovimientoRepo {
	return &stubMovimientoRepo{nextID: 1}
}

func (r *stubMovimientoRepo) Create(_ context.Context, m *model.Movimiento) error {
	return r.CreateTx(nil, m)
}

func (r *stubMovimientoRepo) CreateTx(_ *gorm.DB, m *model.Movimiento) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m.ID = r.nextID
	r.nextID++
	r.movimientos = append(r.movimientos, *m)
	return nil
}

func (r *stubMovimientoRepo) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.movimientos {
		if r.movimientos[i].ID == id {
			r.movimientos = append(r.movimientos[:i], r.movimientos[i+1:]...)
			return nil
		}
	}
	return errors.New("record not found")
}

func (r *stubMovimientoRepo) FindByID(_ context.Context, id int64) (*model.Movimiento, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.movimientos {
		if r.movimientos[i].ID == id {
			copia := r.movimientos[i]
			return &copia, nil
		}
	}
	return nil, errors.New("record not found")
}

// ordenado retorna una copia en el orden canónico del ledger.
func (r *stubMovimientoRepo) ordenado(filtro func(*model.Movimiento) bool) []model.Movimiento {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []model.Movimiento
	for i := range r.movimientos {
		if filtro == nil || filtro(&r.movimientos[i]) {
			result = append(result, r.movimientos[i])
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].FechaRegistro.Equal(result[j].FechaRegistro) {
			return result[i].FechaRegistro.After(result[j].FechaRegistro)
		}
		return result[i].ID > result[j].ID
	})
	return result
}

func (r *stubMovimientoRepo) ListAll(_ context.Context) ([]model.Movimiento, error) {
	return r.ordenado(nil), nil
}

func (r *stubMovimientoRepo) ListByTipo(_ context.Context, tipo model.TipoMovimiento) ([]model.Movimiento, error) {
	return r.ordenado(func(m *model.Movimiento) bool { return m.Tipo == tipo }), nil
}

func (r *stubMovimientoRepo) ListByProducto(_ context.Context, productoID uuid.UUID) ([]model.Movimiento, error) {
	return r.ordenado(func(m *model.Movimiento) bool { return m.ProductoID == productoID }), nil
}

func (r *stubMovimientoRepo) ListByRangoFechas(_ context.Context, desde, hasta time.Time) ([]model.Movimiento, error) {
	return r.ordenado(func(m *model.Movimiento) bool {
		return !m.FechaRegistro.Before(desde) && !m.FechaRegistro.After(hasta)
	}), nil
}

func (r *stubMovimientoRepo) Search(_ context.Context, q string) ([]model.Movimiento, error) {
	lq := strings.ToLower(q)
	return r.ordenado(func(m *model.Movimiento) bool {
		return strings.Contains(strings.ToLower(m.ProductoNombre), lq) ||
			strings.Contains(strings.ToLower(m.ProductoCodigo), lq) ||
			strings.Contains(strings.ToLower(m.Motivo), lq)
	}), nil
}

func (r *stubMovimientoRepo) Ultimos(_ context.Context, limite int) ([]model.Movimiento, error) {
	todos := r.ordenado(nil)
	if limite > 0 && len(todos) > limite {
		todos = todos[:limite]
	}
	return todos, nil
}

func (r *stubMovimientoRepo) SumCantidad(_ context.Context, productoID uuid.UUID, tipo model.TipoMovimiento) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var total int64
	for i := range r.movimientos {
		if r.movimientos[i].ProductoID == productoID && r.movimientos[i].Tipo == tipo {
			total += int64(r.movimientos[i].Cantidad)
		}
	}
	return total, nil
}

func (r *stubMovimientoRepo) Count(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.movimientos)), nil
}

func (r *stubMovimientoRepo) CountByTipo(_ context.Context, tipo model.TipoMovimiento) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var total int64
	for i := range r.movimientos {
		if r.movimientos[i].Tipo == tipo {
			total++
		}
	}
	return total, nil
}

func (r *stubMovimientoRepo) EraseAll(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.movimientos = nil
	return nil
}

// largo reporta la longitud actual del ledger.
func (r *stubMovimientoRepo) largo() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.movimientos)
}
