package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/cris-98/aplicativo-nippon/internal/dto"
	"github.com/cris-98/aplicativo-nippon/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrStockInsuficiente lo retorna DescontarStockTx cuando el descuento
// condicional no afectó ninguna fila (el stock cambió entre la lectura y la
// escritura, o nunca alcanzó).
var ErrStockInsuficiente = errors.New("stock insuficiente para el descuento")

// ProductoRepository defines the data access contract for products.
// Services depend on this interface, not on the concrete GORM implementation,
// enabling clean unit testing via stubs.
type ProductoRepository interface {
	Create(ctx context.Context, p *model.Producto) error
	Update(ctx context.Context, p *model.Producto) error
	// Delete es incondicional: no existe guarda referencial contra movimientos
	// existentes. Los snapshots del ledger sobreviven al producto.
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Producto, error)
	FindByCodigo(ctx context.Context, codigo string) (*model.Producto, error)
	List(ctx context.Context, filter dto.ProductoFilter) ([]model.Producto, error)
	Search(ctx context.Context, q string) ([]model.Producto, error)
	CountActivos(ctx context.Context) (int64, error)

	// Used inside transactions — callers must pass the tx instance
	FindByIDTx(tx *gorm.DB, id uuid.UUID) (*model.Producto, error)
	AumentarStockTx(tx *gorm.DB, id uuid.UUID, cantidad int) error
	// DescontarStockTx aplica un UPDATE condicional (cantidad >= descuento):
	// si no afecta filas retorna ErrStockInsuficiente y la tx debe abortar.
	DescontarStockTx(tx *gorm.DB, id uuid.UUID, cantidad int) error

	// DB exposes the underlying *gorm.DB so services can open transactions.
	DB() *gorm.DB
}

type productoRepo struct{ db *gorm.DB }

func NewProductoRepository(db *gorm.DB) ProductoRepository { return &productoRepo{db: db} }

func (r *productoRepo) Create(ctx context.Context, p *model.Producto) error {
	if err := r.db.WithContext(ctx).Create(p).Error; err != nil {
		return fmt.Errorf("crear producto: %w", err)
	}
	return nil
}

func (r *productoRepo) Update(ctx context.Context, p *model.Producto) error {
	if err := r.db.WithContext(ctx).Save(p).Error; err != nil {
		return fmt.Errorf("actualizar producto: %w", err)
	}
	return nil
}

func (r *productoRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if err := r.db.WithContext(ctx).Delete(&model.Producto{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("eliminar producto: %w", err)
	}
	return nil
}

func (r *productoRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Producto, error) {
	var p model.Producto
	err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *productoRepo) FindByIDTx(tx *gorm.DB, id uuid.UUID) (*model.Producto, error) {
	var p model.Producto
	err := tx.First(&p, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *productoRepo) FindByCodigo(ctx context.Context, codigo string) (*model.Producto, error) {
	var p model.Producto
	err := r.db.WithContext(ctx).Where("codigo = ?", codigo).First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *productoRepo) List(ctx context.Context, filter dto.ProductoFilter) ([]model.Producto, error) {
	q := r.db.WithContext(ctx).Model(&model.Producto{})

	// Estado filter: "inactivos", "all", anything else = activos (default)
	switch filter.Estado {
	case "inactivos":
		q = q.Where("estado = ?", model.EstadoInactivo)
	case "all":
		// no filter
	default:
		q = q.Where("estado = ?", model.EstadoActivo)
	}

	if filter.Categoria != "" {
		q = q.Where("categoria = ?", filter.Categoria)
	}
	if filter.StockBajo {
		q = q.Where("cantidad <= cantidad_minima AND estado = ?", model.EstadoActivo)
	}
	if filter.Buscar != "" {
		// LOWER + LIKE en lugar de ILIKE: portable entre postgres y sqlite
		pattern := "%" + filter.Buscar + "%"
		q = q.Where("LOWER(nombre) LIKE LOWER(?) OR LOWER(codigo) LIKE LOWER(?)", pattern, pattern)
	}

	var productos []model.Producto
	if err := q.Order("nombre ASC").Find(&productos).Error; err != nil {
		return nil, fmt.Errorf("listar productos: %w", err)
	}
	return productos, nil
}

func (r *productoRepo) Search(ctx context.Context, buscar string) ([]model.Producto, error) {
	pattern := "%" + buscar + "%"
	var productos []model.Producto
	err := r.db.WithContext(ctx).
		Where("LOWER(nombre) LIKE LOWER(?) OR LOWER(codigo) LIKE LOWER(?)", pattern, pattern).
		Order("nombre ASC").
		Find(&productos).Error
	if err != nil {
		return nil, fmt.Errorf("buscar productos: %w", err)
	}
	return productos, nil
}

func (r *productoRepo) CountActivos(ctx context.Context) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&model.Producto{}).
		Where("estado = ?", model.EstadoActivo).Count(&total).Error
	return total, err
}

func (r *productoRepo) AumentarStockTx(tx *gorm.DB, id uuid.UUID, cantidad int) error {
	return tx.Model(&model.Producto{}).Where("id = ?", id).
		Update("cantidad", gorm.Expr("cantidad + ?", cantidad)).Error
}

func (r *productoRepo) DescontarStockTx(tx *gorm.DB, id uuid.UUID, cantidad int) error {
	res := tx.Model(&model.Producto{}).
		Where("id = ? AND cantidad >= ?", id, cantidad).
		Update("cantidad", gorm.Expr("cantidad - ?", cantidad))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStockInsuficiente
	}
	return nil
}

func (r *productoRepo) DB() *gorm.DB { return r.db }
