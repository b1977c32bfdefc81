package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/cris-98/aplicativo-nippon/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ordenLedger es el orden canónico del historial: más reciente primero, con el
// id autoincremental como desempate determinístico para fechas iguales.
const ordenLedger = "fecha_registro DESC, id DESC"

// MovimientoRepository es el contrato de acceso al ledger de movimientos.
// El ledger es append-only: no existe operación de actualización sobre un
// movimiento ya registrado.
type MovimientoRepository interface {
	Create(ctx context.Context, m *model.Movimiento) error
	CreateTx(tx *gorm.DB, m *model.Movimiento) error
	// Delete elimina solo el registro — no toca el stock del producto. Una
	// corrección de stock se hace con un movimiento compensatorio, nunca
	// borrando historia.
	Delete(ctx context.Context, id int64) error
	FindByID(ctx context.Context, id int64) (*model.Movimiento, error)
	ListAll(ctx context.Context) ([]model.Movimiento, error)
	ListByTipo(ctx context.Context, tipo model.TipoMovimiento) ([]model.Movimiento, error)
	ListByProducto(ctx context.Context, productoID uuid.UUID) ([]model.Movimiento, error)
	ListByRangoFechas(ctx context.Context, desde, hasta time.Time) ([]model.Movimiento, error)
	Search(ctx context.Context, q string) ([]model.Movimiento, error)
	Ultimos(ctx context.Context, limite int) ([]model.Movimiento, error)
	SumCantidad(ctx context.Context, productoID uuid.UUID, tipo model.TipoMovimiento) (int64, error)
	Count(ctx context.Context) (int64, error)
	CountByTipo(ctx context.Context, tipo model.TipoMovimiento) (int64, error)
	// EraseAll vacía el ledger sin compensar stock: "archive reset" explícito.
	EraseAll(ctx context.Context) error
}

type movimientoRepo struct{ db *gorm.DB }

func NewMovimientoRepository(db *gorm.DB) MovimientoRepository {
	return &movimientoRepo{db: db}
}

func (r *movimientoRepo) Create(ctx context.Context, m *model.Movimiento) error {
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return fmt.Errorf("registrar movimiento: %w", err)
	}
	return nil
}

func (r *movimientoRepo) CreateTx(tx *gorm.DB, m *model.Movimiento) error {
	return tx.Create(m).Error
}

func (r *movimientoRepo) Delete(ctx context.Context, id int64) error {
	if err := r.db.WithContext(ctx).Delete(&model.Movimiento{}, id).Error; err != nil {
		return fmt.Errorf("eliminar movimiento: %w", err)
	}
	return nil
}

func (r *movimientoRepo) FindByID(ctx context.Context, id int64) (*model.Movimiento, error) {
	var m model.Movimiento
	if err := r.db.WithContext(ctx).First(&m, id).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *movimientoRepo) ListAll(ctx context.Context) ([]model.Movimiento, error) {
	var movimientos []model.Movimiento
	err := r.db.WithContext(ctx).Order(ordenLedger).Find(&movimientos).Error
	if err != nil {
		return nil, fmt.Errorf("listar movimientos: %w", err)
	}
	return movimientos, nil
}

func (r *movimientoRepo) ListByTipo(ctx context.Context, tipo model.TipoMovimiento) ([]model.Movimiento, error) {
	var movimientos []model.Movimiento
	err := r.db.WithContext(ctx).Where("tipo = ?", tipo).
		Order(ordenLedger).Find(&movimientos).Error
	if err != nil {
		return nil, fmt.Errorf("listar movimientos por tipo: %w", err)
	}
	return movimientos, nil
}

func (r *movimientoRepo) ListByProducto(ctx context.Context, productoID uuid.UUID) ([]model.Movimiento, error) {
	var movimientos []model.Movimiento
	err := r.db.WithContext(ctx).Where("producto_id = ?", productoID).
		Order(ordenLedger).Find(&movimientos).Error
	if err != nil {
		return nil, fmt.Errorf("listar movimientos por producto: %w", err)
	}
	return movimientos, nil
}

func (r *movimientoRepo) ListByRangoFechas(ctx context.Context, desde, hasta time.Time) ([]model.Movimiento, error) {
	var movimientos []model.Movimiento
	err := r.db.WithContext(ctx).
		Where("fecha_registro BETWEEN ? AND ?", desde, hasta).
		Order(ordenLedger).Find(&movimientos).Error
	if err != nil {
		return nil, fmt.Errorf("listar movimientos por rango: %w", err)
	}
	return movimientos, nil
}

func (r *movimientoRepo) Search(ctx context.Context, buscar string) ([]model.Movimiento, error) {
	pattern := "%" + buscar + "%"
	var movimientos []model.Movimiento
	err := r.db.WithContext(ctx).
		Where("LOWER(producto_nombre) LIKE LOWER(?) OR LOWER(producto_codigo) LIKE LOWER(?) OR LOWER(motivo) LIKE LOWER(?)",
			pattern, pattern, pattern).
		Order(ordenLedger).Find(&movimientos).Error
	if err != nil {
		return nil, fmt.Errorf("buscar movimientos: %w", err)
	}
	return movimientos, nil
}

func (r *movimientoRepo) Ultimos(ctx context.Context, limite int) ([]model.Movimiento, error) {
	if limite < 1 {
		limite = 10
	}
	var movimientos []model.Movimiento
	err := r.db.WithContext(ctx).Order(ordenLedger).Limit(limite).Find(&movimientos).Error
	if err != nil {
		return nil, fmt.Errorf("ultimos movimientos: %w", err)
	}
	return movimientos, nil
}

func (r *movimientoRepo) SumCantidad(ctx context.Context, productoID uuid.UUID, tipo model.TipoMovimiento) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&model.Movimiento{}).
		Where("producto_id = ? AND tipo = ?", productoID, tipo).
		Select("COALESCE(SUM(cantidad), 0)").Scan(&total).Error
	return total, err
}

func (r *movimientoRepo) Count(ctx context.Context) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&model.Movimiento{}).Count(&total).Error
	return total, err
}

func (r *movimientoRepo) CountByTipo(ctx context.Context, tipo model.TipoMovimiento) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&model.Movimiento{}).
		Where("tipo = ?", tipo).Count(&total).Error
	return total, err
}

func (r *movimientoRepo) EraseAll(ctx context.Context) error {
	if err := r.db.WithContext(ctx).Where("1 = 1").Delete(&model.Movimiento{}).Error; err != nil {
		return fmt.Errorf("vaciar ledger: %w", err)
	}
	return nil
}
