package model

import (
	"time"

	"github.com/google/uuid"
)

// TipoMovimiento distingue los dos tipos de movimiento del ledger.
type TipoMovimiento string

const (
	TipoEntrada TipoMovimiento = "ENTRADA" // ingreso de productos, aumenta stock
	TipoSalida  TipoMovimiento = "SALIDA"  // egreso de productos, disminuye stock
)

// EsValido reporta si el tipo es uno de los dos conocidos.
func (t TipoMovimiento) EsValido() bool {
	return t == TipoEntrada || t == TipoSalida
}

// Movimiento es un registro inmutable del ledger de inventario. El ID es un
// autoincrement: sirve de desempate determinístico cuando dos movimientos
// comparten FechaRegistro. ProductoNombre y ProductoCodigo se congelan al
// momento del registro para estabilidad de auditoría — nunca se refrescan
// aunque el producto cambie de nombre.
type Movimiento struct {
	ID             int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	ProductoID     uuid.UUID      `gorm:"type:uuid;not null;index" json:"producto_id"`
	ProductoNombre string         `gorm:"not null" json:"producto_nombre"`
	ProductoCodigo string         `gorm:"not null" json:"producto_codigo"`
	Tipo           TipoMovimiento `gorm:"not null;index" json:"tipo"`
	Cantidad       int            `gorm:"not null" json:"cantidad"`
	FechaRegistro  time.Time      `gorm:"not null;index" json:"fecha_registro"`
	Motivo         string         `gorm:"not null;default:''" json:"motivo"`
	Observaciones  string         `gorm:"not null;default:''" json:"observaciones"`
}

func (Movimiento) TableName() string { return "movimientos" }

// FechaFormateada retorna la fecha en formato legible dd/MM/yyyy HH:mm.
func (m *Movimiento) FechaFormateada() string {
	return m.FechaRegistro.Format("02/01/2006 15:04")
}

// EsEntrada indica si el movimiento aumenta stock.
func (m *Movimiento) EsEntrada() bool { return m.Tipo == TipoEntrada }

// EsSalida indica si el movimiento disminuye stock.
func (m *Movimiento) EsSalida() bool { return m.Tipo == TipoSalida }

// MotivosSalida son los motivos predefinidos para salidas de inventario.
var MotivosSalida = []string{
	"Venta",
	"Préstamo",
	"Mantenimiento",
	"Baja por daño",
	"Transferencia",
	"Devolución",
	"Garantía",
	"Otros",
}
