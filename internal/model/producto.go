package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Estados posibles de un producto en el catálogo.
const (
	EstadoActivo   = "ACTIVO"
	EstadoInactivo = "INACTIVO"
)

// Producto representa un producto del almacén NIPPONAUTO. El campo Cantidad es
// el stock vigente: solo lo mutan las operaciones de reconciliación
// (entradas/salidas); el resto de los campos pertenece al catálogo.
type Producto struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	Codigo         string          `gorm:"uniqueIndex;not null" json:"codigo"`
	Nombre         string          `gorm:"index;not null" json:"nombre"`
	Descripcion    string          `json:"descripcion"`
	Categoria      string          `gorm:"not null" json:"categoria"`
	Cantidad       int             `gorm:"not null;default:0" json:"cantidad"`
	CantidadMinima int             `gorm:"not null;default:0" json:"cantidad_minima"`
	PrecioUnitario decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"precio_unitario"`
	Ubicacion      string          `json:"ubicacion"`
	Proveedor      string          `json:"proveedor"`
	FechaRegistro  time.Time       `gorm:"not null" json:"fecha_registro"`
	Estado         string          `gorm:"not null;default:'ACTIVO'" json:"estado"`
}

func (Producto) TableName() string { return "productos" }

// BeforeCreate asigna el UUID en la aplicación, no en el motor: funciona igual
// sobre postgres y sqlite.
func (p *Producto) BeforeCreate(_ *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// EsBajoStock indica si el producto está en o por debajo del umbral de reposición.
func (p *Producto) EsBajoStock() bool { return p.Cantidad <= p.CantidadMinima }

// EstaActivo indica si el producto sigue vigente en el catálogo.
func (p *Producto) EstaActivo() bool { return p.Estado == EstadoActivo }

// ValorInventario calcula el valor total del stock de este producto.
func (p *Producto) ValorInventario() decimal.Decimal {
	return p.PrecioUnitario.Mul(decimal.NewFromInt(int64(p.Cantidad)))
}

// CategoriasProducto son las categorías predefinidas del almacén.
var CategoriasProducto = []string{
	"Repuestos",
	"Accesorios",
	"Herramientas",
	"Lubricantes",
	"Neumáticos",
	"Baterías",
	"Filtros",
	"Frenos",
	"Suspensión",
	"Eléctrico",
	"Motor",
	"Transmisión",
	"Otros",
}
