package dto

import "github.com/shopspring/decimal"

// ─── Request DTOs ────────────────────────────────────────────────────────────

type CrearProductoRequest struct {
	Codigo         string          `json:"codigo"          validate:"required,min=2,max=40"`
	Nombre         string          `json:"nombre"          validate:"required,min=2,max=120"`
	Descripcion    string          `json:"descripcion"`
	Categoria      string          `json:"categoria"       validate:"required"`
	Cantidad       int             `json:"cantidad"        validate:"min=0"`
	CantidadMinima int             `json:"cantidad_minima" validate:"min=0"`
	PrecioUnitario decimal.Decimal `json:"precio_unitario" validate:"min=0"`
	Ubicacion      string          `json:"ubicacion"`
	Proveedor      string          `json:"proveedor"`
}

type ActualizarProductoRequest struct {
	Nombre         *string          `json:"nombre"          validate:"omitempty,min=2,max=120"`
	Descripcion    *string          `json:"descripcion"`
	Categoria      *string          `json:"categoria"`
	CantidadMinima *int             `json:"cantidad_minima" validate:"omitempty,min=0"`
	PrecioUnitario *decimal.Decimal `json:"precio_unitario"`
	Ubicacion      *string          `json:"ubicacion"`
	Proveedor      *string          `json:"proveedor"`
	Estado         *string          `json:"estado"          validate:"omitempty,oneof=ACTIVO INACTIVO"`
}

// ─── Filter ──────────────────────────────────────────────────────────────────

// ProductoFilter selecciona el subconjunto de productos a listar.
// Estado: "activos" (default), "inactivos" o "all".
type ProductoFilter struct {
	Estado    string `form:"estado"`
	Categoria string `form:"categoria"`
	StockBajo bool   `form:"stock_bajo"`
	Buscar    string `form:"q"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type ProductoResponse struct {
	ID              string          `json:"id"`
	Codigo          string          `json:"codigo"`
	Nombre          string          `json:"nombre"`
	Descripcion     string          `json:"descripcion"`
	Categoria       string          `json:"categoria"`
	Cantidad        int             `json:"cantidad"`
	CantidadMinima  int             `json:"cantidad_minima"`
	PrecioUnitario  decimal.Decimal `json:"precio_unitario"`
	Ubicacion       string          `json:"ubicacion"`
	Proveedor       string          `json:"proveedor"`
	FechaRegistro   string          `json:"fecha_registro"`
	Estado          string          `json:"estado"`
	BajoStock       bool            `json:"bajo_stock"`
	ValorInventario decimal.Decimal `json:"valor_inventario"`
}

type ProductoListResponse struct {
	Data  []ProductoResponse `json:"data"`
	Total int                `json:"total"`
}
