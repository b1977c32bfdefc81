package dto

// ─── Request DTOs ────────────────────────────────────────────────────────────

// RegistrarMovimientoRequest es el cuerpo compartido de entradas y salidas.
// El tipo viaja explícito: el servicio rechaza un tipo que no corresponde a la
// operación invocada.
type RegistrarMovimientoRequest struct {
	ProductoID    string `json:"producto_id"   validate:"required,uuid"`
	Tipo          string `json:"tipo"          validate:"required,oneof=ENTRADA SALIDA"`
	Cantidad      int    `json:"cantidad"      validate:"required,gt=0"`
	Motivo        string `json:"motivo"`
	Observaciones string `json:"observaciones"`
}

// ─── Filter ──────────────────────────────────────────────────────────────────

// MovimientoFilter selecciona movimientos del historial. Desde/Hasta son
// inclusivos, formato RFC 3339.
type MovimientoFilter struct {
	Tipo       string `form:"tipo"        validate:"omitempty,oneof=ENTRADA SALIDA"`
	ProductoID string `form:"producto_id" validate:"omitempty,uuid"`
	Desde      string `form:"desde"`
	Hasta      string `form:"hasta"`
	Buscar     string `form:"q"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type MovimientoResponse struct {
	ID             int64  `json:"id"`
	ProductoID     string `json:"producto_id"`
	ProductoNombre string `json:"producto_nombre"`
	ProductoCodigo string `json:"producto_codigo"`
	Tipo           string `json:"tipo"`
	Cantidad       int    `json:"cantidad"`
	FechaRegistro  string `json:"fecha_registro"`
	Motivo         string `json:"motivo"`
	Observaciones  string `json:"observaciones"`
}

type MovimientoListResponse struct {
	Data  []MovimientoResponse `json:"data"`
	Total int                  `json:"total"`
}

// RegistroResponse confirma un movimiento reconciliado: id asignado por el
// ledger y stock resultante del producto.
type RegistroResponse struct {
	MovimientoID int64 `json:"movimiento_id"`
	StockActual  int   `json:"stock_actual"`
	AlertaStock  bool  `json:"alerta_stock"`
}
