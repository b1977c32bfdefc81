package dto

// ResumenResponse son los contadores del dashboard, calculados sobre el ledger
// y cacheados en Redis hasta la próxima notificación de cambio.
type ResumenResponse struct {
	TotalMovimientos int64 `json:"total_movimientos"`
	TotalEntradas    int64 `json:"total_entradas"`
	TotalSalidas     int64 `json:"total_salidas"`
	ProductosActivos int64 `json:"productos_activos"`
}

// TotalesProductoResponse acumula los movimientos de un producto por tipo. La
// diferencia entre entradas y salidas reconstruye el stock desde el ledger.
type TotalesProductoResponse struct {
	ProductoID    string `json:"producto_id"`
	TotalEntradas int64  `json:"total_entradas"`
	TotalSalidas  int64  `json:"total_salidas"`
	Neto          int64  `json:"neto"`
}

// ReporteFilter acota el reporte exportado a un rango de fechas inclusivo.
type ReporteFilter struct {
	Desde string `form:"desde"`
	Hasta string `form:"hasta"`
}
