package handler

import (
	"net/http"

	"github.com/cris-98/aplicativo-nippon/internal/apierror"
	"github.com/cris-98/aplicativo-nippon/internal/dto"
	"github.com/cris-98/aplicativo-nippon/internal/infra"
	"github.com/cris-98/aplicativo-nippon/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type ReportesHandler struct {
	svc         service.ReporteService
	storagePath string
}

func NewReportesHandler(svc service.ReporteService, storagePath string) *ReportesHandler {
	return &ReportesHandler{svc: svc, storagePath: storagePath}
}

// ExportarCSV descarga el historial de movimientos como CSV.
func (h *ReportesHandler) ExportarCSV(c *gin.Context) {
	var filter dto.ReporteFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New(err.Error()))
		return
	}
	csv, err := h.svc.ExportarCSV(c.Request.Context(), filter)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="movimientos.csv"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", []byte(csv))
}

// ExportarPDF genera el reporte en PDF y lo entrega como descarga.
func (h *ReportesHandler) ExportarPDF(c *gin.Context) {
	var filter dto.ReporteFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New(err.Error()))
		return
	}
	movimientos, err := h.svc.Movimientos(c.Request.Context(), filter)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	path, err := infra.GenerarReporteMovimientosPDF(movimientos, h.storagePath)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, apierror.New("No se pudo generar el PDF"))
		return
	}
	c.FileAttachment(path, "movimientos.pdf")
}

// TotalesProducto agrega entradas y salidas de un producto desde el ledger.
func (h *ReportesHandler) TotalesProducto(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("ID invalido"))
		return
	}
	resp, err := h.svc.TotalesProducto(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Resumen entrega los contadores del dashboard (cacheados en Redis).
func (h *ReportesHandler) Resumen(c *gin.Context) {
	resp, err := h.svc.Resumen(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// LimpiarHistorial vacía el ledger. Las cantidades de producto conservan su
// último valor: es un reinicio de archivo, no una reversión.
func (h *ReportesHandler) LimpiarHistorial(c *gin.Context) {
	if err := h.svc.LimpiarHistorial(c.Request.Context()); err != nil {
		respondServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
