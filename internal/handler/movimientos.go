package handler

import (
	"io"
	"net/http"
	"strconv"

	"github.com/cris-98/aplicativo-nippon/internal/apierror"
	"github.com/cris-98/aplicativo-nippon/internal/dto"
	"github.com/cris-98/aplicativo-nippon/internal/model"
	"github.com/cris-98/aplicativo-nippon/internal/service"

	"github.com/gin-gonic/gin"
)

type MovimientosHandler struct{ svc service.MovimientoService }

func NewMovimientosHandler(svc service.MovimientoService) *MovimientosHandler {
	return &MovimientosHandler{svc: svc}
}

// RegistrarEntrada registra un ingreso de stock como unidad atómica
// (movimiento + aumento de cantidad).
func (h *MovimientosHandler) RegistrarEntrada(c *gin.Context) {
	var req dto.RegistrarMovimientoRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.RegistrarEntrada(c.Request.Context(), req)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// RegistrarSalida registra un egreso de stock. Rechaza con 409 cuando el stock
// disponible no alcanza, sin mutación alguna.
func (h *MovimientosHandler) RegistrarSalida(c *gin.Context) {
	var req dto.RegistrarMovimientoRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.RegistrarSalida(c.Request.Context(), req)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *MovimientosHandler) Listar(c *gin.Context) {
	var filter dto.MovimientoFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New(err.Error()))
		return
	}
	resp, err := h.svc.Listar(c.Request.Context(), filter)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *MovimientosHandler) Ultimos(c *gin.Context) {
	limite, _ := strconv.Atoi(c.DefaultQuery("limite", "10"))
	resp, err := h.svc.Ultimos(c.Request.Context(), limite)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// Eliminar borra un movimiento del ledger. El stock NO se revierte: para
// corregirlo debe registrarse un movimiento compensatorio.
func (h *MovimientosHandler) Eliminar(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("ID invalido"))
		return
	}
	if err := h.svc.Eliminar(c.Request.Context(), id); err != nil {
		respondServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Motivos lista los motivos predefinidos para salidas.
func (h *MovimientosHandler) Motivos(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": model.MotivosSalida})
}

// Watch transmite el historial como server-sent events hasta que el cliente
// corta la conexión.
func (h *MovimientosHandler) Watch(c *gin.Context) {
	var filter dto.MovimientoFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New(err.Error()))
		return
	}

	snapshots := h.svc.Watch(c.Request.Context(), filter)

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Stream(func(w io.Writer) bool {
		snap, ok := <-snapshots
		if !ok {
			return false
		}
		c.SSEvent("movimientos", snap)
		return true
	})
}
