package router

import (
	"time"

	"github.com/cris-98/aplicativo-nippon/internal/config"
	"github.com/cris-98/aplicativo-nippon/internal/eventbus"
	"github.com/cris-98/aplicativo-nippon/internal/handler"
	"github.com/cris-98/aplicativo-nippon/internal/middleware"
	"github.com/cris-98/aplicativo-nippon/internal/repository"
	"github.com/cris-98/aplicativo-nippon/internal/service"
	"github.com/cris-98/aplicativo-nippon/internal/worker"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// New wires all dependencies and returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client, bus *eventbus.Bus, dispatcher *worker.Dispatcher) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.RateLimiter(1000, time.Minute)) // 1000 req/min per IP

	// ── Repositories ─────────────────────────────────────────────────────────
	productoRepo := repository.NewProductoRepository(db)
	movimientoRepo := repository.NewMovimientoRepository(db)

	// ── Services ─────────────────────────────────────────────────────────────
	productoSvc := service.NewProductoService(productoRepo, bus)
	movimientoSvc := service.NewMovimientoService(movimientoRepo, productoRepo, bus, dispatcher)
	reporteSvc := service.NewReporteService(movimientoRepo, productoRepo, bus, rdb)

	// ── Handlers ─────────────────────────────────────────────────────────────
	productosH := handler.NewProductosHandler(productoSvc)
	movimientosH := handler.NewMovimientosHandler(movimientoSvc)
	reportesH := handler.NewReportesHandler(reporteSvc, cfg.ReportStoragePath)

	r.GET("/health", handler.Health(db, rdb))
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	v1 := r.Group("/v1")
	{
		productos := v1.Group("/productos")
		{
			productos.POST("", productosH.Crear)
			productos.GET("", productosH.Listar)
			productos.GET("/buscar", productosH.Buscar)
			productos.GET("/watch", productosH.Watch)
			productos.GET("/categorias", productosH.Categorias)
			productos.GET("/codigo/:codigo", productosH.ObtenerPorCodigo)
			productos.GET("/:id", productosH.ObtenerPorID)
			productos.PUT("/:id", productosH.Actualizar)
			productos.DELETE("/:id", productosH.Eliminar)
		}

		movimientos := v1.Group("/movimientos")
		{
			movimientos.POST("/entradas", movimientosH.RegistrarEntrada)
			movimientos.POST("/salidas", movimientosH.RegistrarSalida)
			movimientos.GET("", movimientosH.Listar)
			movimientos.GET("/ultimos", movimientosH.Ultimos)
			movimientos.GET("/watch", movimientosH.Watch)
			movimientos.GET("/motivos", movimientosH.Motivos)
			movimientos.DELETE("/:id", movimientosH.Eliminar)
		}

		reportes := v1.Group("/reportes")
		{
			reportes.GET("/movimientos/csv", reportesH.ExportarCSV)
			reportes.GET("/movimientos/pdf", reportesH.ExportarPDF)
			reportes.GET("/resumen", reportesH.Resumen)
			reportes.GET("/productos/:id/totales", reportesH.TotalesProducto)
			reportes.DELETE("/movimientos", reportesH.LimpiarHistorial)
		}
	}

	return r
}
