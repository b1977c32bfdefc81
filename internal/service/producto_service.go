package service

import (
	"context"
	"strings"
	"time"

	"github.com/cris-98/aplicativo-nippon/internal/dto"
	"github.com/cris-98/aplicativo-nippon/internal/eventbus"
	"github.com/cris-98/aplicativo-nippon/internal/model"
	"github.com/cris-98/aplicativo-nippon/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// ProductoService define la lógica de catálogo. La cantidad (stock) nunca se
// muta por este camino: eso es exclusivo del motor de reconciliación.
type ProductoService interface {
	Crear(ctx context.Context, req dto.CrearProductoRequest) (*dto.ProductoResponse, error)
	ObtenerPorID(ctx context.Context, id uuid.UUID) (*dto.ProductoResponse, error)
	ObtenerPorCodigo(ctx context.Context, codigo string) (*dto.ProductoResponse, error)
	Listar(ctx context.Context, filter dto.ProductoFilter) (*dto.ProductoListResponse, error)
	Buscar(ctx context.Context, q string) ([]dto.ProductoResponse, error)
	Actualizar(ctx context.Context, id uuid.UUID, req dto.ActualizarProductoRequest) (*dto.ProductoResponse, error)
	// Eliminar es incondicional: los movimientos históricos del producto
	// permanecen en el ledger con sus snapshots.
	Eliminar(ctx context.Context, id uuid.UUID) error
	// Watch emite un snapshot ordenado del listado en cada cambio de la tabla,
	// hasta que ctx se cancela.
	Watch(ctx context.Context, filter dto.ProductoFilter) <-chan []dto.ProductoResponse
}

type productoService struct {
	repo repository.ProductoRepository
	bus  *eventbus.Bus
}

func NewProductoService(repo repository.ProductoRepository, bus *eventbus.Bus) ProductoService {
	return &productoService{repo: repo, bus: bus}
}

// validarProducto concentra la validación de la entidad en una sola función,
// invocada antes de cualquier mutación.
func validarProducto(req dto.CrearProductoRequest) error {
	if strings.TrimSpace(req.Codigo) == "" {
		return &ErrValidacion{Campo: "codigo", Razon: "requerido"}
	}
	if strings.TrimSpace(req.Nombre) == "" {
		return &ErrValidacion{Campo: "nombre", Razon: "requerido"}
	}
	if strings.TrimSpace(req.Categoria) == "" {
		return &ErrValidacion{Campo: "categoria", Razon: "requerida"}
	}
	if req.Cantidad < 0 {
		return &ErrValidacion{Campo: "cantidad", Razon: "no puede ser negativa"}
	}
	if req.CantidadMinima < 0 {
		return &ErrValidacion{Campo: "cantidad_minima", Razon: "no puede ser negativa"}
	}
	if req.PrecioUnitario.LessThan(decimal.Zero) {
		return &ErrValidacion{Campo: "precio_unitario", Razon: "no puede ser negativo"}
	}
	return nil
}

func (s *productoService) Crear(ctx context.Context, req dto.CrearProductoRequest) (*dto.ProductoResponse, error) {
	if err := validarProducto(req); err != nil {
		return nil, err
	}

	p := model.Producto{
		Codigo:         strings.TrimSpace(req.Codigo),
		Nombre:         strings.TrimSpace(req.Nombre),
		Descripcion:    req.Descripcion,
		Categoria:      req.Categoria,
		Cantidad:       req.Cantidad,
		CantidadMinima: req.CantidadMinima,
		PrecioUnitario: req.PrecioUnitario,
		Ubicacion:      req.Ubicacion,
		Proveedor:      req.Proveedor,
		FechaRegistro:  time.Now(),
		Estado:         model.EstadoActivo,
	}
	// La unicidad de codigo la garantiza el uniqueIndex: el insert falla
	// atómicamente ante duplicado, sin ventana check-then-insert.
	if err := s.repo.Create(ctx, &p); err != nil {
		if _, dup := s.repo.FindByCodigo(ctx, p.Codigo); dup == nil {
			return nil, ErrCodigoDuplicado
		}
		return nil, err
	}

	s.bus.NotifyChanged()
	log.Info().Str("producto_id", p.ID.String()).Str("codigo", p.Codigo).Msg("producto creado")
	resp := productoToResponse(&p)
	return &resp, nil
}

func (s *productoService) ObtenerPorID(ctx context.Context, id uuid.UUID) (*dto.ProductoResponse, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, ErrProductoNoEncontrado
	}
	resp := productoToResponse(p)
	return &resp, nil
}

func (s *productoService) ObtenerPorCodigo(ctx context.Context, codigo string) (*dto.ProductoResponse, error) {
	p, err := s.repo.FindByCodigo(ctx, codigo)
	if err != nil {
		return nil, ErrProductoNoEncontrado
	}
	resp := productoToResponse(p)
	return &resp, nil
}

func (s *productoService) Listar(ctx context.Context, filter dto.ProductoFilter) (*dto.ProductoListResponse, error) {
	productos, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	data := make([]dto.ProductoResponse, 0, len(productos))
	for i := range productos {
		data = append(data, productoToResponse(&productos[i]))
	}
	return &dto.ProductoListResponse{Data: data, Total: len(data)}, nil
}

func (s *productoService) Buscar(ctx context.Context, q string) ([]dto.ProductoResponse, error) {
	productos, err := s.repo.Search(ctx, q)
	if err != nil {
		return nil, err
	}
	data := make([]dto.ProductoResponse, 0, len(productos))
	for i := range productos {
		data = append(data, productoToResponse(&productos[i]))
	}
	return data, nil
}

func (s *productoService) Actualizar(ctx context.Context, id uuid.UUID, req dto.ActualizarProductoRequest) (*dto.ProductoResponse, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, ErrProductoNoEncontrado
	}

	if req.Nombre != nil {
		if strings.TrimSpace(*req.Nombre) == "" {
			return nil, &ErrValidacion{Campo: "nombre", Razon: "requerido"}
		}
		p.Nombre = strings.TrimSpace(*req.Nombre)
	}
	if req.Descripcion != nil {
		p.Descripcion = *req.Descripcion
	}
	if req.Categoria != nil {
		p.Categoria = *req.Categoria
	}
	if req.CantidadMinima != nil {
		if *req.CantidadMinima < 0 {
			return nil, &ErrValidacion{Campo: "cantidad_minima", Razon: "no puede ser negativa"}
		}
		p.CantidadMinima = *req.CantidadMinima
	}
	if req.PrecioUnitario != nil {
		if req.PrecioUnitario.LessThan(decimal.Zero) {
			return nil, &ErrValidacion{Campo: "precio_unitario", Razon: "no puede ser negativo"}
		}
		p.PrecioUnitario = *req.PrecioUnitario
	}
	if req.Ubicacion != nil {
		p.Ubicacion = *req.Ubicacion
	}
	if req.Proveedor != nil {
		p.Proveedor = *req.Proveedor
	}
	if req.Estado != nil {
		p.Estado = *req.Estado
	}

	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	s.bus.NotifyChanged()
	resp := productoToResponse(p)
	return &resp, nil
}

func (s *productoService) Eliminar(ctx context.Context, id uuid.UUID) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return ErrProductoNoEncontrado
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	log.Warn().Str("producto_id", id.String()).
		Msg("producto eliminado; sus movimientos quedan en el ledger con snapshots")
	s.bus.NotifyChanged()
	return nil
}

func (s *productoService) Watch(ctx context.Context, filter dto.ProductoFilter) <-chan []dto.ProductoResponse {
	out := make(chan []dto.ProductoResponse)
	sub := s.bus.Subscribe()

	go func() {
		defer close(out)
		defer sub.Unsubscribe()

		emitir := func() bool {
			resp, err := s.Listar(ctx, filter)
			if err != nil {
				log.Error().Err(err).Msg("watch productos: snapshot fallido")
				return true
			}
			select {
			case out <- resp.Data:
				return true
			case <-ctx.Done():
				return false
			}
		}

		if !emitir() {
			return
		}
		for {
			select {
			case <-ctx.Done():
				return
			case <-sub.C:
				if !emitir() {
					return
				}
			}
		}
	}()
	return out
}

func productoToResponse(p *model.Producto) dto.ProductoResponse {
	return dto.ProductoResponse{
		ID:              p.ID.String(),
		Codigo:          p.Codigo,
		Nombre:          p.Nombre,
		Descripcion:     p.Descripcion,
		Categoria:       p.Categoria,
		Cantidad:        p.Cantidad,
		CantidadMinima:  p.CantidadMinima,
		PrecioUnitario:  p.PrecioUnitario,
		Ubicacion:       p.Ubicacion,
		Proveedor:       p.Proveedor,
		FechaRegistro:   p.FechaRegistro.Format("02/01/2006 15:04"),
		Estado:          p.Estado,
		BajoStock:       p.EsBajoStock(),
		ValorInventario: p.ValorInventario(),
	}
}
