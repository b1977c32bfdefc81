package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/cris-98/aplicativo-nippon/internal/dto"
	"github.com/cris-98/aplicativo-nippon/internal/eventbus"
	"github.com/cris-98/aplicativo-nippon/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupMovimientos(t *testing.T) (MovimientoService, *stubProductoRepo, *stubMovimientoRepo) {
	t.Helper()
	productoRepo := newStubProductoRepo()
	movimientoRepo := newStubMovimientoRepo()
	svc := NewMovimientoService(movimientoRepo, productoRepo, eventbus.New(), nil)
	return svc, productoRepo, movimientoRepo
}

func sembrarProducto(t *testing.T, repo *stubProductoRepo, cantidad, minima int) uuid.UUID {
	t.Helper()
	p := &model.Producto{
		Codigo:         "FIL-001",
		Nombre:         "Filtro de aceite",
		Categoria:      "Filtros",
		Cantidad:       cantidad,
		CantidadMinima: minima,
		Estado:         model.EstadoActivo,
		FechaRegistro:  time.Now(),
	}
	require.NoError(t, repo.Create(context.Background(), p))
	return p.ID
}

func TestRegistrarSalida_DescuentaStock(t *testing.T) {
	svc, productoRepo, movimientoRepo := setupMovimientos(t)
	id := sembrarProducto(t, productoRepo, 10, 2)

	resp, err := svc.RegistrarSalida(context.Background(), dto.RegistrarMovimientoRequest{
		ProductoID: id.String(),
		Tipo:       "SALIDA",
		Cantidad:   4,
		Motivo:     "Venta",
	})
	require.NoError(t, err)
	assert.Equal(t, 6, resp.StockActual)
	assert.False(t, resp.AlertaStock)

	producto, err := productoRepo.FindByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, 6, producto.Cantidad)
	assert.Equal(t, 1, movimientoRepo.largo())
}

func TestRegistrarSalida_StockInsuficiente(t *testing.T) {
	svc, productoRepo, movimientoRepo := setupMovimientos(t)
	id := sembrarProducto(t, productoRepo, 6, 2)

	_, err := svc.RegistrarSalida(context.Background(), dto.RegistrarMovimientoRequest{
		ProductoID: id.String(),
		Tipo:       "SALIDA",
		Cantidad:   20,
		Motivo:     "Venta",
	})
	require.Error(t, err)

	var stockErr *ErrStockInsuficiente
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, 6, stockErr.Disponible)
	assert.Equal(t, 20, stockErr.Solicitado)
	assert.Equal(t, "Stock insuficiente. Disponible: 6, Solicitado: 20", err.Error())

	// el rechazo no deja rastro: ni stock tocado ni registro en el historial
	producto, err := productoRepo.FindByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, 6, producto.Cantidad)
	assert.Equal(t, 0, movimientoRepo.largo())
}

func TestRegistrarSalida_StockExacto(t *testing.T) {
	svc, productoRepo, _ := setupMovimientos(t)
	id := sembrarProducto(t, productoRepo, 5, 0)

	resp, err := svc.RegistrarSalida(context.Background(), dto.RegistrarMovimientoRequest{
		ProductoID: id.String(),
		Tipo:       "SALIDA",
		Cantidad:   5,
		Motivo:     "Venta",
	})
	require.NoError(t, err)
	assert.Equal(t, 0, resp.StockActual)
}

func TestRegistrarSalida_AlertaBajoMinimo(t *testing.T) {
	svc, productoRepo, _ := setupMovimientos(t)
	id := sembrarProducto(t, productoRepo, 10, 5)

	resp, err := svc.RegistrarSalida(context.Background(), dto.RegistrarMovimientoRequest{
		ProductoID: id.String(),
		Tipo:       "SALIDA",
		Cantidad:   6,
		Motivo:     "Venta",
	})
	require.NoError(t, err)
	assert.Equal(t, 4, resp.StockActual)
	assert.True(t, resp.AlertaStock)
}

func TestRegistrarEntrada_AumentaStock(t *testing.T) {
	svc, productoRepo, movimientoRepo := setupMovimientos(t)
	id := sembrarProducto(t, productoRepo, 6, 2)

	resp, err := svc.RegistrarEntrada(context.Background(), dto.RegistrarMovimientoRequest{
		ProductoID: id.String(),
		Tipo:       "ENTRADA",
		Cantidad:   5,
	})
	require.NoError(t, err)
	assert.Equal(t, 11, resp.StockActual)

	producto, err := productoRepo.FindByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, 11, producto.Cantidad)
	assert.Equal(t, 1, movimientoRepo.largo())
}

func TestRegistrarMovimiento_Validaciones(t *testing.T) {
	svc, productoRepo, movimientoRepo := setupMovimientos(t)
	id := sembrarProducto(t, productoRepo, 10, 2)

	casos := []struct {
		nombre  string
		salida  bool
		req     dto.RegistrarMovimientoRequest
		esperar error
	}{
		{
			nombre: "uuid invalido",
			req:    dto.RegistrarMovimientoRequest{ProductoID: "no-es-uuid", Tipo: "ENTRADA", Cantidad: 1},
		},
		{
			nombre:  "tipo desconocido",
			req:     dto.RegistrarMovimientoRequest{ProductoID: id.String(), Tipo: "TRASLADO", Cantidad: 1},
			esperar: ErrTipoMovimientoInvalido,
		},
		{
			nombre:  "tipo cruzado: salida por el camino de entrada",
			req:     dto.RegistrarMovimientoRequest{ProductoID: id.String(), Tipo: "SALIDA", Cantidad: 1, Motivo: "Venta"},
			esperar: ErrTipoMovimientoInvalido,
		},
		{
			nombre: "cantidad cero",
			req:    dto.RegistrarMovimientoRequest{ProductoID: id.String(), Tipo: "ENTRADA", Cantidad: 0},
		},
		{
			nombre: "cantidad negativa",
			req:    dto.RegistrarMovimientoRequest{ProductoID: id.String(), Tipo: "ENTRADA", Cantidad: -3},
		},
		{
			nombre: "salida sin motivo",
			salida: true,
			req:    dto.RegistrarMovimientoRequest{ProductoID: id.String(), Tipo: "SALIDA", Cantidad: 1},
		},
	}

	for _, tc := range casos {
		t.Run(tc.nombre, func(t *testing.T) {
			var err error
			if tc.salida {
				_, err = svc.RegistrarSalida(context.Background(), tc.req)
			} else {
				_, err = svc.RegistrarEntrada(context.Background(), tc.req)
			}
			require.Error(t, err)
			if tc.esperar != nil {
				assert.ErrorIs(t, err, tc.esperar)
			}
		})
	}

	// ninguna validación fallida dejó mutación
	producto, err := productoRepo.FindByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, 10, producto.Cantidad)
	assert.Equal(t, 0, movimientoRepo.largo())
}

func TestRegistrarMovimiento_ProductoNoEncontrado(t *testing.T) {
	svc, _, _ := setupMovimientos(t)

	_, err := svc.RegistrarEntrada(context.Background(), dto.RegistrarMovimientoRequest{
		ProductoID: uuid.NewString(),
		Tipo:       "ENTRADA",
		Cantidad:   1,
	})
	assert.ErrorIs(t, err, ErrProductoNoEncontrado)

	_, err = svc.RegistrarSalida(context.Background(), dto.RegistrarMovimientoRequest{
		ProductoID: uuid.NewString(),
		Tipo:       "SALIDA",
		Cantidad:   1,
		Motivo:     "Venta",
	})
	assert.ErrorIs(t, err, ErrProductoNoEncontrado)
}

// El invariante del motor: tras cualquier secuencia de movimientos aceptados,
// stock final = inicial + suma(entradas) - suma(salidas).
func TestReconciliacion_InvarianteDeStock(t *testing.T) {
	svc, productoRepo, movimientoRepo := setupMovimientos(t)
	id := sembrarProducto(t, productoRepo, 10, 0)

	pasos := []struct {
		tipo     string
		cantidad int
	}{
		{"SALIDA", 4},
		{"ENTRADA", 7},
		{"SALIDA", 2},
		{"SALIDA", 50}, // rechazado, no cuenta
		{"ENTRADA", 1},
	}

	esperado := 10
	aceptados := 0
	for _, paso := range pasos {
		req := dto.RegistrarMovimientoRequest{
			ProductoID: id.String(),
			Tipo:       paso.tipo,
			Cantidad:   paso.cantidad,
			Motivo:     "Venta",
		}
		var err error
		if paso.tipo == "ENTRADA" {
			_, err = svc.RegistrarEntrada(context.Background(), req)
		} else {
			_, err = svc.RegistrarSalida(context.Background(), req)
		}
		if err == nil {
			aceptados++
			if paso.tipo == "ENTRADA" {
				esperado += paso.cantidad
			} else {
				esperado -= paso.cantidad
			}
		}
	}

	producto, err := productoRepo.FindByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, 12, esperado)
	assert.Equal(t, esperado, producto.Cantidad)
	assert.Equal(t, aceptados, movimientoRepo.largo())
}

// Dos salidas concurrentes, cada una menor al stock pero que juntas lo exceden,
// jamás pueden confirmarse ambas.
func TestRegistrarSalida_ConcurrenciaNoSobrevende(t *testing.T) {
	svc, productoRepo, movimientoRepo := setupMovimientos(t)
	id := sembrarProducto(t, productoRepo, 10, 0)

	const (
		goroutines = 10
		porSalida  = 2
	)

	var wg sync.WaitGroup
	errs := make(chan error, goroutines)
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.RegistrarSalida(context.Background(), dto.RegistrarMovimientoRequest{
				ProductoID: id.String(),
				Tipo:       "SALIDA",
				Cantidad:   porSalida,
				Motivo:     "Venta",
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	exitos := 0
	for err := range errs {
		if err == nil {
			exitos++
		} else {
			var stockErr *ErrStockInsuficiente
			assert.ErrorAs(t, err, &stockErr)
		}
	}

	producto, err := productoRepo.FindByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, 5, exitos)
	assert.Equal(t, 0, producto.Cantidad)
	assert.Equal(t, 5, movimientoRepo.largo())

	// terminada la contienda, el mapa de locks por producto quedó drenado
	impl := svc.(*movimientoService)
	impl.locks.mu.Lock()
	assert.Empty(t, impl.locks.locks)
	impl.locks.mu.Unlock()
}

func TestStockLocks_NoRetieneEntradasSinTenedores(t *testing.T) {
	locks := newStockLocks()
	ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}

	var wg sync.WaitGroup
	for i := 0; i < 30; i++ {
		wg.Add(1)
		id := ids[i%len(ids)]
		go func() {
			defer wg.Done()
			unlock := locks.lock(id)
			time.Sleep(time.Millisecond)
			unlock()
		}()
	}
	wg.Wait()

	// sin tenedores ni esperas el mapa queda vacío
	locks.mu.Lock()
	defer locks.mu.Unlock()
	assert.Empty(t, locks.locks)
}

func TestListar_Filtros(t *testing.T) {
	svc, productoRepo, _ := setupMovimientos(t)
	id := sembrarProducto(t, productoRepo, 100, 0)
	otro := sembrarProductoCodigo(t, productoRepo, "BAT-002", "Bateria 12V", 50)

	registrar := func(productoID uuid.UUID, tipo string, cantidad int) {
		req := dto.RegistrarMovimientoRequest{
			ProductoID: productoID.String(),
			Tipo:       tipo,
			Cantidad:   cantidad,
			Motivo:     "Venta",
		}
		var err error
		if tipo == "ENTRADA" {
			_, err = svc.RegistrarEntrada(context.Background(), req)
		} else {
			_, err = svc.RegistrarSalida(context.Background(), req)
		}
		require.NoError(t, err)
	}

	registrar(id, "ENTRADA", 5)
	registrar(id, "SALIDA", 2)
	registrar(otro, "SALIDA", 1)

	todos, err := svc.Listar(context.Background(), dto.MovimientoFilter{})
	require.NoError(t, err)
	assert.Equal(t, 3, todos.Total)

	salidas, err := svc.Listar(context.Background(), dto.MovimientoFilter{Tipo: "SALIDA"})
	require.NoError(t, err)
	assert.Equal(t, 2, salidas.Total)

	porProducto, err := svc.Listar(context.Background(), dto.MovimientoFilter{ProductoID: otro.String()})
	require.NoError(t, err)
	require.Equal(t, 1, porProducto.Total)
	assert.Equal(t, "BAT-002", porProducto.Data[0].ProductoCodigo)

	busqueda, err := svc.Listar(context.Background(), dto.MovimientoFilter{Buscar: "bateria"})
	require.NoError(t, err)
	assert.Equal(t, 1, busqueda.Total)

	hoy := time.Now().Format("2006-01-02")
	rango, err := svc.Listar(context.Background(), dto.MovimientoFilter{Desde: hoy, Hasta: hoy})
	require.NoError(t, err)
	assert.Equal(t, 3, rango.Total)

	_, err = svc.Listar(context.Background(), dto.MovimientoFilter{Desde: "ayer"})
	var valErr *ErrValidacion
	assert.ErrorAs(t, err, &valErr)
}

func sembrarProductoCodigo(t *testing.T, repo *stubProductoRepo, codigo, nombre string, cantidad int) uuid.UUID {
	t.Helper()
	p := &model.Producto{
		Codigo:        codigo,
		Nombre:        nombre,
		Categoria:     "Electrico",
		Cantidad:      cantidad,
		Estado:        model.EstadoActivo,
		FechaRegistro: time.Now(),
	}
	require.NoError(t, repo.Create(context.Background(), p))
	return p.ID
}

func TestListar_OrdenDeterministaDelHistorial(t *testing.T) {
	svc, productoRepo, movimientoRepo := setupMovimientos(t)
	id := sembrarProducto(t, productoRepo, 100, 0)

	// tres movimientos con la misma marca de tiempo: desempata el id, más
	// reciente primero
	ahora := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, movimientoRepo.CreateTx(nil, &model.Movimiento{
			ProductoID:    id,
			Tipo:          model.TipoEntrada,
			Cantidad:      i + 1,
			FechaRegistro: ahora,
		}))
	}

	resp, err := svc.Listar(context.Background(), dto.MovimientoFilter{})
	require.NoError(t, err)
	require.Equal(t, 3, resp.Total)
	assert.Equal(t, int64(3), resp.Data[0].ID)
	assert.Equal(t, int64(2), resp.Data[1].ID)
	assert.Equal(t, int64(1), resp.Data[2].ID)
}

func TestUltimos_LimitaElHistorial(t *testing.T) {
	svc, productoRepo, _ := setupMovimientos(t)
	id := sembrarProducto(t, productoRepo, 100, 0)

	for i := 0; i < 8; i++ {
		_, err := svc.RegistrarEntrada(context.Background(), dto.RegistrarMovimientoRequest{
			ProductoID: id.String(),
			Tipo:       "ENTRADA",
			Cantidad:   1,
		})
		require.NoError(t, err)
	}

	ultimos, err := svc.Ultimos(context.Background(), 5)
	require.NoError(t, err)
	assert.Len(t, ultimos, 5)
}

func TestEliminar_NoRevierteStock(t *testing.T) {
	svc, productoRepo, movimientoRepo := setupMovimientos(t)
	id := sembrarProducto(t, productoRepo, 10, 0)

	resp, err := svc.RegistrarSalida(context.Background(), dto.RegistrarMovimientoRequest{
		ProductoID: id.String(),
		Tipo:       "SALIDA",
		Cantidad:   4,
		Motivo:     "Venta",
	})
	require.NoError(t, err)

	require.NoError(t, svc.Eliminar(context.Background(), resp.MovimientoID))
	assert.Equal(t, 0, movimientoRepo.largo())

	// el stock conserva el efecto de la salida borrada
	producto, err := productoRepo.FindByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, 6, producto.Cantidad)

	assert.ErrorIs(t, svc.Eliminar(context.Background(), resp.MovimientoID), ErrMovimientoNoEncontrado)
}

func TestWatch_EmiteSnapshotsAnteCambios(t *testing.T) {
	svc, productoRepo, _ := setupMovimientos(t)
	id := sembrarProducto(t, productoRepo, 10, 0)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := svc.Watch(ctx, dto.MovimientoFilter{})

	// snapshot inicial, historial vacío
	select {
	case snap := <-ch:
		assert.Empty(t, snap)
	case <-time.After(2 * time.Second):
		t.Fatal("no llegó el snapshot inicial")
	}

	_, err := svc.RegistrarEntrada(context.Background(), dto.RegistrarMovimientoRequest{
		ProductoID: id.String(),
		Tipo:       "ENTRADA",
		Cantidad:   3,
	})
	require.NoError(t, err)

	select {
	case snap := <-ch:
		require.Len(t, snap, 1)
		assert.Equal(t, "ENTRADA", snap[0].Tipo)
		assert.Equal(t, 3, snap[0].Cantidad)
	case <-time.After(2 * time.Second):
		t.Fatal("no llegó el snapshot tras el cambio")
	}

	cancel()
	select {
	case _, abierto := <-ch:
		assert.False(t, abierto)
	case <-time.After(2 * time.Second):
		t.Fatal("el canal no se cerró tras cancelar")
	}
}
