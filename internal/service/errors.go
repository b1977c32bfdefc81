package service

import (
	"errors"
	"fmt"
)

// Errores de reconciliación. Siempre viajan como valores de retorno explícitos
// hacia el handler — nunca como panics cruzando la frontera del componente.
var (
	ErrProductoNoEncontrado   = errors.New("Producto no encontrado")
	ErrTipoMovimientoInvalido = errors.New("Tipo de movimiento invalido")
	ErrMovimientoNoEncontrado = errors.New("Movimiento no encontrado")
	ErrCodigoDuplicado        = errors.New("Ya existe un producto con ese codigo")
)

// ErrStockInsuficiente rechaza una salida que excede el stock disponible.
// Conserva ambos valores para el mensaje al usuario.
type ErrStockInsuficiente struct {
	Disponible int
	Solicitado int
}

func (e *ErrStockInsuficiente) Error() string {
	return fmt.Sprintf("Stock insuficiente. Disponible: %d, Solicitado: %d", e.Disponible, e.Solicitado)
}

// ErrValidacion reporta un campo que no pasó la validación de entidad, con la
// razón. La validación corre completa antes de cualquier camino de mutación.
type ErrValidacion struct {
	Campo string
	Razon string
}

func (e *ErrValidacion) Error() string {
	return fmt.Sprintf("Validacion fallida en %q: %s", e.Campo, e.Razon)
}
