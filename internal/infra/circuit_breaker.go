package infra

import (
	"errors"
	"sync"
	"time"
)

// ── Circuit breaker del mailer ───────────────────────────────────────────────
// Protege el envío de alertas contra un servidor SMTP caído: tras una racha de
// fallos las alertas fallan rápido (y el worker las manda a la DLQ) en lugar de
// colgar goroutines esperando timeouts de conexión. Cerrado → Abierto al
// alcanzar el umbral de fallos; Abierto → Semiabierto al vencer el tiempo de
// espera; un probe exitoso en Semiabierto vuelve a Cerrado, uno fallido reabre.

// CBState es el estado vigente del breaker.
type CBState int

const (
	CBClosed   CBState = iota // operación normal
	CBOpen                    // fallo rápido, sin tocar SMTP
	CBHalfOpen                // un probe permitido para sondear recuperación
)

func (s CBState) String() string {
	switch s {
	case CBClosed:
		return "closed"
	case CBOpen:
		return "open"
	case CBHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrCircuitOpen lo retorna Execute mientras el breaker está abierto.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitBreakerConfig son los parámetros del breaker.
type CircuitBreakerConfig struct {
	FailureThreshold int           // fallos consecutivos para abrir
	SuccessThreshold int           // probes exitosos en semiabierto para cerrar
	OpenTimeout      time.Duration // espera en abierto antes de sondear
}

// DefaultSMTPCBConfig calibra el breaker para el mailer de alertas: el SMTP
// del almacén es un servidor chico, tres rechazos seguidos ya indican caída y
// dos minutos dan margen de sobra para que vuelva.
func DefaultSMTPCBConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		FailureThreshold: 3,
		SuccessThreshold: 1,
		OpenTimeout:      2 * time.Minute,
	}
}

// CircuitBreaker serializa sus transiciones con un mutex; es seguro compartirlo
// entre todos los workers del pool.
type CircuitBreaker struct {
	mu          sync.Mutex
	state       CBState
	fallos      int
	exitos      int
	ultimoFallo time.Time
	cfg         CircuitBreakerConfig
}

func NewCircuitBreaker(cfg CircuitBreakerConfig) *CircuitBreaker {
	def := DefaultSMTPCBConfig()
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = def.FailureThreshold
	}
	if cfg.SuccessThreshold <= 0 {
		cfg.SuccessThreshold = def.SuccessThreshold
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = def.OpenTimeout
	}
	return &CircuitBreaker{state: CBClosed, cfg: cfg}
}

// State retorna el estado vigente, aplicando primero la transición por tiempo
// abierto → semiabierto si ya venció la espera.
func (cb *CircuitBreaker) State() CBState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.state == CBOpen && time.Since(cb.ultimoFallo) >= cb.cfg.OpenTimeout {
		cb.state = CBHalfOpen
		cb.exitos = 0
	}
	return cb.state
}

// Execute corre fn a través del breaker; con el circuito abierto retorna
// ErrCircuitOpen sin invocarla.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	if cb.State() == CBOpen {
		return ErrCircuitOpen
	}

	err := fn()

	cb.mu.Lock()
	cb.registrar(err == nil)
	cb.mu.Unlock()
	return err
}

// registrar aplica el resultado de un intento sobre la máquina de estados.
// Se invoca bajo cb.mu.
func (cb *CircuitBreaker) registrar(ok bool) {
	if !ok {
		cb.fallos++
		cb.ultimoFallo = time.Now()
		switch cb.state {
		case CBClosed:
			if cb.fallos >= cb.cfg.FailureThreshold {
				cb.state = CBOpen
				cb.exitos = 0
			}
		case CBHalfOpen:
			// el probe falló: de vuelta a abierto
			cb.state = CBOpen
			cb.fallos = 0
		}
		return
	}

	switch cb.state {
	case CBClosed:
		cb.fallos = 0
	case CBHalfOpen:
		cb.exitos++
		if cb.exitos >= cb.cfg.SuccessThreshold {
			cb.state = CBClosed
			cb.fallos = 0
			cb.exitos = 0
		}
	}
}
