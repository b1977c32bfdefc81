// Package eventbus implements the best-effort change notification channel que
// acopla el lado de escritura (reconciliación) con los consumidores de lectura
// (live queries, invalidación de caches). No hay replay ni buffering: un
// consumidor que no está suscrito en el momento de NotifyChanged simplemente
// nunca observa esa notificación.
package eventbus

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// Subscription is one consumer's handle on the bus. C recibe una señal por
// cada cambio observado; señales consecutivas sin consumir se coalescen en una.
type Subscription struct {
	C   chan struct{}
	bus *Bus
}

// Unsubscribe removes the subscription deterministically. Después de retornar,
// el canal no recibe más señales. Idempotente.
func (s *Subscription) Unsubscribe() {
	s.bus.remove(s)
}

// Bus is an in-process broadcast channel. Fire-and-forget: NotifyChanged never
// blocks on a slow consumer.
type Bus struct {
	mu   sync.Mutex
	subs map[*Subscription]struct{}
}

func New() *Bus {
	return &Bus{subs: make(map[*Subscription]struct{})}
}

// Subscribe registers a new consumer. The returned subscription keeps emitting
// until Unsubscribe is called — the caller owns that lifecycle.
func (b *Bus) Subscribe() *Subscription {
	s := &Subscription{
		// buffer de 1: coalesce de ráfagas, nunca bloquea al emisor
		C:   make(chan struct{}, 1),
		bus: b,
	}
	b.mu.Lock()
	b.subs[s] = struct{}{}
	b.mu.Unlock()
	return s
}

func (b *Bus) remove(s *Subscription) {
	b.mu.Lock()
	delete(b.subs, s)
	b.mu.Unlock()
}

// NotifyChanged signals every current subscriber that ledger/stock state
// changed. Subscribers with a pending unconsumed signal are skipped (coalesce).
func (b *Bus) NotifyChanged() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for s := range b.subs {
		select {
		case s.C <- struct{}{}:
		default:
			// señal pendiente sin consumir — se coalesce
		}
	}
	log.Debug().Int("subscribers", len(b.subs)).Msg("eventbus: change notified")
}
