package netplay

import (
	"sync"

	"go.uber.org/zap"

	"github.com/darius0048/pokelink/protocol"
)

// Handler consumes one inbound frame. A returned error is logged and
// does not stop other handlers registered for the same type.
type Handler func(protocol.Message) error

type registration struct {
	id int
	fn Handler
}

// Router fans inbound frames out to handlers by message type. Handlers
// run in registration order; each handler is isolated, so one failing
// or panicking never affects the others or the connection.
type Router struct {
	mu       sync.RWMutex
	handlers map[string][]registration
	nextID   int
	log      *zap.Logger
}

// NewRouter creates an empty router. A nil logger disables logging.
func NewRouter(log *zap.Logger) *Router {
	if log == nil {
		log = zap.NewNop()
	}
	return &Router{
		handlers: make(map[string][]registration),
		log:      log,
	}
}

// Register adds a handler for a message type and returns its disposer.
// Any number of handlers may watch one type. The disposer removes
// exactly this handler and is safe to call more than once.
func (r *Router) Register(msgType string, fn Handler) func() {
	r.mu.Lock()
	r.nextID++
	id := r.nextID
	r.handlers[msgType] = append(r.handlers[msgType], registration{id: id, fn: fn})
	r.mu.Unlock()

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		regs := r.handlers[msgType]
		for i, reg := range regs {
			if reg.id == id {
				r.handlers[msgType] = append(regs[:i], regs[i+1:]...)
				return
			}
		}
	}
}

// Dispatch delivers one frame to every handler registered for its type,
// in registration order. Frames without a handler are ignored.
func (r *Router) Dispatch(msg protocol.Message) {
	r.mu.RLock()
	regs := make([]registration, len(r.handlers[msg.Type]))
	copy(regs, r.handlers[msg.Type])
	r.mu.RUnlock()

	for _, reg := range regs {
		r.invoke(reg.fn, msg)
	}
}

// invoke runs one handler, containing its error or panic.
func (r *Router) invoke(fn Handler, msg protocol.Message) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error("message handler panicked",
				zap.String("type", msg.Type),
				zap.Any("panic", rec))
		}
	}()

	if err := fn(msg); err != nil {
		r.log.Warn("message handler failed",
			zap.String("type", msg.Type),
			zap.Error(err))
	}
}
