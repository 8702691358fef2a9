package ledgerstate

import (
	"fmt"
	"sort"
	"sync"
)

// State is implemented by every concrete ledger entity.
type State interface {
	// Class returns the entity's type tag.
	Class() string
	// Key returns the composite key the entity is stored under.
	Key() string
	// ToBuffer serializes the entity.
	ToBuffer() ([]byte, error)
}

// Constructor rebuilds a concrete State from a verified envelope.
type Constructor func(env *Envelope) (State, error)

// Registry maps type tags to constructors. Registration happens at process
// start; lookups are safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	ctors map[string]Constructor
}

// DefaultRegistry is the registry used by Register and by entity packages.
var DefaultRegistry = NewRegistry()

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{ctors: make(map[string]Constructor)}
}

// Register adds a constructor for class to the DefaultRegistry.
func Register(class string, ctor Constructor) {
	DefaultRegistry.Register(class, ctor)
}

// Register adds a constructor for class. It panics on an empty tag, a nil
// constructor or a duplicate registration.
func (r *Registry) Register(class string, ctor Constructor) {
	if class == "" {
		panic("ledgerstate: Register with empty type tag")
	}
	if ctor == nil {
		panic("ledgerstate: Register " + class + " with nil constructor")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.ctors[class]; dup {
		panic("ledgerstate: Register called twice for " + class)
	}
	r.ctors[class] = ctor
}

// Classes returns the registered type tags in sorted order.
func (r *Registry) Classes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.ctors))
	for c := range r.ctors {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

func (r *Registry) lookup(class string) (Constructor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ctor, ok := r.ctors[class]
	return ctor, ok
}

// Decode reconstructs whatever registered type buf carries.
func (r *Registry) Decode(buf []byte) (State, error) {
	env, err := Decode(buf)
	if err != nil {
		return nil, err
	}
	return r.construct(env)
}

func (r *Registry) construct(env *Envelope) (State, error) {
	ctor, ok := r.lookup(env.Class)
	if !ok {
		return nil, &DeserializationError{Msg: fmt.Sprintf("unregistered type tag %q", env.Class)}
	}
	s, err := ctor(env)
	if err != nil {
		return nil, err
	}
	if s.Class() != env.Class {
		return nil, &TypeMismatchError{Want: env.Class, Got: s.Class()}
	}
	return s, nil
}

// Unmarshal reconstructs a buffer that must carry class and must decode to T.
func Unmarshal[T State](r *Registry, buf []byte, class string) (T, error) {
	var zero T

	env, err := Decode(buf)
	if err != nil {
		return zero, err
	}
	if err := env.Expect(class); err != nil {
		return zero, err
	}

	s, err := r.construct(env)
	if err != nil {
		return zero, err
	}
	t, ok := s.(T)
	if !ok {
		return zero, &TypeMismatchError{Want: fmt.Sprintf("%T", zero), Got: fmt.Sprintf("%T", s)}
	}
	return t, nil
}
