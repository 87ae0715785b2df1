package units

import (
	"fmt"
	"sort"
	"sync"
)

// Factory создаёт экземпляр агента.
type Factory func() (Unit, error)

// Catalog — декларативная таблица регистрации: имя агента → фабрика.
type Catalog map[string]Factory

// Registry — реестр агентов.
//
// Заполняется из Catalog и отдаёт агентов по имени. Созданные
// агенты кэшируются. Потокобезопасен.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
	units     map[string]Unit
}

// NewRegistry создаёт пустой реестр.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
		units:     make(map[string]Unit),
	}
}

// NewRegistryFromCatalog создаёт реестр по таблице регистрации.
func NewRegistryFromCatalog(c Catalog) (*Registry, error) {
	r := NewRegistry()
	for name, f := range c {
		if err := r.Register(name, f); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// DefaultRegistry создаёт реестр со всеми встроенными агентами.
func DefaultRegistry(opts Options) *Registry {
	r := NewRegistry()
	for name, f := range DefaultCatalog(opts) {
		// Встроенный каталог не содержит пустых имён и nil фабрик
		_ = r.Register(name, f)
	}
	return r
}

// Register регистрирует фабрику агента.
// Если агент с таким именем уже существует, он будет перезаписан.
func (r *Registry) Register(name string, f Factory) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidUnit)
	}
	if f == nil {
		return fmt.Errorf("%w: %s: nil factory", ErrInvalidUnit, name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = f
	delete(r.units, name)
	return nil
}

// RegisterUnit регистрирует готовый экземпляр агента.
func (r *Registry) RegisterUnit(name string, u Unit) error {
	if u == nil {
		return fmt.Errorf("%w: %s: nil unit", ErrInvalidUnit, name)
	}
	return r.Register(name, func() (Unit, error) { return u, nil })
}

// Load возвращает агента по имени.
//
// Возвращает ErrUnitNotFound, если имя не зарегистрировано, и
// ErrInvalidUnit, если фабрика вернула ошибку или nil.
func (r *Registry) Load(name string) (Unit, error) {
	r.mu.RLock()
	u, cached := r.units[name]
	f, exists := r.factories[name]
	r.mu.RUnlock()

	if cached {
		return u, nil
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrUnitNotFound, name)
	}

	u, err := f()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidUnit, name, err)
	}
	if u == nil {
		return nil, fmt.Errorf("%w: %s: factory returned nil", ErrInvalidUnit, name)
	}

	r.mu.Lock()
	r.units[name] = u
	r.mu.Unlock()

	return u, nil
}

// Has проверяет, зарегистрирован ли агент.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.factories[name]
	return exists
}

// Names возвращает отсортированный список имён агентов.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count возвращает количество зарегистрированных агентов.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.factories)
}

// Unregister удаляет агента из реестра.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.factories, name)
	delete(r.units, name)
}
