package function

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrNotFound is returned when no function is registered under a name.
var ErrNotFound = errors.New("function not found")

// ErrAmbiguous is returned by Default when the catalog holds more than one
// function and none was named.
var ErrAmbiguous = errors.New("function definition required: catalog holds more than one function")

// Catalog is a name-keyed registry of functions.
type Catalog struct {
	mtx       sync.RWMutex
	functions map[string]*Function
	options   []Option
}

// NewCatalog returns an empty Catalog. The options are applied to every
// function registered afterwards.
func NewCatalog(options ...Option) *Catalog {
	return &Catalog{functions: map[string]*Function{}, options: options}
}

// Register inspects fn and adds it under name, replacing any previous
// registration.
func (c *Catalog) Register(name string, fn any) error {
	if name == "" {
		return errors.New("function name must not be empty")
	}
	f, err := New(name, fn, c.options...)
	if err != nil {
		return err
	}
	c.mtx.Lock()
	defer c.mtx.Unlock()
	c.functions[name] = f
	return nil
}

// MustRegister is like Register but panics on error. It returns c so that
// registrations can be chained in main.
func (c *Catalog) MustRegister(name string, fn any) *Catalog {
	if err := c.Register(name, fn); err != nil {
		panic(err)
	}
	return c
}

// Lookup returns the function registered under name.
func (c *Catalog) Lookup(name string) (*Function, error) {
	c.mtx.RLock()
	defer c.mtx.RUnlock()
	f, ok := c.functions[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return f, nil
}

// Default returns the only registered function.
func (c *Catalog) Default() (*Function, error) {
	c.mtx.RLock()
	defer c.mtx.RUnlock()
	switch len(c.functions) {
	case 0:
		return nil, fmt.Errorf("%w: catalog is empty", ErrNotFound)
	case 1:
		for _, f := range c.functions {
			return f, nil
		}
	}
	return nil, ErrAmbiguous
}

// Names returns the registered names in sorted order.
func (c *Catalog) Names() []string {
	c.mtx.RLock()
	defer c.mtx.RUnlock()
	names := make([]string, 0, len(c.functions))
	for name := range c.functions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Descriptors returns the descriptors of all registered functions, sorted
// by name.
func (c *Catalog) Descriptors() []Descriptor {
	names := c.Names()
	c.mtx.RLock()
	defer c.mtx.RUnlock()
	ds := make([]Descriptor, 0, len(names))
	for _, name := range names {
		if f, ok := c.functions[name]; ok {
			ds = append(ds, f.Descriptor)
		}
	}
	return ds
}
