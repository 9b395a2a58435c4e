/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package docproxy

import (
	"fmt"
	"reflect"
	"sort"
	"sync"
)

// proxySet holds the named proxies for one document type
type proxySet[T any] struct {
	mu      sync.RWMutex
	proxies map[string]*Proxy[T]
}

func newProxySet[T any]() *proxySet[T] {
	return &proxySet[T]{
		proxies: make(map[string]*Proxy[T]),
	}
}

func (s *proxySet[T]) register(name string, p *Proxy[T]) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.proxies[name]; exists {
		return fmt.Errorf("proxy with name %q already registered", name)
	}

	s.proxies[name] = p
	return nil
}

func (s *proxySet[T]) get(name string) (*Proxy[T], error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, exists := s.proxies[name]
	if !exists {
		return nil, fmt.Errorf("proxy with name %q not found", name)
	}

	return p, nil
}

func (s *proxySet[T]) remove(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.proxies[name]; !exists {
		return fmt.Errorf("proxy with name %q not found", name)
	}

	delete(s.proxies, name)
	return nil
}

func (s *proxySet[T]) names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.proxies))
	for name := range s.proxies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Registry keeps named proxies for applications that bind several
// containers. Names are scoped per document type, so "orders" can be
// registered once for Order and once for map[string]any.
type Registry struct {
	mu   sync.Mutex
	sets map[reflect.Type]any
}

// NewRegistry creates an empty Registry
func NewRegistry() *Registry {
	return &Registry{
		sets: make(map[reflect.Type]any),
	}
}

// setFor returns the proxy set for T, creating it if necessary
func setFor[T any](r *Registry) *proxySet[T] {
	r.mu.Lock()
	defer r.mu.Unlock()

	typ := reflect.TypeFor[T]()
	if set, exists := r.sets[typ]; exists {
		return set.(*proxySet[T])
	}

	set := newProxySet[T]()
	r.sets[typ] = set
	return set
}

// existingSet returns the proxy set for T without creating one
func existingSet[T any](r *Registry) (*proxySet[T], bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, exists := r.sets[reflect.TypeFor[T]()]
	if !exists {
		return nil, false
	}
	return set.(*proxySet[T]), true
}

// Register adds p under name. It fails if name is taken for T.
func Register[T any](r *Registry, name string, p *Proxy[T]) error {
	if p == nil {
		return fmt.Errorf("proxy for %q is nil", name)
	}
	return setFor[T](r).register(name, p)
}

// Lookup returns the proxy registered under name for T
func Lookup[T any](r *Registry, name string) (*Proxy[T], error) {
	set, ok := existingSet[T](r)
	if !ok {
		return nil, fmt.Errorf("proxy with name %q not found", name)
	}
	return set.get(name)
}

// Remove drops the proxy registered under name for T
func Remove[T any](r *Registry, name string) error {
	set, ok := existingSet[T](r)
	if !ok {
		return fmt.Errorf("proxy with name %q not found", name)
	}
	return set.remove(name)
}

// Names lists the names registered for T in sorted order. It is nil when
// nothing was ever registered for T.
func Names[T any](r *Registry) []string {
	set, ok := existingSet[T](r)
	if !ok {
		return nil
	}
	return set.names()
}
