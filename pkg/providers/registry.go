package providers

import (
	"fmt"
	"sync"
)

// Registry 后端注册表，保留注册顺序作为尝试优先级
type Registry struct {
	mu        sync.RWMutex
	order     []string
	providers map[string]TranslationProvider
}

// NewRegistry 创建新的注册表
func NewRegistry() *Registry {
	return &Registry{
		providers: make(map[string]TranslationProvider),
	}
}

// Register 按优先级追加后端
func (r *Registry) Register(name string, provider TranslationProvider) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.providers[name]; exists {
		return fmt.Errorf("provider %s already registered", name)
	}

	r.providers[name] = provider
	r.order = append(r.order, name)
	return nil
}

// Get 获取后端
func (r *Registry) Get(name string) (TranslationProvider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	provider, exists := r.providers[name]
	if !exists {
		return nil, fmt.Errorf("provider %s not found", name)
	}

	return provider, nil
}

// List 按优先级列出后端名称
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// Ordered 按优先级返回后端
func (r *Registry) Ordered() []TranslationProvider {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]TranslationProvider, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.providers[name])
	}
	return out
}

// Remove 移除后端
func (r *Registry) Remove(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.providers[name]; !ok {
		return
	}
	delete(r.providers, name)
	for i, n := range r.order {
		if n == name {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// Len 已注册后端数量
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}
