package channel

import (
	"fmt"
	"sync"
)

// Registry holds all registered channel adapters and exposes capability
// queries. Optional capabilities are resolved with type assertions here so
// callers never reflect on adapters directly.
type Registry struct {
	mu       sync.RWMutex
	adapters map[Platform]Adapter
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		adapters: map[Platform]Adapter{},
	}
}

// Register adds an adapter to the registry.
func (r *Registry) Register(adapter Adapter) error {
	if adapter == nil {
		return fmt.Errorf("adapter is nil")
	}
	platform := ParsePlatform(adapter.Platform().String())
	if platform == "" {
		return fmt.Errorf("platform is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.adapters[platform]; exists {
		return fmt.Errorf("platform already registered: %s", platform)
	}
	r.adapters[platform] = adapter
	return nil
}

// MustRegister calls Register and panics on error.
func (r *Registry) MustRegister(adapter Adapter) {
	if err := r.Register(adapter); err != nil {
		panic(err)
	}
}

// Get returns the adapter for the given platform.
func (r *Registry) Get(platform Platform) (Adapter, bool) {
	p := ParsePlatform(platform.String())
	r.mu.RLock()
	defer r.mu.RUnlock()
	adapter, ok := r.adapters[p]
	return adapter, ok
}

// Platforms returns all registered platforms.
func (r *Registry) Platforms() []Platform {
	r.mu.RLock()
	defer r.mu.RUnlock()
	items := make([]Platform, 0, len(r.adapters))
	for p := range r.adapters {
		items = append(items, p)
	}
	return items
}

// GetTypingNotifier returns the TypingNotifier for the platform, or false if
// the adapter does not support typing indicators.
func (r *Registry) GetTypingNotifier(platform Platform) (TypingNotifier, bool) {
	adapter, ok := r.Get(platform)
	if !ok {
		return nil, false
	}
	notifier, ok := adapter.(TypingNotifier)
	return notifier, ok
}

// GetReadMarker returns the ReadMarker for the platform, or false if the
// adapter cannot mark messages read.
func (r *Registry) GetReadMarker(platform Platform) (ReadMarker, bool) {
	adapter, ok := r.Get(platform)
	if !ok {
		return nil, false
	}
	marker, ok := adapter.(ReadMarker)
	return marker, ok
}

// GetFeedbackRequester returns the FeedbackRequester for the platform, or
// false if the adapter has no interactive-reply support.
func (r *Registry) GetFeedbackRequester(platform Platform) (FeedbackRequester, bool) {
	adapter, ok := r.Get(platform)
	if !ok {
		return nil, false
	}
	requester, ok := adapter.(FeedbackRequester)
	return requester, ok
}
