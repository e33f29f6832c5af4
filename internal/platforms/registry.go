package platforms

import (
	"fmt"

	"github.com/Feedbird/platform-sub002/pkg/models"
)

// Capabilities records which optional interfaces an adapter implements.
// Determined once at registration so call sites can branch on flags.
type Capabilities struct {
	PageConnect bool
	StatusCheck bool
	History     bool
	Delete      bool
}

type registration struct {
	adapter Adapter
	caps    Capabilities
}

// Registry holds the configured platform adapters. It is populated at
// startup and read-only afterwards, so no locking is needed.
type Registry struct {
	adapters map[models.Platform]registration
}

// NewRegistry creates an empty adapter registry
func NewRegistry() *Registry {
	return &Registry{adapters: make(map[models.Platform]registration)}
}

// Register adds an adapter, probing its optional capabilities once
func (r *Registry) Register(a Adapter) error {
	platform := a.Platform()
	if _, exists := r.adapters[platform]; exists {
		return fmt.Errorf("adapter for %s already registered", platform)
	}

	caps := Capabilities{}
	if _, ok := a.(PageConnector); ok {
		caps.PageConnect = true
	}
	if _, ok := a.(StatusChecker); ok {
		caps.StatusCheck = true
	}
	if _, ok := a.(HistoryProvider); ok {
		caps.History = true
	}
	if _, ok := a.(PostDeleter); ok {
		caps.Delete = true
	}

	r.adapters[platform] = registration{adapter: a, caps: caps}
	return nil
}

// MustRegister is like Register but panics on error
func (r *Registry) MustRegister(a Adapter) {
	if err := r.Register(a); err != nil {
		panic(err)
	}
}

// Get returns the adapter for a platform
func (r *Registry) Get(platform models.Platform) (Adapter, bool) {
	reg, ok := r.adapters[platform]
	if !ok {
		return nil, false
	}
	return reg.adapter, true
}

// Capabilities returns the capability record for a platform
func (r *Registry) Capabilities(platform models.Platform) (Capabilities, bool) {
	reg, ok := r.adapters[platform]
	if !ok {
		return Capabilities{}, false
	}
	return reg.caps, true
}

// Platforms lists every registered platform
func (r *Registry) Platforms() []models.Platform {
	out := make([]models.Platform, 0, len(r.adapters))
	for p := range r.adapters {
		out = append(out, p)
	}
	return out
}
