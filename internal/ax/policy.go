package ax

import (
	"strings"
	"sync"

	"github.com/1broseidon/dwindle/internal/platform"
)

// Policy decides whether a window is tiling-eligible. It is safe for
// concurrent use.
type Policy struct {
	mu          sync.RWMutex
	alwaysFloat map[string]struct{}
}

// NewPolicy returns a policy that floats the given application ids
// (matched case-insensitively).
func NewPolicy(alwaysFloat []string) *Policy {
	p := &Policy{}
	p.SetAlwaysFloat(alwaysFloat)
	return p
}

// SetAlwaysFloat replaces the always-float list.
func (p *Policy) SetAlwaysFloat(ids []string) {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		id = strings.ToLower(strings.TrimSpace(id))
		if id != "" {
			set[id] = struct{}{}
		}
	}
	p.mu.Lock()
	p.alwaysFloat = set
	p.mu.Unlock()
}

// Tiling reports whether w should be managed by the layout engine.
func (p *Policy) Tiling(w platform.AXWindow) bool {
	if p != nil {
		p.mu.RLock()
		_, float := p.alwaysFloat[strings.ToLower(w.BundleID)]
		p.mu.RUnlock()
		if float {
			return false
		}
	}
	if w.Subrole != platform.SubroleStandard {
		return false
	}
	if w.AccessoryApp && !w.HasCloseButton {
		return false
	}
	return w.FullscreenButtonEnabled
}
