package cache

// ScopedKeyer wraps a Keyer with a prefix so several libraries (or users)
// can share one Redis instance without colliding.
//
//	keyer := NewScopedKeyer(NewDefaultKeyer(), "library:manga:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// The prefix is prepended to all generated keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// PanelKey generates a prefixed panel key.
func (k *ScopedKeyer) PanelKey(sourceHash string, opts PanelKeyOpts) string {
	return k.prefix + k.inner.PanelKey(sourceHash, opts)
}
