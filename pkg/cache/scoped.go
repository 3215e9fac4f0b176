package cache

// prefixKeyer namespaces every key of an inner Keyer so that staging and
// production can share one Redis instance.
type prefixKeyer struct {
	Keyer
	scope string
}

// NewScopedKeyer prepends scope to every key inner produces. A nil inner
// means the DefaultKeyer.
//
//	keys := NewScopedKeyer(nil, "grandgraph:")
func NewScopedKeyer(inner Keyer, scope string) Keyer {
	if inner == nil {
		inner = DefaultKeyer{}
	}
	return prefixKeyer{Keyer: inner, scope: scope}
}

func (k prefixKeyer) HTTPKey(namespace, key string) string {
	return k.scope + k.Keyer.HTTPKey(namespace, key)
}

func (k prefixKeyer) EgoKey(kind, id string, opts EgoKeyOpts) string {
	return k.scope + k.Keyer.EgoKey(kind, id, opts)
}

func (k prefixKeyer) FrameKey(query string, opts FrameKeyOpts) string {
	return k.scope + k.Keyer.FrameKey(query, opts)
}
