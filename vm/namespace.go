package vm

// ---------------------------------------------------------------------------
// Namespace: global bindings with immutability flags
// ---------------------------------------------------------------------------

type binding struct {
	value     Value
	immutable bool
}

// Namespace holds the global bindings of the script or of one module, in
// definition order. It owns a reference to every bound value.
type Namespace struct {
	index    map[string]int
	names    []string
	bindings []binding
}

// NewNamespace creates an empty namespace.
func NewNamespace() *Namespace {
	return &Namespace{index: make(map[string]int)}
}

// Len returns the number of bindings.
func (ns *Namespace) Len() int { return len(ns.names) }

// Has reports whether name is bound.
func (ns *Namespace) Has(name string) bool {
	_, ok := ns.index[name]
	return ok
}

// Get returns the value bound to name.
func (ns *Namespace) Get(name string) (Value, bool) {
	if i, ok := ns.index[name]; ok {
		return ns.bindings[i].value, true
	}
	return Undefined, false
}

// IsImmutable reports whether name was bound immutably.
func (ns *Namespace) IsImmutable(name string) bool {
	if i, ok := ns.index[name]; ok {
		return ns.bindings[i].immutable
	}
	return false
}

// Define binds name, replacing any existing binding and its flag.
func (ns *Namespace) Define(name string, v Value, immutable bool) {
	v.Retain()
	if i, ok := ns.index[name]; ok {
		old := ns.bindings[i].value
		ns.bindings[i] = binding{value: v, immutable: immutable}
		old.Release()
		return
	}
	ns.index[name] = len(ns.names)
	ns.names = append(ns.names, name)
	ns.bindings = append(ns.bindings, binding{value: v, immutable: immutable})
}

// Set replaces the value of an existing binding. It reports false when name
// is not bound; the immutability flag is not consulted.
func (ns *Namespace) Set(name string, v Value) bool {
	i, ok := ns.index[name]
	if !ok {
		return false
	}
	v.Retain()
	old := ns.bindings[i].value
	ns.bindings[i].value = v
	old.Release()
	return true
}

// Names returns the bound names in definition order.
func (ns *Namespace) Names() []string { return ns.names }

// Each calls fn for every binding in definition order.
func (ns *Namespace) Each(fn func(name string, v Value, immutable bool)) {
	for i, name := range ns.names {
		b := ns.bindings[i]
		fn(name, b.value, b.immutable)
	}
}
