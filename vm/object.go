package vm

// ---------------------------------------------------------------------------
// PropertyMap: insertion-ordered map keyed by interned strings
// ---------------------------------------------------------------------------

// linearThreshold is the entry count above which a PropertyMap builds a hash
// index. Below it, lookups scan the key slice comparing pointers.
const linearThreshold = 8

// PropertyMap maps interned strings to values in insertion order. It owns a
// reference to every value it stores.
type PropertyMap struct {
	keys   []*String
	values []Value
	index  map[*String]int
}

// NewPropertyMap creates an empty map.
func NewPropertyMap() *PropertyMap {
	return &PropertyMap{}
}

func (m *PropertyMap) find(key *String) int {
	if m.index != nil {
		if i, ok := m.index[key]; ok {
			return i
		}
		return -1
	}
	for i, k := range m.keys {
		if k == key {
			return i
		}
	}
	return -1
}

// Len returns the number of entries.
func (m *PropertyMap) Len() int { return len(m.keys) }

// Get returns the value stored under key.
func (m *PropertyMap) Get(key *String) (Value, bool) {
	if i := m.find(key); i >= 0 {
		return m.values[i], true
	}
	return Undefined, false
}

// Has reports whether key is present.
func (m *PropertyMap) Has(key *String) bool { return m.find(key) >= 0 }

// Set stores v under key, replacing any previous value in place.
func (m *PropertyMap) Set(key *String, v Value) {
	v.Retain()
	if i := m.find(key); i >= 0 {
		old := m.values[i]
		m.values[i] = v
		old.Release()
		return
	}
	m.keys = append(m.keys, key)
	m.values = append(m.values, v)
	if m.index != nil {
		m.index[key] = len(m.keys) - 1
	} else if len(m.keys) > linearThreshold {
		m.rebuildIndex()
	}
}

// Delete removes key, preserving the order of the remaining entries.
func (m *PropertyMap) Delete(key *String) bool {
	i := m.find(key)
	if i < 0 {
		return false
	}
	old := m.values[i]
	m.keys = append(m.keys[:i], m.keys[i+1:]...)
	m.values = append(m.values[:i], m.values[i+1:]...)
	if len(m.keys) <= linearThreshold {
		m.index = nil
	} else {
		m.rebuildIndex()
	}
	old.Release()
	return true
}

func (m *PropertyMap) rebuildIndex() {
	m.index = make(map[*String]int, len(m.keys)*2)
	for i, k := range m.keys {
		m.index[k] = i
	}
}

// Keys returns the keys in insertion order.
func (m *PropertyMap) Keys() []*String { return m.keys }

// Values returns the values in insertion order.
func (m *PropertyMap) Values() []Value { return m.values }

// Each calls fn for every entry in insertion order until fn returns false.
func (m *PropertyMap) Each(fn func(key *String, v Value) bool) {
	for i, k := range m.keys {
		if !fn(k, m.values[i]) {
			return
		}
	}
}

func (m *PropertyMap) releaseAll() {
	releaseAll(m.values)
	m.keys = nil
	m.values = nil
	m.index = nil
}

// ---------------------------------------------------------------------------
// Object: a property map with identity
// ---------------------------------------------------------------------------

// Object is a plain key/value record. Its class travels on the Value.
type Object struct {
	refHeader
	Props PropertyMap
}

// NewObject creates an untracked empty object.
func NewObject() *Object { return &Object{} }

func (o *Object) releaseChildren() { o.Props.releaseAll() }
