package vm

// ---------------------------------------------------------------------------
// Array: growable vector of values
// ---------------------------------------------------------------------------

// Array is an ordered, growable sequence. The array owns one reference to
// every element it holds.
type Array struct {
	refHeader
	items []Value
}

const minArrayCapacity = 8

// NewArray creates an untracked array taking ownership of items.
func NewArray(items []Value) *Array {
	a := &Array{items: make([]Value, 0, max(len(items), minArrayCapacity))}
	for _, v := range items {
		a.Push(v)
	}
	return a
}

func (a *Array) releaseChildren() {
	releaseAll(a.items)
	a.items = nil
}

// Len returns the number of elements.
func (a *Array) Len() int { return len(a.items) }

// Items exposes the backing slice. Callers must not retain it across
// mutations of the array.
func (a *Array) Items() []Value { return a.items }

// Get returns the element at i, which must be in range.
func (a *Array) Get(i int) Value { return a.items[i] }

// Set replaces the element at i.
func (a *Array) Set(i int, v Value) {
	v.Retain()
	old := a.items[i]
	a.items[i] = v
	old.Release()
}

func (a *Array) grow(n int) {
	if len(a.items)+n <= cap(a.items) {
		return
	}
	newCap := max(cap(a.items)*2, minArrayCapacity)
	for newCap < len(a.items)+n {
		newCap *= 2
	}
	items := make([]Value, len(a.items), newCap)
	copy(items, a.items)
	a.items = items
}

// Push appends v.
func (a *Array) Push(v Value) {
	a.grow(1)
	v.Retain()
	a.items = append(a.items, v)
}

// Insert places v before index i; i may equal Len.
func (a *Array) Insert(i int, v Value) {
	a.grow(1)
	v.Retain()
	a.items = append(a.items, Value{})
	copy(a.items[i+1:], a.items[i:])
	a.items[i] = v
}

// RemoveAt removes and returns the element at i. The returned value is
// borrowed: the array's reference has been released.
func (a *Array) RemoveAt(i int) Value {
	v := a.items[i]
	copy(a.items[i:], a.items[i+1:])
	a.items[len(a.items)-1] = Value{}
	a.items = a.items[:len(a.items)-1]
	v.Release()
	return v
}

// Pop removes the last element.
func (a *Array) Pop() Value {
	return a.RemoveAt(len(a.items) - 1)
}

// Clear removes every element.
func (a *Array) Clear() {
	releaseAll(a.items)
	clear(a.items)
	a.items = a.items[:0]
}

// Reverse reverses the elements in place.
func (a *Array) Reverse() {
	for i, j := 0, len(a.items)-1; i < j; i, j = i+1, j-1 {
		a.items[i], a.items[j] = a.items[j], a.items[i]
	}
}
