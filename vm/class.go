package vm

// ---------------------------------------------------------------------------
// Class: named bundle of instance and static properties
// ---------------------------------------------------------------------------

// NativeFunc is the signature of every built-in callable. Methods receive
// their receiver as args[0].
type NativeFunc func(vm *VM, args []Value) Value

// Class describes how values dispatch property lookups. Instance properties
// are found on values of the class; static properties on the class itself.
type Class struct {
	refHeader
	Name     string
	Parent   *Class
	Instance PropertyMap
	Static   PropertyMap

	// Factory runs when the class is called. It receives the class value
	// as args[0] followed by the call arguments. Nil means the class cannot
	// be constructed from scripts.
	Factory NativeFunc
}

// NewClass creates an untracked class.
func NewClass(name string, parent *Class) *Class {
	return &Class{Name: name, Parent: parent}
}

func (c *Class) releaseChildren() {
	c.Instance.releaseAll()
	c.Static.releaseAll()
}

// Lookup finds an instance property on c or its ancestors.
func (c *Class) Lookup(key *String) (Value, bool) {
	for cls := c; cls != nil; cls = cls.Parent {
		if v, ok := cls.Instance.Get(key); ok {
			return v, true
		}
	}
	return Undefined, false
}

// LookupStatic finds a static property on c or its ancestors.
func (c *Class) LookupStatic(key *String) (Value, bool) {
	for cls := c; cls != nil; cls = cls.Parent {
		if v, ok := cls.Static.Get(key); ok {
			return v, true
		}
	}
	return Undefined, false
}

// IsSubclassOf reports whether c is other or inherits from it.
func (c *Class) IsSubclassOf(other *Class) bool {
	for cls := c; cls != nil; cls = cls.Parent {
		if cls == other {
			return true
		}
	}
	return false
}

// ---------------------------------------------------------------------------
// Native and bound method
// ---------------------------------------------------------------------------

// Native is a Go function exposed as a script value.
type Native struct {
	refHeader
	Name string
	Fn   NativeFunc
}

func (n *Native) releaseChildren() {}

// BoundMethod pairs a receiver with a native found through property lookup.
// Calling it passes the receiver as the native's first argument.
type BoundMethod struct {
	refHeader
	Receiver Value
	Method   Value
}

func (b *BoundMethod) releaseChildren() {
	b.Receiver.Release()
	b.Method.Release()
}
