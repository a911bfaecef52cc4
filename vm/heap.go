package vm

import (
	"github.com/tliron/commonlog"
)

// ---------------------------------------------------------------------------
// Reference counting
// ---------------------------------------------------------------------------

// refHeader is embedded in every heap object. Counts are maintained at
// ownership points only: containers, variable bindings, upvalues, constant
// pools and module tables. Operand-stack slots borrow and are treated as
// roots when the zero-count table is swept.
type refHeader struct {
	refs  int32
	heap  *Heap
	freed bool
	queued bool
}

func (h *refHeader) header() *refHeader { return h }

// heapObject is implemented by every ref-counted object.
type heapObject interface {
	header() *refHeader
	// releaseChildren drops the references an object holds on others.
	releaseChildren()
}

// RefCount returns the current ownership count of v, or -1 for immediates.
func (v Value) RefCount() int {
	if v.obj == nil {
		return -1
	}
	return int(v.obj.header().refs)
}

// Retain records a new owner of v. Immediates are unaffected.
func (v Value) Retain() {
	if v.obj != nil {
		v.obj.header().refs++
	}
}

// Release drops an owner of v. An object whose count reaches zero becomes a
// candidate for reclamation at the next sweep.
func (v Value) Release() {
	if v.obj == nil {
		return
	}
	h := v.obj.header()
	if h.refs > 0 {
		h.refs--
	}
	if h.refs == 0 && h.heap != nil && !h.freed {
		h.heap.enqueue(v.obj)
	}
}

func releaseAll(values []Value) {
	for _, v := range values {
		v.Release()
	}
}

// ---------------------------------------------------------------------------
// Heap: zero-count table and sweeping
// ---------------------------------------------------------------------------

const (
	// sweepThreshold is the zero-count table size at which the interpreter
	// sweeps at its next safe point.
	sweepThreshold = 4096

	// abandonThreshold bounds the table while sweeping is blocked by an
	// active native; entries past it are left to the Go collector.
	abandonThreshold = 1 << 20
)

// Heap tracks objects allocated by a VM whose ownership count is zero.
type Heap struct {
	zct       []heapObject
	allocated uint64
	freed     uint64
	log       commonlog.Logger
}

// NewHeap creates an empty heap.
func NewHeap() *Heap {
	return &Heap{
		zct: make([]heapObject, 0, 256),
		log: commonlog.GetLogger("slate.heap"),
	}
}

// track registers a freshly allocated object, which starts unowned.
func (h *Heap) track(o heapObject) {
	o.header().heap = h
	h.allocated++
	h.enqueue(o)
}

func (h *Heap) enqueue(o heapObject) {
	hdr := o.header()
	if hdr.queued {
		return
	}
	if len(h.zct) >= abandonThreshold {
		h.abandon()
	}
	hdr.queued = true
	h.zct = append(h.zct, o)
}

// abandon forgets every pending entry. The objects stay valid and fall to
// the Go collector once unreachable; their children are not released.
func (h *Heap) abandon() {
	for _, o := range h.zct {
		o.header().queued = false
	}
	h.log.Warningf("zero-count table abandoned %d entries", len(h.zct))
	h.zct = h.zct[:0]
}

// Pending returns the number of objects awaiting a sweep.
func (h *Heap) Pending() int { return len(h.zct) }

// Stats returns the number of objects allocated and reclaimed so far.
func (h *Heap) Stats() (allocated, freed uint64) {
	return h.allocated, h.freed
}

// Sweep reclaims zero-count objects not referenced from roots. Reclaiming an
// object releases its children, which may cascade within the same sweep.
// It returns the number of objects freed.
func (h *Heap) Sweep(roots []Value) int {
	if len(h.zct) == 0 {
		return 0
	}
	live := make(map[heapObject]struct{}, len(roots))
	for _, r := range roots {
		if r.obj != nil {
			live[r.obj] = struct{}{}
		}
	}

	kept := make([]heapObject, 0, len(roots))
	freed := 0
	// releaseChildren may append to h.zct while we walk it.
	for i := 0; i < len(h.zct); i++ {
		o := h.zct[i]
		hdr := o.header()
		hdr.queued = false
		if hdr.freed || hdr.refs > 0 {
			continue
		}
		if _, ok := live[o]; ok {
			hdr.queued = true
			kept = append(kept, o)
			continue
		}
		hdr.freed = true
		o.releaseChildren()
		freed++
	}
	h.zct = kept
	h.freed += uint64(freed)
	if freed > 0 {
		h.log.Debugf("swept %d objects, %d pending", freed, len(kept))
	}
	return freed
}
