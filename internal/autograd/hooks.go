package autograd

import (
	"sync"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/born-ml/autograd/internal/tensor"
)

// Hook is called with the gradient of a tensor. Returning a non-nil tensor
// replaces the gradient; returning nil leaves it unchanged.
type Hook func(grad *tensor.RawTensor) *tensor.RawTensor

// PreHook runs on the gradients entering a node, before the node itself.
// It returns the (possibly replaced) gradients.
type PreHook interface {
	Call(grads []*tensor.RawTensor) []*tensor.RawTensor
}

// PreHookFunc adapts a function to PreHook.
type PreHookFunc func(grads []*tensor.RawTensor) []*tensor.RawTensor

// Call implements PreHook.
func (f PreHookFunc) Call(grads []*tensor.RawTensor) []*tensor.RawTensor {
	return f(grads)
}

// HookMap stores hooks under stable indices.
//
// Indices are handed out in increasing order and never reused. Removing a
// hook leaves an empty slot behind, so every index returned by Insert stays a
// valid reference for the life of the map.
type HookMap struct {
	mu    sync.Mutex
	hooks []Hook // nil entries are removed hooks
}

// NewHookMap returns an empty map.
func NewHookMap() *HookMap {
	return &HookMap{}
}

// Insert appends hook and returns its index.
func (hm *HookMap) Insert(hook Hook) int {
	hm.mu.Lock()
	defer hm.mu.Unlock()
	hm.hooks = append(hm.hooks, hook)
	return len(hm.hooks) - 1
}

// Remove empties the slot at idx. It fails with ErrMisuse when idx was never
// handed out by Insert.
func (hm *HookMap) Remove(idx int) error {
	hm.mu.Lock()
	defer hm.mu.Unlock()
	if idx < 0 || idx >= len(hm.hooks) {
		return errors.Wrapf(ErrMisuse, "invalid index, no hook at position %d", idx)
	}
	hm.hooks[idx] = nil
	return nil
}

// Len returns the number of indices handed out so far, removed ones included.
func (hm *HookMap) Len() int {
	hm.mu.Lock()
	defer hm.mu.Unlock()
	return len(hm.hooks)
}

// Live returns the indices whose hooks have not been removed, in order.
func (hm *HookMap) Live() []int {
	hm.mu.Lock()
	defer hm.mu.Unlock()
	var live []int
	for i, h := range hm.hooks {
		if h != nil {
			live = append(live, i)
		}
	}
	return live
}

// Apply runs the live hooks in index order, threading grad through them.
// The map is not locked while a hook runs, so hooks may register or remove
// hooks themselves.
func (hm *HookMap) Apply(grad *tensor.RawTensor) *tensor.RawTensor {
	hm.mu.Lock()
	snapshot := append([]Hook(nil), hm.hooks...)
	hm.mu.Unlock()

	for _, hook := range snapshot {
		if hook == nil {
			continue
		}
		if res := hook(grad); res != nil {
			grad = res
		}
	}
	return grad
}

// hookDispatcher is the single pre-hook through which a HookMap is wired
// into a node: it applies the map's hooks to the gradient at valueIdx.
type hookDispatcher struct {
	hooks    *HookMap
	valueIdx int
}

// Call implements PreHook.
func (d *hookDispatcher) Call(grads []*tensor.RawTensor) []*tensor.RawTensor {
	if d.valueIdx >= len(grads) {
		klog.Warningf("autograd: hook dispatcher for value %d got only %d gradients", d.valueIdx, len(grads))
		return grads
	}
	out := append([]*tensor.RawTensor(nil), grads...)
	if out[d.valueIdx].Defined() {
		out[d.valueIdx] = d.hooks.Apply(out[d.valueIdx])
	}
	return out
}

// CallPreHooks runs the pre-hooks of n on grads, in registration order.
func CallPreHooks(n Node, grads []*tensor.RawTensor) []*tensor.RawTensor {
	for _, hook := range n.PreHooks() {
		grads = hook.Call(grads)
	}
	return grads
}

// AddHook appends a pre-hook to the tensor's own hook list.
func AddHook(t *tensor.RawTensor, hook PreHook) error {
	meta, err := MaterializeAutogradMeta(t)
	if err != nil {
		return err
	}
	meta.mu.Lock()
	defer meta.mu.Unlock()
	meta.hooks = append(meta.hooks, hook)
	return nil
}

// Hooks returns a copy of the tensor's hook list (nil for untracked tensors).
func Hooks(t *tensor.RawTensor) ([]PreHook, error) {
	meta, err := GetAutogradMeta(t)
	if err != nil || meta == nil {
		return nil, err
	}
	meta.mu.Lock()
	defer meta.mu.Unlock()
	return append([]PreHook(nil), meta.hooks...), nil
}

// ClearHooks empties the tensor's hook list.
func ClearHooks(t *tensor.RawTensor) error {
	meta, err := MaterializeAutogradMeta(t)
	if err != nil {
		return err
	}
	meta.mu.Lock()
	defer meta.mu.Unlock()
	meta.hooks = nil
	return nil
}

// RegisterHook registers hook to run on the gradient of t and returns an index
// that RemoveHook accepts.
//
// The first registration on a tensor creates its HookMap and wires it, through
// one dispatching pre-hook, into the node that produced the tensor, if any,
// and into the tensor's hook list (replacing any previous hooks). Nothing is
// installed if looking up the producing node fails.
func RegisterHook(t *tensor.RawTensor, hook Hook) (int, error) {
	requires, err := RequiresGrad(t)
	if err != nil {
		return 0, err
	}
	if !requires {
		return 0, errors.Wrap(ErrMisuse, "cannot register a hook on a tensor that doesn't require gradient")
	}
	meta, err := MaterializeAutogradMeta(t)
	if err != nil {
		return 0, err
	}

	meta.hookMu.Lock()
	defer meta.hookMu.Unlock()

	meta.mu.Lock()
	hm := meta.hookMap
	meta.mu.Unlock()

	if hm == nil {
		// GradFn takes meta.mu for views, so it runs outside of it.
		fn, err := GradFn(t)
		if err != nil {
			return 0, err
		}
		hm = NewHookMap()
		if fn != nil {
			fn.AddPreHook(&hookDispatcher{hooks: hm, valueIdx: meta.OutputNr()})
		}
		meta.mu.Lock()
		meta.hookMap = hm
		meta.hooks = []PreHook{&hookDispatcher{hooks: hm, valueIdx: 0}}
		meta.mu.Unlock()
	}
	idx := hm.Insert(hook)
	hooksRegistered.Inc()
	return idx, nil
}

// RemoveHook removes the hook registered under idx. Later gradients skip it;
// other indices are unaffected.
func RemoveHook(t *tensor.RawTensor, idx int) error {
	meta, err := MaterializeAutogradMeta(t)
	if err != nil {
		return err
	}
	meta.mu.Lock()
	hm := meta.hookMap
	meta.mu.Unlock()
	if hm == nil {
		return errors.Wrapf(ErrMisuse, "invalid index, no hook at position %d", idx)
	}
	if err := hm.Remove(idx); err != nil {
		return err
	}
	hooksRemoved.Inc()
	return nil
}
