// Package binding exposes the models to a scripting caller through opaque
// handles.
//
// A [Table] hands out [Handle] values (slot index plus generation) instead of
// references. Every operation resolves its handle first, so a zero, stale or
// foreign handle yields [ErrInvalidHandle] rather than touching freed memory.
//
// [Call] and [CallValue] form the boundary: they never let a panic escape and
// translate every error kind into a distinct [Code].
//
//	tbl := binding.NewTable(reg, logger)
//	h, res := binding.CallValue(func() (binding.Handle, error) {
//	    return tbl.Create("TableCart", "cart")
//	})
//	if !res.OK() {
//	    return res
//	}
//	res = binding.Call(func() error { return tbl.SetCartMass(h, 10) })
package binding
