// Package physics provides the cart-like entities of the signal graph.
//
// Each model owns a force input, a control input, a state output and one
// observable output:
//
//   - [TableCart]: velocity-controlled cart, observable is the ZMP
//   - [InvertedPendulum]: pole on a force-driven cart, observable is the cart position
//
// Models implement [dynamo.System] so they can be stepped by any
// [dynamo.Integrator], and [dynamo.Configurable] for runtime parameter
// adjustment.
//
// # Stepping
//
// State only changes in Incr or IncrAt. Outputs are read-only projections of
// the stored state, so pulling them any number of times at one stamp has no
// side effect:
//
//	reg := dynamo.NewRegistry(nil, nil)
//	cart, _ := physics.NewTableCart(reg, "cart")
//	_ = cart.ControlInput().Set(dynamo.Vector{1}, 0)
//	_ = cart.Incr(0.01)
//	z, _ := cart.ZMPOutput().Get(cart.Time())
package physics
