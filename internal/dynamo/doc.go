// Package dynamo provides the core primitives of the dynamics graph.
//
// The package defines:
//
//   - [Vector], [State], [Control]: numeric vectors
//   - [System], [Integrator]: continuous-time models and their steppers
//   - [Graph], [Input], [Output]: an arena of typed, time-stamped signals
//   - [Registry], [Entity]: named graph nodes owned by a host context
//
// # Evaluation
//
// Signals are pulled, never pushed through the graph. An [Output] holds an
// evaluation function and caches its last value against the [Time] stamp it
// was computed at; pulling it again at the same stamp is free and has no side
// effect. An [Input] returns the value of the upstream signal it is plugged
// into, or the value pushed with Set, or its default.
//
//	g := dynamo.NewGraph()
//	reg := dynamo.NewRegistry(g, logger)
//	cart, _ := physics.NewTableCart(reg, "cart")
//	_ = cart.Incr(0.01)
//	zmp, _ := reg.Pull("cart", "zmp", cart.Time())
//
// # Thread Safety
//
// Graph, Registry and entities are NOT thread-safe. Evaluation functions run
// synchronously on the goroutine that pulls.
package dynamo
