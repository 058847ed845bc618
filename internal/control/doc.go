// Package control provides the upstream producers of a model's control input.
//
// A [Law] maps a state to a control:
//
//   - [Constant]: fixed control (and [NewNone] for zero)
//   - [PID]: tracks a position reference on state component 0
//   - [LQR]: full state feedback, e.g. balancing the inverted pendulum
//   - [Manual]: control set by the user
//
// A [Producer] turns a law into a graph node. Attaching it to a model plugs
// the model's state output into the producer and the producer's output into
// the model's control input, so the model's Incr pulls the law lazily:
//
//	p, _ := control.NewProducer(reg.Graph(), "ctl", control.NewPendulumLQR(), dt)
//	_ = p.Attach(pendulum)
//	_ = reg.Register(p)
package control
