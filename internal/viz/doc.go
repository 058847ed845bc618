// Package viz renders a running entity in the terminal.
//
// [Model] is a Bubble Tea program that steps one entity through a
// [sim.Host] at a fixed rate and draws it on a braille [Canvas]: the table
// cart with its ZMP marker, or the cart and pole of the inverted pendulum.
// The observable output is plotted with asciigraph next to the state and the
// tunable parameters.
//
// # Key Bindings
//
//	Space - Pause/Resume simulation
//	R     - Rebuild the session, keeping tuned parameters
//	Tab   - Select the next parameter
//	↑/↓   - Scale the selected parameter by ±5%
//	←/→   - Nudge a manual control law, or kick the disturbance force
//	?     - Show help overlay
package viz
