// Package analysis post-processes recorded trajectories.
//
//   - [Spectrum]: amplitude spectrum of a column, e.g. the oscillation of
//     an undamped pole or the ZMP of a pushed cart
//   - [PhasePortrait]: two columns plotted against each other, with
//     Poincaré crossings
//
// The spectrum uses go-dsp's real FFT, which accepts any sample count.
package analysis
