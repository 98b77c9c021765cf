// Package analysis derives orbit diagnostics from integrated orbits.
//
//   - [Pericenter], [Apocenter] and [Eccentricity] from galactocentric radius
//   - [RadialPeriod]: dominant period of r(t) from its power spectrum
//   - [LyapunovMax]: largest Lyapunov exponent via renormalised separation
//
// A positive Lyapunov exponent that does not decay with integration time
// marks a chaotic orbit:
//
//	lambda, err := analysis.LyapunovMax(ctx, h.System(1), integ, w0.Pack(), cfg)
package analysis
