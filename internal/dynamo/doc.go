// Package dynamo provides core simulation primitives for orbit integration.
//
// The package defines the fundamental interfaces and types shared by the
// potential, N-body and mock-stream layers:
//
//   - [State]: flat phase-space vector (all positions first, then all velocities)
//   - [System]: interface for ODE right-hand sides (dX/dt = f(X, t))
//   - [Integrator]: numerical stepper interface
//   - [Simulator]: fixed-step driver that records a trajectory
//
// # Example
//
//	sys := h.System(1)
//	sim := dynamo.New(sys, integrators.NewLeapfrog())
//	result, err := sim.Run(ctx, x0, dynamo.Config{Dt: 0.5, NSteps: 1000})
//
// # Thread Safety
//
// Simulator instances are NOT thread-safe. Integrators keep scratch buffers,
// so every concurrent run needs its own integrator value.
package dynamo
