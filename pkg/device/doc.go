// Package device implements the HTTP client for the greenhouse controller.
//
// The controller is a single embedded board on the local network. It has no
// push channel and no sequence numbers; the only operations are:
//
//	GET /datos                    full state as one JSON object
//	GET /cmd/<ON|OFF><id>         switch a discrete actuator
//	GET /setpoint/<kind>/<value>  set a numeric target
//
// # Errors
//
// Failed state fetches are reported as *ConnectivityError with a Reason.
// Failed commands wrap ErrCommandRejected (the controller answered with a
// failure status) or ErrCommandTimeout (no answer within the deadline).
// Commands that never reach the controller return a *ConnectivityError.
package device
