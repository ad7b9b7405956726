// Package field defines the closed set of fields exposed by the greenhouse
// controller.
//
// # Field Kinds
//
// Every field has exactly one kind:
//   - Measurement: continuous sensor reading, read-only (temperature, humidity)
//   - Indicator: discrete state of an automatic actuator, read-only (pump)
//   - Actuator: discrete on/off output the operator can toggle (bulb, fans)
//   - Setpoint: numeric target the controller regulates toward
//
// # Addressing
//
// Fields are addressed by ID. The ID set is fixed at compile time and each
// writable field is bound to its command builder here, so call sites never
// build device paths or state keys by hand:
//
//	BulbOn       -> GET /cmd/ON47 | /cmd/OFF47
//	SetpointTemp -> GET /setpoint/temp/<value>
//
// The device reports all fields as one JSON object keyed by Key().
package field
