// Package device reads host-global state the status analyzer depends on:
// system properties, the process table and network interface addresses.
//
// Every lookup is best effort. Failures are reported as absence (no
// property, no process, no address) and logged at most, never returned as
// errors, since the analyzer maps absence onto a status value.
package device
