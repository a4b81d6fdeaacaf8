// Package orchestrator starts and tears down the witness processes a scenario needs.
//
// Scenario tags select configured profiles. For every node of an active profile the
// orchestrator writes the witness config file, launches `kli witness start`, records
// the process under the node alias and, when the profile asks for it, blocks until
// the witness answers GET /oobi before starting the next node.
//
// # Lifecycle
//
//	Idle -> Starting -> Ready -> Running -> Terminating -> Cleaned
//
// Stop terminates every recorded process in reverse start order, waits for it to
// exit and then purges the shared base directory. It runs whatever state Start
// left behind, so a partially started pool is still reaped.
//
// An orchestrator serves one scenario at a time. Scenarios sharing a root must not
// run concurrently.
package orchestrator
