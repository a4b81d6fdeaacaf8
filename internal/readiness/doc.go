// Package readiness waits for a witness node to answer on its HTTP port.
//
// The wait is expressed as scheduler tasks so several nodes can be polled from a
// single tick loop. HTTPClient performs the request in the background and queues
// responses, Poller issues one GET /oobi through it and holds the first response,
// and Prober wires both into a bounded scheduler run.
package readiness
