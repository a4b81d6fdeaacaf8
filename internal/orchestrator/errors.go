package orchestrator

import "errors"

var (
	// ErrReadinessTimeout is returned by Start when a probed node never answered and
	// the readiness policy is "fail".
	ErrReadinessTimeout = errors.New("node did not become ready")
	// ErrAlreadyStarted is returned by Start while a previous scenario is still up.
	ErrAlreadyStarted = errors.New("orchestrator already started")
	// ErrUnknownNode is returned when a node name has no registry entry.
	ErrUnknownNode = errors.New("unknown node")
)
