package hoops

import "errors"

// Controller errors
var (
	ErrControllerClosed     = errors.New("controller is closed")
	ErrControllerNotStarted = errors.New("controller is not started")
	ErrControllerStarted    = errors.New("controller is already started")
)
