package relay

import "fmt"

// TransportError reports a failed send: the request never completed, timed out,
// or the responder answered with a non-2xx status.
type TransportError struct {
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("responder returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("responder unreachable: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// RemoteResetAcknowledgeError reports that the responder did not confirm a reset.
type RemoteResetAcknowledgeError struct {
	StatusCode int
	Err        error
}

func (e *RemoteResetAcknowledgeError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("reset not acknowledged: status %d", e.StatusCode)
	}
	return fmt.Sprintf("reset not acknowledged: %v", e.Err)
}

func (e *RemoteResetAcknowledgeError) Unwrap() error {
	return e.Err
}
