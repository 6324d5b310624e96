package interfaces

import (
	"errors"
	"fmt"
)

// ValidationError reports missing or invalid user input
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// AuthRequiredError reports a submission that is neither guest nor authenticated
type AuthRequiredError struct{}

func (e *AuthRequiredError) Error() string {
	return "please login or post as guest"
}

// InvalidResponseError reports a payload that does not have the expected shape
type InvalidResponseError struct {
	Reason string
}

func (e *InvalidResponseError) Error() string {
	return "invalid API response: " + e.Reason
}

// ConnectivityError reports that the request never reached the server
type ConnectivityError struct {
	Op  string
	Err error
}

func (e *ConnectivityError) Error() string {
	if e.Err == nil {
		return e.Op + ": network unavailable"
	}
	return fmt.Sprintf("%s: network unavailable: %v", e.Op, e.Err)
}

func (e *ConnectivityError) Unwrap() error {
	return e.Err
}

// ServerError reports a request the server answered with an error
type ServerError struct {
	StatusCode int
	Message    string
}

func (e *ServerError) Error() string {
	if e.StatusCode == 0 {
		return "server rejected request: " + e.Message
	}
	return fmt.Sprintf("server rejected request (%d): %s", e.StatusCode, e.Message)
}

// IsConnectivity reports whether err is a network-class failure
func IsConnectivity(err error) bool {
	var ce *ConnectivityError
	return errors.As(err, &ce)
}
