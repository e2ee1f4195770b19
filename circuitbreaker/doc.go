// Package circuitbreaker implements the circuit breaker pattern around
// function invocations.
//
// Circuit breakers prevent thundering herds, and improve resiliency against
// intermittent errors. Every middleware here reports a rejected call with an
// error answering 503 to HTTP hosts.
package circuitbreaker

import "net/http"

type openError struct{ err error }

func (e openError) Error() string   { return e.err.Error() }
func (e openError) Unwrap() error   { return e.err }
func (e openError) StatusCode() int { return http.StatusServiceUnavailable }
