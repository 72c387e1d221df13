package oracle

import (
	"net/http"
	"regexp"
	"strconv"

	"bank/pkg/exception"

	"github.com/yanun0323/errors"
)

var _ error = (*StatusError)(nil)

// Fault is the business fault body returned by the oracle.
type Fault struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// StatusError is a non-2xx answer of the oracle.
type StatusError struct {
	Status int
	Fault  *Fault
}

func (e *StatusError) Error() string {
	msg := "oracle responded " + strconv.Itoa(e.Status)
	if e.Fault != nil {
		msg += ", fault " + strconv.Itoa(e.Fault.Code) + ": " + e.Fault.Message
	}
	return msg
}

func (e *StatusError) StatusCode() int {
	return e.Status
}

type statusCoder interface {
	StatusCode() int
}

var unauthorizedToken = regexp.MustCompile(`\b401\b`)

// IsUnauthorized walks the whole cause chain looking for an authentication
// signal: a 401 status code, a 401 fault code or a 401 token in a message.
func IsUnauthorized(err error) bool {
	for cursor := err; cursor != nil; cursor = errors.Unwrap(cursor) {
		if sc, ok := cursor.(statusCoder); ok && sc.StatusCode() == http.StatusUnauthorized {
			return true
		}
		if se, ok := cursor.(*StatusError); ok && se.Fault != nil && se.Fault.Code == http.StatusUnauthorized {
			return true
		}
		if unauthorizedToken.MatchString(cursor.Error()) {
			return true
		}
	}
	return false
}

// Classify maps any oracle failure to the three-way taxonomy. Errors that are
// already classified pass through untouched.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, exception.ErrAuthFailure),
		errors.Is(err, exception.ErrUnavailable),
		errors.Is(err, exception.ErrRejected),
		errors.Is(err, exception.ErrNotFound):
		return err
	case IsUnauthorized(err):
		return errors.Wrap(exception.ErrAuthFailure, err.Error())
	}

	var se *StatusError
	if errors.As(err, &se) {
		switch {
		case se.Status == http.StatusNotFound:
			return errors.Wrap(exception.ErrNotFound, err.Error())
		case isBusinessFault(se):
			return exception.Rejected(se.Fault.Message)
		}
	}
	return errors.Wrap(exception.ErrUnavailable, err.Error())
}

func isBusinessFault(se *StatusError) bool {
	if se.Fault == nil {
		return false
	}
	switch se.Status {
	case http.StatusRequestTimeout, http.StatusTooManyRequests:
		return false
	}
	return se.Status >= 400 && se.Status < 500
}
