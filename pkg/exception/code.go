package exception

import (
	"net/http"

	"github.com/yanun0323/errors"
)

// Code is the stable error category reported to callers.
type Code string

const (
	CodeInvalidArgument      Code = "INVALID_ARGUMENT"
	CodeNotFound             Code = "NOT_FOUND"
	CodeInsufficientFunds    Code = "INSUFFICIENT_FUNDS"
	CodeInsufficientHoldings Code = "INSUFFICIENT_HOLDINGS"
	CodeUnavailable          Code = "UNAVAILABLE"
	CodeAuthFailure          Code = "AUTH_FAILURE"
	CodeRejected             Code = "REJECTED"
	CodeConflict             Code = "CONFLICT"
	CodeForbidden            Code = "FORBIDDEN"
	CodeTradingHalted        Code = "TRADING_HALTED"
	CodeRateLimited          Code = "RATE_LIMITED"
	CodeInternal             Code = "INTERNAL"
)

var codeTable = []struct {
	target error
	code   Code
}{
	{ErrInvalidArgument, CodeInvalidArgument},
	{ErrNotFound, CodeNotFound},
	{ErrInsufficientFunds, CodeInsufficientFunds},
	{ErrInsufficientHoldings, CodeInsufficientHoldings},
	{ErrAuthFailure, CodeAuthFailure},
	{ErrRejected, CodeRejected},
	{ErrUnavailable, CodeUnavailable},
	{ErrConflict, CodeConflict},
	{ErrForbidden, CodeForbidden},
	{ErrTradingHalted, CodeTradingHalted},
	{ErrRateLimited, CodeRateLimited},
}

// CodeOf returns the most specific code found in the chain of err.
// Unknown errors are internal.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	for _, entry := range codeTable {
		if errors.Is(err, entry.target) {
			return entry.code
		}
	}
	return CodeInternal
}

// Status maps a code to its HTTP status.
func (c Code) Status() int {
	switch c {
	case CodeInvalidArgument:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeInsufficientFunds, CodeInsufficientHoldings, CodeConflict:
		return http.StatusConflict
	case CodeUnavailable:
		return http.StatusServiceUnavailable
	case CodeAuthFailure:
		return http.StatusBadGateway
	case CodeRejected:
		return http.StatusUnprocessableEntity
	case CodeForbidden:
		return http.StatusForbidden
	case CodeTradingHalted:
		return http.StatusServiceUnavailable
	case CodeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Message is the generic user-facing text of a code.
func (c Code) Message() string {
	switch c {
	case CodeInvalidArgument:
		return "the request is invalid"
	case CodeNotFound:
		return "the requested resource does not exist"
	case CodeInsufficientFunds:
		return "insufficient bank volume for this transaction"
	case CodeInsufficientHoldings:
		return "the customer does not hold enough shares"
	case CodeUnavailable:
		return "the trading service is currently unavailable, please retry later"
	case CodeAuthFailure:
		return "the trading service rejected the bank's credentials"
	case CodeRejected:
		return "the order was rejected by the trading service"
	case CodeConflict:
		return "a request with the same idempotency key is already in progress"
	case CodeForbidden:
		return "you are not allowed to act on this customer"
	case CodeTradingHalted:
		return "trading is halted, no orders are accepted"
	case CodeRateLimited:
		return "too many orders, please retry later"
	default:
		return "an internal error occurred"
	}
}
