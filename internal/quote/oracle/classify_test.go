package oracle

import (
	"fmt"
	"testing"

	"bank/pkg/exception"

	"github.com/stretchr/testify/assert"
	"github.com/yanun0323/errors"
)

type soapFault struct {
	code int
}

func (f soapFault) Error() string   { return "transport fault" }
func (f soapFault) StatusCode() int { return f.code }

func TestIsUnauthorizedWalksCauseChain(t *testing.T) {
	deep := fmt.Errorf("invoke port: %w", fmt.Errorf("http conduit: %w", soapFault{code: 401}))
	assert.True(t, IsUnauthorized(deep))

	assert.True(t, IsUnauthorized(errors.New("server returned HTTP response code: 401 for URL")))
	assert.False(t, IsUnauthorized(errors.New("connect to 10.0.0.1:4010 refused")))
	assert.False(t, IsUnauthorized(soapFault{code: 500}))
	assert.False(t, IsUnauthorized(nil))
}

func TestClassify(t *testing.T) {
	assert.Nil(t, Classify(nil))
	assert.True(t, errors.Is(Classify(soapFault{code: 401}), exception.ErrAuthFailure))
	assert.True(t, errors.Is(Classify(soapFault{code: 503}), exception.ErrUnavailable))
	assert.True(t, errors.Is(Classify(errors.New("EOF")), exception.ErrUnavailable))
	assert.True(t, errors.Is(Classify(&StatusError{Status: 400, Fault: &Fault{Code: 3, Message: "bad qty"}}), exception.ErrRejected))
	assert.True(t, errors.Is(Classify(&StatusError{Status: 400}), exception.ErrUnavailable), "4xx without fault body is not a business refusal")

	already := exception.Rejected("halted")
	assert.Equal(t, already, Classify(already))
}
