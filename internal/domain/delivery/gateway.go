// internal/domain/delivery/gateway.go
package delivery

import (
	"context"
	"fmt"
)

// Status is the classified outcome of a single send.
type Status string

const (
	StatusDelivered        Status = "DELIVERED"
	StatusPermanentFailure Status = "PERMANENT_FAILURE" // Recipient unreachable for good (blocked, deleted)
	StatusTransientFailure Status = "TRANSIENT_FAILURE" // Network, timeout, rate limit, server side
)

// Result is what a Gateway reports back. Err is nil only for StatusDelivered.
type Result struct {
	Status Status
	Err    error
}

func Delivered() Result { return Result{Status: StatusDelivered} }

func PermanentFailure(err error) Result {
	if err == nil {
		err = fmt.Errorf("recipient unreachable")
	}
	return Result{Status: StatusPermanentFailure, Err: err}
}

func TransientFailure(err error) Result {
	if err == nil {
		err = fmt.Errorf("transient delivery failure")
	}
	return Result{Status: StatusTransientFailure, Err: err}
}

func (r Result) OK() bool { return r.Status == StatusDelivered }

// Gateway sends one text to one recipient. Implementations own the transport-specific
// classification of errors into permanent and transient failures.
type Gateway interface {
	Send(ctx context.Context, recipientID int64, text string) Result
}
