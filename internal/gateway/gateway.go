// Package gateway defines the remote validation gateway contract.
//
// The gateway is the external collaborator that performs a validation action
// server-side. Implementations must be safe to retry: the engine resends the
// same logical request (same request id and payload) after failures.
package gateway

import (
	"context"
	"fmt"

	"github.com/edustack/valsync/internal/models"
)

// Gateway submits validation requests to the remote service.
type Gateway interface {
	// Submit delivers one validation request. A nil return confirms the
	// action landed server-side. The context bounds the submission; a
	// deadline exceeded error counts as a delivery failure.
	Submit(ctx context.Context, req models.ValidationRequest) error
}

// Error describes a failed submission. Permanent marks responses where the
// server explicitly rejected the request (e.g. a validation conflict) as
// opposed to transient delivery trouble. The engine records the distinction
// in diagnostics but both kinds consume retry budget.
type Error struct {
	StatusCode int
	Permanent  bool
	Message    string
}

func (e *Error) Error() string {
	if e.Permanent {
		return fmt.Sprintf("gateway rejected request (status %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("gateway submission failed (status %d): %s", e.StatusCode, e.Message)
}
