package ledger

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	// ErrUserNotFound means the award or redemption targets an unknown user.
	// No partial state is left behind.
	ErrUserNotFound = errors.New("user not found")

	// ErrUnknownAction means the request names an action with no template.
	ErrUnknownAction = errors.New("unknown reward action")

	// ErrProofRequired means the template demands proof URLs and none were supplied.
	ErrProofRequired = errors.New("proof required for this action")

	// ErrChannelNotAllowed means the channel is not in the template's allow-list.
	ErrChannelNotAllowed = errors.New("channel not allowed for this action")

	// ErrInsufficientPoints means the balance does not cover the redemption cost.
	ErrInsufficientPoints = errors.New("insufficient points")
)

// PartialFailureError means the vendor issued the gift but the local balance
// deduction failed. The gift is NOT reversed; support must reconcile using
// the recorded vendor response.
type PartialFailureError struct {
	RedemptionID uuid.UUID
	VendorRef    string
	Cause        error
}

func (e *PartialFailureError) Error() string {
	return fmt.Sprintf("redemption %s: gift issued (vendor ref %s) but balance deduction failed: %v",
		e.RedemptionID, e.VendorRef, e.Cause)
}

func (e *PartialFailureError) Unwrap() error { return e.Cause }
