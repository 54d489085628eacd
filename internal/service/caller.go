package service

import (
	"context"
	"errors"
	"fmt"

	"compliance/internal/model"

	"github.com/google/uuid"
)

// ErrForbidden is returned when a vendor reaches for another vendor's submission.
var ErrForbidden = errors.New("access denied")

// Caller identifies who is making a request. Vendor callers are limited to their own submissions.
type Caller struct {
	ID     string
	Vendor bool
}

type callerKey struct{}

// WithCaller attaches the caller to ctx. Requests without a caller are trusted internal calls.
func WithCaller(ctx context.Context, c Caller) context.Context {
	return context.WithValue(ctx, callerKey{}, c)
}

func callerFrom(ctx context.Context) (Caller, bool) {
	c, ok := ctx.Value(callerKey{}).(Caller)
	return c, ok
}

func isVendorCaller(ctx context.Context) bool {
	c, ok := callerFrom(ctx)
	return ok && c.Vendor
}

// authorize refuses a vendor caller access to a submission owned by another vendor.
func authorize(ctx context.Context, sub *model.Submission) error {
	c, ok := callerFrom(ctx)
	if !ok || !c.Vendor {
		return nil
	}
	id, err := uuid.Parse(c.ID)
	if err != nil || id != sub.VendorID {
		return fmt.Errorf("%w: submission %s belongs to another vendor", ErrForbidden, sub.ID)
	}
	return nil
}
