package allowlist

import "context"

const (
	ReasonRequired  = "MAC address is required."
	ReasonFormat    = "Not a valid MAC address format."
	ReasonDuplicate = "MAC address is already whitelisted."
)

// ValidationError carries a user-facing reason for rejecting an entry.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

type macLookup interface {
	MACExists(ctx context.Context, mac string, excludeID int64) (bool, error)
}

type Validator struct {
	lookup macLookup
}

func NewValidator(lookup macLookup) *Validator {
	return &Validator{lookup: lookup}
}

// Validate returns nil, a *ValidationError, or a lookup failure.
// The entry's own ID is ignored by the uniqueness check so an unchanged MAC
// can be resubmitted on edit.
func (v *Validator) Validate(ctx context.Context, e Entry) error {
	if e.MACAddress == "" {
		return &ValidationError{Reason: ReasonRequired}
	}
	if !ValidMAC(e.MACAddress) {
		return &ValidationError{Reason: ReasonFormat}
	}
	taken, err := v.lookup.MACExists(ctx, e.MACAddress, e.ID)
	if err != nil {
		return err
	}
	if taken {
		return &ValidationError{Reason: ReasonDuplicate}
	}
	return nil
}
