package common

import "errors"

var (
	ErrUnknownDevice   = errors.New("unknown device")
	ErrValidation      = errors.New("validation failed")
	ErrPhysicalControl = errors.New("all control tiers failed")
	ErrCooldown        = errors.New("device in push cooldown")
	ErrStaleSnapshot   = errors.New("snapshot not newer than applied one")
)

// PermanentError stops Retry from trying again.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }

func (e *PermanentError) Unwrap() error { return e.Err }

func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

func IsPermanent(err error) bool {
	var p *PermanentError
	return errors.As(err, &p)
}
