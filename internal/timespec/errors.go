package timespec

import "errors"

var (
	ErrUnknownTimezone = errors.New("unknown IANA timezone")
	ErrInvalidTimeSpec = errors.New("invalid date or time of day")
	ErrInvalidRange    = errors.New("range start must be before range end")
)
