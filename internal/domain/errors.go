package domain

import "errors"

var (
	ErrCapacityReached     = errors.New("slot capacity reached")
	ErrEmptyIdentifier     = errors.New("identifier is empty")
	ErrUnknownPlatform     = errors.New("unknown platform")
	ErrUnknownField        = errors.New("unknown slot field")
	ErrSlotNotFound        = errors.New("slot not found")
	ErrNotSignedIn         = errors.New("not signed in")
	ErrAppTokenUnavailable = errors.New("app token unavailable")
	ErrKeyNotFound         = errors.New("key not found")
	ErrInvalidRedirect     = errors.New("invalid redirect url")
)
