package interact

import "errors"

var (
	// Reply chain errors.
	ErrNoReplies    = errors.New("interact: no reply sent yet")
	ErrNoSuchReply  = errors.New("interact: no reply with that index")
	ErrInvalidState = errors.New("interact: invalid reply chain state")

	// Dispatch errors.
	ErrRateLimited = errors.New("interact: rate limited")

	// Pagination errors.
	ErrBadPageRef    = errors.New("interact: malformed page reference")
	ErrDuplicatePage = errors.New("interact: page type already registered")
	ErrUnknownPage   = errors.New("interact: page type not recognized")

	// Gateway errors.
	ErrConnClosed = errors.New("interact: gateway connection closed")
)
