package domain

import "errors"

var (
	// ErrBoardNotFound is returned when a marathon board has not been initialized.
	ErrBoardNotFound = errors.New("marathon board not found")
	// ErrUnknownUser is returned when a referenced user is not on the roster.
	ErrUnknownUser = errors.New("user not found")
	// ErrUnknownReading indicates the referenced reading is not in the catalog.
	ErrUnknownReading = errors.New("reading not found")
	// ErrUnknownEvent indicates the referenced event does not exist.
	ErrUnknownEvent = errors.New("event not found")
	// ErrAlreadySubmitted is returned when a user marks the same reading
	// complete twice; the first submission stands untouched.
	ErrAlreadySubmitted = errors.New("reading already submitted")
	// ErrInvalidEvent rejects event creation with no readings or missing dates.
	ErrInvalidEvent = errors.New("event needs a title, an end date and at least one reading")
)
