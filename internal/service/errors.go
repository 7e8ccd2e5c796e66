package service

import "errors"

var ( // Define custom errors
	ErrMissingAuth            = errors.New("missing or malformed Authorization header")
	ErrSessionExpired         = errors.New("session expired")
	ErrInvalidSession         = errors.New("invalid session token")
	ErrEmptyPrompt            = errors.New("prompt must not be empty")
	ErrContentRejected        = errors.New("prompt contains disallowed content")
	ErrClassifierUnavailable  = errors.New("content classification unavailable")
	ErrTranslationUnavailable = errors.New("translation unavailable")
	ErrTranslationParse       = errors.New("translation response could not be parsed")
	ErrSynthesisContract      = errors.New("synthesis response contained no usable result")
	ErrResultFetch            = errors.New("failed to fetch synthesis result")
	ErrUnsupportedFileType    = errors.New("unsupported file type")
)
