package util

import "errors"

var (
	ErrNotFound            = errors.New("resource not found")
	ErrValidation          = errors.New("validation failed")
	ErrEmailRegistered     = errors.New("email already registered")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrEmailNotVerified    = errors.New("email not verified")
	ErrInvalidToken        = errors.New("invalid or expired token")
	ErrPermissionDenied    = errors.New("permission denied")
	ErrContestStarted      = errors.New("contest has already started")
	ErrContestNotStarted   = errors.New("contest has not started yet")
	ErrContestEnded        = errors.New("contest has ended")
	ErrInvalidContestCode  = errors.New("invalid contest code")
	ErrContestCodeTaken    = errors.New("contest code already in use")
	ErrAlreadySubmitted    = errors.New("already submitted")
	ErrBookmarkExists      = errors.New("question already bookmarked")
	ErrNotEnoughQuestions  = errors.New("not enough questions for the selected filters")
	ErrUnsupportedFileType = errors.New("unsupported file type")
	ErrQuestionInUse       = errors.New("question is used by a contest")
)
