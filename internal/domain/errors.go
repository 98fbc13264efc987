package domain

import "errors"

// User errors
var (
	ErrUserNotFound     = errors.New("user not found")
	ErrUsernameTaken    = errors.New("username already taken")
	ErrEmailTaken       = errors.New("email already registered")
	ErrInvalidUsername  = errors.New("username must be 3-20 characters, letters, digits and underscores only")
	ErrInvalidEmail     = errors.New("invalid email address")
	ErrPasswordTooShort = errors.New("password must be at least 6 characters")
)

// Question errors
var (
	ErrQuestionNotFound = errors.New("question not found")
	ErrQuestionTooLong  = errors.New("question must be between 1 and 280 characters")
	ErrAnswerTooLong    = errors.New("answer must be between 1 and 1000 characters")
	ErrAlreadyAnswered  = errors.New("question has already been answered")
	ErrNotQuestionOwner = errors.New("question belongs to another user")
	ErrQuestionRejected = errors.New("question was deemed inappropriate")
)

// Note errors
var (
	ErrNoteNotFound = errors.New("note not found")
	ErrNoteTooLong  = errors.New("note must be between 1 and 500 characters")
	ErrNotNoteOwner = errors.New("note belongs to another user")
)
