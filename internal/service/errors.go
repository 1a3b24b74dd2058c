package service

import "errors"

// Базовые категории ошибок; обработчики HTTP сопоставляют их с кодами ответа.
var (
	ErrValidation   = errors.New("validation failed")
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
)

// Error доменная ошибка: Msg безопасно показывать клиенту, Kind одна из категорий выше.
type Error struct {
	Kind error
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

func (e *Error) Unwrap() error { return e.Kind }

func newError(kind error, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

var (
	ErrInvalidCredentials = newError(ErrUnauthorized, "invalid email or password")
	ErrInactiveUser       = newError(ErrForbidden, "user is deactivated")
	ErrInvalidOTP         = newError(ErrValidation, "invalid or expired otp")
	ErrEmailTaken         = newError(ErrConflict, "email already registered")

	ErrUserNotFound         = newError(ErrNotFound, "user not found")
	ErrArtistNotFound       = newError(ErrNotFound, "artist not found")
	ErrArtworkNotFound      = newError(ErrNotFound, "artwork not found")
	ErrOrderNotFound        = newError(ErrNotFound, "order not found")
	ErrConversationNotFound = newError(ErrNotFound, "conversation not found")

	ErrNotOwner              = newError(ErrForbidden, "access denied")
	ErrArtistProfileRequired = newError(ErrForbidden, "artist profile required")
	ErrArtistProfileExists   = newError(ErrConflict, "artist profile already exists")
	ErrArtworkHasOrders      = newError(ErrConflict, "artwork has orders and cannot be deleted")
	ErrReviewExists          = newError(ErrConflict, "you have already reviewed this artwork")
	ErrBusy                  = newError(ErrConflict, "resource is busy, please try again")

	ErrInsufficientStock  = newError(ErrValidation, "insufficient stock")
	ErrArtworkUnavailable = newError(ErrValidation, "artwork is not available")
	ErrOwnArtwork         = newError(ErrValidation, "cannot order your own artwork")
	ErrEmptyCart          = newError(ErrValidation, "cart is empty")
	ErrInvalidTransition  = newError(ErrValidation, "invalid order status transition")
	ErrOrderNotPayable    = newError(ErrValidation, "order cannot be paid")
	ErrConversationClosed = newError(ErrValidation, "conversation is closed")

	ErrHashMismatch    = newError(ErrValidation, "payment hash mismatch")
	ErrPaymentNotFound = newError(ErrNotFound, "payment transaction not found")
	ErrAmountMismatch  = newError(ErrValidation, "payment amount mismatch")
)

// validationError ошибка валидации с понятным клиенту текстом
func validationError(msg string) error {
	return newError(ErrValidation, msg)
}
