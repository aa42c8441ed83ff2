package errors

import (
	"errors"
	"fmt"
)

// Domain outcomes surfaced to users as plain replies rather than failures.
var (
	ErrAlreadyTracked      = errors.New("ticker is already tracked")
	ErrNotTracked          = errors.New("ticker is not tracked")
	ErrInvalidInterval     = errors.New("invalid alert interval")
	ErrAlreadyActive       = errors.New("market alert already active")
	ErrPreferencesNotFound = errors.New("alert preferences not found")
)

// GenericUserMessage is shown whenever a handler fails for reasons the user cannot fix.
const GenericUserMessage = "⚠️ Something went wrong. Please try again later."

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

type AppError struct {
	Code        string
	Message     string
	UserMessage string
	Severity    Severity
	cause       error
}

func (e *AppError) Error() string {
	if e == nil {
		return ""
	}

	return e.Message
}

func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}

	return e.cause
}

func NewDatabaseError(cause error) *AppError {
	var underlyingMsg string
	if cause != nil {
		underlyingMsg = cause.Error()
	}

	return &AppError{
		Code:        "E200",
		Message:     fmt.Sprintf("database error: %s", underlyingMsg),
		UserMessage: GenericUserMessage,
		Severity:    SeverityHigh,
		cause:       cause,
	}
}

func NewExternalAPIError(apiName string, cause error) *AppError {
	return &AppError{
		Code:        "E300",
		Message:     fmt.Sprintf("external API error: %s", apiName),
		UserMessage: GenericUserMessage,
		Severity:    SeverityMedium,
		cause:       cause,
	}
}

func NewDeliveryError(userID int64, cause error) *AppError {
	return &AppError{
		Code:        "E400",
		Message:     fmt.Sprintf("delivery to %d failed", userID),
		UserMessage: GenericUserMessage,
		Severity:    SeverityMedium,
		cause:       cause,
	}
}

func NewPanicError(recovered any) *AppError {
	return &AppError{
		Code:        "E900",
		Message:     fmt.Sprintf("panic recovered: %v", recovered),
		UserMessage: GenericUserMessage,
		Severity:    SeverityCritical,
	}
}

// IsUserError reports whether err is one of the domain outcomes that should be answered with a plain reply.
func IsUserError(err error) bool {
	return errors.Is(err, ErrAlreadyTracked) ||
		errors.Is(err, ErrNotTracked) ||
		errors.Is(err, ErrInvalidInterval) ||
		errors.Is(err, ErrAlreadyActive) ||
		errors.Is(err, ErrPreferencesNotFound)
}
