package internal

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

type ErrorType string

const (
	ErrorTypeValidation    ErrorType = "VALIDATION_ERROR"
	ErrorTypeNotFound      ErrorType = "NOT_FOUND"
	ErrorTypeUnauthorized  ErrorType = "UNAUTHORIZED"
	ErrorTypeForbidden     ErrorType = "FORBIDDEN"
	ErrorTypeConflict      ErrorType = "CONFLICT"
	ErrorTypeConfiguration ErrorType = "CONFIGURATION_ERROR"
	ErrorTypeInternal      ErrorType = "INTERNAL_ERROR"
)

type ErrorCode string

const (
	ErrCodeValidationFailed  ErrorCode = "VALIDATION_FAILED"
	ErrCodeInvalidCoordinate ErrorCode = "INVALID_COORDINATE"
	ErrCodeInvalidEmail      ErrorCode = "INVALID_EMAIL"
	ErrCodeInvalidRole       ErrorCode = "INVALID_ROLE"
	ErrCodeInvalidRadius     ErrorCode = "INVALID_RADIUS"
	ErrCodeInvalidDate       ErrorCode = "INVALID_DATE"
	ErrCodeInvalidPeriod     ErrorCode = "INVALID_PERIOD"

	ErrCodeAlreadyClockedIn       ErrorCode = "ALREADY_CLOCKED_IN"
	ErrCodeNoClockInToday         ErrorCode = "NO_CLOCK_IN_TODAY"
	ErrCodeAlreadyClockedOut      ErrorCode = "ALREADY_CLOCKED_OUT"
	ErrCodeOutsideGeofence        ErrorCode = "OUTSIDE_GEOFENCE"
	ErrCodeGeofenceNotConfigured  ErrorCode = "GEOFENCE_NOT_CONFIGURED"
	ErrCodeOfficeLocationNotFound ErrorCode = "OFFICE_LOCATION_NOT_FOUND"
	ErrCodeOfficeLocationExists   ErrorCode = "OFFICE_LOCATION_EXISTS"

	ErrCodeInvalidCredentials     ErrorCode = "INVALID_CREDENTIALS"
	ErrCodeInvalidToken           ErrorCode = "INVALID_TOKEN"
	ErrCodeTokenExpired           ErrorCode = "TOKEN_EXPIRED"
	ErrCodeMissingToken           ErrorCode = "MISSING_TOKEN"
	ErrCodeInvalidRefreshToken    ErrorCode = "INVALID_REFRESH_TOKEN"
	ErrCodeEmailTaken             ErrorCode = "EMAIL_TAKEN"
	ErrCodeInvalidCurrentPassword ErrorCode = "INVALID_CURRENT_PASSWORD"
	ErrCodeInvalidResetCode       ErrorCode = "INVALID_RESET_CODE"

	ErrCodeUserNotFound         ErrorCode = "USER_NOT_FOUND"
	ErrCodeAdminRequired        ErrorCode = "ADMIN_REQUIRED"
	ErrCodeCannotDeleteSelf     ErrorCode = "CANNOT_DELETE_SELF"
	ErrCodeNotificationNotFound ErrorCode = "NOTIFICATION_NOT_FOUND"
	ErrCodeRateLimited          ErrorCode = "RATE_LIMITED"
)

type AppError struct {
	Type       ErrorType   `json:"type"`
	Code       ErrorCode   `json:"code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
	StatusCode int         `json:"-"`
	Cause      error       `json:"-"`
}

func (e *AppError) Error() string {
	if e.Details != nil {
		if validationErrors, ok := e.Details.(ValidationErrors); ok && len(validationErrors.Errors) > 0 {
			return validationErrors.Errors[0].Message
		}
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) GetDetailedMessage() string {
	if e.Details != nil {
		if validationErrors, ok := e.Details.(ValidationErrors); ok {
			if len(validationErrors.Errors) == 1 {
				return validationErrors.Errors[0].Message
			} else if len(validationErrors.Errors) > 1 {
				messages := make([]string, len(validationErrors.Errors))
				for i, err := range validationErrors.Errors {
					messages[i] = err.Message
				}
				return strings.Join(messages, "; ")
			}
		}
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithCause returns a copy of e carrying cause, so shared sentinels are never mutated.
func (e *AppError) WithCause(cause error) *AppError {
	cp := *e
	cp.Cause = cause
	return &cp
}

func (e *AppError) WithDetails(details interface{}) *AppError {
	cp := *e
	cp.Details = details
	return &cp
}

// Is matches by code so copies made by WithCause/WithDetails still satisfy errors.Is.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Type == t.Type
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func NewValidationError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

func NewValidationFieldError(field, message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Code:       ErrCodeValidationFailed,
		Message:    "Validation failed",
		StatusCode: http.StatusBadRequest,
		Details: ValidationErrors{
			Errors: []ValidationError{
				{Field: field, Message: message, Code: string(code)},
			},
		},
	}
}

func NewNotFoundError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeNotFound,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusNotFound,
	}
}

func NewUnauthorizedError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeUnauthorized,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusUnauthorized,
	}
}

func NewForbiddenError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeForbidden,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusForbidden,
	}
}

func NewInternalError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Code:       "INTERNAL_ERROR",
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Cause:      cause,
	}
}

func NewConflictError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeConflict,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusConflict,
	}
}

// NewStateConflictError is a conflict on a per-day state transition. Clients treat it as a
// bad request, so it is reported with 400 rather than 409.
func NewStateConflictError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeConflict,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

func NewConfigurationError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeConfiguration,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

// NewOutsideGeofenceError reports the rounded distance in meters to the nearest office.
func NewOutsideGeofenceError(distance int) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Code:       ErrCodeOutsideGeofence,
		Message:    fmt.Sprintf("You are outside the office radius (%dm from the office)", distance),
		Details:    map[string]int{"distance": distance},
		StatusCode: http.StatusBadRequest,
	}
}

var (
	ErrAlreadyClockedIn      = NewStateConflictError("You have already clocked in today", ErrCodeAlreadyClockedIn)
	ErrNoClockInToday        = NewValidationError("You have not clocked in today", ErrCodeNoClockInToday)
	ErrAlreadyClockedOut     = NewStateConflictError("You have already clocked out today", ErrCodeAlreadyClockedOut)
	ErrGeofenceNotConfigured = NewConfigurationError("Office location has not been configured", ErrCodeGeofenceNotConfigured)
	ErrOutsideGeofence       = NewOutsideGeofenceError(0)

	ErrOfficeLocationNotFound = NewNotFoundError("Office location not found", ErrCodeOfficeLocationNotFound)
	ErrOfficeLocationExists   = NewConflictError("Office location name is already in use", ErrCodeOfficeLocationExists)

	ErrInvalidCredentials     = NewUnauthorizedError("Invalid email or password", ErrCodeInvalidCredentials)
	ErrInvalidToken           = NewUnauthorizedError("Invalid token", ErrCodeInvalidToken)
	ErrTokenExpired           = NewUnauthorizedError("Token has expired", ErrCodeTokenExpired)
	ErrMissingToken           = NewUnauthorizedError("Access token is required", ErrCodeMissingToken)
	ErrInvalidRefreshToken    = NewUnauthorizedError("Invalid or expired refresh token", ErrCodeInvalidRefreshToken)
	ErrEmailTaken             = NewConflictError("Email is already registered", ErrCodeEmailTaken)
	ErrInvalidCurrentPassword = NewValidationError("Current password is incorrect", ErrCodeInvalidCurrentPassword)
	ErrInvalidResetCode       = NewValidationError("Invalid or expired reset code", ErrCodeInvalidResetCode)

	ErrUserNotFound         = NewNotFoundError("User not found", ErrCodeUserNotFound)
	ErrAdminRequired        = NewForbiddenError("Admin access required", ErrCodeAdminRequired)
	ErrCannotDeleteSelf     = NewValidationError("You cannot delete your own account", ErrCodeCannotDeleteSelf)
	ErrNotificationNotFound = NewNotFoundError("Notification not found", ErrCodeNotificationNotFound)
)

func IsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

func (e *AppError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type    ErrorType   `json:"type"`
		Code    ErrorCode   `json:"code"`
		Message string      `json:"message"`
		Details interface{} `json:"details,omitempty"`
	}{
		Type:    e.Type,
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
	})
}
