package models

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// Error codes returned by the content store and the HTTP layer.
const (
	CodeDuplicateUser      = "DUPLICATE_USER"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeMissingField       = "MISSING_FIELD"
	CodeUnauthenticated    = "UNAUTHENTICATED"
	CodeForbidden          = "FORBIDDEN"
	CodeNotFound           = "NOT_FOUND"
	CodeInvalidCategory    = "INVALID_CATEGORY"
	CodeAlreadyReacted     = "ALREADY_REACTED"
	CodeValidation         = "VALIDATION_ERROR"
	CodeInternal           = "INTERNAL_ERROR"
)

// ErrorResponse represents a standardized API error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// AppError represents a custom application error
type AppError struct {
	Code    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is reports whether target is an AppError of the same kind, so callers can
// match with errors.Is(err, models.ErrNotFound) regardless of the message.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// Sentinel kinds for errors.Is matching.
var (
	ErrDuplicateUser      = &AppError{Code: CodeDuplicateUser, Message: "User already exists"}
	ErrInvalidCredentials = &AppError{Code: CodeInvalidCredentials, Message: "Invalid credentials"}
	ErrMissingField       = &AppError{Code: CodeMissingField, Message: "Missing required field"}
	ErrUnauthenticated    = &AppError{Code: CodeUnauthenticated, Message: "Login required"}
	ErrForbidden          = &AppError{Code: CodeForbidden, Message: "Forbidden"}
	ErrNotFound           = &AppError{Code: CodeNotFound, Message: "Not found"}
	ErrInvalidCategory    = &AppError{Code: CodeInvalidCategory, Message: "Invalid category"}
	ErrAlreadyReacted     = &AppError{Code: CodeAlreadyReacted, Message: "Already reacted to this post"}
)

// Predefined error constructors
func NewDuplicateUserError(username string) *AppError {
	return &AppError{
		Code:    CodeDuplicateUser,
		Message: fmt.Sprintf("User %q already exists", username),
	}
}

func NewInvalidCredentialsError() *AppError {
	return &AppError{
		Code:    CodeInvalidCredentials,
		Message: "Invalid credentials",
	}
}

func NewMissingFieldError(fields ...string) *AppError {
	msg := "Missing required field"
	if len(fields) > 0 {
		msg = fmt.Sprintf("Missing required field: %s", joinFields(fields))
	}
	return &AppError{
		Code:    CodeMissingField,
		Message: msg,
	}
}

func NewUnauthenticatedError(message string) *AppError {
	return &AppError{
		Code:    CodeUnauthenticated,
		Message: message,
	}
}

func NewForbiddenError(message string) *AppError {
	return &AppError{
		Code:    CodeForbidden,
		Message: message,
	}
}

func NewNotFoundError(resource string, id interface{}) *AppError {
	return &AppError{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s with ID %v not found", resource, id),
	}
}

func NewInvalidCategoryError(category string) *AppError {
	return &AppError{
		Code:    CodeInvalidCategory,
		Message: fmt.Sprintf("Unknown category %q", category),
	}
}

func NewAlreadyReactedError(postID uint) *AppError {
	return &AppError{
		Code:    CodeAlreadyReacted,
		Message: fmt.Sprintf("Already reacted to post %d", postID),
	}
}

func NewValidationError(message string) *AppError {
	return &AppError{
		Code:    CodeValidation,
		Message: message,
	}
}

func NewInternalError(err error) *AppError {
	return &AppError{
		Code:    CodeInternal,
		Message: "Internal server error",
		Err:     err,
	}
}

func joinFields(fields []string) string {
	out := fields[0]
	for _, f := range fields[1:] {
		out += ", " + f
	}
	return out
}

// StatusFor maps an error to the HTTP status the view layer should answer with.
func StatusFor(err error) int {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return fiber.StatusInternalServerError
	}
	switch appErr.Code {
	case CodeMissingField, CodeInvalidCategory, CodeValidation:
		return fiber.StatusBadRequest
	case CodeInvalidCredentials, CodeUnauthenticated:
		return fiber.StatusUnauthorized
	case CodeForbidden:
		return fiber.StatusForbidden
	case CodeNotFound:
		return fiber.StatusNotFound
	case CodeDuplicateUser, CodeAlreadyReacted:
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}

// RespondWithError creates a standardized error response
func RespondWithError(c *fiber.Ctx, status int, err error) error {
	var response ErrorResponse

	var appErr *AppError
	if errors.As(err, &appErr) {
		response = ErrorResponse{
			Error: appErr.Message,
			Code:  appErr.Code,
		}
		if appErr.Err != nil {
			response.Details = appErr.Err.Error()
		}
	} else {
		response = ErrorResponse{
			Error: err.Error(),
		}
	}

	return c.Status(status).JSON(response)
}
