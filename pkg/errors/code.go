package errors

// ErrorCode represents a unique error identifier
type ErrorCode int

// Error code ranges allocation:
// 10000-10999: System & Common errors
// 11000-11999: Room & Player module errors
// 12000-12999: Execution engine errors
// 13000-13999: Submission & Integrity module errors

const (
	// ========== System & Common Errors (10000-10999) ==========

	// Success
	Success ErrorCode = 10000

	// Generic errors (10000-10099)
	InternalServerError ErrorCode = 10001
	InvalidParams       ErrorCode = 10002
	NotFound            ErrorCode = 10003
	TooManyRequests     ErrorCode = 10004
	ServiceUnavailable  ErrorCode = 10005
	Timeout             ErrorCode = 10006

	// Cache errors (10100-10199)
	CacheError     ErrorCode = 10100
	CacheSetFailed ErrorCode = 10101

	// Validation errors (10200-10299)
	ValidationFailed   ErrorCode = 10200
	RequiredFieldEmpty ErrorCode = 10201

	// ========== Room & Player Module Errors (11000-11999) ==========

	RoomNotFound      ErrorCode = 11000
	RoomAlreadyExists ErrorCode = 11001
	RoomNotActive     ErrorCode = 11002
	PlayerNotFound    ErrorCode = 11100
	PlayerNotInRoom   ErrorCode = 11101

	// ========== Execution Engine Errors (12000-12999) ==========

	LanguageNotSupported ErrorCode = 12000
	ArtifactWriteFailure ErrorCode = 12001
	LaunchFailure        ErrorCode = 12002
	ExecutionTimeout     ErrorCode = 12003
	ExecutionFailed      ErrorCode = 12004
	CodeTooLarge         ErrorCode = 12005

	// ========== Submission & Integrity Module Errors (13000-13999) ==========

	SubmissionExists       ErrorCode = 13000
	SubmissionCreateFailed ErrorCode = 13001
	NoTestCases            ErrorCode = 13002
	AuditPublishFailed     ErrorCode = 13100
	NotifyFailed           ErrorCode = 13101
)

// errorMessages maps error codes to their default English messages
var errorMessages = map[ErrorCode]string{
	// System & Common
	Success:             "Success",
	InternalServerError: "Internal server error",
	InvalidParams:       "Invalid parameters",
	NotFound:            "Resource not found",
	TooManyRequests:     "Too many requests, please try again later",
	ServiceUnavailable:  "Service temporarily unavailable",
	Timeout:             "Request timeout",

	// Cache
	CacheError:     "Cache operation failed",
	CacheSetFailed: "Failed to set cache",

	// Validation
	ValidationFailed:   "Validation failed",
	RequiredFieldEmpty: "Required field is empty",

	// Room & Player
	RoomNotFound:      "Room not found",
	RoomAlreadyExists: "Room already exists",
	RoomNotActive:     "Room is not active",
	PlayerNotFound:    "Player not found",
	PlayerNotInRoom:   "Player is not in this room",

	// Execution
	LanguageNotSupported: "Programming language not supported",
	ArtifactWriteFailure: "Failed to write source artifact",
	LaunchFailure:        "Failed to launch runtime",
	ExecutionTimeout:     "Execution time limit exceeded",
	ExecutionFailed:      "Execution failed",
	CodeTooLarge:         "Code is too large",

	// Submission & Integrity
	SubmissionExists:       "Submission already exists for this round",
	SubmissionCreateFailed: "Failed to create submission",
	NoTestCases:            "Problem has no test cases",
	AuditPublishFailed:     "Failed to publish audit event",
	NotifyFailed:           "Failed to deliver notification",
}

// Message returns the default message for the error code
func (c ErrorCode) Message() string {
	if msg, ok := errorMessages[c]; ok {
		return msg
	}
	return "Unknown error"
}

// HTTPStatus returns the recommended HTTP status code for the error code
func (c ErrorCode) HTTPStatus() int {
	switch {
	case c == Success:
		return 200
	case c == NotFound, c == RoomNotFound, c == PlayerNotFound, c == PlayerNotInRoom:
		return 404
	case c == RoomAlreadyExists, c == SubmissionExists, c == RoomNotActive:
		return 409
	case c == TooManyRequests:
		return 429
	case c == ServiceUnavailable:
		return 503
	case c == InvalidParams, c == LanguageNotSupported, c == CodeTooLarge, c == NoTestCases:
		return 400
	case c == Timeout, c == ExecutionTimeout:
		return 408
	case c >= 10200 && c < 10300: // Validation errors
		return 400
	default:
		return 500
	}
}
