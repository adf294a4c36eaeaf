/*
Package errs provides custom error types and application-level error code constants.

This file defines the map from error codes to the CustomError struct, used to standardize
HTTP responses and internal error handling.
*/
package errs

import "net/http"

// DefaultRejectionReason is shown when the moderation verdict is negative but carries no reason.
const DefaultRejectionReason = "This message does not meet our community guidelines."

// errorMap stores the detailed CustomError struct corresponding to every application error code.
// The key is the error code (int), and the value contains the user message, kind, and HTTP status code.
var errorMap = map[int]CustomError{
	// 1xxx: General Request Handling Errors
	ErrInvalidParams:         {Code: ErrInvalidParams, Kind: KindRequest, Message: "Invalid request parameters.", Status: http.StatusBadRequest},
	ErrUnsupportedMediaType:  {Code: ErrUnsupportedMediaType, Kind: KindRequest, Message: "Unsupported request format.", Status: http.StatusUnsupportedMediaType},
	ErrInvalidJSONFormat:     {Code: ErrInvalidJSONFormat, Kind: KindRequest, Message: "Unsupported request format.", Status: http.StatusBadRequest},
	ErrExtraContentInBody:    {Code: ErrExtraContentInBody, Kind: KindRequest, Message: "Request contains unexpected data.", Status: http.StatusBadRequest},
	ErrFormParseFailed:       {Code: ErrFormParseFailed, Kind: KindRequest, Message: "Failed to process uploaded data.", Status: http.StatusBadRequest},
	ErrRequestEntityTooLarge: {Code: ErrRequestEntityTooLarge, Kind: KindRequest, Message: "Request size is too large.", Status: http.StatusRequestEntityTooLarge},
	ErrRateLimitExceeded:     {Code: ErrRateLimitExceeded, Kind: KindRequest, Message: "Too many requests. Please try again later.", Status: http.StatusTooManyRequests},

	// 2xxx: Chat and Message Business Logic Errors
	ErrChatNotFound:          {Code: ErrChatNotFound, Kind: KindChat, Message: "Chat not found.", Status: http.StatusNotFound},
	ErrChatForbidden:         {Code: ErrChatForbidden, Kind: KindChat, Message: "You are not a member of this chat.", Status: http.StatusForbidden},
	ErrMessageEmpty:          {Code: ErrMessageEmpty, Kind: KindChat, Message: "Message cannot be empty.", Status: http.StatusBadRequest},
	ErrMessageContentTooLong: {Code: ErrMessageContentTooLong, Kind: KindChat, Message: "Message is too long.", Status: http.StatusBadRequest},
	ErrMessageNotFound:       {Code: ErrMessageNotFound, Kind: KindChat, Message: "Message not found.", Status: http.StatusNotFound},
	ErrMessageNotOwned:       {Code: ErrMessageNotOwned, Kind: KindChat, Message: "You can only change your own messages.", Status: http.StatusForbidden},
	ErrComposerBusy:          {Code: ErrComposerBusy, Kind: KindChat, Message: "Your previous message is still being sent.", Status: http.StatusConflict},
	ErrMessageRejected:       {Code: ErrMessageRejected, Kind: KindModerationRejected, Message: "%s", Status: http.StatusUnprocessableEntity},
	ErrFileSizeTooLarge:      {Code: ErrFileSizeTooLarge, Kind: KindRequest, Message: "File is too large.", Status: http.StatusBadRequest},
	ErrFileTypeInvalid:       {Code: ErrFileTypeInvalid, Kind: KindRequest, Message: "Only JPEG, PNG, WebP, or GIF images are allowed.", Status: http.StatusBadRequest},

	// 3xxx: Identity and Session Errors
	ErrUnauthorized:       {Code: ErrUnauthorized, Kind: KindAuth, Message: "Please sign in to continue.", Status: http.StatusUnauthorized},
	ErrInvalidCredentials: {Code: ErrInvalidCredentials, Kind: KindAuth, Message: "Invalid email or password.", Status: http.StatusUnauthorized},
	ErrEmailAlreadyInUse:  {Code: ErrEmailAlreadyInUse, Kind: KindAuth, Message: "The email address is already in use by another account.", Status: http.StatusConflict},
	ErrWeakPassword:       {Code: ErrWeakPassword, Kind: KindAuth, Message: "Password must be at least 6 characters.", Status: http.StatusBadRequest},
	ErrInvalidEmail:       {Code: ErrInvalidEmail, Kind: KindAuth, Message: "Invalid email address.", Status: http.StatusBadRequest},
	ErrInvalidDisplayName: {Code: ErrInvalidDisplayName, Kind: KindAuth, Message: "Display name must be at least 2 characters.", Status: http.StatusBadRequest},
	ErrResetTokenInvalid:  {Code: ErrResetTokenInvalid, Kind: KindAuth, Message: "This reset link is invalid or has expired.", Status: http.StatusBadRequest},
	ErrUserNotFound:       {Code: ErrUserNotFound, Kind: KindAuth, Message: "User not found.", Status: http.StatusNotFound},

	// 4xxx: Data Access and External Service Errors
	ErrSendFailed:            {Code: ErrSendFailed, Kind: KindDataAccess, Message: "Could not send message. Please try again.", Status: http.StatusBadGateway},
	ErrUpdateFailed:          {Code: ErrUpdateFailed, Kind: KindDataAccess, Message: "Could not update message. Please try again.", Status: http.StatusBadGateway},
	ErrDeleteFailed:          {Code: ErrDeleteFailed, Kind: KindDataAccess, Message: "Could not delete message. Please try again.", Status: http.StatusBadGateway},
	ErrLoadFailed:            {Code: ErrLoadFailed, Kind: KindDataAccess, Message: "Could not load data. Please try again.", Status: http.StatusBadGateway},
	ErrModerationUnavailable: {Code: ErrModerationUnavailable, Kind: KindModerationService, Message: "Could not verify your message. It was not sent.", Status: http.StatusServiceUnavailable},
	ErrFileStorageFailed:     {Code: ErrFileStorageFailed, Kind: KindDataAccess, Message: "File upload failed. Please try again.", Status: http.StatusBadGateway},

	// 5xxx: Internal System Errors
	ErrUnknown: {Code: ErrUnknown, Kind: KindInternal, Message: "Something went wrong. Please try again.", Status: http.StatusInternalServerError},
}
