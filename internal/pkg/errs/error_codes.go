/*
Package errs provides custom error types and application-level error code constants.

These error codes are used to clearly identify specific business or system errors
both internally within the server and in communication with clients.
*/
package errs

// 1xxx: General Request Handling Errors
const (
	// ErrInvalidParams indicates that request parameter validation failed.
	ErrInvalidParams = 1001

	// ErrUnsupportedMediaType indicates that the request header Content-Type is not supported.
	ErrUnsupportedMediaType = 1002

	// ErrInvalidJSONFormat indicates that the request body JSON format is incorrect (e.g., syntax error).
	ErrInvalidJSONFormat = 1003

	// ErrExtraContentInBody indicates that the request body contained extra content after valid JSON data.
	ErrExtraContentInBody = 1004

	// ErrFormParseFailed indicates failure to parse multipart or URL-encoded form data.
	ErrFormParseFailed = 1005

	// ErrRequestEntityTooLarge indicates that the request body size exceeded the server limit.
	ErrRequestEntityTooLarge = 1006

	// ErrRateLimitExceeded indicates that the request rate has exceeded the set limit.
	ErrRateLimitExceeded = 1007
)

// 2xxx: Chat and Message Business Logic Errors
const (
	// ErrChatNotFound indicates that the requested chat does not exist.
	ErrChatNotFound = 2101

	// ErrChatForbidden indicates that the caller is not a member of the direct-message chat.
	ErrChatForbidden = 2102

	// ErrMessageEmpty indicates that the submitted text was empty or whitespace only.
	ErrMessageEmpty = 2201

	// ErrMessageContentTooLong indicates that the user's message content exceeded the maximum length limit.
	ErrMessageContentTooLong = 2202

	// ErrMessageNotFound indicates that the message to edit or delete does not exist.
	ErrMessageNotFound = 2203

	// ErrMessageNotOwned indicates that only the author may edit or delete the message.
	ErrMessageNotOwned = 2204

	// ErrComposerBusy indicates that a previous submission from the same user is still in flight.
	ErrComposerBusy = 2205

	// ErrMessageRejected is the negative moderation verdict. The message carries the reason.
	ErrMessageRejected = 2301

	// ErrFileSizeTooLarge indicates that an uploaded avatar exceeds the size limit.
	ErrFileSizeTooLarge = 2401

	// ErrFileTypeInvalid indicates that an uploaded avatar is not an accepted image type.
	ErrFileTypeInvalid = 2402
)

// 3xxx: Identity and Session Errors
const (
	// ErrUnauthorized indicates a missing, invalid, expired, or signed-out session.
	ErrUnauthorized = 3001

	// ErrInvalidCredentials indicates a failed sign-in.
	ErrInvalidCredentials = 3002

	// ErrEmailAlreadyInUse indicates that sign-up used an email bound to another account.
	ErrEmailAlreadyInUse = 3003

	// ErrWeakPassword indicates that the password does not meet the minimum length.
	ErrWeakPassword = 3004

	// ErrInvalidEmail indicates a malformed email address.
	ErrInvalidEmail = 3005

	// ErrInvalidDisplayName indicates a display name that is too short or too long.
	ErrInvalidDisplayName = 3006

	// ErrResetTokenInvalid indicates an unknown, used, or expired password reset token.
	ErrResetTokenInvalid = 3007

	// ErrUserNotFound indicates that the referenced user does not exist.
	ErrUserNotFound = 3008
)

// 4xxx: Data Access and External Service Errors
const (
	// ErrSendFailed indicates that appending a message to the store failed.
	ErrSendFailed = 4001

	// ErrUpdateFailed indicates that editing a message failed.
	ErrUpdateFailed = 4002

	// ErrDeleteFailed indicates that deleting a message failed.
	ErrDeleteFailed = 4003

	// ErrLoadFailed indicates that a read against the store failed.
	ErrLoadFailed = 4004

	// ErrModerationUnavailable indicates that the moderation service could not return a verdict.
	ErrModerationUnavailable = 4101

	// ErrFileStorageFailed indicates that the avatar object store rejected the operation.
	ErrFileStorageFailed = 4201
)

// 5xxx: Internal System Errors
const (
	// ErrUnknown represents an unclassified, general server internal error.
	ErrUnknown = 5000
)
