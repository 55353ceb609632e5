package errors

// Error code constants.
// Format: CATEGORY_SPECIFIC_DETAIL
// The frontend maps these codes to localized messages.

const (
	// ==================== Auth (AUTH_) ====================
	AuthUnauthorized       = "AUTH_UNAUTHORIZED"
	AuthInvalidCredentials = "AUTH_INVALID_CREDENTIALS"
	AuthTokenExpired       = "AUTH_TOKEN_EXPIRED"
	AuthTokenInvalid       = "AUTH_TOKEN_INVALID"
	AuthEmailAlreadyExists = "AUTH_EMAIL_EXISTS"

	// ==================== Authorization (AUTHZ_) ====================
	AuthzForbidden    = "AUTHZ_FORBIDDEN"
	AuthzRoleNotFound = "AUTHZ_ROLE_NOT_FOUND"
	AuthzAdminOnly    = "AUTHZ_ADMIN_ONLY"

	// ==================== Validation (VALIDATION_) ====================
	ValidationInvalidInput  = "VALIDATION_INVALID_INPUT"
	ValidationInvalidID     = "VALIDATION_INVALID_ID"
	ValidationInvalidRange  = "VALIDATION_INVALID_RANGE"
	ValidationRequired      = "VALIDATION_REQUIRED"
	ValidationInvalidFormat = "VALIDATION_INVALID_FORMAT"

	// ==================== Venue (VENUE_) ====================
	VenueNotFound          = "VENUE_NOT_FOUND"
	VenueAlreadyExists     = "VENUE_ALREADY_EXISTS"
	VenueInvalidStatus     = "VENUE_INVALID_STATUS"
	VenueAlreadyFollowed   = "VENUE_ALREADY_FOLLOWED"
	VenueNotFollowed       = "VENUE_NOT_FOLLOWED"
	VenueInvalidSearchArea = "VENUE_INVALID_SEARCH_AREA"

	// ==================== Photo (PHOTO_) ====================
	PhotoNotFound        = "PHOTO_NOT_FOUND"
	PhotoNotApproved     = "PHOTO_NOT_APPROVED"
	PhotoInvalidFileType = "PHOTO_INVALID_FILE_TYPE"
	PhotoFileTooLarge    = "PHOTO_FILE_TOO_LARGE"
	PhotoUploadFailed    = "PHOTO_UPLOAD_FAILED"

	// ==================== Internal (INTERNAL_) ====================
	InternalServerError   = "INTERNAL_SERVER_ERROR"
	InternalDatabaseError = "INTERNAL_DATABASE_ERROR"
	InternalExternalAPI   = "INTERNAL_EXTERNAL_API"
	InternalConfigError   = "INTERNAL_CONFIG_ERROR"
)
