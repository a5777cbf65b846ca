package services

// Caller-facing messages. Internal causes are logged, never returned.
const (
	msgCredentialsRequired = "username and password are required"
	msgBadCredentials      = "the credentials you provided do not match"
	msgAuthFailed          = "authentication failed"
	msgSignupRequired      = "username, password and password confirmation are required"
	msgChangeRequired      = "current password, new password and password confirmation are required"
	msgResetRequired       = "username, key, password and password confirmation are required"
	msgPasswordTooShort    = "password must be at least 12 characters"
	msgPasswordMismatch    = "passwords do not match"
	msgUsernameTaken       = "username is already taken"
	msgCurrentPassword     = "current password does not match"
	msgKeyMismatch         = "the key you entered does not match this account"
	msgPasswordUnchanged   = "password could not be changed"

	msgFilenameRequired = "filename is required"
	msgFileTooLarge     = "file exceeds the maximum upload size"
	msgFileNotFound     = "file does not exist or is inaccessible"
	msgFileUnreadable   = "file could not be retrieved"
	msgFileUnshareable  = "file could not be shared"

	msgShareSelf   = "you cannot share a file with yourself"
	msgUnknownUser = "the username you specified does not exist"
	msgUnshareSelf = "you cannot unshare a file with yourself, delete it instead"
)
