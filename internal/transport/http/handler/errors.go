package handler

const (
	errMissingUser     = "Missing user identity"
	errFileUnavailable = "Document is no longer available"
)
