package apperrors

type Code string

const (
	CodeUnknown             Code = "UNKNOWN"
	CodeNotFound            Code = "NOT_FOUND"
	CodeInvalidInput        Code = "INVALID_INPUT"
	CodePermissionDenied    Code = "PERMISSION_DENIED"
	CodeConflict            Code = "CONFLICT"
	CodeCollaboratorFailure Code = "COLLABORATOR_FAILURE"
	CodeInternal            Code = "INTERNAL"
)
