package action

// User-facing failure messages.
const (
	MsgInvalidEmail        = "invalid email format"
	MsgSignInToUpload      = "you must be signed in to upload"
	MsgSignInRequired      = "you must be signed in"
	MsgNoFile              = "no file provided"
	MsgFileTooLarge        = "file too large"
	MsgUploadFailed        = "upload failed"
	MsgSubscribeFailed     = "could not subscribe, please try again"
	MsgProjectNotFound     = "project not found"
	MsgForbidden           = "you do not have access to this project"
	MsgShareLinkNotFound   = "share link not found"
	MsgShareLinkExpired    = "share link has expired"
	MsgInvitationNotFound  = "invitation not found"
	MsgInvitationExpired   = "invitation has expired"
	MsgInvitationUsed      = "invitation has already been used"
	MsgInvitationMismatch  = "invitation was sent to a different email"
	MsgInvalidURL          = "invalid url"
	MsgRebuildUnavailable  = "site rebuilding is not configured"
	MsgSomethingWentWrong  = "something went wrong, please try again"
	rebuildFailedMsgPrefix = "rebuild failed"
)

// Result is the outcome of an action as returned to the UI.
// Failures carry a message safe to show the user, never a raw error.
type Result struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// OK creates a successful result.
func OK(data any) Result {
	return Result{Success: true, Data: data}
}

// Fail creates a failed result with a user-facing message.
func Fail(msg string) Result {
	return Result{Error: msg}
}

// IsOK returns true if the result indicates success.
func (r Result) IsOK() bool {
	return r.Success
}
