package submission

import "errors"

// Error codes reported by the transitions and the flow.
const (
	CodeEmptyText    = "empty_text"
	CodeTooLong      = "too_long"
	CodeInvalidPrice = "invalid_price"
	CodeInvalidType  = "invalid_type"
	CodeImageLimit   = "image_limit"
	CodeNoImages     = "no_images"
	CodeWrongStep    = "wrong_step"
	CodeBanned       = "banned"
	CodeCooldown     = "cooldown"
)

// Error is a user-facing rejection. The draft is never changed when one is
// returned.
type Error struct {
	code string
	msg  string
}

func newError(code, msg string) *Error { return &Error{code: code, msg: msg} }

func (e *Error) Error() string { return e.msg }
func (e *Error) Code() string  { return e.code }

// CodeOf returns the code of a submission error in err's chain, or "".
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.code
	}
	return ""
}
