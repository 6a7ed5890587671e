package ticket

import "errors"

type Kind string

const (
	KindBadRequest      Kind = "bad_request"
	KindUnauthorized    Kind = "unauthorized"
	KindConfig          Kind = "config"
	KindUpstream        Kind = "upstream"
	KindParse           Kind = "parse"
	KindIncomplete      Kind = "incomplete_extraction"
	KindInvalidDateTime Kind = "invalid_datetime"
	KindPersistence     Kind = "persistence"
)

// Error is the single failure type of the extraction pipeline. Msg is safe to
// show to the caller; Err keeps the underlying cause for logs.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// KindOf reports the pipeline error kind of err, or "" for foreign errors.
func KindOf(err error) Kind {
	var te *Error
	if errors.As(err, &te) {
		return te.Kind
	}
	return ""
}
