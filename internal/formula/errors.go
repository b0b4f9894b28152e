package formula

import "github.com/pkg/errors"

var (
	ErrDivisionByZero  = errors.New("#DIV/0!")
	ErrValue           = errors.New("#VALUE!")
	ErrSyntax          = errors.New("syntax error")
	ErrUnknownFunction = errors.New("#NAME?")
	ErrRange           = errors.New("#REF!")
)
