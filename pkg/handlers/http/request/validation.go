package request

import (
	"fmt"
	"strings"
)

// ValidationDetail locates one problem in the request body. Loc starts with "body"
// and continues with field names and array indexes.
type ValidationDetail struct {
	Loc  []any  `json:"loc"`
	Msg  string `json:"msg"`
	Type string `json:"type"`
}

type ValidationError struct {
	Details []ValidationDetail
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Details))
	for _, d := range e.Details {
		msgs = append(msgs, fmt.Sprintf("%v: %s", d.Loc, d.Msg))
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

func (e *ValidationError) add(msg, typ string, loc ...any) {
	e.Details = append(e.Details, ValidationDetail{
		Loc:  append([]any{"body"}, loc...),
		Msg:  msg,
		Type: typ,
	})
}

func (e *ValidationError) orNil() error {
	if len(e.Details) == 0 {
		return nil
	}
	return e
}
