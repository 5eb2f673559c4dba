package errors

import "errors"

// DumpResult captures the unwrapped chain for log output.
type DumpResult struct {
	Code       string
	TopMessage string
	Chain      []string
}

// Dump walks the error chain so handlers can log the full cause trail.
func Dump(err error) DumpResult {
	res := DumpResult{}
	if err == nil {
		return res
	}
	res.TopMessage = err.Error()
	if typed := As(err); typed != nil {
		res.Code = string(typed.Code())
	}
	for cur := err; cur != nil; cur = errors.Unwrap(cur) {
		res.Chain = append(res.Chain, cur.Error())
	}
	return res
}
