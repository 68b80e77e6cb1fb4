package book

import "errors"

var (
	ErrInvalidParam = errors.New("the param is invalid")
	ErrSequenceGap  = errors.New("event sequence gap detected")
)
