package exception

import "errors"

// Feed and normalization errors
var (
	ErrTokenNotEstablished = errors.New("feed: delta for token without prior snapshot")
	ErrMissingTypeTag      = errors.New("feed: message missing type tag")
	ErrMissingToken        = errors.New("feed: message missing token")
)
