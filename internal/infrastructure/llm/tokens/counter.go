package tokens

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// NewCounter returns a token counter backed by the named BPE encoding. The
// encoding tables load once; the returned function is safe for concurrent
// use.
func NewCounter(encoding string) (func(string) int, error) {
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("load token encoding %q: %w", encoding, err)
	}
	return func(text string) int {
		return len(enc.Encode(text, nil, nil))
	}, nil
}
