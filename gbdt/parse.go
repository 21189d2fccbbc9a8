package gbdt

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"
)

func bytesReader(b []byte) io.Reader {
	return bytes.NewReader(b)
}

// parseIntField parses a decimal integer string field, rejecting any
// value that is not a bare base-10 integer literal — in particular
// rejecting "NaN", "Infinity", "-Infinity", and anything containing a
// decimal point or exponent. Models are transmitted as canonical JSON
// with integer fields encoded as strings precisely so that no JSON
// number parser can silently round-trip a float.
func parseIntField(s, field string) (int64, error) {
	if s == "" {
		return 0, fmt.Errorf("%w: empty %s field", ErrMalformedModel, field)
	}
	if strings.ContainsAny(s, ".eE") || strings.EqualFold(s, "nan") ||
		strings.Contains(strings.ToLower(s), "inf") {
		return 0, fmt.Errorf("%w: non-integer sentinel in %s field: %q", ErrEncodingFailed, field, s)
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid %s field %q: %v", ErrEncodingFailed, field, s, err)
	}
	return v, nil
}

func formatIntField(v int64) string {
	return strconv.FormatInt(v, 10)
}
