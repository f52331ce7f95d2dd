// Package ref encodes the opaque identifiers handed to tracking clients:
// checksummed visit keys and {shard}_{visit}_{sub} composite references.
package ref

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Invalid is returned by VerifyChecksum for any input that does not carry a
// matching check digit. Record keys start at 1, so zero never names a row.
const Invalid int64 = 0

const delimiter = "_"

// Checksum renders key followed by one check digit: the sum of the key's
// decimal digits mod 10. Negative keys have no encoding and yield "".
func Checksum(key int64) string {
	if key < 0 {
		return ""
	}
	s := strconv.FormatInt(key, 10)
	return s + strconv.Itoa(digitSum(s)%10)
}

// VerifyChecksum strips and checks the trailing digit, returning the key or
// Invalid. It guards against typos and casual edits, not forgery.
func VerifyChecksum(s string) int64 {
	s = strings.TrimSpace(s)
	if len(s) < 2 {
		return Invalid
	}
	body, check := s[:len(s)-1], s[len(s)-1]
	if check < '0' || check > '9' {
		return Invalid
	}
	for i := 0; i < len(body); i++ {
		if body[i] < '0' || body[i] > '9' {
			return Invalid
		}
	}
	if digitSum(body)%10 != int(check-'0') {
		return Invalid
	}
	key, err := strconv.ParseInt(body, 10, 64)
	if err != nil {
		return Invalid
	}
	return key
}

func digitSum(digits string) int {
	sum := 0
	for i := 0; i < len(digits); i++ {
		sum += int(digits[i] - '0')
	}
	return sum
}

// ErrMalformed is wrapped by every Parse failure.
var ErrMalformed = errors.New("malformed reference")

// Reference is the decoded form of a composite reference. SubKey holds an
// action hash, or the issue timestamp for references minted by a visit.
type Reference struct {
	ShardID  int64
	VisitKey int64
	SubKey   int64
	// Segments is how many segments the wire form carried (2 or 3).
	Segments int
}

// New builds a full three-segment reference.
func New(shardID, visitKey, subKey int64) Reference {
	return Reference{ShardID: shardID, VisitKey: visitKey, SubKey: subKey, Segments: 3}
}

// HasSubKey reports whether the wire form carried a third segment.
func (r Reference) HasSubKey() bool {
	return r.Segments >= 3
}

func (r Reference) String() string {
	parts := []string{strconv.FormatInt(r.ShardID, 10), strconv.FormatInt(r.VisitKey, 10)}
	if r.Segments != 2 {
		parts = append(parts, strconv.FormatInt(r.SubKey, 10))
	}
	return strings.Join(parts, delimiter)
}

// Parse decodes s, requiring at least `required` segments (2 or 3). Every
// segment must be a non-negative integer and the shard id must be non-zero.
func Parse(s string, required int) (Reference, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Reference{}, fmt.Errorf("%w: empty", ErrMalformed)
	}
	parts := strings.Split(s, delimiter)
	if len(parts) < required {
		return Reference{}, fmt.Errorf("%w: %q has %d segments, need %d", ErrMalformed, s, len(parts), required)
	}
	if len(parts) > 3 {
		return Reference{}, fmt.Errorf("%w: %q has %d segments", ErrMalformed, s, len(parts))
	}

	vals := make([]int64, 3)
	for i, p := range parts {
		n, err := strconv.ParseInt(p, 10, 64)
		if err != nil || n < 0 {
			return Reference{}, fmt.Errorf("%w: segment %d of %q", ErrMalformed, i+1, s)
		}
		vals[i] = n
	}
	if vals[0] == 0 {
		return Reference{}, fmt.Errorf("%w: zero shard id", ErrMalformed)
	}
	return Reference{ShardID: vals[0], VisitKey: vals[1], SubKey: vals[2], Segments: len(parts)}, nil
}
