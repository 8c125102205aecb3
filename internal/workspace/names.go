package workspace

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxNameLength is the longest accepted workspace name, in runes.
const MaxNameLength = 64

var reservedNames = map[string]struct{}{
	"next":    {},
	"prev":    {},
	"focused": {},
}

var ErrInvalidName = errors.New("invalid workspace name")

// ParseName validates a user supplied workspace name and returns it
// trimmed.
func ParseName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if name == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidName)
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return "", fmt.Errorf("%w: longer than %d characters", ErrInvalidName, MaxNameLength)
	}
	for _, r := range name {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return "", fmt.Errorf("%w: %q contains whitespace or control characters", ErrInvalidName, name)
		}
	}
	if _, ok := reservedNames[strings.ToLower(name)]; ok {
		return "", fmt.Errorf("%w: %q is reserved", ErrInvalidName, name)
	}
	return name, nil
}

type segment struct {
	text    string
	numeric bool
}

func splitSegments(name string) []segment {
	var out []segment
	start := 0
	for i, r := range name {
		if i == 0 {
			continue
		}
		prev, _ := utf8.DecodeLastRuneInString(name[:i])
		if unicode.IsDigit(prev) != unicode.IsDigit(r) {
			out = append(out, segment{text: name[start:i], numeric: unicode.IsDigit(prev)})
			start = i
		}
	}
	if start < len(name) {
		first, _ := utf8.DecodeRuneInString(name[start:])
		out = append(out, segment{text: name[start:], numeric: unicode.IsDigit(first)})
	}
	return out
}

// CompareNames orders names by logical segments: runs of digits compare
// numerically and sort before text, text compares case-insensitively.
// Equal segment sequences fall back to byte order.
func CompareNames(a, b string) int {
	as, bs := splitSegments(a), splitSegments(b)
	for i := 0; i < len(as) && i < len(bs); i++ {
		if c := compareSegment(as[i], bs[i]); c != 0 {
			return c
		}
	}
	switch {
	case len(as) < len(bs):
		return -1
	case len(as) > len(bs):
		return 1
	}
	return strings.Compare(a, b)
}

func compareSegment(a, b segment) int {
	switch {
	case a.numeric && !b.numeric:
		return -1
	case !a.numeric && b.numeric:
		return 1
	case a.numeric:
		return compareDigits(a.text, b.text)
	}
	return strings.Compare(strings.ToLower(a.text), strings.ToLower(b.text))
}

// compareDigits compares digit strings of any length numerically.
func compareDigits(a, b string) int {
	a = strings.TrimLeft(a, "0")
	b = strings.TrimLeft(b, "0")
	if la, lb := utf8.RuneCountInString(a), utf8.RuneCountInString(b); la != lb {
		if la < lb {
			return -1
		}
		return 1
	}
	if x, errA := strconv.ParseUint(a, 10, 64); errA == nil {
		if y, errB := strconv.ParseUint(b, 10, 64); errB == nil {
			switch {
			case x < y:
				return -1
			case x > y:
				return 1
			}
			return 0
		}
	}
	return strings.Compare(a, b)
}
