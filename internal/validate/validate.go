// Package validate implements the input validators guarding the HTTP
// boundary: username/email format checks and audio upload sanity checks,
// ported from the daemon's original security validator.
package validate

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_.-]+$`)
	emailPattern    = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

	prohibitedUsernames = map[string]bool{
		"admin": true, "root": true, "test": true, "user": true, "guest": true,
	}
)

const (
	minUsernameLen = 3
	maxUsernameLen = 50
	maxEmailLen    = 100
	minFileBytes   = 1000
)

// Result collects every validation failure found, rather than stopping at
// the first.
type Result struct {
	Errors []string
}

func (r Result) Valid() bool { return len(r.Errors) == 0 }

func (r *Result) add(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// Username checks length, character set, and a reserved-word denylist.
func Username(username string) Result {
	var r Result

	trimmed := strings.TrimSpace(username)
	if trimmed == "" {
		r.add("username cannot be empty")
		return r
	}

	if len(trimmed) < minUsernameLen || len(trimmed) > maxUsernameLen {
		r.add("username must be between %d and %d characters", minUsernameLen, maxUsernameLen)
	}
	if !usernamePattern.MatchString(trimmed) {
		r.add("username can only contain letters, numbers, dots, hyphens, and underscores")
	}
	if prohibitedUsernames[strings.ToLower(trimmed)] {
		r.add("username not allowed")
	}

	return r
}

// Email checks format and length.
func Email(email string) Result {
	var r Result

	trimmed := strings.ToLower(strings.TrimSpace(email))
	if trimmed == "" {
		r.add("email cannot be empty")
		return r
	}

	if !emailPattern.MatchString(trimmed) {
		r.add("invalid email format")
	}
	if len(trimmed) > maxEmailLen {
		r.add("email address too long")
	}

	return r
}

// AudioUpload checks file size and extension against maxFileBytes and
// allowedFormats. The actual container signature check happens in the
// audio decoder; this is a pre-decode sanity gate only.
func AudioUpload(data []byte, filename string, maxFileBytes int, allowedFormats []string) Result {
	var r Result

	if len(data) > maxFileBytes {
		r.add("file size exceeds maximum limit of %d bytes", maxFileBytes)
	}
	if len(data) < minFileBytes {
		r.add("audio file appears to be too small or corrupted")
	}

	ext := extension(filename)
	if !containsFold(allowedFormats, ext) {
		r.add("file format %q not supported, allowed formats: %v", ext, allowedFormats)
	}

	return r
}

func extension(filename string) string {
	idx := strings.LastIndex(filename, ".")
	if idx < 0 {
		return ""
	}
	return strings.ToLower(filename[idx+1:])
}

func containsFold(xs []string, v string) bool {
	for _, x := range xs {
		if strings.EqualFold(x, v) {
			return true
		}
	}
	return false
}
