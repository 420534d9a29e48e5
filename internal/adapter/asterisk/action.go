// Package asterisk talks to the telephony engine over the Asterisk Manager
// Interface and owns the escaping rules for everything sent to it.
package asterisk

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// MaxLineLength is the longest header line, CRLF included, that the manager
// interface reads in one piece. Longer lines are split by the engine and the
// tail is parsed as a header of its own.
const MaxLineLength = 1024

var (
	// ErrUnsafeValue is returned when a value could break out of its header line.
	ErrUnsafeValue = errors.New("value contains control characters")
	// ErrLineTooLong is returned when a header would not fit in MaxLineLength.
	ErrLineTooLong = errors.New("header line too long")
)

var (
	headerNamePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_-]*$`)
	dialTokenPattern  = regexp.MustCompile(`^[A-Za-z0-9_+*#.\-]{1,80}$`)
	channelPattern    = regexp.MustCompile(`^[A-Za-z0-9/@;:._+\-]{1,128}$`)
	varNamePattern    = regexp.MustCompile(`^[A-Z][A-Z0-9_]*$`)
	quotedCallerID    = regexp.MustCompile(`^"[^"<>]*"\s*<[0-9A-Za-z+*#_.\-]*>$`)
)

// Header is one "Name: Value" line of a manager action.
type Header struct {
	Name  string
	Value string
}

// Command is a manager action: an ordered list of headers starting with Action.
type Command struct {
	Headers []Header
}

// NewCommand starts an action with the given name.
func NewCommand(action string) Command {
	return Command{Headers: []Header{{Name: "Action", Value: action}}}
}

// With returns a copy of c with one more header appended.
func (c Command) With(name, value string) Command {
	headers := make([]Header, len(c.Headers), len(c.Headers)+1)
	copy(headers, c.Headers)
	return Command{Headers: append(headers, Header{Name: name, Value: value})}
}

// Action returns the action name.
func (c Command) Action() string {
	return c.Get("Action")
}

// Get returns the first value for name, or "".
func (c Command) Get(name string) string {
	for _, h := range c.Headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}

// Values returns every value for name in order.
func (c Command) Values(name string) []string {
	var out []string
	for _, h := range c.Headers {
		if strings.EqualFold(h.Name, name) {
			out = append(out, h.Value)
		}
	}
	return out
}

// Encode renders the action in wire form. Any header that would span more
// than one line is refused.
func (c Command) Encode() ([]byte, error) {
	if c.Action() == "" {
		return nil, errors.New("missing Action header")
	}
	var buf bytes.Buffer
	for _, h := range c.Headers {
		if !headerNamePattern.MatchString(h.Name) {
			return nil, fmt.Errorf("invalid header name %q", h.Name)
		}
		if err := CheckValue(h.Value); err != nil {
			return nil, fmt.Errorf("header %s: %w", h.Name, err)
		}
		if !FitsLine(h.Name, h.Value) {
			return nil, fmt.Errorf("header %s: %w", h.Name, ErrLineTooLong)
		}
		buf.WriteString(h.Name)
		buf.WriteString(": ")
		buf.WriteString(h.Value)
		buf.WriteString("\r\n")
	}
	buf.WriteString("\r\n")
	return buf.Bytes(), nil
}

// CheckValue rejects CR, LF, NUL and other control characters.
func CheckValue(v string) error {
	for _, r := range v {
		if r < 0x20 || r == 0x7f {
			return ErrUnsafeValue
		}
	}
	return nil
}

// FitsLine reports whether "name: value\r\n" fits in MaxLineLength.
func FitsLine(name, value string) bool {
	return len(name)+len(": ")+len(value)+len("\r\n") <= MaxLineLength
}

// ValidCallerID reports whether s is an acceptable CallerID header: empty,
// a bare name or number, or the `"Name" <number>` form. Quotes and angle
// brackets are only allowed in that exact shape.
func ValidCallerID(s string) bool {
	if len(s) > 80 || CheckValue(s) != nil {
		return false
	}
	if !strings.ContainsAny(s, `"<>`) {
		return true
	}
	return quotedCallerID.MatchString(s)
}

// ValidDialToken reports whether s is usable as a dialplan context or extension.
func ValidDialToken(s string) bool {
	return dialTokenPattern.MatchString(s)
}

// ValidChannel reports whether s looks like an engine channel name.
func ValidChannel(s string) bool {
	return channelPattern.MatchString(s)
}

// Variable renders a NAME=value channel variable. The value is base64
// encoded so that commas, quotes and separators reach the dialplan intact as
// a single opaque value; decode with ${BASE64_DECODE(${NAME})}.
func Variable(name, value string) string {
	if !varNamePattern.MatchString(name) {
		panic("asterisk: invalid variable name " + name)
	}
	return name + "=" + base64.StdEncoding.EncodeToString([]byte(value))
}

// PlainVariable renders NAME=value for values already restricted to a safe charset.
func PlainVariable(name, value string) string {
	if !varNamePattern.MatchString(name) {
		panic("asterisk: invalid variable name " + name)
	}
	return name + "=" + value
}

// DecodeVariable splits a NAME=base64 variable and decodes its value.
func DecodeVariable(v string) (string, string, error) {
	name, enc, ok := strings.Cut(v, "=")
	if !ok {
		return "", "", fmt.Errorf("malformed variable %q", v)
	}
	raw, err := base64.StdEncoding.DecodeString(enc)
	if err != nil {
		return "", "", err
	}
	return name, string(raw), nil
}
