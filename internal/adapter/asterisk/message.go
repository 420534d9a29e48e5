package asterisk

import (
	"bufio"
	"errors"
	"strings"
)

const endCommand = "--END COMMAND--"

// message is one manager packet: headers plus, for "Response: Follows",
// the raw command output.
type message struct {
	headers []Header
	body    []string
}

func (m *message) get(name string) string {
	for _, h := range m.headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}

func (m *message) success() bool {
	switch strings.ToLower(m.get("Response")) {
	case "success", "follows", "goodbye":
		return true
	}
	return false
}

// output joins Output headers (newer engines) or the Follows body (older).
func (m *message) output() string {
	var lines []string
	for _, h := range m.headers {
		if strings.EqualFold(h.Name, "Output") {
			lines = append(lines, h.Value)
		}
	}
	lines = append(lines, m.body...)
	if len(lines) == 0 {
		return m.get("Message")
	}
	return strings.Join(lines, "\n")
}

// readMessage reads lines up to the blank line that ends a packet.
func readMessage(r *bufio.Reader) (*message, error) {
	msg := &message{}
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			if len(msg.headers) > 0 && line == "" {
				return msg, nil
			}
			return nil, err
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			if len(msg.headers) == 0 && len(msg.body) == 0 {
				continue
			}
			return msg, nil
		}
		if strings.HasSuffix(line, endCommand) {
			if rest := strings.TrimSuffix(line, endCommand); rest != "" {
				msg.body = append(msg.body, strings.Split(strings.TrimRight(rest, "\n"), "\n")...)
			}
			continue
		}
		name, value, ok := strings.Cut(line, ":")
		if !ok || strings.ContainsAny(name, " \t") || strings.EqualFold(msg.get("Response"), "follows") && !knownHeader(name) {
			if len(msg.headers) == 0 {
				return nil, errors.New("malformed manager packet")
			}
			msg.body = append(msg.body, line)
			continue
		}
		msg.headers = append(msg.headers, Header{Name: name, Value: strings.TrimSpace(value)})
	}
}

func knownHeader(name string) bool {
	switch strings.ToLower(name) {
	case "actionid", "message", "privilege", "output":
		return true
	}
	return false
}
