// Package partialjson recovers a best-effort JSON value from a truncated
// document, such as the text accumulated so far from a streaming model
// response.
package partialjson

import (
	"encoding/json"
	"strings"
)

// Reconstruct returns the decoded value of fragment, closing any string,
// object or array the fragment left open. It returns nil when the fragment
// is empty or cannot be repaired.
//
// Complete input takes the fast path and decodes exactly as json.Unmarshal
// would. When the fragment contains a fully closed value followed by more
// text, only the last fully closed value prefix is kept.
func Reconstruct(fragment string) any {
	if fragment == "" {
		return nil
	}

	var value any
	if err := json.Unmarshal([]byte(fragment), &value); err == nil {
		return value
	}

	repaired, ok := repair(fragment)
	if !ok {
		return nil
	}
	if err := json.Unmarshal([]byte(repaired), &value); err != nil {
		return nil
	}
	return value
}

// ReconstructInto decodes the reconstructed fragment into v. It reports
// false when no value could be recovered or when the recovered value does
// not fit v.
func ReconstructInto(fragment string, v any) bool {
	value := Reconstruct(fragment)
	if value == nil {
		return false
	}
	data, err := json.Marshal(value)
	if err != nil {
		return false
	}
	return json.Unmarshal(data, v) == nil
}

// repair rewrites fragment into syntactically closed JSON text.
func repair(fragment string) (string, bool) {
	var out strings.Builder
	out.Grow(len(fragment) + 8)

	var (
		stack    []byte
		inString bool
		escaped  bool
		// validEnd is the output length at which the bracket stack last
		// became empty. Offsets refer to out, not fragment, because
		// newlines are expanded and stray closers are skipped.
		validEnd int
	)

	for i := 0; i < len(fragment); i++ {
		c := fragment[i]

		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			case c == '\n':
				out.WriteString(`\n`)
				continue
			}
			out.WriteByte(c)
			continue
		}

		switch c {
		case '"':
			inString = true
		case '{':
			stack = append(stack, '}')
		case '[':
			stack = append(stack, ']')
		case '}', ']':
			if len(stack) == 0 {
				// trailing noise
				continue
			}
			if stack[len(stack)-1] != c {
				return "", false
			}
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				out.WriteByte(c)
				validEnd = out.Len()
				continue
			}
		}
		out.WriteByte(c)
	}

	if validEnd > 0 {
		return out.String()[:validEnd], true
	}

	if inString {
		out.WriteByte('"')
	}
	for i := len(stack) - 1; i >= 0; i-- {
		out.WriteByte(stack[i])
	}
	return out.String(), true
}
