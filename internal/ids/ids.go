// Package ids generates identifiers for conversations and their content.
package ids

import (
	"fmt"

	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

const (
	alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	length   = 16
)

// Prefixes of the generated ids.
const (
	MessagePrefix = "message_"
	StepPrefix    = "step_"
	ActionPrefix  = "action_"
)

// Conversation returns a new conversation id.
func Conversation() string {
	return uuid.NewString()
}

// New returns prefix followed by 16 random alphanumerics.
func New(prefix string) (string, error) {
	id, err := gonanoid.Generate(alphabet, length)
	if err != nil {
		return "", fmt.Errorf("generating %sid: %w", prefix, err)
	}
	return prefix + id, nil
}
