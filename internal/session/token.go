package session

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
)

// TokenLength is the number of characters kept from the generated UUID.
const TokenLength = 8

// Mode values understood by the relay page.
const (
	ModeReceiver = "pc"
)

// Token identifies one sender/receiver pairing for the lifetime of the process.
type Token string

func (t Token) String() string {
	return string(t)
}

// URLs holds the two connection links derived from a token.
type URLs struct {
	// Sender is opened on the phone; it streams the camera and pose data.
	Sender string

	// Receiver is loaded by the receiver page and displays the stream.
	Receiver string
}

// Generate returns a fresh token taken from a random UUID.
func Generate() Token {
	return Token(strings.ReplaceAll(uuid.NewString(), "-", "")[:TokenLength])
}

// BuildURLs derives the sender and receiver links for token under base.
func BuildURLs(base string, token Token) URLs {
	base = strings.TrimRight(base, "/")
	room := url.QueryEscape(token.String())

	sender := fmt.Sprintf("%s/?room=%s", base, room)
	return URLs{
		Sender:   sender,
		Receiver: fmt.Sprintf("%s&mode=%s", sender, ModeReceiver),
	}
}

// ParseToken accepts either a bare token or a link carrying a room query
// parameter and returns the token.
func ParseToken(input string) (Token, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", fmt.Errorf("room token cannot be empty")
	}

	if !strings.Contains(input, "://") && !strings.Contains(input, "?") {
		return Token(input), nil
	}

	u, err := url.Parse(input)
	if err != nil {
		return "", fmt.Errorf("parse link: %w", err)
	}

	room := u.Query().Get("room")
	if room == "" {
		return "", fmt.Errorf("could not extract room token from link: %s", input)
	}

	return Token(room), nil
}
