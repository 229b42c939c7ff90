package artwork

import (
	"strconv"
	"strings"
)

// UserCommand is a user-triggerable action a provider offers for an artwork.
type UserCommand struct {
	ID    int    `json:"id" cbor:"id"`
	Title string `json:"title,omitempty" cbor:"title,omitempty"`
}

// Serialize returns the legacy "id:title" form (just "id" without a title).
func (c UserCommand) Serialize() string {
	if c.Title == "" {
		return strconv.Itoa(c.ID)
	}
	return strconv.Itoa(c.ID) + ":" + c.Title
}

// ParseUserCommand parses the legacy "id:title" form. An unparsable id
// yields -1, matching what older hosts expect.
func ParseUserCommand(s string) UserCommand {
	if s == "" {
		return UserCommand{ID: -1}
	}
	idPart, title, _ := strings.Cut(s, ":")
	id, err := strconv.Atoi(idPart)
	if err != nil {
		id = -1
	}
	return UserCommand{ID: id, Title: title}
}
