package core

import (
	"errors"

	"github.com/google/uuid"
)

// ErrUnknownItemKind is returned when parsing an item kind that is not supported.
var ErrUnknownItemKind = errors.New("unknown item kind")

// ItemKind tags the type of media an Item represents.
type ItemKind string

const (
	ItemKindBook      ItemKind = "book"
	ItemKindDVD       ItemKind = "dvd"
	ItemKindCD        ItemKind = "cd"
	ItemKindBoardGame ItemKind = "board_game"
)

// ItemKinds lists all supported kinds in display order.
func ItemKinds() []ItemKind {
	return []ItemKind{ItemKindBook, ItemKindDVD, ItemKindCD, ItemKindBoardGame}
}

// ParseItemKind validates a raw kind string.
func ParseItemKind(raw string) (ItemKind, error) {
	for _, kind := range ItemKinds() {
		if string(kind) == raw {
			return kind, nil
		}
	}

	return "", errors.Join(ErrUnknownItemKind, errors.New(raw))
}

// Borrowable reports whether items of this kind may leave the library.
// Board games are consultation-only.
func (k ItemKind) Borrowable() bool {
	return k != ItemKindBoardGame
}

// Item is a single media copy in the catalog.
type Item struct {
	ID         uuid.UUID
	Name       string
	Kind       ItemKind
	Available  bool
	Borrowable bool
}

// NewItem creates an available Item whose borrowable capability follows its kind.
func NewItem(id uuid.UUID, name string, kind ItemKind) Item {
	return Item{
		ID:         id,
		Name:       name,
		Kind:       kind,
		Available:  true,
		Borrowable: kind.Borrowable(),
	}
}
