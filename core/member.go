package core

import (
	"github.com/google/uuid"
)

// Member is a registered borrower. Only administration changes a Member.
type Member struct {
	ID      uuid.UUID
	Name    string
	Email   string
	Blocked bool
	Active  bool
}

// NewMember creates an active, unblocked Member.
func NewMember(id uuid.UUID, name string, email string) Member {
	return Member{
		ID:     id,
		Name:   name,
		Email:  email,
		Active: true,
	}
}
