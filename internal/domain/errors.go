package domain

import (
	"errors"
	"fmt"
)

// Heading depth bounds shared by sections and heading blocks.
const (
	MinLevel = 1
	MaxLevel = 6
)

var (
	ErrNotFound     = errors.New("not found")
	ErrLocked       = errors.New("section is locked")
	ErrTypeMismatch = errors.New("type mismatch")
	ErrBounds       = errors.New("out of bounds")
)

// NotFoundError reports a section or block id that does not exist in the tree.
type NotFoundError struct {
	Kind string // "section" or "block"
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// LockedError reports a mutation attempted on a locked section.
type LockedError struct {
	SectionID string
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("section %q is locked", e.SectionID)
}

func (e *LockedError) Is(target error) bool { return target == ErrLocked }

// TypeMismatchError reports data that does not fit a block's discriminant.
type TypeMismatchError struct {
	BlockType BlockType
	Field     string
	Reason    string
}

func (e *TypeMismatchError) Error() string {
	subject := "section"
	if e.BlockType != "" {
		subject = string(e.BlockType) + " block"
	}
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", subject, e.Reason)
	}
	return fmt.Sprintf("%s field %q: %s", subject, e.Field, e.Reason)
}

func (e *TypeMismatchError) Is(target error) bool { return target == ErrTypeMismatch }

// BoundsError reports a numeric value outside its legal range.
type BoundsError struct {
	What  string
	Value int
	Min   int
	Max   int
}

func (e *BoundsError) Error() string {
	return fmt.Sprintf("%s %d outside [%d, %d]", e.What, e.Value, e.Min, e.Max)
}

func (e *BoundsError) Is(target error) bool { return target == ErrBounds }
