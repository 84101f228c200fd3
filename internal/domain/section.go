package domain

import "time"

type SectionStatus string

const (
	StatusGenerated SectionStatus = "generated"
	StatusEdited    SectionStatus = "edited"
	StatusManual    SectionStatus = "manual"
)

// Valid reports whether s is a known provenance label.
func (s SectionStatus) Valid() bool {
	switch s {
	case StatusGenerated, StatusEdited, StatusManual:
		return true
	}
	return false
}

type SectionMetadata struct {
	IsComplete   bool     `json:"isComplete"`
	HasComments  bool     `json:"hasComments"`
	AIConfidence *float64 `json:"aiConfidence,omitempty"`
}

// Section is a titled node of the document. Children are held by value,
// so a section can never reach itself through its own subtree.
type Section struct {
	ID          string           `json:"id"`
	Title       string           `json:"title"`
	Level       int              `json:"level"`
	Status      SectionStatus    `json:"status"`
	IsLocked    bool             `json:"isLocked"`
	IsCollapsed bool             `json:"isCollapsed"`
	Icon        string           `json:"icon,omitempty"`
	Blocks      []Block          `json:"blocks"`
	Children    []Section        `json:"children"`
	Metadata    *SectionMetadata `json:"metadata,omitempty"`
	CreatedAt   time.Time        `json:"createdAt"`
	UpdatedAt   time.Time        `json:"updatedAt"`
}

// Clone returns a deep copy of the section and its subtree.
func (s Section) Clone() Section {
	out := s
	if s.Blocks != nil {
		out.Blocks = make([]Block, len(s.Blocks))
		for i, b := range s.Blocks {
			out.Blocks[i] = b.Clone()
		}
	}
	if s.Children != nil {
		out.Children = make([]Section, len(s.Children))
		for i, c := range s.Children {
			out.Children[i] = c.Clone()
		}
	}
	if s.Metadata != nil {
		m := *s.Metadata
		m.AIConfidence = clonePtr(s.Metadata.AIConfidence)
		out.Metadata = &m
	}
	return out
}
