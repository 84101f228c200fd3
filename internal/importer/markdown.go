// Package importer turns external documents into report content trees.
package importer

import (
	"fmt"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"

	"reports/internal/content"
	"reports/internal/domain"
)

// Options tunes a markdown import.
type Options struct {
	// Status given to every imported section, manual when empty.
	Status domain.SectionStatus
	// IntroTitle names the section that holds content found before the
	// first heading.
	IntroTitle string
}

// Result is an imported tree and the document title, taken from the
// first level-one heading.
type Result struct {
	Title string
	Tree  domain.ContentTree
}

type stackEntry struct {
	section *domain.Section
	level   int
}

// Markdown parses src with GitHub flavoured markdown. Headings become
// sections nested by level; the blocks between headings become the
// section's blocks.
func Markdown(src []byte, opts Options) (Result, error) {
	status := opts.Status
	if status == "" {
		status = domain.StatusManual
	}
	if !status.Valid() {
		return Result{}, &domain.TypeMismatchError{Field: "status", Reason: "unknown section status " + string(status)}
	}
	intro := opts.IntroTitle
	if intro == "" {
		intro = "Introduction"
	}

	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	doc := md.Parser().Parse(text.NewReader(src))

	var (
		res   Result
		roots []*domain.Section
		stack []stackEntry
	)
	newSection := func(title string, level int) *domain.Section {
		now := content.Now()
		return &domain.Section{
			ID:        content.NewID(),
			Title:     title,
			Level:     level,
			Status:    status,
			CreatedAt: now,
			UpdatedAt: now,
		}
	}
	current := func() *domain.Section {
		if len(stack) == 0 {
			s := newSection(intro, domain.MinLevel)
			roots = append(roots, s)
			stack = append(stack, stackEntry{section: s, level: 0})
		}
		return stack[len(stack)-1].section
	}

	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		if h, ok := n.(*ast.Heading); ok {
			title := inlineText(h, src)
			if res.Title == "" && h.Level == 1 {
				res.Title = title
			}
			level := min(max(h.Level, domain.MinLevel), domain.MaxLevel)
			// Pop until the top of the stack is a shallower heading.
			for len(stack) > 0 && stack[len(stack)-1].level >= level {
				stack = stack[:len(stack)-1]
			}
			s := newSection(title, level)
			if len(stack) == 0 {
				roots = append(roots, s)
			} else {
				parent := stack[len(stack)-1].section
				parent.Children = append(parent.Children, *s)
				s = &parent.Children[len(parent.Children)-1]
			}
			stack = append(stack, stackEntry{section: s, level: level})
			continue
		}

		payloads, err := convertBlock(n, src)
		if err != nil {
			return Result{}, err
		}
		if len(payloads) == 0 {
			continue
		}
		sec := current()
		for _, p := range payloads {
			b, err := content.NewBlock(p.BlockType(), domain.BlockOptions{})
			if err != nil {
				return Result{}, err
			}
			b.Payload = p
			if err := b.Validate(); err != nil {
				return Result{}, fmt.Errorf("import %s block: %w", p.BlockType(), err)
			}
			sec.Blocks = append(sec.Blocks, b)
		}
	}

	for _, s := range roots {
		res.Tree.Sections = append(res.Tree.Sections, *s)
	}
	if err := content.Validate(res.Tree); err != nil {
		return Result{}, fmt.Errorf("import markdown: %w", err)
	}
	return res, nil
}
