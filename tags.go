package fixflow

import (
	"fmt"
	"strings"
)

// ParseTags splits a comma-separated tag string, trims each entry and drops
// blanks. Order is preserved. The result is never nil.
func ParseTags(raw string) []string {
	tags := []string{}
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// NewIssueCreate builds an IssueCreate from form-style input.
func NewIssueCreate(title, content, solution, tags string, metadata map[string]any) IssueCreate {
	return IssueCreate{
		Title:    title,
		Content:  content,
		Solution: solution,
		Tags:     ParseTags(tags),
		Metadata: metadata,
	}
}

// Validate checks the fields the backend requires.
func (c IssueCreate) Validate() error {
	switch {
	case strings.TrimSpace(c.Title) == "":
		return fmt.Errorf("%w: title is required", ErrInvalidIssue)
	case strings.TrimSpace(c.Content) == "":
		return fmt.Errorf("%w: content is required", ErrInvalidIssue)
	case strings.TrimSpace(c.Solution) == "":
		return fmt.Errorf("%w: solution is required", ErrInvalidIssue)
	}
	return nil
}

// normalized fills nil collections so they encode as [] and {}.
func (c IssueCreate) normalized() IssueCreate {
	if c.Tags == nil {
		c.Tags = []string{}
	}
	if c.Metadata == nil {
		c.Metadata = map[string]any{}
	}
	return c
}
