package content

import (
	"fmt"
	"time"
)

// ItemType discriminates the two content variants. Every item carries
// exactly one variant and is only ever accessed through it.
type ItemType string

const (
	TypePost    ItemType = "post"
	TypeProject ItemType = "project"
)

// ProjectStatus is the lifecycle state of a portfolio project
type ProjectStatus string

const (
	StatusCompleted  ProjectStatus = "completed"
	StatusInProgress ProjectStatus = "in-progress"
	StatusPlanned    ProjectStatus = "planned"
)

// ValidStatus reports whether s is a known project status
func ValidStatus(s ProjectStatus) bool {
	switch s {
	case StatusCompleted, StatusInProgress, StatusPlanned:
		return true
	}
	return false
}

// Item is a single piece of site content: a blog post or a portfolio
// project. The Type field is the variant tag; the matching variant
// pointer is set and the other is nil.
type Item struct {
	ID       string   `json:"id"`
	Type     ItemType `json:"type"`
	Title    string   `json:"title"`
	Tags     []string `json:"tags,omitempty"`
	Category string   `json:"category,omitempty"`

	Post    *PostFields    `json:"post,omitempty"`
	Project *ProjectFields `json:"project,omitempty"`
}

// PostFields holds the post-variant data
type PostFields struct {
	Slug      string `json:"slug"`
	Content   string `json:"content,omitempty"`
	Date      string `json:"date,omitempty"` // ISO-8601, optional
	Excerpt   string `json:"excerpt,omitempty"`
	ReadTime  int    `json:"read_time,omitempty"`
	Published *bool  `json:"published,omitempty"` // nil means true
}

// IsPublished reports whether the post is published (default true)
func (p *PostFields) IsPublished() bool {
	return p.Published == nil || *p.Published
}

// ProjectFields holds the project-variant data
type ProjectFields struct {
	Description string        `json:"description,omitempty"`
	Status      ProjectStatus `json:"status"`
	Year        int           `json:"year,omitempty"`
	Demo        string        `json:"demo,omitempty"`
	GitHub      string        `json:"github,omitempty"`
}

// Validate checks the exactly-one-variant invariant and basic field
// requirements
func (it *Item) Validate() error {
	if it.ID == "" {
		return fmt.Errorf("item has no id")
	}
	if it.Title == "" {
		return fmt.Errorf("item %s has no title", it.ID)
	}

	switch it.Type {
	case TypePost:
		if it.Post == nil {
			return fmt.Errorf("item %s is typed post but has no post fields", it.ID)
		}
		if it.Project != nil {
			return fmt.Errorf("item %s carries both variants", it.ID)
		}
		if it.Post.Slug == "" {
			return fmt.Errorf("post %s has no slug", it.ID)
		}
	case TypeProject:
		if it.Project == nil {
			return fmt.Errorf("item %s is typed project but has no project fields", it.ID)
		}
		if it.Post != nil {
			return fmt.Errorf("item %s carries both variants", it.ID)
		}
		if it.Project.Status != "" && !ValidStatus(it.Project.Status) {
			return fmt.Errorf("project %s has unknown status %q", it.ID, it.Project.Status)
		}
	default:
		return fmt.Errorf("item %s has unknown type %q", it.ID, it.Type)
	}

	return nil
}

// EffectiveDate returns the date used for ordering and date filtering:
// the post's date, or January 1 of the project's year. The zero time
// means the item is undated.
func (it *Item) EffectiveDate() time.Time {
	switch it.Type {
	case TypePost:
		if it.Post == nil || it.Post.Date == "" {
			return time.Time{}
		}
		t, err := ParseDate(it.Post.Date)
		if err != nil {
			return time.Time{}
		}
		return t
	case TypeProject:
		if it.Project == nil || it.Project.Year == 0 {
			return time.Time{}
		}
		return time.Date(it.Project.Year, time.January, 1, 0, 0, 0, 0, time.UTC)
	}
	return time.Time{}
}

// Body returns the free-text body of the item: post content or project
// description
func (it *Item) Body() string {
	switch it.Type {
	case TypePost:
		if it.Post != nil {
			return it.Post.Content
		}
	case TypeProject:
		if it.Project != nil {
			return it.Project.Description
		}
	}
	return ""
}

// excerptLen caps excerpts derived from the body when a post does not
// carry an explicit one.
const excerptLen = 200

// Excerpt returns the post excerpt (derived from the content when the
// post has none), or the project description for project items
func (it *Item) Excerpt() string {
	switch it.Type {
	case TypePost:
		if it.Post == nil {
			return ""
		}
		if it.Post.Excerpt != "" {
			return it.Post.Excerpt
		}
		if it.Post.Content != "" {
			return MakeExcerpt(it.Post.Content, excerptLen)
		}
	case TypeProject:
		if it.Project != nil {
			return it.Project.Description
		}
	}
	return ""
}

// ParseDate parses an ISO-8601 date, accepting both date-only and full
// RFC3339 timestamps
func ParseDate(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("unparseable date %q: %w", s, err)
	}
	return t, nil
}
