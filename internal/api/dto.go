package api

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/tidenotes/internal/models"
	"github.com/starford/tidenotes/internal/noteservice"
	"github.com/starford/tidenotes/internal/session"
)

const (
	maxTitleLen = 500
	maxTagLen   = 64
	maxTags     = 50
	maxBodySize = 10 << 20
)

// NoteRequest is the body of POST /notes and PATCH /notes/{id}.
// Absent fields are left alone.
type NoteRequest struct {
	Title   *string   `json:"title,omitempty" example:"Shopping"`
	Content *string   `json:"content,omitempty" example:"milk, eggs"`
	Tags    *[]string `json:"tags,omitempty" example:"home,errands"`
}

// Validate checks field limits.
func (r NoteRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title, validation.RuneLength(0, maxTitleLen)),
		validation.Field(&r.Tags, validation.By(checkTags)),
	)
}

func checkTags(v interface{}) error {
	tags, _ := v.(*[]string)
	if tags == nil {
		return nil
	}
	return validation.Validate(*tags,
		validation.Length(0, maxTags),
		validation.Each(validation.RuneLength(0, maxTagLen)),
	)
}

func (r NoteRequest) patch() noteservice.Patch {
	return noteservice.Patch{Title: r.Title, Content: r.Content, Tags: r.Tags}
}

// SelectionRequest is the body of PUT /session/selection.
type SelectionRequest struct {
	ID string `json:"id" example:"3f2a..."`
}

// FiltersRequest is the body of PUT /session/filters.
type FiltersRequest struct {
	Query string `json:"q" example:"plan"`
	Tag   string `json:"tag" example:"work"`
}

// Validate checks field limits.
func (r FiltersRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Query, validation.RuneLength(0, maxTitleLen)),
		validation.Field(&r.Tag, validation.RuneLength(0, maxTagLen)),
	)
}

// NoteListResponse wraps a filtered listing.
type NoteListResponse struct {
	Notes []session.Item `json:"notes" validate:"required"`
	Total int            `json:"total" example:"42" validate:"required"`
}

// TagsResponse lists distinct tags in first-seen order.
type TagsResponse struct {
	Tags []string `json:"tags" validate:"required"`
}

// ThemeResponse carries the current theme.
type ThemeResponse struct {
	Theme models.Theme `json:"theme" example:"dark" validate:"required"`
}
