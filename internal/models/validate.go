package models

import (
	"regexp"
	"strings"

	apierrors "github.com/kutbudev/agenda-cli/internal/errors"
)

var hexColorPattern = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// IsHexColor reports whether s is a #rgb or #rrggbb colour.
func IsHexColor(s string) bool {
	return hexColorPattern.MatchString(s)
}

// Validate checks a tag payload. The name is trimmed before checking.
func (in TagInput) Validate() error {
	ve := apierrors.NewValidationError("invalid tag")
	if strings.TrimSpace(in.Name) == "" {
		ve.Add("name", "name is required")
	}
	if in.Color != "" && !IsHexColor(in.Color) {
		ve.Add("color", "color must be a hex value like #5e72e4")
	}
	if ve.HasErrors() {
		return ve
	}
	return nil
}

// Validate checks a normalized activity payload.
func (in ActivityInput) Validate() error {
	n := in.Normalize()
	ve := apierrors.NewValidationError("invalid activity")
	if n.Title == "" {
		ve.Add("title", "title is required")
	}
	switch {
	case n.Color == "":
		ve.Add("color", "color is required")
	case !IsHexColor(n.Color):
		ve.Add("color", "color must be a hex value like #5e72e4")
	}
	if ve.HasErrors() {
		return ve
	}
	return nil
}

// Validate checks a tag record received from a backend.
func (t Tag) Validate() error {
	ve := apierrors.NewValidationError("invalid tag")
	if strings.TrimSpace(t.Name) == "" {
		ve.Add("name", "name is required")
	}
	if t.Color != "" && !IsHexColor(t.Color) {
		ve.Add("color", "color must be a hex value")
	}
	if ve.HasErrors() {
		return ve
	}
	return nil
}

// Validate checks an activity record received from a backend.
func (a Activity) Validate() error {
	ve := apierrors.NewValidationError("invalid activity")
	if a.ID == "" {
		ve.Add("id", "id is required")
	}
	if strings.TrimSpace(a.Title) == "" {
		ve.Add("title", "title is required")
	}
	if a.Color != "" && !IsHexColor(a.Color) {
		ve.Add("color", "color must be a hex value")
	}
	if ve.HasErrors() {
		return ve
	}
	return nil
}

// Validate enforces End > Start. It is checked before any local mutation.
func (e ScheduledEvent) Validate() error {
	ve := apierrors.NewValidationError("invalid calendar event")
	if e.Start.IsZero() {
		ve.Add("start", "start is required")
	}
	if e.End.IsZero() {
		ve.Add("end", "end is required")
	}
	if !e.Start.IsZero() && !e.End.IsZero() && !e.End.After(e.Start) {
		ve.Add("end", "end must be after start")
	}
	if ve.HasErrors() {
		return ve
	}
	return nil
}
