package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultActivityColor is used for new activities when the caller does not pick one.
const DefaultActivityColor = "#5e72e4"

const localIDPrefix = "local-"

// ID identifies activities and calendar events. The backend may send it as a
// JSON number or a string; it is always a string on the client side.
type ID string

func (id ID) String() string { return string(id) }

// UnmarshalJSON accepts both `"3"` and `3`.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}
	*id = ID(n.String())
	return nil
}

// NewLocalID returns a synthetic, timestamp-based id used for records that
// have not been confirmed by the backend yet.
func NewLocalID() ID {
	return ID(fmt.Sprintf("%s%d-%s", localIDPrefix, time.Now().UnixMilli(), uuid.NewString()[:8]))
}

// IsLocal reports whether the id was generated by NewLocalID.
func (id ID) IsLocal() bool {
	return strings.HasPrefix(string(id), localIDPrefix)
}

// Tag is a named, coloured label attachable to activities.
type Tag struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

// TagList decodes either an array of tag objects or an array of tag ids.
// Bare ids decode into tags with only the ID set.
type TagList []Tag

func (l *TagList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*l = nil
		return nil
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("tags must be an array: %w", err)
	}
	out := make(TagList, 0, len(raw))
	for _, item := range raw {
		item = bytes.TrimSpace(item)
		if len(item) > 0 && item[0] == '{' {
			var t Tag
			if err := json.Unmarshal(item, &t); err != nil {
				return err
			}
			out = append(out, t)
			continue
		}
		id, err := parseTagID(item)
		if err != nil {
			return err
		}
		out = append(out, Tag{ID: id})
	}
	*l = out
	return nil
}

func parseTagID(raw []byte) (int, error) {
	s := strings.Trim(string(raw), `"`)
	id, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid tag id %s", string(raw))
	}
	return id, nil
}

// IDs returns the tag ids in order.
func (l TagList) IDs() []int {
	ids := make([]int, 0, len(l))
	for _, t := range l {
		ids = append(ids, t.ID)
	}
	return ids
}

// Without returns a copy of the list with every tag matching id removed.
func (l TagList) Without(id int) TagList {
	if len(l) == 0 {
		return l
	}
	out := make(TagList, 0, len(l))
	for _, t := range l {
		if t.ID != id {
			out = append(out, t)
		}
	}
	return out
}

// Has reports whether the list references the tag id.
func (l TagList) Has(id int) bool {
	for _, t := range l {
		if t.ID == id {
			return true
		}
	}
	return false
}

// Activity is a reusable task template shown in the draggable palette.
type Activity struct {
	ID          ID      `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`
	Color       string  `json:"color"`
	Tags        TagList `json:"tags"`
}

// ScheduledEvent is a concrete calendar occurrence of an activity. Title,
// Color and Tags are a snapshot taken when the event was scheduled; later
// edits to the activity are not propagated.
type ScheduledEvent struct {
	ID         ID        `json:"id"`
	ActivityID ID        `json:"activity_id"`
	Title      string    `json:"title"`
	Color      string    `json:"color,omitempty"`
	Tags       TagList   `json:"tags,omitempty"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	AllDay     bool      `json:"all_day"`
}

// Duration is End - Start.
func (e ScheduledEvent) Duration() time.Duration {
	return e.End.Sub(e.Start)
}

// Clone returns a deep copy of the event.
func (e ScheduledEvent) Clone() ScheduledEvent {
	c := e
	if e.Tags != nil {
		c.Tags = append(TagList(nil), e.Tags...)
	}
	return c
}

// Clone returns a deep copy of the activity.
func (a Activity) Clone() Activity {
	c := a
	if a.Tags != nil {
		c.Tags = append(TagList(nil), a.Tags...)
	}
	return c
}

// TagInput is the payload for creating or updating a tag.
type TagInput struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

// ActivityInput is the payload for creating or updating an activity.
// Tags may be given as ids, as Tag objects, or both; they are merged into a
// single de-duplicated id list before persisting.
type ActivityInput struct {
	Title       string
	Description string
	Color       string
	TagIDs      []int
	Tags        []Tag
}

// Normalize trims text fields.
func (in ActivityInput) Normalize() ActivityInput {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.Color = strings.TrimSpace(in.Color)
	return in
}

// NormalizedTagIDs merges TagIDs and Tags into ids, keeping first-seen order.
func (in ActivityInput) NormalizedTagIDs() []int {
	seen := make(map[int]struct{}, len(in.TagIDs)+len(in.Tags))
	out := make([]int, 0, len(in.TagIDs)+len(in.Tags))
	add := func(id int) {
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	for _, id := range in.TagIDs {
		add(id)
	}
	for _, t := range in.Tags {
		add(t.ID)
	}
	return out
}

// ActivityPayload is the wire body sent to the backend for activity writes.
type ActivityPayload struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Color       string `json:"color"`
	Tags        []int  `json:"tags"`
}

// Payload converts a normalized input into its wire form.
func (in ActivityInput) Payload() ActivityPayload {
	n := in.Normalize()
	return ActivityPayload{
		Title:       n.Title,
		Description: n.Description,
		Color:       n.Color,
		Tags:        n.NormalizedTagIDs(),
	}
}
