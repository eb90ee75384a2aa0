package models

import (
	"encoding/json"
	"reflect"
	"testing"
	"time"

	apierrors "github.com/kutbudev/agenda-cli/internal/errors"
)

func TestIDUnmarshal(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want ID
	}{
		{"string", `"event-1"`, "event-1"},
		{"number", `3`, "3"},
		{"null", `null`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var id ID
			if err := json.Unmarshal([]byte(tt.in), &id); err != nil {
				t.Fatalf("Unmarshal() error = %v", err)
			}
			if id != tt.want {
				t.Errorf("Unmarshal(%s) = %q, want %q", tt.in, id, tt.want)
			}
		})
	}
}

func TestTagListAcceptsObjectsAndIDs(t *testing.T) {
	var a Activity
	body := `{"id": 7, "title": "Leer", "color": "#66cc66", "tags": [{"id": 1, "name": "work", "color": "#ff4d4d"}, 2, "3"]}`
	if err := json.Unmarshal([]byte(body), &a); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if a.ID != "7" {
		t.Errorf("ID = %q, want 7", a.ID)
	}
	if got := a.Tags.IDs(); !reflect.DeepEqual(got, []int{1, 2, 3}) {
		t.Errorf("Tags.IDs() = %v, want [1 2 3]", got)
	}
	if a.Tags[0].Name != "work" {
		t.Errorf("Tags[0].Name = %q, want work", a.Tags[0].Name)
	}
}

func TestTagListWithout(t *testing.T) {
	l := TagList{{ID: 1}, {ID: 2}, {ID: 1}}
	got := l.Without(1)
	if len(got) != 1 || got[0].ID != 2 {
		t.Errorf("Without(1) = %v", got)
	}
	if len(l) != 3 {
		t.Error("Without() mutated the receiver")
	}
}

func TestActivityInputNormalizedTagIDs(t *testing.T) {
	in := ActivityInput{
		TagIDs: []int{3, 1, 3},
		Tags:   []Tag{{ID: 1, Name: "a"}, {ID: 9, Name: "b"}},
	}
	if got := in.NormalizedTagIDs(); !reflect.DeepEqual(got, []int{3, 1, 9}) {
		t.Errorf("NormalizedTagIDs() = %v, want [3 1 9]", got)
	}
}

func TestActivityInputValidate(t *testing.T) {
	tests := []struct {
		name       string
		in         ActivityInput
		wantFields []string
	}{
		{"valid", ActivityInput{Title: "Enviar informe", Color: "#ff4d4d"}, nil},
		{"blank title", ActivityInput{Title: "   ", Color: "#ff4d4d"}, []string{"title"}},
		{"missing both", ActivityInput{}, []string{"title", "color"}},
		{"bad colour", ActivityInput{Title: "x", Color: "red"}, []string{"color"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.in.Validate()
			if tt.wantFields == nil {
				if err != nil {
					t.Fatalf("Validate() error = %v, want nil", err)
				}
				return
			}
			ve, ok := err.(*apierrors.ValidationError)
			if !ok {
				t.Fatalf("Validate() error = %T, want *ValidationError", err)
			}
			for _, f := range tt.wantFields {
				if len(ve.Field(f)) == 0 {
					t.Errorf("missing message for field %q in %v", f, ve.Fields)
				}
			}
		})
	}
}

func TestScheduledEventValidate(t *testing.T) {
	start := time.Date(2024, 6, 1, 14, 30, 0, 0, time.UTC)
	tests := []struct {
		name    string
		end     time.Time
		wantErr bool
	}{
		{"after", start.Add(time.Hour), false},
		{"equal", start, true},
		{"before", start.Add(-time.Minute), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ScheduledEvent{Start: start, End: tt.end}.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewLocalID(t *testing.T) {
	a, b := NewLocalID(), NewLocalID()
	if !a.IsLocal() {
		t.Errorf("IsLocal(%q) = false", a)
	}
	if a == b {
		t.Error("NewLocalID() generated duplicate ids")
	}
	if ID("42").IsLocal() {
		t.Error("server id reported as local")
	}
}

func TestIsHexColor(t *testing.T) {
	for _, c := range []string{"#fff", "#5e72e4", "#FF4D4D"} {
		if !IsHexColor(c) {
			t.Errorf("IsHexColor(%q) = false", c)
		}
	}
	for _, c := range []string{"", "fff", "#ffff", "#gggggg"} {
		if IsHexColor(c) {
			t.Errorf("IsHexColor(%q) = true", c)
		}
	}
}
