package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kutbudev/agenda-cli/internal/api"
	"github.com/kutbudev/agenda-cli/internal/clock"
	apierrors "github.com/kutbudev/agenda-cli/internal/errors"
	"github.com/kutbudev/agenda-cli/internal/localstore"
	"github.com/kutbudev/agenda-cli/internal/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var bogota = time.FixedZone("America/Bogota", -5*60*60)

func newTestServer(t *testing.T, token string) (*Server, *localstore.Store) {
	t.Helper()
	zone := clock.NewZoneAt(bogota, nil)
	store, err := localstore.Open(t.TempDir(), zone)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	return New(store, zone, token), store
}

func do(t *testing.T, h http.Handler, method, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestPing(t *testing.T) {
	s, _ := newTestServer(t, "secret")
	w := do(t, s.Handler(), "GET", "/ping", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("GET /ping status = %d", w.Code)
	}
}

func TestTokenRequired(t *testing.T) {
	s, _ := newTestServer(t, "secret")
	tests := []struct {
		name  string
		token string
		want  int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"wrong", "nope", http.StatusUnauthorized},
		{"valid", "secret", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, s.Handler(), "GET", "/api/tags", "", tt.token)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestValidationBody(t *testing.T) {
	s, _ := newTestServer(t, "")
	w := do(t, s.Handler(), "POST", "/api/activities", `{"title":"","color":"#fff"}`, "")
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", w.Code)
	}
	var body struct {
		Message string              `json:"message"`
		Errors  map[string][]string `json:"errors"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if len(body.Errors["title"]) == 0 {
		t.Errorf("errors = %v, want a title entry", body.Errors)
	}
}

func TestEventTimesOnTheWire(t *testing.T) {
	s, _ := newTestServer(t, "")
	h := s.Handler()
	do(t, h, "POST", "/api/activities", `{"title":"Enviar informe","color":"#ff4d4d"}`, "")

	w := do(t, h, "POST", "/api/calendar-events",
		`{"activity_id":1,"title":"Enviar informe","tags":[],"start":"2024-06-01T14:30:00","end":"2024-06-01T15:30:00","all_day":false}`, "")
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d body = %s", w.Code, w.Body)
	}
	var got EventResponse
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if got.Start != "2024-06-01T14:30:00" || got.End != "2024-06-01T15:30:00" || got.ActivityID != "1" {
		t.Errorf("event = %+v", got)
	}

	w = do(t, h, "POST", "/api/calendar-events", `{"activity_id":1,"title":"x","start":"tomorrow","end":"2024-06-01T15:30:00"}`, "")
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("bad start status = %d, want 422", w.Code)
	}
	w = do(t, h, "DELETE", "/api/calendar-events/999", "", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("delete missing status = %d, want 404", w.Code)
	}
}

// The gateway client and the server agree on the wire format.
func TestGatewayRoundTrip(t *testing.T) {
	s, _ := newTestServer(t, "secret")
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)

	zone := clock.NewZoneAt(bogota, nil)
	c := api.NewClient(ts.URL+"/api", 5*time.Second, zone)
	c.Tokens = staticToken("secret")
	ctx := context.Background()

	tag, err := c.CreateTag(ctx, models.TagInput{Name: "work", Color: "#4da6ff"})
	if err != nil {
		t.Fatalf("CreateTag() error = %v", err)
	}
	a, err := c.CreateActivity(ctx, models.ActivityInput{Title: "Enviar informe", Color: "#ff4d4d", Tags: []models.Tag{*tag}})
	if err != nil {
		t.Fatalf("CreateActivity() error = %v", err)
	}
	if !a.Tags.Has(tag.ID) {
		t.Errorf("activity tags = %v", a.Tags)
	}

	start := time.Date(2024, 6, 1, 14, 30, 0, 0, bogota)
	created, err := c.CreateCalendarEvent(ctx, models.ScheduledEvent{
		ActivityID: a.ID, Title: a.Title, Color: a.Color, Tags: a.Tags,
		Start: start, End: start.Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("CreateCalendarEvent() error = %v", err)
	}
	if !created.Start.Equal(start) || created.Tags[0].Name != "work" {
		t.Errorf("created = %+v", created)
	}

	created.End = start.Add(2 * time.Hour)
	if _, err := c.UpdateCalendarEvent(ctx, *created); err != nil {
		t.Fatalf("UpdateCalendarEvent() error = %v", err)
	}
	list, err := c.ListEventsByActivity(ctx, a.ID)
	if err != nil {
		t.Fatalf("ListEventsByActivity() error = %v", err)
	}
	if len(list) != 1 || list[0].Duration() != 2*time.Hour {
		t.Errorf("ListEventsByActivity() = %+v", list)
	}

	_, err = c.CreateActivity(ctx, models.ActivityInput{Title: "x", Color: "#000", TagIDs: []int{99}})
	if !apierrors.IsValidation(err) {
		t.Errorf("unknown tag error = %v, want validation", err)
	}

	if err := c.DeleteCalendarEvent(ctx, created.ID); err != nil {
		t.Fatalf("DeleteCalendarEvent() error = %v", err)
	}
	if err := c.DeleteCalendarEvent(ctx, created.ID); !apierrors.IsNotFound(err) {
		t.Errorf("second delete error = %v, want not found", err)
	}
}

type staticToken string

func (s staticToken) Token() (string, error) { return string(s), nil }
