package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kutbudev/agenda-cli/internal/clock"
	apierrors "github.com/kutbudev/agenda-cli/internal/errors"
	"github.com/kutbudev/agenda-cli/internal/models"
)

type staticTokens struct{ token atomic.Value }

func newTokens(tok string) *staticTokens {
	s := &staticTokens{}
	s.token.Store(tok)
	return s
}

func (s *staticTokens) Token() (string, error) { return s.token.Load().(string), nil }

type refresherFunc func(ctx context.Context) error

func (f refresherFunc) Refresh(ctx context.Context) error { return f(ctx) }

func testZone() *clock.Zone {
	return clock.NewZoneAt(time.FixedZone("America/Bogota", -5*60*60), nil)
}

func newTestClient(t *testing.T, h http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c := NewClient(srv.URL, 5*time.Second, testZone())
	return c, srv
}

func TestAuthRetryOnceAfterRefresh(t *testing.T) {
	var hits int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		if r.Header.Get("Authorization") != "Bearer fresh" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"message":"Unauthenticated."}`)
			return
		}
		_, _ = io.WriteString(w, `[{"id":1,"name":"work","color":"#ff4d4d"}]`)
	})

	tokens := newTokens("stale")
	var refreshes int32
	c.Tokens = tokens
	c.Refresher = refresherFunc(func(context.Context) error {
		atomic.AddInt32(&refreshes, 1)
		tokens.token.Store("fresh")
		return nil
	})

	tags, err := c.ListTags(context.Background())
	if err != nil {
		t.Fatalf("ListTags() error = %v", err)
	}
	if len(tags) != 1 || tags[0].Name != "work" {
		t.Errorf("ListTags() = %+v", tags)
	}
	if hits != 2 || refreshes != 1 {
		t.Errorf("hits = %d refreshes = %d, want 2 and 1", hits, refreshes)
	}
}

func TestAuthSecondRejectionCallsOnUnauthorized(t *testing.T) {
	var hits int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusUnauthorized)
	})
	c.Tokens = newTokens("stale")
	c.Refresher = refresherFunc(func(context.Context) error { return nil })
	var navigated int
	c.OnUnauthorized = func() { navigated++ }

	_, err := c.ListActivities(context.Background())
	if !apierrors.IsAuth(err) {
		t.Fatalf("ListActivities() error = %v, want AuthError", err)
	}
	if hits != 2 {
		t.Errorf("hits = %d, want exactly one retry", hits)
	}
	if navigated != 1 {
		t.Errorf("OnUnauthorized called %d times, want 1", navigated)
	}
}

func TestNonAuthErrorsAreNotRetried(t *testing.T) {
	var hits int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `{"message":"boom"}`)
	})
	c.Refresher = refresherFunc(func(context.Context) error {
		t.Fatal("refresh must not run for a 500")
		return nil
	})

	err := c.DeleteTag(context.Background(), 4)
	var srvErr *apierrors.ServerError
	if !errors.As(err, &srvErr) || srvErr.Status != 500 || srvErr.Message != "boom" {
		t.Fatalf("DeleteTag() error = %v, want ServerError 500", err)
	}
	if hits != 1 {
		t.Errorf("hits = %d, want 1", hits)
	}
}

func TestValidationErrorDecoding(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = io.WriteString(w, `{"message":"The given data was invalid.","errors":{"title":["The title field is required."],"color":"The color field is required."}}`)
	})

	_, err := c.CreateActivity(context.Background(), models.ActivityInput{Title: "x", Color: "#fff"})
	var ve *apierrors.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("CreateActivity() error = %v, want ValidationError", err)
	}
	if got := ve.Field("title"); len(got) != 1 || got[0] != "The title field is required." {
		t.Errorf("title messages = %v", got)
	}
	if got := ve.Field("color"); len(got) != 1 {
		t.Errorf("color messages = %v", got)
	}
}

func TestNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewClient(url, time.Second, testZone())
	_, err := c.ListTags(context.Background())
	if !apierrors.IsNetwork(err) {
		t.Fatalf("ListTags() error = %v, want NetworkError", err)
	}
}

func TestEnvelopeAndNumericIDs(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"data":[{"id":3,"title":"Enviar informe","color":"#ff4d4d","tags":[1,2]}]}`)
	})

	got, err := c.ListActivities(context.Background())
	if err != nil {
		t.Fatalf("ListActivities() error = %v", err)
	}
	if len(got) != 1 || got[0].ID != "3" || len(got[0].Tags) != 2 {
		t.Errorf("ListActivities() = %+v", got)
	}
}

func TestMalformedPayloadsRejected(t *testing.T) {
	tests := []struct {
		name string
		body string
		call func(*Client) error
	}{
		{
			name: "tag without name",
			body: `[{"id":1,"name":"","color":"#fff"}]`,
			call: func(c *Client) error { _, err := c.ListTags(context.Background()); return err },
		},
		{
			name: "activity without title",
			body: `{"id":9,"title":" ","color":"#fff"}`,
			call: func(c *Client) error {
				_, err := c.CreateActivity(context.Background(), models.ActivityInput{Title: "a", Color: "#fff"})
				return err
			},
		},
		{
			name: "event ending before start",
			body: `[{"id":"e1","activity_id":"3","title":"x","start":"2024-06-01T15:30:00","end":"2024-06-01T14:30:00"}]`,
			call: func(c *Client) error { _, err := c.ListCalendarEvents(context.Background()); return err },
		},
		{
			name: "not json",
			body: `<html>oops</html>`,
			call: func(c *Client) error { _, err := c.ListTags(context.Background()); return err },
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.WriteString(w, tt.body)
			})
			err := tt.call(c)
			var bad *apierrors.MalformedResponseError
			if !errors.As(err, &bad) {
				t.Fatalf("error = %v, want MalformedResponseError", err)
			}
		})
	}
}

func TestCreateActivitySendsTagIDs(t *testing.T) {
	var got map[string]interface{}
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/activities" {
			t.Errorf("request = %s %s", r.Method, r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = io.WriteString(w, `{"id":11,"title":"Leer","color":"#66cc66","tags":[{"id":2,"name":"home","color":"#000"}]}`)
	})

	a, err := c.CreateActivity(context.Background(), models.ActivityInput{
		Title:  "  Leer ",
		Color:  "#66cc66",
		TagIDs: []int{2},
		Tags:   []models.Tag{{ID: 2, Name: "home"}, {ID: 5}},
	})
	if err != nil {
		t.Fatalf("CreateActivity() error = %v", err)
	}
	if a.ID != "11" {
		t.Errorf("ID = %q", a.ID)
	}
	if got["title"] != "Leer" {
		t.Errorf("sent title = %v, want trimmed", got["title"])
	}
	tags, _ := got["tags"].([]interface{})
	if len(tags) != 2 || tags[0].(float64) != 2 || tags[1].(float64) != 5 {
		t.Errorf("sent tags = %v, want [2 5]", got["tags"])
	}
}

func TestCalendarEventWireTimes(t *testing.T) {
	var sent eventPayload
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&sent)
		_, _ = io.WriteString(w, `{"id":"event-1","activity_id":3,"title":"Enviar informe","color":"#ff4d4d","start":"2024-06-01T14:30:00","end":"2024-06-01T19:30:00Z"}`)
	})

	// 19:30 UTC is 14:30 in Bogota.
	start := time.Date(2024, 6, 1, 19, 30, 0, 0, time.UTC)
	created, err := c.CreateCalendarEvent(context.Background(), models.ScheduledEvent{
		ActivityID: "3",
		Title:      "Enviar informe",
		Start:      start,
		End:        start.Add(time.Hour),
	})
	if sent.Start != "2024-06-01T14:30:00" || sent.End != "2024-06-01T15:30:00" {
		t.Errorf("sent start/end = %s / %s", sent.Start, sent.End)
	}
	if !errors.As(err, new(*apierrors.MalformedResponseError)) {
		t.Fatalf("CreateCalendarEvent() error = %v, want malformed (end == start)", err)
	}
	if created != nil {
		t.Errorf("CreateCalendarEvent() = %+v, want nil", created)
	}
}

func TestListEventsByActivity(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/calendar-events/activity/3" {
			t.Errorf("path = %s", r.URL.Path)
		}
		_, _ = io.WriteString(w, `[{"id":"e1","activity_id":"3","title":"Enviar informe","start":"2024-06-01T14:30:00","end":"2024-06-01T15:30:00"}]`)
	})

	events, err := c.ListEventsByActivity(context.Background(), "3")
	if err != nil {
		t.Fatalf("ListEventsByActivity() error = %v", err)
	}
	if len(events) != 1 || events[0].Duration() != time.Hour {
		t.Fatalf("events = %+v", events)
	}
	if events[0].Start.Location().String() != "America/Bogota" {
		t.Errorf("start location = %s", events[0].Start.Location())
	}
}

func TestLoginDoesNotRetry(t *testing.T) {
	var hits int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"message":"Invalid credentials"}`)
	})
	c.Refresher = refresherFunc(func(context.Context) error {
		t.Fatal("login must not refresh")
		return nil
	})

	_, err := c.Login(context.Background(), "ana@example.com", "nope")
	if !apierrors.IsAuth(err) {
		t.Fatalf("Login() error = %v, want AuthError", err)
	}
	if hits != 1 {
		t.Errorf("hits = %d, want 1", hits)
	}
}

func TestRefreshUsesGivenBearer(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer old" {
			t.Errorf("Authorization = %q", r.Header.Get("Authorization"))
		}
		_, _ = io.WriteString(w, `{"token":"new","expires_in":3600}`)
	})
	c.Tokens = newTokens("ignored")

	res, err := c.Refresh(context.Background(), "old")
	if err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if res.Token != "new" {
		t.Errorf("Token = %q", res.Token)
	}
}
