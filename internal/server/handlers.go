package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	apierrors "github.com/kutbudev/agenda-cli/internal/errors"
	"github.com/kutbudev/agenda-cli/internal/models"
)

// TagInput DTO for creating or updating a tag
type TagInput struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

// ActivityInput DTO for creating or updating an activity. Tags may be ids
// or tag objects.
type ActivityInput struct {
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Color       string         `json:"color"`
	Tags        models.TagList `json:"tags"`
}

// EventInput DTO for creating or updating a calendar event
type EventInput struct {
	ActivityID models.ID      `json:"activity_id"`
	Title      string         `json:"title"`
	Color      string         `json:"color"`
	Tags       models.TagList `json:"tags"`
	Start      string         `json:"start"`
	End        string         `json:"end"`
	AllDay     bool           `json:"all_day"`
}

// EventResponse is a calendar event with zone-less wire times.
type EventResponse struct {
	ID         models.ID      `json:"id"`
	ActivityID models.ID      `json:"activity_id"`
	Title      string         `json:"title"`
	Color      string         `json:"color,omitempty"`
	Tags       models.TagList `json:"tags"`
	Start      string         `json:"start"`
	End        string         `json:"end"`
	AllDay     bool           `json:"all_day"`
}

func tagID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusNotFound, gin.H{"message": "Tag not found"})
		return 0, false
	}
	return id, true
}

func (s *Server) me(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"id": 1, "name": "local", "email": "local@localhost"}})
}

// refresh hands the presented token back; the local server has one static
// token.
func (s *Server) refresh(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"token": s.token, "message": "Token refreshed"})
}

func (s *Server) logout(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

func (s *Server) listTags(c *gin.Context) {
	tags, err := s.backend.ListTags(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": tags})
}

func (s *Server) createTag(c *gin.Context) {
	var input TagInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}
	tag, err := s.backend.CreateTag(c.Request.Context(), models.TagInput{Name: input.Name, Color: input.Color})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, tag)
}

func (s *Server) updateTag(c *gin.Context) {
	id, ok := tagID(c)
	if !ok {
		return
	}
	var input TagInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}
	tag, err := s.backend.UpdateTag(c.Request.Context(), id, models.TagInput{Name: input.Name, Color: input.Color})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, tag)
}

func (s *Server) deleteTag(c *gin.Context) {
	id, ok := tagID(c)
	if !ok {
		return
	}
	if err := s.backend.DeleteTag(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Tag deleted successfully"})
}

func (s *Server) listActivities(c *gin.Context) {
	activities, err := s.backend.ListActivities(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": activities})
}

func (in ActivityInput) toModel() models.ActivityInput {
	return models.ActivityInput{
		Title:       in.Title,
		Description: in.Description,
		Color:       in.Color,
		TagIDs:      in.Tags.IDs(),
	}
}

func (s *Server) createActivity(c *gin.Context) {
	var input ActivityInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}
	a, err := s.backend.CreateActivity(c.Request.Context(), input.toModel())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, a)
}

func (s *Server) updateActivity(c *gin.Context) {
	var input ActivityInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}
	a, err := s.backend.UpdateActivity(c.Request.Context(), models.ID(c.Param("id")), input.toModel())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

func (s *Server) deleteActivity(c *gin.Context) {
	if err := s.backend.DeleteActivity(c.Request.Context(), models.ID(c.Param("id"))); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Activity deleted successfully"})
}

func (s *Server) toResponse(e models.ScheduledEvent) EventResponse {
	tags := e.Tags
	if tags == nil {
		tags = models.TagList{}
	}
	return EventResponse{
		ID:         e.ID,
		ActivityID: e.ActivityID,
		Title:      e.Title,
		Color:      e.Color,
		Tags:       tags,
		Start:      s.zone.Format(e.Start),
		End:        s.zone.Format(e.End),
		AllDay:     e.AllDay,
	}
}

func (s *Server) respondEvents(c *gin.Context, list []models.ScheduledEvent) {
	out := make([]EventResponse, 0, len(list))
	for _, e := range list {
		out = append(out, s.toResponse(e))
	}
	c.JSON(http.StatusOK, gin.H{"data": out})
}

// toModel parses wire times in the server zone. Unparseable times are
// reported as field errors.
func (s *Server) toModel(in EventInput) (models.ScheduledEvent, error) {
	e := models.ScheduledEvent{
		ActivityID: in.ActivityID,
		Title:      in.Title,
		Color:      in.Color,
		Tags:       in.Tags,
		AllDay:     in.AllDay,
	}
	ve := apierrors.NewValidationError("The given data was invalid.")
	var err error
	if e.Start, err = s.zone.Parse(in.Start); err != nil {
		ve.Add("start", "The start field must be a valid date.")
	}
	if e.End, err = s.zone.Parse(in.End); err != nil {
		ve.Add("end", "The end field must be a valid date.")
	}
	if ve.HasErrors() {
		return e, ve
	}
	return e, nil
}

// resolveTags expands tag ids to catalog entries. Unknown ids are kept as
// bare ids.
func (s *Server) resolveTags(c *gin.Context, list models.TagList) models.TagList {
	if len(list) == 0 {
		return list
	}
	catalog, err := s.backend.ListTags(c.Request.Context())
	if err != nil {
		return list
	}
	byID := make(map[int]models.Tag, len(catalog))
	for _, t := range catalog {
		byID[t.ID] = t
	}
	out := make(models.TagList, 0, len(list))
	for _, t := range list {
		if full, ok := byID[t.ID]; ok {
			t = full
		}
		out = append(out, t)
	}
	return out
}

func (s *Server) listEvents(c *gin.Context) {
	list, err := s.backend.ListCalendarEvents(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	s.respondEvents(c, list)
}

func (s *Server) listEventsByActivity(c *gin.Context) {
	list, err := s.backend.ListEventsByActivity(c.Request.Context(), models.ID(c.Param("id")))
	if err != nil {
		fail(c, err)
		return
	}
	s.respondEvents(c, list)
}

func (s *Server) createEvent(c *gin.Context) {
	var input EventInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}
	e, err := s.toModel(input)
	if err != nil {
		fail(c, err)
		return
	}
	e.Tags = s.resolveTags(c, e.Tags)
	created, err := s.backend.CreateCalendarEvent(c.Request.Context(), e)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, s.toResponse(*created))
}

func (s *Server) updateEvent(c *gin.Context) {
	var input EventInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}
	e, err := s.toModel(input)
	if err != nil {
		fail(c, err)
		return
	}
	e.ID = models.ID(c.Param("id"))
	e.Tags = s.resolveTags(c, e.Tags)
	updated, err := s.backend.UpdateCalendarEvent(c.Request.Context(), e)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s.toResponse(*updated))
}

func (s *Server) deleteEvent(c *gin.Context) {
	if err := s.backend.DeleteCalendarEvent(c.Request.Context(), models.ID(c.Param("id"))); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Calendar event deleted successfully"})
}
