package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/example/crewfinder/pkg/core/model"
	"github.com/example/crewfinder/pkg/core/search"
	"github.com/example/crewfinder/pkg/core/services"
)

const dateLayout = "2006-01-02"

type windowPayload struct {
	Start string `json:"start" binding:"required"`
	End   string `json:"end" binding:"required"`
}

func (w windowPayload) toModel() (model.Window, error) {
	start, err := time.Parse(dateLayout, w.Start)
	if err != nil {
		return model.Window{}, err
	}
	end, err := time.Parse(dateLayout, w.End)
	if err != nil {
		return model.Window{}, err
	}
	return model.Window{Start: start.UTC(), End: end.UTC()}, nil
}

func windowView(w model.Window) windowPayload {
	return windowPayload{
		Start: w.Start.Format(dateLayout),
		End:   w.End.Format(dateLayout),
	}
}

type searchRequest struct {
	Category string        `json:"category" binding:"required"`
	Window   windowPayload `json:"window" binding:"required"`
	Center   struct {
		Lat float64 `json:"lat" binding:"min=-90,max=90"`
		Lon float64 `json:"lon" binding:"min=-180,max=180"`
	} `json:"center" binding:"required"`
	RadiusKm      float64 `json:"radius_km" binding:"required,gt=0"`
	MinPersons    int     `json:"min_persons"`
	MaxHourlyRate float64 `json:"max_hourly_rate"`
	Query         string  `json:"query"`
}

type candidateView struct {
	ResourceID   string        `json:"resource_id"`
	Name         string        `json:"name"`
	Company      string        `json:"company,omitempty"`
	City         string        `json:"city,omitempty"`
	PersonCount  int           `json:"person_count"`
	HourlyRate   *float64      `json:"hourly_rate,omitempty"`
	Availability windowPayload `json:"availability"`
	DistanceKm   float64       `json:"distance_km"`
	Geocoded     bool          `json:"geocoded"`
}

func newCandidateView(c search.Candidate) candidateView {
	return candidateView{
		ResourceID:   c.Resource.ID,
		Name:         c.Resource.Name,
		Company:      c.Resource.Company,
		City:         c.Resource.City,
		PersonCount:  c.Resource.PersonCount,
		HourlyRate:   c.Resource.HourlyRate,
		Availability: windowView(c.Resource.Availability),
		DistanceKm:   c.DistanceKm,
		Geocoded:     c.Geocoded,
	}
}

type preferredWindowView struct {
	Window windowPayload `json:"window"`
	Notes  string        `json:"notes,omitempty"`
}

type sessionView struct {
	SessionID   string                         `json:"session_id"`
	Candidates  []candidateView                `json:"candidates"`
	Selection   []string                       `json:"selection"`
	Preferences map[string]preferredWindowView `json:"preferences"`
}

func newSessionView(state *SessionState) sessionView {
	view := sessionView{
		SessionID:   state.ID,
		Candidates:  make([]candidateView, 0, len(state.Candidates)),
		Selection:   make([]string, 0, state.Selection.Len()),
		Preferences: make(map[string]preferredWindowView),
	}
	for _, c := range state.Candidates {
		view.Candidates = append(view.Candidates, newCandidateView(c))
	}
	for _, member := range state.Selection.Members() {
		view.Selection = append(view.Selection, member.ResourceID)
		if member.Preferred != nil {
			view.Preferences[member.ResourceID] = preferredWindowView{
				Window: windowView(member.Preferred.Window),
				Notes:  member.Preferred.Notes,
			}
		}
	}
	return view
}

// Search runs a candidate search and opens a session over its results
func (h *Handler) Search(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	window, err := req.Window.toModel()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "window dates must use YYYY-MM-DD"})
		return
	}

	criteria := model.SearchCriteria{
		Category:      req.Category,
		Window:        window,
		Center:        model.Coordinate{Lat: req.Center.Lat, Lon: req.Center.Lon},
		RadiusKm:      req.RadiusKm,
		MinPersons:    req.MinPersons,
		MaxHourlyRate: req.MaxHourlyRate,
		Query:         req.Query,
	}

	result, err := services.SearchResources(c.Request.Context(), h.Database, h.Database, h.Pipeline, h.Logger, criteria)
	if err != nil {
		h.Logger.Error("Search failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "search failed"})
		return
	}

	state := h.Sessions.Create(criteria, result.Candidates)

	view := newSessionView(state)
	// Stored preferences are returned for display; they only bind to the
	// session once the resource is selected and the window is set again
	stored := make(map[string]preferredWindowView, len(result.Preferences))
	for id, pref := range result.Preferences {
		stored[id] = preferredWindowView{Window: windowView(pref.Window), Notes: pref.Notes}
	}

	c.JSON(http.StatusOK, gin.H{
		"session_id":         state.ID,
		"candidates":         view.Candidates,
		"stored_preferences": stored,
	})
}

// GetSession returns the current state of a session
func (h *Handler) GetSession(c *gin.Context) {
	state, ok := h.Sessions.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": ErrSessionNotFound.Error()})
		return
	}
	c.JSON(http.StatusOK, newSessionView(state))
}

type toggleRequest struct {
	ResourceID string `json:"resource_id" binding:"required"`
}

// ToggleSelection adds a candidate to the selection or removes it again
func (h *Handler) ToggleSelection(c *gin.Context) {
	var req toggleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := h.Sessions.Update(c.Param("id"), func(state *SessionState) error {
		if _, ok := state.Candidate(req.ResourceID); !ok {
			return errors.New("resource is not a candidate of this search")
		}
		state.Selection = state.Selection.Toggle(req.ResourceID)
		return nil
	})
	if err != nil {
		h.respondUpdateError(c, err)
		return
	}

	state, _ := h.Sessions.Get(c.Param("id"))
	c.JSON(http.StatusOK, newSessionView(state))
}

type reorderRequest struct {
	From int `json:"from" binding:"min=0"`
	To   int `json:"to" binding:"min=0"`
}

// ReorderSelection moves a selected resource to a new list position
func (h *Handler) ReorderSelection(c *gin.Context) {
	var req reorderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := h.Sessions.Update(c.Param("id"), func(state *SessionState) error {
		if req.From >= state.Selection.Len() || req.To >= state.Selection.Len() {
			return errors.New("position out of range")
		}
		state.Selection = state.Selection.Reorder(req.From, req.To)
		return nil
	})
	if err != nil {
		h.respondUpdateError(c, err)
		return
	}

	state, _ := h.Sessions.Get(c.Param("id"))
	c.JSON(http.StatusOK, newSessionView(state))
}

type preferredWindowRequest struct {
	ResourceID string         `json:"resource_id" binding:"required"`
	Clear      bool           `json:"clear"`
	Window     *windowPayload `json:"window"`
	Notes      string         `json:"notes"`
}

// SetPreferredWindow sets or clears the preferred sub-window for a
// selected resource and propagates the change to the preference store
func (h *Handler) SetPreferredWindow(c *gin.Context) {
	var req preferredWindowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !req.Clear && req.Window == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "either window or clear is required"})
		return
	}

	var pref *model.PreferredWindow
	if !req.Clear {
		window, err := req.Window.toModel()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "window dates must use YYYY-MM-DD"})
			return
		}
		pref = &model.PreferredWindow{Window: window, Notes: req.Notes}
	}

	err := h.Sessions.Update(c.Param("id"), func(state *SessionState) error {
		candidate, ok := state.Candidate(req.ResourceID)
		if !ok {
			return errors.New("resource is not a candidate of this search")
		}
		updated, err := state.Selection.SetPreferredWindow(req.ResourceID, candidate.Resource.Availability, pref)
		if err != nil {
			return err
		}
		state.Selection = updated
		return nil
	})
	if err != nil {
		h.respondUpdateError(c, err)
		return
	}

	// Best-effort persistence; the session state above stays authoritative
	warning := ""
	if err := services.SavePreferredWindow(c.Request.Context(), h.Database, h.Logger, req.ResourceID, pref); err != nil {
		warning = err.Error()
	}

	state, _ := h.Sessions.Get(c.Param("id"))
	view := newSessionView(state)
	if warning != "" {
		c.JSON(http.StatusOK, gin.H{"session": view, "warning": warning})
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": view})
}

type commitRequest struct {
	TradeID string `json:"trade_id" binding:"required"`
}

type allocationView struct {
	ID          string        `json:"id"`
	ResourceID  string        `json:"resource_id"`
	TradeID     string        `json:"trade_id"`
	PersonCount int           `json:"person_count"`
	Window      windowPayload `json:"window"`
	Status      string        `json:"status"`
	Priority    int           `json:"priority"`
	Notes       string        `json:"notes,omitempty"`
}

type dispatchWarningView struct {
	AllocationID string `json:"allocation_id"`
	ResourceID   string `json:"resource_id"`
	Error        string `json:"error"`
}

// Commit converts the session's selection into persisted allocations and
// dispatches the invitations. The session is closed on success
func (h *Handler) Commit(c *gin.Context) {
	var req commitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	state, ok := h.Sessions.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": ErrSessionNotFound.Error()})
		return
	}

	result, err := services.CommitAllocations(
		c.Request.Context(),
		h.Database,
		h.Mailer,
		h.Logger,
		state.Selection,
		state.Candidates,
		req.TradeID,
		state.Criteria.Window,
	)
	if err != nil {
		if errors.Is(err, model.ErrAllocationCreate) {
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.Sessions.Delete(state.ID)

	allocations := make([]allocationView, 0, len(result.Allocations))
	for _, a := range result.Allocations {
		allocations = append(allocations, allocationView{
			ID:          a.ID,
			ResourceID:  a.ResourceID,
			TradeID:     a.TradeID,
			PersonCount: a.PersonCount,
			Window:      windowView(a.Window),
			Status:      string(a.Status),
			Priority:    a.Priority,
			Notes:       a.Notes,
		})
	}
	warnings := make([]dispatchWarningView, 0, len(result.Warnings))
	for _, w := range result.Warnings {
		warnings = append(warnings, dispatchWarningView{
			AllocationID: w.AllocationID,
			ResourceID:   w.ResourceID,
			Error:        w.Err.Error(),
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"allocations": allocations,
		"warnings":    warnings,
		"replayed":    result.Replayed,
	})
}

func (h *Handler) respondUpdateError(c *gin.Context, err error) {
	if errors.Is(err, ErrSessionNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}
