// README: Itinerary handlers for generate, list, detail, options and quota.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"itinera/internal/http/middleware"
	"itinera/internal/modules/itinerary"
	"itinera/internal/service"
	"itinera/internal/types"
)

// ItineraryPlanner is the pipeline the handlers drive.
type ItineraryPlanner interface {
	Authenticate(ctx context.Context, bearerToken string) (itinerary.Owner, error)
	Generate(ctx context.Context, bearerToken string, req itinerary.TripRequest) (itinerary.Record, error)
	List(ctx context.Context, owner string, page itinerary.Page) ([]itinerary.Record, int, error)
	Get(ctx context.Context, owner string, id uuid.UUID) (itinerary.Record, error)
	RemainingGenerations(ctx context.Context, owner string) (int, error)
}

type ItineraryHandler struct {
	planner ItineraryPlanner
}

func NewItineraryHandler(planner ItineraryPlanner) *ItineraryHandler {
	return &ItineraryHandler{planner: planner}
}

type userData struct {
	UserID    string `json:"user_id"`
	UserEmail string `json:"user_email"`
	UserName  string `json:"user_name"`
}

type itineraryResponse struct {
	ID             uuid.UUID         `json:"id"`
	Content        itinerary.Content `json:"content"`
	Destination    string            `json:"destination"`
	StartDate      types.Date        `json:"start_date"`
	EndDate        types.Date        `json:"end_date"`
	NumTravelers   int               `json:"num_travelers"`
	Budget         string            `json:"budget"`
	Interests      []string          `json:"interests"`
	AdditionalInfo string            `json:"additional_info"`
	Place          *itinerary.Place  `json:"place,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
	UserData       userData          `json:"user_data"`
}

// createdResponse is the POST body; content is the generated text alone.
type createdResponse struct {
	ID             uuid.UUID        `json:"id"`
	Content        string           `json:"content"`
	Destination    string           `json:"destination"`
	StartDate      types.Date       `json:"start_date"`
	EndDate        types.Date       `json:"end_date"`
	NumTravelers   int              `json:"num_travelers"`
	Budget         string           `json:"budget"`
	Interests      []string         `json:"interests"`
	AdditionalInfo string           `json:"additional_info"`
	Place          *itinerary.Place `json:"place,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
	UserData       userData         `json:"user_data"`
}

func ownerData(rec itinerary.Record) userData {
	return userData{
		UserID:    rec.OwnerID,
		UserEmail: rec.Content.UserEmail,
		UserName:  rec.Content.UserName,
	}
}

func toCreatedResponse(rec itinerary.Record) createdResponse {
	return createdResponse{
		ID:             rec.ID,
		Content:        rec.Content.GeneratedText,
		Destination:    rec.Destination,
		StartDate:      rec.StartDate,
		EndDate:        rec.EndDate,
		NumTravelers:   rec.NumTravelers,
		Budget:         rec.Budget,
		Interests:      rec.Interests,
		AdditionalInfo: rec.AdditionalInfo,
		Place:          rec.Place,
		CreatedAt:      rec.CreatedAt,
		UserData:       ownerData(rec),
	}
}

// toResponse is the stored view served by list and detail, with the full content document.
func toResponse(rec itinerary.Record) itineraryResponse {
	return itineraryResponse{
		ID:             rec.ID,
		Content:        rec.Content,
		Destination:    rec.Destination,
		StartDate:      rec.StartDate,
		EndDate:        rec.EndDate,
		NumTravelers:   rec.NumTravelers,
		Budget:         rec.Budget,
		Interests:      rec.Interests,
		AdditionalInfo: rec.AdditionalInfo,
		Place:          rec.Place,
		CreatedAt:      rec.CreatedAt,
		UserData:       ownerData(rec),
	}
}

// Create handles POST /api/itineraries. Authentication is judged before the body.
func (h *ItineraryHandler) Create(c *gin.Context) {
	token := middleware.BearerToken(c)
	if token == "" {
		writeError(c, http.StatusUnauthorized, service.ErrMissingToken.Error())
		return
	}

	var req itinerary.TripRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		owner, authErr := h.planner.Authenticate(c.Request.Context(), token)
		if authErr != nil {
			writePlannerError(c, &service.StageError{Stage: service.StageAuthenticated, Err: authErr})
			return
		}
		middleware.SetCallerUID(c, owner.UID)
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}

	rec, err := h.planner.Generate(c.Request.Context(), token, req)
	if err != nil {
		var se *service.StageError
		if errors.As(err, &se) && se.UID != "" {
			middleware.SetCallerUID(c, se.UID)
		}
		writePlannerError(c, err)
		return
	}
	middleware.SetCallerUID(c, rec.OwnerID)
	writeJSON(c, http.StatusOK, gin.H{"success": true, "itinerary": toCreatedResponse(rec)})
}

// List handles GET /api/itineraries?page=&limit=.
func (h *ItineraryHandler) List(c *gin.Context) {
	page, ok := queryInt(c, "page")
	if !ok {
		writeError(c, http.StatusBadRequest, "page must be a positive integer")
		return
	}
	limit, ok := queryInt(c, "limit")
	if !ok {
		writeError(c, http.StatusBadRequest, "limit must be a positive integer")
		return
	}
	p := itinerary.NewPage(page, limit)

	records, total, err := h.planner.List(c.Request.Context(), middleware.CallerUID(c), p)
	if err != nil {
		writeReadError(c, err)
		return
	}
	out := make([]itineraryResponse, 0, len(records))
	for _, rec := range records {
		out = append(out, toResponse(rec))
	}
	writeJSON(c, http.StatusOK, gin.H{
		"success":     true,
		"itineraries": out,
		"pagination":  gin.H{"page": p.Page, "limit": p.Limit, "total": total},
	})
}

// Get handles GET /api/itineraries/:id.
func (h *ItineraryHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		writeError(c, http.StatusBadRequest, "invalid itinerary id")
		return
	}
	rec, err := h.planner.Get(c.Request.Context(), middleware.CallerUID(c), id)
	if err != nil {
		writeReadError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"success": true, "itinerary": toResponse(rec)})
}

// Options handles GET /api/itineraries/options.
func (h *ItineraryHandler) Options(c *gin.Context) {
	writeJSON(c, http.StatusOK, gin.H{
		"success":   true,
		"budgets":   itinerary.BudgetTiers,
		"interests": itinerary.InterestCatalog,
	})
}

// Quota handles GET /api/itineraries/quota. A remaining value of -1 means unlimited.
func (h *ItineraryHandler) Quota(c *gin.Context) {
	remaining, err := h.planner.RemainingGenerations(c.Request.Context(), middleware.CallerUID(c))
	if err != nil {
		writeError(c, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"success": true, "remaining": remaining})
}

// queryInt reads an optional positive integer query parameter. Absent means 0.
func queryInt(c *gin.Context, key string) (int, bool) {
	raw := c.Query(key)
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}
