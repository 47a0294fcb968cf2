package http

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"go.ngs.io/gridprofiles/internal/adapter/store"
	csvstore "go.ngs.io/gridprofiles/internal/adapter/store/csv"
	"go.ngs.io/gridprofiles/internal/domain"
	"go.ngs.io/gridprofiles/internal/usecase"
)

// MaxRangeDays caps the date range of a single profile request.
const MaxRangeDays = 31

// Handler handles HTTP requests for plants and generation profiles.
type Handler struct {
	plants  store.PlantLoader
	windUC  *usecase.WindProfileUseCase
	solarUC *usecase.SolarProfileUseCase
}

// NewHandler creates a new HTTP handler. solarUC may be nil when no
// irradiance source is configured.
func NewHandler(plants store.PlantLoader, windUC *usecase.WindProfileUseCase, solarUC *usecase.SolarProfileUseCase) *Handler {
	return &Handler{
		plants:  plants,
		windUC:  windUC,
		solarUC: solarUC,
	}
}

// PlantResponse is one plant table entry.
type PlantResponse struct {
	PlantID int32   `json:"plant_id"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	Pmax    float64 `json:"Pmax"`
	Type    string  `json:"type"`
	State   string  `json:"state,omitempty"`
}

// WindRowResponse is one wind sample; missing values are null.
type WindRowResponse struct {
	PlantID int32    `json:"plant_id"`
	TS      string   `json:"ts"`
	TSID    int32    `json:"ts_id"`
	U       *float32 `json:"U"`
	V       *float32 `json:"V"`
	Pout    *float32 `json:"Pout"`
}

// SolarRowResponse is one solar sample; missing values are null.
type SolarRowResponse struct {
	Pout    *float32 `json:"Pout"`
	PlantID int32    `json:"plant_id"`
	TS      string   `json:"ts"`
	TSID    int32    `json:"ts_id"`
}

// GetPlants handles GET /v1/plants.
func (h *Handler) GetPlants(c *gin.Context) {
	var cats []domain.Category
	if typ := c.Query("type"); typ != "" {
		cat, err := domain.ParseCategory(typ)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		cats = append(cats, cat)
	}

	plants, err := h.plants.LoadPlants(cats...)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	response := make([]PlantResponse, len(plants))
	for i, p := range plants {
		response[i] = PlantResponse{
			PlantID: p.ID,
			Lat:     p.Lat,
			Lon:     p.Lon,
			Pmax:    p.Pmax,
			Type:    string(p.Category),
			State:   p.State,
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"plants": response,
		"count":  len(response),
	})
}

// GetWindProfile handles GET /v1/profiles/wind.
func (h *Handler) GetWindProfile(c *gin.Context) {
	req, ok := h.profileRequest(c, domain.CategoryWind, domain.CategoryWindOffshore)
	if !ok {
		return
	}

	profile, err := h.windUC.Execute(c.Request.Context(), req)
	if err != nil {
		respondRunError(c, err)
		return
	}

	if c.Query("format") == "csv" {
		c.Header("Content-Type", "text/csv")
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=wind_%s.csv", profile.RunID))
		c.Status(http.StatusOK)
		if err := csvstore.EncodeWind(c.Writer, profile.Rows); err != nil {
			_ = c.Error(err)
		}
		return
	}

	rows := make([]WindRowResponse, len(profile.Rows))
	for i, r := range profile.Rows {
		rows[i] = WindRowResponse{
			PlantID: r.PlantID,
			TS:      r.Time.UTC().Format(time.RFC3339),
			TSID:    r.TSID,
			U:       nullable(r.U),
			V:       nullable(r.V),
			Pout:    nullable(r.Pout),
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"run_id":  profile.RunID,
		"hours":   profile.Hours,
		"rows":    rows,
		"missing": nonNil(profile.Missing),
	})
}

// GetSolarProfile handles GET /v1/profiles/solar.
func (h *Handler) GetSolarProfile(c *gin.Context) {
	if h.solarUC == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "solar profiles are not configured (NREL_API_KEY is unset)"})
		return
	}
	req, ok := h.profileRequest(c, domain.CategorySolar)
	if !ok {
		return
	}

	profile, err := h.solarUC.Execute(c.Request.Context(), req)
	if err != nil {
		respondRunError(c, err)
		return
	}

	if c.Query("format") == "csv" {
		c.Header("Content-Type", "text/csv")
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=solar_%s.csv", profile.RunID))
		c.Status(http.StatusOK)
		if err := csvstore.EncodeSolar(c.Writer, profile.Rows); err != nil {
			_ = c.Error(err)
		}
		return
	}

	rows := make([]SolarRowResponse, len(profile.Rows))
	for i, r := range profile.Rows {
		rows[i] = SolarRowResponse{
			Pout:    nullable(r.Pout),
			PlantID: r.PlantID,
			TS:      r.Time.UTC().Format(time.RFC3339),
			TSID:    r.TSID,
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"run_id":    profile.RunID,
		"hours":     profile.Hours,
		"locations": profile.Locations,
		"rows":      rows,
		"missing":   []string{},
	})
}

// profileRequest parses start, end and the optional plant_id list. On failure
// it writes a 400 response and returns false.
func (h *Handler) profileRequest(c *gin.Context, cats ...domain.Category) (usecase.ProfileRequest, bool) {
	startStr := c.Query("start")
	endStr := c.Query("end")
	if startStr == "" || endStr == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "start and end parameters are required (YYYY-MM-DD)"})
		return usecase.ProfileRequest{}, false
	}

	start, err := domain.ParseDate(startStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid start date (expected YYYY-MM-DD): %v", err)})
		return usecase.ProfileRequest{}, false
	}
	end, err := domain.ParseDate(endStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid end date (expected YYYY-MM-DD): %v", err)})
		return usecase.ProfileRequest{}, false
	}
	if days := int(end.Sub(start).Hours()/24) + 1; days > MaxRangeDays {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("date range must be at most %d days, got %d", MaxRangeDays, days)})
		return usecase.ProfileRequest{}, false
	}

	plants, err := h.plants.LoadPlants(cats...)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return usecase.ProfileRequest{}, false
	}

	if ids := c.Query("plant_id"); ids != "" {
		plants, err = selectPlants(plants, ids)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return usecase.ProfileRequest{}, false
		}
	}

	return usecase.ProfileRequest{Start: start, End: end, Plants: plants}, true
}

// selectPlants keeps the plants named in a comma-separated ID list.
func selectPlants(plants []domain.Plant, ids string) ([]domain.Plant, error) {
	byID := make(map[int32]domain.Plant, len(plants))
	for _, p := range plants {
		byID[p.ID] = p
	}

	out := make([]domain.Plant, 0)
	for _, s := range strings.Split(ids, ",") {
		id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid plant_id %q", s)
		}
		p, ok := byID[int32(id)]
		if !ok {
			return nil, fmt.Errorf("plant %d not found for this profile type", id)
		}
		out = append(out, p)
	}
	return out, nil
}

func respondRunError(c *gin.Context, err error) {
	if usecase.IsInvalidRequest(err) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
}

func nullable(v float32) *float32 {
	if math.IsNaN(float64(v)) {
		return nil
	}
	return &v
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// HealthCheck handles GET /health.
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}
