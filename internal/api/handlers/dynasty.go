package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stitts-dev/dynasty-values/internal/dynasty"
	"github.com/stitts-dev/dynasty-values/internal/models"
	"github.com/stitts-dev/dynasty-values/internal/services"
	"github.com/stitts-dev/dynasty-values/pkg/utils"
)

const dateLayout = "2006-01-02"

// ETLRunner is satisfied by *services.Scheduler.
type ETLRunner interface {
	RunNow(ctx context.Context, date *time.Time) (*services.RunSummary, error)
	Status() services.SchedulerStatus
}

type DynastyHandler struct {
	values services.ValueReader
	runner ETLRunner
	logger *logrus.Logger
}

func NewDynastyHandler(values services.ValueReader, runner ETLRunner, logger *logrus.Logger) *DynastyHandler {
	return &DynastyHandler{
		values: values,
		runner: runner,
		logger: logger,
	}
}

// ValueResponse is one row of the values listing.
type ValueResponse struct {
	PlayerID        string   `json:"playerId"`
	Name            string   `json:"name"`
	Position        string   `json:"position"`
	Team            string   `json:"team,omitempty"`
	AgeYears        *float64 `json:"ageYears"`
	MarketValue     *float64 `json:"marketValue"`
	ProjectionScore *float64 `json:"projectionScore"`
	AgeScore        *float64 `json:"ageScore"`
	RiskScore       *float64 `json:"riskScore"`
	DynastyValue    *float64 `json:"dynastyValue"`
	Display         string   `json:"display"`
	Trend7d         *float64 `json:"trend7d"`
	Trend30d        *float64 `json:"trend30d"`
	TrendDirection  string   `json:"trendDirection,omitempty"`
}

// BatchValue is the compact per-player payload of the batch endpoint.
type BatchValue struct {
	DynastyValue *float64 `json:"dynastyValue"`
	Trend7d      *float64 `json:"trend7d"`
	Trend30d     *float64 `json:"trend30d"`
}

type batchRequest struct {
	PlayerIDs []string `json:"playerIds"`
}

// GetValues returns every value row for ?date=YYYY-MM-DD, or for the latest
// date when omitted, ordered by dynasty value.
func (h *DynastyHandler) GetValues(c *gin.Context) {
	ctx := c.Request.Context()

	asOf, ok, err := h.resolveDate(ctx, c.Query("date"))
	if err != nil {
		if errors.Is(err, errBadDate) {
			utils.SendBadRequest(c, err.Error())
			return
		}
		h.logger.WithError(err).Error("Failed to resolve valuation date")
		utils.SendInternalError(c, "Failed to load dynasty values")
		return
	}
	if !ok {
		c.JSON(http.StatusOK, gin.H{"asOfDate": nil, "values": []ValueResponse{}})
		return
	}

	rows, err := h.values.ValuesForDate(ctx, asOf)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load dynasty values")
		utils.SendInternalError(c, "Failed to load dynasty values")
		return
	}

	values := make([]ValueResponse, 0, len(rows))
	for _, row := range rows {
		values = append(values, toValueResponse(row))
	}
	c.JSON(http.StatusOK, gin.H{
		"asOfDate": asOf.Format(dateLayout),
		"values":   values,
	})
}

// GetValuesBatch returns the latest dynasty value and trends for a set of
// player ids.
func (h *DynastyHandler) GetValuesBatch(c *gin.Context) {
	var req batchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendBadRequest(c, "Invalid request body")
		return
	}
	if len(req.PlayerIDs) == 0 {
		utils.SendBadRequest(c, "playerIds must be a non-empty array")
		return
	}

	ctx := c.Request.Context()
	asOf, ok, err := h.values.LatestAsOf(ctx)
	if err != nil {
		h.logger.WithError(err).Error("Failed to resolve latest valuation date")
		utils.SendInternalError(c, "Failed to load dynasty values")
		return
	}
	if !ok {
		utils.SendNotFound(c, "No dynasty values available")
		return
	}

	rows, err := h.values.ValuesForPlayers(ctx, asOf, req.PlayerIDs)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load dynasty values")
		utils.SendInternalError(c, "Failed to load dynasty values")
		return
	}
	if len(rows) == 0 {
		utils.SendNotFound(c, "No dynasty values found for the requested players")
		return
	}

	values := make(map[string]BatchValue, len(rows))
	for _, row := range rows {
		values[row.PlayerID] = BatchValue{
			DynastyValue: row.DynastyValue,
			Trend7d:      row.Trend7d,
			Trend30d:     row.Trend30d,
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"asOfDate": asOf.Format(dateLayout),
		"values":   values,
	})
}

// TriggerETL runs the pipeline on demand for ?date=YYYY-MM-DD or today.
func (h *DynastyHandler) TriggerETL(c *gin.Context) {
	var date *time.Time
	if raw := c.Query("date"); raw != "" {
		parsed, err := time.Parse(dateLayout, raw)
		if err != nil {
			utils.SendBadRequest(c, "date must be YYYY-MM-DD")
			return
		}
		date = &parsed
	}

	// A dropped client connection must not abort a half-written run.
	ctx := context.WithoutCancel(c.Request.Context())
	summary, err := h.runner.RunNow(ctx, date)
	if errors.Is(err, services.ErrRunInProgress) {
		utils.SendConflict(c, err.Error())
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"ok":      false,
			"error":   err.Error(),
			"summary": summary,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":      true,
		"summary": summary,
	})
}

// GetStatus reports scheduler state and the last run.
func (h *DynastyHandler) GetStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.runner.Status())
}

var errBadDate = errors.New("date must be YYYY-MM-DD")

func (h *DynastyHandler) resolveDate(ctx context.Context, raw string) (time.Time, bool, error) {
	if raw == "" {
		return h.values.LatestAsOf(ctx)
	}
	parsed, err := time.Parse(dateLayout, raw)
	if err != nil {
		return time.Time{}, false, errBadDate
	}
	return services.AsOfDate(parsed), true, nil
}

func toValueResponse(row models.ValueDaily) ValueResponse {
	resp := ValueResponse{
		PlayerID:        row.PlayerID,
		MarketValue:     row.MarketValue,
		ProjectionScore: row.ProjectionScore,
		AgeScore:        row.AgeScore,
		RiskScore:       row.RiskScore,
		DynastyValue:    row.DynastyValue,
		Display:         dynasty.FormatValue(row.DynastyValue),
		Trend7d:         row.Trend7d,
		Trend30d:        row.Trend30d,
		TrendDirection:  dynasty.TrendDirection(row.Trend7d),
	}
	if row.Player != nil {
		resp.Name = row.Player.Name
		resp.Position = row.Player.Position
		resp.Team = row.Player.Team
		resp.AgeYears = row.Player.AgeYears
	}
	return resp
}
