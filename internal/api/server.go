package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/oshokin/geo-guardian/internal/alert"
	"github.com/oshokin/geo-guardian/internal/domain/track"
	"github.com/oshokin/geo-guardian/internal/logger"
	"github.com/oshokin/geo-guardian/internal/metrics"
	"github.com/oshokin/geo-guardian/internal/repository/events"
	"github.com/oshokin/geo-guardian/internal/routing"
)

// minRouteSpacingMeters thins history points closer than this before routing.
const minRouteSpacingMeters = 25

// Ingestor processes decoded reports and inbound replies.
type Ingestor interface {
	Ingest(ctx context.Context, report *track.Report) error
	HandleReply(ctx context.Context, from, body string) (*alert.Session, error)
}

// RecordStore answers location history queries.
type RecordStore interface {
	Latest(ctx context.Context) (*events.Record, error)
	All(ctx context.Context) ([]events.Record, error)
	ByWeekday(ctx context.Context, weekday int) ([]events.Record, error)
}

// RoutePlanner plans walking routes through ordered coordinates.
type RoutePlanner interface {
	WalkingRoute(ctx context.Context, points []routing.Coordinate) (*routing.Route, error)
}

// Server exposes the HTTP surface: OwnTracks ingestion, history queries,
// the reply webhook and route planning.
type Server struct {
	ingestor Ingestor
	store    RecordStore
	planner  RoutePlanner
	// maxRoutePoints caps coordinates per routing request.
	maxRoutePoints int
}

// NewServer wires the provided collaborators into an HTTP handler set.
func NewServer(ingestor Ingestor, store RecordStore, planner RoutePlanner, maxRoutePoints int) *Server {
	return &Server{
		ingestor:       ingestor,
		store:          store,
		planner:        planner,
		maxRoutePoints: maxRoutePoints,
	}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(requestLogger(), gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.POST("/owntracks", s.handleIngest)
	r.GET("/locations", s.handleLocations)
	r.GET("/locations/latest", s.handleLatest)
	r.POST("/replies", s.handleReply)
	r.GET("/route", s.handleRoute)

	return r
}

// handleIngest accepts one OwnTracks JSON message.
func (s *Server) handleIngest(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})

		return
	}

	report, err := track.DecodeReport(body)

	switch {
	case errors.Is(err, track.ErrUnrecognizedKind):
		// Acknowledged and otherwise ignored, no side effects.
		metrics.ReportsIgnored.Inc()
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})

		return
	case errors.Is(err, track.ErrMissingCoordinates):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	case err != nil:
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed report"})

		return
	}

	if err := s.ingestor.Ingest(c.Request.Context(), report); err != nil {
		logger.Errorf(c.Request.Context(), "Report ingestion failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "ingestion failed"})

		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleLocations returns every stored record in insertion order.
func (s *Server) handleLocations(c *gin.Context) {
	records, err := s.store.All(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})

		return
	}

	if records == nil {
		records = []events.Record{}
	}

	c.JSON(http.StatusOK, records)
}

// handleLatest returns the most recently stored record.
func (s *Server) handleLatest(c *gin.Context) {
	record, err := s.store.Latest(c.Request.Context())

	switch {
	case errors.Is(err, events.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "no records stored yet"})

		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})

		return
	}

	c.JSON(http.StatusOK, record)
}

// handleReply feeds one gateway webhook callback into the alert workflow.
// The gateway retries non-2xx responses, so a reply without a pending
// session is still acknowledged.
func (s *Server) handleReply(c *gin.Context) {
	from := c.PostForm("From")
	body := c.PostForm("Body")

	if from == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "From is required"})

		return
	}

	session, err := s.ingestor.HandleReply(c.Request.Context(), from, body)

	switch {
	case errors.Is(err, alert.ErrNoPendingSession):
		logger.WarnKV(c.Request.Context(), "Reply without pending session", "from", from)
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})

		return
	case err != nil:
		// The transition happened; only a side effect failed.
		logger.Errorf(c.Request.Context(), "Reply handling degraded: %v", err)
	}

	status := ""
	if session != nil {
		status = string(session.Status)
	}

	c.JSON(http.StatusOK, gin.H{"status": status})
}

// handleRoute plans a walking route through one weekday's history.
func (s *Server) handleRoute(c *gin.Context) {
	weekday, err := strconv.Atoi(c.Query("weekday"))
	if err != nil || weekday < 0 || weekday > 6 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "weekday must be 0 (Monday) through 6 (Sunday)"})

		return
	}

	records, err := s.store.ByWeekday(c.Request.Context(), weekday)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})

		return
	}

	points := make([]routing.Coordinate, 0, len(records))
	for _, record := range records {
		points = append(points, routing.Coordinate{Lat: record.Lat, Lon: record.Lon})
	}

	points = routing.Downsample(points, s.maxRoutePoints, minRouteSpacingMeters)

	route, err := s.planner.WalkingRoute(c.Request.Context(), points)

	switch {
	case errors.Is(err, routing.ErrNotEnoughPoints):
		c.JSON(http.StatusNotFound, gin.H{"error": "not enough history for that weekday"})

		return
	case err != nil:
		c.JSON(http.StatusBadGateway, gin.H{"error": "route planning failed"})

		return
	}

	c.JSON(http.StatusOK, route)
}

// requestLogger logs each request through the shared zap logger.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.InfoKV(c.Request.Context(), "HTTP request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start).String(),
		)
	}
}
