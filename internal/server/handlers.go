package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"stockchart/internal/chart"
	apperrors "stockchart/internal/errors"
	"stockchart/internal/quote"
	"stockchart/internal/validator"
)

type symbolRequest struct {
	Symbol string `json:"symbol" binding:"max=32"`
}

type chartKindRequest struct {
	Kind string `json:"kind" binding:"required,chart_kind"`
}

type windowRequest struct {
	Days int `json:"days" binding:"required,window_days"`
}

func (s *Server) routes() *gin.Engine {
	validator.Register()

	r := gin.New()
	r.Use(recovery(s.log))
	r.Use(requestLogging(s.log))
	r.Use(cors())
	r.Use(limitBody())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	api.GET("/state", s.getState)
	api.POST("/search", s.postSearch)
	api.GET("/chart", s.getChart)

	v := api.Group("/view")
	v.PUT("/symbol", s.putSymbol)
	v.PUT("/chart", s.putChartKind)
	v.PUT("/window", s.putWindow)
	v.POST("/theme/toggle", s.postToggleTheme)

	if s.hub != nil {
		r.GET("/ws", s.hub.serveWS)
	}
	return r
}

func (s *Server) getState(c *gin.Context) {
	c.JSON(http.StatusOK, s.ctrl.Snapshot())
}

func (s *Server) putSymbol(c *gin.Context) {
	var req symbolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.Wrap(apperrors.ErrInvalidInput, err))
		return
	}
	s.ctrl.SetSymbol(req.Symbol)
	s.notify()
	c.JSON(http.StatusOK, s.ctrl.Snapshot())
}

// postSearch starts a refresh and returns at once; the outcome arrives via
// /api/state, /api/chart and /ws.
func (s *Server) postSearch(c *gin.Context) {
	snap := s.ctrl.Snapshot()
	if snap.Symbol == "" {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "Symbol is required"))
		return
	}
	s.startSearch()
	c.JSON(http.StatusAccepted, gin.H{"symbol": snap.Symbol, "window_days": snap.WindowDays})
}

func (s *Server) putChartKind(c *gin.Context) {
	var req chartKindRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.Wrap(apperrors.ErrInvalidInput, err))
		return
	}
	kind, err := chart.ParseKind(req.Kind)
	if err != nil {
		respondWithError(c, apperrors.Wrap(apperrors.ErrInvalidInput, err))
		return
	}
	if err := s.ctrl.SetChartKind(kind); err != nil {
		respondWithError(c, apperrors.Wrap(apperrors.ErrInvalidInput, err))
		return
	}
	s.notify()
	c.JSON(http.StatusOK, s.ctrl.Snapshot())
}

func (s *Server) putWindow(c *gin.Context) {
	var req windowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.Wrap(apperrors.ErrInvalidInput, err))
		return
	}
	if err := s.ctrl.SetWindowDays(req.Days); err != nil {
		respondWithError(c, apperrors.Wrap(apperrors.ErrInvalidInput, err))
		return
	}
	s.notify()
	c.JSON(http.StatusOK, s.ctrl.Snapshot())
}

func (s *Server) postToggleTheme(c *gin.Context) {
	theme := s.ctrl.ToggleTheme()
	s.notify()
	c.JSON(http.StatusOK, gin.H{"theme": theme})
}

// getChart shapes the current records for the selected chart kind.
func (s *Server) getChart(c *gin.Context) {
	snap := s.ctrl.Snapshot()
	switch snap.Fetch.Status {
	case quote.StatusLoading:
		c.JSON(http.StatusAccepted, gin.H{"status": snap.Fetch.Status, "symbol": snap.Fetch.Symbol})
	case quote.StatusFailed:
		respondWithError(c, apperrors.FromErrorKind(snap.Fetch.Error))
	case quote.StatusReady:
		series, err := chart.Build(snap.ChartKind, snap.Fetch.Records)
		if err != nil {
			respondWithError(c, err)
			return
		}
		series.Symbol = snap.Fetch.Symbol
		c.JSON(http.StatusOK, series)
	default:
		respondWithError(c, apperrors.ErrNoData)
	}
}

// notify pushes the view state to WebSocket clients after a change the
// pipeline does not publish.
func (s *Server) notify() {
	if s.hub != nil {
		s.hub.Notify()
	}
}

func errorBody(e *apperrors.AppError) gin.H {
	return gin.H{
		"error": gin.H{
			"code":    e.Code,
			"message": e.Message,
		},
	}
}

// respondWithError writes a consistent JSON error response. AppErrors keep
// their status, code and message; anything else is logged and reported as a
// generic internal error.
func respondWithError(c *gin.Context, err error) {
	log := loggerFrom(c)
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		if appErr.Internal != nil {
			log.Infow("request rejected",
				"code", appErr.Code,
				"internal", appErr.Internal.Error(),
				"path", c.Request.URL.Path,
			)
		}
		c.JSON(appErr.StatusCode, errorBody(appErr))
		return
	}

	log.Errorw("unexpected error",
		"error", err.Error(),
		"path", c.Request.URL.Path,
		"method", c.Request.Method,
	)
	c.JSON(apperrors.ErrInternalServer.StatusCode, errorBody(apperrors.ErrInternalServer))
}
