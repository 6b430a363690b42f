package api

import (
	"context"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/rawblock/wallet-forensics/internal/orchestrate"
	"github.com/rawblock/wallet-forensics/internal/store"
)

// APIHandler wires the orchestrator, the persistence layer, and the
// websocket hub into gin route handlers.
type APIHandler struct {
	orch  *orchestrate.Orchestrator
	store *store.PostgresStore
	hub   *Hub
}

// NewAPIHandler constructs an APIHandler. store may be nil, in which case
// investigations are served from the orchestrator's in-memory state only.
func NewAPIHandler(orch *orchestrate.Orchestrator, st *store.PostgresStore, hub *Hub) *APIHandler {
	return &APIHandler{orch: orch, store: st, hub: hub}
}

// SetupRouter builds the full gin engine: public health/stream endpoints,
// and auth+rate-limited investigation endpoints.
func SetupRouter(h *APIHandler, limiter *RateLimiter) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger())

	// CORS, configurable via ALLOWED_ORIGINS (comma separated, empty or "*" allows any origin).
	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if allowedOrigins == "" || allowedOrigins == "*" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		} else {
			for _, allowed := range strings.Split(allowedOrigins, ",") {
				if strings.TrimSpace(allowed) == origin {
					c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
					break
				}
			}
		}
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	})

	v1 := r.Group("/api/v1")
	v1.GET("/health", h.handleHealth)
	v1.GET("/stream", func(c *gin.Context) { h.hub.Subscribe(c) })

	protected := v1.Group("")
	protected.Use(AuthMiddleware())
	if limiter != nil {
		protected.Use(limiter.Middleware())
	}
	protected.POST("/investigate", h.handleInvestigate)
	protected.GET("/investigation/:id", h.handleGetInvestigation)
	protected.GET("/investigation/:id/report", h.handleGetReport)
	protected.GET("/investigations", h.handleListInvestigations)

	return r
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Printf("[api] %s %s %d %s", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}

func (h *APIHandler) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type investigateRequest struct {
	Address         string `json:"address" binding:"required"`
	Profile         string `json:"profile"`
	Depth           *int   `json:"depth"`
	MaxTransactions *int   `json:"maxTransactions"`
	IncludeAI       bool   `json:"includeAi"`
}

// handleInvestigate starts an investigation asynchronously and returns a
// tracking id immediately; the state machine's progress is polled via
// GET /investigation/:id or streamed over the websocket hub.
func (h *APIHandler) handleInvestigate(c *gin.Context) {
	var req investigateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	opts := orchestrate.Options{
		Profile:   req.Profile,
		IncludeAI: req.IncludeAI,
	}
	if req.Depth != nil {
		opts.Depth = *req.Depth
	}
	if req.MaxTransactions != nil {
		opts.MaxTransactions = *req.MaxTransactions
	}

	id := uuid.NewString()

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		report, err := h.orch.Investigate(ctx, id, req.Address, opts)

		stage := string(orchestrate.StageReported)
		errMsg := ""
		if err != nil {
			stage = string(orchestrate.StageFailed)
			errMsg = err.Error()
			log.Printf("[api] investigation %s failed: %v", id, err)
		}
		if h.hub != nil {
			h.hub.BroadcastStage(id, req.Address, stage, errMsg)
		}

		if h.store != nil {
			rec := store.CaseRecord{
				ID:            id,
				TargetAddress: req.Address,
				Profile:       opts.Profile,
				Stage:         stage,
				Error:         errMsg,
			}
			if report != nil {
				rec.Report = report
				score := report.RiskAssessment.FinalScore
				rec.FinalScore = &score
				rec.RiskLevel = string(report.RiskAssessment.Level)
			}
			storeCtx, storeCancel := context.WithTimeout(context.Background(), 10*time.Second)
			if err := h.store.UpsertCase(storeCtx, rec); err != nil {
				log.Printf("[api] failed to persist investigation %s: %v", id, err)
			}
			storeCancel()
		}
	}()

	c.JSON(http.StatusAccepted, gin.H{
		"investigationId": id,
		"targetAddress":   req.Address,
		"stage":           string(orchestrate.StageCreated),
	})
}

func (h *APIHandler) handleGetInvestigation(c *gin.Context) {
	id := c.Param("id")

	if inv, ok := h.orch.Lookup(id); ok {
		stage, _, err := inv.Snapshot()
		resp := gin.H{
			"investigationId": id,
			"targetAddress":   inv.TargetAddress,
			"stage":           string(stage),
		}
		if err != nil {
			resp["error"] = err.Error()
		}
		c.JSON(http.StatusOK, resp)
		return
	}

	if h.store != nil {
		rec, err := h.store.GetCase(c.Request.Context(), id)
		if err == nil {
			c.JSON(http.StatusOK, gin.H{
				"investigationId": rec.ID,
				"targetAddress":   rec.TargetAddress,
				"stage":           rec.Stage,
				"error":           rec.Error,
			})
			return
		}
	}

	c.JSON(http.StatusNotFound, gin.H{"error": "investigation not found"})
}

func (h *APIHandler) handleGetReport(c *gin.Context) {
	id := c.Param("id")

	if inv, ok := h.orch.Lookup(id); ok {
		stage, report, err := inv.Snapshot()
		if err != nil {
			c.JSON(http.StatusOK, gin.H{"stage": string(stage), "error": err.Error()})
			return
		}
		if report == nil {
			c.JSON(http.StatusAccepted, gin.H{"stage": string(stage), "message": "report not yet available"})
			return
		}
		c.JSON(http.StatusOK, report)
		return
	}

	if h.store != nil {
		rec, err := h.store.GetCase(c.Request.Context(), id)
		if err == nil && rec.Report != nil {
			c.JSON(http.StatusOK, rec.Report)
			return
		}
	}

	c.JSON(http.StatusNotFound, gin.H{"error": "investigation not found"})
}

func (h *APIHandler) handleListInvestigations(c *gin.Context) {
	address := c.Query("address")
	if address == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "address query parameter is required"})
		return
	}
	if h.store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "persistence is not configured"})
		return
	}

	limit := 50
	if l := c.Query("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil {
			limit = parsed
		}
	}

	cases, err := h.store.ListCasesByAddress(c.Request.Context(), address, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"investigations": cases})
}
