package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/arohner/shale/internal/pool"
	"github.com/arohner/shale/pkg/model"
	"github.com/arohner/shale/pkg/store"
)

// NodeHandler exposes the pool operations over HTTP for operators and the
// session tier.
type NodeHandler struct {
	pool *pool.NodePool
}

func NewNodeHandler(p *pool.NodePool) *NodeHandler {
	return &NodeHandler{pool: p}
}

// NewRouter builds the engine with every handler registered.
func NewRouter(p *pool.NodePool) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), loggingMiddleware())
	NewNodeHandler(p).SetupRoutes(router)
	return router
}

// SetupRoutes registers handler routes to the router.
func (h *NodeHandler) SetupRoutes(r *gin.Engine) {
	r.GET("/healthz", h.healthCheck)

	api := r.Group("/api/v1")
	{
		api.GET("/nodes", h.listNodes)
		api.POST("/nodes", h.createNode)
		api.GET("/nodes/:id", h.getNode)
		api.PATCH("/nodes/:id", h.modifyNode)
		api.DELETE("/nodes/:id", h.destroyNode)
		api.POST("/nodes/refresh", h.refresh)
		api.POST("/nodes/acquire", h.acquire)
	}
}

func (h *NodeHandler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// listNodes returns every node view, optionally filtered by a requirement
// passed in the "requirement" query parameter (JSON pair form).
func (h *NodeHandler) listNodes(c *gin.Context) {
	req, err := model.ParseRequirement(json.RawMessage(c.Query("requirement")))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	views, err := h.pool.Views(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("failed to list nodes: %v", err)})
		return
	}
	out := make([]*model.Node, 0, len(views))
	for _, node := range views {
		if model.Matches(node, req) {
			out = append(out, node)
		}
	}
	c.JSON(http.StatusOK, out)
}

func (h *NodeHandler) createNode(c *gin.Context) {
	var body struct {
		URL         string   `json:"url" binding:"required"`
		Tags        []string `json:"tags"`
		MaxSessions int      `json:"max_sessions"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid request format: %v", err)})
		return
	}

	node, err := h.pool.Create(c.Request.Context(), body.URL, body.Tags, body.MaxSessions)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, pool.ErrURLRegistered) {
			status = http.StatusConflict
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, node)
}

func (h *NodeHandler) getNode(c *gin.Context) {
	node, err := h.pool.View(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, pool.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, node)
}

func (h *NodeHandler) modifyNode(c *gin.Context) {
	var patch model.NodePatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid request format: %v", err)})
		return
	}

	node, err := h.pool.Modify(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		if errors.Is(err, pool.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, node)
}

// destroyNode deletes the persisted record. Store contention surfaces as 409
// so the caller can retry; everything else reports success once the record is
// gone.
func (h *NodeHandler) destroyNode(c *gin.Context) {
	id := c.Param("id")
	if err := h.pool.Destroy(c.Request.Context(), id); err != nil {
		if errors.Is(err, store.ErrTxnConflict) {
			c.JSON(http.StatusConflict, gin.H{"error": "concurrent modification, retry"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "node destroyed", "id": id})
}

func (h *NodeHandler) refresh(c *gin.Context) {
	if err := h.pool.Refresh(c.Request.Context()); err != nil {
		log.Printf("[API] Refresh failed: %v", err)
		if errors.Is(err, store.ErrTxnConflict) {
			c.JSON(http.StatusConflict, gin.H{"error": "concurrent modification, retry"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "refresh complete"})
}

// acquire hands out one under-capacity node matching the requirement in the
// body. No matching node is a normal outcome, reported as 404 with a
// distinguishable body rather than an error payload.
func (h *NodeHandler) acquire(c *gin.Context) {
	var body struct {
		Requirement json.RawMessage `json:"requirement"`
	}
	// An empty body acquires with no requirement.
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid request format: %v", err)})
			return
		}
	}
	req, err := model.ParseRequirement(body.Requirement)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	node, err := h.pool.Get(c.Request.Context(), req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if node == nil {
		c.JSON(http.StatusNotFound, gin.H{"node": nil, "message": "no matching node"})
		return
	}
	c.JSON(http.StatusOK, node)
}
