package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/leadscout/leadscout/pkg/leads"
	"github.com/leadscout/leadscout/pkg/session"
	"github.com/leadscout/leadscout/pkg/vault"
)

// MCPSession represents an MCP session
type MCPSession struct {
	ID      string
	Created int64
}

var (
	mcpSessions = make(map[string]*MCPSession)
	sessionMu   sync.RWMutex
)

// MCPRequest represents an MCP JSON-RPC request
type MCPRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// MCPResponse represents an MCP JSON-RPC response
type MCPResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *MCPError   `json:"error,omitempty"`
}

// MCPError represents an MCP error
type MCPError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type Handler struct {
	Service *Service
}

func NewHandler(s *Service) *Handler {
	return &Handler{Service: s}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.POST("/mcp", h.MCPHandler)
	api := r.Group("/api")
	{
		api.GET("/suggestions", h.getSuggestions)
		api.GET("/contact-link", h.getContactLink)
		api.GET("/vault/search", h.searchVault)
		api.GET("/vault/leads", h.listVault)

		// Session Routes
		api.POST("/sessions", h.createSession)
		api.POST("/sessions/:id/search", h.search)
		api.POST("/sessions/:id/new-chat", h.newChat)
		api.GET("/sessions/:id/thread", h.getThread)
		api.GET("/sessions/:id/history", h.getHistory)
		api.POST("/sessions/:id/history/:itemID/restore", h.restore)
		api.POST("/sessions/:id/leads", h.saveLead)
		api.GET("/sessions/:id/leads", h.getSavedLeads)
	}
}

func (h *Handler) createSession(c *gin.Context) {
	id := h.Service.CreateSession()
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

// lookupSession resolves the :id path param and writes the error response
// itself when the session cannot be found.
func (h *Handler) lookupSession(c *gin.Context) (*session.Session, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid uuid"})
		return nil, false
	}
	sess, ok := h.Service.Session(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return nil, false
	}
	return sess, true
}

func (h *Handler) search(c *gin.Context) {
	sess, ok := h.lookupSession(c)
	if !ok {
		return
	}

	var req struct {
		Query string `json:"query"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	entry, err := sess.Submit(c.Request.Context(), req.Query)
	switch {
	case errors.Is(err, session.ErrEmptyQuery):
		c.JSON(http.StatusBadRequest, gin.H{"error": "query is empty"})
	case errors.Is(err, session.ErrBusy):
		c.JSON(http.StatusConflict, gin.H{"error": "a request is already in flight"})
	case errors.Is(err, session.ErrSuperseded):
		c.JSON(http.StatusGone, gin.H{"error": "thread was reset while the request was in flight"})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusOK, entry)
	}
}

func (h *Handler) newChat(c *gin.Context) {
	sess, ok := h.lookupSession(c)
	if !ok {
		return
	}
	sess.StartNewChat()
	c.Status(http.StatusNoContent)
}

func (h *Handler) getThread(c *gin.Context) {
	sess, ok := h.lookupSession(c)
	if !ok {
		return
	}
	thread := sess.Thread()
	if thread == nil {
		thread = []session.ThreadEntry{}
	}
	c.JSON(http.StatusOK, thread)
}

func (h *Handler) getHistory(c *gin.Context) {
	sess, ok := h.lookupSession(c)
	if !ok {
		return
	}
	history := sess.History()
	if history == nil {
		history = []leads.HistoryItem{}
	}
	c.JSON(http.StatusOK, history)
}

func (h *Handler) restore(c *gin.Context) {
	sess, ok := h.lookupSession(c)
	if !ok {
		return
	}
	if err := sess.Restore(c.Param("itemID")); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "history item not found"})
		return
	}
	c.JSON(http.StatusOK, sess.Thread())
}

func (h *Handler) saveLead(c *gin.Context) {
	sess, ok := h.lookupSession(c)
	if !ok {
		return
	}

	var lead leads.Lead
	if err := c.ShouldBindJSON(&lead); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if lead.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "lead name is required"})
		return
	}

	saved := sess.SaveLead(lead)
	if saved && h.Service.Vault() != nil {
		if err := h.Service.Vault().Archive(c.Request.Context(), lead); err != nil {
			// The in-memory save already happened; report the persistence
			// failure without undoing it.
			c.JSON(http.StatusOK, gin.H{"saved": true, "archived": false, "error": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"saved": saved, "archived": saved && h.Service.Vault() != nil})
}

func (h *Handler) getSavedLeads(c *gin.Context) {
	sess, ok := h.lookupSession(c)
	if !ok {
		return
	}
	saved := sess.SavedLeads()
	if saved == nil {
		saved = []leads.SavedLead{}
	}
	c.JSON(http.StatusOK, saved)
}

func (h *Handler) getSuggestions(c *gin.Context) {
	c.JSON(http.StatusOK, h.Service.Suggestions())
}

func (h *Handler) getContactLink(c *gin.Context) {
	url := leads.ContactURL(c.Query("type"), c.Query("value"))
	if url == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "value is empty"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}

func (h *Handler) searchVault(c *gin.Context) {
	if h.Service.Vault() == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "vault is not configured"})
		return
	}
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "q is required"})
		return
	}
	topK, _ := strconv.Atoi(c.DefaultQuery("topK", "5"))

	matches, err := h.Service.Vault().Search(c.Request.Context(), query, topK)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if matches == nil {
		matches = []vault.Match{}
	}
	c.JSON(http.StatusOK, matches)
}

func (h *Handler) listVault(c *gin.Context) {
	if h.Service.Vault() == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "vault is not configured"})
		return
	}
	archived, err := h.Service.Vault().List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if archived == nil {
		archived = []leads.SavedLead{}
	}
	c.JSON(http.StatusOK, archived)
}

// MCPHandler handles MCP protocol requests
func (h *Handler) MCPHandler(c *gin.Context) {
	sessionID := c.GetHeader("Mcp-Session-Id")

	var req MCPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, MCPResponse{
			JSONRPC: "2.0",
			ID:      nil,
			Error: &MCPError{
				Code:    -32700,
				Message: "Parse error",
			},
		})
		return
	}

	// Handle initialize request
	if req.Method == "initialize" {
		if sessionID == "" {
			sessionID = uuid.New().String()
			c.Header("Mcp-Session-Id", sessionID)

			sessionMu.Lock()
			mcpSessions[sessionID] = &MCPSession{
				ID:      sessionID,
				Created: time.Now().Unix(),
			}
			sessionMu.Unlock()
		}

		c.JSON(http.StatusOK, MCPResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Result: map[string]interface{}{
				"protocolVersion": "2024-11-05",
				"serverInfo": map[string]interface{}{
					"name":    "leadscout-mcp",
					"version": "1.0.0",
				},
				"capabilities": map[string]interface{}{
					"tools": map[string]interface{}{},
				},
			},
		})
		return
	}

	// Validate session for other requests
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, MCPResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error: &MCPError{
				Code:    -32000,
				Message: "Bad Request: No valid session ID provided",
			},
		})
		return
	}

	sessionMu.RLock()
	_, exists := mcpSessions[sessionID]
	sessionMu.RUnlock()

	if !exists {
		c.JSON(http.StatusBadRequest, MCPResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error: &MCPError{
				Code:    -32000,
				Message: "Invalid session ID",
			},
		})
		return
	}

	switch req.Method {
	case "tools/list":
		h.handleToolsList(c, req)
	case "tools/call":
		h.handleToolsCall(c, req)
	case "ping":
		c.JSON(http.StatusOK, MCPResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Result:  map[string]interface{}{},
		})
	default:
		c.JSON(http.StatusOK, MCPResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error: &MCPError{
				Code:    -32601,
				Message: "Method not found",
			},
		})
	}
}

func (h *Handler) handleToolsList(c *gin.Context, req MCPRequest) {
	c.JSON(http.StatusOK, MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": []map[string]interface{}{
				{
					"name":        "search_leads",
					"description": "Research business leads matching a natural-language query.",
					"inputSchema": map[string]interface{}{
						"type": "object",
						"properties": map[string]interface{}{
							"query": map[string]interface{}{
								"type":        "string",
								"description": "The lead-research query.",
							},
						},
						"required": []string{"query"},
					},
				},
				{
					"name":        "search_vault",
					"description": "Search previously archived leads by semantic similarity.",
					"inputSchema": map[string]interface{}{
						"type": "object",
						"properties": map[string]interface{}{
							"query": map[string]interface{}{
								"type":        "string",
								"description": "The search query.",
							},
							"topK": map[string]interface{}{
								"type":        "number",
								"description": "The number of top results to return.",
								"default":     5,
							},
						},
						"required": []string{"query"},
					},
				},
			},
		},
	})
}

func (h *Handler) handleToolsCall(c *gin.Context, req MCPRequest) {
	var params struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments"`
	}

	if err := json.Unmarshal(req.Params, &params); err != nil {
		c.JSON(http.StatusOK, MCPResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error: &MCPError{
				Code:    -32602,
				Message: "Invalid params",
			},
		})
		return
	}

	switch params.Name {
	case "search_leads":
		var args struct {
			Query string `json:"query"`
		}
		if err := json.Unmarshal(params.Arguments, &args); err != nil {
			h.sendError(c, req.ID, -32602, "Invalid arguments")
			return
		}
		result, err := h.Service.Search(c.Request.Context(), args.Query)
		if err != nil {
			h.sendError(c, req.ID, -32603, err.Error())
			return
		}
		h.sendResult(c, req.ID, renderResult(result))

	case "search_vault":
		if h.Service.Vault() == nil {
			h.sendError(c, req.ID, -32603, "vault is not configured")
			return
		}
		var args struct {
			Query string `json:"query"`
			TopK  int    `json:"topK"`
		}
		if err := json.Unmarshal(params.Arguments, &args); err != nil {
			h.sendError(c, req.ID, -32602, "Invalid arguments")
			return
		}
		matches, err := h.Service.Vault().Search(c.Request.Context(), args.Query, args.TopK)
		if err != nil {
			h.sendError(c, req.ID, -32603, err.Error())
			return
		}
		text := ""
		for _, m := range matches {
			text += fmt.Sprintf("# %s (score %.2f)\n%s\n\n", m.Lead.Name, m.Score, m.Snippet)
		}
		if text == "" {
			text = "No archived leads matched."
		}
		h.sendResult(c, req.ID, text)

	default:
		h.sendError(c, req.ID, -32601, fmt.Sprintf("Tool not found: %s", params.Name))
	}
}

// renderResult flattens a normalized result into tool-friendly text.
func renderResult(result *leads.Result) string {
	switch result.Mode {
	case leads.ModeLead:
		text := ""
		for _, lead := range result.Leads {
			text += fmt.Sprintf("# %s (%s, %s)\nMatch %.0f%% | Heat %.0f%%\n%s\n\n",
				lead.Name, lead.Industry, lead.Location, lead.MatchScore, lead.MarketHeat, lead.Description)
		}
		if result.Explanation != "" {
			text += result.Explanation + "\n"
		}
		return text
	case leads.ModeText:
		text := result.Summary
		for _, p := range result.Paragraphs {
			text += "\n\n" + p
		}
		return text
	default:
		if result.OutOfContextMessage != "" {
			return result.OutOfContextMessage
		}
		return "I couldn't find matches for this request."
	}
}

func (h *Handler) sendError(c *gin.Context, id interface{}, code int, msg string) {
	c.JSON(http.StatusOK, MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: msg,
		},
	})
}

func (h *Handler) sendResult(c *gin.Context, id interface{}, text string) {
	c.JSON(http.StatusOK, MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": text,
				},
			},
		},
	})
}
