package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/benvon/quicknode/internal/cache"
	"github.com/benvon/quicknode/internal/database"
	"github.com/benvon/quicknode/internal/models"
	"github.com/benvon/quicknode/internal/queue"
	"github.com/benvon/quicknode/internal/request"
	"github.com/benvon/quicknode/internal/validation"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// maxAncestorDepth bounds the parent walk used for cycle detection
const maxAncestorDepth = 256

// NodeHandler handles node-related requests
type NodeHandler struct {
	nodeRepo database.NodeRepositoryInterface
	cache    *cache.ParseCache
	jobQueue queue.Enqueuer
	logger   *zap.Logger
}

// NewNodeHandler creates a new node handler. jobQueue carries suggestion jobs and may
// be nil, in which case suggestions are unavailable.
func NewNodeHandler(nodeRepo database.NodeRepositoryInterface, parseCache *cache.ParseCache, jobQueue queue.Enqueuer, logger *zap.Logger) *NodeHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NodeHandler{
		nodeRepo: nodeRepo,
		cache:    parseCache,
		jobQueue: jobQueue,
		logger:   logger,
	}
}

// RegisterRoutes registers node routes on the /api/v1 router
func (h *NodeHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/maps/{mapID}/nodes", h.ListNodes).Methods("GET")
	r.HandleFunc("/maps/{mapID}/nodes", h.CreateNode).Methods("POST")
	r.HandleFunc("/maps/{mapID}/nodes/{id}", h.GetNode).Methods("GET")
	r.HandleFunc("/maps/{mapID}/nodes/{id}", h.UpdateNode).Methods("PATCH")
	r.HandleFunc("/maps/{mapID}/nodes/{id}", h.DeleteNode).Methods("DELETE")

	r.HandleFunc("/nodes/{id}/quick-input", h.GetQuickInput).Methods("GET")
	r.HandleFunc("/nodes/{id}/suggest", h.SuggestChildren).Methods("POST")
	r.HandleFunc("/nodes/{id}/ghosts", h.ListGhosts).Methods("GET")
	r.HandleFunc("/nodes/{id}/ghosts", h.DismissGhosts).Methods("DELETE")
	r.HandleFunc("/nodes/{id}/accept", h.AcceptGhost).Methods("POST")
}

// CreateNodeRequest represents a create node request
type CreateNodeRequest struct {
	QuickInput string     `json:"quick_input" validate:"required,max=10000"`
	ParentID   *uuid.UUID `json:"parent_id,omitempty"`
	Type       string     `json:"type,omitempty" validate:"omitempty,node_type"`
}

// UpdateNodeRequest represents an update node request
type UpdateNodeRequest struct {
	QuickInput *string    `json:"quick_input,omitempty" validate:"omitempty,max=10000"`
	ParentID   *uuid.UUID `json:"parent_id,omitempty"`
	Type       *string    `json:"type,omitempty" validate:"omitempty,node_type"`
}

// SuggestRequest represents a request for AI child suggestions
type SuggestRequest struct {
	Count int `json:"count,omitempty" validate:"omitempty,min=1,max=10"`
}

// QuickInputResponse carries the rebuilt quick-input text of a node
type QuickInputResponse struct {
	QuickInput string              `json:"quick_input"`
	Form       models.NodeFormData `json:"form"`
}

// ListNodesResponse represents a page of nodes
type ListNodesResponse struct {
	Nodes  []*models.Node `json:"nodes"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
}

func principalOrUnauthorized(w http.ResponseWriter, r *http.Request) *models.Principal {
	p := request.PrincipalFromContext(r)
	if p == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "Principal not found in context")
	}
	return p
}

// loadOwnedNode fetches a node by the {id} route variable and checks ownership.
// It writes the error response itself.
func (h *NodeHandler) loadOwnedNode(w http.ResponseWriter, r *http.Request, principal *models.Principal) (*models.Node, bool) {
	id, ok := uuidVar(w, r, "id", "node")
	if !ok {
		return nil, false
	}

	node, err := h.nodeRepo.GetByID(r.Context(), id)
	if errors.Is(err, database.ErrNodeNotFound) {
		respondJSONError(w, http.StatusNotFound, "Not Found", "Node not found")
		return nil, false
	}
	if err != nil {
		h.logger.Error("failed_to_get_node", zap.String("node_id", id.String()), zap.Error(err))
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve node")
		return nil, false
	}
	if node.UserID != principal.ID {
		respondJSONError(w, http.StatusForbidden, "Forbidden", "Node does not belong to user")
		return nil, false
	}

	if mapVar, scoped := mux.Vars(r)["mapID"]; scoped && mapVar != node.MapID.String() {
		respondJSONError(w, http.StatusNotFound, "Not Found", "Node not found")
		return nil, false
	}
	return node, true
}

// ListNodes lists the caller's nodes on a map
func (h *NodeHandler) ListNodes(w http.ResponseWriter, r *http.Request) {
	principal := principalOrUnauthorized(w, r)
	if principal == nil {
		return
	}
	mapID, ok := uuidVar(w, r, "mapID", "map")
	if !ok {
		return
	}

	q := r.URL.Query()
	filter := database.NodeFilter{
		UserID:        principal.ID,
		Tag:           q.Get("tag"),
		Assignee:      q.Get("assignee"),
		IncludeGhosts: q.Get("include_ghosts") == "true",
	}
	if t := q.Get("type"); t != "" {
		if err := validation.ValidateNodeType(t); err != nil {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
			return
		}
		nt := models.NodeType(t)
		filter.Type = &nt
	}
	if p := q.Get("parent_id"); p != "" {
		parentID, err := uuid.Parse(p)
		if err != nil {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid parent ID")
			return
		}
		filter.ParentID = &parentID
	}
	if l := q.Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			filter.Limit = parsed
		}
	}
	if o := q.Get("offset"); o != "" {
		if parsed, err := strconv.Atoi(o); err == nil && parsed > 0 {
			filter.Offset = parsed
		}
	}

	nodes, err := h.nodeRepo.ListByMap(r.Context(), mapID, filter)
	if err != nil {
		h.logger.Error("failed_to_list_nodes", zap.String("map_id", mapID.String()), zap.Error(err))
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve nodes")
		return
	}

	respondJSON(w, http.StatusOK, ListNodesResponse{Nodes: nodes, Limit: filter.Limit, Offset: filter.Offset})
}

// CreateNode parses quick input into a new node
func (h *NodeHandler) CreateNode(w http.ResponseWriter, r *http.Request) {
	principal := principalOrUnauthorized(w, r)
	if principal == nil {
		return
	}
	mapID, ok := uuidVar(w, r, "mapID", "map")
	if !ok {
		return
	}

	var req CreateNodeRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	if models.NodeType(req.Type) == models.NodeTypeGhost {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Ghost nodes cannot be created directly")
		return
	}

	text := validation.SanitizeText(req.QuickInput)
	if text == "" {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Quick input is required and cannot be empty after sanitization")
		return
	}

	ctx := r.Context()
	node := &models.Node{
		ID:     uuid.New(),
		MapID:  mapID,
		UserID: principal.ID,
	}

	if req.ParentID != nil {
		if status, msg := h.checkParent(ctx, node, *req.ParentID); status != 0 {
			respondJSONError(w, status, http.StatusText(status), msg)
			return
		}
		node.ParentID = req.ParentID
	}

	h.applyQuickInput(node, text, models.NodeType(req.Type))

	if err := h.nodeRepo.Create(ctx, node); err != nil {
		h.logger.Error("failed_to_create_node", zap.String("map_id", mapID.String()), zap.Error(err))
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to create node")
		return
	}

	respondJSON(w, http.StatusCreated, node)
}

// GetNode retrieves a node by ID
func (h *NodeHandler) GetNode(w http.ResponseWriter, r *http.Request) {
	principal := principalOrUnauthorized(w, r)
	if principal == nil {
		return
	}
	node, ok := h.loadOwnedNode(w, r, principal)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, node)
}

// UpdateNode re-parses new quick input and moves or retypes a node
func (h *NodeHandler) UpdateNode(w http.ResponseWriter, r *http.Request) {
	principal := principalOrUnauthorized(w, r)
	if principal == nil {
		return
	}
	node, ok := h.loadOwnedNode(w, r, principal)
	if !ok {
		return
	}

	var req UpdateNodeRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	ctx := r.Context()
	if req.Type != nil && models.NodeType(*req.Type) == models.NodeTypeGhost {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Nodes cannot be turned into ghosts")
		return
	}

	if req.ParentID != nil {
		if status, msg := h.checkParent(ctx, node, *req.ParentID); status != 0 {
			respondJSONError(w, status, http.StatusText(status), msg)
			return
		}
		node.ParentID = req.ParentID
	}

	var override models.NodeType
	if req.Type != nil {
		override = models.NodeType(*req.Type)
	}

	text := node.QuickInput
	if req.QuickInput != nil {
		text = validation.SanitizeText(*req.QuickInput)
		if text == "" {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", "Quick input cannot be empty after sanitization")
			return
		}
	}
	if req.QuickInput != nil || override != "" {
		h.applyQuickInput(node, text, override)
	}

	if err := h.nodeRepo.Update(ctx, node); err != nil {
		h.logger.Error("failed_to_update_node", zap.String("node_id", node.ID.String()), zap.Error(err))
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to update node")
		return
	}

	respondJSON(w, http.StatusOK, node)
}

// DeleteNode deletes a node and its subtree
func (h *NodeHandler) DeleteNode(w http.ResponseWriter, r *http.Request) {
	principal := principalOrUnauthorized(w, r)
	if principal == nil {
		return
	}
	node, ok := h.loadOwnedNode(w, r, principal)
	if !ok {
		return
	}

	if err := h.nodeRepo.Delete(r.Context(), node.ID); err != nil && !errors.Is(err, database.ErrNodeNotFound) {
		h.logger.Error("failed_to_delete_node", zap.String("node_id", node.ID.String()), zap.Error(err))
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to delete node")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetQuickInput rebuilds the quick-input text of a node for editing
func (h *NodeHandler) GetQuickInput(w http.ResponseWriter, r *http.Request) {
	principal := principalOrUnauthorized(w, r)
	if principal == nil {
		return
	}
	node, ok := h.loadOwnedNode(w, r, principal)
	if !ok {
		return
	}

	form := models.NodeToFormData(node)
	respondJSON(w, http.StatusOK, QuickInputResponse{QuickInput: form.QuickInput, Form: form})
}

// SuggestChildren enqueues a node_suggest job
func (h *NodeHandler) SuggestChildren(w http.ResponseWriter, r *http.Request) {
	principal := principalOrUnauthorized(w, r)
	if principal == nil {
		return
	}
	node, ok := h.loadOwnedNode(w, r, principal)
	if !ok {
		return
	}
	if node.IsGhost() {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Cannot suggest children for a suggestion")
		return
	}
	if h.jobQueue == nil {
		respondJSONError(w, http.StatusServiceUnavailable, "Service Unavailable", "Suggestions are not available")
		return
	}

	var req SuggestRequest
	if r.ContentLength != 0 {
		if !decodeAndValidate(w, r, &req) {
			return
		}
	}

	job := queue.NewSuggestJob(principal.ID, node.ID, req.Count)
	if err := h.jobQueue.Enqueue(r.Context(), job); err != nil {
		h.logger.Error("failed_to_enqueue_suggest_job", zap.String("node_id", node.ID.String()), zap.Error(err))
		respondJSONError(w, http.StatusServiceUnavailable, "Service Unavailable", "Failed to schedule suggestions")
		return
	}

	respondJSON(w, http.StatusAccepted, map[string]string{"job_id": job.ID.String()})
}

// ListGhosts lists the pending suggestions under a node
func (h *NodeHandler) ListGhosts(w http.ResponseWriter, r *http.Request) {
	principal := principalOrUnauthorized(w, r)
	if principal == nil {
		return
	}
	node, ok := h.loadOwnedNode(w, r, principal)
	if !ok {
		return
	}

	ghosts, err := h.nodeRepo.ListGhosts(r.Context(), node.ID)
	if err != nil {
		h.logger.Error("failed_to_list_ghosts", zap.String("node_id", node.ID.String()), zap.Error(err))
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve suggestions")
		return
	}
	respondJSON(w, http.StatusOK, ghosts)
}

// DismissGhosts deletes every pending suggestion under a node
func (h *NodeHandler) DismissGhosts(w http.ResponseWriter, r *http.Request) {
	principal := principalOrUnauthorized(w, r)
	if principal == nil {
		return
	}
	node, ok := h.loadOwnedNode(w, r, principal)
	if !ok {
		return
	}

	removed, err := h.nodeRepo.DeleteGhosts(r.Context(), node.ID)
	if err != nil {
		h.logger.Error("failed_to_delete_ghosts", zap.String("node_id", node.ID.String()), zap.Error(err))
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to dismiss suggestions")
		return
	}
	respondJSON(w, http.StatusOK, map[string]int64{"removed": removed})
}

// AcceptGhost turns a suggestion into a regular node
func (h *NodeHandler) AcceptGhost(w http.ResponseWriter, r *http.Request) {
	principal := principalOrUnauthorized(w, r)
	if principal == nil {
		return
	}
	node, ok := h.loadOwnedNode(w, r, principal)
	if !ok {
		return
	}
	if !node.IsGhost() {
		respondJSONError(w, http.StatusConflict, "Conflict", "Node is not a suggestion")
		return
	}

	accepted, err := h.nodeRepo.AcceptGhost(r.Context(), node.ID)
	if err != nil {
		h.logger.Error("failed_to_accept_ghost", zap.String("node_id", node.ID.String()), zap.Error(err))
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to accept suggestion")
		return
	}

	respondJSON(w, http.StatusOK, accepted)
}

// applyQuickInput parses text onto node. Relative dates are pinned to absolute ones
// first, so the stored quick input keeps the due date the user saw. An explicit type
// wins; otherwise text and task nodes follow the parsed metadata and other types are kept.
func (h *NodeHandler) applyQuickInput(node *models.Node, text string, override models.NodeType) {
	text = h.cache.Parser().PinRelativeDates(text)
	data := models.TransformToNodeData(h.cache.Parse(text))
	node.QuickInput = text
	node.Content = data.Content
	node.Metadata = data.Metadata

	switch {
	case override != "":
		node.Type = override
	case node.Type == "" || node.Type == models.NodeTypeText || node.Type == models.NodeTypeTask:
		node.Type = data.Type
	}
}

// checkParent validates a new parent for node. It returns a zero status when the
// parent is acceptable.
func (h *NodeHandler) checkParent(ctx context.Context, node *models.Node, parentID uuid.UUID) (int, string) {
	if parentID == node.ID {
		return http.StatusBadRequest, "A node cannot be its own parent"
	}

	parent, err := h.nodeRepo.GetByID(ctx, parentID)
	if errors.Is(err, database.ErrNodeNotFound) {
		return http.StatusBadRequest, "Parent node not found"
	}
	if err != nil {
		h.logger.Error("failed_to_get_parent_node", zap.String("parent_id", parentID.String()), zap.Error(err))
		return http.StatusInternalServerError, "Failed to retrieve parent node"
	}
	if parent.UserID != node.UserID || parent.MapID != node.MapID {
		return http.StatusBadRequest, "Parent node must be on the same map"
	}
	if parent.IsGhost() {
		return http.StatusBadRequest, "Parent node cannot be a suggestion"
	}

	// Walk up from the new parent; reaching node means the move creates a cycle
	current := parent
	for depth := 0; current.ParentID != nil; depth++ {
		if *current.ParentID == node.ID {
			return http.StatusBadRequest, "Moving the node there would create a cycle"
		}
		if depth >= maxAncestorDepth {
			return http.StatusBadRequest, "Node hierarchy is too deep"
		}
		current, err = h.nodeRepo.GetByID(ctx, *current.ParentID)
		if err != nil {
			h.logger.Error("failed_to_walk_ancestors", zap.String("node_id", node.ID.String()), zap.Error(err))
			return http.StatusInternalServerError, fmt.Sprintf("Failed to verify ancestors of node %s", node.ID)
		}
	}
	return 0, ""
}
