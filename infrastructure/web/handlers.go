package web

import (
	"chat-room/contract"
	"chat-room/domain/chat"
	apperrors "chat-room/errors"
	"chat-room/observability"
	"chat-room/services"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/samber/lo"
)

// Handlers holds dependencies for the HTTP surface.
type Handlers struct {
	log                  *slog.Logger
	service              services.IChatService
	broadcaster          contract.IBroadcaster
	monitor              *observability.Monitor
	connectionBufferSize int
}

func NewHandlers(log *slog.Logger, service services.IChatService,
	broadcaster contract.IBroadcaster, monitor *observability.Monitor,
	connectionBufferSize int) *Handlers {
	return &Handlers{
		log:                  log,
		service:              service,
		broadcaster:          broadcaster,
		monitor:              monitor,
		connectionBufferSize: connectionBufferSize,
	}
}

type createMessageRequest struct {
	Message *inboundMessage `json:"message"`
}

type errorsResponse struct {
	Errors []string `json:"errors"`
}

type messagePageResponse struct {
	Messages   []messagePayload `json:"messages"`
	Page       int              `json:"page"`
	TotalPages int              `json:"totalPages"`
}

// HandleCreateMessage accepts {"message":{"content":...,"username":...}},
// persists the message and broadcasts it to every subscriber. Validation
// failures come back as a 422 with the error list.
func (h *Handlers) HandleCreateMessage(w http.ResponseWriter, r *http.Request) {
	var req createMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, errorsResponse{Errors: []string{"request body must be valid JSON"}})
		return
	}
	if req.Message == nil {
		respondJSON(w, http.StatusUnprocessableEntity, errorsResponse{Errors: []string{"message object is required"}})
		return
	}

	cmd := chat.PostMessageCommand{}
	if req.Message.Content != nil {
		cmd.Content = *req.Message.Content
	}
	if req.Message.Username != nil {
		cmd.Username = *req.Message.Username
	}

	created, err := h.service.PostMessage(r.Context(), cmd)
	if err != nil {
		if ve, ok := apperrors.AsValidationError(err); ok {
			respondJSON(w, http.StatusUnprocessableEntity, errorsResponse{Errors: ve.Details})
			return
		}
		h.log.Error("Message creation failed", "error", err)
		respondJSON(w, http.StatusInternalServerError, errorsResponse{Errors: []string{"internal error"}})
		return
	}

	respondJSON(w, http.StatusCreated, toMessageResponse(created))
}

// HandleListMessages serves the two listing contracts. Without a page
// parameter the whole history comes back oldest first; with one, a
// newest-first page. The opposite orderings are both deliberate and must
// not be unified.
func (h *Handlers) HandleListMessages(w http.ResponseWriter, r *http.Request) {
	pageParam := r.URL.Query().Get("page")
	if pageParam == "" {
		messages, err := h.service.GetMessages()
		if err != nil {
			h.log.Error("Message listing failed", "error", err)
			respondJSON(w, http.StatusInternalServerError, errorsResponse{Errors: []string{"internal error"}})
			return
		}
		respondJSON(w, http.StatusOK, toMessageResponses(messages))
		return
	}

	page, err := strconv.Atoi(pageParam)
	if err != nil || page < 1 {
		respondJSON(w, http.StatusBadRequest, errorsResponse{Errors: []string{"page must be a positive integer"}})
		return
	}
	result, err := h.service.GetPage(page)
	if err != nil {
		h.log.Error("Message page listing failed", "error", err)
		respondJSON(w, http.StatusInternalServerError, errorsResponse{Errors: []string{"internal error"}})
		return
	}
	respondJSON(w, http.StatusOK, messagePageResponse{
		Messages:   toMessageResponses(result.Messages),
		Page:       result.Page,
		TotalPages: result.TotalPages,
	})
}

// HandleSocket upgrades the connection and hands it to a subscription
// channel. The channel starts in the subscribing state until the client
// requests the topic.
func (h *Handlers) HandleSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error("Websocket upgrade failed", "error", err)
		return
	}

	channel := newChannel(h.log, conn, h.broadcaster, h.service, h.connectionBufferSize)
	go channel.writePump()
	go channel.readPump()
}

type statusResponse struct {
	Subscribers int                 `json:"subscribers"`
	Messages    int                 `json:"messages"`
	Process     observability.Stats `json:"process"`
}

// HandleStatus reports connectivity and process health.
func (h *Handlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	total, err := h.service.CountMessages()
	if err != nil {
		h.log.Error("Message count failed", "error", err)
		respondJSON(w, http.StatusInternalServerError, errorsResponse{Errors: []string{"internal error"}})
		return
	}
	respondJSON(w, http.StatusOK, statusResponse{
		Subscribers: h.broadcaster.Count(),
		Messages:    total,
		Process:     h.monitor.Latest(),
	})
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func toMessageResponses(messages []chat.Message) []messagePayload {
	return lo.Map(messages, func(item chat.Message, _ int) messagePayload {
		return toMessageResponse(item)
	})
}

func toMessageResponse(m chat.Message) messagePayload {
	return messagePayload{
		ID:        m.ID,
		Content:   m.Content,
		Username:  m.Username,
		CreatedAt: m.CreatedAt,
	}
}
