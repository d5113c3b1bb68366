package handlers

import (
	"net/http"
	"time"

	"serenity/models"
	"serenity/services/approval"
	"serenity/services/messaging"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"go.uber.org/zap"
)

// ultraMsgMessage is the provider's message shape, accepted both as a
// flat payload and wrapped in a "data" envelope, as form data or JSON.
type ultraMsgMessage struct {
	From     string `json:"from" form:"from"`
	To       string `json:"to" form:"to"`
	Body     string `json:"body" form:"body"`
	ID       string `json:"id" form:"id"`
	Type     string `json:"type" form:"type"`
	FromMe   bool   `json:"fromMe" form:"fromMe"`
	PushName string `json:"pushname" form:"pushname"`
}

type ultraMsgEnvelope struct {
	Data *ultraMsgMessage `json:"data"`
}

// WebhookHandler converts UltraMsg webhook payloads into the typed
// inbound tuple and hands it to the approval workflow. Everything
// provider-specific stays on this side of the boundary.
type WebhookHandler struct {
	Workflow approval.ApprovalWorkflow
	Token    string // optional shared webhook token
	Logger   *zap.Logger
}

func NewWebhookHandler(workflow approval.ApprovalWorkflow, token string, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{Workflow: workflow, Token: token, Logger: logger}
}

// UltraMsgWebhook ingests one inbound WhatsApp event.
func (h *WebhookHandler) UltraMsgWebhook(c *gin.Context) {
	if h.Token != "" && c.Query("token") != h.Token {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid webhook token"})
		return
	}

	msg, ok := h.decode(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable webhook payload"})
		return
	}

	// Echoes of our own outbound sends come back on the same hook.
	if msg.FromMe {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "outbound message ignored"})
		return
	}
	if (msg.Type != "" && msg.Type != "text") || msg.Body == "" {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "non-text message ignored"})
		return
	}

	inbound := models.InboundMessage{
		From:              messaging.CleanPhone(msg.From),
		To:                messaging.CleanPhone(msg.To),
		Body:              msg.Body,
		ProviderMessageID: msg.ID,
		PushName:          msg.PushName,
		ReceivedAt:        time.Now().UTC(),
	}

	if err := h.Workflow.HandleInbound(c.Request.Context(), inbound); err != nil {
		// Still 200: the failure was already reported through the
		// coordinator path, and a gateway retry would only replay it.
		h.Logger.Error("failed to process inbound message",
			zap.String("from", inbound.From), zap.Error(err))
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *WebhookHandler) decode(c *gin.Context) (*ultraMsgMessage, bool) {
	contentType := c.ContentType()
	if contentType == "application/json" {
		var envelope ultraMsgEnvelope
		if err := c.ShouldBindBodyWith(&envelope, binding.JSON); err == nil && envelope.Data != nil {
			return envelope.Data, true
		}
		var flat ultraMsgMessage
		if err := c.ShouldBindBodyWith(&flat, binding.JSON); err != nil {
			h.Logger.Warn("unreadable JSON webhook payload", zap.Error(err))
			return nil, false
		}
		return &flat, true
	}

	var form ultraMsgMessage
	if err := c.ShouldBind(&form); err != nil {
		h.Logger.Warn("unreadable form webhook payload", zap.Error(err))
		return nil, false
	}
	return &form, true
}
