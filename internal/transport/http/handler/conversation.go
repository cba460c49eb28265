package handler

import (
	"context"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/ErlanBelekov/answerkey-relay/internal/transport/http/middleware"
	"github.com/ErlanBelekov/answerkey-relay/internal/usecase"
	"github.com/gin-gonic/gin"
)

type conversationUsecaser interface {
	HandleCommand(ctx context.Context, userID, text string) usecase.Reply
	HandleCallback(ctx context.Context, userID, data string) usecase.Reply
}

type ConversationHandler struct {
	usecase conversationUsecaser
	logger  *slog.Logger
}

func NewConversationHandler(uc conversationUsecaser, logger *slog.Logger) *ConversationHandler {
	return &ConversationHandler{usecase: uc, logger: logger.With("component", "conversation_handler")}
}

type commandRequest struct {
	Text string `json:"text" binding:"required,max=512"`
}

type callbackRequest struct {
	Data string `json:"data" binding:"required,max=64"`
}

type replyResponse struct {
	Kind  usecase.ReplyKind `json:"kind"`
	Text  string            `json:"text"`
	Items []usecase.Button  `json:"items,omitempty"`
	Prev  bool              `json:"prev,omitempty"`
	Next  bool              `json:"next,omitempty"`
}

func (h *ConversationHandler) Command(ctx *gin.Context) {
	userID, ok := userIDFrom(ctx)
	if !ok {
		return
	}

	var req commandRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.render(ctx, h.usecase.HandleCommand(ctx.Request.Context(), userID, req.Text))
}

func (h *ConversationHandler) Callback(ctx *gin.Context) {
	userID, ok := userIDFrom(ctx)
	if !ok {
		return
	}

	var req callbackRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.render(ctx, h.usecase.HandleCallback(ctx.Request.Context(), userID, req.Data))
}

func (h *ConversationHandler) render(ctx *gin.Context, reply usecase.Reply) {
	if reply.Kind == usecase.ReplyDocument {
		h.sendDocument(ctx, reply)
		return
	}

	ctx.JSON(http.StatusOK, replyResponse{
		Kind:  reply.Kind,
		Text:  reply.Text,
		Items: reply.Buttons,
		Prev:  reply.HasPrev,
		Next:  reply.HasNext,
	})
}

// sendDocument streams the PDF and releases the temp file whatever happens.
func (h *ConversationHandler) sendDocument(ctx *gin.Context, reply usecase.Reply) {
	doc := reply.Document
	defer func() {
		if err := doc.Release(); err != nil {
			h.logger.ErrorContext(ctx.Request.Context(), "release document", "error", err)
		}
	}()

	f, err := doc.Open()
	if err != nil {
		h.logger.ErrorContext(ctx.Request.Context(), "open document", "error", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": errFileUnavailable})
		return
	}
	defer f.Close()

	ctx.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": doc.FileName}))
	// header values cannot carry newlines
	ctx.Header("X-Caption", strings.ReplaceAll(reply.Text, "\n", " | "))
	ctx.Header("X-Remaining-Downloads", strconv.Itoa(reply.Remaining))
	ctx.DataFromReader(http.StatusOK, doc.Size, "application/pdf", f, nil)
}

func userIDFrom(ctx *gin.Context) (string, bool) {
	userID := ctx.GetString(middleware.UserIDKey)
	if userID == "" {
		ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errMissingUser})
		return "", false
	}
	return userID, true
}
