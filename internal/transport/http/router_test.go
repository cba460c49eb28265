package httptransport_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	httptransport "github.com/ErlanBelekov/answerkey-relay/internal/transport/http"
	"github.com/ErlanBelekov/answerkey-relay/internal/transport/http/handler"
	"github.com/ErlanBelekov/answerkey-relay/internal/usecase"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const testKey = "router-test-secret-at-least-32-chars"

type echoConversation struct{}

func (echoConversation) HandleCommand(_ context.Context, userID, _ string) usecase.Reply {
	return usecase.Reply{Kind: usecase.ReplyText, Text: "hello " + userID}
}

func (echoConversation) HandleCallback(context.Context, string, string) usecase.Reply {
	return usecase.Reply{Kind: usecase.ReplyText}
}

func newRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return httptransport.NewRouter(logger, handler.NewConversationHandler(echoConversation{}, logger), []byte(testKey))
}

func TestRouter_RequiresToken(t *testing.T) {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/commands", strings.NewReader(`{"text":"/start"}`))
	newRouter().ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID header")
	}
}

func TestRouter_AuthenticatedCommand(t *testing.T) {
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "1001",
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testKey))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/commands", strings.NewReader(`{"text":"/start"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+tok)
	newRouter().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), "hello 1001") {
		t.Errorf("body = %s", w.Body.String())
	}
	if w.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("security headers missing")
	}
}
