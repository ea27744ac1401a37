// Package handler consumes security events pushed by Pub/Sub.
package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"bidhub/config"
	deliverycontext "bidhub/internal/delivery/context"
	"bidhub/internal/domain/constants"
	"bidhub/internal/domain/entity"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"go.uber.org/fx"
	"google.golang.org/api/idtoken"
)

// PubSubMessage represents the structure of a Pub/Sub push message
type PubSubMessage struct {
	Message struct {
		Data        string            `json:"data"`
		Attributes  map[string]string `json:"attributes,omitempty"`
		MessageID   string            `json:"messageId"`
		PublishTime string            `json:"publishTime"`
	} `json:"message"`
	Subscription string `json:"subscription"`
}

// TokenValidator checks the OIDC token Pub/Sub attaches to push requests.
type TokenValidator func(ctx context.Context, token, audience string) (*idtoken.Payload, error)

// AuditHandler writes every pushed security event to the audit log.
type AuditHandler struct {
	verifyPushAuth bool
	validate       TokenValidator
	logger         *slog.Logger
}

// AuditHandlerParams holds dependencies for the AuditHandler
type AuditHandlerParams struct {
	fx.In

	Config *config.Config
	Logger *slog.Logger
}

// NewAuditHandler creates a new Pub/Sub push handler for security events
func NewAuditHandler(params AuditHandlerParams) *AuditHandler {
	// Only Google signs push requests, and only outside development.
	verifyPushAuth := params.Config.PubSub != nil &&
		params.Config.PubSub.Provider == constants.PubSubProviderGoogle &&
		!params.Config.IsDevelopment()

	return &AuditHandler{
		verifyPushAuth: verifyPushAuth,
		validate:       idtoken.Validate,
		logger:         params.Logger,
	}
}

// HandlePush handles POST /push. Malformed messages are rejected with 400 so
// they land in the dead letter topic instead of being retried forever.
func (h *AuditHandler) HandlePush(c echo.Context) error {
	ctx := c.Request().Context()

	if h.verifyPushAuth {
		if err := h.verifyPubSubToken(c.Request()); err != nil {
			h.logger.Warn("[Audit] Invalid Pub/Sub token", slog.Any("error", err))

			return c.NoContent(http.StatusUnauthorized)
		}
	}

	var pushMsg PubSubMessage
	if err := c.Bind(&pushMsg); err != nil {
		h.logger.Error("[Audit] Failed to parse push message", slog.Any("error", err))

		return c.NoContent(http.StatusBadRequest)
	}

	data, err := base64.StdEncoding.DecodeString(pushMsg.Message.Data)
	if err != nil {
		h.logger.Error("[Audit] Failed to decode message data", slog.Any("error", err))

		return c.NoContent(http.StatusBadRequest)
	}

	var event entity.SecurityEvent
	if err := json.Unmarshal(data, &event); err != nil {
		h.logger.Error("[Audit] Failed to parse security event", slog.Any("error", err))

		return c.NoContent(http.StatusBadRequest)
	}
	if event.Type == "" || event.AccountID == uuid.Nil {
		h.logger.Error("[Audit] Incomplete security event", slog.String("message_id", pushMsg.Message.MessageID))

		return c.NoContent(http.StatusBadRequest)
	}

	requestID := extractRequestID(ctx, &pushMsg, &event)
	reqLogger := deliverycontext.GetLoggerOrDefault(ctx, h.logger).With(slog.String("event_request_id", requestID))

	attrs := []any{
		slog.String("event_id", event.ID),
		slog.String("type", string(event.Type)),
		slog.String("kind", event.Kind.String()),
		slog.String("account_id", event.AccountID.String()),
		slog.Time("occurred_at", event.OccurredAt),
	}
	if event.DeviceID != "" {
		attrs = append(attrs, slog.String("device_id", event.DeviceID))
	}
	if event.SourceIP != "" {
		attrs = append(attrs, slog.String("source_ip", event.SourceIP))
	}
	if event.UserAgent != "" {
		attrs = append(attrs, slog.String("user_agent", event.UserAgent))
	}

	level := slog.LevelInfo
	if event.Type == entity.EventNewDevice {
		level = slog.LevelWarn
	}
	reqLogger.Log(ctx, level, "[Audit] Security event", attrs...)

	return c.NoContent(http.StatusOK)
}

// extractRequestID prefers the message attribute, then the event payload,
// then the push request itself.
func extractRequestID(ctx context.Context, pushMsg *PubSubMessage, event *entity.SecurityEvent) string {
	if requestID, ok := pushMsg.Message.Attributes["request_id"]; ok && requestID != "" {
		return requestID
	}
	if event.RequestID != "" {
		return event.RequestID
	}
	if requestID := deliverycontext.GetRequestIDFromContext(ctx); requestID != "" {
		return requestID
	}

	return uuid.New().String()
}

// verifyPubSubToken validates the bearer token Google attaches to push requests.
func (h *AuditHandler) verifyPubSubToken(req *http.Request) error {
	authHeader := req.Header.Get("Authorization")
	if authHeader == "" {
		return errors.New("missing authorization header")
	}

	const bearerPrefix = "Bearer "
	if !strings.HasPrefix(authHeader, bearerPrefix) {
		return errors.New("invalid authorization header format")
	}
	token := strings.TrimPrefix(authHeader, bearerPrefix)

	// The audience is the push endpoint URL.
	scheme := "https"
	if req.TLS == nil {
		scheme = "http"
	}
	audience := fmt.Sprintf("%s://%s%s", scheme, req.Host, req.URL.Path)

	payload, err := h.validate(req.Context(), token, audience)
	if err != nil {
		return errors.Wrap(err, "failed to validate token")
	}

	if payload.Issuer != "accounts.google.com" && payload.Issuer != "https://accounts.google.com" {
		return errors.Errorf("invalid issuer: %s", payload.Issuer)
	}

	if emailVerified, ok := payload.Claims["email_verified"].(bool); ok && !emailVerified {
		return errors.New("email not verified")
	}

	return nil
}
