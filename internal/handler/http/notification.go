package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/notification"
	"github.com/cmlabs-hris/hris-payroll-go/internal/handler/http/middleware"
	"github.com/cmlabs-hris/hris-payroll-go/internal/handler/http/response"
	"github.com/cmlabs-hris/hris-payroll-go/internal/pkg/jwt"
	"github.com/go-chi/chi/v5"
)

const streamKeepalive = 30 * time.Second

type NotificationHandler interface {
	// Inbox
	List(w http.ResponseWriter, r *http.Request)
	UnreadCount(w http.ResponseWriter, r *http.Request)
	MarkAsRead(w http.ResponseWriter, r *http.Request)
	MarkAllAsRead(w http.ResponseWriter, r *http.Request)
	Delete(w http.ResponseWriter, r *http.Request)

	// Preferences
	GetPreferences(w http.ResponseWriter, r *http.Request)
	UpdatePreference(w http.ResponseWriter, r *http.Request)

	// Live payroll updates
	GetSSEToken(w http.ResponseWriter, r *http.Request)
	Stream(w http.ResponseWriter, r *http.Request)
}

type notificationHandlerImpl struct {
	notifService notification.Service
	jwtService   jwt.Service
}

func NewNotificationHandler(notifService notification.Service, jwtService jwt.Service) NotificationHandler {
	return &notificationHandlerImpl{
		notifService: notifService,
		jwtService:   jwtService,
	}
}

// ========== INBOX ==========

// List serves GET /notifications?type=payroll_paid&severity=warning&unread_only=true.
func (h *notificationHandlerImpl) List(w http.ResponseWriter, r *http.Request) {
	viewer, ok := middleware.ViewerFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "Unauthorized")
		return
	}

	query := r.URL.Query()
	var req notification.ListRequest

	if v := query.Get("type"); v != "" {
		t := notification.NotificationType(v)
		req.Type = &t
	}
	if v := query.Get("severity"); v != "" {
		s := notification.Severity(v)
		req.Severity = &s
	}
	if v := query.Get("unread_only"); v != "" {
		req.UnreadOnly, _ = strconv.ParseBool(v)
	}
	if v := query.Get("page"); v != "" {
		if page, err := strconv.Atoi(v); err == nil {
			req.Page = page
		}
	}
	if v := query.Get("page_size"); v != "" {
		if size, err := strconv.Atoi(v); err == nil {
			req.PageSize = size
		}
	}

	result, err := h.notifService.GetNotifications(r.Context(), viewer, req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

func (h *notificationHandlerImpl) UnreadCount(w http.ResponseWriter, r *http.Request) {
	viewer, ok := middleware.ViewerFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "Unauthorized")
		return
	}

	count, err := h.notifService.GetUnreadCount(r.Context(), viewer)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, notification.UnreadCountResponse{UnreadCount: count})
}

func (h *notificationHandlerImpl) MarkAsRead(w http.ResponseWriter, r *http.Request) {
	viewer, ok := middleware.ViewerFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "Unauthorized")
		return
	}

	var req notification.MarkAsReadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}

	if err := h.notifService.MarkAsRead(r.Context(), viewer, req); err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Notifications marked as read", nil)
}

func (h *notificationHandlerImpl) MarkAllAsRead(w http.ResponseWriter, r *http.Request) {
	viewer, ok := middleware.ViewerFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "Unauthorized")
		return
	}

	if err := h.notifService.MarkAllAsRead(r.Context(), viewer); err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "All notifications marked as read", nil)
}

func (h *notificationHandlerImpl) Delete(w http.ResponseWriter, r *http.Request) {
	viewer, ok := middleware.ViewerFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "Unauthorized")
		return
	}

	if err := h.notifService.Delete(r.Context(), viewer, chi.URLParam(r, "id")); err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Notification deleted", nil)
}

// ========== PREFERENCES ==========

func (h *notificationHandlerImpl) GetPreferences(w http.ResponseWriter, r *http.Request) {
	viewer, ok := middleware.ViewerFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "Unauthorized")
		return
	}

	prefs, err := h.notifService.GetPreferences(r.Context(), viewer)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, prefs)
}

func (h *notificationHandlerImpl) UpdatePreference(w http.ResponseWriter, r *http.Request) {
	viewer, ok := middleware.ViewerFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "Unauthorized")
		return
	}

	var req notification.UpdatePreferenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}

	if err := h.notifService.UpdatePreference(r.Context(), viewer, req); err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Preference updated", nil)
}

// ========== STREAM ==========

// GetSSEToken issues the short-lived token Stream authenticates with, since
// EventSource cannot send an Authorization header.
func (h *notificationHandlerImpl) GetSSEToken(w http.ResponseWriter, r *http.Request) {
	viewer, ok := middleware.ViewerFromContext(r.Context())
	if !ok || viewer.UserID == "" {
		response.Unauthorized(w, "Unauthorized")
		return
	}

	token, expiresIn, err := h.jwtService.GenerateSSEToken(viewer.UserID)
	if err != nil {
		response.InternalServerError(w, "Failed to generate SSE token")
		return
	}

	response.Success(w, notification.SSETokenResponse{Token: token, ExpiresIn: expiresIn})
}

// Stream pushes payroll notifications as they are stored. An optional
// comma-separated type query parameter limits the stream, e.g.
// ?type=payroll_paid,payroll_month_closed for a pay-run screen.
func (h *notificationHandlerImpl) Stream(w http.ResponseWriter, r *http.Request) {
	userID, err := h.jwtService.ValidateSSEToken(r.URL.Query().Get("token"))
	if err != nil {
		response.Unauthorized(w, "Invalid or missing stream token")
		return
	}

	types, err := streamTypes(r.URL.Query().Get("type"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		response.InternalServerError(w, "Streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	events, cleanup := h.notifService.Subscribe(r.Context(), userID)
	defer cleanup()

	if err := writeEvent(w, flusher, "connected", map[string]string{"status": "connected"}); err != nil {
		return
	}

	keepalive := time.NewTicker(streamKeepalive)
	defer keepalive.Stop()

	for {
		select {
		case event, ok := <-events:
			if !ok {
				return
			}
			if len(types) > 0 && !types[event.Data.Type] {
				continue
			}
			if err := writeEvent(w, flusher, event.Event, event.Data); err != nil {
				return
			}
		case <-keepalive.C:
			if err := writeEvent(w, flusher, "ping", map[string]int64{"timestamp": time.Now().Unix()}); err != nil {
				return
			}
		case <-r.Context().Done():
			return
		}
	}
}

// streamTypes parses the type filter of Stream. Empty means every type.
func streamTypes(raw string) (map[notification.NotificationType]bool, error) {
	if raw == "" {
		return nil, nil
	}
	types := map[notification.NotificationType]bool{}
	for _, part := range strings.Split(raw, ",") {
		t := notification.NotificationType(strings.TrimSpace(part))
		if !t.IsValid() {
			return nil, fmt.Errorf("%w: %q", notification.ErrInvalidNotificationType, t)
		}
		types[t] = true
	}
	return types, nil
}

func writeEvent(w http.ResponseWriter, flusher http.Flusher, name string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, data); err != nil {
		return err
	}
	flusher.Flush()
	return nil
}
