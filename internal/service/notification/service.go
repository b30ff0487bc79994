package notification

import (
	"context"
	"sync"
	"time"

	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/notification"
	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/user"
	"github.com/cmlabs-hris/hris-payroll-go/internal/pkg/logger"
	"github.com/cmlabs-hris/hris-payroll-go/internal/pkg/sse"
	"github.com/google/uuid"
)

// Config holds notification service configuration
type Config struct {
	BatchSize     int           // default: 100
	FlushInterval time.Duration // default: 5 seconds
	WorkerCount   int           // default: 2
	QueueSize     int           // default: 1000
	DedupeTTL     time.Duration // default: 24 hours
}

type service struct {
	repo    notification.Repository
	hub     *sse.Hub
	deduper notification.Deduper
	config  Config
	logger  *logger.Logger

	queue  chan notification.CreateNotificationRequest
	wg     sync.WaitGroup
	stopCh chan struct{}
	once   sync.Once
}

// NewNotificationService creates a new notification service with background
// workers. deduper may be nil, in which case only the database unique key
// on (recipient, dedupe_key) suppresses duplicates.
func NewNotificationService(repo notification.Repository, hub *sse.Hub, deduper notification.Deduper, cfg Config, log *logger.Logger) notification.Service {
	// Set defaults
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 100
	}
	if cfg.FlushInterval == 0 {
		cfg.FlushInterval = 5 * time.Second
	}
	if cfg.WorkerCount == 0 {
		cfg.WorkerCount = 2
	}
	if cfg.QueueSize == 0 {
		cfg.QueueSize = 1000
	}
	if cfg.DedupeTTL == 0 {
		cfg.DedupeTTL = 24 * time.Hour
	}

	s := &service{
		repo:    repo,
		hub:     hub,
		deduper: deduper,
		config:  cfg,
		logger:  log.WithComponent("notification"),
		queue:   make(chan notification.CreateNotificationRequest, cfg.QueueSize),
		stopCh:  make(chan struct{}),
	}

	// Start background workers
	for i := 0; i < cfg.WorkerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.logger.Info().
		Int("workers", cfg.WorkerCount).
		Int("batch_size", cfg.BatchSize).
		Dur("flush_interval", cfg.FlushInterval).
		Msg("notification service started")

	return s
}

// worker is the background worker that processes notification queue
func (s *service) worker(id int) {
	defer s.wg.Done()

	batch := make([]notification.CreateNotificationRequest, 0, s.config.BatchSize)
	ticker := time.NewTicker(s.config.FlushInterval)
	defer ticker.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		notifications := make([]*notification.Notification, len(batch))
		for i, req := range batch {
			notifications[i] = s.toEntity(req)
		}

		inserted, err := s.repo.CreateBatch(ctx, notifications)
		if err != nil {
			s.logger.Error().Err(err).Int("worker", id).Int("count", len(notifications)).Msg("failed to batch insert notifications")
		} else {
			s.logger.Debug().Int("worker", id).Int("inserted", len(inserted)).Msg("notifications inserted")
			for _, n := range inserted {
				s.publish(n)
			}
		}

		batch = batch[:0]
	}

	for {
		select {
		case req := <-s.queue:
			batch = append(batch, req)
			if len(batch) >= s.config.BatchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-s.stopCh:
			// Drain what is already queued before exiting
			for {
				select {
				case req := <-s.queue:
					batch = append(batch, req)
				default:
					flush()
					return
				}
			}
		}
	}
}

// NotifyUser queues a notification and logs instead of failing. Payroll
// mutations call it after commit.
func (s *service) NotifyUser(ctx context.Context, req notification.CreateNotificationRequest) {
	if req.RecipientID == "" {
		return
	}
	if err := s.QueueNotification(ctx, req); err != nil {
		s.logger.Warn().
			Err(err).
			Str("recipient_id", req.RecipientID).
			Str("type", string(req.Type)).
			Str("dedupe_key", req.DedupeKey).
			Msg("failed to queue notification")
	}
}

// QueueNotification queues a notification for async processing
func (s *service) QueueNotification(ctx context.Context, req notification.CreateNotificationRequest) error {
	// Check if push notification is enabled for this user/type
	enabled, err := s.repo.IsNotificationEnabled(ctx, req.RecipientID, req.Type)
	if err != nil {
		return err
	}
	if !enabled {
		return nil // Skip if disabled
	}

	if req.DedupeKey != "" && s.deduper != nil {
		claimed, err := s.deduper.Claim(ctx, req.RecipientID+":"+req.DedupeKey, s.config.DedupeTTL)
		if err != nil {
			// Fall through to the database unique key
			s.logger.Warn().Err(err).Str("dedupe_key", req.DedupeKey).Msg("dedupe claim failed")
		} else if !claimed {
			return nil
		}
	}

	select {
	case s.queue <- req:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		// Queue full, try direct insert
		return s.directInsert(ctx, req)
	}
}

// directInsert inserts a notification directly when queue is full
func (s *service) directInsert(ctx context.Context, req notification.CreateNotificationRequest) error {
	n := s.toEntity(req)

	inserted, err := s.repo.Create(ctx, n)
	if err != nil {
		return err
	}
	if inserted {
		s.publish(n)
	}
	return nil
}

func (s *service) toEntity(req notification.CreateNotificationRequest) *notification.Notification {
	severity := req.Severity
	if severity == "" {
		severity = notification.SeverityInfo
	}

	var dedupeKey *string
	if req.DedupeKey != "" {
		key := req.DedupeKey
		dedupeKey = &key
	}

	return &notification.Notification{
		ID:          uuid.New().String(),
		CompanyID:   req.CompanyID,
		RecipientID: req.RecipientID,
		SenderID:    req.SenderID,
		Type:        req.Type,
		Severity:    severity,
		Title:       req.Title,
		Message:     req.Message,
		Link:        req.Link,
		DedupeKey:   dedupeKey,
		Data:        req.Data,
		IsRead:      false,
		CreatedAt:   time.Now(),
	}
}

func (s *service) publish(n *notification.Notification) {
	s.hub.Publish(n.RecipientID, sse.Event{
		UserID: n.RecipientID,
		Event:  "notification",
		Data:   s.toResponse(n),
	})
}

// toResponse converts a Notification entity to NotificationResponse
func (s *service) toResponse(n *notification.Notification) notification.NotificationResponse {
	return notification.NotificationResponse{
		ID:        n.ID,
		Type:      n.Type,
		Severity:  n.Severity,
		Title:     n.Title,
		Message:   n.Message,
		Link:      n.Link,
		Data:      n.Data,
		IsRead:    n.IsRead,
		ReadAt:    n.ReadAt,
		CreatedAt: n.CreatedAt,
	}
}

// inbox checks the viewer carries the company and user an inbox is keyed by.
func inbox(viewer user.Viewer) error {
	if viewer.CompanyID == "" {
		return user.ErrCompanyIDRequired
	}
	if viewer.UserID == "" {
		return user.ErrUserIDRequired
	}
	return nil
}

// GetNotifications lists the viewer's notifications, optionally narrowed to
// one type or severity. The unread count always covers the whole inbox.
func (s *service) GetNotifications(ctx context.Context, viewer user.Viewer, req notification.ListRequest) (*notification.NotificationListResponse, error) {
	if err := inbox(viewer); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	req.Normalize()

	notifications, total, err := s.repo.List(ctx, notification.ListFilter{
		CompanyID:   viewer.CompanyID,
		RecipientID: viewer.UserID,
		UnreadOnly:  req.UnreadOnly,
		Type:        req.Type,
		Severity:    req.Severity,
		Page:        req.Page,
		PageSize:    req.PageSize,
	})
	if err != nil {
		return nil, err
	}

	unreadCount, err := s.repo.GetUnreadCount(ctx, viewer.CompanyID, viewer.UserID)
	if err != nil {
		return nil, err
	}

	responses := make([]notification.NotificationResponse, len(notifications))
	for i, n := range notifications {
		responses[i] = s.toResponse(n)
	}

	return &notification.NotificationListResponse{
		Notifications: responses,
		Total:         total,
		UnreadCount:   unreadCount,
		Page:          req.Page,
		PageSize:      req.PageSize,
	}, nil
}

func (s *service) GetUnreadCount(ctx context.Context, viewer user.Viewer) (int, error) {
	if err := inbox(viewer); err != nil {
		return 0, err
	}
	return s.repo.GetUnreadCount(ctx, viewer.CompanyID, viewer.UserID)
}

func (s *service) MarkAsRead(ctx context.Context, viewer user.Viewer, req notification.MarkAsReadRequest) error {
	if err := inbox(viewer); err != nil {
		return err
	}
	if err := req.Validate(); err != nil {
		return err
	}
	return s.repo.MarkAsRead(ctx, viewer.CompanyID, viewer.UserID, req.NotificationIDs, time.Now())
}

func (s *service) MarkAllAsRead(ctx context.Context, viewer user.Viewer) error {
	if err := inbox(viewer); err != nil {
		return err
	}
	return s.repo.MarkAllAsRead(ctx, viewer.CompanyID, viewer.UserID, time.Now())
}

func (s *service) Delete(ctx context.Context, viewer user.Viewer, notificationID string) error {
	if err := inbox(viewer); err != nil {
		return err
	}
	return s.repo.Delete(ctx, viewer.CompanyID, viewer.UserID, notificationID)
}

// GetPreferences lists every notification type; unset types default to enabled.
func (s *service) GetPreferences(ctx context.Context, viewer user.Viewer) ([]notification.PreferenceResponse, error) {
	if err := inbox(viewer); err != nil {
		return nil, err
	}

	prefs, err := s.repo.GetPreferences(ctx, viewer.UserID)
	if err != nil {
		return nil, err
	}

	enabled := make(map[notification.NotificationType]bool, len(prefs))
	for _, p := range prefs {
		enabled[p.NotificationType] = p.PushEnabled
	}

	allTypes := notification.AllNotificationTypes()
	responses := make([]notification.PreferenceResponse, len(allTypes))
	for i, t := range allTypes {
		on, ok := enabled[t]
		responses[i] = notification.PreferenceResponse{NotificationType: t, PushEnabled: !ok || on}
	}

	return responses, nil
}

func (s *service) UpdatePreference(ctx context.Context, viewer user.Viewer, req notification.UpdatePreferenceRequest) error {
	if err := inbox(viewer); err != nil {
		return err
	}
	if err := req.Validate(); err != nil {
		return err
	}

	return s.repo.UpsertPreference(ctx, &notification.NotificationPreference{
		UserID:           viewer.UserID,
		NotificationType: req.NotificationType,
		PushEnabled:      req.PushEnabled,
		UpdatedAt:        time.Now(),
	})
}

// Subscribe creates an SSE subscription for a user
func (s *service) Subscribe(ctx context.Context, userID string) (<-chan notification.SSEEvent, func()) {
	ch, cleanup := s.hub.Subscribe(userID)

	out := make(chan notification.SSEEvent, 10)

	go func() {
		defer close(out)
		for {
			select {
			case event, ok := <-ch:
				if !ok {
					return
				}
				if resp, ok := event.Data.(notification.NotificationResponse); ok {
					select {
					case out <- notification.SSEEvent{Event: event.Event, Data: resp}:
					case <-ctx.Done():
						return
					}
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, cleanup
}

// Stop flushes queued notifications and stops the workers
func (s *service) Stop() {
	s.once.Do(func() {
		close(s.stopCh)
		s.wg.Wait()
		s.logger.Info().Msg("notification service stopped")
	})
}
