package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/edusafe-mx/plantel-api/internal/models"
	"github.com/edusafe-mx/plantel-api/pkg/jobs"
)

// NotificationSender delivers a single notification to the presentation
// surface. Delivery is best effort.
type NotificationSender interface {
	Send(ctx context.Context, notification models.Notification) error
}

// LogSender writes notifications to the structured log. It stands in for the
// toast surface, which is owned by the frontend.
type LogSender struct {
	logger *zap.Logger
}

// NewLogSender constructs the sender.
func NewLogSender(logger *zap.Logger) *LogSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSender{logger: logger}
}

// Send implements NotificationSender.
func (s *LogSender) Send(_ context.Context, notification models.Notification) error {
	s.logger.Info("notification",
		zap.String("recipient", notification.RecipientID),
		zap.String("kind", string(notification.Kind)),
		zap.String("title", notification.Title),
		zap.String("resource_id", notification.ResourceID))
	return nil
}

// NotificationService fans notifications out through a background worker
// queue. Enqueue failures are logged and swallowed: notifications never block
// or fail a workflow operation.
type NotificationService struct {
	queue  *jobs.Queue
	sender NotificationSender
	logger *zap.Logger
}

// NewNotificationService constructs the service and its queue.
func NewNotificationService(sender NotificationSender, logger *zap.Logger, workers, bufferSize int) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if sender == nil {
		sender = NewLogSender(logger)
	}
	svc := &NotificationService{sender: sender, logger: logger}
	svc.queue = jobs.NewQueue("notifications", svc.handle, jobs.QueueConfig{
		Workers:    workers,
		BufferSize: bufferSize,
		Logger:     logger,
	})
	return svc
}

// Start launches the delivery workers.
func (s *NotificationService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the workers.
func (s *NotificationService) Stop() {
	s.queue.Stop()
}

// Notify enqueues a notification for asynchronous delivery.
func (s *NotificationService) Notify(_ context.Context, notification models.Notification) {
	if notification.CreatedAt.IsZero() {
		notification.CreatedAt = time.Now().UTC()
	}
	err := s.queue.Enqueue(jobs.Job{
		ID:      uuid.NewString(),
		Type:    string(notification.Kind),
		Payload: notification,
	})
	if err != nil {
		s.logger.Warn("failed to enqueue notification", zap.Error(err))
	}
}

// NotifyEscalation alerts plantel staff about a high or imminent risk incident.
func (s *NotificationService) NotifyEscalation(ctx context.Context, incident *models.Incident) {
	s.Notify(ctx, models.Notification{
		RecipientID: "plantel:" + incident.PlantelID,
		Kind:        models.NotificationKindEscalation,
		Title:       "Incidencia de riesgo " + string(incident.RiskLevel),
		Body:        fmt.Sprintf("Se registró una incidencia %s con nivel de riesgo %s.", incident.Type, incident.RiskLevel),
		ResourceID:  incident.ID,
	})
}

// NotifyReviewOutcome informs the submitting teacher of the director decision.
func (s *NotificationService) NotifyReviewOutcome(ctx context.Context, submission *models.PlanningSubmission) {
	title := "Planeación aprobada"
	if submission.Status == models.SubmissionStatusChangesRequested {
		title = "Planeación requiere cambios"
	}
	s.Notify(ctx, models.Notification{
		RecipientID: submission.TeacherID,
		Kind:        models.NotificationKindReviewOutcome,
		Title:       title,
		Body:        fmt.Sprintf("Tu planeación fue revisada con estado %s.", submission.Status),
		ResourceID:  submission.ID,
	})
}

func (s *NotificationService) handle(ctx context.Context, job jobs.Job) error {
	notification, ok := job.Payload.(models.Notification)
	if !ok {
		s.logger.Warn("dropping notification with unexpected payload", zap.String("job_id", job.ID))
		return nil
	}
	return s.sender.Send(ctx, notification)
}
