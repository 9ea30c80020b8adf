package scheduler

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/roomloft/roomloft-api/databases"
	"github.com/roomloft/roomloft-api/models"
	templates "github.com/roomloft/roomloft-api/templates/html"
)

// Scheduler handles periodic background jobs for listing maintenance
type Scheduler struct {
	cron       *cron.Cron
	LDB        databases.ListingDatabase
	LockDB     databases.SchedulerLockDatabase
	instanceID string
}

// NewScheduler creates a new scheduler instance
func NewScheduler(lDB databases.ListingDatabase, lockDB databases.SchedulerLockDatabase) *Scheduler {
	// Generate a unique instance ID for this pod
	instanceID := os.Getenv("DYNO") // Heroku sets this to "web.1", "web.2", etc.
	if instanceID == "" {
		instanceID = fmt.Sprintf("instance-%d", time.Now().UnixNano())
	}

	return &Scheduler{
		cron:       cron.New(cron.WithLocation(time.UTC)),
		LDB:        lDB,
		LockDB:     lockDB,
		instanceID: instanceID,
	}
}

// Start begins the scheduler with all registered jobs
func (s *Scheduler) Start() {
	// Repair duplicate collection membership nightly at 3 AM UTC
	_, err := s.cron.AddFunc("0 3 * * *", s.sweepDuplicateMemberships)
	if err != nil {
		zap.S().Errorw("failed to register membership sweep job", "error", err)
	}

	// Remind owners about listings stuck in review daily at 2 AM UTC
	_, err = s.cron.AddFunc("0 2 * * *", s.remindStalePending)
	if err != nil {
		zap.S().Errorw("failed to register stale pending job", "error", err)
	}

	s.cron.Start()
	zap.S().Info("Listing maintenance scheduler started")
}

// Stop gracefully stops the scheduler
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	zap.S().Info("Listing maintenance scheduler stopped")
}

// sweepDuplicateMemberships enforces that a listing id lives in exactly one
// status collection. Accepted wins over pending, pending wins over rejected.
func (s *Scheduler) sweepDuplicateMemberships() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	// Try to acquire distributed lock (10 minute TTL)
	acquired, err := s.LockDB.TryAcquireLock(ctx, "membership_sweep_job", s.instanceID, 10*time.Minute)
	if err != nil {
		zap.S().Errorw("failed to acquire lock for membership sweep job", "error", err)
		return
	}
	if !acquired {
		zap.S().Debugw("Membership sweep job already running on another instance, skipping",
			"holder", s.lockHolder(ctx, "membership_sweep_job"))
		return
	}
	defer s.LockDB.ReleaseLock(ctx, "membership_sweep_job", s.instanceID)

	zap.S().Infow("Running duplicate membership sweep", "instance", s.instanceID)

	accepted, err := s.LDB.Find(ctx, models.StatusAccepted, bson.M{})
	if err != nil {
		zap.S().Errorw("failed to load accepted listings", "error", err)
		return
	}
	pending, err := s.LDB.Find(ctx, models.StatusPending, bson.M{})
	if err != nil {
		zap.S().Errorw("failed to load pending listings", "error", err)
		return
	}

	repaired := 0
	for _, listing := range accepted {
		repaired += s.deleteStrays(ctx, listing.ID, models.StatusPending, models.StatusRejected)
	}
	for _, listing := range pending {
		repaired += s.deleteStrays(ctx, listing.ID, models.StatusRejected)
	}

	zap.S().Infow("Duplicate membership sweep complete",
		"acceptedChecked", len(accepted),
		"pendingChecked", len(pending),
		"straysRemoved", repaired,
	)
}

// lockHolder reports which instance currently holds the named job lock
func (s *Scheduler) lockHolder(ctx context.Context, jobName string) string {
	lock, err := s.LockDB.FindOne(ctx, jobName)
	if err != nil {
		return "unknown"
	}
	return lock.Owner
}

// deleteStrays removes the given listing id from each lower-precedence collection
func (s *Scheduler) deleteStrays(ctx context.Context, listingID string, statuses ...string) int {
	removed := 0
	for _, status := range statuses {
		n, err := s.LDB.DeleteOne(ctx, status, bson.M{"_id": listingID})
		if err != nil {
			zap.S().Errorw("failed to remove stray listing entry",
				"error", err, "listingId", listingID, "collectionStatus", status)
			continue
		}
		if n > 0 {
			zap.S().Warnw("Removed stray listing entry",
				"listingId", listingID, "collectionStatus", status)
			removed += int(n)
		}
	}
	return removed
}

// remindStalePending emails owners whose listings have sat in review for a
// week. The one-day window keeps the daily run from re-sending reminders.
func (s *Scheduler) remindStalePending() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	acquired, err := s.LockDB.TryAcquireLock(ctx, "stale_pending_job", s.instanceID, 10*time.Minute)
	if err != nil {
		zap.S().Errorw("failed to acquire lock for stale pending job", "error", err)
		return
	}
	if !acquired {
		zap.S().Debugw("Stale pending job already running on another instance, skipping",
			"holder", s.lockHolder(ctx, "stale_pending_job"))
		return
	}
	defer s.LockDB.ReleaseLock(ctx, "stale_pending_job", s.instanceID)

	now := time.Now()
	sevenDaysAgo := now.Add(-7 * 24 * time.Hour)
	eightDaysAgo := now.Add(-8 * 24 * time.Hour)

	zap.S().Infow("Running stale pending reminder job", "instance", s.instanceID)

	filter := bson.M{
		"listing.createdAt": bson.M{
			"$lt": primitive.NewDateTimeFromTime(sevenDaysAgo),
			"$gt": primitive.NewDateTimeFromTime(eightDaysAgo),
		},
	}
	stale, err := s.LDB.Find(ctx, models.StatusPending, filter)
	if err != nil {
		zap.S().Errorw("failed to find stale pending listings", "error", err)
		return
	}

	sent := 0
	for _, listing := range stale {
		if listing.Details.OwnerEmail == "" {
			continue
		}
		days := daysPending(listing, now)
		if err := s.sendStaleReminderEmail(listing, days); err != nil {
			zap.S().Errorw("failed to send stale pending reminder",
				"error", err, "listingId", listing.ID)
			continue
		}
		sent++
	}

	zap.S().Infow("Stale pending reminder job complete",
		"staleFound", len(stale),
		"remindersSent", sent,
	)
}

func daysPending(listing models.Listing, now time.Time) int {
	if dt, ok := listing.Details.CreatedAt.(primitive.DateTime); ok {
		return int(now.Sub(dt.Time()).Hours() / 24)
	}
	return 7
}

func (s *Scheduler) sendStaleReminderEmail(listing models.Listing, days int) error {
	from := mail.NewEmail("RoomLoft", "no-reply@roomloft.in")
	subject := "Your RoomLoft listing is still in review"
	to := mail.NewEmail(listing.Details.OwnerName, listing.Details.OwnerEmail)
	plainText := fmt.Sprintf("Your listing %s has been in review for %d days. No action is needed from you right now.", listing.Details.Name, days)
	htmlContent := templates.RenderStalePendingReminderEmail(listing.Details.OwnerName, listing.Details.Name, days)
	message := mail.NewSingleEmail(from, subject, to, plainText, htmlContent)
	client := sendgrid.NewSendClient(os.Getenv("SENDGRID_API_KEY"))
	response, err := client.Send(message)
	if err != nil {
		return err
	}
	if response.StatusCode >= 400 {
		zap.S().Errorw("sendgrid returned error status", "status", response.StatusCode, "body", response.Body)
	}
	return nil
}
