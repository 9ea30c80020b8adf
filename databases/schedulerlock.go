package databases

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/roomloft/roomloft-api/models"
)

const schedulerLockCollection = "schedulerLocks"

// SchedulerLockDatabase provides a mongo-backed distributed lock so cron jobs
// run on a single instance at a time
type SchedulerLockDatabase interface {
	TryAcquireLock(ctx context.Context, jobName, owner string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, jobName, owner string) error
	FindOne(ctx context.Context, jobName string) (*models.SchedulerLock, error)
}

type schedulerLockDatabase struct {
	db DatabaseHelper
}

// NewSchedulerLockDatabase initializes a new instance of scheduler lock database with the provided db connection
func NewSchedulerLockDatabase(db DatabaseHelper) SchedulerLockDatabase {
	return &schedulerLockDatabase{
		db: db,
	}
}

func (s *schedulerLockDatabase) TryAcquireLock(ctx context.Context, jobName, owner string, ttl time.Duration) (bool, error) {
	now := time.Now()
	upsert := true

	lock := models.SchedulerLock{
		ID:         jobName,
		Owner:      owner,
		AcquiredAt: primitive.NewDateTimeFromTime(now),
		ExpiresAt:  primitive.NewDateTimeFromTime(now.Add(ttl)),
	}

	// claim the lock if it is free or expired
	res, err := s.db.Collection(schedulerLockCollection).UpdateOne(ctx,
		bson.M{
			"_id": lock.ID,
			"$or": []bson.M{
				{"expiresAt": bson.M{"$lt": primitive.NewDateTimeFromTime(now)}},
				{"expiresAt": nil},
			},
		},
		bson.M{"$set": bson.M{
			"owner":      lock.Owner,
			"acquiredAt": lock.AcquiredAt,
			"expiresAt":  lock.ExpiresAt,
		}},
		&options.UpdateOptions{Upsert: &upsert},
	)
	if err != nil {
		// duplicate key means another instance holds an unexpired lock
		if mongo.IsDuplicateKeyError(err) {
			return false, nil
		}
		return false, err
	}
	return res.ModifiedCount > 0 || res.UpsertedCount > 0, nil
}

func (s *schedulerLockDatabase) ReleaseLock(ctx context.Context, jobName, owner string) error {
	_, err := s.db.Collection(schedulerLockCollection).DeleteOne(ctx, bson.M{"_id": jobName, "owner": owner})
	return err
}

func (s *schedulerLockDatabase) FindOne(ctx context.Context, jobName string) (*models.SchedulerLock, error) {
	lock := &models.SchedulerLock{}
	err := s.db.Collection(schedulerLockCollection).FindOne(ctx, bson.M{"_id": jobName}).Decode(&lock)
	if err != nil {
		return nil, err
	}
	return lock, nil
}
