package databases

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/roomloft/roomloft-api/models"
)

// LifecycleDatabase moves a listing between the three status collections and
// the owner mirror as a single transaction. Either every effect of a
// transition lands or none do.
type LifecycleDatabase interface {
	Accept(ctx context.Context, listingID string, details models.ListingDetails) error
	Reject(ctx context.Context, listingID string, details models.ListingDetails) error
	Reverify(ctx context.Context, listingID string, details models.ListingDetails) error
}

type lifecycleDatabase struct {
	db DatabaseHelper
}

// NewLifecycleDatabase initializes a new instance of lifecycle database with the provided db connection
func NewLifecycleDatabase(db DatabaseHelper) LifecycleDatabase {
	return &lifecycleDatabase{
		db: db,
	}
}

func (l *lifecycleDatabase) Accept(ctx context.Context, listingID string, details models.ListingDetails) error {
	return l.transition(ctx, listingID, details, models.StatusAccepted, []string{PendingCollection, RejectedCollection})
}

func (l *lifecycleDatabase) Reject(ctx context.Context, listingID string, details models.ListingDetails) error {
	return l.transition(ctx, listingID, details, models.StatusRejected, []string{PendingCollection, AcceptedCollection})
}

// Reverify only vacates the rejected collection. If a stale accepted copy
// exists it stays put so the reconciled view keeps showing it until the
// nightly sweep clears it.
func (l *lifecycleDatabase) Reverify(ctx context.Context, listingID string, details models.ListingDetails) error {
	return l.transition(ctx, listingID, details, models.StatusPending, []string{RejectedCollection})
}

// transition deletes listingID from the given source collections, upserts it
// into the target collection with the target status, and updates the owner
// mirror. A mirror document that cannot be matched aborts the whole
// transaction; a listing with no owner id skips the mirror step.
func (l *lifecycleDatabase) transition(ctx context.Context, listingID string, details models.ListingDetails, targetStatus string, deleteFrom []string) error {
	target, err := CollectionForStatus(targetStatus)
	if err != nil {
		return err
	}

	details.Status = targetStatus
	details.UpdatedAt = primitive.NewDateTimeFromTime(time.Now())

	return l.db.Client().WithTransaction(ctx, func(sc context.Context) error {
		for _, coll := range deleteFrom {
			if _, err := l.db.Collection(coll).DeleteOne(sc, bson.M{"_id": listingID}); err != nil {
				return err
			}
		}

		upsert := true
		_, err := l.db.Collection(target).UpdateOne(sc,
			bson.M{"_id": listingID},
			bson.M{"$set": bson.M{"listing": details}},
			&options.UpdateOptions{Upsert: &upsert},
		)
		if err != nil {
			return err
		}

		if details.OwnerID == "" {
			zap.S().Warnw("listing has no owner id, skipping owner mirror update",
				"listingId", listingID,
				"status", targetStatus,
			)
			return nil
		}

		res, err := l.db.Collection(OwnerCollection).UpdateOne(sc,
			bson.M{"_id": listingID, "listing.ownerID": details.OwnerID},
			bson.M{"$set": bson.M{"listing.status": details.Status, "listing.updatedAt": details.UpdatedAt}},
		)
		if err != nil {
			return err
		}
		if res.MatchedCount == 0 {
			return fmt.Errorf("owner mirror entry not found for listing %s", listingID)
		}
		return nil
	})
}
