package databases

// go generate: mockery --name ListingDatabase

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/roomloft/roomloft-api/models"
)

// Authoritative listing collections, one per status, plus the per-owner mirror.
const (
	PendingCollection  = "pendingListings"
	AcceptedCollection = "acceptedListings"
	RejectedCollection = "rejectedListings"
	OwnerCollection    = "ownerListings"
)

// CollectionForStatus maps a listing status to its authoritative collection
func CollectionForStatus(status string) (string, error) {
	switch status {
	case models.StatusPending:
		return PendingCollection, nil
	case models.StatusAccepted:
		return AcceptedCollection, nil
	case models.StatusRejected:
		return RejectedCollection, nil
	}
	return "", fmt.Errorf("no collection for listing status %q", status)
}

// ListingDatabase contains the methods to use with the three status-keyed
// listing collections. The status argument selects the collection.
type ListingDatabase interface {
	FindOne(ctx context.Context, status string, filter interface{}) (*models.Listing, error)
	Find(ctx context.Context, status string, filter interface{}, opts ...*options.FindOptions) ([]models.Listing, error)
	InsertOne(ctx context.Context, status string, listing models.Listing) (interface{}, error)
	CountDocuments(ctx context.Context, status string, filter interface{}) (int64, error)
	DeleteOne(ctx context.Context, status string, filter interface{}) (int64, error)
}

type listingDatabase struct {
	db DatabaseHelper
}

// NewListingDatabase initializes a new instance of listing database with the provided db connection
func NewListingDatabase(db DatabaseHelper) ListingDatabase {
	return &listingDatabase{
		db: db,
	}
}

func (l *listingDatabase) FindOne(ctx context.Context, status string, filter interface{}) (*models.Listing, error) {
	coll, err := CollectionForStatus(status)
	if err != nil {
		return nil, err
	}
	listing := &models.Listing{}
	err = l.db.Collection(coll).FindOne(ctx, filter).Decode(&listing)
	if err != nil {
		return nil, err
	}
	return listing, nil
}

func (l *listingDatabase) Find(ctx context.Context, status string, filter interface{}, opts ...*options.FindOptions) ([]models.Listing, error) {
	coll, err := CollectionForStatus(status)
	if err != nil {
		return nil, err
	}
	cursor, err := l.db.Collection(coll).Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	var listings []models.Listing
	if err := cursor.All(ctx, &listings); err != nil {
		return nil, err
	}
	return listings, nil
}

func (l *listingDatabase) InsertOne(ctx context.Context, status string, listing models.Listing) (interface{}, error) {
	coll, err := CollectionForStatus(status)
	if err != nil {
		return nil, err
	}
	return l.db.Collection(coll).InsertOne(ctx, listing)
}

func (l *listingDatabase) CountDocuments(ctx context.Context, status string, filter interface{}) (int64, error) {
	coll, err := CollectionForStatus(status)
	if err != nil {
		return 0, err
	}
	return l.db.Collection(coll).CountDocuments(ctx, filter)
}

func (l *listingDatabase) DeleteOne(ctx context.Context, status string, filter interface{}) (int64, error) {
	coll, err := CollectionForStatus(status)
	if err != nil {
		return 0, err
	}
	return l.db.Collection(coll).DeleteOne(ctx, filter)
}

// OwnerListingDatabase contains the methods to use with the per-owner mirror collection
type OwnerListingDatabase interface {
	FindOne(ctx context.Context, filter interface{}) (*models.Listing, error)
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.Listing, error)
	InsertOne(ctx context.Context, listing models.Listing) (interface{}, error)
}

type ownerListingDatabase struct {
	db DatabaseHelper
}

// NewOwnerListingDatabase initializes a new instance of owner listing database with the provided db connection
func NewOwnerListingDatabase(db DatabaseHelper) OwnerListingDatabase {
	return &ownerListingDatabase{
		db: db,
	}
}

func (o *ownerListingDatabase) FindOne(ctx context.Context, filter interface{}) (*models.Listing, error) {
	listing := &models.Listing{}
	err := o.db.Collection(OwnerCollection).FindOne(ctx, filter).Decode(&listing)
	if err != nil {
		return nil, err
	}
	return listing, nil
}

func (o *ownerListingDatabase) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.Listing, error) {
	cursor, err := o.db.Collection(OwnerCollection).Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	var listings []models.Listing
	if err := cursor.All(ctx, &listings); err != nil {
		return nil, err
	}
	return listings, nil
}

func (o *ownerListingDatabase) InsertOne(ctx context.Context, listing models.Listing) (interface{}, error) {
	return o.db.Collection(OwnerCollection).InsertOne(ctx, listing)
}
