package databases

// go generate: mockery --name WishlistDatabase

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/roomloft/roomloft-api/models"
)

const wishlistCollection = "wishlists"

// WishlistDatabase contains the methods to use with the wishlist collection.
// Toggle reads current membership for (userID, listingID) immediately before
// deciding which branch to take.
type WishlistDatabase interface {
	Find(ctx context.Context, filter interface{}) ([]models.WishlistEntry, error)
	Has(ctx context.Context, userID, listingID string) (bool, error)
	Toggle(ctx context.Context, userID, listingID string) (added bool, err error)
}

type wishlistDatabase struct {
	db DatabaseHelper
}

// NewWishlistDatabase initializes a new instance of wishlist database with the provided db connection
func NewWishlistDatabase(db DatabaseHelper) WishlistDatabase {
	return &wishlistDatabase{
		db: db,
	}
}

func (wl *wishlistDatabase) Find(ctx context.Context, filter interface{}) ([]models.WishlistEntry, error) {
	cursor, err := wl.db.Collection(wishlistCollection).Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	var entries []models.WishlistEntry
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (wl *wishlistDatabase) Has(ctx context.Context, userID, listingID string) (bool, error) {
	count, err := wl.db.Collection(wishlistCollection).CountDocuments(ctx, bson.M{"userID": userID, "listingID": listingID})
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (wl *wishlistDatabase) Toggle(ctx context.Context, userID, listingID string) (bool, error) {
	entry := &models.WishlistEntry{}
	err := wl.db.Collection(wishlistCollection).FindOne(ctx, bson.M{"userID": userID, "listingID": listingID}).Decode(&entry)
	if err == nil {
		// present, so this toggle is a remove
		if _, err := wl.db.Collection(wishlistCollection).DeleteOne(ctx, bson.M{"_id": entry.ID}); err != nil {
			return false, err
		}
		return false, nil
	}
	if err != mongo.ErrNoDocuments {
		return false, err
	}

	_, err = wl.db.Collection(wishlistCollection).InsertOne(ctx, models.WishlistEntry{
		ID:        primitive.NewObjectID().Hex(),
		UserID:    userID,
		ListingID: listingID,
		CreatedAt: primitive.NewDateTimeFromTime(time.Now()),
	})
	if err != nil {
		return false, err
	}
	return true, nil
}
