package models

// WishlistEntry holds the structure for the wishlists collection in mongo.
// One document per (user, listing) pair.
type WishlistEntry struct {
	ID        string      `json:"_id" bson:"_id"`
	UserID    string      `json:"userID" bson:"userID"`
	ListingID string      `json:"listingID" bson:"listingID"`
	CreatedAt interface{} `json:"createdAt" bson:"createdAt"`
}
