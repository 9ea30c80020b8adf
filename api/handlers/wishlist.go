package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/roomloft/roomloft-api/api"
	"github.com/roomloft/roomloft-api/api/handlers/reconcile"
	"github.com/roomloft/roomloft-api/config"
	"github.com/roomloft/roomloft-api/databases"
	"github.com/roomloft/roomloft-api/models"
)

var errMissingIDs = errors.New("missing required identifier")

// Wishlist exported for testing purposes
type Wishlist struct {
	WDB databases.WishlistDatabase
	LDB databases.ListingDatabase
}

type wishlistToggleRequest struct {
	UserID    string `json:"userID"`
	ListingID string `json:"listingID"`
}

// WishlistToggleHandler adds the listing to the user's wishlist if absent,
// removes it if present
func (wl Wishlist) WishlistToggleHandler(w http.ResponseWriter, r *http.Request) {
	var req wishlistToggleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}
	if req.UserID == "" || req.ListingID == "" {
		config.ErrorStatus("userID and listingID are required", http.StatusBadRequest, w, errMissingIDs)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	added, err := wl.WDB.Toggle(ctx, req.UserID, req.ListingID)
	if err != nil {
		config.ErrorStatus("failed to toggle wishlist entry", http.StatusInternalServerError, w, err)
		return
	}

	event := "wishlist_removed"
	if added {
		event = "wishlist_added"
	}
	BroadcastWishlistEvent(req.UserID, event, req.ListingID)

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"added":     added,
		"listingID": req.ListingID,
	})
}

// WishlistHasHandler reports whether the listing is wishlisted by the user
func (wl Wishlist) WishlistHasHandler(w http.ResponseWriter, r *http.Request) {
	listingID := mux.Vars(r)["listing_id"]
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		config.ErrorStatus("userId is required", http.StatusBadRequest, w, errMissingIDs)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	has, err := wl.WDB.Has(ctx, userID, listingID)
	if err != nil {
		config.ErrorStatus("failed to check wishlist entry", http.StatusInternalServerError, w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"listingID":  listingID,
		"wishlisted": has,
	})
}

// WishlistHandler returns the user's wishlisted listings, intersected with
// the reconciled listing view so stale entries vanish with their listings
func (wl Wishlist) WishlistHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		config.ErrorStatus("userId is required", http.StatusBadRequest, w, errMissingIDs)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	entries, err := wl.WDB.Find(ctx, bson.M{"userID": userID})
	if err != nil {
		config.ErrorStatus("failed to get wishlist entries", http.StatusInternalServerError, w, err)
		return
	}

	wanted := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		wanted[e.ListingID] = struct{}{}
	}

	accepted, err := wl.LDB.Find(ctx, models.StatusAccepted, bson.D{})
	if err != nil {
		config.ErrorStatus("failed to load listings", http.StatusInternalServerError, w, err)
		return
	}
	pending, err := wl.LDB.Find(ctx, models.StatusPending, bson.D{})
	if err != nil {
		config.ErrorStatus("failed to load listings", http.StatusInternalServerError, w, err)
		return
	}
	rejected, err := wl.LDB.Find(ctx, models.StatusRejected, bson.D{})
	if err != nil {
		config.ErrorStatus("failed to load listings", http.StatusInternalServerError, w, err)
		return
	}

	merged := reconcile.Merge(accepted, pending, rejected)
	results := make([]models.Listing, 0, len(wanted))
	for _, listing := range merged {
		if _, ok := wanted[listing.ID]; ok {
			results = append(results, listing)
		}
	}

	b, err := json.Marshal(results)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}
