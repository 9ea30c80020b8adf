package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/roomloft/roomloft-api/api"
	"github.com/roomloft/roomloft-api/api/handlers/reconcile"
	"github.com/roomloft/roomloft-api/config"
	"github.com/roomloft/roomloft-api/databases"
	"github.com/roomloft/roomloft-api/models"
)

// defaultLimit is the page size used when the limit query param is absent
const defaultLimit = 10

// Listing exported for testing purposes
type Listing struct {
	DB  databases.ListingDatabase
	ODB databases.OwnerListingDatabase
}

// ListingHandler returns accepted listings, paginated
func (l Listing) ListingHandler(w http.ResponseWriter, r *http.Request) {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		zap.S().Warnf("limit not set, using default of %v, err: %v", defaultLimit, err)
		limit = defaultLimit
	}
	limit64 := int64(limit)
	page := getPage(r)
	skip64 := int64(page * limit)

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	dbResp, err := l.DB.Find(ctx, models.StatusAccepted, bson.D{}, &options.FindOptions{Limit: &limit64, Skip: &skip64})
	if err != nil {
		config.ErrorStatus("failed to get listings", http.StatusNotFound, w, err)
		return
	}

	// Because the frontend requires that the data elements inside models.Listing exist, if
	// len == 0 then we will just return an empty data object
	if len(dbResp) == 0 {
		dbResp = []models.Listing{}
	}
	b, err := json.Marshal(dbResp)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

// ListingByIDHandler returns a listing by ID, walking the three status
// collections in precedence order accepted > pending > rejected
func (l Listing) ListingByIDHandler(w http.ResponseWriter, r *http.Request) {
	listingID := mux.Vars(r)["listing_id"]

	zap.S().Debugf("listing_id: %v", listingID)

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	var dbResp *models.Listing
	var err error
	for _, status := range []string{models.StatusAccepted, models.StatusPending, models.StatusRejected} {
		dbResp, err = l.DB.FindOne(ctx, status, bson.M{"_id": listingID})
		if err == nil {
			break
		}
	}
	if err != nil {
		config.ErrorStatus("failed to get listing by ID", http.StatusNotFound, w, err)
		return
	}

	b, err := json.Marshal(dbResp)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

// CreateListingHandler accepts an owner submission into the pending
// collection and mirrors it into the owner's private collection
func (l Listing) CreateListingHandler(w http.ResponseWriter, r *http.Request) {
	var listing models.Listing
	if err := json.NewDecoder(r.Body).Decode(&listing.Details); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}

	if err := listing.Details.Validate(); err != nil {
		config.ErrorStatus("invalid listing", http.StatusBadRequest, w, err)
		return
	}

	listing.ID = primitive.NewObjectID().Hex()
	listing.Details.Status = models.StatusPending
	listing.Details.CreatedAt = primitive.NewDateTimeFromTime(time.Now())
	listing.Details.UpdatedAt = listing.Details.CreatedAt

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	if _, err := l.DB.InsertOne(ctx, models.StatusPending, listing); err != nil {
		config.ErrorStatus("failed to create listing", http.StatusInternalServerError, w, err)
		return
	}

	if listing.Details.OwnerID != "" {
		if _, err := l.ODB.InsertOne(ctx, listing); err != nil {
			// pending insert already landed; the nightly sweep cannot repair a
			// missing mirror, so surface the failure
			config.ErrorStatus("failed to create owner mirror entry", http.StatusInternalServerError, w, err)
			return
		}
	} else {
		zap.S().Warnw("listing submitted without owner id, skipping owner mirror", "listingId", listing.ID)
	}

	BroadcastListingEvent("listing_submitted", listing)

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "Listing submitted successfully",
		"id":      listing.ID,
	})
}

// ListingsByOwnerIDHandler returns the owner mirror entries for one owner
func (l Listing) ListingsByOwnerIDHandler(w http.ResponseWriter, r *http.Request) {
	ownerID := mux.Vars(r)["owner_id"]

	zap.S().Debugf("owner_id: '%v'", ownerID)

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	dbResp, err := l.ODB.Find(ctx, bson.M{"listing.ownerID": ownerID})
	if err != nil {
		config.ErrorStatus("failed to get listings by owner ID", http.StatusNotFound, w, err)
		return
	}

	if len(dbResp) == 0 {
		dbResp = []models.Listing{}
	}
	b, err := json.Marshal(dbResp)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

// ListingSearchHandler filters accepted listings by a case-insensitive
// substring against name, address, owner email or status
func (l Listing) ListingSearchHandler(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	dbResp, err := l.DB.Find(ctx, models.StatusAccepted, bson.D{})
	if err != nil {
		config.ErrorStatus("failed to search listings", http.StatusNotFound, w, err)
		return
	}

	results := reconcile.Filter(dbResp, query)
	if len(results) == 0 {
		results = []models.Listing{}
	}
	b, err := json.Marshal(results)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

// getPage parses the page query param, defaulting to the first page
func getPage(r *http.Request) int {
	raw := r.URL.Query().Get("page")
	if raw == "" {
		zap.S().Warnf("page not set, using default of 0")
		return 0
	}
	page, err := strconv.Atoi(raw)
	if err != nil {
		zap.S().Errorf("error parsing page number: %v", err)
		return 0
	}
	if page < 0 {
		zap.S().Warnf("cannot process negative page number. Got: %v", page)
		return 0
	}
	return page
}
