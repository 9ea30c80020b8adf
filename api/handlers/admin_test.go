package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/roomloft/roomloft-api/api/handlers"
	"github.com/roomloft/roomloft-api/databases"
	mocksdb "github.com/roomloft/roomloft-api/databases/mocks"
	"github.com/roomloft/roomloft-api/models"
)

// mockStatusCollections wires one mocked collection per status, each draining
// into the given fixture slice
func mockStatusCollections(db *mocksdb.DatabaseHelper, fixtures map[string][]models.Listing) {
	for coll, listings := range fixtures {
		listings := listings
		cursorHelper := &mocksdb.CursorHelper{}
		cursorHelper.On("All", mock.Anything, mock.Anything).
			Return(nil).Run(func(args mock.Arguments) {
			arg := args.Get(1).(*[]models.Listing)
			*arg = listings
		})
		conn := &mocksdb.CollectionHelper{}
		conn.On("Find", mock.Anything, mock.Anything).Return(databases.CursorHelper(cursorHelper), nil)
		db.On("Collection", coll).Return(databases.CollectionHelper(conn))
	}
}

func TestAdmin_AdminListingsHandlerMergePrecedence(t *testing.T) {
	req, err := http.NewRequest("GET", "/api/v1/admin/listings", nil)
	if err != nil {
		t.Fatal(err)
	}

	db := &mocksdb.DatabaseHelper{}
	mockStatusCollections(db, map[string][]models.Listing{
		"acceptedListings": {
			{ID: "listing-1", Details: models.ListingDetails{Name: "Sunrise PG", Status: models.StatusAccepted}},
		},
		"pendingListings": {
			// same id still present in pending mid-transition, accepted copy wins
			{ID: "listing-1", Details: models.ListingDetails{Name: "Sunrise PG", Status: models.StatusPending}},
			{ID: "listing-2", Details: models.ListingDetails{Name: "Lake View", Status: models.StatusPending}},
		},
		"rejectedListings": {
			{ID: "listing-3", Details: models.ListingDetails{Name: "Green Nest", Status: models.StatusRejected}},
		},
	})

	adm := handlers.Admin{
		LDB: databases.NewListingDatabase(db),
	}

	rr := httptest.NewRecorder()
	handler := http.HandlerFunc(adm.AdminListingsHandler)
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	var results []models.Listing
	err = json.Unmarshal(rr.Body.Bytes(), &results)
	assert.NoError(t, err)
	assert.Len(t, results, 3)
	assert.Equal(t, "listing-1", results[0].ID)
	assert.Equal(t, models.StatusAccepted, results[0].Details.Status)
	assert.Equal(t, "listing-2", results[1].ID)
	assert.Equal(t, "listing-3", results[2].ID)
}

func TestAdmin_AdminListingSearchHandlerStatusQuery(t *testing.T) {
	req, err := http.NewRequest("GET", "/api/v1/admin/listings/search?section=all&q=accepted", nil)
	if err != nil {
		t.Fatal(err)
	}

	db := &mocksdb.DatabaseHelper{}
	mockStatusCollections(db, map[string][]models.Listing{
		"acceptedListings": {
			{ID: "listing-2", Details: models.ListingDetails{Name: "Lake View", Status: models.StatusAccepted}},
		},
		"pendingListings": {
			{ID: "listing-1", Details: models.ListingDetails{Name: "Sunrise PG", Status: models.StatusPending}},
		},
		"rejectedListings": {},
	})

	adm := handlers.Admin{
		LDB: databases.NewListingDatabase(db),
	}

	rr := httptest.NewRecorder()
	handler := http.HandlerFunc(adm.AdminListingSearchHandler)
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	var results []models.Listing
	err = json.Unmarshal(rr.Body.Bytes(), &results)
	assert.NoError(t, err)
	assert.Len(t, results, 1)
	assert.Equal(t, "Lake View", results[0].Details.Name)
}

func TestAdmin_AdminListingSearchHandlerUnknownSection(t *testing.T) {
	req, err := http.NewRequest("GET", "/api/v1/admin/listings/search?section=archived", nil)
	if err != nil {
		t.Fatal(err)
	}

	adm := handlers.Admin{}

	rr := httptest.NewRecorder()
	handler := http.HandlerFunc(adm.AdminListingSearchHandler)
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)

	expected := models.ErrorMessageResponse{Response: models.MessageError{Message: "unknown section", Error: `section "archived"`}}
	b, _ := json.Marshal(expected)
	assert.Equal(t, string(b), rr.Body.String())
}

// failingLifecycle rejects every transition with a fixed error
type failingLifecycle struct {
	err error
}

func (f failingLifecycle) Accept(ctx context.Context, listingID string, details models.ListingDetails) error {
	return f.err
}

func (f failingLifecycle) Reject(ctx context.Context, listingID string, details models.ListingDetails) error {
	return f.err
}

func (f failingLifecycle) Reverify(ctx context.Context, listingID string, details models.ListingDetails) error {
	return f.err
}

func TestAdmin_AdminAcceptListingHandlerErrorCarriesName(t *testing.T) {
	req, err := http.NewRequest("POST", "/api/v1/admin/listings/listing-1/accept", nil)
	if err != nil {
		t.Fatal(err)
	}
	req = mux.SetURLVars(req, map[string]string{"listing_id": "listing-1"})

	var db databases.DatabaseHelper
	var conn databases.CollectionHelper
	var singleResultHelper databases.SingleResultHelper

	db = &mocksdb.DatabaseHelper{}
	conn = &mocksdb.CollectionHelper{}
	singleResultHelper = &mocksdb.SingleResultHelper{}

	singleResultHelper.(*mocksdb.SingleResultHelper).On("Decode", mock.Anything).
		Return(nil).Run(func(args mock.Arguments) {
		arg := args.Get(0).(**models.Listing)
		(*arg).ID = "listing-1"
		(*arg).Details = models.ListingDetails{
			Name:    "Sunrise PG",
			Address: "12 MG Road",
			Status:  models.StatusPending,
		}
	})
	conn.(*mocksdb.CollectionHelper).On("FindOne", mock.Anything, mock.Anything).Return(singleResultHelper)
	db.(*mocksdb.DatabaseHelper).On("Collection", "acceptedListings").Return(conn)

	adm := handlers.Admin{
		LDB: databases.NewListingDatabase(db),
		TDB: failingLifecycle{err: errors.New("mocked-error")},
	}

	rr := httptest.NewRecorder()
	handler := http.HandlerFunc(adm.AdminAcceptListingHandler)
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusInternalServerError, rr.Code)

	// the error body must name the listing that failed to move
	expected := models.ErrorMessageResponse{Response: models.MessageError{Message: "failed to accept listing Sunrise PG", Error: "mocked-error"}}
	b, _ := json.Marshal(expected)
	assert.Equal(t, string(b), rr.Body.String())
}

func TestAdmin_AdminLoginHandlerInvalidBody(t *testing.T) {
	req, err := http.NewRequest("POST", "/api/v1/admin/login", strings.NewReader("not-json"))
	if err != nil {
		t.Fatal(err)
	}

	adm := handlers.Admin{}

	rr := httptest.NewRecorder()
	handler := http.HandlerFunc(adm.AdminLoginHandler)
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestAdmin_AdminLoginHandlerMissingCredentials(t *testing.T) {
	req, err := http.NewRequest("POST", "/api/v1/admin/login", strings.NewReader(`{"email": "admin@roomloft.in"}`))
	if err != nil {
		t.Fatal(err)
	}

	adm := handlers.Admin{}

	rr := httptest.NewRecorder()
	handler := http.HandlerFunc(adm.AdminLoginHandler)
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)

	var body map[string]string
	err = json.Unmarshal(rr.Body.Bytes(), &body)
	assert.NoError(t, err)
	assert.Equal(t, "email and password required", body["error"])
}
