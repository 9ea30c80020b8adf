package handlers_test

import (
	"encoding/json"
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

func TestWishlist_WishlistToggleHandlerMissingIDs(t *testing.T) {
	req, err := http.NewRequest("POST", "/api/v1/wishlist/toggle", strings.NewReader(`{"userID": "user-1"}`))
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Authorization", "Bearer abc123")

	wl := handlers.Wishlist{}

	rr := httptest.NewRecorder()
	handler := http.HandlerFunc(wl.WishlistToggleHandler)
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)

	expected := models.ErrorMessageResponse{Response: models.MessageError{Message: "userID and listingID are required", Error: "missing required identifier"}}
	b, _ := json.Marshal(expected)
	assert.Equal(t, string(b), rr.Body.String())
}

func TestWishlist_WishlistHasHandler(t *testing.T) {
	req, err := http.NewRequest("GET", "/api/v1/wishlist/listing-1?userId=user-1", nil)
	if err != nil {
		t.Fatal(err)
	}
	req = mux.SetURLVars(req, map[string]string{"listing_id": "listing-1"})
	req.Header.Set("Authorization", "Bearer abc123")

	var db databases.DatabaseHelper
	var conn databases.CollectionHelper

	db = &mocksdb.DatabaseHelper{}
	conn = &mocksdb.CollectionHelper{}

	conn.(*mocksdb.CollectionHelper).On("CountDocuments", mock.Anything, mock.Anything).Return(int64(1), nil)
	db.(*mocksdb.DatabaseHelper).On("Collection", "wishlists").Return(conn)

	wl := handlers.Wishlist{
		WDB: databases.NewWishlistDatabase(db),
	}

	rr := httptest.NewRecorder()
	handler := http.HandlerFunc(wl.WishlistHasHandler)
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	var body map[string]interface{}
	err = json.Unmarshal(rr.Body.Bytes(), &body)
	assert.NoError(t, err)
	assert.Equal(t, true, body["wishlisted"])
	assert.Equal(t, "listing-1", body["listingID"])
}

func TestWishlist_WishlistHandlerMissingUser(t *testing.T) {
	req, err := http.NewRequest("GET", "/api/v1/wishlist", nil)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Authorization", "Bearer abc123")

	wl := handlers.Wishlist{}

	rr := httptest.NewRecorder()
	handler := http.HandlerFunc(wl.WishlistHandler)
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
