package handlers_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roomloft/roomloft-api/api/handlers"
)

func TestCloudinaryHandler_GenerateSignature(t *testing.T) {
	_ = os.Setenv("CLOUDINARY_UPLOAD_PRESET", "listing-photos")
	_ = os.Setenv("CLOUDINARY_API_SECRET", "test-secret")

	req, err := http.NewRequest("POST", "/api/v1/generate-signature", nil)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Authorization", "Bearer abc123")

	c := handlers.CloudinaryHandler{}

	rr := httptest.NewRecorder()
	handler := http.HandlerFunc(c.GenerateSignature)
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	var body map[string]string
	err = json.Unmarshal(rr.Body.Bytes(), &body)
	assert.NoError(t, err)
	assert.NotEmpty(t, body["signature"])
	assert.NotEmpty(t, body["timestamp"])
}
