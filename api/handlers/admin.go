package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/mux"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/roomloft/roomloft-api/api"
	"github.com/roomloft/roomloft-api/api/handlers/reconcile"
	"github.com/roomloft/roomloft-api/config"
	"github.com/roomloft/roomloft-api/databases"
	"github.com/roomloft/roomloft-api/models"
	templates "github.com/roomloft/roomloft-api/templates/html"
)

type adminLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type adminLoginResponse struct {
	Token string `json:"token"`
	Admin struct {
		ID    string   `json:"id"`
		Email string   `json:"email"`
		Roles []string `json:"roles"`
	} `json:"admin"`
}

// Admin represents the admin handler
type Admin struct {
	ADB databases.AdminDatabase
	LDB databases.ListingDatabase
	TDB databases.LifecycleDatabase
}

// AdminLoginHandler handles admin login via email/password and returns a JWT
func (h Admin) AdminLoginHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	var req adminLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "invalid request"})
		return
	}

	email := strings.TrimSpace(strings.ToLower(req.Email))
	if email == "" || req.Password == "" {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "email and password required"})
		return
	}

	admin, err := h.ADB.FindOne(r.Context(), bson.M{"email": email, "active": true})
	if err != nil {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "Invalid credentials"})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(req.Password)); err != nil {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "Invalid credentials"})
		return
	}

	jwtSecret := []byte(os.Getenv("JWT_SECRET"))
	if len(jwtSecret) == 0 {
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "server misconfigured"})
		return
	}

	claims := jwt.MapClaims{
		"sub":   admin.ID.Hex(),
		"email": admin.Email,
		"roles": admin.Roles,
		"scope": "admin",
		"typ":   "access",
		"iat":   time.Now().Unix(),
		"exp":   time.Now().Add(24 * time.Hour).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(jwtSecret)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "token generation failed"})
		return
	}

	var resp adminLoginResponse
	resp.Token = signed
	resp.Admin.ID = admin.ID.Hex()
	resp.Admin.Email = admin.Email
	resp.Admin.Roles = admin.Roles

	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(resp)
}

// AdminListingsHandler returns the reconciled merge of all three status
// collections for the admin dashboard
func (h Admin) AdminListingsHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	merged, err := h.reconciledView(ctx)
	if err != nil {
		config.ErrorStatus("failed to load listings", http.StatusInternalServerError, w, err)
		return
	}

	if len(merged) == 0 {
		merged = []models.Listing{}
	}
	b, err := json.Marshal(merged)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

// AdminListingSearchHandler filters the active dashboard section. The "all"
// section searches the reconciled view; "pending" and "rejected" search their
// own collections directly.
func (h Admin) AdminListingSearchHandler(w http.ResponseWriter, r *http.Request) {
	section := r.URL.Query().Get("section")
	query := r.URL.Query().Get("q")

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	var listings []models.Listing
	var err error
	switch section {
	case "pending":
		listings, err = h.LDB.Find(ctx, models.StatusPending, bson.D{})
	case "rejected":
		listings, err = h.LDB.Find(ctx, models.StatusRejected, bson.D{})
	case "", "all":
		listings, err = h.reconciledView(ctx)
	default:
		config.ErrorStatus("unknown section", http.StatusBadRequest, w, fmt.Errorf("section %q", section))
		return
	}
	if err != nil {
		config.ErrorStatus("failed to load listings", http.StatusInternalServerError, w, err)
		return
	}

	results := reconcile.Filter(listings, query)
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

// AdminAcceptListingHandler moves a listing into the accepted collection
func (h Admin) AdminAcceptListingHandler(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "accept", h.TDB.Accept)
}

// AdminRejectListingHandler moves a listing into the rejected collection
func (h Admin) AdminRejectListingHandler(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "reject", h.TDB.Reject)
}

// AdminReverifyListingHandler moves a rejected listing back to pending
func (h Admin) AdminReverifyListingHandler(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "reverify", h.TDB.Reverify)
}

func (h Admin) transition(w http.ResponseWriter, r *http.Request, action string, apply func(context.Context, string, models.ListingDetails) error) {
	listingID := mux.Vars(r)["listing_id"]

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	listing, err := h.findListing(ctx, listingID)
	if err != nil {
		config.ErrorStatus("failed to find listing", http.StatusNotFound, w, err)
		return
	}

	if err := apply(ctx, listingID, listing.Details); err != nil {
		config.ErrorStatus(fmt.Sprintf("failed to %s listing %s", action, listing.Details.Name), http.StatusInternalServerError, w, err)
		return
	}

	listing.Details.Status = statusAfter(action)
	BroadcastListingEvent("listing_"+statusAfter(action), *listing)
	go notifyOwnerStatusChange(*listing)

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": fmt.Sprintf("Listing %s processed", listing.Details.Name),
		"status":  statusAfter(action),
	})
}

func statusAfter(action string) string {
	switch action {
	case "accept":
		return models.StatusAccepted
	case "reject":
		return models.StatusRejected
	default:
		return models.StatusPending
	}
}

// findListing locates a listing in whichever status collection currently
// holds it, in display-precedence order
func (h Admin) findListing(ctx context.Context, listingID string) (*models.Listing, error) {
	var listing *models.Listing
	var err error
	for _, status := range []string{models.StatusAccepted, models.StatusPending, models.StatusRejected} {
		listing, err = h.LDB.FindOne(ctx, status, bson.M{"_id": listingID})
		if err == nil {
			return listing, nil
		}
	}
	return nil, err
}

// notifyOwnerStatusChange emails the owner after a status transition. Missing
// owner emails are skipped silently.
func notifyOwnerStatusChange(listing models.Listing) {
	if listing.Details.OwnerEmail == "" {
		return
	}

	from := mail.NewEmail("RoomLoft", "no-reply@roomloft.in")
	subject := fmt.Sprintf("Update on your listing %s", listing.Details.Name)
	to := mail.NewEmail(listing.Details.OwnerName, listing.Details.OwnerEmail)
	plainText := fmt.Sprintf("Your listing %s is now %s.", listing.Details.Name, listing.Details.Status)
	htmlContent := templates.RenderListingStatusEmail(listing.Details.OwnerName, listing.Details.Name, listing.Details.Status)
	msg := mail.NewSingleEmail(from, subject, to, plainText, htmlContent)
	client := sendgrid.NewSendClient(os.Getenv("SENDGRID_API_KEY"))
	if _, err := client.Send(msg); err != nil {
		zap.S().Errorw("failed to send listing status email", "error", err, "listingId", listing.ID)
	}
}

func (h Admin) reconciledView(ctx context.Context) ([]models.Listing, error) {
	accepted, err := h.LDB.Find(ctx, models.StatusAccepted, bson.D{})
	if err != nil {
		return nil, err
	}
	pending, err := h.LDB.Find(ctx, models.StatusPending, bson.D{})
	if err != nil {
		return nil, err
	}
	rejected, err := h.LDB.Find(ctx, models.StatusRejected, bson.D{})
	if err != nil {
		return nil, err
	}
	return reconcile.Merge(accepted, pending, rejected), nil
}
