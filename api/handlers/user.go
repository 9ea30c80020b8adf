package handlers

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"

	"github.com/roomloft/roomloft-api/api"
	"github.com/roomloft/roomloft-api/config"
	"github.com/roomloft/roomloft-api/databases"
	"github.com/roomloft/roomloft-api/models"
	templates "github.com/roomloft/roomloft-api/templates/html"
)

// User exported for testing purposes
type User struct {
	DB  databases.UserDatabase
	RDB databases.PasswordResetDatabase
}

// UserCreateHandler creates a new user account
func (u User) UserCreateHandler(w http.ResponseWriter, r *http.Request) {
	var details models.UserDetails
	if err := json.NewDecoder(r.Body).Decode(&details); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}

	details.Email = strings.TrimSpace(strings.ToLower(details.Email))
	if details.Email == "" || details.Password == "" {
		http.Error(w, `{"success": false, "message": "Email and password are required"}`, http.StatusBadRequest)
		return
	}
	if details.Role == "" {
		details.Role = "seeker"
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	count, err := u.DB.CountDocuments(ctx, bson.M{"user.email": details.Email})
	if err != nil {
		config.ErrorStatus("failed to check existing users", http.StatusInternalServerError, w, err)
		return
	}
	if count > 0 {
		http.Error(w, `{"success": false, "message": "Email already exists"}`, http.StatusBadRequest)
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(details.Password), bcrypt.DefaultCost)
	if err != nil {
		config.ErrorStatus("failed to hash password", http.StatusInternalServerError, w, err)
		return
	}
	details.Password = string(hashed)
	details.CreatedAt = primitive.NewDateTimeFromTime(time.Now())
	details.UpdatedAt = details.CreatedAt

	user := models.User{
		ID:      primitive.NewObjectID().Hex(),
		Details: details,
	}
	if _, err := u.DB.InsertOne(ctx, user); err != nil {
		config.ErrorStatus("failed to create user", http.StatusInternalServerError, w, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "User created successfully",
		"id":      user.ID,
	})
}

// UserCheckEmailHandler reports whether an account exists for the given email
func (u User) UserCheckEmailHandler(w http.ResponseWriter, r *http.Request) {
	var requestBody struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&requestBody); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}

	email := strings.TrimSpace(strings.ToLower(requestBody.Email))

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	count, err := u.DB.CountDocuments(ctx, bson.M{"user.email": email})
	if err != nil {
		config.ErrorStatus("failed to check user", http.StatusInternalServerError, w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"exists": count > 0,
	})
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

// UserForgotPasswordHandler sends a password reset email if the user exists (no-op otherwise)
func (u User) UserForgotPasswordHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	var req forgotPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "invalid request"})
		return
	}

	email := strings.TrimSpace(strings.ToLower(req.Email))
	if email == "" {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "email required"})
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	users, err := u.DB.Find(ctx, bson.M{"user.email": email})
	if err == nil && len(users) > 0 {
		plain, hashHex, genErr := generateResetToken()
		if genErr == nil {
			_, _ = u.RDB.InsertOne(ctx, models.PasswordReset{
				UserID:    users[0].ID,
				TokenHash: hashHex,
				ExpiresAt: primitive.NewDateTimeFromTime(time.Now().Add(1 * time.Hour)),
				CreatedAt: primitive.NewDateTimeFromTime(time.Now()),
			})
			_ = sendResetEmail(email, users[0].Details.Name, buildResetLink(os.Getenv("PUBLIC_WEB_BASE_URL"), plain))
		}
	}

	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"message": "If that email exists, a reset link has been sent."})
}

type resetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

// UserResetPasswordHandler resets the user password with a valid one-time token
func (u User) UserResetPasswordHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	var req resetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "invalid request"})
		return
	}

	token := strings.TrimSpace(req.Token)
	if token == "" || req.Password == "" {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "token and password required"})
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	reset, err := u.RDB.FindOne(ctx, bson.M{
		"tokenHash": hashToken(token),
		"usedAt":    bson.M{"$exists": false},
		"expiresAt": bson.M{"$gt": primitive.NewDateTimeFromTime(time.Now())},
	})
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "invalid or expired token"})
		return
	}

	newHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "could not update password"})
		return
	}

	_, err = u.DB.UpdateOne(ctx, bson.M{"_id": reset.UserID}, bson.M{"$set": bson.M{
		"user.password":  string(newHash),
		"user.updatedAt": primitive.NewDateTimeFromTime(time.Now()),
	}})
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "could not update password"})
		return
	}
	// Mark token used
	_, _ = u.RDB.UpdateOne(ctx, bson.M{"_id": reset.ID}, bson.M{"$set": bson.M{"usedAt": primitive.NewDateTimeFromTime(time.Now())}})

	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"message": "password updated"})
}

// helpers

func generateResetToken() (plain string, hashHex string, err error) {
	b := make([]byte, 32)
	_, err = rand.Read(b)
	if err != nil {
		return "", "", err
	}
	pln := hex.EncodeToString(b)
	return pln, hashToken(pln), nil
}

func hashToken(plain string) string {
	sum := sha256.Sum256([]byte(plain))
	return hex.EncodeToString(sum[:])
}

func buildResetLink(baseURL, token string) string {
	base := strings.TrimRight(baseURL, "/")
	if base == "" {
		base = "https://www.roomloft.in"
	}
	return base + "/reset-password?token=" + token
}

func sendResetEmail(toEmail, toName, resetLink string) error {
	from := mail.NewEmail("RoomLoft", "no-reply@roomloft.in")
	subject := "RoomLoft Password Reset"
	to := mail.NewEmail(toName, toEmail)
	plain := "Reset your password using this link: " + resetLink
	html := templates.RenderPasswordResetEmail(resetLink)
	msg := mail.NewSingleEmail(from, subject, to, plain, html)
	client := sendgrid.NewSendClient(os.Getenv("SENDGRID_API_KEY"))
	_, err := client.Send(msg)
	return err
}
