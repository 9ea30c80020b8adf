package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/roomloft/roomloft-api/api"
	"github.com/roomloft/roomloft-api/config"
	"github.com/roomloft/roomloft-api/databases"
	"github.com/roomloft/roomloft-api/models"
)

// requestTimeout bounds how long any API route may take end to end
const requestTimeout = 60 * time.Second

// App stores the router and db connection, so it can be reused
type App struct {
	Router   *mux.Router
	DB       databases.CollectionHelper
	Config   config.Config
	dbHelper databases.DatabaseHelper
}

// New creates a new mux router and all the routes
func (a *App) New() *mux.Router {
	// setup go-guardian for middleware
	m := api.MiddlewareDB{DB: databases.NewUserDatabase(a.dbHelper)}
	m.SetupGoGuardian()

	r := mux.NewRouter()

	u := User{DB: databases.NewUserDatabase(a.dbHelper), RDB: databases.NewPasswordResetDatabase(a.dbHelper)}
	l := Listing{DB: databases.NewListingDatabase(a.dbHelper), ODB: databases.NewOwnerListingDatabase(a.dbHelper)}
	adm := Admin{
		ADB: databases.NewAdminDatabase(a.dbHelper),
		LDB: databases.NewListingDatabase(a.dbHelper),
		TDB: databases.NewLifecycleDatabase(a.dbHelper),
	}
	wl := Wishlist{WDB: databases.NewWishlistDatabase(a.dbHelper), LDB: databases.NewListingDatabase(a.dbHelper)}
	cloudinaryHandler := CloudinaryHandler{}

	// healthchex
	r.HandleFunc("/health", healthCheckHandler)

	apiCreate := r.PathPrefix("/api/v1").Subrouter()
	// cut off slow requests; the websocket route stays outside this subrouter
	apiCreate.Use(api.TimeoutMiddleware(requestTimeout))

	apiCreate.Handle("/auth/token", api.Middleware(http.HandlerFunc(m.CreateToken))).Methods("POST")
	apiCreate.Handle("/auth/logout", api.Middleware(http.HandlerFunc(api.RevokeToken))).Methods("DELETE")

	apiCreate.Handle("/user/create-user", http.HandlerFunc(u.UserCreateHandler)).Methods("POST")
	apiCreate.Handle("/user/check-user", http.HandlerFunc(u.UserCheckEmailHandler)).Methods("POST")
	apiCreate.Handle("/user/forgot-password", http.HandlerFunc(u.UserForgotPasswordHandler)).Methods("POST")
	apiCreate.Handle("/user/reset-password", http.HandlerFunc(u.UserResetPasswordHandler)).Methods("POST")

	apiCreate.Handle("/listings", api.Middleware(http.HandlerFunc(l.ListingHandler))).Methods("GET")
	apiCreate.Handle("/listings", api.Middleware(http.HandlerFunc(l.CreateListingHandler))).Methods("POST")
	apiCreate.Handle("/listings/search", api.Middleware(http.HandlerFunc(l.ListingSearchHandler))).Methods("GET")
	apiCreate.Handle("/listings/owner/{owner_id}", api.Middleware(http.HandlerFunc(l.ListingsByOwnerIDHandler))).Methods("GET")
	apiCreate.Handle("/listing/{listing_id}", api.Middleware(http.HandlerFunc(l.ListingByIDHandler))).Methods("GET")

	apiCreate.Handle("/wishlist", api.Middleware(http.HandlerFunc(wl.WishlistHandler))).Methods("GET")
	apiCreate.Handle("/wishlist/toggle", api.Middleware(http.HandlerFunc(wl.WishlistToggleHandler))).Methods("POST")
	apiCreate.Handle("/wishlist/{listing_id}", api.Middleware(http.HandlerFunc(wl.WishlistHasHandler))).Methods("GET")

	apiCreate.Handle("/admin/login", http.HandlerFunc(adm.AdminLoginHandler)).Methods("POST")
	apiCreate.Handle("/admin/listings", api.AdminMiddleware(http.HandlerFunc(adm.AdminListingsHandler))).Methods("GET")
	apiCreate.Handle("/admin/listings/search", api.AdminMiddleware(http.HandlerFunc(adm.AdminListingSearchHandler))).Methods("GET")
	apiCreate.Handle("/admin/listings/{listing_id}/accept", api.AdminMiddleware(http.HandlerFunc(adm.AdminAcceptListingHandler))).Methods("POST")
	apiCreate.Handle("/admin/listings/{listing_id}/reject", api.AdminMiddleware(http.HandlerFunc(adm.AdminRejectListingHandler))).Methods("POST")
	apiCreate.Handle("/admin/listings/{listing_id}/reverify", api.AdminMiddleware(http.HandlerFunc(adm.AdminReverifyListingHandler))).Methods("POST")

	apiCreate.Handle("/generate-signature", api.Middleware(http.HandlerFunc(cloudinaryHandler.GenerateSignature))).Methods("POST")

	r.HandleFunc("/ws/updates", HandleUpdatesWebSocket)

	return r
}

// Initialize is invoked by main to connect with the database and create a router
func (a *App) Initialize() error {

	client, err := databases.NewClient(&a.Config)
	if err != nil {
		// if we fail to create a new database client, then kill the pod
		zap.S().With(err).Error("failed to create new client")
		return err
	}

	a.dbHelper = databases.NewDatabase(&a.Config, client)
	err = client.Connect()
	if err != nil {
		// if we fail to connect to the database, then kill the pod
		zap.S().With(err).Error("failed to connect to database")
		return err
	}
	zap.S().Info("roomloft-api has connected to the database")

	// initialize api router
	a.initializeRoutes()
	return nil

}

// DBHelper exposes the database connection for background jobs
func (a *App) DBHelper() databases.DatabaseHelper {
	return a.dbHelper
}

func (a *App) initializeRoutes() {
	a.Router = a.New()
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	b, _ := json.Marshal(models.HealthCheckResponse{
		Alive: true,
	})
	_, _ = io.WriteString(w, string(b))
}
