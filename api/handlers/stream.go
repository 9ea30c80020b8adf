package handlers

import (
	"net/http"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/roomloft/roomloft-api/models"
)

// Topic for all listing lifecycle events; wishlist events use a per-user
// topic of the form "wishlist:<userId>".
const ListingsTopic = "listings"

// WishlistTopic returns the per-user wishlist topic name
func WishlistTopic(userID string) string {
	return "wishlist:" + userID
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // the browser frontend is served from another origin
	},
}

// UpdateHub tracks connected subscribers by topic. Subscribers rebuild their
// view on every event; the hub never diffs.
type UpdateHub struct {
	clients map[*websocket.Conn]map[string]struct{}
	mutex   sync.Mutex
}

var hub = &UpdateHub{
	clients: make(map[*websocket.Conn]map[string]struct{}),
}

// HandleUpdatesWebSocket upgrades the connection and subscribes it to the
// comma-separated topics in the "topics" query param
func HandleUpdatesWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		zap.S().Errorw("websocket upgrade failed", "error", err)
		return
	}

	topicsParam := r.URL.Query().Get("topics")
	if topicsParam == "" {
		conn.Close()
		return
	}
	topics := make(map[string]struct{})
	for _, t := range strings.Split(topicsParam, ",") {
		if t = strings.TrimSpace(t); t != "" {
			topics[t] = struct{}{}
		}
	}

	hub.mutex.Lock()
	hub.clients[conn] = topics
	hub.mutex.Unlock()
	zap.S().Debugw("websocket subscriber connected", "topics", topicsParam)

	// drain the connection until the client goes away
	for {
		if _, _, err := conn.NextReader(); err != nil {
			hub.mutex.Lock()
			delete(hub.clients, conn)
			hub.mutex.Unlock()
			conn.Close()
			zap.S().Debugw("websocket subscriber disconnected", "topics", topicsParam)
			break
		}
	}
}

func broadcast(topic string, payload interface{}) {
	hub.mutex.Lock()
	defer hub.mutex.Unlock()

	for conn, topics := range hub.clients {
		if _, ok := topics[topic]; !ok {
			continue
		}
		if err := conn.WriteJSON(payload); err != nil {
			zap.S().Warnw("failed to push update, dropping subscriber", "topic", topic, "error", err)
			delete(hub.clients, conn)
			conn.Close()
		}
	}
}

// BroadcastListingEvent pushes a listing lifecycle event to all listing subscribers
func BroadcastListingEvent(event string, listing models.Listing) {
	broadcast(ListingsTopic, map[string]interface{}{
		"event":   event,
		"listing": listing,
	})
}

// BroadcastWishlistEvent pushes a wishlist change to the owning user's subscribers
func BroadcastWishlistEvent(userID, event, listingID string) {
	broadcast(WishlistTopic(userID), map[string]interface{}{
		"event":     event,
		"listingID": listingID,
	})
}
