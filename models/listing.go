package models

import (
	"fmt"
	"strings"
)

// Listing status values. A listing lives in exactly one of the three
// status collections, named after these values.
const (
	StatusPending  = "pending"
	StatusAccepted = "accepted"
	StatusRejected = "rejected"
)

// Listing holds the structure for the listing collections in mongo
type Listing struct {
	ID      string         `json:"_id" bson:"_id"`
	Details ListingDetails `json:"listing" bson:"listing"`
	Version int32          `json:"__v" bson:"__v"`
}

// ListingDetails holds the structure for the inner listing structure as
// defined in the listing collections in mongo
type ListingDetails struct {
	Name       string          `json:"name" bson:"name"`
	Address    string          `json:"address" bson:"address"`
	Locality   string          `json:"locality" bson:"locality"`
	City       string          `json:"city" bson:"city"`
	OwnerID    string          `json:"ownerID" bson:"ownerID"`
	OwnerName  string          `json:"ownerName" bson:"ownerName"`
	OwnerEmail string          `json:"ownerEmail" bson:"ownerEmail"`
	OwnerPhone string          `json:"ownerPhone" bson:"ownerPhone"`
	Sharing    []SharingOption `json:"sharing" bson:"sharing"`
	Facilities []string        `json:"facilities" bson:"facilities"`
	Photos     []Photo         `json:"photos" bson:"photos"`
	Status     string          `json:"status" bson:"status"`
	CreatedAt  interface{}     `json:"createdAt" bson:"createdAt"`
	UpdatedAt  interface{}     `json:"updatedAt" bson:"updatedAt"`
}

// SharingOption describes one room type offered by a listing
type SharingOption struct {
	Type         string `json:"type" bson:"type"`
	Available    bool   `json:"available" bson:"available"`
	Price        int    `json:"price" bson:"price"`
	MessIncluded bool   `json:"messIncluded" bson:"messIncluded"`
}

// Photo holds a single listing photo record
type Photo struct {
	URL     string `json:"url" bson:"url"`
	Caption string `json:"caption" bson:"caption"`
}

// ValidStatus reports whether s is one of the three listing statuses
func ValidStatus(s string) bool {
	switch s {
	case StatusPending, StatusAccepted, StatusRejected:
		return true
	}
	return false
}

// Validate rejects malformed listing documents before they reach the store
func (d ListingDetails) Validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return fmt.Errorf("listing name is required")
	}
	if strings.TrimSpace(d.Address) == "" {
		return fmt.Errorf("listing address is required")
	}
	if d.Status != "" && !ValidStatus(d.Status) {
		return fmt.Errorf("invalid listing status %q", d.Status)
	}
	for _, s := range d.Sharing {
		if s.Price <= 0 {
			return fmt.Errorf("sharing option %q must have a positive price", s.Type)
		}
	}
	return nil
}
