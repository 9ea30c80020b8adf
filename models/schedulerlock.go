package models

// SchedulerLock is a distributed lock document keyed by job name, used to
// keep cron jobs from running on more than one instance at a time
type SchedulerLock struct {
	ID         string      `bson:"_id" json:"_id"`
	Owner      string      `bson:"owner" json:"owner"`
	AcquiredAt interface{} `bson:"acquiredAt" json:"acquiredAt"`
	ExpiresAt  interface{} `bson:"expiresAt" json:"expiresAt"`
}
