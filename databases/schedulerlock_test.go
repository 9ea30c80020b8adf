package databases_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/roomloft/roomloft-api/databases"
	"github.com/roomloft/roomloft-api/databases/mocks"
	"github.com/roomloft/roomloft-api/models"
)

func TestSchedulerLockDatabase_TryAcquireLock(t *testing.T) {
	var dbHelper databases.DatabaseHelper
	var collectionHelper databases.CollectionHelper

	dbHelper = &mocks.DatabaseHelper{}
	collectionHelper = &mocks.CollectionHelper{}

	var gotUpdate bson.M
	collectionHelper.(*mocks.CollectionHelper).
		On("UpdateOne", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(&mongo.UpdateResult{UpsertedCount: 1}, nil).Run(func(args mock.Arguments) {
		gotUpdate = args.Get(2).(bson.M)
	})
	dbHelper.(*mocks.DatabaseHelper).On("Collection", "schedulerLocks").Return(collectionHelper)

	lockDB := databases.NewSchedulerLockDatabase(dbHelper)

	acquired, err := lockDB.TryAcquireLock(context.Background(), "membership_sweep_job", "instance-1", 10*time.Minute)
	assert.NoError(t, err)
	assert.True(t, acquired)

	// the claim carries the owner stamp and an expiry
	set := gotUpdate["$set"].(bson.M)
	assert.Equal(t, "instance-1", set["owner"])
	assert.IsType(t, primitive.DateTime(0), set["acquiredAt"])
	assert.IsType(t, primitive.DateTime(0), set["expiresAt"])
}

func TestSchedulerLockDatabase_TryAcquireLockHeldElsewhere(t *testing.T) {
	var dbHelper databases.DatabaseHelper
	var collectionHelper databases.CollectionHelper

	dbHelper = &mocks.DatabaseHelper{}
	collectionHelper = &mocks.CollectionHelper{}

	dupErr := mongo.WriteException{WriteErrors: mongo.WriteErrors{{Code: 11000}}}
	collectionHelper.(*mocks.CollectionHelper).
		On("UpdateOne", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, dupErr)
	dbHelper.(*mocks.DatabaseHelper).On("Collection", "schedulerLocks").Return(collectionHelper)

	lockDB := databases.NewSchedulerLockDatabase(dbHelper)

	// an unexpired lock on another instance is not an error, just a miss
	acquired, err := lockDB.TryAcquireLock(context.Background(), "membership_sweep_job", "instance-2", 10*time.Minute)
	assert.NoError(t, err)
	assert.False(t, acquired)
}

func TestSchedulerLockDatabase_FindOne(t *testing.T) {
	var dbHelper databases.DatabaseHelper
	var collectionHelper databases.CollectionHelper
	var srHelper databases.SingleResultHelper

	dbHelper = &mocks.DatabaseHelper{}
	collectionHelper = &mocks.CollectionHelper{}
	srHelper = &mocks.SingleResultHelper{}

	srHelper.(*mocks.SingleResultHelper).
		On("Decode", mock.Anything).
		Return(nil).Run(func(args mock.Arguments) {
		arg := args.Get(0).(**models.SchedulerLock)
		(*arg).ID = "membership_sweep_job"
		(*arg).Owner = "instance-1"
	})
	collectionHelper.(*mocks.CollectionHelper).
		On("FindOne", context.Background(), bson.M{"_id": "membership_sweep_job"}).
		Return(srHelper)
	dbHelper.(*mocks.DatabaseHelper).On("Collection", "schedulerLocks").Return(collectionHelper)

	lockDB := databases.NewSchedulerLockDatabase(dbHelper)

	lock, err := lockDB.FindOne(context.Background(), "membership_sweep_job")
	assert.NoError(t, err)
	assert.Equal(t, "instance-1", lock.Owner)
}

func TestSchedulerLockDatabase_ReleaseLock(t *testing.T) {
	var dbHelper databases.DatabaseHelper
	var collectionHelper databases.CollectionHelper

	dbHelper = &mocks.DatabaseHelper{}
	collectionHelper = &mocks.CollectionHelper{}

	collectionHelper.(*mocks.CollectionHelper).
		On("DeleteOne", context.Background(), bson.M{"_id": "membership_sweep_job", "owner": "instance-1"}).
		Return(int64(1), nil)
	dbHelper.(*mocks.DatabaseHelper).On("Collection", "schedulerLocks").Return(collectionHelper)

	lockDB := databases.NewSchedulerLockDatabase(dbHelper)

	err := lockDB.ReleaseLock(context.Background(), "membership_sweep_job", "instance-1")
	assert.NoError(t, err)
}
