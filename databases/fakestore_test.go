package databases_test

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/roomloft/roomloft-api/databases"
)

// fakeStore is an in-memory stand-in for mongo used to test transactional
// behavior. Documents are held as bson.M keyed by their _id, one map per
// collection. WithTransaction snapshots the whole store before running the
// callback and restores the snapshot if the callback errors, mirroring a
// mongo transaction abort.
//
// Setting failOn to "<collection>/<op>" (for example "ownerListings/UpdateOne")
// makes that operation return an error, so tests can simulate a failure
// partway through a batch.
type fakeStore struct {
	collections map[string]map[string]bson.M
	failOn      string
}

func newFakeStore() *fakeStore {
	return &fakeStore{collections: map[string]map[string]bson.M{}}
}

func (fs *fakeStore) coll(name string) map[string]bson.M {
	if fs.collections[name] == nil {
		fs.collections[name] = map[string]bson.M{}
	}
	return fs.collections[name]
}

// seed inserts a document, marshalling it through bson so that stored shapes
// match what the real driver would persist
func (fs *fakeStore) seed(collection string, doc interface{}) {
	m, err := toBsonM(doc)
	if err != nil {
		panic(err)
	}
	id, _ := m["_id"].(string)
	fs.coll(collection)[id] = m
}

func (fs *fakeStore) count(collection string) int {
	return len(fs.collections[collection])
}

func (fs *fakeStore) get(collection, id string, out interface{}) bool {
	m, ok := fs.coll(collection)[id]
	if !ok {
		return false
	}
	raw, err := bson.Marshal(m)
	if err != nil {
		panic(err)
	}
	if err := bson.Unmarshal(raw, out); err != nil {
		panic(err)
	}
	return true
}

func (fs *fakeStore) snapshot() map[string]map[string]bson.M {
	snap := map[string]map[string]bson.M{}
	for name, docs := range fs.collections {
		snap[name] = map[string]bson.M{}
		for id, doc := range docs {
			cp, err := toBsonM(doc)
			if err != nil {
				panic(err)
			}
			snap[name][id] = cp
		}
	}
	return snap
}

// helper implements databases.DatabaseHelper on top of the store
func (fs *fakeStore) helper() databases.DatabaseHelper {
	return &fakeDatabase{store: fs}
}

type fakeDatabase struct {
	store *fakeStore
}

func (fd *fakeDatabase) Collection(name string) databases.CollectionHelper {
	return &fakeCollection{store: fd.store, name: name}
}

func (fd *fakeDatabase) Client() databases.ClientHelper {
	return &fakeClient{store: fd.store}
}

type fakeClient struct {
	store *fakeStore
}

func (fc *fakeClient) Database(string) databases.DatabaseHelper {
	return &fakeDatabase{store: fc.store}
}

func (fc *fakeClient) Connect() error { return nil }

func (fc *fakeClient) WithTransaction(ctx context.Context, fn func(sc context.Context) error) error {
	snap := fc.store.snapshot()
	if err := fn(ctx); err != nil {
		fc.store.collections = snap
		return err
	}
	return nil
}

type fakeCollection struct {
	store *fakeStore
	name  string
}

func (c *fakeCollection) failing(op string) bool {
	return c.store.failOn == c.name+"/"+op
}

func (c *fakeCollection) FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) databases.SingleResultHelper {
	for _, doc := range c.store.coll(c.name) {
		if matchesFilter(doc, filter) {
			return &fakeSingleResult{doc: doc}
		}
	}
	return &fakeSingleResult{err: mongo.ErrNoDocuments}
}

func (c *fakeCollection) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (databases.CursorHelper, error) {
	if c.failing("Find") {
		return nil, errors.New("injected find failure")
	}
	var docs []bson.M
	for _, doc := range c.store.coll(c.name) {
		if matchesFilter(doc, filter) {
			docs = append(docs, doc)
		}
	}
	return &fakeCursor{docs: docs}, nil
}

func (c *fakeCollection) InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (interface{}, error) {
	if c.failing("InsertOne") {
		return nil, errors.New("injected insert failure")
	}
	m, err := toBsonM(document)
	if err != nil {
		return nil, err
	}
	id, _ := m["_id"].(string)
	c.store.coll(c.name)[id] = m
	return id, nil
}

func (c *fakeCollection) UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
	if c.failing("UpdateOne") {
		return nil, errors.New("injected update failure")
	}
	set, err := setFields(update)
	if err != nil {
		return nil, err
	}
	for id, doc := range c.store.coll(c.name) {
		if matchesFilter(doc, filter) {
			applySet(doc, set)
			c.store.coll(c.name)[id] = doc
			return &mongo.UpdateResult{MatchedCount: 1, ModifiedCount: 1}, nil
		}
	}

	upsert := false
	for _, o := range opts {
		if o.Upsert != nil && *o.Upsert {
			upsert = true
		}
	}
	if !upsert {
		return &mongo.UpdateResult{}, nil
	}

	fm, err := toBsonM(filter)
	if err != nil {
		return nil, err
	}
	id, _ := fm["_id"].(string)
	doc := bson.M{"_id": id}
	applySet(doc, set)
	c.store.coll(c.name)[id] = doc
	return &mongo.UpdateResult{UpsertedCount: 1, UpsertedID: id}, nil
}

func (c *fakeCollection) DeleteOne(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) (int64, error) {
	if c.failing("DeleteOne") {
		return 0, errors.New("injected delete failure")
	}
	for id, doc := range c.store.coll(c.name) {
		if matchesFilter(doc, filter) {
			delete(c.store.coll(c.name), id)
			return 1, nil
		}
	}
	return 0, nil
}

func (c *fakeCollection) CountDocuments(ctx context.Context, filter interface{}, opts ...*options.CountOptions) (int64, error) {
	var n int64
	for _, doc := range c.store.coll(c.name) {
		if matchesFilter(doc, filter) {
			n++
		}
	}
	return n, nil
}

func (c *fakeCollection) Aggregate(ctx context.Context, pipeline interface{}, opts ...*options.AggregateOptions) (databases.CursorHelper, error) {
	return nil, errors.New("aggregate not supported by fake store")
}

type fakeSingleResult struct {
	doc bson.M
	err error
}

func (sr *fakeSingleResult) Decode(v interface{}) error {
	if sr.err != nil {
		return sr.err
	}
	raw, err := bson.Marshal(sr.doc)
	if err != nil {
		return err
	}
	return bson.Unmarshal(raw, v)
}

type fakeCursor struct {
	docs []bson.M
}

func (cr *fakeCursor) All(ctx context.Context, results interface{}) error {
	slicev := reflect.ValueOf(results).Elem()
	for _, doc := range cr.docs {
		raw, err := bson.Marshal(doc)
		if err != nil {
			return err
		}
		elem := reflect.New(slicev.Type().Elem())
		if err := bson.Unmarshal(raw, elem.Interface()); err != nil {
			return err
		}
		slicev = reflect.Append(slicev, elem.Elem())
	}
	reflect.ValueOf(results).Elem().Set(slicev)
	return nil
}

// matchesFilter supports the equality filters the data layer issues,
// including dotted paths like "listing.ownerID"
func matchesFilter(doc bson.M, filter interface{}) bool {
	fm, err := toBsonM(filter)
	if err != nil {
		return false
	}
	for key, want := range fm {
		got, ok := lookupPath(doc, key)
		if !ok {
			return false
		}
		if fmt.Sprintf("%v", got) != fmt.Sprintf("%v", want) {
			return false
		}
	}
	return true
}

func setFields(update interface{}) (bson.M, error) {
	um, err := toBsonM(update)
	if err != nil {
		return nil, err
	}
	set, ok := um["$set"].(bson.M)
	if !ok {
		return nil, fmt.Errorf("fake store only supports $set updates, got %v", um)
	}
	return set, nil
}

func applySet(doc bson.M, set bson.M) {
	for key, value := range set {
		setPath(doc, key, value)
	}
}

func lookupPath(doc bson.M, path string) (interface{}, bool) {
	parts := strings.Split(path, ".")
	var cur interface{} = doc
	for _, p := range parts {
		m, ok := cur.(bson.M)
		if !ok {
			return nil, false
		}
		cur, ok = m[p]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

func setPath(doc bson.M, path string, value interface{}) {
	parts := strings.Split(path, ".")
	cur := doc
	for _, p := range parts[:len(parts)-1] {
		next, ok := cur[p].(bson.M)
		if !ok {
			next = bson.M{}
			cur[p] = next
		}
		cur = next
	}
	cur[parts[len(parts)-1]] = value
}

// toBsonM round-trips any value through bson so nested structs become maps
func toBsonM(v interface{}) (bson.M, error) {
	raw, err := bson.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out bson.M
	if err := bson.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return normalize(out).(bson.M), nil
}

// normalize rewrites primitive.D documents as bson.M recursively. The driver
// decodes nested interface{} documents as bson.D, which the dotted-path
// helpers cannot traverse.
func normalize(v interface{}) interface{} {
	switch t := v.(type) {
	case bson.M:
		for k, val := range t {
			t[k] = normalize(val)
		}
		return t
	case bson.D:
		m := bson.M{}
		for _, e := range t {
			m[e.Key] = normalize(e.Value)
		}
		return m
	case bson.A:
		for i, val := range t {
			t[i] = normalize(val)
		}
		return t
	}
	return v
}
