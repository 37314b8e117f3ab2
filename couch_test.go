package couch_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	couch "github.com/patrickjuchli/minicouch"
	"github.com/patrickjuchli/minicouch/internal/couchtest"
)

const testDB = "couch_test_go"

type Person struct {
	couch.Doc
	Name   string
	Height uint8
	Alive  bool
}

func TestDocJson(t *testing.T) {
	t.Parallel()
	enc, err := json.Marshal(Person{})
	require.NoError(t, err)
	dec := make(map[string]interface{})
	require.NoError(t, json.Unmarshal(enc, &dec))
	assert.NotContains(t, dec, "_id", "empty ID should be omitted")
	assert.NotContains(t, dec, "_rev", "empty Rev should be omitted")
}

func TestIdentifiableDoc(t *testing.T) {
	t.Parallel()
	doc := Person{Name: "Peter", Height: 185}
	id, rev := doc.IDRev()
	assert.Empty(t, id)
	assert.Empty(t, rev)
	doc.SetIDRev("foo", "bar")
	id, rev = doc.IDRev()
	assert.Equal(t, "foo", id)
	assert.Equal(t, "bar", rev)
}

func TestIdentifiableDynamicDoc(t *testing.T) {
	t.Parallel()
	doc := couch.DynamicDoc{"Name": "Peter"}
	id, rev := doc.IDRev()
	assert.Empty(t, id)
	assert.Empty(t, rev)
	doc.SetIDRev("foo", "bar")
	id, rev = doc.IDRev()
	assert.Equal(t, "foo", id)
	assert.Equal(t, "bar", rev)
}

func TestNormalizeURL(t *testing.T) {
	t.Parallel()
	cases := map[string]string{
		"":                                  couch.DefaultURL,
		"http://localhost:5984":             "http://localhost:5984/",
		"http://example.com:1234/some/path": "http://example.com:1234/",
		"https://db.example.com/x?y=1#frag": "https://db.example.com/",
	}
	for in, want := range cases {
		c, err := couch.New(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, c.URL(), in)
	}

	_, err := couch.New("http://[::1")
	assert.Error(t, err)
}

func TestNegativePrefetch(t *testing.T) {
	t.Parallel()
	prefetch := -1
	_, err := couch.NewWithConfig(couch.Config{UUIDPrefetch: &prefetch})
	assert.ErrorIs(t, err, couch.ErrInvalidArgument)
}

func TestDatabase(t *testing.T) {
	t.Parallel()
	c, _ := newTestClient(t)
	db := c.Database("foo")
	assert.Equal(t, "foo", db.Name())
	assert.Same(t, c, db.Client())
}

func TestRoot(t *testing.T) {
	c, _ := newTestClient(t)
	root, err := c.Root(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Welcome", root["couchdb"])
	assert.NotEmpty(t, root["version"])
}

func TestRootIgnoresStatus(t *testing.T) {
	c, srv := newTestClient(t)
	srv.FailWith(http.MethodGet, "/", http.StatusInternalServerError)
	root, err := c.Root(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "unknown_error", root["error"])
}

func TestDatabaseLifecycle(t *testing.T) {
	c, srv := newTestClient(t)
	ctx := context.Background()

	result, err := c.CreateDatabase(ctx, testDB)
	require.NoError(t, err)
	assert.Equal(t, true, result["ok"])

	exists, err := c.DatabaseExists(ctx, testDB)
	require.NoError(t, err)
	assert.True(t, exists)

	_, err = c.CreateDatabase(ctx, testDB)
	require.Error(t, err)
	var sErr *couch.StatusError
	require.True(t, errors.As(err, &sErr))
	assert.Equal(t, http.StatusPreconditionFailed, sErr.StatusCode)
	assert.Equal(t, "file_exists", couch.ErrorType(err))

	result, err = c.DeleteDatabase(ctx, testDB)
	require.NoError(t, err)
	assert.Equal(t, true, result["ok"])

	exists, err = c.DatabaseExists(ctx, testDB)
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = c.DeleteDatabase(ctx, testDB)
	assert.True(t, couch.IsNotFound(err))

	assert.Equal(t, []string{
		"PUT /" + testDB + "/",
		"GET /" + testDB + "/",
		"PUT /" + testDB + "/",
		"DELETE /" + testDB + "/",
		"GET /" + testDB + "/",
		"DELETE /" + testDB + "/",
	}, srv.Requests())
}

func TestDatabaseExists(t *testing.T) {
	c, srv := newTestClient(t)
	ctx := context.Background()

	exists, err := c.DatabaseExists(ctx, "definitely-absent-name")
	require.NoError(t, err)
	assert.False(t, exists)

	exists, err = c.DatabaseExists(ctx, "_users")
	require.NoError(t, err)
	assert.True(t, exists)

	// Anything but 404 counts as existing.
	srv.FailWith(http.MethodGet, "/broken/", http.StatusInternalServerError)
	exists, err = c.DatabaseExists(ctx, "broken")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestInvalidArguments(t *testing.T) {
	c, srv := newTestClient(t)
	ctx := context.Background()
	var nilDoc *Person
	var nilMap map[string]interface{}

	_, err := c.CreateDatabase(ctx, "")
	assert.ErrorIs(t, err, couch.ErrInvalidArgument)
	_, err = c.DeleteDatabase(ctx, "")
	assert.ErrorIs(t, err, couch.ErrInvalidArgument)
	_, err = c.DatabaseExists(ctx, "")
	assert.ErrorIs(t, err, couch.ErrInvalidArgument)
	_, err = c.UUIDs(ctx, 0)
	assert.ErrorIs(t, err, couch.ErrInvalidArgument)
	_, err = c.UUIDs(ctx, -3)
	assert.ErrorIs(t, err, couch.ErrInvalidArgument)
	_, err = c.CreateDocument(ctx, testDB, nil)
	assert.ErrorIs(t, err, couch.ErrInvalidArgument)
	_, err = c.CreateDocument(ctx, testDB, nilDoc)
	assert.ErrorIs(t, err, couch.ErrInvalidArgument)
	_, err = c.CreateDocument(ctx, testDB, nilMap)
	assert.ErrorIs(t, err, couch.ErrInvalidArgument)
	_, err = c.CreateDocument(ctx, "", map[string]string{"foo": "bar"})
	assert.ErrorIs(t, err, couch.ErrInvalidArgument)
	_, err = c.PutDocument(ctx, testDB, "", map[string]string{"foo": "bar"})
	assert.ErrorIs(t, err, couch.ErrInvalidArgument)
	_, err = c.GetDocument(ctx, testDB, "", "")
	assert.ErrorIs(t, err, couch.ErrInvalidArgument)
	_, err = c.GetDocument(ctx, "", "id", "")
	assert.ErrorIs(t, err, couch.ErrInvalidArgument)
	_, err = c.DeleteDocument(ctx, testDB, "id", "")
	assert.ErrorIs(t, err, couch.ErrInvalidArgument)
	_, err = c.DeleteDocument(ctx, testDB, "", "1-a")
	assert.ErrorIs(t, err, couch.ErrInvalidArgument)
	assert.NotPanics(t, func() {
		err = c.Database(testDB).Insert(ctx, nilDoc)
	})
	assert.ErrorIs(t, err, couch.ErrInvalidArgument)
	assert.NotPanics(t, func() {
		err = c.Database(testDB).Insert(ctx, nil)
	})
	assert.ErrorIs(t, err, couch.ErrInvalidArgument)

	assert.Empty(t, srv.Requests(), "invalid arguments must not reach the server")
}

func TestUUIDs(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	for _, n := range []int{5, 500} {
		ids, err := c.UUIDs(ctx, n)
		require.NoError(t, err)
		require.Len(t, ids, n)
		assertDistinctIDs(t, ids)
	}

	id, err := c.UUID(ctx)
	require.NoError(t, err)
	assert.Len(t, id, 32)
}

func TestUUIDsDoNotOverlap(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	first, err := c.UUIDs(ctx, 50)
	require.NoError(t, err)
	second, err := c.UUIDs(ctx, 80)
	require.NoError(t, err)
	assertDistinctIDs(t, append(first, second...))
}

func TestUUIDsConcurrent(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		all []string
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ids, err := c.UUIDs(ctx, 37)
			assert.NoError(t, err)
			mu.Lock()
			all = append(all, ids...)
			mu.Unlock()
		}()
	}
	wg.Wait()
	require.Len(t, all, 20*37)
	assertDistinctIDs(t, all)
}

func TestUUIDsBuffered(t *testing.T) {
	c, srv := newTestClient(t)
	ctx := context.Background()

	_, err := c.UUIDs(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"GET /_uuids?count=105"}, srv.Requests())

	// 100 are left, so these are served without a request.
	srv.ResetRequests()
	_, err = c.UUIDs(ctx, 100)
	require.NoError(t, err)
	assert.Empty(t, srv.Requests())

	_, err = c.UUIDs(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"GET /_uuids?count=101"}, srv.Requests())
}

func TestUUIDsServerError(t *testing.T) {
	c, srv := newTestClient(t)
	srv.FailWith(http.MethodGet, "/_uuids", http.StatusServiceUnavailable)

	_, err := c.UUIDs(context.Background(), 3)
	require.Error(t, err)
	var sErr *couch.StatusError
	require.True(t, errors.As(err, &sErr))
	assert.Equal(t, http.StatusServiceUnavailable, sErr.StatusCode)
}

func TestUUIDsShort(t *testing.T) {
	c, srv := newTestClient(t)
	srv.SetUUIDGenerator(func(int) []string {
		return []string{"00000000000000000000000000000001", "00000000000000000000000000000001"}
	})
	_, err := c.UUIDs(context.Background(), 2)
	assert.ErrorIs(t, err, couch.ErrShortUUIDs)
}

func TestDocumentLifecycle(t *testing.T) {
	c, srv := newTestClient(t)
	ctx := context.Background()
	setUpDatabase(t, c)

	ref, err := c.CreateDocument(ctx, testDB, map[string]string{"foo": "bar"})
	require.NoError(t, err)
	assert.Len(t, ref.ID, 32)
	assert.NotEmpty(t, ref.Rev)
	assert.True(t, ref.OK)

	doc, err := c.GetDocument(ctx, testDB, ref.ID, "")
	require.NoError(t, err)
	assert.Equal(t, ref.ID, doc["_id"])
	assert.Equal(t, ref.Rev, doc["_rev"])
	assert.Equal(t, "bar", doc["foo"])

	doc, err = c.GetDocument(ctx, testDB, ref.ID, ref.Rev)
	require.NoError(t, err)
	assert.Equal(t, "bar", doc["foo"])

	tombstone, err := c.DeleteDocument(ctx, testDB, ref.ID, ref.Rev)
	require.NoError(t, err)
	assert.NotEmpty(t, tombstone)
	assert.NotEqual(t, ref.Rev, tombstone)

	_, err = c.DeleteDocument(ctx, testDB, ref.ID, ref.Rev)
	require.Error(t, err)
	var sErr *couch.StatusError
	assert.True(t, errors.As(err, &sErr))

	_, err = c.GetDocument(ctx, testDB, ref.ID, "")
	assert.True(t, couch.IsNotFound(err))

	docPath := "/" + testDB + "/" + ref.ID
	assert.Equal(t, []string{
		"PUT /" + testDB + "/",
		"GET /_uuids?count=101",
		"PUT " + docPath,
		"GET " + docPath,
		"GET " + docPath + "?rev=" + ref.Rev,
		"DELETE " + docPath + "?rev=" + ref.Rev,
		"DELETE " + docPath + "?rev=" + ref.Rev,
		"GET " + docPath,
	}, srv.Requests())
}

func TestEscapedNames(t *testing.T) {
	c, srv := newTestClient(t)
	ctx := context.Background()
	const name = "a/b"

	_, err := c.CreateDatabase(ctx, name)
	require.NoError(t, err)
	exists, err := c.DatabaseExists(ctx, name)
	require.NoError(t, err)
	assert.True(t, exists)

	// Only the escaped name exists, not a database "a".
	exists, err = c.DatabaseExists(ctx, "a")
	require.NoError(t, err)
	assert.False(t, exists)

	ref, err := c.CreateDocument(ctx, name, map[string]string{"foo": "bar"})
	require.NoError(t, err)
	doc, err := c.GetDocument(ctx, name, ref.ID, "")
	require.NoError(t, err)
	assert.Equal(t, "bar", doc["foo"])

	putRef, err := c.PutDocument(ctx, name, "x y/z", map[string]string{"foo": "baz"})
	require.NoError(t, err)
	assert.Equal(t, "x y/z", putRef.ID)
	_, err = c.DeleteDocument(ctx, name, putRef.ID, putRef.Rev)
	require.NoError(t, err)

	_, err = c.DeleteDatabase(ctx, name)
	require.NoError(t, err)
	exists, err = c.DatabaseExists(ctx, name)
	require.NoError(t, err)
	assert.False(t, exists)

	requests := srv.Requests()
	assert.Equal(t, "PUT /a%2Fb/", requests[0])
	assert.Contains(t, requests, "PUT /a%2Fb/"+ref.ID)
	assert.Contains(t, requests, "PUT /a%2Fb/x%20y%2Fz")
	assert.Contains(t, requests, "DELETE /a%2Fb/x%20y%2Fz?rev="+putRef.Rev)
	assert.Contains(t, requests, "DELETE /a%2Fb/")
}

func TestCreateDocumentRequest(t *testing.T) {
	c, srv := newTestClient(t)
	ctx := context.Background()
	setUpDatabase(t, c)
	srv.ResetRequests()

	ref, err := c.CreateDocument(ctx, testDB, map[string]string{"foo": "bar"})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"GET /_uuids?count=101",
		"PUT /" + testDB + "/" + ref.ID,
	}, srv.Requests())

	_, err = c.CreateDocument(ctx, "missing_db", map[string]string{"foo": "bar"})
	assert.True(t, couch.IsNotFound(err))
}

func TestTransportFailure(t *testing.T) {
	c, srv := newTestClient(t)
	srv.Close()

	_, err := c.Root(context.Background())
	require.Error(t, err)
	var sErr *couch.StatusError
	assert.False(t, errors.As(err, &sErr))
	assert.NotNil(t, errors.Unwrap(err))
}

func TestContextCanceled(t *testing.T) {
	c, _ := newTestClient(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.UUIDs(ctx, 1)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestInsert(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()
	db := setUpDatabase(t, c)

	// Add new document
	doc := &Person{Name: "Peter", Height: 185, Alive: true}
	require.NoError(t, db.Insert(ctx, doc))
	assert.Len(t, doc.ID, 32)
	assert.NotEmpty(t, doc.Rev)

	// Edit existing
	oldID, oldRev := doc.ID, doc.Rev
	doc.Alive = false
	require.NoError(t, db.Insert(ctx, doc))
	assert.Equal(t, oldID, doc.ID)
	assert.NotEqual(t, oldRev, doc.Rev)

	// Old revision is still readable
	old := new(Person)
	require.NoError(t, db.RetrieveRevision(ctx, oldID, oldRev, old))
	assert.True(t, old.Alive)
}

func TestRetrieve(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()
	db := setUpDatabase(t, c)

	original := &Person{Name: "Peter", Height: 185, Alive: true}
	require.NoError(t, db.Insert(ctx, original))

	retrieved := new(Person)
	require.NoError(t, db.Retrieve(ctx, original.ID, retrieved))
	assert.Equal(t, original, retrieved)

	dynamic := couch.DynamicDoc{}
	require.NoError(t, db.Retrieve(ctx, original.ID, &dynamic))
	id, rev := dynamic.IDRev()
	assert.Equal(t, original.ID, id)
	assert.Equal(t, original.Rev, rev)
}

func TestLostUpdate(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()
	db := setUpDatabase(t, c)

	// 1. Insert new document
	original := &Person{Name: "Peter", Height: 185, Alive: true}
	require.NoError(t, db.Insert(ctx, original))

	// 2. Retrieve document twice, Doc1, Doc2
	doc1 := new(Person)
	require.NoError(t, db.Retrieve(ctx, original.ID, doc1))
	docCopy := *doc1
	doc2 := &docCopy

	// 3. Change both independently, insert Doc1
	doc1.Name = "Peter Doc1"
	doc2.Name = "Peter Doc2"
	require.NoError(t, db.Insert(ctx, doc1))

	// 4. Doc2 still carries the old revision
	err := db.Insert(ctx, doc2)
	require.Error(t, err)
	assert.Equal(t, "conflict", couch.ErrorType(err))
	assert.True(t, couch.IsConflict(err))
}

func TestDelete(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()
	db := setUpDatabase(t, c)

	doc := &Person{Name: "Peter"}
	require.NoError(t, db.Insert(ctx, doc))

	tombstone, err := db.Delete(ctx, doc.ID, doc.Rev)
	require.NoError(t, err)
	assert.NotEmpty(t, tombstone)

	err = db.Retrieve(ctx, doc.ID, new(Person))
	assert.Equal(t, "not_found", couch.ErrorType(err))
}

func TestDatabaseHandleLifecycle(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()
	db := c.Database("handle_db")

	require.NoError(t, db.Create(ctx))
	exists, err := db.Exists(ctx)
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, db.Drop(ctx))
	exists, err = db.Exists(ctx)
	require.NoError(t, err)
	assert.False(t, exists)
}

func assertDistinctIDs(t *testing.T, ids []string) {
	t.Helper()
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		assert.Len(t, id, 32)
		seen[id] = struct{}{}
	}
	assert.Len(t, seen, len(ids), "identifiers must be distinct")
}

func setUpDatabase(t *testing.T, c *couch.Client) *couch.Database {
	t.Helper()
	db := c.Database(testDB)
	require.NoError(t, db.Create(context.Background()))
	return db
}

func newTestClient(t *testing.T) (*couch.Client, *couchtest.Server) {
	t.Helper()
	srv := couchtest.NewServer(t)
	c, err := couch.New(srv.URL)
	require.NoError(t, err)
	return c, srv
}
