// Package couch implements a small client for a CouchDB database.
//
// It covers databases, server generated identifiers and single documents.
// Not part of this package are authentication, bulk operations, views,
// replication, conflict management and retries. Every call is exactly one
// HTTP request.
//
//
// Getting started:
//
//	c, _ := couch.New("http://127.0.0.1:5984")
//	ctx := context.Background()
//
//	if ok, _ := c.DatabaseExists(ctx, "people"); !ok {
//		c.CreateDatabase(ctx, "people")
//	}
//
// Documents
//
// A new document gets an id from the server's /_uuids endpoint. Identifiers
// are fetched in batches and kept per client, so most creations cost a
// single request:
//
//	ref, err := c.CreateDocument(ctx, "people", map[string]string{"name": "Anna"})
//	doc, err := c.GetDocument(ctx, "people", ref.ID, "")
//	tombstone, err := c.DeleteDocument(ctx, "people", ref.ID, ref.Rev)
//
// Working with structs is possible through a database handle. Embed Doc
// into your struct to make it Identifiable:
//
//	type Person struct {
//		couch.Doc
//		Name string
//	}
//
//	db := c.Database("people")
//	p := &Person{Name: "Anna"}
//	db.Insert(ctx, p)  // p.ID and p.Rev are set now
//	p.Name = "Anna Lena"
//	db.Insert(ctx, p)  // updates, p.Rev changes
//
// Every mutation after creation must carry the current revision. CouchDB
// rejects a stale revision with a conflict.
//
//
// Error handling
//
// Arguments are checked before a request is sent; failures wrap
// ErrInvalidArgument. If CouchDB answers with an unexpected status code, the
// error is a *StatusError carrying the status code and body. Use ErrorType()
// to get CouchDB's shortform (e.g. conflict), or IsNotFound() and
// IsConflict(). Network errors are returned wrapped. Nothing is retried.
package couch
