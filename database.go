package couch

import (
	"context"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Database of a CouchDB instance
type Database struct {
	client *Client
	name   string
}

// Returns a database handle
func (c *Client) Database(name string) *Database {
	return &Database{client: c, name: name}
}

// Name of database
func (db *Database) Name() string {
	return db.name
}

// Client returns the client the database belongs to.
func (db *Database) Client() *Client {
	return db.client
}

// Create a new database
func (db *Database) Create(ctx context.Context) error {
	_, err := db.client.CreateDatabase(ctx, db.name)
	return err
}

// Drop deletes the database
func (db *Database) Drop(ctx context.Context) error {
	_, err := db.client.DeleteDatabase(ctx, db.name)
	return err
}

// Exists returns false only if CouchDB reports the database as missing
func (db *Database) Exists(ctx context.Context) (bool, error) {
	return db.client.DatabaseExists(ctx, db.name)
}

// Insert a document as follows: If doc has an ID, it will edit the existing document,
// if not, create a new one. Either way, doc will be assigned the new id and revision.
func (db *Database) Insert(ctx context.Context, doc Identifiable) error {
	if err := invalid("document", doc, validation.NotNil); err != nil {
		return err
	}
	var ref *DocRef
	var err error
	id, _ := doc.IDRev()
	if id == "" {
		ref, err = db.client.CreateDocument(ctx, db.name, doc)
	} else {
		ref, err = db.client.PutDocument(ctx, db.name, id, doc)
	}
	if err != nil {
		return err
	}
	doc.SetIDRev(ref.ID, ref.Rev)
	return nil
}

// Retrieve gets the latest revision document of a document, the result will be written into doc
func (db *Database) Retrieve(ctx context.Context, docID string, doc Identifiable) error {
	return db.client.RetrieveDocument(ctx, db.name, docID, "", doc)
}

// RetrieveRevision gets a specific revision of a document, the result will be written into doc
func (db *Database) RetrieveRevision(ctx context.Context, docID, revID string, doc Identifiable) error {
	return db.client.RetrieveDocument(ctx, db.name, docID, revID, doc)
}

// Delete removes a document from the database and returns the tombstone revision.
func (db *Database) Delete(ctx context.Context, docID, revID string) (string, error) {
	return db.client.DeleteDocument(ctx, db.name, docID, revID)
}
