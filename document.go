package couch

import (
	"context"
	"net/http"
	"net/url"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Any document handled by CouchDB must be identifiable
// by an ID and a Revision, be it a struct (using Doc
// as anonymous field) or a DynamicDoc
type Identifiable interface {
	SetIDRev(id string, rev string)
	IDRev() (id string, rev string)
}

// Defines basic struct for CouchDB document, should be added
// as an anonymous field to your custom struct.
//
// Example:
//	type MyDocStruct struct {
//		couch.Doc
//		Title string
//	}
type Doc struct {
	ID  string `json:"_id,omitempty"`
	Rev string `json:"_rev,omitempty"`
}

// Type alias for map[string]interface{} representing
// a fully dynamic doc that still implements Identifiable
type DynamicDoc map[string]interface{}

// Implements Identifiable
func (ref *Doc) SetIDRev(id string, rev string) {
	ref.ID, ref.Rev = id, rev
}

// Implements Identifiable
func (ref *Doc) IDRev() (id string, rev string) {
	id, rev = ref.ID, ref.Rev
	return
}

// Implements Identifiable
func (m DynamicDoc) IDRev() (id string, rev string) {
	id, _ = m["_id"].(string)
	rev, _ = m["_rev"].(string)
	return
}

// Implements Identifiable
func (m DynamicDoc) SetIDRev(id string, rev string) {
	m["_id"] = id
	m["_rev"] = rev
}

// DocRef is CouchDB's answer to a document write: the document id and the
// revision the write produced.
type DocRef struct {
	ID  string `json:"id"`
	Rev string `json:"rev"`
	OK  bool   `json:"ok"`
}

// CreateDocument stores doc under a fresh server generated id. The id is
// taken from the client's uuid buffer.
func (c *Client) CreateDocument(ctx context.Context, db string, doc interface{}) (*DocRef, error) {
	if err := requireName("database name", db); err != nil {
		return nil, err
	}
	if err := invalid("document", doc, validation.NotNil); err != nil {
		return nil, err
	}
	id, err := c.UUID(ctx)
	if err != nil {
		return nil, err
	}
	return c.put(ctx, db, id, doc)
}

// PutDocument writes doc under id. To update an existing document, doc must
// carry its current revision in _rev, otherwise CouchDB reports a conflict.
func (c *Client) PutDocument(ctx context.Context, db, id string, doc interface{}) (*DocRef, error) {
	if err := requireName("database name", db); err != nil {
		return nil, err
	}
	if err := requireName("document id", id); err != nil {
		return nil, err
	}
	if err := invalid("document", doc, validation.NotNil); err != nil {
		return nil, err
	}
	return c.put(ctx, db, id, doc)
}

func (c *Client) put(ctx context.Context, db, id string, doc interface{}) (*DocRef, error) {
	resp, err := c.do(ctx, http.MethodPut, pathOf(db, id), nil, doc)
	if err != nil {
		return nil, err
	}
	ref := new(DocRef)
	if err := resp.expect(http.StatusCreated, ref); err != nil {
		return nil, err
	}
	return ref, nil
}

// GetDocument returns a document. If rev is empty, the latest revision is
// returned.
func (c *Client) GetDocument(ctx context.Context, db, id, rev string) (DynamicDoc, error) {
	var doc DynamicDoc
	if err := c.RetrieveDocument(ctx, db, id, rev, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// RetrieveDocument gets a document like GetDocument but unmarshals it into v.
func (c *Client) RetrieveDocument(ctx context.Context, db, id, rev string, v interface{}) error {
	if err := requireName("database name", db); err != nil {
		return err
	}
	if err := requireName("document id", id); err != nil {
		return err
	}
	var query url.Values
	if rev != "" {
		query = url.Values{"rev": {rev}}
	}
	resp, err := c.do(ctx, http.MethodGet, pathOf(db, id), query, nil)
	if err != nil {
		return err
	}
	return resp.expect(http.StatusOK, v)
}

// DeleteDocument deletes revision rev of a document and returns the revision
// of the resulting tombstone.
func (c *Client) DeleteDocument(ctx context.Context, db, id, rev string) (string, error) {
	if err := requireName("database name", db); err != nil {
		return "", err
	}
	if err := requireName("document id", id); err != nil {
		return "", err
	}
	if err := requireName("document revision", rev); err != nil {
		return "", err
	}
	resp, err := c.do(ctx, http.MethodDelete, pathOf(db, id), url.Values{"rev": {rev}}, nil)
	if err != nil {
		return "", err
	}
	var ref DocRef
	if err := resp.expect(http.StatusOK, &ref); err != nil {
		return "", err
	}
	return ref.Rev, nil
}
