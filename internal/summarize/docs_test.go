package summarize

import (
	"context"
	"errors"
	"testing"

	"google.golang.org/api/docs/v1"
)

type fakeDocs struct {
	created   []*docs.Document
	updates   map[string]*docs.BatchUpdateDocumentRequest
	createErr error
	updateErr error
}

func (f *fakeDocs) Create(_ context.Context, doc *docs.Document) (*docs.Document, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created = append(f.created, doc)
	out := *doc
	out.DocumentId = "doc-1"
	return &out, nil
}

func (f *fakeDocs) BatchUpdate(_ context.Context, documentID string, req *docs.BatchUpdateDocumentRequest) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	if f.updates == nil {
		f.updates = make(map[string]*docs.BatchUpdateDocumentRequest)
	}
	f.updates[documentID] = req
	return nil
}

func TestSaveCreatesTitledDocWithBody(t *testing.T) {
	api := &fakeDocs{}
	saver := NewSaver(api)

	docID, err := saver.Save(context.Background(), "Go Blog", "A short summary.")
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if docID != "doc-1" {
		t.Fatalf("doc id = %q, want doc-1", docID)
	}
	if len(api.created) != 1 || api.created[0].Title != `Summary of "Go Blog"` {
		t.Fatalf("created = %#v, want a doc titled after the page", api.created)
	}

	update, ok := api.updates["doc-1"]
	if !ok || len(update.Requests) != 1 {
		t.Fatalf("updates = %#v, want one request against doc-1", api.updates)
	}
	insert := update.Requests[0].InsertText
	if insert == nil || insert.Text != "A short summary." || insert.Location.Index != 1 {
		t.Errorf("insert = %#v, want the summary at index 1", insert)
	}
}

func TestSaveSurfacesCreateError(t *testing.T) {
	api := &fakeDocs{createErr: errors.New("permission denied")}
	if _, err := NewSaver(api).Save(context.Background(), "Page", "text"); err == nil {
		t.Fatal("save succeeded despite create failure")
	}
}

func TestSaveSurfacesUpdateError(t *testing.T) {
	api := &fakeDocs{updateErr: errors.New("write failed")}
	if _, err := NewSaver(api).Save(context.Background(), "Page", "text"); err == nil {
		t.Fatal("save succeeded despite body write failure")
	}
}
