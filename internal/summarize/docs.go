package summarize

import (
	"context"
	"fmt"

	"google.golang.org/api/docs/v1"
	"google.golang.org/api/option"

	"tabmind/internal/auth"
)

// DocsAPI is the slice of the Google Docs surface the saver needs.
type DocsAPI interface {
	Create(ctx context.Context, doc *docs.Document) (*docs.Document, error)
	BatchUpdate(ctx context.Context, documentID string, req *docs.BatchUpdateDocumentRequest) error
}

// GoogleDocs saves summaries as new documents in the user's Drive.
type GoogleDocs struct {
	svc *docs.Service
}

func NewGoogleDocs(ctx context.Context) (*GoogleDocs, error) {
	client, err := auth.Client(ctx, []string{docs.DocumentsScope})
	if err != nil {
		return nil, err
	}
	svc, err := docs.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("create docs service: %w", err)
	}
	return &GoogleDocs{svc: svc}, nil
}

func (g *GoogleDocs) Create(ctx context.Context, doc *docs.Document) (*docs.Document, error) {
	created, err := g.svc.Documents.Create(doc).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("create document: %w", err)
	}
	return created, nil
}

func (g *GoogleDocs) BatchUpdate(ctx context.Context, documentID string, req *docs.BatchUpdateDocumentRequest) error {
	if _, err := g.svc.Documents.BatchUpdate(documentID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("write document body: %w", err)
	}
	return nil
}

// Saver turns a page summary into a titled Google Doc.
type Saver struct {
	api DocsAPI
}

func NewSaver(api DocsAPI) *Saver {
	return &Saver{api: api}
}

// Save creates a document titled after the source page and writes the
// summary as its body. It returns the new document's id.
func (s *Saver) Save(ctx context.Context, pageTitle, summary string) (string, error) {
	doc, err := s.api.Create(ctx, &docs.Document{
		Title: fmt.Sprintf("Summary of %q", pageTitle),
	})
	if err != nil {
		return "", err
	}
	err = s.api.BatchUpdate(ctx, doc.DocumentId, &docs.BatchUpdateDocumentRequest{
		Requests: []*docs.Request{
			{
				InsertText: &docs.InsertTextRequest{
					Location: &docs.Location{Index: 1},
					Text:     summary,
				},
			},
		},
	})
	if err != nil {
		return "", err
	}
	return doc.DocumentId, nil
}
