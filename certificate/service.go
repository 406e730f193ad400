package certificate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"time"

	"github.com/tbxark/civicdesk/objectstore"
	"github.com/tbxark/civicdesk/store"
)

const (
	Prefix        = "certificates/"
	DefaultURLTTL = time.Hour
	contentType   = "application/pdf"
)

var (
	ErrNotApproved = errors.New("application is not approved")
	ErrNoPDF       = errors.New("no certificate has been generated")
)

// Applications is the part of the store the service needs.
type Applications interface {
	GetApplication(ctx context.Context, id int64) (*store.Application, error)
	SetPDFPath(ctx context.Context, id int64, path string) error
}

type Issued struct {
	Key       string    `json:"pdf_path"`
	URL       string    `json:"download_url"`
	ExpiresAt time.Time `json:"expires_at"`
}

type Service struct {
	apps     Applications
	objects  objectstore.Store
	renderer *Renderer
	urlTTL   time.Duration
}

func NewService(apps Applications, objects objectstore.Store, renderer *Renderer, urlTTL time.Duration) *Service {
	if renderer == nil {
		renderer = NewRenderer()
	}
	if urlTTL <= 0 {
		urlTTL = DefaultURLTTL
	}
	return &Service{apps: apps, objects: objects, renderer: renderer, urlTTL: urlTTL}
}

// Issue renders the certificate of an approved application, uploads it and
// records its key. Issuing again replaces the previous document.
func (s *Service) Issue(ctx context.Context, id int64) (*Issued, error) {
	app, err := s.apps.GetApplication(ctx, id)
	if err != nil {
		return nil, err
	}
	if app.Status != store.StatusApproved {
		return nil, fmt.Errorf("%w: application %d is %s", ErrNotApproved, id, app.Status)
	}
	data, err := s.renderer.Render(app.Kind, app.Data)
	if err != nil {
		return nil, err
	}
	key := Prefix + FileName(app.Kind, app.ID)
	if err := s.objects.Put(ctx, key, data, contentType); err != nil {
		return nil, fmt.Errorf("upload certificate: %w", err)
	}
	if err := s.apps.SetPDFPath(ctx, id, key); err != nil {
		return nil, fmt.Errorf("record certificate: %w", err)
	}
	slog.Info("certificate issued", "application_id", id, "kind", app.Kind, "key", key)
	return s.sign(ctx, key)
}

// URL returns a fresh signed download URL for an issued certificate.
func (s *Service) URL(ctx context.Context, app *store.Application) (*Issued, error) {
	if app.PDFPath == "" {
		return nil, ErrNoPDF
	}
	return s.sign(ctx, app.PDFPath)
}

// Download returns the file name and content of an issued certificate.
func (s *Service) Download(ctx context.Context, app *store.Application) (string, []byte, error) {
	if app.PDFPath == "" {
		return "", nil, ErrNoPDF
	}
	data, err := s.objects.Get(ctx, app.PDFPath)
	if err != nil {
		return "", nil, err
	}
	return path.Base(app.PDFPath), data, nil
}

func (s *Service) sign(ctx context.Context, key string) (*Issued, error) {
	u, err := s.objects.SignedURL(ctx, key, s.urlTTL)
	if err != nil {
		return nil, fmt.Errorf("sign certificate url: %w", err)
	}
	return &Issued{Key: key, URL: u, ExpiresAt: time.Now().Add(s.urlTTL)}, nil
}
