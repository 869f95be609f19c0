package application

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	types "github.com/Apurer/photo-orders/internal/domains/orders/application/types"
	"github.com/Apurer/photo-orders/internal/domains/orders/domain"
	"github.com/Apurer/photo-orders/internal/domains/orders/ports"
)

// defaultUploadConcurrency caps the per-request upload fan-out. Tier ceilings
// are small, the cap only bounds resource use under load.
const defaultUploadConcurrency = 8

// Service orchestrates the order intake saga: reserve the order row, fan out
// media uploads, attach the resulting addresses, then request a payment
// session. Each step is a commit point; a failure leaves the prior steps in
// place (no compensation), and the error taxonomy tells the caller which
// recovery path applies.
type Service struct {
	repo              ports.Repository
	blobs             ports.BlobStore
	payments          ports.PaymentGateway
	prices            PriceTable
	uploadConcurrency int
	now               func() time.Time
}

// Option configures optional Service behavior.
type Option func(*Service)

// WithUploadConcurrency overrides the upload fan-out cap.
func WithUploadConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.uploadConcurrency = n
		}
	}
}

// WithClock overrides the time source for deterministic testing.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService wires the saga with its collaborators. The price table is
// validated here so a misconfigured tier refuses to boot.
func NewService(repo ports.Repository, blobs ports.BlobStore, payments ports.PaymentGateway, prices PriceTable, opts ...Option) (*Service, error) {
	if repo == nil {
		return nil, errors.New("order repository is required")
	}
	if blobs == nil {
		return nil, errors.New("blob store is required")
	}
	if payments == nil {
		return nil, errors.New("payment gateway is required")
	}
	if err := prices.Validate(); err != nil {
		return nil, err
	}
	s := &Service{
		repo:              repo,
		blobs:             blobs,
		payments:          payments,
		prices:            prices,
		uploadConcurrency: defaultUploadConcurrency,
		now:               time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

// CreateOrder runs the full intake saga and returns the payment redirect URL,
// or the completed order for the Free tier.
func (s *Service) CreateOrder(ctx context.Context, input types.CreateOrderInput) (*types.OrderResult, error) {
	pkg, err := domain.ParsePackage(input.Package)
	if err != nil {
		return nil, mapError(err)
	}
	if len(input.Files) == 0 {
		return nil, fmt.Errorf("%w: at least one file is required", ErrInvalidInput)
	}
	if len(input.Files) > pkg.FileLimit() {
		return nil, fmt.Errorf("%w: %w: %s allows at most %d files", ErrInvalidInput, domain.ErrMediaLimitExceeded, pkg, pkg.FileLimit())
	}

	order, err := domain.NewOrder(input.Email, pkg)
	if err != nil {
		return nil, mapError(err)
	}

	// Advisory duplicate check before reserving the row; the postgres adapter
	// backs it with a partial unique index so the race loses at the store.
	pending, err := s.repo.FindPendingByEmail(ctx, order.Email)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
	if pending != nil {
		return nil, fmt.Errorf("%w: order %s", ErrDuplicatePending, pending.ID)
	}

	order, err = s.repo.Insert(ctx, order)
	if err != nil {
		if errors.Is(err, ports.ErrDuplicatePending) {
			return nil, fmt.Errorf("%w: %w", ErrDuplicatePending, err)
		}
		return nil, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}

	return s.finishIntake(ctx, order, input.Files)
}

// ResumeUploads re-runs the upload fan-out and payment-session step for an
// existing AwaitingPayment order, without creating a second row. The ceiling
// counts refs already attached plus the new files.
func (s *Service) ResumeUploads(ctx context.Context, input types.ResumeUploadsInput) (*types.OrderResult, error) {
	order, err := s.loadAwaiting(ctx, input.OrderID)
	if err != nil {
		return nil, err
	}
	if len(input.Files) == 0 {
		return nil, fmt.Errorf("%w: at least one file is required", ErrInvalidInput)
	}
	if len(order.MediaRefs)+len(input.Files) > order.Package.FileLimit() {
		return nil, fmt.Errorf("%w: %w: %s allows at most %d files", ErrInvalidInput, domain.ErrMediaLimitExceeded, order.Package, order.Package.FileLimit())
	}
	return s.finishIntake(ctx, order, input.Files)
}

// RecreateSession requests a fresh payment session for an existing
// AwaitingPayment order after an ErrPaymentSessionFailed outcome.
func (s *Service) RecreateSession(ctx context.Context, orderID string) (*types.OrderResult, error) {
	order, err := s.loadAwaiting(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return s.createSession(ctx, order)
}

// GetByID loads a single order.
func (s *Service) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	order, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrOrderNotFound, id)
		}
		return nil, err
	}
	return order, nil
}

// List returns all orders, newest first.
func (s *Service) List(ctx context.Context) ([]*domain.Order, error) {
	return s.repo.ListAll(ctx)
}

// Cancel moves an open reservation to Failed. Terminal orders are rejected.
func (s *Service) Cancel(ctx context.Context, id string) error {
	order, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := order.Fail(); err != nil {
		return fmt.Errorf("%w: order %s is %s", ErrOrderNotResumable, id, order.PaymentStatus)
	}
	return s.repo.UpdateStatus(ctx, id, domain.StatusFailed)
}

// finishIntake covers the shared tail of CreateOrder and ResumeUploads:
// upload fan-out, media attach, payment session.
func (s *Service) finishIntake(ctx context.Context, order *domain.Order, files []types.FileUpload) (*types.OrderResult, error) {
	refs, uploadErr := s.uploadAll(ctx, order.ID, files)
	refs = append(order.MediaRefs, refs...)
	if len(refs) > 0 {
		// Persist whatever made it through the join barrier; on upload
		// failure the order stays AwaitingPayment with the partial refs and
		// ResumeUploads is the recovery path.
		if err := s.repo.UpdateMedia(ctx, order.ID, refs); err != nil {
			return nil, fmt.Errorf("%w: attach media for order %s: %w", ErrUploadFailed, order.ID, err)
		}
		if err := order.AttachMedia(refs); err != nil {
			return nil, mapError(err)
		}
	}
	if uploadErr != nil {
		return nil, fmt.Errorf("%w: order %s: %w", ErrUploadFailed, order.ID, uploadErr)
	}
	if !order.Package.Paid() {
		return &types.OrderResult{Order: order}, nil
	}
	return s.createSession(ctx, order)
}

// uploadAll fans the files out concurrently under the configured cap. The
// first failure cancels the remaining uploads; already-written refs are
// returned in their original order.
func (s *Service) uploadAll(ctx context.Context, orderID string, files []types.FileUpload) ([]string, error) {
	slots := make([]string, len(files))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.uploadConcurrency)
	stamp := s.now().UnixNano()
	for i, file := range files {
		g.Go(func() error {
			key := blobKey(orderID, stamp, i, file.Name)
			addr, err := s.blobs.Put(ctx, key, file.Data, file.ContentType)
			if err != nil {
				return fmt.Errorf("upload %q: %w", file.Name, err)
			}
			slots[i] = addr
			return nil
		})
	}
	err := g.Wait()
	refs := make([]string, 0, len(slots))
	for _, addr := range slots {
		if addr != "" {
			refs = append(refs, addr)
		}
	}
	return refs, err
}

func (s *Service) createSession(ctx context.Context, order *domain.Order) (*types.OrderResult, error) {
	session, err := s.payments.CreateSession(ctx, ports.SessionRequest{
		PriceRef:      s.prices.PriceRef(order.Package),
		CustomerEmail: order.Email,
		OrderID:       order.ID,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: order %s: %w", ErrPaymentSessionFailed, order.ID, err)
	}
	return &types.OrderResult{Order: order, RedirectURL: session.RedirectURL}, nil
}

func (s *Service) loadAwaiting(ctx context.Context, orderID string) (*domain.Order, error) {
	if strings.TrimSpace(orderID) == "" {
		return nil, fmt.Errorf("%w: order id is required", ErrInvalidInput)
	}
	order, err := s.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !order.AwaitingPayment() {
		return nil, fmt.Errorf("%w: order %s is %s", ErrOrderNotResumable, orderID, order.PaymentStatus)
	}
	return order, nil
}

// blobKey namespaces uploads under the order so bucket listings group by
// reservation: orders/<id>/<stamp>-<index>-<name>.
func blobKey(orderID string, stamp int64, index int, name string) string {
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	if base == "." || base == "/" || base == "" {
		base = "file"
	}
	return fmt.Sprintf("orders/%s/%d-%d-%s", orderID, stamp, index, base)
}

var _ ports.Service = (*Service)(nil)
