package types

import "github.com/Apurer/photo-orders/internal/domains/orders/domain"

// FileUpload carries one inbound media file through the intake flow.
type FileUpload struct {
	Name        string
	ContentType string
	Data        []byte
}

// CreateOrderInput is the command accepted by the order intake saga.
type CreateOrderInput struct {
	Email   string
	Package string
	Files   []FileUpload
}

// ResumeUploadsInput re-runs the upload fan-out for an existing reservation.
type ResumeUploadsInput struct {
	OrderID string
	Files   []FileUpload
}

// OrderResult is returned by the intake saga. RedirectURL is empty for
// Free-tier orders, which complete without a payment session.
type OrderResult struct {
	Order       *domain.Order
	RedirectURL string
}
