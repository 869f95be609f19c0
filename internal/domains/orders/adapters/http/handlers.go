// Package http exposes the orders bounded context over gin.
package http

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Apurer/photo-orders/internal/domains/orders/adapters/http/mapper"
	"github.com/Apurer/photo-orders/internal/domains/orders/application"
	ordertypes "github.com/Apurer/photo-orders/internal/domains/orders/application/types"
	"github.com/Apurer/photo-orders/internal/domains/orders/domain"
	"github.com/Apurer/photo-orders/internal/domains/orders/ports"
	sharederrors "github.com/Apurer/photo-orders/internal/shared/errors"
)

// maxMultipartMemory caps in-memory buffering of multipart bodies; larger
// parts spill to temp files.
const maxMultipartMemory = 32 << 20

// Handlers adapts HTTP requests to the orders use cases. Order creation goes
// through the workflow orchestrator so a Temporal-backed deployment gets the
// durable saga; the remaining use cases hit the service directly.
type Handlers struct {
	service    ports.Service
	workflows  ports.WorkflowOrchestrator
	reconciler ports.Reconciler
	responder  *sharederrors.ChainedResponder
}

// NewHandlers wires the HTTP adapter.
func NewHandlers(service ports.Service, workflows ports.WorkflowOrchestrator, reconciler ports.Reconciler) *Handlers {
	return &Handlers{
		service:    service,
		workflows:  workflows,
		reconciler: reconciler,
		responder:  sharederrors.NewChainedResponder("", mapOrderError),
	}
}

// Register mounts the order routes on the router.
func (h *Handlers) Register(router *gin.Engine) {
	router.MaxMultipartMemory = maxMultipartMemory
	api := router.Group("/api")
	api.POST("/orders/create", h.createOrder)
	api.POST("/orders/free", h.createFreeOrder)
	api.GET("/orders", h.listOrders)
	api.GET("/orders/:id", h.getOrder)
	api.POST("/orders/:id/resume", h.resumeUploads)
	api.POST("/orders/:id/payment-session", h.recreateSession)
	api.POST("/orders/:id/cancel", h.cancelOrder)
	api.POST("/webhooks/stripe", h.stripeWebhook)
}

func (h *Handlers) createOrder(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		h.responder.BadRequest(c, "invalid multipart form: "+err.Error())
		return
	}
	files, err := readFiles(form.File["photos"])
	if err != nil {
		h.responder.BadRequest(c, err.Error())
		return
	}
	input := ordertypes.CreateOrderInput{
		Email:   c.PostForm("email"),
		Package: c.PostForm("package"),
		Files:   files,
	}
	result, err := h.workflows.CreateOrder(c.Request.Context(), input)
	if err != nil {
		h.responder.RespondError(c, err)
		return
	}
	h.respondResult(c, result)
}

// createFreeOrder is the single-file Free-tier entry point.
func (h *Handlers) createFreeOrder(c *gin.Context) {
	fileHeader, err := c.FormFile("photo")
	if err != nil {
		h.responder.BadRequest(c, "exactly one photo is required")
		return
	}
	files, err := readFiles([]*multipart.FileHeader{fileHeader})
	if err != nil {
		h.responder.BadRequest(c, err.Error())
		return
	}
	input := ordertypes.CreateOrderInput{
		Email:   c.PostForm("email"),
		Package: string(domain.PackageFree),
		Files:   files,
	}
	result, err := h.workflows.CreateOrder(c.Request.Context(), input)
	if err != nil {
		h.responder.RespondError(c, err)
		return
	}
	h.respondResult(c, result)
}

func (h *Handlers) listOrders(c *gin.Context) {
	orders, err := h.service.List(c.Request.Context())
	if err != nil {
		h.responder.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, mapper.ToOrderResponses(orders))
}

func (h *Handlers) getOrder(c *gin.Context) {
	order, err := h.service.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.responder.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, mapper.ToOrderResponse(order))
}

func (h *Handlers) resumeUploads(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		h.responder.BadRequest(c, "invalid multipart form: "+err.Error())
		return
	}
	files, err := readFiles(form.File["photos"])
	if err != nil {
		h.responder.BadRequest(c, err.Error())
		return
	}
	result, err := h.service.ResumeUploads(c.Request.Context(), ordertypes.ResumeUploadsInput{
		OrderID: c.Param("id"),
		Files:   files,
	})
	if err != nil {
		h.responder.RespondError(c, err)
		return
	}
	h.respondResult(c, result)
}

func (h *Handlers) recreateSession(c *gin.Context) {
	result, err := h.service.RecreateSession(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.responder.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, mapper.CheckoutResponse{URL: result.RedirectURL})
}

func (h *Handlers) cancelOrder(c *gin.Context) {
	if err := h.service.Cancel(c.Request.Context(), c.Param("id")); err != nil {
		h.responder.RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// stripeWebhook reads the body unparsed; signature verification runs over the
// raw bytes, so no JSON decoding may happen before it.
func (h *Handlers) stripeWebhook(c *gin.Context) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		h.responder.BadRequest(c, "unreadable payload")
		return
	}
	signature := c.GetHeader("Stripe-Signature")
	if err := h.reconciler.HandleGatewayEvent(c.Request.Context(), payload, signature); err != nil {
		h.responder.RespondError(c, err)
		return
	}
	c.Status(http.StatusOK)
}

func (h *Handlers) respondResult(c *gin.Context, result *ordertypes.OrderResult) {
	if result.RedirectURL != "" {
		c.JSON(http.StatusOK, mapper.CheckoutResponse{URL: result.RedirectURL})
		return
	}
	c.JSON(http.StatusCreated, mapper.ToOrderResponse(result.Order))
}

func readFiles(headers []*multipart.FileHeader) ([]ordertypes.FileUpload, error) {
	files := make([]ordertypes.FileUpload, 0, len(headers))
	for _, header := range headers {
		f, err := header.Open()
		if err != nil {
			return nil, errors.New("unreadable upload " + header.Filename)
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, errors.New("unreadable upload " + header.Filename)
		}
		files = append(files, ordertypes.FileUpload{
			Name:        header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Data:        data,
		})
	}
	return files, nil
}

// mapOrderError translates the application taxonomy into problem responses.
// The status split preserves the caller's ability to distinguish
// "nothing happened" (400/409/503, retry after correction) from
// "something happened" (502, recover via resume or a fresh session).
func mapOrderError(err error) (sharederrors.ProblemDetail, bool) {
	switch {
	case errors.Is(err, application.ErrInvalidInput):
		return sharederrors.ErrValidation.WithDetail(err.Error()), true
	case errors.Is(err, application.ErrDuplicatePending):
		return sharederrors.ErrConflict.
			WithDetail("a pending order already exists for this email; complete or cancel it first"), true
	case errors.Is(err, application.ErrOrderNotResumable):
		return sharederrors.ErrConflict.WithDetail(err.Error()), true
	case errors.Is(err, application.ErrOrderNotFound):
		return sharederrors.ErrNotFound.WithDetail(err.Error()), true
	case errors.Is(err, application.ErrStorageUnavailable):
		return sharederrors.ErrUnavailable.
			WithDetail("order could not be recorded; nothing was created, safe to retry").
			WithExtension("sideEffects", "none"), true
	case errors.Is(err, application.ErrUploadFailed):
		return sharederrors.ErrUpstream.
			WithDetail(err.Error()).
			WithExtension("sideEffects", "partial").
			WithExtension("recovery", "resume uploads for the existing order"), true
	case errors.Is(err, application.ErrPaymentSessionFailed):
		return sharederrors.ErrUpstream.
			WithDetail(err.Error()).
			WithExtension("sideEffects", "partial").
			WithExtension("recovery", "request a new payment session for the existing order"), true
	case errors.Is(err, ports.ErrInvalidSignature):
		return sharederrors.ErrBadRequest.WithDetail("event signature verification failed"), true
	case errors.Is(err, ports.ErrMalformedEvent):
		return sharederrors.ErrBadRequest.WithDetail("event payload could not be decoded"), true
	default:
		return sharederrors.ProblemDetail{}, false
	}
}
