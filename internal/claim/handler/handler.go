package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"

	"claimflow/internal/claim"
	"claimflow/internal/platform/middleware"
	"claimflow/internal/transport/http/shared"
	dErrors "claimflow/pkg/domain-errors"
)

// Finalize covers two sequential outbound calls (audit notify, ledger commit),
// so the subrouter timeout must outlast both.
const requestTimeout = 2 * time.Minute

// Attachments are photos of receipts and certificates; 10 MiB of multipart
// memory is plenty.
const maxAttachmentMemory = 10 << 20

// Service defines the claim workflow operations the handler delegates to.
type Service interface {
	OpenSession(ctx context.Context, employeeID string) (claim.Snapshot, error)
	Get(ctx context.Context, sessionID string) (claim.Snapshot, error)
	SelectBenefit(ctx context.Context, sessionID string, index int) (claim.Snapshot, error)
	SubmitAmount(ctx context.Context, sessionID string, amount float64) (claim.Snapshot, error)
	SelectPayment(ctx context.Context, sessionID, method string) (claim.Snapshot, error)
	Attach(ctx context.Context, sessionID string, att claim.Attachment) (claim.Snapshot, error)
	Finalize(ctx context.Context, sessionID string) (claim.Snapshot, error)
	Cancel(ctx context.Context, sessionID string) (claim.Snapshot, error)
}

// Handler exposes the claim workflow over HTTP.
type Handler struct {
	logger *slog.Logger
	claims Service
}

// New creates a new claim Handler.
func New(claims Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, claims: claims}
}

// Register registers the claim routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	claimRouter := chi.NewRouter()
	claimRouter.Use(middleware.Recovery(h.logger))
	claimRouter.Use(middleware.RequestID)
	claimRouter.Use(middleware.Logger(h.logger))
	claimRouter.Use(middleware.Timeout(requestTimeout))
	claimRouter.Use(middleware.ContentTypeJSON)

	claimRouter.Post("/claims/sessions", h.handleOpenSession)
	claimRouter.Get("/claims/sessions/{sessionID}", h.handleGetSession)
	claimRouter.Post("/claims/sessions/{sessionID}/benefit", h.handleSelectBenefit)
	claimRouter.Post("/claims/sessions/{sessionID}/amount", h.handleSubmitAmount)
	claimRouter.Post("/claims/sessions/{sessionID}/payment", h.handleSelectPayment)
	claimRouter.Post("/claims/sessions/{sessionID}/attachments", h.handleAttach)
	claimRouter.Post("/claims/sessions/{sessionID}/finalize", h.handleFinalize)
	claimRouter.Post("/claims/sessions/{sessionID}/cancel", h.handleCancel)

	r.Mount("/", claimRouter)
}

type openSessionRequest struct {
	EmployeeID string `json:"employee_id"`
}

func (h *Handler) handleOpenSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req openSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	snap, err := h.claims.OpenSession(ctx, req.EmployeeID)
	if err != nil {
		h.writeServiceError(ctx, w, "open session", err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, snap)
}

func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	snap, err := h.claims.Get(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		h.writeServiceError(r.Context(), w, "get session", err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, snap)
}

type selectBenefitRequest struct {
	Index int `json:"index"`
}

func (h *Handler) handleSelectBenefit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req selectBenefitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	snap, err := h.claims.SelectBenefit(ctx, chi.URLParam(r, "sessionID"), req.Index)
	if err != nil {
		h.writeServiceError(ctx, w, "select benefit", err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, snap)
}

type submitAmountRequest struct {
	Amount float64 `json:"amount"`
}

func (h *Handler) handleSubmitAmount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req submitAmountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidAmount, "please enter a valid numeric amount"))
		return
	}

	snap, err := h.claims.SubmitAmount(ctx, chi.URLParam(r, "sessionID"), req.Amount)
	if err != nil {
		h.writeServiceError(ctx, w, "submit amount", err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, snap)
}

type selectPaymentRequest struct {
	Method string `json:"method"`
}

func (h *Handler) handleSelectPayment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req selectPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	snap, err := h.claims.SelectPayment(ctx, chi.URLParam(r, "sessionID"), req.Method)
	if err != nil {
		h.writeServiceError(ctx, w, "select payment", err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, snap)
}

// handleAttach accepts one supporting document as multipart form data with a
// "category" field and a "document" file part.
func (h *Handler) handleAttach(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := r.ParseMultipartForm(maxAttachmentMemory); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "expected multipart form data"))
		return
	}

	file, header, err := r.FormFile("document")
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "document file part is required"))
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "unable to read document"))
		return
	}

	att := claim.Attachment{
		Category: claim.DocumentCategory(r.FormValue("category")),
		Filename: header.Filename,
		Content:  content,
	}

	snap, err := h.claims.Attach(ctx, chi.URLParam(r, "sessionID"), att)
	if err != nil {
		h.writeServiceError(ctx, w, "attach document", err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, snap)
}

func (h *Handler) handleFinalize(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	snap, err := h.claims.Finalize(ctx, chi.URLParam(r, "sessionID"))
	if err != nil {
		h.writeServiceError(ctx, w, "finalize claim", err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, snap)
}

func (h *Handler) handleCancel(w http.ResponseWriter, r *http.Request) {
	snap, err := h.claims.Cancel(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		h.writeServiceError(r.Context(), w, "cancel claim", err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, snap)
}

// writeServiceError logs at a severity matching the code and writes the
// envelope. Workflow rejections are expected traffic, not server faults.
func (h *Handler) writeServiceError(ctx context.Context, w http.ResponseWriter, op string, err error) {
	requestID := middleware.GetRequestID(ctx)

	switch dErrors.CodeOf(err) {
	case dErrors.CodeInternal:
		h.logger.ErrorContext(ctx, op+" failed",
			"request_id", requestID,
			"error", err.Error(),
		)
	default:
		h.logger.WarnContext(ctx, op+" rejected",
			"request_id", requestID,
			"code", string(dErrors.CodeOf(err)),
			"error", err.Error(),
		)
	}
	shared.WriteError(w, err)
}
