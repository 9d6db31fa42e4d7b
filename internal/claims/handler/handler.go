// Package handler exposes the claim back-office endpoints.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"alapay/internal/claims/models"
	claimservice "alapay/internal/claims/service"
	"alapay/internal/platform/middleware"
	"alapay/internal/transport/http/shared"
	id "alapay/pkg/domain"
	dErrors "alapay/pkg/domain-errors"
	"alapay/pkg/requestcontext"
)

// Service defines the claim operations the handler needs.
type Service interface {
	UpdateMemberClaimStatus(ctx context.Context, query claimservice.MemberClaimQuery, principal id.Principal, newStatus models.Status, reason string, amountOverride int64) (*models.Claim, error)
	UpdateProviderClaimStatus(ctx context.Context, claimID id.ProviderClaimID, principal id.Principal, newStatus models.Status, reason string) (*models.ProviderClaim, error)
	ApproveOrDeclineClaim(ctx context.Context, claimID id.ClaimID, principal id.Principal, action claimservice.Action, reason string, approvedAmount int64) (*models.Claim, error)
	GetMemberClaim(ctx context.Context, query claimservice.MemberClaimQuery) (*models.Claim, error)
	GetProviderClaim(ctx context.Context, claimID id.ProviderClaimID, principal id.Principal) (*models.ProviderClaim, error)
	ListProviderClaims(ctx context.Context, hmoID id.HMOID, principal id.Principal, limit, offset int) ([]*models.ProviderClaim, error)
}

// Handler handles claim-related endpoints.
type Handler struct {
	logger    *slog.Logger
	claims    Service
	validator middleware.TokenValidator
}

// New creates a new claims Handler.
func New(claims Service, logger *slog.Logger, validator middleware.TokenValidator) *Handler {
	return &Handler{
		logger:    logger,
		claims:    claims,
		validator: validator,
	}
}

// Register registers the claim routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	claimRouter := chi.NewRouter()
	claimRouter.Use(middleware.Recovery(h.logger))
	claimRouter.Use(middleware.RequestID)
	claimRouter.Use(middleware.ClientMetadata)
	claimRouter.Use(middleware.Logger(h.logger))
	claimRouter.Use(middleware.Timeout(30 * time.Second))
	claimRouter.Use(middleware.ContentTypeJSON)
	claimRouter.Use(middleware.RequireAuth(h.validator, h.logger))

	claimRouter.Get("/claims/{claimID}", h.handleGetMemberClaim)
	claimRouter.Patch("/claims/{claimID}/status", h.handleUpdateMemberClaimStatus)
	claimRouter.Post("/claims/{claimID}/review", h.handleReviewClaim)
	claimRouter.Get("/provider-claims/{claimID}", h.handleGetProviderClaim)
	claimRouter.Patch("/provider-claims/{claimID}/status", h.handleUpdateProviderClaimStatus)
	claimRouter.Get("/hmos/{hmoID}/provider-claims", h.handleListProviderClaims)

	r.Mount("/", claimRouter)
}

type updateStatusRequest struct {
	MemberID       string `json:"member_id"`
	HMOID          string `json:"hmo_id"`
	Status         string `json:"status"`
	Reason         string `json:"reason,omitempty"`
	AmountOverride int64  `json:"amount_override,omitempty"`
}

type reviewClaimRequest struct {
	Action         string `json:"action"`
	Reason         string `json:"reason,omitempty"`
	ApprovedAmount int64  `json:"approved_amount,omitempty"`
}

type claimResponse struct {
	ID              string         `json:"id"`
	MemberID        string         `json:"member_id"`
	HMOID           string         `json:"hmo_id"`
	HospitalID      string         `json:"hospital_id,omitempty"`
	Amount          int64          `json:"amount"`
	Description     string         `json:"description,omitempty"`
	ServiceDate     time.Time      `json:"service_date,omitzero"`
	Status          string         `json:"status"`
	RejectionReason string         `json:"rejection_reason,omitempty"`
	Notes           []noteResponse `json:"notes,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

type providerClaimResponse struct {
	ID                string                `json:"id"`
	HMOID             string                `json:"hmo_id"`
	HospitalID        string                `json:"hospital_id"`
	EnrolleeNumber    string                `json:"enrollee_number"`
	ReferenceCode     string                `json:"reference_code,omitempty"`
	Diagnosis         string                `json:"diagnosis,omitempty"`
	Services          []serviceItemResponse `json:"services,omitempty"`
	TotalAmount       int64                 `json:"total_amount"`
	Status            string                `json:"status"`
	RejectionReason   string                `json:"rejection_reason,omitempty"`
	AuthorizationCode string                `json:"authorization_code,omitempty"`
	Notes             []noteResponse        `json:"notes,omitempty"`
	CreatedAt         time.Time             `json:"created_at"`
	UpdatedAt         time.Time             `json:"updated_at"`
}

type serviceItemResponse struct {
	Description string `json:"description"`
	Quantity    int    `json:"quantity"`
	UnitAmount  int64  `json:"unit_amount"`
	Total       int64  `json:"total"`
}

type noteResponse struct {
	ID        string    `json:"id"`
	AuthorID  string    `json:"author_id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

type listProviderClaimsResponse struct {
	Claims []providerClaimResponse `json:"claims"`
	Limit  int                     `json:"limit"`
	Offset int                     `json:"offset"`
}

// handleUpdateMemberClaimStatus moves a member claim through the status
// machine. The member and HMO scope come from the body so the lookup itself
// enforces tenancy.
func (h *Handler) handleUpdateMemberClaimStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	principal := requestcontext.Principal(ctx)
	if principal.UserID.IsZero() {
		h.authContextError(ctx, w, requestID)
		return
	}

	claimID, err := id.ParseClaimID(chi.URLParam(r, "claimID"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid claim id"))
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "invalid update status request",
			"request_id", requestID,
			"error", err.Error(),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	memberID, err := id.ParseMemberID(req.MemberID)
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid member id"))
		return
	}
	hmoID, err := id.ParseHMOID(req.HMOID)
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid hmo id"))
		return
	}
	status, err := models.ParseStatus(req.Status)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	query := claimservice.MemberClaimQuery{ClaimID: claimID, MemberID: memberID, HMOID: hmoID}
	claim, err := h.claims.UpdateMemberClaimStatus(ctx, query, principal, status, req.Reason, req.AmountOverride)
	if err != nil {
		h.writeServiceError(ctx, w, requestID, "failed to update member claim status", err)
		return
	}

	shared.WriteJSON(w, http.StatusOK, toClaimResponse(claim))
}

// handleUpdateProviderClaimStatus moves a provider claim through the status
// machine after the ownership gate passes.
func (h *Handler) handleUpdateProviderClaimStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	principal := requestcontext.Principal(ctx)
	if principal.UserID.IsZero() {
		h.authContextError(ctx, w, requestID)
		return
	}

	claimID, err := id.ParseProviderClaimID(chi.URLParam(r, "claimID"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid provider claim id"))
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "invalid update status request",
			"request_id", requestID,
			"error", err.Error(),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	status, err := models.ParseStatus(req.Status)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	claim, err := h.claims.UpdateProviderClaimStatus(ctx, claimID, principal, status, req.Reason)
	if err != nil {
		h.writeServiceError(ctx, w, requestID, "failed to update provider claim status", err)
		return
	}

	shared.WriteJSON(w, http.StatusOK, toProviderClaimResponse(claim))
}

// handleReviewClaim is the treatment-claims review endpoint. It only accepts
// approve or decline and requires the claim to still be pending.
func (h *Handler) handleReviewClaim(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	principal := requestcontext.Principal(ctx)
	if principal.UserID.IsZero() {
		h.authContextError(ctx, w, requestID)
		return
	}

	claimID, err := id.ParseClaimID(chi.URLParam(r, "claimID"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid claim id"))
		return
	}

	var req reviewClaimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "invalid review claim request",
			"request_id", requestID,
			"error", err.Error(),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	action, err := claimservice.ParseAction(req.Action)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	claim, err := h.claims.ApproveOrDeclineClaim(ctx, claimID, principal, action, req.Reason, req.ApprovedAmount)
	if err != nil {
		h.writeServiceError(ctx, w, requestID, "failed to review claim", err)
		return
	}

	shared.WriteJSON(w, http.StatusOK, toClaimResponse(claim))
}

func (h *Handler) handleGetMemberClaim(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	if requestcontext.Principal(ctx).UserID.IsZero() {
		h.authContextError(ctx, w, requestID)
		return
	}

	claimID, err := id.ParseClaimID(chi.URLParam(r, "claimID"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid claim id"))
		return
	}
	memberID, err := id.ParseMemberID(r.URL.Query().Get("member_id"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid member id"))
		return
	}
	hmoID, err := id.ParseHMOID(r.URL.Query().Get("hmo_id"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid hmo id"))
		return
	}

	claim, err := h.claims.GetMemberClaim(ctx, claimservice.MemberClaimQuery{ClaimID: claimID, MemberID: memberID, HMOID: hmoID})
	if err != nil {
		h.writeServiceError(ctx, w, requestID, "failed to load claim", err)
		return
	}

	shared.WriteJSON(w, http.StatusOK, toClaimResponse(claim))
}

func (h *Handler) handleGetProviderClaim(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	principal := requestcontext.Principal(ctx)
	if principal.UserID.IsZero() {
		h.authContextError(ctx, w, requestID)
		return
	}

	claimID, err := id.ParseProviderClaimID(chi.URLParam(r, "claimID"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid provider claim id"))
		return
	}

	claim, err := h.claims.GetProviderClaim(ctx, claimID, principal)
	if err != nil {
		h.writeServiceError(ctx, w, requestID, "failed to load provider claim", err)
		return
	}

	shared.WriteJSON(w, http.StatusOK, toProviderClaimResponse(claim))
}

func (h *Handler) handleListProviderClaims(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	principal := requestcontext.Principal(ctx)
	if principal.UserID.IsZero() {
		h.authContextError(ctx, w, requestID)
		return
	}

	hmoID, err := id.ParseHMOID(chi.URLParam(r, "hmoID"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid hmo id"))
		return
	}

	limit := queryInt(r, "limit")
	offset := queryInt(r, "offset")

	claims, err := h.claims.ListProviderClaims(ctx, hmoID, principal, limit, offset)
	if err != nil {
		h.writeServiceError(ctx, w, requestID, "failed to list provider claims", err)
		return
	}

	resp := listProviderClaimsResponse{
		Claims: make([]providerClaimResponse, 0, len(claims)),
		Limit:  limit,
		Offset: offset,
	}
	for _, c := range claims {
		resp.Claims = append(resp.Claims, toProviderClaimResponse(c))
	}
	shared.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) authContextError(ctx context.Context, w http.ResponseWriter, requestID string) {
	// This should never happen if RequireAuth middleware is configured correctly
	h.logger.ErrorContext(ctx, "principal missing from context despite auth middleware",
		"request_id", requestID,
	)
	shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
}

func (h *Handler) writeServiceError(ctx context.Context, w http.ResponseWriter, requestID, msg string, err error) {
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, msg,
			"request_id", requestID,
			"error", err.Error(),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, msg))
		return
	}
	h.logger.WarnContext(ctx, msg,
		"request_id", requestID,
		"error", err.Error(),
	)
	shared.WriteError(w, err)
}

func queryInt(r *http.Request, key string) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}

func toClaimResponse(c *models.Claim) claimResponse {
	resp := claimResponse{
		ID:              c.ID.String(),
		MemberID:        c.MemberID.String(),
		HMOID:           c.HMOID.String(),
		Amount:          c.Amount,
		Description:     c.Description,
		ServiceDate:     c.ServiceDate,
		Status:          string(c.Status),
		RejectionReason: c.RejectionReason,
		Notes:           toNoteResponses(c.Notes),
		CreatedAt:       c.CreatedAt,
		UpdatedAt:       c.UpdatedAt,
	}
	if !c.HospitalID.IsZero() {
		resp.HospitalID = c.HospitalID.String()
	}
	return resp
}

func toProviderClaimResponse(c *models.ProviderClaim) providerClaimResponse {
	resp := providerClaimResponse{
		ID:                c.ID.String(),
		HMOID:             c.HMOID.String(),
		HospitalID:        c.HospitalID.String(),
		EnrolleeNumber:    c.EnrolleeNumber,
		ReferenceCode:     c.ReferenceCode,
		Diagnosis:         c.Diagnosis,
		TotalAmount:       c.TotalAmount(),
		Status:            string(c.Status),
		RejectionReason:   c.RejectionReason,
		AuthorizationCode: c.AuthorizationCode,
		Notes:             toNoteResponses(c.Notes),
		CreatedAt:         c.CreatedAt,
		UpdatedAt:         c.UpdatedAt,
	}
	for _, s := range c.Services {
		resp.Services = append(resp.Services, serviceItemResponse{
			Description: s.Description,
			Quantity:    s.Quantity,
			UnitAmount:  s.UnitAmount,
			Total:       s.Total(),
		})
	}
	return resp
}

func toNoteResponses(notes []*models.Note) []noteResponse {
	if len(notes) == 0 {
		return nil
	}
	out := make([]noteResponse, 0, len(notes))
	for _, n := range notes {
		out = append(out, noteResponse{
			ID:        n.ID.String(),
			AuthorID:  n.AuthorID.String(),
			Body:      n.Body,
			CreatedAt: n.CreatedAt,
		})
	}
	return out
}
