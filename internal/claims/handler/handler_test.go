package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"alapay/internal/claims/handler/mocks"
	"alapay/internal/claims/models"
	claimservice "alapay/internal/claims/service"
	id "alapay/pkg/domain"
	dErrors "alapay/pkg/domain-errors"
	"alapay/pkg/requestcontext"
)

//go:generate mockgen -source=handler.go -destination=mocks/claims-mocks.go -package=mocks Service
type ClaimHandlerSuite struct {
	suite.Suite
	ctx context.Context
}

func (s *ClaimHandlerSuite) SetupSuite() {
	s.ctx = context.Background()
}

func TestClaimHandlerSuite(t *testing.T) {
	suite.Run(t, new(ClaimHandlerSuite))
}

func newTestHandler(t *testing.T) (*Handler, *mocks.MockService) {
	t.Helper()
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)
	mockService := mocks.NewMockService(ctrl)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	handler := New(mockService, logger, nil)
	return handler, mockService
}

func testPrincipal() id.Principal {
	return id.Principal{UserID: id.UserID(uuid.New()), Role: id.RoleAdmin}
}

func authedRequest(method, target string, body []byte, principal id.Principal) *http.Request {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	ctx := requestcontext.WithPrincipal(req.Context(), principal)
	return req.WithContext(ctx)
}

func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func (s *ClaimHandlerSuite) TestHandleUpdateMemberClaimStatus() {
	handler, mockService := newTestHandler(s.T())
	principal := testPrincipal()

	claimID := id.ClaimID(uuid.New())
	memberID := id.MemberID(uuid.New())
	hmoID := id.HMOID(uuid.New())
	updatedAt := time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)

	query := claimservice.MemberClaimQuery{ClaimID: claimID, MemberID: memberID, HMOID: hmoID}
	mockService.EXPECT().UpdateMemberClaimStatus(
		gomock.Any(), query, principal, models.StatusRejected, "duplicate submission", int64(0),
	).Return(&models.Claim{
		ID:              claimID,
		MemberID:        memberID,
		HMOID:           hmoID,
		Amount:          45000,
		Status:          models.StatusRejected,
		RejectionReason: "duplicate submission",
		UpdatedAt:       updatedAt,
	}, nil)

	body, err := json.Marshal(updateStatusRequest{
		MemberID: memberID.String(),
		HMOID:    hmoID.String(),
		Status:   "REJECTED",
		Reason:   "duplicate submission",
	})
	require.NoError(s.T(), err)

	req := authedRequest(http.MethodPatch, "/claims/"+claimID.String()+"/status", body, principal)
	req = withURLParam(req, "claimID", claimID.String())

	w := httptest.NewRecorder()
	handler.handleUpdateMemberClaimStatus(w, req)

	assert.Equal(s.T(), http.StatusOK, w.Code)
	var resp map[string]any
	require.NoError(s.T(), json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(s.T(), "REJECTED", resp["status"])
	assert.Equal(s.T(), "duplicate submission", resp["rejection_reason"])
}

func (s *ClaimHandlerSuite) TestHandleUpdateMemberClaimStatus_MissingReason() {
	handler, mockService := newTestHandler(s.T())
	principal := testPrincipal()

	claimID := id.ClaimID(uuid.New())
	memberID := id.MemberID(uuid.New())
	hmoID := id.HMOID(uuid.New())

	mockService.EXPECT().UpdateMemberClaimStatus(
		gomock.Any(), gomock.Any(), principal, models.StatusRejected, "", int64(0),
	).Return(nil, dErrors.New(dErrors.CodeMissingReason, "reason required to reject"))

	body, err := json.Marshal(updateStatusRequest{
		MemberID: memberID.String(),
		HMOID:    hmoID.String(),
		Status:   "REJECTED",
	})
	require.NoError(s.T(), err)

	req := authedRequest(http.MethodPatch, "/claims/"+claimID.String()+"/status", body, principal)
	req = withURLParam(req, "claimID", claimID.String())

	w := httptest.NewRecorder()
	handler.handleUpdateMemberClaimStatus(w, req)

	assert.Equal(s.T(), http.StatusBadRequest, w.Code)
	var resp map[string]any
	require.NoError(s.T(), json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(s.T(), string(dErrors.CodeMissingReason), resp["error"])
}

func (s *ClaimHandlerSuite) TestHandleUpdateMemberClaimStatus_InvalidBody() {
	handler, _ := newTestHandler(s.T())
	principal := testPrincipal()
	claimID := id.ClaimID(uuid.New())

	req := authedRequest(http.MethodPatch, "/claims/"+claimID.String()+"/status", []byte("{not json"), principal)
	req = withURLParam(req, "claimID", claimID.String())

	w := httptest.NewRecorder()
	handler.handleUpdateMemberClaimStatus(w, req)

	assert.Equal(s.T(), http.StatusBadRequest, w.Code)
}

func (s *ClaimHandlerSuite) TestHandleUpdateProviderClaimStatus_Forbidden() {
	handler, mockService := newTestHandler(s.T())
	principal := testPrincipal()
	claimID := id.ProviderClaimID(uuid.New())

	mockService.EXPECT().UpdateProviderClaimStatus(
		gomock.Any(), claimID, principal, models.StatusApproved, "",
	).Return(nil, dErrors.New(dErrors.CodeForbidden, "user is not an administrator of this hmo"))

	body, err := json.Marshal(updateStatusRequest{Status: "APPROVED"})
	require.NoError(s.T(), err)

	req := authedRequest(http.MethodPatch, "/provider-claims/"+claimID.String()+"/status", body, principal)
	req = withURLParam(req, "claimID", claimID.String())

	w := httptest.NewRecorder()
	handler.handleUpdateProviderClaimStatus(w, req)

	assert.Equal(s.T(), http.StatusForbidden, w.Code)
	var resp map[string]any
	require.NoError(s.T(), json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(s.T(), string(dErrors.CodeForbidden), resp["error"])
}

func (s *ClaimHandlerSuite) TestHandleUpdateProviderClaimStatus_Locked() {
	handler, mockService := newTestHandler(s.T())
	principal := testPrincipal()
	claimID := id.ProviderClaimID(uuid.New())

	mockService.EXPECT().UpdateProviderClaimStatus(
		gomock.Any(), claimID, principal, models.StatusRejected, "late filing",
	).Return(nil, dErrors.Newf(dErrors.CodeLocked, "claim is locked in status %s", models.StatusApproved))

	body, err := json.Marshal(updateStatusRequest{Status: "REJECTED", Reason: "late filing"})
	require.NoError(s.T(), err)

	req := authedRequest(http.MethodPatch, "/provider-claims/"+claimID.String()+"/status", body, principal)
	req = withURLParam(req, "claimID", claimID.String())

	w := httptest.NewRecorder()
	handler.handleUpdateProviderClaimStatus(w, req)

	assert.Equal(s.T(), http.StatusBadRequest, w.Code)
	var resp map[string]any
	require.NoError(s.T(), json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(s.T(), string(dErrors.CodeLocked), resp["error"])
}

func (s *ClaimHandlerSuite) TestHandleReviewClaim_Approve() {
	handler, mockService := newTestHandler(s.T())
	principal := testPrincipal()
	claimID := id.ClaimID(uuid.New())

	mockService.EXPECT().ApproveOrDeclineClaim(
		gomock.Any(), claimID, principal, claimservice.ActionApprove, "", int64(40000),
	).Return(&models.Claim{
		ID:     claimID,
		Amount: 40000,
		Status: models.StatusApproved,
	}, nil)

	body, err := json.Marshal(reviewClaimRequest{Action: "approve", ApprovedAmount: 40000})
	require.NoError(s.T(), err)

	req := authedRequest(http.MethodPost, "/claims/"+claimID.String()+"/review", body, principal)
	req = withURLParam(req, "claimID", claimID.String())

	w := httptest.NewRecorder()
	handler.handleReviewClaim(w, req)

	assert.Equal(s.T(), http.StatusOK, w.Code)
	var resp map[string]any
	require.NoError(s.T(), json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(s.T(), "APPROVED", resp["status"])
	assert.Equal(s.T(), float64(40000), resp["amount"])
}

func (s *ClaimHandlerSuite) TestHandleReviewClaim_UnknownAction() {
	handler, _ := newTestHandler(s.T())
	principal := testPrincipal()
	claimID := id.ClaimID(uuid.New())

	body, err := json.Marshal(reviewClaimRequest{Action: "escalate"})
	require.NoError(s.T(), err)

	req := authedRequest(http.MethodPost, "/claims/"+claimID.String()+"/review", body, principal)
	req = withURLParam(req, "claimID", claimID.String())

	w := httptest.NewRecorder()
	handler.handleReviewClaim(w, req)

	assert.Equal(s.T(), http.StatusBadRequest, w.Code)
}

func (s *ClaimHandlerSuite) TestHandleReviewClaim_NotPending() {
	handler, mockService := newTestHandler(s.T())
	principal := testPrincipal()
	claimID := id.ClaimID(uuid.New())

	mockService.EXPECT().ApproveOrDeclineClaim(
		gomock.Any(), claimID, principal, claimservice.ActionDecline, "incomplete documents", int64(0),
	).Return(nil, dErrors.Newf(dErrors.CodeInvalidState, "claim must be PENDING to review, is %s", models.StatusApproved))

	body, err := json.Marshal(reviewClaimRequest{Action: "decline", Reason: "incomplete documents"})
	require.NoError(s.T(), err)

	req := authedRequest(http.MethodPost, "/claims/"+claimID.String()+"/review", body, principal)
	req = withURLParam(req, "claimID", claimID.String())

	w := httptest.NewRecorder()
	handler.handleReviewClaim(w, req)

	assert.Equal(s.T(), http.StatusBadRequest, w.Code)
	var resp map[string]any
	require.NoError(s.T(), json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(s.T(), string(dErrors.CodeInvalidState), resp["error"])
}

func (s *ClaimHandlerSuite) TestHandleGetMemberClaim_NotFound() {
	handler, mockService := newTestHandler(s.T())
	principal := testPrincipal()

	claimID := id.ClaimID(uuid.New())
	memberID := id.MemberID(uuid.New())
	hmoID := id.HMOID(uuid.New())

	mockService.EXPECT().GetMemberClaim(
		gomock.Any(),
		claimservice.MemberClaimQuery{ClaimID: claimID, MemberID: memberID, HMOID: hmoID},
	).Return(nil, dErrors.New(dErrors.CodeNotFound, "claim not found"))

	target := "/claims/" + claimID.String() + "?member_id=" + memberID.String() + "&hmo_id=" + hmoID.String()
	req := authedRequest(http.MethodGet, target, nil, principal)
	req = withURLParam(req, "claimID", claimID.String())

	w := httptest.NewRecorder()
	handler.handleGetMemberClaim(w, req)

	assert.Equal(s.T(), http.StatusNotFound, w.Code)
}

func (s *ClaimHandlerSuite) TestHandleListProviderClaims() {
	handler, mockService := newTestHandler(s.T())
	principal := testPrincipal()
	hmoID := id.HMOID(uuid.New())

	mockService.EXPECT().ListProviderClaims(gomock.Any(), hmoID, principal, 10, 0).
		Return([]*models.ProviderClaim{
			{
				ID:             id.ProviderClaimID(uuid.New()),
				HMOID:          hmoID,
				EnrolleeNumber: "ENR-0042",
				Services:       []models.ServiceItem{{Description: "consultation", Quantity: 2, UnitAmount: 5000}},
				Status:         models.StatusPending,
			},
		}, nil)

	req := authedRequest(http.MethodGet, "/hmos/"+hmoID.String()+"/provider-claims?limit=10", nil, principal)
	req = withURLParam(req, "hmoID", hmoID.String())

	w := httptest.NewRecorder()
	handler.handleListProviderClaims(w, req)

	assert.Equal(s.T(), http.StatusOK, w.Code)
	var resp map[string]any
	require.NoError(s.T(), json.Unmarshal(w.Body.Bytes(), &resp))
	claims := resp["claims"].([]any)
	require.Len(s.T(), claims, 1)
	item := claims[0].(map[string]any)
	assert.Equal(s.T(), "ENR-0042", item["enrollee_number"])
	assert.Equal(s.T(), float64(10000), item["total_amount"])
}

func (s *ClaimHandlerSuite) TestMissingPrincipalIsInternal() {
	handler, _ := newTestHandler(s.T())
	claimID := id.ClaimID(uuid.New())

	req := httptest.NewRequest(http.MethodPost, "/claims/"+claimID.String()+"/review", bytes.NewReader([]byte(`{}`)))
	req = withURLParam(req, "claimID", claimID.String())

	w := httptest.NewRecorder()
	handler.handleReviewClaim(w, req)

	assert.Equal(s.T(), http.StatusInternalServerError, w.Code)
}
