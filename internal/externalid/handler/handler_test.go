package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"extid/internal/externalid/handler/mocks"
	"extid/internal/externalid/models"
	dErrors "extid/pkg/domain-errors"
	"extid/pkg/requestcontext"
	"extid/pkg/testutil"
)

//go:generate mockgen -source=handler.go -destination=mocks/handler-mocks.go -package=mocks Service

type HandlerSuite struct {
	suite.Suite
	ctrl    *gomock.Controller
	service *mocks.MockService
	router  chi.Router
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.service = mocks.NewMockService(s.ctrl)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	s.router = chi.NewRouter()
	New(s.service, logger, nil, 50).Register(s.router)
}

func (s *HandlerSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *HandlerSuite) do(req *http.Request) *httptest.ResponseRecorder {
	return testutil.DoRequest(s.router, req)
}

// =============================================================================
// List
// =============================================================================

func (s *HandlerSuite) TestList() {
	s.Run("defaults page size and parses filters", func() {
		s.service.EXPECT().ListExternalIDs(gomock.Any(), models.ListRequest{
			AppID:      "app1",
			OffsetKey:  "p-10",
			PageSize:   50,
			IDFilter:   "p-",
			Assignment: models.AssignmentUnassigned,
		}, models.NewCallerStudies()).Return(&models.ForwardCursorPage{
			Items:             []models.ExternalIDInfo{{Identifier: "p-11", StudyID: "study-a"}},
			NextPageOffsetKey: "p-11",
			RequestParams:     map[string]any{models.ParamPageSize: 50},
		}, nil)

		req := testutil.NewJSONRequest(s.T(), http.MethodGet, "/v1/apps/app1/externalids?offsetKey=p-10&idFilter=p-&assignmentFilter=false", nil)
		res := s.do(req)

		s.Equal(http.StatusOK, res.Code)
		page := testutil.UnmarshalResponse[models.ForwardCursorPage](s.T(), res)
		s.Equal("p-11", page.NextPageOffsetKey)
		s.Require().Len(page.Items, 1)
		s.Equal("study-a", page.Items[0].StudyID)
	})

	s.Run("passes caller studies from the header", func() {
		s.service.EXPECT().ListExternalIDs(gomock.Any(), gomock.Any(), models.NewCallerStudies("study-a", "study-b")).
			Return(&models.ForwardCursorPage{RequestParams: map[string]any{}}, nil)

		req := testutil.NewJSONRequest(s.T(), http.MethodGet, "/v1/apps/app1/externalids?pageSize=5", nil)
		testutil.WithCallerStudiesHeader(req, "study-a, study-b")

		s.Equal(http.StatusOK, s.do(req).Code)
	})

	s.Run("rejects a non-numeric page size", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodGet, "/v1/apps/app1/externalids?pageSize=ten", nil)
		testutil.AssertStatusAndError(s.T(), s.do(req), http.StatusBadRequest, string(dErrors.CodeValidation))
	})

	s.Run("rejects an unknown assignment filter", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodGet, "/v1/apps/app1/externalids?assignmentFilter=maybe", nil)
		testutil.AssertStatusAndError(s.T(), s.do(req), http.StatusBadRequest, string(dErrors.CodeValidation))
	})

	s.Run("maps service timeouts to 504", func() {
		s.service.EXPECT().ListExternalIDs(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeTimeout, "capacity wait exceeded the request deadline"))

		req := testutil.NewJSONRequest(s.T(), http.MethodGet, "/v1/apps/app1/externalids", nil)
		testutil.AssertStatusAndError(s.T(), s.do(req), http.StatusGatewayTimeout, string(dErrors.CodeTimeout))
	})

	s.Run("hides uncoded errors", func() {
		s.service.EXPECT().ListExternalIDs(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil, errors.New("dial tcp: connection refused"))

		req := testutil.NewJSONRequest(s.T(), http.MethodGet, "/v1/apps/app1/externalids", nil)
		res := s.do(req)
		testutil.AssertStatusAndError(s.T(), res, http.StatusInternalServerError, string(dErrors.CodeInternal))
		s.NotContains(res.Body.String(), "connection refused")
	})
}

// =============================================================================
// Single records
// =============================================================================

func (s *HandlerSuite) TestGet() {
	s.Run("redacts study outside the caller's scope", func() {
		s.service.EXPECT().GetExternalID(gomock.Any(), "app1", "ext-1").
			Return(&models.ExternalID{AppID: "app1", Identifier: "ext-1", StudyID: "study-b", HealthCode: "hc"}, nil)

		req := testutil.NewJSONRequest(s.T(), http.MethodGet, "/v1/apps/app1/externalids/ext-1", nil)
		testutil.WithCallerStudiesHeader(req, "study-a")
		res := s.do(req)

		s.Equal(http.StatusOK, res.Code)
		resp := testutil.UnmarshalResponse[models.ExternalIDResponse](s.T(), res)
		s.Equal(models.ExternalIDResponse{Identifier: "ext-1", Assigned: true}, *resp)
		s.NotContains(res.Body.String(), "hc")
	})

	s.Run("not found", func() {
		s.service.EXPECT().GetExternalID(gomock.Any(), "app1", "missing").
			Return(nil, dErrors.New(dErrors.CodeNotFound, "external ID not found"))

		req := testutil.NewJSONRequest(s.T(), http.MethodGet, "/v1/apps/app1/externalids/missing", nil)
		testutil.AssertStatusAndError(s.T(), s.do(req), http.StatusNotFound, string(dErrors.CodeNotFound))
	})
}

func (s *HandlerSuite) TestCreate() {
	s.Run("creates an unassigned record", func() {
		s.service.EXPECT().CreateExternalID(gomock.Any(), &models.ExternalID{
			AppID: "app1", Identifier: "ext-1", StudyID: "study-a",
		}).Return(nil)

		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/v1/apps/app1/externalids",
			models.CreateExternalIDRequest{Identifier: " ext-1 ", StudyID: "study-a"})
		res := s.do(req)

		s.Equal(http.StatusCreated, res.Code)
		resp := testutil.UnmarshalResponse[models.ExternalIDResponse](s.T(), res)
		s.Equal("ext-1", resp.Identifier)
		s.False(resp.Assigned)
	})

	s.Run("rejects unknown fields", func() {
		req := testutil.NewRequestWithBody(s.T(), http.MethodPost, "/v1/apps/app1/externalids", `{"identifier":"x","healthCode":"hc"}`)
		testutil.AssertStatusAndError(s.T(), s.do(req), http.StatusBadRequest, string(dErrors.CodeBadRequest))
	})

	s.Run("rejects non-JSON content", func() {
		req := testutil.NewRequestWithBody(s.T(), http.MethodPost, "/v1/apps/app1/externalids", `identifier=x`)
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		testutil.AssertStatusAndError(s.T(), s.do(req), http.StatusBadRequest, string(dErrors.CodeBadRequest))
	})
}

func (s *HandlerSuite) TestDelete() {
	s.service.EXPECT().DeleteExternalID(gomock.Any(), "app1", "ext-1").Return(nil)

	req := testutil.NewJSONRequest(s.T(), http.MethodDelete, "/v1/apps/app1/externalids/ext-1", nil)
	s.Equal(http.StatusNoContent, s.do(req).Code)
}

// =============================================================================
// Assignment
// =============================================================================

func (s *HandlerSuite) TestCommitAssignment() {
	s.Run("commits the binding", func() {
		s.service.EXPECT().CommitAssignment(gomock.Any(), &models.ExternalID{
			AppID: "app1", Identifier: "ext-1", HealthCode: "acct-42",
		}).Return(nil)

		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/v1/apps/app1/externalids/ext-1/assignment",
			models.AssignRequest{HealthCode: "acct-42"})
		s.Equal(http.StatusNoContent, s.do(req).Code)
	})

	s.Run("requires a health code", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/v1/apps/app1/externalids/ext-1/assignment",
			models.AssignRequest{HealthCode: "  "})
		testutil.AssertStatusAndError(s.T(), s.do(req), http.StatusBadRequest, string(dErrors.CodeValidation))
	})

	s.Run("maps a lost race to 409", func() {
		s.service.EXPECT().CommitAssignment(gomock.Any(), gomock.Any()).
			Return(dErrors.New(dErrors.CodeConflict, "external ID is already assigned: ext-1"))

		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/v1/apps/app1/externalids/ext-1/assignment",
			models.AssignRequest{HealthCode: "acct-99"})
		testutil.AssertStatusAndError(s.T(), s.do(req), http.StatusConflict, string(dErrors.CodeConflict))
	})
}

func (s *HandlerSuite) TestUnassign() {
	s.Run("returns the released record", func() {
		s.service.EXPECT().Unassign(gomock.Any(), models.Account{AppID: "app1", HealthCode: "acct-42"}, "ext-1").
			Return(&models.ExternalID{AppID: "app1", Identifier: "ext-1", StudyID: "study-a"}, nil)

		req := testutil.NewJSONRequest(s.T(), http.MethodDelete, "/v1/apps/app1/externalids/ext-1/assignment?healthCode=acct-42", nil)
		res := s.do(req)

		s.Equal(http.StatusOK, res.Code)
		resp := testutil.UnmarshalResponse[models.ExternalIDResponse](s.T(), res)
		s.Equal(models.ExternalIDResponse{Identifier: "ext-1", StudyID: "study-a"}, *resp)
	})

	s.Run("absent record is 204", func() {
		s.service.EXPECT().Unassign(gomock.Any(), gomock.Any(), "gone").Return(nil, nil)

		req := testutil.NewJSONRequest(s.T(), http.MethodDelete, "/v1/apps/app1/externalids/gone/assignment?healthCode=acct-42", nil)
		s.Equal(http.StatusNoContent, s.do(req).Code)
	})

	s.Run("requires a health code", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodDelete, "/v1/apps/app1/externalids/ext-1/assignment", nil)
		testutil.AssertStatusAndError(s.T(), s.do(req), http.StatusBadRequest, string(dErrors.CodeValidation))
	})
}

func (s *HandlerSuite) TestRequestIDIsEchoed() {
	s.service.EXPECT().DeleteExternalID(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, _, _ string) error {
			s.Equal("req-abc", requestcontext.RequestID(ctx))
			return nil
		})

	req := testutil.NewJSONRequest(s.T(), http.MethodDelete, "/v1/apps/app1/externalids/ext-1", nil)
	req.Header.Set("X-Request-ID", "req-abc")
	res := s.do(req)

	s.Equal("req-abc", res.Header().Get("X-Request-ID"))
}
