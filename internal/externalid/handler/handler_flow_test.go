package handler

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"extid/internal/externalid/models"
	"extid/internal/externalid/service"
	storememory "extid/internal/externalid/store/memory"
	"extid/internal/externalid/throttle"
	dErrors "extid/pkg/domain-errors"
	"extid/pkg/testutil"
)

func newFlowRouter(t *testing.T) chi.Router {
	t.Helper()
	th, err := throttle.New(10000)
	require.NoError(t, err)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc, err := service.New(storememory.NewInMemoryStore(), th, service.WithLogger(logger))
	require.NoError(t, err)

	r := chi.NewRouter()
	New(svc, logger, nil, svc.Config().DefaultPageSize).Register(r)
	return r
}

func TestAssignmentFlow(t *testing.T) {
	r := newFlowRouter(t)
	base := "/v1/apps/app1/externalids"

	testutil.Given(t, "an unassigned identifier", func(t *testing.T) {
		rr := testutil.DoRequest(r, testutil.NewJSONRequest(t, http.MethodPost, base,
			models.CreateExternalIDRequest{Identifier: "ext-1", StudyID: "study-a"}))
		require.Equal(t, http.StatusCreated, rr.Code)
	})

	testutil.When(t, "two accounts commit in turn", func(t *testing.T) {
		rr := testutil.DoRequest(r, testutil.NewJSONRequest(t, http.MethodPost, base+"/ext-1/assignment",
			models.AssignRequest{HealthCode: "acct-42"}))
		assert.Equal(t, http.StatusNoContent, rr.Code)

		rr = testutil.DoRequest(r, testutil.NewJSONRequest(t, http.MethodPost, base+"/ext-1/assignment",
			models.AssignRequest{HealthCode: "acct-99"}))
		testutil.AssertStatusAndError(t, rr, http.StatusConflict, string(dErrors.CodeConflict))
	})

	testutil.Then(t, "only the owner can release it", func(t *testing.T) {
		rr := testutil.DoRequest(r, testutil.NewJSONRequest(t, http.MethodDelete, base+"/ext-1/assignment?healthCode=acct-99", nil))
		require.Equal(t, http.StatusOK, rr.Code)
		assert.True(t, testutil.UnmarshalResponse[models.ExternalIDResponse](t, rr).Assigned)

		rr = testutil.DoRequest(r, testutil.NewJSONRequest(t, http.MethodDelete, base+"/ext-1/assignment?healthCode=acct-42", nil))
		require.Equal(t, http.StatusOK, rr.Code)
		assert.False(t, testutil.UnmarshalResponse[models.ExternalIDResponse](t, rr).Assigned)

		rr = testutil.DoRequest(r, testutil.NewJSONRequest(t, http.MethodPost, base+"/ext-1/assignment",
			models.AssignRequest{HealthCode: "acct-99"}))
		assert.Equal(t, http.StatusNoContent, rr.Code)
	})
}

func TestDirectoryPagingFlow(t *testing.T) {
	r := newFlowRouter(t)
	base := "/v1/apps/app1/externalids"

	for i := range 12 {
		study := "study-a"
		if i%2 == 1 {
			study = "study-b"
		}
		rr := testutil.DoRequest(r, testutil.NewJSONRequest(t, http.MethodPost, base,
			models.CreateExternalIDRequest{Identifier: fmt.Sprintf("p-%02d", i), StudyID: study}))
		require.Equal(t, http.StatusCreated, rr.Code)
	}

	var seen []string
	offsetKey := ""
	for pages := 0; ; pages++ {
		require.Less(t, pages, 10, "cursor chain did not terminate")

		query := url.Values{"pageSize": {"5"}}
		if offsetKey != "" {
			query.Set("offsetKey", offsetKey)
		}
		req := testutil.NewJSONRequest(t, http.MethodGet, base+"?"+query.Encode(), nil)
		testutil.WithCallerStudiesHeader(req, "study-a")
		rr := testutil.DoRequest(r, req)
		require.Equal(t, http.StatusOK, rr.Code)

		page := testutil.UnmarshalResponse[models.ForwardCursorPage](t, rr)
		for _, item := range page.Items {
			seen = append(seen, item.Identifier)
			if item.Identifier[len(item.Identifier)-1]%2 == 1 {
				assert.Empty(t, item.StudyID, "study-b attribution leaked for %s", item.Identifier)
			} else {
				assert.Equal(t, "study-a", item.StudyID)
			}
		}
		if page.NextPageOffsetKey == "" {
			break
		}
		offsetKey = page.NextPageOffsetKey
	}

	assert.Len(t, seen, 12)
	assert.Equal(t, "p-00", seen[0])
	assert.Equal(t, "p-11", seen[11])
}

func TestPageSizeBoundsFlow(t *testing.T) {
	r := newFlowRouter(t)
	base := "/v1/apps/app1/externalids"

	for _, size := range []string{"0", "-1", "101"} {
		t.Run("rejects pageSize="+size, func(t *testing.T) {
			rr := testutil.DoRequest(r, testutil.NewJSONRequest(t, http.MethodGet, base+"?pageSize="+size, nil))
			testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, string(dErrors.CodeValidation))
		})
	}

	t.Run("missing pageSize uses the configured default", func(t *testing.T) {
		rr := testutil.DoRequest(r, testutil.NewJSONRequest(t, http.MethodGet, base, nil))
		require.Equal(t, http.StatusOK, rr.Code)
		page := testutil.UnmarshalResponse[models.ForwardCursorPage](t, rr)
		assert.EqualValues(t, service.DefaultDefaultPageSize, page.RequestParams[models.ParamPageSize])
	})
}
