package service

import (
	"context"
	"errors"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"extid/internal/externalid/models"
	"extid/internal/externalid/throttle"
	"extid/internal/externalid/visibility"
	dErrors "extid/pkg/domain-errors"
)

// ListExternalIDs returns one page of an app's identifiers in ascending
// order, redacted for callerStudies.
//
// The page is filled by repeated bounded range queries. Each query first
// acquires throttle permits equal to what the previous query consumed, so
// the process as a whole stays within the configured read rate. A page
// holds fewer than PageSize items only when it is the last one.
func (s *Service) ListExternalIDs(ctx context.Context, req models.ListRequest, callerStudies models.CallerStudies) (*models.ForwardCursorPage, error) {
	req.Normalize()
	if err := req.Validate(s.cfg.MaxPageSize); err != nil {
		return nil, err
	}

	ctx, span := s.tracer.Start(ctx, "externalid.ListExternalIDs")
	defer span.End()
	span.SetAttributes(
		attribute.String("app_id", req.AppID),
		attribute.Int("page_size", req.PageSize),
		attribute.String("assignment_filter", req.Assignment.Param()),
	)

	cursor := reconcileCursor(req.OffsetKey, req.IDFilter)
	items := make([]models.ExternalIDInfo, 0, req.PageSize)
	estimator := throttle.NewEstimator()
	queries := 0

	for {
		permits := estimator.Next()
		waited, err := s.limiter.Acquire(ctx, permits)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "acquire read capacity")
			if errors.Is(err, context.DeadlineExceeded) {
				return nil, dErrors.Wrap(err, dErrors.CodeTimeout, "timed out waiting for read capacity")
			}
			return nil, err
		}

		page, err := s.store.Query(ctx, models.RangeQuery{
			AppID:      req.AppID,
			IDPrefix:   req.IDFilter,
			Assignment: req.Assignment,
			StartAfter: cursor,
			Limit:      s.cfg.ScanLimit,
		})
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "range query")
			return nil, storeError("query external ids", err)
		}
		queries++

		accepted := 0
		for _, record := range page.Items {
			if len(items) == req.PageSize {
				break
			}
			items = append(items, visibility.Redact(record, callerStudies))
			accepted++
		}

		estimator.Observe(page.ConsumedCapacity)
		s.metrics.ObserveRangeQuery(page.ConsumedCapacity)
		s.logger.DebugContext(ctx, "directory range query",
			"app_id", req.AppID,
			"start_after", cursor,
			"permits_acquired", permits,
			"throttle_wait_ms", waited.Milliseconds(),
			"consumed_capacity", page.ConsumedCapacity,
			"scanned", page.ScannedCount,
			"matched", len(page.Items),
			"accepted", accepted,
		)

		if len(page.Items) > accepted {
			// the query matched records past the end of the page; resume after
			// the last one taken so none of them are skipped
			cursor = items[len(items)-1].Identifier
		} else {
			cursor = page.LastEvaluatedKey
		}

		if len(items) == req.PageSize || cursor == "" {
			break
		}
	}

	span.SetAttributes(
		attribute.Int("items", len(items)),
		attribute.Int("store_queries", queries),
		attribute.Bool("has_next", cursor != ""),
	)
	s.metrics.IncrementPagesServed()
	return models.NewForwardCursorPage(items, cursor, req), nil
}

// reconcileCursor drops a cursor that lies outside the prefix range, which
// restarts the scan at the beginning of the filtered range. Clients that
// change idFilter between pages send such pairs.
func reconcileCursor(offsetKey, prefix string) string {
	if offsetKey != "" && prefix != "" && !strings.HasPrefix(offsetKey, prefix) {
		return ""
	}
	return offsetKey
}
