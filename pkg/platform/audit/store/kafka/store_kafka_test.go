package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	audit "extid/pkg/platform/audit"
)

type fakeProducer struct {
	records []*kgo.Record
	err     error
}

func (p *fakeProducer) ProduceSync(_ context.Context, rs ...*kgo.Record) kgo.ProduceResults {
	p.records = append(p.records, rs...)
	results := make(kgo.ProduceResults, 0, len(rs))
	for _, r := range rs {
		results = append(results, kgo.ProduceResult{Record: r, Err: p.err})
	}
	return results
}

func TestAppend(t *testing.T) {
	t.Run("produces keyed JSON record", func(t *testing.T) {
		producer := &fakeProducer{}
		store := New(producer, "extid.audit")
		event := audit.Event{
			Category:   audit.CategoryCompliance,
			Timestamp:  time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
			Action:     string(audit.EventExternalIDAssigned),
			AppID:      "app1",
			Identifier: "ext-1",
		}

		require.NoError(t, store.Append(context.Background(), event))
		require.Len(t, producer.records, 1)

		record := producer.records[0]
		assert.Equal(t, "extid.audit", record.Topic)
		assert.Equal(t, "app1:ext-1", string(record.Key))

		var decoded audit.Event
		require.NoError(t, json.Unmarshal(record.Value, &decoded))
		assert.Equal(t, event, decoded)
	})

	t.Run("surfaces produce failure", func(t *testing.T) {
		producer := &fakeProducer{err: errors.New("broker down")}
		store := New(producer, "extid.audit")

		err := store.Append(context.Background(), audit.Event{Action: "x"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "broker down")
	})
}
