package usecase

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"heliowatch/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tickPayload(t *testing.T, id models.Instrument, value float64, at time.Time, event bool) []byte {
	t.Helper()
	b, err := json.Marshal(map[string]interface{}{
		"instrument": string(id),
		"value":      value,
		"t":          at.UnixMilli(),
		"event":      event,
	})
	require.NoError(t, err)
	return b
}

func TestKafkaReadingsHandlerStoresDecodedTick(t *testing.T) {
	store := &stubStorage{}
	m := newStubMetrics()
	h := NewKafkaReadingsHandler("heliowatch.readings", store, m)

	now := time.Now().UTC().Truncate(time.Millisecond)
	err := h.Handle(context.Background(), tickPayload(t, models.InstrumentSTEP, 42, now, false))
	require.NoError(t, err)

	assert.Equal(t, "heliowatch.readings", h.Topic())
	assert.Zero(t, m.eventCount(models.InstrumentSTEP))
}

func TestKafkaReadingsHandlerRecordsEventFlag(t *testing.T) {
	store := &stubStorage{}
	m := newStubMetrics()
	h := NewKafkaReadingsHandler("heliowatch.readings", store, m)

	now := time.Now().UTC()
	require.NoError(t, h.Handle(context.Background(), tickPayload(t, models.InstrumentMAG, 80, now, true)))
	require.NoError(t, h.Handle(context.Background(), tickPayload(t, models.InstrumentMAG, 81, now, true)))
	require.NoError(t, h.Handle(context.Background(), tickPayload(t, models.InstrumentSUIT, 30, now, false)))

	assert.Equal(t, 2, m.eventCount(models.InstrumentMAG))
	assert.Zero(t, m.eventCount(models.InstrumentSUIT))
}

func TestKafkaReadingsHandlerRejectsMalformedPayload(t *testing.T) {
	m := newStubMetrics()
	h := NewKafkaReadingsHandler("heliowatch.readings", &stubStorage{}, m)

	err := h.Handle(context.Background(), []byte("not json"))
	require.Error(t, err)
	assert.Equal(t, 1, m.errorCount("consumer_unmarshal"))
}
