package repository

import (
	"testing"
	"time"

	"heliowatch/internal/cme"
	"heliowatch/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadingPayloadCarriesEventFlag(t *testing.T) {
	p := &KafkaPublisher{detCfg: cme.DefaultDetectorConfig()}
	now := time.Now().UTC()

	above := p.readingPayload(&models.InstrumentReading{
		Instrument: models.InstrumentMAG,
		Value:      80,
		Timestamp:  now,
	})
	require.Equal(t, "MAG", above["instrument"])
	assert.Equal(t, 80.0, above["value"])
	assert.Equal(t, now.UnixMilli(), above["t"])
	assert.Equal(t, true, above["event"])

	below := p.readingPayload(&models.InstrumentReading{
		Instrument: models.InstrumentMAG,
		Value:      50,
		Timestamp:  now,
	})
	assert.Equal(t, false, below["event"])
}

func TestReadingPayloadEventUsesConfiguredThreshold(t *testing.T) {
	cfg := cme.DefaultDetectorConfig()
	cfg.EventThreshold = 40
	p := &KafkaPublisher{detCfg: cfg}

	payload := p.readingPayload(&models.InstrumentReading{
		Instrument: models.InstrumentSWISS,
		Value:      45,
		Timestamp:  time.Now().UTC(),
	})
	assert.Equal(t, true, payload["event"])
}
