package registry

import (
	"testing"

	"heliowatch/internal/domain/models"
	domsvc "heliowatch/internal/domain/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupReturnsRegisteredEntry(t *testing.T) {
	reg := New(map[models.Instrument]domsvc.RegistryEntry{
		models.InstrumentMAG: {
			ClassificationRef: "cls-mag-v3",
			DetectionRef:      "det-mag-v3",
			TimeSeriesRef:     "ts-mag-v1",
		},
	})

	e, err := reg.Lookup(models.InstrumentMAG)
	require.NoError(t, err)
	assert.Equal(t, domsvc.ModelRef("cls-mag-v3"), e.ClassificationRef)
	assert.True(t, e.HasTimeSeries())
}

func TestLookupUnregisteredInstrument(t *testing.T) {
	reg := New(map[models.Instrument]domsvc.RegistryEntry{
		models.InstrumentMAG: {ClassificationRef: "cls-mag-v3"},
	})

	_, err := reg.Lookup(models.InstrumentSWISS)
	require.Error(t, err)
	assert.ErrorIs(t, err, domsvc.ErrModelUnavailable)

	var mue *domsvc.ModelUnavailableError
	require.ErrorAs(t, err, &mue)
	assert.Equal(t, models.InstrumentSWISS, mue.Instrument)
}

func TestNewDropsUnknownInstruments(t *testing.T) {
	reg := New(map[models.Instrument]domsvc.RegistryEntry{
		"GONIO": {ClassificationRef: "cls-gonio-v1"},
	})

	_, err := reg.Lookup("GONIO")
	assert.ErrorIs(t, err, domsvc.ErrModelUnavailable)
}

func TestEntryWithoutTimeSeries(t *testing.T) {
	reg := New(map[models.Instrument]domsvc.RegistryEntry{
		models.InstrumentSTEP: {ClassificationRef: "cls-step-v2", DetectionRef: "det-step-v2"},
	})

	e, err := reg.Lookup(models.InstrumentSTEP)
	require.NoError(t, err)
	assert.False(t, e.HasTimeSeries())
}
