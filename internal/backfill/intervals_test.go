package backfill

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nse-oi-tracker/pkg/utils"
)

func TestGenerateIntervals(t *testing.T) {
	labels, err := GenerateIntervals("09:15", "10:00", 15)
	require.NoError(t, err)
	assert.Equal(t, []string{"09:15", "09:30", "09:45", "10:00"}, labels)

	labels, err = GenerateIntervals("09:15", "10:10", 15)
	require.NoError(t, err)
	assert.Equal(t, []string{"09:15", "09:30", "09:45", "10:00"}, labels)

	labels, err = GenerateIntervals("09:15", "15:30", 15)
	require.NoError(t, err)
	assert.Len(t, labels, 26)
	assert.Equal(t, "15:30", labels[len(labels)-1])
}

func TestGenerateIntervalsBeforeStart(t *testing.T) {
	labels, err := GenerateIntervals("09:15", "08:59", 15)
	require.NoError(t, err)
	assert.NotNil(t, labels)
	assert.Empty(t, labels)
}

func TestGenerateIntervalsRejectsBadInput(t *testing.T) {
	_, err := GenerateIntervals("9.15", "10:00", 15)
	assert.Error(t, err)
	_, err = GenerateIntervals("09:15", "10:00", 0)
	assert.Error(t, err)
}

func TestSessionEnd(t *testing.T) {
	at := func(h, m, s int) time.Time {
		return time.Date(2024, 1, 25, h, m, s, 0, utils.IndiaLocation)
	}
	assert.Equal(t, "10:07", SessionEnd(at(10, 7, 59)))
	assert.Equal(t, "15:29", SessionEnd(at(15, 29, 30)))
	assert.Equal(t, "15:30", SessionEnd(at(15, 30, 0)))
	assert.Equal(t, "15:30", SessionEnd(at(19, 45, 0)))

	// 04:30 UTC is 10:00 IST.
	assert.Equal(t, "10:00", SessionEnd(time.Date(2024, 1, 25, 4, 30, 0, 0, time.UTC)))
}
