package queue

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatEvent(t *testing.T) {
	body, err := json.Marshal(PaymentRecordedEvent{
		PaymentID:     3,
		ReservationID: 9,
		PaymentType:   "card",
		Amount:        "40.00",
		Balance:       "0.00",
		PaymentStatus: "full paid",
		RecordedAt:    "2026-05-04T10:00:00Z",
	})
	require.NoError(t, err)

	line, err := formatEvent(PaymentRecorded, body)
	require.NoError(t, err)
	assert.Equal(t, "[2026-05-04T10:00:00Z] Payment recorded | payment_id=3 | reservation_id=9 | type=card | amount=40.00 | balance=0.00 | payment_status=\"full paid\"\n", line)

	_, err = formatEvent("unknown", body)
	assert.Error(t, err)

	_, err = formatEvent(ReservationCreated, []byte("{"))
	assert.Error(t, err)
}

func TestAppendEvent(t *testing.T) {
	dir := t.TempDir()
	body, err := json.Marshal(ReservationOverdueEvent{ReservationID: 1, VenueID: 2, License: "AB1"})
	require.NoError(t, err)

	require.NoError(t, appendEvent(dir, ReservationOverdue, body))
	require.NoError(t, appendEvent(dir, ReservationOverdue, body))

	data, err := os.ReadFile(filepath.Join(dir, "reservation.log"))
	require.NoError(t, err)
	assert.Equal(t, 2, countLines(string(data)))
}

func countLines(s string) int {
	n := 0
	for _, r := range s {
		if r == '\n' {
			n++
		}
	}
	return n
}
