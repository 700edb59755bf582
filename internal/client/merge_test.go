package client

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"event-service/internal/models"
)

func msg(id string, ts time.Time, text string) models.ChatMessage {
	return models.ChatMessage{
		ID:        id,
		EventID:   "evt-1",
		ChannelID: models.GlobalChannelID,
		Text:      text,
		Timestamp: ts,
	}
}

func TestMergeMessagesSortsByTimestamp(t *testing.T) {
	t0 := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

	merged := MergeMessages(
		[]models.ChatMessage{msg("b", t0.Add(2*time.Minute), "second")},
		[]models.ChatMessage{msg("a", t0, "first"), msg("c", t0.Add(5*time.Minute), "third")},
	)

	require.Len(t, merged, 3)
	assert.Equal(t, "a", merged[0].ID)
	assert.Equal(t, "b", merged[1].ID)
	assert.Equal(t, "c", merged[2].ID)
}

func TestMergeMessagesDedupesById(t *testing.T) {
	t0 := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	local := msg("m1", t0, "optimistic copy")
	server := msg("m1", t0.Add(time.Second), "server copy")

	merged := MergeMessages([]models.ChatMessage{local}, []models.ChatMessage{server})

	require.Len(t, merged, 1)
	// the incoming copy wins
	assert.Equal(t, "server copy", merged[0].Text)
}

func TestMergeMessagesIdempotent(t *testing.T) {
	t0 := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	history := []models.ChatMessage{msg("a", t0, "one"), msg("b", t0.Add(time.Minute), "two")}

	once := MergeMessages(nil, history)
	twice := MergeMessages(once, history)

	assert.Equal(t, once, twice)
}

// Push and poll race over the same rows: whichever lands first, the other's
// delivery of the overlapping messages must change nothing.
func TestMergeMessagesOverlappingSources(t *testing.T) {
	t0 := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	existing := []models.ChatMessage{msg("a", t0, "one")}

	pushed := msg("b", t0.Add(time.Minute), "two")
	polled := []models.ChatMessage{msg("a", t0, "one"), pushed, msg("c", t0.Add(2*time.Minute), "three")}

	afterPush := MergeMessages(existing, []models.ChatMessage{pushed})
	afterPoll := MergeMessages(afterPush, polled)

	require.Len(t, afterPoll, 3)
	assert.Equal(t, []string{"a", "b", "c"}, []string{afterPoll[0].ID, afterPoll[1].ID, afterPoll[2].ID})

	// opposite arrival order converges to the same history
	other := MergeMessages(MergeMessages(existing, polled), []models.ChatMessage{pushed})
	assert.Equal(t, afterPoll, other)
}

func TestRemoveMessage(t *testing.T) {
	t0 := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	history := []models.ChatMessage{msg("a", t0, "one"), msg("b", t0.Add(time.Minute), "two")}

	out := removeMessage(history, "a")
	require.Len(t, out, 1)
	assert.Equal(t, "b", out[0].ID)

	assert.Len(t, removeMessage(out, "unknown"), 1)
}
