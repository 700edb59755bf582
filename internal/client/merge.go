package client

import (
	"sort"

	"event-service/internal/models"
)

// MergeMessages folds incoming messages into an existing history. Every
// source (initial load, push, poll, optimistic send, reconciliation) goes
// through this one function: entries are deduped by message id, with the
// incoming copy replacing any local one, and the result is ordered by
// timestamp ascending. The merge is idempotent, so overlapping push and poll
// deliveries of the same rows are harmless.
func MergeMessages(existing, incoming []models.ChatMessage) []models.ChatMessage {
	out := make([]models.ChatMessage, 0, len(existing)+len(incoming))
	index := make(map[string]int, len(existing)+len(incoming))

	for _, m := range existing {
		index[m.ID] = len(out)
		out = append(out, m)
	}
	for _, m := range incoming {
		if i, ok := index[m.ID]; ok {
			out[i] = m
			continue
		}
		index[m.ID] = len(out)
		out = append(out, m)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out
}

// removeMessage drops one entry by id, preserving order.
func removeMessage(msgs []models.ChatMessage, id string) []models.ChatMessage {
	out := msgs[:0]
	for _, m := range msgs {
		if m.ID != id {
			out = append(out, m)
		}
	}
	return out
}
