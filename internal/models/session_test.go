package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSnapshotVisibleTo(t *testing.T) {
	t.Parallel()

	waiting := Snapshot{Status: StatusWaiting, BlackPlayerID: "alice"}
	assert.True(t, waiting.VisibleTo("alice"))
	assert.True(t, waiting.VisibleTo("carol"))

	for _, status := range []Status{StatusPlaying, StatusFinished} {
		s := Snapshot{Status: status, BlackPlayerID: "alice", WhitePlayerID: "bob"}
		assert.True(t, s.VisibleTo("alice"), status)
		assert.True(t, s.VisibleTo("bob"), status)
		assert.False(t, s.VisibleTo("carol"), status)
		assert.False(t, s.VisibleTo(""), status)
	}
}
