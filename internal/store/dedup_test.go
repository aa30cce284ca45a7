package store

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDedupSeenAfterMark(t *testing.T) {
	d := NewDedup(100, time.Hour)
	assert.False(t, d.Seen("reddit::t3_abc"))
	d.Mark("reddit::t3_abc")
	assert.True(t, d.Seen("reddit::t3_abc"))
	assert.False(t, d.Seen("reddit::t3_def"))
}

func TestDedupExpiry(t *testing.T) {
	d := NewDedup(100, 10*time.Millisecond)
	d.Mark("k")
	assert.True(t, d.Seen("k"))
	time.Sleep(20 * time.Millisecond)
	assert.False(t, d.Seen("k"))
}

func TestDedupEvictsLeastRecent(t *testing.T) {
	d := NewDedup(2, time.Hour)
	d.Mark("a")
	d.Mark("b")
	d.Seen("a") // touch so b is the least recent
	d.Mark("c") // evicts b

	assert.True(t, d.Seen("a"))
	assert.False(t, d.Seen("b"))
	assert.True(t, d.Seen("c"))
}

func TestDedupCapBoundsMemory(t *testing.T) {
	d := NewDedup(10, time.Hour)
	for i := 0; i < 100; i++ {
		d.Mark(fmt.Sprintf("k%d", i))
	}
	held := 0
	for i := 0; i < 100; i++ {
		if d.Seen(fmt.Sprintf("k%d", i)) {
			held++
		}
	}
	assert.LessOrEqual(t, held, 10)
}
