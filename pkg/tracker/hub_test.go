package tracker

import (
	"fmt"
	"testing"

	"github.com/geniass/price-tracker/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func event(i int) model.Event {
	return model.Event{CycleID: "c1", Severity: model.SeverityInfo, Kind: model.KindChecking, Message: fmt.Sprint(i)}
}

func TestHubFanOut(t *testing.T) {
	h := NewHub(nil)
	a, unsubA := h.Subscribe()
	b, unsubB := h.Subscribe()
	defer unsubB()

	h.Publish(event(1))
	assert.Equal(t, "1", (<-a).Message)
	assert.Equal(t, "1", (<-b).Message)

	unsubA()
	unsubA()
	_, open := <-a
	assert.False(t, open)

	h.Publish(event(2))
	assert.Equal(t, "2", (<-b).Message)
}

func TestHubDropsForLaggingSubscriber(t *testing.T) {
	h := NewHub(nil)
	ch, unsubscribe := h.Subscribe()
	defer unsubscribe()

	for i := 0; i < subscriberBuffer+10; i++ {
		h.Publish(event(i))
	}
	assert.Len(t, ch, subscriberBuffer)
	assert.Equal(t, "0", (<-ch).Message)
}

func TestHubRecent(t *testing.T) {
	h := NewHub(nil)
	assert.Empty(t, h.Recent(5))

	for i := 0; i < recentEvents+5; i++ {
		h.Publish(event(i))
	}
	all := h.Recent(0)
	require.Len(t, all, recentEvents)
	assert.Equal(t, "5", all[0].Message)

	last := h.Recent(2)
	require.Len(t, last, 2)
	assert.Equal(t, fmt.Sprint(recentEvents+3), last[0].Message)
	assert.Equal(t, fmt.Sprint(recentEvents+4), last[1].Message)
}
