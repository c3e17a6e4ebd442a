package notifier

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestNewDisabledWithoutAddr(t *testing.T) {
	assert.Nil(t, New("", 0, "events_ingested", zerolog.Nop()))
}

func TestNewDisabledWhenUnreachable(t *testing.T) {
	assert.Nil(t, New("127.0.0.1:1", 0, "events_ingested", zerolog.Nop()))
}

func TestNilNotifierIsSafe(t *testing.T) {
	var n *Notifier
	n.Publish(context.Background(), "event_created", map[string]interface{}{"id": 1})
	assert.NoError(t, n.Close())
}
