package local

import (
	"testing"

	"github.com/ambonmud/server/internal/bus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInboundBus_BoundedPublishDrain(t *testing.T) {
	b := NewInboundBus(2)
	require.True(t, b.Publish(bus.InboundEvent{Kind: bus.InboundLineReceived, Line: "a"}))
	require.True(t, b.Publish(bus.InboundEvent{Kind: bus.InboundLineReceived, Line: "b"}))
	assert.False(t, b.Publish(bus.InboundEvent{Kind: bus.InboundLineReceived, Line: "c"}), "queue at capacity must reject")

	got := b.Drain(10)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].Line)
	assert.Equal(t, "b", got[1].Line)
}

func TestOutboundBus_PromptCoalescing(t *testing.T) {
	b := NewOutboundBus(16)
	sid := bus.SessionId(1)

	require.True(t, b.Publish(bus.OutboundEvent{Kind: bus.OutboundSendText, Session: sid, Text: "hit"}))
	require.True(t, b.Publish(bus.OutboundEvent{Kind: bus.OutboundSendPrompt, Session: sid}))
	require.True(t, b.Publish(bus.OutboundEvent{Kind: bus.OutboundSendPrompt, Session: sid}))
	require.True(t, b.Publish(bus.OutboundEvent{Kind: bus.OutboundSendPrompt, Session: sid}))

	out := b.Drain(10)
	require.Len(t, out, 2, "three consecutive prompts must collapse to one")
	assert.Equal(t, bus.OutboundSendText, out[0].Kind)
	assert.Equal(t, bus.OutboundSendPrompt, out[1].Kind)

	// After the prompt is drained, a fresh prompt may queue again.
	require.True(t, b.Publish(bus.OutboundEvent{Kind: bus.OutboundSendPrompt, Session: sid}))
	out2 := b.Drain(10)
	require.Len(t, out2, 1)
}

func TestOutboundBus_PerSessionCapacity(t *testing.T) {
	b := NewOutboundBus(1)
	sid := bus.SessionId(7)
	require.True(t, b.Publish(bus.OutboundEvent{Kind: bus.OutboundSendText, Session: sid}))
	assert.False(t, b.Publish(bus.OutboundEvent{Kind: bus.OutboundSendText, Session: sid}))

	other := bus.SessionId(8)
	assert.True(t, b.Publish(bus.OutboundEvent{Kind: bus.OutboundSendText, Session: other}), "capacity is per-session")
}

func TestInterEngineBus_BoundedPublishDrain(t *testing.T) {
	b := NewInterEngineBus(1)
	require.True(t, b.Publish(bus.InterEngineEvent{Kind: bus.InterEngineCrossEngineTell}))
	assert.False(t, b.Publish(bus.InterEngineEvent{Kind: bus.InterEngineCrossEngineTell}))
	assert.Len(t, b.Drain(10), 1)
}
