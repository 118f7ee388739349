package transport

import (
	"testing"

	"github.com/ambonmud/server/internal/bus"
)

func TestLineLimits_DefaultsWhenUnset(t *testing.T) {
	var l LineLimits
	if got := l.maxLineLength(); got != 4096 {
		t.Fatalf("maxLineLength() = %d, want 4096", got)
	}
}

func TestRenderLineEvent_SendText(t *testing.T) {
	got := renderLineEvent(bus.OutboundEvent{Kind: bus.OutboundSendText, Text: "hi"})
	if string(got) != "hi\r\n" {
		t.Fatalf("renderLineEvent = %q", got)
	}
}

func TestRenderLineEvent_Prompt(t *testing.T) {
	got := renderLineEvent(bus.OutboundEvent{Kind: bus.OutboundSendPrompt})
	if string(got) != "\r\n> " {
		t.Fatalf("renderLineEvent = %q", got)
	}
}
