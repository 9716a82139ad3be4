package model

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownCapability indicates a capability tag outside the known universe.
var ErrUnknownCapability = errors.New("unknown capability")

// Capability names a feature a model supports.
type Capability string

const (
	CapabilityInputMessages    Capability = "input-messages"
	CapabilityInputText        Capability = "input-text"
	CapabilityInputImage       Capability = "input-image"
	CapabilityInputAudio       Capability = "input-audio"
	CapabilityInputPDF         Capability = "input-pdf"
	CapabilityInputMultiple    Capability = "input-multiple"
	CapabilityOutputText       Capability = "output-text"
	CapabilityOutputStreaming  Capability = "output-streaming"
	CapabilityOutputStructured Capability = "output-structured"
	CapabilityOutputImage      Capability = "output-image"
	CapabilityOutputAudio      Capability = "output-audio"
	CapabilityToolCalling      Capability = "tool-calling"
	CapabilityThinking         Capability = "thinking"
	CapabilityEmbeddings       Capability = "embeddings"
)

// CapabilitySetVersion is bumped whenever a tag is added to or removed from
// the universe returned by AllCapabilities.
const CapabilitySetVersion = 1

var allCapabilities = [...]Capability{
	CapabilityInputMessages,
	CapabilityInputText,
	CapabilityInputImage,
	CapabilityInputAudio,
	CapabilityInputPDF,
	CapabilityInputMultiple,
	CapabilityOutputText,
	CapabilityOutputStreaming,
	CapabilityOutputStructured,
	CapabilityOutputImage,
	CapabilityOutputAudio,
	CapabilityToolCalling,
	CapabilityThinking,
	CapabilityEmbeddings,
}

// AllCapabilities returns every known capability tag.
func AllCapabilities() []Capability {
	out := make([]Capability, len(allCapabilities))
	copy(out, allCapabilities[:])
	return out
}

// ParseCapability maps a configuration string onto a known capability tag.
func ParseCapability(value string) (Capability, error) {
	candidate := Capability(strings.ToLower(strings.TrimSpace(value)))
	for _, c := range allCapabilities {
		if c == candidate {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCapability, value)
}
