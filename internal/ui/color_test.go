package ui

import (
	"bytes"
	"fmt"
	"sync"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
)

// captureOutput runs fn with console output redirected to a buffer.
func captureOutput(fn func()) string {
	oldNoColor := color.NoColor
	color.NoColor = true

	var buf bytes.Buffer
	prev := SetOutput(&buf)

	fn()

	SetOutput(prev)
	color.NoColor = oldNoColor
	return buf.String()
}

func TestMessages(t *testing.T) {
	tests := []struct {
		name string
		fn   func()
		want string
	}{
		{name: "success", fn: func() { Success("deployed %d", 1) }, want: "✓ deployed 1\n"},
		{name: "error", fn: func() { Error("failed") }, want: "✗ failed\n"},
		{name: "warning", fn: func() { Warning("dry run") }, want: "⚠ dry run\n"},
		{name: "info", fn: func() { Info("account %s", "prod") }, want: "account prod\n"},
		{name: "header", fn: func() { Header("Deploy") }, want: "Deploy\n"},
		{name: "step", fn: func() { Step(3, "processing %s", "web.yaml") }, want: "[3] processing web.yaml\n"},
		{name: "anchor", fn: func() { Anchor("deployment web") }, want: "⚓ deployment web\n"},
		{name: "ship", fn: func() { Ship("nginx:1.27") }, want: "🚢 nginx:1.27\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, captureOutput(tt.fn))
		})
	}
}

func TestColorVariables(t *testing.T) {
	assert.NotNil(t, Red)
	assert.NotNil(t, Green)
	assert.NotNil(t, Yellow)
	assert.NotNil(t, Blue)
	assert.NotNil(t, Cyan)
	assert.NotNil(t, Bold)
}

func TestConfigure_NonTerminalDisablesColor(t *testing.T) {
	oldNoColor := color.NoColor
	defer func() { color.NoColor = oldNoColor }()

	var buf bytes.Buffer
	prev := SetOutput(&buf)
	defer SetOutput(prev)

	color.NoColor = false
	Configure(&buf, false)
	assert.True(t, color.NoColor)
}

func TestSpecialCharacters(t *testing.T) {
	output := captureOutput(func() {
		Info("image: %s", "ghcr.io/acme/web@sha256:abc")
	})
	assert.Contains(t, output, "ghcr.io/acme/web@sha256:abc")
}

func TestConcurrentOutput(t *testing.T) {
	output := captureOutput(func() {
		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func(n int) {
				defer wg.Done()
				Info("message %d", n)
			}(i)
		}
		wg.Wait()
	})

	for i := 0; i < 10; i++ {
		assert.Contains(t, output, fmt.Sprintf("message %d\n", i))
	}
}
