package usecase

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildSystemPrompt(t *testing.T) {
	got := BuildSystemPrompt("You are WhiteCar.", 0.9, "happy", []string{"User said: hi", "Did: purr"})
	want := "You are WhiteCar.\n\nCurrent status:\n" +
		"- Energy: 0.9/1.0\n" +
		"- Mood: happy\n" +
		`- Recent memories: ["User said: hi", "Did: purr"]`
	assert.Equal(t, want, got)
}

func TestBuildSystemPromptNoMemories(t *testing.T) {
	got := BuildSystemPrompt("  persona  ", 1.0, "neutral", nil)
	assert.True(t, strings.HasPrefix(got, "persona\n"))
	assert.Contains(t, got, "- Energy: 1.0/1.0")
	assert.Contains(t, got, "- Recent memories: none")
}
