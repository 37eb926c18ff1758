package usecase

import (
	"fmt"
	"strconv"
	"strings"
)

// promptMemories is how many recent memories are shown to the model.
const promptMemories = 3

// BuildSystemPrompt renders the persona together with the pet's current
// vitals and most recent memories.
func BuildSystemPrompt(persona string, energy float64, mood string, memories []string) string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(persona))
	b.WriteString("\n\nCurrent status:\n")
	fmt.Fprintf(&b, "- Energy: %.1f/1.0\n", energy)
	fmt.Fprintf(&b, "- Mood: %s\n", mood)
	b.WriteString("- Recent memories: ")
	if len(memories) == 0 {
		b.WriteString("none")
	} else {
		quoted := make([]string, len(memories))
		for i, m := range memories {
			quoted[i] = strconv.Quote(m)
		}
		b.WriteString("[" + strings.Join(quoted, ", ") + "]")
	}
	return b.String()
}
