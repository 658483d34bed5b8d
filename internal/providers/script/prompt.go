package script

import (
	"fmt"
	"strings"

	"github.com/ternarybob/fabrica/internal/interfaces"
)

const systemInstruction = "You are a narration writer for educational videos. " +
	"Write clear spoken-word narration only: no scene directions, no markdown, " +
	"no speaker labels."

// buildPrompt assembles the narration prompt from the request hints
func buildPrompt(req interfaces.ScriptRequest) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Write the narration script for an educational video titled %q.\n", req.Title)
	fmt.Fprintf(&b, "Topic description: %s\n", req.Description)

	if req.Duration > 0 {
		fmt.Fprintf(&b, "The narration should run approximately %d seconds when read aloud.\n", req.Duration)
	}
	if req.Style != "" {
		fmt.Fprintf(&b, "Style: %s\n", req.Style)
	}

	b.WriteString("Return only the narration text.")

	return b.String()
}
