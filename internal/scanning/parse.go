package scanning

import (
	"errors"
	"strings"
)

// parseTranscript cleans the text returned by a vision model
func parseTranscript(text string) (string, error) {
	text = strings.TrimSpace(text)

	// Remove markdown code fences if the model added them anyway
	if strings.HasPrefix(text, "```") {
		if nl := strings.Index(text, "\n"); nl != -1 {
			text = text[nl+1:]
		} else {
			text = strings.TrimPrefix(text, "```")
		}
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	}

	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	text = strings.TrimSpace(strings.Join(lines, "\n"))

	if text == "" {
		return "", errors.New("empty transcript")
	}
	return text, nil
}
