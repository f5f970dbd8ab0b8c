package llm

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// MockClient is used when no real provider is configured. It answers the way the
// hosted models tend to: a JSON object wrapped in a sentence of prose.
type MockClient struct {
	mu      sync.Mutex
	Prompts []string
}

func (m *MockClient) GenerateText(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m.mu.Lock()
	m.Prompts = append(m.Prompts, prompt)
	m.mu.Unlock()

	task := "this"
	if i := strings.Index(prompt, "Task: "); i >= 0 {
		rest := prompt[i+len("Task: "):]
		if j := strings.IndexByte(rest, '\n'); j >= 0 {
			rest = rest[:j]
		}
		task = strings.Trim(strings.TrimSpace(rest), `"`)
	}
	q := func(s string) string { return fmt.Sprintf("%q", s) }
	return fmt.Sprintf(`Sure, here you go:
{"excuses": [%s, %s, %s], "alternatives": [%s, %s, %s], "level": "Beginner"}
Hope that helps!`,
		q("The stars are not aligned for "+task),
		q("I need to research "+task+" a bit more first"),
		q("My cat sat on the keyboard"),
		q("Reorganize your desk drawer"),
		q("Watch one short video about "+task),
		q("Make a detailed plan for tomorrow"),
	), nil
}
