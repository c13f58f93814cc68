package commands

import (
	"bytes"
	"strings"
	"testing"

	"github.com/siherrmann/hrrag/model"
	"github.com/stretchr/testify/assert"
)

func TestPrintAnswer(t *testing.T) {
	var buf bytes.Buffer
	printAnswer(&buf, &model.Answer{
		Question:  "How many vacation days?",
		Text:      "Employees receive 20 vacation days per year.",
		Citations: []string{"leave_policy.md", "employees.csv"},
	})

	separator := strings.Repeat("=", 80)
	expected := "\n" + separator + "\nQUESTION:\nHow many vacation days?\n" +
		separator + "\nANSWER:\nEmployees receive 20 vacation days per year.\n" +
		separator + "\nCITED SOURCES (filenames):\nleave_policy.md, employees.csv\n"
	assert.Equal(t, expected, buf.String())
}

func TestWrap(t *testing.T) {
	t.Run("Lines stay within the width", func(t *testing.T) {
		text := strings.Repeat("policy ", 40)
		for _, line := range strings.Split(wrap(text, 100), "\n") {
			assert.LessOrEqual(t, len(line), 100)
		}
	})

	t.Run("Whitespace is collapsed", func(t *testing.T) {
		assert.Equal(t, "a b c", wrap("a\n\nb   c ", 100))
	})
}

func TestSnippet(t *testing.T) {
	assert.Equal(t, "short text", snippet("short\ntext", 80))
	assert.Equal(t, "abcdefg...", snippet(strings.Repeat("abcdefghij", 3), 10))
}
