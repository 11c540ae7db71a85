package prompts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet_InterviewPrompts(t *testing.T) {
	ClearCache()

	for _, key := range []string{KeyGenerateQuestions, KeyEvaluateAnswer} {
		prompt, err := Get(InterviewFile, key)
		require.NoError(t, err, key)
		assert.NotEmpty(t, prompt)
	}
}

func TestGet_InvalidFile(t *testing.T) {
	ClearCache()

	_, err := Get("nonexistent.json", "some-key")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read prompt file")
}

func TestGet_InvalidKey(t *testing.T) {
	ClearCache()

	_, err := Get(InterviewFile, "nonexistent-key")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestMustGet_Panics(t *testing.T) {
	ClearCache()
	assert.Panics(t, func() {
		MustGet("nonexistent.json", "some-key")
	})
}

func TestKeys(t *testing.T) {
	keys, err := Keys(InterviewFile)
	require.NoError(t, err)
	assert.Equal(t, []string{KeyEvaluateAnswer, KeyGenerateQuestions}, keys)
}

func TestFormat(t *testing.T) {
	tests := []struct {
		name     string
		template string
		data     map[string]string
		expected string
	}{
		{
			name:     "single placeholder",
			template: "Role: {{.JobTitle}}",
			data:     map[string]string{"JobTitle": "Backend Engineer"},
			expected: "Role: Backend Engineer",
		},
		{
			name:     "repeated placeholder",
			template: "{{.A}} and {{.A}}",
			data:     map[string]string{"A": "x"},
			expected: "x and x",
		},
		{
			name:     "missing value becomes empty",
			template: "resume: [{{.ResumeText}}]",
			data:     map[string]string{},
			expected: "resume: []",
		},
		{
			name:     "value containing braces is not re-expanded",
			template: "{{.A}}{{.B}}",
			data:     map[string]string{"A": "{{.B}}", "B": "b"},
			expected: "{{.B}}b",
		},
		{
			name:     "unterminated placeholder kept",
			template: "oops {{.A",
			data:     map[string]string{"A": "x"},
			expected: "oops {{.A",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Format(tt.template, tt.data))
		})
	}
}

func TestInterviewPromptPlaceholders(t *testing.T) {
	gen := MustGet(InterviewFile, KeyGenerateQuestions)
	for _, p := range []string{"{{.JobTitle}}", "{{.JobDescription}}", "{{.TechStack}}", "{{.ResumeText}}", "{{.Count}}"} {
		assert.Contains(t, gen, p)
	}

	eval := MustGet(InterviewFile, KeyEvaluateAnswer)
	for _, p := range []string{"{{.Question}}", "{{.Answer}}", "{{.JobTitle}}"} {
		assert.Contains(t, eval, p)
	}
}
