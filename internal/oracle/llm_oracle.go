package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jonathan/hiring-pipeline/internal/llm"
	"github.com/jonathan/hiring-pipeline/internal/logging"
	"github.com/jonathan/hiring-pipeline/internal/prompts"
	"github.com/jonathan/hiring-pipeline/internal/schemas"
	"github.com/jonathan/hiring-pipeline/internal/types"
	schemafiles "github.com/jonathan/hiring-pipeline/schemas"
)

const (
	// DefaultTimeout bounds every oracle call.
	DefaultTimeout = 20 * time.Second
	// DefaultQuestionCount is used when a request does not ask for a count.
	DefaultQuestionCount = 5

	maxResumeChars      = 6000
	maxDescriptionChars = 8000
)

// LLMOracle implements Oracle on top of an llm.Client.
type LLMOracle struct {
	client  llm.Client
	timeout time.Duration
	logger  *logging.Logger
}

// NewLLMOracle returns an oracle whose calls are each bounded by timeout.
// A non-positive timeout selects DefaultTimeout.
func NewLLMOracle(client llm.Client, timeout time.Duration, logger *logging.Logger) *LLMOracle {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &LLMOracle{client: client, timeout: timeout, logger: logger.With("component", "oracle")}
}

type questionsPayload struct {
	Questions []struct {
		Text       string `json:"text"`
		Category   string `json:"category"`
		Difficulty string `json:"difficulty"`
	} `json:"questions"`
}

// GenerateQuestions asks the model for req.Count questions. Any failure,
// including a payload that fails schema validation, is an UnavailableError.
func (o *LLMOracle) GenerateQuestions(ctx context.Context, req QuestionRequest) ([]types.Question, error) {
	const op = "generate_questions"

	count := req.Count
	if count <= 0 {
		count = DefaultQuestionCount
	}

	prompt := prompts.Format(prompts.MustGet(prompts.InterviewFile, prompts.KeyGenerateQuestions), map[string]string{
		"JobTitle":       req.JobTitle,
		"JobDescription": truncate(req.JobDescription, maxDescriptionChars),
		"TechStack":      strings.Join(req.TechStack, ", "),
		"ResumeText":     truncate(req.ResumeText, maxResumeChars),
		"Count":          strconv.Itoa(count),
	})

	raw, err := o.call(ctx, prompt, llm.TierStandard)
	if err != nil {
		return nil, unavailable(op, err)
	}
	if err := schemas.Validate(schemafiles.Questions, []byte(raw)); err != nil {
		return nil, unavailable(op, err)
	}

	var payload questionsPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, unavailable(op, fmt.Errorf("failed to decode questions: %w", err))
	}

	questions := make([]types.Question, 0, count)
	for _, q := range payload.Questions {
		text := strings.TrimSpace(q.Text)
		if text == "" {
			continue
		}
		questions = append(questions, types.Question{
			ID:         uuid.NewString(),
			Text:       text,
			Category:   orDefault(q.Category, "General"),
			Difficulty: orDefault(q.Difficulty, "Medium"),
		})
		if len(questions) == count {
			break
		}
	}
	if len(questions) == 0 {
		return nil, unavailable(op, fmt.Errorf("model returned no usable questions"))
	}

	o.logger.Debug("questions generated", "job_title", req.JobTitle, "count", len(questions))
	return questions, nil
}

// EvaluateAnswer scores one answer in [0, 5].
func (o *LLMOracle) EvaluateAnswer(ctx context.Context, req AnswerRequest) (*Score, error) {
	const op = "evaluate_answer"

	prompt := prompts.Format(prompts.MustGet(prompts.InterviewFile, prompts.KeyEvaluateAnswer), map[string]string{
		"JobTitle":       req.JobTitle,
		"JobDescription": truncate(req.JobDescription, maxDescriptionChars),
		"Question":       req.Question.Text,
		"Category":       orDefault(req.Question.Category, "General"),
		"Difficulty":     orDefault(req.Question.Difficulty, "Medium"),
		"Answer":         req.Answer,
	})

	raw, err := o.call(ctx, prompt, llm.TierLite)
	if err != nil {
		return nil, unavailable(op, err)
	}
	if err := schemas.Validate(schemafiles.Evaluation, []byte(raw)); err != nil {
		return nil, unavailable(op, err)
	}

	var score Score
	if err := json.Unmarshal([]byte(raw), &score); err != nil {
		return nil, unavailable(op, fmt.Errorf("failed to decode evaluation: %w", err))
	}
	score.Feedback = strings.TrimSpace(score.Feedback)
	return &score, nil
}

func (o *LLMOracle) call(ctx context.Context, prompt string, tier llm.ModelTier) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	start := time.Now()
	raw, err := o.client.GenerateJSON(ctx, prompt, tier)
	if err != nil {
		o.logger.Warn("oracle call failed", "tier", string(tier), "elapsed", time.Since(start), "error", err)
		return "", err
	}
	return raw, nil
}

// truncate caps s at n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func orDefault(s, def string) string {
	if s = strings.TrimSpace(s); s == "" {
		return def
	}
	return s
}
