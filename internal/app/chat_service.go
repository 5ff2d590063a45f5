package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"clinic-faq-assistant/internal/rag"
)

type Retriever interface {
	Answer(ctx context.Context, question string) (*rag.Answer, error)
}

type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Prompts holds the operator-facing wording of the assistant.
type Prompts struct {
	System   string
	Fallback string
	Apology  string
}

type SendMessageResult struct {
	Success    bool         `json:"success"`
	Message    string       `json:"message"`
	Confidence string       `json:"confidence,omitempty"`
	Sources    []rag.Source `json:"sources"`
}

type ChatService struct {
	retriever Retriever
	generator Generator
	prompts   Prompts
	logger    *zap.Logger
}

func NewChatService(retriever Retriever, generator Generator, prompts Prompts, logger *zap.Logger) *ChatService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChatService{
		retriever: retriever,
		generator: generator,
		prompts:   prompts,
		logger:    logger,
	}
}

// SendMessage answers a patient question from the FAQ corpus.
//
// Validation errors come back with a nil result. Any other failure returns
// the apology result together with the error, so callers can show the
// apology while the cause is logged.
func (s *ChatService) SendMessage(ctx context.Context, message string) (*SendMessageResult, error) {
	answer, err := s.retriever.Answer(ctx, message)
	if err != nil {
		if errors.Is(err, rag.ErrValidation) {
			return nil, err
		}
		return s.apologize(ctx, "retrieval failed", err)
	}

	if !answer.Grounded() {
		s.logger.Info("low confidence answer", zap.Int("question_len", len(message)))
		return &SendMessageResult{
			Success:    true,
			Message:    s.prompts.Fallback,
			Confidence: rag.ConfidenceLow,
			Sources:    []rag.Source{},
		}, nil
	}

	reply, err := s.generator.Generate(ctx, BuildPrompt(s.prompts.System, answer.GroundedContext, message))
	if err != nil {
		return s.apologize(ctx, "generation failed", fmt.Errorf("%w: %w", rag.ErrGeneration, err))
	}

	return &SendMessageResult{
		Success:    true,
		Message:    reply,
		Confidence: rag.ConfidenceHigh,
		Sources:    answer.Sources,
	}, nil
}

func (s *ChatService) apologize(ctx context.Context, msg string, err error) (*SendMessageResult, error) {
	fields := []zap.Field{zap.Error(err)}
	if ctx.Err() != nil {
		fields = append(fields, zap.NamedError("context", ctx.Err()))
	}
	s.logger.Error(msg, fields...)
	return &SendMessageResult{Success: false, Message: s.prompts.Apology}, err
}

// BuildPrompt lays out the system instruction, the retrieved context and the
// question for the generator.
func BuildPrompt(system, groundedContext, question string) string {
	var b strings.Builder
	if system = strings.TrimSpace(system); system != "" {
		b.WriteString(system)
		b.WriteString("\n\n")
	}
	b.WriteString("Context:\n")
	b.WriteString(groundedContext)
	b.WriteString("\n\nPatient Question: ")
	b.WriteString(strings.TrimSpace(question))
	b.WriteString("\n\nProvide a helpful answer based on the context above.")
	return b.String()
}
