// Package responder implements the reference remote responder the relay talks
// to: per-sender sessions, triage and a language model behind a fallback.
package responder

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/zhouzirui/snakeaid/backend/internal/analysis/triage"
	model "github.com/zhouzirui/snakeaid/backend/internal/model/responder"
	"github.com/zhouzirui/snakeaid/backend/internal/service/ai"
)

// Fallback is sent whenever no model reply can be produced.
const Fallback = "Immediately move away from the area where the bite occurred. If the snake is still attached use a stick or tool to make it let go. Seek medical support immediately: the emergency number in this area is 999."

// AnonymousSender keys messages that arrive without a From field.
const AnonymousSender = "anonymous"

// ErrEmptyBody rejects inbound messages without text.
var ErrEmptyBody = errors.New("message body is empty")

// Inbound is one message delivered by the relay.
type Inbound struct {
	Sender         string
	Body           string
	IsFirstMessage bool
}

// Reply is the responder's answer.
type Reply struct {
	Text       string
	Fallback   bool
	Assessment *triage.Assessment
}

// Options tunes the service.
type Options struct {
	HistoryLimit  int
	TriageEnabled bool
	Prompt        *ai.PromptTemplate
	Clock         func() time.Time
}

// Service answers inbound messages.
type Service struct {
	generator ai.Generator
	store     SessionStore
	prompt    ai.PromptTemplate
	opts      Options
	now       func() time.Time
}

// NewService wires a generator (nil answers every message with Fallback) and
// a session store.
func NewService(generator ai.Generator, store SessionStore, opts Options) *Service {
	prompt := ai.DefaultPromptTemplate()
	if opts.Prompt != nil {
		prompt = *opts.Prompt
	}
	now := opts.Clock
	if now == nil {
		now = time.Now
	}
	if opts.HistoryLimit < 0 {
		opts.HistoryLimit = 0
	}

	return &Service{
		generator: generator,
		store:     store,
		prompt:    prompt,
		opts:      opts,
		now:       now,
	}
}

// Handle answers one inbound message and records both sides in the sender's
// session. Only an empty body is an error; generation failures degrade to
// Fallback.
func (s *Service) Handle(ctx context.Context, in Inbound) (Reply, error) {
	body := strings.TrimSpace(in.Body)
	if body == "" {
		return Reply{}, ErrEmptyBody
	}
	sender := strings.TrimSpace(in.Sender)
	if sender == "" {
		sender = AnonymousSender
	}

	now := s.now()
	session := s.loadSession(ctx, sender, in.IsFirstMessage, now)
	firstMessage := in.IsFirstMessage || len(session.Turns) == 0

	var assessment *triage.Assessment
	if s.opts.TriageEnabled {
		result := triage.Analyze(body)
		assessment = &result
	}

	reply := Reply{Assessment: assessment}
	reply.Text, reply.Fallback = s.generate(ctx, sender, assessment, firstMessage, session.Recent(s.opts.HistoryLimit), body)

	session.Turns = append(session.Turns,
		model.Turn{Role: model.RoleUser, Content: body, At: now},
		model.Turn{Role: model.RoleAssistant, Content: reply.Text, At: s.now()},
	)
	session.UpdatedAt = s.now()
	if err := s.store.Save(ctx, session); err != nil {
		log.Warn().Err(err).Str("sender", sender).Msg("failed to save responder session")
	}

	return reply, nil
}

// Reset forgets one sender's session, or every session when sender is empty.
func (s *Service) Reset(ctx context.Context, sender string) error {
	sender = strings.TrimSpace(sender)
	if sender == "" {
		log.Info().Msg("clearing all responder sessions")
		return s.store.Clear(ctx)
	}
	log.Info().Str("sender", sender).Msg("clearing responder session")
	return s.store.Delete(ctx, sender)
}

// Session exposes a sender's stored conversation.
func (s *Service) Session(ctx context.Context, sender string) (model.Session, bool, error) {
	return s.store.Load(ctx, sender)
}

func (s *Service) loadSession(ctx context.Context, sender string, fresh bool, now time.Time) model.Session {
	empty := model.Session{Sender: sender, StartedAt: now, UpdatedAt: now}
	if fresh {
		return empty
	}

	session, ok, err := s.store.Load(ctx, sender)
	if err != nil {
		log.Warn().Err(err).Str("sender", sender).Msg("failed to load responder session, starting fresh")
		return empty
	}
	if !ok {
		return empty
	}
	return session
}

func (s *Service) generate(ctx context.Context, sender string, assessment *triage.Assessment, firstMessage bool, history []model.Turn, body string) (string, bool) {
	if s.generator == nil {
		return Fallback, true
	}

	system := s.prompt.BuildSystemPrompt(assessment, firstMessage)
	text, err := s.generator.Generate(ctx, system, history, body)
	if err != nil {
		log.Error().Err(err).Str("sender", sender).Str("generator", s.generator.Name()).Msg("reply generation failed")
		return Fallback, true
	}

	text = strings.TrimSpace(text)
	if text == "" {
		log.Warn().Str("sender", sender).Msg("model returned an empty reply")
		return Fallback, true
	}
	return text, false
}
