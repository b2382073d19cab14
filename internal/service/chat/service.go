package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/zhouzirui/snakeaid/backend/internal/model/chat"
	"github.com/zhouzirui/snakeaid/backend/internal/service/fallback"
	"github.com/zhouzirui/snakeaid/backend/internal/service/relay"
)

var (
	ErrEmptyInput       = errors.New("message text is empty")
	ErrExchangeInFlight = errors.New("an exchange is already in flight")
)

// Transport is the responder link used by the Service.
type Transport interface {
	Send(ctx context.Context, text string, isFirstMessage bool) (string, error)
	ResetRemote(ctx context.Context) relay.ResetResult
}

// Outcome describes how a submitted exchange ended.
type Outcome struct {
	Reply chat.Message
	// Fallback is set when the reply is locally generated fallback content.
	Fallback bool
	// Discarded is set when a reset happened while the exchange was in flight;
	// nothing was appended for it.
	Discarded bool
}

// Service is the session controller. It exclusively owns the conversation
// state and serialises every mutation of it.
type Service struct {
	transport Transport
	now       func() time.Time

	mu          sync.Mutex
	state       conversationState
	epoch       uint64
	resetting   int
	subscribers map[int]chan chat.Snapshot
	nextSubID   int
}

// Option customises a Service.
type Option func(*Service)

// WithClock replaces the clock used to timestamp messages.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService starts a session seeded with the greeting.
func NewService(transport Transport, opts ...Option) *Service {
	s := &Service{
		transport:   transport,
		now:         func() time.Time { return time.Now().UTC() },
		subscribers: make(map[int]chan chat.Snapshot),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.state = newConversationState(s.newMessage(chat.OriginResponder, chat.Greeting))
	return s
}

// Submit runs one exchange with the responder. It blocks until the reply (or
// the fallback standing in for it) has been appended.
func (s *Service) Submit(ctx context.Context, text string) (Outcome, error) {
	if strings.TrimSpace(text) == "" {
		return Outcome{}, ErrEmptyInput
	}

	s.mu.Lock()
	if s.state.awaitingReply || s.resetting > 0 {
		s.mu.Unlock()
		return Outcome{}, ErrExchangeInFlight
	}
	s.state.append(s.newMessage(chat.OriginUser, text))
	s.state.awaitingReply = true
	epoch := s.epoch
	hadFirstReply := s.state.hasReceivedFirstReply
	s.publishLocked()
	s.mu.Unlock()

	// Once issued, a send runs to completion even if the caller goes away.
	reply, err := s.transport.Send(context.WithoutCancel(ctx), text, !hadFirstReply)

	s.mu.Lock()
	defer s.mu.Unlock()

	if epoch != s.epoch {
		log.Debug().Uint64("epoch", epoch).Uint64("current", s.epoch).Msg("discarding reply from before reset")
		return Outcome{Discarded: true}, nil
	}

	outcome := Outcome{}
	if err != nil {
		log.Warn().Err(err).Bool("firstReplyReceived", hadFirstReply).Msg("responder unavailable, using fallback")
		reply = fallback.For(hadFirstReply)
		outcome.Fallback = true
	} else {
		s.state.hasReceivedFirstReply = true
	}

	outcome.Reply = s.newMessage(chat.OriginResponder, reply)
	s.state.append(outcome.Reply)
	s.state.awaitingReply = false
	s.publishLocked()

	return outcome, nil
}

// Reset starts a fresh conversation and asks the responder to do the same.
// The local reset always succeeds; the remote outcome is only reported.
func (s *Service) Reset(ctx context.Context) relay.ResetResult {
	s.mu.Lock()
	s.epoch++
	s.state = newConversationState(s.newMessage(chat.OriginResponder, chat.Greeting))
	s.resetting++
	s.publishLocked()
	s.mu.Unlock()

	result := s.transport.ResetRemote(context.WithoutCancel(ctx))
	if result.Err != nil {
		log.Warn().Err(result.Err).Msg("remote reset not acknowledged")
	}

	s.mu.Lock()
	s.resetting--
	s.publishLocked()
	s.mu.Unlock()

	return result
}

// Snapshot returns a copy of the current conversation for rendering.
func (s *Service) Snapshot() chat.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// HasReceivedFirstReply reports whether a genuine reply arrived this session.
func (s *Service) HasReceivedFirstReply() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.hasReceivedFirstReply
}

// Subscribe returns a channel that receives the latest Snapshot after every
// change. Slow readers only ever see the newest snapshot. The returned func
// unsubscribes and closes the channel.
func (s *Service) Subscribe() (<-chan chat.Snapshot, func()) {
	ch := make(chan chat.Snapshot, 1)

	s.mu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = ch
	s.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subscribers, id)
			s.mu.Unlock()
			close(ch)
		})
	}
}

func (s *Service) snapshotLocked() chat.Snapshot {
	return chat.Snapshot{
		Transcript:    s.state.copyTranscript(),
		AwaitingReply: s.state.awaitingReply || s.resetting > 0,
		Epoch:         s.epoch,
	}
}

func (s *Service) publishLocked() {
	if len(s.subscribers) == 0 {
		return
	}
	snap := s.snapshotLocked()
	for _, ch := range s.subscribers {
		select {
		case ch <- snap:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- snap
		}
	}
}

func (s *Service) newMessage(origin chat.Origin, content string) chat.Message {
	return chat.Message{
		ID:        uuid.NewString(),
		Origin:    origin,
		Content:   content,
		Timestamp: s.now(),
	}
}
