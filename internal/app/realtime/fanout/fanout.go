// internal/app/realtime/fanout/fanout.go

// Package fanout persists inbound chat messages and broadcasts them to the
// room of their channel.
//
// For one channel, persist and broadcast happen under a single lock, so
// sessions see messages in the order they completed persistence. Delivery
// is at-most-once: a session that is not in the room at broadcast time gets
// nothing until it fetches history.
package fanout

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dalemusser/stratachat/internal/app/realtime"
	"github.com/dalemusser/stratachat/internal/app/store"
	"github.com/dalemusser/stratachat/internal/app/system/apperr"
	"github.com/dalemusser/stratachat/internal/app/system/htmlsanitize"
	"github.com/dalemusser/stratachat/internal/app/system/keyedlock"
	"github.com/dalemusser/stratachat/internal/app/system/paging"
	"github.com/dalemusser/stratachat/internal/domain/models"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

const (
	// MaxBodyRunes caps a message body after sanitizing.
	MaxBodyRunes = 4096
	// MaxAttachments caps the attachment references on one message.
	MaxAttachments = 16
	// DefaultHistoryLimit is the page size used when none is configured.
	DefaultHistoryLimit = 50
)

// Broadcaster delivers an event to the sessions of a room.
type Broadcaster interface {
	Broadcast(roomID string, ev realtime.Event) int
}

// Publisher forwards a persisted message to other nodes.
type Publisher interface {
	Publish(ctx context.Context, m models.Message) error
}

// Service is the message fan-out path.
type Service struct {
	messages     store.Messages
	rooms        Broadcaster
	relay        Publisher
	now          func() time.Time
	locks        *keyedlock.Map
	historyLimit int
	logger       *zap.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithRelay publishes every persisted message through p.
func WithRelay(p Publisher) Option { return func(s *Service) { s.relay = p } }

// WithClock replaces the server clock.
func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

// WithHistoryLimit sets the default and maximum history page size.
func WithHistoryLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.historyLimit = n
		}
	}
}

// New builds a Service.
func New(messages store.Messages, rooms Broadcaster, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		messages:     messages,
		rooms:        rooms,
		now:          func() time.Time { return time.Now().UTC() },
		locks:        keyedlock.New(),
		historyLimit: DefaultHistoryLimit,
		logger:       logger.Named("fanout"),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// SubmitInput is one inbound chat message.
type SubmitInput struct {
	ChannelID       string
	UserID          string
	Body            string
	AttachmentRefs  []string
	ClientTimestamp *time.Time
}

// Submit assigns the server timestamp, persists the message and broadcasts
// it to the channel's room. The caller has already checked that UserID may
// post to ChannelID.
func (s *Service) Submit(ctx context.Context, in SubmitInput) (models.Message, error) {
	const op = "fanout.Submit"

	if strings.TrimSpace(in.ChannelID) == "" {
		return models.Message{}, apperr.Invalid(op, "channelId is required")
	}
	body := strings.TrimSpace(htmlsanitize.PlainText(in.Body))
	refs := cleanRefs(in.AttachmentRefs)
	if body == "" && len(refs) == 0 {
		return models.Message{}, apperr.Invalid(op, "message body is empty")
	}
	if utf8.RuneCountInString(body) > MaxBodyRunes {
		return models.Message{}, apperr.Invalid(op, "message body exceeds %d characters", MaxBodyRunes)
	}
	if len(refs) > MaxAttachments {
		return models.Message{}, apperr.Invalid(op, "at most %d attachments per message", MaxAttachments)
	}

	return s.persistAndBroadcast(ctx, op, models.Message{
		ChannelID:       in.ChannelID,
		UserID:          in.UserID,
		Body:            body,
		AttachmentRefs:  refs,
		ClientTimestamp: in.ClientTimestamp,
	})
}

// Announce posts a system message into roomID. The room manager uses it for
// join and leave notices.
func (s *Service) Announce(ctx context.Context, roomID, body string) error {
	_, err := s.persistAndBroadcast(ctx, "fanout.Announce", models.Message{
		ChannelID: roomID,
		Body:      body,
		System:    true,
	})
	return err
}

func (s *Service) persistAndBroadcast(ctx context.Context, op string, m models.Message) (models.Message, error) {
	unlock := s.locks.Lock(m.ChannelID)
	defer unlock()

	// Mongo keeps milliseconds; truncating here keeps broadcast and stored
	// timestamps identical so either can seed a history cursor.
	m.CreatedAt = s.now().Truncate(time.Millisecond)
	saved, err := s.messages.Insert(ctx, m)
	if err != nil {
		s.logger.Warn("persist message failed",
			zap.String("channel_id", m.ChannelID),
			zap.Error(err))
		return models.Message{}, apperr.Persistence(op, err)
	}

	delivered := s.rooms.Broadcast(saved.ChannelID, realtime.MessageEvent(saved))
	s.logger.Debug("message fanned out",
		zap.String("channel_id", saved.ChannelID),
		zap.String("message_id", saved.ID),
		zap.Bool("system", saved.System),
		zap.Int("delivered", delivered))

	if s.relay != nil {
		if err := s.relay.Publish(ctx, saved); err != nil {
			s.logger.Warn("relay publish failed",
				zap.String("channel_id", saved.ChannelID),
				zap.String("message_id", saved.ID),
				zap.Error(err))
		}
	}
	return saved, nil
}

// Page is one slice of a channel's history, oldest first. When HasMore is
// set, Next is the cursor for the older page.
type Page struct {
	Messages []models.Message `json:"messages"`
	HasMore  bool             `json:"hasMore"`
	Next     *paging.Cursor   `json:"next,omitempty"`
}

// History returns up to limit messages of channelID older than cur, oldest
// first. limit is clamped to the configured history limit.
func (s *Service) History(ctx context.Context, channelID string, cur paging.Cursor, limit int) ([]models.Message, error) {
	p, err := s.Page(ctx, channelID, cur, limit)
	return p.Messages, err
}

// Page is History with a look-ahead row to fill HasMore.
func (s *Service) Page(ctx context.Context, channelID string, cur paging.Cursor, limit int) (Page, error) {
	if limit <= 0 || limit > s.historyLimit {
		limit = s.historyLimit
	}
	msgs, err := s.messages.ListByChannel(ctx, channelID, cur, paging.LimitPlusOne(limit))
	if err != nil {
		return Page{}, apperr.Persistence("fanout.History", err)
	}
	if msgs == nil {
		msgs = []models.Message{}
	}
	hasMore := paging.TrimOldest(&msgs, limit)
	p := Page{Messages: msgs, HasMore: hasMore}
	if hasMore {
		next := paging.CursorAt(msgs[0].CreatedAt, msgs[0].ID)
		p.Next = &next
	}
	return p, nil
}

func cleanRefs(refs []string) []string {
	trimmed := lo.Map(refs, func(r string, _ int) string { return strings.TrimSpace(r) })
	return lo.Uniq(lo.Compact(trimmed))
}
