// internal/app/system/auditlog/logger.go
package auditlog

import (
	"context"
	"net/http"

	"github.com/dalemusser/stratachat/internal/app/store/audit"
	"github.com/dalemusser/stratachat/internal/app/system/ratelimit"
	"github.com/dalemusser/stratachat/internal/app/system/timeouts"
	"go.uber.org/zap"
)

// Destinations for one category.
const (
	ModeAll = "all" // store + zap
	ModeDB  = "db"
	ModeLog = "log"
	ModeOff = "off"
)

// Config holds audit logging configuration.
type Config struct {
	// Auth controls sign-in and sign-out events.
	Auth string
	// Admin controls mutations of users, groups, memberships and channels.
	Admin string
}

// Sink persists events. *audit.Store is the Mongo sink.
type Sink interface {
	Log(ctx context.Context, e audit.Event) error
}

// Logger writes audit events to a Sink and to zap.
type Logger struct {
	store  Sink
	zapLog *zap.Logger
	config Config
}

// New creates a new audit Logger. A nil store turns "db" into "off" and "all"
// into "log".
func New(store Sink, zapLog *zap.Logger, config Config) *Logger {
	if zapLog == nil {
		zapLog = zap.NewNop()
	}
	return &Logger{store: store, zapLog: zapLog.Named("audit"), config: config}
}

func (l *Logger) logToZap(event audit.Event) {
	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("category", event.Category),
		zap.String("event_type", event.EventType),
		zap.Bool("success", event.Success),
		zap.String("ip", event.IP),
	}
	if event.UserID != "" {
		fields = append(fields, zap.String("user_id", event.UserID))
	}
	if event.ActorID != "" {
		fields = append(fields, zap.String("actor_id", event.ActorID))
	}
	if event.GroupID != "" {
		fields = append(fields, zap.String("group_id", event.GroupID))
	}
	if event.Status != 0 {
		fields = append(fields, zap.Int("status", event.Status))
	}
	if event.FailureReason != "" {
		fields = append(fields, zap.String("failure_reason", event.FailureReason))
	}
	for k, v := range event.Details {
		fields = append(fields, zap.String("detail_"+k, v))
	}

	if event.Success {
		l.zapLog.Info("audit event", fields...)
	} else {
		l.zapLog.Warn("audit event", fields...)
	}
}

// Log records an audit event according to the category's mode. A nil
// Logger is a no-op.
func (l *Logger) Log(ctx context.Context, event audit.Event) {
	if l == nil {
		return
	}

	var setting string
	switch event.Category {
	case audit.CategoryAuth:
		setting = l.config.Auth
	case audit.CategoryAdmin:
		setting = l.config.Admin
	default:
		setting = ModeAll
	}
	if setting == ModeOff {
		return
	}

	if setting == ModeAll || setting == ModeLog {
		l.logToZap(event)
	}

	if (setting == ModeAll || setting == ModeDB) && l.store != nil {
		// The request may already be finished.
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeouts.Short())
		defer cancel()
		if err := l.store.Log(sctx, event); err != nil {
			l.zapLog.Error("failed to store audit event",
				zap.Error(err),
				zap.String("event_type", event.EventType))
		}
	}
}

func requestEvent(r *http.Request, category, eventType string) audit.Event {
	return audit.Event{
		Category:  category,
		EventType: eventType,
		IP:        ratelimit.ClientIP(r),
		UserAgent: r.UserAgent(),
	}
}

// --- Authentication Events ---

// SignInSuccess logs a successful sign-in.
func (l *Logger) SignInSuccess(r *http.Request, userID, username string) {
	e := requestEvent(r, audit.CategoryAuth, audit.EventSignInSuccess)
	e.UserID = userID
	e.Success = true
	e.Details = map[string]string{"username": username}
	l.Log(r.Context(), e)
}

// SignInFailed logs a refused sign-in. userID is empty when the username is
// unknown.
func (l *Logger) SignInFailed(r *http.Request, eventType, userID, username, reason string) {
	e := requestEvent(r, audit.CategoryAuth, eventType)
	e.UserID = userID
	e.FailureReason = reason
	e.Details = map[string]string{"attempted_username": username}
	l.Log(r.Context(), e)
}

// SignOut logs a sign-out. userID is empty for an anonymous request.
func (l *Logger) SignOut(r *http.Request, userID string) {
	e := requestEvent(r, audit.CategoryAuth, audit.EventSignOut)
	e.UserID = userID
	e.Success = true
	l.Log(r.Context(), e)
}
