// Package memory is an in-process implementation of every repository port.
// It backs unit tests and the single-instance storage.driver=memory mode.
package memory

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/NordCoder/Warden/internal/domain/audit"
	"github.com/NordCoder/Warden/internal/domain/auth"
	"github.com/NordCoder/Warden/internal/domain/notification"
	"github.com/NordCoder/Warden/internal/domain/outbox"
	"github.com/NordCoder/Warden/internal/domain/user"
)

type data struct {
	users    map[string]user.User
	byEmail  map[string]string
	refresh  map[string]auth.RefreshToken
	verify   map[string]auth.OneTimeToken
	reset    map[string]auth.OneTimeToken
	audits   []audit.Event
	outbox   map[string]outbox.Message
	notifLog []notification.LogEntry
	seq      int64
}

func (d *data) clone() *data {
	return &data{
		users:    maps.Clone(d.users),
		byEmail:  maps.Clone(d.byEmail),
		refresh:  maps.Clone(d.refresh),
		verify:   maps.Clone(d.verify),
		reset:    maps.Clone(d.reset),
		audits:   slices.Clone(d.audits),
		outbox:   maps.Clone(d.outbox),
		notifLog: slices.Clone(d.notifLog),
		seq:      d.seq,
	}
}

type Store struct {
	mu sync.Mutex
	d  *data
}

func New() *Store {
	return &Store{d: &data{
		users:   map[string]user.User{},
		byEmail: map[string]string{},
		refresh: map[string]auth.RefreshToken{},
		verify:  map[string]auth.OneTimeToken{},
		reset:   map[string]auth.OneTimeToken{},
		outbox:  map[string]outbox.Message{},
	}}
}

type txKey struct{}

func (s *Store) inTx(ctx context.Context) bool {
	owner, _ := ctx.Value(txKey{}).(*Store)
	return owner == s
}

// lock is a no-op inside WithTx, which already holds the mutex.
func (s *Store) lock(ctx context.Context) func() {
	if s.inTx(ctx) {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

// WithTx serializes fn against every other store access and restores the
// pre-call state when fn returns an error or panics.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if s.inTx(ctx) {
		return fn(ctx)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.d.clone()
	defer func() {
		if p := recover(); p != nil {
			s.d = snapshot
			panic(p)
		}
		if err != nil {
			s.d = snapshot
		}
	}()
	return fn(context.WithValue(ctx, txKey{}, s))
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Users() *UserRepo                 { return &UserRepo{s: s} }
func (s *Store) RefreshTokens() *RefreshTokenRepo { return &RefreshTokenRepo{s: s} }
func (s *Store) VerificationTokens() *OneTimeTokenRepo {
	return &OneTimeTokenRepo{s: s, pick: pickVerify}
}
func (s *Store) ResetTokens() *OneTimeTokenRepo        { return &OneTimeTokenRepo{s: s, pick: pickReset} }
func (s *Store) Audit() *AuditRepo                     { return &AuditRepo{s: s} }
func (s *Store) Outbox() *OutboxRepo                   { return &OutboxRepo{s: s} }
func (s *Store) NotificationLog() *NotificationLogRepo { return &NotificationLogRepo{s: s} }

// AuditEvents returns a copy of every recorded event, oldest first.
func (s *Store) AuditEvents() []audit.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.d.audits)
}

// RefreshTokenCount reports how many ledger rows belong to userID.
func (s *Store) RefreshTokenCount(userID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.d.refresh {
		if t.UserID == userID {
			n++
		}
	}
	return n
}

// NotificationEntries returns a copy of the notification log, oldest first.
func (s *Store) NotificationEntries() []notification.LogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.d.notifLog)
}
