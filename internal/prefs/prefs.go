// Package prefs keeps the per user settings of the covid screens in the bot property storage.
package prefs

import (
	"context"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/ilyalavrinov/covidstats/pkg/tgbotbase"
)

const (
	PropLastCountry = "covidLastCountry"
	PropSelection   = "covidSelection"
	PropDigestTime  = "covidDigestTime"
)

type Store struct {
	props tgbotbase.PropertyStorage
}

func New(props tgbotbase.PropertyStorage) *Store {
	return &Store{props: props}
}

// For narrows the store to one user in one chat.
func (s *Store) For(user tgbotbase.UserID, chat tgbotbase.ChatID) *Scoped {
	return &Scoped{store: s, user: user, chat: chat}
}

// Subscription is one chat waiting for a daily digest.
type Subscription struct {
	User tgbotbase.UserID
	Chat tgbotbase.ChatID
	At   time.Duration
}

// DigestSubscriptions lists every valid digest subscription. Broken values are skipped.
func (s *Store) DigestSubscriptions(ctx context.Context) ([]Subscription, error) {
	values, err := s.props.GetEveryHavingProperty(ctx, PropDigestTime)
	if err != nil {
		return nil, fmt.Errorf("cannot list digest subscriptions: %w", err)
	}
	subs := make([]Subscription, 0, len(values))
	for _, v := range values {
		at, err := ParseClock(v.Value)
		if err != nil {
			log.WithFields(log.Fields{"chat": v.Chat, "value": v.Value, "err": err}).Warn("Skipping broken digest time")
			continue
		}
		subs = append(subs, Subscription{User: v.User, Chat: v.Chat, At: at})
	}
	return subs, nil
}

// Scoped is the preference view of a single user in a single chat.
type Scoped struct {
	store *Store
	user  tgbotbase.UserID
	chat  tgbotbase.ChatID
}

func (p *Scoped) LastCountry(ctx context.Context) (string, error) {
	return p.store.props.GetProperty(ctx, PropLastCountry, p.user, p.chat)
}

func (p *Scoped) SetLastCountry(ctx context.Context, country string) error {
	return p.store.props.SetPropertyForUserInChat(ctx, PropLastCountry, p.user, p.chat, country)
}

// Selection is kept per chat; lists of other chats are not inherited.
func (p *Scoped) Selection(ctx context.Context) ([]string, error) {
	raw, err := p.store.props.GetPropertyForUserInChat(ctx, PropSelection, p.user, p.chat)
	if err != nil {
		return nil, err
	}
	return SplitList(raw), nil
}

// SetSelection stores the list; an empty list removes the setting.
func (p *Scoped) SetSelection(ctx context.Context, countries []string) error {
	if len(countries) == 0 {
		return p.store.props.DeletePropertyForUserInChat(ctx, PropSelection, p.user, p.chat)
	}
	return p.store.props.SetPropertyForUserInChat(ctx, PropSelection, p.user, p.chat, strings.Join(countries, ","))
}

// DigestTime reports the time subscribed in this very chat, if any.
func (p *Scoped) DigestTime(ctx context.Context) (time.Duration, bool, error) {
	raw, err := p.store.props.GetPropertyForUserInChat(ctx, PropDigestTime, p.user, p.chat)
	if err != nil || raw == "" {
		return 0, false, err
	}
	at, err := ParseClock(raw)
	if err != nil {
		return 0, false, err
	}
	return at, true, nil
}

func (p *Scoped) SetDigestTime(ctx context.Context, at time.Duration) error {
	return p.store.props.SetPropertyForUserInChat(ctx, PropDigestTime, p.user, p.chat, FormatClock(at))
}

func (p *Scoped) ClearDigest(ctx context.Context) error {
	return p.store.props.DeletePropertyForUserInChat(ctx, PropDigestTime, p.user, p.chat)
}

// SplitList splits a comma separated list, trimming blanks.
func SplitList(raw string) []string {
	result := make([]string, 0)
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			result = append(result, part)
		}
	}
	return result
}

// ParseClock reads "HH:MM" as a duration from midnight.
func ParseClock(s string) (time.Duration, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("time must look like HH:MM: %w", err)
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}

func FormatClock(d time.Duration) string {
	return fmt.Sprintf("%02d:%02d", int(d.Hours())%24, int(d.Minutes())%60)
}
