package tgbotbase

import "context"

type PropertyValue struct {
	Value string
	User  UserID
	Chat  ChatID
}

// PropertyStorage keeps small string settings per user, per chat or per user in a chat.
// GetProperty resolves the most specific one: user in chat, then user, then chat.
// GetPropertyForUserInChat reads exactly the user in chat value, without falling back.
type PropertyStorage interface {
	GetProperty(ctx context.Context, name string, user UserID, chat ChatID) (string, error)
	GetPropertyForUserInChat(ctx context.Context, name string, user UserID, chat ChatID) (string, error)
	SetPropertyForUser(ctx context.Context, name string, user UserID, value interface{}) error
	SetPropertyForChat(ctx context.Context, name string, chat ChatID, value interface{}) error
	SetPropertyForUserInChat(ctx context.Context, name string, user UserID, chat ChatID, value interface{}) error
	DeletePropertyForUserInChat(ctx context.Context, name string, user UserID, chat ChatID) error
	GetEveryHavingProperty(ctx context.Context, name string) ([]PropertyValue, error)
}
