package tgbotbase

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-redis/redis/v8"
	log "github.com/sirupsen/logrus"
)

type RedisPropertyStorage struct {
	client *redis.Client
}

func NewRedisPropertyStorage(pool RedisPool) *RedisPropertyStorage {
	return NewRedisPropertyStorageWithClient(pool.GetConnByName("property"))
}

func NewRedisPropertyStorageWithClient(client *redis.Client) *RedisPropertyStorage {
	return &RedisPropertyStorage{client: client}
}

func redisPropertyKey(name string, user UserID, chat ChatID) string {
	if strings.Contains(name, ":") {
		panic(fmt.Sprintf("Property key %q contains forbidden symbol %q", name, ":"))
	}
	return fmt.Sprintf("tg:property:%s:%d:%d", name, user, chat)
}

func (r *RedisPropertyStorage) SetPropertyForUserInChat(ctx context.Context, name string, user UserID, chat ChatID, value interface{}) error {
	log.WithFields(log.Fields{"property": name, "user": user, "chat": chat, "value": value}).Debug("Setting property")
	key := redisPropertyKey(name, user, chat)
	return r.client.Set(ctx, key, value, 0).Err()
}

func (r *RedisPropertyStorage) SetPropertyForUser(ctx context.Context, name string, user UserID, value interface{}) error {
	return r.SetPropertyForUserInChat(ctx, name, user, ChatID(user), value)
}

func (r *RedisPropertyStorage) SetPropertyForChat(ctx context.Context, name string, chat ChatID, value interface{}) error {
	return r.SetPropertyForUserInChat(ctx, name, 0, chat, value)
}

func (r *RedisPropertyStorage) DeletePropertyForUserInChat(ctx context.Context, name string, user UserID, chat ChatID) error {
	log.WithFields(log.Fields{"property": name, "user": user, "chat": chat}).Debug("Deleting property")
	return r.client.Del(ctx, redisPropertyKey(name, user, chat)).Err()
}

func (r *RedisPropertyStorage) GetProperty(ctx context.Context, name string, user UserID, chat ChatID) (string, error) {
	logger := log.WithFields(log.Fields{"property": name, "user": user, "chat": chat})

	candidates := []string{
		// specific property value for this user in this chat
		redisPropertyKey(name, user, chat),
		// user-defined property (for any chat, set via direct msg)
		redisPropertyKey(name, user, ChatID(user)),
		// chat-defined property (default property for this chat)
		redisPropertyKey(name, 0, chat),
	}
	for _, key := range candidates {
		val, err := r.client.Get(ctx, key).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return "", err
		}
		return val, nil
	}

	logger.Debug("No property found, returning empty value")
	return "", nil
}

func (r *RedisPropertyStorage) GetPropertyForUserInChat(ctx context.Context, name string, user UserID, chat ChatID) (string, error) {
	val, err := r.client.Get(ctx, redisPropertyKey(name, user, chat)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return val, err
}

func (r *RedisPropertyStorage) GetEveryHavingProperty(ctx context.Context, name string) ([]PropertyValue, error) {
	pattern := fmt.Sprintf("tg:property:%s:*:*", name)
	keys, err := GetAllKeys(ctx, r.client, pattern)
	if err != nil {
		return nil, err
	}
	props := make([]PropertyValue, 0, len(keys))
	for _, k := range keys {
		value, err := r.client.Get(ctx, k).Result()
		if err != nil {
			log.WithFields(log.Fields{"key": k, "err": err}).Warn("Property could not be retrieved")
			continue
		}

		parts := strings.Split(k, ":")
		if len(parts) != 5 {
			log.WithField("key", k).Warn("Key has unexpected number of parts")
			continue
		}
		userID, err := strconv.ParseInt(parts[3], 10, 64)
		if err != nil {
			log.WithFields(log.Fields{"user": parts[3], "err": err}).Warn("Could not convert user to integer")
			continue
		}
		chatID, err := strconv.ParseInt(parts[4], 10, 64)
		if err != nil {
			log.WithFields(log.Fields{"chat": parts[4], "err": err}).Warn("Could not convert chat to integer")
			continue
		}

		props = append(props, PropertyValue{
			User:  UserID(userID),
			Chat:  ChatID(chatID),
			Value: value})
	}

	return props, nil
}

var _ PropertyStorage = &RedisPropertyStorage{}
