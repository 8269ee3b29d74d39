package tgbotbase

import (
	"context"
	"fmt"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"
)

var (
	botUserNameMu sync.RWMutex
	botUserName   string
)

func setBotUserName(name string) {
	botUserNameMu.Lock()
	defer botUserNameMu.Unlock()
	botUserName = name
}

func thisBotUserName() string {
	botUserNameMu.RLock()
	defer botUserNameMu.RUnlock()
	if botUserName == "" {
		panic("bot username not yet initialized")
	}
	return botUserName
}

// Sender delivers a prepared message to telegram.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type Bot struct {
	dealers []MessageDealer
	cfg     Config

	api         *tgbotapi.BotAPI
	sender      Sender
	botChannels struct {
		in_msg_chan  tgbotapi.UpdatesChannel
		out_msg_chan chan tgbotapi.Chattable
		service_chan chan ServiceMsg
	}
}

func NewBot(cfg Config) (*Bot, error) {
	if cfg.TGBot.SkipConnect {
		log.Warn("Telegram connection is skipped, replies will only be logged")
		return newBot(cfg, make(chan tgbotapi.Update), logSender{}), nil
	}

	httpClient, err := NewHTTPClient(cfg.Proxy_SOCKS5, 0)
	if err != nil {
		return nil, err
	}
	api, err := tgbotapi.NewBotAPIWithClient(cfg.TGBot.Token, tgbotapi.APIEndpoint, httpClient)
	if err != nil {
		return nil, fmt.Errorf("cannot connect to telegram: %w", err)
	}
	api.Debug = cfg.TGBot.Verbose

	setBotUserName(api.Self.UserName)
	log.WithField("account", api.Self.UserName).Info("Authorized on account")

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	b := newBot(cfg, api.GetUpdatesChan(u), api)
	b.api = api
	return b, nil
}

func newBot(cfg Config, updates tgbotapi.UpdatesChannel, sender Sender) *Bot {
	b := &Bot{
		dealers: make([]MessageDealer, 0),
		cfg:     cfg,
		sender:  sender,
	}
	b.botChannels.in_msg_chan = updates
	b.botChannels.out_msg_chan = make(chan tgbotapi.Chattable)
	b.botChannels.service_chan = make(chan ServiceMsg)
	return b
}

func (b *Bot) AddHandler(d MessageDealer) {
	log.WithField("handler", d.name()).Info("Preparing handler")
	d.init(b.botChannels.out_msg_chan, b.botChannels.service_chan)
	b.dealers = append(b.dealers, d)
}

// Start serves updates until ctx is cancelled or a handler asks the bot to stop.
func (b *Bot) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	log.Info("Starting bot")
	for _, d := range b.dealers {
		log.WithField("handler", d.name()).Info("Starting handler")
		d.run(ctx)
	}

	repliesDone := make(chan struct{})
	go func() {
		b.serveReplies(ctx)
		close(repliesDone)
	}()

	isRunning := true
	for isRunning {
		select {
		case update, ok := <-b.botChannels.in_msg_chan:
			if !ok {
				log.Warn("Updates channel has been closed")
				isRunning = false
				continue
			}
			if b.cfg.TGBot.Verbose {
				dumpUpdate(update)
			}
			if update.Message == nil {
				log.Debug("Message: empty. Skipping")
				continue
			}
			for _, d := range b.dealers {
				d.accept(ctx, *update.Message)
			}
		case srvMsg := <-b.botChannels.service_chan:
			log.WithField("msg", fmt.Sprintf("%+v", srvMsg)).Info("Received service message")
			if srvMsg.stopBot {
				isRunning = false
			}
		case <-ctx.Done():
			isRunning = false
		}
	}

	if b.api != nil {
		b.api.StopReceivingUpdates()
	}
	cancel()
	<-repliesDone
	log.Info("Main cycle has been aborted")
}

func (b *Bot) Send(ctx context.Context, msg tgbotapi.Chattable) {
	select {
	case b.botChannels.out_msg_chan <- msg:
	case <-ctx.Done():
	}
}

func (b *Bot) serveReplies(ctx context.Context) {
	log.Debug("Started serving replies")
	for {
		select {
		case msg := <-b.botChannels.out_msg_chan:
			if _, err := b.sender.Send(msg); err != nil {
				log.WithFields(log.Fields{"msg": fmt.Sprintf("%+v", msg), "err": err}).Error("Could not send reply")
			}
		case <-ctx.Done():
			log.Debug("Finished serving replies")
			return
		}
	}
}

type logSender struct{}

func (logSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	log.WithField("msg", fmt.Sprintf("%+v", c)).Info("Not connected, dropping reply")
	return tgbotapi.Message{Date: int(time.Now().Unix())}, nil
}

func dumpUpdate(update tgbotapi.Update) {
	fields := log.Fields{"update": update.UpdateID}
	if update.Message != nil {
		if update.Message.From != nil {
			fields["from"] = update.Message.From.UserName
		}
		if update.Message.Chat != nil {
			fields["chat"] = update.Message.Chat.ID
		}
		fields["text"] = update.Message.Text
		fields["newMembers"] = len(update.Message.NewChatMembers)
	}
	log.WithFields(fields).Debug("Update received")
}
