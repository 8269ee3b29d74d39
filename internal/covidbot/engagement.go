package covidbot

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"github.com/ilyalavrinov/covidstats/pkg/tgbotbase"
)

// greeter introduces the bot when it is added to a group.
type greeter struct {
	tgbotbase.BaseHandler
}

var _ tgbotbase.EngagementHandler = &greeter{}

func (g *greeter) Init(outMsgCh chan<- tgbotapi.Chattable, srvCh chan<- tgbotbase.ServiceMsg) {
	g.OutMsgCh = outMsgCh
}

func (g *greeter) Name() string {
	return "greeter"
}

func (g *greeter) Engaged(ctx context.Context, chat *tgbotapi.Chat, user *tgbotapi.User) {
	log.WithField("chat", chat.ID).Info("Bot added to chat")
	msg := tgbotapi.NewMessage(chat.ID, esc("Hi! I share COVID-19 statistics per country.\n\n"+helpText))
	msg.ParseMode = tgbotapi.ModeMarkdownV2
	g.Reply(ctx, msg)
}

func (g *greeter) Disengaged(ctx context.Context, chat *tgbotapi.Chat, user *tgbotapi.User) {
	log.WithField("chat", chat.ID).Info("Bot removed from chat")
}
