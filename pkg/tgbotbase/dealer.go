package tgbotbase

import (
	"context"
	"regexp"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"
)

type ServiceMsg struct {
	stopBot bool
}

// StopBotMsg asks the main cycle to finish.
func StopBotMsg() ServiceMsg {
	return ServiceMsg{stopBot: true}
}

type MessageDealer interface {
	init(chan<- tgbotapi.Chattable, chan<- ServiceMsg)
	accept(context.Context, tgbotapi.Message)
	run(context.Context)
	name() string
}

type HandlerTrigger struct {
	re   *regexp.Regexp
	cmds map[string]bool
}

func NewHandlerTrigger(re *regexp.Regexp, cmds []string) HandlerTrigger {
	cmdmap := make(map[string]bool, len(cmds))
	for _, c := range cmds {
		cmdmap[c] = true
	}

	return HandlerTrigger{re: re,
		cmds: cmdmap}
}

func (t *HandlerTrigger) canHandle(msg tgbotapi.Message) bool {
	text := strings.ToLower(msg.Text)
	if t.re != nil && t.re.MatchString(text) {
		log.WithFields(log.Fields{"text": msg.Text, "re": t.re}).Debug("Message text matched regexp")
		return true
	}
	if msg.IsCommand() {
		cmd := msg.Command()
		if _, found := t.cmds[cmd]; found {
			log.WithFields(log.Fields{"text": msg.Text, "cmd": cmd}).Debug("Message text matched command")
			return true
		}
	}
	return false
}

type IncomingMessageHandler interface {
	Init(chan<- tgbotapi.Chattable, chan<- ServiceMsg) HandlerTrigger
	HandleOne(context.Context, tgbotapi.Message)
	Name() string
}

type IncomingMessageDealer struct {
	handler IncomingMessageHandler
	trigger HandlerTrigger
	inMsgCh chan tgbotapi.Message
}

func NewIncomingMessageDealer(h IncomingMessageHandler) *IncomingMessageDealer {
	d := &IncomingMessageDealer{handler: h}
	return d
}

func (d *IncomingMessageDealer) init(outMsgCh chan<- tgbotapi.Chattable, srvCh chan<- ServiceMsg) {
	d.trigger = d.handler.Init(outMsgCh, srvCh)
	d.inMsgCh = make(chan tgbotapi.Message, 16)
}

func (d *IncomingMessageDealer) accept(ctx context.Context, msg tgbotapi.Message) {
	if !d.trigger.canHandle(msg) {
		return
	}
	select {
	case d.inMsgCh <- msg:
	case <-ctx.Done():
	}
}

func (d *IncomingMessageDealer) run(ctx context.Context) {
	go func() {
		for {
			select {
			case msg := <-d.inMsgCh:
				d.handler.HandleOne(ctx, msg)
			case <-ctx.Done():
				return
			}
		}
	}()
}

func (d *IncomingMessageDealer) name() string {
	return d.handler.Name()
}

type BaseHandler struct {
	OutMsgCh chan<- tgbotapi.Chattable
	SrvCh    chan<- ServiceMsg
}

// Reply pushes a message to the bot unless ctx is done first.
func (h *BaseHandler) Reply(ctx context.Context, msg tgbotapi.Chattable) {
	select {
	case h.OutMsgCh <- msg:
	case <-ctx.Done():
	}
}

type BackgroundMessageHandler interface {
	Init(chan<- tgbotapi.Chattable, chan<- ServiceMsg)
	Run(context.Context)
	Name() string
}

type BackgroundMessageDealer struct {
	h BackgroundMessageHandler
}

func NewBackgroundMessageDealer(h BackgroundMessageHandler) MessageDealer {
	return &BackgroundMessageDealer{h: h}
}

func (d *BackgroundMessageDealer) init(outMsgCh chan<- tgbotapi.Chattable, srvCh chan<- ServiceMsg) {
	d.h.Init(outMsgCh, srvCh)
}

func (d *BackgroundMessageDealer) accept(context.Context, tgbotapi.Message) {
	// doing nothing
}

func (d *BackgroundMessageDealer) run(ctx context.Context) {
	d.h.Run(ctx)
}

func (d *BackgroundMessageDealer) name() string {
	return d.h.Name()
}

type EngagementHandler interface {
	Name() string
	Engaged(ctx context.Context, chat *tgbotapi.Chat, user *tgbotapi.User)
	Disengaged(ctx context.Context, chat *tgbotapi.Chat, user *tgbotapi.User)
}

type EngagementMessageDealer struct {
	h EngagementHandler
}

func NewEngagementMessageDealer(h EngagementHandler) MessageDealer {
	return &EngagementMessageDealer{h: h}
}

// engagementInit is implemented by engagement handlers which reply.
type engagementInit interface {
	Init(chan<- tgbotapi.Chattable, chan<- ServiceMsg)
}

func (d *EngagementMessageDealer) init(outMsgCh chan<- tgbotapi.Chattable, srvCh chan<- ServiceMsg) {
	if h, ok := d.h.(engagementInit); ok {
		h.Init(outMsgCh, srvCh)
	}
}

func (d *EngagementMessageDealer) accept(ctx context.Context, msg tgbotapi.Message) {
	for _, m := range msg.NewChatMembers {
		if m.IsBot && m.UserName == thisBotUserName() {
			d.h.Engaged(ctx, msg.Chat, msg.From)
		}
	}
	if msg.LeftChatMember != nil {
		if msg.LeftChatMember.UserName == thisBotUserName() {
			d.h.Disengaged(ctx, msg.Chat, msg.From)
		}
	}
}

func (d *EngagementMessageDealer) run(context.Context) {

}

func (d *EngagementMessageDealer) name() string {
	return d.h.Name()
}
