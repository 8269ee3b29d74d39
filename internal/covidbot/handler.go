package covidbot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"github.com/ilyalavrinov/covidstats/internal/covid"
	"github.com/ilyalavrinov/covidstats/internal/prefs"
	"github.com/ilyalavrinov/covidstats/internal/report"
	"github.com/ilyalavrinov/covidstats/internal/screen"
	"github.com/ilyalavrinov/covidstats/internal/stats"
	"github.com/ilyalavrinov/covidstats/pkg/tgbotbase"
)

// Loader is everything the bot screens load through.
type Loader interface {
	screen.CountryLoader
	screen.Comparer
	screen.Searcher
}

// Scheduler starts digests for new subscriptions.
type Scheduler interface {
	Schedule(sub prefs.Subscription)
}

type covidHandler struct {
	tgbotbase.BaseHandler
	loader    Loader
	prefs     *prefs.Store
	scheduler Scheduler
	main      []string
}

var _ tgbotbase.IncomingMessageHandler = &covidHandler{}

func NewCovidHandler(loader Loader, store *prefs.Store, scheduler Scheduler, mainCountries []string) tgbotbase.IncomingMessageHandler {
	return &covidHandler{
		loader:    loader,
		prefs:     store,
		scheduler: scheduler,
		main:      mainCountries,
	}
}

func (h *covidHandler) Init(outMsgCh chan<- tgbotapi.Chattable, srvCh chan<- tgbotbase.ServiceMsg) tgbotbase.HandlerTrigger {
	h.OutMsgCh = outMsgCh
	h.SrvCh = srvCh
	return tgbotbase.NewHandlerTrigger(nil, []string{
		"start", "help", "countries", "country", "search",
		"select", "selection", "clearselection", "compare", "export", "digest"})
}

func (h *covidHandler) Name() string {
	return "covid statistics"
}

// HandleOne serves every message on its own goroutine so a slow country
// load never holds the others.
func (h *covidHandler) HandleOne(ctx context.Context, msg tgbotapi.Message) {
	go h.handle(ctx, msg)
}

func (h *covidHandler) handle(ctx context.Context, msg tgbotapi.Message) {
	user := tgbotbase.UserID(0)
	if msg.From != nil {
		user = tgbotbase.UserID(msg.From.ID)
	}
	chat := tgbotbase.ChatID(msg.Chat.ID)
	logger := log.WithFields(log.Fields{"cmd": msg.Command(), "user": user, "chat": chat})
	logger.Debug("Covid command received")

	p := h.prefs.For(user, chat)
	args := strings.TrimSpace(msg.CommandArguments())

	var reply tgbotapi.Chattable
	var err error
	switch msg.Command() {
	case "start", "help":
		reply = h.start(ctx, msg)
	case "countries":
		reply = newReply(msg, renderCountryList(screen.Countries()))
	case "country":
		reply, err = h.country(ctx, msg, args)
	case "search":
		reply = h.search(ctx, msg, p, args)
	case "select":
		reply, err = h.toggleSelection(ctx, msg, p, args)
	case "selection":
		reply, err = h.selection(ctx, msg, p)
	case "clearselection":
		if err = p.SetSelection(ctx, nil); err == nil {
			reply = newReply(msg, renderSelection(screen.NewCountrySelection(nil).Snapshot()))
		}
	case "compare":
		reply, err = h.compare(ctx, msg, p, args)
	case "export":
		reply, err = h.export(ctx, msg, args)
	case "digest":
		reply, err = h.digest(ctx, msg, p, user, chat, args)
	default:
		logger.Warn("Unexpected command")
		return
	}

	if err != nil {
		logger.WithField("err", err).Warn("Covid command failed")
		reply = newReply(msg, esc(userMessage(err)))
	}
	h.Reply(ctx, reply)
}

var errUsage = errors.New("wrong arguments")

type usageError struct {
	usage string
}

func (e usageError) Error() string { return e.usage }
func (e usageError) Unwrap() error { return errUsage }

func userMessage(err error) string {
	var ue usageError
	if errors.As(err, &ue) {
		return "Usage: " + ue.usage
	}
	if errors.Is(err, screen.ErrDateUnavailable) {
		return "There is no data for this date."
	}
	if errors.Is(err, screen.ErrUnknownCountry) {
		return "This country is not in the list, see /countries."
	}
	return "Something went wrong, please try again later."
}

func newReply(msg tgbotapi.Message, text string) tgbotapi.MessageConfig {
	reply := tgbotapi.NewMessage(msg.Chat.ID, text)
	reply.ParseMode = tgbotapi.ModeMarkdownV2
	reply.DisableWebPagePreview = true
	reply.ReplyToMessageID = msg.MessageID
	return reply
}

// splitDate separates a trailing YYYY-MM-DD from the arguments.
func splitDate(args string) (string, *time.Time) {
	i := strings.LastIndex(args, " ")
	last := args[i+1:]
	d, err := covid.ParseDate(last)
	if err != nil {
		return args, nil
	}
	if i < 0 {
		return "", &d
	}
	return strings.TrimSpace(args[:i]), &d
}

func (h *covidHandler) start(ctx context.Context, msg tgbotapi.Message) tgbotapi.Chattable {
	m := screen.NewMain(h.loader, h.main)
	st := m.Load(ctx)

	reply := newReply(msg, renderMain(st))
	rows := make([][]tgbotapi.KeyboardButton, 0, len(st.Entries)/2+1)
	for i := 0; i < len(st.Entries); i += 2 {
		row := []tgbotapi.KeyboardButton{tgbotapi.NewKeyboardButton("/country " + st.Entries[i].Country)}
		if i+1 < len(st.Entries) {
			row = append(row, tgbotapi.NewKeyboardButton("/country "+st.Entries[i+1].Country))
		}
		rows = append(rows, tgbotapi.NewKeyboardButtonRow(row...))
	}
	if len(rows) > 0 {
		reply.ReplyMarkup = tgbotapi.NewReplyKeyboard(rows...)
	}
	return reply
}

func (h *covidHandler) country(ctx context.Context, msg tgbotapi.Message, args string) (tgbotapi.Chattable, error) {
	name, date := splitDate(args)
	if name == "" {
		return nil, usageError{"/country <name> [YYYY-MM-DD]"}
	}
	d := screen.NewCountryDetail(name, h.loader)
	st := d.Load(ctx)
	if date != nil && screen.IsReady(st.Status) {
		var err error
		if st, err = d.SelectDate(*date); err != nil {
			return nil, err
		}
	}
	return newReply(msg, renderCountry(st)), nil
}

func (h *covidHandler) search(ctx context.Context, msg tgbotapi.Message, p *prefs.Scoped, args string) tgbotapi.Chattable {
	s := screen.NewSearch(h.loader, p)
	s.Restore(ctx)
	if args != "" {
		s.SetQuery(args)
	}
	return newReply(msg, renderSearch(s.Submit(ctx)))
}

func (h *covidHandler) toggleSelection(ctx context.Context, msg tgbotapi.Message, p *prefs.Scoped, args string) (tgbotapi.Chattable, error) {
	if args == "" {
		return nil, usageError{"/select <name>"}
	}
	current, err := p.Selection(ctx)
	if err != nil {
		return nil, err
	}
	st, err := screen.NewCountrySelection(current).Toggle(args)
	if err != nil {
		return nil, err
	}
	if err := p.SetSelection(ctx, st.SelectedList()); err != nil {
		return nil, err
	}
	return newReply(msg, renderSelection(st)), nil
}

func (h *covidHandler) selection(ctx context.Context, msg tgbotapi.Message, p *prefs.Scoped) (tgbotapi.Chattable, error) {
	current, err := p.Selection(ctx)
	if err != nil {
		return nil, err
	}
	return newReply(msg, renderSelection(screen.NewCountrySelection(current).Snapshot())), nil
}

func (h *covidHandler) compare(ctx context.Context, msg tgbotapi.Message, p *prefs.Scoped, args string) (tgbotapi.Chattable, error) {
	list, date := splitDate(args)
	countries := prefs.SplitList(list)
	if len(countries) == 0 {
		var err error
		if countries, err = p.Selection(ctx); err != nil {
			return nil, err
		}
	}
	if len(countries) == 0 {
		return nil, usageError{"/compare <country, country, ...> [YYYY-MM-DD] or fill the list with /select"}
	}
	if len(stats.Distinct(countries)) > screen.MaxCompared {
		return nil, usageError{fmt.Sprintf("/compare takes at most %d countries", screen.MaxCompared)}
	}

	c := screen.NewComparison(countries, h.loader)
	st := c.Load(ctx)
	if date != nil {
		var err error
		if st, err = c.SelectDate(*date); err != nil {
			return nil, err
		}
	}
	return newReply(msg, renderComparison(st)), nil
}

func (h *covidHandler) export(ctx context.Context, msg tgbotapi.Message, args string) (tgbotapi.Chattable, error) {
	if args == "" {
		return nil, usageError{"/export <name>"}
	}
	st := screen.NewCountryDetail(args, h.loader).Load(ctx)
	if !screen.IsReady(st.Status) {
		return newReply(msg, renderCountry(st)), nil
	}

	var buf bytes.Buffer
	if err := report.WriteXlsx(&buf, st.Series); err != nil {
		return nil, err
	}
	doc := tgbotapi.NewDocument(msg.Chat.ID, tgbotapi.FileBytes{
		Name:  fmt.Sprintf("covid-%s.xlsx", strings.ReplaceAll(st.Country, " ", "_")),
		Bytes: buf.Bytes(),
	})
	doc.ReplyToMessageID = msg.MessageID
	return doc, nil
}

func (h *covidHandler) digest(ctx context.Context, msg tgbotapi.Message, p *prefs.Scoped, user tgbotbase.UserID, chat tgbotbase.ChatID, args string) (tgbotapi.Chattable, error) {
	if strings.EqualFold(args, "off") {
		if err := p.ClearDigest(ctx); err != nil {
			return nil, err
		}
		return newReply(msg, esc("Daily digest is off.")), nil
	}
	at, err := prefs.ParseClock(args)
	if err != nil {
		return nil, usageError{"/digest <HH:MM> | off"}
	}
	if err := p.SetDigestTime(ctx, at); err != nil {
		return nil, err
	}
	h.scheduler.Schedule(prefs.Subscription{User: user, Chat: chat, At: at})
	return newReply(msg, esc(fmt.Sprintf("Daily digest of your last searched country at %s.", prefs.FormatClock(at)))), nil
}
