package covidbot

import (
	"context"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"github.com/ilyalavrinov/covidstats/internal/prefs"
	"github.com/ilyalavrinov/covidstats/internal/screen"
	"github.com/ilyalavrinov/covidstats/pkg/tgbotbase"
)

type DigestHandler struct {
	tgbotbase.BaseHandler
	cron   tgbotbase.Cron
	loader screen.CountryLoader
	prefs  *prefs.Store

	mu     sync.Mutex
	ctx    context.Context
	active map[prefs.Subscription]bool
}

var _ tgbotbase.BackgroundMessageHandler = &DigestHandler{}
var _ Scheduler = &DigestHandler{}

func NewDigestHandler(cron tgbotbase.Cron, loader screen.CountryLoader, store *prefs.Store) *DigestHandler {
	return &DigestHandler{
		cron:   cron,
		loader: loader,
		prefs:  store,
		ctx:    context.Background(),
		active: make(map[prefs.Subscription]bool),
	}
}

func (h *DigestHandler) Init(outMsgCh chan<- tgbotapi.Chattable, srvCh chan<- tgbotbase.ServiceMsg) {
	h.OutMsgCh = outMsgCh
}

// Run schedules every stored subscription.
func (h *DigestHandler) Run(ctx context.Context) {
	h.mu.Lock()
	h.ctx = ctx
	h.mu.Unlock()

	subs, err := h.prefs.DigestSubscriptions(ctx)
	if err != nil {
		log.WithField("err", err).Error("Could not load digest subscriptions")
		return
	}
	for _, sub := range subs {
		h.Schedule(sub)
	}
	log.WithField("subscriptions", len(subs)).Info("Digests scheduled")
}

func (h *DigestHandler) Name() string {
	return "daily covid digest"
}

// Schedule starts a daily job unless the same subscription already has one.
func (h *DigestHandler) Schedule(sub prefs.Subscription) {
	h.mu.Lock()
	ctx := h.ctx
	if h.active[sub] {
		h.mu.Unlock()
		return
	}
	h.active[sub] = true
	h.mu.Unlock()

	when := tgbotbase.CalcNextTimeFromMidnight(time.Now(), sub.At)
	log.WithFields(log.Fields{"chat": sub.Chat, "user": sub.User, "when": when}).Debug("Digest scheduled")
	h.cron.AddJob(when, &digestJob{
		ctx:    ctx,
		sub:    sub,
		loader: h.loader,
		prefs:  h.prefs,
		done:   h.drop,

		BaseHandler: tgbotbase.BaseHandler{OutMsgCh: h.OutMsgCh},
	})
}

func (h *DigestHandler) drop(sub prefs.Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.active, sub)
}

type digestJob struct {
	tgbotbase.BaseHandler
	ctx    context.Context
	sub    prefs.Subscription
	loader screen.CountryLoader
	prefs  *prefs.Store
	done   func(prefs.Subscription)
}

var _ tgbotbase.CronJob = &digestJob{}

// Do sends the digest and repeats it a day later while the subscription
// still asks for this time.
func (job *digestJob) Do(scheduledWhen time.Time, cron tgbotbase.Cron) {
	if job.ctx.Err() != nil {
		job.done(job.sub)
		return
	}
	logger := log.WithFields(log.Fields{"chat": job.sub.Chat, "user": job.sub.User})
	p := job.prefs.For(job.sub.User, job.sub.Chat)

	at, subscribed, err := p.DigestTime(job.ctx)
	if err != nil {
		logger.WithField("err", err).Error("Could not check digest subscription")
		cron.AddJob(scheduledWhen.Add(24*time.Hour), job)
		return
	}
	if !subscribed || at != job.sub.At {
		logger.Debug("Digest subscription changed, dropping the job")
		job.done(job.sub)
		return
	}
	defer cron.AddJob(scheduledWhen.Add(24*time.Hour), job)

	country, err := p.LastCountry(job.ctx)
	if err != nil {
		logger.WithField("err", err).Error("Could not read last country")
		return
	}
	if country == "" {
		logger.Debug("No country searched yet, skipping digest")
		return
	}

	st := screen.NewCountryDetail(country, job.loader).Load(job.ctx)
	msg := tgbotapi.NewMessage(int64(job.sub.Chat), esc("Daily digest #covid19")+"\n"+renderCountry(st))
	msg.ParseMode = tgbotapi.ModeMarkdownV2
	msg.DisableWebPagePreview = true
	job.Reply(job.ctx, msg)
}
