package tgbotbase

import (
	"container/heap"
	"context"
	"time"

	log "github.com/sirupsen/logrus"
)

// Cron runs jobs at given moments.
type Cron interface {
	AddJob(when time.Time, job CronJob)
}

// CronJob is called once its time has come. It may add itself again to repeat.
type CronJob interface {
	Do(scheduledWhen time.Time, cron Cron)
}

type scheduledJob struct {
	at  time.Time
	seq uint64
	job CronJob
}

// jobQueue is a min-heap by time; jobs of the same moment keep their order.
type jobQueue []scheduledJob

func (q jobQueue) Len() int { return len(q) }
func (q jobQueue) Less(i, j int) bool {
	if q[i].at.Equal(q[j].at) {
		return q[i].seq < q[j].seq
	}
	return q[i].at.Before(q[j].at)
}
func (q jobQueue) Swap(i, j int)       { q[i], q[j] = q[j], q[i] }
func (q *jobQueue) Push(x interface{}) { *q = append(*q, x.(scheduledJob)) }
func (q *jobQueue) Pop() interface{} {
	old := *q
	last := old[len(old)-1]
	*q = old[:len(old)-1]
	return last
}

type cron struct {
	ctx     context.Context
	newJobs chan scheduledJob
	done    chan struct{}

	queue jobQueue
	seq   uint64
}

// NewCron starts a cron which lives until ctx is done. Jobs added after that
// are dropped.
func NewCron(ctx context.Context) Cron {
	c := &cron{
		ctx:     ctx,
		newJobs: make(chan scheduledJob),
		done:    make(chan struct{}),
	}
	go c.run()
	log.Debug("cron: started")
	return c
}

func (c *cron) AddJob(when time.Time, job CronJob) {
	select {
	case c.newJobs <- scheduledJob{at: when, job: job}:
	case <-c.done:
		log.WithField("at", when).Debug("cron: stopped, dropping job")
	}
}

func (c *cron) run() {
	defer close(c.done)
	timer := time.NewTimer(time.Hour)
	defer timer.Stop()

	for {
		select {
		case j := <-c.newJobs:
			c.seq++
			j.seq = c.seq
			heap.Push(&c.queue, j)
			log.WithFields(log.Fields{"at": j.at, "pending": c.queue.Len()}).Debug("cron: job added")
		case now := <-c.wake(timer):
			c.fire(now)
		case <-c.ctx.Done():
			log.WithField("pending", c.queue.Len()).Debug("cron: stopped")
			return
		}
	}
}

// wake arms the timer for the earliest job. Nil channel when nothing waits.
func (c *cron) wake(timer *time.Timer) <-chan time.Time {
	timer.Stop()
	if c.queue.Len() == 0 {
		return nil
	}
	timer.Reset(time.Until(c.queue[0].at))
	return timer.C
}

// fire starts every job which is due by now, each on its own goroutine.
func (c *cron) fire(now time.Time) {
	started := 0
	for c.queue.Len() > 0 && !c.queue[0].at.After(now) {
		j := heap.Pop(&c.queue).(scheduledJob)
		go j.job.Do(j.at, c)
		started++
	}
	if started > 0 {
		log.WithFields(log.Fields{"jobs": started, "pending": c.queue.Len()}).Debug("cron: jobs started")
	}
}

// CalcNextTimeFromMidnight returns the closest moment not before now which is
// fromMidnight past some midnight in now's location.
func CalcNextTimeFromMidnight(now time.Time, fromMidnight time.Duration) time.Time {
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	nextTime := midnight.Add(fromMidnight)
	if nextTime.Before(now) {
		nextTime = nextTime.Add(24 * time.Hour)
	}
	return nextTime
}
