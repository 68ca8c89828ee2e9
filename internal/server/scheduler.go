package server

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/gorhill/cronexpr"
	"github.com/redis/go-redis/v9"

	"github.com/mohammad-safakhou/arxiv-digest/config"
	"github.com/mohammad-safakhou/arxiv-digest/internal/auth"
	"github.com/mohammad-safakhou/arxiv-digest/internal/digest"
)

// Locker grants one replica the right to fire a given schedule slot.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

type redisLocker struct {
	rdb *redis.Client
}

func NewRedisLocker(rdb *redis.Client) Locker { return &redisLocker{rdb: rdb} }

func (l *redisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return l.rdb.SetNX(ctx, key, "1", ttl).Result()
}

// Scheduler fires digest runs on a cron schedule, as the static-token identity.
type Scheduler struct {
	expr     *cronexpr.Expression
	req      digest.CollectRequest
	pipeline Collector
	lock     Locker
	interval time.Duration
	lockTTL  time.Duration
	logger   *log.Logger
	now      func() time.Time

	last time.Time
	stop chan struct{}
	once sync.Once
	wg   sync.WaitGroup
}

func NewScheduler(cfg config.SchedulerConfig, pipeline Collector, lock Locker) (*Scheduler, error) {
	expr, err := cronexpr.Parse(cfg.Cron)
	if err != nil {
		return nil, fmt.Errorf("invalid scheduler.cron %q: %w", cfg.Cron, err)
	}
	req := digest.CollectRequest{
		Categories:    cfg.Categories,
		MaxResults:    cfg.MaxResults,
		IncludeAudio:  cfg.IncludeAudio,
		IncludeImages: cfg.IncludeImages,
		DryRun:        cfg.DryRun,
		Title:         cfg.Title,
	}
	if len(req.Categories) == 0 {
		req.Categories = digest.DefaultCategories()
	}
	if req.MaxResults <= 0 {
		req.MaxResults = digest.DefaultMaxResults
	}
	interval := cfg.PollInterval
	if interval <= 0 {
		interval = time.Minute
	}
	ttl := cfg.LockTTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Scheduler{
		expr:     expr,
		req:      req,
		pipeline: pipeline,
		lock:     lock,
		interval: interval,
		lockTTL:  ttl,
		logger:   log.New(log.Writer(), "[SCHED] ", log.LstdFlags),
		now:      time.Now,
		stop:     make(chan struct{}),
	}, nil
}

// Start polls the schedule until ctx is done or Stop is called. The first slot considered
// is the one after Start.
func (s *Scheduler) Start(ctx context.Context) {
	s.last = s.now()
	ticker := time.NewTicker(s.interval)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stop:
				return
			case <-ticker.C:
				s.tick(ctx)
			}
		}
	}()
}

func (s *Scheduler) Stop() {
	s.once.Do(func() { close(s.stop) })
	s.wg.Wait()
}

// tick fires at most one run for the most recent due slot.
func (s *Scheduler) tick(ctx context.Context) {
	now := s.now()
	if !isDue(s.expr, s.last, now) {
		return
	}
	slot := s.expr.Next(s.last)
	for next := s.expr.Next(slot); !next.IsZero() && !next.After(now); next = s.expr.Next(slot) {
		slot = next
	}
	s.last = now

	if s.lock != nil {
		key := "digest:sched:lock:" + strconv.FormatInt(slot.Unix(), 10)
		ok, err := s.lock.Acquire(ctx, key, s.lockTTL)
		if err != nil {
			s.logger.Printf("lock %s failed: %v", key, err)
			return
		}
		if !ok {
			s.logger.Printf("slot %s taken by another replica", slot.Format(time.RFC3339))
			return
		}
	}

	s.logger.Printf("firing slot %s", slot.Format(time.RFC3339))
	res, err := s.pipeline.Run(ctx, auth.TokenIdentity(), s.req)
	if err != nil {
		s.logger.Printf("scheduled run failed: %v", err)
		return
	}
	s.logger.Printf("scheduled run done note=%s papers=%d warnings=%d", res.NoteFile, len(res.Papers), len(res.Warnings))
}

// isDue reports whether a slot of expr falls in (last, now].
func isDue(expr *cronexpr.Expression, last, now time.Time) bool {
	next := expr.Next(last)
	return !next.IsZero() && !next.After(now)
}
