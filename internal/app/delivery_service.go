// internal/app/delivery_service.go
package app

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"daily365_bot/internal/domain/clock"
	"daily365_bot/internal/domain/content"
	"daily365_bot/internal/domain/delivery"
	"daily365_bot/internal/domain/subscriber"
	idb "daily365_bot/internal/infra/database" // For ErrSlotNotFound

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// Outcome is the result of evaluating one subscriber during a pass.
type Outcome string

const (
	OutcomeAlreadyDelivered Outcome = "already_delivered"
	OutcomeSlotMissing      Outcome = "slot_missing"
	OutcomeNotDue           Outcome = "not_due"
	OutcomeEmptyBody        Outcome = "empty_body"
	OutcomeDelivered        Outcome = "delivered"
	OutcomeDeactivated      Outcome = "deactivated"
	OutcomeTransientFailure Outcome = "transient_failure"
	OutcomeBusy             Outcome = "busy" // Subscriber still held by an overlapping evaluation
	OutcomeError            Outcome = "error"
)

// persistTimeout bounds the state writes that follow a send. They run detached from the
// pass context so a pass deadline cannot drop the record of a message that already went out.
const persistTimeout = 10 * time.Second

// DeliveryOptions tunes a DeliveryService.
type DeliveryOptions struct {
	ProcessLocation *time.Location // Defines "today"; UTC when nil
	DeliveryTimeout time.Duration  // Per gateway call
	Workers         int            // Subscribers evaluated concurrently
}

// PassSummary tallies one evaluation pass.
type PassSummary struct {
	Date      time.Time
	Evaluated int
	Outcomes  map[Outcome]int
	Duration  time.Duration
}

// Count returns how many subscribers ended with outcome o.
func (p PassSummary) Count(o Outcome) int { return p.Outcomes[o] }

func (p PassSummary) fields() logrus.Fields {
	f := logrus.Fields{
		"date":        p.Date.Format("2006-01-02"),
		"evaluated":   p.Evaluated,
		"duration_ms": p.Duration.Milliseconds(),
	}
	for o, n := range p.Outcomes {
		f[string(o)] = n
	}
	return f
}

// DeliveryService runs the daily curriculum delivery pass.
type DeliveryService struct {
	subscriberRepo subscriber.Repository
	contentRepo    content.Repository
	gateway        delivery.Gateway
	publisher      delivery.EventPublisher
	clock          clock.Clock
	opts           DeliveryOptions
	logger         *logrus.Entry

	inFlight sync.Map // subscriber ID -> *sync.Mutex
}

func NewDeliveryService(
	sr subscriber.Repository,
	cr content.Repository,
	gw delivery.Gateway,
	pub delivery.EventPublisher,
	clk clock.Clock,
	opts DeliveryOptions,
	logger *logrus.Entry,
) *DeliveryService {
	if opts.ProcessLocation == nil {
		opts.ProcessLocation = time.UTC
	}
	if opts.DeliveryTimeout <= 0 {
		opts.DeliveryTimeout = 10 * time.Second
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if pub == nil {
		pub = delivery.NopPublisher{}
	}
	if clk == nil {
		clk = clock.SystemClock{}
	}
	return &DeliveryService{
		subscriberRepo: sr,
		contentRepo:    cr,
		gateway:        gw,
		publisher:      pub,
		clock:          clk,
		opts:           opts,
		logger:         logger,
	}
}

// RunPass evaluates every active subscriber once. It fails only when the active
// subscribers cannot be listed; per-subscriber problems are logged and counted.
func (s *DeliveryService) RunPass(ctx context.Context) (PassSummary, error) {
	wallStart := time.Now()
	now := s.clock.Now().In(s.opts.ProcessLocation)
	today := clock.DateOf(now)
	summary := PassSummary{Date: today, Outcomes: make(map[Outcome]int)}

	subscribers, err := s.subscriberRepo.ListActive(ctx)
	if err != nil {
		s.logger.WithError(err).Error("Failed to list active subscribers; skipping pass")
		return summary, fmt.Errorf("failed to list active subscribers: %w", err)
	}
	s.logger.WithField("active_subscribers", len(subscribers)).Debug("Delivery pass started")

	pc := newPassCache(s.contentRepo)
	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(s.opts.Workers)
	for _, sub := range subscribers {
		g.Go(func() error {
			outcome := s.evaluateIsolated(ctx, sub, now, today, pc)
			mu.Lock()
			summary.Outcomes[outcome]++
			mu.Unlock()
			return nil // Failures never stop the other subscribers
		})
	}
	_ = g.Wait()

	summary.Evaluated = len(subscribers)
	summary.Duration = time.Since(wallStart)

	entry := s.logger.WithFields(summary.fields())
	if summary.Count(OutcomeDelivered)+summary.Count(OutcomeDeactivated)+summary.Count(OutcomeError) > 0 {
		entry.Info("Delivery pass finished")
	} else {
		entry.Debug("Delivery pass finished")
	}
	return summary, nil
}

// evaluateIsolated serializes work per subscriber and turns panics into OutcomeError.
func (s *DeliveryService) evaluateIsolated(ctx context.Context, sub *subscriber.Subscriber, now, today time.Time, pc *passCache) (outcome Outcome) {
	logCtx := s.subscriberLogger(sub)

	lockAny, _ := s.inFlight.LoadOrStore(sub.ID, &sync.Mutex{})
	lock := lockAny.(*sync.Mutex)
	if !lock.TryLock() {
		logCtx.Warn("Subscriber is still being evaluated by an earlier pass; skipping")
		return OutcomeBusy
	}
	defer lock.Unlock()

	defer func() {
		if r := recover(); r != nil {
			logCtx.WithField("panic", r).Error("Unexpected failure while evaluating subscriber")
			outcome = OutcomeError
		}
	}()

	outcome, err := s.evaluate(ctx, sub, now, today, pc)
	if err != nil {
		logCtx.WithError(err).WithField("outcome", outcome).Error("Error while evaluating subscriber")
	}
	return outcome
}

// evaluate decides send / skip / advance for one subscriber.
func (s *DeliveryService) evaluate(ctx context.Context, sub *subscriber.Subscriber, now, today time.Time, pc *passCache) (Outcome, error) {
	logCtx := s.subscriberLogger(sub)

	if sub.DeliveredOn(today) {
		return OutcomeAlreadyDelivered, nil
	}

	loc, known := pc.location(sub.Timezone)
	if !known {
		logCtx.WithField("timezone", sub.Timezone).Debug("Unknown timezone, evaluating as UTC")
	}
	localNow := now.In(loc)

	slot, err := pc.slot(ctx, sub.CurrentSlot)
	if err != nil {
		if errors.Is(err, idb.ErrSlotNotFound) {
			logCtx.Warn("No content slot configured for subscriber's current day; skipping")
			return OutcomeSlotMissing, nil
		}
		return OutcomeError, fmt.Errorf("failed to load content slot %d: %w", sub.CurrentSlot, err)
	}

	if !slot.SendTime.Matches(localNow) {
		return OutcomeNotDue, nil
	}

	if slot.IsEmpty() {
		logCtx.Warn("Content slot is empty, nothing to send")
		return OutcomeEmptyBody, nil
	}

	return s.deliver(ctx, sub, slot, today)
}

func (s *DeliveryService) deliver(ctx context.Context, sub *subscriber.Subscriber, slot *content.Slot, today time.Time) (Outcome, error) {
	logCtx := s.subscriberLogger(sub)

	sendCtx, cancel := context.WithTimeout(ctx, s.opts.DeliveryTimeout)
	result := s.gateway.Send(sendCtx, sub.TelegramID, slot.Body)
	cancel()

	persistCtx, cancelPersist := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancelPersist()

	event := delivery.Event{
		SubscriberID: sub.ID,
		TelegramID:   sub.TelegramID,
		Slot:         sub.CurrentSlot,
		Date:         today.Format("2006-01-02"),
		OccurredAt:   s.clock.Now(),
	}

	switch result.Status {
	case delivery.StatusDelivered:
		if err := s.subscriberRepo.RecordDelivery(persistCtx, sub.ID, sub.CurrentSlot, today); err != nil {
			// The message is out but progress was not saved; the next tick may send it again.
			return OutcomeError, fmt.Errorf("message sent but progress not saved: %w", err)
		}
		event.Type = delivery.EventDelivered
		event.NextSlot = subscriber.NextSlot(sub.CurrentSlot)
		logCtx.WithField("next_slot", event.NextSlot).Info("Delivered daily message")
		s.publish(persistCtx, event)
		return OutcomeDelivered, nil

	case delivery.StatusPermanentFailure:
		logCtx.WithError(result.Err).Warn("Recipient unreachable; deactivating subscriber")
		if err := s.subscriberRepo.Deactivate(persistCtx, sub.ID); err != nil {
			return OutcomeError, fmt.Errorf("failed to deactivate unreachable subscriber: %w", err)
		}
		event.Type = delivery.EventDeactivated
		event.Error = errString(result.Err)
		s.publish(persistCtx, event)
		return OutcomeDeactivated, nil

	default:
		logCtx.WithError(result.Err).Warn("Transient delivery failure; will retry on a later tick")
		event.Type = delivery.EventTransientFailure
		event.Error = errString(result.Err)
		s.publish(persistCtx, event)
		return OutcomeTransientFailure, nil
	}
}

func (s *DeliveryService) publish(ctx context.Context, event delivery.Event) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"event_type":    event.Type,
			"subscriber_id": event.SubscriberID,
		}).Warn("Failed to publish delivery event")
	}
}

func (s *DeliveryService) subscriberLogger(sub *subscriber.Subscriber) *logrus.Entry {
	return s.logger.WithFields(logrus.Fields{
		"subscriber_id": sub.ID,
		"telegram_id":   sub.TelegramID,
		"slot":          sub.CurrentSlot,
	})
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// passCache memoizes slot and zone lookups for the duration of a single pass.
type passCache struct {
	contentRepo content.Repository
	group       singleflight.Group

	mu      sync.Mutex
	slots   map[int]*content.Slot
	missing map[int]bool
	zones   map[string]zoneEntry
}

func newPassCache(cr content.Repository) *passCache {
	return &passCache{
		contentRepo: cr,
		slots:       make(map[int]*content.Slot),
		missing:     make(map[int]bool),
		zones:       make(map[string]zoneEntry),
	}
}

func (c *passCache) slot(ctx context.Context, number int) (*content.Slot, error) {
	c.mu.Lock()
	if s, ok := c.slots[number]; ok {
		c.mu.Unlock()
		return s, nil
	}
	if c.missing[number] {
		c.mu.Unlock()
		return nil, idb.ErrSlotNotFound
	}
	c.mu.Unlock()

	v, err, _ := c.group.Do(strconv.Itoa(number), func() (any, error) {
		return c.contentRepo.GetByNumber(ctx, number)
	})

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		if errors.Is(err, idb.ErrSlotNotFound) {
			c.missing[number] = true
		}
		return nil, err
	}
	s := v.(*content.Slot)
	c.slots[number] = s
	return s, nil
}

// location resolves a zone name, reporting whether it was known. Unknown names map to UTC.
func (c *passCache) location(name string) (*time.Location, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if z, ok := c.zones[name]; ok {
		return z.loc, z.known
	}
	z := zoneEntry{loc: clock.ResolveLocation(name), known: clock.IsKnownLocation(name)}
	c.zones[name] = z
	return z.loc, z.known
}

type zoneEntry struct {
	loc   *time.Location
	known bool
}
