package app

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"daily365_bot/internal/domain/admin"
	"daily365_bot/internal/domain/content"
	"daily365_bot/internal/domain/delivery"
	"daily365_bot/internal/domain/settings"
	"daily365_bot/internal/domain/subscriber"
	idb "daily365_bot/internal/infra/database"
)

// memSubscriberRepo keeps subscribers in memory and hands out copies.
type memSubscriberRepo struct {
	mu        sync.Mutex
	nextID    int64
	rows      map[int64]*subscriber.Subscriber
	listErr   error
	recordErr error
}

var _ subscriber.Repository = (*memSubscriberRepo)(nil)

func newMemSubscriberRepo() *memSubscriberRepo {
	return &memSubscriberRepo{rows: make(map[int64]*subscriber.Subscriber)}
}

// add stores s as-is (after assigning an ID) and returns the ID.
func (r *memSubscriberRepo) add(s subscriber.Subscriber) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	s.ID = r.nextID
	r.rows[s.ID] = &s
	return s.ID
}

func (r *memSubscriberRepo) get(id int64) subscriber.Subscriber {
	r.mu.Lock()
	defer r.mu.Unlock()
	return *r.rows[id]
}

func (r *memSubscriberRepo) Create(_ context.Context, s *subscriber.Subscriber) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.TelegramID == s.TelegramID {
			return idb.ErrDuplicateTelegramID
		}
	}
	r.nextID++
	s.ID = r.nextID
	s.CreatedAt = time.Now()
	s.StartedAt = s.CreatedAt
	cp := *s
	r.rows[s.ID] = &cp
	return nil
}

func (r *memSubscriberRepo) GetByID(_ context.Context, id int64) (*subscriber.Subscriber, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return nil, idb.ErrSubscriberNotFound
	}
	cp := *row
	return &cp, nil
}

func (r *memSubscriberRepo) GetByTelegramID(_ context.Context, telegramID int64) (*subscriber.Subscriber, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.TelegramID == telegramID {
			cp := *row
			return &cp, nil
		}
	}
	return nil, idb.ErrSubscriberNotFound
}

func (r *memSubscriberRepo) ListActive(ctx context.Context) ([]*subscriber.Subscriber, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	all, _ := r.ListAll(ctx)
	active := all[:0]
	for _, s := range all {
		if s.IsActive {
			active = append(active, s)
		}
	}
	return active, nil
}

func (r *memSubscriberRepo) ListAll(_ context.Context) ([]*subscriber.Subscriber, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*subscriber.Subscriber, 0, len(r.rows))
	for _, row := range r.rows {
		cp := *row
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memSubscriberRepo) Count(_ context.Context) (int, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	active := 0
	for _, row := range r.rows {
		if row.IsActive {
			active++
		}
	}
	return len(r.rows), active, nil
}

func (r *memSubscriberRepo) RecordDelivery(_ context.Context, id int64, fromSlot int, date time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.recordErr != nil {
		return r.recordErr
	}
	row, ok := r.rows[id]
	if !ok {
		return idb.ErrSubscriberNotFound
	}
	if row.CurrentSlot != fromSlot {
		return idb.ErrStaleSubscriber
	}
	row.CurrentSlot = subscriber.NextSlot(fromSlot)
	row.LastDeliveryDate = sql.NullTime{Time: date, Valid: true}
	return nil
}

func (r *memSubscriberRepo) Deactivate(_ context.Context, id int64) error {
	return r.mutate(id, func(s *subscriber.Subscriber) { s.IsActive = false })
}

func (r *memSubscriberRepo) Reactivate(_ context.Context, id int64) error {
	return r.mutate(id, func(s *subscriber.Subscriber) { s.IsActive = true })
}

func (r *memSubscriberRepo) UpdateTimezone(_ context.Context, id int64, timezone string) error {
	return r.mutate(id, func(s *subscriber.Subscriber) { s.Timezone = timezone })
}

func (r *memSubscriberRepo) UpdateUsername(_ context.Context, id int64, username string) error {
	return r.mutate(id, func(s *subscriber.Subscriber) { s.Username = sql.NullString{String: username, Valid: true} })
}

func (r *memSubscriberRepo) mutate(id int64, fn func(s *subscriber.Subscriber)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return idb.ErrSubscriberNotFound
	}
	fn(row)
	return nil
}

// memContentRepo serves a sparse set of slots and counts lookups.
type memContentRepo struct {
	mu      sync.Mutex
	slots   map[int]*content.Slot
	lookups int
	getErr  error
}

var _ content.Repository = (*memContentRepo)(nil)

func newMemContentRepo() *memContentRepo {
	return &memContentRepo{slots: make(map[int]*content.Slot)}
}

func (r *memContentRepo) put(number int, body string, at content.SendTime) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.slots[number] = &content.Slot{Number: number, Body: body, SendTime: at}
}

func (r *memContentRepo) GetByNumber(_ context.Context, number int) (*content.Slot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lookups++
	if r.getErr != nil {
		return nil, r.getErr
	}
	s, ok := r.slots[number]
	if !ok {
		return nil, idb.ErrSlotNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *memContentRepo) ListAll(_ context.Context) ([]*content.Slot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*content.Slot, 0, len(r.slots))
	for _, s := range r.slots {
		cp := *s
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

func (r *memContentRepo) Update(_ context.Context, slot *content.Slot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.slots[slot.Number]; !ok {
		return idb.ErrSlotNotFound
	}
	cp := *slot
	r.slots[slot.Number] = &cp
	return nil
}

func (r *memContentRepo) EnsureSlots(_ context.Context, total int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	created := 0
	for n := 1; n <= total; n++ {
		if _, ok := r.slots[n]; !ok {
			r.slots[n] = &content.Slot{Number: n, SendTime: content.DefaultSendTime}
			created++
		}
	}
	return created, nil
}

type memSettingsRepo struct {
	mu     sync.Mutex
	values map[string]string
}

var _ settings.Repository = (*memSettingsRepo)(nil)

func newMemSettingsRepo() *memSettingsRepo {
	return &memSettingsRepo{values: make(map[string]string)}
}

func (r *memSettingsRepo) Get(_ context.Context, key string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.values[key]
	if !ok {
		return "", idb.ErrSettingNotFound
	}
	return v, nil
}

func (r *memSettingsRepo) Set(_ context.Context, key, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values[key] = value
	return nil
}

func (r *memSettingsRepo) SetDefault(_ context.Context, key, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.values[key]; !ok {
		r.values[key] = value
	}
	return nil
}

type memAdminRepo struct {
	mu  sync.Mutex
	ids map[int64]time.Time
}

var _ admin.Repository = (*memAdminRepo)(nil)

func newMemAdminRepo() *memAdminRepo {
	return &memAdminRepo{ids: make(map[int64]time.Time)}
}

func (r *memAdminRepo) IsAdmin(_ context.Context, telegramID int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.ids[telegramID]
	return ok, nil
}

func (r *memAdminRepo) Add(_ context.Context, telegramID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.ids[telegramID]; !ok {
		r.ids[telegramID] = time.Now()
	}
	return nil
}

func (r *memAdminRepo) Remove(_ context.Context, telegramID int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.ids[telegramID]
	delete(r.ids, telegramID)
	return ok, nil
}

func (r *memAdminRepo) List(_ context.Context) ([]*admin.Admin, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*admin.Admin, 0, len(r.ids))
	for id, at := range r.ids {
		out = append(out, &admin.Admin{TelegramID: id, GrantedAt: at})
	}
	return out, nil
}

type sentMessage struct {
	RecipientID int64
	Text        string
}

// fakeGateway delivers everything unless told otherwise per recipient.
type fakeGateway struct {
	mu       sync.Mutex
	results  map[int64]delivery.Result
	panicFor map[int64]bool
	block    bool // Wait for the context to expire
	sent     []sentMessage
}

var _ delivery.Gateway = (*fakeGateway)(nil)

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		results:  make(map[int64]delivery.Result),
		panicFor: make(map[int64]bool),
	}
}

func (g *fakeGateway) Send(ctx context.Context, recipientID int64, text string) delivery.Result {
	g.mu.Lock()
	block := g.block
	shouldPanic := g.panicFor[recipientID]
	result, scripted := g.results[recipientID]
	g.mu.Unlock()

	if shouldPanic {
		panic("gateway exploded")
	}
	if block {
		<-ctx.Done()
		return delivery.TransientFailure(ctx.Err())
	}
	if !scripted {
		result = delivery.Delivered()
	}
	if result.OK() {
		g.mu.Lock()
		g.sent = append(g.sent, sentMessage{RecipientID: recipientID, Text: text})
		g.mu.Unlock()
	}
	return result
}

func (g *fakeGateway) script(recipientID int64, r delivery.Result) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.results[recipientID] = r
}

func (g *fakeGateway) messages() []sentMessage {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]sentMessage(nil), g.sent...)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []delivery.Event
	err    error
}

var _ delivery.EventPublisher = (*recordingPublisher)(nil)

func (p *recordingPublisher) Publish(_ context.Context, e delivery.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

func (p *recordingPublisher) recorded() []delivery.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]delivery.Event(nil), p.events...)
}
