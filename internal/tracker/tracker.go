// Package tracker keeps per-user saved scholarships, their application
// status, document checklist and reminder, plus favorited colleges.
//
// Every mutation reads the user's whole map, changes it and writes it back.
// Unsaving only drops the id from the saved set; the tracked item stays so a
// later re-save restores its checklist progress.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/p-n-ai/careercompass/internal/activity"
	"github.com/p-n-ai/careercompass/internal/catalog"
	"github.com/p-n-ai/careercompass/internal/platform/clock"
	"github.com/p-n-ai/careercompass/internal/platform/kvstore"
	"github.com/p-n-ai/careercompass/internal/platform/metrics"
)

// Status is an application progress label. Any status may follow any other.
type Status string

const (
	StatusPlanning   Status = "planning"
	StatusInProgress Status = "in_progress"
	StatusSubmitted  Status = "submitted"
	StatusAwarded    Status = "awarded"
	StatusRejected   Status = "rejected"
)

// Statuses lists the valid statuses in display order.
var Statuses = []Status{StatusPlanning, StatusInProgress, StatusSubmitted, StatusAwarded, StatusRejected}

// DefaultDocuments seeds the checklist of items that declare none.
var DefaultDocuments = []string{
	"Identity proof",
	"Income certificate",
	"Previous year mark sheet",
	"Bank account details",
	"Passport size photograph",
}

var (
	ErrInvalidStatus = errors.New("tracker: invalid status")
	ErrNotTracked    = errors.New("tracker: item not tracked")
	ErrMissingID     = errors.New("tracker: item id is required")
	ErrMissingDoc    = errors.New("tracker: document name is required")
)

// ParseStatus validates a status label.
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	if slices.Contains(Statuses, st) {
		return st, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
}

// Item is the tracked state of one saved scholarship.
type Item struct {
	ID           string          `json:"id"`
	Name         string          `json:"name,omitempty"`
	Deadline     string          `json:"deadline,omitempty"`
	Status       Status          `json:"status"`
	ReminderDate *time.Time      `json:"reminderDate,omitempty"`
	Checklist    map[string]bool `json:"checklist"`
	SavedAt      time.Time       `json:"savedAt"`
}

// Progress reports how many checklist documents are ticked.
func (it Item) Progress() (done, total int) {
	for _, checked := range it.Checklist {
		if checked {
			done++
		}
	}
	return done, len(it.Checklist)
}

// SuggestReminder proposes a reminder five days before deadline. When that
// moment has passed it proposes 09:00 tomorrow in now's location. A missing
// or unparseable deadline yields nil.
func SuggestReminder(deadline string, now time.Time) *time.Time {
	d, ok := catalog.ParseDeadline(deadline, now.Location())
	if !ok {
		return nil
	}
	target := d.AddDate(0, 0, -5)
	if target.Before(now) {
		y, m, day := now.AddDate(0, 0, 1).Date()
		target = time.Date(y, m, day, 9, 0, 0, 0, now.Location())
	}
	return &target
}

// Tracker stores tracker state in a key-value store.
type Tracker struct {
	store   kvstore.Store
	clock   clock.Clock
	events  activity.Logger
	metrics *metrics.Metrics

	mu    sync.Mutex
	users map[string]*sync.Mutex
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithClock sets the time source for reminders and timestamps.
func WithClock(c clock.Clock) Option {
	return func(t *Tracker) { t.clock = c }
}

// WithEvents sets the analytics logger.
func WithEvents(l activity.Logger) Option {
	return func(t *Tracker) { t.events = l }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(t *Tracker) { t.metrics = m }
}

// New creates a Tracker backed by store.
func New(store kvstore.Store, opts ...Option) *Tracker {
	t := &Tracker{
		store:  store,
		clock:  clock.System{},
		events: activity.Nop{},
		users:  make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// lock serializes read-modify-write cycles for one user.
func (t *Tracker) lock(userID string) func() {
	t.mu.Lock()
	mu, ok := t.users[userID]
	if !ok {
		mu = &sync.Mutex{}
		t.users[userID] = mu
	}
	t.mu.Unlock()

	mu.Lock()
	return mu.Unlock
}

func (t *Tracker) loadSaved(ctx context.Context, userID string) []string {
	return kvstore.Load(ctx, t.store, kvstore.Scoped(userID, kvstore.KeySavedScholarships), []string{})
}

func (t *Tracker) loadItems(ctx context.Context, userID string) map[string]Item {
	items := kvstore.Load(ctx, t.store, kvstore.Scoped(userID, kvstore.KeyScholarshipTracker), map[string]Item{})
	if items == nil {
		items = map[string]Item{}
	}
	return items
}

func (t *Tracker) saveItems(ctx context.Context, userID string, items map[string]Item) error {
	return kvstore.Save(ctx, t.store, kvstore.Scoped(userID, kvstore.KeyScholarshipTracker), items)
}

// ToggleSave flips rec's membership in the saved set and reports whether it
// is now saved.
func (t *Tracker) ToggleSave(ctx context.Context, userID string, rec catalog.Record) (bool, error) {
	if rec.ID == "" {
		return false, ErrMissingID
	}
	unlock := t.lock(userID)
	defer unlock()

	if slices.Contains(t.loadSaved(ctx, userID), rec.ID) {
		return false, t.unsave(ctx, userID, rec.ID)
	}
	_, err := t.save(ctx, userID, rec)
	return err == nil, err
}

// Save adds rec to the saved set. Saving an already-saved item changes
// nothing.
func (t *Tracker) Save(ctx context.Context, userID string, rec catalog.Record) (Item, error) {
	if rec.ID == "" {
		return Item{}, ErrMissingID
	}
	unlock := t.lock(userID)
	defer unlock()
	return t.save(ctx, userID, rec)
}

// Unsave removes id from the saved set and keeps its tracked item.
func (t *Tracker) Unsave(ctx context.Context, userID, id string) error {
	unlock := t.lock(userID)
	defer unlock()
	return t.unsave(ctx, userID, id)
}

func (t *Tracker) save(ctx context.Context, userID string, rec catalog.Record) (Item, error) {
	saved := t.loadSaved(ctx, userID)
	items := t.loadItems(ctx, userID)

	item, tracked := items[rec.ID]
	if !tracked {
		now := t.clock.Now()
		docs := rec.Documents
		if len(docs) == 0 {
			docs = DefaultDocuments
		}
		checklist := make(map[string]bool, len(docs))
		for _, d := range docs {
			checklist[d] = false
		}
		item = Item{
			ID:           rec.ID,
			Name:         rec.Name,
			Deadline:     rec.Deadline,
			Status:       StatusPlanning,
			ReminderDate: SuggestReminder(rec.Deadline, now),
			Checklist:    checklist,
			SavedAt:      now,
		}
		items[rec.ID] = item
		if err := t.saveItems(ctx, userID, items); err != nil {
			return Item{}, fmt.Errorf("seed tracked item: %w", err)
		}
	}

	if slices.Contains(saved, rec.ID) {
		return item, nil
	}
	saved = append(saved, rec.ID)
	if err := kvstore.Save(ctx, t.store, kvstore.Scoped(userID, kvstore.KeySavedScholarships), saved); err != nil {
		return Item{}, fmt.Errorf("save scholarship: %w", err)
	}

	t.metrics.Tracker("save")
	activity.Emit(ctx, t.events, activity.Event{
		UserID: userID,
		Type:   activity.TrackerSaved,
		Data:   map[string]any{"item_id": rec.ID, "restored": tracked},
	})
	slog.Debug("scholarship saved", "user_id", userID, "item_id", rec.ID, "restored", tracked)
	return item, nil
}

func (t *Tracker) unsave(ctx context.Context, userID, id string) error {
	saved := t.loadSaved(ctx, userID)
	i := slices.Index(saved, id)
	if i < 0 {
		return nil
	}
	saved = slices.Delete(saved, i, i+1)
	if err := kvstore.Save(ctx, t.store, kvstore.Scoped(userID, kvstore.KeySavedScholarships), saved); err != nil {
		return fmt.Errorf("unsave scholarship: %w", err)
	}

	t.metrics.Tracker("unsave")
	activity.Emit(ctx, t.events, activity.Event{
		UserID: userID,
		Type:   activity.TrackerUnsaved,
		Data:   map[string]any{"item_id": id},
	})
	return nil
}

// update applies fn to the tracked item id and persists the whole map.
func (t *Tracker) update(ctx context.Context, userID, id string, fn func(*Item) error) (Item, error) {
	unlock := t.lock(userID)
	defer unlock()

	items := t.loadItems(ctx, userID)
	item, ok := items[id]
	if !ok {
		return Item{}, fmt.Errorf("%w: %s", ErrNotTracked, id)
	}
	if err := fn(&item); err != nil {
		return Item{}, err
	}
	items[id] = item
	if err := t.saveItems(ctx, userID, items); err != nil {
		return Item{}, fmt.Errorf("update tracked item: %w", err)
	}
	return item, nil
}

// SetStatus relabels a tracked item.
func (t *Tracker) SetStatus(ctx context.Context, userID, id, status string) (Item, error) {
	st, err := ParseStatus(status)
	if err != nil {
		return Item{}, err
	}
	var prev Status
	item, err := t.update(ctx, userID, id, func(it *Item) error {
		prev = it.Status
		it.Status = st
		return nil
	})
	if err != nil {
		return Item{}, err
	}

	t.metrics.Tracker("status")
	activity.Emit(ctx, t.events, activity.Event{
		UserID: userID,
		Type:   activity.TrackerStatus,
		Data:   map[string]any{"item_id": id, "from": string(prev), "to": string(st)},
	})
	return item, nil
}

// SetChecklistItem ticks or unticks a document. Documents not yet on the
// checklist are added.
func (t *Tracker) SetChecklistItem(ctx context.Context, userID, id, doc string, checked bool) (Item, error) {
	doc = strings.TrimSpace(doc)
	if doc == "" {
		return Item{}, ErrMissingDoc
	}
	item, err := t.update(ctx, userID, id, func(it *Item) error {
		if it.Checklist == nil {
			it.Checklist = make(map[string]bool)
		}
		it.Checklist[doc] = checked
		return nil
	})
	if err != nil {
		return Item{}, err
	}
	t.metrics.Tracker("checklist")
	return item, nil
}

// SetReminder stores the suggested reminder for a tracked rec and returns it.
// The result is nil when rec has no usable deadline.
func (t *Tracker) SetReminder(ctx context.Context, userID string, rec catalog.Record) (*time.Time, error) {
	deadline := rec.Deadline
	item, err := t.update(ctx, userID, rec.ID, func(it *Item) error {
		if deadline == "" {
			deadline = it.Deadline
		} else {
			it.Deadline = deadline
		}
		it.ReminderDate = SuggestReminder(deadline, t.clock.Now())
		return nil
	})
	if err != nil {
		return nil, err
	}

	t.metrics.Tracker("reminder")
	data := map[string]any{"item_id": rec.ID}
	if item.ReminderDate != nil {
		data["reminder"] = item.ReminderDate.Format(time.RFC3339)
	}
	activity.Emit(ctx, t.events, activity.Event{UserID: userID, Type: activity.TrackerReminder, Data: data})
	return item.ReminderDate, nil
}

// Saved returns the saved ids in save order.
func (t *Tracker) Saved(ctx context.Context, userID string) []string {
	return t.loadSaved(ctx, userID)
}

// Items returns every tracked item, saved or not, oldest first.
func (t *Tracker) Items(ctx context.Context, userID string) []Item {
	items := t.loadItems(ctx, userID)
	out := make([]Item, 0, len(items))
	for _, it := range items {
		out = append(out, it)
	}
	slices.SortFunc(out, func(a, b Item) int {
		if c := a.SavedAt.Compare(b.SavedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out
}

// Item returns one tracked item.
func (t *Tracker) Item(ctx context.Context, userID, id string) (Item, bool) {
	it, ok := t.loadItems(ctx, userID)[id]
	return it, ok
}

// ToggleFavorite flips a college in the favorites set and reports whether it
// is now a favorite.
func (t *Tracker) ToggleFavorite(ctx context.Context, userID, collegeID string) (bool, error) {
	if collegeID == "" {
		return false, ErrMissingID
	}
	unlock := t.lock(userID)
	defer unlock()

	key := kvstore.Scoped(userID, kvstore.KeyFavoriteColleges)
	favs := kvstore.Load(ctx, t.store, key, []string{})

	favorite := true
	if i := slices.Index(favs, collegeID); i >= 0 {
		favs = slices.Delete(favs, i, i+1)
		favorite = false
	} else {
		favs = append(favs, collegeID)
	}
	if err := kvstore.Save(ctx, t.store, key, favs); err != nil {
		return false, fmt.Errorf("save favorites: %w", err)
	}

	t.metrics.Tracker("favorite")
	activity.Emit(ctx, t.events, activity.Event{
		UserID: userID,
		Type:   activity.FavoriteToggled,
		Data:   map[string]any{"college_id": collegeID, "favorite": favorite},
	})
	return favorite, nil
}

// Favorites returns the favorited college ids.
func (t *Tracker) Favorites(ctx context.Context, userID string) []string {
	return kvstore.Load(ctx, t.store, kvstore.Scoped(userID, kvstore.KeyFavoriteColleges), []string{})
}
