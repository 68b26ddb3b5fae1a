package controller

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"shoplist/internal/apperr"
	"shoplist/internal/cache"
	"shoplist/internal/metrics"
	"shoplist/internal/middleware"
	"shoplist/internal/models"
	"shoplist/internal/repository"
	"shoplist/pkg/logger"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/singleflight"
)

// ItemStore is the persistence the items API needs.
type ItemStore interface {
	ListAll(ctx context.Context) ([]models.Item, error)
	Add(ctx context.Context, name string) (models.Item, error)
	Update(ctx context.Context, id int64, f repository.UpdateFields) error
	Toggle(ctx context.Context, id int64) error
	Delete(ctx context.Context, id int64) error
	ClearCompleted(ctx context.Context) (int64, error)
}

// EventPublisher receives a notification after every successful write.
type EventPublisher interface {
	Publish(ctx context.Context, ev *models.ItemEvent) error
}

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, *models.ItemEvent) error { return nil }

// Items serves /api/items.
type Items struct {
	store   ItemStore
	cache   *cache.Items
	events  EventPublisher
	metrics *metrics.Metrics
	group   singleflight.Group
	// writes is bumped after every write so list loads started earlier are
	// never shared with requests that arrive after it.
	writes atomic.Int64
	now    func() time.Time
}

func NewItems(store ItemStore, c *cache.Items, events EventPublisher, m *metrics.Metrics) *Items {
	if events == nil {
		events = noopPublisher{}
	}
	return &Items{store: store, cache: c, events: events, metrics: m, now: time.Now}
}

// List returns every item as JSON, cache first.
func (h *Items) List(c *gin.Context) {
	ctx := c.Request.Context()
	b, ok := h.cache.GetRaw(ctx)
	if h.cache.Enabled() {
		h.metrics.CacheLookup(ok)
	}
	if ok {
		c.Data(http.StatusOK, "application/json; charset=utf-8", b)
		return
	}
	key := "items:" + strconv.FormatInt(h.writes.Load(), 10)
	v, err, _ := h.group.Do(key, func() (interface{}, error) {
		return h.cache.Refresh(context.WithoutCancel(ctx), h.store)
	})
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		middleware.DenyJSON(c, err)
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", v.([]byte))
}

// Create adds an item from {"name": ...} and answers 201 with the new item.
func (h *Items) Create(c *gin.Context) {
	ctx := c.Request.Context()
	var body struct {
		Name *string `json:"name"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.Name == nil {
		middleware.DenyJSON(c, apperr.Validation("name", "Item name is required"))
		return
	}
	it, err := h.store.Add(ctx, *body.Name)
	if err != nil {
		middleware.DenyJSON(c, err)
		return
	}
	completed := it.Completed
	h.afterWrite(ctx, &models.ItemEvent{Action: models.ActionCreated, ID: it.ID, Name: it.Name, Completed: &completed})
	c.JSON(http.StatusCreated, it)
}

// Update applies {"name"?, "completed"?} to an item. Unknown ids succeed silently.
func (h *Items) Update(c *gin.Context) {
	ctx := c.Request.Context()
	id, ok := itemID(c)
	if !ok {
		return
	}
	var body struct {
		Name      *string `json:"name"`
		Completed *bool   `json:"completed"`
	}
	if err := c.ShouldBindJSON(&body); err != nil && !errors.Is(err, io.EOF) {
		middleware.DenyJSON(c, apperr.Validation("body", "Invalid request body"))
		return
	}
	f := repository.UpdateFields{Name: body.Name, Completed: body.Completed}
	if err := h.store.Update(ctx, id, f); err != nil {
		middleware.DenyJSON(c, err)
		return
	}
	if f.Name != nil || f.Completed != nil {
		ev := &models.ItemEvent{Action: models.ActionUpdated, ID: id, Completed: f.Completed}
		if f.Name != nil {
			ev.Name, _ = repository.ValidateName(*f.Name)
		}
		h.afterWrite(ctx, ev)
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Toggle flips an item's completed flag.
func (h *Items) Toggle(c *gin.Context) {
	ctx := c.Request.Context()
	id, ok := itemID(c)
	if !ok {
		return
	}
	if err := h.store.Toggle(ctx, id); err != nil {
		middleware.DenyJSON(c, err)
		return
	}
	h.afterWrite(ctx, &models.ItemEvent{Action: models.ActionToggled, ID: id})
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Delete removes an item.
func (h *Items) Delete(c *gin.Context) {
	ctx := c.Request.Context()
	id, ok := itemID(c)
	if !ok {
		return
	}
	if err := h.store.Delete(ctx, id); err != nil {
		middleware.DenyJSON(c, err)
		return
	}
	h.afterWrite(ctx, &models.ItemEvent{Action: models.ActionDeleted, ID: id})
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// ClearCompleted removes all completed items.
func (h *Items) ClearCompleted(c *gin.Context) {
	ctx := c.Request.Context()
	n, err := h.store.ClearCompleted(ctx)
	if err != nil {
		middleware.DenyJSON(c, err)
		return
	}
	logger.Info(ctx, "Cleared completed items", "count", n)
	h.afterWrite(ctx, &models.ItemEvent{Action: models.ActionCleared})
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Items) afterWrite(ctx context.Context, ev *models.ItemEvent) {
	h.writes.Add(1)
	h.cache.Invalidate(ctx)
	h.metrics.ItemWrite(ev.Action)
	ev.OccurredAt = h.now().UTC()
	if err := h.events.Publish(ctx, ev); err != nil {
		logger.Warn(ctx, "Publish item event failed", "error", err, "action", ev.Action)
	}
}

func itemID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		middleware.DenyJSON(c, apperr.Validation("id", "Invalid item id"))
		return 0, false
	}
	return id, true
}
