package wizard

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/goliatone/go-formengine/pkg/schema"
)

// PageValidator reports whether every input on page is valid.
type PageValidator func(page Page) bool

// VisibilityFunc reports whether a page node is currently shown.
type VisibilityFunc func(node *schema.Node) bool

// Controller tracks the current page and the set of visited pages. Safe for
// concurrent use.
type Controller struct {
	mu         sync.Mutex
	pages      []Page
	current    int
	visited    map[int]struct{}
	linear     bool
	breadcrumb bool
	validate   PageValidator
	visible    VisibilityFunc
	logger     zerolog.Logger
}

// Option configures a Controller.
type Option func(*Controller)

// WithLinear toggles the validation gate on forward navigation. Controllers
// are linear by default.
func WithLinear(linear bool) Option {
	return func(c *Controller) {
		c.linear = linear
	}
}

// WithBreadcrumbJump allows GoTo to jump to pages not yet visited.
func WithBreadcrumbJump(enabled bool) Option {
	return func(c *Controller) {
		c.breadcrumb = enabled
	}
}

// WithPageValidator sets the validation gate.
func WithPageValidator(fn PageValidator) Option {
	return func(c *Controller) {
		c.validate = fn
	}
}

// WithVisibility lets navigation skip pages hidden by conditions.
func WithVisibility(fn VisibilityFunc) Option {
	return func(c *Controller) {
		c.visible = fn
	}
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Controller) {
		c.logger = logger
	}
}

// New constructs a controller positioned on the first visible page.
func New(pages []Page, opts ...Option) *Controller {
	c := &Controller{
		linear:  true,
		visited: make(map[int]struct{}),
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	c.logger = c.logger.With().Str("component", "wizard").Logger()
	c.pages = pages
	c.current = c.firstVisible()
	if len(c.pages) > 0 {
		c.visited[c.current] = struct{}{}
	}
	return c
}

// Current returns the current page index.
func (c *Controller) Current() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// CurrentPage returns the current page.
func (c *Controller) CurrentPage() (Page, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current < 0 || c.current >= len(c.pages) {
		return Page{}, false
	}
	return c.pages[c.current], true
}

// Pages returns the derived pages.
func (c *Controller) Pages() []Page {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Page(nil), c.pages...)
}

// Visited reports whether page index has been shown.
func (c *Controller) Visited(index int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.visited[index]
	return ok
}

// Next advances to the following visible page. In linear mode the current
// page must validate first.
func (c *Controller) Next() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	next := c.step(c.current, 1)
	if next < 0 {
		return false
	}
	if !c.gate() {
		return false
	}
	c.move(next)
	return true
}

// Prev moves to the preceding visible page without validating.
func (c *Controller) Prev() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	prev := c.step(c.current, -1)
	if prev < 0 {
		return false
	}
	c.move(prev)
	return true
}

// GoTo jumps to page index. Jumping to a page not yet visited requires
// breadcrumb jumps; jumping forward in linear mode requires the current
// page to validate.
func (c *Controller) GoTo(index int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if index < 0 || index >= len(c.pages) || !c.shown(index) {
		return false
	}
	if index == c.current {
		return true
	}
	if _, seen := c.visited[index]; !seen && !c.breadcrumb {
		c.logger.Debug().Int("page", index).Msg("jump refused: page not visited")
		return false
	}
	if index > c.current && !c.gate() {
		return false
	}
	c.move(index)
	return true
}

// Progress returns how far through the visible pages the current page is,
// from 0 to 100. A single page is 100.
func (c *Controller) Progress() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	position, total := -1, 0
	for idx := range c.pages {
		if !c.shown(idx) {
			continue
		}
		if idx == c.current {
			position = total
		}
		total++
	}
	switch {
	case total == 0 || position < 0:
		return 0
	case total == 1:
		return 100
	}
	return float64(position) / float64(total-1) * 100
}

// Reset replaces the pages after a schema change. The current and visited
// pages are carried over by key where they still exist.
func (c *Controller) Reset(pages []Page) {
	c.mu.Lock()
	defer c.mu.Unlock()
	byKey := make(map[string]int, len(pages))
	for idx, page := range pages {
		if page.Key != "" {
			byKey[page.Key] = idx
		}
	}
	remap := func(idx int) (int, bool) {
		if idx < 0 || idx >= len(c.pages) {
			return 0, false
		}
		next, ok := byKey[c.pages[idx].Key]
		return next, ok
	}

	visited := make(map[int]struct{}, len(c.visited))
	for idx := range c.visited {
		if next, ok := remap(idx); ok {
			visited[next] = struct{}{}
		}
	}
	current, ok := remap(c.current)

	c.pages = pages
	c.visited = visited
	if !ok || !c.shown(current) {
		current = c.firstVisible()
	}
	c.current = current
	if len(pages) > 0 {
		c.visited[current] = struct{}{}
	}
}

func (c *Controller) gate() bool {
	if !c.linear || c.validate == nil {
		return true
	}
	if c.current < 0 || c.current >= len(c.pages) {
		return true
	}
	if !c.validate(c.pages[c.current]) {
		c.logger.Debug().Int("page", c.current).Msg("navigation blocked by validation")
		return false
	}
	return true
}

func (c *Controller) move(index int) {
	c.current = index
	c.visited[index] = struct{}{}
}

// step returns the nearest visible page from index in direction, or -1.
func (c *Controller) step(index, direction int) int {
	for idx := index + direction; idx >= 0 && idx < len(c.pages); idx += direction {
		if c.shown(idx) {
			return idx
		}
	}
	return -1
}

func (c *Controller) shown(index int) bool {
	if c.visible == nil {
		return true
	}
	return c.visible(c.pages[index].Node)
}

func (c *Controller) firstVisible() int {
	for idx := range c.pages {
		if c.shown(idx) {
			return idx
		}
	}
	return 0
}
