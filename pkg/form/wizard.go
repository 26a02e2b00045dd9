package form

import (
	"github.com/goliatone/go-formengine/pkg/schema"
	"github.com/goliatone/go-formengine/pkg/wizard"
)

// WizardState summarises multi-step navigation for renderers.
type WizardState struct {
	Current  int     `json:"current"`
	Total    int     `json:"total"`
	Progress float64 `json:"progress"`
	Visited  []int   `json:"visited"`
}

// installWizard derives pages from the current schema, resetting the
// existing controller so the current page survives schema edits. Must be
// called with the lock held.
func (f *Form) installWizard() {
	if !f.cfg.Wizard.Enabled {
		f.wizard = nil
		return
	}
	pages := wizard.DerivePages(f.nodes, f.registry, f.cfg.Wizard.PageType)
	if f.wizard != nil {
		f.wizard.Reset(pages)
		return
	}
	f.wizard = wizard.New(pages,
		wizard.WithLinear(f.cfg.Wizard.IsLinear()),
		wizard.WithBreadcrumbJump(f.cfg.Wizard.BreadcrumbJump),
		wizard.WithPageValidator(f.validatePage),
		wizard.WithVisibility(func(node *schema.Node) bool {
			return f.result.IsVisible(node)
		}),
		wizard.WithLogger(f.logger),
	)
}

// validatePage gates navigation on the page's visible inputs. It runs
// inside wizard calls made with the form lock held.
func (f *Form) validatePage(page wizard.Page) bool {
	keys := page.InputKeys()
	if len(keys) == 0 {
		return true
	}
	return f.revalidate(keys).Empty()
}

// Pages returns the wizard pages, or nil when the wizard is disabled.
func (f *Form) Pages() []wizard.Page {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.wizard == nil {
		return nil
	}
	return f.wizard.Pages()
}

// Page returns the current wizard page.
func (f *Form) Page() (wizard.Page, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.wizard == nil {
		return wizard.Page{}, false
	}
	return f.wizard.CurrentPage()
}

// Next advances the wizard, validating the current page in linear mode.
func (f *Form) Next() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.wizard != nil && f.wizard.Next()
}

// Prev moves the wizard back without validating.
func (f *Form) Prev() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.wizard != nil && f.wizard.Prev()
}

// GoTo jumps the wizard to page index.
func (f *Form) GoTo(index int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.wizard != nil && f.wizard.GoTo(index)
}

// Wizard reports the navigation state. The zero value is returned when the
// wizard is disabled.
func (f *Form) Wizard() WizardState {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.wizard == nil {
		return WizardState{}
	}
	pages := f.wizard.Pages()
	state := WizardState{
		Current:  f.wizard.Current(),
		Total:    len(pages),
		Progress: f.wizard.Progress(),
	}
	for idx := range pages {
		if f.wizard.Visited(idx) {
			state.Visited = append(state.Visited, idx)
		}
	}
	return state
}
