package chartz

import (
	"context"
	"fmt"
	"sync"

	"github.com/zoobzio/capitan"
)

// Theme is the active color scheme.
type Theme string

const (
	// ThemeLight is the default theme.
	ThemeLight Theme = "light"

	// ThemeDark is the dark theme.
	ThemeDark Theme = "dark"
)

// ParseTheme converts a theme name. An empty name yields ThemeLight.
func ParseTheme(name string) (Theme, error) {
	switch Theme(name) {
	case "", ThemeLight:
		return ThemeLight, nil
	case ThemeDark:
		return ThemeDark, nil
	default:
		return "", fmt.Errorf("chartz: unknown theme %q", name)
	}
}

// Dark reports whether t is the dark theme.
func (t Theme) Dark() bool {
	return t == ThemeDark
}

// ThemeSource is an observable theme value.
type ThemeSource interface {
	Theme() Theme
	Subscribe(fn func(Theme)) (unsubscribe func())
}

// ThemeProvider holds the active theme and notifies subscribers on change.
// It is shared by every pipeline on a dashboard.
type ThemeProvider struct {
	mu      sync.Mutex
	theme   Theme
	subs    map[uint64]func(Theme)
	nextSub uint64
}

// NewThemeProvider creates a provider starting at theme.
func NewThemeProvider(theme Theme) *ThemeProvider {
	if theme == "" {
		theme = ThemeLight
	}
	return &ThemeProvider{theme: theme, subs: make(map[uint64]func(Theme))}
}

// Theme returns the active theme.
func (p *ThemeProvider) Theme() Theme {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.theme
}

// Set switches the theme. Subscribers are notified only when the theme
// actually changes.
func (p *ThemeProvider) Set(ctx context.Context, theme Theme) {
	p.mu.Lock()
	if theme == p.theme {
		p.mu.Unlock()
		return
	}
	p.theme = theme
	subs := make([]func(Theme), 0, len(p.subs))
	for _, fn := range p.subs {
		subs = append(subs, fn)
	}
	p.mu.Unlock()

	capitan.Emit(ctx, ThemeChanged, KeyTheme.Field(string(theme)))

	for _, fn := range subs {
		fn(theme)
	}
}

// Toggle switches between light and dark and returns the new theme.
func (p *ThemeProvider) Toggle(ctx context.Context) Theme {
	next := ThemeDark
	if p.Theme().Dark() {
		next = ThemeLight
	}
	p.Set(ctx, next)
	return next
}

// Subscribe registers fn for theme changes.
func (p *ThemeProvider) Subscribe(fn func(Theme)) (unsubscribe func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := p.nextSub
	p.nextSub++
	p.subs[id] = fn

	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.subs, id)
	}
}

var _ ThemeSource = (*ThemeProvider)(nil)
