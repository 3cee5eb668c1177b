// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

// Package workflow drives the provisioning wizard: a linear sequence of stages, an
// optional selected workflow that is prefixed to the stage name to pick the visible
// panel, a forward gate, and the action log of the current panel.
package workflow

import (
	"fmt"
	"slices"
	"sync"

	"go.uber.org/zap"
	"k8s.io/apimachinery/pkg/util/sets"
)

// Identity is the signed-in user shown in the wizard header.
type Identity struct {
	DisplayName string
	Initials    string
	Thumbnail   string
	OrgName     string
}

// Panel describes a registered panel as it should currently be rendered.
type Panel struct {
	Key         string
	Visible     bool
	NextEnabled bool
}

// Controller owns the wizard state. All methods are safe for concurrent use;
// state-change observers run outside the lock and may call back into the controller.
type Controller struct {
	mu        sync.Mutex
	stage     Stage
	option    string
	allowNext bool
	gated     sets.Set[Stage]
	panels    []string
	actions   []*Action
	observers []func(combined string)
	identity  Identity
	log       *zap.Logger
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger used for state changes and observer failures.
func WithLogger(log *zap.Logger) Option {
	return func(c *Controller) {
		if log != nil {
			c.log = log
		}
	}
}

// WithGatedStages replaces the stages that require EnableNext before Advance.
func WithGatedStages(stages ...Stage) Option {
	return func(c *Controller) {
		c.gated = sets.New(stages...)
	}
}

// WithPanels registers panel keys.
func WithPanels(keys ...string) Option {
	return func(c *Controller) {
		for _, k := range keys {
			c.registerPanel(k)
		}
	}
}

// NewController starts at the login stage with no option selected and the gate closed.
func NewController(opts ...Option) *Controller {
	c := &Controller{
		stage: StageLogin,
		gated: sets.New(StageLogin, StageSelectOption, StageUploadFile, StageReview),
		log:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Stage returns the current stage.
func (c *Controller) Stage() Stage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stage
}

// Option returns the selected workflow, or "" when none is selected.
func (c *Controller) Option() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.option
}

// CombinedState returns the selected option followed by the stage name.
func (c *Controller) CombinedState() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return CombinedKey(c.option, c.stage)
}

// AllowNext reports whether Advance would succeed.
func (c *Controller) AllowNext() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.canAdvance()
}

func (c *Controller) canAdvance() bool {
	return c.stage < lastStage && (!c.gated.Has(c.stage) || c.allowNext)
}

// Advance moves forward one stage. It returns false at the last stage or while the
// current stage is gated and the gate is closed.
func (c *Controller) Advance() bool {
	c.mu.Lock()
	if !c.canAdvance() {
		c.mu.Unlock()
		return false
	}
	combined := c.setStateLocked(c.stage + 1)
	c.mu.Unlock()

	c.notify(combined)
	return true
}

// Retreat moves back one stage. It returns false at the first stage.
func (c *Controller) Retreat() bool {
	c.mu.Lock()
	if c.stage == StageLogin {
		c.mu.Unlock()
		return false
	}
	combined := c.setStateLocked(c.stage - 1)
	c.mu.Unlock()

	c.notify(combined)
	return true
}

// SelectOption chooses a workflow and moves forward one stage from wherever the
// controller is. It ignores an empty name and the last stage.
func (c *Controller) SelectOption(name string) bool {
	c.mu.Lock()
	if name == "" || c.stage == lastStage {
		c.mu.Unlock()
		return false
	}
	c.option = name
	combined := c.setStateLocked(c.stage + 1)
	c.mu.Unlock()

	c.notify(combined)
	return true
}

// Logout returns to the login stage and forgets the option and identity.
func (c *Controller) Logout() {
	c.mu.Lock()
	c.option = ""
	c.identity = Identity{}
	combined := c.setStateLocked(StageLogin)
	c.mu.Unlock()

	c.notify(combined)
}

// setStateLocked switches stage, closes the gate and detaches the current actions.
// It returns the new combined key for observers.
func (c *Controller) setStateLocked(stage Stage) string {
	from := CombinedKey(c.option, c.stage)
	if stage == StageSelectOption {
		c.option = ""
	}
	c.stage = stage
	c.allowNext = false
	for _, a := range c.actions {
		a.detached = true
	}
	c.actions = nil

	combined := CombinedKey(c.option, c.stage)
	c.log.Debug("stage changed", zap.String("from", from), zap.String("to", combined))
	return combined
}

// OnStateChange registers fn to be called with the combined key after every state
// change, in registration order.
func (c *Controller) OnStateChange(fn func(combined string)) {
	if fn == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observers = append(c.observers, fn)
}

func (c *Controller) notify(combined string) {
	c.mu.Lock()
	observers := slices.Clone(c.observers)
	c.mu.Unlock()

	for i, fn := range observers {
		c.call(i, fn, combined)
	}
}

func (c *Controller) call(i int, fn func(string), combined string) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error("state change observer panicked",
				zap.Int("observer", i),
				zap.String("state", combined),
				zap.String("panic", fmt.Sprint(r)))
		}
	}()
	fn(combined)
}

// EnableNext opens the forward gate of the current stage.
func (c *Controller) EnableNext() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.allowNext = true
}

// DisableNext closes the forward gate of the current stage.
func (c *Controller) DisableNext() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.allowNext = false
}

// RegisterPanel adds a panel key. Registering a key twice has no effect.
func (c *Controller) RegisterPanel(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.registerPanel(key)
}

func (c *Controller) registerPanel(key string) {
	if key == "" || slices.Contains(c.panels, key) {
		return
	}
	c.panels = append(c.panels, key)
}

// Panels returns every registered panel in registration order. Only the panel whose
// key equals the combined state is visible.
func (c *Controller) Panels() []Panel {
	c.mu.Lock()
	defer c.mu.Unlock()

	combined := CombinedKey(c.option, c.stage)
	next := c.canAdvance()
	out := make([]Panel, len(c.panels))
	for i, key := range c.panels {
		visible := key == combined
		out[i] = Panel{Key: key, Visible: visible, NextEnabled: visible && next}
	}
	return out
}

// AddAction appends an action to the current panel. Unknown icons become IconLoading.
func (c *Controller) AddAction(title string, icon Icon) *Action {
	a := &Action{c: c, title: title, icon: ParseIcon(string(icon))}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.actions = append(c.actions, a)
	return a
}

// Actions returns snapshots of the current panel's actions in insertion order.
func (c *Controller) Actions() []ActionSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]ActionSnapshot, len(c.actions))
	for i, a := range c.actions {
		out[i] = a.snapshot()
	}
	return out
}

// SetIdentity records the signed-in user.
func (c *Controller) SetIdentity(id Identity) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.identity = id
}

// Identity returns the signed-in user, or the zero Identity.
func (c *Controller) Identity() Identity {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.identity
}
