// Package presence hides and shows the host actor.
//
// Every call is refused while moves are locked, either by an active guard
// window or by a transition attempt in progress. The lock is supplied by the
// caller so this package does not depend on either.
package presence

import (
	"log"
	"strings"

	apperrors "github.com/louisbranch/autohidehost/internal/platform/errors"
	"github.com/louisbranch/autohidehost/internal/services/autohide/domain/host"
)

// Method names how the host is hidden.
type Method string

const (
	MethodWarp      Method = "warp"
	MethodInvisible Method = "invisible"
	MethodOffmap    Method = "offmap"
)

var methodAliases = map[string]Method{
	"warp":          MethodWarp,
	"teleport":      MethodWarp,
	"invisible":     MethodInvisible,
	"offmap":        MethodOffmap,
	"out-of-bounds": MethodOffmap,
}

// ParseMethod resolves a configured method name, accepting aliases in any
// case. ok is false for unknown names.
func ParseMethod(name string) (Method, bool) {
	m, ok := methodAliases[strings.ToLower(strings.TrimSpace(name))]
	return m, ok
}

var (
	// FallbackTarget is where unknown methods warp the host.
	FallbackTarget = host.Placement{Location: "Desert"}
	// ShowTarget is the host's normal spawn on the farm.
	ShowTarget = host.Placement{Location: "Farm", Tile: host.Tile{X: 64, Y: 15}}
	// OffmapPosition is a pixel position outside every map.
	OffmapPosition = host.Vector{X: -999999, Y: -999999}
)

// Errors returned when moves are locked.
var (
	ErrGuardActive = apperrors.New(apperrors.CodePresenceGuardActive,
		"host moves are locked while a participant is joining")
	ErrTransitionInProgress = apperrors.New(apperrors.CodePresenceTransitionInProgress,
		"host moves are locked while a day transition is in progress")
)

// Controller tracks whether the host is hidden and performs hide/show moves.
type Controller struct {
	placer host.Placer
	locked func() error
	logf   func(string, ...any)
	hidden bool
	method Method
}

// NewController builds a controller. locked returns a non-nil error when
// moves must be refused; nil means moves are always allowed.
func NewController(placer host.Placer, locked func() error, logf func(string, ...any)) *Controller {
	if logf == nil {
		logf = log.Printf
	}
	return &Controller{placer: placer, locked: locked, logf: logf}
}

// Hidden reports whether the host was last hidden by this controller.
func (c *Controller) Hidden() bool {
	return c.hidden
}

// Method reports the method used by the last successful hide.
func (c *Controller) Method() Method {
	return c.method
}

// Hide hides the host using method. An unknown method logs a warning and
// warps to FallbackTarget instead of failing.
func (c *Controller) Hide(method string, target host.Placement) error {
	if err := c.check(); err != nil {
		return err
	}
	m, ok := ParseMethod(method)
	if !ok {
		c.logf("presence: unknown hide method %q, warping to %s", method, FallbackTarget)
		m, target = MethodWarp, FallbackTarget
	}
	if m == MethodWarp && target.IsZero() {
		target = FallbackTarget
	}

	var err error
	switch m {
	case MethodWarp:
		err = c.placer.WarpHost(target)
	case MethodInvisible:
		if err = c.placer.SetHostInvisible(true); err == nil {
			err = c.placer.SetHostInvincible(true)
		}
	case MethodOffmap:
		err = c.placer.SetHostPixelPosition(OffmapPosition)
	}
	if err != nil {
		return apperrors.Wrap(apperrors.CodeCollaboratorFailed, "hide host ("+string(m)+")", err)
	}
	c.hidden = true
	c.method = m
	return nil
}

// Show returns the host to the farm and clears presence markers. It is a
// no-op when the host is already shown.
func (c *Controller) Show() error {
	if !c.hidden {
		return nil
	}
	if err := c.check(); err != nil {
		return err
	}
	if err := c.placer.WarpHost(ShowTarget); err != nil {
		return apperrors.Wrap(apperrors.CodeCollaboratorFailed, "show host", err)
	}
	if err := c.placer.SetHostInvisible(false); err != nil {
		return apperrors.Wrap(apperrors.CodeCollaboratorFailed, "clear invisible", err)
	}
	if err := c.placer.SetHostInvincible(false); err != nil {
		return apperrors.Wrap(apperrors.CodeCollaboratorFailed, "clear invincible", err)
	}
	c.hidden = false
	c.method = ""
	return nil
}

// Toggle shows a hidden host or hides a shown one.
func (c *Controller) Toggle(method string, target host.Placement) error {
	if c.hidden {
		return c.Show()
	}
	return c.Hide(method, target)
}

// Forget clears the hidden flag without moving the host, used when the game
// relocated the host on its own (a new day wakes it in bed).
func (c *Controller) Forget() {
	c.hidden = false
	c.method = ""
}

func (c *Controller) check() error {
	if c.locked == nil {
		return nil
	}
	return c.locked()
}
