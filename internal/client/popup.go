package client

import (
	"sync"
	"time"

	"github.com/kamrulhasan12345/brainstormers-server/internal/services"
	"github.com/kamrulhasan12345/brainstormers-server/pkg/metrics"
)

// PopupState is the presenter's animation phase.
type PopupState string

const (
	PopupHidden   PopupState = "hidden"
	PopupEntering PopupState = "entering"
	PopupVisible  PopupState = "visible"
	PopupExiting  PopupState = "exiting"
)

// PopupEvent is delivered to the transition hook on every state change.
type PopupEvent struct {
	State        PopupState
	Notification *services.NotificationDTO
}

const (
	defaultDismissAfter  = 5 * time.Second
	defaultEnterDuration = 300 * time.Millisecond
	defaultExitDuration  = 300 * time.Millisecond
)

// Popup presents one transient notification at a time. Each presentation owns
// a generation number; timers carry the generation they were armed under and
// a fired timer whose generation no longer matches is ignored. That keeps a
// replaced or dismissed popup's timers from touching its successor.
type Popup struct {
	mu            sync.Mutex
	state         PopupState
	current       *services.NotificationDTO
	gen           uint64
	timer         *time.Timer
	dismissAfter  time.Duration
	enterDuration time.Duration
	exitDuration  time.Duration
	navigate      func(link string)
	onTransition  func(PopupEvent)

	// hookMu serialises hook deliveries; pending holds events queued under
	// mu until the triggering call flushes them.
	hookMu  sync.Mutex
	pending []PopupEvent
}

// PopupOption customises a Popup.
type PopupOption func(*Popup)

// WithDismissAfter overrides how long a popup stays visible before
// auto-dismissing.
func WithDismissAfter(d time.Duration) PopupOption {
	return func(p *Popup) {
		if d > 0 {
			p.dismissAfter = d
		}
	}
}

// WithAnimationDurations overrides the enter and exit phase lengths.
func WithAnimationDurations(enter, exit time.Duration) PopupOption {
	return func(p *Popup) {
		if enter >= 0 {
			p.enterDuration = enter
		}
		if exit >= 0 {
			p.exitDuration = exit
		}
	}
}

// WithNavigate sets the callback invoked with the notification's link when
// the popup is tapped.
func WithNavigate(fn func(link string)) PopupOption {
	return func(p *Popup) { p.navigate = fn }
}

// WithTransitionHook registers an observer for state changes. The hook runs
// outside the presenter lock and receives events in transition order; it
// must not call back into the presenter.
func WithTransitionHook(fn func(PopupEvent)) PopupOption {
	return func(p *Popup) { p.onTransition = fn }
}

// NewPopup constructs an idle presenter.
func NewPopup(opts ...PopupOption) *Popup {
	p := &Popup{
		state:         PopupHidden,
		dismissAfter:  defaultDismissAfter,
		enterDuration: defaultEnterDuration,
		exitDuration:  defaultExitDuration,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Present shows a notification. A presentation already on screen is replaced
// immediately and its pending timers defused; the dismiss countdown restarts
// from zero for the new notification.
func (p *Popup) Present(notification *services.NotificationDTO) {
	if notification == nil {
		return
	}

	defer p.flush()
	p.mu.Lock()
	p.gen++
	gen := p.gen
	p.stopTimerLocked()
	p.current = notification
	p.setStateLocked(PopupEntering)
	metrics.PopupsShown.Inc()

	if p.enterDuration == 0 {
		p.becomeVisibleLocked(gen)
		p.mu.Unlock()
		return
	}
	p.timer = time.AfterFunc(p.enterDuration, func() { p.enterElapsed(gen) })
	p.mu.Unlock()
}

// Dismiss starts the exit transition for the current popup, if any.
func (p *Popup) Dismiss() {
	defer p.flush()
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != PopupEntering && p.state != PopupVisible {
		return
	}
	p.beginExitLocked(p.gen)
}

// Tap dismisses the popup and routes to the notification's link, matching a
// user tapping the banner.
func (p *Popup) Tap() {
	defer p.flush()
	p.mu.Lock()
	if p.state != PopupEntering && p.state != PopupVisible || p.current == nil {
		p.mu.Unlock()
		return
	}
	link := p.current.Link
	navigate := p.navigate
	p.beginExitLocked(p.gen)
	p.mu.Unlock()

	if navigate != nil && link != "" {
		navigate(link)
	}
}

// Stop hides the presenter immediately and defuses all pending timers. Used
// on unmount; no exit animation runs.
func (p *Popup) Stop() {
	defer p.flush()
	p.mu.Lock()
	defer p.mu.Unlock()

	p.gen++
	p.stopTimerLocked()
	p.current = nil
	p.setStateLocked(PopupHidden)
}

// State returns the current animation phase.
func (p *Popup) State() PopupState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Current returns the notification on screen, or nil when hidden.
func (p *Popup) Current() *services.NotificationDTO {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

func (p *Popup) enterElapsed(gen uint64) {
	defer p.flush()
	p.mu.Lock()
	defer p.mu.Unlock()

	if gen != p.gen {
		return
	}
	p.becomeVisibleLocked(gen)
}

func (p *Popup) becomeVisibleLocked(gen uint64) {
	p.setStateLocked(PopupVisible)
	p.timer = time.AfterFunc(p.dismissAfter, func() { p.autoDismiss(gen) })
}

func (p *Popup) autoDismiss(gen uint64) {
	defer p.flush()
	p.mu.Lock()
	defer p.mu.Unlock()

	if gen != p.gen || p.state != PopupVisible {
		return
	}
	p.beginExitLocked(gen)
}

func (p *Popup) beginExitLocked(gen uint64) {
	p.stopTimerLocked()
	p.setStateLocked(PopupExiting)

	if p.exitDuration == 0 {
		p.finishExitLocked(gen)
		return
	}
	p.timer = time.AfterFunc(p.exitDuration, func() { p.exitElapsed(gen) })
}

func (p *Popup) exitElapsed(gen uint64) {
	defer p.flush()
	p.mu.Lock()
	defer p.mu.Unlock()

	if gen != p.gen {
		return
	}
	p.finishExitLocked(gen)
}

func (p *Popup) finishExitLocked(_ uint64) {
	p.current = nil
	p.setStateLocked(PopupHidden)
}

func (p *Popup) setStateLocked(state PopupState) {
	p.state = state
	if p.onTransition == nil {
		return
	}
	p.pending = append(p.pending, PopupEvent{State: state, Notification: p.current})
}

// flush delivers queued transition events to the hook. Whoever holds hookMu
// drains everything queued so far, so observers see transitions in the order
// they happened even when a timer and a caller race.
func (p *Popup) flush() {
	p.hookMu.Lock()
	defer p.hookMu.Unlock()

	for {
		p.mu.Lock()
		events := p.pending
		p.pending = nil
		hook := p.onTransition
		p.mu.Unlock()

		if len(events) == 0 || hook == nil {
			return
		}
		for _, event := range events {
			hook(event)
		}
	}
}

func (p *Popup) stopTimerLocked() {
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
}
