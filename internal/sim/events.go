package sim

import (
	"fmt"
	"strings"

	"autohand/internal/grabbable"
	"autohand/internal/hand"
)

type EventKind int

const (
	EventGrab EventKind = iota
	EventRelease
	EventThrow
	EventForcedRelease
	EventJointBreak
	EventSqueeze
	EventPull
)

var eventKindNames = map[EventKind]string{
	EventGrab:          "grab",
	EventRelease:       "release",
	EventThrow:         "throw",
	EventForcedRelease: "forcedRelease",
	EventJointBreak:    "jointBreak",
	EventSqueeze:       "squeeze",
	EventPull:          "pull",
}

func (k EventKind) String() string {
	if s, ok := eventKindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("EventKind(%d)", int(k))
}

// Event is one grab life-cycle transition seen during a run.
type Event struct {
	Tick   int
	Kind   EventKind
	Hand   string
	Object string
}

func (e Event) String() string {
	return fmt.Sprintf("%5d %-13s %-12s %s", e.Tick, e.Kind, e.Hand, e.Object)
}

// EventLog records grab events in the order they fire.
type EventLog struct {
	events []Event
}

func (l *EventLog) All() []Event { return l.events }

func (l *EventLog) Count(kind EventKind) int {
	n := 0
	for _, e := range l.events {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

// Of returns the events of kind in firing order.
func (l *EventLog) Of(kind EventKind) []Event {
	var out []Event
	for _, e := range l.events {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

func (l *EventLog) add(w *World, kind EventKind, handName, object string) {
	l.events = append(l.events, Event{Tick: w.tick, Kind: kind, Hand: handName, Object: object})
}

func objectName(g *grabbable.Grabbable) string {
	if g == nil || g.GetGameObject() == nil {
		return ""
	}
	return g.GetGameObject().Name
}

func (l *EventLog) watchHand(w *World, name string, h *hand.Hand) {
	h.OnGrabbed.AddListener(func(e hand.GrabEvent) {
		l.add(w, EventGrab, name, objectName(e.Grabbable))
	})
	h.OnReleased.AddListener(func(e hand.GrabEvent) {
		kind := EventRelease
		if e.Grabbable != nil && e.Grabbable.IsThrowing() {
			kind = EventThrow
		}
		l.add(w, kind, name, objectName(e.Grabbable))
	})
	h.OnForcedRelease.AddListener(func(e hand.GrabEvent) {
		l.add(w, EventForcedRelease, name, objectName(e.Grabbable))
	})
	h.OnSqueezed.AddListener(func(e hand.GrabEvent) {
		l.add(w, EventSqueeze, name, objectName(e.Grabbable))
	})
}

func (l *EventLog) watchPuller(w *World, name string, d *hand.DistanceGrabber) {
	d.OnPull.AddListener(func(t *grabbable.DistanceGrabbable) {
		l.add(w, EventPull, name, objectName(t.Grabbable()))
	})
}

func (l *EventLog) watchGrabbable(w *World, name string, g *grabbable.Grabbable) {
	g.OnJointBroken.AddListener(func(h grabbable.Holder) {
		handName := ""
		if hh, ok := h.(*hand.Hand); ok {
			handName = hh.GetGameObject().Name
		}
		l.add(w, EventJointBreak, handName, name)
	})
}

// Summary counts events by kind.
type Summary struct {
	Name   string
	Ticks  int
	Counts map[EventKind]int
	Held   map[string]string
}

// Summarize reports what happened so far and what each hand holds now.
func (w *World) Summarize(name string) Summary {
	s := Summary{Name: name, Ticks: w.tick, Counts: make(map[EventKind]int), Held: make(map[string]string)}
	for _, e := range w.log.events {
		s.Counts[e.Kind]++
	}
	for el := w.hands.Front(); el != nil; el = el.Next() {
		s.Held[el.Key] = objectName(el.Value.Holding())
	}
	return s
}

func (s Summary) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %d ticks", s.Name, s.Ticks)
	for k := EventGrab; k <= EventPull; k++ {
		fmt.Fprintf(&b, " %s=%d", k, s.Counts[k])
	}
	return b.String()
}
