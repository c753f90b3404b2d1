package dom

const KeyEnter = 13

type (
	Event interface {
		Type() string
		Target() Element
		Detail() interface{}
		KeyCode() int
		Bubbles() bool
		PreventDefault()
		DefaultPrevented() bool
		StopPropagation()
		PropagationStopped() bool
	}

	EventHandler func(Event)

	// EventInit holds the options of NewEvent.
	EventInit struct {
		Bubbles    bool
		Cancelable bool
		Detail     interface{}
		KeyCode    int
	}

	// BasicEvent is the Event used by backends without a native event
	// object, and by TriggerEvent style helpers.
	BasicEvent struct {
		typ       string
		init      EventInit
		target    Element
		prevented bool
		stopped   bool
	}
)

func NewEvent(typ string, init EventInit) *BasicEvent {
	return &BasicEvent{typ: typ, init: init}
}

func (e *BasicEvent) Type() string        { return e.typ }
func (e *BasicEvent) Target() Element     { return e.target }
func (e *BasicEvent) Detail() interface{} { return e.init.Detail }
func (e *BasicEvent) KeyCode() int        { return e.init.KeyCode }
func (e *BasicEvent) Bubbles() bool       { return e.init.Bubbles }
func (e *BasicEvent) Cancelable() bool    { return e.init.Cancelable }

// SetTarget is called by the dispatching backend.
func (e *BasicEvent) SetTarget(el Element) {
	e.target = el
}

func (e *BasicEvent) PreventDefault() {
	if e.init.Cancelable {
		e.prevented = true
	}
}

func (e *BasicEvent) DefaultPrevented() bool   { return e.prevented }
func (e *BasicEvent) StopPropagation()         { e.stopped = true }
func (e *BasicEvent) PropagationStopped() bool { return e.stopped }
