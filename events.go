package docile

// EventOp identifies what happened to a document.
type EventOp int

const (
	// EventSet fires after a value is stored by the pipeline.
	EventSet EventOp = iota
	// EventClear fires after Delete or Clear; Field is "" for whole-document
	// clears.
	EventClear
	// EventExtend fires when a write dynamically extends the shared schema.
	EventExtend
)

func (op EventOp) String() string {
	switch op {
	case EventSet:
		return "set"
	case EventClear:
		return "clear"
	case EventExtend:
		return "extend"
	}
	return "unknown"
}

// Event describes one observable document change.
type Event struct {
	Op    EventOp
	Field string
	Value any
}

// Subscribe registers an observer for this document's change events. The
// core pipeline does not depend on any subscriber being present; observers
// run synchronously in registration order.
func (d *Document) Subscribe(fn func(Event)) {
	if fn == nil {
		return
	}
	d.subs = append(d.subs, fn)
}

func (d *Document) emit(ev Event) {
	for _, fn := range d.subs {
		fn(ev)
	}
}
