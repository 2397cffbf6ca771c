package schedule

// Observer is notified after a successful schedule change. Observers run on
// the caller's goroutine after the store lock has been released.
type Observer func(prev, next Schedule)

// Port is the surface configuration handlers (HTTP, MQTT) use to read and
// update the shared Store.
type Port struct {
	store     *Store
	observers []Observer
}

// NewPort wraps store. Observers are called in order on every accepted change.
func NewPort(store *Store, observers ...Observer) *Port {
	return &Port{store: store, observers: observers}
}

// DisplaySchedule returns the stored schedule in 24-hour form.
func (p *Port) DisplaySchedule() (hour24, minute int) {
	s := p.store.Get()
	return s.Hour, s.Minute
}

// ApplySchedule validates and stores a new 24-hour schedule. A rejected
// request returns a *ValidationError and leaves the stored value as it was.
func (p *Port) ApplySchedule(hour24, minute int) error {
	next := Schedule{Hour: hour24, Minute: minute}
	prev, err := p.store.swap(next)
	if err != nil {
		return err
	}
	for _, obs := range p.observers {
		obs(prev, next)
	}
	return nil
}
