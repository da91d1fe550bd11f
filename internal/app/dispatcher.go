package app

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"
)

// Dispatcher forwards messages from background goroutines (the scheduler)
// into the running program. Messages sent before a target is attached are
// dropped.
type Dispatcher struct {
	mu   sync.Mutex
	send func(tea.Msg)
}

// NewDispatcher returns a dispatcher delivering to send, which may be nil
// until Attach is called.
func NewDispatcher(send func(tea.Msg)) *Dispatcher {
	return &Dispatcher{send: send}
}

// Attach routes messages to p.
func (d *Dispatcher) Attach(p *tea.Program) {
	d.mu.Lock()
	d.send = p.Send
	d.mu.Unlock()
}

// Send delivers msg. It may block until the program reads it and returns
// once the program has exited.
func (d *Dispatcher) Send(msg tea.Msg) {
	if d == nil {
		return
	}
	d.mu.Lock()
	send := d.send
	d.mu.Unlock()
	if send != nil {
		send(msg)
	}
}
