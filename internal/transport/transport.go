// SPDX-License-Identifier: MIT
//
// Package transport publishes engine status snapshots to external
// consumers (UIs, meters, DAW frontends). Transports are fed from the
// control path at a fixed interval; nothing here touches the audio
// callback.
package transport

import "time"

// Transport delivers one status snapshot to a consumer.
type Transport interface {
	Send(data any) error
	Close() error
}

// Publisher polls a status source at a fixed interval and fans each
// snapshot out to its transports.
type Publisher struct {
	source     func() any
	interval   time.Duration
	transports []Transport

	stop chan struct{}
	done chan struct{}
}

// NewPublisher creates a publisher polling source every interval.
func NewPublisher(source func() any, interval time.Duration, transports ...Transport) *Publisher {
	return &Publisher{
		source:     source,
		interval:   interval,
		transports: transports,
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Start begins publishing in a background goroutine.
func (p *Publisher) Start() {
	go p.run()
}

func (p *Publisher) run() {
	defer close(p.done)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stop:
			return
		case <-ticker.C:
			data := p.source()
			for _, t := range p.transports {
				// Send errors are per-consumer; one slow or gone
				// consumer must not stop the others.
				_ = t.Send(data)
			}
		}
	}
}

// Stop halts publishing and closes all transports.
func (p *Publisher) Stop() {
	close(p.stop)
	<-p.done
	for _, t := range p.transports {
		_ = t.Close()
	}
}
