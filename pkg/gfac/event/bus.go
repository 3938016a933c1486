// Licensed to the Apache Software Foundation (ASF) under one
// or more contributor license agreements.  See the NOTICE file
// distributed with this work for additional information
// regarding copyright ownership.  The ASF licenses this file
// to you under the Apache License, Version 2.0 (the
// "License"); you may not use this file except in compliance
// with the License.  You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing,
// software distributed under the License is distributed on an
// "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
// KIND, either express or implied.  See the License for the
// specific language governing permissions and limitations
// under the License.

package event

import (
	"context"
	"fmt"
	"sync"

	"github.com/hashicorp/go-multierror"
	log "github.com/sirupsen/logrus"
	"github.com/uber-go/tally"
)

// HandlerFunc is a subscriber callback.
type HandlerFunc func(ctx context.Context, ev Event) error

// Publisher publishes events.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

type subscriber struct {
	name string
	fn   HandlerFunc
}

// Bus delivers each published event synchronously to every subscriber of its
// topic, in registration order. A subscriber that fails or panics does not
// prevent delivery to the others. Subscribers may publish from inside their
// callback.
type Bus struct {
	sync.RWMutex
	subscribers map[Topic][]subscriber
	metrics     *Metrics
}

// NewBus creates an empty bus.
func NewBus(scope tally.Scope) *Bus {
	return &Bus{
		subscribers: make(map[Topic][]subscriber),
		metrics:     NewMetrics(scope.SubScope("event_bus")),
	}
}

// Subscribe registers fn for events of topic.
func (b *Bus) Subscribe(topic Topic, name string, fn HandlerFunc) {
	b.Lock()
	defer b.Unlock()
	b.subscribers[topic] = append(b.subscribers[topic], subscriber{name: name, fn: fn})
	log.WithFields(log.Fields{
		"topic":      topic.String(),
		"subscriber": name,
	}).Debug("Subscriber registered")
}

// Subscribers returns the names of the subscribers of topic.
func (b *Bus) Subscribers(topic Topic) []string {
	b.RLock()
	defer b.RUnlock()
	var names []string
	for _, s := range b.subscribers[topic] {
		names = append(names, s.name)
	}
	return names
}

// Publish delivers ev and returns the combined errors of all subscribers.
func (b *Bus) Publish(ctx context.Context, ev Event) error {
	b.RLock()
	subs := append([]subscriber(nil), b.subscribers[ev.Topic()]...)
	b.RUnlock()

	b.metrics.Published.Inc(1)
	var result error
	for _, s := range subs {
		if err := deliver(ctx, s, ev); err != nil {
			b.metrics.SubscriberErrors.Inc(1)
			log.WithError(err).WithFields(log.Fields{
				"topic":      ev.Topic().String(),
				"subscriber": s.name,
				"event":      ev,
			}).Warn("Subscriber failed to handle event")
			result = multierror.Append(result, err)
		}
	}
	return result
}

func deliver(ctx context.Context, s subscriber, ev Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("subscriber %s panicked: %v", s.name, r)
		}
	}()
	return s.fn(ctx, ev)
}
