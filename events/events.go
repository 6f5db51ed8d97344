// Package events routes named system events through the queue so that
// collaborating components only ever share event names and payloads.
package events

import (
	"context"
	"errors"
	"sync"

	"github.com/pitabwire/util"

	"github.com/mzalendo/lingopref/internal"
	"github.com/mzalendo/lingopref/queue"
)

const EventHeaderName = "lingopref._internal.event.header"

// EventI an interface to represent a system event. All logic of an event is
// handled in the execute task and can also emit other events into the system.
type EventI interface {
	// Name represents the unique human readable id of the event that is used
	// to pick it from the registry for follow up processing.
	Name() string

	// PayloadType determines the type of payload the event uses. This is
	// useful for decoding queue data.
	PayloadType() any

	// Validate enables automatic validation of payload supplied to the event
	// without handling it in the execute block.
	Validate(ctx context.Context, payload any) error

	// Execute performs all the logic required to action a step in the
	// sequence of events required to achieve the end goal.
	Execute(ctx context.Context, payload any) error
}

type Manager interface {
	Add(eventI EventI)
	Get(name string) (EventI, error)
	Emit(ctx context.Context, name string, payload any) error
	Handler() queue.SubscribeWorker
}

type manager struct {
	qm        queue.Manager
	queueName string

	mu            sync.RWMutex
	eventRegistry map[string]EventI
}

// NewManager creates an event manager publishing to the named queue.
func NewManager(_ context.Context, qm queue.Manager, queueName string) Manager {
	return &manager{
		qm:            qm,
		queueName:     queueName,
		eventRegistry: make(map[string]EventI),
	}
}

func (m *manager) Add(evt EventI) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.eventRegistry[evt.Name()] = evt
}

func (m *manager) Get(eventName string) (EventI, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	evt, ok := m.eventRegistry[eventName]
	if !ok {
		return nil, errors.New("event not found in registry: " + eventName)
	}

	return evt, nil
}

// Emit publishes an event with the given name and payload to the event queue.
func (m *manager) Emit(ctx context.Context, name string, payload any) error {
	err := m.qm.Publish(ctx, m.queueName, payload, map[string]string{EventHeaderName: name})
	if err != nil {
		util.Log(ctx).WithError(err).WithField("name", name).Error("Could not emit event")
		return err
	}

	return nil
}

func (m *manager) Handler() queue.SubscribeWorker {
	return &eventQueueHandler{
		manager: m,
	}
}

type eventQueueHandler struct {
	manager Manager
}

func (eq *eventQueueHandler) Handle(ctx context.Context, header map[string]string, payload []byte) error {
	eventName := header[EventHeaderName]
	if eventName == "" {
		util.Log(ctx).Error("Missing event header in message")
		return errors.New("missing event header")
	}

	eventHandler, err := eq.manager.Get(eventName)
	if err != nil {
		util.Log(ctx).WithError(err).WithField("event", eventName).Error("Event not found in registry")
		return err
	}

	payloadTemplate := eventHandler.PayloadType()

	err = internal.Unmarshal(payload, payloadTemplate)
	if err != nil {
		util.Log(ctx).WithError(err).WithField("event", eventName).Error("Failed to unmarshal payload")
		return err
	}

	err = eventHandler.Validate(ctx, payloadTemplate)
	if err != nil {
		util.Log(ctx).WithError(err).WithField("event", eventName).Error("Event payload validation failed")
		return err
	}

	err = eventHandler.Execute(ctx, payloadTemplate)
	if err != nil {
		util.Log(ctx).WithError(err).WithField("event", eventName).Error("Event execution failed")
		return err
	}

	return nil
}
