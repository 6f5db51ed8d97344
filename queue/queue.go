// Package queue provides named publish/subscribe paths over gocloud
// pubsub URLs. In process queues use mem://, deployed setups use nats://.
package queue

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sync"
	"sync/atomic"

	_ "github.com/pitabwire/natspubsub" // register nats:// scheme
	"github.com/pitabwire/util"
	"gocloud.dev/pubsub"
	_ "gocloud.dev/pubsub/mempubsub" // register mem:// scheme

	"github.com/mzalendo/lingopref/internal"
	"github.com/mzalendo/lingopref/workerpool"
)

// SubscribeWorker handles messages pulled off a subscription.
type SubscribeWorker interface {
	Handle(ctx context.Context, metadata map[string]string, message []byte) error
}

type Publisher interface {
	Initiated() bool
	Init(ctx context.Context) error
	Publish(ctx context.Context, payload any, headers ...map[string]string) error
	Stop(ctx context.Context) error
}

type publisher struct {
	reference string
	url       string
	topic     *pubsub.Topic
	isInit    atomic.Bool
}

func (p *publisher) Publish(ctx context.Context, payload any, headers ...map[string]string) error {
	metadata := make(map[string]string)
	for _, h := range headers {
		maps.Copy(metadata, h)
	}

	message, err := internal.Marshal(payload)
	if err != nil {
		return err
	}

	return p.topic.Send(ctx, &pubsub.Message{
		Body:     message,
		Metadata: metadata,
	})
}

func (p *publisher) Init(ctx context.Context) error {
	if p.isInit.Load() && p.topic != nil {
		return nil
	}

	var err error
	p.topic, err = pubsub.OpenTopic(ctx, p.url)
	if err != nil {
		return err
	}

	p.isInit.Store(true)
	return nil
}

func (p *publisher) Initiated() bool {
	return p.isInit.Load()
}

func (p *publisher) Stop(ctx context.Context) error {
	p.isInit.Store(false)
	return p.topic.Shutdown(ctx)
}

type Subscriber interface {
	Initiated() bool
	Init(ctx context.Context) error
	Stop(ctx context.Context) error
}

type subscriber struct {
	reference    string
	url          string
	handler      SubscribeWorker
	pool         workerpool.Pool
	subscription *pubsub.Subscription
	isInit       atomic.Bool
}

func (s *subscriber) Init(ctx context.Context) error {
	if s.isInit.Load() && s.subscription != nil {
		return nil
	}

	subs, err := pubsub.OpenSubscription(ctx, s.url)
	if err != nil {
		return fmt.Errorf("could not open topic subscription: %w", err)
	}
	s.subscription = subs

	if s.handler != nil {
		err = s.pool.Submit(ctx, s.listen)
		if err != nil {
			util.Log(ctx).WithField("subscriber", s.reference).WithField("url", s.url).
				WithError(err).Error("could not listen or subscribe for messages")
			return err
		}
	}

	s.isInit.Store(true)
	return nil
}

func (s *subscriber) Initiated() bool {
	return s.isInit.Load()
}

func (s *subscriber) Stop(ctx context.Context) error {
	s.isInit.Store(false)
	if s.subscription == nil {
		return nil
	}
	return s.subscription.Shutdown(ctx)
}

func (s *subscriber) listen(ctx context.Context) {
	logger := util.Log(ctx).WithField("name", s.reference).WithField("url", s.url)
	logger.Debug("starting to listen for messages")

	for {
		select {
		case <-ctx.Done():
			if err := s.Stop(ctx); err != nil {
				logger.WithError(err).Error("could not stop subscription")
			}
			logger.Debug("exiting due to canceled context")
			return

		default:
			msg, err := s.subscription.Receive(ctx)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					continue
				}

				logger.WithError(err).Error("could not pull message")
				s.isInit.Store(false)
				return
			}

			if handleErr := s.handler.Handle(ctx, msg.Metadata, msg.Body); handleErr != nil {
				logger.WithError(handleErr).Error("could not handle message")
				if msg.Nackable() {
					msg.Nack()
					continue
				}
			}
			msg.Ack()
		}
	}
}

// Manager tracks publishers and subscribers by reference.
type Manager interface {
	AddPublisher(ctx context.Context, reference string, queueURL string) error
	GetPublisher(reference string) Publisher
	Publish(ctx context.Context, reference string, payload any, headers ...map[string]string) error
	AddSubscriber(ctx context.Context, reference string, queueURL string, worker SubscribeWorker) error
	Stop(ctx context.Context) error
}

type manager struct {
	pool                 workerpool.Pool
	publishQueueMap      sync.Map
	subscriptionQueueMap sync.Map
}

// NewManager creates a queue manager whose subscribers run on the supplied
// worker pool.
func NewManager(pool workerpool.Pool) Manager {
	return &manager{pool: pool}
}

func (m *manager) AddPublisher(ctx context.Context, reference string, queueURL string) error {
	if pub := m.GetPublisher(reference); pub != nil {
		return nil
	}

	pub := &publisher{
		reference: reference,
		url:       queueURL,
	}
	if err := pub.Init(ctx); err != nil {
		return err
	}

	m.publishQueueMap.Store(reference, pub)
	return nil
}

func (m *manager) GetPublisher(reference string) Publisher {
	pub, ok := m.publishQueueMap.Load(reference)
	if !ok {
		return nil
	}
	return pub.(*publisher)
}

func (m *manager) Publish(ctx context.Context, reference string, payload any, headers ...map[string]string) error {
	pub := m.GetPublisher(reference)
	if pub == nil {
		return fmt.Errorf("no publisher registered for reference: %s", reference)
	}
	return pub.Publish(ctx, payload, headers...)
}

func (m *manager) AddSubscriber(ctx context.Context, reference string, queueURL string, worker SubscribeWorker) error {
	if _, ok := m.subscriptionQueueMap.Load(reference); ok {
		return nil
	}

	sub := &subscriber{
		reference: reference,
		url:       queueURL,
		handler:   worker,
		pool:      m.pool,
	}
	if err := sub.Init(ctx); err != nil {
		return err
	}

	m.subscriptionQueueMap.Store(reference, sub)
	return nil
}

func (m *manager) Stop(ctx context.Context) error {
	var firstErr error

	m.subscriptionQueueMap.Range(func(key, value any) bool {
		if err := value.(*subscriber).Stop(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
		m.subscriptionQueueMap.Delete(key)
		return true
	})

	m.publishQueueMap.Range(func(key, value any) bool {
		if err := value.(*publisher).Stop(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
		m.publishQueueMap.Delete(key)
		return true
	})

	return firstErr
}
