package queue

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/VinayJogani14/Supply-Chain-Management/pkg/catalog"
	"github.com/VinayJogani14/Supply-Chain-Management/pkg/catalog/catalogtest"
)

type published struct {
	exchange, key string
	msg           amqp091.Publishing
}

// fakeChannel is an in-process topic exchange with a single bound queue.
type fakeChannel struct {
	mu         sync.Mutex
	published  []published
	bound      []string
	deliveries chan amqp091.Delivery
	failPub    error
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{deliveries: make(chan amqp091.Delivery, 8)}
}

func (f *fakeChannel) ExchangeDeclare(string, string, bool, bool, bool, bool, amqp091.Table) error {
	return nil
}

func (f *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp091.Publishing) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failPub != nil {
		return f.failPub
	}
	f.published = append(f.published, published{exchange: exchange, key: key, msg: msg})
	return nil
}

func (f *fakeChannel) QueueDeclare(string, bool, bool, bool, bool, amqp091.Table) (amqp091.Queue, error) {
	return amqp091.Queue{Name: "amq.gen-test"}, nil
}

func (f *fakeChannel) QueueBind(name, key, exchange string, _ bool, _ amqp091.Table) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bound = append(f.bound, exchange+"/"+key)
	return nil
}

func (f *fakeChannel) Consume(string, string, bool, bool, bool, bool, amqp091.Table) (<-chan amqp091.Delivery, error) {
	return f.deliveries, nil
}

type ackRecorder struct {
	mu      sync.Mutex
	acks    int
	nacks   int
	requeue []bool
	done    chan struct{}
}

func newAckRecorder() *ackRecorder {
	return &ackRecorder{done: make(chan struct{}, 8)}
}

func (a *ackRecorder) Ack(uint64, bool) error {
	a.mu.Lock()
	a.acks++
	a.mu.Unlock()
	a.done <- struct{}{}
	return nil
}

func (a *ackRecorder) Nack(_ uint64, _ bool, requeue bool) error {
	a.mu.Lock()
	a.nacks++
	a.requeue = append(a.requeue, requeue)
	a.mu.Unlock()
	a.done <- struct{}{}
	return nil
}

func (a *ackRecorder) Reject(uint64, bool) error {
	return nil
}

func (a *ackRecorder) wait(t *testing.T) {
	t.Helper()
	select {
	case <-a.done:
	case <-time.After(2 * time.Second):
		t.Fatal("message was not settled")
	}
}

func TestPublishCatalogRefreshed(t *testing.T) {
	ch := newFakeChannel()
	snap := catalogtest.Snapshot()

	require.NoError(t, PublishCatalogRefreshed(context.Background(), ch, snap))
	require.Len(t, ch.published, 1)

	p := ch.published[0]
	assert.Equal(t, Exchange, p.exchange)
	assert.Equal(t, TopicCatalogRefreshed, p.key)
	assert.Equal(t, "application/json", p.msg.ContentType)

	var ev CatalogRefreshed
	require.NoError(t, json.Unmarshal(p.msg.Body, &ev))
	assert.Equal(t, snap.Version, ev.Version)
	assert.Equal(t, 7, ev.Labels)
}

func TestPublishErrors(t *testing.T) {
	ch := newFakeChannel()
	ch.failPub = errors.New("channel closed")
	err := PublishCatalogRefreshed(context.Background(), ch, catalogtest.Snapshot())
	assert.ErrorIs(t, err, ch.failPub)

	assert.Error(t, PublishCatalogRefreshed(context.Background(), ch, nil))
}

func TestSubscribeRefreshesCatalog(t *testing.T) {
	old := catalogtest.SupplyChain()
	old.Labels = old.Labels[:3]
	cur := catalogtest.SupplyChain()
	intro := catalogtest.NewIntrospector(
		catalogtest.Result{Inventory: &old},
		catalogtest.Result{Inventory: &cur},
	)
	cat := catalog.NewCatalog(catalog.NewCatalogParams{Introspector: intro})
	_, err := cat.Load(context.Background())
	require.NoError(t, err)

	ch := newFakeChannel()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	stopped := make(chan error, 1)
	go func() {
		stopped <- SubscribeTopic(ctx, ch, TopicCatalogRefreshed, CatalogRefreshHandler(cat))
	}()

	want := catalogtest.Snapshot()
	body, err := json.Marshal(CatalogRefreshed{Version: want.Version})
	require.NoError(t, err)

	acks := newAckRecorder()
	ch.deliveries <- amqp091.Delivery{Acknowledger: acks, DeliveryTag: 1, Body: body}
	acks.wait(t)
	assert.Equal(t, want.Version, cat.Describe().Version)
	assert.Equal(t, 2, intro.Calls())

	// Same version again: no introspection.
	ch.deliveries <- amqp091.Delivery{Acknowledger: acks, DeliveryTag: 2, Body: body}
	acks.wait(t)
	assert.Equal(t, 2, intro.Calls())
	assert.Equal(t, 2, acks.acks)

	cancel()
	require.NoError(t, <-stopped)
	assert.Equal(t, []string{Exchange + "/" + TopicCatalogRefreshed}, ch.bound)
}

func TestFailedRefreshIsRequeuedOnce(t *testing.T) {
	old := catalogtest.SupplyChain()
	intro := catalogtest.NewIntrospector(
		catalogtest.Result{Inventory: &old},
		catalogtest.Result{Err: errors.New("neo4j unavailable")},
	)
	cat := catalog.NewCatalog(catalog.NewCatalogParams{Introspector: intro})
	_, err := cat.Load(context.Background())
	require.NoError(t, err)

	handler := CatalogRefreshHandler(cat)
	body, _ := json.Marshal(CatalogRefreshed{Version: "other"})

	acks := newAckRecorder()
	dispatch(context.Background(), TopicCatalogRefreshed, amqp091.Delivery{Acknowledger: acks, Body: body}, handler)
	dispatch(context.Background(), TopicCatalogRefreshed, amqp091.Delivery{Acknowledger: acks, Body: body, Redelivered: true}, handler)
	assert.Equal(t, 2, acks.nacks)
	assert.Equal(t, []bool{true, false}, acks.requeue)
}

func TestMalformedEventIsAcked(t *testing.T) {
	cat := catalog.NewStaticCatalog(catalogtest.SupplyChain())
	acks := newAckRecorder()
	dispatch(context.Background(), TopicCatalogRefreshed, amqp091.Delivery{Acknowledger: acks, Body: []byte("{")}, CatalogRefreshHandler(cat))
	assert.Equal(t, 1, acks.acks)
}

func TestRefreshAndAnnounce(t *testing.T) {
	first := catalogtest.SupplyChain()
	first.Labels = first.Labels[:3]
	second := catalogtest.SupplyChain()
	intro := catalogtest.NewIntrospector(
		catalogtest.Result{Inventory: &first},
		catalogtest.Result{Inventory: &first},
		catalogtest.Result{Inventory: &second},
		catalogtest.Result{Err: errors.New("neo4j unavailable")},
	)
	cat := catalog.NewCatalog(catalog.NewCatalogParams{Introspector: intro})
	ch := newFakeChannel()
	ctx := context.Background()

	// Initial load is always announced.
	changed, err := RefreshAndAnnounce(ctx, cat, ch)
	require.NoError(t, err)
	assert.True(t, changed)
	require.Len(t, ch.published, 1)

	changed, err = RefreshAndAnnounce(ctx, cat, ch)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Len(t, ch.published, 1)

	changed, err = RefreshAndAnnounce(ctx, cat, ch)
	require.NoError(t, err)
	assert.True(t, changed)
	require.Len(t, ch.published, 2)

	var ev CatalogRefreshed
	require.NoError(t, json.Unmarshal(ch.published[1].msg.Body, &ev))
	assert.Equal(t, catalogtest.Snapshot().Version, ev.Version)

	_, err = RefreshAndAnnounce(ctx, cat, ch)
	require.Error(t, err)
	assert.Len(t, ch.published, 2)
}

func TestRefreshAndAnnouncePublishFailure(t *testing.T) {
	cat := catalog.NewCatalog(catalog.NewCatalogParams{Introspector: catalogtest.NewIntrospector()})
	ch := newFakeChannel()
	ch.failPub = errors.New("channel closed")

	changed, err := RefreshAndAnnounce(context.Background(), cat, ch)
	assert.True(t, changed)
	assert.ErrorIs(t, err, ch.failPub)
	assert.True(t, cat.Ready())
}
