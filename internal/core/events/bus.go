package events

import "sync"

// Topic 事件名
type Topic string

const (
	// ForcedLogout 远端返回 401/403 后发布；session 订阅后清理本地状态
	ForcedLogout Topic = "skilllink:logout"
)

type Handler func(Event)

type Event struct {
	Topic  Topic
	Reason string
	Status int
}

// Bus 进程内同步广播。Publish 不持锁调用 handler，handler 可以再次 Publish/Subscribe。
type Bus struct {
	mu     sync.RWMutex
	nextID int
	subs   map[Topic]map[int]Handler
}

func NewBus() *Bus {
	return &Bus{subs: make(map[Topic]map[int]Handler)}
}

// Subscribe 返回取消函数，重复调用无副作用
func (b *Bus) Subscribe(t Topic, h Handler) (cancel func()) {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	if b.subs[t] == nil {
		b.subs[t] = make(map[int]Handler)
	}
	b.subs[t][id] = h
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs[t], id)
			b.mu.Unlock()
		})
	}
}

func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	hs := make([]Handler, 0, len(b.subs[e.Topic]))
	for _, h := range b.subs[e.Topic] {
		hs = append(hs, h)
	}
	b.mu.RUnlock()

	for _, h := range hs {
		h(e)
	}
}
