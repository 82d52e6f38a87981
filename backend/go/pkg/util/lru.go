package util

import (
	"container/list"
	"fmt"
	"sync"
	"time"
)

// CacheConfig 配置 LRU 缓存。Capacity 与 MaxWeight 至少设置一个。
type CacheConfig[K comparable, V any] struct {
	// Capacity 最大条目数，0 表示不限制。
	Capacity int
	// MaxWeight 所有条目权重之和的上限，0 表示不限制。
	MaxWeight int
	// TTL 条目存活时间，0 表示永不过期。
	TTL time.Duration
	// OnEvict 在条目因容量、权重或过期被移除时调用（持锁调用，不要在回调里访问缓存）。
	OnEvict func(key K, value V)
	// Now 时钟，测试时可替换，默认 time.Now。
	Now func() time.Time
}

type entry[K comparable, V any] struct {
	key        K
	value      V
	weight     int
	expiration time.Time
}

// LRUCache 泛型、线程安全的 LRU 缓存，支持容量、权重与 TTL 三种淘汰条件。
type LRUCache[K comparable, V any] struct {
	config        CacheConfig[K, V]
	ll            *list.List
	items         map[K]*list.Element
	currentWeight int
	lock          sync.Mutex
}

// NewWithConfig 按配置创建缓存。
func NewWithConfig[K comparable, V any](config CacheConfig[K, V]) (*LRUCache[K, V], error) {
	if config.Capacity <= 0 && config.MaxWeight <= 0 {
		return nil, fmt.Errorf("lru: Capacity 或 MaxWeight 至少需要设置一个")
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	return &LRUCache[K, V]{
		config: config,
		ll:     list.New(),
		items:  make(map[K]*list.Element),
	}, nil
}

// Get 读取并标记为最近使用；过期条目在这里被动淘汰。
func (c *LRUCache[K, V]) Get(key K) (V, bool) {
	c.lock.Lock()
	defer c.lock.Unlock()

	el, ok := c.lookup(key)
	if !ok {
		var zero V
		return zero, false
	}
	c.ll.MoveToFront(el)
	return el.Value.(*entry[K, V]).value, true
}

// Put 写入或覆盖一个条目。基于容量淘汰时 weight 传 1 即可。
func (c *LRUCache[K, V]) Put(key K, value V, weight int) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.put(key, value, weight)
}

// GetOrPut 返回已有值；不存在时用 create 生成、写入并返回。
// 整个过程持锁，create 对同一个 key 最多被并发调用一次。
func (c *LRUCache[K, V]) GetOrPut(key K, create func() V) V {
	c.lock.Lock()
	defer c.lock.Unlock()

	if el, ok := c.lookup(key); ok {
		c.ll.MoveToFront(el)
		return el.Value.(*entry[K, V]).value
	}
	v := create()
	c.put(key, v, 1)
	return v
}

// Delete 删除条目，不触发 OnEvict。
func (c *LRUCache[K, V]) Delete(key K) bool {
	c.lock.Lock()
	defer c.lock.Unlock()

	el, ok := c.items[key]
	if !ok {
		return false
	}
	c.removeElement(el, false)
	return true
}

// Len 当前条目数（可能包含尚未被动淘汰的过期条目）。
func (c *LRUCache[K, V]) Len() int {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.ll.Len()
}

// Weight 当前总权重。
func (c *LRUCache[K, V]) Weight() int {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.currentWeight
}

// lookup 找到未过期的元素。调用方需持锁。
func (c *LRUCache[K, V]) lookup(key K) (*list.Element, bool) {
	el, ok := c.items[key]
	if !ok {
		return nil, false
	}
	e := el.Value.(*entry[K, V])
	if c.config.TTL > 0 && c.config.Now().After(e.expiration) {
		c.removeElement(el, true)
		return nil, false
	}
	return el, true
}

func (c *LRUCache[K, V]) put(key K, value V, weight int) {
	if el, ok := c.items[key]; ok {
		e := el.Value.(*entry[K, V])
		c.currentWeight += weight - e.weight
		e.weight = weight
		e.value = value
		if c.config.TTL > 0 {
			e.expiration = c.config.Now().Add(c.config.TTL)
		}
		c.ll.MoveToFront(el)
	} else {
		e := &entry[K, V]{key: key, value: value, weight: weight}
		if c.config.TTL > 0 {
			e.expiration = c.config.Now().Add(c.config.TTL)
		}
		c.items[key] = c.ll.PushFront(e)
		c.currentWeight += weight
	}

	// 一个大权重条目可能需要淘汰多个旧条目
	for c.overLimit() {
		back := c.ll.Back()
		if back == nil {
			return
		}
		c.removeElement(back, true)
	}
}

func (c *LRUCache[K, V]) overLimit() bool {
	if c.config.Capacity > 0 && c.ll.Len() > c.config.Capacity {
		return true
	}
	return c.config.MaxWeight > 0 && c.currentWeight > c.config.MaxWeight
}

func (c *LRUCache[K, V]) removeElement(el *list.Element, evicted bool) {
	c.ll.Remove(el)
	e := el.Value.(*entry[K, V])
	delete(c.items, e.key)
	c.currentWeight -= e.weight
	if evicted && c.config.OnEvict != nil {
		c.config.OnEvict(e.key, e.value)
	}
}
