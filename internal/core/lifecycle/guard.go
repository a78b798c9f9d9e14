// Package lifecycle 丢弃过期的异步结果：新一轮加载开始或宿主关闭后，旧票据失效。
package lifecycle

import "sync/atomic"

type Guard struct {
	gen    atomic.Uint64
	closed atomic.Bool
}

type Ticket struct {
	g   *Guard
	gen uint64
}

// Begin 开启新一轮，之前发出的票据全部作废
func (g *Guard) Begin() Ticket {
	return Ticket{g: g, gen: g.gen.Add(1)}
}

// Close 之后所有票据都不再 Current，Begin 发出的新票据同样无效
func (g *Guard) Close() { g.closed.Store(true) }

func (g *Guard) Closed() bool { return g.closed.Load() }

func (t Ticket) Current() bool {
	if t.g == nil || t.g.closed.Load() {
		return false
	}
	return t.g.gen.Load() == t.gen
}
