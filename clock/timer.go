package clock

import (
	"github.com/rs/xid"
)

// Handler 定时器到期回调, 调用时定时器已经从队列中摘除, 可以在回调里重新Add自己
type Handler func(t *Timer)

// Timer 由调用方分配和持有, 队列只在armed期间引用它.
// 同一个Timer可以反复Add, 再次Add会先把它从原来所在的队列中移除(可以是另一个队列).
type Timer struct {
	Handler Handler
	Data    any

	key   uint64 // 到期时间, 时间源单位
	seq   uint64 // 插入序号, key相同时按插入顺序
	armed bool
	owner *Queue // armed期间所在的队列
	id    xid.ID // 首次Add时分配, 用于日志
}

func NewTimer(h Handler, data any) *Timer {
	return &Timer{Handler: h, Data: data}
}

func (t *Timer) Key() uint64 {
	return t.key
}

func (t *Timer) Armed() bool {
	return t.armed
}

func (t *Timer) ID() xid.ID {
	return t.id
}

func (t *Timer) String() string {
	if t.id.IsNil() {
		return "timer(-)"
	}
	return "timer(" + t.id.String() + ")"
}

func (t *Timer) Compare(o *Timer) int {
	switch {
	case t.key < o.key:
		return -1
	case t.key > o.key:
		return 1
	case t.seq < o.seq:
		return -1
	case t.seq > o.seq:
		return 1
	}
	return 0
}
