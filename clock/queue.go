package clock

import (
	"runtime/debug"
	"time"

	"github.com/fixkme/etimer/ds/skiplist"
	"github.com/fixkme/etimer/errs"
	"github.com/fixkme/etimer/mlog"
	"github.com/fixkme/etimer/util"
	"github.com/rs/xid"
)

// OrderedMap 定时器队列依赖的有序集合, 任意删除和取最小值都需要 O(log n) 以内
type OrderedMap[T any] interface {
	Insert(T)
	Remove(T) bool
	Min() (T, bool)
	Len() int
}

var _ OrderedMap[*Timer] = (*skiplist.SkipList[*Timer])(nil)

// Queue 按到期时间排序的定时器队列.
// 非并发安全, 只能由持有它的那个goroutine操作.
type Queue struct {
	src TimeSource
	om  OrderedMap[*Timer]
	seq uint64
}

func NewQueue(src TimeSource) *Queue {
	return NewQueueWith(src, skiplist.NewSkipList[*Timer]())
}

func NewQueueWith(src TimeSource, om OrderedMap[*Timer]) *Queue {
	return &Queue{src: src, om: om}
}

func (q *Queue) Source() TimeSource {
	return q.src
}

func (q *Queue) Len() int {
	return q.om.Len()
}

// Add 设置定时器在delay之后到期, 已在队列中的先移除.
// 秒级时间源下不足1秒的部分向下取整.
func (q *Queue) Add(t *Timer, delay time.Duration) error {
	if t.Handler == nil {
		err := errs.NoHandler.Printf("%s", t)
		mlog.Errorf("clock add timer failed: %v", err)
		return err
	}
	if t.armed {
		q.Del(t)
	}
	if t.id.IsNil() {
		t.id = xid.New()
	}

	now := q.src.Now()
	key, ok := util.AddUint64(now, toUnits(delay, q.src.Unit()), MaxKey)
	if !ok {
		mlog.Warnf("clock %s key overflow, now=%d delay=%v, saturated", t, now, delay)
	}
	q.seq++
	t.key = key
	t.seq = q.seq
	q.om.Insert(t)
	t.armed = true
	t.owner = q
	if mlog.IsLevelEnabled(mlog.TraceLevel) {
		mlog.Tracef("clock %s added, key=%d now=%d", t, key, now)
	}
	return nil
}

// Del 从定时器所在的队列移除, 未armed的定时器直接返回
func (q *Queue) Del(t *Timer) {
	if !t.armed {
		return
	}
	if !t.owner.om.Remove(t) {
		mlog.Errorf("clock %s armed but missing from its queue", t)
	}
	t.armed = false
	t.owner = nil
}

// EarliestDelay 最近一个定时器还有多久到期(时间源单位), 已到期返回0, 队列为空返回Infinite
func (q *Queue) EarliestDelay() uint64 {
	t, ok := q.om.Min()
	if !ok {
		return Infinite
	}
	now := q.src.Now()
	if t.key > now {
		return t.key - now
	}
	// 不能返回负数, 防止与Infinite冲突
	return 0
}

// ExpireDue 触发所有已到期的定时器, 返回触发个数.
// 只在进入时读一次当前时间; 本批次内新加入的定时器留到下一批,
// 回调里用0延迟重新Add自己不会在同一批里无限触发.
func (q *Queue) ExpireDue() int {
	now := q.src.Now()
	limit := q.seq
	n := 0
	for {
		t, ok := q.om.Min()
		if !ok || t.key > now || t.seq > limit {
			return n
		}
		q.om.Remove(t)
		t.armed = false
		t.owner = nil
		n++
		q.dispatch(t, now)
	}
}

func (q *Queue) dispatch(t *Timer, now uint64) {
	defer func() {
		if r := recover(); r != nil {
			mlog.Errorf("clock %s handler panic: %v\n%s", t, r, debug.Stack())
		}
	}()
	if mlog.IsLevelEnabled(mlog.TraceLevel) {
		mlog.Tracef("clock %s fire, key=%d now=%d", t, t.key, now)
	}
	t.Handler(t)
}
