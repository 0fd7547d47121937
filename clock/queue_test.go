package clock

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/fixkme/etimer/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nop(*Timer) {}

func TestQueueMinKeyMatchesModel(t *testing.T) {
	src := newManualSource(time.Millisecond, 5000)
	q := NewQueue(src)
	r := rand.New(rand.NewSource(1))

	timers := make([]*Timer, 64)
	for i := range timers {
		timers[i] = NewTimer(nop, i)
	}
	for step := 0; step < 2000; step++ {
		tm := timers[r.Intn(len(timers))]
		if r.Intn(3) == 0 {
			q.Del(tm)
		} else {
			require.NoError(t, q.Add(tm, time.Duration(r.Intn(1000))*time.Millisecond))
		}
		if r.Intn(10) == 0 {
			src.advance(time.Duration(r.Intn(5)) * time.Millisecond)
		}

		var (
			min   = Infinite
			armed int
		)
		for _, x := range timers {
			if x.Armed() {
				armed++
				if x.Key() < min {
					min = x.Key()
				}
			}
		}
		require.Equal(t, armed, q.Len())

		d := q.EarliestDelay()
		if armed == 0 {
			require.Equal(t, Infinite, d)
			continue
		}
		require.NotEqual(t, Infinite, d)
		now := src.Now()
		if min > now {
			require.Equal(t, min-now, d)
		} else {
			require.Equal(t, uint64(0), d)
		}
	}
}

func TestQueueEarliestDelay(t *testing.T) {
	src := newManualSource(time.Millisecond, 100)
	q := NewQueue(src)
	assert.Equal(t, Infinite, q.EarliestDelay())

	a := NewTimer(nop, nil)
	require.NoError(t, q.Add(a, 30*time.Millisecond))
	assert.Equal(t, uint64(130), a.Key())
	assert.Equal(t, uint64(30), q.EarliestDelay())

	src.advance(50 * time.Millisecond)
	assert.Equal(t, uint64(0), q.EarliestDelay())

	q.Del(a)
	assert.Equal(t, Infinite, q.EarliestDelay())
}

func TestQueueExpireDueSnapshot(t *testing.T) {
	src := newManualSource(time.Millisecond, 0)
	q := NewQueue(src)

	var fired []*Timer
	handler := func(tm *Timer) {
		assert.False(t, tm.Armed())
		fired = append(fired, tm)
	}
	delays := []int{40, 10, 30, 10, 50, 20}
	timers := make([]*Timer, len(delays))
	for i, d := range delays {
		timers[i] = NewTimer(handler, i)
		require.NoError(t, q.Add(timers[i], time.Duration(d)*time.Millisecond))
	}

	src.advance(30 * time.Millisecond)
	n := q.ExpireDue()
	require.Equal(t, 4, n)
	require.Len(t, fired, 4)
	// 相同key按插入顺序
	assert.Equal(t, []*Timer{timers[1], timers[3], timers[5], timers[2]}, fired)
	for i := 1; i < len(fired); i++ {
		assert.LessOrEqual(t, fired[i-1].Key(), fired[i].Key())
	}
	assert.True(t, timers[0].Armed())
	assert.True(t, timers[4].Armed())
	assert.Equal(t, 2, q.Len())

	// 再次调用不会重复触发
	assert.Equal(t, 0, q.ExpireDue())
	assert.Len(t, fired, 4)
}

func TestQueueEqualKeysOneBatch(t *testing.T) {
	src := newManualSource(time.Millisecond, 10)
	q := NewQueue(src)
	count := map[string]int{}
	a := NewTimer(func(*Timer) { count["a"]++ }, nil)
	b := NewTimer(func(*Timer) { count["b"]++ }, nil)
	require.NoError(t, q.Add(a, 5*time.Millisecond))
	require.NoError(t, q.Add(b, 5*time.Millisecond))
	require.Equal(t, a.Key(), b.Key())

	src.advance(5 * time.Millisecond)
	assert.Equal(t, 2, q.ExpireDue())
	assert.Equal(t, map[string]int{"a": 1, "b": 1}, count)
	assert.Equal(t, 0, q.Len())
}

func TestQueueRearmDuringBatchDeferred(t *testing.T) {
	src := newManualSource(time.Millisecond, 0)
	q := NewQueue(src)
	fires := 0
	var tm *Timer
	tm = NewTimer(func(*Timer) {
		fires++
		require.NoError(t, q.Add(tm, 0))
	}, nil)
	require.NoError(t, q.Add(tm, 0))

	// 时间不前进, 每批只触发一次
	assert.Equal(t, 1, q.ExpireDue())
	assert.Equal(t, 1, q.ExpireDue())
	assert.Equal(t, 2, fires)
	assert.True(t, tm.Armed())
}

func TestQueueSelfRearmPeriodic(t *testing.T) {
	src := newManualSource(time.Millisecond, 1000)
	q := NewQueue(src)
	const period = 100 * time.Millisecond
	var fireTimes []uint64
	tm := NewTimer(func(tm *Timer) {
		fireTimes = append(fireTimes, src.Now())
		require.NoError(t, q.Add(tm, period))
	}, nil)
	require.NoError(t, q.Add(tm, period))

	const cycles = 7
	for i := 0; i < cycles; i++ {
		src.advance(period)
		require.Equal(t, 1, q.ExpireDue())
	}
	require.Len(t, fireTimes, cycles)
	for i, at := range fireTimes {
		assert.Equal(t, uint64(1000+100*(i+1)), at)
	}
	assert.Equal(t, fireTimes[cycles-1]+100, tm.Key())
}

func TestQueueDelBeforeDeadline(t *testing.T) {
	src := newManualSource(time.Millisecond, 0)
	q := NewQueue(src)
	tm := NewTimer(func(*Timer) { t.Fatal("removed timer fired") }, nil)
	require.NoError(t, q.Add(tm, 10*time.Millisecond))
	q.Del(tm)
	assert.False(t, tm.Armed())
	// 重复删除是no-op
	q.Del(tm)

	src.advance(time.Second)
	assert.Equal(t, 0, q.ExpireDue())
}

func TestQueueReAddMovesTimer(t *testing.T) {
	src := newManualSource(time.Millisecond, 0)
	q := NewQueue(src)
	tm := NewTimer(nop, nil)
	require.NoError(t, q.Add(tm, 10*time.Millisecond))
	id := tm.ID()
	require.False(t, id.IsNil())
	require.NoError(t, q.Add(tm, 50*time.Millisecond))
	assert.Equal(t, 1, q.Len())
	assert.Equal(t, uint64(50), tm.Key())
	assert.Equal(t, id, tm.ID())
}

func TestQueueNoHandler(t *testing.T) {
	q := NewQueue(newManualSource(time.Millisecond, 0))
	tm := &Timer{}
	err := q.Add(tm, time.Millisecond)
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.NoHandler)
	assert.False(t, tm.Armed())
	assert.Equal(t, 0, q.Len())
}

func TestQueueKeyOverflowSaturates(t *testing.T) {
	src := newManualSource(time.Millisecond, MaxKey-10)
	q := NewQueue(src)
	tm := NewTimer(nop, nil)
	require.NoError(t, q.Add(tm, time.Duration(1<<62)))
	assert.Equal(t, MaxKey, tm.Key())
	assert.Equal(t, uint64(10), q.EarliestDelay())
	assert.NotEqual(t, Infinite, q.EarliestDelay())
}

func TestQueueCoarseRoundsDown(t *testing.T) {
	src := newManualSource(time.Second, 1000)
	q := NewQueue(src)
	a := NewTimer(nop, nil)
	b := NewTimer(nop, nil)
	require.NoError(t, q.Add(a, 1999*time.Millisecond))
	require.NoError(t, q.Add(b, 999*time.Millisecond))
	assert.Equal(t, uint64(1001), a.Key())
	assert.Equal(t, uint64(1000), b.Key())
	assert.Equal(t, uint64(0), q.EarliestDelay())
}

func TestQueueNegativeDelay(t *testing.T) {
	src := newManualSource(time.Millisecond, 10)
	q := NewQueue(src)
	tm := NewTimer(nop, nil)
	require.NoError(t, q.Add(tm, -time.Second))
	assert.Equal(t, uint64(10), tm.Key())
	assert.Equal(t, uint64(0), q.EarliestDelay())
}

func TestQueueHandlerPanicRecovered(t *testing.T) {
	src := newManualSource(time.Millisecond, 0)
	q := NewQueue(src)
	after := false
	require.NoError(t, q.Add(NewTimer(func(*Timer) { panic("boom") }, nil), 0))
	require.NoError(t, q.Add(NewTimer(func(*Timer) { after = true }, nil), 0))
	assert.Equal(t, 2, q.ExpireDue())
	assert.True(t, after)
}

func TestQueueMoveBetweenQueues(t *testing.T) {
	src := newManualSource(time.Millisecond, 0)
	a := NewQueue(src)
	b := NewQueue(src)
	tm := NewTimer(nop, nil)

	require.NoError(t, a.Add(tm, 10*time.Millisecond))
	require.NoError(t, b.Add(tm, 20*time.Millisecond))
	// 只在b里
	assert.Equal(t, 0, a.Len())
	assert.Equal(t, 1, b.Len())
	assert.Equal(t, Infinite, a.EarliestDelay())
	assert.True(t, tm.Armed())

	// 通过a删除也会从b里移除
	a.Del(tm)
	assert.False(t, tm.Armed())
	assert.Equal(t, 0, b.Len())

	require.NoError(t, a.Add(tm, 0))
	assert.Equal(t, 1, a.Len())
	assert.Equal(t, 1, a.ExpireDue())
	assert.Equal(t, 0, a.Len())
	assert.Equal(t, 0, b.Len())
}

func TestLoopAddTimerFromOtherLoop(t *testing.T) {
	l1, _, _ := newScriptedLoop(time.Millisecond, Options{})
	l2, _, _ := newScriptedLoop(time.Millisecond, Options{})
	fires := 0
	tm := NewTimer(func(*Timer) { fires++ }, nil)
	require.NoError(t, l1.AddTimer(tm, time.Hour))
	require.NoError(t, l2.AddTimer(tm, 5*time.Millisecond))
	assert.Equal(t, 0, l1.Queue().Len())

	require.NoError(t, l2.Start(context.Background()))
	assert.Equal(t, 1, fires)
	// l1已经没有定时器, 立即返回
	require.NoError(t, l1.Start(context.Background()))
	assert.Equal(t, 1, fires)
}
