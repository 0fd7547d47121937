package clock

import (
	"math"
	"strings"
	"time"
)

// Resolution 时间源精度
type Resolution int

const (
	Millisecond Resolution = iota // 默认毫秒
	Second                        // 秒级, key不容易溢出, 但小于1秒的延迟会被向下取整
)

const (
	// Infinite 队列为空时EarliestDelay的返回值, 不会与任何合法延迟冲突
	Infinite uint64 = math.MaxUint64
	// MaxKey 到期时间上限, now+delay溢出时饱和到这里
	MaxKey uint64 = math.MaxUint64 - 1
)

func ParseResolution(s string) (Resolution, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "ms", "msec", "millisecond":
		return Millisecond, true
	case "s", "sec", "second":
		return Second, true
	}
	return Millisecond, false
}

func (r Resolution) Unit() time.Duration {
	if r == Second {
		return time.Second
	}
	return time.Millisecond
}

func (r Resolution) String() string {
	if r == Second {
		return "s"
	}
	return "ms"
}

// TimeSource 以固定单位读取当前时间
type TimeSource interface {
	Now() uint64
	Unit() time.Duration
}

// WallClock 墙上时钟.
// 时钟回拨会导致定时器延后或提前触发, 这里不做修正;
// Loop的单次睡眠上限保证回拨后最迟一个上限周期内重新评估.
type WallClock struct {
	res Resolution
	now func() time.Time
}

func NewWallClock(res Resolution) *WallClock {
	return &WallClock{res: res, now: time.Now}
}

func (c *WallClock) Now() uint64 {
	t := c.now()
	var v int64
	if c.res == Second {
		v = t.Unix()
	} else {
		v = t.UnixMilli()
	}
	if v < 0 {
		return 0
	}
	return uint64(v)
}

func (c *WallClock) Unit() time.Duration {
	return c.res.Unit()
}

// toUnits 转换成时间源单位, 向下取整, 负数按0处理
func toUnits(d, unit time.Duration) uint64 {
	if d <= 0 {
		return 0
	}
	return uint64(d / unit)
}

// toDuration 饱和转换
func toDuration(n uint64, unit time.Duration) time.Duration {
	if n > uint64(math.MaxInt64/int64(unit)) {
		return math.MaxInt64
	}
	return time.Duration(n) * unit
}
