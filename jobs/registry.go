package jobs

import (
	"strings"
	"time"

	"github.com/armon/go-radix"
	"github.com/fixkme/etimer/config"
	"github.com/fixkme/etimer/errs"
	"github.com/fixkme/etimer/mlog"
)

// Registry 按名字索引作业, 名字用'.'分组, 如 "report.daily", 可以按前缀选取一组
type Registry struct {
	tree *radix.Tree
	now  func() time.Time
}

func NewRegistry() *Registry {
	return &Registry{tree: radix.New(), now: time.Now}
}

// Load 按配置注册全部作业, 任意一个非法则整体失败
func Load(confs []config.JobConfig) (*Registry, error) {
	r := NewRegistry()
	for _, c := range confs {
		if _, err := r.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Registry) Register(conf config.JobConfig) (*Job, error) {
	conf.Name = strings.TrimSpace(conf.Name)
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	if _, ok := r.tree.Get(conf.Name); ok {
		return nil, errs.BadConfig.Printf("duplicate job %q", conf.Name)
	}
	j := newJob(conf, r.now)
	r.tree.Insert(conf.Name, j)
	return j, nil
}

func (r *Registry) Get(name string) (*Job, bool) {
	v, ok := r.tree.Get(name)
	if !ok {
		return nil, false
	}
	return v.(*Job), true
}

func (r *Registry) Len() int {
	return r.tree.Len()
}

// Select 前缀匹配, 按名字排序; 空前缀返回全部
func (r *Registry) Select(prefix string) []*Job {
	var out []*Job
	r.tree.WalkPrefix(prefix, func(_ string, v interface{}) bool {
		out = append(out, v.(*Job))
		return false
	})
	return out
}

// Arm 把前缀匹配的作业挂到s上, 返回挂载个数
func (r *Registry) Arm(s Scheduler, prefix string) (int, error) {
	n := 0
	for _, j := range r.Select(prefix) {
		if err := j.Arm(s); err != nil {
			return n, err
		}
		n++
		if mlog.IsLevelEnabled(mlog.DebugLevel) {
			mlog.Debugf("job %s armed", j.Name())
		}
	}
	return n, nil
}

func (r *Registry) Disarm(prefix string) {
	for _, j := range r.Select(prefix) {
		j.Disarm()
	}
}
