package alerting

import (
	"strings"
	"sync"
	"time"
)

// Gate 以冷却窗口对告警去重: 同一 (契约, 检查类型, 状态) 组合在窗口内
// 只放行第一次。检查恢复通过后调用 Clear, 让下一次失败立即告警。
type Gate struct {
	mu       sync.Mutex
	cooldown time.Duration
	last     map[string]time.Time
	now      func() time.Time
}

// NewGate 构造告警闸门。
func NewGate(cooldown time.Duration) *Gate {
	if cooldown <= 0 {
		cooldown = 15 * time.Minute
	}
	return &Gate{
		cooldown: cooldown,
		last:     make(map[string]time.Time),
		now:      time.Now,
	}
}

// ShouldFire 判断该告警是否放行, 放行同时记录本次触发时间。
func (g *Gate) ShouldFire(contractName, checkType, status string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	g.prune(now)

	key := gateKey(contractName, checkType, status)
	if fired, ok := g.last[key]; ok && now.Sub(fired) < g.cooldown {
		return false
	}
	g.last[key] = now
	return true
}

// Clear 清除某契约某检查类型的全部记录。
func (g *Gate) Clear(contractName, checkType string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	prefix := contractName + "|" + checkType + "|"
	for key := range g.last {
		if strings.HasPrefix(key, prefix) {
			delete(g.last, key)
		}
	}
}

// prune 丢弃已超出冷却窗口的条目, 调用方需持有锁。
func (g *Gate) prune(now time.Time) {
	for key, fired := range g.last {
		if now.Sub(fired) >= g.cooldown {
			delete(g.last, key)
		}
	}
}

func gateKey(contractName, checkType, status string) string {
	return contractName + "|" + checkType + "|" + status
}
