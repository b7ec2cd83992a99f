// internal/services/stats_service.go
package services

import (
	"sync"
	"time"
)

// UsageStats 表示API使用统计
// 统计只保存在内存中，进程重启后归零（系统没有持久状态）
type UsageStats struct {
	TodayRequests int       `json:"today_requests"`
	MonthlyTokens int       `json:"monthly_tokens"`
	LastUpdated   time.Time `json:"last_updated"`
}

// StatsService 提供API使用统计功能
type StatsService struct {
	mutex sync.Mutex
	stats UsageStats

	// 当前计数所属的时间段
	currentDay   string
	currentMonth string
}

// NewStatsService 创建统计服务实例
func NewStatsService() *StatsService {
	now := time.Now()
	return &StatsService{
		stats: UsageStats{
			LastUpdated: now,
		},
		currentDay:   now.Format("2006-01-02"),
		currentMonth: now.Format("2006-01"),
	}
}

// RecordRequest 记录一次生成请求及其token用量
func (s *StatsService) RecordRequest(tokens int) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.rolloverLocked()

	s.stats.TodayRequests++
	s.stats.MonthlyTokens += tokens
	s.stats.LastUpdated = time.Now()
}

// GetUsageStats 返回当前统计的副本
func (s *StatsService) GetUsageStats() UsageStats {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.rolloverLocked()
	return s.stats
}

// rolloverLocked 跨天/跨月时重置对应计数，调用方需持有锁
func (s *StatsService) rolloverLocked() {
	now := time.Now()
	today := now.Format("2006-01-02")
	thisMonth := now.Format("2006-01")

	if today != s.currentDay {
		s.stats.TodayRequests = 0
		s.currentDay = today
	}

	if thisMonth != s.currentMonth {
		s.stats.MonthlyTokens = 0
		s.currentMonth = thisMonth
	}
}
