package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/songzhibin97/supercircle/internal/ai"
	"github.com/songzhibin97/supercircle/internal/models"
)

// MemoryStorage keeps the audit log in process. Used when no database is
// configured; contents are lost on restart.
type MemoryStorage struct {
	mu       sync.RWMutex
	runs     map[string]models.JudgeRun
	verdicts map[uint64][]ai.Verdict
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		runs:     make(map[string]models.JudgeRun),
		verdicts: make(map[uint64][]ai.Verdict),
	}
}

// SaveRun implements VerdictStore interface
func (s *MemoryStorage) SaveRun(ctx context.Context, run *models.JudgeRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[run.ID] = *run
	return nil
}

// SaveVerdict implements VerdictStore interface
func (s *MemoryStorage) SaveVerdict(ctx context.Context, runID string, verdict *ai.Verdict) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.verdicts[verdict.CircleID] = append(s.verdicts[verdict.CircleID], *verdict)
	return nil
}

// ListVerdicts implements VerdictStore interface
func (s *MemoryStorage) ListVerdicts(ctx context.Context, circleID uint64) ([]ai.Verdict, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]ai.Verdict, len(s.verdicts[circleID]))
	copy(out, s.verdicts[circleID])
	// 插入顺序倒序，时间相同时后写入的排前
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DecidedAt.After(out[j].DecidedAt)
	})
	return out, nil
}

// Run returns a stored run by id.
func (s *MemoryStorage) Run(id string) (models.JudgeRun, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	run, ok := s.runs[id]
	return run, ok
}

// Close implements VerdictStore interface
func (s *MemoryStorage) Close() error {
	return nil
}
