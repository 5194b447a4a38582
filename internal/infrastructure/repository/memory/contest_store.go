package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/riskibarqy/fantasy-contest/internal/domain/contest"
	"github.com/riskibarqy/fantasy-contest/internal/domain/entry"
)

// ContestStore keeps contests and their entries in process memory.
// It implements contest.Repository and entry.Repository.
type ContestStore struct {
	mu       sync.RWMutex
	contests map[string]contest.Contest
	orders   []string
	entries  map[string][]entry.Entry
	now      func() time.Time
}

func NewContestStore(contests []contest.Contest, entries []entry.Entry) *ContestStore {
	s := &ContestStore{
		contests: make(map[string]contest.Contest, len(contests)),
		orders:   make([]string, 0, len(contests)),
		entries:  make(map[string][]entry.Entry),
		now:      time.Now,
	}
	for _, c := range contests {
		s.contests[c.ID] = cloneContest(c)
		s.orders = append(s.orders, c.ID)
	}
	for _, e := range entries {
		s.entries[e.ContestID] = append(s.entries[e.ContestID], cloneEntry(e))
	}
	return s
}

// AddEntry simulates a participant joining while runs are in flight.
func (s *ContestStore) AddEntry(e entry.Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[e.ContestID] = append(s.entries[e.ContestID], cloneEntry(e))
}

func (s *ContestStore) GetByID(_ context.Context, contestID string) (contest.Contest, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.contests[contestID]
	if !ok {
		return contest.Contest{}, false, nil
	}
	return cloneContest(c), true, nil
}

func (s *ContestStore) ListByStatus(_ context.Context, status contest.Status) ([]contest.Contest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]contest.Contest, 0)
	for _, id := range s.orders {
		if c := s.contests[id]; c.Status == status {
			out = append(out, cloneContest(c))
		}
	}
	return out, nil
}

func (s *ContestStore) ActivateMany(_ context.Context, contestIDs []string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed := 0
	for _, id := range contestIDs {
		c, ok := s.contests[id]
		if !ok || c.Status != contest.StatusUpcoming {
			continue
		}
		c.Status = contest.StatusActive
		c.UpdatedAt = s.now().UTC()
		s.contests[id] = c
		changed++
	}
	return changed, nil
}

func (s *ContestStore) RaiseBestScore(_ context.Context, contestID string, candidate int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.contests[contestID]
	if !ok {
		return false, fmt.Errorf("contest %s not found", contestID)
	}
	next, raised := contest.RaiseBestScore(c.BestScoreSoFar, candidate)
	if !raised {
		return false, nil
	}
	c.BestScoreSoFar = next
	s.contests[contestID] = c
	return true, nil
}

func (s *ContestStore) Settle(_ context.Context, settlement contest.Settlement) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.contests[settlement.ContestID]
	if !ok {
		return false, fmt.Errorf("contest %s not found", settlement.ContestID)
	}
	if c.Status == contest.StatusCompleted {
		return false, nil
	}
	next, err := c.Transition(contest.StatusCompleted)
	if err != nil {
		return false, err
	}

	amounts := make(map[string]float64, len(settlement.Payouts))
	for _, p := range settlement.Payouts {
		amounts[p.EntryID] = p.Amount
	}
	items := s.entries[settlement.ContestID]
	for i := range items {
		amount, ok := amounts[items[i].ID]
		if !ok {
			continue
		}
		items[i].Payout = &amount
	}

	finalizedAt := settlement.FinalizedAt
	next.FinalizedAt = &finalizedAt
	next.UpdatedAt = s.now().UTC()
	s.contests[settlement.ContestID] = next
	return true, nil
}

func (s *ContestStore) ListByContest(_ context.Context, contestID string) ([]entry.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := s.entries[contestID]
	out := make([]entry.Entry, 0, len(items))
	for _, e := range items {
		out = append(out, cloneEntry(e))
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].JoinedAt.Before(out[j].JoinedAt)
	})
	return out, nil
}

func (s *ContestStore) ListStandings(ctx context.Context, contestID string) ([]entry.Entry, error) {
	out, err := s.ListByContest(ctx, contestID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool {
		ri, rj := out[i].Rank, out[j].Rank
		if (ri == 0) != (rj == 0) {
			return rj == 0
		}
		if ri != rj {
			return ri < rj
		}
		return out[i].JoinedAt.Before(out[j].JoinedAt)
	})
	return out, nil
}

func (s *ContestStore) UpdateScores(_ context.Context, contestID string, updates []entry.ScoreUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	byID := make(map[string]entry.ScoreUpdate, len(updates))
	for _, u := range updates {
		byID[u.EntryID] = u
	}
	now := s.now().UTC()
	items := s.entries[contestID]
	for i := range items {
		u, ok := byID[items[i].ID]
		if !ok {
			continue
		}
		items[i].PeriodScore = u.PeriodScore
		items[i].TotalScore = u.TotalScore
		items[i].UpdatedAt = now
	}
	return nil
}

func (s *ContestStore) UpdateRanks(_ context.Context, contestID string, updates []entry.RankUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	byID := make(map[string]int, len(updates))
	for _, u := range updates {
		byID[u.EntryID] = u.Rank
	}
	items := s.entries[contestID]
	for i := range items {
		if rank, ok := byID[items[i].ID]; ok {
			items[i].Rank = rank
		}
	}
	return nil
}

func cloneContest(c contest.Contest) contest.Contest {
	copied := c
	copied.PrizeTiers = append([]contest.PrizeTier(nil), c.PrizeTiers...)
	if c.BestScoreSoFar != nil {
		best := *c.BestScoreSoFar
		copied.BestScoreSoFar = &best
	}
	if c.FinalizedAt != nil {
		at := *c.FinalizedAt
		copied.FinalizedAt = &at
	}
	return copied
}

func cloneEntry(e entry.Entry) entry.Entry {
	copied := e
	if e.Payout != nil {
		amount := *e.Payout
		copied.Payout = &amount
	}
	return copied
}
