package app

import (
	"sync"

	"quizarena-service/internal/domain"
)

// RankingsFeed fans leaderboard snapshots out to in-process subscribers, one
// topic per quiz. Subscribers that fall behind get the stale snapshot dropped
// rather than blocking the publisher.
type RankingsFeed struct {
	mu     sync.Mutex
	topics map[string]map[chan domain.Leaderboard]struct{}
}

func NewRankingsFeed() *RankingsFeed {
	return &RankingsFeed{
		topics: make(map[string]map[chan domain.Leaderboard]struct{}),
	}
}

// Subscribe registers a channel for a quiz's leaderboard updates and delivers
// the initial snapshot immediately. The returned cancel function must be
// called exactly once.
func (f *RankingsFeed) Subscribe(quizID string, initial domain.Leaderboard) (<-chan domain.Leaderboard, func()) {
	ch := make(chan domain.Leaderboard, 8)

	f.mu.Lock()
	subs, ok := f.topics[quizID]
	if !ok {
		subs = make(map[chan domain.Leaderboard]struct{})
		f.topics[quizID] = subs
	}
	subs[ch] = struct{}{}
	f.mu.Unlock()

	ch <- initial

	cancel := func() {
		f.mu.Lock()
		if subs, ok := f.topics[quizID]; ok {
			if _, ok := subs[ch]; ok {
				delete(subs, ch)
				close(ch)
			}
			if len(subs) == 0 {
				delete(f.topics, quizID)
			}
		}
		f.mu.Unlock()
	}
	return ch, cancel
}

// Publish delivers a snapshot to every subscriber of the quiz.
func (f *RankingsFeed) Publish(quizID string, lb domain.Leaderboard) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for ch := range f.topics[quizID] {
		select {
		case ch <- lb:
		default:
			// Slow subscriber: replace the stale snapshot with the latest.
			select {
			case <-ch:
			default:
			}
			ch <- lb
		}
	}
}
