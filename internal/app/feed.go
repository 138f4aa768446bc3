package app

import (
	"sync"

	"qcm-service/internal/domain"
)

// StatisticsFeed fans out statistics snapshots to live subscribers per quiz.
type StatisticsFeed struct {
	mu     sync.Mutex
	topics map[int64]map[chan domain.Statistics]struct{}
}

func NewStatisticsFeed() *StatisticsFeed {
	return &StatisticsFeed{topics: make(map[int64]map[chan domain.Statistics]struct{})}
}

// Subscribe registers a subscriber and delivers initial right away.
// The caller must invoke the returned cancel function to avoid leaks.
func (f *StatisticsFeed) Subscribe(quizID int64, initial domain.Statistics) (<-chan domain.Statistics, func()) {
	ch := make(chan domain.Statistics, 8)
	ch <- initial

	f.mu.Lock()
	subs, ok := f.topics[quizID]
	if !ok {
		subs = make(map[chan domain.Statistics]struct{})
		f.topics[quizID] = subs
	}
	subs[ch] = struct{}{}
	f.mu.Unlock()

	cancel := func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		subs, ok := f.topics[quizID]
		if !ok {
			return
		}
		if _, ok := subs[ch]; ok {
			delete(subs, ch)
			close(ch)
		}
		if len(subs) == 0 {
			delete(f.topics, quizID)
		}
	}
	return ch, cancel
}

// HasSubscribers reports whether anyone listens on quizID.
func (f *StatisticsFeed) HasSubscribers(quizID int64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.topics[quizID]) > 0
}

// Publish delivers stats to every subscriber of quizID without blocking.
func (f *StatisticsFeed) Publish(quizID int64, stats domain.Statistics) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for ch := range f.topics[quizID] {
		select {
		case ch <- stats:
		default:
			// slow subscriber: drop its oldest snapshot
			select {
			case <-ch:
			default:
			}
			ch <- stats
		}
	}
}
