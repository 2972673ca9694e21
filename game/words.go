package game

import (
	"math/rand/v2"
	"sync"

	"github.com/rithiksai/scribble-game/logger"
)

var DefaultWords = []string{
	"apple", "banana", "car", "dog", "elephant", "fish", "guitar", "house",
	"igloo", "jacket", "kangaroo", "lion", "monkey", "notebook", "ocean",
	"pizza", "queen", "rabbit", "snake", "tree", "umbrella", "violin",
	"window", "xylophone", "yellow", "zebra", "castle", "dragon", "flower",
	"ghost", "hamburger", "island", "jungle", "kite", "lamp", "mountain",
}

// WordList picks words uniformly at random, independently on each call.
// Repeats are allowed.
type WordList struct {
	words []string
	intn  func(n int) int
}

func NewWordList(words []string) *WordList {
	return &WordList{words: words, intn: rand.IntN}
}

func (wl *WordList) Generate(count int) []string {
	if len(wl.words) == 0 || count <= 0 {
		return []string{}
	}
	picked := make([]string, 0, count)
	for range count {
		picked = append(picked, wl.words[wl.intn(len(wl.words))])
	}
	return picked
}

// BufferedWords serves words from memory. A background goroutine tops the
// buffer up from source, which may block on I/O, so Generate never waits on
// it. Whatever the buffer cannot cover comes from fallback.
type BufferedWords struct {
	source    RandomWordsGenerator
	fallback  RandomWordsGenerator
	buffer    chan string
	refill    chan struct{}
	done      chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once
}

func NewBufferedWords(source, fallback RandomWordsGenerator, size int) *BufferedWords {
	bw := &BufferedWords{
		source:   source,
		fallback: fallback,
		buffer:   make(chan string, max(size, 1)),
		refill:   make(chan struct{}, 1),
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
	go bw.run()
	bw.requestRefill()
	return bw
}

func (bw *BufferedWords) Generate(count int) []string {
	if count <= 0 {
		return []string{}
	}
	words := make([]string, 0, count)
take:
	for len(words) < count {
		select {
		case w := <-bw.buffer:
			words = append(words, w)
		default:
			break take
		}
	}

	if len(bw.buffer) <= cap(bw.buffer)/2 {
		bw.requestRefill()
	}
	if len(words) < count {
		logger.Warningf("Word buffer had %d of %d words, using fallback list", len(words), count)
		words = append(words, bw.fallback.Generate(count-len(words))...)
	}
	return words
}

func (bw *BufferedWords) requestRefill() {
	select {
	case bw.refill <- struct{}{}:
	default:
	}
}

func (bw *BufferedWords) run() {
	defer close(bw.stopped)

	for {
		select {
		case <-bw.done:
			return
		case <-bw.refill:
		}

		missing := cap(bw.buffer) - len(bw.buffer)
		if missing == 0 {
			continue
		}
		for _, w := range bw.source.Generate(missing) {
			if w == "" {
				continue
			}
			select {
			case bw.buffer <- w:
			default:
			}
		}
	}
}

// Close stops the refill goroutine, waiting for a refill in flight.
func (bw *BufferedWords) Close() {
	bw.closeOnce.Do(func() {
		close(bw.done)
		<-bw.stopped
	})
}
