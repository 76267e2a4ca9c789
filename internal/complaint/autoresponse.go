package complaint

import (
	"fmt"
	"math/rand/v2"
	"sync"
	"sync/atomic"

	"incluverse/backend/internal/localization"
	"incluverse/backend/internal/models"
)

// AutoResponses is the canned reply corpus. Entry i is also available
// translated under the localization key "auto_response_<i+1>".
var AutoResponses = []string{
	"Thank you for bringing this to our attention. We have forwarded your complaint to the relevant department and will investigate this matter within 3-5 business days.",
	"We acknowledge your concern and are taking immediate action to address this issue. You should see improvements within the next 24-48 hours.",
	"Your feedback is valuable to us. We have escalated this matter to our senior team and will provide you with a detailed response within one week.",
	"We apologize for the inconvenience caused. This issue has been resolved and measures have been put in place to prevent future occurrences.",
	"Thank you for your patience. After thorough investigation, we have implemented the necessary changes and your concern has been addressed.",
}

// Selector picks an index in [0, n).
type Selector interface {
	Pick(n int) int
}

// RandomSelector picks uniformly from a seeded generator, so a fixed seed
// replays the same sequence.
type RandomSelector struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomSelector seeds a PCG generator.
func NewRandomSelector(seed uint64) *RandomSelector {
	return &RandomSelector{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Pick implements Selector.
func (r *RandomSelector) Pick(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.IntN(n)
}

// RoundRobin cycles through the corpus in order.
type RoundRobin struct {
	next atomic.Uint64
}

// Pick implements Selector.
func (r *RoundRobin) Pick(n int) int {
	return int((r.next.Add(1) - 1) % uint64(n))
}

// autoResponseText returns template i in the complaint's language, or the
// English corpus entry when no translation is loaded.
func autoResponseText(l *localization.Localizer, lang models.Language, i int) string {
	if l != nil {
		if text, ok := l.Lookup(lang.Code(), fmt.Sprintf("auto_response_%d", i+1)); ok {
			return text
		}
	}
	return AutoResponses[i]
}
