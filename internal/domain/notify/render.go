package notify

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"

	"github.com/okian/starbot/internal/domain/activity"
	"github.com/okian/starbot/internal/domain/teams"
)

// Renderer turns one participant's progress into a line of text. The line
// must mention the participant's name and current star count.
type Renderer interface {
	RenderProgress(p activity.Progress) string
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(p activity.Progress) string

// RenderProgress calls f(p).
func (f RendererFunc) RenderProgress(p activity.Progress) string { return f(p) }

// PlainRenderer renders the same sentence for everyone.
type PlainRenderer struct{}

// RenderProgress implements Renderer.
func (PlainRenderer) RenderProgress(p activity.Progress) string {
	return fmt.Sprintf(":star: *%s* just completed a challenge, they now have *%d* stars!", p.Name, p.Stars)
}

// Phrases is the default pool used by PhraseRenderer. Each entry is a format
// string taking the name and then the star count.
var Phrases = []string{
	":star: *%s* just completed a challenge, they now have *%d* stars!",
	":star: Get in! *%s* just bagged a star. Their total is now *%d* stars.",
	":star: DingDing! *%s* only just went and got a star, that makes *%d*.",
	":star: Is it a Bird? Is it a Plane? No, it's *%s* with *%d* stars.",
	":star: BREAKING NEWS: *%s* is smashing it with %d stars.",
}

// PhraseRenderer picks a random phrase for each line. Safe for concurrent use.
type PhraseRenderer struct {
	mu      sync.Mutex
	rng     *rand.Rand
	phrases []string
}

// NewPhraseRenderer builds a renderer drawing from phrases with a generator
// seeded by seed. An empty phrases slice selects the default pool.
func NewPhraseRenderer(seed uint64, phrases ...string) *PhraseRenderer {
	if len(phrases) == 0 {
		phrases = Phrases
	}
	return &PhraseRenderer{
		rng:     rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)), //nolint:gosec // cosmetic choice only
		phrases: phrases,
	}
}

// RenderProgress implements Renderer.
func (r *PhraseRenderer) RenderProgress(p activity.Progress) string {
	r.mu.Lock()
	phrase := r.phrases[r.rng.IntN(len(r.phrases))]
	r.mu.Unlock()
	return fmt.Sprintf(phrase, p.Name, p.Stars)
}

// RenderStandings renders the ranked team block. Mean scores are shown with
// one decimal, sums as whole numbers.
func RenderStandings(standings []teams.Standing, rule teams.ScoringRule) string {
	var b strings.Builder
	fmt.Fprintf(&b, ":trophy: *Team standings* (%s of stars)", rule)
	for _, s := range standings {
		noun := "members"
		if s.Members == 1 {
			noun = "member"
		}
		fmt.Fprintf(&b, "\n%d. *%s*: %s (%d %s)", s.Rank, s.Team, formatScore(s.Score, rule), s.Members, noun)
	}
	return b.String()
}

func formatScore(score float64, rule teams.ScoringRule) string {
	if rule == teams.RuleMean {
		return fmt.Sprintf("%.1f", teams.RoundScore(score))
	}
	return fmt.Sprintf("%.0f", score)
}
