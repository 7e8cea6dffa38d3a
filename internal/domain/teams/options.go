package teams

// Option applies a configuration option to the Aggregator.
type Option func(*Aggregator)

// WithScoringRule sets the rule used to score teams.
func WithScoringRule(rule ScoringRule) Option {
	return func(a *Aggregator) {
		a.rule = rule
	}
}

// WithMaxRanked caps the number of ranked teams. n <= 0 means unlimited.
func WithMaxRanked(n int) Option {
	return func(a *Aggregator) {
		if n < 0 {
			n = 0
		}
		a.maxRanked = n
	}
}
