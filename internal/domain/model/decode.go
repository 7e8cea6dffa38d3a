package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"
)

// flexInt accepts a JSON number, a numeric string, or null. The upstream
// leaderboard has served timestamps and ids in both forms over the years.
type flexInt int64

func (f *flexInt) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*f = 0
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if s == "" {
			*f = 0
			return nil
		}
		b = []byte(s)
	}
	n, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		// Some feeds send whole numbers as floats, e.g. 1733000000.0.
		fl, ferr := strconv.ParseFloat(string(b), 64)
		if ferr != nil || math.IsNaN(fl) || math.IsInf(fl, 0) {
			return fmt.Errorf("not an integer: %q", b)
		}
		if fl != math.Trunc(fl) {
			return fmt.Errorf("not a whole number: %q", b)
		}
		if fl < math.MinInt64 || fl >= math.MaxInt64 {
			return fmt.Errorf("integer out of range: %q", b)
		}
		n = int64(fl)
	}
	*f = flexInt(n)
	return nil
}

type rawStar struct {
	GetStarTS flexInt `json:"get_star_ts"`
}

type rawMember struct {
	ID                 flexInt                       `json:"id"`
	Name               *string                       `json:"name"`
	Stars              flexInt                       `json:"stars"`
	LocalScore         flexInt                       `json:"local_score"`
	LastStarTS         flexInt                       `json:"last_star_ts"`
	CompletionDayLevel map[string]map[string]rawStar `json:"completion_day_level"`
}

type rawLeaderboard struct {
	Event   string               `json:"event"`
	OwnerID flexInt              `json:"owner_id"`
	Members map[string]rawMember `json:"members"`
}

// ParseSnapshot decodes a private leaderboard JSON payload.
func ParseSnapshot(data []byte) (Snapshot, error) {
	var raw rawLeaderboard
	if err := json.Unmarshal(data, &raw); err != nil {
		return Snapshot{}, fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
	}
	if raw.Members == nil {
		return Snapshot{}, fmt.Errorf("%w: missing members", ErrInvalidSnapshot)
	}

	snap := Snapshot{
		Event:   raw.Event,
		Members: make(map[string]Participant, len(raw.Members)),
	}
	if raw.OwnerID != 0 {
		snap.OwnerID = strconv.FormatInt(int64(raw.OwnerID), 10)
	}

	for key, m := range raw.Members {
		p, err := m.participant(key)
		if err != nil {
			return Snapshot{}, err
		}
		if _, dup := snap.Members[p.ID]; dup {
			return Snapshot{}, fmt.Errorf("%w: duplicate member id %s", ErrInvalidSnapshot, p.ID)
		}
		snap.Members[p.ID] = p
	}
	return snap, nil
}

func (m rawMember) participant(key string) (Participant, error) {
	id := key
	if m.ID != 0 {
		id = strconv.FormatInt(int64(m.ID), 10)
	}
	if m.Stars < 0 {
		return Participant{}, fmt.Errorf("%w: member %s has negative stars", ErrInvalidSnapshot, id)
	}

	p := Participant{
		ID:         id,
		Stars:      int(m.Stars),
		LocalScore: int(m.LocalScore),
	}
	if m.Name != nil && *m.Name != "" {
		p.Name = *m.Name
	} else {
		p.Name = "anonymous user #" + id
	}

	var latest int64
	if len(m.CompletionDayLevel) > 0 {
		p.Days = make(map[int]DayProgress, len(m.CompletionDayLevel))
		for dayKey, parts := range m.CompletionDayLevel {
			day, err := strconv.Atoi(dayKey)
			if err != nil {
				return Participant{}, fmt.Errorf("%w: member %s has day %q", ErrInvalidSnapshot, id, dayKey)
			}
			dp := make(DayProgress, len(parts))
			for partKey, star := range parts {
				part, err := strconv.Atoi(partKey)
				if err != nil {
					return Participant{}, fmt.Errorf("%w: member %s day %d has part %q", ErrInvalidSnapshot, id, day, partKey)
				}
				if star.GetStarTS <= 0 {
					continue
				}
				dp[part] = time.Unix(int64(star.GetStarTS), 0).UTC()
				if int64(star.GetStarTS) > latest {
					latest = int64(star.GetStarTS)
				}
			}
			p.Days[day] = dp
		}
	}

	switch {
	case p.Stars == 0:
		// A timestamp without stars is not progress.
	case m.LastStarTS > 0:
		p.LastProgress = time.Unix(int64(m.LastStarTS), 0).UTC()
	case latest > 0:
		p.LastProgress = time.Unix(latest, 0).UTC()
	}
	return p, nil
}
