package stories

import (
	"sort"
	"time"

	"github.com/framezsocial/framez/pkg/users/types"
)

// Group is one author's live stories for the stories bar, held oldest first
// so playback runs chronologically.
type Group struct {
	UserID  string      `json:"user_id"`
	User    *types.User `json:"user,omitempty"`
	Stories []Story     `json:"stories"`
}

// Latest is the timestamp of the group's most recent story, its ordering key.
func (g Group) Latest() time.Time {
	if len(g.Stories) == 0 {
		return time.Time{}
	}

	return g.Stories[len(g.Stories)-1].CreatedAt
}

// Start returns the playback entry point: the earliest unseen story, or the
// first story when everything was already seen.
func (g Group) Start() int {
	for i, story := range g.Stories {
		if !story.Seen {
			return i
		}
	}

	return 0
}

// Next advances playback past index. ok is false once the index would run
// past the last story, the group then collapses.
func (g Group) Next(index int) (int, bool) {
	if index+1 < len(g.Stories) {
		return index + 1, true
	}

	return 0, false
}

// Groups derives the stories-bar view from the flat fetched list: one group
// per author, groups ordered by their most recent story descending with the
// viewer's own group pinned first regardless of recency. The view is
// recomputed on every call, never maintained incrementally.
func (s *Store) Groups(viewer string) []Group {
	stories := s.Stories()

	index := make(map[string]int)
	groups := make([]Group, 0)

	// The flat list is newest first, prepending flips each group to
	// chronological order.
	for _, story := range stories {
		i, ok := index[story.UserID]
		if !ok {
			index[story.UserID] = len(groups)
			groups = append(groups, Group{UserID: story.UserID, User: story.User, Stories: []Story{story}})
			continue
		}

		groups[i].Stories = append([]Story{story}, groups[i].Stories...)
	}

	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].Latest().After(groups[j].Latest())
	})

	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].UserID == viewer && groups[j].UserID != viewer
	})

	return groups
}
