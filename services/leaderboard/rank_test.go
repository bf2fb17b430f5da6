package leaderboard

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"campaign-rewards/services/activity"
)

var (
	dayStart = time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)
	dayEnd   = dayStart.Add(24 * time.Hour)
)

func act(id, user string, typ activity.Type, points int64, at time.Time) *activity.SupporterActivity {
	return &activity.SupporterActivity{
		ID:             id,
		UserID:         user,
		ActivityType:   typ,
		PointsEarned:   points,
		RewardEligible: typ != activity.TypeView,
		CreatedAt:      at,
	}
}

func engage(id, user string, typ activity.Type, points int64, post *activity.SupporterActivity, at time.Time) *activity.SupporterActivity {
	a := act(id, user, typ, points, at)
	a.PostID = post.ID
	a.PostAuthorID = post.UserID
	return a
}

func TestRankTextImageVideo(t *testing.T) {
	items := []*activity.SupporterActivity{
		act("1", "text", activity.TypePostText, 10, dayStart.Add(time.Hour)),
		act("2", "image", activity.TypePostImage, 25, dayStart.Add(2*time.Hour)),
		act("3", "video", activity.TypePostVideo, 50, dayStart.Add(3*time.Hour)),
	}

	entries := Rank(items, dayStart, dayEnd, nil)
	require.Len(t, entries, 3)

	require.Equal(t, "video", entries[0].UserID)
	require.Equal(t, 1, entries[0].Rank)
	require.Equal(t, "image", entries[1].UserID)
	require.Equal(t, 2, entries[1].Rank)
	require.Equal(t, "text", entries[2].UserID)
	require.Equal(t, 3, entries[2].Rank)

	for _, e := range entries {
		require.Equal(t, int64(1), e.TotalPosts)
		require.Equal(t, dayStart, e.PeriodStart)
		require.Equal(t, dayEnd, e.PeriodEnd)
	}
}

func TestRankIsDeterministic(t *testing.T) {
	post := act("p", "alice", activity.TypePostText, 10, dayStart.Add(time.Hour))
	items := []*activity.SupporterActivity{
		post,
		act("q", "bob", activity.TypePostText, 10, dayStart.Add(time.Hour)),
		act("r", "carol", activity.TypePostText, 10, dayStart.Add(time.Hour)),
		engage("s", "dave", activity.TypeLike, 0, post, dayStart.Add(2*time.Hour)),
		engage("t", "erin", activity.TypeView, 0, post, dayStart.Add(2*time.Hour)),
		act("u", "frank", activity.TypePostImage, 25, dayStart.Add(5*time.Hour)),
	}

	want := Rank(items, dayStart, dayEnd, nil)
	require.Equal(t, want, Rank(items, dayStart, dayEnd, nil))

	r := rand.New(rand.NewSource(7))
	for i := 0; i < 20; i++ {
		shuffled := append([]*activity.SupporterActivity(nil), items...)
		r.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		require.Equal(t, want, Rank(shuffled, dayStart, dayEnd, nil))
	}
}

func TestRankTieBreaks(t *testing.T) {
	post := act("p", "zed", activity.TypePostText, 10, dayStart.Add(time.Hour))
	items := []*activity.SupporterActivity{
		post,
		act("q", "bob", activity.TypePostText, 10, dayStart.Add(time.Hour)),
		act("r", "amy", activity.TypePostText, 10, dayStart.Add(time.Hour)),
		engage("s", "viewer", activity.TypeView, 0, post, dayStart.Add(2*time.Hour)),
	}

	entries := Rank(items, dayStart, dayEnd, nil)
	require.Len(t, entries, 4)

	// zed wins on engagement, amy beats bob on user id.
	require.Equal(t, "zed", entries[0].UserID)
	require.Equal(t, int64(1), entries[0].TotalEngagement)
	require.Equal(t, "amy", entries[1].UserID)
	require.Equal(t, "bob", entries[2].UserID)
	require.Equal(t, "viewer", entries[3].UserID)

	for i, e := range entries {
		require.Equal(t, i+1, e.Rank)
	}
}

func TestRankEngagementWeights(t *testing.T) {
	post := act("p", "author", activity.TypePostText, 10, dayStart.Add(time.Hour))
	items := []*activity.SupporterActivity{
		post,
		engage("a", "x", activity.TypeLike, 0, post, dayStart.Add(2*time.Hour)),
		engage("b", "y", activity.TypeShare, 5, post, dayStart.Add(2*time.Hour)),
		engage("c", "z", activity.TypeComment, 2, post, dayStart.Add(2*time.Hour)),
	}

	entries := Rank(items, dayStart, dayEnd, nil)
	byUser := map[string]Entry{}
	for _, e := range entries {
		byUser[e.UserID] = e
	}
	require.Equal(t, int64(2), byUser["author"].TotalEngagement)
	require.Equal(t, int64(5), byUser["y"].TotalPoints)
	require.Zero(t, byUser["y"].TotalPosts)

	weighted := Rank(items, dayStart, dayEnd, Weights{activity.TypeComment: 3})
	for _, e := range weighted {
		if e.UserID == "author" {
			require.Equal(t, int64(3), e.TotalEngagement)
		}
	}
}

func TestRankFiltersWindow(t *testing.T) {
	items := []*activity.SupporterActivity{
		act("1", "early", activity.TypePostVideo, 50, dayStart.Add(-time.Nanosecond)),
		act("2", "start", activity.TypePostText, 10, dayStart),
		act("3", "end", activity.TypePostVideo, 50, dayEnd),
	}

	entries := Rank(items, dayStart, dayEnd, nil)
	require.Len(t, entries, 1)
	require.Equal(t, "start", entries[0].UserID)
}

func TestTop(t *testing.T) {
	lb := &Leaderboard{Entries: []Entry{
		{UserID: "a", TotalPoints: 50, Rank: 1},
		{UserID: "b", TotalPoints: 10, Rank: 2},
		{UserID: "c", TotalPoints: 0, Rank: 3},
	}}

	require.Len(t, lb.Top(5), 2)
	require.Len(t, lb.Top(1), 1)
	require.Equal(t, "a", lb.Top(1)[0].UserID)
}
