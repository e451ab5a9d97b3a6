package generator

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rawPosts(n, comments int) []RawPost {
	out := make([]RawPost, 0, n)
	for i := 0; i < n; i++ {
		rp := RawPost{Title: fmt.Sprintf("글 %d", i), Author: fmt.Sprintf("작성자%d", i), Content: "내용"}
		for j := 0; j < comments; j++ {
			rp.Comments = append(rp.Comments, RawComment{Author: fmt.Sprintf("댓글러%d", j), Text: "ㅋㅋ"})
		}
		out = append(out, rp)
	}
	return out
}

func assertGalleryInvariants(t *testing.T, g Gallery, lim Limits) {
	t.Helper()
	require.Len(t, g.Posts, lim.Posts)

	best := 0
	for i, p := range g.Posts {
		if p.IsBestPost {
			best++
			assert.Equal(t, 0, i, "best post must be first")
		}
		r := lim.commentRange(p.IsBestPost)
		assert.GreaterOrEqual(t, len(p.Comments), r.Min, "post %d", i)
		assert.LessOrEqual(t, len(p.Comments), r.Max, "post %d", i)
		if i > 0 {
			assert.True(t, g.Posts[i-1].Timestamp.After(p.Timestamp), "posts must be newest first")
		}
		for j, c := range p.Comments {
			assert.False(t, c.Timestamp.After(fixedNow), "comment in the future")
			if j > 0 {
				assert.False(t, c.Timestamp.Before(p.Comments[j-1].Timestamp), "comments out of order")
			}
		}
	}
	assert.Equal(t, 1, best)
}

func TestBuildGalleryScenario(t *testing.T) {
	s := Settings{Topic: "cats", Toxicity: "MILD", Model: "X"}.Normalized()
	raw, err := DecodeGallery(galleryJSON(3, 2))
	require.NoError(t, err)

	pp := newTestProcessor()
	g := pp.BuildGallery(raw, s, nil)

	lim := pp.Limits()
	assertGalleryInvariants(t, g, lim)
	assert.True(t, g.Posts[0].IsBestPost)
	assert.Equal(t, "글 0", g.Posts[0].Title)

	fillers := 0
	for _, p := range g.Posts {
		if strings.HasPrefix(p.ID, "post-fallback-") {
			fillers++
			assert.False(t, p.IsBestPost)
			assert.Equal(t, placeholderContent, p.Content)
		}
	}
	assert.Equal(t, 2, fillers)

	// 精华帖只有 2 条评论，需要补到 10 条
	best := g.Posts[0]
	assert.Len(t, best.Comments, lim.BestComments.Min)
	assert.Equal(t, fillerTextBest, best.Comments[len(best.Comments)-1].Text)
	assert.Equal(t, "자동댓글러3", best.Comments[2].Author)
}

func TestBuildGalleryTruncates(t *testing.T) {
	pp := newTestProcessor()
	raw := RawGallery{Title: "t", Posts: rawPosts(7, 40)}
	g := pp.BuildGallery(raw, Settings{Topic: "x"}, nil)

	assertGalleryInvariants(t, g, pp.Limits())
	assert.Len(t, g.Posts[0].Comments, 20)
	for _, p := range g.Posts[1:] {
		assert.Len(t, p.Comments, 10)
	}
}

func TestBuildGalleryRandomized(t *testing.T) {
	for seed := 0; seed < 30; seed++ {
		pp := NewPostProcessor(WithClock(func() time.Time { return fixedNow }))
		n := seed % 8
		raw := RawGallery{Title: "t", Posts: rawPosts(max(n, 1), seed)}
		assertGalleryInvariants(t, pp.BuildGallery(raw, Settings{Topic: "x"}, nil), pp.Limits())
	}
}

func TestBuildGalleryFillsBlanks(t *testing.T) {
	pp := newTestProcessor()
	raw := RawGallery{Posts: []RawPost{{Comments: []RawComment{{Text: "  "}}}}}
	g := pp.BuildGallery(raw, Settings{Topic: "x"}, nil)

	p := g.Posts[0]
	assert.Equal(t, "익명_1", p.Author)
	assert.Equal(t, `"x" 주제 포스트 #1`+bestTitleSuffix, p.Title)
	assert.Equal(t, emptyPostContent, p.Content)
	assert.Equal(t, "댓_1", p.Comments[0].Author)
	assert.Equal(t, emptyCommentText, p.Comments[0].Text)
}

func TestAuthorPrefixRoundTrip(t *testing.T) {
	pp := newTestProcessor()
	raw := RawGallery{Posts: []RawPost{{
		Title:  "t",
		Author: "ㅇㅇ(1.2)",
		Comments: []RawComment{
			{Author: "ㅇㅇ(1.2)", Text: "본인 등판"},
			{Author: "다른사람", Text: "ㅋㅋ"},
		},
	}}}
	g := pp.BuildGallery(raw, Settings{Topic: "x"}, nil)

	for _, p := range g.Posts {
		for _, c := range p.Comments {
			if StripPostAuthor(c.Author) == p.Author {
				assert.Equal(t, PostAuthorPrefix+p.Author, c.Author)
			}
		}
	}
	c := g.Posts[0].Comments
	assert.Equal(t, PostAuthorPrefix+"ㅇㅇ(1.2)", c[0].Author)
	assert.Equal(t, "다른사람", c[1].Author)
	assert.Equal(t, "ㅇㅇ(1.2)", StripPostAuthor(c[0].Author))
}

func TestDedupeSources(t *testing.T) {
	in := []Source{
		{Title: "a", URI: "https://a"},
		{Title: "b", URI: "https://b"},
		{Title: "a again", URI: "https://a"},
		{Title: "empty"},
		{Title: "c", URI: "https://c"},
		{Title: "empty again"},
		{Title: "b again", URI: "https://b"},
	}
	want := []Source{
		{Title: "a", URI: "https://a"},
		{Title: "b", URI: "https://b"},
		{Title: "empty"},
		{Title: "c", URI: "https://c"},
	}
	if diff := cmp.Diff(want, DedupeSources(in)); diff != "" {
		t.Errorf("DedupeSources mismatch (-want +got):\n%s", diff)
	}

	g := newTestProcessor().BuildGallery(RawGallery{Posts: rawPosts(1, 0)}, Settings{Topic: "x"}, in)
	assert.Equal(t, want, g.Sources)
}

func TestBuildUserPost(t *testing.T) {
	pp := newTestProcessor()
	draft := PostDraft{Title: "제목", Author: "나", Content: "본문"}

	t.Run("best when over threshold", func(t *testing.T) {
		raw := rawPosts(1, 30)[0].Comments
		raw = append(raw, RawComment{Author: "나", Text: "자추"})
		post := pp.BuildUserPost(draft, Evaluation{Views: 900, Recommendations: 50}, raw)
		assert.True(t, post.IsBestPost)
		assert.Len(t, post.Comments, 20)
		assert.True(t, strings.HasPrefix(post.ID, "user-post-"))
		assert.Equal(t, fixedNow, post.Timestamp)
	})

	t.Run("standard is not padded", func(t *testing.T) {
		raw := []RawComment{{Author: "나", Text: "자추"}, {Author: "b", Text: "t"}}
		post := pp.BuildUserPost(draft, Evaluation{Views: -5, Recommendations: 49, NonRecommendations: -1}, raw)
		assert.False(t, post.IsBestPost)
		require.Len(t, post.Comments, 2)
		assert.Equal(t, PostAuthorPrefix+"나", post.Comments[0].Author)
		assert.Equal(t, 0, post.Views)
		assert.Equal(t, 0, post.NonRecommendations)
	})
}

func TestUserCommentAndFollowUps(t *testing.T) {
	pp := newTestProcessor()
	post := pp.BuildUserPost(PostDraft{Title: "t", Author: "작성자", Content: "c"}, Evaluation{}, rawPosts(1, 5)[0].Comments)

	uc := pp.NewUserComment(post, "작성자", "댓글")
	assert.True(t, strings.HasPrefix(uc.ID, "user-comment-"+post.ID+"-"))
	assert.Equal(t, PostAuthorPrefix+"작성자", uc.Author)
	assert.False(t, uc.Timestamp.Before(latestComment(post)))

	post = pp.AppendComments(post, []Comment{uc})
	require.Len(t, post.Comments, 6)
	assert.Equal(t, uc, post.Comments[5])
	assert.Equal(t, 24, pp.Room(post))

	raw := make([]RawComment, 40)
	for i := range raw {
		raw[i] = RawComment{Author: "작성자", Text: "후속"}
	}
	fu := pp.BuildFollowUps(post, raw, pp.Room(post))
	require.Len(t, fu, 24)
	assert.True(t, strings.HasPrefix(fu[0].ID, "ai-followup-comment-"+post.ID+"-0-"))
	assert.Equal(t, PostAuthorPrefix+"작성자", fu[0].Author)
	assert.True(t, fu[0].Timestamp.After(uc.Timestamp))

	full := pp.AppendComments(post, fu)
	assert.Len(t, full.Comments, 30)
	assert.Equal(t, 0, pp.Room(full))
	assert.Nil(t, pp.BuildFollowUps(full, raw, pp.Room(full)))
	assert.Len(t, pp.AppendComments(full, fu).Comments, 30)
}

func TestAppendCommentsDoesNotMutate(t *testing.T) {
	pp := newTestProcessor()
	post := Post{ID: "p", Comments: []Comment{{ID: "c1", Timestamp: fixedNow}}}
	out := pp.AppendComments(post, []Comment{{ID: "c2", Timestamp: fixedNow.Add(time.Second)}})
	assert.Len(t, post.Comments, 1)
	assert.Len(t, out.Comments, 2)
}
