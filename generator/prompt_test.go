package generator

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPickCount(t *testing.T) {
	assert.Equal(t, 5, PickCount(fixedRand{}, 5, 10))
	assert.Equal(t, 10, PickCount(fixedRand{v: 99}, 5, 10))
	assert.Equal(t, 7, PickCount(fixedRand{v: 99}, 7, 7))
	assert.Equal(t, 7, PickCount(fixedRand{}, 7, 3))
}

func TestGalleryTitle(t *testing.T) {
	s := Settings{Topic: "고양이", Worldview: WorldviewMurim, Toxicity: "MILD"}.Normalized()
	title := GalleryTitle(s)
	assert.True(t, strings.HasPrefix(title, "[고양이] 갤러리 - "), title)
	assert.True(t, strings.HasSuffix(title, "[순한맛]"), title)
}

func TestBuildGalleryPrompt(t *testing.T) {
	lim := DefaultLimits()

	t.Run("schema without search", func(t *testing.T) {
		p := BuildGalleryPrompt(Settings{Topic: "cats", DiscussionContext: "사료값 인상"}.Normalized(), lim)
		assert.Equal(t, OpGallery, p.Kind)
		assert.Equal(t, SchemaGallery, p.Schema)
		assert.True(t, p.JSON)
		assert.False(t, p.Search)
		assert.Zero(t, p.ThinkingBudget)
		assert.Contains(t, p.User, "PROMPT VERSION: "+GalleryPromptVersion)
		assert.Contains(t, p.User, "Generate EXACTLY 5 posts")
		assert.Contains(t, p.User, `"사료값 인상"`)
		assert.NotContains(t, p.User, "JSON OUTPUT SPECIFICATION")
		assert.Contains(t, p.System, "SAFETY & CONTENT PROTOCOLS")
	})

	t.Run("search drops schema", func(t *testing.T) {
		p := BuildGalleryPrompt(Settings{Topic: "cats", Search: true, Model: ModelPro}.Normalized(), lim)
		assert.Equal(t, SchemaNone, p.Schema)
		assert.True(t, p.Search)
		assert.Contains(t, p.User, "Use Google Search")
		assert.Contains(t, p.User, "JSON OUTPUT SPECIFICATION")
		assert.Equal(t, ThinkingBudget, p.ThinkingBudget)
		assert.Equal(t, ModelPro, p.Model)
	})

	t.Run("daily chatter default", func(t *testing.T) {
		p := BuildGalleryPrompt(Settings{Topic: "cats"}.Normalized(), lim)
		assert.Contains(t, p.User, `"Daily chatter"`)
	})
}

func TestBuildSystemInstructionUserStatus(t *testing.T) {
	s := Settings{Topic: "cats", User: &UserProfile{NicknameType: NicknameFixed, Nickname: "냥집사", Reputation: 95}}.Normalized()
	sys := BuildSystemInstruction(s)
	assert.Contains(t, sys, `"냥집사"`)
	assert.Contains(t, sys, StanceIdolized.Description())

	sys = BuildSystemInstruction(Settings{Topic: "cats"}.Normalized())
	assert.NotContains(t, sys, "Current User Context")
}

func TestBuildCommentPrompt(t *testing.T) {
	user := &UserProfile{NicknameType: NicknameAnonymous, Nickname: "ㅇㅇ", IP: "(1.2)", Reputation: 10}
	s := Settings{Topic: "cats", User: user}.Normalized()

	p, n := BuildCommentPrompt(s, PostDraft{Title: "t", Author: "ㅇㅇ(1.2)", Content: "c"}, 5, 10, fixedRand{v: 2})
	assert.Equal(t, 7, n)
	assert.Equal(t, OpComments, p.Kind)
	assert.Contains(t, p.User, "Generate 7 comments")
	assert.Contains(t, p.User, "USER REPUTATION BIAS")
	assert.Contains(t, p.User, StanceHated.Description())
	assert.Equal(t, SchemaNone, p.Schema)

	p, _ = BuildCommentPrompt(s, PostDraft{Title: "t", Author: "남", Content: "c"}, 5, 10, fixedRand{})
	assert.NotContains(t, p.User, "USER REPUTATION BIAS")
}

func TestBuildFollowUpPrompt(t *testing.T) {
	user := &UserProfile{NicknameType: NicknameFixed, Nickname: "작성자", Reputation: 50}
	s := Settings{Topic: "cats", User: user}.Normalized()

	long := strings.Repeat("가", 80)
	comments := []Comment{
		{Author: "a1", Text: "첫 댓글"},
		{Author: "a2", Text: "2"},
		{Author: "a3", Text: "3"},
		{Author: "a4", Text: "4"},
		{Author: "a5", Text: long},
		{Author: PostAuthorPrefix + "작성자", Text: "내 댓글"},
	}
	post := Post{Title: "글", Author: "작성자", Comments: comments}

	p, n := BuildFollowUpPrompt(s, post, comments, 5, 8, fixedRand{v: 1})
	assert.Equal(t, 6, n)
	assert.Equal(t, OpFollowUps, p.Kind)
	assert.Contains(t, p.User, "Continue the discussion with 6 new comments")
	assert.NotContains(t, p.User, "첫 댓글")
	assert.Contains(t, p.User, "a5: "+strings.Repeat("가", 50)+"\n")
	assert.NotContains(t, p.User, strings.Repeat("가", 51))
	assert.Contains(t, p.User, "USER REPUTATION BIAS")

	p, _ = BuildFollowUpPrompt(s, post, comments[:5], 5, 8, fixedRand{})
	assert.NotContains(t, p.User, "USER REPUTATION BIAS")
}

func TestBuildEvaluationAndFeedbackPrompts(t *testing.T) {
	s := Settings{Topic: "cats", Worldview: WorldviewCustom, CustomWorldview: "고양이가 지배하는 세계"}.Normalized()

	ev := BuildEvaluationPrompt(s, PostDraft{Title: "제목", Content: "본문"})
	assert.Equal(t, SchemaEvaluation, ev.Schema)
	assert.Contains(t, ev.User, "Title: 제목")
	assert.Contains(t, ev.System, "고양이가 지배하는 세계")

	fb := BuildWorldviewFeedbackPrompt(s, Gallery{Posts: []Post{{Title: "첫 글"}}})
	require.Equal(t, OpFeedback, fb.Kind)
	assert.Empty(t, fb.System)
	assert.False(t, fb.JSON)
	assert.Contains(t, fb.User, `"첫 글"`)
	assert.Contains(t, fb.User, `"고양이가 지배하는 세계"`)
}
