package generator

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fieldNames(t *testing.T, err error) []string {
	t.Helper()
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	out := make([]string, 0, len(verr.Fields))
	for _, f := range verr.Fields {
		out = append(out, f.Field)
	}
	return out
}

func TestSettingsValidate(t *testing.T) {
	tests := []struct {
		name   string
		s      Settings
		fields []string
	}{
		{"ok", Settings{Topic: "고양이"}, nil},
		{"blank topic", Settings{Topic: "   "}, []string{"topic"}},
		{"topic too long", Settings{Topic: strings.Repeat("가", MaxTopicLen+1)}, []string{"topic"}},
		{"topic at limit", Settings{Topic: strings.Repeat("가", MaxTopicLen)}, nil},
		{"custom worldview required", Settings{Topic: "t", Worldview: WorldviewCustom}, []string{"customWorldview"}},
		{"custom worldview too long", Settings{Topic: "t", Worldview: WorldviewCustom, CustomWorldview: strings.Repeat("a", MaxCustomWorldviewLen+1)}, []string{"customWorldview"}},
		{"unknown worldview", Settings{Topic: "t", Worldview: "MARS"}, []string{"worldview"}},
		{"long discussion", Settings{Topic: "t", DiscussionContext: strings.Repeat("a", MaxDiscussionContextLen+1)}, []string{"discussionContext"}},
		{"long species and affiliation", Settings{Topic: "t", Species: strings.Repeat("a", 31), Affiliation: strings.Repeat("a", 31)}, []string{"species", "affiliation"}},
		{"bad profile", Settings{Topic: "t", User: &UserProfile{NicknameType: NicknameFixed, Reputation: 101}}, []string{"nickname", "reputation"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.s.Validate()
			if tt.fields == nil {
				assert.NoError(t, err)
				return
			}
			assert.Equal(t, tt.fields, fieldNames(t, err))
		})
	}
}

func TestValidationMessageIsKorean(t *testing.T) {
	err := Settings{}.Validate()
	assert.EqualError(t, err, "주제를 입력해주세요.")
}

func TestPostDraftValidate(t *testing.T) {
	tests := []struct {
		name   string
		d      PostDraft
		fields []string
	}{
		{"ok", PostDraft{Title: "t", Author: "a", Content: "c"}, nil},
		{"empty", PostDraft{}, []string{"title", "author", "content"}},
		{"blank", PostDraft{Title: " ", Author: " ", Content: "\n"}, []string{"title", "author", "content"}},
		{"at limits", PostDraft{Title: strings.Repeat("제", MaxTitleLen), Author: strings.Repeat("닉", MaxAuthorLen), Content: strings.Repeat("내", MaxContentLen)}, nil},
		{"title too long", PostDraft{Title: strings.Repeat("제", MaxTitleLen+1), Author: "a", Content: "c"}, []string{"title"}},
		{"author too long", PostDraft{Title: "t", Author: strings.Repeat("닉", MaxAuthorLen+1), Content: "c"}, []string{"author"}},
		{"content too long", PostDraft{Title: "t", Author: "a", Content: strings.Repeat("내", MaxContentLen+1)}, []string{"content"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.d.Validate()
			if tt.fields == nil {
				assert.NoError(t, err)
				return
			}
			assert.Equal(t, tt.fields, fieldNames(t, err))
		})
	}
	assert.EqualError(t, PostDraft{Title: strings.Repeat("제", MaxTitleLen+1), Author: "a", Content: "c"}.Validate(), "제목은 50자 이내로 입력해주세요.")
}

func TestCommentDraft(t *testing.T) {
	assert.NoError(t, CommentDraft{Author: "a", Text: "hi"}.Validate())
	assert.Equal(t, []string{"author", "text"}, fieldNames(t, CommentDraft{Text: "  "}.Validate()))
	assert.Equal(t, []string{"text"}, fieldNames(t, CommentDraft{Author: "a", Text: strings.Repeat("가", MaxCommentLen+1)}.Validate()))
	assert.Equal(t, []string{"replyTo"}, fieldNames(t, CommentDraft{Author: "a", Text: "hi", ReplyTo: strings.Repeat("r", MaxReplyToLen+1)}.Validate()))

	assert.Equal(t, "hi", CommentDraft{Text: " hi "}.FinalText())
	assert.Equal(t, "@ㅇㅇ(1.2) hi", CommentDraft{Text: "hi", ReplyTo: " ㅇㅇ(1.2)"}.FinalText())
}

func TestUserProfile(t *testing.T) {
	anon := UserProfile{NicknameType: NicknameAnonymous, Nickname: "ㅇㅇ", IP: "(10.20)", Reputation: 50}
	assert.Equal(t, "ㅇㅇ(10.20)", anon.DisplayName())
	assert.Equal(t, StanceNeutral, anon.Stance())
	assert.NoError(t, anon.Validate())

	fixed := UserProfile{NicknameType: NicknameFixed, Nickname: "고닉", IP: "(1.1)"}
	assert.Equal(t, "고닉", fixed.DisplayName())

	assert.Equal(t, []string{"nickname"}, fieldNames(t, UserProfile{NicknameType: NicknameFixed, Nickname: strings.Repeat("닉", 11)}.Validate()))
}

func TestStanceFor(t *testing.T) {
	tests := map[int]Stance{
		0: StanceHated, 20: StanceHated,
		21: StanceUnpopular, 40: StanceUnpopular,
		41: StanceNeutral, 60: StanceNeutral,
		61: StancePopular, 80: StancePopular,
		81: StanceIdolized, 100: StanceIdolized,
	}
	for rep, want := range tests {
		assert.Equal(t, want, StanceFor(rep), "reputation %d", rep)
	}
}

func TestRandomIP(t *testing.T) {
	assert.Equal(t, "(7.7)", RandomIP(fixedRand{v: 7}))
}

func TestWithUserIP(t *testing.T) {
	anon := &UserProfile{NicknameType: NicknameAnonymous, Nickname: "ㅇㅇ"}
	s := Settings{Topic: "t", User: anon}.WithUserIP(fixedRand{v: 7})
	assert.Equal(t, "(7.7)", s.User.IP)
	assert.Equal(t, "ㅇㅇ(7.7)", s.User.DisplayName())
	assert.Empty(t, anon.IP)

	kept := Settings{User: &UserProfile{NicknameType: NicknameAnonymous, IP: "(1.2)"}}.WithUserIP(fixedRand{v: 7})
	assert.Equal(t, "(1.2)", kept.User.IP)

	fixed := Settings{User: &UserProfile{NicknameType: NicknameFixed, Nickname: "고닉"}}.WithUserIP(nil)
	assert.Empty(t, fixed.User.IP)

	assert.Nil(t, Settings{}.WithUserIP(nil).User)
	assert.Regexp(t, `^\(\d{1,3}\.\d{1,3}\)$`, Settings{User: &UserProfile{NicknameType: NicknameAnonymous}}.WithUserIP(nil).User.IP)
}

func TestSettingsNormalized(t *testing.T) {
	groups := []string{"20s"}
	user := &UserProfile{Nickname: "a"}
	s := Settings{Topic: "t", MalePercentage: 140, AgeGroups: groups, User: user, Toxicity: "bogus"}.Normalized()

	assert.Equal(t, WorldviewNone, s.Worldview)
	assert.Equal(t, DefaultEra, s.Era)
	assert.Equal(t, DefaultToxicity, s.Toxicity)
	assert.Equal(t, DefaultNickRatio, s.NickRatio)
	assert.Equal(t, DefaultModel, s.Model)
	assert.Equal(t, 100, s.MalePercentage)

	s.AgeGroups[0] = "changed"
	s.User.Nickname = "changed"
	assert.Equal(t, "20s", groups[0])
	assert.Equal(t, "a", user.Nickname)

	assert.Equal(t, GenderAuto, s.GenderRatio())
	assert.Nil(t, s.AgeRange())
	s.ManualGender, s.ManualAge = true, true
	assert.Equal(t, "100", s.GenderRatio())
	assert.Equal(t, []string{"changed"}, s.AgeRange())
}
