package generator

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memPersister struct {
	mu       sync.Mutex
	gallery  *Gallery
	settings *Settings
	profile  *UserProfile
	saves    int
}

func (m *memPersister) SaveGallery(_ context.Context, g Gallery) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := g.Clone()
	m.gallery = &c
	m.saves++
	return nil
}

func (m *memPersister) SaveSettings(_ context.Context, s Settings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings = &s
	return nil
}

func (m *memPersister) SaveProfile(_ context.Context, u UserProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profile = &u
	return nil
}

// blockingLLM 在 release 关闭前阻塞所有调用。
type blockingLLM struct {
	fakeLLM
	started chan struct{}
	release chan struct{}
}

func (b *blockingLLM) Complete(ctx context.Context, p Prompt) (string, error) {
	close(b.started)
	<-b.release
	return b.fakeLLM.Complete(ctx, p)
}

func newGeneratedSession(t *testing.T, llm *fakeLLM, store Persister) *Session {
	t.Helper()
	llm.chunks = streamOf(galleryJSON(5, 12), 64)
	user := &UserProfile{NicknameType: NicknameFixed, Nickname: "냥집사", Reputation: 70}
	s := NewSession("s1", Settings{Topic: "cats", User: user}, newTestAgent(t, llm), WithPersister(store))
	_, err := s.Generate(context.Background(), nil)
	require.NoError(t, err)
	return s
}

func TestSessionGenerate(t *testing.T) {
	store := &memPersister{}
	llm := &fakeLLM{}
	s := newGeneratedSession(t, llm, store)

	snap := s.Snapshot()
	require.NotNil(t, snap.Gallery)
	assert.Len(t, snap.Gallery.Posts, 5)
	assert.Equal(t, "s1", snap.ID)

	require.NotNil(t, store.gallery)
	assert.Equal(t, *snap.Gallery, *store.gallery)
	require.NotNil(t, store.settings)
	assert.Equal(t, "cats", store.settings.Topic)
	require.NotNil(t, store.profile)
	assert.Equal(t, "냥집사", store.profile.Nickname)

	// snapshot 是副本
	snap.Gallery.Posts[0].Title = "changed"
	assert.NotEqual(t, "changed", s.Snapshot().Gallery.Posts[0].Title)
}

func TestSessionGenerateFailureKeepsGallery(t *testing.T) {
	llm := &fakeLLM{}
	s := newGeneratedSession(t, llm, nil)
	before := s.Snapshot().Gallery

	llm.chunks = streamOf("sorry", 2)
	_, err := s.Generate(context.Background(), nil)
	require.Error(t, err)
	assert.Equal(t, before, s.Snapshot().Gallery)
}

func TestSessionRequiresGallery(t *testing.T) {
	s := NewSession("s", Settings{Topic: "cats"}, newTestAgent(t, &fakeLLM{}))
	_, err := s.AddComment(context.Background(), "p", CommentDraft{Text: "hi"})
	assert.ErrorIs(t, err, ErrNoGallery)
	_, err = s.AddPost(context.Background(), PostDraft{Title: "t", Content: "c"})
	assert.ErrorIs(t, err, ErrNoGallery)
	assert.Nil(t, s.Snapshot().Gallery)
}

func TestSessionAddPost(t *testing.T) {
	llm := &fakeLLM{}
	s := newGeneratedSession(t, llm, &memPersister{})
	llm.responses = []fakeResponse{
		{text: `{"suggestedViews": 10, "suggestedRecommendations": 1, "suggestedNonRecommendations": 0}`},
		{text: `[{"author":"a","text":"첫"}]`},
	}
	llm.calls = nil

	post, err := s.AddPost(context.Background(), PostDraft{Title: "내 글", Content: "본문"})
	require.NoError(t, err)
	assert.Equal(t, "냥집사", post.Author)
	assert.False(t, post.IsBestPost)

	g := s.Snapshot().Gallery
	require.Len(t, g.Posts, 6)
	assert.Equal(t, post.ID, g.Posts[0].ID)
}

func TestSessionAddCommentKeepsUserCommentOnFailure(t *testing.T) {
	store := &memPersister{}
	llm := &fakeLLM{}
	s := newGeneratedSession(t, llm, store)
	postID := s.Snapshot().Gallery.Posts[1].ID
	before := len(s.Snapshot().Gallery.Posts[1].Comments)

	llm.responses = []fakeResponse{{err: errors.New("503")}}
	post, err := s.AddComment(context.Background(), postID, CommentDraft{Text: "  제 생각은 다릅니다  "})
	var serr *ServiceError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, OpFollowUps, serr.Op)

	require.Len(t, post.Comments, before+1)
	last := post.Comments[len(post.Comments)-1]
	assert.Equal(t, "제 생각은 다릅니다", last.Text)
	assert.Equal(t, "냥집사", last.Author)
	assert.True(t, strings.HasPrefix(last.ID, "user-comment-"))

	idx, ok := s.Snapshot().Gallery.FindPost(postID)
	require.True(t, ok)
	assert.Len(t, s.Snapshot().Gallery.Posts[idx].Comments, before+1)
	idx, _ = store.gallery.FindPost(postID)
	assert.Len(t, store.gallery.Posts[idx].Comments, before+1)
}

func TestSessionAddCommentWithFollowUps(t *testing.T) {
	llm := &fakeLLM{}
	s := newGeneratedSession(t, llm, nil)
	postID := s.Snapshot().Gallery.Posts[2].ID
	before := len(s.Snapshot().Gallery.Posts[2].Comments)

	llm.responses = []fakeResponse{{text: `[{"author":"a","text":"1"},{"author":"b","text":"2"},{"author":"c","text":"3"},{"author":"d","text":"4"},{"author":"e","text":"5"}]`}}
	post, err := s.AddComment(context.Background(), postID, CommentDraft{Text: "hi"})
	require.NoError(t, err)
	assert.Len(t, post.Comments, before+1+5)

	_, err = s.AddComment(context.Background(), "missing", CommentDraft{Text: "hi"})
	assert.ErrorIs(t, err, ErrPostNotFound)

	_, err = s.AddComment(context.Background(), postID, CommentDraft{Text: "   "})
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestSessionRejectsCommentOnFullPost(t *testing.T) {
	llm := &fakeLLM{}
	s := newGeneratedSession(t, llm, nil)
	postID := s.Snapshot().Gallery.Posts[0].ID

	many := `[` + strings.Repeat(`{"author":"a","text":"t"},`, 29) + `{"author":"a","text":"t"}]`
	llm.responses = []fakeResponse{{text: many}}
	post, err := s.AddComment(context.Background(), postID, CommentDraft{Text: "hi"})
	require.NoError(t, err)
	require.Len(t, post.Comments, 30)

	calls := llm.callCount()
	_, err = s.AddComment(context.Background(), postID, CommentDraft{Text: "one more"})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, calls, llm.callCount())
}

func TestSessionBusy(t *testing.T) {
	inner := &fakeLLM{}
	s := newGeneratedSession(t, inner, nil)

	b := &blockingLLM{started: make(chan struct{}), release: make(chan struct{})}
	b.responses = []fakeResponse{{text: `[]`}}
	s.agent = newTestAgent(t, b)
	postID := s.Snapshot().Gallery.Posts[1].ID

	done := make(chan error, 1)
	go func() {
		_, err := s.AddComment(context.Background(), postID, CommentDraft{Text: "first"})
		done <- err
	}()
	<-b.started

	_, err := s.AddComment(context.Background(), postID, CommentDraft{Text: "second"})
	assert.ErrorIs(t, err, ErrBusy)
	_, err = s.Generate(context.Background(), nil)
	assert.ErrorIs(t, err, ErrBusy)

	close(b.release)
	require.NoError(t, <-done)
}

func TestSessionWorldviewFeedback(t *testing.T) {
	llm := &fakeLLM{chunks: streamOf(galleryJSON(5, 10), 64)}
	s := NewSession("s", Settings{Topic: "cats", Worldview: WorldviewCustom, CustomWorldview: "고양이 왕국"}, newTestAgent(t, llm))
	_, err := s.Generate(context.Background(), nil)
	require.NoError(t, err)

	llm.responses = []fakeResponse{{text: "좋은 설정입니다."}}
	text, err := s.WorldviewFeedback(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "좋은 설정입니다.", text)
	assert.Equal(t, text, s.Snapshot().Feedback)
}

func TestSessionAddCommentAuthorAndReply(t *testing.T) {
	llm := &fakeLLM{}
	s := newGeneratedSession(t, llm, nil)
	target := s.Snapshot().Gallery.Posts[1]
	replyTo := target.Comments[0].Author

	llm.responses = []fakeResponse{{text: `[]`}, {text: `[]`}}
	post, err := s.AddComment(context.Background(), target.ID, CommentDraft{Author: " 지나가던행인 ", Text: "동의함", ReplyTo: replyTo})
	require.NoError(t, err)
	last := post.Comments[len(post.Comments)-1]
	assert.Equal(t, "지나가던행인", last.Author)
	assert.Equal(t, "@"+replyTo+" 동의함", last.Text)

	// 用帖子作者的昵称评论时加上楼主前缀
	post, err = s.AddComment(context.Background(), target.ID, CommentDraft{Author: target.Author, Text: "글쓴이임"})
	require.NoError(t, err)
	last = post.Comments[len(post.Comments)-1]
	assert.Equal(t, PostAuthorPrefix+target.Author, last.Author)
}

func TestSessionRejectsOversizedInputBeforeModelCall(t *testing.T) {
	llm := &fakeLLM{}
	s := newGeneratedSession(t, llm, nil)
	postID := s.Snapshot().Gallery.Posts[1].ID
	calls := llm.callCount()

	_, err := s.AddComment(context.Background(), postID, CommentDraft{Text: strings.Repeat("가", MaxCommentLen+1)})
	assert.Equal(t, []string{"text"}, fieldNames(t, err))
	_, err = s.AddComment(context.Background(), postID, CommentDraft{Author: strings.Repeat("닉", MaxAuthorLen+1), Text: "hi"})
	assert.Equal(t, []string{"author"}, fieldNames(t, err))

	_, err = s.AddPost(context.Background(), PostDraft{Title: "t", Content: strings.Repeat("가", 10000)})
	assert.Equal(t, []string{"content"}, fieldNames(t, err))

	assert.Equal(t, calls, llm.callCount())
	assert.Len(t, s.Snapshot().Gallery.Posts, 5)
}
