package generator

import (
	"fmt"
	"math/rand/v2"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// PostAuthorPrefix 标记 "楼主在自己帖子下评论"。
	PostAuthorPrefix = "(글쓴이) "
	// UserCommentAuthor 用户未设置资料时评论的默认署名。
	UserCommentAuthor = "나"

	emptyCommentText     = "흠..."
	emptyPostContent     = "이 게시물에는 아직 내용이 없습니다."
	bestTitleSuffix      = " (🔥인기글🔥)"
	fillerTextBest       = "이것이 개념글의 품격인가!"
	fillerTextStandard   = "재미있네요!"
	placeholderContent   = "AI가 요청한 만큼의 게시물을 생성하지 못했습니다. 이 게시물은 자리 채우기용입니다."
	placeholderAuthor    = "시스템"
	placeholderReplyText = "이 게시물은 자동으로 생성된 게시물의 자동 댓글입니다."
)

type Range struct {
	Min int `mapstructure:"min" json:"min"`
	Max int `mapstructure:"max" json:"max"`
}

// Limits 数量约束。
type Limits struct {
	Posts              int   `mapstructure:"posts" json:"posts"`
	Comments           Range `mapstructure:"comments" json:"comments"`
	BestComments       Range `mapstructure:"best_comments" json:"bestComments"`
	FollowUps          Range `mapstructure:"follow_ups" json:"followUps"`
	MaxCommentsPerPost int   `mapstructure:"max_comments_per_post" json:"maxCommentsPerPost"`
	BestThreshold      int   `mapstructure:"best_threshold" json:"bestThreshold"`
}

func DefaultLimits() Limits {
	return Limits{
		Posts:              5,
		Comments:           Range{Min: 5, Max: 10},
		BestComments:       Range{Min: 10, Max: 20},
		FollowUps:          Range{Min: 5, Max: 10},
		MaxCommentsPerPost: 30,
		BestThreshold:      50,
	}
}

func (l Limits) commentRange(best bool) Range {
	if best {
		return l.BestComments
	}
	return l.Comments
}

// PostProcessor 把模型输出映射成领域记录。随机数、时钟、ID 均可注入，便于测试。
type PostProcessor struct {
	limits Limits
	rng    Rand
	now    func() time.Time
	newID  func() string
}

type PostProcessorOption func(*PostProcessor)

func WithLimits(l Limits) PostProcessorOption {
	return func(p *PostProcessor) { p.limits = l }
}

func WithRand(r Rand) PostProcessorOption {
	return func(p *PostProcessor) { p.rng = r }
}

func WithClock(now func() time.Time) PostProcessorOption {
	return func(p *PostProcessor) { p.now = now }
}

func WithIDFunc(f func() string) PostProcessorOption {
	return func(p *PostProcessor) { p.newID = f }
}

func NewPostProcessor(opts ...PostProcessorOption) *PostProcessor {
	p := &PostProcessor{
		limits: DefaultLimits(),
		rng:    globalRand{},
		now:    time.Now,
		newID:  func() string { return uuid.NewString()[:8] },
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *PostProcessor) Limits() Limits { return p.limits }

// globalRand 使用 math/rand/v2 的全局源（并发安全）。
type globalRand struct{}

func (globalRand) Intn(n int) int { return rand.IntN(n) }

// BuildGallery 截断或补齐到 N 篇帖子；第 0 篇为精华帖且时间最新，按时间倒序后仍在首位。
func (p *PostProcessor) BuildGallery(raw RawGallery, s Settings, sources []Source) Gallery {
	now := p.now()
	n := p.limits.Posts

	items := raw.Posts
	if len(items) > n {
		items = items[:n]
	}
	posts := make([]Post, 0, n)
	for i, rp := range items {
		posts = append(posts, p.buildPost(rp, i, s.Topic, now))
	}
	for len(posts) < n {
		posts = append(posts, p.placeholderPost(len(posts), s.Topic, now))
	}
	slices.SortStableFunc(posts, func(a, b Post) int {
		return b.Timestamp.Compare(a.Timestamp)
	})

	return Gallery{
		Title:   raw.Title,
		Posts:   posts,
		Sources: DedupeSources(sources),
	}
}

// postTime 第 i 篇帖子落在 [i 小时, i 小时+30 分钟) 之前，保证严格递减。
func (p *PostProcessor) postTime(idx int, now time.Time) time.Time {
	offset := time.Duration(idx)*time.Hour + time.Duration(p.rng.Intn(30*60))*time.Second
	return now.Add(-offset)
}

func (p *PostProcessor) buildPost(rp RawPost, idx int, topic string, now time.Time) Post {
	best := idx == 0
	id := fmt.Sprintf("post-%s-%d", p.newID(), idx)

	author := rp.Author
	if author == "" {
		author = fmt.Sprintf("익명_%d", idx+1)
	}
	title := rp.Title
	if title == "" {
		title = fmt.Sprintf("%q 주제 포스트 #%d", topic, idx+1)
		if best {
			title += bestTitleSuffix
		}
	}
	content := rp.Content
	if content == "" {
		content = emptyPostContent
	}

	post := Post{
		ID:         id,
		Title:      title,
		Author:     author,
		Timestamp:  p.postTime(idx, now),
		Content:    content,
		IsBestPost: best,
	}
	if best {
		post.Views = 5000 + p.rng.Intn(15000)
		post.Recommendations = 200 + p.rng.Intn(500)
		post.NonRecommendations = 5 + p.rng.Intn(30)
	} else {
		post.Views = 50 + p.rng.Intn(2000)
		post.Recommendations = p.rng.Intn(49)
		post.NonRecommendations = p.rng.Intn(20)
	}

	r := p.limits.commentRange(best)
	raw := rp.Comments
	if len(raw) > r.Max {
		raw = raw[:r.Max]
	}
	ts := post.Timestamp
	for j, rc := range raw {
		a := rc.Author
		if a == "" {
			a = fmt.Sprintf("댓_%d", j+1)
		}
		text := rc.Text
		if strings.TrimSpace(text) == "" {
			text = emptyCommentText
		}
		ts = p.nextCommentTime(ts, now)
		c := Comment{
			ID:                 fmt.Sprintf("comment-%s-%d", id, j),
			Author:             MarkPostAuthor(a, author),
			Text:               text,
			Timestamp:          ts,
			NonRecommendations: p.rng.Intn(5),
		}
		if best {
			c.Recommendations = p.rng.Intn(50)
		} else {
			c.Recommendations = p.rng.Intn(15)
		}
		post.Comments = append(post.Comments, c)
	}
	for len(post.Comments) < r.Min {
		j := len(post.Comments)
		ts = p.nextCommentTime(ts, now)
		c := Comment{
			ID:                 fmt.Sprintf("comment-fallback-%s-%d", id, j),
			Author:             fmt.Sprintf("자동댓글러%d", j+1),
			Text:               fillerTextStandard,
			Timestamp:          ts,
			NonRecommendations: p.rng.Intn(2),
		}
		if best {
			c.Text = fillerTextBest
			c.Recommendations = p.rng.Intn(10)
		} else {
			c.Recommendations = p.rng.Intn(5)
		}
		post.Comments = append(post.Comments, c)
	}
	return post
}

// placeholderPost 模型给的帖子不够时补位，从不作为精华帖。
func (p *PostProcessor) placeholderPost(idx int, topic string, now time.Time) Post {
	id := fmt.Sprintf("post-fallback-%s-%d", p.newID(), idx)
	post := Post{
		ID:                 id,
		Title:              fmt.Sprintf("%q에 대한 추가 게시물 #%d (AI 생성 부족)", topic, idx+1),
		Author:             fmt.Sprintf("관리자봇%d", idx+1),
		Timestamp:          p.postTime(idx, now),
		Content:            placeholderContent,
		Views:              10 + p.rng.Intn(50),
		Recommendations:    p.rng.Intn(10),
		NonRecommendations: p.rng.Intn(3),
	}
	ts := post.Timestamp
	for j := 0; j < p.limits.Comments.Min; j++ {
		ts = p.nextCommentTime(ts, now)
		post.Comments = append(post.Comments, Comment{
			ID:        fmt.Sprintf("comment-fallback-%s-%d", id, j),
			Author:    placeholderAuthor,
			Text:      placeholderReplyText,
			Timestamp: ts,
		})
	}
	return post
}

// nextCommentTime 评论时间单调不减，且不超过 now。
func (p *PostProcessor) nextCommentTime(prev, now time.Time) time.Time {
	t := prev.Add(time.Duration(30+p.rng.Intn(150)) * time.Second)
	if t.After(now) {
		if prev.After(now) {
			return prev
		}
		return now
	}
	return t
}

// BuildUserPost 用户帖子：推荐数达到阈值即为精华帖，评论只截断不补齐。
func (p *PostProcessor) BuildUserPost(draft PostDraft, ev Evaluation, raw []RawComment) Post {
	now := p.now()
	best := ev.Recommendations >= p.limits.BestThreshold
	r := p.limits.commentRange(best)
	if len(raw) > r.Max {
		raw = raw[:r.Max]
	}

	post := Post{
		ID:                 "user-post-" + p.newID(),
		Title:              draft.Title,
		Author:             draft.Author,
		Timestamp:          now,
		Content:            draft.Content,
		Views:              max(ev.Views, 0),
		Recommendations:    max(ev.Recommendations, 0),
		NonRecommendations: max(ev.NonRecommendations, 0),
		IsBestPost:         best,
		Comments:           make([]Comment, 0, len(raw)),
	}
	for j, rc := range raw {
		c := Comment{
			ID:        fmt.Sprintf("comment-%s-%d", post.ID, j),
			Author:    MarkPostAuthor(rc.Author, draft.Author),
			Text:      rc.Text,
			Timestamp: now.Add(time.Duration(j+1) * time.Second),
		}
		if best {
			c.Recommendations = p.rng.Intn(25)
			c.NonRecommendations = p.rng.Intn(8)
		} else {
			c.Recommendations = p.rng.Intn(15)
			c.NonRecommendations = p.rng.Intn(5)
		}
		post.Comments = append(post.Comments, c)
	}
	return post
}

// NewUserComment 用户自己写的评论；时间不早于帖子里最新的评论。
func (p *PostProcessor) NewUserComment(post Post, author, text string) Comment {
	return Comment{
		ID:        fmt.Sprintf("user-comment-%s-%s", post.ID, p.newID()),
		Author:    MarkPostAuthor(author, StripPostAuthor(post.Author)),
		Text:      text,
		Timestamp: laterOf(p.now(), latestComment(post)),
	}
}

// BuildFollowUps 后续 AI 评论，最多 room 条，ID 与用户评论分属不同命名空间。
func (p *PostProcessor) BuildFollowUps(post Post, raw []RawComment, room int) []Comment {
	if room <= 0 {
		return nil
	}
	if len(raw) > room {
		raw = raw[:room]
	}
	base := StripPostAuthor(post.Author)
	ts := laterOf(p.now(), latestComment(post))
	out := make([]Comment, 0, len(raw))
	for i, rc := range raw {
		ts = ts.Add(time.Duration(1+p.rng.Intn(30)) * time.Second)
		out = append(out, Comment{
			ID:                 fmt.Sprintf("ai-followup-comment-%s-%d-%s", post.ID, i, p.newID()),
			Author:             MarkPostAuthor(rc.Author, base),
			Text:               rc.Text,
			Timestamp:          ts,
			Recommendations:    p.rng.Intn(10),
			NonRecommendations: p.rng.Intn(3),
		})
	}
	return out
}

// Room 帖子还能容纳的评论数。
func (p *PostProcessor) Room(post Post) int {
	return max(p.limits.MaxCommentsPerPost-len(post.Comments), 0)
}

// AppendComments 返回追加评论后的新帖子（不修改入参），超出上限的部分丢弃。
func (p *PostProcessor) AppendComments(post Post, extra []Comment) Post {
	out := post.clone()
	out.Comments = MergeComments(post.Comments, extra)
	if len(out.Comments) > p.limits.MaxCommentsPerPost {
		out.Comments = out.Comments[:p.limits.MaxCommentsPerPost]
	}
	return out
}

// MergeComments 按时间稳定归并。
func MergeComments(existing, extra []Comment) []Comment {
	out := make([]Comment, 0, len(existing)+len(extra))
	out = append(out, existing...)
	out = append(out, extra...)
	slices.SortStableFunc(out, func(a, b Comment) int {
		return a.Timestamp.Compare(b.Timestamp)
	})
	return out
}

// MarkPostAuthor 评论者就是楼主时加上前缀。
func MarkPostAuthor(commentAuthor, postAuthor string) string {
	if commentAuthor == postAuthor {
		return PostAuthorPrefix + commentAuthor
	}
	return commentAuthor
}

func StripPostAuthor(author string) string {
	return strings.TrimPrefix(author, PostAuthorPrefix)
}

// DedupeSources 按 URI 去重，保留首次出现的顺序。空 URI 也视为一个键。
func DedupeSources(sources []Source) []Source {
	if len(sources) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(sources))
	out := make([]Source, 0, len(sources))
	for _, s := range sources {
		if _, ok := seen[s.URI]; ok {
			continue
		}
		seen[s.URI] = struct{}{}
		out = append(out, s)
	}
	return out
}

func latestComment(post Post) time.Time {
	var t time.Time
	for _, c := range post.Comments {
		if c.Timestamp.After(t) {
			t = c.Timestamp
		}
	}
	return t
}

func laterOf(a, b time.Time) time.Time {
	if b.After(a) {
		return b
	}
	return a
}
