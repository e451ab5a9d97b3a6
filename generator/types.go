package generator

import (
	"strconv"
	"time"
)

// Settings 描述一次画廊生成请求（主题、世界观、毒性、人口统计等）。
// 请求发出后视为不可变，按值传入所有 prompt 构建函数。
type Settings struct {
	Topic             string       `json:"topic" yaml:"topic" validate:"required,max=20"`
	DiscussionContext string       `json:"discussionContext,omitempty" yaml:"discussionContext" validate:"max=50"`
	Worldview         string       `json:"worldview" yaml:"worldview" validate:"omitempty,oneof=NONE MURIM FANTASY CUSTOM"`
	CustomWorldview   string       `json:"customWorldview,omitempty" yaml:"customWorldview" validate:"required_if=Worldview CUSTOM,max=500"`
	Era               string       `json:"era" yaml:"era"`
	Toxicity          string       `json:"toxicity" yaml:"toxicity"`
	NickRatio         string       `json:"nickRatio" yaml:"nickRatio"`
	Species           string       `json:"species,omitempty" yaml:"species" validate:"max=30"`
	Affiliation       string       `json:"affiliation,omitempty" yaml:"affiliation" validate:"max=30"`
	ManualGender      bool         `json:"manualGender,omitempty" yaml:"manualGender"`
	MalePercentage    int          `json:"malePercentage,omitempty" yaml:"malePercentage"`
	ManualAge         bool         `json:"manualAge,omitempty" yaml:"manualAge"`
	AgeGroups         []string     `json:"ageGroups,omitempty" yaml:"ageGroups"`
	Model             string       `json:"model,omitempty" yaml:"model"`
	Search            bool         `json:"search,omitempty" yaml:"search"`
	User              *UserProfile `json:"user,omitempty" yaml:"-"`
}

// Normalized 填充默认值，返回副本。
func (s Settings) Normalized() Settings {
	if s.Worldview == "" {
		s.Worldview = WorldviewNone
	}
	if s.Era == "" {
		s.Era = DefaultEra
	}
	if _, ok := findToxicity(s.Toxicity); !ok {
		s.Toxicity = DefaultToxicity
	}
	if _, ok := findNickRatio(s.NickRatio); !ok {
		s.NickRatio = DefaultNickRatio
	}
	if s.Model == "" {
		s.Model = DefaultModel
	}
	if s.MalePercentage < 0 {
		s.MalePercentage = 0
	}
	if s.MalePercentage > 100 {
		s.MalePercentage = 100
	}
	if len(s.AgeGroups) > 0 {
		s.AgeGroups = append([]string(nil), s.AgeGroups...)
	}
	if s.User != nil {
		u := *s.User
		s.User = &u
	}
	return s
}

// GenderRatio returns "AUTO" or the male percentage as text.
func (s Settings) GenderRatio() string {
	if !s.ManualGender {
		return GenderAuto
	}
	return strconv.Itoa(s.MalePercentage)
}

// AgeRange returns the selected age groups, nil when automatic.
func (s Settings) AgeRange() []string {
	if !s.ManualAge || len(s.AgeGroups) == 0 {
		return nil
	}
	return s.AgeGroups
}

type NicknameType string

const (
	NicknameAnonymous NicknameType = "ANONYMOUS"
	NicknameFixed     NicknameType = "FIXED"
)

// UserProfile 当前用户身份；Reputation 0-100 决定其他用户对其的态度。
type UserProfile struct {
	NicknameType NicknameType `json:"nicknameType"`
	Nickname     string       `json:"nickname" validate:"required_if=NicknameType FIXED,max=10"`
	IP           string       `json:"ip,omitempty"`
	Reputation   int          `json:"reputation" validate:"min=0,max=100"`
}

// DisplayName 匿名用户显示为 昵称+IP，例如 "ㅇㅇ(12.34)"。
func (u UserProfile) DisplayName() string {
	if u.NicknameType == NicknameAnonymous && u.IP != "" {
		return u.Nickname + u.IP
	}
	return u.Nickname
}

func (u UserProfile) Stance() Stance {
	return StanceFor(u.Reputation)
}

// RandomIP 生成 "(a.b)" 形式的伪 IP 后缀。
func RandomIP(rng Rand) string {
	return "(" + strconv.Itoa(rng.Intn(255)) + "." + strconv.Itoa(rng.Intn(255)) + ")"
}

// WithUserIP 匿名用户没有 IP 后缀时补一个随机后缀，rng 为 nil 时使用全局随机源。
func (s Settings) WithUserIP(rng Rand) Settings {
	if s.User == nil || s.User.NicknameType != NicknameAnonymous || s.User.IP != "" {
		return s
	}
	if rng == nil {
		rng = globalRand{}
	}
	u := *s.User
	u.IP = RandomIP(rng)
	s.User = &u
	return s
}

// Stance 由 reputation 五档映射而来。
type Stance int

const (
	StanceHated Stance = iota
	StanceUnpopular
	StanceNeutral
	StancePopular
	StanceIdolized
)

func StanceFor(reputation int) Stance {
	switch {
	case reputation <= 20:
		return StanceHated
	case reputation <= 40:
		return StanceUnpopular
	case reputation <= 60:
		return StanceNeutral
	case reputation <= 80:
		return StancePopular
	default:
		return StanceIdolized
	}
}

func (s Stance) String() string {
	switch s {
	case StanceHated:
		return "VILLAIN"
	case StanceUnpopular:
		return "UNPOPULAR"
	case StanceNeutral:
		return "NEUTRAL"
	case StancePopular:
		return "POPULAR"
	default:
		return "LEGEND"
	}
}

// Description 写入 prompt 的态度说明。
func (s Stance) Description() string {
	switch s {
	case StanceHated:
		return "VILLAIN (Hated). Replies should be hostile/mocking."
	case StanceUnpopular:
		return "UNPOPULAR (Annoying). Users are dismissive."
	case StanceNeutral:
		return "NEUTRAL. Standard engagement."
	case StancePopular:
		return "POPULAR. Users are friendly/agreeable."
	default:
		return "LEGEND/IDOL. Users worship and defend this user."
	}
}

// Post 画廊中的一篇帖子。生成后只允许追加评论。
type Post struct {
	ID                 string    `json:"id"`
	Title              string    `json:"title"`
	Author             string    `json:"author"`
	Timestamp          time.Time `json:"timestamp"`
	Content            string    `json:"content"`
	Views              int       `json:"views"`
	Recommendations    int       `json:"recommendations"`
	NonRecommendations int       `json:"nonRecommendations"`
	Comments           []Comment `json:"comments"`
	IsBestPost         bool      `json:"isBestPost"`
}

type Comment struct {
	ID                 string    `json:"id"`
	Author             string    `json:"author"`
	Text               string    `json:"text"`
	Timestamp          time.Time `json:"timestamp"`
	Recommendations    int       `json:"recommendations"`
	NonRecommendations int       `json:"nonRecommendations"`
}

// Source 搜索增强返回的引用。
type Source struct {
	Title string `json:"title"`
	URI   string `json:"uri"`
}

type Gallery struct {
	Title   string   `json:"galleryTitle"`
	Posts   []Post   `json:"posts"`
	Sources []Source `json:"sources,omitempty"`
}

// Clone 结构化深拷贝，发布新值前使用，避免读者看到半更新状态。
func (g Gallery) Clone() Gallery {
	out := Gallery{Title: g.Title}
	if g.Posts != nil {
		out.Posts = make([]Post, len(g.Posts))
		for i, p := range g.Posts {
			out.Posts[i] = p.clone()
		}
	}
	if g.Sources != nil {
		out.Sources = append([]Source(nil), g.Sources...)
	}
	return out
}

func (g Gallery) FindPost(id string) (int, bool) {
	for i, p := range g.Posts {
		if p.ID == id {
			return i, true
		}
	}
	return -1, false
}

func (p Post) clone() Post {
	if p.Comments != nil {
		p.Comments = append([]Comment(nil), p.Comments...)
	}
	return p
}

// PostDraft 用户提交的帖子（尚未评估）。
type PostDraft struct {
	Title   string `json:"title" validate:"required,max=50"`
	Author  string `json:"author" validate:"required,max=18"`
	Content string `json:"content" validate:"required,max=500"`
}

// CommentDraft 用户提交的评论。Author 为空时使用当前用户的显示名，
// ReplyTo 是被回复评论的作者。
type CommentDraft struct {
	Author  string `json:"author,omitempty" validate:"required,max=18"`
	Text    string `json:"text" validate:"required,max=500"`
	ReplyTo string `json:"replyTo,omitempty" validate:"max=30"`
}

// Evaluation 帖子互动指标评估结果。
type Evaluation struct {
	Views              int `json:"suggestedViews"`
	Recommendations    int `json:"suggestedRecommendations"`
	NonRecommendations int `json:"suggestedNonRecommendations"`
}

// RawGallery 模型返回的未校验数据，归一化后即丢弃。
type RawGallery struct {
	Title string
	Posts []RawPost
}

type RawPost struct {
	Title    string
	Author   string
	Content  string
	Comments []RawComment
}

type RawComment struct {
	Author string `json:"author"`
	Text   string `json:"text"`
}
