package generator

import (
	"fmt"
	"strings"
)

const (
	GalleryPromptVersion    = "2.0.2"
	EvaluationPromptVersion = "2.0.0"

	// ThinkingBudget pro 系列模型的思考 token 预算。
	ThinkingBudget int32 = 2048

	followUpContextComments = 5
	followUpContextRunes    = 50
)

// SchemaKind 告诉客户端使用哪种结构化输出 schema。
type SchemaKind int

const (
	SchemaNone SchemaKind = iota
	SchemaGallery
	SchemaEvaluation
)

// Prompt 一次生成请求的全部输入。
type Prompt struct {
	Kind           Operation
	System         string
	User           string
	Model          string
	JSON           bool
	Schema         SchemaKind
	Search         bool
	ThinkingBudget int32
}

// Rand 可注入的随机源，*rand.Rand 满足该接口。
type Rand interface {
	Intn(n int) int
}

// PickCount 在 [lo, hi] 闭区间内均匀取值。
func PickCount(rng Rand, lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + rng.Intn(hi-lo+1)
}

// GalleryTitle 形如 "[주제] 갤러리 - 무협 (고대시대) - [보통맛]"。
func GalleryTitle(s Settings) string {
	world := buildWorldSetting(s)
	tox := lookupToxicity(s.Toxicity)
	era := ""
	if world.eraLabel != "" {
		era = " (" + world.eraLabel + ")"
	}
	return fmt.Sprintf("[%s] 갤러리 - %s%s - [%s]", s.Topic, world.worldviewLabel, era, tox.TitleName)
}

// BuildGalleryPrompt 初始画廊生成。开启搜索时不能同时使用 schema，改为在 prompt 里写明 JSON 结构。
func BuildGalleryPrompt(s Settings, lim Limits) Prompt {
	world := buildWorldSetting(s)
	title := GalleryTitle(s)

	hook := s.DiscussionContext
	if hook == "" {
		hook = "Daily chatter"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "\n// PROMPT VERSION: %s\n", GalleryPromptVersion)
	b.WriteString("**1. CONTEXT & SETTINGS**\n")
	fmt.Fprintf(&b, "- **Topic:** %q\n", s.Topic)
	fmt.Fprintf(&b, "- **Burning Issue:** %q\n", hook)
	fmt.Fprintf(&b, "- **Worldview:** %s / %s\n", world.worldviewLabel, world.eraLabel)
	if s.Search {
		fmt.Fprintf(&b, `
[TOOL USE]
- Use Google Search to find REAL trending news/memes about %q.
- Integrate findings into post content to enhance realism.
`, s.Topic)
	}

	b.WriteString("\n**2. REQUIREMENTS & GUIDELINES**\n")
	fmt.Fprintf(&b, "- **Requirements:** Generate EXACTLY %d posts.\n", lim.Posts)
	fmt.Fprintf(&b, "- **Post 1 (Best Post):** High quality, funny or controversial. %d-%d comments.\n", lim.BestComments.Min, lim.BestComments.Max)
	fmt.Fprintf(&b, "- **Posts 2-%d:** Standard posts. %d-%d comments.\n", lim.Posts, lim.Comments.Min, lim.Comments.Max)
	fmt.Fprintf(&b, "- **Title Field:** %q\n", title)
	b.WriteString(`- **Replies:** Use "@Nickname " to create conversation chains.
- **Media:** Randomly include (사진: ...), (동영상: ...) in posts. MUST match the Era/Worldview.
- **Reactions:** Use (콘: ...) in comments for visual reactions.
- **Immersion Enforcement:** DO NOT include definitions or translations in parentheses (e.g., "BD(Brain Dance)" is banned). Just use "BD".
`)

	if world.eraConstraints != "" {
		fmt.Fprintf(&b, `
**ERA COMPLIANCE & VOCABULARY FILTER (STRICT)**
- **Constraints:** %s
- **Action:** Scan all generated titles, content, and comments. If a term violates the constraints (e.g., using "Truck" in Medieval), REPLACE it with a context-appropriate term (e.g., "Wagon").
- **Directive:** Do not explain the replacement in the text, just use the correct era-specific term.
`, world.eraConstraints)
	}

	if s.Search {
		fmt.Fprintf(&b, `
**JSON OUTPUT SPECIFICATION (STRICT)**
Output ONLY a single valid JSON object.
Structure:
{
  "galleryTitle": "String (Format: %s)",
  "posts": [
    {
      "title": "String",
      "author": "String",
      "content": "String (include media descriptions)",
      "comments": [
          { "author": "String", "text": "String" }
      ]
    }
  ]
}
`, title)
	}

	fmt.Fprintf(&b, `
**3. TASK (EXECUTE NOW)**
Generate the initial page of the %q Gallery based on the above settings.
Ensure the output is verbose, authentic, and strictly adheres to the requested format.
`, s.Topic)

	p := Prompt{
		Kind:   OpGallery,
		System: BuildSystemInstruction(s),
		User:   b.String(),
		Model:  s.Model,
		JSON:   true,
		Search: s.Search,
	}
	if !s.Search {
		p.Schema = SchemaGallery
	}
	if isThinkingModel(s.Model) {
		p.ThinkingBudget = ThinkingBudget
	}
	return p
}

// BuildCommentPrompt 为用户新帖生成 n 条评论，n 在 [lo, hi] 内随机。
func BuildCommentPrompt(s Settings, draft PostDraft, lo, hi int, rng Rand) (Prompt, int) {
	n := PickCount(rng, lo, hi)

	var b strings.Builder
	fmt.Fprintf(&b, "\n**TASK: Generate %d comments for a user post.**\n\n", n)
	b.WriteString("**Target Post:**\n")
	fmt.Fprintf(&b, "- Title: %q\n", draft.Title)
	fmt.Fprintf(&b, "- Author: %q\n", draft.Author)
	fmt.Fprintf(&b, "- Content: %q\n", draft.Content)
	if s.User != nil && draft.Author == s.User.DisplayName() {
		b.WriteString(authorStanceInstructions(s.User, "author of this post"))
	}
	b.WriteString(`
**DIRECTIVES:**
- React based on the defined Persona and Worldview.
- **Acting:** 'Fixed Nick' authors must match their name's vibe.
- **Interaction:** Use "@Nickname " to reply to other comments in this batch.
- **Visuals:** Use (콘: ...) for emoji/sticker reactions.

**OUTPUT (STRICT JSON):**
- JSON Array of objects: [{ "author": "String", "text": "String" }]
`)

	return Prompt{
		Kind:   OpComments,
		System: BuildSystemInstruction(s),
		User:   b.String(),
		Model:  s.Model,
		JSON:   true,
	}, n
}

// BuildFollowUpPrompt 用户评论后续写讨论；上下文只取最近 5 条评论，每条截断到 50 字。
func BuildFollowUpPrompt(s Settings, post Post, comments []Comment, lo, hi int, rng Rand) (Prompt, int) {
	n := PickCount(rng, lo, hi)

	tail := comments
	if len(tail) > followUpContextComments {
		tail = tail[len(tail)-followUpContextComments:]
	}
	lines := make([]string, 0, len(tail))
	for _, c := range tail {
		lines = append(lines, c.Author+": "+truncateRunes(c.Text, followUpContextRunes))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "\n**TASK: Continue the discussion with %d new comments.**\n\n", n)
	b.WriteString("**Context:**\n")
	fmt.Fprintf(&b, "- Post: %q\n", post.Title)
	b.WriteString("- Recent Comments:\n")
	b.WriteString(strings.Join(lines, "\n"))
	b.WriteString("\n")
	if s.User != nil && len(comments) > 0 {
		last := StripPostAuthor(comments[len(comments)-1].Author)
		if last == s.User.DisplayName() {
			b.WriteString(authorStanceInstructions(s.User, "author of the most recent comment"))
		}
	}
	b.WriteString(`
**DIRECTIVES:**
- Continue the flow naturally.
- Maintain Toxicity and Worldview settings.
- Create drama or consensus.

**OUTPUT (STRICT JSON):**
- JSON Array of objects: [{ "author": "String", "text": "String" }]
`)

	return Prompt{
		Kind:   OpFollowUps,
		System: BuildSystemInstruction(s),
		User:   b.String(),
		Model:  s.Model,
		JSON:   true,
	}, n
}

// BuildEvaluationPrompt 评分规则：契合世界观→推荐，人设崩坏→反对，标题党→浏览量。
func BuildEvaluationPrompt(s Settings, draft PostDraft) Prompt {
	user := fmt.Sprintf(`
// PROMPT VERSION: %s
**1. INPUT DATA**
Title: %s
Content: %s

**2. EVALUATION LOGIC**
1. Worldview fit? -> High Recommendations.
2. Character break? -> High Non-Recommendations.
3. Clickbait? -> High Views.

**3. OUTPUT SPECIFICATION**
Output valid JSON matching the Schema.

**4. TASK (EXECUTE NOW)**
Evaluate the User Post for Engagement Metrics based on the logic above.
`, EvaluationPromptVersion, draft.Title, draft.Content)

	return Prompt{
		Kind:   OpEvaluate,
		System: BuildSystemInstruction(s),
		User:   user,
		Model:  s.Model,
		JSON:   true,
		Schema: SchemaEvaluation,
	}
}

// BuildWorldviewFeedbackPrompt 自定义世界观的写作点评，返回韩文 Markdown。
func BuildWorldviewFeedbackPrompt(s Settings, g Gallery) Prompt {
	sample := ""
	if len(g.Posts) > 0 {
		sample = g.Posts[0].Title
	}
	user := fmt.Sprintf(`
// PROMPT VERSION: %s
**1. INPUT**
- Worldview Setting: %q
- Sample Content (Title): %q

**2. TASK (EXECUTE NOW)**
Act as a Creative Writing Coach. Provide feedback in Korean (Markdown) on:
1. Strengths
2. Weaknesses
3. Expansion Ideas
`, EvaluationPromptVersion, s.CustomWorldview, sample)

	return Prompt{
		Kind:  OpFeedback,
		User:  user,
		Model: s.Model,
	}
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
