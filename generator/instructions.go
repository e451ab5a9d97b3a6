package generator

import (
	"fmt"
	"slices"
	"strings"
)

// worldSetting 世界观和时代的融合描述，以及标题用的标签。
type worldSetting struct {
	instructions   string
	worldviewLabel string
	eraLabel       string
	eraConstraints string
}

func buildWorldSetting(s Settings) worldSetting {
	var desc string
	if s.Worldview == WorldviewCustom {
		custom := s.CustomWorldview
		if custom == "" {
			custom = "Unique world"
		}
		desc = fmt.Sprintf("**Core Worldview:** Custom\nDetails: %q", custom)
	} else if o, ok := findWorldview(s.Worldview); ok && o.Prompt != "" {
		desc = o.Prompt
	} else {
		earth, _ := findWorldview(WorldviewNone)
		desc = earth.Prompt
	}

	era := lookupEra(s.Era)

	var b strings.Builder
	b.WriteString("\n**SETTING CONFIGURATION**\n")
	fmt.Fprintf(&b, "- %s\n", desc)
	fmt.Fprintf(&b, "- **Time Period:** %s\n", era.Description)
	b.WriteString("- **Fusion Directive:** Blend the Core Worldview with the Time Period.\n")
	b.WriteString("  - Example 1: Murim + Cyberpunk = Neo-Murim with laser swords and Qi-chips.\n")
	b.WriteString("  - Example 2: Fantasy + Modern = Urban Fantasy (Elves in suits).\n")
	b.WriteString("  - Example 3: Earth + Ancient = Historical Drama.\n")
	b.WriteString("- **ANACHRONISM CHECK (CRITICAL):**\n")
	fmt.Fprintf(&b, "  - %s\n", era.Constraints)
	b.WriteString("  - **Rule:** If the user's Topic (e.g. \"Truck\") violates the time period (e.g. Medieval), YOU MUST ADAPT IT to an era-appropriate equivalent (e.g. \"Oxcart\") instead of using the modern word.\n")

	return worldSetting{
		instructions:   b.String(),
		worldviewLabel: worldviewLabel(s.Worldview),
		eraLabel:       koreanLabel(era.Label),
		eraConstraints: era.Constraints,
	}
}

func toxicityInstructions(level string) string {
	t := lookupToxicity(level)
	return fmt.Sprintf("\n**Toxicity: %s (%s)**\n%s\n", t.Value, t.TitleName, t.Tone)
}

func demographicInstructions(s Settings) string {
	var b strings.Builder
	b.WriteString("**Demographics & Persona:**\n")
	if s.Species != "" {
		fmt.Fprintf(&b, "- **Species:** %s\n", s.Species)
	}
	if s.Affiliation != "" {
		fmt.Fprintf(&b, "- **Affiliation:** %s\n", s.Affiliation)
	}
	if g := s.GenderRatio(); g != GenderAuto {
		fmt.Fprintf(&b, "- **Gender:** %s%% Male context.\n", g)
	}
	if ages := s.AgeRange(); len(ages) > 0 {
		var labels, notes []string
		for _, o := range AgeGroupOptions {
			if slices.Contains(ages, o.Value) {
				labels = append(labels, o.Label)
				notes = append(notes, o.Prompt)
			}
		}
		if len(labels) > 0 {
			fmt.Fprintf(&b, "- **Age Group:** %s. Use appropriate generational slang.\n", strings.Join(labels, ", "))
			for _, n := range notes {
				fmt.Fprintf(&b, "  - %s\n", n)
			}
		}
	}
	return b.String()
}

func nicknameInstructions(ratio string) string {
	o := lookupNickRatio(ratio)
	return fmt.Sprintf(`
**Nickname Protocol:**
- **Distribution:** %s
  %s
- **Fixed Nicks (고정닉):** The nickname MUST define the persona (e.g., 'AngryWarrior' -> writes angrily).
- **Fluid Nicks (유동닉):** Use format "ㅇㅇ(IP)". Tone is generally cynical/hive-mind.
`, o.Label, o.Prompt)
}

func playerStatusInstructions(u *UserProfile) string {
	if u == nil {
		return ""
	}
	return fmt.Sprintf(`
**Current User Context:**
- **User:** %q
- **Status:** %s
- **Action:** React to this specific user according to their status.
`, u.DisplayName(), u.Stance().Description())
}

// authorStanceInstructions 目标作者就是当前用户时，追加到任务 prompt 的态度偏置。
func authorStanceInstructions(u *UserProfile, role string) string {
	return fmt.Sprintf(`
**USER REPUTATION BIAS:**
- The %s is the current user %q.
- **Status:** %s
- Every reaction in this batch MUST reflect this status.
`, role, u.DisplayName(), u.Stance().Description())
}

const mediaFormattingRules = `
**MEDIA FORMATTING RULES:**
- You cannot generate actual images. Instead, write vivid descriptions inside the text.
- **Format:** ` + "`\\n\\n(타입: 설명)\\n\\n`" + ` (Empty lines around it are mandatory).
- **Types:** '사진' (Image), '동영상' (Video), '콘' (Emoticon).
- **Rule:** '콘' is the ONLY allowed media in comments.
`

const immersionRules = `
**IMMERSION & STYLE GUIDELINES (NO "TMI" EXPLANATIONS):**
1. **NO PARENTHETICAL DEFINITIONS:** NEVER explain, translate, or define jargon inside parentheses.
   - BAD: "BD(브레인댄스)", "탈옥(Jailbreak)", "소과(1차 시험)"
   - GOOD: "BD", "탈옥", "소과"
   - Users in this gallery ALREADY KNOW these terms. Assume the reader is an expert.
2. **EXCEPTION:** Parentheses are ONLY allowed for media placeholders such as (사진: ...), (콘: ...) and for action/sound effects such as (퍽), (후다닥).
`

const safetyRules = `
**⚠️ SAFETY & CONTENT PROTOCOLS (NON-NEGOTIABLE) ⚠️**

1. **STRICT PROHIBITION ON "ILBE" SPEECH PATTERNS:**
   - NEVER generate speech patterns, slang, or memes associated with the "Ilbe" community or similar far-right extremist hate groups.
   - **'~노' Ending:** Do NOT end sentences with '~노' (e.g., '재밌노', '뭐노'). If unsure, DO NOT USE IT.
   - **'~이기' / '~이기야':** STRICTLY BANNED.
   - **Derogatory Political Slang:** Terms like '운지', '노무', '통구이', '홍어' and other political hate terms are forbidden.
   - This rule OVERRIDES ALL "Toxicity" settings. Generic internet slang is allowed WITHOUT this specific political hate speech.

2. **SILENT CORRECTION:**
   - If a banned term comes to mind, swap it for a standard term INSTANTLY and INVISIBLY.
   - Never show the "mistake" followed by the "correction" (e.g. "알빠노...가 아니라 알 바냐?" is forbidden).

3. **Content Safety:**
   - No sexual violence, non-consensual sexual content, or encouragement of suicide/self-harm.
`

// BuildSystemInstruction 所有生成请求共用的系统指令。
func BuildSystemInstruction(s Settings) string {
	world := buildWorldSetting(s)

	var b strings.Builder
	b.WriteString("\nRole: \"Gallery Engine\", a simulation AI for Korean internet community content (DC Inside style).\n")
	fmt.Fprintf(&b, "Topic: %q\n\n", s.Topic)
	b.WriteString(`**DIRECTIVES (CRITICAL):**
1. **Verbosity & Style:** DO NOT be succinct or robotic. You must act as a **Hyper-Chatty, Expressive, and Chaotic** community of users. Use slang, typos, sentence fragments, and emotional outbursts typical of internet users.
2. **Authenticity:** Simulate a collective of diverse human users, not a single assistant. Do not use bullet points or structured lists for comment text; use natural spoken language.
3. **Acting:** "Fixed Nicknames" must have distinct personalities based on their names.
4. **Context:** Adhere strictly to the Worldview and Toxicity settings.
5. **Output:** Provide content via Structured Outputs (JSON) containing rich, formatted text.
`)
	b.WriteString("\n**WORLD SETTING:**\n")
	b.WriteString(world.instructions)
	b.WriteString("\n**ATMOSPHERE:**\n")
	b.WriteString(toxicityInstructions(s.Toxicity))
	b.WriteString("\n**DEMOGRAPHICS:**\n")
	b.WriteString(demographicInstructions(s))
	b.WriteString(nicknameInstructions(s.NickRatio))
	b.WriteString(playerStatusInstructions(s.User))
	b.WriteString(mediaFormattingRules)
	b.WriteString(immersionRules)
	b.WriteString(safetyRules)
	return b.String()
}
