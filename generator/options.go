package generator

import "strings"

const (
	WorldviewNone    = "NONE"
	WorldviewMurim   = "MURIM"
	WorldviewFantasy = "FANTASY"
	WorldviewCustom  = "CUSTOM"

	DefaultEra       = "CONTEMPORARY"
	DefaultToxicity  = "MEDIUM"
	DefaultNickRatio = "BALANCED"
	GenderAuto       = "AUTO"
)

const (
	ModelFlash   = "gemini-2.5-flash"
	ModelPro     = "gemini-2.5-pro"
	Model3Pro    = "gemini-3-pro-preview"
	DefaultModel = ModelFlash
)

// 输入长度上限（按 rune 计），与结构体 validate tag 保持一致。
const (
	MaxTopicLen             = 20
	MaxDiscussionContextLen = 50
	MaxCustomWorldviewLen   = 500
	MaxSpeciesLen           = 30
	MaxAffiliationLen       = 30
	MaxNicknameLen          = 10

	MaxTitleLen   = 50
	MaxContentLen = 500
	MaxAuthorLen  = MaxNicknameLen + 8 // 昵称 + IP 后缀
	MaxCommentLen = 500
	MaxReplyToLen = 30
)

// Option 表单选项。Prompt 字段只用于 prompt 组装，不对外输出。
type Option struct {
	Value  string `json:"value"`
	Label  string `json:"label"`
	Prompt string `json:"-"`
}

type EraOption struct {
	Value       string `json:"value"`
	Label       string `json:"label"`
	Description string `json:"-"`
	Constraints string `json:"-"`
}

type ToxicityOption struct {
	Value     string `json:"value"`
	Label     string `json:"label"`
	TitleName string `json:"titleName"`
	Tone      string `json:"-"`
}

var WorldviewOptions = []Option{
	{Value: WorldviewNone, Label: "지구 (기본)", Prompt: "**Core Worldview:** Earth (Standard Reality)"},
	{Value: WorldviewMurim, Label: "무협 (Martial Arts)", Prompt: "**Core Worldview:** Murim (Martial Arts)\nContext: Jianghu, Sects, Qi, Martial Arts. Characters traditionally use archaic tone (Haoche) but should adapt to the selected Era."},
	{Value: WorldviewFantasy, Label: "판타지 (Fantasy)", Prompt: "**Core Worldview:** Western Fantasy\nContext: Magic, Dungeons, Non-human races."},
	{Value: WorldviewCustom, Label: "직접 입력..."},
}

var EraOptions = []EraOption{
	{
		Value: "PREHISTORIC", Label: "선사시대",
		Description: "Stone Age (Pre-Civilization). Hunter-gatherer society.",
		Constraints: "STRICTLY PROHIBITED: Metal, Writing, Wheels, Farming, Architecture beyond caves/huts. REPLACEMENT: 'House'->'Cave', 'Weapon'->'Stone/Club', 'Clothing'->'Fur'.",
	},
	{
		Value: "ANCIENT", Label: "고대시대",
		Description: "Ancient Era (Bronze/Iron Age). Early Empires.",
		Constraints: "STRICTLY PROHIBITED: Gunpowder, Printing Press, Engines, Electricity, Plastic. REPLACEMENT: 'Car'->'Chariot/Horse', 'Paper'->'Scroll/Tablet'.",
	},
	{
		Value: "MEDIEVAL", Label: "중세시대",
		Description: "Medieval Era (Feudalism). Swords and cold weapons.",
		Constraints: "STRICTLY PROHIBITED: Guns/Rifles (unless primitive cannons), Steam Engines, Electricity, Plastic, Cars, Trucks, Smartphones, Internet. REPLACEMENT: 'Truck'->'Wagon/Cart', 'Car'->'Carriage', 'Phone'->'Letter/Magic Stone', 'Internet'->'Town Square'.",
	},
	{
		Value: "EARLY_MODERN", Label: "근대시대",
		Description: "Early Modern (19th - Early 20th Century). Steam & Steel, Industrial Revolution.",
		Constraints: "STRICTLY PROHIBITED: Digital Computers, Microchips, Internet, Smartphones, Nuclear Power. REPLACEMENT: 'Internet'->'Newspaper/Telegram', 'Smartphone'->'Pocket Watch/Notebook', 'Blog'->'Journal'.",
	},
	{
		Value: DefaultEra, Label: "현대시대 (기본)",
		Description: "Modern Day (21st Century). Information Age.",
		Constraints: "Standard modern technology allowed.",
	},
	{
		Value: "NEAR_FUTURE", Label: "근미래시대",
		Description: "Near Future (Cyberpunk/High-Tech).",
		Constraints: "Must include advanced tech (AI, cybernetics, holograms).",
	},
	{
		Value: "FAR_FUTURE", Label: "미래시대",
		Description: "Far Future (Space Age).",
		Constraints: "Must include futuristic tech (Warp drives, Energy shields, Teleporters).",
	},
}

// ToxicityOptions 按强度升序排列。
var ToxicityOptions = []ToxicityOption{
	{
		Value: "MILD", Label: "🌶️ 순한맛 (Mild)", TitleName: "순한맛",
		Tone: "- **Tone:** Polite, wholesome, \"Cleanbot\" active.\n- **Rule:** NO profanity, aggressive insults, or sexual harassment.\n- **Style:** Friendly hobbyist community.",
	},
	{
		Value: DefaultToxicity, Label: "🌶️🌶️ 보통맛 (Medium)", TitleName: "보통맛",
		Tone: "- **Tone:** Casual, blunt, standard internet banter.\n- **Rule:** Mild swearing allowed (e.g., shit, damn) but no hate speech.\n- **Style:** Typical noisy forum.",
	},
	{
		Value: "SPICY", Label: "🌶️🌶️🌶️ 매운맛 (Spicy)", TitleName: "매운맛",
		Tone: "- **Tone:** Aggressive, raw, unfiltered, cynical.\n- **Rule:** Use creative insults, satire, and heavy slang authentic to \"DC Inside\".\n- **Style:** A lawless wasteland. Be provocative.",
	},
}

var NickRatioOptions = []Option{
	{
		Value: "LOW_ANON", Label: "고정닉 위주 (유동닉 약 20%)",
		Prompt: "The vast majority (around 80%) of post authors and comment authors should be '고정닉' (Fixed Nicknames). The remaining (around 20%) should be '유동닉' (Anonymous/Fluid Nicknames).",
	},
	{
		Value: DefaultNickRatio, Label: "균형 (유동닉/고정닉 약 50%)",
		Prompt: "Post authors and comment authors should be a mix of '고정닉' (Fixed Nicknames) and '유동닉' (Anonymous/Fluid Nicknames), with roughly 50% of each type.",
	},
	{
		Value: "HIGH_ANON", Label: "유동닉 위주 (고정닉 약 20%)",
		Prompt: "The vast majority (around 80%) of post authors and comment authors should be '유동닉' (Anonymous/Fluid Nicknames). The remaining (around 20%) should be '고정닉' (Fixed Nicknames).",
	},
}

var AgeGroupOptions = []Option{
	{Value: "ALL_AGES", Label: "전체", Prompt: "Users from all age groups participate. Content and discussions should be generally accessible or reflect a broad range of age-related interests, as appropriate for the worldview."},
	{Value: "TEENS", Label: "10대", Prompt: "The primary user base is teenagers (10-19 years old). Language will include youth slang, memes, and concerns relevant to this age group (school, early relationships, trends, identity), all adapted to the worldview/era."},
	{Value: "TWENTIES", Label: "20대", Prompt: "The primary user base is in their twenties. Topics may include higher education, early career, independence, relationships, and popular culture relevant to this demographic, adapted to the worldview/era."},
	{Value: "THIRTIES", Label: "30대", Prompt: "The primary user base is in their thirties. Discussions might focus on career development, family life, financial stability, and hobbies, all within the context of the worldview/era."},
	{Value: "FORTIES", Label: "40대", Prompt: "The primary user base is in their forties. Themes could include mid-career changes, established family life, health and wellness, and reflections on life, adapted to the worldview/era."},
	{Value: "FIFTIES", Label: "50대", Prompt: "The primary user base is in their fifties. Topics may involve pre-retirement planning, legacy, mature hobbies, and health, interpreted through the lens of the worldview/era."},
	{Value: "SIXTIES", Label: "60대", Prompt: "The primary user base is in their sixties. Discussions could revolve around retirement, grandchildren, health, and lifelong interests, all consistent with the worldview/era."},
	{Value: "SEVENTIES_PLUS", Label: "70대 이상", Prompt: "The primary user base is seventy or older. Themes might include wisdom, legacy, health challenges, and reflections on a long life, all adapted to the worldview/era."},
}

var ModelOptions = []Option{
	{Value: ModelFlash, Label: "Gemini 2.5 Flash"},
	{Value: ModelPro, Label: "Gemini 2.5 Pro"},
	{Value: Model3Pro, Label: "Gemini 3 Pro (Preview)"},
}

// Catalog 对外暴露的全部表单选项。
type Catalog struct {
	Worldviews []Option         `json:"worldviews"`
	Eras       []EraOption      `json:"eras"`
	Toxicity   []ToxicityOption `json:"toxicity"`
	NickRatios []Option         `json:"nickRatios"`
	AgeGroups  []Option         `json:"ageGroups"`
	Models     []Option         `json:"models"`
}

func Options() Catalog {
	return Catalog{
		Worldviews: WorldviewOptions,
		Eras:       EraOptions,
		Toxicity:   ToxicityOptions,
		NickRatios: NickRatioOptions,
		AgeGroups:  AgeGroupOptions,
		Models:     ModelOptions,
	}
}

func findWorldview(v string) (Option, bool) {
	for _, o := range WorldviewOptions {
		if o.Value == v {
			return o, true
		}
	}
	return Option{}, false
}

// lookupEra 未知值回退到 CONTEMPORARY。
func lookupEra(v string) EraOption {
	if v == "" {
		v = DefaultEra
	}
	for _, o := range EraOptions {
		if o.Value == v {
			return o
		}
	}
	for _, o := range EraOptions {
		if o.Value == DefaultEra {
			return o
		}
	}
	return EraOption{}
}

func findToxicity(v string) (ToxicityOption, bool) {
	for _, o := range ToxicityOptions {
		if o.Value == v {
			return o, true
		}
	}
	return ToxicityOption{}, false
}

func lookupToxicity(v string) ToxicityOption {
	if o, ok := findToxicity(v); ok {
		return o
	}
	o, _ := findToxicity(DefaultToxicity)
	return o
}

func findNickRatio(v string) (Option, bool) {
	for _, o := range NickRatioOptions {
		if o.Value == v {
			return o, true
		}
	}
	return Option{}, false
}

func lookupNickRatio(v string) Option {
	if o, ok := findNickRatio(v); ok {
		return o
	}
	o, _ := findNickRatio(DefaultNickRatio)
	return o
}

// koreanLabel 取 "무협 (Martial Arts)" 中括号前的韩文部分。
func koreanLabel(label string) string {
	if i := strings.Index(label, " ("); i >= 0 {
		return label[:i]
	}
	return label
}

func worldviewLabel(v string) string {
	if o, ok := findWorldview(v); ok {
		return koreanLabel(o.Label)
	}
	return v
}

// isThinkingModel pro / thinking 模型开启思考预算。
func isThinkingModel(model string) bool {
	return strings.Contains(model, "pro") || strings.Contains(model, "thinking")
}
