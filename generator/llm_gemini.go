package generator

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

// GeminiLLM implements LLMClient on top of the google.golang.org/genai SDK.
// Without an API key the client still constructs; every call returns ErrMissingCredential.
type GeminiLLM struct {
	client *genai.Client
	model  string
	logger *zap.Logger
}

func NewGeminiLLMFromConfig(ctx context.Context, cfg *LLMSettings, logger *zap.Logger) (*GeminiLLM, error) {
	if cfg == nil {
		return nil, errors.New("llm config is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	g := &GeminiLLM{model: model, logger: logger}
	if cfg.APIKey == "" {
		logger.Warn("gemini api key missing; generation disabled")
		return g, nil
	}

	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, err
	}
	g.client = client
	return g, nil
}

func (g *GeminiLLM) modelFor(p Prompt) string {
	if p.Model != "" {
		return p.Model
	}
	return g.model
}

func (g *GeminiLLM) Complete(ctx context.Context, p Prompt) (string, error) {
	if g.client == nil {
		return "", ErrMissingCredential
	}
	resp, err := g.client.Models.GenerateContent(ctx, g.modelFor(p), genai.Text(p.User), generateConfig(p))
	if err != nil {
		return "", err
	}
	text := responseText(resp)
	if text == "" {
		return "", errors.New("gemini: empty response")
	}
	return text, nil
}

func (g *GeminiLLM) Stream(ctx context.Context, p Prompt) (<-chan Chunk, <-chan error) {
	if g.client == nil {
		return failedStream(ErrMissingCredential)
	}
	out := make(chan Chunk)
	errc := make(chan error, 1)
	model := g.modelFor(p)
	cfg := generateConfig(p)

	go func() {
		defer close(errc)
		defer close(out)
		for resp, err := range g.client.Models.GenerateContentStream(ctx, model, genai.Text(p.User), cfg) {
			if err != nil {
				errc <- err
				return
			}
			c := Chunk{Text: responseText(resp), Sources: groundingSources(resp)}
			if c.Text == "" && len(c.Sources) == 0 {
				continue
			}
			select {
			case out <- c:
			case <-ctx.Done():
				errc <- ctx.Err()
				return
			}
		}
	}()
	return out, errc
}

func generateConfig(p Prompt) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{}
	if p.System != "" {
		cfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: p.System}}}
	}
	if p.JSON {
		cfg.ResponseMIMEType = "application/json"
	}
	switch p.Schema {
	case SchemaGallery:
		cfg.ResponseSchema = gallerySchema()
	case SchemaEvaluation:
		cfg.ResponseSchema = evaluationSchema()
	}
	if p.Search {
		cfg.Tools = []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}}
	}
	if p.ThinkingBudget > 0 {
		cfg.ThinkingConfig = &genai.ThinkingConfig{ThinkingBudget: genai.Ptr(p.ThinkingBudget)}
	}
	return cfg
}

func commentSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"author": {Type: genai.TypeString, Description: "The nickname of the commenter."},
			"text":   {Type: genai.TypeString, Description: "The content of the comment. May include DC-con descriptions."},
		},
		Required: []string{"author", "text"},
	}
}

func gallerySchema() *genai.Schema {
	post := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"title":    {Type: genai.TypeString, Description: "Title of the post."},
			"author":   {Type: genai.TypeString, Description: "Nickname of the post author."},
			"content":  {Type: genai.TypeString, Description: "Body content of the post. May include Image/Video descriptions."},
			"comments": {Type: genai.TypeArray, Items: commentSchema(), Description: "List of comments on this post."},
		},
		Required: []string{"title", "author", "content", "comments"},
	}
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"galleryTitle": {Type: genai.TypeString, Description: "The creative title of the generated gallery."},
			"posts":        {Type: genai.TypeArray, Items: post, Description: "List of posts in the gallery."},
		},
		Required: []string{"galleryTitle", "posts"},
	}
}

func evaluationSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"suggestedViews":              {Type: genai.TypeInteger},
			"suggestedRecommendations":    {Type: genai.TypeInteger},
			"suggestedNonRecommendations": {Type: genai.TypeInteger},
		},
		Required: []string{"suggestedViews", "suggestedRecommendations", "suggestedNonRecommendations"},
	}
}

// responseText 拼接首个候选的文本 part，跳过思考内容。
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part == nil || part.Thought {
			continue
		}
		b.WriteString(part.Text)
	}
	return b.String()
}

func groundingSources(resp *genai.GenerateContentResponse) []Source {
	if resp == nil || len(resp.Candidates) == 0 {
		return nil
	}
	md := resp.Candidates[0].GroundingMetadata
	if md == nil {
		return nil
	}
	var out []Source
	for _, gc := range md.GroundingChunks {
		if gc == nil || gc.Web == nil {
			continue
		}
		out = append(out, Source{Title: gc.Web.Title, URI: gc.Web.URI})
	}
	return out
}
