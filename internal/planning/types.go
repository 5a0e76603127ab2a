package planning

// Request carries everything the planning service sees for one campaign.
type Request struct {
	// ProductImage is the product photograph as a data URI.
	ProductImage string
	// PersonaImage is the persona reference, either a URL or a data URI. Optional.
	PersonaImage       string
	PersonaDescription string
	Brief              string
	SceneCount         int
}

type generateContentRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	TopK            int     `json:"topK"`
	TopP            float64 `json:"topP"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text       string `json:"text,omitempty"`
	InlineData *blob  `json:"inlineData,omitempty"`
	Thought    bool   `json:"thought,omitempty"`
}

type blob struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type generateContentResponse struct {
	Candidates     []candidate `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback,omitempty"`
}

type candidate struct {
	Content      content `json:"content"`
	FinishReason string  `json:"finishReason"`
}

// rawPlan is the structured object the planner embeds in its answer.
type rawPlan struct {
	ProductType string     `json:"productType"`
	Scenes      []rawScene `json:"scenes"`
}

type rawScene struct {
	Title       string `json:"title"`
	PromptImage string `json:"prompt_image"`
	PromptVideo string `json:"prompt_video"`
	IsPackshot  bool   `json:"isPackshot"`
}

