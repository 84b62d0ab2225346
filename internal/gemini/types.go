package gemini

// Response model for the generateContent API. Only the fields the advisory
// layer consumes are mapped; everything else in the provider payload is
// ignored at decode time.

type GenerateContentResponse struct {
	Candidates []Candidate `json:"candidates"`
}

type Candidate struct {
	Content           Content            `json:"content"`
	GroundingMetadata *GroundingMetadata `json:"groundingMetadata,omitempty"`
}

type Content struct {
	Parts []Part `json:"parts"`
	Role  string `json:"role,omitempty"`
}

// Part carries either text or inline binary data, never both.
type Part struct {
	Text       string `json:"text,omitempty"`
	InlineData *Blob  `json:"inlineData,omitempty"`
}

type Blob struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"`
}

type GroundingMetadata struct {
	GroundingChunks []GroundingChunk `json:"groundingChunks"`
}

type GroundingChunk struct {
	Web *WebSource `json:"web,omitempty"`
}

type WebSource struct {
	URI   string `json:"uri"`
	Title string `json:"title"`
}

// Source is a normalized citation reference backing grounded advisory text.
type Source struct {
	URI   string `json:"uri"`
	Title string `json:"title"`
}
