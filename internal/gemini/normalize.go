package gemini

import "strings"

// Normalization helpers are pure functions over a provider response. They
// only ever read the first candidate; the API can return alternatives but the
// advisory flows never consume more than one.

// TextOrDefault concatenates the text parts of the first candidate. When the
// response carries no usable text the caller-supplied default is returned, so
// every use case keeps its own empty-response message.
func TextOrDefault(resp *GenerateContentResponse, def string) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return def
	}
	var builder strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		builder.WriteString(part.Text)
	}
	text := strings.TrimSpace(builder.String())
	if text == "" {
		return def
	}
	return text
}

// Sources maps the grounding citations of the first candidate to Source
// values. Citations missing a URI or a title are dropped rather than passed
// through as partial records; provider order is preserved and duplicates are
// not merged. A missing or empty citation list yields an empty slice.
func Sources(resp *GenerateContentResponse) []Source {
	sources := make([]Source, 0)
	if resp == nil || len(resp.Candidates) == 0 {
		return sources
	}
	metadata := resp.Candidates[0].GroundingMetadata
	if metadata == nil {
		return sources
	}
	for _, chunk := range metadata.GroundingChunks {
		web := chunk.Web
		if web == nil {
			continue
		}
		uri := strings.TrimSpace(web.URI)
		title := strings.TrimSpace(web.Title)
		if uri == "" || title == "" {
			continue
		}
		sources = append(sources, Source{URI: uri, Title: title})
	}
	return sources
}

// InlineImage returns a displayable data URI built from the first inline-data
// part of the first candidate, or "" when the response carries no image.
// Later image parts are ignored.
func InlineImage(resp *GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	for _, part := range resp.Candidates[0].Content.Parts {
		blob := part.InlineData
		if blob == nil || strings.TrimSpace(blob.Data) == "" {
			continue
		}
		mimeType := strings.TrimSpace(blob.MIMEType)
		if mimeType == "" {
			mimeType = "image/png"
		}
		return "data:" + mimeType + ";base64," + strings.TrimSpace(blob.Data)
	}
	return ""
}
