package generation

import "google.golang.org/genai"

// candidateParts extracts the first candidate's content parts. Only the
// first candidate is consumed; the API may return more, but the pipeline
// needs exactly one image.
func candidateParts(resp *genai.GenerateContentResponse) []*genai.Part {
	if resp == nil || len(resp.Candidates) == 0 {
		return nil
	}
	candidate := resp.Candidates[0]
	if candidate == nil || candidate.Content == nil {
		return nil
	}
	return candidate.Content.Parts
}

// firstInlineData returns the first part carrying inline binary data, or
// nil when the response is text-only.
func firstInlineData(parts []*genai.Part) *genai.Blob {
	for _, part := range parts {
		if part == nil {
			continue
		}
		if part.InlineData != nil && len(part.InlineData.Data) > 0 {
			return part.InlineData
		}
	}
	return nil
}

// firstText returns the first non-empty text part, used as the caption
// accompanying a generated image.
func firstText(parts []*genai.Part) string {
	for _, part := range parts {
		if part == nil {
			continue
		}
		if part.Text != "" {
			return part.Text
		}
	}
	return ""
}
