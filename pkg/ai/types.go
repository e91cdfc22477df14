package ai

import "context"

// TextGenerator describes a model that turns a single prompt into text.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// ImageTextExtractor describes a vision-capable model able to read the text
// out of an uploaded document image.
type ImageTextExtractor interface {
	ExtractText(ctx context.Context, mimeType string, data []byte) (string, error)
}
