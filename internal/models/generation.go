package models

type GenerationMode string

const (
	ModeGenerate GenerationMode = "generate"
	ModeEdit     GenerationMode = "edit"
)

type Modality string

const (
	ModalityText  Modality = "Text"
	ModalityImage Modality = "Image"
)

// GenerationRequest is the input of one pipeline invocation. SourceImage is
// required in edit mode and forbidden in generate mode.
type GenerationRequest struct {
	Prompt      string
	Mode        GenerationMode
	SourceImage []byte
	SourceMIME  string
	Modalities  []Modality
}

// GenerationResult is the normalized outcome of a successful remote call
// that produced inline image data. Caption carries any text the model
// returned alongside the image.
type GenerationResult struct {
	ImageBytes []byte
	MIMEType   string
	Caption    string
}
