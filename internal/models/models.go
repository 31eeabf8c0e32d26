package models

// TextChunk is a bounded slice of manual text returned by the retriever.
// Chunks keep their retrieval rank; the generator cites them by position.
type TextChunk struct {
	Content        string `json:"content"`
	SourceFilename string `json:"source_filename"`
	ChunkIndex     int    `json:"chunk_index"`
}

// ImageRecord is one entry of the image knowledge base, as produced by
// the external extraction process.
type ImageRecord struct {
	ID              string    `json:"id"`
	FilePath        string    `json:"file_path"`
	ProblemName     string    `json:"problem_name"`
	DenseCaption    string    `json:"dense_caption"`
	DetectedObjects []string  `json:"detected_objects"`
	Embedding       []float32 `json:"-"`
}

// GuideStep is one step of a generated guide. CitedChunks hold 0-based
// positions into the chunk sequence the model was given; Images are
// file paths attached by the matcher, most relevant first.
type GuideStep struct {
	StepNumber        int      `json:"step"`
	Instruction       string   `json:"instruction"`
	CitedChunks       []int    `json:"chunk_ids,omitempty"`
	Images            []string `json:"images,omitempty"`
	VisualDescription string   `json:"visual_description,omitempty"`
}

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Guide is the terminal artifact of one pipeline run.
type Guide struct {
	Status    string      `json:"status"`
	TaskTitle string      `json:"task_title,omitempty"`
	Steps     []GuideStep `json:"steps,omitempty"`
	Message   string      `json:"message,omitempty"`
}

// ErrorGuide builds the error-shaped Guide every failure resolves to.
func ErrorGuide(message string) Guide {
	return Guide{Status: StatusError, Message: message}
}

// Mode selects which LLM backend answers a request.
type Mode string

const (
	ModeCloud Mode = "CLOUD"
	ModeLocal Mode = "LOCAL"
)
