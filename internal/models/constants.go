package models

const (
	// NoContextMessage is the message of the error Guide returned when
	// retrieval comes back empty.
	NoContextMessage = "No relevant info found in manuals."

	// OutOfScopeMessage is the fixed message the model is told to emit
	// when the retrieved chunks do not cover the query.
	OutOfScopeMessage = "This query is outside the scope of the provided manuals."
)

var (
	GuidePromptTemplate = `You are a Strict Technical Extraction Engine.
You are forbidden from creating steps that do not exist in the text chunks below.

TEXT KNOWLEDGE BASE (Use ONLY this):
%s

USER REQUEST: "%s"

STRICT RULES:
1. SOURCE OF TRUTH: Answer ONLY using the provided Text Chunks.
2. CITATION: For every step, you MUST list the integer ID(s) of the chunk(s) used (e.g., "chunk_ids": [0, 2]).
3. NO OUTSIDE KNOWLEDGE: If the text doesn't say it, do not write it.
4. VISUALS: Write a 'visual_description' for each step based on the text context (e.g., "Hand turning blue cap").

OUTPUT FORMAT (Strict JSON):
IF ANSWER FOUND:
{
  "status": "success",
  "task_title": "Title based on text",
  "steps": [
    {
      "step": 1,
      "instruction": "Action text...",
      "chunk_ids": [0],
      "visual_description": "Visual details..."
    }
  ]
}

IF ANSWER NOT FOUND IN CONTEXT:
{
  "status": "error",
  "message": "` + OutOfScopeMessage + `"
}
`
)
