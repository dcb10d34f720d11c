package summarize

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ppiankov/papersift/internal/model"
)

const systemPrompt = `You are a research assistant that writes structured summaries of scientific documents.
You always answer with a single JSON object and never add commentary outside it.`

const schemaDescription = `Return a JSON object with exactly these keys:
{
  "Title": "document title",
  "Author(s)": ["First Last", "..."],
  "Year Published": 2024,
  "Journal": "journal or venue, or \"unknown\"",
  "BibTeX Citation": "@article{...}",
  "Type": "clinical trial, meta-analysis, preclinical study, cellular study, review, ...",
  "Categories": ["topic", "..."],
  "Sample Size": "participants, animals or samples studied, or \"unknown\"",
  "Method": "short description of the methodology",
  "Key Findings": {"short finding name": "one or two sentence description"},
  "Prediction Model": false,
  "Key Takeaways": "two to four sentences"
}
Use "unknown" for text you cannot determine and null for an unknown year.`

// initialPrompt asks for a summary of the first chunk
func initialPrompt(chunk string, part, total int) string {
	var b strings.Builder
	b.WriteString("Summarize the following research document.\n")
	if total > 1 {
		fmt.Fprintf(&b, "This is part %d of %d; later parts will be provided to refine the summary.\n", part, total)
	}
	b.WriteString(schemaDescription)
	b.WriteString("\n\nDocument text:\n")
	b.WriteString(chunk)
	return b.String()
}

// refinePrompt asks the model to extend and correct draft using the next chunk
func refinePrompt(draft *model.StructuredSummary, chunk string, part, total int) string {
	data, err := json.MarshalIndent(draft, "", "  ")
	if err != nil {
		data = []byte("{}")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Below is the current draft summary of a research document, followed by part %d of %d of its text.\n", part, total)
	b.WriteString("Update the draft: keep what is still correct, correct anything the new text contradicts, ")
	b.WriteString("and add findings, methods or metadata that appear in the new text. ")
	b.WriteString("Return the complete updated summary, not only the changes.\n")
	b.WriteString(schemaDescription)
	b.WriteString("\n\nCurrent draft:\n")
	b.Write(data)
	b.WriteString("\n\nNew text:\n")
	b.WriteString(chunk)
	return b.String()
}

// correctivePrompt repeats prompt with the rejected response and the reason it was rejected
func correctivePrompt(prompt, response string, cause error) string {
	return fmt.Sprintf(`%s

Your previous answer could not be used: %v
Previous answer (truncated):
%s

Answer again with only one valid JSON object containing every key listed above.`, prompt, cause, clip(response, 1500))
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
