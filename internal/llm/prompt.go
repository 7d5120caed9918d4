package llm

import (
	"encoding/json"
	"strings"

	"github.com/tatxtion/hstay-ai/constants"
)

const maxPromptOCRChars = 8000

// promptExample is one few-shot input/output pair shown to the model.
type promptExample struct {
	text  string
	spans []exampleSpan
}

type exampleSpan struct {
	class string
	text  string
	start int
	end   int
}

// Few-shot examples keyed by document type. Offsets are byte offsets into the
// example text and must stay correct if the text changes.
var promptExamples = map[constants.DocumentType][]promptExample{
	constants.DocTypePAN: {
		{
			text: "INCOME TAX DEPARTMENT\nName: RAVI KUMAR\nFather Name: MAHESH KUMAR\nDOB: 12/07/1989\nPAN: ABCDE1234F",
			spans: []exampleSpan{
				{"full_name", "RAVI KUMAR", 28, 38},
				{"father_name", "MAHESH KUMAR", 52, 64},
				{"date_of_birth", "12/07/1989", 70, 80},
				{"pan_number", "ABCDE1234F", 86, 96},
			},
		},
	},
	constants.DocTypeAadhaar: {
		{
			text: "Government of India\nName: SITA DEVI\nDOB: 02/11/1994\nFemale\n1234 5678 9012",
			spans: []exampleSpan{
				{"full_name", "SITA DEVI", 26, 35},
				{"date_of_birth", "02/11/1994", 41, 51},
				{"gender", "Female", 52, 58},
				{"aadhaar_number", "1234 5678 9012", 59, 73},
			},
		},
	},
	constants.DocTypePassport: {
		{
			text: "REPUBLIC OF INDIA\nPassport No: N1234567\nSurname: SHARMA\nGiven Names: AMIT\nNationality: INDIAN\nSex: M\nDate of Birth: 10/01/1990",
			spans: []exampleSpan{
				{"passport_number", "N1234567", 31, 39},
				{"surname", "SHARMA", 49, 55},
				{"given_names", "AMIT", 69, 73},
				{"nationality", "INDIAN", 87, 93},
				{"sex", "M", 99, 100},
				{"date_of_birth", "10/01/1990", 116, 126},
			},
		},
	},
	constants.DocTypeOther: {
		{
			text: "ID CARD\nName: SAMPLE USER\nID: XYZ12345",
			spans: []exampleSpan{
				{"full_name", "SAMPLE USER", 14, 25},
				{"id_number", "XYZ12345", 30, 38},
			},
		},
	},
}

// BuildSystemPrompt composes the system message with extraction rules and a
// few-shot example for the document type at hand.
func BuildSystemPrompt(docType constants.DocumentType) string {
	parts := []string{
		"You extract structured fields from OCR text of identity documents (PAN, Aadhaar, Passport, ID Card, Voter ID).",
		"Return ONLY JSON that matches the provided JSON Schema: an object with an 'extractions' array.",
		"Each extraction has 'extraction_class', 'extraction_text', and optional integer 'start_pos'/'end_pos' byte offsets into the source text.",
		"Extract identifiers, names, dates, nationality, sex/gender, and address fields.",
		"For passports, MRZ (machine readable zone) lines may be present; you may extract them as 'mrz_line_1'/'mrz_line_2'.",
		"Use the smallest exact text span possible from the source OCR text.",
		"Never output null. If a field is not present, omit the extraction entirely.",
	}

	examples := promptExamples[docType]
	if len(examples) == 0 {
		examples = promptExamples[constants.DocTypeOther]
	}
	for _, ex := range examples {
		parts = append(parts,
			"Example input:\n"+ex.text,
			"Example output:\n"+renderExampleJSON(ex))
	}
	return strings.Join(parts, "\n\n")
}

// BuildUserPrompt packages the OCR text, truncated so a pathological scan
// cannot blow the context window.
func BuildUserPrompt(ocrText string) string {
	var b strings.Builder
	b.WriteString("OCR text:\n")
	if len(ocrText) > maxPromptOCRChars {
		b.WriteString(ocrText[:maxPromptOCRChars])
		b.WriteString("\n...(truncated)")
	} else {
		b.WriteString(ocrText)
	}
	return b.String()
}

func renderExampleJSON(ex promptExample) string {
	type outSpan struct {
		ExtractionClass string `json:"extraction_class"`
		ExtractionText  string `json:"extraction_text"`
		StartPos        int    `json:"start_pos"`
		EndPos          int    `json:"end_pos"`
	}
	out := struct {
		Extractions []outSpan `json:"extractions"`
	}{}
	for _, s := range ex.spans {
		out.Extractions = append(out.Extractions, outSpan{s.class, s.text, s.start, s.end})
	}
	b, _ := json.MarshalIndent(out, "", "  ")
	return string(b)
}
