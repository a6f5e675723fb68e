package models

import "encoding/json"

// UnspecifiedDocumentType is used when the extraction service did not
// classify the document.
const UnspecifiedDocumentType = "غير محدد"

// ClauseRecord is a raw clause as produced by the extraction service.
type ClauseRecord struct {
	ID         string  `json:"clause_id,omitempty" validate:"max=128"`
	Title      string  `json:"clause_title,omitempty" validate:"max=512"`
	Text       string  `json:"clause_text" validate:"max=20000"`
	Type       string  `json:"clause_type"`
	Importance string  `json:"importance"`
	Parties    Parties `json:"parties_mentioned" validate:"max=64,dive,max=256"`
}

type Document struct {
	Category string         `json:"document_category"`
	Type     string         `json:"document_type,omitempty"`
	Clauses  []ClauseRecord `json:"clauses" validate:"dive"`
}

// UnmarshalJSON accepts both a bare document and the extraction event shape
// where the document is nested under "ocr_data".
func (d *Document) UnmarshalJSON(data []byte) error {
	type plain Document

	var wrapper struct {
		OCRData *plain `json:"ocr_data"`
	}
	if err := json.Unmarshal(data, &wrapper); err != nil {
		return err
	}
	if wrapper.OCRData != nil {
		*d = Document(*wrapper.OCRData)
		return nil
	}

	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*d = Document(p)
	return nil
}

// CategoryHint returns the document-level category handed to retrieval.
func (d Document) CategoryHint() string {
	if d.Category != "" {
		return d.Category
	}
	if d.Type != "" {
		return d.Type
	}
	return UnspecifiedDocumentType
}
