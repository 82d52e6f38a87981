package intelligence

import (
	"student_mentor/backend/go/internal/models"
)

// factOutput is the shape the extraction model is asked to produce.
type factOutput struct {
	ExtractedFacts []factSchema          `json:"extracted_facts" jsonschema_description:"List of extracted facts"`
	Contradictions []contradictionSchema `json:"contradictions" jsonschema_description:"List of contradictions found"`
}

type factSchema struct {
	Category   string      `json:"category" jsonschema_description:"Category of the fact: ACADEMIC, CAREER, or PERSONAL"`
	Key        string      `json:"key" jsonschema_description:"Key identifier for the fact"`
	Value      interface{} `json:"value" jsonschema_description:"Value of the fact"`
	Status     string      `json:"status" jsonschema_description:"NEW, UPDATED, or CONFIRMATION"`
	Confidence *float64    `json:"confidence,omitempty" jsonschema:"default=1" jsonschema_description:"Confidence level between 0 and 1"`
}

type contradictionSchema struct {
	Existing       string `json:"existing" jsonschema_description:"The existing information"`
	NewInformation string `json:"new_information" jsonschema_description:"The new contradictory information"`
	Resolution     string `json:"resolution" jsonschema_description:"How to resolve the contradiction"`
}

// toResult converts the raw model output. Facts are not validated here.
func (o factOutput) toResult() models.FactExtractionResult {
	res := models.FactExtractionResult{
		ExtractedFacts: make([]models.ExtractedFact, 0, len(o.ExtractedFacts)),
		Contradictions: make([]models.Contradiction, 0, len(o.Contradictions)),
	}
	for _, f := range o.ExtractedFacts {
		conf := 1.0
		if f.Confidence != nil {
			conf = *f.Confidence
		}
		res.ExtractedFacts = append(res.ExtractedFacts, models.ExtractedFact{
			Category:   models.FactCategory(f.Category),
			Key:        f.Key,
			Value:      f.Value,
			Status:     models.FactStatus(f.Status),
			Confidence: conf,
		})
	}
	for _, c := range o.Contradictions {
		res.Contradictions = append(res.Contradictions, models.Contradiction{
			Existing:       c.Existing,
			NewInformation: c.NewInformation,
			Resolution:     c.Resolution,
		})
	}
	return res
}
