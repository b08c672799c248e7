package rag

import (
	"github.com/pemistahl/lingua-go"

	"policy-rag/internal/models"
)

// LanguageDetector tells Bangla queries from English ones
type LanguageDetector struct {
	detector lingua.LanguageDetector
}

func NewLanguageDetector() *LanguageDetector {
	return &LanguageDetector{
		detector: lingua.NewLanguageDetectorBuilder().
			FromLanguages(lingua.English, lingua.Bengali).
			Build(),
	}
}

// Detect returns models.LangBangla or models.LangEnglish, English when undecided
func (d *LanguageDetector) Detect(text string) string {
	language, ok := d.detector.DetectLanguageOf(text)
	if ok && language == lingua.Bengali {
		return models.LangBangla
	}
	return models.LangEnglish
}
