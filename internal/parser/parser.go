package parser

import (
	"context"
	"fmt"
	"os"

	"github.com/ledongthuc/pdf"
	"github.com/rs/zerolog/log"

	"policy-rag/internal/config"
	"policy-rag/internal/helper"
	"policy-rag/internal/models"
)

const (
	ModeNative = "native"
	ModeOCR    = "ocr"
	ModeAuto   = "auto"
)

// ExtractChunks pulls the text of every page of the PDF at filePath using the configured mode
// and returns one chunk per non-empty page.
func ExtractChunks(ctx context.Context, filePath string, cfg config.ExtractConfig) ([]models.Chunk, error) {
	var (
		pages []string
		err   error
	)
	switch cfg.Mode {
	case ModeNative, "":
		pages, err = ExtractNative(ctx, filePath)
	case ModeOCR:
		pages, err = ExtractOCR(ctx, filePath, cfg.OCR)
	case ModeAuto:
		pages, err = ExtractAuto(ctx, filePath, cfg.OCR)
	default:
		return nil, fmt.Errorf("unsupported extract mode: %s", cfg.Mode)
	}
	if err != nil {
		return nil, err
	}
	return BuildChunks(pages), nil
}

// BuildChunks maps raw page texts (index 0 is page 1) to cleaned chunks, dropping empty pages
func BuildChunks(pages []string) []models.Chunk {
	chunks := make([]models.Chunk, 0, len(pages))
	for i, raw := range pages {
		text := CleanText(raw)
		// some pages might be empty or only whitespace
		if text == "" {
			continue
		}
		chunks = append(chunks, models.Chunk{
			ID:   models.ChunkID(i + 1),
			Page: i + 1,
			Text: text,
		})
	}
	return chunks
}

// ExtractNative reads the text layer of every page. Pages without one yield an empty string.
func ExtractNative(ctx context.Context, filePath string) ([]string, error) {
	if err := helper.EnsureFile(filePath); err != nil {
		return nil, err
	}

	f, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, err
	}

	reader, err := pdf.NewReader(f, stat.Size())
	if err != nil {
		return nil, fmt.Errorf("failed to open pdf %s: %w", filePath, err)
	}

	numPages := reader.NumPage()
	pages := make([]string, numPages)
	for i := 1; i <= numPages; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to read page %d: %w", i, err)
		}
		pages[i-1] = pageText
	}

	log.Debug().Str("file", filePath).Int("pages", numPages).Msg("Extracted text layer")
	return pages, nil
}

// ExtractOCR ignores the text layer and OCRs every page
func ExtractOCR(ctx context.Context, filePath string, ocrCfg config.OCRConfig) ([]string, error) {
	return NewOCR(ocrCfg).ExtractAll(ctx, filePath)
}

// ExtractAuto uses the text layer where there is one and OCRs the remaining pages.
// If the text layer cannot be read at all, the whole document is OCRed.
func ExtractAuto(ctx context.Context, filePath string, ocrCfg config.OCRConfig) ([]string, error) {
	ocr := NewOCR(ocrCfg)

	pages, err := ExtractNative(ctx, filePath)
	if err != nil {
		if ctx.Err() != nil || helper.EnsureFile(filePath) != nil {
			return nil, err
		}
		log.Warn().Err(err).Msg("Text layer unreadable, falling back to OCR for every page")
		return ocr.ExtractAll(ctx, filePath)
	}

	var missing []int
	for i, text := range pages {
		if CleanText(text) == "" {
			missing = append(missing, i+1)
		}
	}
	if len(missing) == 0 {
		return pages, nil
	}

	log.Info().Ints("pages", missing).Msg("Pages without a text layer, running OCR")
	for _, pageNum := range missing {
		text, err := ocr.ExtractPage(ctx, filePath, pageNum)
		if err != nil {
			return nil, err
		}
		pages[pageNum-1] = text
	}
	return pages, nil
}
