package parser

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"policy-rag/internal/config"
	"policy-rag/internal/helper"
)

const imagePrefix = "page"

// pdftoppm zero pads the page number depending on the page count: page-1.png, page-07.png, page-012.png
var imagePageRe = regexp.MustCompile(`-(\d+)\.png$`)

// OCR rasterises PDF pages with pdftoppm and recognises them with tesseract
type OCR struct {
	cfg config.OCRConfig
}

func NewOCR(cfg config.OCRConfig) *OCR {
	return &OCR{cfg: cfg}
}

// ExtractAll OCRs every page of the document, index 0 is page 1
func (o *OCR) ExtractAll(ctx context.Context, filePath string) ([]string, error) {
	if err := helper.EnsureFile(filePath); err != nil {
		return nil, err
	}

	dir, err := os.MkdirTemp("", "policyrag-ocr-*")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)

	images, err := o.rasterize(ctx, filePath, dir, 0)
	if err != nil {
		return nil, err
	}
	if len(images) == 0 {
		return nil, nil
	}

	pageNums := make([]int, 0, len(images))
	for pageNum := range images {
		pageNums = append(pageNums, pageNum)
	}
	sort.Ints(pageNums)

	pages := make([]string, pageNums[len(pageNums)-1])
	for _, pageNum := range pageNums {
		log.Info().Msgf("OCR page %d/%d...", pageNum, len(pages))
		text, err := o.recognize(ctx, images[pageNum])
		if err != nil {
			return nil, fmt.Errorf("failed to OCR page %d: %w", pageNum, err)
		}
		pages[pageNum-1] = text
	}
	return pages, nil
}

// ExtractPage OCRs a single 1-based page
func (o *OCR) ExtractPage(ctx context.Context, filePath string, pageNum int) (string, error) {
	if err := helper.EnsureFile(filePath); err != nil {
		return "", err
	}

	dir, err := os.MkdirTemp("", "policyrag-ocr-*")
	if err != nil {
		return "", err
	}
	defer os.RemoveAll(dir)

	images, err := o.rasterize(ctx, filePath, dir, pageNum)
	if err != nil {
		return "", err
	}
	image, ok := images[pageNum]
	if !ok {
		return "", fmt.Errorf("pdftoppm produced no image for page %d", pageNum)
	}

	log.Info().Msgf("OCR page %d...", pageNum)
	text, err := o.recognize(ctx, image)
	if err != nil {
		return "", fmt.Errorf("failed to OCR page %d: %w", pageNum, err)
	}
	return text, nil
}

// rasterize renders pages to PNG files in dir; pageNum 0 renders the whole document
func (o *OCR) rasterize(ctx context.Context, filePath, dir string, pageNum int) (map[int]string, error) {
	args := []string{"-r", strconv.Itoa(o.cfg.DPI), "-png"}
	if pageNum > 0 {
		args = append(args, "-f", strconv.Itoa(pageNum), "-l", strconv.Itoa(pageNum))
	}
	args = append(args, filePath, filepath.Join(dir, imagePrefix))

	if _, err := run(ctx, o.cfg.PdftoppmPath, args...); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	images := make(map[int]string, len(entries))
	for _, entry := range entries {
		pageNum, ok := imagePage(entry.Name())
		if !ok {
			continue
		}
		images[pageNum] = filepath.Join(dir, entry.Name())
	}
	return images, nil
}

func (o *OCR) recognize(ctx context.Context, image string) (string, error) {
	return run(ctx, o.cfg.TesseractPath, image, "stdout", "-l", o.cfg.Language)
}

func imagePage(name string) (int, bool) {
	m := imagePageRe.FindStringSubmatch(name)
	if m == nil {
		return 0, false
	}
	pageNum, err := strconv.Atoi(m[1])
	if err != nil || pageNum < 1 {
		return 0, false
	}
	return pageNum, true
}

func run(ctx context.Context, bin string, args ...string) (string, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return "", fmt.Errorf("failed to run %s: %w", bin, err)
		}
		return "", fmt.Errorf("failed to run %s: %w: %s", bin, err, msg)
	}
	return stdout.String(), nil
}
