package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"storefront/internal/domain"
	"storefront/internal/logger"
)

type ProductWriter interface {
	Upsert(ctx context.Context, product domain.Product) (*domain.Product, error)
}

// CSVImporter reads catalog CSV files and upserts products by title.
type CSVImporter struct {
	reader      *csv.Reader
	productRepo ProductWriter
	logger      *zap.Logger
}

func NewCSVImporter(r io.Reader, repo ProductWriter, l *zap.Logger) *CSVImporter {
	csvr := csv.NewReader(r)
	csvr.FieldsPerRecord = -1 // rows may have trailing commas
	csvr.TrimLeadingSpace = true
	return &CSVImporter{
		reader:      csvr,
		productRepo: repo,
		logger:      logger.OrNop(l).Named("importer"),
	}
}

// Run parses every row and upserts it. It stops at the first invalid row.
func (i *CSVImporter) Run(ctx context.Context) (int, error) {
	headers, err := i.reader.Read()
	if err != nil {
		return 0, fmt.Errorf("read headers: %w", err)
	}
	index := headerIndex(headers)
	if _, ok := index["title"]; !ok {
		return 0, errors.New("missing title column")
	}

	imported := 0
	line := 1
	for {
		record, err := i.reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return imported, fmt.Errorf("read row %d: %w", line, err)
		}
		if blank(record) {
			continue
		}

		p, err := parseRow(record, index)
		if err != nil {
			return imported, fmt.Errorf("row %d: %w", line, err)
		}
		saved, err := i.productRepo.Upsert(ctx, p)
		if err != nil {
			return imported, fmt.Errorf("upsert product %q: %w", p.Title, err)
		}
		i.logger.Debug("imported", zap.String("title", saved.Title), zap.String("id", saved.ID))
		imported++
	}

	i.logger.Info("import finished", zap.Int("products", imported))
	return imported, nil
}

func parseRow(record []string, index map[string]int) (domain.Product, error) {
	p := domain.Product{
		Title:          pick(record, index, "title"),
		Description:    pick(record, index, "description"),
		CurrencyID:     strings.ToUpper(pick(record, index, "currencyId")),
		CurrencyFormat: pick(record, index, "currencyFormat"),
		Style:          pick(record, index, "style"),
		ProductImage:   pick(record, index, "productImage"),
	}
	if p.Title == "" || p.Description == "" {
		return p, errors.New("title and description are required")
	}

	price, err := decimal.NewFromString(pick(record, index, "price"))
	if err != nil || !price.IsPositive() {
		return p, fmt.Errorf("invalid price for %q", p.Title)
	}
	p.Price = price.Round(2)

	if p.CurrencyID == "" {
		p.CurrencyID = "INR"
	}
	if p.CurrencyID != "INR" {
		return p, fmt.Errorf("unsupported currency %q for %q", p.CurrencyID, p.Title)
	}
	if p.CurrencyFormat == "" {
		p.CurrencyFormat = "₹"
	}

	if raw := pick(record, index, "isFreeShipping"); raw != "" {
		if p.IsFreeShipping, err = strconv.ParseBool(raw); err != nil {
			return p, fmt.Errorf("invalid isFreeShipping for %q", p.Title)
		}
	}
	if raw := pick(record, index, "installments"); raw != "" {
		if p.Installments, err = strconv.Atoi(raw); err != nil || p.Installments < 0 {
			return p, fmt.Errorf("invalid installments for %q", p.Title)
		}
	}

	sizes, err := parseSizes(pick(record, index, "availableSizes"))
	if err != nil {
		return p, fmt.Errorf("%w for %q", err, p.Title)
	}
	p.AvailableSizes = sizes
	return p, nil
}

// parseSizes accepts sizes separated by ";" or "|".
func parseSizes(raw string) ([]string, error) {
	fields := strings.FieldsFunc(raw, func(r rune) bool { return r == ';' || r == '|' })
	seen := make(map[string]bool, len(fields))
	sizes := make([]string, 0, len(fields))
	for _, f := range fields {
		s := strings.ToUpper(strings.TrimSpace(f))
		if s == "" || seen[s] {
			continue
		}
		if !domain.ValidSize(s) {
			return nil, fmt.Errorf("invalid size %q", s)
		}
		seen[s] = true
		sizes = append(sizes, s)
	}
	if len(sizes) == 0 {
		return nil, errors.New("availableSizes is required")
	}
	return sizes, nil
}

func headerIndex(headers []string) map[string]int {
	idx := make(map[string]int, len(headers))
	for i, h := range headers {
		idx[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	return idx
}

func pick(record []string, index map[string]int, key string) string {
	pos, ok := index[key]
	if !ok || pos >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[pos])
}

func blank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
