package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"farmtable/internal/domain"
	"github.com/shopspring/decimal"
)

type ProductWriter interface {
	Upsert(ctx context.Context, product domain.Product) (*domain.Product, error)
}

type SellerLookup interface {
	GetByEmail(ctx context.Context, email string) (*domain.Profile, error)
}

const defaultUnit = "kg"

// CSVImporter reads produce listings and inserts/updates products keyed by
// product key. Each row names its farmer by email.
type CSVImporter struct {
	reader   *csv.Reader
	products ProductWriter
	sellers  SellerLookup
	cache    map[string]string
}

func NewCSVImporter(r io.Reader, products ProductWriter, sellers SellerLookup) *CSVImporter {
	csvr := csv.NewReader(r)
	csvr.FieldsPerRecord = -1 // rows may have trailing commas
	return &CSVImporter{
		reader:   csvr,
		products: products,
		sellers:  sellers,
		cache:    map[string]string{},
	}
}

type csvRow struct {
	Line        int
	SellerEmail string
	Key         string
	Name        string
	Desc        string
	Cents       int64
	Unit        string
}

// Run parses CSV rows and upserts one product per row.
func (i *CSVImporter) Run(ctx context.Context) (int, error) {
	headers, err := i.reader.Read()
	if err != nil {
		return 0, fmt.Errorf("read headers: %w", err)
	}
	index := headerIndex(headers)
	for _, col := range []string{"seller_email", "key", "name"} {
		if _, ok := index[col]; !ok {
			return 0, fmt.Errorf("missing column %q", col)
		}
	}

	imported := 0
	line := 1
	for {
		record, err := i.reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return imported, fmt.Errorf("read row: %w", err)
		}
		line++

		row, err := parseRow(record, index)
		if err != nil {
			return imported, fmt.Errorf("line %d: %w", line, err)
		}
		if row == nil {
			continue
		}
		row.Line = line
		if err := i.save(ctx, row); err != nil {
			return imported, err
		}
		imported++
	}

	return imported, nil
}

func (i *CSVImporter) save(ctx context.Context, row *csvRow) error {
	if row.Key == "" || row.Name == "" || row.SellerEmail == "" || row.Cents <= 0 {
		return fmt.Errorf("line %d: invalid product row (missing required fields) for key %q", row.Line, row.Key)
	}

	sellerID, err := i.sellerID(ctx, row.SellerEmail)
	if err != nil {
		return fmt.Errorf("line %d: %w", row.Line, err)
	}

	p := domain.Product{
		SellerID:    sellerID,
		Key:         row.Key,
		Name:        row.Name,
		Description: row.Desc,
		PriceCents:  row.Cents,
		Unit:        row.Unit,
	}
	if _, err := i.products.Upsert(ctx, p); err != nil {
		return fmt.Errorf("upsert product %q: %w", row.Key, err)
	}
	return nil
}

func (i *CSVImporter) sellerID(ctx context.Context, email string) (string, error) {
	email = strings.ToLower(email)
	if id, ok := i.cache[email]; ok {
		return id, nil
	}
	p, err := i.sellers.GetByEmail(ctx, email)
	if err != nil {
		return "", fmt.Errorf("seller %s: %w", email, err)
	}
	if p.Role != domain.RoleSeller {
		return "", fmt.Errorf("profile %s is a %s, not a seller", email, p.Role)
	}
	i.cache[email] = p.ID
	return p.ID, nil
}

func headerIndex(headers []string) map[string]int {
	idx := make(map[string]int, len(headers))
	for i, h := range headers {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	return idx
}

// parseRow returns nil for blank lines. Prices come either as price_cents or
// as a decimal price column.
func parseRow(record []string, index map[string]int) (*csvRow, error) {
	row := &csvRow{
		SellerEmail: pick(record, index, "seller_email"),
		Key:         pick(record, index, "key"),
		Name:        pick(record, index, "name"),
		Desc:        pick(record, index, "description"),
		Unit:        pick(record, index, "unit"),
	}
	centStr := pick(record, index, "price_cents")
	priceStr := pick(record, index, "price")
	if row.Key == "" && row.Name == "" && row.SellerEmail == "" {
		return nil, nil
	}
	if row.Unit == "" {
		row.Unit = defaultUnit
	}

	switch {
	case centStr != "":
		cents, err := strconv.ParseInt(centStr, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("price_cents %q: %w", centStr, err)
		}
		row.Cents = cents
	case priceStr != "":
		price, err := decimal.NewFromString(priceStr)
		if err != nil {
			return nil, fmt.Errorf("price %q: %w", priceStr, err)
		}
		row.Cents = price.Shift(2).Round(0).IntPart()
	}
	return row, nil
}

func pick(record []string, index map[string]int, key string) string {
	pos, ok := index[key]
	if !ok || pos >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[pos])
}
