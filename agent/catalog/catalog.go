package catalog

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	contractx "github.com/esencia-cafe/storefront-agent/agent/contract"
)

type Config struct {
	Path string `envconfig:"PATH" split_words:"true" default:"data/stock.csv"`
}

// CSVCatalog reads the tabular product dataset. The file is mutated
// out-of-band; this adapter is strictly read-only.
type CSVCatalog struct {
	path string
}

func NewCSVCatalog(path string) (*CSVCatalog, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("catalog path is required")
	}
	return &CSVCatalog{path: path}, nil
}

func (c *CSVCatalog) Path() string {
	return c.path
}

// Fingerprint is the catalog's mutation marker: mtime plus size. It changes
// whenever the file is rewritten, which is all the synchronizer needs.
func (c *CSVCatalog) Fingerprint(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	info, err := os.Stat(c.path)
	if err != nil {
		return "", fmt.Errorf("stat catalog: %w", err)
	}
	return fmt.Sprintf("%d:%d", info.ModTime().UnixNano(), info.Size()), nil
}

// Products streams all current catalog rows. Columns:
// id, name, category, price, description, stock.
func (c *CSVCatalog) Products(ctx context.Context) ([]contractx.Product, error) {
	f, err := os.Open(c.path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read catalog header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{"id", "name", "price", "stock"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("catalog is missing column %q", required)
		}
	}

	var products []contractx.Product
	for line := 2; ; line++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read catalog line %d: %w", line, err)
		}

		p, err := parseProduct(record, cols)
		if err != nil {
			return nil, fmt.Errorf("catalog line %d: %w", line, err)
		}
		products = append(products, p)
	}
	return products, nil
}

func parseProduct(record []string, cols map[string]int) (contractx.Product, error) {
	field := func(name string) string {
		i, ok := cols[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	price, err := strconv.ParseFloat(field("price"), 64)
	if err != nil {
		return contractx.Product{}, fmt.Errorf("invalid price %q", field("price"))
	}
	stock, err := strconv.Atoi(field("stock"))
	if err != nil {
		return contractx.Product{}, fmt.Errorf("invalid stock %q", field("stock"))
	}
	if stock < 0 {
		return contractx.Product{}, fmt.Errorf("negative stock %d", stock)
	}

	return contractx.Product{
		ID:          field("id"),
		Name:        field("name"),
		Category:    field("category"),
		Price:       price,
		Description: field("description"),
		Stock:       stock,
	}, nil
}

// RenderDocument builds the denormalized index entry for one product. The
// content line is what the assistant quotes back to customers.
func RenderDocument(p contractx.Product) contractx.Document {
	return contractx.Document{
		Name: p.Name,
		Content: fmt.Sprintf("Producto: %s. Precio: S/%v. Descripción: %s. Stock: %d unidades.",
			p.Name, p.Price, p.Description, p.Stock),
		Stock:    p.Stock,
		Price:    p.Price,
		Category: p.Category,
	}
}
