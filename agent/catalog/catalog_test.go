package catalog

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	contractx "github.com/esencia-cafe/storefront-agent/agent/contract"
)

const sampleCSV = `id,name,category,price,description,stock
1,Capuccino,bebidas calientes,12.5,Espresso con leche vaporizada,5
2,Brownie con helado,postres,12.0,Brownie tibio con helado de vainilla,0
`

func writeCatalog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "stock.csv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write catalog: %v", err)
	}
	return path
}

func TestProductsParsesRows(t *testing.T) {
	t.Parallel()

	c, err := NewCSVCatalog(writeCatalog(t, sampleCSV))
	if err != nil {
		t.Fatalf("NewCSVCatalog() error = %v", err)
	}

	products, err := c.Products(context.Background())
	if err != nil {
		t.Fatalf("Products() error = %v", err)
	}
	if len(products) != 2 {
		t.Fatalf("expected 2 products, got %d", len(products))
	}

	got := products[0]
	want := contractx.Product{
		ID:          "1",
		Name:        "Capuccino",
		Category:    "bebidas calientes",
		Price:       12.5,
		Description: "Espresso con leche vaporizada",
		Stock:       5,
	}
	if got != want {
		t.Fatalf("unexpected product:\n got %+v\nwant %+v", got, want)
	}
}

func TestProductsRejectsNegativeStock(t *testing.T) {
	t.Parallel()

	c, err := NewCSVCatalog(writeCatalog(t, "id,name,price,stock\n1,Latte,11.0,-3\n"))
	if err != nil {
		t.Fatalf("NewCSVCatalog() error = %v", err)
	}

	_, err = c.Products(context.Background())
	if err == nil || !strings.Contains(err.Error(), "negative stock") {
		t.Fatalf("expected negative stock error, got %v", err)
	}
}

func TestProductsRejectsMissingColumn(t *testing.T) {
	t.Parallel()

	c, err := NewCSVCatalog(writeCatalog(t, "id,name,price\n1,Latte,11.0\n"))
	if err != nil {
		t.Fatalf("NewCSVCatalog() error = %v", err)
	}

	_, err = c.Products(context.Background())
	if err == nil || !strings.Contains(err.Error(), `missing column "stock"`) {
		t.Fatalf("expected missing column error, got %v", err)
	}
}

func TestFingerprintChangesWhenFileIsRewritten(t *testing.T) {
	t.Parallel()

	path := writeCatalog(t, sampleCSV)
	c, err := NewCSVCatalog(path)
	if err != nil {
		t.Fatalf("NewCSVCatalog() error = %v", err)
	}

	before, err := c.Fingerprint(context.Background())
	if err != nil {
		t.Fatalf("Fingerprint() error = %v", err)
	}

	rewritten := sampleCSV + "3,Americano,bebidas calientes,8.5,Espresso alargado,12\n"
	if err := os.WriteFile(path, []byte(rewritten), 0o644); err != nil {
		t.Fatalf("rewrite catalog: %v", err)
	}
	// Same-size rewrites within the mtime granularity would be missed; the
	// sample grows, so size alone forces a new marker.
	after, err := c.Fingerprint(context.Background())
	if err != nil {
		t.Fatalf("Fingerprint() after rewrite error = %v", err)
	}
	if before == after {
		t.Fatal("fingerprint must change after rewrite")
	}
}

func TestFingerprintMissingFile(t *testing.T) {
	t.Parallel()

	c, err := NewCSVCatalog(filepath.Join(t.TempDir(), "missing.csv"))
	if err != nil {
		t.Fatalf("NewCSVCatalog() error = %v", err)
	}
	if _, err := c.Fingerprint(context.Background()); err == nil {
		t.Fatal("expected stat error for missing catalog")
	}
}

func TestRenderDocument(t *testing.T) {
	t.Parallel()

	doc := RenderDocument(contractx.Product{
		Name:        "Capuccino",
		Category:    "bebidas calientes",
		Price:       12.5,
		Description: "Espresso con leche vaporizada",
		Stock:       5,
	})

	if doc.Name != "Capuccino" {
		t.Fatalf("unexpected document name: %q", doc.Name)
	}
	if doc.Stock != 5 || doc.Price != 12.5 {
		t.Fatalf("unexpected metadata: %+v", doc)
	}
	want := "Producto: Capuccino. Precio: S/12.5. Descripción: Espresso con leche vaporizada. Stock: 5 unidades."
	if doc.Content != want {
		t.Fatalf("unexpected content:\n got %q\nwant %q", doc.Content, want)
	}
}

func TestWatcherNotifiesOnRewrite(t *testing.T) {
	t.Parallel()

	path := writeCatalog(t, sampleCSV)
	notified := make(chan struct{}, 1)

	w, err := NewWatcher(path, func() {
		select {
		case notified <- struct{}{}:
		default:
		}
	})
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	defer w.Stop()

	if err := os.WriteFile(path, []byte(sampleCSV+"\n"), 0o644); err != nil {
		t.Fatalf("rewrite catalog: %v", err)
	}

	select {
	case <-notified:
	case <-time.After(3 * time.Second):
		t.Fatal("watcher did not report the rewrite")
	}
}
