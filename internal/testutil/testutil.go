// Package testutil provides shared test helpers for setting up vaults,
// databases, and synthetic PDF fixtures.
package testutil

import (
	"os"
	"strings"
	"testing"

	"github.com/starford/ansuz/internal/history"
	"github.com/starford/ansuz/internal/storage"
)

// TestDB creates a temporary SQLite history database that is automatically
// cleaned up.
func TestDB(t *testing.T) *history.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "ansuz-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := history.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestVault creates a temporary vault directory with a storage.Provider.
func TestVault(t *testing.T) (string, storage.Provider) {
	t.Helper()
	vaultDir := t.TempDir()
	store, err := storage.NewFS(vaultDir)
	if err != nil {
		t.Fatal(err)
	}
	return vaultDir, store
}

// BuildTextPDF creates a minimal but structurally valid PDF with one page
// per entry in pages, each carrying the given text in its content stream.
func BuildTextPDF(pages ...string) []byte {
	if len(pages) == 0 {
		pages = []string{""}
	}

	type object struct {
		body string
	}

	escape := func(s string) string {
		s = strings.ReplaceAll(s, `\`, `\\`)
		s = strings.ReplaceAll(s, "(", `\(`)
		s = strings.ReplaceAll(s, ")", `\)`)
		return s
	}

	// Object layout: 1 catalog, 2 pages, 3 font, then for each page a page
	// object followed by its content stream object.
	n := len(pages)
	objs := make([]object, 0, 3+2*n)

	var kids []string
	for i := 0; i < n; i++ {
		kids = append(kids, itoa(4+2*i)+" 0 R")
	}

	objs = append(objs, object{"<< /Type /Catalog /Pages 2 0 R >>"})
	objs = append(objs, object{"<< /Type /Pages /Kids [" + strings.Join(kids, " ") + "] /Count " + itoa(n) + " >>"})
	objs = append(objs, object{"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>"})

	for i, text := range pages {
		pageObj := 4 + 2*i
		contentObj := pageObj + 1
		objs = append(objs, object{
			"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Contents " +
				itoa(contentObj) + " 0 R /Resources << /Font << /F1 3 0 R >> >> >>",
		})
		stream := "BT\n/F1 12 Tf\n72 720 Td\n(" + escape(text) + ") Tj\nET"
		objs = append(objs, object{
			"<< /Length " + itoa(len(stream)) + " >>\nstream\n" + stream + "\nendstream",
		})
	}

	var b strings.Builder
	b.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objs)+1)
	for i, o := range objs {
		offsets[i+1] = b.Len()
		b.WriteString(itoa(i + 1))
		b.WriteString(" 0 obj\n")
		b.WriteString(o.body)
		b.WriteString("\nendobj\n")
	}

	xrefOffset := b.Len()
	b.WriteString("xref\n0 ")
	b.WriteString(itoa(len(objs) + 1))
	b.WriteString("\n0000000000 65535 f \n")
	for i := 1; i <= len(objs); i++ {
		b.WriteString(padOffset(offsets[i]))
		b.WriteString(" 00000 n \n")
	}
	b.WriteString("trailer\n<< /Size ")
	b.WriteString(itoa(len(objs) + 1))
	b.WriteString(" /Root 1 0 R >>\nstartxref\n")
	b.WriteString(itoa(xrefOffset))
	b.WriteString("\n%%EOF\n")

	return []byte(b.String())
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	s := ""
	for n > 0 {
		s = string(rune('0'+n%10)) + s
		n /= 10
	}
	return s
}

func padOffset(n int) string {
	s := itoa(n)
	for len(s) < 10 {
		s = "0" + s
	}
	return s
}
