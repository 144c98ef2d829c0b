package handlers

import (
	"bytes"
	"errors"
	"mime/multipart"
	"testing"
	"time"

	"github.com/stic_os/backend/internal/models"
)

func TestParseOrdersCSV_LegacyHeaders(t *testing.T) {
	content := "Número da OS,Situação,Tipo de Serviço,Setor,Técnico,Data de Abertura,Data de Finalização\n" +
		"OS-100,Finalizada,Formatação,DPC,Silva,2025-03-01,2025-03-08\n" +
		"OS-101,Aberta,Troca de HD,STIC,,2025-03-10,\n"
	fh := makeMultipartFile(t, "orders", "orders.csv", content)

	orders, errs := parseOrdersCSV(fh)
	if len(errs) > 0 {
		t.Fatalf("expected no errors, got %v", errs)
	}
	if len(orders) != 2 {
		t.Fatalf("expected 2 orders, got %d", len(orders))
	}

	first := orders[0]
	if first.ID != "OS-100" || first.Unit != "DPC" || first.Responsible != "Silva" {
		t.Fatalf("legacy header mapping failed: %+v", first)
	}
	if models.NormalizeStatus(first.Status) != models.StatusFinalized {
		t.Fatalf("expected finalized status, got %q", first.Status)
	}
	if first.OpenedAt == nil || first.FinalizedAt == nil {
		t.Fatalf("expected both timestamps parsed: %+v", first)
	}

	second := orders[1]
	if second.FinalizedAt != nil {
		t.Fatalf("expected absent finalization, got %v", second.FinalizedAt)
	}
	if second.CreatedDate != "2025-03-10" {
		t.Fatalf("expected created date from opening, got %s", second.CreatedDate)
	}
}

func TestParseOrdersCSV_MalformedTimestampIsAbsence(t *testing.T) {
	content := "id,status,service_type,unit,opened_at\nOS-1,Aberta,Rede,STIC,not-a-date\n"
	fh := makeMultipartFile(t, "orders", "orders.csv", content)

	orders, errs := parseOrdersCSV(fh)
	if len(errs) > 0 {
		t.Fatalf("malformed timestamp must not be a row error, got %v", errs)
	}
	if len(orders) != 1 {
		t.Fatalf("expected 1 order, got %d", len(orders))
	}
	if orders[0].OpenedAt != nil {
		t.Fatalf("expected absent opened_at, got %v", orders[0].OpenedAt)
	}
}

func TestParseOrdersCSV_MissingFieldsGetFallbacks(t *testing.T) {
	content := "status,descrição\nAberta,mouse quebrado\n"
	fh := makeMultipartFile(t, "orders", "orders.csv", content)

	orders, errs := parseOrdersCSV(fh)
	if len(errs) > 0 {
		t.Fatalf("expected no errors, got %v", errs)
	}
	if orders[0].ID == "" {
		t.Fatal("expected generated id")
	}
	if orders[0].Unit != "Unspecified" {
		t.Fatalf("expected Unspecified unit, got %q", orders[0].Unit)
	}
}

func TestParseOrdersCSV_StripsByteOrderMark(t *testing.T) {
	// Excel exports prefix the first header with a UTF-8 BOM.
	content := "\uFEFFid,status,unit\nOS-1,Aberta,STIC\n"
	fh := makeMultipartFile(t, "orders", "orders.csv", content)

	orders, errs := parseOrdersCSV(fh)
	if len(errs) > 0 {
		t.Fatalf("expected no errors, got %v", errs)
	}
	if len(orders) != 1 || orders[0].ID != "OS-1" {
		t.Fatalf("BOM-prefixed header must still map the id column: %+v", orders)
	}
}

func TestWriteOrdersCSV(t *testing.T) {
	opened := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	orders := []models.ServiceOrder{{
		ID:        "OS-1",
		Status:    "Aberta",
		Unit:      "STIC",
		OpenedAt:  &opened,
		CreatedAt: opened,
	}}

	var buf bytes.Buffer
	if err := writeOrdersCSV(&buf, orders); err != nil {
		t.Fatalf("write: %v", err)
	}
	out := buf.String()
	if !bytes.Contains(buf.Bytes(), []byte("OS-1,Aberta")) {
		t.Fatalf("expected order row in export:\n%s", out)
	}
}

func TestWriteOrdersCSVReportsBrokenWriter(t *testing.T) {
	orders := []models.ServiceOrder{{ID: "OS-1", CreatedAt: time.Now()}}
	if err := writeOrdersCSV(failingWriter{}, orders); err == nil {
		t.Fatal("expected the write failure to surface")
	}
}

type failingWriter struct{}

func (failingWriter) Write(p []byte) (int, error) {
	return 0, errors.New("connection reset")
}

func makeMultipartFile(t *testing.T, fieldName, filename, content string) *multipart.FileHeader {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile(fieldName, filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write([]byte(content)); err != nil {
		t.Fatalf("write content: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	reader := multipart.NewReader(&buf, writer.Boundary())
	form, err := reader.ReadForm(int64(buf.Len()))
	if err != nil {
		t.Fatalf("read form: %v", err)
	}
	files := form.File[fieldName]
	if len(files) == 0 {
		t.Fatalf("no file headers found")
	}
	return files[0]
}
