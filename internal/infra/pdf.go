package infra

// pdf.go — Exportación del reporte de movimientos en PDF con go-pdf/fpdf.
// Una página A4 apaisada con una fila por movimiento, en el mismo orden que
// la exportación CSV.

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cris-98/aplicativo-nippon/internal/model"

	"github.com/go-pdf/fpdf"
)

// GenerarReporteMovimientosPDF writes the movement report to storagePath and
// returns the absolute path of the generated file.
func GenerarReporteMovimientosPDF(movimientos []model.Movimiento, storagePath string) (string, error) {
	if err := os.MkdirAll(storagePath, 0755); err != nil {
		return "", fmt.Errorf("pdf: create storage dir: %w", err)
	}

	fileName := fmt.Sprintf("movimientos_%s.pdf", time.Now().Format("20060102_150405"))
	filePath := filepath.Join(storagePath, fileName)

	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(10, 10, 10)
	pdf.AddPage()

	// ── Header ───────────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 8, "NIPPONAUTO - Historial de Movimientos", "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 8)
	pdf.CellFormat(0, 5, time.Now().Format("02/01/2006 15:04"), "", 1, "C", false, 0, "")
	pdf.Ln(3)

	// ── Table header ─────────────────────────────────────────────────────────
	cols := []struct {
		title string
		width float64
	}{
		{"ID", 15},
		{"Fecha", 32},
		{"Tipo", 15},
		{"Producto", 70},
		{"Codigo", 30},
		{"Cantidad", 20},
		{"Motivo", 45},
		{"Observaciones", 50},
	}

	pdf.SetFont("Helvetica", "B", 8)
	pdf.SetFillColor(230, 230, 230)
	for _, col := range cols {
		pdf.CellFormat(col.width, 7, col.title, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	// ── Rows ─────────────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "", 7)
	for i := range movimientos {
		m := &movimientos[i]
		tipo := "OUT"
		if m.EsEntrada() {
			tipo = "IN"
		}
		celdas := []string{
			fmt.Sprintf("%d", m.ID),
			m.FechaFormateada(),
			tipo,
			recortar(m.ProductoNombre, 48),
			m.ProductoCodigo,
			fmt.Sprintf("%d", m.Cantidad),
			recortar(m.Motivo, 32),
			recortar(m.Observaciones, 36),
		}
		for j, celda := range celdas {
			align := "L"
			if j == 0 || j == 5 {
				align = "R"
			}
			pdf.CellFormat(cols[j].width, 6, celda, "1", 0, align, false, 0, "")
		}
		pdf.Ln(-1)
	}

	if err := pdf.OutputFileAndClose(filePath); err != nil {
		return "", fmt.Errorf("pdf: write report: %w", err)
	}
	return filePath, nil
}

// recortar trunca por runas, no por bytes: un corte a mitad de un carácter
// multibyte ("Suspensión", "Préstamo") metería UTF-8 inválido en la celda.
func recortar(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}
