package models

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	exportSheet  = "Checklist"
	recordsSheet = "Registros"
)

// ExportClient renders the client detail as an xlsx workbook. A second sheet lists the stored
// category rows with the document list recorded at their last update. Returns the file bytes
// and a file name.
func (c *Checklist) ExportClient(ctx context.Context, clientID int) ([]byte, string, error) {
	ctx, span := tracer.Start(ctx, "Checklist.ExportClient", trace.WithAttributes(attribute.Int("cliente_id", clientID)))
	defer span.End()

	detail, err := c.GetClientDetail(ctx, clientID)
	if err != nil {
		return nil, "", err
	}

	var records []CategoriaChecklist
	if err := c.db.WithContext(ctx).
		Where("cliente_id = ?", clientID).
		Order("nome_categoria").
		Find(&records).Error; err != nil {
		return nil, "", c.internalError(span, "ExportClient", "loading category rows", clientID, err, msgInternalRead)
	}

	data, err := exportExcel(detail, records)
	if err != nil {
		return nil, "", c.internalError(span, "ExportClient", "building workbook", clientID, err, msgInternalRead)
	}
	return data, fmt.Sprintf("checklist_cliente_%d.xlsx", clientID), nil
}

func exportExcel(detail *ClientDetail, records []CategoriaChecklist) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return nil, err
	}

	// Add headers
	headings := []string{"Cliente", "Categoria", "Status", "Documento", "Encontrado no bucket"}
	col := 'A'
	for _, h := range headings {
		f.SetCellValue(exportSheet, string(col)+"1", h)
		col++
	}

	// Add data
	rowNo := 2
	for _, cat := range detail.Categorias {
		if len(cat.DetalhesDocumentos) == 0 {
			setExportRow(f, rowNo, detail.ClienteNome, cat, DocumentPresence{})
			rowNo++
			continue
		}
		for _, doc := range cat.DetalhesDocumentos {
			setExportRow(f, rowNo, detail.ClienteNome, cat, doc)
			rowNo++
		}
	}

	if _, err := f.NewSheet(recordsSheet); err != nil {
		return nil, err
	}
	col = 'A'
	for _, h := range []string{"Categoria", "Status", "Atualizado em", "Documentos registrados"} {
		f.SetCellValue(recordsSheet, string(col)+"1", h)
		col++
	}
	for i, r := range records {
		row := fmt.Sprint(i + 2)
		f.SetCellValue(recordsSheet, "A"+row, r.NomeCategoria)
		f.SetCellValue(recordsSheet, "B"+row, string(r.StatusRecebimento))
		f.SetCellValue(recordsSheet, "C"+row, r.DataAtualizacao.Format("2006-01-02 15:04:05"))
		f.SetCellValue(recordsSheet, "D"+row, strings.Join(r.DocumentNames(), ", "))
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func setExportRow(f *excelize.File, rowNo int, clientName string, cat CategoryDetail, doc DocumentPresence) {
	f.SetCellValue(exportSheet, "A"+fmt.Sprint(rowNo), clientName)
	f.SetCellValue(exportSheet, "B"+fmt.Sprint(rowNo), cat.NomeCategoria)
	f.SetCellValue(exportSheet, "C"+fmt.Sprint(rowNo), string(cat.StatusRecebimento))
	f.SetCellValue(exportSheet, "D"+fmt.Sprint(rowNo), doc.NomeDocumento)
	f.SetCellValue(exportSheet, "E"+fmt.Sprint(rowNo), doc.StatusBucket)
}
