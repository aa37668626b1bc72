package export

import (
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/hacost/leads/internal/model"
)

// sheetName is shared by all workbooks so downstream tooling can address
// rows without probing sheet indexes.
const sheetName = "Leads"

var headerRow = []string{
	"source", "name", "phone", "email", "address",
	"website", "source_url", "zone", "rating", "review_count",
}

// WriteXLSX writes the records to a single-sheet workbook at path. The
// header row is always written, even for an empty record set.
func WriteXLSX(path string, records []model.LeadRecord) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet(sheetName)
	if err != nil {
		return eris.Wrap(err, "export: add sheet")
	}

	hr := sheet.AddRow()
	for _, h := range headerRow {
		hr.AddCell().SetString(h)
	}

	for _, rec := range records {
		row := sheet.AddRow()
		row.AddCell().SetString(rec.Source)
		row.AddCell().SetString(rec.Name)
		row.AddCell().SetString(rec.Phone)
		row.AddCell().SetString(rec.Email)
		row.AddCell().SetString(rec.Address)
		row.AddCell().SetString(rec.Website)
		row.AddCell().SetString(rec.SourceURL)
		row.AddCell().SetString(rec.Zone)
		row.AddCell().SetFloatWithFormat(rec.Rating, "0.0")
		row.AddCell().SetInt(rec.ReviewCount)
	}

	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "export: save %s", path)
	}
	return nil
}

// ReadXLSX reads back a workbook written by WriteXLSX. Used by status
// tooling and tests; the header row is skipped.
func ReadXLSX(path string) ([]model.LeadRecord, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "export: open %s", path)
	}
	sheet, ok := f.Sheet[sheetName]
	if !ok {
		return nil, eris.Errorf("export: sheet %q not found in %s", sheetName, path)
	}

	var records []model.LeadRecord
	for i, row := range sheet.Rows {
		if i == 0 {
			continue
		}
		if len(row.Cells) < len(headerRow) {
			continue
		}
		rec := model.LeadRecord{
			Source:    row.Cells[0].Value,
			Name:      row.Cells[1].Value,
			Phone:     row.Cells[2].Value,
			Email:     row.Cells[3].Value,
			Address:   row.Cells[4].Value,
			Website:   row.Cells[5].Value,
			SourceURL: row.Cells[6].Value,
			Zone:      row.Cells[7].Value,
		}
		if v, err := row.Cells[8].Float(); err == nil {
			rec.Rating = v
		}
		if v, err := row.Cells[9].Int(); err == nil {
			rec.ReviewCount = v
		}
		records = append(records, rec)
	}
	return records, nil
}
