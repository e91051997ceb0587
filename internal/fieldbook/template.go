package fieldbook

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// templateRows is the extent of the input validation rules.
const templateRows = 1000

// WriteTemplate writes an empty field book with the expected headers.
func WriteTemplate(w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), TemplateSheet); err != nil {
		return fmt.Errorf("failed to name template sheet: %w", err)
	}

	header := make([]interface{}, len(InputHeaders))
	for i, h := range InputHeaders {
		header[i] = h
	}
	if err := f.SetSheetRow(TemplateSheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write template header: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	lastHeader, err := cellName(len(InputHeaders), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(TemplateSheet, "A1", lastHeader, bold); err != nil {
		return err
	}
	if err := f.SetColWidth(TemplateSheet, "A", "E", 14); err != nil {
		return err
	}

	readings := excelize.NewDataValidation(true)
	readings.Sqref = fmt.Sprintf("C2:E%d", templateRows)
	if err := readings.SetRange(-100, 100, excelize.DataValidationTypeDecimal, excelize.DataValidationOperatorBetween); err != nil {
		return err
	}
	readings.SetError(excelize.DataValidationErrorStyleStop, "Lectura", "La lectura debe ser numérica")

	distances := excelize.NewDataValidation(true)
	distances.Sqref = fmt.Sprintf("B2:B%d", templateRows)
	if err := distances.SetRange(0, 1e6, excelize.DataValidationTypeDecimal, excelize.DataValidationOperatorBetween); err != nil {
		return err
	}
	distances.SetError(excelize.DataValidationErrorStyleStop, "Distancia", "La distancia parcial no puede ser negativa")

	for _, dv := range []*excelize.DataValidation{readings, distances} {
		if err := f.AddDataValidation(TemplateSheet, dv); err != nil {
			return fmt.Errorf("failed to add template validation: %w", err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write template: %w", err)
	}
	return nil
}
