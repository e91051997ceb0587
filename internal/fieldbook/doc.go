// Package fieldbook reads and writes leveling field books.
//
// A field book is a worksheet with one row per station and the columns
// Punto, Distancia, Atras, Intermedia and Adelante. Headers are matched
// without regard to case or accents, and the English names Point, Distance,
// Backsight, Intermediate and Foresight are accepted as aliases.
//
// Results are written back as a workbook with a single "Compensacion" sheet
// and an embedded profile chart, or as CSV:
//
//	book, err := fieldbook.ReadFile("registro.xlsx")
//	...
//	outcome, err := calc.Calculate(ctx, book.Survey(725, 725))
//	...
//	err = fieldbook.SaveWorkbook("Nivelacion_ALTUM.xlsx", outcome)
package fieldbook
