package convert

import (
	"bytes"
	"database/sql"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"
	_ "modernc.org/sqlite"

	verrors "github.com/valet-cli/valet/internal/errors"
)

// dataFunc converts inputPath into outputPath. Implementations are
// deterministic and never shell out.
type dataFunc func(inputPath, outputPath string) error

// dataConversions is the closed pair table for the data pseudo-tool. A pair
// absent from this table is not convertible; there is no generic fallback.
var dataConversions = map[string]dataFunc{
	".json->csv":  jsonToCSV,
	".csv->json":  csvToJSON,
	".json->yaml": jsonToYAML,
	".yaml->json": yamlToJSON,
	".yml->json":  yamlToJSON,
	".json->toml": jsonToTOML,
	".toml->json": tomlToJSON,
	".csv->xlsx":  csvToXLSX,
	".xlsx->csv":  xlsxToCSV,
	".json->xlsx": jsonToXLSX,
	".sqlite->csv": func(in, out string) error {
		return sqliteExport(in, out, writeCSVRows)
	},
	".sqlite->json": func(in, out string) error {
		return sqliteExport(in, out, writeJSONRows)
	},
	".db->csv": func(in, out string) error {
		return sqliteExport(in, out, writeCSVRows)
	},
	".db->json": func(in, out string) error {
		return sqliteExport(in, out, writeJSONRows)
	},
}

func dataKey(sourceExt, target string) string {
	return strings.ToLower(sourceExt) + "->" + strings.ToLower(target)
}

// DataSupports reports whether the data pseudo-tool has a converter for the
// pair. sourceExt includes the leading dot, target does not.
func DataSupports(sourceExt, target string) bool {
	_, ok := dataConversions[dataKey(sourceExt, target)]
	return ok
}

// ConvertData runs the in-process converter for the pair. Unlisted pairs fail
// closed with a conversion error.
func ConvertData(sourceExt, target, inputPath, outputPath string) error {
	fn, ok := dataConversions[dataKey(sourceExt, target)]
	if !ok {
		return verrors.NewConversionFailed(fmt.Sprintf("no built-in converter for %s -> .%s", sourceExt, target))
	}
	return fn(inputPath, outputPath)
}

// jsonToCSV accepts a JSON array of objects, a single object (treated as a
// one-row array), or an array of primitives (written as a single "value"
// column). Column order follows the key order of the first object in the
// document. An empty array has no schema and is rejected.
func jsonToCSV(inputPath, outputPath string) error {
	raw, err := os.ReadFile(inputPath)
	if err != nil {
		return verrors.NewConversionFailed(err.Error())
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return verrors.NewConversionFailed("invalid JSON: " + err.Error())
	}

	var rows []any
	switch v := doc.(type) {
	case map[string]any:
		rows = []any{v}
	case []any:
		rows = v
	}
	if len(rows) == 0 {
		return verrors.NewConversionFailed("JSON must be a non-empty array or an object for CSV conversion")
	}

	out, err := os.Create(outputPath)
	if err != nil {
		return verrors.NewConversionFailed(err.Error())
	}
	defer out.Close()
	w := csv.NewWriter(out)

	if _, ok := rows[0].(map[string]any); !ok {
		// Array of primitives.
		if err := w.Write([]string{"value"}); err != nil {
			return verrors.NewConversionFailed(err.Error())
		}
		for _, item := range rows {
			if err := w.Write([]string{scalarString(item)}); err != nil {
				return verrors.NewConversionFailed(err.Error())
			}
		}
		w.Flush()
		return wrapFlush(w)
	}

	headers, err := firstObjectKeys(raw)
	if err != nil {
		return verrors.NewConversionFailed(err.Error())
	}
	if err := w.Write(headers); err != nil {
		return verrors.NewConversionFailed(err.Error())
	}
	for _, item := range rows {
		obj, ok := item.(map[string]any)
		if !ok {
			return verrors.NewConversionFailed("mixed array: expected all rows to be objects")
		}
		record := make([]string, len(headers))
		for i, h := range headers {
			record[i] = scalarString(obj[h])
		}
		if err := w.Write(record); err != nil {
			return verrors.NewConversionFailed(err.Error())
		}
	}
	w.Flush()
	return wrapFlush(w)
}

func wrapFlush(w *csv.Writer) error {
	if err := w.Error(); err != nil {
		return verrors.NewConversionFailed(err.Error())
	}
	return nil
}

// firstObjectKeys scans the token stream for the first object in the document
// and returns its keys in declaration order. encoding/json maps do not keep
// key order, so the header row has to come from the raw bytes.
func firstObjectKeys(raw []byte) ([]string, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("no object found in JSON document")
		}
		if d, ok := tok.(json.Delim); ok && d == '{' {
			break
		}
	}
	var keys []string
	depth := 0
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case json.Delim:
			switch t {
			case '{', '[':
				depth++
			case '}', ']':
				if depth == 0 {
					return keys, nil
				}
				depth--
			}
		case string:
			if depth == 0 && dec.More() {
				keys = append(keys, t)
				// Skip the value so the next top-level token is a key.
				var discard json.RawMessage
				if err := dec.Decode(&discard); err != nil {
					return nil, err
				}
			}
		}
	}
	return keys, nil
}

// scalarString renders a decoded JSON value as a CSV cell. Nested values are
// re-encoded as JSON text rather than dropped.
func scalarString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		if t {
			return "true"
		}
		return "false"
	case json.Number:
		return t.String()
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
}

// csvToJSON reads the header row and emits an array of objects with string
// values. Cell contents are not coerced to numbers or booleans.
func csvToJSON(inputPath, outputPath string) error {
	in, err := os.Open(inputPath)
	if err != nil {
		return verrors.NewConversionFailed(err.Error())
	}
	defer in.Close()

	r := csv.NewReader(in)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return verrors.NewConversionFailed("invalid CSV: " + err.Error())
	}
	if len(records) == 0 {
		return verrors.NewConversionFailed("CSV file is empty")
	}

	headers := records[0]
	var buf bytes.Buffer
	buf.WriteString("[\n")
	for i, record := range records[1:] {
		if i > 0 {
			buf.WriteString(",\n")
		}
		buf.WriteString("  {\n")
		for j, h := range headers {
			val := ""
			if j < len(record) {
				val = record[j]
			}
			key, _ := json.Marshal(h)
			cell, _ := json.Marshal(val)
			fmt.Fprintf(&buf, "    %s: %s", key, cell)
			if j < len(headers)-1 {
				buf.WriteString(",")
			}
			buf.WriteString("\n")
		}
		buf.WriteString("  }")
	}
	buf.WriteString("\n]")
	if err := os.WriteFile(outputPath, buf.Bytes(), 0o644); err != nil {
		return verrors.NewConversionFailed(err.Error())
	}
	return nil
}

func jsonToYAML(inputPath, outputPath string) error {
	var doc any
	if err := readJSON(inputPath, &doc); err != nil {
		return err
	}
	out, err := yaml.Marshal(doc)
	if err != nil {
		return verrors.NewConversionFailed(err.Error())
	}
	if err := os.WriteFile(outputPath, out, 0o644); err != nil {
		return verrors.NewConversionFailed(err.Error())
	}
	return nil
}

func yamlToJSON(inputPath, outputPath string) error {
	raw, err := os.ReadFile(inputPath)
	if err != nil {
		return verrors.NewConversionFailed(err.Error())
	}
	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return verrors.NewConversionFailed("invalid YAML: " + err.Error())
	}
	return writeJSONFile(outputPath, doc)
}

// jsonToTOML requires a top-level object; TOML has no representation for a
// bare array or scalar document.
func jsonToTOML(inputPath, outputPath string) error {
	var doc map[string]any
	if err := readJSON(inputPath, &doc); err != nil {
		return err
	}
	out, err := os.Create(outputPath)
	if err != nil {
		return verrors.NewConversionFailed(err.Error())
	}
	defer out.Close()
	if err := toml.NewEncoder(out).Encode(doc); err != nil {
		return verrors.NewConversionFailed(err.Error())
	}
	return nil
}

func tomlToJSON(inputPath, outputPath string) error {
	var doc map[string]any
	if _, err := toml.DecodeFile(inputPath, &doc); err != nil {
		return verrors.NewConversionFailed("invalid TOML: " + err.Error())
	}
	return writeJSONFile(outputPath, doc)
}

func csvToXLSX(inputPath, outputPath string) error {
	in, err := os.Open(inputPath)
	if err != nil {
		return verrors.NewConversionFailed(err.Error())
	}
	defer in.Close()

	r := csv.NewReader(in)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return verrors.NewConversionFailed("invalid CSV: " + err.Error())
	}
	rows := make([][]any, len(records))
	for i, record := range records {
		row := make([]any, len(record))
		for j, cell := range record {
			row[j] = cell
		}
		rows[i] = row
	}
	return writeSheet(outputPath, rows)
}

func xlsxToCSV(inputPath, outputPath string) error {
	f, err := excelize.OpenFile(inputPath)
	if err != nil {
		return verrors.NewConversionFailed("invalid XLSX: " + err.Error())
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	rows, err := f.GetRows(sheet)
	if err != nil {
		return verrors.NewConversionFailed(err.Error())
	}

	out, err := os.Create(outputPath)
	if err != nil {
		return verrors.NewConversionFailed(err.Error())
	}
	defer out.Close()
	w := csv.NewWriter(out)
	width := 0
	for _, row := range rows {
		if len(row) > width {
			width = len(row)
		}
	}
	for _, row := range rows {
		// GetRows trims trailing empty cells; pad so every record has
		// the same field count.
		record := make([]string, width)
		copy(record, row)
		if err := w.Write(record); err != nil {
			return verrors.NewConversionFailed(err.Error())
		}
	}
	w.Flush()
	return wrapFlush(w)
}

// jsonToXLSX shares the schema rules of jsonToCSV: array of objects or a
// single object, headers from the first object's key order.
func jsonToXLSX(inputPath, outputPath string) error {
	raw, err := os.ReadFile(inputPath)
	if err != nil {
		return verrors.NewConversionFailed(err.Error())
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return verrors.NewConversionFailed("invalid JSON: " + err.Error())
	}

	var items []any
	switch v := doc.(type) {
	case map[string]any:
		items = []any{v}
	case []any:
		items = v
	}
	if len(items) == 0 {
		return verrors.NewConversionFailed("JSON must be a non-empty array or an object for XLSX conversion")
	}
	if _, ok := items[0].(map[string]any); !ok {
		return verrors.NewConversionFailed("JSON must contain objects for XLSX conversion")
	}

	headers, err := firstObjectKeys(raw)
	if err != nil {
		return verrors.NewConversionFailed(err.Error())
	}
	rows := make([][]any, 0, len(items)+1)
	headerRow := make([]any, len(headers))
	for i, h := range headers {
		headerRow[i] = h
	}
	rows = append(rows, headerRow)
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			return verrors.NewConversionFailed("mixed array: expected all rows to be objects")
		}
		row := make([]any, len(headers))
		for i, h := range headers {
			row[i] = scalarString(obj[h])
		}
		rows = append(rows, row)
	}
	return writeSheet(outputPath, rows)
}

func writeSheet(outputPath string, rows [][]any) error {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return verrors.NewConversionFailed(err.Error())
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return verrors.NewConversionFailed(err.Error())
		}
	}
	if err := f.SaveAs(outputPath); err != nil {
		return verrors.NewConversionFailed(err.Error())
	}
	return nil
}

// tableRows is the export payload for a SQLite table.
type tableRows struct {
	Columns []string
	Rows    [][]string
}

// sqliteExport dumps the first user table (alphabetical) of the database.
func sqliteExport(inputPath, outputPath string, write func(string, tableRows) error) error {
	db, err := sql.Open("sqlite", inputPath)
	if err != nil {
		return verrors.NewConversionFailed(err.Error())
	}
	defer db.Close()

	var table string
	err = db.QueryRow(
		`SELECT name FROM sqlite_master WHERE type='table' AND name NOT LIKE 'sqlite_%' ORDER BY name LIMIT 1`,
	).Scan(&table)
	if err == sql.ErrNoRows {
		return verrors.NewConversionFailed("database has no tables")
	}
	if err != nil {
		return verrors.NewConversionFailed("invalid SQLite database: " + err.Error())
	}

	rows, err := db.Query(`SELECT * FROM "` + strings.ReplaceAll(table, `"`, `""`) + `"`)
	if err != nil {
		return verrors.NewConversionFailed(err.Error())
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return verrors.NewConversionFailed(err.Error())
	}
	payload := tableRows{Columns: cols}
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return verrors.NewConversionFailed(err.Error())
		}
		record := make([]string, len(cols))
		for i, v := range values {
			record[i] = sqlCellString(v)
		}
		payload.Rows = append(payload.Rows, record)
	}
	if err := rows.Err(); err != nil {
		return verrors.NewConversionFailed(err.Error())
	}
	return write(outputPath, payload)
}

func sqlCellString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case []byte:
		return string(t)
	case string:
		return t
	case int64:
		return fmt.Sprintf("%d", t)
	case float64:
		return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%f", t), "0"), ".")
	default:
		return fmt.Sprint(t)
	}
}

func writeCSVRows(outputPath string, data tableRows) error {
	out, err := os.Create(outputPath)
	if err != nil {
		return verrors.NewConversionFailed(err.Error())
	}
	defer out.Close()
	w := csv.NewWriter(out)
	if err := w.Write(data.Columns); err != nil {
		return verrors.NewConversionFailed(err.Error())
	}
	for _, record := range data.Rows {
		if err := w.Write(record); err != nil {
			return verrors.NewConversionFailed(err.Error())
		}
	}
	w.Flush()
	return wrapFlush(w)
}

func writeJSONRows(outputPath string, data tableRows) error {
	objects := make([]map[string]string, len(data.Rows))
	for i, record := range data.Rows {
		obj := make(map[string]string, len(data.Columns))
		for j, col := range data.Columns {
			if j < len(record) {
				obj[col] = record[j]
			}
		}
		objects[i] = obj
	}
	return writeJSONFile(outputPath, objects)
}

func readJSON(path string, dst any) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return verrors.NewConversionFailed(err.Error())
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return verrors.NewConversionFailed("invalid JSON: " + err.Error())
	}
	return nil
}

func writeJSONFile(path string, doc any) error {
	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return verrors.NewConversionFailed(err.Error())
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return verrors.NewConversionFailed(err.Error())
	}
	return nil
}
