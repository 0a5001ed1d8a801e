/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package report

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/carverauto/autopatrol/pkg/models"
	"github.com/xuri/excelize/v2"
)

// SheetName is the worksheet patrol rows are written to.
const SheetName = "patrol"

var (
	// ErrReportIO wraps every failure to read or write a report file.
	ErrReportIO = errors.New("report i/o failed")

	header = []any{"line", "num", "device type", "code", "ip", "item", "result", "describe", "message", "duration"}
)

const (
	colLine = iota
	colNum
	colDeviceType
	colCode
	colIP
	colItem
	colResult
	colDescribe
	colMessage
	colDuration
)

// WriteFile stores records as a one-sheet workbook at path, writing a sibling
// temp file first and renaming it into place.
func WriteFile(path string, records []models.ResultRecord) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("%w: create report dir: %w", ErrReportIO, err)
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("%w: %w", ErrReportIO, err)
	}

	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return fmt.Errorf("%w: write header: %w", ErrReportIO, err)
	}

	if style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		_ = f.SetCellStyle(SheetName, "A1", "J1", style)
	}

	for i := range records {
		r := &records[i]

		addr, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrReportIO, err)
		}

		row := []any{r.Line, r.Num, r.DeviceType, r.Code, r.IP, string(r.Item), string(r.Result), r.Describe, r.Message(), r.Duration}
		if err := f.SetSheetRow(SheetName, addr, &row); err != nil {
			return fmt.Errorf("%w: write row %d: %w", ErrReportIO, i+2, err)
		}
	}

	_ = f.SetColWidth(SheetName, "A", "E", 14)
	_ = f.SetColWidth(SheetName, "H", "I", 40)

	tmp, err := os.CreateTemp(filepath.Dir(path), ".report-*")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrReportIO, err)
	}

	if _, err := f.WriteTo(tmp); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())

		return fmt.Errorf("%w: save %s: %w", ErrReportIO, path, err)
	}

	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())

		return fmt.Errorf("%w: %w", ErrReportIO, err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())

		return fmt.Errorf("%w: rename %s: %w", ErrReportIO, path, err)
	}

	return nil
}

// ReadFile parses the first worksheet of the workbook at path. An empty file
// yields no records.
func ReadFile(path string) ([]models.ResultRecord, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReportIO, err)
	}

	if info.Size() == 0 {
		return nil, nil
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", ErrReportIO, path, err)
	}
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(0)

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", ErrReportIO, path, err)
	}

	if len(rows) <= 1 {
		return nil, nil
	}

	records := make([]models.ResultRecord, 0, len(rows)-1)

	for _, row := range rows[1:] {
		if cell(row, colLine) == "" && cell(row, colCode) == "" {
			continue
		}

		records = append(records, parseRow(row))
	}

	return records, nil
}

func parseRow(row []string) models.ResultRecord {
	num, _ := strconv.Atoi(cell(row, colNum))

	duration, err := strconv.Atoi(cell(row, colDuration))
	if err != nil || duration < 1 {
		duration = 1
	}

	var messages []string

	if msg := cell(row, colMessage); msg != "" {
		messages = strings.Split(msg, models.MessageSeparator)
	}

	return models.ResultRecord{
		Line:       cell(row, colLine),
		Num:        num,
		DeviceType: cell(row, colDeviceType),
		Code:       cell(row, colCode),
		IP:         cell(row, colIP),
		Item:       models.CheckItem(cell(row, colItem)),
		Result:     models.ResultKind(cell(row, colResult)),
		Describe:   cell(row, colDescribe),
		Messages:   messages,
		Duration:   duration,
	}
}

// cell tolerates the short rows excelize returns for trailing blanks.
func cell(row []string, i int) string {
	if i >= len(row) {
		return ""
	}

	return strings.TrimSpace(row[i])
}
