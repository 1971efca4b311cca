// Package export writes monthly schedule workbooks for the studio's
// offline bookkeeping.
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"

	"github.com/studio-torajirou/kanrigamen/internal/models"
	"github.com/studio-torajirou/kanrigamen/internal/schedule"
)

type Exporter struct {
	dir    string
	logger *zerolog.Logger
}

func NewExporter(dir string, logger *zerolog.Logger) *Exporter {
	return &Exporter{dir: dir, logger: logger}
}

// MonthWorkbook writes one xlsx sheet listing the month's slots with
// reservation tallies and effective capacity. Soft-deleted slots are
// skipped. Returns the file path.
func (e *Exporter) MonthWorkbook(snap *models.Snapshot, year int, month time.Month) (string, error) {
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return "", fmt.Errorf("error creating export directory: %w", err)
	}

	monthPrefix := fmt.Sprintf("%04d-%02d", year, int(month))

	var rows []models.Slot
	for _, slot := range snap.Slots {
		if slot.Status == models.StatusDeleted {
			continue
		}
		if len(slot.Date) >= 7 && slot.Date[:7] == monthPrefix {
			rows = append(rows, slot)
		}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Date != rows[j].Date {
			return rows[i].Date < rows[j].Date
		}
		return rows[i].StartTime < rows[j].StartTime
	})

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "予約状況"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return "", fmt.Errorf("error creating sheet: %w", err)
	}
	f.SetActiveSheet(index)

	_ = f.SetCellValue(sheetName, "A1", fmt.Sprintf("%d年%d月 予約状況", year, int(month)))
	_ = f.MergeCell(sheetName, "A1", "I1")

	titleStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	_ = f.SetCellStyle(sheetName, "A1", "A1", titleStyle)

	headers := []string{"日付", "開始", "終了", "レッスン名", "先生", "予約", "キャンセル待ち", "定員", "料金"}
	headerStyle, _ := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 2)
		_ = f.SetCellValue(sheetName, cell, h)
		_ = f.SetCellStyle(sheetName, cell, cell, headerStyle)
	}

	for rowIdx, slot := range rows {
		tally := schedule.TallyGuests(slot.Guests)
		res := schedule.ResolveCapacity(slot, snap.Templates)

		capText := ""
		if res.Source != schedule.SourceUnresolved {
			capText = fmt.Sprintf("%d", res.Value)
		}

		values := []any{
			slot.Date,
			schedule.ShortTime(slot.StartTime),
			schedule.ShortTime(slot.EndTime),
			slot.Name,
			slot.Teacher,
			tally.Reserved,
			tally.Waitlisted,
			capText,
			slot.Price,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, rowIdx+3)
			_ = f.SetCellValue(sheetName, cell, v)
		}
	}

	_ = f.SetColWidth(sheetName, "A", "A", 12)
	_ = f.SetColWidth(sheetName, "D", "E", models.DefaultExportColWidth)

	_ = f.DeleteSheet("Sheet1")

	fileName := fmt.Sprintf("schedule_%s.xlsx", monthPrefix)
	filePath := filepath.Join(e.dir, fileName)
	if err := f.SaveAs(filePath); err != nil {
		return "", fmt.Errorf("error saving file: %w", err)
	}

	e.logger.Info().Str("file_path", filePath).Int("slots", len(rows)).Msg("month workbook created")
	return filePath, nil
}
