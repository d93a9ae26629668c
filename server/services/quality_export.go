package services

import (
	"bytes"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	apperrors "benepick/server/errors"
)

const qualityExportSheet = "Quality Report"

// ExportLatestReport renders the latest quality report as an XLSX workbook.
func (s *QualityLoopService) ExportLatestReport() ([]byte, string, error) {
	report, err := s.GetLatestReport()
	if err != nil {
		return nil, "", err
	}

	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(qualityExportSheet)
	if err != nil {
		return nil, "", apperrors.WrapError(err, "failed to create export sheet")
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return nil, "", apperrors.WrapError(err, "failed to create header style")
	}

	summary := [][2]any{
		{"스냅샷 ID", report.SnapshotID},
		{"트리거", report.TriggerSource},
		{"집계 시각", formatExportTime(report.GeneratedAt)},
		{"기간 시작", formatExportTime(report.WindowStartAt)},
		{"기간 종료", formatExportTime(report.WindowEndAt)},
		{"추천 실행", report.TotalRuns},
		{"추천 상품", report.TotalRecommendationItems},
		{"클릭", report.TotalRedirects},
		{"고유 클릭", report.UniqueClickedProducts},
		{"전체 CTR(%)", report.OverallCtrPercent},
		{"전체 CVR(%)", report.OverallCvrPercent},
		{"비고", report.Notes},
	}
	for i, pair := range summary {
		row := i + 1
		f.SetCellValue(qualityExportSheet, fmt.Sprintf("A%d", row), pair[0])
		f.SetCellValue(qualityExportSheet, fmt.Sprintf("B%d", row), pair[1])
	}

	headerRow := len(summary) + 2
	headers := []string{
		"카테고리", "라벨", "추천", "클릭", "고유 클릭",
		"CTR(%)", "CVR(%)", "제안", "가중치 조정(%)", "근거",
	}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, headerRow)
		f.SetCellValue(qualityExportSheet, cell, header)
		f.SetCellStyle(qualityExportSheet, cell, cell, headerStyle)
	}

	for rowIdx, metric := range report.Categories {
		row := headerRow + rowIdx + 1
		f.SetCellValue(qualityExportSheet, fmt.Sprintf("A%d", row), metric.CategoryKey)
		f.SetCellValue(qualityExportSheet, fmt.Sprintf("B%d", row), metric.CategoryLabel)
		f.SetCellValue(qualityExportSheet, fmt.Sprintf("C%d", row), metric.RecommendedProducts)
		f.SetCellValue(qualityExportSheet, fmt.Sprintf("D%d", row), metric.TotalRedirects)
		f.SetCellValue(qualityExportSheet, fmt.Sprintf("E%d", row), metric.UniqueClickedProducts)
		f.SetCellValue(qualityExportSheet, fmt.Sprintf("F%d", row), metric.CtrPercent)
		f.SetCellValue(qualityExportSheet, fmt.Sprintf("G%d", row), metric.CvrPercent)
		f.SetCellValue(qualityExportSheet, fmt.Sprintf("H%d", row), metric.SuggestedAction)
		f.SetCellValue(qualityExportSheet, fmt.Sprintf("I%d", row), metric.SuggestedWeightDeltaPercent)
		f.SetCellValue(qualityExportSheet, fmt.Sprintf("J%d", row), metric.Evidence)
	}

	for i := range headers {
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(qualityExportSheet, col, col, 16)
	}

	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	var buffer bytes.Buffer
	if err := f.Write(&buffer); err != nil {
		return nil, "", apperrors.WrapError(err, "failed to serialize export workbook")
	}

	filename := "quality-report-" + s.now().Format("20060102-150405") + ".xlsx"
	return buffer.Bytes(), filename, nil
}

func formatExportTime(at *time.Time) string {
	if at == nil {
		return ""
	}
	return at.Format(time.RFC3339)
}
