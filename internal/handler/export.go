package handler

import (
	"encoding/csv"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
	"github.com/yourusername/answerly-api/internal/service"
)

var exportHeaders = []string{"Respondent", "Correct", "Total questions", "Percentage", "Submissions", "Last submitted at"}

// exportRow возвращает ячейки строки; для неоцененных респондентов оценки пустые
func exportRow(s service.RespondentSummary) []interface{} {
	var correct, pct interface{} = "", ""
	if s.Scored {
		correct = s.CorrectCount
		pct = s.Percentage
	}
	return []interface{}{
		sanitizeForExcel(s.DisplayName),
		correct,
		s.TotalQuestions,
		pct,
		s.Submissions,
		s.LastSubmittedAt.UTC().Format("2006-01-02 15:04:05"),
	}
}

// exportCSV экспортирует сводки в CSV с правильным экранированием спецсимволов
func exportCSV(c *gin.Context, results *service.SetResults, filename string) {
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s.csv\"", filename))

	// BOM для корректного отображения UTF-8 в Excel
	c.Writer.Write([]byte{0xEF, 0xBB, 0xBF})

	writer := csv.NewWriter(c.Writer)
	defer writer.Flush()

	writer.Write(exportHeaders)
	for _, s := range results.Summaries {
		row := exportRow(s)
		record := make([]string, len(row))
		for i, v := range row {
			switch val := v.(type) {
			case string:
				record[i] = val
			case int:
				record[i] = strconv.Itoa(val)
			case float64:
				record[i] = strconv.FormatFloat(val, 'f', 2, 64)
			default:
				record[i] = fmt.Sprint(val)
			}
		}
		writer.Write(record)
	}
}

// exportXLSX экспортирует сводки в Excel с использованием StreamWriter
func exportXLSX(c *gin.Context, results *service.SetResults, filename string) {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Results"
	f.SetSheetName("Sheet1", sheetName)

	sw, err := f.NewStreamWriter(sheetName)
	if err != nil {
		log.Printf("[AnswerHandler] Ошибка создания StreamWriter: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create Excel file"})
		return
	}

	headers := make([]interface{}, len(exportHeaders))
	for i, h := range exportHeaders {
		headers[i] = h
	}
	if err := sw.SetRow("A1", headers); err != nil {
		log.Printf("[AnswerHandler] Ошибка записи заголовков: %v", err)
	}

	for i, s := range results.Summaries {
		rowNum := i + 2
		if err := sw.SetRow(fmt.Sprintf("A%d", rowNum), exportRow(s)); err != nil {
			log.Printf("[AnswerHandler] Ошибка записи строки %d: %v", rowNum, err)
		}
	}

	if err := sw.Flush(); err != nil {
		log.Printf("[AnswerHandler] Ошибка при Flush: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create Excel file"})
		return
	}

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s.xlsx\"", filename))
	if err := f.Write(c.Writer); err != nil {
		log.Printf("[AnswerHandler] Ошибка записи Excel в response: %v", err)
	}
}

// sanitizeForExcel экранирует данные для защиты от formula injection в Excel/CSV
func sanitizeForExcel(s string) string {
	if len(s) == 0 {
		return s
	}
	// Символы, начинающие формулу в Excel/LibreOffice: = + - @ \t \r
	if s[0] == '=' || s[0] == '+' || s[0] == '-' || s[0] == '@' || s[0] == '\t' || s[0] == '\r' {
		return "'" + s
	}
	return s
}
