package pdfexport

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/go-pdf/fpdf"
	"github.com/pkg/errors"

	interviewapimodels "visa-interview-backend/models/api/interview"
)

// GenerateInterviewReport формирует pdf отчет по завершенному интервью:
// расшифровка вопросов с ответами и итоговая оценка
func GenerateInterviewReport(report interviewapimodels.Report) (pdfFile []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("GenerateInterviewReport panic recover: %v", r)
		}
	}()
	pdf := fpdf.New("P", "mm", "A4", "static/font/")
	pdf.AddPage()
	pdf.AddUTF8Font("Arial", "", "Arial.ttf")
	pdf.AddUTF8Font("Arial", "B", "Arial Bold.ttf")
	pdf.AddUTF8Font("Arial", "I", "Arial Italic.ttf")
	pdf.SetFont("Arial", "", 12)
	if pdf.Error() != nil {
		return nil, pdf.Error()
	}

	_, lineHt := pdf.GetFontSize()
	html := pdf.HTMLBasicNew()
	html.Write(lineHt, fmt.Sprintf("<b>Отчет по визовому интервью</b><br>Сессия: %s<br><br>", template.HTMLEscapeString(report.SessionID)))

	html.Write(lineHt, "<b>Вопросы и ответы</b><br>")
	for idx, qa := range report.QA {
		htmlStr := fmt.Sprintf("<b>%v. %s</b><br>%s<br><br>",
			idx+1,
			template.HTMLEscapeString(qa.Question),
			template.HTMLEscapeString(qa.Answer))
		html.Write(lineHt, htmlStr)
	}

	html.Write(lineHt, "<br><b>Оценка кандидата</b><br>")
	writeSection(html, lineHt, "Сильные стороны", report.Analysis.Strengths)
	writeSection(html, lineHt, "Слабые стороны", report.Analysis.Weaknesses)
	writeSection(html, lineHt, "Рекомендации", report.Analysis.Recommendations)
	html.Write(lineHt, fmt.Sprintf("<b>Общая оценка</b><br>%s<br>",
		template.HTMLEscapeString(report.Analysis.OverallAssessment)))

	buf := new(bytes.Buffer)
	err = pdf.Output(buf)
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeSection(html fpdf.HTMLBasicType, lineHt float64, title string, items []string) {
	escaped := make([]string, 0, len(items))
	for _, item := range items {
		escaped = append(escaped, "- "+template.HTMLEscapeString(item))
	}
	html.Write(lineHt, fmt.Sprintf("<b>%s</b><br>%s<br><br>", title, strings.Join(escaped, "<br>")))
}
