package xlsexport

import (
	"bytes"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"

	interviewapimodels "visa-interview-backend/models/api/interview"
)

type Provider interface {
	ExportInterviewReport(report interviewapimodels.Report) (*bytes.Buffer, error)
}

var Instance Provider

func NewHandler() {
	Instance = impl{}
}

type impl struct{}

var transcriptHeaders = []string{"№", "Вопрос", "Ответ"}
var analysisHeaders = []string{"Раздел", "Содержание"}

func (i impl) ExportInterviewReport(report interviewapimodels.Report) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			log.WithError(err).Error("ошибка закрытия файла")
		}
	}()
	sheet := "Sheet1"
	row := 0
	row, err := writeHeader(f, sheet, row, transcriptHeaders)
	if err != nil {
		return nil, errors.Wrap(err, "ошибка формирования заголовка в xlsx")
	}
	if len(report.QA) != 0 {
		row, err = writeTranscriptData(f, sheet, report.QA, row)
		if err != nil {
			return nil, errors.Wrap(err, "ошибка формирования таблицы с данными в xlsx")
		}
	}
	f.SetSheetName(sheet, "Вопросы и ответы")

	analysisSheet := "Оценка"
	if _, err = f.NewSheet(analysisSheet); err != nil {
		return nil, errors.Wrap(err, "ошибка создания листа с оценкой в xlsx")
	}
	row = 0
	row, err = writeHeader(f, analysisSheet, row, analysisHeaders)
	if err != nil {
		return nil, errors.Wrap(err, "ошибка формирования заголовка в xlsx")
	}
	if _, err = writeAnalysisData(f, analysisSheet, report.Analysis, row); err != nil {
		return nil, errors.Wrap(err, "ошибка формирования таблицы с оценкой в xlsx")
	}
	return f.WriteToBuffer()
}

func writeTranscriptData(f *excelize.File, sheet string, list []interviewapimodels.QA, row int) (int, error) {
	if err := applyDataCellStyle(f, sheet, 1, row+1, len(transcriptHeaders), len(list)+1); err != nil {
		return row, err
	}
	for idx, item := range list {
		row++
		// "№"
		col := 1
		if err := writeColumn(f, sheet, col, row, idx+1); err != nil {
			return row, err
		}

		// "Вопрос"
		col++
		if err := writeColumn(f, sheet, col, row, item.Question); err != nil {
			return row, err
		}

		// "Ответ"
		col++
		if err := writeColumn(f, sheet, col, row, item.Answer); err != nil {
			return row, err
		}
	}
	return row, nil
}

func writeAnalysisData(f *excelize.File, sheet string, analysis interviewapimodels.Analysis, row int) (int, error) {
	sections := []struct {
		name  string
		value string
	}{
		{"Сильные стороны", strings.Join(analysis.Strengths, "\r")},
		{"Слабые стороны", strings.Join(analysis.Weaknesses, "\r")},
		{"Рекомендации", strings.Join(analysis.Recommendations, "\r")},
		{"Общая оценка", analysis.OverallAssessment},
	}
	if err := applyDataCellStyle(f, sheet, 1, row+1, len(analysisHeaders), len(sections)+1); err != nil {
		return row, err
	}
	for _, section := range sections {
		row++
		col := 1
		if err := writeColumn(f, sheet, col, row, section.name); err != nil {
			return row, err
		}
		col++
		if err := writeColumn(f, sheet, col, row, section.value); err != nil {
			return row, err
		}
	}
	return row, nil
}
