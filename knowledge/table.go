package knowledge

import (
	"encoding/csv"
	"errors"
	"io"
	"strings"
)

// Entry is one question/answer pair from the reference table.
type Entry struct {
	// Row is the entry's position among the table's data rows.
	Row      int
	Question string
	Answer   string
}

// ParseTable reads question/answer pairs from CSV data.
// A header row naming "question" and "answer" selects the columns; without
// one the first two columns are used. Malformed rows, short rows and rows
// with an empty question are skipped and counted.
func ParseTable(r io.Reader) (entries []Entry, skipped int, err error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	questionCol, answerCol := 0, 1
	first := true
	for {
		record, readErr := reader.Read()
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			var parseErr *csv.ParseError
			if errors.As(readErr, &parseErr) {
				skipped++
				continue
			}
			return entries, skipped, readErr
		}

		if first {
			first = false
			if q, a, ok := headerColumns(record); ok {
				questionCol, answerCol = q, a
				continue
			}
		}

		if len(record) <= questionCol || len(record) <= answerCol {
			skipped++
			continue
		}
		question := strings.TrimSpace(record[questionCol])
		if question == "" {
			skipped++
			continue
		}
		entries = append(entries, Entry{
			Row:      len(entries),
			Question: question,
			Answer:   strings.TrimSpace(record[answerCol]),
		})
	}
	return entries, skipped, nil
}

// headerColumns locates the question and answer columns of a header row.
func headerColumns(record []string) (question, answer int, ok bool) {
	question, answer = -1, -1
	for i, field := range record {
		switch strings.ToLower(strings.TrimSpace(field)) {
		case "question":
			question = i
		case "answer":
			answer = i
		}
	}
	return question, answer, question >= 0 && answer >= 0
}
