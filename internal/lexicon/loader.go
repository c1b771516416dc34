package lexicon

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Load reads a catalog file. ".xlsx" workbooks are read sheet by sheet with the
// canonical name in the first column and aliases in the following columns;
// anything else is read as a line-oriented text catalog.
func Load(path string) (*Lexicon, error) {
	var (
		lines []string
		err   error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		lines, err = readWorkbook(path)
	default:
		lines, err = readTextFile(path)
	}
	if err != nil {
		return nil, err
	}
	lex := Build(lines)
	lex.source = path
	return lex, nil
}

func readTextFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open lexicon: %w", err)
	}
	defer f.Close()
	return ReadLines(f)
}

// ReadLines splits a text catalog into raw lines.
func ReadLines(r io.Reader) ([]string, error) {
	var lines []string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		lines = append(lines, strings.TrimPrefix(sc.Text(), "\ufeff"))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read lexicon: %w", err)
	}
	return lines, nil
}

func readWorkbook(path string) ([]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open Excel lexicon: %w", err)
	}
	defer f.Close()

	var lines []string
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("get rows for sheet %q: %w", sheet, err)
		}
		for _, row := range rows {
			cells := make([]string, 0, len(row))
			for _, c := range row {
				if c = strings.TrimSpace(c); c != "" {
					cells = append(cells, c)
				}
			}
			if len(cells) == 0 || strings.EqualFold(cells[0], "canonical") {
				continue
			}
			lines = append(lines, strings.Join(cells, " | "))
		}
	}
	return lines, nil
}
