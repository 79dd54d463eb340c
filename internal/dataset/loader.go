// Package dataset loads the customer master workbook that gives the
// recommendation service per-customer context.
package dataset

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

type Customer struct {
	ID           int64
	Name         string
	Segment      string
	Plan         string
	OpenBalance  float64
	MonthsActive int
}

// Book is the in-memory customer master, keyed by customer id.
type Book struct {
	byID map[int64]Customer
}

// Load reads the first sheet of an xlsx workbook, auto-detecting columns by
// header heuristics. Rows without a numeric customer id are skipped quietly.
func Load(path string) (*Book, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	if len(rows) <= 1 {
		return nil, fmt.Errorf("no data rows")
	}

	idIdx, nameIdx, segmentIdx, planIdx, balanceIdx, monthsIdx := -1, -1, -1, -1, -1, -1
	for i, h := range rows[0] {
		l := strings.ToLower(strings.TrimSpace(h))
		switch {
		case strings.Contains(l, "customer") && strings.Contains(l, "id") || l == "id":
			if idIdx == -1 {
				idIdx = i
			}
		case strings.Contains(l, "name"):
			if nameIdx == -1 {
				nameIdx = i
			}
		case strings.Contains(l, "segment") || strings.Contains(l, "tier"):
			segmentIdx = i
		case strings.Contains(l, "plan") || strings.Contains(l, "product"):
			planIdx = i
		case strings.Contains(l, "balance") || strings.Contains(l, "outstanding"):
			balanceIdx = i
		case strings.Contains(l, "month") || strings.Contains(l, "vintage"):
			monthsIdx = i
		}
	}
	if idIdx == -1 {
		idIdx = 0
	}

	book := &Book{byID: make(map[int64]Customer)}
	for i, r := range rows {
		if i == 0 {
			continue
		}
		c := Customer{}
		if idIdx < len(r) {
			c.ID, _ = strconv.ParseInt(strings.TrimSpace(r[idIdx]), 10, 64)
		}
		if c.ID == 0 {
			continue
		}
		if nameIdx >= 0 && nameIdx < len(r) {
			c.Name = strings.TrimSpace(r[nameIdx])
		}
		if segmentIdx >= 0 && segmentIdx < len(r) {
			c.Segment = strings.TrimSpace(r[segmentIdx])
		}
		if planIdx >= 0 && planIdx < len(r) {
			c.Plan = strings.TrimSpace(r[planIdx])
		}
		if balanceIdx >= 0 && balanceIdx < len(r) {
			c.OpenBalance, _ = strconv.ParseFloat(strings.TrimSpace(r[balanceIdx]), 64)
		}
		if monthsIdx >= 0 && monthsIdx < len(r) {
			c.MonthsActive, _ = strconv.Atoi(strings.TrimSpace(r[monthsIdx]))
		}
		book.byID[c.ID] = c
	}
	return book, nil
}

// Empty returns a book with no customers, used when no workbook is configured.
func Empty() *Book {
	return &Book{byID: make(map[int64]Customer)}
}

func (b *Book) Lookup(id int64) (Customer, bool) {
	c, ok := b.byID[id]
	return c, ok
}

func (b *Book) Size() int {
	return len(b.byID)
}
