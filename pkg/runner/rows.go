package runner

import (
	"context"
	"fmt"
)

// extractRowsScript returns the first three cells of every table row with
// at least three cells, across all tables, in document order.
const extractRowsScript = `(function() {
  var toReturn = [];
  var tables = document.getElementsByTagName('table');
  for (var i = 0; i < tables.length; i++) {
    for (var rowCount = 0; rowCount < tables[i].rows.length; rowCount++) {
      var cells = tables[i].rows[rowCount].cells;
      if (cells.length < 3) {
        continue;
      }
      toReturn.push([cells[0].textContent.trim(), cells[1].textContent.trim(), cells[2].textContent.trim()]);
    }
  }
  return toReturn;
})()`

// Row is one command row as found on the page.
type Row struct {
	Command string `json:"command"`
	Locator string `json:"locator"`
	Value   string `json:"value"`
}

func (r Row) String() string {
	return fmt.Sprintf("|%s | %s | %s |", r.Command, r.Locator, r.Value)
}

// ExtractRows runs the extraction script in the page and decodes its
// result. A row with fewer than three cells means the script broke its
// contract and is reported as an error.
func ExtractRows(ctx context.Context, driver Driver) ([]Row, error) {
	var raw [][]string
	if err := driver.Evaluate(ctx, extractRowsScript, &raw); err != nil {
		return nil, fmt.Errorf("failed to evaluate row extraction script: %w", err)
	}

	rows := make([]Row, 0, len(raw))
	for i, cells := range raw {
		if len(cells) < 3 {
			return nil, fmt.Errorf("extracted row %d has %d cells, expected 3", i, len(cells))
		}
		rows = append(rows, Row{
			Command: cells[0],
			Locator: cells[1],
			Value:   cells[2],
		})
	}

	return rows, nil
}
