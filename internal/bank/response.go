package bank

import (
	"bytes"
	"encoding/csv"
	"io"
	"strings"

	ierr "github.com/agensuite/cobranza/internal/errors"
)

// Response row results as they appear in bank files
const (
	ResultApproved = "APPROVED"
	ResultRejected = "REJECTED"
)

// ResponseRow is one parsed row of an inbound bank response file
type ResponseRow struct {
	AttemptID string
	Result    string
	Detail    string
}

// Approved reports whether the bank settled the attempt
func (r ResponseRow) Approved() bool {
	return r.Result == ResultApproved
}

// ParseResponseFile parses the bank's CSV response format:
// attempt_id,result,detail. Malformed rows are returned separately as a
// count so one bad record cannot abort the import; the caller records them
// as error_rows.
func ParseResponseFile(content []byte) ([]ResponseRow, int, error) {
	reader := csv.NewReader(bytes.NewReader(content))
	reader.FieldsPerRecord = -1

	var rows []ResponseRow
	malformed := 0

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			malformed++
			continue
		}
		if len(record) == 0 || (len(record) == 1 && strings.TrimSpace(record[0]) == "") {
			continue
		}
		if len(record) < 2 {
			malformed++
			continue
		}

		row := ResponseRow{
			AttemptID: strings.TrimSpace(record[0]),
			Result:    strings.ToUpper(strings.TrimSpace(record[1])),
		}
		if len(record) > 2 {
			row.Detail = strings.TrimSpace(record[2])
		}

		if row.AttemptID == "" || (row.Result != ResultApproved && row.Result != ResultRejected) {
			malformed++
			continue
		}
		rows = append(rows, row)
	}

	if len(rows) == 0 && malformed == 0 {
		return nil, 0, ierr.NewError("empty response file").
			WithHint("The response file contains no rows").
			Mark(ierr.ErrValidation)
	}
	return rows, malformed, nil
}
