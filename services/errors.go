package services

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoModel is returned when the service is built without a regressor.
var ErrNoModel = errors.New("services: no regressor configured")

// MissingColumnError reports a table whose header lacks required columns.
// The whole request fails; no row can be parsed without them.
type MissingColumnError struct {
	Columns []string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("services: input is missing required columns: %s", strings.Join(e.Columns, ", "))
}
