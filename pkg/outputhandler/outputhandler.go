// Package outputhandler renders scan results.
package outputhandler

import (
	"fmt"
	"io"
	"os"

	"github.com/venslabs/depaudit/pkg/api/types"
)

const (
	FormatJSON         = "json"
	FormatTable        = "table"
	FormatCycloneDXVEX = "cyclonedxvex"
)

var Formats = []string{FormatJSON, FormatTable, FormatCycloneDXVEX}

// OutputHandler accumulates results and writes them on Close.
type OutputHandler interface {
	HandleResult(*types.ScanResult) error
	Close() error
}

// New returns the OutputHandler of format writing to w (stdout if nil).
func New(format string, w io.Writer) (OutputHandler, error) {
	if w == nil {
		w = os.Stdout
	}
	switch format {
	case "", FormatJSON:
		return NewJSONOutputHandler(w), nil
	case FormatTable:
		return NewTableOutputHandler(w), nil
	case FormatCycloneDXVEX:
		return NewCycloneDxVexOutputHandler(w), nil
	default:
		return nil, fmt.Errorf("unknown output format %q (valid values: %v)", format, Formats)
	}
}
