package outputhandler

import (
	"encoding/json"
	"errors"
	"io"

	"github.com/venslabs/depaudit/pkg/api/types"
)

// NewJSONOutputHandler writes the result as indented JSON.
func NewJSONOutputHandler(w io.Writer) OutputHandler { return &jsonOutputHandler{w: w} }

type jsonOutputHandler struct {
	w io.Writer
	r *types.ScanResult
}

func (h *jsonOutputHandler) HandleResult(r *types.ScanResult) error {
	if h.r != nil {
		return errors.New("json output takes a single result")
	}
	h.r = r
	return nil
}

func (h *jsonOutputHandler) Close() error {
	if h.r == nil {
		return nil
	}
	enc := json.NewEncoder(h.w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(h.r)
}
