package output

import (
	"encoding/json"

	"github.com/gramsift/gramsift/internal/core"
)

// JSONFormatter renders results as JSON.
type JSONFormatter struct {
	Indent bool
}

func (f *JSONFormatter) marshal(v any) (string, error) {
	var (
		data []byte
		err  error
	)

	if f.Indent {
		data, err = json.MarshalIndent(v, "", "  ")
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return "", err
	}

	return string(data), nil
}

// FormatReport renders a session report as JSON.
func (f *JSONFormatter) FormatReport(report *core.SessionReport) (string, error) {
	if report == nil {
		return "", nil
	}
	return f.marshal(report)
}

// FormatSearch renders search hits as JSON.
func (f *JSONFormatter) FormatSearch(rows []SearchRow) (string, error) {
	if rows == nil {
		rows = []SearchRow{}
	}
	return f.marshal(rows)
}

// FormatStats renders stats as JSON.
func (f *JSONFormatter) FormatStats(stats *StatsView) (string, error) {
	if stats == nil {
		return "", nil
	}
	return f.marshal(stats)
}
