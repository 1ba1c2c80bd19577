package report

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"go-query-coordinator/internal/model"
	"go-query-coordinator/pkg/utils"
)

type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

var ErrUnknownFormat = errors.New("unknown report format")

func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatCSV:
		return FormatCSV, nil
	case FormatJSON, "":
		return FormatJSON, nil
	}
	return "", errors.Wrapf(ErrUnknownFormat, "%q", s)
}

func (f Format) ContentType() string {
	if f == FormatCSV {
		return "text/csv"
	}
	return "application/json"
}

// Report is a point-in-time view of the registry plus the advisor output.
type Report struct {
	GeneratedAt time.Time                       `json:"generated_at"`
	Metrics     []model.QueryPerformanceMetrics `json:"metrics"`
	Advice      []model.AdvisorReport           `json:"advice"`
}

// Build orders snapshot by query type.
func Build(snapshot map[model.QueryType]model.QueryPerformanceMetrics, advice []model.AdvisorReport, now time.Time) Report {
	r := Report{GeneratedAt: now.UTC(), Metrics: []model.QueryPerformanceMetrics{}, Advice: advice}
	for _, t := range model.AllQueryTypes() {
		if m, ok := snapshot[t]; ok {
			r.Metrics = append(r.Metrics, m)
		}
	}
	if r.Advice == nil {
		r.Advice = []model.AdvisorReport{}
	}
	return r
}

var csvHeader = []string{
	"query_type",
	"average_execution_ms",
	"total_executions",
	"cache_hit_rate",
	"slow_queries",
	"index_efficiency",
	"last_executed_at",
	"recommendations",
}

// WriteCSV writes one row per query type with metrics. Recommendations for the
// type are joined with "; ".
func WriteCSV(w io.Writer, r Report) error {
	recommendations := make(map[model.QueryType][]string, len(r.Advice))
	for _, a := range r.Advice {
		recommendations[a.QueryType] = a.Recommendations
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return errors.WithStack(err)
	}
	for _, m := range r.Metrics {
		lastExecuted := ""
		if !m.LastExecutedAt.IsZero() {
			lastExecuted = m.LastExecutedAt.UTC().Format(time.RFC3339)
		}
		row := []string{
			m.QueryType.String(),
			strconv.FormatFloat(m.AverageExecutionTime, 'f', 3, 64),
			strconv.FormatInt(m.TotalExecutions, 10),
			strconv.FormatFloat(m.CacheHitRate, 'f', 4, 64),
			strconv.FormatInt(m.SlowQueries, 10),
			strconv.FormatFloat(m.IndexEfficiency, 'f', 4, 64),
			lastExecuted,
			strings.Join(recommendations[m.QueryType], "; "),
		}
		if err := cw.Write(row); err != nil {
			return errors.WithStack(err)
		}
	}
	cw.Flush()
	return errors.WithStack(cw.Error())
}

func WriteJSON(w io.Writer, r Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return errors.WithStack(enc.Encode(r))
}

func Write(w io.Writer, format Format, r Report) error {
	if format == FormatCSV {
		return WriteCSV(w, r)
	}
	return WriteJSON(w, r)
}

// Exporter writes reports to files under a base directory.
type Exporter struct {
	output *utils.OutputManager
}

func NewExporter(dir string) *Exporter {
	return &Exporter{output: utils.NewOutputManager(dir)}
}

// Export writes r to <dir>/<runID>/metrics.<format> and returns the path.
func (e *Exporter) Export(runID string, format Format, r Report) (string, error) {
	fileName := "metrics." + string(format)
	if e.output.FileType(fileName) == "unknown" {
		return "", errors.Wrapf(ErrUnknownFormat, "%q", format)
	}
	path, err := e.output.FilePath(runID, fileName)
	if err != nil {
		return "", errors.WithStack(err)
	}

	f, err := os.Create(path)
	if err != nil {
		return "", errors.Wrapf(err, "creating %s", path)
	}
	if err := Write(f, format, r); err != nil {
		f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", errors.WithStack(err)
	}
	return path, nil
}
