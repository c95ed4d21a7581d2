// Package modelbuilder renders the Agora cost-model document a subgraph's
// mined query logs produce, using text/template the same way the rest of
// this codebase renders text from structured data.
package modelbuilder

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"text/template"

	"github.com/semiotic-ai/autoagora-go/internal/costmodel"
	"github.com/semiotic-ai/autoagora-go/internal/logsdb"
	"github.com/semiotic-ai/autoagora-go/internal/subgraphid"
)

// agoraEntryTemplate is the Agora document layout: a header comment, an
// optional manual fragment, one priced line per mined query skeleton, and a
// default-cost fallback line.
const agoraEntryTemplate = `# Generated by AutoAgora {{.Version}}
{{if .ManualEntry}}
{{.ManualEntry}}
{{end}}
{{range .Queries}}
# count:        {{.Count}}
# min time:     {{.MinTimeMs}}
# max time:     {{.MaxTimeMs}}
# avg time:     {{.AvgTimeMs}}
# stddev time:  {{.StddevTimeMs}}
{{.Query}} => {{.AvgTimeMs}} * $GLOBAL_COST_MULTIPLIER;
{{end}}
default => $DEFAULT_COST * $GLOBAL_COST_MULTIPLIER;`

var parsedTemplate = template.Must(template.New("agora").Parse(agoraEntryTemplate))

// Version is stamped into every generated document's header comment.
var Version = "dev"

type templateData struct {
	Version     string
	ManualEntry string
	Queries     []logsdb.QueryStats
}

// Build renders the Agora document for subgraph from its mined query
// statistics (most-frequent first; callers pass mrq-sourced rows the same
// way). manualEntry is the contents of <subgraph>.agora if one exists, or
// empty.
func Build(manualEntry string, queries []logsdb.QueryStats) (costmodel.Text, error) {
	var buf bytes.Buffer
	data := templateData{Version: Version, ManualEntry: manualEntry, Queries: queries}
	if err := parsedTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("modelbuilder: rendering template: %w", err)
	}
	return costmodel.Text(buf.String()), nil
}

// BuildDefault renders the bare default-cost document an allocation
// supervisor seeds every freshly-allocated subgraph with, before any query
// logs or manual fragment exist.
func BuildDefault() costmodel.Text {
	text, err := Build("", nil)
	if err != nil {
		// The template is a compile-time constant; rendering it with no
		// data can only fail if that constant is broken.
		panic(fmt.Sprintf("modelbuilder: default template failed to render: %v", err))
	}
	return text
}

// ManualEntry reads <manualEntryPath>/<subgraph base58>.agora, returning
// ("", false, nil) if manualEntryPath is empty, the file is absent, or it
// is empty — all three are treated as the same "no manual entry" case.
func ManualEntry(manualEntryPath string, subgraph subgraphid.ID) (string, bool, error) {
	if manualEntryPath == "" {
		return "", false, nil
	}
	path := filepath.Join(manualEntryPath, subgraph.Base58()+".agora")
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("modelbuilder: reading manual entry %s: %w", path, err)
	}
	if len(content) == 0 {
		return "", false, nil
	}
	return string(content), true, nil
}
