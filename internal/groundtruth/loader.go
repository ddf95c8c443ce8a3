// Package groundtruth loads the labelled reference files that predictions
// are scored against. Each case is one JSON document named after its case id.
package groundtruth

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/spboyer/faeval/internal/models"
	"github.com/spf13/afero"
)

const (
	agentField = "mistake_agent"
	stepField  = "mistake_step"
)

// Loader reads reference files from a data directory. It uses an afero.Fs
// so tests can run against an in-memory filesystem.
type Loader struct {
	fs      afero.Fs
	dataDir string
}

// NewLoader creates a Loader reading from dataDir on fsys.
func NewLoader(fsys afero.Fs, dataDir string) *Loader {
	return &Loader{fs: fsys, dataDir: dataDir}
}

// Path returns the reference file path for caseID.
func (l *Loader) Path(caseID string) string {
	return filepath.Join(l.dataDir, caseID)
}

// Lookup loads the ground truth for caseID from the data directory.
func (l *Loader) Lookup(caseID string) (models.GroundTruthRecord, error) {
	return l.Load(l.Path(caseID))
}

// Load reads the reference document at path and extracts the mistake agent
// and step. The step is returned as text whatever its JSON type. Failures are
// *models.EvalError values of kind not_found, io_failure, parse_failure or
// missing_field.
func (l *Loader) Load(path string) (models.GroundTruthRecord, error) {
	data, err := l.read(path)
	if err != nil {
		return models.GroundTruthRecord{}, err
	}

	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return models.GroundTruthRecord{}, &models.EvalError{
			Kind: models.KindParseFailure, Path: path, Err: fmt.Errorf("decoding JSON: %w", err),
		}
	}
	if err := validateRecord(doc); err != nil {
		return models.GroundTruthRecord{}, &models.EvalError{
			Kind: models.KindParseFailure, Path: path, Err: fmt.Errorf("invalid reference document: %w", err),
		}
	}

	// The schema guarantees an object.
	obj := doc.(map[string]any)

	agent, agentOK := textValue(obj[agentField])
	step, stepOK := textValue(obj[stepField])
	if !agentOK || !stepOK {
		var missing []string
		if !agentOK {
			missing = append(missing, agentField)
		}
		if !stepOK {
			missing = append(missing, stepField)
		}
		return models.GroundTruthRecord{}, &models.EvalError{
			Kind: models.KindMissingField,
			Path: path,
			Err:  fmt.Errorf("missing or null %s", strings.Join(missing, ", ")),
		}
	}

	return models.GroundTruthRecord{
		CaseID:      filepath.Base(path),
		ActualAgent: agent,
		ActualStep:  step,
	}, nil
}

func (l *Loader) read(path string) ([]byte, error) {
	f, err := l.fs.Open(path)
	if err != nil {
		return nil, &models.EvalError{Kind: openKind(err), Path: path, Err: err}
	}
	defer f.Close() //nolint:errcheck

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, &models.EvalError{Kind: models.KindIOFailure, Path: path, Err: err}
	}
	return data, nil
}

// References returns the sorted names of the .json files directly inside the
// data directory. A missing data directory, or a path that is not a
// directory, is not_found; a directory that cannot be listed is io_failure.
func (l *Loader) References() ([]string, error) {
	info, err := l.fs.Stat(l.dataDir)
	if err != nil {
		return nil, &models.EvalError{Kind: openKind(err), Path: l.dataDir, Err: err}
	}
	if !info.IsDir() {
		return nil, &models.EvalError{Kind: models.KindNotFound, Path: l.dataDir, Err: errors.New("not a directory")}
	}

	entries, err := afero.ReadDir(l.fs, l.dataDir)
	if err != nil {
		return nil, &models.EvalError{Kind: models.KindIOFailure, Path: l.dataDir, Err: err}
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		names = append(names, e.Name())
	}
	return names, nil
}

// textValue renders a decoded JSON scalar as text. Null and absent values
// report false.
func textValue(v any) (string, bool) {
	switch val := v.(type) {
	case nil:
		return "", false
	case string:
		return val, true
	case json.Number:
		return val.String(), true
	default:
		return fmt.Sprint(val), true
	}
}

func openKind(err error) models.ErrorKind {
	if errors.Is(err, fs.ErrNotExist) {
		return models.KindNotFound
	}
	return models.KindIOFailure
}
