package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"

	"github.com/relplan/relplan/internal/errors"
	"github.com/relplan/relplan/internal/manifest"
)

// Format is an output format of the report.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatCSV  Format = "csv"
	FormatText Format = "text"
)

// Formats lists every supported format.
var Formats = []Format{FormatJSON, FormatYAML, FormatCSV, FormatText}

// ParseFormat parses a format name. An empty name selects JSON.
func ParseFormat(str string) (Format, error) {
	if str == "" {
		return FormatJSON, nil
	}

	for _, format := range Formats {
		if string(format) == strings.ToLower(str) {
			return format, nil
		}
	}

	return "", errors.New(InvalidFormatError(str))
}

// InvalidFormatError is returned for an unknown output format.
type InvalidFormatError string

func (err InvalidFormatError) Error() string {
	return fmt.Sprintf("unsupported report format %q", string(err))
}

func (InvalidFormatError) Kind() errors.Kind {
	return errors.KindConfig
}

// SchemaValidationError is returned when a document does not satisfy the report schema.
type SchemaValidationError struct {
	Problems []string
}

func (err SchemaValidationError) Error() string {
	return "report does not match schema:\n  " + strings.Join(err.Problems, "\n  ")
}

// Write renders the report in the given format.
func (report *WorkspaceReport) Write(w io.Writer, format Format, colorizer *Colorizer) error {
	switch format {
	case FormatYAML:
		return report.WriteYAML(w)
	case FormatCSV:
		return report.WriteCSV(w)
	case FormatText:
		return report.WriteSummary(w, colorizer)
	case FormatJSON, "":
		return report.WriteJSON(w)
	}

	return errors.New(InvalidFormatError(format))
}

// WriteJSON writes the report as indented JSON.
func (report *WorkspaceReport) WriteJSON(w io.Writer) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return errors.New(err)
	}

	data = append(data, '\n')

	if _, err := w.Write(data); err != nil {
		return errors.New(err)
	}

	return nil
}

// WriteYAML writes the report as YAML.
func (report *WorkspaceReport) WriteYAML(w io.Writer) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2) //nolint:mnd

	if err := encoder.Encode(report); err != nil {
		return errors.New(err)
	}

	if err := encoder.Close(); err != nil {
		return errors.New(err)
	}

	return nil
}

var csvHeader = []string{
	"Package",
	"Path",
	"Workspace",
	"Version",
	"Changed",
	"Channel",
	"Status",
	"AlreadyPublished",
	"ShouldPublish",
	"ErrorKind",
}

// WriteCSV writes one row per package and channel. Packages without decisions get a single row with an empty
// channel.
func (report *WorkspaceReport) WriteCSV(w io.Writer) error {
	csvWriter := csv.NewWriter(w)

	if err := csvWriter.Write(csvHeader); err != nil {
		return errors.New(err)
	}

	for _, pkg := range report.Packages {
		version := pkg.Version
		if version == "" {
			version = pkg.DeclaredVersion
		}

		base := []string{pkg.Name, pkg.Path, pkg.Workspace, version, strconv.FormatBool(pkg.Changed)}

		if len(pkg.Decisions) == 0 {
			if err := csvWriter.Write(append(base, "", "", "", strconv.FormatBool(pkg.ShouldPublish), "")); err != nil {
				return errors.New(err)
			}

			continue
		}

		for _, channel := range manifest.AllChannels {
			decision, ok := pkg.Decisions[channel]
			if !ok {
				continue
			}

			alreadyPublished := ""
			if decision.AlreadyPublished != nil {
				alreadyPublished = strconv.FormatBool(*decision.AlreadyPublished)
			}

			errorKind := ""
			if decision.Error != nil {
				errorKind = decision.Error.Kind
			}

			row := append(base[:len(base):len(base)],
				string(channel),
				decision.Status,
				alreadyPublished,
				strconv.FormatBool(decision.ShouldPublish),
				errorKind,
			)

			if err := csvWriter.Write(row); err != nil {
				return errors.New(err)
			}
		}
	}

	csvWriter.Flush()

	if err := csvWriter.Error(); err != nil {
		return errors.New(err)
	}

	return nil
}

// WriteToFile renders the report into path. The file is replaced atomically, so readers never observe a
// partially written report.
func (report *WorkspaceReport) WriteToFile(path string, format Format, colorizer *Colorizer) error {
	dir := filepath.Dir(path)

	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return errors.New(err)
	}

	tmpFile, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return errors.New(err)
	}

	tmpName := tmpFile.Name()

	defer func() {
		_ = os.Remove(tmpName)
	}()

	if err := report.Write(tmpFile, format, colorizer); err != nil {
		_ = tmpFile.Close()
		return err
	}

	if err := tmpFile.Close(); err != nil {
		return errors.New(err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		return errors.New(err)
	}

	return nil
}

// ParseJSON decodes a JSON report. Unknown fields are ignored.
func ParseJSON(data []byte) (*WorkspaceReport, error) {
	report := &WorkspaceReport{}

	if err := json.Unmarshal(data, report); err != nil {
		return nil, errors.New(err)
	}

	return report, nil
}

// ValidateJSON validates a JSON document against the report schema.
func ValidateJSON(data []byte) error {
	schemaData, err := json.Marshal(Schema())
	if err != nil {
		return errors.New(err)
	}

	result, err := gojsonschema.Validate(gojsonschema.NewBytesLoader(schemaData), gojsonschema.NewBytesLoader(data))
	if err != nil {
		return errors.New(err)
	}

	if result.Valid() {
		return nil
	}

	problems := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		problems = append(problems, desc.String())
	}

	return errors.New(SchemaValidationError{Problems: problems})
}

// Schema returns the JSON schema of the report.
func Schema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		DoNotReference:            true,
		AllowAdditionalProperties: true,
	}

	schema := reflector.Reflect(&WorkspaceReport{})
	schema.Version = ""
	schema.ID = "https://relplan.dev/schemas/report/v" + SchemaVersion
	schema.Title = "relplan report"
	schema.Description = "Release decisions for every package of a repository"

	return schema
}

// WriteSchema writes the JSON schema of the report.
func WriteSchema(w io.Writer) error {
	var buf bytes.Buffer

	encoder := json.NewEncoder(&buf)
	encoder.SetIndent("", "  ")

	if err := encoder.Encode(Schema()); err != nil {
		return errors.New(err)
	}

	if _, err := w.Write(buf.Bytes()); err != nil {
		return errors.New(err)
	}

	return nil
}
