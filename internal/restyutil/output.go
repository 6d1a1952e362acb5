package restyutil

import (
	"catalogmatch/internal/components/assert"
	"catalogmatch/internal/components/telemetry"
	"fmt"
	"os"
	"path/filepath"
)

const report_filesystem_output_write = "filesystem-output.write"

// FilesystemOutput writes every dumped exchange to its own file in a directory.
type FilesystemOutput struct {
	directory string
	tel       telemetry.API
}

// NewFilesystemOutput empties dir (creating it if needed) and writes dumps into it.
func NewFilesystemOutput(dir string, tel telemetry.API) (FilesystemOutput, error) {
	assert.NotNil(tel)

	dir, err := filepath.Abs(dir)
	if err != nil {
		return FilesystemOutput{}, err
	}
	err = os.RemoveAll(dir)
	if err != nil {
		return FilesystemOutput{}, fmt.Errorf("clear dump directory: %w", err)
	}
	err = os.MkdirAll(dir, 0777)
	if err != nil {
		return FilesystemOutput{}, fmt.Errorf("create dump directory: %w", err)
	}
	return FilesystemOutput{directory: dir, tel: tel}, nil
}

func (o FilesystemOutput) Dir() string {
	return o.directory
}

func (o FilesystemOutput) Write(id string, contents string) {
	err := os.WriteFile(filepath.Join(o.directory, id), []byte(contents), 0600)
	if err != nil {
		o.tel.ReportWarning(report_filesystem_output_write, id, err)
	}
}
