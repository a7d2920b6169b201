package validation

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"cptmerge/pkg/contracts/domain"
)

var (
	ErrEmptyFile    = errors.New("file is empty")
	ErrFileTooLarge = errors.New("file exceeds upload limit")
	ErrTempFile     = errors.New("temporary office lock file")
)

// ExcelExtensions are the workbook types the parser can open.
var ExcelExtensions = []string{".xlsx", ".xlsm"}

// FileValidator checks workbook uploads and the files and directories
// handed to the command line exporter.
type FileValidator struct {
	logger *slog.Logger
}

// NewFileValidator creates a new file validator
func NewFileValidator(logger *slog.Logger) *FileValidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileValidator{
		logger: logger,
	}
}

// ValidateName checks the extension of a workbook name and rejects office
// lock files such as "~$survey.xlsx".
func (v *FileValidator) ValidateName(name string) error {
	base := filepath.Base(name)
	if strings.HasPrefix(base, "~$") {
		v.logger.Warn("Skipping temporary Excel file",
			slog.String("file", name))
		return fmt.Errorf("%s: %w", base, ErrTempFile)
	}

	ext := strings.ToLower(filepath.Ext(base))
	for _, ok := range ExcelExtensions {
		if ext == ok {
			return nil
		}
	}

	v.logger.Error("File is not a supported Excel file",
		slog.String("file", name),
		slog.String("extension", ext))
	if ext == ".xls" {
		return fmt.Errorf("%s: %w: legacy .xls workbooks must be saved as .xlsx", base, domain.ErrUnsupportedFileExt)
	}
	return fmt.Errorf("%s: %w (extension %q)", base, domain.ErrUnsupportedFileExt, ext)
}

// ValidateUpload checks an uploaded part before it is parsed. maxBytes of
// zero disables the size check.
func (v *FileValidator) ValidateUpload(name string, size, maxBytes int64) error {
	if err := v.ValidateName(name); err != nil {
		return err
	}
	if size == 0 {
		return fmt.Errorf("%s: %w", filepath.Base(name), ErrEmptyFile)
	}
	if maxBytes > 0 && size > maxBytes {
		v.logger.Warn("Upload exceeds size limit",
			slog.String("file", name),
			slog.Int64("size", size),
			slog.Int64("limit", maxBytes))
		return fmt.Errorf("%s: %w (%d > %d bytes)", filepath.Base(name), ErrFileTooLarge, size, maxBytes)
	}
	return nil
}

// ValidateContent sniffs the leading bytes of a workbook. Office Open XML
// files are zip containers; legacy compound documents are rejected.
func (v *FileValidator) ValidateContent(name string, head []byte) error {
	if len(head) == 0 {
		return fmt.Errorf("%s: %w", filepath.Base(name), ErrEmptyFile)
	}
	return v.checkMIME(name, mimetype.Detect(head))
}

func (v *FileValidator) checkMIME(name string, mt *mimetype.MIME) error {
	for m := mt; m != nil; m = m.Parent() {
		if m.Is("application/zip") {
			return nil
		}
		if m.Is("application/x-ole-storage") {
			return fmt.Errorf("%s: %w: legacy .xls content", filepath.Base(name), domain.ErrUnsupportedFileExt)
		}
	}
	v.logger.Error("File content is not a workbook",
		slog.String("file", name),
		slog.String("mime", mt.String()))
	return fmt.Errorf("%s: %w: content is %s", filepath.Base(name), domain.ErrUnsupportedFileExt, mt.String())
}

// ValidateOutputDirectory ensures output directory exists or can be created
func (v *FileValidator) ValidateOutputDirectory(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		v.logger.Error("Failed to create output directory",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}

	testFile := filepath.Join(dir, ".write_test")
	file, err := os.Create(testFile)
	if err != nil {
		v.logger.Error("Output directory is not writable",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return fmt.Errorf("output directory %s is not writable: %w", dir, err)
	}
	file.Close()
	os.Remove(testFile)

	v.logger.Debug("Output directory validated",
		slog.String("directory", dir))
	return nil
}

// ValidateFile checks if a specific file exists and is readable
func (v *FileValidator) ValidateFile(path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		v.logger.Error("File does not exist",
			slog.String("file", path))
		return fmt.Errorf("file %s does not exist", path)
	}
	if err != nil {
		v.logger.Error("Failed to stat file",
			slog.String("file", path),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to stat file %s: %w", path, err)
	}
	if info.IsDir() {
		v.logger.Error("Path is a directory, not a file",
			slog.String("path", path))
		return fmt.Errorf("%s is a directory, not a file", path)
	}
	if info.Size() == 0 {
		return fmt.Errorf("%s: %w", path, ErrEmptyFile)
	}

	file, err := os.Open(path)
	if err != nil {
		v.logger.Error("File is not readable",
			slog.String("file", path),
			slog.String("error", err.Error()))
		return fmt.Errorf("file %s is not readable: %w", path, err)
	}
	file.Close()

	v.logger.Debug("File validated",
		slog.String("file", path),
		slog.Int64("size", info.Size()))
	return nil
}

// ValidateExcelFile checks that path names a readable workbook.
func (v *FileValidator) ValidateExcelFile(path string) error {
	if err := v.ValidateName(path); err != nil {
		return err
	}
	if err := v.ValidateFile(path); err != nil {
		return err
	}

	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	return v.checkMIME(path, mt)
}

// ExcelFiles expands the given paths into workbook files. Directories
// contribute their .xlsx and .xlsm files in name order, skipping lock
// files; plain files are returned as given.
func (v *FileValidator) ExcelFiles(paths []string) ([]string, error) {
	var out []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			v.logger.Error("Input path is not accessible",
				slog.String("path", p),
				slog.String("error", err.Error()))
			return nil, fmt.Errorf("input %s: %w", p, err)
		}
		if !info.IsDir() {
			out = append(out, p)
			continue
		}

		var found []string
		for _, ext := range ExcelExtensions {
			matches, err := filepath.Glob(filepath.Join(p, "*"+ext))
			if err != nil {
				return nil, fmt.Errorf("failed to list %s: %w", p, err)
			}
			for _, m := range matches {
				if !strings.HasPrefix(filepath.Base(m), "~$") {
					found = append(found, m)
				}
			}
		}
		sort.Strings(found)

		if len(found) == 0 {
			v.logger.Warn("No workbooks found in directory",
				slog.String("directory", p))
		}
		out = append(out, found...)
	}
	return out, nil
}
