package session

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
)

const MaxFileSize = 10 << 20

var (
	ErrFileTooLarge = errors.New("file is too large")
	ErrFileType     = errors.New("file type not accepted")
)

var acceptedExtensions = map[string]string{
	".pdf":  "application/pdf",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".bmp":  "image/bmp",
	".webp": "image/webp",
}

// AcceptAttribute is the accept list for a file input.
const AcceptAttribute = "application/pdf,image/*,.pdf,.png,.jpg,.jpeg,.gif,.bmp,.webp"

type Rejection struct {
	Name string
	Err  error
}

func (r Rejection) Error() string {
	return fmt.Sprintf("%s: %v", r.Name, r.Err)
}

// Accept applies the drop filter. A file with no declared type gets the type
// implied by its extension.
func Accept(file File) (File, error) {
	if file.Size == 0 && len(file.Data) > 0 {
		file.Size = int64(len(file.Data))
	}
	if file.Size > MaxFileSize {
		return file, fmt.Errorf("%w: %s exceeds %s", ErrFileTooLarge, humanize.IBytes(uint64(file.Size)), humanize.IBytes(MaxFileSize))
	}

	ext := strings.ToLower(filepath.Ext(file.Name))
	byExt, knownExt := acceptedExtensions[ext]
	if file.Type == "" {
		file.Type = byExt
	}

	if file.Type == "application/pdf" || strings.HasPrefix(file.Type, "image/") || knownExt {
		return file, nil
	}

	return file, fmt.Errorf("%w: %s", ErrFileType, file.Type)
}

func filterFiles(files []File) ([]File, []Rejection) {
	accepted := make([]File, 0, len(files))
	var rejected []Rejection
	for _, file := range files {
		checked, err := Accept(file)
		if err != nil {
			rejected = append(rejected, Rejection{Name: file.Name, Err: err})
			continue
		}
		accepted = append(accepted, checked)
	}

	return accepted, rejected
}
