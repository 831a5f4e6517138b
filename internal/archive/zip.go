package archive

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"strings"
)

// ExtractCSV locates the daily table inside the fetched archive and returns
// its bytes. The member whose name exactly matches the archive base name
// (archive name minus the outer .zip) is preferred; otherwise the first
// member ending in .csv wins, in archive order. Invalid UTF-8 sequences in
// the table are replaced, never rejected.
func ExtractCSV(data []byte, archiveName string) ([]byte, error) {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedArchive, err)
	}

	preferred := CSVMemberName(archiveName)
	var chosen *zip.File
	for _, f := range reader.File {
		if f.Name == preferred {
			chosen = f
			break
		}
		if chosen == nil && strings.HasSuffix(strings.ToLower(f.Name), ".csv") {
			chosen = f
		}
	}
	if chosen == nil {
		return nil, fmt.Errorf("%w: no CSV member in %s", ErrMalformedArchive, archiveName)
	}

	rc, err := chosen.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrMalformedArchive, chosen.Name, err)
	}
	defer rc.Close()

	raw, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrMalformedArchive, chosen.Name, err)
	}

	return bytes.ToValidUTF8(raw, []byte("�")), nil
}
