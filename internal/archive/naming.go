package archive

import (
	"strings"
	"time"
)

// Name returns the remote archive filename for a calendar date, e.g.
// HABP_1D_20240305.csv.zip. The legacy form without the .csv segment was used
// by early feed revisions and is kept behind a config flag; the .csv.zip form
// is canonical.
func Name(date time.Time, legacy bool) string {
	tag := date.Format("20060102")
	if legacy {
		return "HABP_1D_" + tag + ".zip"
	}
	return "HABP_1D_" + tag + ".csv.zip"
}

// CSVMemberName returns the expected inner table member for an archive name:
// the archive filename with the outer .zip suffix stripped.
func CSVMemberName(archiveName string) string {
	return strings.TrimSuffix(archiveName, ".zip")
}
