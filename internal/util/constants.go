package util

const TimeFormat = "2006-01-02 15:04:05"

const (
	StorageLocal = "local"
	StorageMinio = "minio"
	StorageOSS   = "oss"
)

const (
	MimeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	MimeCSV  = "text/csv"
)

// AutoSubmittedTimeTaken replaces the numeric time taken in results closed by the sweeper.
const AutoSubmittedTimeTaken = "Auto-submitted"

const (
	DefaultPage  = 1
	DefaultLimit = 20
	MaxLimit     = 100
)
