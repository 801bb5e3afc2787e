package preflight

import "fmt"

// File size limits in bytes
const (
	// FileSizeWarnBytes triggers a warning; uploads this large slow vendor ingestion
	FileSizeWarnBytes = 100 * 1024 * 1024
	// FileSizeMaxBytes is the typical vendor hard limit
	FileSizeMaxBytes = 500 * 1024 * 1024
)

// FileInfo describes one production file, as reported by the file inspection collaborator
type FileInfo struct {
	// Label identifies the file (e.g. "interior", "cover")
	Label string
	// SizeBytes is the file size in bytes
	SizeBytes int64
	// ColorSpace is the dominant color space ("CMYK", "RGB", "GRAY")
	ColorSpace string
}

// CheckFileSize validates a file against vendor upload limits
func CheckFileSize(f FileInfo) []Issue {
	if f.SizeBytes > FileSizeMaxBytes {
		return []Issue{{
			Code:     CodeFileTooLarge,
			Message:  fmt.Sprintf("%s file is %dMB; vendors reject files over %dMB", f.Label, f.SizeBytes/(1024*1024), FileSizeMaxBytes/(1024*1024)),
			Location: f.Label,
			Severity: SeverityHigh,
		}}
	}
	if f.SizeBytes > FileSizeWarnBytes {
		return []Issue{{
			Code:     CodeFileLarge,
			Message:  fmt.Sprintf("%s file is %dMB; files over %dMB slow down vendor processing", f.Label, f.SizeBytes/(1024*1024), FileSizeWarnBytes/(1024*1024)),
			Location: f.Label,
			Severity: SeverityLow,
		}}
	}
	return nil
}

// CheckColorSpace flags RGB files. Most vendors convert RGB to CMYK on intake
// with acceptable results, so this is never a hard failure.
func CheckColorSpace(f FileInfo) []Issue {
	if f.ColorSpace == "RGB" {
		return []Issue{{
			Code:     CodeRGBColorSpace,
			Message:  fmt.Sprintf("%s file uses RGB; colors may shift during the vendor's CMYK conversion", f.Label),
			Location: f.Label,
			Severity: SeverityLow,
		}}
	}
	return nil
}
