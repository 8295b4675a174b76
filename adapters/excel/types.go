package excel

import (
	"path/filepath"
	"strings"
)

// Supported file types
const (
	FileTypeCSV  = "csv"
	FileTypeXLSX = "xlsx"
)

// ContentTypeXLSX is the MIME type of exported workbooks
const ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// DetectFileType maps a file name to csv or xlsx; unknown extensions return "".
func DetectFileType(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv", ".txt":
		return FileTypeCSV
	case ".xlsx", ".xlsm", ".xltx", ".xltm":
		return FileTypeXLSX
	}
	return ""
}

// DetectContentType maps an HTTP Content-Type to csv or xlsx.
func DetectContentType(contentType string) string {
	ct := strings.ToLower(contentType)
	switch {
	case strings.Contains(ct, "spreadsheetml"), strings.Contains(ct, "excel"):
		return FileTypeXLSX
	case strings.Contains(ct, "csv"):
		return FileTypeCSV
	}
	return ""
}
