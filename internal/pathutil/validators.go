package pathutil

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// ValidationStatus identifies why a file name, path or extension is
// invalid.
type ValidationStatus int

const (
	StatusEmpty ValidationStatus = iota
	StatusInvalidChars
	StatusDriveInvalidChars
	StatusTrailingSpaces
	StatusTrailingPeriod
	StatusReservedName
	StatusNotADirectory
)

// ValidationIssue describes a single reason a checked string is
// invalid.
type ValidationIssue struct {
	Status  ValidationStatus
	Message string
}

var (
	invalidFilenameChars = regexp.MustCompile(`[\x00-\x1f\x7f-\x9f<>:"\\/|?*]`)
	invalidPathChars     = regexp.MustCompile(`[\x00-\x1f\x7f-\x9f<>"|?*:]`)
	invalidDriveChars    = regexp.MustCompile(`[\x00-\x1f\x7f-\x9f<>"|?*]`)
)

// Names reserved on the Windows platform that cannot be used as file
// name roots.
var reservedNames = map[string]struct{}{
	"CON": {}, "PRN": {}, "AUX": {}, "NUL": {},
	"COM1": {}, "COM2": {}, "COM3": {}, "COM4": {}, "COM5": {},
	"COM6": {}, "COM7": {}, "COM8": {}, "COM9": {},
	"LPT1": {}, "LPT2": {}, "LPT3": {}, "LPT4": {}, "LPT5": {},
	"LPT6": {}, "LPT7": {}, "LPT8": {}, "LPT9": {},
}

// CheckFilename reports why filename is not a valid file name. An empty
// result means the name is valid. Names are invalid if they contain
// control or special characters, end with spaces or periods, or match a
// reserved Windows name.
func CheckFilename(filename string) []ValidationIssue {
	if filename == "" {
		return []ValidationIssue{{StatusEmpty, "Filename is not specified"}}
	}

	var issues []ValidationIssue
	if invalidFilenameChars.MatchString(filename) {
		issues = append(issues, ValidationIssue{StatusInvalidChars, "Filename contains invalid characters"})
	}
	if strings.HasSuffix(filename, " ") {
		issues = append(issues, ValidationIssue{StatusTrailingSpaces, "Filename cannot end with spaces"})
	}
	if strings.HasSuffix(filename, ".") {
		issues = append(issues, ValidationIssue{StatusTrailingPeriod, "Filename cannot end with a period"})
	}
	if root := filenameRoot(filename); isReservedName(root) {
		issues = append(issues, ValidationIssue{
			StatusReservedName,
			fmt.Sprintf("%q is a reserved name that cannot be used in filenames", root),
		})
	}
	return issues
}

// SanitizeFilename makes filename valid by removing invalid characters
// and trailing spaces and periods. Reserved names get " (1)" appended
// before the extension. A name truncated to an empty string becomes
// "Untitled".
func SanitizeFilename(filename string) string {
	sanitized := invalidFilenameChars.ReplaceAllString(filename, "")
	sanitized = strings.Trim(sanitized, " ")
	sanitized = strings.TrimRight(sanitized, ".")

	if root := filenameRoot(sanitized); isReservedName(root) {
		extension := sanitized[len(root):]
		sanitized = root + " (1)" + extension
	}

	if sanitized == "" {
		sanitized = "Untitled"
	}
	return sanitized
}

// CheckFilepath reports why path is not a valid file path. The rules
// for file names apply to each path component, except that separators
// are allowed and a colon may appear as part of a drive prefix.
func CheckFilepath(path string) []ValidationIssue {
	if path == "" {
		return []ValidationIssue{{StatusEmpty, "File path is not specified"}}
	}

	path = filepath.Clean(path)
	volume := filepath.VolumeName(path)

	var issues []ValidationIssue
	if volume != "" && invalidDriveChars.MatchString(volume) {
		issues = append(issues, ValidationIssue{StatusDriveInvalidChars, "Drive letter contains invalid characters"})
	}

	seen := map[ValidationStatus]bool{}
	var reserved []string
	for _, component := range pathComponents(path[len(volume):]) {
		if invalidPathChars.MatchString(component) {
			seen[StatusInvalidChars] = true
		}
		if strings.HasSuffix(component, " ") {
			seen[StatusTrailingSpaces] = true
		}
		if strings.HasSuffix(component, ".") {
			seen[StatusTrailingPeriod] = true
		}
		if root := filenameRoot(component); isReservedName(root) {
			seen[StatusReservedName] = true
			reserved = append(reserved, root)
		}
	}

	if seen[StatusInvalidChars] {
		issues = append(issues, ValidationIssue{StatusInvalidChars, "File path contains invalid characters"})
	}
	if seen[StatusTrailingSpaces] {
		issues = append(issues, ValidationIssue{StatusTrailingSpaces, "Path components cannot end with spaces"})
	}
	if seen[StatusTrailingPeriod] {
		issues = append(issues, ValidationIssue{StatusTrailingPeriod, "Path components cannot end with a period"})
	}
	if seen[StatusReservedName] {
		issues = append(issues, ValidationIssue{
			StatusReservedName,
			fmt.Sprintf("Reserved names cannot be used in file paths: %s", strings.Join(reserved, ", ")),
		})
	}
	return issues
}

// SanitizeFilepath makes path valid by sanitizing each path component
// the way SanitizeFilename does, keeping separators and any drive
// prefix intact.
func SanitizeFilepath(path string) string {
	path = filepath.Clean(path)
	volume := filepath.VolumeName(path)
	rest := path[len(volume):]

	if volume != "" {
		volume = invalidDriveChars.ReplaceAllString(volume, "")
	}
	rooted := strings.HasPrefix(rest, string(filepath.Separator))

	var components []string
	for _, component := range pathComponents(rest) {
		component = invalidPathChars.ReplaceAllString(component, "")
		component = strings.Trim(component, " ")
		component = strings.TrimRight(component, ".")

		if root := filenameRoot(component); isReservedName(root) {
			extension := component[len(root):]
			component = root + " (1)" + extension
		}
		if component != "" {
			components = append(components, component)
		}
	}

	sanitized := volume + strings.Join(components, string(filepath.Separator))
	if rooted {
		sanitized = volume + string(filepath.Separator) + strings.Join(components, string(filepath.Separator))
	}
	return filepath.Clean(sanitized)
}

// CheckDirpath reports why path is not a valid directory path. On top
// of the file path rules, an existing path must be a directory.
func CheckDirpath(path string) []ValidationIssue {
	issues := CheckFilepath(path)
	if len(issues) > 0 {
		return issues
	}

	if info, err := os.Stat(path); err == nil && !info.IsDir() {
		issues = append(issues, ValidationIssue{StatusNotADirectory, "Specified path is not a directory"})
	}
	return issues
}

// SanitizeDirpath makes path valid as a directory path.
func SanitizeDirpath(path string) string {
	return SanitizeFilepath(path)
}

// CheckFileExtension reports why extension is not a valid file
// extension.
func CheckFileExtension(extension string) []ValidationIssue {
	if extension == "" {
		return []ValidationIssue{{StatusEmpty, "File extension is not specified"}}
	}

	var issues []ValidationIssue
	if invalidFilenameChars.MatchString(extension) {
		issues = append(issues, ValidationIssue{StatusInvalidChars, "File extension contains invalid characters"})
	}
	if strings.HasSuffix(extension, " ") {
		issues = append(issues, ValidationIssue{StatusTrailingSpaces, "File extension cannot end with spaces"})
	}
	if strings.HasSuffix(extension, ".") {
		issues = append(issues, ValidationIssue{StatusTrailingPeriod, "File extension cannot end with a period"})
	}
	return issues
}

// SanitizeFileExtension makes extension valid by removing invalid
// characters and trailing spaces and periods.
func SanitizeFileExtension(extension string) string {
	sanitized := invalidFilenameChars.ReplaceAllString(extension, "")
	sanitized = strings.TrimRight(sanitized, " ")
	return strings.TrimRight(sanitized, ".")
}

func filenameRoot(filename string) string {
	return filename[:len(filename)-len(filepath.Ext(filename))]
}

func isReservedName(root string) bool {
	_, ok := reservedNames[strings.ToUpper(root)]
	return ok
}

func pathComponents(path string) []string {
	var components []string
	for _, component := range strings.Split(path, string(filepath.Separator)) {
		if component != "" {
			components = append(components, component)
		}
	}
	return components
}
