// Package pathutil provides helpers for file names and paths: file
// extension handling, uniquification of names and paths, and validation
// and sanitization of file names, paths and extensions.
package pathutil

import "strings"

// multipartExtensions holds known file extensions containing periods,
// such as "xcf.gz". Extensions without periods need no registration.
var multipartExtensions = map[string]struct{}{}

// RegisterMultipartExtension marks a file extension containing periods
// as known to FileExtension. The lookup is case-insensitive.
func RegisterMultipartExtension(extension string) {
	multipartExtensions[strings.ToLower(extension)] = struct{}{}
}

// FileExtension returns the file extension of filename without the
// leading period, or an empty string if filename has none.
//
// If filename contains multiple periods, the longest suffix registered
// via RegisterMultipartExtension wins. Otherwise the substring after the
// last period is returned.
func FileExtension(filename string) string {
	if !strings.Contains(filename, ".") {
		return ""
	}

	rest := filename
	for rest != "" {
		periodIndex := strings.Index(rest, ".")
		if periodIndex == -1 {
			return rest
		}

		rest = rest[periodIndex+1:]
		if _, ok := multipartExtensions[strings.ToLower(rest)]; ok {
			return rest
		}
	}

	return ""
}

// ReplaceExtension returns filename with its file extension replaced by
// newExtension. An empty newExtension or a single period removes the
// extension. If keepExtraTrailingPeriods is true, duplicate periods
// before the extension are kept.
func ReplaceExtension(filename, newExtension string, keepExtraTrailingPeriods bool) string {
	root := filename
	if extension := FileExtension(filename); extension != "" {
		root = filename[:len(filename)-len(extension)-1]
	} else if !keepExtraTrailingPeriods {
		root = strings.TrimRight(root, ".")
	}

	newExtension = strings.TrimLeft(newExtension, ".")
	if newExtension == "" {
		return root
	}
	return root + "." + newExtension
}

// StripExtension returns filename without its file extension.
func StripExtension(filename string) string {
	if extension := FileExtension(filename); extension != "" {
		return filename[:len(filename)-len(extension)-1]
	}
	return filename
}
