package extract

import (
	"path"

	"github.com/src-d/enry/v2"
)

// otherLanguage buckets files enry cannot classify from the path alone.
const otherLanguage = "Other"

// languageFor infers the programming language of a file from its path. Blob
// contents are not available here, so classification is name-based only.
func languageFor(filePath string) string {
	base := path.Base(filePath)

	if lang, ok := enry.GetLanguageByFilename(base); ok {
		return lang
	}

	if lang, ok := enry.GetLanguageByExtension(base); ok {
		return lang
	}

	return otherLanguage
}
