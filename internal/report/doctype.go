package report

import "regexp"

// DocumentType tags uploaded content by the media channel it describes.
type DocumentType string

const (
	DocumentOnsite  DocumentType = "ONSITE"
	DocumentOffsite DocumentType = "OFFSITE"
	DocumentMixed   DocumentType = "MIXED"
)

var (
	onsiteMarker  = regexp.MustCompile(`(?i)\bOn\s*site\b`)
	offsiteMarker = regexp.MustCompile(`(?i)\bOff\s*site\b`)
)

// Classify reports ONSITE or OFFSITE when exactly one marker family is
// present and MIXED otherwise, including when neither is.
func Classify(text string) DocumentType {
	onsite := onsiteMarker.MatchString(text)
	offsite := offsiteMarker.MatchString(text)
	switch {
	case onsite && !offsite:
		return DocumentOnsite
	case offsite && !onsite:
		return DocumentOffsite
	default:
		return DocumentMixed
	}
}
