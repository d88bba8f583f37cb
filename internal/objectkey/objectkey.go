// Package objectkey builds and parses the object store keys of document versions.
//
// Key layout:
//
//	organizations/{organizationId}/{yyyy}/{category}/{documentId}_v{version}_{filename}
//
// The year is the UTC year at upload time, so the versions of one document
// may be spread over several year prefixes.
package objectkey

import (
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"docvault/internal/model"
)

// Root is the fixed first segment of every document key.
const Root = "organizations"

// MaxFilenameLength is the rune limit of a sanitized filename, extension included.
const MaxFilenameLength = 200

var (
	ErrInvalidOrganization = errors.New("objectkey: invalid organization id")
	ErrInvalidDocument     = errors.New("objectkey: invalid document id")
	ErrInvalidCategory     = errors.New("objectkey: invalid category")
	ErrInvalidVersion      = errors.New("objectkey: version must be >= 1")
	ErrInvalidYear         = errors.New("objectkey: year must have four digits")
	ErrInvalidFilename     = errors.New("objectkey: filename is empty")
	ErrMalformedKey        = errors.New("objectkey: malformed key")
)

var versionMarker = regexp.MustCompile(`_v\d+_`)

// Parts are the inputs of a key.
type Parts struct {
	OrganizationID string
	Category       model.Category
	DocumentID     string
	Filename       string
	Version        int
	Year           int
}

// Parsed is the decoded form of a key produced by Generate.
type Parsed struct {
	OrganizationID string
	Year           int
	Category       string
	DocumentID     string
	Version        int
	Filename       string
}

// Sanitize makes filename safe for use as the last key segment. Path
// separators, : * ? " < > |, whitespace and control characters become '_'.
// Names longer than MaxFilenameLength runes are cut in the stem so the
// extension survives.
func Sanitize(filename string) string {
	name := norm.NFC.String(filename)
	name = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return '_'
		}
		return r
	}, name)

	runes := []rune(name)
	if len(runes) <= MaxFilenameLength {
		return name
	}
	ext := []rune(filepath.Ext(name))
	if len(ext) >= MaxFilenameLength {
		return string(runes[:MaxFilenameLength])
	}
	stem := runes[:len(runes)-len(ext)]
	return string(stem[:MaxFilenameLength-len(ext)]) + string(ext)
}

// Generate returns the key for p. It is deterministic in all of its inputs.
func Generate(p Parts) (string, error) {
	if err := validID(p.OrganizationID); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidOrganization, err)
	}
	if err := ValidateDocumentID(p.DocumentID); err != nil {
		return "", err
	}
	cat, err := categoryToken(p.Category)
	if err != nil {
		return "", err
	}
	if p.Version < 1 {
		return "", ErrInvalidVersion
	}
	if p.Year < 1000 || p.Year > 9999 {
		return "", ErrInvalidYear
	}
	name := Sanitize(p.Filename)
	if name == "" {
		return "", ErrInvalidFilename
	}
	return fmt.Sprintf("%s/%s/%04d/%s/%s_v%d_%s", Root, p.OrganizationID, p.Year, cat, p.DocumentID, p.Version, name), nil
}

// DocumentPrefix is the listing prefix of every version of a document within one year.
func DocumentPrefix(ref model.DocumentRef, year int) string {
	return fmt.Sprintf("%s/%s/%04d/%s/%s_", Root, ref.OrganizationID, year, strings.ToLower(string(ref.Category)), ref.DocumentID)
}

// ValidateDocumentID rejects ids that cannot be embedded in a key unambiguously.
func ValidateDocumentID(id string) error {
	if err := validID(id); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	if versionMarker.MatchString(id + "_") {
		return fmt.Errorf("%w: contains a version marker", ErrInvalidDocument)
	}
	return nil
}

// OrganizationPrefix is the listing prefix of everything an organization stores.
func OrganizationPrefix(orgID string) string {
	return Root + "/" + orgID + "/"
}

// Parse decodes a key produced by Generate.
func Parse(key string) (Parsed, error) {
	segs := strings.Split(key, "/")
	if len(segs) != 5 || segs[0] != Root || segs[1] == "" || segs[3] == "" {
		return Parsed{}, fmt.Errorf("%w: %q", ErrMalformedKey, key)
	}
	year, err := strconv.Atoi(segs[2])
	if err != nil || len(segs[2]) != 4 {
		return Parsed{}, fmt.Errorf("%w: bad year in %q", ErrMalformedKey, key)
	}
	loc := versionMarker.FindStringIndex(segs[4])
	if loc == nil || loc[0] == 0 {
		return Parsed{}, fmt.Errorf("%w: no version in %q", ErrMalformedKey, key)
	}
	marker := segs[4][loc[0]:loc[1]]
	version, err := strconv.Atoi(marker[2 : len(marker)-1])
	if err != nil || version < 1 {
		return Parsed{}, fmt.Errorf("%w: bad version in %q", ErrMalformedKey, key)
	}
	return Parsed{
		OrganizationID: segs[1],
		Year:           year,
		Category:       segs[3],
		DocumentID:     segs[4][:loc[0]],
		Version:        version,
		Filename:       segs[4][loc[1]:],
	}, nil
}

// BelongsTo reports whether key is a version of ref.
func BelongsTo(key string, ref model.DocumentRef) bool {
	p, err := Parse(key)
	if err != nil {
		return false
	}
	return p.OrganizationID == ref.OrganizationID &&
		p.Category == strings.ToLower(string(ref.Category)) &&
		p.DocumentID == ref.DocumentID
}

// Filename returns the last segment of key without its document/version prefix,
// or the base name if key does not follow the layout.
func Filename(key string) string {
	if p, err := Parse(key); err == nil {
		return p.Filename
	}
	return path.Base(key)
}

func validID(id string) error {
	if id == "" {
		return errors.New("empty")
	}
	if strings.ContainsAny(id, "/\\") || strings.TrimSpace(id) != id {
		return errors.New("contains separators or surrounding whitespace")
	}
	return nil
}

func categoryToken(c model.Category) (string, error) {
	token := strings.ToLower(strings.TrimSpace(string(c)))
	if token == "" || strings.ContainsAny(token, "/\\") {
		return "", ErrInvalidCategory
	}
	return token, nil
}
