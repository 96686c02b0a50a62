package extraction

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/lehigh-university-libraries/coverscan/internal/models"
)

var (
	translatorLine = regexp.MustCompile(`(?im)^\s*(?:dịch\s*giả|người\s*dịch|translated\s+by|translator|dịch)[\s:]+([^\n]+)`)
	authorLine     = regexp.MustCompile(`(?im)^\s*(?:tác\s*giả|tac\s*gia|author|written\s+by|by)[\s:]+([^\n]+)`)
	personName     = regexp.MustCompile(`^\p{Lu}\p{Ll}+(?:\s+\p{Lu}\p{Ll}+){1,3}$`)
	coverNoise     = regexp.MustCompile(`(?i)^(?:national|bestseller|new york|times|tái bản)`)

	spineLeading    = regexp.MustCompile(`^[0-9\s+\-=#,.]+`)
	spineTrim       = " |+-=#,.:;"
	upperName       = regexp.MustCompile(`(?:^|\s)(\p{Lu}{2,}\s+\p{Lu}{2,})(?:\s|$)`)
	capitalizedName = regexp.MustCompile(`(?:^|\s)(\p{Lu}\p{Ll}+(?:[-.]\s*\p{Lu}\p{Ll}+)*(?:\s+\p{Lu}\p{Ll}+(?:[-.]\s*\p{Lu}\p{Ll}+)*){1,3})`)

	publisherLine = regexp.MustCompile(`(?im)(?:^|\s)(?:nhà\s*xuất\s*bản|nxb|published\s+by|publisher)[\s:.]+([^\n]+)`)
	publisherTail = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\s*\|.*$`),
		regexp.MustCompile(`(?i)\s+(?:địa\s*chỉ|đc|dt|tel|tầng|phòng|số|qđ)(?:[\s:.]|$).*$`),
		regexp.MustCompile(`\s*\d{2,}.*$`),
		regexp.MustCompile(`\s*[-,]\s*\d+.*$`),
	}

	isbnLabeled = regexp.MustCompile(`(?i)ISBN[^\d\n]{0,30}?(\d(?:[-\s]?[\dX]){8,16})`)
	isbnBare    = regexp.MustCompile(`(?:^|\D)(97[89](?:[-\s]?\d){10})(?:\D|$)`)
	yearLabeled = regexp.MustCompile(`(?i)(?:năm|year|xuất\s*bản|published|copyright|©)[\s:]*((?:19|20)\d{2})(?:\D|$)`)
	yearBare    = regexp.MustCompile(`(?:^|\D)((?:19|20)\d{2})(?:\D|$)`)

	paragraphBreak = regexp.MustCompile(`\n\s*\n`)
	backInfo       = regexp.MustCompile(`(?i)^(?:isbn|giá|nhà\s*xuất)`)
	backNoise      = []*regexp.Regexp{
		regexp.MustCompile(`(?i)giá[:\s]*[\d,.]+\s*(?:₫|đ|vnd)`),
		regexp.MustCompile(`\d{8,}`),
		regexp.MustCompile(`(?i)nhà\s*xuất\s*bản.*$`),
	}
)

// roleRules reads the fields each cover face usually carries.
var roleRules = map[models.CoverRole]func(string) models.ExtractedMetadata{
	models.CoverFront:  frontRules,
	models.CoverSpine:  spineRules,
	models.CoverInside: insideRules,
	models.CoverBack:   backRules,
}

// RuleExtract reads metadata from per-role cover text with fixed patterns,
// without a model. Roles are merged in cover order and the first role to
// yield a field keeps it.
func RuleExtract(texts map[models.CoverRole]string) models.ExtractedMetadata {
	var md models.ExtractedMetadata
	for _, role := range models.CoverRoles {
		text := strings.TrimSpace(texts[role])
		if text == "" {
			continue
		}
		mergeMetadata(&md, roleRules[role](text))
	}
	return md
}

func mergeMetadata(dst *models.ExtractedMetadata, src models.ExtractedMetadata) {
	if dst.Title == nil {
		dst.Title = src.Title
	}
	if len(dst.Authors) == 0 {
		dst.Authors = src.Authors
	}
	if dst.Translator == nil {
		dst.Translator = src.Translator
	}
	if dst.Publisher == nil {
		dst.Publisher = src.Publisher
	}
	if dst.Year == nil {
		dst.Year = src.Year
	}
	if dst.ISBN == nil {
		dst.ISBN = src.ISBN
	}
	if dst.Description == nil {
		dst.Description = src.Description
	}
}

// frontRules: the title is the leading block of large (all-caps) lines,
// the author a labeled line or a capitalized name.
func frontRules(text string) models.ExtractedMetadata {
	md := models.ExtractedMetadata{
		Translator: labeled(translatorLine, text),
		Authors:    labeledAuthors(text),
	}

	var titleLines []string
	for _, line := range nonEmptyLines(text) {
		if translatorLine.MatchString(line) || authorLine.MatchString(line) {
			continue
		}
		if len(md.Authors) == 0 && !isUpper(line) && personName.MatchString(line) {
			md.Authors = []string{line}
			continue
		}
		if !titleCandidate(line) {
			continue
		}
		if len(titleLines) > 0 && !(isUpper(line) && isUpper(titleLines[len(titleLines)-1])) {
			break
		}
		titleLines = append(titleLines, line)
	}
	md.Title = optional(strings.Join(titleLines, " "))
	return md
}

// spineRules: spines read "author | title"; without a separator the first
// name-like run is the author and the rest the title.
func spineRules(text string) models.ExtractedMetadata {
	joined := cleanField(strings.Join(nonEmptyLines(text), " "))
	joined = strings.TrimSpace(spineLeading.ReplaceAllString(joined, ""))
	if joined == "" {
		return models.ExtractedMetadata{}
	}

	if left, right, ok := strings.Cut(joined, "|"); ok {
		author := strings.Trim(left, spineTrim)
		title := strings.Trim(right, spineTrim)
		if author != "" && title != "" {
			return models.ExtractedMetadata{Title: optional(title), Authors: nameList(author)}
		}
	}

	for _, pattern := range []*regexp.Regexp{upperName, capitalizedName} {
		loc := pattern.FindStringSubmatchIndex(joined)
		if loc == nil {
			continue
		}
		author := joined[loc[2]:loc[3]]
		title := strings.Trim(joined[loc[3]:], spineTrim)
		if title == "" {
			break
		}
		return models.ExtractedMetadata{Title: optional(title), Authors: nameList(author)}
	}
	return models.ExtractedMetadata{Title: optional(strings.Trim(joined, spineTrim))}
}

// insideRules: the imprint page carries the publisher, ISBN and year, and
// sometimes labeled credits.
func insideRules(text string) models.ExtractedMetadata {
	md := models.ExtractedMetadata{
		Authors:    labeledAuthors(text),
		Translator: labeled(translatorLine, text),
		ISBN:       findISBN(text),
	}
	if m := publisherLine.FindStringSubmatch(text); m != nil {
		publisher := m[1]
		for _, tail := range publisherTail {
			publisher = tail.ReplaceAllString(publisher, "")
		}
		md.Publisher = optional(cleanField(publisher))
	}

	withoutISBN := isbnBare.ReplaceAllString(isbnLabeled.ReplaceAllString(text, " "), " ")
	if m := yearLabeled.FindStringSubmatch(withoutISBN); m != nil {
		md.Year = optional(m[1])
	} else if all := yearBare.FindAllStringSubmatch(withoutISBN, -1); len(all) > 0 {
		md.Year = optional(all[len(all)-1][1])
	}
	return md
}

// backRules: the blurb is the first paragraph, extended by the second when
// short; price, barcode and imprint lines are dropped.
func backRules(text string) models.ExtractedMetadata {
	md := models.ExtractedMetadata{ISBN: findISBN(text)}

	sections := paragraphBreak.Split(text, -1)
	desc := strings.TrimSpace(sections[0])
	if len([]rune(desc)) < 100 && len(sections) > 1 {
		if next := strings.TrimSpace(sections[1]); next != "" && !backInfo.MatchString(next) {
			desc += "\n\n" + next
		}
	}
	desc = isbnLabeled.ReplaceAllString(desc, "")
	for _, noise := range backNoise {
		desc = noise.ReplaceAllString(desc, "")
	}
	md.Description = optional(cleanField(desc))
	return md
}

func findISBN(text string) *string {
	for _, pattern := range []*regexp.Regexp{isbnLabeled, isbnBare} {
		for _, m := range pattern.FindAllStringSubmatch(text, -1) {
			if isbn := isbnPrefix(NormalizeISBN(m[1])); isbn != "" {
				return &isbn
			}
		}
	}
	return nil
}

// isbnPrefix cuts a digit run that spilled into following numbers (a year,
// a price) back to one ISBN.
func isbnPrefix(digits string) string {
	switch {
	case len(digits) >= 13 && (strings.HasPrefix(digits, "978") || strings.HasPrefix(digits, "979")):
		return digits[:13]
	case len(digits) >= 10:
		return digits[:10]
	}
	return ""
}

func labeled(pattern *regexp.Regexp, text string) *string {
	m := pattern.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	return optional(cleanField(m[1]))
}

func labeledAuthors(text string) []string {
	m := authorLine.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	return nameList(m[1])
}

// nameList splits a credit line on commas as well as the usual author
// separators.
func nameList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		for _, name := range splitAuthors(part) {
			if name = cleanField(name); name != "" {
				out = append(out, name)
			}
		}
	}
	return out
}

func titleCandidate(line string) bool {
	if len([]rune(line)) < 2 || coverNoise.MatchString(line) {
		return false
	}
	return strings.IndexFunc(line, unicode.IsLetter) >= 0
}

func isUpper(s string) bool {
	hasLetter := false
	for _, r := range s {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsLetter(r) {
			hasLetter = true
		}
	}
	return hasLetter
}

func nonEmptyLines(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}

func cleanField(s string) string {
	return strings.Trim(strings.Join(strings.Fields(s), " "), " |+=#-,;:")
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
