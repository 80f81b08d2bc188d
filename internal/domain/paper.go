// Package domain provides domain models and business logic for the Research Assistant Service.
package domain

import (
	"crypto/md5"
	"encoding/hex"
	"time"
)

// Paper represents an academic paper in the paper store.
//
// PaperID is content-addressed: it is derived from the canonical URL alone,
// so the same URL always maps to the same record. All other fields are
// mutable and overwritten on upsert.
type Paper struct {
	PaperID       string
	Title         string
	Authors       []string
	PublishedDate time.Time
	Summary       string
	URL           string
	Links         []string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// PaperID computes the content-addressed identifier for a paper from its
// canonical URL: the lowercase hex MD5 digest of the UTF-8 URL bytes.
//
// The digest algorithm and encoding are part of the durable storage format.
// Records written by earlier deployments are keyed by exactly this function,
// so it must not change without a data migration.
func PaperID(url string) string {
	sum := md5.Sum([]byte(url))
	return hex.EncodeToString(sum[:])
}

// Identify fills in PaperID from the paper's URL and returns the paper.
func (p *Paper) Identify() *Paper {
	p.PaperID = PaperID(p.URL)
	return p
}

// Year returns the calendar year of the paper's publication date,
// or 0 if no date is set.
func (p *Paper) Year() int {
	if p.PublishedDate.IsZero() {
		return 0
	}
	return p.PublishedDate.Year()
}

// PDFLink returns the first locator that looks like a PDF document: the
// canonical URL if it ends in ".pdf", otherwise the first auxiliary link
// that does. Returns empty string when the paper has no PDF locator.
func (p *Paper) PDFLink() string {
	if hasPDFSuffix(p.URL) {
		return p.URL
	}
	for _, l := range p.Links {
		if hasPDFSuffix(l) {
			return l
		}
	}
	return ""
}

func hasPDFSuffix(s string) bool {
	const suffix = ".pdf"
	return len(s) >= len(suffix) && s[len(s)-len(suffix):] == suffix
}
