// Package provenance stamps each harvested page with capture headers.
package provenance

import (
	"time"

	"github.com/google/uuid"

	"github.com/BenjaminSRussell/odc_harvest/internal/types"
)

const (
	HeaderType     = "WARC-Type"
	HeaderTarget   = "WARC-Target-URI"
	HeaderDate     = "WARC-Date"
	HeaderRecordID = "WARC-Record-ID"
	HeaderSoftware = "WARC-Software"

	DefaultSoftware = "odc-harvest/1.0"
)

// Stamper produces the provenance bundle for a fetched URL
type Stamper interface {
	Stamp(url string) types.ProvenanceHeaders
}

// WARCStamper emits WARC-style response headers
type WARCStamper struct {
	software string
	now      func() time.Time
	newID    func() uuid.UUID
}

// NewWARCStamper creates a stamper that reports the given software name
func NewWARCStamper(software string) *WARCStamper {
	if software == "" {
		software = DefaultSoftware
	}
	return &WARCStamper{
		software: software,
		now:      time.Now,
		newID:    uuid.New,
	}
}

func (s *WARCStamper) Stamp(url string) types.ProvenanceHeaders {
	return types.ProvenanceHeaders{
		HeaderType:     "response",
		HeaderTarget:   url,
		HeaderDate:     s.now().UTC().Format(time.RFC3339),
		HeaderRecordID: "<urn:uuid:" + s.newID().String() + ">",
		HeaderSoftware: s.software,
	}
}

// StamperFunc adapts a function to Stamper
type StamperFunc func(url string) types.ProvenanceHeaders

func (f StamperFunc) Stamp(url string) types.ProvenanceHeaders {
	return f(url)
}
