// Package qr renders the QR codes printed on office doors. Each code points at
// the public detail page of one faculty member.
package qr

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/skip2/go-qrcode"
)

// ErrEncodingFailed is returned when the QR library cannot encode a URL.
var ErrEncodingFailed = errors.New("qr encoding failed")

// Encoder turns a URL into a PNG image.
type Encoder interface {
	Encode(url string) ([]byte, error)
}

// PNGEncoder encodes with skip2/go-qrcode at a fixed pixel size.
type PNGEncoder struct {
	Size  int
	Level qrcode.RecoveryLevel
}

// NewPNGEncoder returns a medium recovery encoder producing size x size images.
func NewPNGEncoder(size int) *PNGEncoder {
	if size <= 0 {
		size = 300
	}
	return &PNGEncoder{Size: size, Level: qrcode.Medium}
}

func (e *PNGEncoder) Encode(url string) ([]byte, error) {
	png, err := qrcode.Encode(url, e.Level, e.Size)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncodingFailed, err)
	}
	return png, nil
}

// CachedEncoder memoizes another encoder. Faculty URLs never change, so the
// same image is served until the entry expires.
type CachedEncoder struct {
	next  Encoder
	cache *cache.Cache
	ttl   time.Duration
}

// NewCachedEncoder wraps next with an in-memory cache.
func NewCachedEncoder(next Encoder, ttl time.Duration) *CachedEncoder {
	return &CachedEncoder{
		next:  next,
		cache: cache.New(ttl, 2*ttl),
		ttl:   ttl,
	}
}

func (e *CachedEncoder) Encode(url string) ([]byte, error) {
	if png, found := e.cache.Get(url); found {
		return png.([]byte), nil
	}
	png, err := e.next.Encode(url)
	if err != nil {
		return nil, err
	}
	e.cache.Set(url, png, e.ttl)
	return png, nil
}

// FacultyURL is the page a faculty member's QR code resolves to.
func FacultyURL(baseURL string, facultyID int64) string {
	return fmt.Sprintf("%s/faculty/%d", strings.TrimRight(baseURL, "/"), facultyID)
}

// DataURL embeds a PNG image in a data: URL for inline display.
func DataURL(png []byte) string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png)
}
