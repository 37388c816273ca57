package models

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidDataURL is returned when an embedded payload cannot be decoded.
var ErrInvalidDataURL = errors.New("models: invalid data url")

// MediaRef is either an inline payload waiting to be uploaded or a
// reference to media that is already stored. The zero value is empty.
type MediaRef struct {
	URL    string
	Inline *InlineMedia
}

// InlineMedia carries raw bytes of an upload.
type InlineMedia struct {
	Data        []byte
	ContentType string
	FileName    string
}

// StoredRef references media that already has a public URL.
func StoredRef(url string) MediaRef {
	return MediaRef{URL: url}
}

// InlineRef wraps raw bytes for ingestion.
func InlineRef(data []byte, contentType, fileName string) MediaRef {
	return MediaRef{Inline: &InlineMedia{Data: data, ContentType: contentType, FileName: fileName}}
}

// IsInline reports whether the reference still needs uploading.
func (r MediaRef) IsInline() bool { return r.Inline != nil }

// IsZero reports whether the reference is empty.
func (r MediaRef) IsZero() bool { return r.Inline == nil && strings.TrimSpace(r.URL) == "" }

// ParseMediaRef interprets s as a base64 data URL when it has the data:
// scheme, otherwise as a stored URL.
func ParseMediaRef(s string) (MediaRef, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "data:") {
		return StoredRef(s), nil
	}
	header, payload, ok := strings.Cut(strings.TrimPrefix(s, "data:"), ",")
	if !ok {
		return MediaRef{}, fmt.Errorf("%w: missing payload separator", ErrInvalidDataURL)
	}
	params := strings.Split(header, ";")
	contentType := strings.ToLower(strings.TrimSpace(params[0]))
	encoded := false
	for _, p := range params[1:] {
		if strings.EqualFold(strings.TrimSpace(p), "base64") {
			encoded = true
		}
	}
	if !encoded {
		return MediaRef{}, fmt.Errorf("%w: only base64 payloads are supported", ErrInvalidDataURL)
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return MediaRef{}, fmt.Errorf("%w: %v", ErrInvalidDataURL, err)
	}
	return InlineRef(data, contentType, ""), nil
}

// String returns the stored URL, or a data URL for inline payloads.
func (r MediaRef) String() string {
	if r.Inline == nil {
		return r.URL
	}
	return "data:" + r.Inline.ContentType + ";base64," + base64.StdEncoding.EncodeToString(r.Inline.Data)
}

// MarshalJSON encodes the reference as a string.
func (r MediaRef) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

// UnmarshalJSON decodes a URL or data URL string.
func (r *MediaRef) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*r = MediaRef{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	ref, err := ParseMediaRef(s)
	if err != nil {
		return err
	}
	*r = ref
	return nil
}
