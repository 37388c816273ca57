package media

import (
	"fmt"
	"mime"
	"path/filepath"
	"strings"
)

// Target identifies where an upload belongs.
type Target struct {
	Kind     string // entity kind, e.g. "items" or "home"
	EntityID string
	Field    string // e.g. "icon", "screenshot", "archive", "banner"
	Index    int    // position in multi-image fields; negative when unused
}

// Single returns a target for a one-valued field.
func Single(kind, entityID, field string) Target {
	return Target{Kind: kind, EntityID: entityID, Field: field, Index: -1}
}

// Indexed returns a target for position i of a multi-valued field.
func Indexed(kind, entityID, field string, i int) Target {
	return Target{Kind: kind, EntityID: entityID, Field: field, Index: i}
}

var knownExtensions = map[string]string{
	"image/png":                    ".png",
	"image/jpeg":                   ".jpg",
	"image/gif":                    ".gif",
	"image/webp":                   ".webp",
	"application/zip":              ".zip",
	"application/x-zip-compressed": ".zip",
}

// BuildPath composes the deterministic object path for a target:
// <kind>/<entity-id>/<field>[-<index>]<ext>.
func BuildPath(t Target, contentType, fileName string) (string, error) {
	kind, err := validateSegment("kind", t.Kind)
	if err != nil {
		return "", err
	}
	entityID, err := validateSegment("entityID", t.EntityID)
	if err != nil {
		return "", err
	}
	field, err := validateSegment("field", t.Field)
	if err != nil {
		return "", err
	}
	name := field
	if t.Index >= 0 {
		name = fmt.Sprintf("%s-%d", field, t.Index)
	}
	return fmt.Sprintf("%s/%s/%s%s", kind, entityID, name, extensionFor(contentType, fileName)), nil
}

func extensionFor(contentType, fileName string) string {
	if ext, ok := knownExtensions[strings.ToLower(contentType)]; ok {
		return ext
	}
	if ext := strings.ToLower(filepath.Ext(fileName)); ext != "" && !strings.ContainsAny(ext, "/\\") {
		return ext
	}
	if exts, err := mime.ExtensionsByType(contentType); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ".bin"
}

func validateSegment(name, value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", fmt.Errorf("media: %s is required", name)
	}
	if strings.ContainsAny(value, "/\\") {
		return "", fmt.Errorf("media: %s contains invalid path characters", name)
	}
	if strings.Contains(value, "..") {
		return "", fmt.Errorf("media: %s contains invalid traversal sequence", name)
	}
	return value, nil
}

// CleanObjectPath validates a path received from a client before it is
// handed to an ObjectStore.
func CleanObjectPath(p string) (string, error) {
	p = strings.TrimLeft(strings.TrimSpace(p), "/")
	if p == "" {
		return "", fmt.Errorf("media: path is required")
	}
	for _, seg := range strings.Split(p, "/") {
		if seg == "" || seg == "." || seg == ".." || strings.Contains(seg, "\\") {
			return "", fmt.Errorf("media: invalid path %q", p)
		}
	}
	return p, nil
}
