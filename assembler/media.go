package assembler

import (
	"encoding/base64"
	"net/http"
	"os"
	"strings"

	"github.com/kodeflux/agentcore/message"
)

// BuildUserContent renders one user turn. With no media it is a plain
// string. With media, each readable image file becomes a base64 data-URL
// image part, in order, followed by a trailing text part for content; files
// that don't exist or aren't images are silently skipped. If every media
// file is dropped, content is returned as a plain string rather than an
// empty part list.
func (a *Assembler) BuildUserContent(content string, media []string) any {
	if len(media) == 0 {
		return content
	}

	var parts []message.ContentPart
	for _, path := range media {
		dataURL, ok := readImageAsDataURL(path)
		if !ok {
			a.opts.Logger.Warn("assembler: skipping unreadable or non-image media", "path", path)
			continue
		}
		parts = append(parts, message.ImageContentPart(dataURL))
	}

	if len(parts) == 0 {
		return content
	}

	parts = append(parts, message.TextContentPart(content))
	return parts
}

// readImageAsDataURL reads path, sniffs its content type, and returns a
// "data:<mime>;base64,<bytes>" URL if the sniffed type is an image.
func readImageAsDataURL(path string) (string, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", false
	}

	mimeType := http.DetectContentType(data)
	if !strings.HasPrefix(mimeType, "image/") {
		return "", false
	}

	encoded := base64.StdEncoding.EncodeToString(data)
	return "data:" + mimeType + ";base64," + encoded, true
}
