package workflow

import (
	"strings"

	"lensfrens/go-backend/pkg/models"
)

const (
	defaultLocale           = "en-US"
	defaultMediaAppID       = "lenstube"
	defaultTextAppID        = "lensfrens"
	defaultMediaContentType = "video/mp4"
)

// buildMetadata renders the publication metadata document for a draft.
// mediaPath is empty when the draft carries no media.
func buildMetadata(metadataID string, draft models.DraftPost, mediaPath, handle string, opts Options) models.Metadata {
	text := strings.TrimSpace(draft.Text)
	md := models.Metadata{
		Version:          models.MetadataVersion,
		MetadataID:       metadataID,
		Content:          text,
		Description:      text,
		Name:             text,
		ExternalURL:      externalURL(opts.ExternalURLBase, handle),
		MainContentFocus: models.MainContentFocusTextOnly,
		Attributes:       []models.MetadataAttribute{},
		Locale:           opts.Locale,
		Media:            []models.MetadataMedia{},
		AppID:            opts.TextAppID,
	}
	if mediaPath != "" {
		contentType := opts.DefaultMediaContentType
		if draft.Media != nil && strings.TrimSpace(draft.Media.ContentType) != "" {
			contentType = strings.TrimSpace(draft.Media.ContentType)
		}
		md.MainContentFocus = models.MainContentFocusVideo
		md.AppID = opts.MediaAppID
		md.Media = append(md.Media, models.MetadataMedia{
			Type: contentType,
			Item: "ipfs://" + mediaPath,
		})
	}
	return md
}

func externalURL(base, handle string) string {
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	handle = strings.TrimSpace(handle)
	if base == "" || handle == "" {
		return base
	}
	return base + "/" + handle
}
