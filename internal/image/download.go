package imagepkg

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"path"

	"github.com/youruser/certgen/internal/util"
)

// DownloadTemplate fetches a template from url and validates it like an
// upload. The file name is taken from the URL path.
func DownloadTemplate(ctx context.Context, rawURL string) (Template, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return Template{}, fmt.Errorf("%w: %v", ErrDownload, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return Template{}, fmt.Errorf("%w: unsupported URL scheme %q", ErrDownload, u.Scheme)
	}
	body, contentType, err := util.GetBytes(ctx, u.String())
	if err != nil {
		return Template{}, fmt.Errorf("%w: %v", ErrDownload, err)
	}
	return DecodeTemplate(path.Base(u.Path), contentType, bytes.NewReader(body))
}
