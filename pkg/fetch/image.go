package fetch

import (
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// maxImageBytes caps picture downloads.
const maxImageBytes = 32 << 20

// Image downloads the picture behind link and decodes it, honouring EXIF
// orientation. Supported formats: png, jpeg, gif, webp, bmp.
//
// The link is fetched directly, not through the proxy: the proxy only exists
// for the JSON endpoints.
func (c *Client) Image(ctx context.Context, link string) (image.Image, error) {
	body, err := c.get(ctx, link, "image/*")
	if err != nil {
		return nil, fmt.Errorf("fetch image: %w", err)
	}
	defer body.Close()

	img, err := imaging.Decode(io.LimitReader(body, maxImageBytes), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode image %s: %w", link, err)
	}
	return img, nil
}
