package youtube

import (
	"bytes"
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/cockroachdb/errors"

	"github.com/osa030/vinylbox/internal/app/catalog"
)

// PageSource reads metadata from the watch page's Open Graph tags.
// It is used as a fallback when the oEmbed endpoint refuses a video.
type PageSource struct {
	client *Client
}

// Ensure PageSource implements catalog.MetadataSource.
var _ catalog.MetadataSource = (*PageSource)(nil)

// NewPageSource creates a watch-page metadata source sharing the client's HTTP settings.
func NewPageSource(client *Client) *PageSource {
	return &PageSource{client: client}
}

// VideoMetadata scrapes og:title, og:image and the channel name from the watch page.
func (p *PageSource) VideoMetadata(ctx context.Context, id string) (*catalog.Metadata, error) {
	if id == "" {
		return nil, errors.New("video id is required")
	}

	body, err := p.client.get(ctx, p.client.watchURL+"?v="+id)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse watch page")
	}

	md := &catalog.Metadata{
		Title:        metaContent(doc, `meta[property="og:title"]`),
		ThumbnailURL: metaContent(doc, `meta[property="og:image"]`),
		AuthorName:   strings.TrimSpace(doc.Find(`span[itemprop="author"] link[itemprop="name"]`).First().AttrOr("content", "")),
	}
	if md.Title == "" {
		md.Title = strings.TrimSpace(strings.TrimSuffix(doc.Find("title").First().Text(), " - YouTube"))
	}
	if md.Title == "" {
		return nil, errors.New("watch page has no title")
	}
	return md, nil
}

func metaContent(doc *goquery.Document, selector string) string {
	return strings.TrimSpace(doc.Find(selector).First().AttrOr("content", ""))
}
