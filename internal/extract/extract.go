// Package extract mines a storefront detail page for review sentiment, tags
// and listing metadata.
//
// Every field is located through a fixed structural anchor and is left empty
// when its anchor is missing, extraction itself never fails. Review summaries
// are looked up in the responsive page layout first and in the legacy layout
// second.
package extract

import (
	"bytes"
	"catalogmatch/pkg/htmlutil"
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("catalogmatch.internal.extract")

type Reviews struct {
	Overall string `json:"overall,omitempty"`
	Recent  string `json:"recent,omitempty"`
}

// WithBackfill uses the recent summary as the overall one when the page has no
// overall summary, titles with few reviews only publish a recent summary.
func (r Reviews) WithBackfill() Reviews {
	if r.Overall == "" && r.Recent != "" {
		r.Overall = r.Recent
	}
	return r
}

// Metadata holds listing labels exactly as published, nothing is parsed into numbers or dates.
type Metadata struct {
	Price       string   `json:"price,omitempty"`
	Discount    string   `json:"discount,omitempty"`
	ReleaseDate string   `json:"release_date,omitempty"`
	Developers  []string `json:"developers,omitempty"`
	Publishers  []string `json:"publishers,omitempty"`
	Description string   `json:"description,omitempty"`
	HeaderImage string   `json:"header_image,omitempty"`
}

type Details struct {
	Name    string  `json:"name,omitempty"`
	Reviews Reviews `json:"reviews"`
	// Tags is nil when the page has no popular tags, otherwise it is in display order.
	Tags     []string `json:"tags"`
	Metadata Metadata `json:"metadata"`
}

type reviewLayout struct {
	name      string
	container string
	row       string
	label     string
	value     string
}

var reviewLayouts = []reviewLayout{
	{
		name:      "responsive",
		container: "#userReviews",
		row:       ".user_reviews_summary_row",
		label:     ".subtitle",
		value:     ".game_review_summary",
	},
	{
		name:      "legacy",
		container: ".user_reviews_summary_bar",
		row:       ".summary_section",
		label:     ".title",
		value:     ".game_review_summary",
	},
}

const (
	labelRecent  = "Recent Reviews:"
	labelOverall = "Overall Reviews:"
	labelEnglish = "English Reviews:"
	labelAll     = "All Reviews:"
)

// tried in order, each one across every layout before moving on to the next
var overallLabels = []string{labelOverall, labelEnglish, labelAll}

// Unavailable reports whether a detail page body is the storefront's
// "not available" error page rather than a listing.
func Unavailable(body []byte) bool {
	return bytes.Contains(body, []byte("error")) && bytes.Contains(body, []byte("not available"))
}

// Parse parses body as HTML and runs Extract on it.
func Parse(ctx context.Context, body []byte) (Details, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return Details{}, err
	}
	return Extract(ctx, doc), nil
}

func Extract(ctx context.Context, doc *goquery.Document) Details {
	ctx, span := tracer.Start(ctx, "Extract")
	defer span.End()

	details := Details{
		Name:     name(doc),
		Reviews:  reviews(ctx, doc),
		Tags:     tags(ctx, doc),
		Metadata: metadata(ctx, doc),
	}
	span.SetAttributes(
		attribute.Bool("reviews.overall", details.Reviews.Overall != ""),
		attribute.Bool("reviews.recent", details.Reviews.Recent != ""),
		attribute.Int("tags", len(details.Tags)),
	)
	span.SetStatus(codes.Ok, "")
	return details
}

func name(doc *goquery.Document) string {
	return htmlutil.SelectionText(doc.Find("#appHubAppName, .apphub_AppName"))
}

func hasLabel(text, label string) bool {
	return strings.HasPrefix(strings.ToLower(htmlutil.CleanText(text)), strings.ToLower(label))
}

func reviewSummary(ctx context.Context, doc *goquery.Document, label string) string {
	span := trace.SpanFromContext(ctx)

	for _, layout := range reviewLayouts {
		var value string
		doc.Find(layout.container).Find(layout.row).EachWithBreak(func(_ int, row *goquery.Selection) bool {
			if !hasLabel(row.Find(layout.label).First().Text(), label) {
				return true
			}
			value = htmlutil.SelectionText(row.Find(layout.value))
			return value == ""
		})
		if value != "" {
			span.AddEvent("review summary", trace.WithAttributes(
				attribute.String("label", label),
				attribute.String("layout", layout.name),
			))
			return value
		}
	}
	return ""
}

func reviews(ctx context.Context, doc *goquery.Document) Reviews {
	r := Reviews{
		Recent: reviewSummary(ctx, doc, labelRecent),
	}
	for _, label := range overallLabels {
		r.Overall = reviewSummary(ctx, doc, label)
		if r.Overall != "" {
			break
		}
	}
	return r
}

func tags(ctx context.Context, doc *goquery.Document) []string {
	container := doc.Find(".popular_tags").First()
	if container.Length() == 0 {
		return nil
	}

	var out []string
	for _, anchor := range htmlutil.GetAnchors(ctx, container.Find("a")) {
		if anchor.Name == "" {
			continue
		}
		out = append(out, anchor.Name)
	}
	return out
}

func anchorNames(ctx context.Context, sel *goquery.Selection) []string {
	var out []string
	for _, anchor := range htmlutil.GetAnchors(ctx, sel) {
		if anchor.Name != "" {
			out = append(out, anchor.Name)
		}
	}
	return out
}

func metadata(ctx context.Context, doc *goquery.Document) Metadata {
	m := Metadata{
		Price:       htmlutil.SelectionText(doc.Find(".game_purchase_price, .discount_final_price")),
		Discount:    htmlutil.SelectionText(doc.Find(".discount_pct")),
		ReleaseDate: htmlutil.SelectionText(doc.Find(".release_date .date")),
		Developers:  anchorNames(ctx, doc.Find("#developers_list a")),
		Description: htmlutil.SelectionText(doc.Find(".game_description_snippet")),
		HeaderImage: strings.TrimSpace(doc.Find("img.game_header_image_full").First().AttrOr("src", "")),
	}

	doc.Find(".dev_row").EachWithBreak(func(_ int, row *goquery.Selection) bool {
		if !hasLabel(row.Find(".subtitle").First().Text(), "Publisher") {
			return true
		}
		m.Publishers = anchorNames(ctx, row.Find(".summary a"))
		return false
	})

	return m
}
