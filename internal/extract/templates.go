package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Template is one known article layout.
type Template struct {
	Name  string
	Parse func(doc *goquery.Document) (Fields, error)
}

// Template names, in the order they are tried.
const (
	NaverNews      = "naver-news"
	NaverSports    = "naver-sports"
	NaverEntertain = "naver-entertain"
)

const sourceSuffix = "기사제공"

// DefaultTemplates returns the built-in templates in priority order.
func DefaultTemplates() []Template {
	return []Template{
		{Name: NaverNews, Parse: parseNaverNews},
		{Name: NaverSports, Parse: parseNaverSports},
		{Name: NaverEntertain, Parse: parseNaverEntertain},
	}
}

func parseNaverNews(doc *goquery.Document) (Fields, error) {
	const pressSel = `a[class~="nclicks(atp_press)"]`
	press := doc.Find(pressSel)
	if press.Length() == 0 {
		return Fields{}, &FieldError{Template: NaverNews, Field: "newspaper", Selector: pressSel}
	}
	newspaper, err := attr(press.Last().Find("img").First(), NaverNews, "newspaper", pressSel+" img", "title")
	if err != nil {
		return Fields{}, err
	}

	title, err := text(doc, NaverNews, "title", "h3#articleTitle")
	if err != nil {
		return Fields{}, err
	}
	day, err := text(doc, NaverNews, "day", "span.t11")
	if err != nil {
		return Fields{}, err
	}
	body, err := text(doc, NaverNews, "text", "div#articleBodyContents")
	if err != nil {
		return Fields{}, err
	}

	return Fields{
		Newspaper: newspaper,
		Day:       runeSlice(day, 0, 10),
		Title:     title,
		Text:      body,
	}, nil
}

func parseNaverSports(doc *goquery.Document) (Fields, error) {
	source, err := find(doc, NaverSports, "newspaper", "p.source")
	if err != nil {
		return Fields{}, err
	}
	// The source label keeps its surrounding whitespace; only the phrase goes.
	newspaper := strings.ReplaceAll(rawText(source), sourceSuffix, "")

	title, err := text(doc, NaverSports, "title", "h4.title")
	if err != nil {
		return Fields{}, err
	}
	day, err := text(doc, NaverSports, "day", "div.info")
	if err != nil {
		return Fields{}, err
	}
	body, err := text(doc, NaverSports, "text", `div[class="news_end font1 size3"]`)
	if err != nil {
		return Fields{}, err
	}

	return Fields{
		Newspaper: newspaper,
		Day:       runeSlice(day, 5, 15),
		Title:     title,
		Text:      body,
	}, nil
}

func parseNaverEntertain(doc *goquery.Document) (Fields, error) {
	logo, err := find(doc, NaverEntertain, "newspaper", "div.press_logo")
	if err != nil {
		return Fields{}, err
	}
	newspaper, err := attr(logo.Find("img").First(), NaverEntertain, "newspaper", "div.press_logo img", "alt")
	if err != nil {
		return Fields{}, err
	}

	title, err := text(doc, NaverEntertain, "title", "h2.end_tit")
	if err != nil {
		return Fields{}, err
	}
	day, err := text(doc, NaverEntertain, "day", "span.author")
	if err != nil {
		return Fields{}, err
	}
	body, err := text(doc, NaverEntertain, "text", "div.end_body_wrp")
	if err != nil {
		return Fields{}, err
	}

	return Fields{
		Newspaper: newspaper,
		Day:       runeSlice(day, 4, 14),
		Title:     title,
		Text:      body,
	}, nil
}

func find(doc *goquery.Document, template, field, selector string) (*goquery.Selection, error) {
	sel := doc.Find(selector).First()
	if sel.Length() == 0 {
		return nil, &FieldError{Template: template, Field: field, Selector: selector}
	}
	return sel, nil
}

func text(doc *goquery.Document, template, field, selector string) (string, error) {
	sel, err := find(doc, template, field, selector)
	if err != nil {
		return "", err
	}
	return strippedText(sel), nil
}

func attr(sel *goquery.Selection, template, field, selector, name string) (string, error) {
	value, ok := sel.Attr(name)
	if sel.Length() == 0 || !ok {
		return "", &FieldError{Template: template, Field: field, Selector: selector + "[" + name + "]"}
	}
	return value, nil
}
