package feeds

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"regexp"
	"strings"

	"costa_listings/internal/adapters/observability"
	"costa_listings/internal/domain"
)

// propertyBlock matches one Kyero <property> element. Blocks are decoded one
// at a time so a broken listing does not invalidate the whole document.
var propertyBlock = regexp.MustCompile(`(?s)<property(?:\s[^>]*)?>.*?</property>`)

// XMLSource reads a Kyero-style XML feed.
type XMLSource struct {
	name string
	url  string
	tr   *Transport
}

func NewXMLSource(name, url string, tr *Transport) *XMLSource {
	return &XMLSource{name: name, url: url, tr: tr}
}

func (s *XMLSource) Name() string { return s.name }

func (s *XMLSource) Fetch(ctx context.Context) ([]domain.RawRecord, domain.FetchStats, error) {
	if s.url == "" {
		return nil, domain.FetchStats{}, fmt.Errorf("%s: no URL configured", s.name)
	}
	body, err := s.tr.get(ctx, s.name, s.url)
	if err != nil {
		return nil, domain.FetchStats{}, err
	}
	recs, stats, err := DecodeXML(s.name, body)
	observability.ObserveFeed(s.name, "ok", len(recs))
	observability.ObserveFeed(s.name, "malformed", stats.Malformed)
	return recs, stats, err
}

// DecodeXML splits a Kyero document into raw records. Each <property> becomes
// a generic field map: leaf elements map to strings, repeated elements to
// []any, attributes to "@name" keys and mixed text to "#text".
func DecodeXML(source string, body []byte) ([]domain.RawRecord, domain.FetchStats, error) {
	var stats domain.FetchStats
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, stats, ErrEmpty
	}
	head := strings.ToLower(string(body[:min(len(body), 64)]))
	if body[0] != '<' || strings.HasPrefix(head, "<!doctype html") || strings.HasPrefix(head, "<html") {
		return nil, stats, fmt.Errorf("%w: expected an XML document", ErrUnparsable)
	}

	blocks := propertyBlock.FindAll(body, -1)
	stats.Entries = len(blocks)
	out := make([]domain.RawRecord, 0, len(blocks))
	for _, b := range blocks {
		m, err := decodeBlock(b)
		if err != nil {
			stats.Malformed++
			continue
		}
		out = append(out, domain.RawRecord{Source: source, Fields: m})
	}
	if len(out) == 0 {
		return nil, stats, ErrEmpty
	}
	return out, stats, nil
}

func decodeBlock(block []byte) (map[string]any, error) {
	d := xml.NewDecoder(bytes.NewReader(block))
	d.Entity = xml.HTMLEntity
	for {
		tok, err := d.Token()
		if err != nil {
			return nil, err
		}
		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		v, err := readElement(d, se)
		if err != nil {
			return nil, err
		}
		if m, ok := v.(map[string]any); ok {
			return m, nil
		}
		return nil, fmt.Errorf("empty <%s> element", se.Name.Local)
	}
}

func readElement(d *xml.Decoder, start xml.StartElement) (any, error) {
	fields := map[string]any{}
	for _, a := range start.Attr {
		fields["@"+a.Name.Local] = a.Value
	}
	var text strings.Builder
	hasChild := false
	for {
		tok, err := d.Token()
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			v, err := readElement(d, t)
			if err != nil {
				return nil, err
			}
			hasChild = true
			addChild(fields, t.Name.Local, v)
		case xml.CharData:
			text.Write(t)
		case xml.EndElement:
			s := strings.TrimSpace(text.String())
			if !hasChild && len(start.Attr) == 0 {
				return s, nil
			}
			if s != "" {
				fields["#text"] = s
			}
			return fields, nil
		}
	}
}

func addChild(fields map[string]any, name string, v any) {
	prev, ok := fields[name]
	if !ok {
		fields[name] = v
		return
	}
	if list, ok := prev.([]any); ok {
		fields[name] = append(list, v)
		return
	}
	fields[name] = []any{prev, v}
}
