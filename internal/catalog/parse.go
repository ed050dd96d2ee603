package catalog

import (
	"bytes"
	"encoding/xml"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

type xmlTS struct {
	XMLName        xml.Name     `xml:"TS"`
	Version        string       `xml:"version,attr"`
	Language       string       `xml:"language,attr"`
	SourceLanguage string       `xml:"sourcelanguage,attr"`
	Contexts       []xmlContext `xml:"context"`
}

type xmlContext struct {
	Name     string       `xml:"name"`
	Messages []xmlMessage `xml:"message"`
}

type xmlMessage struct {
	Numerus           string         `xml:"numerus,attr"`
	Locations         []xmlLocation  `xml:"location"`
	Source            string         `xml:"source"`
	OldSource         string         `xml:"oldsource"`
	Comment           string         `xml:"comment"`
	ExtraComment      string         `xml:"extracomment"`
	TranslatorComment string         `xml:"translatorcomment"`
	Translation       xmlTranslation `xml:"translation"`
}

type xmlLocation struct {
	Filename *string `xml:"filename,attr"`
	Line     string  `xml:"line,attr"`
}

type xmlTranslation struct {
	Type  string   `xml:"type,attr"`
	Text  string   `xml:",chardata"`
	Forms []string `xml:"numerusform"`
}

// Parse decodes a TS document.
func Parse(r io.Reader) (*Catalog, error) {
	var doc xmlTS
	dec := xml.NewDecoder(r)
	dec.Strict = true
	if err := dec.Decode(&doc); err != nil {
		var se xml.UnmarshalError
		if errors.As(err, &se) {
			return nil, errors.Wrap(ErrNotTS, err.Error())
		}
		return nil, errors.Wrap(err, "catalog: decode")
	}

	c := &Catalog{Version: doc.Version, Language: doc.Language, SourceLanguage: doc.SourceLanguage}
	for ci, xc := range doc.Contexts {
		if xc.Name == "" {
			return nil, errors.Wrapf(ErrEmptyContext, "context #%d", ci+1)
		}
		ctx := c.EnsureContext(xc.Name)
		lastFile, lastLine := "", 0
		for mi, xm := range xc.Messages {
			m, err := xm.message(&lastFile, &lastLine)
			if err != nil {
				return nil, errors.Wrapf(err, "catalog: context %q message #%d", xc.Name, mi+1)
			}
			if _, dup := ctx.Find(m.Key()); dup {
				return nil, errors.Wrapf(ErrDuplicateKey, "%s: %q (%q)", xc.Name, m.Source, m.Comment)
			}
			ctx.Messages = append(ctx.Messages, m)
		}
	}
	return c, nil
}

// ParseBytes decodes a TS document held in memory; a UTF-8 BOM is ignored.
func ParseBytes(data []byte) (*Catalog, error) {
	return Parse(bytes.NewReader(stripBOM(data)))
}

func (xm xmlMessage) message(lastFile *string, lastLine *int) (*Message, error) {
	status, err := ParseStatus(xm.Translation.Type)
	if err != nil {
		return nil, err
	}
	m := &Message{
		Source:            xm.Source,
		Comment:           xm.Comment,
		OldSource:         xm.OldSource,
		ExtraComment:      xm.ExtraComment,
		TranslatorComment: xm.TranslatorComment,
		Numerus:           xm.Numerus == "yes",
		Status:            status,
	}
	if m.Numerus {
		m.Translations = append([]string{}, xm.Translation.Forms...)
		if len(m.Translations) == 0 {
			m.Translations = []string{""}
		}
	} else {
		m.Translations = []string{xm.Translation.Text}
	}
	for _, xl := range xm.Locations {
		loc, err := xl.resolve(lastFile, lastLine)
		if err != nil {
			return nil, err
		}
		m.Locations = append(m.Locations, loc)
	}
	return m, nil
}

// resolve turns lupdate's relative locations (omitted filename, "+N" lines)
// into absolute ones.
func (xl xmlLocation) resolve(lastFile *string, lastLine *int) (Location, error) {
	file := *lastFile
	if xl.Filename != nil {
		if *xl.Filename != file {
			*lastLine = 0
		}
		file = *xl.Filename
	}
	line := 0
	if s := strings.TrimSpace(xl.Line); s != "" {
		n, err := strconv.Atoi(strings.TrimPrefix(s, "+"))
		if err != nil {
			return Location{}, errors.Errorf("catalog: bad location line %q", xl.Line)
		}
		if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
			n += *lastLine
		}
		line = n
	}
	*lastFile, *lastLine = file, line
	return Location{Filename: file, Line: line}, nil
}

func stripBOM(b []byte) []byte {
	bom := []byte{0xEF, 0xBB, 0xBF}
	if len(b) >= 3 && bytes.Equal(b[:3], bom) {
		return b[3:]
	}
	return b
}
